package hyperrect

import (
	"fmt"
	"sort"
)

// Tree is an immutable wrapper around a finished binary partition: the root
// node plus the dimension sets that were used for splitting and scoring.
// Individual nodes may be queried but never re-split.
type Tree struct {
	store     *Store
	root      *Node
	splitDims []int
	evalDims  []int
}

func newTree(s *Store, root *Node, splitDims, evalDims []int) *Tree {
	t := &Tree{
		store:     s,
		root:      root,
		splitDims: make([]int, len(splitDims)),
		evalDims:  make([]int, len(evalDims)),
	}
	copy(t.splitDims, splitDims)
	copy(t.evalDims, evalDims)
	return t
}

// Root returns the root node.
func (t *Tree) Root() *Node { return t.root }

// Store returns the dataset store the tree was grown from.
func (t *Tree) Store() *Store { return t.store }

// SplitDims returns the candidate splitting dimensions fixed at construction.
func (t *Tree) SplitDims() []int {
	out := make([]int, len(t.splitDims))
	copy(out, t.splitDims)
	return out
}

// EvalDims returns the quality-scoring dimensions fixed at construction.
func (t *Tree) EvalDims() []int {
	out := make([]int, len(t.evalDims))
	copy(out, t.evalDims)
	return out
}

// Walk visits every node in pre-order (parent, left, right) with its depth.
// Absent one-sided siblings are skipped.
func (t *Tree) Walk(fn func(n *Node, depth int)) {
	var recurse func(n *Node, depth int)
	recurse = func(n *Node, depth int) {
		if n == nil {
			return
		}
		fn(n, depth)
		recurse(n.left, depth+1)
		recurse(n.right, depth+1)
	}
	recurse(t.root, 0)
}

// Leaves returns the tree's leaf nodes in pre-order.
func (t *Tree) Leaves() []*Node {
	var leaves []*Node
	t.Walk(func(n *Node, _ int) {
		if n.IsLeaf() {
			leaves = append(leaves, n)
		}
	})
	return leaves
}

// NumLeaves returns the number of leaf nodes.
func (t *Tree) NumLeaves() int { return len(t.Leaves()) }

// SplitDirective records one split of a tree as (node path, dimension,
// threshold). Path addresses the node from the root: "" is the root, and each
// 'L' or 'R' descends into a child. A directive sequence in pre-order fully
// describes a tree and can deterministically reconstruct it.
type SplitDirective struct {
	Path      string
	Dim       int
	Threshold float64
}

// Directives returns the tree's splits in pre-order, suitable for
// Store.TreeFromDirectives. One-sided trees cannot be exported: their
// reconstruction would require re-running correlation scoring.
func (t *Tree) Directives() ([]SplitDirective, error) {
	var dirs []SplitDirective
	var oneSided bool
	var recurse func(n *Node, path string)
	recurse = func(n *Node, path string) {
		if n == nil || n.IsLeaf() {
			return
		}
		if n.grownSide != SideBoth {
			oneSided = true
			return
		}
		dirs = append(dirs, SplitDirective{Path: path, Dim: n.splitDim, Threshold: n.splitThreshold})
		recurse(n.left, path+"L")
		recurse(n.right, path+"R")
	}
	recurse(t.root, "")
	if oneSided {
		return nil, fmt.Errorf("hyperrect: cannot export directives for a one-sided tree")
	}
	return dirs, nil
}

// nodeAt resolves a directive path against the partially built tree.
func nodeAt(root *Node, path string) (*Node, error) {
	n := root
	for i := 0; i < len(path); i++ {
		if n.IsLeaf() {
			return nil, fmt.Errorf("hyperrect: path %q descends through an unsplit node", path)
		}
		switch path[i] {
		case 'L':
			n = n.left
		case 'R':
			n = n.right
		default:
			return nil, fmt.Errorf("hyperrect: invalid step %q in path %q", path[i], path)
		}
		if n == nil {
			return nil, fmt.Errorf("hyperrect: path %q references an absent child", path)
		}
	}
	return n, nil
}

// TreeFromDirectives deterministically reconstructs a tree from explicit
// split directives, applied in order (parents before their children, as
// produced by Tree.Directives). Any inconsistent directive aborts the
// reconstruction with an error identifying the offending node and threshold;
// no partial tree is returned.
func (s *Store) TreeFromDirectives(dirs []SplitDirective) (*Tree, error) {
	root := newNode(s, s.allSortedRefs(), nil)
	dimSet := map[int]bool{}
	for _, dir := range dirs {
		n, err := nodeAt(root, dir.Path)
		if err != nil {
			return nil, err
		}
		if err := n.ManualSplit(dir.Dim, dir.Threshold); err != nil {
			return nil, fmt.Errorf("hyperrect: reconstruction failed at node %q (dim %d, threshold %v): %w",
				dir.Path, dir.Dim, dir.Threshold, err)
		}
		dimSet[dir.Dim] = true
	}
	splitDims := make([]int, 0, len(dimSet))
	for d := range dimSet {
		splitDims = append(splitDims, d)
	}
	sort.Ints(splitDims)
	// Reconstructed trees carry no evaluation dimensions.
	return newTree(s, root, splitDims, nil), nil
}

// LeafSpec describes one externally specified leaf of a flat model. Bounds
// are sparse name-keyed intervals; unspecified dimensions are unbounded.
type LeafSpec struct {
	BBMax map[string]Interval
	BBMin map[string]Interval // optional; omitted dimensions stay unbounded
	Meta  map[string]any
}

// Model is a flat collection of leaf regions with no tree structure, built
// from an external description rather than grown by the split engine.
type Model struct {
	store  *Store
	leaves []*Node
}

// ModelFromLeaves builds a flat model from externally specified leaves.
// The leaves carry no samples; their statistics are the empty-region NaN
// placeholders and queries rely on the supplied bounding boxes and metadata.
func (s *Store) ModelFromLeaves(specs []LeafSpec) (*Model, error) {
	m := &Model{store: s}
	for i, spec := range specs {
		bbMax, err := s.BoxFromMap(spec.BBMax)
		if err != nil {
			return nil, fmt.Errorf("hyperrect: leaf %d: %w", i, err)
		}
		var bbMin []Interval
		if spec.BBMin != nil {
			// Dimensions without an explicit minimal bound fall back to the
			// maximal box, keeping bbMin inside bbMax.
			bbMin = make([]Interval, s.dims)
			copy(bbMin, bbMax)
			for name, iv := range spec.BBMin {
				d, err := s.DimIndex(name)
				if err != nil {
					return nil, fmt.Errorf("hyperrect: leaf %d: %w", i, err)
				}
				bbMin[d] = iv
			}
			for d := range bbMin {
				if bbMin[d].Min < bbMax[d].Min || bbMin[d].Max > bbMax[d].Max {
					return nil, fmt.Errorf("hyperrect: leaf %d: minimal box exceeds maximal box on dimension %d", i, d)
				}
			}
		}
		m.leaves = append(m.leaves, newExternalLeaf(s, bbMin, bbMax, spec.Meta))
	}
	return m, nil
}

// Leaves returns the model's leaf nodes in input order.
func (m *Model) Leaves() []*Node { return m.leaves }

// Memberships evaluates a query against every leaf, returning one membership
// value per leaf in input order.
func (m *Model) Memberships(q []QueryComponent, mode MembershipMode, strict bool) ([]float64, error) {
	out := make([]float64, len(m.leaves))
	for i, leaf := range m.leaves {
		v, err := leaf.Membership(q, mode, strict)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
