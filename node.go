package hyperrect

import (
	"fmt"
	"math"
	"sort"
)

// Side identifies which child of a one-sided split was materialized.
type Side int

const (
	// SideBoth marks an ordinary two-child split (or an unsplit leaf).
	SideBoth Side = iota
	// SideLeft marks a one-sided split that grew only the left child.
	SideLeft
	// SideRight marks a one-sided split that grew only the right child.
	SideRight
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return "both"
	}
}

// Node is a hyperrectangular region of the dataset: per-dimension sorted
// references into the store's samples, cached mean/covariance statistics, and
// two bounding boxes. The minimal box is tight around the region's samples;
// the maximal box is the inherited ancestor constraint.
//
// A node is a leaf until split exactly once; re-splitting a node is a
// programming error. Nodes are read-only after the split that created their
// children, so finished trees may be queried from multiple goroutines.
type Node struct {
	store *Store

	// refs[d] is the subsequence of the store's sorted index for dimension d
	// restricted to this region. Every refs[d] holds the same sample set.
	refs  [][]int
	count int

	mean   []float64 // NaN-filled when the region is empty
	cov    []float64 // flat dims*dims population covariance, zero when count <= 1
	covSum []float64 // cov * count
	varSum []float64 // diagonal of covSum

	bbMin []Interval // tight box; NaN intervals when empty
	bbMax []Interval // inherited box; defaults to (-Inf, +Inf) per dimension

	splitDim       int // -1 while the node is a leaf
	splitThreshold float64
	left, right    *Node
	grownSide      Side

	meta map[string]any
}

// newNode constructs a node over the given per-dimension sample references,
// computing all statistics fresh in one pass. bbMax may be nil for an
// unbounded maximal box. Recomputing child statistics from scratch at every
// split is the dominant cost of tree growth.
func newNode(s *Store, refs [][]int, bbMax []Interval) *Node {
	if refs == nil {
		refs = make([][]int, s.dims)
		for d := range refs {
			refs[d] = []int{}
		}
	}
	n := &Node{
		store:    s,
		refs:     refs,
		count:    len(refs[0]),
		splitDim: -1,
	}
	if bbMax == nil {
		n.bbMax = make([]Interval, s.dims)
		for d := range n.bbMax {
			n.bbMax[d] = FullInterval()
		}
	} else {
		n.bbMax = make([]Interval, s.dims)
		copy(n.bbMax, bbMax)
	}

	st := computeBatchStats(s, refs[0])
	n.mean = st.mean
	n.covSum = st.covSum
	n.bbMin = st.bbMin
	n.cov = make([]float64, s.dims*s.dims)
	n.varSum = make([]float64, s.dims)
	if n.count > 0 {
		nf := float64(n.count)
		for i, v := range n.covSum {
			n.cov[i] = v / nf
		}
	}
	for d := 0; d < s.dims; d++ {
		n.varSum[d] = n.covSum[d*s.dims+d]
	}
	return n
}

// Count returns the number of samples in the region.
func (n *Node) Count() int { return n.count }

// Mean returns the region mean along dimension d (NaN for an empty region).
func (n *Node) Mean(d int) float64 { return n.mean[d] }

// Cov returns the population covariance between dimensions a and b.
func (n *Node) Cov(a, b int) float64 { return n.cov[a*n.store.dims+b] }

// VarSum returns the variance sum (population variance times count) along d.
func (n *Node) VarSum(d int) float64 { return n.varSum[d] }

// BBMin returns the tight bounding interval along dimension d.
func (n *Node) BBMin(d int) Interval { return n.bbMin[d] }

// BBMax returns the inherited maximal bounding interval along dimension d.
func (n *Node) BBMax(d int) Interval { return n.bbMax[d] }

// IsLeaf reports whether the node has not been split.
func (n *Node) IsLeaf() bool { return n.splitDim < 0 }

// SplitDim returns the splitting dimension, or -1 for a leaf.
func (n *Node) SplitDim() int { return n.splitDim }

// SplitThreshold returns the splitting threshold; meaningful only when
// IsLeaf() is false.
func (n *Node) SplitThreshold() float64 { return n.splitThreshold }

// Left returns the left child (nil on leaves and right-only one-sided splits).
func (n *Node) Left() *Node { return n.left }

// Right returns the right child (nil on leaves and left-only one-sided splits).
func (n *Node) Right() *Node { return n.right }

// GrownSide reports which children a split materialized. SideBoth on leaves
// and ordinary splits; SideLeft/SideRight after a one-sided split.
func (n *Node) GrownSide() Side { return n.grownSide }

// Meta returns the open-ended annotation map, creating it on first use.
// Only externally constructed leaves normally carry annotations.
func (n *Node) Meta() map[string]any {
	if n.meta == nil {
		n.meta = map[string]any{}
	}
	return n.meta
}

// SampleIndices returns the region's sample indices in the sorted order of
// dimension d.
func (n *Node) SampleIndices(d int) []int {
	out := make([]int, len(n.refs[d]))
	copy(out, n.refs[d])
	return out
}

// Contains reports whether sample index i belongs to the region.
func (n *Node) Contains(i int) bool {
	for _, j := range n.refs[0] {
		if j == i {
			return true
		}
	}
	return false
}

func (n *Node) String() string {
	return fmt.Sprintf("Node(%d samples)", n.count)
}

// value returns the sample value at position i of the region's dim-d ordering.
func (n *Node) value(i, d int) float64 {
	return n.store.Value(n.refs[d][i], d)
}

// partitionRefs splits every per-dimension reference array into left/right
// subsets by sample membership: the left set is the first splitIdx samples in
// dimension dim's ordering. Each output array preserves its dimension's sort
// order, so children never re-sort.
func (n *Node) partitionRefs(dim, splitIdx int) (left, right [][]int) {
	inLeft := make([]bool, n.store.n)
	for _, i := range n.refs[dim][:splitIdx] {
		inLeft[i] = true
	}
	left = make([][]int, n.store.dims)
	right = make([][]int, n.store.dims)
	for d, idx := range n.refs {
		l := make([]int, 0, splitIdx)
		r := make([]int, 0, len(idx)-splitIdx)
		for _, i := range idx {
			if inLeft[i] {
				l = append(l, i)
			} else {
				r = append(r, i)
			}
		}
		left[d] = l
		right[d] = r
	}
	return left, right
}

// childBBMax returns the parent's maximal box with dimension dim narrowed to
// threshold on the given side.
func (n *Node) childBBMax(dim int, threshold float64, side Side) []Interval {
	bb := make([]Interval, len(n.bbMax))
	copy(bb, n.bbMax)
	if side == SideLeft {
		bb[dim].Max = threshold
	} else {
		bb[dim].Min = threshold
	}
	return bb
}

// applySplit materializes a chosen (dimension, split index) pair. The
// threshold is the midpoint between the last left and first right sample along
// dim, so it is never a sample value itself. grow selects which children to
// construct: SideBoth for ordinary splits, SideLeft/SideRight for one-sided
// correlation splits.
func (n *Node) applySplit(dim, splitIdx int, grow Side) {
	n.splitDim = dim
	n.splitThreshold = (n.value(splitIdx-1, dim) + n.value(splitIdx, dim)) / 2
	n.grownSide = grow
	left, right := n.partitionRefs(dim, splitIdx)
	if grow != SideRight {
		n.left = newNode(n.store, left, n.childBBMax(dim, n.splitThreshold, SideLeft))
	}
	if grow != SideLeft {
		n.right = newNode(n.store, right, n.childBBMax(dim, n.splitThreshold, SideRight))
	}
}

// ManualSplit splits the node at an explicitly supplied dimension and
// threshold, as used by tree reconstruction. It fails without mutating the
// node when the threshold lies outside the node's maximal bounding box or the
// node is already split. Samples with value <= threshold go left.
func (n *Node) ManualSplit(dim int, threshold float64) error {
	if err := n.store.checkDims([]int{dim}); err != nil {
		return err
	}
	if !n.IsLeaf() {
		return fmt.Errorf("hyperrect: node already split on dimension %d", n.splitDim)
	}
	if !n.bbMax[dim].contains(threshold) {
		return fmt.Errorf("hyperrect: split threshold %v outside maximal bounds [%v, %v] on dimension %d",
			threshold, n.bbMax[dim].Min, n.bbMax[dim].Max, dim)
	}
	// First index with value > threshold in dim's ordering.
	splitIdx := sort.Search(n.count, func(i int) bool {
		return n.value(i, dim) > threshold
	})
	n.splitDim = dim
	n.splitThreshold = threshold
	n.grownSide = SideBoth
	left, right := n.partitionRefs(dim, splitIdx)
	n.left = newNode(n.store, left, n.childBBMax(dim, threshold, SideLeft))
	n.right = newNode(n.store, right, n.childBBMax(dim, threshold, SideRight))
	return nil
}

// newExternalLeaf constructs a sample-less node from explicit bounding boxes,
// as used by externally specified flat models.
func newExternalLeaf(s *Store, bbMin, bbMax []Interval, meta map[string]any) *Node {
	n := newNode(s, nil, bbMax)
	if bbMin != nil {
		copy(n.bbMin, bbMin)
	}
	if meta != nil {
		n.meta = meta
	}
	return n
}

// isEmptyInterval reports whether the interval is the NaN placeholder of an
// empty region.
func isEmptyInterval(iv Interval) bool {
	return math.IsNaN(iv.Min) || math.IsNaN(iv.Max)
}
