package hyperrect

import (
	"container/heap"
	"fmt"
	"math"
	"runtime"
)

// NoDepthLimit grows a depth-first tree until no admissible split remains.
const NoDepthLimit = math.MaxInt

// NoLeafLimit grows a best-first tree until no admissible split remains.
const NoLeafLimit = math.MaxInt

// GrowConfig controls tree growth. Start from DefaultGrowConfig and set the
// dimension sets and the bound for the chosen growth policy.
type GrowConfig struct {
	// SplitDims are the candidate splitting dimensions. Required.
	// Resolve symbolic names with Store.ResolveDims.
	SplitDims []int

	// EvalDims are the dimensions used for split quality scoring. Required.
	EvalDims []int

	// Subset restricts growth to a sample subset, as returned by
	// Store.Subset. nil means the full dataset. Ownership of the reference
	// arrays passes to the grown tree.
	Subset [][]int

	// MaxDepth bounds depth-first growth. 0 leaves the root unsplit.
	// Use NoDepthLimit to grow until splits are exhausted.
	// Only used by GrowDepthFirst.
	MaxDepth int

	// MaxLeaves bounds best-first growth. 0 means NoLeafLimit.
	// Only used by GrowBestFirst.
	MaxLeaves int

	// Correlate switches split scoring from plain variance reduction to
	// one-sided correlation (population-scaled R²). Requires OneSided and at
	// least two evaluation dimensions. Two-sided correlation analysis never
	// grows a tree; see AnalyzeSplitSpectra.
	Correlate bool

	// OneSided materializes only the winning child of each correlation
	// split, leaving the sibling branch permanently absent. Requires
	// Correlate.
	OneSided bool

	// PopPower is the exponent on the log2(population-1) factor in one-sided
	// correlation scoring. 0 means the default of 0.5.
	PopPower float64

	// Workers controls the number of goroutines evaluating candidate split
	// dimensions in parallel. 0 means runtime.NumCPU(). The result is
	// identical for any worker count.
	Workers int

	// OnLeaf, if set, is called with the running leaf count after each
	// successful split. Replaces an external progress bar.
	OnLeaf func(numLeaves int)
}

// DefaultGrowConfig returns a GrowConfig with default scoring parameters.
// SplitDims, EvalDims, and the growth bound must still be set.
func DefaultGrowConfig() GrowConfig {
	return GrowConfig{PopPower: 0.5}
}

func applyGrowDefaults(cfg *GrowConfig) {
	if cfg.PopPower == 0 {
		cfg.PopPower = 0.5
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.MaxLeaves == 0 {
		cfg.MaxLeaves = NoLeafLimit
	}
}

func validateGrowConfig(s *Store, cfg *GrowConfig) error {
	if len(cfg.SplitDims) == 0 {
		return fmt.Errorf("hyperrect: SplitDims must not be empty")
	}
	if len(cfg.EvalDims) == 0 {
		return fmt.Errorf("hyperrect: EvalDims must not be empty")
	}
	if err := s.checkDims(cfg.SplitDims); err != nil {
		return err
	}
	if err := s.checkDims(cfg.EvalDims); err != nil {
		return err
	}
	if cfg.Correlate {
		if len(cfg.EvalDims) < 2 {
			return fmt.Errorf("hyperrect: correlation scoring requires at least 2 evaluation dimensions, got %d", len(cfg.EvalDims))
		}
		if !cfg.OneSided {
			return fmt.Errorf("hyperrect: two-sided correlation is analysis-only; use AnalyzeSplitSpectra or set OneSided")
		}
	} else if cfg.OneSided {
		return fmt.Errorf("hyperrect: OneSided requires Correlate")
	}
	if cfg.MaxDepth < 0 {
		return fmt.Errorf("hyperrect: MaxDepth must be >= 0, got %d", cfg.MaxDepth)
	}
	if cfg.Subset != nil {
		if len(cfg.Subset) != s.dims {
			return fmt.Errorf("hyperrect: Subset has %d dimension arrays, want %d", len(cfg.Subset), s.dims)
		}
		for d, idx := range cfg.Subset {
			if len(idx) != len(cfg.Subset[0]) {
				return fmt.Errorf("hyperrect: Subset dimension %d has %d references, want %d", d, len(idx), len(cfg.Subset[0]))
			}
		}
	}
	return nil
}

// rootRefs returns the sample references growth starts from.
func rootRefs(s *Store, cfg *GrowConfig) [][]int {
	if cfg.Subset != nil {
		return cfg.Subset
	}
	return s.allSortedRefs()
}

// GrowDepthFirst grows a tree depth-first: every node is split greedily and
// its children recursed into while the depth bound allows and splits keep
// improving quality. With one-sided correlation scoring, unmaterialized
// siblings terminate their branch.
func (s *Store) GrowDepthFirst(cfg GrowConfig) (*Tree, error) {
	applyGrowDefaults(&cfg)
	if err := validateGrowConfig(s, &cfg); err != nil {
		return nil, err
	}
	root := newNode(s, rootRefs(s, &cfg), nil)
	numLeaves := 1
	var recurse func(n *Node, depth int)
	recurse = func(n *Node, depth int) {
		if n == nil || depth >= cfg.MaxDepth {
			return
		}
		if !greedySplit(n, cfg.SplitDims, cfg.EvalDims, cfg.Correlate, cfg.PopPower, cfg.Workers) {
			return
		}
		if n.grownSide == SideBoth {
			numLeaves++
		}
		if cfg.OnLeaf != nil {
			cfg.OnLeaf(numLeaves)
		}
		recurse(n.left, depth+1)
		recurse(n.right, depth+1)
	}
	recurse(root, 0)
	return newTree(s, root, cfg.SplitDims, cfg.EvalDims), nil
}

// leafItem is a pending leaf in the best-first queue.
type leafItem struct {
	node     *Node
	priority float64
	seq      int // insertion order, for deterministic tie-breaking
}

// leafQueue is a max-heap of pending leaves ordered by priority.
type leafQueue []*leafItem

func (q leafQueue) Len() int { return len(q) }
func (q leafQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority > q[j].priority
	}
	return q[i].seq < q[j].seq
}
func (q leafQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *leafQueue) Push(x any)   { *q = append(*q, x.(*leafItem)) }
func (q *leafQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// leafPriority is the best-first heuristic: the node's variance sum along the
// evaluation dimensions scaled by the global variance scale. Cheap to compute
// and roughly proportional to the attainable reduction, but not the true gain.
func leafPriority(n *Node, evalDims []int) float64 {
	var p float64
	for _, d := range evalDims {
		p += n.varSum[d] * n.store.globalVarScale[d]
	}
	return p
}

// GrowBestFirst grows a tree best-first: leaves wait in a priority queue and
// the highest-priority leaf is split next, until MaxLeaves is reached or no
// admissible split remains anywhere. Scoring is plain variance reduction;
// correlation modes are depth-first only.
func (s *Store) GrowBestFirst(cfg GrowConfig) (*Tree, error) {
	applyGrowDefaults(&cfg)
	if cfg.Correlate || cfg.OneSided {
		return nil, fmt.Errorf("hyperrect: best-first growth supports plain variance scoring only")
	}
	if err := validateGrowConfig(s, &cfg); err != nil {
		return nil, err
	}
	root := newNode(s, rootRefs(s, &cfg), nil)

	q := leafQueue{{node: root, priority: leafPriority(root, cfg.EvalDims)}}
	heap.Init(&q)
	seq := 1
	numLeaves := 1
	if cfg.OnLeaf != nil {
		cfg.OnLeaf(numLeaves)
	}
	for numLeaves < cfg.MaxLeaves && q.Len() > 0 {
		item := heap.Pop(&q).(*leafItem)
		n := item.node
		if !greedySplit(n, cfg.SplitDims, cfg.EvalDims, false, cfg.PopPower, cfg.Workers) {
			// No admissible split here; the node stays a leaf for good.
			continue
		}
		numLeaves++
		if cfg.OnLeaf != nil {
			cfg.OnLeaf(numLeaves)
		}
		for _, child := range []*Node{n.left, n.right} {
			heap.Push(&q, &leafItem{node: child, priority: leafPriority(child, cfg.EvalDims), seq: seq})
			seq++
		}
	}
	return newTree(s, root, cfg.SplitDims, cfg.EvalDims), nil
}
