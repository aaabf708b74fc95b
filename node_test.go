package hyperrect

import (
	"math"
	"math/rand"
	"testing"
)

func rootNode(s *Store) *Node {
	return newNode(s, s.allSortedRefs(), nil)
}

func TestNode_Statistics(t *testing.T) {
	data := [][]float64{{1, 10}, {3, 30}, {5, 20}}
	s := mustStore(t, data, []string{"x", "y"})
	n := rootNode(s)

	if n.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", n.Count())
	}
	if !approxEq(n.Mean(0), 3, floatTol) || !approxEq(n.Mean(1), 20, floatTol) {
		t.Errorf("mean = (%v, %v), want (3, 20)", n.Mean(0), n.Mean(1))
	}
	// Population variance of {1,3,5} is 8/3.
	if !approxEq(n.Cov(0, 0), 8.0/3, floatTol) {
		t.Errorf("Cov(0,0) = %v, want %v", n.Cov(0, 0), 8.0/3)
	}
	if !approxEq(n.VarSum(0), 8, floatTol) {
		t.Errorf("VarSum(0) = %v, want 8", n.VarSum(0))
	}
	if bb := n.BBMin(0); bb.Min != 1 || bb.Max != 5 {
		t.Errorf("BBMin(0) = %+v, want [1, 5]", bb)
	}
	if bb := n.BBMax(0); !math.IsInf(bb.Min, -1) || !math.IsInf(bb.Max, 1) {
		t.Errorf("BBMax(0) = %+v, want unbounded", bb)
	}
	if !n.IsLeaf() || n.SplitDim() != -1 || n.Left() != nil || n.Right() != nil {
		t.Error("fresh node must be an unsplit leaf")
	}
}

func TestNode_EmptyRegion(t *testing.T) {
	s := mustStore(t, [][]float64{{1, 2}, {3, 4}}, []string{"x", "y"})
	n := newNode(s, nil, nil)

	if n.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", n.Count())
	}
	for d := 0; d < 2; d++ {
		if !math.IsNaN(n.Mean(d)) {
			t.Errorf("empty mean[%d] = %v, want NaN", d, n.Mean(d))
		}
		if !isEmptyInterval(n.BBMin(d)) {
			t.Errorf("empty BBMin(%d) = %+v, want NaN interval", d, n.BBMin(d))
		}
		if n.VarSum(d) != 0 {
			t.Errorf("empty VarSum(%d) = %v, want 0", d, n.VarSum(d))
		}
	}
	// Zero covariance distinguishes "empty" from "constant" via the NaN mean.
	if !math.IsNaN(n.Mean(0)) || n.Cov(0, 1) != 0 {
		t.Error("empty region must have NaN mean and zero covariance")
	}
}

func TestNode_SingleSampleCovarianceIsZero(t *testing.T) {
	s := mustStore(t, [][]float64{{7, 8}}, []string{"x", "y"})
	n := rootNode(s)
	for a := 0; a < 2; a++ {
		for b := 0; b < 2; b++ {
			if n.Cov(a, b) != 0 {
				t.Errorf("Cov(%d,%d) = %v, want 0", a, b, n.Cov(a, b))
			}
		}
	}
	if n.Mean(0) != 7 || n.BBMin(1) != Point(8) {
		t.Errorf("single-sample stats wrong: mean=%v bbMin=%+v", n.Mean(0), n.BBMin(1))
	}
}

func TestNode_ManualSplit(t *testing.T) {
	data := [][]float64{{0, 5}, {1, 6}, {2, 7}, {3, 8}}
	s := mustStore(t, data, []string{"x", "y"})
	n := rootNode(s)

	if err := n.ManualSplit(0, 1.5); err != nil {
		t.Fatalf("ManualSplit: %v", err)
	}
	if n.IsLeaf() || n.SplitDim() != 0 || n.SplitThreshold() != 1.5 {
		t.Fatalf("split bookkeeping wrong: dim=%d threshold=%v", n.SplitDim(), n.SplitThreshold())
	}
	left, right := n.Left(), n.Right()
	if left.Count() != 2 || right.Count() != 2 {
		t.Fatalf("child counts = (%d, %d), want (2, 2)", left.Count(), right.Count())
	}
	// Children partition the parent's samples without overlap.
	seen := map[int]int{}
	for _, i := range left.SampleIndices(0) {
		seen[i]++
	}
	for _, i := range right.SampleIndices(0) {
		seen[i]++
	}
	if len(seen) != 4 {
		t.Fatalf("children cover %d samples, want 4", len(seen))
	}
	for i, c := range seen {
		if c != 1 {
			t.Errorf("sample %d appears %d times in children", i, c)
		}
	}
	// Maximal boxes narrow exactly one bound each.
	if left.BBMax(0).Max != 1.5 || !math.IsInf(left.BBMax(0).Min, -1) {
		t.Errorf("left BBMax(0) = %+v", left.BBMax(0))
	}
	if right.BBMax(0).Min != 1.5 || !math.IsInf(right.BBMax(0).Max, 1) {
		t.Errorf("right BBMax(0) = %+v", right.BBMax(0))
	}
	if left.BBMax(1) != FullInterval() || right.BBMax(1) != FullInterval() {
		t.Error("non-split dimension bounds must be inherited unchanged")
	}
}

func TestNode_ManualSplitOutsideBoundsFails(t *testing.T) {
	data := [][]float64{{0}, {1}, {2}, {3}}
	s := mustStore(t, data, []string{"x"})
	n := rootNode(s)
	if err := n.ManualSplit(0, 1.5); err != nil {
		t.Fatalf("first split: %v", err)
	}
	// Left child's maximal box is (-inf, 1.5]; a threshold above it must fail
	// without mutating the node.
	left := n.Left()
	if err := left.ManualSplit(0, 2.5); err == nil {
		t.Fatal("expected error for threshold outside maximal bounds")
	}
	if !left.IsLeaf() || left.Left() != nil || left.Right() != nil {
		t.Error("failed split must not mutate the node")
	}
}

func TestNode_ManualSplitTwiceFails(t *testing.T) {
	s := mustStore(t, [][]float64{{0}, {1}}, []string{"x"})
	n := rootNode(s)
	if err := n.ManualSplit(0, 0.5); err != nil {
		t.Fatalf("first split: %v", err)
	}
	if err := n.ManualSplit(0, 0.5); err == nil {
		t.Fatal("expected error splitting an already-split node")
	}
}

func TestNode_PartitionKeepsPerDimensionOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(20))
	data := randomMatrix(rng, 60, 3)
	s := mustStore(t, data, []string{"a", "b", "c"})
	n := rootNode(s)

	if err := n.ManualSplit(1, 5); err != nil {
		t.Fatalf("ManualSplit: %v", err)
	}
	for _, child := range []*Node{n.Left(), n.Right()} {
		for d := 0; d < 3; d++ {
			idx := child.SampleIndices(d)
			for i := 1; i < len(idx); i++ {
				if s.Value(idx[i-1], d) > s.Value(idx[i], d) {
					t.Fatalf("child refs not sorted along dimension %d", d)
				}
			}
			if len(idx) != child.Count() {
				t.Fatalf("dimension %d has %d refs, want %d", d, len(idx), child.Count())
			}
		}
	}
}

func TestNode_BBMinInsideBBMax(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	data := randomMatrix(rng, 50, 2)
	s := mustStore(t, data, []string{"a", "b"})

	cfg := DefaultGrowConfig()
	cfg.SplitDims = []int{0, 1}
	cfg.EvalDims = []int{0, 1}
	cfg.MaxDepth = 4
	tree, err := s.GrowDepthFirst(cfg)
	if err != nil {
		t.Fatalf("GrowDepthFirst: %v", err)
	}
	tree.Walk(func(n *Node, _ int) {
		if n.Count() == 0 {
			return
		}
		for d := 0; d < 2; d++ {
			if n.BBMin(d).Min < n.BBMax(d).Min || n.BBMin(d).Max > n.BBMax(d).Max {
				t.Errorf("bbMin %+v outside bbMax %+v on dimension %d", n.BBMin(d), n.BBMax(d), d)
			}
			if n.VarSum(d) < 0 {
				t.Errorf("negative variance sum %v on dimension %d", n.VarSum(d), d)
			}
		}
	})
}
