package hyperrect

import (
	"math"
	"math/rand"
	"testing"
)

func TestPCA_PerfectlyCorrelatedPair(t *testing.T) {
	// y = 2x exactly: one component explains everything, and scaling the
	// unit axis back by the per-dimension deviations restores the 2:1 slope.
	data := [][]float64{{1, 2}, {2, 4}, {3, 6}, {4, 8}}
	s := mustStore(t, data, []string{"x", "y"})
	n := rootNode(s)

	res, err := n.PCA(nil, 0, WhitenLocal)
	if err != nil {
		t.Fatalf("PCA: %v", err)
	}
	if len(res.ExplainedVarianceRatio) != 2 || len(res.Components) != 4 {
		t.Fatalf("unexpected shapes: %+v", res)
	}
	if !approxEq(res.ExplainedVarianceRatio[0], 1, floatTol) {
		t.Errorf("first EVR = %v, want 1", res.ExplainedVarianceRatio[0])
	}
	if !approxEq(res.ExplainedVarianceRatio[1], 0, floatTol) {
		t.Errorf("second EVR = %v, want 0", res.ExplainedVarianceRatio[1])
	}
	// The dominant component's direction is sign-ambiguous; compare slopes.
	c0, c1 := res.Components[0], res.Components[1]
	if !approxEq(math.Abs(c1/c0), 2, floatTol) {
		t.Errorf("component slope = %v, want |2|", c1/c0)
	}
}

func TestPCA_RatiosSumToOne(t *testing.T) {
	rng := rand.New(rand.NewSource(60))
	data := randomMatrix(rng, 50, 3)
	s := mustStore(t, data, []string{"a", "b", "c"})
	n := rootNode(s)

	for _, whiten := range []Whitening{WhitenLocal, WhitenGlobal} {
		res, err := n.PCA(nil, 0, whiten)
		if err != nil {
			t.Fatalf("PCA(whiten=%v): %v", whiten, err)
		}
		var sum float64
		prev := math.Inf(1)
		for _, r := range res.ExplainedVarianceRatio {
			sum += r
			if r > prev+floatTol {
				t.Errorf("EVR not descending: %v", res.ExplainedVarianceRatio)
			}
			prev = r
		}
		if !approxEq(sum, 1, 1e-6) {
			t.Errorf("whiten=%v: EVR sum = %v, want 1", whiten, sum)
		}
	}
}

func TestPCA_ComponentTruncation(t *testing.T) {
	rng := rand.New(rand.NewSource(61))
	data := randomMatrix(rng, 30, 4)
	s := mustStore(t, data, []string{"a", "b", "c", "d"})
	n := rootNode(s)

	res, err := n.PCA([]int{0, 1, 2}, 2, WhitenLocal)
	if err != nil {
		t.Fatalf("PCA: %v", err)
	}
	if len(res.ExplainedVarianceRatio) != 2 {
		t.Errorf("kept %d ratios, want 2", len(res.ExplainedVarianceRatio))
	}
	if len(res.Components) != 2*3 {
		t.Errorf("components length = %d, want 6", len(res.Components))
	}
	if len(res.Dims) != 3 {
		t.Errorf("Dims = %v, want the 3 requested", res.Dims)
	}
}

func TestPCA_DegenerateInputs(t *testing.T) {
	s := mustStore(t, [][]float64{{1, 2}}, []string{"x", "y"})
	n := rootNode(s)
	if _, err := n.PCA(nil, 0, WhitenLocal); err == nil {
		t.Error("expected an error for fewer than 2 samples")
	}

	// Constant dimensions whiten by 1 instead of dividing by zero.
	data := [][]float64{{1, 5}, {2, 5}, {3, 5}}
	s = mustStore(t, data, []string{"x", "c"})
	n = rootNode(s)
	res, err := n.PCA(nil, 0, WhitenLocal)
	if err != nil {
		t.Fatalf("PCA: %v", err)
	}
	for i, v := range res.Components {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("component[%d] = %v", i, v)
		}
	}
}
