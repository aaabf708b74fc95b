package hyperrect

import (
	"math"
	"testing"
)

// boxNode builds a node over samples spanning [2,4]x[10,20] so that bbMin is
// tight around those ranges, then narrows bbMax to a known box.
func boxNode(t *testing.T) *Node {
	t.Helper()
	data := [][]float64{{2, 10}, {3, 15}, {4, 20}}
	s := mustStore(t, data, []string{"x", "y"})
	n := newNode(s, s.allSortedRefs(), []Interval{{Min: 0, Max: 6}, {Min: 0, Max: 30}})
	return n
}

func TestMembership_MeanMode(t *testing.T) {
	n := boxNode(t) // mean = (3, 15)

	v, err := n.Membership([]QueryComponent{ScalarQ(3), ScalarQ(15)}, ModeMean, false)
	if err != nil || v != 1 {
		t.Fatalf("exact mean: got (%v, %v), want (1, nil)", v, err)
	}
	v, _ = n.Membership([]QueryComponent{ScalarQ(3.1), ScalarQ(15)}, ModeMean, false)
	if v != 0 {
		t.Errorf("off-mean scalar: got %v, want 0", v)
	}
	// Interval component: contains the mean.
	v, _ = n.Membership([]QueryComponent{IntervalQ(2, 4), ScalarQ(15)}, ModeMean, false)
	if v != 1 {
		t.Errorf("interval containing mean: got %v, want 1", v)
	}
	v, _ = n.Membership([]QueryComponent{IntervalQ(4, 5), ScalarQ(15)}, ModeMean, false)
	if v != 0 {
		t.Errorf("interval missing mean: got %v, want 0", v)
	}
}

func TestMembership_MinMaxModes(t *testing.T) {
	n := boxNode(t) // bbMin = [2,4]x[10,20], bbMax = [0,6]x[0,30]

	// Inside bbMax but outside bbMin.
	q := []QueryComponent{ScalarQ(1), ScalarQ(15)}
	if v, _ := n.Membership(q, ModeMin, false); v != 0 {
		t.Errorf("min mode: got %v, want 0", v)
	}
	if v, _ := n.Membership(q, ModeMax, false); v != 1 {
		t.Errorf("max mode: got %v, want 1", v)
	}

	// Interval intersection vs strict containment against bbMin [2,4].
	iv := []QueryComponent{IntervalQ(3, 9), Wildcard()}
	if v, _ := n.Membership(iv, ModeMin, false); v != 1 {
		t.Errorf("intersecting interval: got %v, want 1", v)
	}
	if v, _ := n.Membership(iv, ModeMin, true); v != 0 {
		t.Errorf("non-contained interval with strict: got %v, want 0", v)
	}
	contained := []QueryComponent{IntervalQ(2.5, 3.5), Wildcard()}
	if v, _ := n.Membership(contained, ModeMin, true); v != 1 {
		t.Errorf("contained interval with strict: got %v, want 1", v)
	}
	disjoint := []QueryComponent{IntervalQ(5, 9), Wildcard()}
	if v, _ := n.Membership(disjoint, ModeMin, false); v != 0 {
		t.Errorf("disjoint interval: got %v, want 0", v)
	}
}

func TestMembership_FuzzyInterpolation(t *testing.T) {
	n := boxNode(t)

	// At the mean, well inside bbMin: full membership.
	if v, _ := n.Membership([]QueryComponent{ScalarQ(3), ScalarQ(15)}, ModeFuzzy, false); v != 1 {
		t.Errorf("at mean: got %v, want 1", v)
	}
	// Outside bbMax in one dimension: zero regardless of the others.
	if v, _ := n.Membership([]QueryComponent{ScalarQ(-1), ScalarQ(15)}, ModeFuzzy, false); v != 0 {
		t.Errorf("outside bbMax: got %v, want 0", v)
	}
	// x=1 lies halfway between bbMax lower (0) and bbMin lower (2).
	v, err := n.Membership([]QueryComponent{ScalarQ(1), ScalarQ(15)}, ModeFuzzy, false)
	if err != nil {
		t.Fatalf("fuzzy: %v", err)
	}
	if !approxEq(v, 0.5, floatTol) {
		t.Errorf("halfway point: got %v, want 0.5", v)
	}
	// y=25 lies halfway between bbMin upper (20) and bbMax upper (30):
	// the minimum T-norm takes the weaker dimension.
	v, _ = n.Membership([]QueryComponent{ScalarQ(3), ScalarQ(25)}, ModeFuzzy, false)
	if !approxEq(v, 0.5, floatTol) {
		t.Errorf("upper interpolation: got %v, want 0.5", v)
	}
	v, _ = n.Membership([]QueryComponent{ScalarQ(1), ScalarQ(27)}, ModeFuzzy, false)
	if !approxEq(v, 0.3, floatTol) {
		t.Errorf("min T-norm: got %v, want 0.3", v)
	}
}

func TestMembership_FuzzyPointAtMeanWithIdenticalBoxes(t *testing.T) {
	// Node whose samples pin both boxes to the same interval: membership at
	// the mean must be exactly 1.
	data := [][]float64{{1}, {2}, {3}}
	s := mustStore(t, data, []string{"x"})
	n := newNode(s, s.allSortedRefs(), []Interval{{Min: 1, Max: 3}})
	v, err := n.Membership([]QueryComponent{ScalarQ(2)}, ModeFuzzy, false)
	if err != nil || v != 1 {
		t.Fatalf("got (%v, %v), want (1, nil)", v, err)
	}
}

func TestMembership_FuzzyRejectsIntervals(t *testing.T) {
	n := boxNode(t)
	_, err := n.Membership([]QueryComponent{IntervalQ(1, 2), Wildcard()}, ModeFuzzy, false)
	if err == nil {
		t.Fatal("expected an error for an interval component in fuzzy mode")
	}
}

func TestMembership_WildcardAndNaN(t *testing.T) {
	n := boxNode(t)
	// All wildcards: full membership in every mode.
	q := []QueryComponent{Wildcard(), ScalarQ(math.NaN())}
	for _, mode := range []MembershipMode{ModeMean, ModeMin, ModeMax, ModeFuzzy} {
		v, err := n.Membership(q, mode, false)
		if err != nil || v != 1 {
			t.Errorf("mode %v: got (%v, %v), want (1, nil)", mode, v, err)
		}
	}
}

func TestMembership_EmptyNodeMatchesNothing(t *testing.T) {
	s := mustStore(t, [][]float64{{1, 1}, {2, 2}}, []string{"x", "y"})
	n := newNode(s, nil, nil)
	q := []QueryComponent{ScalarQ(1), ScalarQ(1)}
	for _, mode := range []MembershipMode{ModeMean, ModeMin, ModeFuzzy} {
		v, err := n.Membership(q, mode, false)
		if err != nil {
			t.Fatalf("mode %v: %v", mode, err)
		}
		if v != 0 {
			t.Errorf("mode %v: got %v, want 0 for an empty node", mode, v)
		}
	}
}

func TestMembership_WrongQueryLength(t *testing.T) {
	n := boxNode(t)
	if _, err := n.Membership([]QueryComponent{ScalarQ(1)}, ModeMax, false); err == nil {
		t.Fatal("expected an error for a short query")
	}
}

func TestMembership_RootWithUnboundedBBMax(t *testing.T) {
	// A root node has an infinite maximal box; fuzzy membership outside the
	// minimal box has no outer edge to interpolate against and saturates at 1.
	data := [][]float64{{0}, {10}}
	s := mustStore(t, data, []string{"x"})
	n := rootNode(s)
	v, err := n.Membership([]QueryComponent{ScalarQ(-5)}, ModeFuzzy, false)
	if err != nil {
		t.Fatal(err)
	}
	if v != 1 {
		t.Errorf("got %v, want 1 with no outer constraint", v)
	}
}

func TestPointQuery(t *testing.T) {
	q := PointQuery([]float64{1, math.NaN(), 3})
	if len(q) != 3 {
		t.Fatalf("len = %d, want 3", len(q))
	}
	if q[1].kind != kindWildcard {
		t.Error("NaN component must become a wildcard")
	}
	if q[0].kind != kindScalar || q[0].v != 1 {
		t.Error("scalar component wrong")
	}
}
