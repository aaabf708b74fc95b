package hyperrect

import (
	"fmt"
	"math"
)

// MembershipMode selects how a query is tested against a node.
type MembershipMode int

const (
	// ModeMean tests scalar components for equality with the node mean and
	// interval components for containing the mean.
	ModeMean MembershipMode = iota
	// ModeMin tests components against the minimal (tight) bounding box.
	ModeMin
	// ModeMax tests components against the maximal (inherited) bounding box.
	ModeMax
	// ModeFuzzy interpolates scalar components between the two bounding
	// boxes, aggregating across dimensions with the minimum T-norm.
	// Interval components are not supported in this mode.
	ModeFuzzy
)

func (m MembershipMode) String() string {
	switch m {
	case ModeMean:
		return "mean"
	case ModeMin:
		return "min"
	case ModeMax:
		return "max"
	case ModeFuzzy:
		return "fuzzy"
	default:
		return fmt.Sprintf("MembershipMode(%d)", int(m))
	}
}

// queryKind tags the variants of a query component.
type queryKind int

const (
	kindWildcard queryKind = iota
	kindScalar
	kindInterval
)

// QueryComponent is one dimension of a membership query: a wildcard (the
// dimension is ignored), a scalar, or a closed interval. The zero value is a
// wildcard.
type QueryComponent struct {
	kind queryKind
	v    float64
	iv   Interval
}

// Wildcard returns a query component that matches any value.
func Wildcard() QueryComponent {
	return QueryComponent{kind: kindWildcard}
}

// ScalarQ returns a scalar query component. NaN is treated as a wildcard.
func ScalarQ(v float64) QueryComponent {
	if math.IsNaN(v) {
		return Wildcard()
	}
	return QueryComponent{kind: kindScalar, v: v}
}

// IntervalQ returns a closed-interval query component.
func IntervalQ(lo, hi float64) QueryComponent {
	return QueryComponent{kind: kindInterval, iv: Interval{Min: lo, Max: hi}}
}

// PointQuery converts a full sample vector into a scalar query.
func PointQuery(x []float64) []QueryComponent {
	q := make([]QueryComponent, len(x))
	for i, v := range x {
		q[i] = ScalarQ(v)
	}
	return q
}

// Membership evaluates the degree to which the query lies in this node.
// Boolean modes (mean/min/max) return 0 or 1; fuzzy mode returns a value in
// [0, 1]. strict applies only to interval components in min/max mode: when
// set, the interval must be contained in the bounding box rather than merely
// intersect it. An empty node matches nothing.
func (n *Node) Membership(q []QueryComponent, mode MembershipMode, strict bool) (float64, error) {
	if len(q) != n.store.dims {
		return 0, fmt.Errorf("hyperrect: query has %d components, want %d", len(q), n.store.dims)
	}
	total := 1.0
	for d, c := range q {
		var v float64
		var err error
		switch c.kind {
		case kindWildcard:
			// Marginalized dimension: full membership.
			v = 1
		case kindScalar:
			v, err = n.scalarMembership(d, c.v, mode)
		case kindInterval:
			v, err = n.intervalMembership(d, c.iv, mode, strict)
		}
		if err != nil {
			return 0, err
		}
		if v == 0 {
			return 0, nil
		}
		// Minimum T-norm: the weakest dimension bounds the total.
		if v < total {
			total = v
		}
	}
	return total, nil
}

func (n *Node) scalarMembership(d int, x float64, mode MembershipMode) (float64, error) {
	switch mode {
	case ModeMean:
		if x == n.mean[d] {
			return 1, nil
		}
		return 0, nil
	case ModeMin, ModeMax:
		box := n.bbMin[d]
		if mode == ModeMax {
			box = n.bbMax[d]
		}
		if isEmptyInterval(box) || !box.contains(x) {
			return 0, nil
		}
		return 1, nil
	case ModeFuzzy:
		return n.fuzzyMembership(d, x), nil
	default:
		return 0, fmt.Errorf("hyperrect: invalid membership mode %v", mode)
	}
}

// fuzzyMembership interpolates x between the maximal and minimal boxes along
// dimension d: 0 outside bbMax, 1 inside bbMin, linear in between.
func (n *Node) fuzzyMembership(d int, x float64) float64 {
	outer := n.bbMax[d]
	inner := n.bbMin[d]
	if !outer.contains(x) {
		return 0
	}
	if isEmptyInterval(inner) {
		// Empty region: nothing is a member.
		return 0
	}
	if inner.contains(x) {
		return 1
	}
	if x < inner.Min {
		if math.IsInf(outer.Min, -1) {
			// No outer constraint on this side; the interpolation limit is 1.
			return 1
		}
		// Between the lower edges of the two boxes.
		return (x - outer.Min) / (inner.Min - outer.Min)
	}
	if math.IsInf(outer.Max, 1) {
		return 1
	}
	// Between the upper edges.
	return (outer.Max - x) / (outer.Max - inner.Max)
}

func (n *Node) intervalMembership(d int, iv Interval, mode MembershipMode, strict bool) (float64, error) {
	switch mode {
	case ModeMean:
		if iv.contains(n.mean[d]) {
			return 1, nil
		}
		return 0, nil
	case ModeMin, ModeMax:
		box := n.bbMin[d]
		if mode == ModeMax {
			box = n.bbMax[d]
		}
		if isEmptyInterval(box) {
			return 0, nil
		}
		if strict {
			// Query interval must be contained in the box.
			if iv.Min >= box.Min && iv.Max <= box.Max {
				return 1, nil
			}
			return 0, nil
		}
		// Intersection test.
		if iv.Max >= box.Min && iv.Min <= box.Max {
			return 1, nil
		}
		return 0, nil
	case ModeFuzzy:
		return 0, fmt.Errorf("hyperrect: interval query components are not supported in fuzzy mode")
	default:
		return 0, fmt.Errorf("hyperrect: invalid membership mode %v", mode)
	}
}
