package hyperrect

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// StatKind enumerates the per-dimension statistics a node can report.
type StatKind int

const (
	// StatMean is the region mean.
	StatMean StatKind = iota
	// StatStd is the population standard deviation.
	StatStd
	// StatMedian is the sample median.
	StatMedian
	// StatIQR is the interquartile range (Q3 - Q1).
	StatIQR
)

func (k StatKind) String() string {
	switch k {
	case StatMean:
		return "mean"
	case StatStd:
		return "std"
	case StatMedian:
		return "median"
	case StatIQR:
		return "iqr"
	default:
		return fmt.Sprintf("StatKind(%d)", int(k))
	}
}

// Stat returns the requested statistic for one dimension. Mean and std come
// from the node's cached moments (NaN/0 for empty regions); median and IQR are
// computed from the region's samples and fail on empty regions.
func (n *Node) Stat(kind StatKind, dim int) (float64, error) {
	if err := n.store.checkDims([]int{dim}); err != nil {
		return 0, err
	}
	switch kind {
	case StatMean:
		return n.mean[dim], nil
	case StatStd:
		return math.Sqrt(n.Cov(dim, dim)), nil
	case StatMedian:
		_, q2, _, err := n.Quartiles(dim)
		return q2, err
	case StatIQR:
		q1, _, q3, err := n.Quartiles(dim)
		return q3 - q1, err
	default:
		return 0, fmt.Errorf("hyperrect: invalid statistic kind %v", kind)
	}
}

// CovStd returns the square root of the covariance between two dimensions,
// the pairwise analogue of StatStd. NaN when the covariance is negative.
func (n *Node) CovStd(a, b int) (float64, error) {
	if err := n.store.checkDims([]int{a, b}); err != nil {
		return 0, err
	}
	return math.Sqrt(n.Cov(a, b)), nil
}

// Quartiles returns the lower quartile, median, and upper quartile of the
// region's samples along one dimension, with linear interpolation between
// order statistics.
func (n *Node) Quartiles(dim int) (q1, q2, q3 float64, err error) {
	if err := n.store.checkDims([]int{dim}); err != nil {
		return 0, 0, 0, err
	}
	if n.count == 0 {
		return 0, 0, 0, fmt.Errorf("hyperrect: quartiles undefined for an empty region")
	}
	// refs[dim] is already sorted by value along dim.
	vals := make([]float64, n.count)
	for i, idx := range n.refs[dim] {
		vals[i] = n.store.Value(idx, dim)
	}
	q1 = stat.Quantile(0.25, stat.LinInterp, vals, nil)
	q2 = stat.Quantile(0.5, stat.LinInterp, vals, nil)
	q3 = stat.Quantile(0.75, stat.LinInterp, vals, nil)
	return q1, q2, q3, nil
}
