package hyperrect

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Whitening selects the standard deviation used to whiten samples before
// principal component analysis.
type Whitening int

const (
	// WhitenLocal whitens by the region's own per-dimension deviation.
	WhitenLocal Whitening = iota
	// WhitenGlobal whitens by the dataset-wide per-dimension deviation.
	WhitenGlobal
)

// PCAResult holds a principal component decomposition of a node's samples.
type PCAResult struct {
	// Dims are the dimensions the decomposition was computed over.
	Dims []int

	// Components holds the principal axes as a flat k×len(Dims) matrix in
	// descending variance order, scaled back by the whitening deviations so
	// they live in the original data units.
	Components []float64

	// ExplainedVarianceRatio is the fraction of whitened variance captured
	// by each component; sums to 1 for non-degenerate data.
	ExplainedVarianceRatio []float64
}

// PCA performs principal component analysis on the region's samples,
// whitening beforehand so that dimensions of large scale do not dominate.
// dims nil means all dimensions; nComponents <= 0 keeps every component.
// Fails for regions with fewer than two samples.
func (n *Node) PCA(dims []int, nComponents int, whiten Whitening) (*PCAResult, error) {
	if dims == nil {
		dims = make([]int, n.store.dims)
		for d := range dims {
			dims[d] = d
		}
	}
	if err := n.store.checkDims(dims); err != nil {
		return nil, err
	}
	if n.count < 2 {
		return nil, fmt.Errorf("hyperrect: PCA requires at least 2 samples, region has %d", n.count)
	}
	k := len(dims)

	// Whitening deviations: local from the region's own covariance, global
	// from the store's variance scale. Constant dimensions whiten by 1.
	std := make([]float64, k)
	for j, d := range dims {
		var v float64
		if whiten == WhitenGlobal {
			v = 1 / math.Sqrt(n.store.globalVarScale[d])
		} else {
			v = math.Sqrt(n.Cov(d, d))
		}
		if v == 0 {
			v = 1
		}
		std[j] = v
	}

	// Covariance of the whitened samples: cov(a,b) / (std_a * std_b).
	cov := make([]float64, k*k)
	for a, da := range dims {
		for b, db := range dims {
			cov[a*k+b] = n.Cov(da, db) / (std[a] * std[b])
		}
	}
	var eig mat.EigenSym
	if !eig.Factorize(mat.NewSymDense(k, cov), true) {
		return nil, fmt.Errorf("hyperrect: eigendecomposition failed")
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	if nComponents <= 0 || nComponents > k {
		nComponents = k
	}
	total := floats.Sum(vals)

	res := &PCAResult{
		Dims:                   append([]int(nil), dims...),
		Components:             make([]float64, nComponents*k),
		ExplainedVarianceRatio: make([]float64, nComponents),
	}
	// EigenSym orders eigenvalues ascending; emit descending, scaling each
	// axis back by the whitening deviations.
	for i := 0; i < nComponents; i++ {
		src := k - 1 - i
		if total > 0 {
			res.ExplainedVarianceRatio[i] = vals[src] / total
		}
		for j := 0; j < k; j++ {
			res.Components[i*k+j] = vecs.At(j, src) * std[j]
		}
	}
	return res, nil
}
