package hyperrect

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// splitCandidate is the outcome of evaluating one candidate splitting
// dimension: the quality-maximizing split point and its score. ok is false
// when the dimension admits no split at all.
type splitCandidate struct {
	dim      int // global splitting dimension
	splitIdx int // left child = first splitIdx samples in dim's sorted order
	quality  float64
	ok       bool

	// One-sided correlation mode only: the winning child and the winning
	// pair of evaluation dimensions (indices into the evalDims slice).
	side         Side
	pairA, pairB int
}

// better reports whether c should replace cur in the max-quality reduction.
// The ordering is total and independent of evaluation order: higher quality
// first, ties broken by lower dimension index, then lower split index.
func (c splitCandidate) better(cur splitCandidate) bool {
	if !c.ok {
		return false
	}
	if !cur.ok {
		return true
	}
	if c.quality != cur.quality {
		return c.quality > cur.quality
	}
	if c.dim != cur.dim {
		return c.dim < cur.dim
	}
	return c.splitIdx < cur.splitIdx
}

// gatherEvalData returns the region's samples restricted to evalDims, ordered
// by the region's dim-d sorted references, as a flat count*e matrix.
func (n *Node) gatherEvalData(d int, evalDims []int) []float64 {
	e := len(evalDims)
	out := make([]float64, n.count*e)
	for i, idx := range n.refs[d] {
		row := n.store.data[idx*n.store.dims:]
		for j, ed := range evalDims {
			out[i*e+j] = row[ed]
		}
	}
	return out
}

// admissibleBoundary reports whether splitting dim between positions i-1 and i
// yields a usable threshold. Equal adjacent values would place the midpoint
// exactly on a sample, so such split points are skipped.
func (n *Node) admissibleBoundary(d, i int) bool {
	return n.value(i-1, d) != n.value(i, d)
}

// evalSplitsVariance scans every split point along dim in one incremental
// pass, scoring each by the total scaled variance reduction across evalDims.
// Running left/right aggregates advance by exactly one sample per step; no
// statistics are ever recomputed from scratch.
func evalSplitsVariance(n *Node, dim int, evalDims []int) splitCandidate {
	best := splitCandidate{dim: dim}
	if n.varSum[dim] == 0 {
		return best
	}
	e := len(evalDims)
	evalData := n.gatherEvalData(dim, evalDims)

	scale := make([]float64, e)
	parentVarSum := make([]float64, e)
	for j, ed := range evalDims {
		scale[j] = n.store.globalVarScale[ed]
		parentVarSum[j] = n.varSum[ed]
	}

	left := newRunningMoments(e, false)
	right := newRunningMoments(e, false)
	right.count = n.count
	for j, ed := range evalDims {
		right.mean[j] = n.mean[ed]
		right.varSum[j] = n.varSum[ed]
	}

	for i := 1; i < n.count; i++ {
		x := evalData[(i-1)*e : i*e]
		left.addVar(x)
		right.removeVar(x)
		if !n.admissibleBoundary(dim, i) {
			continue
		}
		var q float64
		for j := range parentVarSum {
			q += (parentVarSum[j] - left.varSum[j] - right.varSum[j]) * scale[j]
		}
		c := splitCandidate{dim: dim, splitIdx: i, quality: q, ok: true}
		if c.better(best) {
			best = c
		}
	}
	return best
}

// popScale is the population-rewarding factor log2(count-1)^popPower.
// Undefined (NaN) for populations below 2.
func popScale(count int, popPower float64) float64 {
	if count < 2 {
		return math.NaN()
	}
	return math.Pow(math.Log2(float64(count-1)), popPower)
}

// evalSplitsOneSidedCorr scans every split point along dim, scoring each
// (child side, evaluation-dimension pair) by R² scaled by the population
// factor, minus the unsplit parent's score for the same pair. The single best
// combination wins; only that child is later materialized.
func evalSplitsOneSidedCorr(n *Node, dim int, evalDims []int, popPower float64) splitCandidate {
	best := splitCandidate{dim: dim}
	if n.varSum[dim] == 0 {
		return best
	}
	e := len(evalDims)
	dims := n.store.dims
	evalData := n.gatherEvalData(dim, evalDims)

	// Parent baseline per pair: the score a pair achieves with no split.
	parentScale := popScale(n.count, popPower)
	baseline := make([]float64, e*e)
	parentCovSum := make([]float64, e*e)
	for a, da := range evalDims {
		for b, db := range evalDims {
			parentCovSum[a*e+b] = n.covSum[da*dims+db]
		}
	}
	for a := 0; a < e; a++ {
		for b := a + 1; b < e; b++ {
			baseline[a*e+b] = r2FromCovSum(parentCovSum, e, n.count, a, b) * parentScale
		}
	}

	left := newRunningMoments(e, true)
	right := newRunningMoments(e, true)
	right.count = n.count
	for j, ed := range evalDims {
		right.mean[j] = n.mean[ed]
	}
	copy(right.covSum, parentCovSum)

	score := func(m *runningMoments, i, a, b int, side Side) splitCandidate {
		r2 := r2FromCovSum(m.covSum, e, m.count, a, b)
		q := r2*popScale(m.count, popPower) - baseline[a*e+b]
		return splitCandidate{
			dim: dim, splitIdx: i, quality: q, ok: !math.IsNaN(q),
			side: side, pairA: a, pairB: b,
		}
	}

	for i := 1; i < n.count; i++ {
		x := evalData[(i-1)*e : i*e]
		left.addCov(x)
		right.removeCov(x)
		if !n.admissibleBoundary(dim, i) {
			continue
		}
		for a := 0; a < e; a++ {
			for b := a + 1; b < e; b++ {
				if c := score(left, i, a, b, SideLeft); c.better(best) {
					best = c
				}
				if c := score(right, i, a, b, SideRight); c.better(best) {
					best = c
				}
			}
		}
	}
	return best
}

// ChildSpectrum is the eigendecomposition of one prospective child's scaled
// covariance over the evaluation dimensions.
type ChildSpectrum struct {
	SplitIndex int  // left child = first SplitIndex samples along the dimension
	Side       Side // SideLeft or SideRight
	Count      int  // child population

	// Eigenvalues in descending order, with Eigenvectors[i*e : (i+1)*e] the
	// unit eigenvector for Eigenvalues[i] (e = number of evaluation dims).
	Eigenvalues  []float64
	Eigenvectors []float64
}

// DimSpectra collects the child spectra for every admissible split point
// along one candidate dimension.
type DimSpectra struct {
	Dim     int
	Spectra []ChildSpectrum
}

// evalSplitsSpectra runs the incremental covariance pass along dim and
// eigendecomposes each prospective child's covariance. This is the two-sided
// correlation path: it produces analysis output only and never commits to a
// split.
func evalSplitsSpectra(n *Node, dim int, evalDims []int) DimSpectra {
	out := DimSpectra{Dim: dim}
	if n.varSum[dim] == 0 {
		return out
	}
	e := len(evalDims)
	dims := n.store.dims
	evalData := n.gatherEvalData(dim, evalDims)

	left := newRunningMoments(e, true)
	right := newRunningMoments(e, true)
	right.count = n.count
	for j, ed := range evalDims {
		right.mean[j] = n.mean[ed]
		for k, ek := range evalDims {
			right.covSum[j*e+k] = n.covSum[ed*dims+ek]
		}
	}

	for i := 1; i < n.count; i++ {
		x := evalData[(i-1)*e : i*e]
		left.addCov(x)
		right.removeCov(x)
		if !n.admissibleBoundary(dim, i) {
			continue
		}
		for _, m := range []*runningMoments{left, right} {
			side := SideLeft
			if m == right {
				side = SideRight
			}
			sp, ok := spectrumFromCovSum(m.covSum, e, m.count)
			if !ok {
				continue
			}
			sp.SplitIndex = i
			sp.Side = side
			out.Spectra = append(out.Spectra, sp)
		}
	}
	return out
}

// spectrumFromCovSum eigendecomposes covSum/count. ok is false when the
// covariance is undefined (count < 2) or the factorization fails.
func spectrumFromCovSum(covSum []float64, e, count int) (ChildSpectrum, bool) {
	if count < 2 {
		return ChildSpectrum{}, false
	}
	cov := make([]float64, e*e)
	nf := float64(count)
	for i, v := range covSum {
		if math.IsNaN(v) {
			return ChildSpectrum{}, false
		}
		cov[i] = v / nf
	}
	// SymDense reads the upper triangle; covSum is symmetric by construction.
	var eig mat.EigenSym
	if !eig.Factorize(mat.NewSymDense(e, cov), true) {
		return ChildSpectrum{}, false
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// EigenSym returns ascending eigenvalues; flip to descending.
	sp := ChildSpectrum{
		Count:        count,
		Eigenvalues:  make([]float64, e),
		Eigenvectors: make([]float64, e*e),
	}
	for i := 0; i < e; i++ {
		src := e - 1 - i
		sp.Eigenvalues[i] = vals[src]
		for j := 0; j < e; j++ {
			sp.Eigenvectors[i*e+j] = vecs.At(j, src)
		}
	}
	return sp, true
}

// AnalyzeSplitSpectra evaluates every candidate split along splitDims and
// returns, per dimension, the eigendecomposition of each prospective child's
// covariance over evalDims. The tree is not mutated; this is the analysis-only
// counterpart of the committing split modes. Dimensions with zero variance in
// the node are omitted.
func AnalyzeSplitSpectra(n *Node, splitDims, evalDims []int) ([]DimSpectra, error) {
	if err := n.store.checkDims(splitDims); err != nil {
		return nil, err
	}
	if err := n.store.checkDims(evalDims); err != nil {
		return nil, err
	}
	if len(evalDims) < 2 {
		return nil, fmt.Errorf("hyperrect: correlation scoring requires at least 2 evaluation dimensions, got %d", len(evalDims))
	}
	var out []DimSpectra
	for _, d := range splitDims {
		if n.varSum[d] == 0 {
			continue
		}
		out = append(out, evalSplitsSpectra(n, d, evalDims))
	}
	return out, nil
}

// greedySplit finds the best admissible split across splitDims and applies it.
// Returns false when no split strictly improves quality. With oneSidedCorr the
// scoring is population-scaled R² and only the winning child is materialized;
// otherwise scoring is plain scaled variance reduction. The two-sided
// correlation path never commits a split and lives in AnalyzeSplitSpectra.
func greedySplit(n *Node, splitDims, evalDims []int, oneSidedCorr bool, popPower float64, workers int) bool {
	if n.count < 2 {
		return false
	}
	eval := func(dim int) splitCandidate {
		if oneSidedCorr {
			return evalSplitsOneSidedCorr(n, dim, evalDims, popPower)
		}
		return evalSplitsVariance(n, dim, evalDims)
	}
	best := bestCandidateParallel(splitDims, eval, workers)
	if !best.ok || best.quality <= 0 {
		return false
	}
	grow := SideBoth
	if oneSidedCorr {
		grow = best.side
	}
	n.applySplit(best.dim, best.splitIdx, grow)
	return true
}
