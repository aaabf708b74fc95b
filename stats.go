package hyperrect

import "math"

// runningMoments holds streaming aggregates over a fixed set of evaluation
// dimensions: the mean vector and either the variance sum (diagonal only) or
// the full covariance sum, depending on which update functions are used.
// Sums are population-style: covSum = cov * count.
type runningMoments struct {
	count  int
	mean   []float64 // len e
	varSum []float64 // len e, diagonal aggregates
	covSum []float64 // len e*e flat row-major, full aggregates (nil in variance-only mode)
}

func newRunningMoments(e int, full bool) *runningMoments {
	m := &runningMoments{
		mean:   make([]float64, e),
		varSum: make([]float64, e),
	}
	if full {
		m.covSum = make([]float64, e*e)
	}
	return m
}

// addVar folds sample x into the mean/varSum aggregates.
// Standard streaming update: each dimension's variance sum grows by
// (x-meanOld)*(x-meanNew).
func (m *runningMoments) addVar(x []float64) {
	m.count++
	n := float64(m.count)
	for d, xd := range x {
		deltaOld := xd - m.mean[d]
		m.mean[d] += deltaOld / n
		m.varSum[d] += deltaOld * (xd - m.mean[d])
	}
}

// removeVar is the symmetric rule for deleting sample x from the aggregates.
func (m *runningMoments) removeVar(x []float64) {
	m.count--
	n := float64(m.count)
	if m.count == 0 {
		for d := range m.mean {
			m.mean[d] = 0
			m.varSum[d] = 0
		}
		return
	}
	for d, xd := range x {
		meanOld := m.mean[d]
		m.mean[d] += (meanOld - xd) / n
		m.varSum[d] -= (xd - meanOld) * (xd - m.mean[d])
	}
}

// addCov folds sample x into the mean/covSum aggregates, generalizing the
// variance update to the full matrix: covSum += outer(x-meanOld, x-meanNew).
func (m *runningMoments) addCov(x []float64) {
	m.count++
	n := float64(m.count)
	e := len(m.mean)
	deltaOld := make([]float64, e)
	for d, xd := range x {
		deltaOld[d] = xd - m.mean[d]
		m.mean[d] += deltaOld[d] / n
	}
	for a := 0; a < e; a++ {
		deltaNewA := x[a] - m.mean[a]
		row := m.covSum[a*e:]
		for b := 0; b < e; b++ {
			row[b] += deltaOld[b] * deltaNewA
		}
	}
}

// removeCov deletes sample x from the mean/covSum aggregates.
func (m *runningMoments) removeCov(x []float64) {
	m.count--
	n := float64(m.count)
	e := len(m.mean)
	if m.count == 0 {
		for d := range m.mean {
			m.mean[d] = 0
		}
		for i := range m.covSum {
			m.covSum[i] = 0
		}
		return
	}
	deltaOld := make([]float64, e)
	for d, xd := range x {
		deltaOld[d] = xd - m.mean[d]
		m.mean[d] += (m.mean[d] - xd) / n
	}
	for a := 0; a < e; a++ {
		deltaNewA := x[a] - m.mean[a]
		row := m.covSum[a*e:]
		for b := 0; b < e; b++ {
			row[b] -= deltaOld[b] * deltaNewA
		}
	}
}

// batchStats is the result of a single pass over a node's samples.
type batchStats struct {
	mean   []float64  // NaN-filled when count == 0
	covSum []float64  // flat dims*dims, zero when count <= 1
	bbMin  []Interval // tight bounding box, NaN-filled when count == 0
}

// computeBatchStats computes mean, covariance sum, and the tight bounding box
// for the samples in idx, in one pass over the data. Accumulation is shifted
// by the first sample to keep the sums well conditioned.
func computeBatchStats(s *Store, idx []int) batchStats {
	dims := s.dims
	st := batchStats{
		mean:   make([]float64, dims),
		covSum: make([]float64, dims*dims),
		bbMin:  make([]Interval, dims),
	}
	n := len(idx)
	if n == 0 {
		for d := 0; d < dims; d++ {
			st.mean[d] = math.NaN()
			st.bbMin[d] = Interval{Min: math.NaN(), Max: math.NaN()}
		}
		return st
	}

	shift := s.data[idx[0]*dims : (idx[0]+1)*dims]
	sum := make([]float64, dims)
	prod := make([]float64, dims*dims)
	centered := make([]float64, dims)
	for d := 0; d < dims; d++ {
		v := shift[d]
		st.bbMin[d] = Interval{Min: v, Max: v}
	}
	for _, i := range idx {
		row := s.data[i*dims : (i+1)*dims]
		for d, v := range row {
			centered[d] = v - shift[d]
			sum[d] += centered[d]
			if v < st.bbMin[d].Min {
				st.bbMin[d].Min = v
			}
			if v > st.bbMin[d].Max {
				st.bbMin[d].Max = v
			}
		}
		for a := 0; a < dims; a++ {
			ca := centered[a]
			prow := prod[a*dims:]
			for b := 0; b < dims; b++ {
				prow[b] += ca * centered[b]
			}
		}
	}
	nf := float64(n)
	for d := 0; d < dims; d++ {
		st.mean[d] = shift[d] + sum[d]/nf
	}
	if n > 1 {
		for a := 0; a < dims; a++ {
			for b := 0; b < dims; b++ {
				st.covSum[a*dims+b] = prod[a*dims+b] - sum[a]*sum[b]/nf
			}
		}
		// Rounding can drive tiny diagonal entries negative; variance sums
		// must stay non-negative.
		for d := 0; d < dims; d++ {
			if st.covSum[d*dims+d] < 0 {
				st.covSum[d*dims+d] = 0
			}
		}
	}
	return st
}

// r2FromCovSum converts a flat e*e covariance sum over count samples into the
// coefficient of determination between evaluation dimensions a and b.
// Returns NaN when either dimension has zero variance.
func r2FromCovSum(covSum []float64, e, count, a, b int) float64 {
	if count < 1 {
		return math.NaN()
	}
	va := covSum[a*e+a]
	vb := covSum[b*e+b]
	if va <= 0 || vb <= 0 {
		return math.NaN()
	}
	c := covSum[a*e+b]
	// The count scaling cancels in the ratio.
	return (c * c) / (va * vb)
}
