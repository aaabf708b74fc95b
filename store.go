package hyperrect

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Interval is a closed interval [Min, Max] along one dimension.
type Interval struct {
	Min float64
	Max float64
}

// FullInterval returns the unbounded interval (-Inf, +Inf).
func FullInterval() Interval {
	return Interval{Min: math.Inf(-1), Max: math.Inf(1)}
}

// Point returns the degenerate interval [v, v].
func Point(v float64) Interval {
	return Interval{Min: v, Max: v}
}

// contains reports whether v lies inside the closed interval.
func (iv Interval) contains(v float64) bool {
	return v >= iv.Min && v <= iv.Max
}

// Store holds an immutable sample matrix together with per-dimension sorted
// index permutations and global variance scale factors. A Store is shared
// read-only by every tree grown from it and must outlive those trees.
type Store struct {
	data     []float64 // flat row-major sample matrix (n * dims)
	n        int       // number of samples
	dims     int       // dimensionality
	dimNames []string  // one name per dimension

	// sortedIndex[d] is a permutation of sample indices such that
	// Value(sortedIndex[d][i], d) is non-decreasing in i.
	sortedIndex [][]int

	// globalVarScale[d] = 1 / var(column d), or 1 when the column variance
	// is zero. Used to make variance reductions comparable across dimensions.
	globalVarScale []float64
}

// NewStore builds a Store from a sample matrix (rows = samples) and one name
// per dimension. The data is copied; the caller may reuse its slices.
func NewStore(data [][]float64, dimNames []string) (*Store, error) {
	dims := len(dimNames)
	if dims == 0 {
		return nil, fmt.Errorf("hyperrect: at least one dimension name required")
	}
	n := len(data)
	flat := make([]float64, n*dims)
	for i, row := range data {
		if len(row) != dims {
			return nil, fmt.Errorf("hyperrect: sample %d has %d values, want %d", i, len(row), dims)
		}
		copy(flat[i*dims:], row)
	}
	return newStoreFlat(flat, n, dims, dimNames)
}

// NewStoreFlat builds a Store from a flat row-major sample matrix with n rows.
func NewStoreFlat(data []float64, n int, dimNames []string) (*Store, error) {
	dims := len(dimNames)
	if dims == 0 {
		return nil, fmt.Errorf("hyperrect: at least one dimension name required")
	}
	if len(data) != n*dims {
		return nil, fmt.Errorf("hyperrect: data length %d does not match n*dims = %d", len(data), n*dims)
	}
	flat := make([]float64, len(data))
	copy(flat, data)
	return newStoreFlat(flat, n, dims, dimNames)
}

func newStoreFlat(flat []float64, n, dims int, dimNames []string) (*Store, error) {
	seen := make(map[string]bool, dims)
	for _, name := range dimNames {
		if seen[name] {
			return nil, fmt.Errorf("hyperrect: duplicate dimension name %q", name)
		}
		seen[name] = true
	}
	names := make([]string, dims)
	copy(names, dimNames)

	s := &Store{
		data:     flat,
		n:        n,
		dims:     dims,
		dimNames: names,
	}

	// Sort sample indices along each dimension up front; every split scan
	// walks these permutations instead of re-sorting.
	s.sortedIndex = make([][]int, dims)
	for d := 0; d < dims; d++ {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return s.Value(idx[a], d) < s.Value(idx[b], d)
		})
		s.sortedIndex[d] = idx
	}

	// Scale factors are reciprocals of the global per-dimension variance,
	// falling back to 1 for constant columns.
	s.globalVarScale = make([]float64, dims)
	for d := 0; d < dims; d++ {
		v := columnVariance(flat, n, dims, d)
		if v == 0 || math.IsNaN(v) {
			v = 1
		}
		s.globalVarScale[d] = 1 / v
	}
	return s, nil
}

// columnVariance computes the population variance of column d.
func columnVariance(flat []float64, n, dims, d int) float64 {
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += flat[i*dims+d]
	}
	mean := sum / float64(n)
	var m2 float64
	for i := 0; i < n; i++ {
		diff := flat[i*dims+d] - mean
		m2 += diff * diff
	}
	return m2 / float64(n)
}

// NumSamples returns the number of samples in the store.
func (s *Store) NumSamples() int { return s.n }

// NumDims returns the dimensionality of the store.
func (s *Store) NumDims() int { return s.dims }

// DimNames returns the dimension names in index order.
func (s *Store) DimNames() []string {
	names := make([]string, s.dims)
	copy(names, s.dimNames)
	return names
}

// Value returns the value of sample i along dimension d.
func (s *Store) Value(i, d int) float64 {
	return s.data[i*s.dims+d]
}

// Sample returns a copy of sample i.
func (s *Store) Sample(i int) []float64 {
	row := make([]float64, s.dims)
	copy(row, s.data[i*s.dims:(i+1)*s.dims])
	return row
}

// GlobalVarScale returns the variance scale factor for dimension d.
func (s *Store) GlobalVarScale(d int) float64 {
	return s.globalVarScale[d]
}

// DimIndex resolves a symbolic dimension name to its index.
func (s *Store) DimIndex(name string) (int, error) {
	for d, dn := range s.dimNames {
		if dn == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("hyperrect: unknown dimension %q", name)
}

// ResolveDims resolves symbolic dimension names to indices, preserving order.
func (s *Store) ResolveDims(names ...string) ([]int, error) {
	dims := make([]int, len(names))
	for i, name := range names {
		d, err := s.DimIndex(name)
		if err != nil {
			return nil, err
		}
		dims[i] = d
	}
	return dims, nil
}

// checkDims validates that every index refers to an existing dimension.
func (s *Store) checkDims(dims []int) error {
	for _, d := range dims {
		if d < 0 || d >= s.dims {
			return fmt.Errorf("hyperrect: dimension index %d out of range [0, %d)", d, s.dims)
		}
	}
	return nil
}

// allSortedRefs returns fresh copies of the full per-dimension sorted index
// arrays, suitable for handing to a root node.
func (s *Store) allSortedRefs() [][]int {
	refs := make([][]int, s.dims)
	for d := range refs {
		refs[d] = make([]int, s.n)
		copy(refs[d], s.sortedIndex[d])
	}
	return refs
}

// Subset selects a sample subset as per-dimension sorted references. bounds
// filters samples to a hyperrectangle (nil = no filtering; use FullInterval
// for unconstrained dimensions). subsample, when in (0, count), retains that
// many samples chosen uniformly at random using rng. The result can be passed
// to GrowConfig.Subset.
func (s *Store) Subset(bounds []Interval, subsample int, rng *rand.Rand) ([][]int, error) {
	refs := s.allSortedRefs()
	if bounds != nil {
		if len(bounds) != s.dims {
			return nil, fmt.Errorf("hyperrect: bounds has %d intervals, want %d", len(bounds), s.dims)
		}
		keep := make([]bool, s.n)
		for i := 0; i < s.n; i++ {
			keep[i] = true
			for d, iv := range bounds {
				if !iv.contains(s.Value(i, d)) {
					keep[i] = false
					break
				}
			}
		}
		refs = filterRefs(refs, keep)
	}
	count := len(refs[0])
	if subsample > 0 && subsample < count {
		if rng == nil {
			return nil, fmt.Errorf("hyperrect: subsampling requires a non-nil rng")
		}
		keep := make([]bool, s.n)
		for _, i := range rng.Perm(count)[:subsample] {
			keep[refs[0][i]] = true
		}
		refs = filterRefs(refs, keep)
	}
	return refs, nil
}

// filterRefs restricts every per-dimension reference array to the samples
// marked in keep, preserving each array's order.
func filterRefs(refs [][]int, keep []bool) [][]int {
	out := make([][]int, len(refs))
	for d, idx := range refs {
		kept := make([]int, 0, len(idx))
		for _, i := range idx {
			if keep[i] {
				kept = append(kept, i)
			}
		}
		out[d] = kept
	}
	return out
}

// BoxFromMap builds a full-dimensional bounding box from a sparse name→interval
// map; unspecified dimensions are unbounded.
func (s *Store) BoxFromMap(m map[string]Interval) ([]Interval, error) {
	box := make([]Interval, s.dims)
	for d := range box {
		box[d] = FullInterval()
	}
	for name, iv := range m {
		d, err := s.DimIndex(name)
		if err != nil {
			return nil, err
		}
		box[d] = iv
	}
	return box, nil
}
