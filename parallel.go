package hyperrect

import "sync"

// bestCandidateParallel evaluates eval for every candidate splitting dimension
// and reduces to the single best candidate. Dimensions are split into
// contiguous ranges across numWorkers goroutines; since each dimension's
// incremental pass is self-contained and workers write disjoint result slots,
// no synchronization is needed beyond the final wait.
//
// The reduction is deterministic regardless of evaluation order: candidates
// are merged in dimension order with the total ordering of
// splitCandidate.better, so the result is identical to a sequential scan.
func bestCandidateParallel(dims []int, eval func(dim int) splitCandidate, numWorkers int) splitCandidate {
	results := make([]splitCandidate, len(dims))

	if numWorkers <= 1 || len(dims) <= 1 {
		for i, d := range dims {
			results[i] = eval(d)
		}
	} else {
		var wg sync.WaitGroup
		dimsPerWorker := (len(dims) + numWorkers - 1) / numWorkers
		for w := 0; w < numWorkers; w++ {
			start := w * dimsPerWorker
			end := start + dimsPerWorker
			if end > len(dims) {
				end = len(dims)
			}
			if start >= len(dims) {
				break
			}
			wg.Add(1)
			go func(start, end int) {
				defer wg.Done()
				for i := start; i < end; i++ {
					results[i] = eval(dims[i])
				}
			}(start, end)
		}
		wg.Wait()
	}

	var best splitCandidate
	for _, c := range results {
		if c.better(best) {
			best = c
		}
	}
	return best
}
