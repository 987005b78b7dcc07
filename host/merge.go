package host

import (
	"golang.org/x/sync/errgroup"

	"github.com/ascendfaiss/vectorengine/device"
)

// ParallelMergeThreshold is the query-count above which cross-device
// merge itself is parallelized over queries, per spec.md §4.7.
const ParallelMergeThreshold = 100

// MergeDevices performs the n×k pairwise cross-device merge of
// spec.md §4.7: perDevice[d][q] is device d's already-translated (user
// ids, float distances) top-k result for query q, ascending by
// preference. The merge walks a pointer into each device's per-query
// result, at each step picking the device whose current pointer is
// best, emitting it, and advancing only that pointer, k times per
// query.
func MergeDevices(perDevice [][][]device.Entry, n, k int, metric device.Metric) [][]device.Entry {
	out := make([][]device.Entry, n)

	mergeOne := func(q int) {
		pointers := make([]int, len(perDevice))
		merged := make([]device.Entry, 0, k)
		for len(merged) < k {
			best := -1
			var bestEntry device.Entry
			for d := range perDevice {
				p := pointers[d]
				if p >= len(perDevice[d][q]) {
					continue
				}
				cand := perDevice[d][q][p]
				if cand.ID == device.SentinelID {
					continue
				}
				if best == -1 || metric.Better(cand.Distance, bestEntry.Distance) {
					best = d
					bestEntry = cand
				}
			}
			if best == -1 {
				merged = append(merged, device.Entry{Distance: metric.SentinelDistance(), ID: device.SentinelID})
				continue
			}
			merged = append(merged, bestEntry)
			pointers[best]++
		}
		out[q] = merged
	}

	if n <= ParallelMergeThreshold {
		for q := 0; q < n; q++ {
			mergeOne(q)
		}
		return out
	}

	var g errgroup.Group
	g.SetLimit(SearchFanoutPool)
	for q := 0; q < n; q++ {
		q := q
		g.Go(func() error {
			mergeOne(q)
			return nil
		})
	}
	_ = g.Wait() // mergeOne never errors; Wait only for completion
	return out
}
