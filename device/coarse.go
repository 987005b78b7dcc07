package device

import (
	"sort"

	"github.com/ascendfaiss/vectorengine/kernel"
)

// CoarseScan computes the (n × k1) L1 distance tensor between n
// queries and k1 coarse centroids, both row-major of width dim, per
// spec.md §4.6 step 1. "L1" here names the first-level (coarse)
// partitioning scan, not the L1-norm metric — the coarse distance
// itself still uses the index's configured metric.
func CoarseScan(queries []float32, n int, centroids []float32, k1, dim int, metric Metric) [][]float32 {
	out := make([][]float32, n)
	for q := 0; q < n; q++ {
		row := queries[q*dim : (q+1)*dim]
		dists := make([]float32, k1)
		for c := 0; c < k1; c++ {
			cen := centroids[c*dim : (c+1)*dim]
			dists[c] = distance(row, cen, metric)
		}
		out[q] = dists
	}
	return out
}

// distance computes the L2-squared or inner-product distance between
// two equal-width rows, routed through kernel's generic Sub/Mul/
// ReduceSum so the coarse scan exercises the same lane-generic compute
// primitives package kernel exists to provide.
func distance(a, b []float32, metric Metric) float32 {
	va := kernel.Load(a)
	vb := kernel.Load(b)
	if metric == MetricIP {
		prod := kernel.Mul(va, vb)
		return float32(kernel.ReduceSum(prod))
	}
	diff := kernel.Sub(va, vb)
	sq := kernel.Mul(diff, diff)
	return float32(kernel.ReduceSum(sq))
}

// SelectProbes returns, per query, the list ids of the nprobe best
// coarse centroids (smallest distance for L2, largest for IP),
// implemented as a full sort since k1 is small relative to a full
// per-list scan; ties break toward the lower list id for determinism.
func SelectProbes(coarse [][]float32, nprobe int, metric Metric) [][]int {
	out := make([][]int, len(coarse))
	for q, dists := range coarse {
		ids := make([]int, len(dists))
		for i := range ids {
			ids[i] = i
		}
		sort.Slice(ids, func(i, j int) bool {
			di, dj := dists[ids[i]], dists[ids[j]]
			if di != dj {
				return metric.Better(di, dj)
			}
			return ids[i] < ids[j]
		})
		if nprobe < len(ids) {
			ids = ids[:nprobe]
		}
		probe := make([]int, len(ids))
		copy(probe, ids)
		out[q] = probe
	}
	return out
}

// Residual computes query − centroid for one (query, probe) pair, for
// indexes built with residual quantisation (spec.md §4.6 step 2).
func Residual(query, centroid []float32) []float32 {
	out := make([]float32, len(query))
	for i := range query {
		out[i] = query[i] - centroid[i]
	}
	return out
}
