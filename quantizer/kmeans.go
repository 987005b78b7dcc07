// Package quantizer implements the host-side training algorithms of
// spec.md §4.7 and §4.9: k-means++ coarse-centroid training, scalar
// quantisation (SQ8) parameter fitting, and product quantisation (PQ)
// sub-quantiser fitting. Nothing here runs on a device — "training
// runs on the host quantiser only; the device is told the final
// centroids" (spec.md §1 Non-goals).
//
// Grounded on the k-means style of
// other_examples/39482f3a_kasuganosora-sqlexec__pkg-resource-memory-ivf_rabitq_index.go.go
// (Lloyd-iteration-with-convergence-check shape), adapted to
// k-means++ seeding and a bounded subsample per spec.md §4.7.
package quantizer

import (
	"math"
	"math/rand"

	"github.com/ascendfaiss/vectorengine/verrors"
)

// MaxPointsPerCentroid bounds the training subsample size to roughly
// 60 * K1 vectors, per spec.md §4.7.
const MaxPointsPerCentroid = 60

// KMeansConfig configures one training run.
type KMeansConfig struct {
	K             int // number of centroids (K1 for coarse, 256 per PQ sub-quantizer)
	Dim           int
	MaxIterations int
	Tolerance     float32
	Seed          int64
}

// DefaultKMeansConfig returns a config for k centroids of width dim
// with the teacher-observed defaults (20 iterations, 1e-4 tolerance)
// and seed 1234.
func DefaultKMeansConfig(k, dim int) KMeansConfig {
	return KMeansConfig{K: k, Dim: dim, MaxIterations: 20, Tolerance: 1e-4, Seed: 1234}
}

// KMeansResult holds the trained centroids, flattened row-major
// (K × Dim), plus the final per-point assignment.
type KMeansResult struct {
	Centroids   []float32 // K * Dim
	Assignments []int
}

// Subsample selects at most MaxPointsPerCentroid*k rows (row length
// dim) from x (n rows) using reservoir-free uniform sampling without
// replacement, deterministic given seed. If n already fits the cap,
// x is returned unchanged (no copy).
func Subsample(x []float32, n, dim, k int, seed int64) ([]float32, int) {
	cap := MaxPointsPerCentroid * k
	if n <= cap {
		return x, n
	}
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)[:cap]
	out := make([]float32, cap*dim)
	for i, row := range perm {
		copy(out[i*dim:(i+1)*dim], x[row*dim:(row+1)*dim])
	}
	return out, cap
}

func l2sq(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// kmeansPlusPlusInit seeds k centroids from n rows of dim width using
// k-means++: the first centroid uniform at random, each subsequent
// centroid sampled with probability proportional to its squared
// distance to the nearest already-chosen centroid.
func kmeansPlusPlusInit(x []float32, n, dim, k int, rng *rand.Rand) []float32 {
	centroids := make([]float32, k*dim)
	first := rng.Intn(n)
	copy(centroids[0:dim], x[first*dim:(first+1)*dim])

	minDist := make([]float32, n)
	for i := range minDist {
		minDist[i] = l2sq(x[i*dim:(i+1)*dim], centroids[0:dim])
	}

	for c := 1; c < k; c++ {
		var total float64
		for _, d := range minDist {
			total += float64(d)
		}
		target := rng.Float64() * total
		chosen := n - 1
		var running float64
		for i, d := range minDist {
			running += float64(d)
			if running >= target {
				chosen = i
				break
			}
		}
		copy(centroids[c*dim:(c+1)*dim], x[chosen*dim:(chosen+1)*dim])

		for i := 0; i < n; i++ {
			d := l2sq(x[i*dim:(i+1)*dim], centroids[c*dim:(c+1)*dim])
			if d < minDist[i] {
				minDist[i] = d
			}
		}
	}
	return centroids
}

// Train runs k-means++ seeding followed by Lloyd iteration to
// convergence or MaxIterations, on n rows of width cfg.Dim.
func Train(cfg KMeansConfig, x []float32, n int) (*KMeansResult, error) {
	if n < cfg.K {
		return nil, verrors.New(verrors.InvalidArgument, "quantizer.Train",
			"fewer training points than requested centroids")
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	centroids := kmeansPlusPlusInit(x, n, cfg.Dim, cfg.K, rng)
	assignments := make([]int, n)

	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = 20
	}
	tolerance := cfg.Tolerance
	if tolerance <= 0 {
		tolerance = 1e-4
	}

	counts := make([]int, cfg.K)
	sums := make([]float32, cfg.K*cfg.Dim)

	for iter := 0; iter < maxIter; iter++ {
		for i := range counts {
			counts[i] = 0
		}
		for i := range sums {
			sums[i] = 0
		}

		changed := false
		for i := 0; i < n; i++ {
			row := x[i*cfg.Dim : (i+1)*cfg.Dim]
			best := 0
			bestDist := float32(math.MaxFloat32)
			for c := 0; c < cfg.K; c++ {
				d := l2sq(row, centroids[c*cfg.Dim:(c+1)*cfg.Dim])
				if d < bestDist {
					bestDist = d
					best = c
				}
			}
			if iter == 0 || assignments[i] != best {
				changed = true
			}
			assignments[i] = best
			counts[best]++
			for d := 0; d < cfg.Dim; d++ {
				sums[best*cfg.Dim+d] += row[d]
			}
		}

		maxShift := float32(0)
		for c := 0; c < cfg.K; c++ {
			if counts[c] == 0 {
				continue // keep stale centroid; caller may re-seed empty clusters if desired
			}
			newCentroid := make([]float32, cfg.Dim)
			inv := 1.0 / float32(counts[c])
			for d := 0; d < cfg.Dim; d++ {
				newCentroid[d] = sums[c*cfg.Dim+d] * inv
			}
			shift := l2sq(centroids[c*cfg.Dim:(c+1)*cfg.Dim], newCentroid)
			if shift > maxShift {
				maxShift = shift
			}
			copy(centroids[c*cfg.Dim:(c+1)*cfg.Dim], newCentroid)
		}

		if !changed || maxShift <= tolerance {
			break
		}
	}

	return &KMeansResult{Centroids: centroids, Assignments: assignments}, nil
}
