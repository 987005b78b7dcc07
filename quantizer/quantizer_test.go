package quantizer

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func gaussianClusters(t *testing.T, k, perCluster, dim int, seed int64) ([]float32, int) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	n := k * perCluster
	x := make([]float32, n*dim)
	for c := 0; c < k; c++ {
		center := make([]float32, dim)
		for d := range center {
			center[d] = float32(c) * 10
		}
		for i := 0; i < perCluster; i++ {
			row := x[(c*perCluster+i)*dim : (c*perCluster+i+1)*dim]
			for d := 0; d < dim; d++ {
				row[d] = center[d] + float32(rng.NormFloat64()*0.01)
			}
		}
	}
	return x, n
}

func TestTrainRecoversWellSeparatedClusters(t *testing.T) {
	const k, perCluster, dim = 4, 50, 8
	x, n := gaussianClusters(t, k, perCluster, dim, 1234)

	cfg := DefaultKMeansConfig(k, dim)
	result, err := Train(cfg, x, n)
	require.NoError(t, err)

	// every point within a cluster should share one assignment
	for c := 0; c < k; c++ {
		first := result.Assignments[c*perCluster]
		for i := 1; i < perCluster; i++ {
			require.Equal(t, first, result.Assignments[c*perCluster+i])
		}
	}
}

func TestSubsampleCapsAtMaxPointsPerCentroid(t *testing.T) {
	const k, dim = 4, 8
	x, n := gaussianClusters(t, k, 100, dim, 1234)

	sub, subN := Subsample(x, n, dim, k, 1234)
	require.Equal(t, MaxPointsPerCentroid*k, subN)
	require.Len(t, sub, subN*dim)
}

func TestSubsampleNoopWhenUnderCap(t *testing.T) {
	const k, dim = 4, 8
	x, n := gaussianClusters(t, k, 2, dim, 1234)

	sub, subN := Subsample(x, n, dim, k, 1234)
	require.Equal(t, n, subN)
	require.Equal(t, len(x), len(sub))
}

func TestSQ8EncodeDecodeRoundTripWithinQuantizationError(t *testing.T) {
	const n, dim = 100, 16
	rng := rand.New(rand.NewSource(1234))
	x := make([]float32, n*dim)
	for i := range x {
		x[i] = float32(rng.Float64())
	}

	q := FitSQ8(x, n, dim)
	row := x[:dim]
	code, err := q.Encode(row)
	require.NoError(t, err)
	require.Len(t, code, dim)

	decoded, err := q.Decode(code)
	require.NoError(t, err)
	for d := 0; d < dim; d++ {
		require.InDelta(t, row[d], decoded[d], 1.0/255.0+1e-3)
	}
}

func TestSQ8ReconstructedNormMatchesDecode(t *testing.T) {
	const n, dim = 50, 8
	rng := rand.New(rand.NewSource(1234))
	x := make([]float32, n*dim)
	for i := range x {
		x[i] = float32(rng.Float64())
	}
	q := FitSQ8(x, n, dim)
	code, err := q.Encode(x[:dim])
	require.NoError(t, err)

	decoded, err := q.Decode(code)
	require.NoError(t, err)
	var want float32
	for _, v := range decoded {
		want += v * v
	}
	require.InDelta(t, want, q.ReconstructedNormSquared(code), 1e-3)
}

func TestPQEncodeAndLUTAgree(t *testing.T) {
	// Each sub-quantizer trains 256 centroids, so FitPQ needs at least
	// 256 training rows.
	const n, dim, m = 256, 16, 4
	x, rows := gaussianClusters(t, 8, 32, dim, 1234)
	require.Equal(t, n, rows)

	pq, err := FitPQ(x, n, dim, m, 1234)
	require.NoError(t, err)

	query := x[:dim]
	code, err := pq.Encode(query)
	require.NoError(t, err)
	require.Len(t, code, m)

	lut, err := pq.BuildLUT(query)
	require.NoError(t, err)
	require.Len(t, lut, m*NCentroidsPerSubQuantizer)

	// The code's own LUT distance should be at most the distance to
	// any other single-byte perturbation of itself in one sub-quantizer.
	baseline := DistanceFromLUT(lut, code, m)
	require.GreaterOrEqual(t, baseline, float32(0))
	for sq := 0; sq < m; sq++ {
		for c := 0; c < NCentroidsPerSubQuantizer; c++ {
			if c == int(code[sq]) {
				continue
			}
			perturbed := append([]byte(nil), code...)
			perturbed[sq] = byte(c)
			require.GreaterOrEqual(t, DistanceFromLUT(lut, perturbed, m), baseline)
		}
	}
}

func TestFitPQRejectsNonDivisibleDim(t *testing.T) {
	x := make([]float32, 10*6)
	_, err := FitPQ(x, 10, 6, 4, 1234)
	require.Error(t, err)
}
