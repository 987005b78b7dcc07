package index

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ascendfaiss/vectorengine/device"
	"github.com/ascendfaiss/vectorengine/transform"
)

func clusteredVectors(nPerCluster, k1, dim int, seed int64) ([]float32, int) {
	rng := rand.New(rand.NewSource(seed))
	n := nPerCluster * k1
	x := make([]float32, n*dim)
	row := 0
	for c := 0; c < k1; c++ {
		center := float32(c) * 20
		for i := 0; i < nPerCluster; i++ {
			for d := 0; d < dim; d++ {
				x[row*dim+d] = center + float32(rng.NormFloat64())*0.1
			}
			row++
		}
	}
	return x, n
}

func idsFrom(n int) []uint32 {
	ids := make([]uint32, n)
	for i := range ids {
		ids[i] = uint32(i + 1)
	}
	return ids
}

func TestAddWithoutIDsAssignsSequentialIDsFromNTotal(t *testing.T) {
	const dim = 4
	idx := NewFlat(dim, device.MetricL2, 2)
	first := []float32{1, 1, 1, 1, 2, 2, 2, 2}
	require.NoError(t, idx.Add(first, 2))
	require.Equal(t, 2, idx.NTotal())

	second := []float32{3, 3, 3, 3}
	require.NoError(t, idx.Add(second, 1))
	require.Equal(t, 3, idx.NTotal())

	results, err := idx.Search(context.Background(), append(first, second...), 3, 1)
	require.NoError(t, err)
	require.Equal(t, uint32(0), results[0][0].ID)
	require.Equal(t, uint32(1), results[1][0].ID)
	require.Equal(t, uint32(2), results[2][0].ID)
}

func TestFlatIndexSelfQueryFindsExactMatch(t *testing.T) {
	const dim = 4
	idx := NewFlat(dim, device.MetricL2, 2)
	vectors := []float32{
		1, 2, 3, 4,
		10, 10, 10, 10,
		-5, 0, 5, 0,
	}
	ids := []uint32{100, 200, 300}
	require.NoError(t, idx.AddWithIDs(ids, vectors, 3))
	require.Equal(t, 3, idx.NTotal())

	results, err := idx.Search(context.Background(), vectors, 3, 1)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, ids[0], results[0][0].ID)
	require.Equal(t, ids[1], results[1][0].ID)
	require.Equal(t, ids[2], results[2][0].ID)
}

func TestIVFFlatTrainAddSearchRoutesToNearestCluster(t *testing.T) {
	const dim, k1, nprobe = 4, 4, 2
	x, n := clusteredVectors(20, k1, dim, 7)

	idx := NewIVFFlat(dim, k1, nprobe, device.MetricL2, 2)
	require.NoError(t, idx.Train(x, n, 42))
	require.True(t, idx.Trained())

	ids := idsFrom(n)
	require.NoError(t, idx.AddWithIDs(ids, x, n))
	require.Equal(t, n, idx.NTotal())

	query := x[0:dim] // first row of cluster 0
	results, err := idx.Search(context.Background(), query, 1, 5)
	require.NoError(t, err)
	require.Len(t, results[0], 5)
	// the nearest neighbors of a cluster-0 point should all carry
	// cluster-0 ids (rows 1..20), since clusters are 20 units apart
	// against a 0.1-scale spread.
	for _, e := range results[0] {
		require.LessOrEqual(t, e.ID, uint32(20))
	}
}

func TestIVFSQ8SearchFindsSelfAmongApproximatedNeighbors(t *testing.T) {
	const dim, k1, nprobe = 8, 3, 3
	x, n := clusteredVectors(15, k1, dim, 11)

	idx := NewIVFSQ8(dim, k1, nprobe, device.MetricL2, 2)
	require.NoError(t, idx.Train(x, n, 42))

	ids := idsFrom(n)
	require.NoError(t, idx.AddWithIDs(ids, x, n))

	query := x[0:dim]
	results, err := idx.Search(context.Background(), query, 1, 3)
	require.NoError(t, err)
	require.Len(t, results[0], 3)
	require.NotEqual(t, device.SentinelID, results[0][0].ID)
}

func TestIVFPQSearchReturnsKNonSentinelResults(t *testing.T) {
	const dim, k1, nprobe, m = 8, 3, 3, 4
	// 86 rows per cluster gives 258 training rows, enough for the 256
	// centroids each PQ sub-quantizer trains.
	x, n := clusteredVectors(86, k1, dim, 5)

	idx := NewIVFPQ(dim, k1, m, nprobe, 2)
	require.NoError(t, idx.Train(x, n, 42))

	ids := idsFrom(n)
	require.NoError(t, idx.AddWithIDs(ids, x, n))

	query := x[0:dim]
	results, err := idx.Search(context.Background(), query, 1, 4)
	require.NoError(t, err)
	require.Len(t, results[0], 4)
	for _, e := range results[0] {
		require.NotEqual(t, device.SentinelID, e.ID)
	}
}

func TestInt8FlatCosineSelfQueryIsBestMatch(t *testing.T) {
	const dim = 4
	idx := NewInt8Flat(dim, device.MetricIP, 1)
	vectors := []float32{
		10, 0, 0, 0,
		0, 10, 0, 0,
		0, 0, 10, 0,
	}
	ids := []uint32{1, 2, 3}
	require.NoError(t, idx.AddWithIDs(ids, vectors, 3))

	results, err := idx.Search(context.Background(), vectors, 3, 1)
	require.NoError(t, err)
	require.Equal(t, uint32(1), results[0][0].ID)
	require.Equal(t, uint32(2), results[1][0].ID)
	require.Equal(t, uint32(3), results[2][0].ID)
}

func TestRemoveIDsReducesNTotalAndExcludesFromSearch(t *testing.T) {
	const dim = 4
	idx := NewFlat(dim, device.MetricL2, 1)
	vectors := []float32{
		1, 1, 1, 1,
		2, 2, 2, 2,
		3, 3, 3, 3,
	}
	ids := []uint32{10, 20, 30}
	require.NoError(t, idx.AddWithIDs(ids, vectors, 3))

	removed := idx.RemoveIDs(NewRangeSelector(20, 30))
	require.Equal(t, 1, removed)
	require.Equal(t, 2, idx.NTotal())

	results, err := idx.Search(context.Background(), vectors[0:dim], 1, 3)
	require.NoError(t, err)
	for _, e := range results[0] {
		require.NotEqual(t, uint32(20), e.ID)
	}
}

func TestResetKeepsTrainedCentroidsButEmptiesLists(t *testing.T) {
	const dim, k1, nprobe = 4, 2, 2
	x, n := clusteredVectors(10, k1, dim, 3)

	idx := NewIVFFlat(dim, k1, nprobe, device.MetricL2, 1)
	require.NoError(t, idx.Train(x, n, 1))
	require.NoError(t, idx.AddWithIDs(idsFrom(n), x, n))
	require.Equal(t, n, idx.NTotal())

	idx.Reset()
	require.Equal(t, 0, idx.NTotal())
	require.True(t, idx.Trained())

	// re-add should succeed without retraining, proving centroids survived.
	require.NoError(t, idx.AddWithIDs(idsFrom(n), x, n))
	require.Equal(t, n, idx.NTotal())
}

func TestPreTransformAppliesChainBeforeForwardingToInner(t *testing.T) {
	// A 4->2 linear transform that just keeps the first two dimensions
	// (mean zero, a 2x4 selection matrix), wrapping a Flat(dim=2) inner
	// index. Self-query on the transformed space should find itself.
	lt := transform.NewLinearTransform(4, 2)
	mean := make([]float32, 4)
	matrix := []float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
	}
	require.NoError(t, lt.SetMatrix(mean, matrix))

	chain := transform.NewChain(lt)
	inner := NewFlat(2, device.MetricL2, 1)
	pt, err := NewPreTransform(4, chain, inner)
	require.NoError(t, err)
	require.True(t, pt.Trained()) // lt pre-trained via SetMatrix, inner needs no training

	vectors := []float32{
		1, 2, 99, 99,
		5, 6, -50, 3,
	}
	ids := []uint32{7, 8}
	require.NoError(t, pt.AddWithIDs(ids, vectors, 2))
	require.Equal(t, 2, pt.NTotal())

	results, err := pt.Search(context.Background(), vectors, 2, 1)
	require.NoError(t, err)
	require.Equal(t, uint32(7), results[0][0].ID)
	require.Equal(t, uint32(8), results[1][0].ID)
}

func TestRangeSelectorAndBatchSelectorMatch(t *testing.T) {
	rs := NewRangeSelector(10, 20)
	require.True(t, rs.Match(10))
	require.True(t, rs.Match(19))
	require.False(t, rs.Match(20))
	require.False(t, rs.Match(9))

	bs := NewBatchSelector([]uint32{3, 7, 11})
	require.True(t, bs.Match(7))
	require.False(t, bs.Match(8))
}

func TestDescriptorElementSizeMatchesEncoding(t *testing.T) {
	require.Equal(t, 8, Descriptor{Dim: 4, Encoding: EncodingFlat}.elementSize())
	require.Equal(t, 4, Descriptor{Dim: 4, Encoding: EncodingIVFSQ8}.elementSize())
	require.Equal(t, 2, Descriptor{Dim: 8, M: 2, Encoding: EncodingIVFPQ}.elementSize())
	require.Equal(t, 4, Descriptor{Dim: 4, Encoding: EncodingInt8Flat}.elementSize())
}
