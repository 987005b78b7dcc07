package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ascendfaiss/vectorengine/device"
)

// TestChunkedAddMatchesSingleBatchAdd verifies paging-idempotence: adding
// the same batch in smaller windows must leave the index in the same
// observable state (ntotal, self-query results) as one unchunked add.
func TestChunkedAddMatchesSingleBatchAdd(t *testing.T) {
	const dim, k1, nprobe = 4, 4, 2
	x, n := clusteredVectors(20, k1, dim, 9)
	ids := idsFrom(n)

	whole := NewIVFFlat(dim, k1, nprobe, device.MetricL2, 2)
	require.NoError(t, whole.Train(x, n, 42))
	require.NoError(t, whole.AddWithIDs(ids, x, n))

	chunked := NewIVFFlat(dim, k1, nprobe, device.MetricL2, 2)
	require.NoError(t, chunked.Train(x, n, 42))
	const window = 7
	for start := 0; start < n; start += window {
		end := min(start+window, n)
		require.NoError(t, chunked.AddWithIDs(ids[start:end], x[start*dim:end*dim], end-start))
	}

	require.Equal(t, whole.NTotal(), chunked.NTotal())

	results, err := chunked.Search(context.Background(), x, n, 1)
	require.NoError(t, err)
	for i, row := range results {
		require.Equal(t, ids[i], row[0].ID)
	}
}

// TestAddGrowsNTotalByExactlyN verifies that a single add of n ids
// increases ntotal by exactly n and every added id is findable
// afterward, with no other mutation in between.
func TestAddGrowsNTotalByExactlyN(t *testing.T) {
	const dim = 4
	idx := NewFlat(dim, device.MetricL2, 2)
	vectors := []float32{
		1, 1, 1, 1,
		2, 2, 2, 2,
		3, 3, 3, 3,
		4, 4, 4, 4,
	}
	ids := []uint32{11, 22, 33, 44}

	before := idx.NTotal()
	require.NoError(t, idx.AddWithIDs(ids[:2], vectors[:2*dim], 2))
	require.Equal(t, before+2, idx.NTotal())

	before = idx.NTotal()
	require.NoError(t, idx.AddWithIDs(ids[2:], vectors[2*dim:], 2))
	require.Equal(t, before+2, idx.NTotal())

	results, err := idx.Search(context.Background(), vectors, 4, 1)
	require.NoError(t, err)
	for i, row := range results {
		require.Equal(t, ids[i], row[0].ID)
	}
}

// TestResetTwiceStaysEmpty verifies reset is idempotent: calling it
// twice in a row must leave ntotal at zero both times.
func TestResetTwiceStaysEmpty(t *testing.T) {
	const dim = 4
	idx := NewFlat(dim, device.MetricL2, 1)
	require.NoError(t, idx.AddWithIDs([]uint32{1, 2}, []float32{1, 1, 1, 1, 2, 2, 2, 2}, 2))
	require.Equal(t, 2, idx.NTotal())

	idx.Reset()
	require.Equal(t, 0, idx.NTotal())
	idx.Reset()
	require.Equal(t, 0, idx.NTotal())
}

// TestInt8FlatCosineRemoveRangeExcludesOnlyRemovedIDs mirrors spec.md's
// S4 scenario shape at reduced scale: after removing a range of ids,
// a self-query must never return one of those ids, while the
// survivors still find themselves.
func TestInt8FlatCosineRemoveRangeExcludesOnlyRemovedIDs(t *testing.T) {
	const dim = 4
	idx := NewInt8Flat(dim, device.MetricIP, 1)
	vectors := []float32{
		10, 0, 0, 0,
		0, 10, 0, 0,
		0, 0, 10, 0,
		0, 0, 0, 10,
		10, 10, 0, 0,
		0, 10, 10, 0,
	}
	ids := []uint32{1, 2, 3, 4, 5, 6}
	require.NoError(t, idx.AddWithIDs(ids, vectors, 6))

	removed := idx.RemoveIDs(NewRangeSelector(4, 7))
	require.Equal(t, 3, removed)
	require.Equal(t, 3, idx.NTotal())

	results, err := idx.Search(context.Background(), vectors, 6, 1)
	require.NoError(t, err)
	for _, row := range results {
		for _, e := range row {
			require.NotContains(t, []uint32{4, 5, 6}, e.ID)
		}
	}
	for i := 0; i < 3; i++ {
		require.Equal(t, ids[i], results[i][0].ID)
	}
}

// TestIVFSQ8RemoveIDsNeverResurfaces mirrors S2's remove-then-search
// guarantee for the IVF-SQ8 variant: once ids are removed, ntotal
// drops by exactly that count and no later search ever returns them.
func TestIVFSQ8RemoveIDsNeverResurfaces(t *testing.T) {
	const dim, k1, nprobe = 8, 3, 3
	x, n := clusteredVectors(15, k1, dim, 11)
	ids := idsFrom(n)

	idx := NewIVFSQ8(dim, k1, nprobe, device.MetricL2, 2)
	require.NoError(t, idx.Train(x, n, 42))
	require.NoError(t, idx.AddWithIDs(ids, x, n))

	removed := idx.RemoveIDs(NewRangeSelector(ids[0], ids[2]))
	require.Equal(t, 2, removed)
	require.Equal(t, n-2, idx.NTotal())

	results, err := idx.Search(context.Background(), x, n, 5)
	require.NoError(t, err)
	for _, row := range results {
		for _, e := range row {
			require.NotEqual(t, ids[0], e.ID)
			require.NotEqual(t, ids[1], e.ID)
		}
	}
}
