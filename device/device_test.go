package device

import (
	"context"
	"encoding/binary"
	"math"
	"math/rand"
	"testing"

	"github.com/ascendfaiss/vectorengine/kernel"
	"github.com/stretchr/testify/require"
)

func encodeFloat16Row(row []float32) []byte {
	buf := make([]byte, len(row)*2)
	for i, v := range row {
		bits := kernel.Float32ToFloat16(v).Bits()
		buf[2*i] = byte(bits)
		buf[2*i+1] = byte(bits >> 8)
	}
	return buf
}

func TestTopKHeapKeepsKBestAndDrainsAscending(t *testing.T) {
	h := NewTopKHeap(MetricL2, 3)
	h.Offer(Entry{Distance: 5, ID: 1, TileOrder: 0})
	h.Offer(Entry{Distance: 1, ID: 2, TileOrder: 1})
	h.Offer(Entry{Distance: 3, ID: 3, TileOrder: 2})
	h.Offer(Entry{Distance: 2, ID: 4, TileOrder: 3})
	h.Offer(Entry{Distance: 10, ID: 5, TileOrder: 4}) // worse than all kept, dropped

	out := h.Drain()
	require.Len(t, out, 3)
	require.Equal(t, uint32(2), out[0].ID) // distance 1
	require.Equal(t, uint32(4), out[1].ID) // distance 2
	require.Equal(t, uint32(3), out[2].ID) // distance 3
}

func TestTopKHeapPadsWithSentinelWhenUnderfilled(t *testing.T) {
	h := NewTopKHeap(MetricL2, 4)
	h.Offer(Entry{Distance: 1, ID: 42})

	out := h.Drain()
	require.Len(t, out, 4)
	require.Equal(t, uint32(42), out[0].ID)
	for _, e := range out[1:] {
		require.Equal(t, uint32(SentinelID), e.ID)
		require.True(t, math.IsInf(float64(e.Distance), 1))
	}
}

func TestTopKHeapIPMetricPrefersLargerAndSentinelIsNegInf(t *testing.T) {
	h := NewTopKHeap(MetricIP, 2)
	h.Offer(Entry{Distance: 0.1, ID: 1})
	h.Offer(Entry{Distance: 0.9, ID: 2})
	h.Offer(Entry{Distance: 0.5, ID: 3})

	out := h.Drain()
	require.Equal(t, uint32(2), out[0].ID)
	require.Equal(t, uint32(3), out[1].ID)

	empty := NewTopKHeap(MetricIP, 1).Drain()
	require.True(t, math.IsInf(float64(empty[0].Distance), -1))
}

func TestTopKHeapTieBreaksTowardEarlierTile(t *testing.T) {
	h := NewTopKHeap(MetricL2, 1)
	h.Offer(Entry{Distance: 1, ID: 1, TileOrder: 5})
	h.Offer(Entry{Distance: 1, ID: 2, TileOrder: 1})

	out := h.Drain()
	require.Equal(t, uint32(2), out[0].ID)
}

func TestCoarseScanAndSelectProbesL2(t *testing.T) {
	const dim, k1 = 4, 3
	centroids := []float32{
		0, 0, 0, 0,
		10, 10, 10, 10,
		1, 1, 1, 1,
	}
	queries := []float32{0.5, 0.5, 0.5, 0.5}

	coarse := CoarseScan(queries, 1, centroids, k1, dim, MetricL2)
	require.Len(t, coarse, 1)
	require.Len(t, coarse[0], k1)

	// Centroids 0 and 2 are both at squared distance 1 from the query;
	// the tie goes to the lower list id.
	probes := SelectProbes(coarse, 2, MetricL2)
	require.Equal(t, []int{0, 2}, probes[0])
}

func TestScanTileFlatDecodesFloat16(t *testing.T) {
	const dim = 4
	row0 := []float32{0, 0, 0, 0}
	row1 := []float32{1, 1, 1, 1}
	codes := append(encodeFloat16Row(row0), encodeFloat16Row(row1)...)
	ids := []uint32{100, 200}

	query := []float32{0, 0, 0, 0}
	entries := ScanTileFlat(query, codes, ids, 2, dim, MetricL2, 0)
	require.Len(t, entries, 2)
	require.InDelta(t, 0, entries[0].Distance, 1e-3)
	require.Equal(t, uint32(100), entries[0].ID)
	require.InDelta(t, 4, entries[1].Distance, 1e-2)
}

func TestFlatSearchSelfQueryFindsExactMatch(t *testing.T) {
	const n, dim = 50, 8
	rng := rand.New(rand.NewSource(1234))
	base := make([]float32, n*dim)
	for i := range base {
		base[i] = float32(rng.Float64())
	}
	codes := make([]byte, 0, n*dim*2)
	ids := make([]uint32, n)
	for i := 0; i < n; i++ {
		codes = append(codes, encodeFloat16Row(base[i*dim:(i+1)*dim])...)
		ids[i] = uint32(i)
	}

	queries := base[:10*dim]
	scanner := func(queryIdx, tileStart, tileLen int, tileOrder uint64) []Entry {
		tileCodes := codes[tileStart*dim*2 : (tileStart+tileLen)*dim*2]
		tileIDs := ids[tileStart : tileStart+tileLen]
		return ScanTileFlat(queries[queryIdx*dim:(queryIdx+1)*dim], tileCodes, tileIDs, tileLen, dim, MetricL2, tileOrder)
	}

	results, err := FlatSearch(context.Background(), queries, 10, dim, n, 1, MetricL2, scanner)
	require.NoError(t, err)
	require.Len(t, results, 10)
	for i := 0; i < 10; i++ {
		require.Equal(t, uint32(i), results[i][0].ID)
		require.InDelta(t, 0, results[i][0].Distance, 1e-2)
	}
}

func TestIVFSearchRoutesThroughProbedListsOnly(t *testing.T) {
	const dim, k1 = 4, 2
	centroids := []float32{0, 0, 0, 0, 100, 100, 100, 100}

	// list 0 holds the true nearest neighbor; list 1 holds a decoy far away.
	list0Codes := encodeFloat16Row([]float32{0, 0, 0, 0})
	list1Codes := encodeFloat16Row([]float32{100, 100, 100, 100})

	scanner := func(queryIdx, listID, tileStart, tileLen int, tileOrder uint64) []Entry {
		query := []float32{0, 0, 0, 0}
		if listID == 0 {
			return ScanTileFlat(query, list0Codes, []uint32{1}, 1, dim, MetricL2, tileOrder)
		}
		return ScanTileFlat(query, list1Codes, []uint32{2}, 1, dim, MetricL2, tileOrder)
	}
	listLen := func(listID int) int { return 1 }

	results, err := IVFSearch(context.Background(), []float32{0, 0, 0, 0}, 1, dim, k1, centroids, 1, 1, MetricL2, listLen, scanner)
	require.NoError(t, err)
	require.Equal(t, uint32(1), results[0][0].ID)
}

func TestBinaryLittleEndianSanity(t *testing.T) {
	// DecodeFloat16Row assumes little-endian byte order; pin that down
	// explicitly against the stdlib helper so a future refactor can't
	// silently flip it.
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], kernel.Float32ToFloat16(1.0).Bits())
	require.Equal(t, kernel.Float32ToFloat16(1.0).Bits(), uint16(buf[0])|uint16(buf[1])<<8)
}
