package invertedlist

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTileEncodeDecodeRoundTrip(t *testing.T) {
	const elementSize = 4
	const n = 20 // spans two blocks of 16
	src := make([]byte, n*elementSize)
	for i := range src {
		src[i] = byte(i % 256)
	}

	tiled := TileEncode(src, n, elementSize)
	require.Equal(t, roundUpBlock(n)*elementSize, len(tiled))

	back := TileDecode(tiled, n, elementSize)
	require.Equal(t, src, back)
}

func TestListAddAcrossMultipleCallsPreservesTiling(t *testing.T) {
	l := NewList(4, false)
	codes1 := make([]byte, 10*4)
	for i := range codes1 {
		codes1[i] = byte(i + 1)
	}
	ids1 := make([]uint32, 10)
	for i := range ids1 {
		ids1[i] = uint32(i)
	}
	require.NoError(t, l.Add(10, codes1, ids1, nil))

	codes2 := make([]byte, 8*4)
	for i := range codes2 {
		codes2[i] = byte(200 + i)
	}
	ids2 := make([]uint32, 8)
	for i := range ids2 {
		ids2[i] = uint32(100 + i)
	}
	require.NoError(t, l.Add(8, codes2, ids2, nil))

	require.Equal(t, 18, l.Len())
	reshaped := l.GetListCodesReshaped()
	require.Equal(t, append(append([]byte{}, codes1...), codes2...), reshaped)
	require.Equal(t, append(append([]uint32{}, ids1...), ids2...), l.IDs())
}

func TestListAddRejectsMismatchedLengths(t *testing.T) {
	l := NewList(4, false)
	err := l.Add(2, make([]byte, 4), []uint32{1, 2}, nil)
	require.Error(t, err)
}

func TestListRemoveMatchingSwapsFromTail(t *testing.T) {
	l := NewList(4, true)
	codes := make([]byte, 5*4)
	ids := []uint32{10, 11, 12, 13, 14}
	precompute := []float32{1, 2, 3, 4, 5}
	for i := 0; i < 5; i++ {
		codes[i*4] = byte(ids[i])
	}
	require.NoError(t, l.Add(5, codes, ids, precompute))

	removed := l.RemoveMatching(func(id uint32) bool { return id == 11 || id == 13 })
	require.Equal(t, 2, removed)
	require.Equal(t, 3, l.Len())

	remaining := map[uint32]bool{}
	for _, id := range l.IDs() {
		remaining[id] = true
	}
	require.True(t, remaining[10])
	require.True(t, remaining[12])
	require.True(t, remaining[14])
	require.False(t, remaining[11])
	require.False(t, remaining[13])
}

func TestStoreRejectsMutationBeforeTrained(t *testing.T) {
	s := NewStore("dev0", 4, 4, false)
	err := s.Add(0, 1, make([]byte, 4), []uint32{1}, nil)
	require.Error(t, err)
}

func TestStoreRejectsOutOfRangeListID(t *testing.T) {
	s := NewStore("dev0", 4, 4, false)
	s.MarkTrained()
	err := s.Add(4, 1, make([]byte, 4), []uint32{1}, nil)
	require.Error(t, err)
}

func TestStoreNTotalAndResetKeepsTrainedFlag(t *testing.T) {
	s := NewStore("dev0", 2, 4, false)
	s.MarkTrained()
	require.NoError(t, s.Add(0, 1, make([]byte, 4), []uint32{5}, nil))
	require.NoError(t, s.Add(1, 1, make([]byte, 4), []uint32{6}, nil))
	require.Equal(t, 2, s.NTotal())

	s.Reset()
	require.Equal(t, 0, s.NTotal())
	require.True(t, s.Trained())
	require.NoError(t, s.Add(0, 1, make([]byte, 4), []uint32{7}, nil))
}

func TestFlatBaseAddAndRemove(t *testing.T) {
	b := NewFlatBase(4)
	require.NoError(t, b.Add(3, make([]byte, 12), []uint32{1, 2, 3}))
	require.Equal(t, 3, b.Len())

	removed := b.RemoveMatching(func(id uint32) bool { return id == 2 })
	require.Equal(t, 1, removed)
	require.Equal(t, 2, b.Len())
	require.NotContains(t, b.IDs(), uint32(2))
}
