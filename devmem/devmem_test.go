package devmem

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestTensorElementRoundTrip(t *testing.T) {
	tn, err := NewTensor(DTypeFloat32, 2, 3)
	require.NoError(t, err)
	require.Equal(t, 2, tn.Rank())

	eb, err := tn.ElementBytes(1, 2)
	require.NoError(t, err)
	require.Len(t, eb, 4)
}

func TestTensorElementOutOfBounds(t *testing.T) {
	tn, err := NewTensor(DTypeUint8, 4)
	require.NoError(t, err)
	_, err = tn.ElementBytes(4)
	require.Error(t, err)
}

func TestTensorReshapePreservesElementCount(t *testing.T) {
	tn, err := NewTensor(DTypeUint8, 4, 4)
	require.NoError(t, err)
	r, err := tn.Reshape(16)
	require.NoError(t, err)
	require.Equal(t, 16, r.Size(0))

	_, err = tn.Reshape(17)
	require.Error(t, err)
}

func TestStackArenaBumpAndReverseRelease(t *testing.T) {
	arena := NewStackArena("dev0", 64, logrus.NewEntry(logrus.New()))

	a, err := arena.Reserve(DTypeUint8, 16)
	require.NoError(t, err)
	b, err := arena.Reserve(DTypeUint8, 16)
	require.NoError(t, err)

	// Releasing out of order is rejected.
	require.Error(t, arena.Release(a))

	require.NoError(t, arena.Release(b))
	require.NoError(t, arena.Release(a))
}

func TestStackArenaFallsBackWhenExhausted(t *testing.T) {
	arena := NewStackArena("dev0", 8, logrus.NewEntry(logrus.New()))

	tn, err := arena.Reserve(DTypeUint8, 64)
	require.NoError(t, err)
	require.Equal(t, 64, len(tn.Bytes()))
	// Fallback reservations are released as no-ops.
	require.NoError(t, arena.Release(tn))
}

func TestStackArenaResetClearsBumpPointer(t *testing.T) {
	arena := NewStackArena("dev0", 32, logrus.NewEntry(logrus.New()))
	_, err := arena.Reserve(DTypeUint8, 16)
	require.NoError(t, err)
	arena.Reset()

	_, err = arena.Reserve(DTypeUint8, 32)
	require.NoError(t, err)
}
