package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ascendfaiss/vectorengine/device"
	"github.com/ascendfaiss/vectorengine/devmem"
	"github.com/ascendfaiss/vectorengine/index"
	"github.com/ascendfaiss/vectorengine/operator"
)

func TestNewStartsOneDispatcherAndStreamPerDevice(t *testing.T) {
	e := New([]string{"dev0", "dev1"})
	defer e.Close()

	require.Equal(t, []string{"dev0", "dev1"}, e.Devices())
	_, err := e.Dispatcher("dev0")
	require.NoError(t, err)
	_, err = e.Stream("dev1")
	require.NoError(t, err)

	_, err = e.Dispatcher("nope")
	require.Error(t, err)
}

func TestPrecompileDistanceKernelRegistersOnEveryDevice(t *testing.T) {
	e := New([]string{"dev0", "dev1"})
	defer e.Close()

	desc := operator.OperatorDesc{Name: operator.KindDistanceFlatL2}
	kernel := func(inputs, outputs []*devmem.Tensor) error { return nil }
	e.PrecompileDistanceKernel(desc, []int{1, 4}, kernel)

	for _, name := range e.Devices() {
		d, err := e.Dispatcher(name)
		require.NoError(t, err)
		h, err := d.Lookup(operator.KindDistanceFlatL2, 4)
		require.NoError(t, err)
		require.Equal(t, 4, h.BatchSize)
	}
}

func TestDeviceToCPUThenCPUToDeviceRoundTripsSearchResults(t *testing.T) {
	const dim = 4
	idx := index.NewFlat(dim, device.MetricL2, 2)
	vectors := []float32{
		1, 2, 3, 4,
		10, 10, 10, 10,
		-5, 0, 5, 0,
	}
	ids := []uint32{100, 200, 300}
	require.NoError(t, idx.AddWithIDs(ids, vectors, 3))

	snap, err := DeviceToCPU(idx)
	require.NoError(t, err)
	require.ElementsMatch(t, ids, snap.IDs)

	clone, err := CPUToDevice(snap, 3)
	require.NoError(t, err)
	require.Equal(t, idx.NTotal(), clone.NTotal())

	results, err := clone.Search(context.Background(), vectors, 3, 1)
	require.NoError(t, err)
	require.Equal(t, ids[0], results[0][0].ID)
	require.Equal(t, ids[1], results[1][0].ID)
	require.Equal(t, ids[2], results[2][0].ID)
}

func TestDeviceToCPUThenCPUToDeviceRoundTripsIVFIndex(t *testing.T) {
	const dim, k1, nprobe = 4, 4, 4
	idx := index.NewIVFFlat(dim, k1, nprobe, device.MetricL2, 2)

	x := make([]float32, 0)
	var ids []uint32
	for c := 0; c < k1; c++ {
		for i := 0; i < 10; i++ {
			row := make([]float32, dim)
			for d := 0; d < dim; d++ {
				row[d] = float32(c) * 20
			}
			x = append(x, row...)
			ids = append(ids, uint32(c*10+i+1))
		}
	}
	n := len(ids)
	require.NoError(t, idx.Train(x, n, 1))
	require.NoError(t, idx.AddWithIDs(ids, x, n))

	snap, err := DeviceToCPU(idx)
	require.NoError(t, err)
	require.Len(t, snap.IDs, n)
	require.NotEmpty(t, snap.CoarseCentroids)

	clone, err := CPUToDevice(snap, 3)
	require.NoError(t, err)
	require.Equal(t, n, clone.NTotal())
	require.True(t, clone.Trained())
}
