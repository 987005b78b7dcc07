// Package engine provides the explicit top-level object Design Notes
// §9 calls for in place of a process-wide operator registry singleton:
// "Treat it as an explicit Engine object constructed by the caller...
// there are no hidden singletons in the re-architected design." Engine
// owns one operator.Stream/operator.Dispatcher pair per device and the
// device → cpu / cpu → device clone helpers spec.md §6 lists
// (`index_cpu_to_device`, `index_device_to_cpu`).
package engine

import (
	"github.com/ascendfaiss/vectorengine/index"
	"github.com/ascendfaiss/vectorengine/operator"
	"github.com/ascendfaiss/vectorengine/verrors"
)

// Engine owns the per-device compiled-kernel dispatch layer. A process
// builds exactly one Engine at startup (or one per test), instead of
// relying on a package-level registry.
type Engine struct {
	deviceNames []string
	dispatchers map[string]*operator.Dispatcher
	streams     map[string]*operator.Stream
}

// New starts one operator.Stream and an empty operator.Dispatcher for
// each named device.
func New(deviceNames []string) *Engine {
	e := &Engine{
		deviceNames: append([]string(nil), deviceNames...),
		dispatchers: make(map[string]*operator.Dispatcher, len(deviceNames)),
		streams:     make(map[string]*operator.Stream, len(deviceNames)),
	}
	for _, name := range deviceNames {
		e.dispatchers[name] = operator.NewDispatcher(name)
		e.streams[name] = operator.NewStream(name)
	}
	return e
}

// Devices returns the device names this engine was constructed with.
func (e *Engine) Devices() []string { return e.deviceNames }

// Dispatcher returns the named device's compiled-handle cache.
func (e *Engine) Dispatcher(name string) (*operator.Dispatcher, error) {
	d, ok := e.dispatchers[name]
	if !ok {
		return nil, verrors.New(verrors.InvalidArgument, "engine.Engine.Dispatcher", "unknown device "+name)
	}
	return d, nil
}

// Stream returns the named device's submission stream.
func (e *Engine) Stream(name string) (*operator.Stream, error) {
	s, ok := e.streams[name]
	if !ok {
		return nil, verrors.New(verrors.InvalidArgument, "engine.Engine.Stream", "unknown device "+name)
	}
	return s, nil
}

// PrecompileDistanceKernel registers kernel as the compiled handle for
// (kind, batchSize) on every device this engine owns, matching spec.md
// §4.3's "every index that serves a discrete set of supported batch
// sizes pre-builds one entry per size at construction time." Index
// construction itself (package index) does not call this — it runs its
// distance kernels in-process — so this is the seam a caller uses to
// exercise the real operator-dispatch path (e.g. from cmd/enginectl)
// ahead of serving traffic.
func (e *Engine) PrecompileDistanceKernel(desc operator.OperatorDesc, batchSizes []int, kernelFn operator.Kernel) {
	for _, name := range e.deviceNames {
		e.dispatchers[name].Precompile(desc, batchSizes, kernelFn)
	}
}

// Close stops every device's submission stream. Pending work is
// dropped; callers must have already drained every outstanding
// completion token.
func (e *Engine) Close() {
	for _, s := range e.streams {
		s.Close()
	}
}

// DeviceToCPU reconstructs a plain CPU-resident snapshot from a
// device-resident index (index_device_to_cpu, spec.md §6). The CPU
// form is what persistence round-trips through, per spec.md §4.2.
func DeviceToCPU(idx *index.Index) (*index.Snapshot, error) {
	return idx.Snapshot()
}

// CPUToDevice rebuilds a device-resident index from a CPU snapshot
// spread across numDevices devices (index_cpu_to_device, spec.md §6).
func CPUToDevice(snap *index.Snapshot, numDevices int) (*index.Index, error) {
	return index.Restore(snap, numDevices)
}
