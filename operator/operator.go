// Package operator implements the Operator Dispatch component (C3): a
// description of a kernel (input/output tensor shapes and dtypes),
// submission of that kernel on a named stream, and reuse of compiled
// kernels keyed by (operator kind, batch size) so that every index
// that serves a discrete set of supported batch sizes can pre-build
// one entry per size at construction time, per spec.md §4.3.
//
// There is no physical accelerator behind this implementation: Stream
// models the asynchronous, fire-and-forget submission contract with a
// single background goroutine per stream, and Kernel is the Go
// closure the caller of Precompile (engine.PrecompileDistanceKernel,
// or cmd/enginectl's dispatch command) supplies as the "compiled"
// kernel body. Completion is still observed purely through
// a flagchan.FlagBuffer, exactly as spec.md §4.3 step 4 requires
// ("do not synchronise — completion is observed via the flag buffer").
package operator

import (
	"fmt"
	"sync"

	"github.com/ascendfaiss/vectorengine/devmem"
	"github.com/ascendfaiss/vectorengine/flagchan"
	"github.com/ascendfaiss/vectorengine/verrors"
)

// Kind names an operator (kernel) shape, e.g. "distance.ivf_sq8_l2".
type Kind string

const (
	KindDistanceL1          Kind = "distance.l1_coarse"
	KindDistanceFlatL2      Kind = "distance.flat_l2"
	KindDistanceFlatIP      Kind = "distance.flat_ip"
	KindDistanceIVFSQ8L2    Kind = "distance.ivf_sq8_l2"
	KindDistanceIVFSQ8IP    Kind = "distance.ivf_sq8_ip"
	KindDistanceIVFPQ       Kind = "distance.ivf_pq"
	KindDistanceIVFFlatL2   Kind = "distance.ivf_flat_l2"
	KindDistanceIVFFlatIP   Kind = "distance.ivf_flat_ip"
	KindDistanceInt8L2      Kind = "distance.int8_l2"
	KindDistanceInt8Cos     Kind = "distance.int8_cos"
	KindTopKSelect          Kind = "topk.select"
	KindLinearTransform     Kind = "transform.linear"
)

// TensorDesc describes the dtype and shape a kernel expects for one
// input or output slot.
type TensorDesc struct {
	DType devmem.DType
	Shape []int
}

// OperatorDesc is the static description of a kernel: its name plus
// its input and output tensor descriptors.
type OperatorDesc struct {
	Name    Kind
	Inputs  []TensorDesc
	Outputs []TensorDesc
}

// Kernel is the compute body a compiled handle runs when submitted.
// It receives exactly the tensors passed to Submit, in order.
type Kernel func(inputs, outputs []*devmem.Tensor) error

// CompiledHandle is one (operator kind, batch size) compiled entry.
type CompiledHandle struct {
	Desc      OperatorDesc
	BatchSize int
	kernel    Kernel
}

type handleKey struct {
	kind      Kind
	batchSize int
}

// Stream serializes a device's operator submissions onto a single
// background goroutine, preserving the "submitted back-to-back,
// drained independently" contract of spec.md §4.3 without requiring a
// real device queue.
type Stream struct {
	name string
	work chan func()
	done chan struct{}
}

// NewStream starts a stream's background worker goroutine.
func NewStream(name string) *Stream {
	s := &Stream{name: name, work: make(chan func(), 256), done: make(chan struct{})}
	go s.loop()
	return s
}

func (s *Stream) loop() {
	for {
		select {
		case fn := <-s.work:
			fn()
		case <-s.done:
			return
		}
	}
}

// Close stops the stream's worker. Pending submissions are dropped;
// callers must have already awaited every CompletionToken they care
// about before closing.
func (s *Stream) Close() {
	close(s.done)
}

// Dispatcher owns the compiled-handle cache for one device.
type Dispatcher struct {
	device  string
	mu      sync.RWMutex
	handles map[handleKey]*CompiledHandle
}

// NewDispatcher creates an empty dispatcher for one device.
func NewDispatcher(device string) *Dispatcher {
	return &Dispatcher{device: device, handles: make(map[handleKey]*CompiledHandle)}
}

// Precompile registers one compiled handle per batch size in
// batchSizes, all sharing the same kernel closure, so that a later
// Submit never has to compile anything. engine.PrecompileDistanceKernel
// calls it; index constructors do not.
func (d *Dispatcher) Precompile(desc OperatorDesc, batchSizes []int, kernel Kernel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, bs := range batchSizes {
		key := handleKey{kind: desc.Name, batchSize: bs}
		d.handles[key] = &CompiledHandle{Desc: desc, BatchSize: bs, kernel: kernel}
	}
}

// Lookup returns the compiled handle for (kind, batchSize). A
// (kind, batchSize) pair that was never precompiled is an
// InvalidArgument error; Lookup never compiles on demand.
func (d *Dispatcher) Lookup(kind Kind, batchSize int) (*CompiledHandle, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.handles[handleKey{kind: kind, batchSize: batchSize}]
	if !ok {
		return nil, verrors.New(verrors.InvalidArgument, "operator.Dispatcher.Lookup",
			fmt.Sprintf("no compiled handle for kind=%s batchSize=%d", kind, batchSize))
	}
	return h, nil
}

// Submit wraps inputs/outputs into the kernel call, issues it on
// stream, and returns immediately without synchronizing: completion is
// signalled by the kernel writing both halves of flag once it
// finishes, which the caller observes via a flagchan.CompletionToken
// bound to the same flag. A kernel error is recorded in the returned
// SubmitResult (see Err) rather than returned here, matching
// the asynchronous contract — errors are only visible once the caller
// polls.
func Submit(stream *Stream, handle *CompiledHandle, inputs, outputs []*devmem.Tensor, flag *flagchan.FlagBuffer) *SubmitResult {
	result := &SubmitResult{}
	stream.work <- func() {
		err := handle.kernel(inputs, outputs)
		result.mu.Lock()
		result.err = err
		result.mu.Unlock()
		flag.WriteHalf(0, 1)
		flag.WriteHalf(1, 1)
	}
	return result
}

// SubmitResult is populated once the submitted kernel has run. Callers
// must only read Err() after a CompletionToken bound to the same flag
// buffer has observed Ready — before that, the kernel may not have run
// yet and the result is not safe to read without the lock it already
// takes.
type SubmitResult struct {
	mu  sync.Mutex
	err error
}

// Err returns the kernel's error, or nil. Safe to call only after the
// corresponding completion flag has resolved.
func (r *SubmitResult) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
