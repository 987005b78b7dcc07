package devmem

import (
	"sync"

	"github.com/ascendfaiss/vectorengine/metrics"
	"github.com/ascendfaiss/vectorengine/verrors"
	"github.com/sirupsen/logrus"
)

// StackArena is a per-device bump allocator: one up-front allocation
// of size S, bumped on each Reserve, releasable only in the reverse
// order reservations were made. An internal mutex serializes Reserve,
// Release, Reset and HighWaterMark, so one arena may be shared across
// goroutines; the reverse-order release rule still applies to the
// combined sequence of reservations.
type StackArena struct {
	device   string
	buf      []byte
	offset   int
	highWater int
	log      *logrus.Entry

	// stack of reservation sizes, used to validate reverse-order release.
	marks []int
	warnedFallback bool
	mu sync.Mutex
}

// Reservation is a live allocation from a StackArena, or a fallback
// individually-allocated buffer if the arena had no room.
type Reservation struct {
	arena    *StackArena
	tensor   *Tensor
	mark     int
	fallback bool
}

// NewStackArena allocates the single backing buffer of size bytes for
// one device.
func NewStackArena(device string, size int, log *logrus.Entry) *StackArena {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &StackArena{
		device: device,
		buf:    make([]byte, size),
		log:    log.WithField("device", device).WithField("component", "stack_arena"),
	}
}

// Reserve bumps the arena pointer by size bytes and returns a tensor
// view over the reservation. If the request would exceed free space,
// the arena falls back to an individually heap-allocated tensor and
// warns once per arena lifetime (spec.md §4.1).
func (a *StackArena) Reserve(dtype DType, sizes ...int) (*Tensor, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 1
	for _, s := range sizes {
		n *= s
	}
	byteSize := n * dtype.Size()

	if a.offset+byteSize > len(a.buf) {
		if !a.warnedFallback {
			a.log.Warnf("stack arena exhausted (need %d, free %d of %d); falling back to individual allocation",
				byteSize, len(a.buf)-a.offset, len(a.buf))
			a.warnedFallback = true
		}
		t, err := NewTensor(dtype, sizes...)
		if err != nil {
			return nil, verrors.Wrap(verrors.Capacity, "devmem.StackArena.Reserve", err)
		}
		t.owner = OwnerArena
		t.res = &Reservation{arena: a, tensor: t, fallback: true}
		return t, nil
	}

	view, err := ViewBytes(a.buf[a.offset:a.offset+byteSize], dtype, sizes...)
	if err != nil {
		return nil, err
	}
	mark := a.offset
	a.offset += byteSize
	if a.offset > a.highWater {
		a.highWater = a.offset
		metrics.ArenaHighWaterMark.WithLabelValues(a.device).Set(float64(a.highWater))
	}
	view.owner = OwnerArena
	view.res = &Reservation{arena: a, tensor: view, mark: mark}
	a.marks = append(a.marks, byteSize)
	return view, nil
}

// Release gives back a reservation. Reservations must be released in
// the reverse order they were acquired; releasing out of order is a
// programmer error and returns a Capacity error rather than corrupting
// the bump pointer.
func (a *StackArena) Release(t *Tensor) error {
	if t.owner != OwnerArena || t.res == nil {
		return verrors.New(verrors.InvalidArgument, "devmem.StackArena.Release", "tensor was not reserved from this arena")
	}
	if t.res.fallback {
		return nil // individually allocated; nothing to bump back.
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.marks) == 0 || t.res.mark+len(t.buf) != a.offset {
		return verrors.New(verrors.Capacity, "devmem.StackArena.Release", "reservations must be released in reverse order")
	}
	a.marks = a.marks[:len(a.marks)-1]
	a.offset = t.res.mark
	return nil
}

// Reset clears the bump pointer back to zero, discarding every live
// reservation at once. Long-lived allocations (e.g. trained coarse
// centroids) must live outside the arena — on the heap, not reserved
// from it — because Reset does not distinguish them.
func (a *StackArena) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.offset = 0
	a.marks = a.marks[:0]
}

// HighWaterMark returns the highest bump-pointer offset ever reached.
func (a *StackArena) HighWaterMark() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.highWater
}

// Capacity returns the arena's fixed total size in bytes.
func (a *StackArena) Capacity() int { return len(a.buf) }
