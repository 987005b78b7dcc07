// Package flagchan implements the Flag & Size Channels component (C2):
// the small polled host-visible regions a device operator writes to
// signal completion, and the CompletionToken abstraction (design notes
// §9) the host polls instead of blocking on a device event or
// language-level future.
package flagchan

import (
	"time"

	"github.com/ascendfaiss/vectorengine/metrics"
	"github.com/ascendfaiss/vectorengine/verrors"
)

// FlagBuffer is the 32 x uint16 completion-flag region one asynchronous
// operator launch reserves. The accelerator's two independent cores
// each write their own half; the host proceeds only once both halves
// are observed non-zero.
type FlagBuffer struct {
	halves [32]uint16
}

// Zero clears both halves before a launch, per spec.md §4.2 ("Both are
// zeroed by the host before each launch").
func (f *FlagBuffer) Zero() {
	for i := range f.halves {
		f.halves[i] = 0
	}
}

// WriteHalf simulates one core writing its half of the flag. Index 0
// and 1 are the two cores' canonical slots; the remaining 30 entries
// are reserved for future multi-burst signalling and are left unused
// by this implementation.
func (f *FlagBuffer) WriteHalf(core int, value uint16) {
	f.halves[core] = value
}

// Ready reports whether both core halves are non-zero.
func (f *FlagBuffer) Ready() bool {
	return f.halves[0] != 0 && f.halves[1] != 0
}

// SizeBuffer is the 8 x uint32 region the host writes before a launch
// to tell the kernel how many entries this tile should process. In the
// Int8-Cos path the additional (offset, mask length, use-mask) triple
// occupies slots 1..3.
type SizeBuffer struct {
	Count       uint32
	MaskOffset  uint32
	MaskLength  uint32
	UseMask     uint32
	_reserved   [4]uint32
}

// Zero clears the size buffer before a launch.
func (s *SizeBuffer) Zero() {
	*s = SizeBuffer{}
}

// CompletionToken is the host-side handle for one asynchronous
// operator launch. Reset rearms it for reuse across launches of the
// same pre-compiled kernel; Wait busy-polls the backing flag buffer
// until both halves resolve or deadline elapses.
type CompletionToken struct {
	device     string
	flag       *FlagBuffer
	pollEveryN int
}

// WaitResult is the outcome of a CompletionToken.Wait call.
type WaitResult int

const (
	Ready WaitResult = iota
	Timeout
)

// NewCompletionToken creates a token bound to flag, polling the flag
// every pollEveryN spins before checking the wall clock (spec.md §4.2:
// "a counter of checked polls is compared against a wall-clock deadline
// every N spins"). device labels the metrics this token updates.
func NewCompletionToken(device string, flag *FlagBuffer, pollEveryN int) *CompletionToken {
	if pollEveryN <= 0 {
		pollEveryN = 256
	}
	return &CompletionToken{device: device, flag: flag, pollEveryN: pollEveryN}
}

// Reset rearms the token for a new launch by zeroing its flag buffer.
func (c *CompletionToken) Reset() {
	c.flag.Zero()
}

// Wait busy-polls until the flag resolves or deadline elapses. It
// returns (Ready, nil) on success, (Timeout, *verrors.Error) if the
// deadline elapses first. The caller is expected to abandon the
// operator's output on Timeout; its memory is reclaimed the next time
// the owning StackArena is reset (design notes §9).
func (c *CompletionToken) Wait(deadline time.Duration) (WaitResult, error) {
	start := time.Now()
	spins := 0
	for {
		for i := 0; i < c.pollEveryN; i++ {
			if c.flag.Ready() {
				metrics.FlagPollSpins.WithLabelValues(c.device).Observe(float64(spins))
				return Ready, nil
			}
			spins++
		}
		if time.Since(start) > deadline {
			metrics.DeviceTimeouts.WithLabelValues(c.device).Inc()
			return Timeout, verrors.New(verrors.DeviceTimeout, "flagchan.CompletionToken.Wait", "flag-poll deadline exceeded")
		}
	}
}
