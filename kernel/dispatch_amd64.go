//go:build amd64

package kernel

import "golang.org/x/sys/cpu"

// This mirrors the teacher's hwy/dispatch_amd64.go: a package-level
// dispatch level is computed once at init time from the CPU features
// golang.org/x/sys/cpu reports. Unlike the teacher, there is no real
// SIMD backend selection here — the actual compute runs on the
// accelerator — so the level and its tile width are only reported
// (CurrentLevel, CurrentWidth, CurrentName, MaxLanes) and do not
// change how any kernel computes.

func init() {
	switch {
	case cpu.X86.HasAVX512F:
		currentLevel = DispatchAVX512
		currentWidth = 64
		currentName = "avx512"
	case cpu.X86.HasAVX2:
		currentLevel = DispatchAVX2
		currentWidth = 32
		currentName = "avx2"
	default:
		currentLevel = DispatchSSE2
		currentWidth = 16
		currentName = "sse2"
	}
}

// HasF16C reports whether the host can convert Float16 in hardware.
// The host reference path never relies on this (Float16 conversion here
// is always the software path in types.go); it is exposed for parity
// with the teacher's capability probes and surfaced by enginectl.
func HasF16C() bool { return cpu.X86.HasF16C }

// HasARMFP16 always reports false on amd64: ARM FP16 is an ARM64-specific
// extension, mirrored here for interface parity with arm64.
func HasARMFP16() bool { return false }
