//go:build arm64

package kernel

import "golang.org/x/sys/cpu"

// Grounded on the teacher's hwy/ops_neon.go target: ARM64 hosts report
// a NEON-width dispatch level. See dispatch_amd64.go for why this only
// affects host-side tile widths, not the accelerator's own kernels.

func init() {
	currentLevel = DispatchNEON
	currentWidth = 16
	currentName = "neon"
}

// HasF16C always reports false on arm64: F16C is an x86-specific
// instruction set, mirrored here for interface parity with amd64.
func HasF16C() bool { return false }

// HasARMFP16 reports whether the ARM64 host has hardware FP16 support.
func HasARMFP16() bool { return cpu.ARM64.HasFPHP }
