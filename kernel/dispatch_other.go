//go:build !amd64 && !arm64

package kernel

// Fallback for architectures the pack's cpu feature probes don't cover.

func init() {
	currentLevel = DispatchScalar
	currentWidth = 16
	currentName = "scalar"
}

// HasF16C reports false on non-x86 platforms.
func HasF16C() bool { return false }

// HasARMFP16 reports false on non-ARM64 platforms.
func HasARMFP16() bool { return false }
