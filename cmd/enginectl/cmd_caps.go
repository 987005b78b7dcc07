package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sys/cpu"

	"github.com/ascendfaiss/vectorengine/kernel"
)

// capsCmd reports the SIMD dispatch level the kernel package selected at
// init time, plus the raw CPU feature bits behind that choice. Adapted
// from the teacher's standalone cpuinfo diagnostic binary: same
// feature table, now reporting kernel's own dispatch decision instead
// of hwy's, since device/quantizer route all arithmetic through
// kernel rather than through hwy directly.
var capsCmd = &cobra.Command{
	Use:   "caps",
	Short: "Print the CPU features and SIMD dispatch level the engine selected",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("GOOS: %s\n", runtime.GOOS)
		fmt.Printf("GOARCH: %s\n", runtime.GOARCH)
		fmt.Printf("NumCPU: %d\n", runtime.NumCPU())
		fmt.Println()

		fmt.Printf("kernel dispatch level: %s\n", kernel.CurrentLevel())
		fmt.Printf("kernel dispatch width: %d bytes\n", kernel.CurrentWidth())
		fmt.Printf("kernel dispatch name:  %s\n", kernel.CurrentName())
		fmt.Println()

		switch runtime.GOARCH {
		case "arm64":
			printARM64Features()
		case "amd64":
			printAMD64Features()
		}

		fmt.Println()
		fmt.Printf("kernel HasARMFP16: %v\n", kernel.HasARMFP16())
		fmt.Printf("kernel HasF16C:    %v\n", kernel.HasF16C())

		log.WithField("level", kernel.CurrentLevel().String()).Info("capability probe completed")
		return nil
	},
}

func printARM64Features() {
	fmt.Println("=== golang.org/x/sys/cpu.ARM64 ===")
	fmt.Printf("  HasASIMD:    %v (NEON baseline)\n", cpu.ARM64.HasASIMD)
	fmt.Printf("  HasFP:       %v (Floating point)\n", cpu.ARM64.HasFP)
	fmt.Printf("  HasFPHP:     %v (FP16 scalar, ARMv8.2-A)\n", cpu.ARM64.HasFPHP)
	fmt.Printf("  HasASIMDHP:  %v (FP16 NEON, ARMv8.2-A)\n", cpu.ARM64.HasASIMDHP)
	fmt.Printf("  HasSVE:      %v (Scalable Vector Extension)\n", cpu.ARM64.HasSVE)
	fmt.Printf("  HasSVE2:     %v (SVE2)\n", cpu.ARM64.HasSVE2)
}

func printAMD64Features() {
	fmt.Println("=== golang.org/x/sys/cpu.X86 ===")
	fmt.Printf("  HasAVX:      %v\n", cpu.X86.HasAVX)
	fmt.Printf("  HasAVX2:     %v\n", cpu.X86.HasAVX2)
	fmt.Printf("  HasAVX512F:  %v\n", cpu.X86.HasAVX512F)
	fmt.Printf("  HasAVX512BW: %v\n", cpu.X86.HasAVX512BW)
	fmt.Printf("  HasAVX512VL: %v\n", cpu.X86.HasAVX512VL)
	fmt.Printf("  HasFMA:      %v\n", cpu.X86.HasFMA)
	fmt.Printf("  HasSSE41:    %v\n", cpu.X86.HasSSE41)
}
