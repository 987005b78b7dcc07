// Command enginectl is a small operational CLI around the vectorengine
// core: a device-transport probe, a raw operator-dispatch smoke test,
// and end-to-end index/multi-index demos. It exists to give every
// layer of the stack (C1-C9) a real, runnable entry point beyond its
// own package tests, the way internal/cpuinfo/main.go gives the
// teacher's SIMD-dispatch layer a standalone diagnostic.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var log = logrus.NewEntry(logrus.StandardLogger())

var rootCmd = &cobra.Command{
	Use:           "enginectl",
	Short:         "Operational CLI for the vectorengine core",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(pingCmd, dispatchCmd, indexCmd, multiIndexCmd, capsCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "enginectl:", err)
		os.Exit(1)
	}
}
