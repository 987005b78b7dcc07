package main

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/ascendfaiss/vectorengine/device"
	"github.com/ascendfaiss/vectorengine/index"
)

var (
	indexN       int
	indexDim     int
	indexK1      int
	indexNProbe  int
	indexDevices int
)

// indexCmd builds a synthetic IVF-Flat index, trains/adds/searches it,
// and reports whether every self-query found itself at rank 0 — a
// smaller, CLI-runnable version of spec.md §8's S1/S2 scenarios.
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build a synthetic IVF-Flat index and self-query it",
	RunE: func(cmd *cobra.Command, args []string) error {
		rng := rand.New(rand.NewSource(1234))
		x := make([]float32, indexN*indexDim)
		ids := make([]uint32, indexN)
		for i := 0; i < indexN; i++ {
			for d := 0; d < indexDim; d++ {
				x[i*indexDim+d] = float32(rng.NormFloat64())
			}
			ids[i] = uint32(i + 1)
		}

		idx := index.NewIVFFlat(indexDim, indexK1, indexNProbe, device.MetricL2, indexDevices)
		if err := idx.Train(x, indexN, 42); err != nil {
			return err
		}
		if err := idx.AddWithIDs(ids, x, indexN); err != nil {
			return err
		}

		results, err := idx.Search(context.Background(), x, indexN, 1)
		if err != nil {
			return err
		}
		hits := 0
		for i, row := range results {
			if len(row) > 0 && row[0].ID == ids[i] {
				hits++
			}
		}
		log.WithField("ntotal", idx.NTotal()).Info("index built")
		fmt.Printf("self-query recall@1: %d/%d\n", hits, indexN)
		return nil
	},
}

func init() {
	indexCmd.Flags().IntVar(&indexN, "n", 2000, "number of vectors")
	indexCmd.Flags().IntVar(&indexDim, "dim", 32, "vector dimension")
	indexCmd.Flags().IntVar(&indexK1, "k1", 32, "number of coarse lists")
	indexCmd.Flags().IntVar(&indexNProbe, "nprobe", 8, "lists probed per query")
	indexCmd.Flags().IntVar(&indexDevices, "devices", 2, "number of simulated devices")
}
