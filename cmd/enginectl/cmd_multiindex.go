package main

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/ascendfaiss/vectorengine/device"
	"github.com/ascendfaiss/vectorengine/index"
	"github.com/ascendfaiss/vectorengine/multiindex"
)

var (
	miNumIndexes int
	miN          int
	miDim        int
	miQueries    int
)

// multiIndexCmd builds miNumIndexes independent Int8-Flat indexes and
// runs one multiindex.Search batch against all of them, printing the
// resulting n x m x k tensor — a runnable instance of spec.md §8's S6
// scenario shape.
var multiIndexCmd = &cobra.Command{
	Use:   "multisearch",
	Short: "Batch-search several independent Int8-Flat indexes in one pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		rng := rand.New(rand.NewSource(7))

		indexes := make([]multiindex.Searchable, miNumIndexes)
		for j := 0; j < miNumIndexes; j++ {
			idx := index.NewInt8Flat(miDim, device.MetricIP, 1)
			x := make([]float32, miN*miDim)
			ids := make([]uint32, miN)
			for i := 0; i < miN; i++ {
				axis := i % miDim
				for d := 0; d < miDim; d++ {
					if d == axis {
						x[i*miDim+d] = 100
					} else {
						x[i*miDim+d] = float32(rng.Intn(5))
					}
				}
				ids[i] = uint32(i + 1)
			}
			if err := idx.AddWithIDs(ids, x, miN); err != nil {
				return err
			}
			indexes[j] = idx
		}

		queries := make([]float32, miQueries*miDim)
		for q := 0; q < miQueries; q++ {
			axis := q % miDim
			queries[q*miDim+axis] = 100
		}

		results, err := multiindex.Search(context.Background(), indexes, queries, miQueries, 1, nil)
		if err != nil {
			return err
		}

		for q, row := range results {
			lines := lo.Map(row, func(perIndex []device.Entry, j int) string {
				if len(perIndex) == 0 {
					return fmt.Sprintf("idx%d=<empty>", j)
				}
				return fmt.Sprintf("idx%d=id:%d", j, perIndex[0].ID)
			})
			fmt.Printf("query %d: %s\n", q, strings.Join(lines, " "))
		}
		log.WithField("m", miNumIndexes).WithField("n", miQueries).Info("multi-index search completed")
		return nil
	},
}

func init() {
	multiIndexCmd.Flags().IntVar(&miNumIndexes, "indexes", 4, "number of independent indexes")
	multiIndexCmd.Flags().IntVar(&miN, "n", 500, "vectors per index")
	multiIndexCmd.Flags().IntVar(&miDim, "dim", 16, "vector dimension")
	multiIndexCmd.Flags().IntVar(&miQueries, "queries", 4, "number of batched queries")
}
