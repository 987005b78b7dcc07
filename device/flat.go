package device

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ascendfaiss/vectorengine/verrors"
)

// FlatTileScanner computes distances for one tile of the flat base
// against one query; unlike TileScanner there is no list id, since a
// Flat base is one contiguous ordered sequence (spec.md §4.8).
type FlatTileScanner func(queryIdx, tileStart, tileLen int, tileOrder uint64) []Entry

// FlatSearch runs the Flat/Int8-Flat per-device search: the whole base
// is loaded in SearchListSize tiles and scanned directly, with no
// coarse/probe stage, per spec.md §4.8.
func FlatSearch(ctx context.Context, queries []float32, n, dim int, baseLen int, k int, metric Metric, scan FlatTileScanner) ([][]Entry, error) {
	if n == 0 {
		return nil, nil
	}
	results := make([][]Entry, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(SearchPool)

	for q := 0; q < n; q++ {
		q := q
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			heap := NewTopKHeap(metric, k)
			var tileOrder uint64
			for tileStart := 0; tileStart < baseLen; tileStart += SearchListSize {
				tileLen := SearchListSize
				if tileStart+tileLen > baseLen {
					tileLen = baseLen - tileStart
				}
				entries := scan(q, tileStart, tileLen, tileOrder)
				tileOrder++
				offerWithBurstCutoff(heap, entries, metric)
			}
			results[q] = heap.Drain()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, verrors.Wrap(verrors.InvalidArgument, "device.FlatSearch", err)
	}
	return results, nil
}
