package device

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ascendfaiss/vectorengine/verrors"
)

// SearchListSize is the fixed tile length a probed list is segmented
// into for per-tile submission, per spec.md §4.6 step 3.
const SearchListSize = 16384

// BurstSize is the granularity at which the distance kernel reports
// per-burst extrema; the heap-merge worker uses a burst's extrema to
// skip entries that cannot beat the current top-K root without
// inspecting them individually, per spec.md §4.6 step 4 and the
// glossary's "Per-burst extrema" entry.
const BurstSize = 256

// TileScanner computes distances for one tile of one probed list
// against one query, returning one Entry per live row in the tile.
// tileOrder is a strictly increasing counter across every tile visited
// for this query (coarse-to-probe order, then list order, then
// within-list tile order), used for the tie-break rule.
type TileScanner func(queryIdx, listID, tileStart, tileLen int, tileOrder uint64) []Entry

// ListLength reports how many live vectors a list holds, so the
// search loop knows how many tiles to walk.
type ListLength func(listID int) int

// SearchPool bounds the number of queries processed concurrently,
// mirroring spec.md §5's "second fixed-size pool (≤6 threads)" for the
// top-K merge stage. 6 matches the spec's literal core count (cores
// 0..3 plus the two pinned-elsewhere placeholders collapse to a single
// logical worker-count knob in this non-pinned Go implementation).
const SearchPool = 6

// IVFSearch runs the full per-device IVF search for a batch: coarse
// scan, probe selection, per-list tiled scan, and heap merge, per
// spec.md §4.6. scan is supplied by the caller (package index) since
// the tile-scanning kernel differs by variant (SQ8, PQ, Flat, Int8).
//
// Failure model: each query's worker checks the shared context before
// every probed list. Once the context is cancelled, no worker starts a
// new list, a worker already scanning a list finishes that list first,
// and the context's error is returned to the caller. A TileScanner
// cannot report an error, so cancellation is the only way a worker
// fails.
func IVFSearch(ctx context.Context, queries []float32, n, dim, k1 int, coarseCentroids []float32, nprobe, k int, metric Metric, listLen ListLength, scan TileScanner) ([][]Entry, error) {
	if n == 0 {
		return nil, nil
	}
	coarse := CoarseScan(queries, n, coarseCentroids, k1, dim, metric)
	probes := SelectProbes(coarse, nprobe, metric)

	results := make([][]Entry, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(SearchPool)

	for q := 0; q < n; q++ {
		q := q
		g.Go(func() error {
			return searchOneQuery(gctx, queries[q*dim:(q+1)*dim], probes[q], k, metric, listLen, scan, q, results)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, verrors.Wrap(verrors.InvalidArgument, "device.IVFSearch", err)
	}
	return results, nil
}

func searchOneQuery(ctx context.Context, query []float32, probeLists []int, k int, metric Metric, listLen ListLength, scan TileScanner, queryIdx int, results [][]Entry) error {
	heap := NewTopKHeap(metric, k)
	var tileOrder uint64

	for _, listID := range probeLists {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		length := listLen(listID)
		for tileStart := 0; tileStart < length; tileStart += SearchListSize {
			tileLen := SearchListSize
			if tileStart+tileLen > length {
				tileLen = length - tileStart
			}
			entries := scan(queryIdx, listID, tileStart, tileLen, tileOrder)
			tileOrder++
			offerWithBurstCutoff(heap, entries, metric)
		}
	}

	results[queryIdx] = heap.Drain()
	return nil
}

// offerWithBurstCutoff splits entries into BurstSize chunks and skips
// a whole chunk when, given the heap is already full, no entry in the
// chunk can possibly beat the current worst-kept distance — the
// extrema check spec.md describes the device itself performing; here
// it is computed from the already-materialized tile result since this
// implementation has no separate device-side extrema channel.
func offerWithBurstCutoff(h *TopKHeap, entries []Entry, metric Metric) {
	for start := 0; start < len(entries); start += BurstSize {
		end := start + BurstSize
		if end > len(entries) {
			end = len(entries)
		}
		chunk := entries[start:end]

		worst, full := h.WorstKept()
		if full {
			best := chunk[0].Distance
			for _, e := range chunk[1:] {
				if metric.Better(e.Distance, best) {
					best = e.Distance
				}
			}
			if !metric.Better(best, worst.Distance) {
				continue
			}
		}
		for _, e := range chunk {
			h.Offer(e)
		}
	}
}
