// Package multiindex implements Multi-Index Batched Search (C9): a
// list of independent index.Index instances searched against a shared
// batch of queries in one scheduling pass, per spec.md §4.9.
package multiindex

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ascendfaiss/vectorengine/device"
	"github.com/ascendfaiss/vectorengine/index"
	"github.com/ascendfaiss/vectorengine/verrors"
)

// FanoutPool bounds how many per-index search tasks (one per index,
// each covering the whole query batch) run concurrently, mirroring
// host.SearchFanoutPool's role one layer up: the m indexes already fan
// each batch out across their own devices, so this cap only guards
// against a pathologically large m spawning unbounded goroutines.
const FanoutPool = 64

// Searchable is the subset of index.Index's surface multi-index search
// needs: Dim plus the filtered-search/capability pair. *index.Index
// satisfies it; *index.PreTransformIndex has no SearchFiltered or
// SupportsFilter method and does not.
type Searchable interface {
	Dim() int
	SupportsFilter() bool
	SearchFiltered(ctx context.Context, queries []float32, n, k int, filters []index.Selector) ([][]device.Entry, error)
}

// Search runs every query in the batch against every index in indexes,
// per spec.md §4.9: all m×n query-index pairs proceed concurrently
// subject to device capacity (each index's own host.Orchestrator fan-out),
// and results are laid out as a dense n×m×k tensor, result[q][j] holding
// index j's top-k for query q.
//
// filters, if non-nil, must be a dense n×m matrix of optional per-
// (query, index) selectors: filters[q][j] applies to query q against
// indexes[j], and may itself be nil for an unfiltered pair. Submitting
// any non-nil filter against an index whose SupportsFilter() is false
// is a submission-time failure, matching index.Index.SearchFiltered's
// own per-index contract.
func Search(ctx context.Context, indexes []Searchable, queries []float32, n, k int, filters [][]index.Selector) ([][][]device.Entry, error) {
	m := len(indexes)
	if m == 0 || n == 0 {
		return nil, nil
	}
	if filters != nil && len(filters) != n {
		return nil, verrors.New(verrors.InvalidArgument, "multiindex.Search", "filters must have one row per query")
	}
	for q, row := range filters {
		if row != nil && len(row) != m {
			return nil, verrors.New(verrors.InvalidArgument, "multiindex.Search", "filters row must have one entry per index")
		}
		_ = q
	}

	dim := indexes[0].Dim()
	if len(queries) != n*dim {
		return nil, verrors.New(verrors.InvalidArgument, "multiindex.Search", "queries length does not match n*dim")
	}
	for _, idx := range indexes {
		if idx.Dim() != dim {
			return nil, verrors.New(verrors.InvalidArgument, "multiindex.Search", "every index must share the batch's query dimension")
		}
	}

	// submission-time filter-support check, before any goroutine starts,
	// per spec.md §4.9 "indexes that do not support filtering raise a
	// failure at submission time."
	for j, idx := range indexes {
		if !idx.SupportsFilter() && columnHasFilter(filters, j) {
			return nil, verrors.New(verrors.UnsupportedConfiguration, "multiindex.Search",
				"index does not support a per-query filter")
		}
	}

	out := make([][][]device.Entry, n)
	for q := range out {
		out[q] = make([][]device.Entry, m)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(FanoutPool)

	for j := range indexes {
		j := j
		g.Go(func() error {
			perQuery, err := indexes[j].SearchFiltered(gctx, queries, n, k, columnFilters(filters, j, n))
			if err != nil {
				return verrors.Wrap(verrors.TransportFailure, "multiindex.Search", err)
			}
			for q := 0; q < n; q++ {
				out[q][j] = perQuery[q]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// columnHasFilter reports whether any query row supplies a non-nil
// filter for index j.
func columnHasFilter(filters [][]index.Selector, j int) bool {
	for _, row := range filters {
		if row != nil && row[j] != nil {
			return true
		}
	}
	return false
}

// columnFilters extracts index j's per-query filter column out of the
// dense n×m filters matrix, in the []index.Selector shape
// index.Index.SearchFiltered expects. Returns nil (meaning "no
// filtering for any query") when filters itself is nil or every entry
// in the column is nil, so an unfiltered index keeps taking the same
// nil-filters fast path it always has.
func columnFilters(filters [][]index.Selector, j, n int) []index.Selector {
	if filters == nil {
		return nil
	}
	col := make([]index.Selector, n)
	any := false
	for q := 0; q < n; q++ {
		if filters[q] != nil {
			col[q] = filters[q][j]
			if col[q] != nil {
				any = true
			}
		}
	}
	if !any {
		return nil
	}
	return col
}
