// Package index implements Index Variants (C8): Flat-L2/IP, IVF-Flat
// (-IP), IVF-SQ8-L2/IP, IVF-PQ, Int8 Flat/IVF-Flat, and Pre-transform,
// all built on the C7 orchestrator backbone and differing only in
// kernel and inverted-list entry format, per spec.md §4.8.
//
// Per Design Notes §9, variants are represented as a tagged-union
// descriptor (metric, encoding kind, centroid kind) plus a virtual
// operation set (addImpl/searchImpl/removeImpl/elementSize) instead of
// dynamic casts; see descriptor.go.
package index

// Selector names which ids remove_ids targets, per spec.md §6:
// `index.remove_ids(selector)` where selector is either a contiguous
// id range or an explicit batch of ids.
type Selector interface {
	Match(id uint32) bool
}

// RangeSelector matches ids in [Min, Max).
type RangeSelector struct {
	Min, Max uint32
}

func (s RangeSelector) Match(id uint32) bool { return id >= s.Min && id < s.Max }

// NewRangeSelector builds a half-open range selector.
func NewRangeSelector(min, max uint32) RangeSelector {
	return RangeSelector{Min: min, Max: max}
}

// BatchSelector matches an explicit set of ids.
type BatchSelector struct {
	ids map[uint32]bool
}

func (s BatchSelector) Match(id uint32) bool { return s.ids[id] }

// NewBatchSelector builds a selector matching exactly the given ids.
func NewBatchSelector(ids []uint32) BatchSelector {
	m := make(map[uint32]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return BatchSelector{ids: m}
}
