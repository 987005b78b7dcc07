package device

import "container/heap"

// Entry is one candidate (distance, id) pair discovered while scanning
// a tile, tagged with the tile's visit order so ties break toward
// whichever tile reported the value first, per spec.md §4.6's
// ordering contract.
type Entry struct {
	Distance  float32
	ID        uint32
	TileOrder uint64
}

// TopKHeap is a bounded heap of size k holding the k best entries seen
// so far for one query. Its root is always the *worst* kept entry so a
// new candidate can be compared and evicted in O(log k); spec.md's
// glossary calls this "ordered min-heap for L2 (root = worst to
// keep), max-heap for IP/cos (root = worst to keep)" — this
// implementation unifies both cases behind a single Metric-driven
// comparison rather than two heap types.
type TopKHeap struct {
	metric  Metric
	k       int
	entries []Entry
}

// NewTopKHeap creates an empty heap bounded at k entries.
func NewTopKHeap(metric Metric, k int) *TopKHeap {
	return &TopKHeap{metric: metric, k: k}
}

// worse reports whether a is strictly worse than b under the metric —
// used to keep the root the worst-kept entry (heap.Interface's Less).
func (h *TopKHeap) worse(a, b Entry) bool {
	if a.Distance != b.Distance {
		return !h.metric.Better(a.Distance, b.Distance)
	}
	// tie: earlier tile wins, so the later tile is considered "worse"
	// and sits closer to the root for eviction.
	return a.TileOrder > b.TileOrder
}

// heap.Interface implementation: Less orders by "worseness" so Pop
// removes the worst entry, matching a root-is-worst bounded heap.
func (h *TopKHeap) Len() int           { return len(h.entries) }
func (h *TopKHeap) Less(i, j int) bool { return h.worse(h.entries[i], h.entries[j]) }
func (h *TopKHeap) Swap(i, j int)      { h.entries[i], h.entries[j] = h.entries[j], h.entries[i] }
func (h *TopKHeap) Push(x any)         { h.entries = append(h.entries, x.(Entry)) }
func (h *TopKHeap) Pop() any {
	old := h.entries
	n := len(old)
	e := old[n-1]
	h.entries = old[:n-1]
	return e
}

// WorstKept returns the current worst-kept entry and whether the heap
// is already full — callers use this as the early-cutoff threshold
// against a tile's reported burst extrema.
func (h *TopKHeap) WorstKept() (Entry, bool) {
	if len(h.entries) < h.k {
		return Entry{}, false
	}
	return h.entries[0], true
}

// Offer considers one candidate entry: if the heap has fewer than k
// entries it is always kept; otherwise it replaces the current worst
// only if it is better.
func (h *TopKHeap) Offer(e Entry) {
	if len(h.entries) < h.k {
		heap.Push(h, e)
		return
	}
	if h.worse(h.entries[0], e) {
		h.entries[0] = e
		heap.Fix(h, 0)
	}
}

// Drain empties the heap into ascending-by-preference order (best
// first), padding with sentinel entries up to k, per spec.md §4.6 step
// 4 ("reorder the heap ascending by distance, padding with (INF,
// max-uint32) for any slots left empty").
func (h *TopKHeap) Drain() []Entry {
	out := make([]Entry, h.k)
	for i := 0; i < h.k; i++ {
		out[i] = Entry{Distance: h.metric.SentinelDistance(), ID: SentinelID}
	}
	filled := h.Len()
	for i := filled - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(Entry)
	}
	return out
}
