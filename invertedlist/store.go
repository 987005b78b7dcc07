package invertedlist

import (
	"fmt"

	"github.com/ascendfaiss/vectorengine/metrics"
	"github.com/ascendfaiss/vectorengine/verrors"
)

// Store owns every inverted list on one device for one IVF index, plus
// the bookkeeping spec.md §3 requires: a trained flag and the coarse
// bucket count K1. listId validity is enforced against K1 on every
// mutating call.
type Store struct {
	device      string
	k1          int
	elementSize int
	withNorm    bool
	trained     bool
	lists       []*List
}

// NewStore creates an untrained store sized for k1 coarse buckets.
// Lists are allocated lazily (on first Add) to keep an empty index
// cheap. device labels the metrics.InvertedListBytes gauge this store
// updates on every Add.
func NewStore(device string, k1, elementSize int, withNorm bool) *Store {
	return &Store{device: device, k1: k1, elementSize: elementSize, withNorm: withNorm, lists: make([]*List, k1)}
}

// MarkTrained flips the trained flag once centroids/quantiser
// parameters have been pushed to the device. Mutating calls before
// this point are rejected with verrors.NotTrained.
func (s *Store) MarkTrained() { s.trained = true }

// Trained reports whether centroids/quantiser parameters have been
// pushed.
func (s *Store) Trained() bool { return s.trained }

func (s *Store) checkList(listID int) (*List, error) {
	if !s.trained {
		return nil, verrors.New(verrors.NotTrained, "invertedlist.Store", "store is not trained")
	}
	if listID < 0 || listID >= s.k1 {
		return nil, verrors.New(verrors.InvalidArgument, "invertedlist.Store",
			fmt.Sprintf("list id %d out of range [0,%d)", listID, s.k1))
	}
	l := s.lists[listID]
	if l == nil {
		l = NewList(s.elementSize, s.withNorm)
		s.lists[listID] = l
	}
	return l, nil
}

// Add appends n vectors' codes/ids/optional precompute to listID,
// rejecting unless the store is trained and listID is in range, per
// spec.md §4.5.
func (s *Store) Add(listID, n int, codes []byte, ids []uint32, precompute []float32) error {
	l, err := s.checkList(listID)
	if err != nil {
		return err
	}
	if err := l.Add(n, codes, ids, precompute); err != nil {
		return err
	}
	metrics.InvertedListBytes.WithLabelValues(s.device, fmt.Sprintf("%d", listID)).Set(float64(l.Len() * l.elementSize))
	return nil
}

// ListLength returns the live vector count of one list.
func (s *Store) ListLength(listID int) (int, error) {
	if listID < 0 || listID >= s.k1 {
		return 0, verrors.New(verrors.InvalidArgument, "invertedlist.Store.ListLength",
			fmt.Sprintf("list id %d out of range [0,%d)", listID, s.k1))
	}
	l := s.lists[listID]
	if l == nil {
		return 0, nil
	}
	return l.Len(), nil
}

// List returns the list for listID, or nil if it has never been
// populated. Returns an error only for an out-of-range id.
func (s *Store) List(listID int) (*List, error) {
	if listID < 0 || listID >= s.k1 {
		return nil, verrors.New(verrors.InvalidArgument, "invertedlist.Store.List",
			fmt.Sprintf("list id %d out of range [0,%d)", listID, s.k1))
	}
	return s.lists[listID], nil
}

// RemoveMatching removes every matching id from every list and returns
// the total removed count.
func (s *Store) RemoveMatching(match func(id uint32) bool) int {
	total := 0
	for listID, l := range s.lists {
		if l == nil {
			continue
		}
		total += l.RemoveMatching(match)
		metrics.InvertedListBytes.WithLabelValues(s.device, fmt.Sprintf("%d", listID)).Set(float64(l.Len() * l.elementSize))
	}
	return total
}

// NTotal sums live vector counts across all lists.
func (s *Store) NTotal() int {
	total := 0
	for _, l := range s.lists {
		if l == nil {
			continue
		}
		total += l.Len()
	}
	return total
}

// Reset drops all inverted lists' content (recreating them empty) but
// keeps the trained flag and K1, matching spec.md §4.5 "keep trained
// centroids."
func (s *Store) Reset() {
	for _, l := range s.lists {
		if l != nil {
			l.Reset()
		}
	}
}

// K1 returns the coarse bucket count this store is sized for.
func (s *Store) K1() int { return s.k1 }

// FlatBase is the per-device id map used by Flat variants: codes are
// addressed by position, and the host translates position ↔ user id
// via this dense, insertion-ordered vector, per spec.md §3.
type FlatBase struct {
	elementSize int
	ids         []uint32
	codes       []byte // plain row-major, no tiling: Flat search loads the whole base in tiles itself
}

// NewFlatBase creates an empty Flat base for a given per-vector code
// size in bytes.
func NewFlatBase(elementSize int) *FlatBase {
	return &FlatBase{elementSize: elementSize}
}

// Add appends n vectors in insertion order.
func (b *FlatBase) Add(n int, codes []byte, ids []uint32) error {
	if n == 0 {
		return nil
	}
	if len(codes) != n*b.elementSize {
		return verrors.New(verrors.InvalidArgument, "invertedlist.FlatBase.Add",
			fmt.Sprintf("codes length %d does not match n=%d * elementSize=%d", len(codes), n, b.elementSize))
	}
	if len(ids) != n {
		return verrors.New(verrors.InvalidArgument, "invertedlist.FlatBase.Add",
			fmt.Sprintf("ids length %d does not match n=%d", len(ids), n))
	}
	b.codes = append(b.codes, codes...)
	b.ids = append(b.ids, ids...)
	return nil
}

// Len reports the number of live vectors.
func (b *FlatBase) Len() int { return len(b.ids) }

// IDs returns the live id column. Callers must not mutate it.
func (b *FlatBase) IDs() []uint32 { return b.ids }

// Codes returns the live, untiled code buffer (Len()*elementSize
// bytes). Callers must not mutate it.
func (b *FlatBase) Codes() []byte { return b.codes }

// RemoveMatching removes every matching id via swap-from-tail,
// mirroring List.RemoveMatching's semantics for the untiled Flat
// layout.
func (b *FlatBase) RemoveMatching(match func(id uint32) bool) int {
	removed := 0
	p := 0
	for p < len(b.ids) {
		if !match(b.ids[p]) {
			p++
			continue
		}
		last := len(b.ids) - 1
		if p != last {
			copy(b.codes[p*b.elementSize:(p+1)*b.elementSize], b.codes[last*b.elementSize:(last+1)*b.elementSize])
			b.ids[p] = b.ids[last]
		}
		b.codes = b.codes[:last*b.elementSize]
		b.ids = b.ids[:last]
		removed++
	}
	return removed
}

// Reset empties the base.
func (b *FlatBase) Reset() {
	b.codes = nil
	b.ids = nil
}
