// Package invertedlist implements the Device Inverted-List Store (C5):
// one inverted list per coarse bucket, holding three length-coupled
// growable columns (quantized codes in a tiled "Zz" layout, parallel
// user ids, and an optional precomputed norm), plus the per-device id
// map used by Flat variants where codes are addressed by position
// instead of by list.
//
// Grounded on spec.md §3 ("Inverted list L[ℓ]") and §4.5, and on the
// teacher's preference (hwy/tile.go) for explicit, allocation-aware
// byte-slice manipulation over generic container types.
package invertedlist

import (
	"fmt"

	"github.com/ascendfaiss/vectorengine/verrors"
)

// BlockSize is the row-blocking factor of the Zz tiled layout: codes
// are grouped 16 vectors at a time.
const BlockSize = 16

// roundUpBlock rounds n up to the next multiple of BlockSize.
func roundUpBlock(n int) int {
	if n%BlockSize == 0 {
		return n
	}
	return (n/BlockSize + 1) * BlockSize
}

// TileEncode re-tiles n rows of width elementSize bytes each (row-major
// contiguous input) into the Zz layout: rows are grouped in blocks of
// BlockSize, each block stored contiguously, so the k-th row starts at
// byte offset `BlockSize*elementSize*floor(k/BlockSize) +
// (k mod BlockSize)*elementSize`. Within a block, row count is padded
// to BlockSize with zero rows; src need not already be block-aligned.
func TileEncode(src []byte, n, elementSize int) []byte {
	blocks := roundUpBlock(n) / BlockSize
	out := make([]byte, blocks*BlockSize*elementSize)
	for k := 0; k < n; k++ {
		block := k / BlockSize
		within := k % BlockSize
		dstOff := block*BlockSize*elementSize + within*elementSize
		srcOff := k * elementSize
		copy(out[dstOff:dstOff+elementSize], src[srcOff:srcOff+elementSize])
	}
	return out
}

// TileDecode is the inverse of TileEncode: given a Zz-tiled buffer
// holding at least n valid rows, produce a contiguous (n × elementSize)
// byte block. Used by getListCodesReshaped for host-side copy-out.
func TileDecode(tiled []byte, n, elementSize int) []byte {
	out := make([]byte, n*elementSize)
	for k := 0; k < n; k++ {
		block := k / BlockSize
		within := k % BlockSize
		srcOff := block*BlockSize*elementSize + within*elementSize
		dstOff := k * elementSize
		copy(out[dstOff:dstOff+elementSize], tiled[srcOff:srcOff+elementSize])
	}
	return out
}

// List is one coarse bucket's content on one device: a Zz-tiled code
// column, a parallel id column, and an optional precomputed-norm
// column, all sharing length.
type List struct {
	elementSize int
	length      int // number of valid vectors (not block-padded)
	codes       []byte
	ids         []uint32
	precompute  []float32
	hasNorm     bool
}

// NewList creates an empty list for a given per-vector code size in
// bytes, optionally tracking a precomputed norm per vector (used by
// the IVF-SQ8-L2 path).
func NewList(elementSize int, withNorm bool) *List {
	return &List{elementSize: elementSize, hasNorm: withNorm}
}

// Len reports the number of valid (non-padding) vectors in the list.
func (l *List) Len() int { return l.length }

// Add appends n vectors' worth of codes (row-major, n*elementSize
// bytes), ids, and optional precomputed norms. The new total length is
// rounded up to BlockSize for the underlying code buffer; codes are
// re-tiled one row-block at a time and the last partial block is
// zero-padded, per spec.md §4.5.
func (l *List) Add(n int, codes []byte, ids []uint32, precompute []float32) error {
	if n == 0 {
		return nil
	}
	if len(codes) != n*l.elementSize {
		return verrors.New(verrors.InvalidArgument, "invertedlist.List.Add",
			fmt.Sprintf("codes length %d does not match n=%d * elementSize=%d", len(codes), n, l.elementSize))
	}
	if len(ids) != n {
		return verrors.New(verrors.InvalidArgument, "invertedlist.List.Add",
			fmt.Sprintf("ids length %d does not match n=%d", len(ids), n))
	}
	if l.hasNorm && len(precompute) != n {
		return verrors.New(verrors.InvalidArgument, "invertedlist.List.Add",
			fmt.Sprintf("precompute length %d does not match n=%d", len(precompute), n))
	}

	newLength := l.length + n
	newBlockRows := roundUpBlock(newLength)
	newCodeBuf := make([]byte, newBlockRows*l.elementSize)

	// Copy forward the existing rows in their own tiled positions.
	for k := 0; k < l.length; k++ {
		srcOff := l.tileOffset(k)
		dstOff := tileOffsetFor(k, l.elementSize)
		copy(newCodeBuf[dstOff:dstOff+l.elementSize], l.codes[srcOff:srcOff+l.elementSize])
	}
	// Append the new rows at their tiled positions.
	for i := 0; i < n; i++ {
		k := l.length + i
		dstOff := tileOffsetFor(k, l.elementSize)
		srcOff := i * l.elementSize
		copy(newCodeBuf[dstOff:dstOff+l.elementSize], codes[srcOff:srcOff+l.elementSize])
	}

	l.codes = newCodeBuf
	l.ids = append(l.ids, ids...)
	if l.hasNorm {
		l.precompute = append(l.precompute, precompute...)
	}
	l.length = newLength
	return nil
}

func tileOffsetFor(k, elementSize int) int {
	block := k / BlockSize
	within := k % BlockSize
	return block*BlockSize*elementSize + within*elementSize
}

func (l *List) tileOffset(k int) int { return tileOffsetFor(k, l.elementSize) }

// codeAt returns the code bytes for logical position p. Caller must
// not retain the slice past the next mutation.
func (l *List) codeAt(p int) []byte {
	off := l.tileOffset(p)
	return l.codes[off : off+l.elementSize]
}

func (l *List) setCodeAt(p int, v []byte) {
	off := l.tileOffset(p)
	copy(l.codes[off:off+l.elementSize], v)
}

// RemoveMatching removes every position whose id satisfies match, via
// swap-from-tail: order is not preserved, duplicate ids are the
// caller's responsibility, per spec.md §4.5. Returns the number
// removed.
func (l *List) RemoveMatching(match func(id uint32) bool) int {
	removed := 0
	p := 0
	for p < l.length {
		if !match(l.ids[p]) {
			p++
			continue
		}
		last := l.length - 1
		if p != last {
			l.setCodeAt(p, l.codeAt(last))
			l.ids[p] = l.ids[last]
			if l.hasNorm {
				l.precompute[p] = l.precompute[last]
			}
		}
		l.ids = l.ids[:last]
		if l.hasNorm {
			l.precompute = l.precompute[:last]
		}
		l.length = last
		removed++
		// continue scanning from p, which now holds the swapped-in row
	}
	l.reclaimSlack()
	return removed
}

// reclaimSlack re-allocates the code buffer if free capacity exceeds
// 25%, targeting one-eighth free afterwards, per spec.md §4.5.
func (l *List) reclaimSlack() {
	capacityRows := len(l.codes) / l.elementSize
	if capacityRows == 0 {
		return
	}
	free := capacityRows - l.length
	if float64(free) <= 0.25*float64(capacityRows) {
		return
	}
	targetRows := roundUpBlock(l.length + l.length/8)
	if targetRows < roundUpBlock(l.length) {
		targetRows = roundUpBlock(l.length)
	}
	newBuf := make([]byte, targetRows*l.elementSize)
	for k := 0; k < l.length; k++ {
		off := tileOffsetFor(k, l.elementSize)
		copy(newBuf[off:off+l.elementSize], l.codes[off:off+l.elementSize])
	}
	l.codes = newBuf
}

// GetListCodesReshaped returns a contiguous (length × elementSize)
// byte block, the inverse of the Zz tiling, for host-side copy-out
// (used by the cpu-clone path).
func (l *List) GetListCodesReshaped() []byte {
	return TileDecode(l.codes, l.length, l.elementSize)
}

// IDs returns the live id column (length l.Len()). Callers must not
// mutate the returned slice.
func (l *List) IDs() []uint32 { return l.ids[:l.length] }

// Precompute returns the live precomputed-norm column, or nil if this
// list does not track one.
func (l *List) Precompute() []float32 {
	if !l.hasNorm {
		return nil
	}
	return l.precompute[:l.length]
}

// Reset empties the list in place, keeping its elementSize/hasNorm
// configuration (and thus any trained centroids it is keyed against).
func (l *List) Reset() {
	l.codes = nil
	l.ids = nil
	l.precompute = nil
	l.length = 0
}
