// Package devmem implements the Tensor & Device Memory component (C1):
// an N-dimensional view over a byte buffer that owns nothing, a heap
// allocation, or a reservation from a StackArena, plus the arena
// itself. Grounded on the teacher's hwy/tile.go (fixed-rank view over
// a flat slice, zero via TileZero, row-major indexing) generalized
// from a square tile to an up-to-5-D shape and from register tiles to
// byte buffers, since our tensors describe device memory layout
// rather than SIMD register content.
package devmem

import (
	"fmt"

	"github.com/ascendfaiss/vectorengine/verrors"
)

// MaxRank is the highest rank a Tensor may have.
const MaxRank = 5

// DType tags the element type a Tensor's bytes represent. The RPC and
// invertedlist packages use this to know how many bytes one element
// occupies without threading a Go generic type parameter through the
// whole device-side stack (device buffers are untyped byte regions on
// the wire).
type DType int

const (
	DTypeFloat16 DType = iota
	DTypeInt8
	DTypeUint8
	DTypeUint32
	DTypeFloat32
)

// Size returns the element size in bytes for dt.
func (dt DType) Size() int {
	switch dt {
	case DTypeFloat16, DTypeInt8, DTypeUint8:
		if dt == DTypeFloat16 {
			return 2
		}
		return 1
	case DTypeUint32, DTypeFloat32:
		return 4
	default:
		return 0
	}
}

// Owner describes what a Tensor's backing buffer belongs to.
type Owner int

const (
	// OwnerNone: the tensor borrows someone else's buffer and must
	// not free or reuse it.
	OwnerNone Owner = iota
	// OwnerHeap: the tensor allocated its own buffer with make().
	OwnerHeap
	// OwnerArena: the tensor holds a reservation from a StackArena
	// and must be released (in reverse acquisition order) via the
	// arena rather than by the garbage collector alone.
	OwnerArena
)

// Tensor is a row-major N-dim (N <= MaxRank) view over a byte buffer.
// Strides are derived once from Sizes at construction and never
// mutated afterward.
type Tensor struct {
	buf     []byte
	dtype   DType
	sizes   [MaxRank]int
	strides [MaxRank]int
	rank    int
	owner   Owner
	res     *Reservation // non-nil iff owner == OwnerArena
}

// NewTensor allocates a new heap-owned tensor of the given sizes (most
// significant dimension first) and element type.
func NewTensor(dtype DType, sizes ...int) (*Tensor, error) {
	if len(sizes) == 0 || len(sizes) > MaxRank {
		return nil, verrors.New(verrors.InvalidArgument, "devmem.NewTensor",
			fmt.Sprintf("rank %d out of range [1,%d]", len(sizes), MaxRank))
	}
	n := 1
	for _, s := range sizes {
		if s < 0 {
			return nil, verrors.New(verrors.InvalidArgument, "devmem.NewTensor", "negative size")
		}
		n *= s
	}
	t := &Tensor{dtype: dtype, rank: len(sizes), owner: OwnerHeap}
	copy(t.sizes[:], sizes)
	t.computeStrides()
	t.buf = make([]byte, n*dtype.Size())
	return t, nil
}

// ViewBytes wraps an existing, borrowed byte buffer as a tensor. The
// tensor never frees buf.
func ViewBytes(buf []byte, dtype DType, sizes ...int) (*Tensor, error) {
	if len(sizes) == 0 || len(sizes) > MaxRank {
		return nil, verrors.New(verrors.InvalidArgument, "devmem.ViewBytes",
			fmt.Sprintf("rank %d out of range [1,%d]", len(sizes), MaxRank))
	}
	n := 1
	for _, s := range sizes {
		n *= s
	}
	if len(buf) < n*dtype.Size() {
		return nil, verrors.New(verrors.InvalidArgument, "devmem.ViewBytes", "buffer too small for shape")
	}
	t := &Tensor{buf: buf, dtype: dtype, rank: len(sizes), owner: OwnerNone}
	copy(t.sizes[:], sizes)
	t.computeStrides()
	return t, nil
}

func (t *Tensor) computeStrides() {
	stride := 1
	for i := t.rank - 1; i >= 0; i-- {
		t.strides[i] = stride
		stride *= t.sizes[i]
	}
}

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int { return t.rank }

// Size returns the extent of dimension dim.
func (t *Tensor) Size(dim int) int { return t.sizes[dim] }

// DType returns the element type tag.
func (t *Tensor) DType() DType { return t.dtype }

// Owner reports what owns the backing buffer.
func (t *Tensor) Owner() Owner { return t.owner }

// Bytes returns the full backing buffer.
func (t *Tensor) Bytes() []byte { return t.buf }

// offset computes the byte offset of the element at idx.
func (t *Tensor) offset(idx []int) (int, error) {
	if len(idx) != t.rank {
		return 0, verrors.New(verrors.InvalidArgument, "devmem.Tensor.offset", "index rank mismatch")
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= t.sizes[i] {
			return 0, verrors.New(verrors.InvalidArgument, "devmem.Tensor.offset", "index out of bounds")
		}
		off += x * t.strides[i]
	}
	return off * t.dtype.Size(), nil
}

// ElementBytes returns the raw bytes of the element at idx.
func (t *Tensor) ElementBytes(idx ...int) ([]byte, error) {
	off, err := t.offset(idx)
	if err != nil {
		return nil, err
	}
	sz := t.dtype.Size()
	return t.buf[off : off+sz], nil
}

// CopyFrom copies src into this tensor's buffer, bounds-checked
// against the smaller of the two buffers.
func (t *Tensor) CopyFrom(src *Tensor) error {
	if src.dtype != t.dtype {
		return verrors.New(verrors.UnsupportedConfiguration, "devmem.Tensor.CopyFrom", "dtype mismatch")
	}
	n := copy(t.buf, src.buf)
	if n < len(src.buf) {
		return verrors.New(verrors.InvalidArgument, "devmem.Tensor.CopyFrom", "destination smaller than source")
	}
	return nil
}

// CopyTo copies this tensor's buffer into dst.
func (t *Tensor) CopyTo(dst []byte) int {
	return copy(dst, t.buf)
}

// Fill sets every byte-sized element to a repeated pattern. Used for
// zero-fill padding the last Zz block in invertedlist.
func (t *Tensor) Fill(pattern byte) {
	for i := range t.buf {
		t.buf[i] = pattern
	}
}

// Reshape returns a new view over the same buffer with equal or
// smaller rank and the same total element count. It borrows the
// original tensor's buffer (OwnerNone) regardless of the original
// tensor's ownership, since a reshape never frees anything on its own.
func (t *Tensor) Reshape(sizes ...int) (*Tensor, error) {
	if len(sizes) > t.rank {
		return nil, verrors.New(verrors.InvalidArgument, "devmem.Tensor.Reshape", "rank may not increase")
	}
	n := 1
	for _, s := range sizes {
		n *= s
	}
	total := 1
	for i := 0; i < t.rank; i++ {
		total *= t.sizes[i]
	}
	if n != total {
		return nil, verrors.New(verrors.InvalidArgument, "devmem.Tensor.Reshape", "element count mismatch")
	}
	return ViewBytes(t.buf, t.dtype, sizes...)
}
