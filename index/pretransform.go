package index

import (
	"context"

	"github.com/ascendfaiss/vectorengine/device"
	"github.com/ascendfaiss/vectorengine/transform"
	"github.com/ascendfaiss/vectorengine/verrors"
)

// PreTransformIndex wraps an inner Index with a linear transform chain
// applied to every vector before it reaches the inner index, per
// spec.md §4.8: "train trains each un-trained transform then the inner
// index; add applies the chain to the input before forwarding; search
// applies the chain to the query and delegates merging to the inner
// index." It is not an EncodingKind — Pre-transform composes with any
// inner encoding rather than being one itself.
type PreTransformIndex struct {
	chain *transform.Chain
	inner *Index
	dimIn int
}

// NewPreTransform wraps inner with chain; chain's OutputDim(dimIn) must
// equal inner.Dim().
func NewPreTransform(dimIn int, chain *transform.Chain, inner *Index) (*PreTransformIndex, error) {
	if chain.OutputDim(dimIn) != inner.Dim() {
		return nil, verrors.New(verrors.UnsupportedConfiguration, "index.NewPreTransform",
			"transform chain output dimension does not match inner index dimension")
	}
	return &PreTransformIndex{chain: chain, inner: inner, dimIn: dimIn}, nil
}

// PrependTransform inserts t at the front of the chain
// (pre_transform.prepend_transform, spec.md §6). The caller is
// responsible for re-validating OutputDim against the inner index
// afterward if t changes the chain's output width.
func (p *PreTransformIndex) PrependTransform(t transform.Transform) {
	p.chain.Prepend(t)
}

// Dim returns the untransformed input dimensionality.
func (p *PreTransformIndex) Dim() int { return p.dimIn }

// Trained reports whether every transform stage and the inner index are
// trained.
func (p *PreTransformIndex) Trained() bool {
	return p.chain.AllTrained() && p.inner.Trained()
}

// NTotal delegates to the inner index.
func (p *PreTransformIndex) NTotal() int { return p.inner.NTotal() }

// Train trains every not-yet-trained chain stage in order (each on the
// output of previously trained stages), then trains the inner index on
// the fully-transformed output, per spec.md §4.8.
func (p *PreTransformIndex) Train(x []float32, n int, seed int64) error {
	transformed, err := p.chain.TrainRemaining(x, n)
	if err != nil {
		return verrors.Wrap(verrors.InvalidArgument, "index.PreTransformIndex.Train", err)
	}
	return p.inner.Train(transformed, n, seed)
}

// Add applies the chain to the input vectors, then forwards to the
// inner index's auto-id Add.
func (p *PreTransformIndex) Add(vectors []float32, n int) error {
	transformed := p.chain.Apply(vectors, n)
	return p.inner.Add(transformed, n)
}

// AddWithIDs applies the chain to the input vectors, then forwards to
// the inner index's AddWithIDs.
func (p *PreTransformIndex) AddWithIDs(ids []uint32, vectors []float32, n int) error {
	transformed := p.chain.Apply(vectors, n)
	return p.inner.AddWithIDs(ids, transformed, n)
}

// Search applies the chain to the queries and delegates to the inner
// index's Search for the actual device fan-out and merge.
func (p *PreTransformIndex) Search(ctx context.Context, queries []float32, n, k int) ([][]device.Entry, error) {
	transformed := p.chain.Apply(queries, n)
	return p.inner.Search(ctx, transformed, n, k)
}

// RemoveIDs delegates to the inner index — ids are inner-index-space
// user ids, untouched by the transform chain.
func (p *PreTransformIndex) RemoveIDs(sel Selector) int { return p.inner.RemoveIDs(sel) }

// Reset delegates to the inner index, keeping the transform chain's
// fitted parameters, mirroring the inner index's own "keep trained
// centroids" reset semantics.
func (p *PreTransformIndex) Reset() { p.inner.Reset() }

// ReserveMemory/ReclaimMemory delegate to the inner index; the
// transform chain itself holds no per-device scratch memory.
func (p *PreTransformIndex) ReserveMemory(bytesPerDevice int) error { return p.inner.ReserveMemory(bytesPerDevice) }
func (p *PreTransformIndex) ReclaimMemory()                         { p.inner.ReclaimMemory() }

// SetNProbe delegates to the inner index.
func (p *PreTransformIndex) SetNProbe(nprobe int) error { return p.inner.SetNProbe(nprobe) }
