package quantizer

import (
	"github.com/ascendfaiss/vectorengine/kernel"
	"github.com/ascendfaiss/vectorengine/verrors"
)

// SQ8 holds the per-dimension min/diff scalar-quantiser parameters of
// spec.md §3: a code byte c at dimension i reconstructs to
// `(c+0.5)/255 * vdiff[i] + vmin[i]`. Both vectors are stored in
// half-precision, matching the wire representation pushed to devices.
type SQ8 struct {
	Dim   int
	VMin  []kernel.Float16
	VDiff []kernel.Float16
}

// FitSQ8 computes vmin/vdiff per dimension as the observed min and
// (max-min) across n rows of width dim.
func FitSQ8(x []float32, n, dim int) *SQ8 {
	vmin := make([]float32, dim)
	vmax := make([]float32, dim)
	for d := 0; d < dim; d++ {
		vmin[d] = x[d]
		vmax[d] = x[d]
	}
	for i := 1; i < n; i++ {
		row := x[i*dim : (i+1)*dim]
		for d := 0; d < dim; d++ {
			if row[d] < vmin[d] {
				vmin[d] = row[d]
			}
			if row[d] > vmax[d] {
				vmax[d] = row[d]
			}
		}
	}

	q := &SQ8{Dim: dim, VMin: make([]kernel.Float16, dim), VDiff: make([]kernel.Float16, dim)}
	for d := 0; d < dim; d++ {
		q.VMin[d] = kernel.Float32ToFloat16(vmin[d])
		q.VDiff[d] = kernel.Float32ToFloat16(vmax[d] - vmin[d])
	}
	return q
}

// Encode quantises one row of dim float32 values into dim bytes.
func (q *SQ8) Encode(row []float32) ([]byte, error) {
	if len(row) != q.Dim {
		return nil, verrors.New(verrors.InvalidArgument, "quantizer.SQ8.Encode", "row width mismatch")
	}
	out := make([]byte, q.Dim)
	for d := 0; d < q.Dim; d++ {
		vmin := q.VMin[d].Float32()
		vdiff := q.VDiff[d].Float32()
		var c float32
		if vdiff != 0 {
			c = (row[d] - vmin) / vdiff * 255
		}
		if c < 0 {
			c = 0
		}
		if c > 255 {
			c = 255
		}
		out[d] = byte(c + 0.5)
	}
	return out, nil
}

// Decode reconstructs one row from its SQ8 code using
// `(c+0.5)/255 * vdiff + vmin`.
func (q *SQ8) Decode(code []byte) ([]float32, error) {
	if len(code) != q.Dim {
		return nil, verrors.New(verrors.InvalidArgument, "quantizer.SQ8.Decode", "code width mismatch")
	}
	out := make([]float32, q.Dim)
	for d := 0; d < q.Dim; d++ {
		vmin := q.VMin[d].Float32()
		vdiff := q.VDiff[d].Float32()
		out[d] = (float32(code[d])+0.5)/255*vdiff + vmin
	}
	return out, nil
}

// ReconstructedNormSquared returns ‖decode(code)‖² without allocating
// the decoded row, used to precompute the IVF-SQ8-L2 per-vector norm
// term spec.md §4.8 calls for.
func (q *SQ8) ReconstructedNormSquared(code []byte) float32 {
	var sum float32
	for d := 0; d < q.Dim; d++ {
		vmin := q.VMin[d].Float32()
		vdiff := q.VDiff[d].Float32()
		v := (float32(code[d])+0.5)/255*vdiff + vmin
		sum += v * v
	}
	return sum
}
