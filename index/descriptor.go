package index

import "github.com/ascendfaiss/vectorengine/device"

// EncodingKind names one index variant's on-device code format, the
// tagged-union discriminant Design Notes §9 calls for in place of
// dynamic type assertions. Pre-transform is not a member: it is a
// wrapper around an inner Index, not its own encoding (see
// pretransform.go).
type EncodingKind int

const (
	EncodingFlat EncodingKind = iota
	EncodingIVFFlat
	EncodingIVFSQ8
	EncodingIVFPQ
	EncodingInt8Flat
	EncodingInt8IVFFlat
)

func (e EncodingKind) String() string {
	switch e {
	case EncodingFlat:
		return "FLAT"
	case EncodingIVFFlat:
		return "IVF_FLAT"
	case EncodingIVFSQ8:
		return "IVF_SQ8"
	case EncodingIVFPQ:
		return "IVF_PQ"
	case EncodingInt8Flat:
		return "INT8_FLAT"
	case EncodingInt8IVFFlat:
		return "INT8_IVF_FLAT"
	default:
		return "UNKNOWN"
	}
}

// ivf reports whether this encoding uses the coarse/inverted-list path
// rather than the flat per-device base.
func (e EncodingKind) ivf() bool {
	switch e {
	case EncodingIVFFlat, EncodingIVFSQ8, EncodingIVFPQ, EncodingInt8IVFFlat:
		return true
	default:
		return false
	}
}

// int8 reports whether vectors are stored/queried as int8 codes rather
// than float32/half-precision.
func (e EncodingKind) int8() bool {
	return e == EncodingInt8Flat || e == EncodingInt8IVFFlat
}

// Descriptor is the immutable configuration one Index is built from:
// dimensionality, metric, encoding kind, and the encoding-specific
// parameters (K1/nprobe for IVF variants, M for PQ). Exactly the
// parameters a real descriptor would carry; unused fields for a given
// Encoding are simply left zero.
type Descriptor struct {
	Dim      int
	Metric   device.Metric
	Encoding EncodingKind
	K1       int // IVF variants only
	NProbe   int // IVF variants only
	M        int // IVF-PQ only: number of sub-quantizers
}

// elementSize returns the per-vector on-device code width in bytes for
// this descriptor's encoding, the virtual elementSize() operation
// Design Notes §9 names.
func (d Descriptor) elementSize() int {
	switch d.Encoding {
	case EncodingFlat, EncodingIVFFlat:
		return d.Dim * 2 // half-precision
	case EncodingIVFSQ8:
		return d.Dim // one byte per dimension
	case EncodingIVFPQ:
		return d.M // one byte per sub-quantizer
	case EncodingInt8Flat, EncodingInt8IVFFlat:
		return d.Dim // one signed byte per dimension
	default:
		return 0
	}
}
