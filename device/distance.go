package device

import (
	"github.com/ascendfaiss/vectorengine/kernel"
	"github.com/ascendfaiss/vectorengine/quantizer"
)

// DecodeFloat16Row reads dim half-precision values starting at buf[0].
func DecodeFloat16Row(buf []byte, dim int) []float32 {
	out := make([]float32, dim)
	for d := 0; d < dim; d++ {
		bits := uint16(buf[2*d]) | uint16(buf[2*d+1])<<8
		out[d] = kernel.Float16FromBits(bits).Float32()
	}
	return out
}

// EncodeFloat16Row is the inverse of DecodeFloat16Row: dim float32
// values packed into 2*dim little-endian half-precision bytes, the
// wire representation spec.md §3 specifies for float indexes.
func EncodeFloat16Row(row []float32) []byte {
	buf := make([]byte, len(row)*2)
	for i, v := range row {
		bits := kernel.Float32ToFloat16(v).Bits()
		buf[2*i] = byte(bits)
		buf[2*i+1] = byte(bits >> 8)
	}
	return buf
}

// ScanTileFlat runs the Flat/IVF-Flat distance kernel: codes is
// n*dim*2 bytes of half-precision vectors (DistanceComputeFlat* /
// DistanceIVFFlat* in spec.md §4.6 step 3's kernel name list); one
// Entry is produced per row, tagged with tileOrder for the ordering
// contract's tie-break.
func ScanTileFlat(query []float32, codes []byte, ids []uint32, n, dim int, metric Metric, tileOrder uint64) []Entry {
	out := make([]Entry, n)
	for i := 0; i < n; i++ {
		row := DecodeFloat16Row(codes[i*dim*2:(i+1)*dim*2], dim)
		out[i] = Entry{Distance: distance(query, row, metric), ID: ids[i], TileOrder: tileOrder}
	}
	return out
}

// ScanTileSQ8 runs DistanceIVFSQ8L2/DistanceIVFSQ8IP: codes is n*dim
// scalar-quantised bytes. For L2, the reconstructed-vector norm term
// is taken from precomputeNorm (one per row) rather than recomputed,
// per spec.md §4.8.
func ScanTileSQ8(query []float32, codes []byte, ids []uint32, precomputeNorm []float32, sq *quantizer.SQ8, n int, metric Metric, tileOrder uint64) []Entry {
	out := make([]Entry, n)
	var queryNormSq float32
	if metric == MetricL2 {
		for _, v := range query {
			queryNormSq += v * v
		}
	}
	for i := 0; i < n; i++ {
		code := codes[i*sq.Dim : (i+1)*sq.Dim]
		var dot float32
		for d := 0; d < sq.Dim; d++ {
			vmin := sq.VMin[d].Float32()
			vdiff := sq.VDiff[d].Float32()
			recon := (float32(code[d])+0.5)/255*vdiff + vmin
			dot += query[d] * recon
		}
		var dist float32
		if metric == MetricL2 {
			reconNormSq := precomputeNorm[i]
			dist = queryNormSq - 2*dot + reconNormSq
		} else {
			dist = dot
		}
		out[i] = Entry{Distance: dist, ID: ids[i], TileOrder: tileOrder}
	}
	return out
}

// ScanTilePQ runs DistanceIVFPQ: codes is n*M PQ code bytes, lut is
// the (M×256) table BuildLUT produced for the current query.
func ScanTilePQ(lut []float32, codes []byte, ids []uint32, n, m int, tileOrder uint64) []Entry {
	out := make([]Entry, n)
	for i := 0; i < n; i++ {
		code := codes[i*m : (i+1)*m]
		out[i] = Entry{Distance: quantizer.DistanceFromLUT(lut, code, m), ID: ids[i], TileOrder: tileOrder}
	}
	return out
}

// ScanTileInt8L2 runs DistanceInt8L2: both query and codes are int8
// dims, sign-extended to int32 before squaring to avoid overflow.
func ScanTileInt8L2(query []int8, codes []int8, ids []uint32, n, dim int, tileOrder uint64) []Entry {
	out := make([]Entry, n)
	for i := 0; i < n; i++ {
		row := codes[i*dim : (i+1)*dim]
		var sum int32
		for d := 0; d < dim; d++ {
			diff := int32(query[d]) - int32(row[d])
			sum += diff * diff
		}
		out[i] = Entry{Distance: float32(sum), ID: ids[i], TileOrder: tileOrder}
	}
	return out
}

// ScanTileInt8Cos runs DistanceInt8Cos: a plain int8 dot product,
// since the index is built norm-preserving (S4's "norm-preserving
// self-query" scenario) so cosine similarity reduces to inner
// product. The use-mask contract: a nil useMask means no filter, and
// every row is scored. A non-nil useMask must hold n entries; a row
// whose entry is false is not scored and yields (sentinel distance,
// SentinelID) in its place.
func ScanTileInt8Cos(query []int8, codes []int8, ids []uint32, useMask []bool, n, dim int, tileOrder uint64) []Entry {
	out := make([]Entry, n)
	for i := 0; i < n; i++ {
		if useMask != nil && !useMask[i] {
			out[i] = Entry{Distance: float32(MetricIP.SentinelDistance()), ID: SentinelID, TileOrder: tileOrder}
			continue
		}
		row := codes[i*dim : (i+1)*dim]
		var sum int32
		for d := 0; d < dim; d++ {
			sum += int32(query[d]) * int32(row[d])
		}
		out[i] = Entry{Distance: float32(sum), ID: ids[i], TileOrder: tileOrder}
	}
	return out
}
