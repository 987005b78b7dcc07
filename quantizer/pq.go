package quantizer

import (
	"math"

	"github.com/ascendfaiss/vectorengine/kernel"
	"github.com/ascendfaiss/vectorengine/verrors"
)

// NCentroidsPerSubQuantizer is fixed at 256 (one byte per sub-code),
// per spec.md §3's product-quantiser parameter tensor
// (M sub-quantisers, 256 centroids each).
const NCentroidsPerSubQuantizer = 256

// PQ holds M sub-quantisers, each independently trained via k-means on
// its D/M-wide slice of the (possibly residual) training vectors, per
// spec.md §4.8 ("device holds PQ centroid tensor").
type PQ struct {
	M         int
	SubDim    int // Dim / M
	Centroids []kernel.Float16 // M * 256 * SubDim, row-major per sub-quantizer
}

// FitPQ trains M independent sub-quantisers on n rows of width dim.
// dim must be a multiple of m.
func FitPQ(x []float32, n, dim, m int, seed int64) (*PQ, error) {
	if dim%m != 0 {
		return nil, verrors.New(verrors.InvalidArgument, "quantizer.FitPQ", "dim is not a multiple of m")
	}
	subDim := dim / m
	pq := &PQ{M: m, SubDim: subDim, Centroids: make([]kernel.Float16, m*NCentroidsPerSubQuantizer*subDim)}

	sub := make([]float32, n*subDim)
	for sq := 0; sq < m; sq++ {
		for i := 0; i < n; i++ {
			copy(sub[i*subDim:(i+1)*subDim], x[i*dim+sq*subDim:i*dim+(sq+1)*subDim])
		}
		cfg := DefaultKMeansConfig(NCentroidsPerSubQuantizer, subDim)
		cfg.Seed = seed + int64(sq)
		result, err := Train(cfg, sub, n)
		if err != nil {
			return nil, err
		}
		base := sq * NCentroidsPerSubQuantizer * subDim
		for i, v := range result.Centroids {
			pq.Centroids[base+i] = kernel.Float32ToFloat16(v)
		}
	}
	return pq, nil
}

func (pq *PQ) centroid(sq, c int) []kernel.Float16 {
	base := sq*NCentroidsPerSubQuantizer*pq.SubDim + c*pq.SubDim
	return pq.Centroids[base : base+pq.SubDim]
}

// Encode assigns each of the M sub-vectors of row to its nearest of
// the 256 centroids, producing an M-byte code.
func (pq *PQ) Encode(row []float32) ([]byte, error) {
	if len(row) != pq.M*pq.SubDim {
		return nil, verrors.New(verrors.InvalidArgument, "quantizer.PQ.Encode", "row width mismatch")
	}
	code := make([]byte, pq.M)
	for sq := 0; sq < pq.M; sq++ {
		sub := row[sq*pq.SubDim : (sq+1)*pq.SubDim]
		best := 0
		bestDist := float32(math.MaxFloat32)
		for c := 0; c < NCentroidsPerSubQuantizer; c++ {
			cen := pq.centroid(sq, c)
			var d float32
			for i, v := range sub {
				diff := v - cen[i].Float32()
				d += diff * diff
			}
			if d < bestDist {
				bestDist = d
				best = c
			}
		}
		code[sq] = byte(best)
	}
	return code, nil
}

// Decode reconstructs an approximate row from an M-byte PQ code by
// concatenating each sub-quantizer's assigned centroid, the inverse of
// Encode. Used by the device → cpu clone path, where only the stored
// code (not the original vector) survives on device.
func (pq *PQ) Decode(code []byte) ([]float32, error) {
	if len(code) != pq.M {
		return nil, verrors.New(verrors.InvalidArgument, "quantizer.PQ.Decode", "code length does not match M")
	}
	row := make([]float32, pq.M*pq.SubDim)
	for sq := 0; sq < pq.M; sq++ {
		cen := pq.centroid(sq, int(code[sq]))
		for i, v := range cen {
			row[sq*pq.SubDim+i] = v.Float32()
		}
	}
	return row, nil
}

// BuildLUT computes the (M × 256) query-dependent lookup table: for
// each sub-quantizer and each of its 256 centroids, the squared L2
// distance from the query's corresponding sub-vector to that
// centroid. The device distance kernel sums one LUT entry per code
// byte, per spec.md §4.8.
func (pq *PQ) BuildLUT(query []float32) ([]float32, error) {
	if len(query) != pq.M*pq.SubDim {
		return nil, verrors.New(verrors.InvalidArgument, "quantizer.PQ.BuildLUT", "query width mismatch")
	}
	lut := make([]float32, pq.M*NCentroidsPerSubQuantizer)
	for sq := 0; sq < pq.M; sq++ {
		sub := query[sq*pq.SubDim : (sq+1)*pq.SubDim]
		for c := 0; c < NCentroidsPerSubQuantizer; c++ {
			cen := pq.centroid(sq, c)
			var d float32
			for i, v := range sub {
				diff := v - cen[i].Float32()
				d += diff * diff
			}
			lut[sq*NCentroidsPerSubQuantizer+c] = d
		}
	}
	return lut, nil
}

// DistanceFromLUT sums the per-sub-quantizer LUT entries named by
// code, giving the approximate squared L2 distance between the
// original query and the encoded vector.
func DistanceFromLUT(lut []float32, code []byte, m int) float32 {
	var sum float32
	for sq := 0; sq < m; sq++ {
		sum += lut[sq*NCentroidsPerSubQuantizer+int(code[sq])]
	}
	return sum
}
