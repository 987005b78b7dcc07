package index

import (
	"context"
	"fmt"
	"sync"

	"github.com/ascendfaiss/vectorengine/device"
	"github.com/ascendfaiss/vectorengine/devmem"
	"github.com/ascendfaiss/vectorengine/host"
	"github.com/ascendfaiss/vectorengine/invertedlist"
	"github.com/ascendfaiss/vectorengine/quantizer"
	"github.com/ascendfaiss/vectorengine/verrors"
)

// defaultArenaBytes sizes each device's per-index scratch arena; a real
// deployment would size this from the device's actual memory budget,
// but no RPC in spec.md §6 negotiates that value at index-creation
// time, so a fixed default stands in.
const defaultArenaBytes = 16 << 20

// Index is one vector index instance spread across a fixed set of
// devices. It implements the tagged-union + virtual-op-set pattern
// Design Notes §9 calls for: one concrete type switches on
// desc.Encoding inside Add/Search/Remove/elementSize rather than a
// family of types behind dynamic casts.
type Index struct {
	mu   sync.RWMutex
	desc Descriptor

	numDevices int
	trained    bool
	ntotal     int

	coarseCentroids []float32 // k1*dim, IVF variants only
	sq              *quantizer.SQ8
	pq              *quantizer.PQ

	ivfStores []*invertedlist.Store  // per device, IVF variants
	flatBases []*invertedlist.FlatBase // per device, Flat variants

	arenas       []*devmem.StackArena
	orchestrator *host.Orchestrator
}

// New constructs an Index for an arbitrary descriptor. Variant-specific
// constructors below are the normal entry points; New exists so
// pretransform.go can build the inner index without duplicating this
// wiring.
func New(desc Descriptor, numDevices int) *Index {
	idx := &Index{desc: desc, numDevices: numDevices}
	idx.arenas = make([]*devmem.StackArena, numDevices)
	for d := 0; d < numDevices; d++ {
		idx.arenas[d] = devmem.NewStackArena(fmt.Sprintf("device-%d", d), defaultArenaBytes, nil)
	}

	if desc.Encoding.ivf() {
		idx.ivfStores = make([]*invertedlist.Store, numDevices)
		withNorm := desc.Encoding == EncodingIVFSQ8 && desc.Metric == device.MetricL2
		for d := 0; d < numDevices; d++ {
			idx.ivfStores[d] = invertedlist.NewStore(fmt.Sprintf("device-%d", d), desc.K1, desc.elementSize(), withNorm)
		}
	} else {
		idx.flatBases = make([]*invertedlist.FlatBase, numDevices)
		for d := 0; d < numDevices; d++ {
			idx.flatBases[d] = invertedlist.NewFlatBase(desc.elementSize())
		}
		idx.trained = true // Flat/Int8-Flat need no training step
	}

	searchers := make([]host.DeviceSearcher, numDevices)
	for d := 0; d < numDevices; d++ {
		d := d
		searchers[d] = func(ctx context.Context, queries []float32, n, k int) ([][]device.Entry, error) {
			return idx.searchDevice(ctx, d, queries, n, k, nil)
		}
	}
	idx.orchestrator = host.NewOrchestrator(searchers, desc.Metric)
	return idx
}

// NewFlat builds a Flat index (brute-force, half-precision codes).
func NewFlat(dim int, metric device.Metric, numDevices int) *Index {
	return New(Descriptor{Dim: dim, Metric: metric, Encoding: EncodingFlat}, numDevices)
}

// NewIVFFlat builds an IVF-Flat index: coarse-quantized, uncompressed
// half-precision codes within each list.
func NewIVFFlat(dim, k1, nprobe int, metric device.Metric, numDevices int) *Index {
	return New(Descriptor{Dim: dim, Metric: metric, Encoding: EncodingIVFFlat, K1: k1, NProbe: nprobe}, numDevices)
}

// NewIVFSQ8 builds an IVF-SQ8 index: coarse-quantized, scalar-quantized
// (1 byte/dim) codes within each list.
func NewIVFSQ8(dim, k1, nprobe int, metric device.Metric, numDevices int) *Index {
	return New(Descriptor{Dim: dim, Metric: metric, Encoding: EncodingIVFSQ8, K1: k1, NProbe: nprobe}, numDevices)
}

// NewIVFPQ builds an IVF-PQ index: coarse-quantized, product-quantized
// (M bytes/vector) codes within each list, always under squared-L2
// (the LUT the device kernel sums is an L2 distance, per spec.md §4.8).
func NewIVFPQ(dim, k1, m, nprobe int, numDevices int) *Index {
	return New(Descriptor{Dim: dim, Metric: device.MetricL2, Encoding: EncodingIVFPQ, K1: k1, NProbe: nprobe, M: m}, numDevices)
}

// NewInt8Flat builds an Int8-Flat index: raw signed-byte codes, brute
// force. metric device.MetricIP selects the norm-preserving cosine
// kernel (ScanTileInt8Cos); device.MetricL2 selects ScanTileInt8L2.
func NewInt8Flat(dim int, metric device.Metric, numDevices int) *Index {
	return New(Descriptor{Dim: dim, Metric: metric, Encoding: EncodingInt8Flat}, numDevices)
}

// NewInt8IVFFlat builds an Int8-IVFFlat index: coarse-quantized,
// signed-byte codes within each list.
func NewInt8IVFFlat(dim, k1, nprobe int, metric device.Metric, numDevices int) *Index {
	return New(Descriptor{Dim: dim, Metric: metric, Encoding: EncodingInt8IVFFlat, K1: k1, NProbe: nprobe}, numDevices)
}

// Dim returns the vector dimensionality this index was built for.
func (idx *Index) Dim() int { return idx.desc.Dim }

// Trained reports whether Train has completed (always true for
// non-IVF variants).
func (idx *Index) Trained() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.trained
}

// NTotal returns the total live vector count across every device.
func (idx *Index) NTotal() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.ntotal
}

// SetNProbe updates the number of coarse lists probed per query
// (INDEX_IVF_UPDATE_NPROBE, spec.md §6). For non-IVF variants it
// returns an UnsupportedConfiguration error and changes nothing.
func (idx *Index) SetNProbe(nprobe int) error {
	if !idx.desc.Encoding.ivf() {
		return verrors.New(verrors.UnsupportedConfiguration, "index.Index.SetNProbe", "nprobe does not apply to a non-IVF encoding")
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.desc.NProbe = nprobe
	return nil
}

// Train fits whatever host-side parameters this encoding needs (coarse
// centroids, and for IVF-SQ8/IVF-PQ the quantizer itself) from n
// training rows, then pushes the trained flag to every device's store,
// per spec.md §4.7/§4.8. A no-op for Flat/Int8-Flat.
func (idx *Index) Train(x []float32, n int, seed int64) error {
	if !idx.desc.Encoding.ivf() {
		return nil
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	result, err := host.TrainCoarseCentroids(x, n, idx.desc.Dim, idx.desc.K1, seed)
	if err != nil {
		return verrors.Wrap(verrors.InvalidArgument, "index.Index.Train", err)
	}
	idx.coarseCentroids = result.Centroids

	switch idx.desc.Encoding {
	case EncodingIVFSQ8:
		idx.sq = quantizer.FitSQ8(x, n, idx.desc.Dim)
	case EncodingIVFPQ:
		pq, err := quantizer.FitPQ(x, n, idx.desc.Dim, idx.desc.M, seed)
		if err != nil {
			return err
		}
		idx.pq = pq
	}

	idx.trained = true
	for _, store := range idx.ivfStores {
		store.MarkTrained()
	}
	return nil
}

// Add appends n vectors without caller-supplied ids, auto-assigning
// sequential ids starting at the index's current ntotal — the plain
// `add(n, x)` operation of spec.md §6, which original_source's
// AscendIndex::add forwards to add_with_ids(n, x, nullptr) with
// ids[i] = ntotal + i.
func (idx *Index) Add(vectors []float32, n int) error {
	idx.mu.Lock()
	start := idx.ntotal
	idx.mu.Unlock()

	ids := make([]uint32, n)
	for i := range ids {
		ids[i] = uint32(start + i)
	}
	return idx.AddWithIDs(ids, vectors, n)
}

// AddWithIDs appends n (id, vector) pairs, paging the request per
// spec.md §4.7 and, for IVF variants, assigning each vector to its
// nearest coarse list before sharding across devices. This is the
// `add_with_ids(n, x, ids)` operation of spec.md §6.
func (idx *Index) AddWithIDs(ids []uint32, vectors []float32, n int) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if !idx.trained {
		return verrors.New(verrors.NotTrained, "index.Index.AddWithIDs", "index must be trained before add")
	}
	if len(ids) != n {
		return verrors.New(verrors.InvalidArgument, "index.Index.AddWithIDs", "ids length does not match n")
	}
	if len(vectors) != n*idx.desc.Dim {
		return verrors.New(verrors.InvalidArgument, "index.Index.AddWithIDs", "vectors length does not match n*dim")
	}

	perVectorBytes := idx.desc.elementSize()
	for _, page := range host.Page(n, perVectorBytes) {
		pageIDs := ids[page.Start : page.Start+page.N]
		pageVecs := vectors[page.Start*idx.desc.Dim : (page.Start+page.N)*idx.desc.Dim]
		if idx.desc.Encoding.ivf() {
			if err := idx.addIVFPage(pageIDs, pageVecs, page.N); err != nil {
				return err
			}
		} else {
			if err := idx.addFlatPage(pageIDs, pageVecs, page.N); err != nil {
				return err
			}
		}
	}
	idx.ntotal += n
	return nil
}

func (idx *Index) encodeRow(row []float32) ([]byte, error) {
	switch idx.desc.Encoding {
	case EncodingFlat, EncodingIVFFlat:
		return device.EncodeFloat16Row(row), nil
	case EncodingIVFSQ8:
		return idx.sq.Encode(row)
	case EncodingIVFPQ:
		return idx.pq.Encode(row)
	case EncodingInt8Flat, EncodingInt8IVFFlat:
		return encodeInt8Row(row), nil
	default:
		return nil, verrors.New(verrors.UnsupportedConfiguration, "index.Index.encodeRow", "unknown encoding")
	}
}

// encodeInt8Row rounds and clamps each dimension into signed-byte
// range, assuming the caller already normalized vectors into a
// norm-preserving int8-safe range per spec.md §3's Int8 variant note.
func encodeInt8Row(row []float32) []byte {
	out := make([]byte, len(row))
	for i, v := range row {
		r := v
		if r > 127 {
			r = 127
		}
		if r < -128 {
			r = -128
		}
		out[i] = byte(int8(r + 0.5*sign(r)))
	}
	return out
}

func sign(v float32) float32 {
	if v < 0 {
		return -1
	}
	return 1
}

func (idx *Index) addIVFPage(ids []uint32, vectors []float32, n int) error {
	coarse := device.CoarseScan(vectors, n, idx.coarseCentroids, idx.desc.K1, idx.desc.Dim, idx.desc.Metric)
	top1 := device.SelectProbes(coarse, 1, idx.desc.Metric)
	listIDs := make([]int, n)
	for i, p := range top1 {
		listIDs[i] = p[0]
	}

	load := func(d, listID int) int {
		l, err := idx.ivfStores[d].ListLength(listID)
		if err != nil {
			return 0
		}
		return l
	}
	groups := host.ShardIVFAdd(listIDs, idx.numDevices, load)

	for dl, indices := range groups {
		codes := make([]byte, 0, len(indices)*idx.desc.elementSize())
		groupIDs := make([]uint32, 0, len(indices))
		var precompute []float32
		for _, i := range indices {
			row := vectors[i*idx.desc.Dim : (i+1)*idx.desc.Dim]
			code, err := idx.encodeRow(row)
			if err != nil {
				return err
			}
			codes = append(codes, code...)
			groupIDs = append(groupIDs, ids[i])
			if idx.desc.Encoding == EncodingIVFSQ8 && idx.desc.Metric == device.MetricL2 {
				precompute = append(precompute, idx.sq.ReconstructedNormSquared(code))
			}
		}
		if err := idx.ivfStores[dl.Device].Add(dl.List, len(indices), codes, groupIDs, precompute); err != nil {
			return err
		}
	}
	return nil
}

func (idx *Index) addFlatPage(ids []uint32, vectors []float32, n int) error {
	load := func(d int) int { return idx.flatBases[d].Len() }
	assignment := host.ShardFlatAdd(n, idx.numDevices, load)

	byDevice := make(map[int][]int)
	for i, d := range assignment {
		byDevice[d] = append(byDevice[d], i)
	}
	for d, indices := range byDevice {
		codes := make([]byte, 0, len(indices)*idx.desc.elementSize())
		groupIDs := make([]uint32, 0, len(indices))
		for _, i := range indices {
			row := vectors[i*idx.desc.Dim : (i+1)*idx.desc.Dim]
			code, err := idx.encodeRow(row)
			if err != nil {
				return err
			}
			codes = append(codes, code...)
			groupIDs = append(groupIDs, ids[i])
		}
		if err := idx.flatBases[d].Add(len(indices), codes, groupIDs); err != nil {
			return err
		}
	}
	return nil
}

// RemoveIDs removes every vector matching sel from every device, per
// spec.md §6's INDEX_REMOVE_IDS/INDEX_REMOVE_RANGE_IDS, and returns the
// total number of vectors removed.
func (idx *Index) RemoveIDs(sel Selector) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	removed := 0
	if idx.desc.Encoding.ivf() {
		for _, store := range idx.ivfStores {
			removed += store.RemoveMatching(sel.Match)
		}
	} else {
		for _, base := range idx.flatBases {
			removed += base.RemoveMatching(sel.Match)
		}
	}
	idx.ntotal -= removed
	return removed
}

// Reset empties every device's store/base, keeping trained parameters
// (coarse centroids, SQ8/PQ) in place, per spec.md §4.5's "keep trained
// centroids" note.
func (idx *Index) Reset() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.desc.Encoding.ivf() {
		for _, store := range idx.ivfStores {
			store.Reset()
		}
	} else {
		for _, base := range idx.flatBases {
			base.Reset()
		}
	}
	idx.ntotal = 0
}

// ReserveMemory pre-warms every device's scratch arena by reserving and
// immediately releasing a throwaway block, surfacing an out-of-capacity
// fallback warning up front rather than mid-search (INDEX_RESERVE_MEM).
func (idx *Index) ReserveMemory(bytesPerDevice int) error {
	for _, a := range idx.arenas {
		t, err := a.Reserve(devmem.DTypeUint8, bytesPerDevice)
		if err != nil {
			return err
		}
		if err := a.Release(t); err != nil {
			return err
		}
	}
	return nil
}

// ReclaimMemory resets every device's scratch arena bump pointer
// (INDEX_RECLAIM_MEM).
func (idx *Index) ReclaimMemory() {
	for _, a := range idx.arenas {
		a.Reset()
	}
}

// Snapshot is the plain-CPU, device-assignment-independent form of an
// Index's trained state and vector content: Descriptor, coarse
// centroids and SQ8/PQ parameters where applicable, and every (id,
// vector) pair decoded back out of its device-resident code, in no
// particular order. Per spec.md §4.2/§6: "the orchestrator provides a
// device → cpu clone path that reconstructs a plain CPU index... a
// cpu → device clone rebuilds the device index from that CPU form;
// persistence is always round-tripped through the CPU form."
type Snapshot struct {
	Desc            Descriptor
	CoarseCentroids []float32
	SQ              *quantizer.SQ8
	PQ              *quantizer.PQ
	IDs             []uint32
	Vectors         []float32 // len(IDs)*Desc.Dim
}

func (idx *Index) decodeRow(code []byte) ([]float32, error) {
	switch idx.desc.Encoding {
	case EncodingFlat, EncodingIVFFlat:
		return device.DecodeFloat16Row(code, idx.desc.Dim), nil
	case EncodingIVFSQ8:
		return idx.sq.Decode(code)
	case EncodingIVFPQ:
		return idx.pq.Decode(code)
	case EncodingInt8Flat, EncodingInt8IVFFlat:
		return decodeInt8Row(code), nil
	default:
		return nil, verrors.New(verrors.UnsupportedConfiguration, "index.Index.decodeRow", "unknown encoding")
	}
}

func decodeInt8Row(code []byte) []float32 {
	out := make([]float32, len(code))
	for i, b := range code {
		out[i] = float32(int8(b))
	}
	return out
}

// Snapshot walks every device's store/base, decoding each stored code
// back to a float32 row, and returns the device-independent CPU form
// (index_device_to_cpu, spec.md §6).
func (idx *Index) Snapshot() (*Snapshot, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	snap := &Snapshot{
		Desc:            idx.desc,
		CoarseCentroids: append([]float32(nil), idx.coarseCentroids...),
		SQ:              idx.sq,
		PQ:              idx.pq,
	}
	elemSize := idx.desc.elementSize()

	appendRows := func(ids []uint32, codes []byte) error {
		for i, id := range ids {
			row, err := idx.decodeRow(codes[i*elemSize : (i+1)*elemSize])
			if err != nil {
				return err
			}
			snap.IDs = append(snap.IDs, id)
			snap.Vectors = append(snap.Vectors, row...)
		}
		return nil
	}

	if idx.desc.Encoding.ivf() {
		for _, store := range idx.ivfStores {
			for listID := 0; listID < idx.desc.K1; listID++ {
				list, err := store.List(listID)
				if err != nil {
					return nil, err
				}
				if list == nil {
					continue
				}
				if err := appendRows(list.IDs(), list.GetListCodesReshaped()); err != nil {
					return nil, err
				}
			}
		}
	} else {
		for _, base := range idx.flatBases {
			if err := appendRows(base.IDs(), base.Codes()); err != nil {
				return nil, err
			}
		}
	}
	return snap, nil
}

// Restore rebuilds a device-resident Index from a Snapshot over
// numDevices devices (index_cpu_to_device, spec.md §6). numDevices need
// not match however many devices the snapshot was originally spread
// across: re-adding every vector re-shards it from scratch via the
// normal Add path.
func Restore(snap *Snapshot, numDevices int) (*Index, error) {
	idx := New(snap.Desc, numDevices)
	if snap.Desc.Encoding.ivf() {
		idx.mu.Lock()
		idx.coarseCentroids = append([]float32(nil), snap.CoarseCentroids...)
		idx.sq = snap.SQ
		idx.pq = snap.PQ
		idx.trained = true
		for _, store := range idx.ivfStores {
			store.MarkTrained()
		}
		idx.mu.Unlock()
	}
	if len(snap.IDs) == 0 {
		return idx, nil
	}
	if err := idx.AddWithIDs(snap.IDs, snap.Vectors, len(snap.IDs)); err != nil {
		return nil, err
	}
	return idx, nil
}

// Search runs a batch of n queries and returns, per query, the global
// top-k merged across every device, per spec.md §4.6/§4.7.
func (idx *Index) Search(ctx context.Context, queries []float32, n, k int) ([][]device.Entry, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.trained {
		return nil, verrors.New(verrors.NotTrained, "index.Index.Search", "index must be trained before search")
	}
	return idx.orchestrator.Search(ctx, queries, n, idx.desc.Dim, k)
}

// SupportsFilter reports whether this encoding's distance kernel can
// apply a per-(query, id) bitset filter inline, per spec.md §4.9 and
// §4.8's "Int8-Cos additionally consumes a bitset mask." Only the
// Int8-Cos path (Int8 Flat/IVF-Flat under the IP metric) has a kernel
// that accepts a mask; every other encoding's scan functions have no
// mask parameter, so multiindex must reject a filtered submission
// against them rather than silently ignoring the filter.
func (idx *Index) SupportsFilter() bool {
	int8Variant := idx.desc.Encoding == EncodingInt8Flat || idx.desc.Encoding == EncodingInt8IVFFlat
	return int8Variant && idx.desc.Metric == device.MetricIP
}

// SearchFiltered is Search with an optional per-query Selector: filters
// may be nil (no filtering at all) or, if non-nil, must have length n;
// a nil entry at position q means query q is unfiltered. Submitting a
// filter against an encoding SupportsFilter reports false is a
// submission-time failure, per spec.md §4.9.
func (idx *Index) SearchFiltered(ctx context.Context, queries []float32, n, k int, filters []Selector) ([][]device.Entry, error) {
	if filters != nil && !idx.SupportsFilter() {
		return nil, verrors.New(verrors.UnsupportedConfiguration, "index.Index.SearchFiltered",
			"this encoding's distance kernel does not support a query filter")
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.trained {
		return nil, verrors.New(verrors.NotTrained, "index.Index.SearchFiltered", "index must be trained before search")
	}
	if filters != nil && len(filters) != n {
		return nil, verrors.New(verrors.InvalidArgument, "index.Index.SearchFiltered", "filters length must equal n")
	}

	searchers := make([]host.DeviceSearcher, idx.numDevices)
	for d := 0; d < idx.numDevices; d++ {
		d := d
		searchers[d] = func(ctx context.Context, qs []float32, qn, qk int) ([][]device.Entry, error) {
			return idx.searchDevice(ctx, d, qs, qn, qk, filters)
		}
	}
	return host.NewOrchestrator(searchers, idx.desc.Metric).Search(ctx, queries, n, idx.desc.Dim, k)
}

func filterForQuery(filters []Selector, q int) Selector {
	if filters == nil {
		return nil
	}
	return filters[q]
}

func buildMask(filter Selector, ids []uint32) []bool {
	if filter == nil {
		return nil
	}
	mask := make([]bool, len(ids))
	for i, id := range ids {
		mask[i] = filter.Match(id)
	}
	return mask
}

func (idx *Index) searchDevice(ctx context.Context, d int, queries []float32, n, k int, filters []Selector) ([][]device.Entry, error) {
	dim := idx.desc.Dim
	metric := idx.desc.Metric

	if !idx.desc.Encoding.ivf() {
		base := idx.flatBases[d]
		elemSize := idx.desc.elementSize()
		switch idx.desc.Encoding {
		case EncodingFlat:
			scan := func(q, tileStart, tileLen int, tileOrder uint64) []device.Entry {
				query := queries[q*dim : (q+1)*dim]
				codes := base.Codes()[tileStart*elemSize : (tileStart+tileLen)*elemSize]
				ids := base.IDs()[tileStart : tileStart+tileLen]
				return device.ScanTileFlat(query, codes, ids, tileLen, dim, metric, tileOrder)
			}
			return device.FlatSearch(ctx, queries, n, dim, base.Len(), k, metric, scan)
		case EncodingInt8Flat:
			scan := func(q, tileStart, tileLen int, tileOrder uint64) []device.Entry {
				query := quantizeQueryInt8(queries[q*dim : (q+1)*dim])
				codes := bytesToInt8(base.Codes()[tileStart*elemSize : (tileStart+tileLen)*elemSize])
				ids := base.IDs()[tileStart : tileStart+tileLen]
				if metric == device.MetricIP {
					mask := buildMask(filterForQuery(filters, q), ids)
					return device.ScanTileInt8Cos(query, codes, ids, mask, tileLen, dim, tileOrder)
				}
				return device.ScanTileInt8L2(query, codes, ids, tileLen, dim, tileOrder)
			}
			return device.FlatSearch(ctx, queries, n, dim, base.Len(), k, metric, scan)
		}
	}

	store := idx.ivfStores[d]
	listLen := func(listID int) int {
		l, err := store.ListLength(listID)
		if err != nil {
			return 0
		}
		return l
	}

	var luts [][]float32
	if idx.desc.Encoding == EncodingIVFPQ {
		luts = make([][]float32, n)
		for q := 0; q < n; q++ {
			lut, err := idx.pq.BuildLUT(queries[q*dim : (q+1)*dim])
			if err != nil {
				return nil, err
			}
			luts[q] = lut
		}
	}

	scan := func(q, listID, tileStart, tileLen int, tileOrder uint64) []device.Entry {
		list, err := store.List(listID)
		if err != nil || list == nil {
			return nil
		}
		ids := list.IDs()[tileStart : tileStart+tileLen]

		switch idx.desc.Encoding {
		case EncodingIVFFlat:
			query := queries[q*dim : (q+1)*dim]
			full := list.GetListCodesReshaped()
			codes := full[tileStart*2*dim : (tileStart+tileLen)*2*dim]
			return device.ScanTileFlat(query, codes, ids, tileLen, dim, metric, tileOrder)
		case EncodingIVFSQ8:
			query := queries[q*dim : (q+1)*dim]
			full := list.GetListCodesReshaped()
			codes := full[tileStart*dim : (tileStart+tileLen)*dim]
			var precompute []float32
			if full := list.Precompute(); full != nil {
				precompute = full[tileStart : tileStart+tileLen]
			}
			return device.ScanTileSQ8(query, codes, ids, precompute, idx.sq, tileLen, metric, tileOrder)
		case EncodingIVFPQ:
			full := list.GetListCodesReshaped()
			codes := full[tileStart*idx.desc.M : (tileStart+tileLen)*idx.desc.M]
			return device.ScanTilePQ(luts[q], codes, ids, tileLen, idx.desc.M, tileOrder)
		case EncodingInt8IVFFlat:
			query := quantizeQueryInt8(queries[q*dim : (q+1)*dim])
			full := list.GetListCodesReshaped()
			codes := bytesToInt8(full[tileStart*dim : (tileStart+tileLen)*dim])
			if metric == device.MetricIP {
				mask := buildMask(filterForQuery(filters, q), ids)
				return device.ScanTileInt8Cos(query, codes, ids, mask, tileLen, dim, tileOrder)
			}
			return device.ScanTileInt8L2(query, codes, ids, tileLen, dim, tileOrder)
		default:
			return nil
		}
	}

	return device.IVFSearch(ctx, queries, n, dim, idx.desc.K1, idx.coarseCentroids, idx.desc.NProbe, k, metric, listLen, scan)
}

// bytesToInt8 reinterprets stored code bytes as signed bytes: codes were
// written via byte(int8(...)) in encodeInt8Row, so the bit pattern
// round-trips directly.
func bytesToInt8(b []byte) []int8 {
	out := make([]int8, len(b))
	for i, v := range b {
		out[i] = int8(v)
	}
	return out
}

// quantizeQueryInt8 rounds a float32 query row into signed-byte range
// the same way encodeInt8Row rounds stored vectors: Search's public
// signature is uniform float32 across every encoding, so int8-variant
// queries are quantized here rather than requiring a separate
// int8-typed query API.
func quantizeQueryInt8(row []float32) []int8 {
	out := make([]int8, len(row))
	for i, v := range row {
		r := v
		if r > 127 {
			r = 127
		}
		if r < -128 {
			r = -128
		}
		out[i] = int8(r + 0.5*sign(r))
	}
	return out
}
