// Package rpc implements the RPC Transport component (C4): a framed,
// reliable, ordered byte-channel session to one device, a fast-bulk
// secondary channel for list-bulk-extract, and an integrity probe.
// Grounded in spirit on the binary, length-prefixed framing style of
// compactindexsized (other_examples) and the teacher's preference for
// small, explicit wire structs over reflection-based codecs.
package rpc

// Kind is the 16-bit little-endian message kind every framed message
// carries. The enum is closed: an unrecognized kind on the wire is a
// framing error, not a forward-compatible no-op.
type Kind uint16

const (
	KindCreateIndexFlat Kind = iota + 1
	KindCreateIndexIVFPQ
	KindCreateIndexIVFSQ
	KindCreateIndexIVFFlat
	KindCreateIndexInt8Flat
	KindCreateIndexInt8IVFFlat
	KindCreateIndexPreTransform

	KindDestroyIndex

	KindIndexReset
	KindIndexReserveMem
	KindIndexReclaimMem

	KindIndexIVFUpdateCoarseCent
	KindIndexIVFPQUpdatePQCent
	KindIndexSQUpdateTrainedValue

	KindIndexIVFUpdateNProbe

	KindIndexFlatAdd
	KindIndexIVFPQAdd
	KindIndexIVFSQAdd
	KindIndexInt8IVFFlatAdd

	KindIndexSearch

	KindIndexRemoveIDs
	KindIndexRemoveRangeIDs

	KindIndexFlatGetBaseSize
	KindIndexFlatGetBase
	KindIndexIVFGetListLength
	KindIndexIVFGetListCodes
	KindIndexIVFFastGetListCodes

	KindTestDataIntegrity
)

func (k Kind) String() string {
	switch k {
	case KindCreateIndexFlat:
		return "CREATE_INDEX_FLAT"
	case KindCreateIndexIVFPQ:
		return "CREATE_INDEX_IVFPQ"
	case KindCreateIndexIVFSQ:
		return "CREATE_INDEX_IVFSQ"
	case KindCreateIndexIVFFlat:
		return "CREATE_INDEX_IVFFLAT"
	case KindCreateIndexInt8Flat:
		return "CREATE_INDEX_INT8_FLAT"
	case KindCreateIndexInt8IVFFlat:
		return "CREATE_INDEX_INT8_IVFFLAT"
	case KindCreateIndexPreTransform:
		return "CREATE_INDEX_PRETRANSFORM"
	case KindDestroyIndex:
		return "DESTROY_INDEX"
	case KindIndexReset:
		return "INDEX_RESET"
	case KindIndexReserveMem:
		return "INDEX_RESERVE_MEM"
	case KindIndexReclaimMem:
		return "INDEX_RECLAIM_MEM"
	case KindIndexIVFUpdateCoarseCent:
		return "INDEX_IVF_UPDATE_COARSE_CENT"
	case KindIndexIVFPQUpdatePQCent:
		return "INDEX_IVFPQ_UPDATE_PQ_CENT"
	case KindIndexSQUpdateTrainedValue:
		return "INDEX_SQ_UPDATE_TRAINED_VALUE"
	case KindIndexIVFUpdateNProbe:
		return "INDEX_IVF_UPDATE_NPROBE"
	case KindIndexFlatAdd:
		return "INDEX_FLAT_ADD"
	case KindIndexIVFPQAdd:
		return "INDEX_IVFPQ_ADD"
	case KindIndexIVFSQAdd:
		return "INDEX_IVFSQ_ADD"
	case KindIndexInt8IVFFlatAdd:
		return "INDEX_INT8_IVFFLAT_ADD"
	case KindIndexSearch:
		return "INDEX_SEARCH"
	case KindIndexRemoveIDs:
		return "INDEX_REMOVE_IDS"
	case KindIndexRemoveRangeIDs:
		return "INDEX_REMOVE_RANGE_IDS"
	case KindIndexFlatGetBaseSize:
		return "INDEX_FLAT_GET_BASE_SIZE"
	case KindIndexFlatGetBase:
		return "INDEX_FLAT_GET_BASE"
	case KindIndexIVFGetListLength:
		return "INDEX_IVF_GET_LIST_LENGTH"
	case KindIndexIVFGetListCodes:
		return "INDEX_IVF_GET_LIST_CODES"
	case KindIndexIVFFastGetListCodes:
		return "INDEX_IVF_FAST_GET_LIST_CODES"
	case KindTestDataIntegrity:
		return "TEST_DATA_INTEGRITY"
	default:
		return "UNKNOWN"
	}
}

// validKinds is used to reject malformed frames that name a kind
// outside the closed enum, per spec.md §4.4 invariants.
var validKinds = map[Kind]bool{
	KindCreateIndexFlat: true, KindCreateIndexIVFPQ: true, KindCreateIndexIVFSQ: true,
	KindCreateIndexIVFFlat: true, KindCreateIndexInt8Flat: true, KindCreateIndexInt8IVFFlat: true,
	KindCreateIndexPreTransform: true, KindDestroyIndex: true, KindIndexReset: true,
	KindIndexReserveMem: true, KindIndexReclaimMem: true, KindIndexIVFUpdateCoarseCent: true,
	KindIndexIVFPQUpdatePQCent: true, KindIndexSQUpdateTrainedValue: true, KindIndexIVFUpdateNProbe: true,
	KindIndexFlatAdd: true, KindIndexIVFPQAdd: true, KindIndexIVFSQAdd: true, KindIndexInt8IVFFlatAdd: true,
	KindIndexSearch: true, KindIndexRemoveIDs: true, KindIndexRemoveRangeIDs: true,
	KindIndexFlatGetBaseSize: true, KindIndexFlatGetBase: true, KindIndexIVFGetListLength: true,
	KindIndexIVFGetListCodes: true, KindIndexIVFFastGetListCodes: true, KindTestDataIntegrity: true,
}

// Valid reports whether k is a recognized kind.
func (k Kind) Valid() bool { return validKinds[k] }

// ErrorCode is the two-valued transport result every response carries.
type ErrorCode uint16

const (
	ErrorNone ErrorCode = iota
	ErrorFailure
)
