package rpc

import (
	"bytes"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMessageEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	m := Message{Kind: KindIndexSearch, Err: ErrorNone, Payload: []byte("query-bytes")}
	require.NoError(t, m.Encode(&buf))

	got, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, m.Kind, got.Kind)
	require.Equal(t, m.Err, got.Err)
	require.Equal(t, m.Payload, got.Payload)
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	var buf bytes.Buffer
	m := Message{Kind: Kind(9999), Payload: nil}
	require.NoError(t, m.Encode(&buf))

	_, err := Decode(&buf)
	require.Error(t, err)
}

// pipeTransport adapts a net.Conn half to the Transport interface.
type pipeTransport struct {
	net.Conn
}

func TestSessionCallRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		req, err := Decode(server)
		if err != nil {
			return
		}
		resp := Message{Kind: req.Kind, Err: ErrorNone, Payload: []byte("ok")}
		_ = resp.Encode(server)
	}()

	sess := NewSession("dev0", pipeTransport{client})
	resp, err := sess.Call(Message{Kind: KindIndexFlatAdd, Payload: []byte("vecs")})
	require.NoError(t, err)
	require.Equal(t, []byte("ok"), resp.Payload)
}

func TestSessionCallSurfacesDeviceError(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		req, err := Decode(server)
		if err != nil {
			return
		}
		resp := Message{Kind: req.Kind, Err: ErrorFailure, Payload: []byte("capacity exceeded")}
		_ = resp.Encode(server)
	}()

	sess := NewSession("dev0", pipeTransport{client})
	_, err := sess.Call(Message{Kind: KindIndexFlatAdd, Payload: []byte("vecs")})
	require.Error(t, err)
}

func TestSessionProbeDetectsMismatch(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		req, err := Decode(server)
		if err != nil {
			return
		}
		resp := Message{Kind: req.Kind, Err: ErrorNone, Payload: []byte("corrupted")}
		_ = resp.Encode(server)
	}()

	sess := NewSession("dev0", pipeTransport{client})
	ok, err := sess.Probe([]byte("expected"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSessionCallAfterCloseFails(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	sess := NewSession("dev0", pipeTransport{client})
	require.NoError(t, sess.Close())

	_, err := sess.Call(Message{Kind: KindIndexSearch})
	require.Error(t, err)
}

func TestBulkFrameStreamTerminatesOnSentinel(t *testing.T) {
	var buf bytes.Buffer
	w := NewBulkWriter(&buf)
	require.NoError(t, w.Write(BulkFrame{ListID: 3, ListSize: 2, CodeSize: 4, Payload: make([]byte, 8)}))
	require.NoError(t, w.Write(BulkFrame{ListID: 7, ListSize: 1, CodeSize: 4, Payload: make([]byte, 4)}))
	require.NoError(t, w.Finish())

	r := NewBulkReader(&buf)
	frames, err := DrainAll(r)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	require.Equal(t, uint32(3), frames[0].ListID)
	require.Equal(t, uint32(7), frames[1].ListID)

	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestBulkFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	f := BulkFrame{ListID: 1, ListSize: 1 << 30, CodeSize: 1 << 30}
	hdr := bytes.Buffer{}
	require.NoError(t, f.Encode(&hdr))
	buf.Write(hdr.Bytes()[:bulkFrameHeaderSize])

	_, err := DecodeBulkFrame(&buf)
	require.Error(t, err)
}

func TestKindStringAndValid(t *testing.T) {
	require.True(t, KindIndexSearch.Valid())
	require.False(t, Kind(0).Valid())
	require.Equal(t, "INDEX_SEARCH", KindIndexSearch.String())
	require.Equal(t, "UNKNOWN", Kind(0).String())
}

func TestSessionCallTimesOutOnSlowDeviceIsCallerResponsibility(t *testing.T) {
	// Documents that Session.Call itself has no deadline; callers that
	// need a bound wrap the transport with a deadline-aware net.Conn.
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	require.NoError(t, client.SetDeadline(time.Now().Add(5*time.Millisecond)))

	sess := NewSession("dev0", pipeTransport{client})
	_, err := sess.Call(Message{Kind: KindIndexSearch})
	require.Error(t, err)
}
