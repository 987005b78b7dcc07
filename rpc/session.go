package rpc

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/ascendfaiss/vectorengine/verrors"
)

// Transport is the minimal byte-stream a Session rides on. A real
// device link and an in-process pipe (used by tests) both satisfy it.
type Transport interface {
	io.Reader
	io.Writer
	io.Closer
}

// Session serializes request/response pairs over one Transport. The
// protocol is strictly one in-flight request at a time — every kind
// listed in spec.md §6 is a blocking call-and-response, so a single
// mutex is sufficient and no request-ID multiplexing is needed.
type Session struct {
	mu        sync.Mutex
	transport Transport
	reader    *bufio.Reader
	device    string
	closed    bool
}

// NewSession wraps transport for device.
func NewSession(device string, transport Transport) *Session {
	return &Session{transport: transport, reader: newBufferedReader(transport), device: device}
}

// Close closes the underlying transport. Outstanding calls, if any,
// will observe a transport failure on their next read or write.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.transport.Close()
}

// Call sends req and blocks for the matching response. The response's
// Kind is expected to equal req.Kind — the protocol has no separate
// "reply kind" namespace, a device just echoes the request kind back
// with its error code and result payload. A non-NONE error code on the
// reply is surfaced as a verrors.TransportFailure carrying the
// payload (used as a human-readable message by device-side handlers).
func (s *Session) Call(req Message) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Message{}, verrors.New(verrors.TransportFailure, "rpc.Session.Call", "session is closed")
	}
	if !req.Kind.Valid() {
		return Message{}, verrors.New(verrors.InvalidArgument, "rpc.Session.Call",
			fmt.Sprintf("unrecognized request kind %d", req.Kind))
	}

	if err := req.Encode(s.transport); err != nil {
		return Message{}, verrors.Wrapf(verrors.TransportFailure, "rpc.Session.Call", err, "device=%s", s.device)
	}

	resp, err := Decode(s.reader)
	if err != nil {
		return Message{}, verrors.Wrapf(verrors.TransportFailure, "rpc.Session.Call", err, "device=%s", s.device)
	}
	if resp.Kind != req.Kind {
		return Message{}, verrors.New(verrors.TransportFailure, "rpc.Session.Call",
			fmt.Sprintf("device=%s: reply kind %s does not match request kind %s", s.device, resp.Kind, req.Kind))
	}
	if resp.Err != ErrorNone {
		return resp, verrors.New(verrors.TransportFailure, "rpc.Session.Call",
			fmt.Sprintf("device=%s: %s returned error: %s", s.device, req.Kind, string(resp.Payload)))
	}
	return resp, nil
}

// Probe issues TEST_DATA_INTEGRITY with payload echoed back verbatim
// by a healthy device, and reports whether the echo matched.
func (s *Session) Probe(payload []byte) (bool, error) {
	resp, err := s.Call(Message{Kind: KindTestDataIntegrity, Payload: payload})
	if err != nil {
		return false, err
	}
	if len(resp.Payload) != len(payload) {
		return false, nil
	}
	for i := range payload {
		if resp.Payload[i] != payload[i] {
			return false, nil
		}
	}
	return true, nil
}
