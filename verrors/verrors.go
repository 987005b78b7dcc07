// Package verrors defines the abstract error kinds shared by every
// layer of the engine (rpc, devmem, device, host, index) and the
// concrete error type that carries one. Kinds can be matched
// programmatically with Is and KindOf; causes are wrapped with
// github.com/pkg/errors so a
// failure surfaced at the public Index.Search call still carries the
// full stack from wherever it actually originated.
package verrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is one of the abstract error categories from the design's error
// handling section. It is never extended with a "common.go" message
// string; callers switch on Kind, not on a message.
type Kind int

const (
	// InvalidArgument covers null pointers, n < 0, k < 1, dimension
	// mismatches, NaN/Inf input, out-of-range list ids, and batch
	// counts above the 2^31 ceiling.
	InvalidArgument Kind = iota
	// NotTrained is returned by any mutating or searching operation
	// on an index that has not completed Train.
	NotTrained
	// Capacity is returned when the device stack arena is exhausted
	// on a request that cannot be paged any smaller.
	Capacity
	// TransportFailure wraps any RPC reply with a non-OK error code,
	// or any framing error detected while reading a response.
	TransportFailure
	// DeviceTimeout is returned when a flag-poll deadline elapses
	// before the device signals completion.
	DeviceTimeout
	// UnsupportedConfiguration covers qtypes other than 8-bit,
	// dimensions that are not a multiple of 16, metrics other than L2
	// or inner product, and clones between incompatible variants.
	UnsupportedConfiguration
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid_argument"
	case NotTrained:
		return "not_trained"
	case Capacity:
		return "capacity"
	case TransportFailure:
		return "transport_failure"
	case DeviceTimeout:
		return "device_timeout"
	case UnsupportedConfiguration:
		return "unsupported_configuration"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned across package boundaries.
// It always carries a Kind so callers can switch on Kind(err) without
// string matching, and a human message for logs.
type Error struct {
	Kind Kind
	msg  string
	wire string
	Op   string
	err  error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.err }

// New builds a new Error of the given kind from msg alone; the only
// wrapped value is a stack-carrying error holding the same msg.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, msg: msg, err: errors.New(msg)}
}

// Wrap attaches a Kind and stack trace to an existing error. If cause
// is nil, Wrap returns a nil *Error; stored in an error interface that
// value compares non-nil, so callers wrap only a cause already known
// to be non-nil.
func Wrap(kind Kind, op string, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, msg: cause.Error(), err: errors.WithStack(cause)}
}

// Wrapf is Wrap with a formatted message prefix.
func Wrapf(kind Kind, op string, cause error, format string, args ...any) *Error {
	if cause == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	return &Error{Kind: kind, Op: op, msg: msg, err: errors.Wrap(cause, msg)}
}

// KindOf returns the Kind carried by err, or false if err is nil or
// not a *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
