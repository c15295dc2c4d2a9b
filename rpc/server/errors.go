package server

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Kinds
// --------------------------------------------------------------------------

// ErrKind classifies server errors by their handling policy, so callers
// dispatch on the kind instead of matching message strings.
//
// Note that "not found" is deliberately absent: it is a normal result value
// of the store, never an error.
type ErrKind uint8

const (
	// ErrKindTransport is a connection-level failure (broken pipe, reset).
	// It terminates the affected connection only.
	ErrKindTransport ErrKind = iota
	// ErrKindProtocol is a malformed command. It is reported to the peer
	// and the connection continues.
	ErrKindProtocol
	// ErrKindDurability is a WAL append/flush failure. It is reported to
	// the peer as a failed command; the store is left unmutated and the
	// connection continues.
	ErrKindDurability
	// ErrKindRecovery is a startup replay failure. It is fatal: the process
	// must not begin accepting connections.
	ErrKindRecovery
)

// String returns a human-readable name for the error kind.
func (k ErrKind) String() string {
	switch k {
	case ErrKindTransport:
		return "Transport"
	case ErrKindProtocol:
		return "Protocol"
	case ErrKindDurability:
		return "Durability"
	case ErrKindRecovery:
		return "Recovery"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the server's error type. It wraps an ErrKind, a message and an
// optional cause.
type Error struct {
	Kind  ErrKind // Classification for handling policy
	Msg   string  // The error message
	Cause error   // Underlying error, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given kind, message and cause.
func NewError(kind ErrKind, msg string, cause error) *Error {
	return &Error{
		Kind:  kind,
		Msg:   msg,
		Cause: cause,
	}
}

// IsKind reports whether err is a server Error of the given kind.
func IsKind(err error, kind ErrKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
