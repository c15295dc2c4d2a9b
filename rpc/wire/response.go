package wire

import (
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Response Type Definition
// --------------------------------------------------------------------------

// ResponseType identifies the kind of server response.
type ResponseType uint8

const (
	RespOK ResponseType = iota
	RespValue
	RespNotFound
	RespError
)

// String returns the wire spelling of the response type.
func (t ResponseType) String() string {
	switch t {
	case RespOK:
		return "OK"
	case RespValue:
		return "VALUE"
	case RespNotFound:
		return "NOT_FOUND"
	case RespError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// --------------------------------------------------------------------------
// Response Structure
// --------------------------------------------------------------------------

// Response is one server reply. Every request produces exactly one response
// line, terminated the same way as requests.
type Response struct {
	Type  ResponseType
	Value string // Only used for RespValue
	Err   string // Only used for RespError
}

// --------------------------------------------------------------------------
// Response Factory Functions
// --------------------------------------------------------------------------

// NewOKResponse creates an OK response
func NewOKResponse() Response {
	return Response{Type: RespOK}
}

// NewValueResponse creates a VALUE response carrying the requested value
func NewValueResponse(value string) Response {
	return Response{Type: RespValue, Value: value}
}

// NewNotFoundResponse creates a NOT_FOUND response
func NewNotFoundResponse() Response {
	return Response{Type: RespNotFound}
}

// NewErrorResponse creates an ERROR response carrying a diagnostic message
func NewErrorResponse(err error) Response {
	return Response{Type: RespError, Err: err.Error()}
}

// --------------------------------------------------------------------------
// Response Encoding / Decoding
// --------------------------------------------------------------------------

// Bytes serializes the response to its CRLF-terminated wire form.
func (r Response) Bytes() []byte {
	switch r.Type {
	case RespOK:
		return []byte("OK\r\n")
	case RespValue:
		return []byte("VALUE " + r.Value + "\r\n")
	case RespNotFound:
		return []byte("NOT_FOUND\r\n")
	default:
		return []byte("ERROR " + r.Err + "\r\n")
	}
}

// ParseResponse parses one response line (without its terminator).
// It is the client-side counterpart of Bytes.
func ParseResponse(line string) (Response, error) {
	line = strings.TrimSuffix(line, "\r")

	switch {
	case line == "OK":
		return NewOKResponse(), nil
	case line == "NOT_FOUND":
		return NewNotFoundResponse(), nil
	case strings.HasPrefix(line, "VALUE "):
		return NewValueResponse(strings.TrimPrefix(line, "VALUE ")), nil
	case strings.HasPrefix(line, "ERROR "):
		return Response{Type: RespError, Err: strings.TrimPrefix(line, "ERROR ")}, nil
	default:
		return Response{}, fmt.Errorf("malformed response line %q", line)
	}
}
