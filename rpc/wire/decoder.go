package wire

import (
	"bytes"
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// MaxCommandSize bounds the length of a single request line. A peer that
	// streams more than this without a terminator cannot be re-synchronized
	// and must be disconnected.
	MaxCommandSize = 1 << 20 // 1 MB
)

// ErrCommandTooLarge is returned by Decoder.Next when the pending partial
// frame exceeds MaxCommandSize. Unlike an ordinary parse error it is fatal
// to the connection.
var ErrCommandTooLarge = errors.New("command exceeds maximum frame size")

// --------------------------------------------------------------------------
// Streaming Decoder
// --------------------------------------------------------------------------

// Decoder turns a byte stream into a sequence of commands. It owns a
// buffer-plus-cursor for exactly one connection and must never be shared.
//
// The decoder consumes only complete lines: an incomplete trailing fragment
// stays buffered until more bytes arrive. It never blocks waiting for input
// itself; "need more input" is a distinct outcome of Next.
type Decoder struct {
	buf []byte
}

// NewDecoder creates a decoder with an empty buffer.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends raw bytes read from the transport to the decode buffer.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Next tries to decode the next complete command from the buffer.
//
// The three outcomes are:
//   - ok=true, err=nil:  a command was parsed and consumed
//   - ok=false, err=nil: no complete line is buffered, feed more bytes
//   - err!=nil:          the line was malformed; it has been consumed and
//     the connection may continue (except for ErrCommandTooLarge)
func (d *Decoder) Next() (cmd Command, ok bool, err error) {
	idx := bytes.IndexByte(d.buf, '\n')
	if idx < 0 {
		if len(d.buf) > MaxCommandSize {
			return Command{}, false, ErrCommandTooLarge
		}
		return Command{}, false, nil
	}

	line := string(d.buf[:idx])
	d.buf = d.buf[idx+1:]

	cmd, parseErr := ParseCommand(line)
	if parseErr != nil {
		return Command{}, false, fmt.Errorf("parse error: %w", parseErr)
	}
	return cmd, true, nil
}

// Buffered returns the number of pending not-yet-framed bytes. A non-zero
// value at end-of-stream means the peer disconnected mid-command.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}
