package wal

import (
	"encoding/json"
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Command Type Definition
// --------------------------------------------------------------------------

// CommandType defines the kind of mutation a WAL record carries.
type CommandType uint8

const (
	CommandUnknown CommandType = iota
	CommandSet                 // Set a key-value pair
	CommandDelete              // Delete a key
)

// String returns the string representation of a CommandType.
func (t CommandType) String() string {
	switch t {
	case CommandSet:
		return "Set"
	case CommandDelete:
		return "Delete"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Command Structure
// --------------------------------------------------------------------------

// Command is the mutation payload of a WAL record. Only mutating operations
// are ever logged; reads never reach the WAL.
type Command struct {
	Type  CommandType
	Key   string
	Value string // Only used for Set
}

// NewSetCommand creates a Set command
func NewSetCommand(key, value string) Command {
	return Command{Type: CommandSet, Key: key, Value: value}
}

// NewDeleteCommand creates a Delete command
func NewDeleteCommand(key string) Command {
	return Command{Type: CommandDelete, Key: key}
}

// --------------------------------------------------------------------------
// Record Structure
// --------------------------------------------------------------------------

// Record is one durable WAL entry: a mutation plus the wall-clock time it
// was appended, serialized as a single JSON object per line.
//
// On-disk shape:
//
//	{"timestamp": 1712345678901, "command": {"Set": {"key": "a", "value": "1"}}}
//	{"timestamp": 1712345678902, "command": {"Delete": {"key": "a"}}}
type Record struct {
	Timestamp int64 // milliseconds since epoch
	Command   Command
}

// NewRecord creates a record for the given command, stamped with the current
// wall-clock time.
func NewRecord(cmd Command) Record {
	return Record{
		Timestamp: time.Now().UnixMilli(),
		Command:   cmd,
	}
}

// --------------------------------------------------------------------------
// JSON Encoding
// --------------------------------------------------------------------------

// The command object is externally tagged: the variant name is the single
// key of the "command" object. These wire structs pin that shape.

type setPayload struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type deletePayload struct {
	Key string `json:"key"`
}

type commandWire struct {
	Set    *setPayload    `json:"Set,omitempty"`
	Delete *deletePayload `json:"Delete,omitempty"`
}

type recordWire struct {
	Timestamp int64       `json:"timestamp"`
	Command   commandWire `json:"command"`
}

// MarshalJSON implements the json.Marshaler interface for Record.
func (r Record) MarshalJSON() ([]byte, error) {
	wire := recordWire{Timestamp: r.Timestamp}

	switch r.Command.Type {
	case CommandSet:
		wire.Command.Set = &setPayload{Key: r.Command.Key, Value: r.Command.Value}
	case CommandDelete:
		wire.Command.Delete = &deletePayload{Key: r.Command.Key}
	default:
		return nil, fmt.Errorf("cannot marshal record with command type %s", r.Command.Type)
	}

	return json.Marshal(wire)
}

// UnmarshalJSON implements the json.Unmarshaler interface for Record.
// A record must carry exactly one command variant.
func (r *Record) UnmarshalJSON(data []byte) error {
	var wire recordWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	switch {
	case wire.Command.Set != nil && wire.Command.Delete != nil:
		return fmt.Errorf("record carries more than one command variant")
	case wire.Command.Set != nil:
		r.Command = NewSetCommand(wire.Command.Set.Key, wire.Command.Set.Value)
	case wire.Command.Delete != nil:
		r.Command = NewDeleteCommand(wire.Command.Delete.Key)
	default:
		return fmt.Errorf("record carries no command variant")
	}

	r.Timestamp = wire.Timestamp
	return nil
}
