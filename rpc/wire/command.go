package wire

import (
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Verb Definition
// --------------------------------------------------------------------------

// Verb identifies the operation a client command requests.
type Verb uint8

const (
	VerbUnknown Verb = iota
	VerbSet
	VerbGet
	VerbDelete
)

// String returns the wire spelling of the verb.
func (v Verb) String() string {
	switch v {
	case VerbSet:
		return "SET"
	case VerbGet:
		return "GET"
	case VerbDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// --------------------------------------------------------------------------
// Command Structure
// --------------------------------------------------------------------------

// Command is one fully parsed client request.
type Command struct {
	Verb  Verb
	Key   string
	Value string // Only used for SET
}

// Mutating reports whether the command changes store state and therefore
// must be logged to the WAL before it is applied.
func (c Command) Mutating() bool {
	return c.Verb == VerbSet || c.Verb == VerbDelete
}

// --------------------------------------------------------------------------
// Command Parsing
// --------------------------------------------------------------------------

// ParseCommand parses one complete request line (without its terminator).
//
// Grammar, one command per line:
//
//	SET <key> <value>   value is the rest of the line and may contain spaces
//	GET <key>
//	DELETE <key>
//
// The key is a single non-whitespace token. Verbs are case-sensitive.
func ParseCommand(line string) (Command, error) {
	// Tolerate a stray CR when the peer terminated with a bare LF upstream
	line = strings.TrimSuffix(line, "\r")

	if line == "" {
		return Command{}, fmt.Errorf("empty command")
	}

	verb, rest, _ := strings.Cut(line, " ")
	switch verb {
	case "SET":
		key, value, found := strings.Cut(rest, " ")
		if !found {
			return Command{}, fmt.Errorf("SET requires a key and a value")
		}
		if key == "" {
			return Command{}, fmt.Errorf("SET requires a non-empty key")
		}
		return Command{Verb: VerbSet, Key: key, Value: value}, nil

	case "GET":
		if err := validateKey("GET", rest); err != nil {
			return Command{}, err
		}
		return Command{Verb: VerbGet, Key: rest}, nil

	case "DELETE":
		if err := validateKey("DELETE", rest); err != nil {
			return Command{}, err
		}
		return Command{Verb: VerbDelete, Key: rest}, nil

	default:
		return Command{}, fmt.Errorf("unknown command %q", verb)
	}
}

// validateKey checks the single-key form used by GET and DELETE.
func validateKey(verb, key string) error {
	if key == "" {
		return fmt.Errorf("%s requires a non-empty key", verb)
	}
	if strings.Contains(key, " ") {
		return fmt.Errorf("%s takes exactly one key", verb)
	}
	return nil
}
