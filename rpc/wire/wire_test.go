package wire

import (
	"errors"
	"strings"
	"testing"
)

// --------------------------------------------------------------------------
// Command parsing tests
// --------------------------------------------------------------------------

func TestParseCommand(t *testing.T) {
	cases := []struct {
		name     string
		line     string
		expected Command
	}{
		{"Set", "SET mykey myvalue", Command{Verb: VerbSet, Key: "mykey", Value: "myvalue"}},
		{"SetValueWithSpaces", "SET mykey a value with spaces", Command{Verb: VerbSet, Key: "mykey", Value: "a value with spaces"}},
		{"SetEmptyValue", "SET mykey ", Command{Verb: VerbSet, Key: "mykey", Value: ""}},
		{"SetTrailingCR", "SET mykey myvalue\r", Command{Verb: VerbSet, Key: "mykey", Value: "myvalue"}},
		{"Get", "GET mykey", Command{Verb: VerbGet, Key: "mykey"}},
		{"Delete", "DELETE mykey", Command{Verb: VerbDelete, Key: "mykey"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd, err := ParseCommand(tc.line)
			if err != nil {
				t.Fatalf("ParseCommand(%q) failed: %v", tc.line, err)
			}
			if cmd != tc.expected {
				t.Errorf("Expected %+v, got %+v", tc.expected, cmd)
			}
		})
	}
}

func TestParseCommandMalformed(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"Empty", ""},
		{"OnlyCR", "\r"},
		{"UnknownVerb", "PUT mykey myvalue"},
		{"LowercaseVerb", "set mykey myvalue"},
		{"SetMissingValue", "SET mykey"},
		{"SetMissingAll", "SET"},
		{"SetEmptyKey", "SET  leading-space-value"},
		{"GetMissingKey", "GET"},
		{"GetEmptyKey", "GET "},
		{"GetExtraToken", "GET mykey extra"},
		{"DeleteMissingKey", "DELETE"},
		{"DeleteExtraToken", "DELETE mykey extra"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseCommand(tc.line); err == nil {
				t.Errorf("Expected ParseCommand(%q) to fail", tc.line)
			}
		})
	}
}

func TestCommandMutating(t *testing.T) {
	if !(Command{Verb: VerbSet}).Mutating() {
		t.Errorf("Expected SET to be mutating")
	}
	if !(Command{Verb: VerbDelete}).Mutating() {
		t.Errorf("Expected DELETE to be mutating")
	}
	if (Command{Verb: VerbGet}).Mutating() {
		t.Errorf("Expected GET to not be mutating")
	}
}

// --------------------------------------------------------------------------
// Decoder tests
// --------------------------------------------------------------------------

func TestDecoderSingleShot(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte("SET a 1\r\n"))

	cmd, ok, err := d.Next()
	if err != nil || !ok {
		t.Fatalf("Expected a parsed command, got ok=%t err=%v", ok, err)
	}
	if cmd.Verb != VerbSet || cmd.Key != "a" || cmd.Value != "1" {
		t.Errorf("Unexpected command %+v", cmd)
	}

	// Buffer drained
	if _, ok, err := d.Next(); ok || err != nil {
		t.Errorf("Expected need-more-input after draining, got ok=%t err=%v", ok, err)
	}
	if d.Buffered() != 0 {
		t.Errorf("Expected empty buffer, got %d bytes", d.Buffered())
	}
}

func TestDecoderPartialFrames(t *testing.T) {
	d := NewDecoder()

	// Split mid-token: no command until the terminator arrives
	d.Feed([]byte("SET my"))
	if _, ok, err := d.Next(); ok || err != nil {
		t.Fatalf("Expected need-more-input on partial frame, got ok=%t err=%v", ok, err)
	}
	if d.Buffered() != len("SET my") {
		t.Errorf("Expected partial frame to stay buffered")
	}

	d.Feed([]byte("key myval"))
	if _, ok, err := d.Next(); ok || err != nil {
		t.Fatalf("Expected need-more-input before terminator, got ok=%t err=%v", ok, err)
	}

	d.Feed([]byte("ue\r\n"))
	cmd, ok, err := d.Next()
	if err != nil || !ok {
		t.Fatalf("Expected a parsed command after terminator, got ok=%t err=%v", ok, err)
	}

	// Exactly what single-shot delivery of the same bytes would yield
	single := NewDecoder()
	single.Feed([]byte("SET mykey myvalue\r\n"))
	expected, _, _ := single.Next()
	if cmd != expected {
		t.Errorf("Expected fragmented parse %+v to equal single-shot parse %+v", cmd, expected)
	}
}

func TestDecoderPipelinedCommands(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte("SET a 1\r\nGET a\r\nDELETE a\r\n"))

	expected := []Verb{VerbSet, VerbGet, VerbDelete}
	for i, verb := range expected {
		cmd, ok, err := d.Next()
		if err != nil || !ok {
			t.Fatalf("Command %d: expected parse, got ok=%t err=%v", i, ok, err)
		}
		if cmd.Verb != verb {
			t.Errorf("Command %d: expected verb %s, got %s", i, verb, cmd.Verb)
		}
	}

	if _, ok, _ := d.Next(); ok {
		t.Errorf("Expected decoder to be drained")
	}
}

func TestDecoderBareLF(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte("GET mykey\n"))

	cmd, ok, err := d.Next()
	if err != nil || !ok {
		t.Fatalf("Expected bare-LF input to parse, got ok=%t err=%v", ok, err)
	}
	if cmd.Key != "mykey" {
		t.Errorf("Unexpected command %+v", cmd)
	}
}

func TestDecoderMalformedLineContinues(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte("BOGUS nope\r\nGET a\r\n"))

	_, ok, err := d.Next()
	if err == nil {
		t.Fatalf("Expected a parse error for the malformed line")
	}
	if ok {
		t.Errorf("Expected ok=false on malformed line")
	}

	// The malformed line is consumed; the stream stays usable
	cmd, ok, err := d.Next()
	if err != nil || !ok {
		t.Fatalf("Expected the following command to parse, got ok=%t err=%v", ok, err)
	}
	if cmd.Verb != VerbGet || cmd.Key != "a" {
		t.Errorf("Unexpected command %+v", cmd)
	}
}

func TestDecoderCommandTooLarge(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte(strings.Repeat("x", MaxCommandSize+1)))

	_, _, err := d.Next()
	if !errors.Is(err, ErrCommandTooLarge) {
		t.Errorf("Expected ErrCommandTooLarge, got %v", err)
	}
}

// --------------------------------------------------------------------------
// Response tests
// --------------------------------------------------------------------------

func TestResponseBytes(t *testing.T) {
	cases := []struct {
		name     string
		resp     Response
		expected string
	}{
		{"OK", NewOKResponse(), "OK\r\n"},
		{"Value", NewValueResponse("test"), "VALUE test\r\n"},
		{"ValueWithSpaces", NewValueResponse("a b c"), "VALUE a b c\r\n"},
		{"NotFound", NewNotFoundResponse(), "NOT_FOUND\r\n"},
		{"Error", NewErrorResponse(errors.New("test error")), "ERROR test error\r\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := string(tc.resp.Bytes()); got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestParseResponseRoundTrip(t *testing.T) {
	responses := []Response{
		NewOKResponse(),
		NewValueResponse("some value with spaces"),
		NewNotFoundResponse(),
		NewErrorResponse(errors.New("something failed")),
	}

	for _, resp := range responses {
		line := strings.TrimSuffix(string(resp.Bytes()), "\r\n")
		decoded, err := ParseResponse(line)
		if err != nil {
			t.Fatalf("ParseResponse(%q) failed: %v", line, err)
		}
		if decoded != resp {
			t.Errorf("Expected %+v after round trip, got %+v", resp, decoded)
		}
	}
}

func TestParseResponseMalformed(t *testing.T) {
	for _, line := range []string{"", "YES", "VALUE", "ERROR"} {
		if _, err := ParseResponse(line); err == nil {
			t.Errorf("Expected ParseResponse(%q) to fail", line)
		}
	}
}

// --------------------------------------------------------------------------
// Benchmarks
// --------------------------------------------------------------------------

func BenchmarkParseCommand(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = ParseCommand("SET benchmark-key a medium sized value for benchmarks")
	}
}

func BenchmarkDecoder(b *testing.B) {
	payload := []byte("SET benchmark-key benchmark-value\r\n")
	d := NewDecoder()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Feed(payload)
		if _, ok, err := d.Next(); !ok || err != nil {
			b.Fatalf("unexpected decode outcome: ok=%t err=%v", ok, err)
		}
	}
}
