// Package wire implements the text protocol spoken between clients and the
// vaultkv server: stateless translation between raw byte frames and typed
// commands and responses.
//
// The protocol is line-oriented, one command per line, CRLF-terminated:
//
//	SET <key> <value>     ->  OK | ERROR <message>
//	GET <key>             ->  VALUE <value> | NOT_FOUND
//	DELETE <key>          ->  OK | ERROR <message>
//
// The key is a single non-whitespace token; the SET value is the remainder
// of the line and may contain embedded whitespace. Bare LF terminators are
// accepted on input; responses are always CRLF-terminated.
//
// Key Components:
//
//   - Command / ParseCommand: typed request representation and the
//     per-line parser. Malformed input yields an error with a
//     human-readable diagnostic; it never terminates the connection.
//
//   - Decoder: the streaming side of the codec. It owns one connection's
//     buffer-plus-cursor, consumes only complete lines, and reports "need
//     more input" as an outcome distinct from both "parsed" and
//     "malformed". Feeding a command in arbitrary fragments yields exactly
//     the commands a single-shot delivery would.
//
//   - Response / ParseResponse: typed reply representation with symmetric
//     encode (server) and decode (client) halves.
//
// Thread Safety:
//
//	ParseCommand, ParseResponse and Response are stateless and safe for
//	concurrent use. A Decoder belongs to exactly one connection loop and
//	must not be shared.
package wire
