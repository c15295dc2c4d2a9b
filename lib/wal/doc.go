// Package wal implements the write-ahead log that makes the in-memory store
// durable. Every mutation is appended to the log and synced to stable
// storage before it is applied to the store, so the log alone can always
// reconstruct the exact store state after a crash.
//
// The package focuses on:
//   - A newline-delimited, JSON-per-line on-disk format
//   - Append durability: Append returns only after write, flush and fsync
//   - Sequential replay that tolerates a crash-truncated trailing record
//   - Manual compaction via Rewrite (snapshot to temp file, atomic rename)
//
// Key Components:
//
//   - Record / Command: The durable entry type. A record pairs a mutation
//     (Set or Delete) with a millisecond wall-clock timestamp and serializes
//     to an externally tagged JSON object, one object per line.
//
//   - Writer: The single shared append sink. All appends across all
//     connections run through one mutex, which makes the file order a total
//     order consistent with the order mutations are applied to the store.
//
//   - Replay: One-shot sequential reader used at startup, before any
//     connection is accepted. Replaying records in file order against an
//     empty store reproduces the pre-crash store exactly; a Delete for an
//     absent key is a no-op during replay, not an error.
//
// Thread Safety:
//
//	Writer is safe for concurrent use. Replay is not; it is designed to run
//	once during startup while nothing else touches the file.
package wal
