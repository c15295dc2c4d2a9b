// Package db provides a standardized interface for key-value database
// implementations. It defines the KVDB interface that allows for consistent
// interaction with a storage backend while abstracting implementation details.
//
// The package focuses on:
//   - A unified interface for key-value operations
//   - Enforcing the locking discipline at one seam instead of call sites
//   - Treating "not found" as a normal result value, never an error
//
// Key Components:
//
//   - KVDB Interface: The core interface a database implementation must
//     satisfy. It provides basic operations (Set, Get, Has, Delete, Clear),
//     size reporting (Len) and iteration (ForEach).
//
// Implementations:
//
//	The memory engine (github.com/vaultkv/vaultkv/lib/db/engines/memory)
//	implements KVDB as a reader/writer-locked map. Multiple readers proceed
//	concurrently, writers get exclusive access for a single mutation.
//
// The sub-package testing contains a reusable conformance test and benchmark
// suite that any KVDB implementation can be run against.
package db
