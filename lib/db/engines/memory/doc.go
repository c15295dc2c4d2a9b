// Package memory implements the db.KVDB interface as a single in-memory map
// guarded by a reader/writer lock.
//
// Concurrency model:
//
//  1. Any number of readers (Get, Has, Len, ForEach) proceed concurrently.
//  2. A writer (Set, Delete, Clear) holds the lock exclusively for the
//     duration of its single mutation, so no caller ever observes a
//     partially applied write.
//  3. sync.RWMutex admits no new readers while a writer is waiting, which
//     bounds writer wait time under a continuous stream of readers.
//
// The engine holds no durability state of its own: write-ahead logging and
// replay are layered on top by the server (see rpc/server).
package memory
