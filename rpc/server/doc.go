// Package server implements the vaultkv TCP server: a connection
// supervisor that accepts clients, a command processor that applies
// SET/GET/DELETE against the store with write-ahead durability, and the
// recovery path that rebuilds the store from the WAL before the first
// connection is accepted.
//
// Durability ordering is the core invariant of this package: a mutation is
// appended and synced to the WAL before it touches the in-memory store, and
// OK is written to the wire only after both have happened. Reads never touch
// the WAL.
//
// Shutdown is cooperative. Cancelling the context passed to Serve stops the
// accept loop, unblocks idle readers via their read deadlines, and waits for
// every in-flight command to finish before Serve returns.
package server
