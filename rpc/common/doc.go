// Package common provides core data structures and utilities shared across
// the vaultkv server and client components. It defines configuration
// structures and the logging implementation used by other packages.
//
// The package focuses on:
//   - Configuration structures for client and server components
//   - A named, leveled logging implementation with consistent formatting
//
// Key Components:
//
//   - ServerConfig: Configuration for the server process, covering the listen
//     endpoint, write-ahead log path, connection ceiling, idle timeout and
//     observability settings. The cmd layer assembles this struct from flags
//     and environment variables; the core packages consume only the struct.
//
//   - ClientConfig: Configuration for client components, controlling the
//     target endpoint, timeouts, and retry behavior.
//
//   - ILogger / GetLogger: A small registry of per-package loggers with level
//     filtering and uniform output formatting across the application.
package common
