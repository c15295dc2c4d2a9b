package wal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// --------------------------------------------------------------------------
// Writer
// --------------------------------------------------------------------------

// Writer manages appending to the write-ahead log file.
//
// Append order across all callers is a single global total order: the whole
// serialize-write-flush-sync sequence runs under one mutex. Nothing else
// (parsing, response encoding) may run inside that critical section.
type Writer struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	path string
}

// Open opens or creates the WAL file at the given path.
// Existing content is preserved and appended to, never truncated.
func Open(path string) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL file: %w", err)
	}

	return &Writer{
		file: file,
		buf:  bufio.NewWriter(file),
		path: path,
	}, nil
}

// Append serializes the record, writes it as one newline-terminated line and
// syncs it to stable storage. When Append returns nil the record is durable;
// the caller must not apply the mutation before that.
func (w *Writer) Append(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode WAL record: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.buf.Write(data); err != nil {
		return fmt.Errorf("failed to write WAL record: %w", err)
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write WAL record: %w", err)
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush WAL: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync WAL: %w", err)
	}

	return nil
}

// Path returns the file path of the log.
func (w *Writer) Path() string {
	return w.path
}

// Close flushes any buffered data and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.buf.Flush(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}

// --------------------------------------------------------------------------
// Compaction
// --------------------------------------------------------------------------

// Rewrite replaces the log with a minimal equivalent: one Set record per
// live key-value pair from the given snapshot. The new log is written to a
// temporary file, synced, and atomically renamed over the old one.
//
// The snapshot function must iterate a consistent view of the store.
// Rewrite blocks Append for its whole duration.
func (w *Writer) Rewrite(snapshot func(fn func(key, value string) bool)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	tmpPath := w.path + ".tmp"
	tmpFile, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return fmt.Errorf("failed to create temporary WAL file: %w", err)
	}

	tmpBuf := bufio.NewWriter(tmpFile)
	var writeErr error
	snapshot(func(key, value string) bool {
		data, err := json.Marshal(NewRecord(NewSetCommand(key, value)))
		if err != nil {
			writeErr = err
			return false
		}
		if _, err := tmpBuf.Write(data); err != nil {
			writeErr = err
			return false
		}
		if err := tmpBuf.WriteByte('\n'); err != nil {
			writeErr = err
			return false
		}
		return true
	})

	if writeErr == nil {
		writeErr = tmpBuf.Flush()
	}
	if writeErr == nil {
		writeErr = tmpFile.Sync()
	}
	if err := tmpFile.Close(); err != nil && writeErr == nil {
		writeErr = err
	}
	if writeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write compacted WAL: %w", writeErr)
	}

	// Swap the compacted log in and reopen the append handle
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush WAL before rewrite: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close WAL before rewrite: %w", err)
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		return fmt.Errorf("failed to replace WAL file: %w", err)
	}

	file, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return fmt.Errorf("failed to reopen WAL file after rewrite: %w", err)
	}
	w.file = file
	w.buf.Reset(file)
	return nil
}

// --------------------------------------------------------------------------
// Replay
// --------------------------------------------------------------------------

// Replay reads the log at path in file order and calls apply for every
// well-formed record. It is meant to run exactly once, before the server
// accepts connections.
//
// An absent file is not an error (fresh start). The only tolerated damage is
// a crash-truncated trailing line: a fragment the writer never finished, so
// it has content but no newline terminator. That fragment is skipped and
// reported via truncated=true. A newline-terminated record that fails to
// parse was fully committed once and is corrupt, not truncated; it aborts
// the replay wherever it sits in the file, as does any error returned by
// apply.
func Replay(path string, apply func(Record) error) (applied int, truncated bool, err error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to open WAL file: %w", err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	lineNo := 0

	for {
		line, readErr := reader.ReadString('\n')
		atEOF := errors.Is(readErr, io.EOF)

		if readErr != nil && !atEOF {
			return applied, false, fmt.Errorf("failed to read WAL file: %w", readErr)
		}

		if strings.TrimSpace(line) != "" {
			lineNo++

			var rec Record
			if jsonErr := json.Unmarshal([]byte(strings.TrimSpace(line)), &rec); jsonErr != nil {
				// ReadString only omits the terminator at EOF, so an
				// unterminated line is the one case a crash can produce.
				if !strings.HasSuffix(line, "\n") {
					return applied, true, nil
				}
				return applied, false, fmt.Errorf("corrupt WAL record at line %d: %w", lineNo, jsonErr)
			}

			if applyErr := apply(rec); applyErr != nil {
				return applied, false, fmt.Errorf("failed to apply WAL record at line %d: %w", lineNo, applyErr)
			}
			applied++
		}

		if atEOF {
			return applied, false, nil
		}
	}
}
