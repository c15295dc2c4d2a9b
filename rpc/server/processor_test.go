package server

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vaultkv/vaultkv/lib/db/engines/memory"
	"github.com/vaultkv/vaultkv/lib/wal"
	"github.com/vaultkv/vaultkv/rpc/wire"
)

// newTestProcessor wires a processor to a fresh store and a WAL in a temp
// directory. The WAL writer is returned so tests can close it deliberately.
func newTestProcessor(t *testing.T) (*processor, *wal.Writer) {
	t.Helper()

	walWriter, err := wal.Open(filepath.Join(t.TempDir(), "test.wal"))
	if err != nil {
		t.Fatalf("failed to open WAL: %v", err)
	}
	t.Cleanup(func() { _ = walWriter.Close() })

	return newProcessor(memory.NewMemoryDB(nil), walWriter), walWriter
}

func exec(t *testing.T, p *processor, line string) wire.Response {
	t.Helper()

	cmd, err := wire.ParseCommand(line)
	if err != nil {
		t.Fatalf("failed to parse %q: %v", line, err)
	}
	return p.Execute(cmd)
}

func TestProcessorSessionScenario(t *testing.T) {
	p, _ := newTestProcessor(t)

	steps := []struct {
		line string
		want string
	}{
		{"SET a 1", "OK\r\n"},
		{"SET b 2", "OK\r\n"},
		{"GET a", "VALUE 1\r\n"},
		{"DELETE a", "OK\r\n"},
		{"GET a", "NOT_FOUND\r\n"},
		{"GET b", "VALUE 2\r\n"},
	}

	for _, step := range steps {
		if got := string(exec(t, p, step.line).Bytes()); got != step.want {
			t.Errorf("%q: got %q, want %q", step.line, got, step.want)
		}
	}
}

func TestProcessorSetOverwrites(t *testing.T) {
	p, _ := newTestProcessor(t)

	exec(t, p, "SET key first")
	exec(t, p, "SET key second value with spaces")

	resp := exec(t, p, "GET key")
	if resp.Type != wire.RespValue || resp.Value != "second value with spaces" {
		t.Errorf("got %+v, want VALUE 'second value with spaces'", resp)
	}
}

func TestProcessorDeleteAbsentKey(t *testing.T) {
	p, _ := newTestProcessor(t)

	// The wire contract promises OK regardless of prior existence
	resp := exec(t, p, "DELETE never-set")
	if resp.Type != wire.RespOK {
		t.Errorf("got %v, want OK", resp.Type)
	}
}

func TestProcessorDurabilityFailureLeavesStoreUntouched(t *testing.T) {
	p, walWriter := newTestProcessor(t)

	exec(t, p, "SET stable 1")

	// Closing the writer makes every further append fail
	if err := walWriter.Close(); err != nil {
		t.Fatalf("failed to close WAL: %v", err)
	}

	resp := exec(t, p, "SET doomed 2")
	if resp.Type != wire.RespError {
		t.Fatalf("got %v, want ERROR after WAL failure", resp.Type)
	}
	if !strings.Contains(resp.Err, "SET failed") {
		t.Errorf("got %q, want a message naming the failed command", resp.Err)
	}

	// The failed mutation must not be visible
	if got := exec(t, p, "GET doomed"); got.Type != wire.RespNotFound {
		t.Errorf("failed SET leaked into store: %v", got)
	}

	// DELETE follows the same ordering: no durable append, no store change
	if got := exec(t, p, "DELETE stable"); got.Type != wire.RespError {
		t.Errorf("got %v, want ERROR after WAL failure", got.Type)
	}
	if got := exec(t, p, "GET stable"); got.Type != wire.RespValue || got.Value != "1" {
		t.Errorf("failed DELETE changed store: %+v", got)
	}
}

func TestProcessorGetNeverTouchesWAL(t *testing.T) {
	p, walWriter := newTestProcessor(t)

	exec(t, p, "SET key value")
	if err := walWriter.Close(); err != nil {
		t.Fatalf("failed to close WAL: %v", err)
	}

	// Reads keep working on a dead WAL
	if got := exec(t, p, "GET key"); got.Type != wire.RespValue {
		t.Errorf("got %v, want VALUE", got.Type)
	}
	if got := exec(t, p, "GET absent"); got.Type != wire.RespNotFound {
		t.Errorf("got %v, want NOT_FOUND", got.Type)
	}
}

func TestProcessorMutationsAreDurable(t *testing.T) {
	p, walWriter := newTestProcessor(t)

	exec(t, p, "SET a 1")
	exec(t, p, "SET b 2")
	exec(t, p, "DELETE a")

	if err := walWriter.Close(); err != nil {
		t.Fatalf("failed to close WAL: %v", err)
	}

	// A replay of the log must reproduce exactly the acknowledged state
	restored := memory.NewMemoryDB(nil)
	applied, err := Recover(walWriter.Path(), restored)
	if err != nil {
		t.Fatalf("recovery failed: %v", err)
	}
	if applied != 3 {
		t.Errorf("applied %d records, want 3", applied)
	}
	if restored.Has("a") {
		t.Error("deleted key 'a' survived replay")
	}
	if value, loaded := restored.Get("b"); !loaded || string(value) != "2" {
		t.Errorf("key 'b': got (%q, %v), want (\"2\", true)", value, loaded)
	}
}

func TestErrorKindClassification(t *testing.T) {
	cause := errors.New("disk gone")
	err := NewError(ErrKindDurability, "SET failed", cause)

	if !IsKind(err, ErrKindDurability) {
		t.Error("IsKind failed to match the error's own kind")
	}
	if IsKind(err, ErrKindRecovery) {
		t.Error("IsKind matched a different kind")
	}
	if !errors.Is(err, cause) {
		t.Error("cause is not reachable via errors.Is")
	}
	if got := err.Error(); got != "SET failed: disk gone" {
		t.Errorf("got %q, want %q", got, "SET failed: disk gone")
	}

	wrapped := fmt.Errorf("startup: %w", NewError(ErrKindRecovery, "WAL replay failed", nil))
	if !IsKind(wrapped, ErrKindRecovery) {
		t.Error("IsKind failed to see through fmt.Errorf wrapping")
	}
}
