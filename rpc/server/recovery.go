package server

import (
	"github.com/vaultkv/vaultkv/lib/db"
	"github.com/vaultkv/vaultkv/lib/wal"
	"github.com/vaultkv/vaultkv/rpc/common"
)

var recoveryLogger = common.GetLogger("recovery")

// --------------------------------------------------------------------------
// Recovery Manager
// --------------------------------------------------------------------------

// Recover rebuilds the store from the write-ahead log. It runs exactly once
// per process lifetime, before the server accepts any connection; on error
// the process must not proceed to accept connections.
//
// An absent log file is a fresh start, not an error. A crash-truncated
// trailing record is skipped with a warning. Any other corrupt record is
// fatal (ErrKindRecovery).
func Recover(walPath string, database db.KVDB) (applied int, err error) {
	applied, truncated, replayErr := wal.Replay(walPath, func(rec wal.Record) error {
		switch rec.Command.Type {
		case wal.CommandSet:
			database.Set(rec.Command.Key, []byte(rec.Command.Value))
		case wal.CommandDelete:
			// Delete of an absent key is a no-op during replay, not an error
			database.Delete(rec.Command.Key)
		}
		return nil
	})
	if replayErr != nil {
		return applied, NewError(ErrKindRecovery, "WAL replay failed", replayErr)
	}

	if truncated {
		recoveryLogger.Warningf("Skipped a partially written trailing record in %s", walPath)
	}
	recoveryLogger.Infof("Replayed %d records from %s, store holds %d keys", applied, walPath, database.Len())

	return applied, nil
}
