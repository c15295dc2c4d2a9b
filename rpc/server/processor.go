package server

import (
	"time"

	"github.com/vaultkv/vaultkv/lib/db"
	"github.com/vaultkv/vaultkv/lib/wal"
	"github.com/vaultkv/vaultkv/rpc/wire"
)

// --------------------------------------------------------------------------
// Command Processor
// --------------------------------------------------------------------------

// processor executes decoded commands against the shared store and the
// shared WAL. It is stateless between commands: one instance serves every
// connection.
//
// Side-effect order per mutating command is fixed: WAL append (durable)
// first, then the store mutation, then the response. The store lock is never
// requested before the append has returned, so it is never held across an
// I/O wait.
type processor struct {
	db  db.KVDB
	wal *wal.Writer
}

// newProcessor creates a processor bound to the given store and WAL.
func newProcessor(database db.KVDB, walWriter *wal.Writer) *processor {
	return &processor{
		db:  database,
		wal: walWriter,
	}
}

// Execute runs one command and produces exactly one response.
func (p *processor) Execute(cmd wire.Command) wire.Response {
	start := time.Now()
	defer commandDuration.UpdateDuration(start)

	switch cmd.Verb {
	case wire.VerbGet:
		return p.executeGet(cmd)
	case wire.VerbSet:
		return p.executeSet(cmd)
	case wire.VerbDelete:
		return p.executeDelete(cmd)
	default:
		// Unreachable for commands produced by the wire decoder
		return wire.NewErrorResponse(NewError(ErrKindProtocol, "unsupported command", nil))
	}
}

// --------------------------------------------------------------------------
// Per-Verb Execution
// --------------------------------------------------------------------------

// executeGet is a pure read of the store; it never touches the WAL.
func (p *processor) executeGet(cmd wire.Command) wire.Response {
	getCommands.Inc()

	value, loaded := p.db.Get(cmd.Key)
	if !loaded {
		return wire.NewNotFoundResponse()
	}
	return wire.NewValueResponse(string(value))
}

func (p *processor) executeSet(cmd wire.Command) wire.Response {
	setCommands.Inc()

	if err := p.append(wal.NewSetCommand(cmd.Key, cmd.Value)); err != nil {
		return wire.NewErrorResponse(err)
	}

	p.db.Set(cmd.Key, []byte(cmd.Value))
	return wire.NewOKResponse()
}

func (p *processor) executeDelete(cmd wire.Command) wire.Response {
	deleteCommands.Inc()

	if err := p.append(wal.NewDeleteCommand(cmd.Key)); err != nil {
		return wire.NewErrorResponse(err)
	}

	// The wire contract answers OK whether or not the key existed; the
	// distinction is kept for metrics and future conditional deletes.
	if existed := p.db.Delete(cmd.Key); !existed {
		deletesOfAbsentKeys.Inc()
	}
	return wire.NewOKResponse()
}

// append makes one mutation durable. On failure the store must stay
// untouched: the caller reports the error and skips the apply step.
func (p *processor) append(cmd wal.Command) error {
	if err := p.wal.Append(wal.NewRecord(cmd)); err != nil {
		walAppendErrors.Inc()
		return NewError(ErrKindDurability, cmd.Type.String()+" failed", err)
	}
	walAppends.Inc()
	return nil
}
