package server

import (
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
)

// --------------------------------------------------------------------------
// Server Metrics
// --------------------------------------------------------------------------

var (
	// Connection lifecycle
	connectionsAccepted = metrics.NewCounter(`vaultkv_connections_accepted_total`)
	connectionsRejected = metrics.NewCounter(`vaultkv_connections_rejected_total`)

	activeConnections atomic.Int64
	_                 = metrics.NewGauge(`vaultkv_connections_active`, func() float64 {
		return float64(activeConnections.Load())
	})

	// Command processing
	setCommands     = metrics.NewCounter(`vaultkv_commands_total{verb="SET"}`)
	getCommands     = metrics.NewCounter(`vaultkv_commands_total{verb="GET"}`)
	deleteCommands  = metrics.NewCounter(`vaultkv_commands_total{verb="DELETE"}`)
	protocolErrors  = metrics.NewCounter(`vaultkv_protocol_errors_total`)
	commandDuration = metrics.NewHistogram(`vaultkv_command_duration_seconds`)

	// DELETE of an absent key answers OK on the wire; the distinction is
	// still tracked here.
	deletesOfAbsentKeys = metrics.NewCounter(`vaultkv_deletes_absent_total`)

	// Durability path
	walAppends      = metrics.NewCounter(`vaultkv_wal_appends_total`)
	walAppendErrors = metrics.NewCounter(`vaultkv_wal_append_errors_total`)
)
