package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters for the vaultkv server.
// The cmd layer fills this struct from flags and environment variables; the
// core packages only ever see the struct.
type ServerConfig struct {
	// Endpoint is the TCP address the server listens on (e.g. "0.0.0.0:4200")
	Endpoint string

	// WALPath is the path of the write-ahead log file.
	// The file is created if it does not exist.
	WALPath string

	// MaxConnections is the maximum number of simultaneously served
	// connections. Connections beyond this ceiling are closed on accept.
	MaxConnections int

	// TimeoutSecond is the per-connection idle timeout in seconds (0 = none)
	TimeoutSecond int64

	// MetricsEndpoint is the optional HTTP address for the Prometheus
	// metrics listener (empty = disabled)
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Server")
	addField("Endpoint", c.Endpoint)
	addField("Max Connections", strconv.Itoa(c.MaxConnections))
	addField("Idle Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	addSection("Durability")
	addField("WAL Path", c.WALPath)

	addSection("Observability")
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	} else {
		addField("Metrics Endpoint", "disabled")
	}
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoint      string
	TimeoutSecond int
	RetryCount    int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))

	return sb.String()
}
