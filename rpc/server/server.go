package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/vaultkv/vaultkv/lib/db"
	"github.com/vaultkv/vaultkv/lib/wal"
	"github.com/vaultkv/vaultkv/rpc/common"
	"github.com/vaultkv/vaultkv/rpc/wire"
)

var logger = common.GetLogger("server")

const (
	defaultMaxConnections = 1000
	readBufferSize        = 64 * 1024 // 64 KB
)

// --------------------------------------------------------------------------
// Connection Supervisor
// --------------------------------------------------------------------------

// Server accepts transport connections and drives one command-processing
// loop per connection until disconnect, a connection-fatal error, or
// shutdown.
type Server struct {
	config common.ServerConfig
	proc   *processor

	// Counting semaphore enforcing the connection ceiling
	connSemaphore chan struct{}

	// Registry of live connections, used to unblock idle readers on shutdown
	conns   *xsync.MapOf[uint64, net.Conn]
	connSeq atomic.Uint64

	bufferPool *sync.Pool
	wg         sync.WaitGroup
}

// NewServer creates a server for the given store and WAL.
//
// Usage:
//
//	srv := server.NewServer(config, database, walWriter)
//	if _, err := server.Recover(config.WALPath, database); err != nil {
//		panic(err)
//	}
//	if err := srv.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewServer(config common.ServerConfig, database db.KVDB, walWriter *wal.Writer) *Server {
	maxConns := config.MaxConnections
	if maxConns <= 0 {
		maxConns = defaultMaxConnections
	}

	return &Server{
		config:        config,
		proc:          newProcessor(database, walWriter),
		connSemaphore: make(chan struct{}, maxConns),
		conns:         xsync.NewMapOf[uint64, net.Conn](),
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return make([]byte, readBufferSize)
			},
		},
	}
}

// Serve listens on the configured endpoint and accepts connections until the
// context is cancelled. It returns after all connection loops have finished:
// in-flight commands complete, idle connections are unblocked and closed, and
// no acknowledged write is lost.
//
// The caller must run Recover to completion before calling Serve.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	logger.Infof("vaultkv server listening on %s (max %d connections)",
		s.config.Endpoint, cap(s.connSemaphore))

	// Shutdown trigger: stop accepting, then unblock readers parked in Read
	go func() {
		<-ctx.Done()
		logger.Infof("Shutdown signal received, stopping server...")
		_ = listener.Close()
		s.conns.Range(func(_ uint64, conn net.Conn) bool {
			_ = conn.SetReadDeadline(time.Now())
			return true
		})
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Errorf("Accept error: %v", err)
			continue
		}

		// Enforce the connection ceiling: over-ceiling peers observe an
		// immediate close instead of being silently dropped
		select {
		case s.connSemaphore <- struct{}{}:
		default:
			connectionsRejected.Inc()
			logger.Warningf("Connection ceiling reached, rejecting %s", conn.RemoteAddr())
			_ = conn.Close()
			continue
		}

		s.wg.Add(1)
		go func() {
			defer func() {
				<-s.connSemaphore
				s.wg.Done()
			}()
			s.HandleConnection(ctx, conn)
		}()
	}

	// Wait for in-flight connection loops before reporting a clean stop
	s.wg.Wait()
	logger.Infof("Server stopped")
	return nil
}

// --------------------------------------------------------------------------
// Per-Connection Loop
// --------------------------------------------------------------------------

// HandleConnection runs the command loop for a single connection: read
// available bytes, feed the codec, drive the processor for every decoded
// command, write the response, repeat. The shutdown token is observed
// between commands, never mid-command.
func (s *Server) HandleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	id := s.registerConn(conn)
	defer s.unregisterConn(id)

	// A connection registered after the shutdown sweep over the registry
	// would otherwise park in Read with no deadline. Re-checking here means
	// sweep-then-register and register-then-sweep both unblock the loop.
	if ctx.Err() != nil {
		_ = conn.SetReadDeadline(time.Now())
	}

	decoder := wire.NewDecoder()
	timeout := time.Duration(s.config.TimeoutSecond) * time.Second

	buf := s.bufferPool.Get().([]byte)
	defer s.bufferPool.Put(buf) //nolint:staticcheck

	logger.Debugf("New client connected: %s", conn.RemoteAddr())

	for {
		if timeout > 0 && ctx.Err() == nil {
			if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
				logger.Errorf("Failed to set read deadline: %v", err)
				return
			}
		}

		n, readErr := conn.Read(buf)
		if n > 0 {
			decoder.Feed(buf[:n])
			if err := s.drainCommands(conn, decoder, timeout); err != nil {
				// Connection-fatal: unwritable peer or unrecoverable framing
				logger.Debugf("Closing %s: %v", conn.RemoteAddr(), err)
				return
			}
		}

		if readErr != nil {
			s.logReadError(conn, decoder, ctx, readErr)
			return
		}

		// Shutdown is observed at loop-iteration granularity: a command
		// past its append commit point has already been fully applied above
		select {
		case <-ctx.Done():
			logger.Debugf("Closing %s: server shutting down", conn.RemoteAddr())
			return
		default:
		}
	}
}

// drainCommands processes every fully framed command currently buffered.
// The returned error is connection-fatal; protocol errors are answered on
// the wire and do not end the connection.
func (s *Server) drainCommands(conn net.Conn, decoder *wire.Decoder, timeout time.Duration) error {
	for {
		cmd, ok, err := decoder.Next()
		if err != nil {
			if errors.Is(err, wire.ErrCommandTooLarge) {
				// The stream cannot be re-synchronized past an unbounded line
				_ = s.writeResponse(conn, wire.NewErrorResponse(err), timeout)
				return err
			}
			protocolErrors.Inc()
			if werr := s.writeResponse(conn, wire.NewErrorResponse(err), timeout); werr != nil {
				return werr
			}
			continue
		}
		if !ok {
			return nil
		}

		resp := s.proc.Execute(cmd)
		if werr := s.writeResponse(conn, resp, timeout); werr != nil {
			return werr
		}
	}
}

// writeResponse writes one response line to the peer.
func (s *Server) writeResponse(conn net.Conn, resp wire.Response, timeout time.Duration) error {
	if timeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return NewError(ErrKindTransport, "failed to set write deadline", err)
		}
	}
	if _, err := conn.Write(resp.Bytes()); err != nil {
		return NewError(ErrKindTransport, "failed to write response", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (s *Server) registerConn(conn net.Conn) uint64 {
	id := s.connSeq.Add(1)
	s.conns.Store(id, conn)

	connectionsAccepted.Inc()
	activeConnections.Add(1)
	return id
}

func (s *Server) unregisterConn(id uint64) {
	s.conns.Delete(id)
	activeConnections.Add(-1)
	logger.Debugf("Client disconnected")
}

// logReadError classifies the end of a connection's read side.
func (s *Server) logReadError(conn net.Conn, decoder *wire.Decoder, ctx context.Context, err error) {
	switch {
	case errors.Is(err, io.EOF):
		if decoder.Buffered() > 0 {
			// Peer vanished mid-command: discard the partial frame, there
			// is no one left to answer
			logger.Debugf("Client %s disconnected mid-command, %d bytes discarded",
				conn.RemoteAddr(), decoder.Buffered())
		} else {
			logger.Debugf("Connection closed by client %s", conn.RemoteAddr())
		}
	case isTimeout(err):
		if ctx.Err() != nil {
			logger.Debugf("Closing %s: server shutting down", conn.RemoteAddr())
		} else {
			logger.Infof("Closing idle connection %s", conn.RemoteAddr())
		}
	default:
		logger.Errorf("Transport error on %s: %v", conn.RemoteAddr(), err)
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
