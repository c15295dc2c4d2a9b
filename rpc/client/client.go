package client

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/vaultkv/vaultkv/rpc/common"
	"github.com/vaultkv/vaultkv/rpc/wire"
)

var logger = common.GetLogger("client")

// --------------------------------------------------------------------------
// Client
// --------------------------------------------------------------------------

// Client is a line-protocol client for a vaultkv server. It holds one TCP
// connection and serializes requests over it; a transport failure triggers
// a reconnect and a bounded number of retries.
//
// Client is safe for concurrent use. Requests from multiple goroutines are
// interleaved one full round trip at a time.
type Client struct {
	config common.ClientConfig

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

// Connect dials the configured endpoint and returns a ready client.
func Connect(config common.ClientConfig) (*Client, error) {
	c := &Client{config: config}
	if err := c.dial(); err != nil {
		return nil, err
	}
	return c, nil
}

// Close closes the underlying connection. The client must not be used
// afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	return err
}

// --------------------------------------------------------------------------
// Operations
// --------------------------------------------------------------------------

// Set stores value under key, overwriting any previous value. It returns
// once the server has acknowledged the durable write.
func (c *Client) Set(key, value string) error {
	resp, err := c.roundTrip(fmt.Sprintf("SET %s %s", key, value))
	if err != nil {
		return err
	}
	return expectOK(resp)
}

// Get returns the value stored under key. loaded is false if the key is
// absent.
func (c *Client) Get(key string) (value string, loaded bool, err error) {
	resp, err := c.roundTrip(fmt.Sprintf("GET %s", key))
	if err != nil {
		return "", false, err
	}
	switch resp.Type {
	case wire.RespValue:
		return resp.Value, true, nil
	case wire.RespNotFound:
		return "", false, nil
	default:
		return "", false, remoteError(resp)
	}
}

// Delete removes key from the store. It succeeds whether or not the key
// existed.
func (c *Client) Delete(key string) error {
	resp, err := c.roundTrip(fmt.Sprintf("DELETE %s", key))
	if err != nil {
		return err
	}
	return expectOK(resp)
}

// --------------------------------------------------------------------------
// Transport
// --------------------------------------------------------------------------

func (c *Client) dial() error {
	timeout := time.Duration(c.config.TimeoutSecond) * time.Second

	conn, err := net.DialTimeout("tcp", c.config.Endpoint, timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.config.Endpoint, err)
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// roundTrip sends one command line and reads one response line. A transport
// failure is retried on a fresh connection up to the configured retry count;
// commands are idempotent, so a resend after a torn connection is safe.
func (c *Client) roundTrip(line string) (wire.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt <= c.config.RetryCount; attempt++ {
		if c.conn == nil {
			if err := c.dial(); err != nil {
				lastErr = err
				continue
			}
		}

		resp, err := c.send(line)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		logger.Warningf("Request failed (attempt %d/%d): %v", attempt+1, c.config.RetryCount+1, err)
		_ = c.conn.Close()
		c.conn = nil
		c.reader = nil
	}
	return wire.Response{}, fmt.Errorf("request failed after %d attempts: %w", c.config.RetryCount+1, lastErr)
}

func (c *Client) send(line string) (wire.Response, error) {
	if timeout := time.Duration(c.config.TimeoutSecond) * time.Second; timeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return wire.Response{}, err
		}
	}

	if _, err := c.conn.Write([]byte(line + "\r\n")); err != nil {
		return wire.Response{}, err
	}
	raw, err := c.reader.ReadString('\n')
	if err != nil {
		return wire.Response{}, err
	}
	return wire.ParseResponse(strings.TrimSuffix(strings.TrimSuffix(raw, "\n"), "\r"))
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func expectOK(resp wire.Response) error {
	if resp.Type == wire.RespOK {
		return nil
	}
	return remoteError(resp)
}

func remoteError(resp wire.Response) error {
	if resp.Type == wire.RespError {
		return fmt.Errorf("server error: %s", resp.Err)
	}
	return fmt.Errorf("unexpected response: %s", resp.Type)
}
