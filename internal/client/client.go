// Package client implements the TCP client side of the manager protocol.
//
// Client owns the socket and the request/response exchange; Remote builds
// typed operations on top of it. Both are safe for concurrent use: requests
// are serialized over the single connection, matching the one-line-in,
// one-line-out protocol.
package client

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/avolkov/sentryfleet/internal/protocol"
)

// Sentinel errors for client operations.
var (
	// ErrNotConnected indicates the connection has been closed.
	ErrNotConnected = errors.New("client: not connected")

	// ErrEmptyReply indicates the server closed the connection or
	// returned an empty line.
	ErrEmptyReply = errors.New("client: server closed connection or returned empty reply")
)

// defaultDialTimeout bounds the initial TCP connect.
const defaultDialTimeout = 10 * time.Second

// maxReplyBytes bounds a single response line.
const maxReplyBytes = 1 << 20

// Client is a line-oriented JSON client for the manager server.
type Client struct {
	mu        sync.Mutex
	conn      net.Conn
	scanner   *bufio.Scanner
	writer    *bufio.Writer
	connected bool
}

// Dial connects to the manager server at addr (host:port).
func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, defaultDialTimeout)
	if err != nil {
		return nil, fmt.Errorf("client: connecting to %s: %w", addr, err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxReplyBytes)

	return &Client{
		conn:      conn,
		scanner:   scanner,
		writer:    bufio.NewWriter(conn),
		connected: true,
	}, nil
}

// Send writes one request line and reads one response line.
//
// A transport error marks the client disconnected; subsequent calls
// return ErrNotConnected.
func (c *Client) Send(req protocol.Request) (protocol.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return protocol.Response{}, ErrNotConnected
	}

	line, err := json.Marshal(req)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("client: encoding request: %w", err)
	}

	if _, err := c.writer.Write(append(line, '\n')); err != nil {
		c.connected = false
		return protocol.Response{}, fmt.Errorf("client: writing request: %w", err)
	}
	if err := c.writer.Flush(); err != nil {
		c.connected = false
		return protocol.Response{}, fmt.Errorf("client: writing request: %w", err)
	}

	if !c.scanner.Scan() {
		c.connected = false
		if err := c.scanner.Err(); err != nil {
			return protocol.Response{}, fmt.Errorf("client: reading reply: %w", err)
		}
		return protocol.Response{}, ErrEmptyReply
	}

	var resp protocol.Response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return protocol.Response{}, fmt.Errorf("client: decoding reply: %w", err)
	}
	return resp, nil
}

// IsConnected reports whether the connection is still usable.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close shuts down the connection. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil
	}
	c.connected = false
	return c.conn.Close()
}
