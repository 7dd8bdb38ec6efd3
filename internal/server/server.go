// Package server runs the TCP endpoint of the security system manager.
// Clients exchange newline-delimited JSON: one request per line, one
// response per line, handled strictly in order per connection.
package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/avolkov/sentryfleet/internal/audit"
	"github.com/avolkov/sentryfleet/internal/protocol"
)

// Logger defines the logging interface used by the server.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// maxLineBytes bounds a single request line. Oversized lines abort the
// connection rather than growing the scanner buffer without limit.
const maxLineBytes = 1 << 20

// Server accepts client connections and feeds requests to a Dispatcher.
type Server struct {
	addr       string
	dispatcher *Dispatcher
	auditLog   AuditLog
	logger     Logger

	mu    sync.Mutex
	ln    net.Listener
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// New creates a server listening on addr once Run is called.
func New(addr string, dispatcher *Dispatcher, auditLog AuditLog) *Server {
	return &Server{
		addr:       addr,
		dispatcher: dispatcher,
		auditLog:   auditLog,
		logger:     noopLogger{},
		conns:      make(map[net.Conn]struct{}),
	}
}

// SetLogger sets the logger for the server.
func (s *Server) SetLogger(logger Logger) {
	s.logger = logger
}

// Addr returns the bound listen address, or the configured address
// before Run binds it. With a ":0" configuration this exposes the
// kernel-assigned port.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Run binds the listener and serves until ctx is cancelled. It returns
// once every client connection has drained.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.logger.Info("server listening", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		ln.Close()
		s.closeConns()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			s.logger.Error("accepting connection", "error", err)
			continue
		}

		s.track(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}

// handleConn serves one client until it disconnects.
func (s *Server) handleConn(conn net.Conn) {
	remote := conn.RemoteAddr().String()
	s.auditLog.LogSystemEvent(audit.EventClientConnected, remote)
	s.logger.Info("client connected", "remote", remote)

	defer func() {
		conn.Close()
		s.untrack(conn)
		s.auditLog.LogSystemEvent(audit.EventClientDisconnected, remote)
		s.logger.Info("client disconnected", "remote", remote)
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	writer := bufio.NewWriter(conn)
	encoder := json.NewEncoder(writer)

	for scanner.Scan() {
		line := scanner.Bytes()

		resp := s.process(line)
		// Encode appends the newline that frames the response.
		if err := encoder.Encode(resp); err != nil {
			s.logger.Error("encoding response", "remote", remote, "error", err)
			return
		}
		if err := writer.Flush(); err != nil {
			s.logger.Error("writing response", "remote", remote, "error", err)
			return
		}
	}
	if err := scanner.Err(); err != nil {
		s.logger.Debug("connection read ended", "remote", remote, "error", err)
	}
}

// process decodes one request line and dispatches it. Malformed input
// never kills the connection; the client gets an error response.
func (s *Server) process(line []byte) protocol.Response {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return protocol.Fail("Пустой запрос")
	}

	var req protocol.Request
	if err := json.Unmarshal(line, &req); err != nil {
		return protocol.Fail("Ошибка обработки запроса: " + err.Error())
	}
	return s.dispatcher.Dispatch(req)
}
