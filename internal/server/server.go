// Package server runs the framed-TCP listener that feeds accepted
// connections into the hub.
package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
)

// Server accepts framed-TCP connections on one address and hands each one
// to the hub. The accept loop never touches shared chat state itself; a
// misbehaving peer only ever affects its own session.
type Server struct {
	addr   string
	hub    *Hub
	logger *slog.Logger

	mu sync.Mutex
	ln net.Listener
}

// NewServer creates a coordinator listener for the configured address.
func NewServer(cfg Config, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:   cfg.sanitized().ListenAddr,
		hub:    hub,
		logger: logger,
	}
}

// Listen binds the listener without accepting yet, so callers can read
// the bound address before serving (":0" picks a free port).
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.logger.Info("coordinator listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound listen address, or empty before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Serve runs the accept loop until the listener closes. Each accepted
// connection gets its own session goroutine.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errors.New("serve called before listen")
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.logger.Warn("transient accept error", "error", err)
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.hub.StartSession(newTCPConn(conn, s.hub.cfg.MaxFrameSize))
	}
}

// ListenAndServe binds the listener and runs the accept loop.
func (s *Server) ListenAndServe() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Close shuts the listener, unblocking Serve. Live sessions are left to
// the hub's shutdown path.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}
