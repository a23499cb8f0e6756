// Package server coordinates participant registration, room membership,
// message routing, and connection cleanup via the Hub type.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/classchat/relay/internal/protocol"
)

// Hub owns all shared mutable state of the coordinator. The identity
// registry and the room directory form a single consistency domain: one
// mutex guards both, so no caller ever observes a room member whose
// registry entry is gone. Outbound deliveries issued under the mutex only
// enqueue onto bounded per-session buffers and never block on a peer.
type Hub struct {
	cfg    Config
	logger *slog.Logger

	mu           sync.Mutex
	registry     *registry
	rooms        *directory
	conns        map[*Client]struct{}
	shuttingDown bool

	wg sync.WaitGroup
}

// NewHub creates a Hub ready to manage chat sessions.
func NewHub(cfg Config, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		cfg:      cfg.sanitized(),
		logger:   logger,
		registry: newRegistry(),
		rooms:    newDirectory(),
		conns:    make(map[*Client]struct{}),
	}
}

// StartSession attaches a connection to the hub and launches its session
// goroutines. Connections arriving during shutdown are closed immediately.
func (h *Hub) StartSession(conn frameConn) {
	c := newClient(conn, h)

	h.mu.Lock()
	if h.shuttingDown {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	c.logger.Info("connection accepted")
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		c.run()
	}()
}

// Register claims identity for c. It is the sole admission gate for chat
// participation: a duplicate identity fails without side effects and the
// existing session is untouched. On success the welcome message is
// enqueued before the mutex is released, so nothing can precede it.
func (h *Hub) Register(identity string, c *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.registry.register(identity, c); err != nil {
		return err
	}
	c.identity = identity
	h.deliverLocked(c, protocol.Message{
		Kind:   protocol.KindInfo,
		Sender: protocol.ServerSender,
		Target: identity,
		Text:   fmt.Sprintf("Welcome to ClassChat, %s!", identity),
	})
	h.logger.Info("participant registered", "identity", identity, "total", h.registry.count())
	return nil
}

// Disconnect runs terminal cleanup for c: leave every room, notify the
// remaining members, release the identity, and close the outbound buffer.
// It is idempotent, so the quit path and the read-failure path can both
// reach it without double notifications.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	delete(h.conns, c)

	if c.identity != "" {
		for _, dep := range h.rooms.leave(c.identity) {
			note := protocol.Message{
				Kind:   protocol.KindNotification,
				Sender: protocol.ServerSender,
				Target: dep.room,
				Text:   fmt.Sprintf("%s has left the room.", c.identity),
			}
			for _, member := range dep.remaining {
				if err := h.registry.sendTo(member, note); err != nil {
					h.logger.Warn("departure notification dropped",
						"room", dep.room, "member", member, "error", err)
				}
			}
		}
		h.registry.unregister(c.identity)
		h.logger.Info("participant left", "identity", c.identity, "total", h.registry.count())
	}

	// Safe under the mutex: every enqueue checks closed first.
	close(c.send)
}

// deliver enqueues m for c from outside the consistency domain.
func (h *Hub) deliver(c *Client, m protocol.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deliverLocked(c, m)
}

// deliverLocked enqueues m for c. Callers must hold the hub mutex. A full
// or closed buffer drops the message; delivery is best-effort.
func (h *Hub) deliverLocked(c *Client, m protocol.Message) {
	if !c.enqueue(m) {
		h.logger.Warn("message dropped", "sid", c.sid, "kind", string(m.Kind))
	}
}

// RoomMembers returns the membership of a room in join order.
func (h *Hub) RoomMembers(name string) ([]string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rooms.membersOf(name)
}

// IsRegistered reports whether identity belongs to a live session.
func (h *Hub) IsRegistered(identity string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.registry.lookup(identity)
	return ok
}

// SessionCount reports the number of attached connections, registered or
// not.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Shutdown closes every live connection and waits for session goroutines
// to finish, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("shutting down coordinator")

	h.mu.Lock()
	h.shuttingDown = true
	conns := make([]*Client, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if c.conn == nil {
			continue
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			h.logger.Warn("error closing client connection", "sid", c.sid, "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("coordinator shutdown completed")
		return nil
	case <-time.After(timeout):
		h.logger.Warn("shutdown timeout reached; some sessions may still be running")
		return context.DeadlineExceeded
	}
}
