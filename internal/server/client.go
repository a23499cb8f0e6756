// Package server manages individual chat sessions, handling the identity
// handshake, the read-decode-route loop, and the writer goroutine that
// drains each session's outbound buffer.
package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/classchat/relay/internal/protocol"
)

// maxIdentityLength bounds the name claimed during the handshake.
const maxIdentityLength = 64

// Client represents one connected session. A session moves through
// connecting (awaiting the identity frame), registering, active (the
// read-decode-route loop), and a terminal cleanup that runs exactly once.
//
// The session's identity is set under the hub mutex at registration and is
// immutable afterwards; closed is guarded by the hub mutex as well.
type Client struct {
	conn     frameConn
	hub      *Hub
	sid      string
	logger   *slog.Logger
	limiter  *rateLimiter
	send     chan protocol.Message
	identity string
	closed   bool
}

func newClient(conn frameConn, hub *Hub) *Client {
	sid := uuid.NewString()
	return &Client{
		conn:    conn,
		hub:     hub,
		sid:     sid,
		logger:  hub.logger.With("sid", sid, "addr", conn.RemoteAddr()),
		limiter: newRateLimiter(hub.cfg.RateLimit.Burst, hub.cfg.RateLimit.RefillInterval),
		send:    make(chan protocol.Message, hub.cfg.SendBuffer),
	}
}

// enqueue adds m to the session's outbound buffer without blocking.
// Callers must hold the hub mutex, which orders enqueues against the
// buffer close in Disconnect.
func (c *Client) enqueue(m protocol.Message) bool {
	if c.closed {
		return false
	}
	select {
	case c.send <- m:
		return true
	default:
		return false
	}
}

// run drives the session from handshake to terminal cleanup. It launches
// the writer goroutine first so rejection messages reach the peer through
// the same write path as everything else.
func (c *Client) run() {
	defer c.hub.Disconnect(c)

	c.hub.wg.Add(1)
	go func() {
		defer c.hub.wg.Done()
		c.writePump()
	}()

	identity, err := c.awaitIdentity()
	if err != nil {
		return
	}

	if err := c.hub.Register(identity, c); err != nil {
		c.logger.Info("identity rejected", "identity", identity)
		c.hub.deliver(c, protocol.Message{
			Kind:   protocol.KindError,
			Sender: protocol.ServerSender,
			Target: identity,
			Text:   "Username already taken. Please disconnect and try again.",
		})
		return
	}

	c.logger = c.logger.With("identity", identity)
	c.readLoop()
}

// awaitIdentity reads the handshake frame. The first frame carries the
// chosen identity as bare text; any protocol error here closes the
// connection.
func (c *Client) awaitIdentity() (string, error) {
	payload, err := c.conn.ReadPayload()
	if err != nil {
		if !isExpectedCloseError(err) {
			c.logger.Warn("handshake read failed", "error", err)
		}
		return "", err
	}

	identity := strings.TrimSpace(string(payload))
	if err := validateIdentity(identity); err != nil {
		c.logger.Info("handshake rejected", "error", err)
		c.hub.deliver(c, protocol.Message{
			Kind:   protocol.KindError,
			Sender: protocol.ServerSender,
			Text:   err.Error(),
		})
		return "", err
	}
	return identity, nil
}

func validateIdentity(identity string) error {
	switch {
	case identity == "":
		return errors.New("A non-empty username is required.")
	case identity == protocol.ServerSender:
		return fmt.Errorf("The name '%s' is reserved.", protocol.ServerSender)
	case len(identity) > maxIdentityLength:
		return fmt.Errorf("Usernames are limited to %d characters.", maxIdentityLength)
	}
	return nil
}

// readLoop runs the active phase: read a frame, decode it, route it.
// Decode failures are connection-local and non-fatal; a broken read means
// the peer is gone and ends the session.
func (c *Client) readLoop() {
	for {
		payload, err := c.conn.ReadPayload()
		if err != nil {
			// Length-prefixed transport only: the WebSocket read limit
			// surfaces as a connection error, so an oversized WS message
			// ends the session below instead of being discarded.
			if errors.Is(err, protocol.ErrFrameTooLarge) {
				c.logger.Warn("oversized frame discarded", "error", err)
				continue
			}
			if isExpectedCloseError(err) {
				c.logger.Info("participant disconnected")
			} else {
				c.logger.Warn("read failed", "error", err)
			}
			return
		}

		if !c.limiter.allow() {
			c.logger.Warn("rate limit exceeded; discarding message")
			continue
		}

		m, err := protocol.Decode(payload)
		if err != nil {
			c.logger.Warn("undecodable message discarded", "error", err)
			continue
		}

		if c.hub.Route(c, m) {
			c.logger.Info("participant quit")
			return
		}
	}
}

// writePump drains the outbound buffer onto the connection. It owns the
// connection close: once the buffer is closed and flushed, or a write
// fails, the connection goes down and unblocks the read loop.
func (c *Client) writePump() {
	defer func() {
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.logger.Warn("error closing connection", "error", err)
		}
	}()

	for m := range c.send {
		payload, err := protocol.Encode(m)
		if err != nil {
			c.logger.Error("dropping unencodable message", "error", err)
			continue
		}
		if err := c.conn.WritePayload(payload); err != nil {
			if !isExpectedCloseError(err) {
				c.logger.Warn("write failed", "error", err)
			}
			return
		}
	}
}

// isExpectedCloseError checks if an error is expected during connection
// closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "closed pipe") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "connection reset by peer")
}
