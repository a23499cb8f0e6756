// Package testhelpers provides common utilities for testing the ClassChat
// coordinator.
//
// It boots coordinators on ephemeral ports and wraps framed-TCP client
// connections so integration tests read as message-level scenarios instead
// of socket plumbing.
package testhelpers

import (
	"bufio"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/classchat/relay/internal/protocol"
	"github.com/classchat/relay/internal/server"
)

// recvTimeout bounds every read a test performs.
const recvTimeout = 2 * time.Second

// StartCoordinator boots a hub and framed-TCP listener on an ephemeral
// port and returns the hub plus the dialable address. Everything is torn
// down when the test finishes.
func StartCoordinator(t *testing.T) (*server.Hub, string) {
	t.Helper()

	cfg := server.DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	// Scenario tests fire messages faster than a human; keep the
	// per-connection throttle out of the way.
	cfg.RateLimit.Burst = 1000

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := server.NewHub(cfg, logger)
	srv := server.NewServer(cfg, hub, logger)

	require.NoError(t, srv.Listen())
	go func() { _ = srv.Serve() }()

	t.Cleanup(func() {
		_ = srv.Close()
		_ = hub.Shutdown(2 * time.Second)
	})

	return hub, srv.Addr()
}

// ChatClient is a framed-TCP test participant.
type ChatClient struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

// Dial connects a new test participant to the coordinator.
func Dial(t *testing.T, addr string) *ChatClient {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, recvTimeout)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &ChatClient{t: t, conn: conn, reader: bufio.NewReader(conn)}
}

// Handshake claims an identity and returns the coordinator's reply
// (welcome on success, error on rejection).
func (c *ChatClient) Handshake(identity string) protocol.Message {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetWriteDeadline(time.Now().Add(recvTimeout)))
	require.NoError(c.t, protocol.WriteFrame(c.conn, []byte(identity), 0))
	return c.Recv()
}

// Join is the common register-and-expect-welcome opening move.
func Join(t *testing.T, addr, identity string) *ChatClient {
	t.Helper()
	c := Dial(t, addr)
	welcome := c.Handshake(identity)
	require.Equal(t, protocol.KindInfo, welcome.Kind)
	return c
}

// Send writes one message frame.
func (c *ChatClient) Send(m protocol.Message) {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetWriteDeadline(time.Now().Add(recvTimeout)))
	require.NoError(c.t, protocol.WriteMessage(c.conn, m, 0))
}

// SendRawFrame writes an arbitrary payload as one frame, bypassing the
// codec, for protocol-error tests.
func (c *ChatClient) SendRawFrame(payload []byte) {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetWriteDeadline(time.Now().Add(recvTimeout)))
	require.NoError(c.t, protocol.WriteFrame(c.conn, payload, len(payload)))
}

// Recv reads the next message, failing the test on timeout.
func (c *ChatClient) Recv() protocol.Message {
	c.t.Helper()
	m, err := c.TryRecv()
	require.NoError(c.t, err)
	return m
}

// TryRecv reads the next message or returns the transport error, for
// tests that expect the coordinator to close the connection.
func (c *ChatClient) TryRecv() (protocol.Message, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(recvTimeout)); err != nil {
		return protocol.Message{}, err
	}
	return protocol.ReadMessage(c.reader, 0)
}

// Close drops the connection abruptly, without a quit message.
func (c *ChatClient) Close() {
	_ = c.conn.Close()
}
