// Package server abstracts the byte-stream transports behind frameConn so
// sessions are identical over framed TCP and WebSocket.
package server

import (
	"bufio"
	"net"
	"time"

	"github.com/gorilla/websocket"

	"github.com/classchat/relay/internal/protocol"
)

// writeTimeout bounds a single outbound write so a dead peer cannot stall
// its writer goroutine indefinitely.
const writeTimeout = 10 * time.Second

// frameConn carries whole message payloads over one bidirectional
// connection. ReadPayload blocks until a complete payload, a transport
// failure, or a protocol-level frame error; Close from any goroutine
// unblocks both directions.
type frameConn interface {
	ReadPayload() ([]byte, error)
	WritePayload(payload []byte) error
	Close() error
	RemoteAddr() string
}

// tcpConn frames payloads with the length-prefixed wire codec.
type tcpConn struct {
	conn       net.Conn
	reader     *bufio.Reader
	maxPayload int
}

func newTCPConn(conn net.Conn, maxPayload int) *tcpConn {
	return &tcpConn{
		conn:       conn,
		reader:     bufio.NewReader(conn),
		maxPayload: maxPayload,
	}
}

func (t *tcpConn) ReadPayload() ([]byte, error) {
	return protocol.ReadFrame(t.reader, t.maxPayload)
}

func (t *tcpConn) WritePayload(payload []byte) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return protocol.WriteFrame(t.conn, payload, t.maxPayload)
}

func (t *tcpConn) Close() error {
	return t.conn.Close()
}

func (t *tcpConn) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

// wsConn maps one WebSocket message to one payload; the WebSocket layer
// already provides message boundaries, so no length prefix is used.
type wsConn struct {
	conn *websocket.Conn
}

func newWSConn(conn *websocket.Conn, maxPayload int) *wsConn {
	conn.SetReadLimit(int64(maxPayload))
	return &wsConn{conn: conn}
}

func (w *wsConn) ReadPayload() ([]byte, error) {
	_, payload, err := w.conn.ReadMessage()
	return payload, err
}

func (w *wsConn) WritePayload(payload []byte) error {
	if err := w.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return w.conn.WriteMessage(websocket.TextMessage, payload)
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}

func (w *wsConn) RemoteAddr() string {
	return w.conn.RemoteAddr().String()
}
