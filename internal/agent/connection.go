// ABOUTME: Represents a single connected panel and wraps its WebSocket.
// ABOUTME: Serializes writes and tracks liveness for the registry.

package agent

import (
	"errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrConnectionClosed indicates a send was attempted on a closed connection.
var ErrConnectionClosed = errors.New("connection closed")

// wsConn is the subset of *websocket.Conn the connection relies on.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (int, []byte, error)
	RemoteAddr() net.Addr
	Close() error
}

// Connection represents one connected panel. Writes are serialized with a
// mutex because the underlying WebSocket supports only one concurrent writer.
type Connection struct {
	ID          string
	ConnectedAt time.Time

	conn    wsConn
	writeMu sync.Mutex
	closed  atomic.Bool
	logger  *slog.Logger
}

// NewConnection wraps an accepted WebSocket. Each connection gets a fresh
// identity; there is no uniqueness constraint beyond the connection itself.
func NewConnection(conn wsConn, logger *slog.Logger) *Connection {
	id := uuid.New().String()
	return &Connection{
		ID:          id,
		ConnectedAt: time.Now(),
		conn:        conn,
		logger:      logger.With("agent_id", id),
	}
}

// Send writes one JSON text frame to the panel.
func (c *Connection) Send(payload []byte) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// ReadMessage blocks until the next frame arrives or the connection drops.
func (c *Connection) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

// RemoteAddr returns the panel's remote address for logging.
func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Alive reports whether the connection is still usable for sends.
func (c *Connection) Alive() bool {
	return !c.closed.Load()
}

// Close shuts the underlying socket. Idempotent.
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.logger.Debug("closing connection")
	return c.conn.Close()
}
