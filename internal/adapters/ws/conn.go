// Package ws carries relay frames as binary WebSocket messages.
package ws

import (
	"sync"
	"sync/atomic"

	"github.com/dkeye/Relay/internal/core"
	"github.com/gorilla/websocket"
)

// Conn is the core.Transport of one WebSocket client.
type Conn struct {
	conn *websocket.Conn
	send chan core.Frame
	done chan struct{}

	once   sync.Once
	closed atomic.Bool
}

func newConn(ws *websocket.Conn, queue int) *Conn {
	return &Conn{
		conn: ws,
		send: make(chan core.Frame, queue),
		done: make(chan struct{}),
	}
}

// TrySend queues f for the write pump without blocking.
func (c *Conn) TrySend(f core.Frame) error {
	if c.closed.Load() {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
		return nil
	default:
		return core.ErrBackpressure
	}
}

func (c *Conn) Connected() bool { return !c.closed.Load() }

func (c *Conn) Close() {
	c.once.Do(func() {
		c.closed.Store(true)
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Conn) RemoteAddr() string { return c.conn.RemoteAddr().String() }
