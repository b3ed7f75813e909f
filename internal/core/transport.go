package core

import "errors"

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// Frame is one encoded wire frame, ready to be written as is.
type Frame []byte

// Transport abstracts a connected socket (TCP or WebSocket).
// Owned by the adapter; the adapter must Close() it.
type Transport interface {
	// TrySend queues f without blocking; ErrBackpressure when the queue is full.
	TrySend(f Frame) error
	Connected() bool
	Close()
	RemoteAddr() string
}
