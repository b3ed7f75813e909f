package core

import (
	"time"

	"github.com/dkeye/Relay/internal/domain"
)

type SessionID string

// Counters are cumulative traffic totals of one connection.
type Counters struct {
	BytesReceived    uint64 `json:"bytesReceived"`
	PacketsReceived  uint64 `json:"packetsReceived"`
	BytesSent        uint64 `json:"bytesSent"`
	PacketsSent      uint64 `json:"packetsSent"`
	MediaBytesSent   uint64 `json:"mediaBytesSent"`
	MediaPacketsSent uint64 `json:"mediaPacketsSent"`
}

// Connection is the relay-side state of one accepted socket.
// It is owned by the reactor goroutine and never shared with others.
type Connection struct {
	ID        SessionID
	Transport Transport

	User         *domain.User
	Room         domain.RoomID
	LastActivity time.Time
	Counters

	// Buffer holds bytes received but not yet decoded into frames.
	Buffer []byte
}

func NewConnection(sid SessionID, t Transport, now time.Time) *Connection {
	return &Connection{ID: sid, Transport: t, LastActivity: now}
}

func (c *Connection) Authenticated() bool { return c.User != nil }

func (c *Connection) InRoom() bool { return c.Room != "" }

// Role is the role attached at login, or empty when not logged in.
func (c *Connection) Role() domain.Role {
	if c.User == nil {
		return ""
	}
	return c.User.Role
}

func (c *Connection) Username() string {
	if c.User == nil {
		return ""
	}
	return c.User.Username
}

// Send queues f on the transport and bumps the sent counters on success.
func (c *Connection) Send(f Frame) error {
	if c.Transport == nil || !c.Transport.Connected() {
		return ErrConnClosed
	}
	if err := c.Transport.TrySend(f); err != nil {
		return err
	}
	c.BytesSent += uint64(len(f))
	c.PacketsSent++
	return nil
}

func (c *Connection) DTO() MemberDTO {
	return MemberDTO{SID: c.ID, Username: c.Username(), Role: c.Role()}
}
