package core

import "github.com/dkeye/Relay/internal/domain"

// PublishResult reports delivery stats/backpressure of one fan-out.
type PublishResult struct {
	SendTo  int
	Skipped int
	Dropped []*Connection
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	SID      SessionID   `json:"sid"`
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
}

type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"client_count"`
	Members     []MemberDTO   `json:"members"`
}
