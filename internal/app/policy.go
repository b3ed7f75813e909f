package app

import (
	"fmt"

	"github.com/dkeye/Relay/internal/core"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	Disconnect
)

// Policy decides what happens to a member whose send queue is full.
type Policy interface {
	OnBackPressure(room string, member *core.Connection) BackpressureAction
}

// IgnorePolicy drops the frame for that member and keeps it connected.
type IgnorePolicy struct{}

func (IgnorePolicy) OnBackPressure(string, *core.Connection) BackpressureAction { return NoAction }

// DisconnectPolicy closes slow members; the registry forgets them once the
// transport reports the disconnect.
type DisconnectPolicy struct{}

func (DisconnectPolicy) OnBackPressure(string, *core.Connection) BackpressureAction {
	return Disconnect
}

func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", "ignore":
		return IgnorePolicy{}, nil
	case "disconnect":
		return DisconnectPolicy{}, nil
	}
	return nil, fmt.Errorf("unknown slow consumer policy %q", name)
}
