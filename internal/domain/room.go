package domain

import "errors"

const MaxRoomIDLen = 64

var ErrRoomIDInvalid = errors.New("room id must be 1-64 bytes")

// RoomID is the work-order id a room is keyed by. Opaque to the relay.
type RoomID string

func (id RoomID) Validate() error {
	if len(id) == 0 || len(id) > MaxRoomIDLen {
		return ErrRoomIDInvalid
	}
	return nil
}
