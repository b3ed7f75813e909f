package domain

import (
	"errors"
	"time"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Account is what a client submits to register.
type Account struct {
	Username string
	Password string
	Email    string
	Phone    string
	Role     Role
}

// Recording tags.
const (
	RecordText       = "text"
	RecordDeviceData = "device_data"
	RecordVideo      = "video"
	RecordAudio      = "audio"
)

// Recording is one frame handed to the recording sink.
type Recording struct {
	Room     RoomID
	DataType string
	Frame    []byte
	At       time.Time
}
