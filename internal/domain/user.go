// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"fmt"
)

const (
	MaxUsernameLen = 36
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
	ErrUnknownRole     = errors.New("unknown role")
)

type UserID string

// Role decides which message kinds a user may send once in a room.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleExpert Role = "expert"
)

// ParseRole accepts the role names used on the wire.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleViewer, RoleExpert:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// UserType is the numeric role code stored in the users table.
func (r Role) UserType() int {
	if r == RoleExpert {
		return 2
	}
	return 1
}

func RoleFromUserType(t int) Role {
	if t == 2 {
		return RoleExpert
	}
	return RoleViewer
}

type User struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(id UserID, username string, role Role) (*User, error) {
	if len(username) == 0 {
		return nil, ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return nil, ErrUsernameTooLong
	}
	return &User{ID: id, Username: username, Role: role}, nil
}

func (u *User) IsExpert() bool { return u != nil && u.Role == RoleExpert }
