package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dkeye/Relay/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// Register creates an account with a bcrypt password hash.
func (s *Store) Register(ctx context.Context, acct domain.Account) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(acct.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, email, phone, user_type) VALUES (?, ?, ?, ?, ?)`,
		acct.Username, string(hash), acct.Email, acct.Phone, acct.Role.UserType())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("user id: %w", err)
	}
	return domain.NewUser(domain.UserID(strconv.FormatInt(id, 10)), acct.Username, acct.Role)
}

// Authenticate checks the password of username registered with role.
func (s *Store) Authenticate(ctx context.Context, username, password string, role domain.Role) (*domain.User, error) {
	var (
		id   int64
		hash string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, password_hash FROM users WHERE username = ? AND user_type = ?`,
		username, role.UserType()).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return domain.NewUser(domain.UserID(strconv.FormatInt(id, 10)), username, role)
}
