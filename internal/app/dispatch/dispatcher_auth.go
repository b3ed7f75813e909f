package dispatch

import (
	"context"
	"errors"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/protocol"
	"github.com/rs/zerolog/log"
)

// handleHeartbeat echoes the client timestamp back.
func (d *Dispatcher) handleHeartbeat(c *core.Connection, f protocol.Frame) {
	d.send(c, protocol.Encode(protocol.KindHeartbeat, nil, nil, f.Timestamp))
}

func (d *Dispatcher) handleLogin(c *core.Connection, f protocol.Frame) {
	if c.Authenticated() {
		d.reply(c, protocol.CodeBadRequest, "already logged in", nil)
		return
	}
	msg, err := protocol.Parse[protocol.Login](f.Fields)
	if err != nil {
		log.Debug().Err(err).Str("module", "dispatch").Str("sid", string(c.ID)).Msg("bad login")
		d.reply(c, protocol.CodeBadRequest, "invalid login format", nil)
		return
	}
	if d.Limiter != nil && !d.Limiter.Allow(msg.Username) {
		log.Warn().Str("module", "dispatch").Str("user", msg.Username).Msg("login rate limited")
		d.reply(c, protocol.CodeTooMany, "too many login attempts", nil)
		return
	}
	if d.Auth == nil {
		d.reply(c, protocol.CodeInternal, "authentication unavailable", nil)
		return
	}
	role, err := domain.ParseRole(msg.Role)
	if err != nil {
		d.reply(c, protocol.CodeBadRequest, err.Error(), nil)
		return
	}

	sid := c.ID
	d.async(c, "auth.login", func(ctx context.Context) error {
		user, err := d.Auth.Authenticate(ctx, msg.Username, msg.Password, role)
		d.post(func() { d.finishLogin(sid, msg.Username, user, err) })
		return nil
	})
}

func (d *Dispatcher) finishLogin(sid core.SessionID, username string, user *domain.User, err error) {
	c, ok := d.Registry.Get(sid)
	if !ok {
		log.Debug().Str("module", "dispatch").Str("sid", string(sid)).Msg("login finished after disconnect")
		return
	}
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		log.Info().Str("module", "dispatch").Str("sid", string(sid)).Str("user", username).Msg("login rejected")
		d.reply(c, protocol.CodeUnauthorized, "invalid credentials", nil)
	case err != nil:
		log.Error().Err(err).Str("module", "dispatch").Str("sid", string(sid)).Msg("login failed")
		d.reply(c, protocol.CodeInternal, "authentication failed", nil)
	default:
		c.User = user
		log.Info().Str("module", "dispatch").Str("sid", string(sid)).Str("user", user.Username).Str("role", string(user.Role)).Msg("logged in")
		d.reply(c, protocol.CodeOK, "login successful", protocol.Fields{
			"username": user.Username,
			"role":     string(user.Role),
			"userId":   string(user.ID),
		})
	}
}

func (d *Dispatcher) handleRegister(c *core.Connection, f protocol.Frame) {
	msg, err := protocol.Parse[protocol.Register](f.Fields)
	if err != nil {
		log.Debug().Err(err).Str("module", "dispatch").Str("sid", string(c.ID)).Msg("bad register")
		d.reply(c, protocol.CodeBadRequest, "invalid registration format", nil)
		return
	}
	if d.Auth == nil {
		d.reply(c, protocol.CodeInternal, "registration unavailable", nil)
		return
	}
	role, err := domain.ParseRole(msg.Role)
	if err != nil {
		d.reply(c, protocol.CodeBadRequest, err.Error(), nil)
		return
	}
	acct := domain.Account{Username: msg.Username, Password: msg.Password, Email: msg.Email, Phone: msg.Phone, Role: role}

	sid := c.ID
	d.async(c, "auth.register", func(ctx context.Context) error {
		_, err := d.Auth.Register(ctx, acct)
		d.post(func() { d.finishRegister(sid, acct.Username, err) })
		return nil
	})
}

func (d *Dispatcher) finishRegister(sid core.SessionID, username string, err error) {
	c, ok := d.Registry.Get(sid)
	if !ok {
		return
	}
	switch {
	case errors.Is(err, domain.ErrUserExists):
		d.reply(c, protocol.CodeConflict, "username already taken", nil)
	case err != nil:
		log.Error().Err(err).Str("module", "dispatch").Str("sid", string(sid)).Msg("register failed")
		d.reply(c, protocol.CodeInternal, "registration failed", nil)
	default:
		log.Info().Str("module", "dispatch").Str("user", username).Msg("registered")
		d.reply(c, protocol.CodeOK, "registration successful", protocol.Fields{"username": username})
	}
}
