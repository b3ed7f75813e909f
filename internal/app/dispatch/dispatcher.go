// Package dispatch routes decoded frames to their handlers and enforces the
// per-kind preconditions (login, room membership, role).
package dispatch

import (
	"context"
	"time"

	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/app/media"
	"github.com/dkeye/Relay/internal/app/stats"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/protocol"
	"github.com/dkeye/Relay/internal/worker"
	"github.com/rs/zerolog/log"
)

const DefaultMediaDelayWarn = 100 * time.Millisecond

// Recorder persists relayed frames.
type Recorder interface {
	SaveRecording(ctx context.Context, rec domain.Recording) error
}

// Authenticator checks and creates accounts.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string, role domain.Role) (*domain.User, error)
	Register(ctx context.Context, acct domain.Account) (*domain.User, error)
}

// WorkOrders is notified when a room is joined.
type WorkOrders interface {
	OpenWorkOrder(ctx context.Context, room domain.RoomID, creator string) error
}

// Jobs runs slow work away from the reactor.
type Jobs interface {
	Submit(name string, job worker.Job) bool
}

// Loop runs fn on the reactor goroutine. It reports false once stopped.
type Loop interface {
	Post(fn func()) bool
}

// Dispatcher handles one frame at a time on the reactor goroutine.
// Collaborators left nil are skipped.
type Dispatcher struct {
	Registry  *app.Registry
	Fanout    *app.Fanout
	Cache     *media.Cache
	Sequencer *media.Sequencer
	Counters  *stats.Counters

	Recorder   Recorder
	Auth       Authenticator
	WorkOrders WorkOrders
	Jobs       Jobs
	Loop       Loop
	Limiter    *LoginRateLimiter

	MediaDelayWarn time.Duration
	Now            func() time.Time
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Dispatch handles one decoded frame from c.
func (d *Dispatcher) Dispatch(c *core.Connection, f protocol.Frame) {
	c.PacketsReceived++
	d.Counters.PacketsReceived++

	if f.Kind.RoomScoped() && !c.InRoom() {
		log.Warn().Str("module", "dispatch").Str("sid", string(c.ID)).Stringer("kind", f.Kind).Msg("frame outside of a room")
		d.reply(c, protocol.CodeForbidden, "join a room first", nil)
		return
	}

	switch f.Kind {
	case protocol.KindHeartbeat:
		d.handleHeartbeat(c, f)
	case protocol.KindRegister:
		d.handleRegister(c, f)
	case protocol.KindLogin:
		d.handleLogin(c, f)
	case protocol.KindJoinWorkOrder:
		d.handleJoin(c, f)
	case protocol.KindLeaveWorkOrder:
		d.handleLeave(c)
	case protocol.KindText:
		d.handleText(c, f)
	case protocol.KindDeviceData:
		d.handleDeviceData(c, f)
	case protocol.KindVideoFrame, protocol.KindAudioFrame:
		d.handleMedia(c, f)
	case protocol.KindControl:
		d.handleControl(c, f)
	case protocol.KindQoSNack:
		d.handleNack(c, f)
	default:
		log.Warn().Str("module", "dispatch").Str("sid", string(c.ID)).Uint32("kind", uint32(f.Kind)).Msg("unknown frame kind")
		d.reply(c, protocol.CodeBadRequest, "unknown message type", nil)
	}
}

// Disconnect removes sid and tells its room.
func (d *Dispatcher) Disconnect(sid core.SessionID) {
	c, ok := d.Registry.Remove(sid)
	if !ok {
		return
	}
	if room := c.Room; room != "" {
		d.announceLeft(room, c)
	}
}

func (d *Dispatcher) reply(c *core.Connection, code int, msg string, extra protocol.Fields) {
	st := protocol.Status{Code: code, Message: msg, Extra: extra}
	d.send(c, st.Encode(d.now()))
}

func (d *Dispatcher) send(c *core.Connection, frame []byte) {
	if err := c.Send(frame); err != nil {
		log.Warn().Err(err).Str("module", "dispatch").Str("sid", string(c.ID)).Msg("reply dropped")
		return
	}
	d.Counters.BytesSent += uint64(len(frame))
	d.Counters.PacketsSent++
}

// async runs job on the worker queue; a full queue is reported to c.
func (d *Dispatcher) async(c *core.Connection, name string, job worker.Job) bool {
	if d.Jobs == nil {
		if err := job(context.Background()); err != nil {
			log.Error().Err(err).Str("module", "dispatch").Str("job", name).Msg("job failed")
		}
		return true
	}
	if !d.Jobs.Submit(name, job) {
		if c != nil {
			d.reply(c, protocol.CodeInternal, "server busy", nil)
		}
		return false
	}
	return true
}

// post hands fn back to the reactor; without a loop it runs inline.
func (d *Dispatcher) post(fn func()) {
	if d.Loop == nil {
		fn()
		return
	}
	if !d.Loop.Post(fn) {
		log.Debug().Str("module", "dispatch").Msg("reactor stopped, result discarded")
	}
}

func (d *Dispatcher) record(c *core.Connection, f protocol.Frame, tag string, at time.Time) {
	if d.Recorder == nil {
		return
	}
	rec := domain.Recording{Room: c.Room, DataType: tag, Frame: protocol.EncodeFrame(f), At: at}
	d.async(nil, "record."+tag, func(ctx context.Context) error {
		return d.Recorder.SaveRecording(ctx, rec)
	})
}
