package app

import (
	"time"

	"github.com/dkeye/Relay/internal/app/stats"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

const DefaultFanoutWarn = 10 * time.Millisecond

// Fanout writes one encoded frame to every member of a room.
type Fanout struct {
	Registry *Registry
	Counters *stats.Counters
	Policy   Policy
	// WarnAfter is the soft time budget of one fan-out; 0 uses DefaultFanoutWarn.
	WarnAfter time.Duration

	now func() time.Time
}

func (f *Fanout) clock() time.Time {
	if f.now != nil {
		return f.now()
	}
	return time.Now()
}

// ForwardToRoom sends frame to all room members except exclude. Members whose
// transport is gone are skipped; a failed write never stops the fan-out.
func (f *Fanout) ForwardToRoom(room domain.RoomID, frame core.Frame, exclude core.SessionID) core.PublishResult {
	start := f.clock()
	members := f.Registry.MembersOf(room, exclude)
	res := core.PublishResult{}

	for _, m := range members {
		if m.Transport == nil || !m.Transport.Connected() {
			res.Skipped++
			continue
		}
		if err := m.Send(frame); err != nil {
			log.Warn().Err(err).
				Str("module", "fanout").
				Str("room", string(room)).
				Str("sid", string(m.ID)).
				Str("remote", m.Transport.RemoteAddr()).
				Msg("send to member failed")
			res.Dropped = append(res.Dropped, m)
			continue
		}
		f.Counters.BytesSent += uint64(len(frame))
		f.Counters.PacketsSent++
		res.SendTo++
	}

	f.applyPolicy(room, res.Dropped)

	budget := f.WarnAfter
	if budget <= 0 {
		budget = DefaultFanoutWarn
	}
	if took := f.clock().Sub(start); took > budget {
		log.Warn().
			Str("module", "fanout").
			Str("room", string(room)).
			Dur("took", took).
			Int("members", len(members)).
			Int("bytes", len(frame)).
			Msg("slow fan-out")
	}
	log.Debug().Str("module", "fanout").Str("room", string(room)).Str("from", string(exclude)).
		Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (f *Fanout) applyPolicy(room domain.RoomID, dropped []*core.Connection) {
	if f.Policy == nil {
		return
	}
	for _, slow := range dropped {
		switch f.Policy.OnBackPressure(string(room), slow) {
		case Disconnect:
			log.Info().Str("module", "fanout").Str("sid", string(slow.ID)).Msg("closing slow member")
			slow.Transport.Close()
		case NoAction:
		}
	}
}
