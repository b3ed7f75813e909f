package reactor

import (
	"time"

	"github.com/dkeye/Relay/internal/core"
	"github.com/rs/zerolog/log"
)

// tick samples throughput and closes idle connections.
func (r *Reactor) tick(now time.Time) {
	r.monitor.Sample(now, r.registry.RoomCount(), r.registry.ConnectionCount())
	r.sweepIdle(now)
	if r.dispatcher.Limiter != nil {
		r.dispatcher.Limiter.Forget()
	}
}

func (r *Reactor) sweepIdle(now time.Time) {
	if r.cfg.IdleTimeout <= 0 {
		return
	}
	var idle []*core.Connection
	r.registry.Each(func(c *core.Connection) {
		if now.Sub(c.LastActivity) > r.cfg.IdleTimeout {
			idle = append(idle, c)
		}
	})
	for _, c := range idle {
		log.Info().Str("module", "reactor").Str("sid", string(c.ID)).Time("last_activity", c.LastActivity).Msg("closing idle connection")
		if c.Transport != nil {
			c.Transport.Close()
		}
		r.dispatcher.Disconnect(c.ID)
	}
}
