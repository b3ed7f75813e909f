package reactor

import (
	"time"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/protocol"
	"github.com/rs/zerolog/log"
)

// retainBuffer is the largest drained buffer kept for reuse.
const retainBuffer = 64 << 10

// ingest appends chunk to the connection buffer and dispatches every
// complete frame in arrival order.
func (r *Reactor) ingest(sid core.SessionID, chunk []byte, receivedAt time.Time) {
	c, ok := r.registry.Get(sid)
	if !ok {
		return
	}
	n := uint64(len(chunk))
	c.LastActivity = receivedAt
	c.BytesReceived += n
	r.counters.BytesReceived += n

	c.Buffer = append(c.Buffer, chunk...)
	frames, consumed, err := protocol.DecodeAll(c.Buffer)
	if err != nil {
		log.Warn().Err(err).Str("module", "reactor").Str("sid", string(sid)).Msg("malformed frames skipped")
	}
	switch {
	case consumed == len(c.Buffer) && cap(c.Buffer) > retainBuffer:
		c.Buffer = nil
	case consumed == len(c.Buffer):
		c.Buffer = c.Buffer[:0]
	case consumed > 0 && cap(c.Buffer) > retainBuffer:
		c.Buffer = append([]byte(nil), c.Buffer[consumed:]...)
	case consumed > 0:
		c.Buffer = append(c.Buffer[:0], c.Buffer[consumed:]...)
	}

	for _, f := range frames {
		r.dispatcher.Dispatch(c, f)
	}

	if len(frames) == 0 && len(c.Buffer) > r.cfg.MaxBuffer {
		r.oversized(c)
		return
	}

	if took := r.now().Sub(receivedAt); took > r.cfg.ProcessWarn {
		log.Warn().Str("module", "reactor").Str("sid", string(sid)).Dur("took", took).Int("frames", len(frames)).
			Msg("slow processing")
	}
}

func (r *Reactor) oversized(c *core.Connection) {
	log.Warn().Str("module", "reactor").Str("sid", string(c.ID)).Int("buffered", len(c.Buffer)).
		Str("policy", string(r.cfg.Oversize)).Msg("buffer limit exceeded")
	switch r.cfg.Oversize {
	case OversizeClose:
		c.Transport.Close()
		r.dispatcher.Disconnect(c.ID)
	default:
		c.Buffer = nil
	}
}
