package dispatch

import (
	"time"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/protocol"
	"github.com/rs/zerolog/log"
)

// handleMedia sequences a video or audio frame, caches it for
// retransmission and forwards the enhanced frame to the room.
func (d *Dispatcher) handleMedia(c *core.Connection, f protocol.Frame) {
	now := d.now()
	warn := d.MediaDelayWarn
	if warn <= 0 {
		warn = DefaultMediaDelayWarn
	}
	if delay := now.Sub(f.Time()); delay > warn {
		log.Warn().Str("module", "dispatch").Str("sid", string(c.ID)).Stringer("kind", f.Kind).
			Dur("delay", delay).Msg("high media delay")
	}

	seq := d.Sequencer.Next()
	inner := protocol.Encode(f.Kind, nil, f.Binary, f.Timestamp)
	enhanced := protocol.EncodeEnhanced(seq, f.Timestamp, inner)
	d.Cache.Insert(seq, c.Room, enhanced)

	d.Fanout.ForwardToRoom(c.Room, enhanced, c.ID)

	n := uint64(len(f.Binary))
	c.MediaBytesSent += n
	c.MediaPacketsSent++
	d.Counters.MediaBytesSent += n
	d.Counters.MediaPacketsSent++

	tag := domain.RecordVideo
	if f.Kind == protocol.KindAudioFrame {
		tag = domain.RecordAudio
	}
	d.record(c, f, tag, now)
}

// handleNack resends a cached enhanced frame to the requester only.
func (d *Dispatcher) handleNack(c *core.Connection, f protocol.Frame) {
	nack, err := protocol.Parse[protocol.QoSNack](f.Fields)
	if err != nil {
		d.reply(c, protocol.CodeBadRequest, "invalid nack format", nil)
		return
	}
	seq := *nack.Sequence

	entry, ok := d.Cache.Lookup(seq)
	if !ok {
		log.Warn().Str("module", "dispatch").Str("sid", string(c.ID)).Uint64("seq", seq).Msg("nack miss, packet not cached")
		return
	}
	if entry.Room != c.Room {
		log.Warn().Str("module", "dispatch").Str("sid", string(c.ID)).Uint64("seq", seq).
			Str("room", string(c.Room)).Msg("nack for another room's packet")
		return
	}

	if ts, _, err := protocol.EnhancedHeader(entry.Frame); err == nil {
		latency := d.now().Sub(time.UnixMilli(ts))
		log.Info().Str("module", "dispatch").Str("sid", string(c.ID)).Uint64("seq", seq).
			Dur("latency", latency).Msg("retransmitting")
	}
	d.send(c, entry.Frame)
}
