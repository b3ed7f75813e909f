package dispatch

import (
	"context"
	"time"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/protocol"
	"github.com/rs/zerolog/log"
)

func (d *Dispatcher) handleJoin(c *core.Connection, f protocol.Frame) {
	if !c.Authenticated() {
		d.reply(c, protocol.CodeForbidden, "login first", nil)
		return
	}
	msg, err := protocol.Parse[protocol.JoinWorkOrder](f.Fields)
	if err != nil {
		log.Debug().Err(err).Str("module", "dispatch").Str("sid", string(c.ID)).Msg("bad join")
		d.reply(c, protocol.CodeBadRequest, "invalid work order id", nil)
		return
	}
	room := domain.RoomID(msg.RoomID)
	if err := room.Validate(); err != nil {
		d.reply(c, protocol.CodeBadRequest, err.Error(), nil)
		return
	}

	if prev := c.Room; prev != "" && prev != room {
		d.Registry.Leave(c.ID)
		d.announceLeft(prev, c)
	}
	if c.Room != room {
		d.Registry.Join(c.ID, room)
		d.Fanout.ForwardToRoom(room, protocol.Event("member_joined", protocol.Fields{
			"username": c.Username(),
			"role":     string(c.Role()),
		}, d.now()), c.ID)
	}

	members := len(d.Registry.MembersOf(room, ""))
	d.reply(c, protocol.CodeOK, "joined work order", protocol.Fields{
		"roomId":  string(room),
		"members": members,
	})

	if d.WorkOrders != nil {
		creator := c.Username()
		d.async(nil, "work_order.open", func(ctx context.Context) error {
			return d.WorkOrders.OpenWorkOrder(ctx, room, creator)
		})
	}
}

func (d *Dispatcher) handleLeave(c *core.Connection) {
	room, ok := d.Registry.Leave(c.ID)
	if !ok {
		d.reply(c, protocol.CodeBadRequest, "not in a work order", nil)
		return
	}
	d.reply(c, protocol.CodeOK, "left work order", protocol.Fields{"roomId": string(room)})
	d.announceLeft(room, c)
}

func (d *Dispatcher) announceLeft(room domain.RoomID, c *core.Connection) {
	d.Fanout.ForwardToRoom(room, protocol.Event("member_left", protocol.Fields{
		"username": c.Username(),
	}, d.now()), c.ID)
}

// handleText stamps sender and server time, then fans out.
func (d *Dispatcher) handleText(c *core.Connection, f protocol.Frame) {
	now := d.now()
	fields := f.Fields.Clone()
	fields["sender"] = c.Username()
	fields["timestamp"] = now.UTC().Format(time.RFC3339)

	d.Fanout.ForwardToRoom(c.Room, protocol.Encode(protocol.KindText, fields, nil, now.UnixMilli()), c.ID)
	d.record(c, f, domain.RecordText, now)
}

func (d *Dispatcher) handleDeviceData(c *core.Connection, f protocol.Frame) {
	reading, err := protocol.Parse[protocol.DeviceReading](f.Fields)
	if err != nil {
		log.Debug().Err(err).Str("module", "dispatch").Str("sid", string(c.ID)).Msg("bad device data")
		d.reply(c, protocol.CodeBadRequest, "invalid device data format", nil)
		return
	}
	now := d.now()
	fields := f.Fields.Clone()
	fields["timestamp"] = now.UTC().Format(time.RFC3339)
	d.Fanout.ForwardToRoom(c.Room, protocol.Encode(protocol.KindDeviceData, fields, f.Binary, now.UnixMilli()), c.ID)
	d.record(c, f, domain.RecordDeviceData, now)
	log.Debug().Str("module", "dispatch").Str("room", string(c.Room)).Str("device", reading.DeviceID).Msg("device data relayed")
}

// handleControl lets experts drive devices of the room.
func (d *Dispatcher) handleControl(c *core.Connection, f protocol.Frame) {
	if c.Role() != domain.RoleExpert {
		log.Warn().Str("module", "dispatch").Str("sid", string(c.ID)).Str("user", c.Username()).Msg("control from non-expert")
		d.reply(c, protocol.CodeForbidden, "only experts can send control commands", nil)
		return
	}
	cmd, err := protocol.Parse[protocol.ControlCommand](f.Fields)
	if err != nil {
		log.Debug().Err(err).Str("module", "dispatch").Str("sid", string(c.ID)).Msg("bad control command")
		d.reply(c, protocol.CodeBadRequest, "control command needs command and target", nil)
		return
	}

	d.Fanout.ForwardToRoom(c.Room, protocol.Encode(protocol.KindControl, f.Fields, nil, f.Timestamp), c.ID)
	d.reply(c, protocol.CodeOK, "control command sent", protocol.Fields{
		"command": cmd.Command,
		"target":  cmd.Target,
	})
	log.Info().Str("module", "dispatch").Str("room", string(c.Room)).Str("command", cmd.Command).Str("target", cmd.Target).Msg("control command")
}
