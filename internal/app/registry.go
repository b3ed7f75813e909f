package app

import (
	"time"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Registry owns every live connection and the room membership index.
// Not safe for concurrent use: only the reactor goroutine touches it.
type Registry struct {
	conns map[core.SessionID]*core.Connection
	rooms map[domain.RoomID]map[core.SessionID]*core.Connection

	newID func() core.SessionID
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[core.SessionID]*core.Connection),
		rooms: make(map[domain.RoomID]map[core.SessionID]*core.Connection),
		newID: func() core.SessionID { return core.SessionID(uuid.NewString()) },
		now:   time.Now,
	}
}

// Register creates the state for an accepted transport: no user, no room.
func (r *Registry) Register(t core.Transport) *core.Connection {
	c := core.NewConnection(r.newID(), t, r.now())
	r.conns[c.ID] = c
	log.Info().Str("module", "app.registry").Str("sid", string(c.ID)).Str("remote", t.RemoteAddr()).Msg("registered connection")
	return c
}

func (r *Registry) Get(sid core.SessionID) (*core.Connection, bool) {
	c, ok := r.conns[sid]
	return c, ok
}

// Join moves the connection into room, leaving any previous one.
func (r *Registry) Join(sid core.SessionID, room domain.RoomID) bool {
	c, ok := r.conns[sid]
	if !ok {
		return false
	}
	if c.Room == room {
		return true
	}
	r.detach(c)
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[core.SessionID]*core.Connection)
		r.rooms[room] = members
	}
	members[sid] = c
	c.Room = room
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Msg("joined room")
	return true
}

// Leave drops the room association and returns the room that was left.
func (r *Registry) Leave(sid core.SessionID) (domain.RoomID, bool) {
	c, ok := r.conns[sid]
	if !ok || !c.InRoom() {
		return "", false
	}
	room := c.Room
	r.detach(c)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Msg("left room")
	return room, true
}

func (r *Registry) detach(c *core.Connection) {
	if !c.InRoom() {
		return
	}
	if members, ok := r.rooms[c.Room]; ok {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(r.rooms, c.Room)
		}
	}
	c.Room = ""
}

// MembersOf returns the room members except exclude, in no particular order.
func (r *Registry) MembersOf(room domain.RoomID, exclude core.SessionID) []*core.Connection {
	members := r.rooms[room]
	out := make([]*core.Connection, 0, len(members))
	for sid, c := range members {
		if sid == exclude {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Remove purges the connection from its room and the handle table. Idempotent.
func (r *Registry) Remove(sid core.SessionID) (*core.Connection, bool) {
	c, ok := r.conns[sid]
	if !ok {
		return nil, false
	}
	r.detach(c)
	delete(r.conns, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("removed connection")
	return c, true
}

func (r *Registry) RoomCount() int { return len(r.rooms) }

func (r *Registry) ConnectionCount() int { return len(r.conns) }

func (r *Registry) Rooms() []core.RoomInfo {
	out := make([]core.RoomInfo, 0, len(r.rooms))
	for id, members := range r.rooms {
		info := core.RoomInfo{ID: id, MemberCount: len(members), Members: make([]core.MemberDTO, 0, len(members))}
		for _, c := range members {
			info.Members = append(info.Members, c.DTO())
		}
		out = append(out, info)
	}
	return out
}

// Each calls fn for every connection; fn must not register or remove.
func (r *Registry) Each(fn func(*core.Connection)) {
	for _, c := range r.conns {
		fn(c)
	}
}
