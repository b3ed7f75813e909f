package app

import (
	"testing"

	"github.com/dkeye/Relay/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(conns []*core.Connection) []core.SessionID {
	out := make([]core.SessionID, 0, len(conns))
	for _, c := range conns {
		out = append(out, c.ID)
	}
	return out
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	a := r.Register(&fakeTransport{})
	b := r.Register(&fakeTransport{})

	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Authenticated())
	assert.False(t, a.InRoom())
	assert.Equal(t, 2, r.ConnectionCount())

	got, ok := r.Get(a.ID)
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_JoinMovesBetweenRooms(t *testing.T) {
	r := NewRegistry()
	a := r.Register(&fakeTransport{})
	b := r.Register(&fakeTransport{})

	require.True(t, r.Join(a.ID, "WO-1"))
	require.True(t, r.Join(b.ID, "WO-1"))
	assert.ElementsMatch(t, []core.SessionID{b.ID}, ids(r.MembersOf("WO-1", a.ID)))
	assert.Equal(t, 1, r.RoomCount())

	require.True(t, r.Join(a.ID, "WO-2"))
	assert.Equal(t, "WO-2", string(a.Room))
	assert.ElementsMatch(t, []core.SessionID{b.ID}, ids(r.MembersOf("WO-1", "")))
	assert.ElementsMatch(t, []core.SessionID{a.ID}, ids(r.MembersOf("WO-2", "")))
	assert.Equal(t, 2, r.RoomCount())

	assert.False(t, r.Join("missing", "WO-1"))
}

func TestRegistry_Leave(t *testing.T) {
	r := NewRegistry()
	a := r.Register(&fakeTransport{})
	r.Join(a.ID, "WO-1")

	room, ok := r.Leave(a.ID)
	require.True(t, ok)
	assert.Equal(t, "WO-1", string(room))
	assert.Zero(t, r.RoomCount())

	_, ok = r.Leave(a.ID)
	assert.False(t, ok)
}

func TestRegistry_RemoveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	a := r.Register(&fakeTransport{})
	b := r.Register(&fakeTransport{})
	r.Join(a.ID, "WO-1")
	r.Join(b.ID, "WO-1")

	_, ok := r.Remove(a.ID)
	require.True(t, ok)
	_, ok = r.Remove(a.ID)
	assert.False(t, ok)

	assert.Empty(t, r.MembersOf("WO-1", b.ID))
	assert.Equal(t, 1, r.ConnectionCount())

	infos := r.Rooms()
	require.Len(t, infos, 1)
	assert.Equal(t, 1, infos[0].MemberCount)
	assert.Equal(t, b.ID, infos[0].Members[0].SID)
}

func TestRegistry_MembersOfUnknownRoom(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.MembersOf("nope", ""))
}
