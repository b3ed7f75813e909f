package dispatch

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/app/media"
	"github.com/dkeye/Relay/internal/app/stats"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/protocol"
	"github.com/dkeye/Relay/internal/worker"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool
}

func (f *fakeTransport) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return core.ErrConnClosed
	}
	f.sent = append(f.sent, append([]byte(nil), fr...))
	return nil
}

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed
}

func (f *fakeTransport) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeTransport) RemoteAddr() string { return "127.0.0.1:5000" }

func (f *fakeTransport) raw() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.sent...)
}

// frames decodes every plain frame sent to the transport.
func (f *fakeTransport) frames(t *testing.T) []protocol.Frame {
	t.Helper()
	var out []protocol.Frame
	for _, b := range f.raw() {
		fr, n, err := protocol.Decode(b)
		require.NoError(t, err)
		require.Equal(t, len(b), n)
		out = append(out, fr)
	}
	return out
}

func (f *fakeTransport) last(t *testing.T) protocol.Frame {
	t.Helper()
	frames := f.frames(t)
	require.NotEmpty(t, frames)
	return frames[len(frames)-1]
}

type mockRecorder struct{ mock.Mock }

func (m *mockRecorder) SaveRecording(ctx context.Context, rec domain.Recording) error {
	return m.Called(ctx, rec).Error(0)
}

type fakeAuth struct {
	users map[string]*domain.User
	pass  map[string]string
	err   error
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{users: map[string]*domain.User{}, pass: map[string]string{}}
}

func (a *fakeAuth) Authenticate(_ context.Context, username, password string, role domain.Role) (*domain.User, error) {
	if a.err != nil {
		return nil, a.err
	}
	u, ok := a.users[username]
	if !ok || a.pass[username] != password || u.Role != role {
		return nil, domain.ErrInvalidCredentials
	}
	return u, nil
}

func (a *fakeAuth) Register(_ context.Context, acct domain.Account) (*domain.User, error) {
	if _, ok := a.users[acct.Username]; ok {
		return nil, domain.ErrUserExists
	}
	u := &domain.User{ID: domain.UserID("u-" + acct.Username), Username: acct.Username, Role: acct.Role}
	a.users[acct.Username] = u
	a.pass[acct.Username] = acct.Password
	return u, nil
}

type fakeWorkOrders struct {
	opened []domain.RoomID
}

func (w *fakeWorkOrders) OpenWorkOrder(_ context.Context, room domain.RoomID, _ string) error {
	w.opened = append(w.opened, room)
	return nil
}

type busyJobs struct{}

func (busyJobs) Submit(string, worker.Job) bool { return false }

type harness struct {
	d     *Dispatcher
	clock time.Time
	auth  *fakeAuth
}

func newHarness() *harness {
	reg := app.NewRegistry()
	counters := &stats.Counters{}
	h := &harness{clock: time.UnixMilli(1_700_000_000_000), auth: newFakeAuth()}
	h.d = &Dispatcher{
		Registry:  reg,
		Fanout:    &app.Fanout{Registry: reg, Counters: counters},
		Cache:     media.NewCache(media.DefaultCacheSize),
		Sequencer: &media.Sequencer{},
		Counters:  counters,
		Auth:      h.auth,
		Now:       func() time.Time { return h.clock },
	}
	return h
}

// connect registers a connection, logged in as username unless it is empty.
func (h *harness) connect(username string, role domain.Role) (*core.Connection, *fakeTransport) {
	ft := &fakeTransport{}
	c := h.d.Registry.Register(ft)
	if username != "" {
		c.User = &domain.User{ID: domain.UserID("u-" + username), Username: username, Role: role}
	}
	return c, ft
}

func (h *harness) member(room domain.RoomID, username string, role domain.Role) (*core.Connection, *fakeTransport) {
	c, ft := h.connect(username, role)
	h.d.Registry.Join(c.ID, room)
	return c, ft
}

func (h *harness) frame(kind protocol.Kind, fields protocol.Fields, bin []byte) protocol.Frame {
	return protocol.Frame{Kind: kind, Fields: fields, Binary: bin, Timestamp: h.clock.UnixMilli()}
}

// captureLog redirects the global logger into a buffer for the rest of the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}
