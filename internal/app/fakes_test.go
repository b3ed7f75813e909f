package app

import (
	"bytes"
	"sync"
	"testing"

	"github.com/dkeye/Relay/internal/core"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type fakeTransport struct {
	mu      sync.Mutex
	sent    []core.Frame
	sendErr error
	closed  bool
}

func (f *fakeTransport) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, fr)
	return nil
}

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed
}

func (f *fakeTransport) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeTransport) RemoteAddr() string { return "pipe" }

func (f *fakeTransport) getSent() []core.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.Frame(nil), f.sent...)
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
