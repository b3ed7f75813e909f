// Package reactor runs the relay core on a single goroutine. Transports feed
// bytes in, collaborators post results back, and nothing else touches the
// registry, the cache or the counters.
package reactor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/app/dispatch"
	"github.com/dkeye/Relay/internal/app/stats"
	"github.com/dkeye/Relay/internal/core"
	"github.com/rs/zerolog/log"
)

var ErrStopped = errors.New("reactor stopped")

const (
	DefaultMaxBuffer   = 1 << 20
	DefaultStatsPeriod = 10 * time.Second
	DefaultProcessWarn = 50 * time.Millisecond
	DefaultEventQueue  = 1024
)

// OversizePolicy decides what happens to a connection whose undecoded
// buffer outgrows MaxBuffer.
type OversizePolicy string

const (
	OversizeReset OversizePolicy = "reset"
	OversizeClose OversizePolicy = "close"
)

func ParseOversizePolicy(s string) (OversizePolicy, error) {
	switch OversizePolicy(s) {
	case "", OversizeReset:
		return OversizeReset, nil
	case OversizeClose:
		return OversizeClose, nil
	}
	return "", fmt.Errorf("unknown oversize policy %q", s)
}

type Config struct {
	MaxBuffer   int
	Oversize    OversizePolicy
	StatsPeriod time.Duration
	// IdleTimeout closes connections silent for longer; 0 disables the sweep.
	IdleTimeout time.Duration
	ProcessWarn time.Duration
	EventQueue  int
}

func (c *Config) setDefaults() {
	if c.MaxBuffer <= 0 {
		c.MaxBuffer = DefaultMaxBuffer
	}
	if c.Oversize == "" {
		c.Oversize = OversizeReset
	}
	if c.StatsPeriod <= 0 {
		c.StatsPeriod = DefaultStatsPeriod
	}
	if c.ProcessWarn <= 0 {
		c.ProcessWarn = DefaultProcessWarn
	}
	if c.EventQueue <= 0 {
		c.EventQueue = DefaultEventQueue
	}
}

// Reactor implements core.Hub.
type Reactor struct {
	cfg        Config
	registry   *app.Registry
	counters   *stats.Counters
	dispatcher *dispatch.Dispatcher
	monitor    *stats.Monitor

	events   chan func()
	done     chan struct{}
	stopOnce sync.Once

	now func() time.Time
}

var _ core.Hub = (*Reactor)(nil)

// New wires the reactor around d. d.Loop is pointed at the reactor.
func New(cfg Config, d *dispatch.Dispatcher) *Reactor {
	cfg.setDefaults()
	r := &Reactor{
		cfg:        cfg,
		registry:   d.Registry,
		counters:   d.Counters,
		dispatcher: d,
		events:     make(chan func(), cfg.EventQueue),
		done:       make(chan struct{}),
		now:        time.Now,
	}
	if d.Now != nil {
		r.now = d.Now
	}
	r.monitor = stats.NewMonitor(d.Counters, r.now())
	d.Loop = r
	return r
}

// Post queues fn for the reactor goroutine. It blocks while the queue is
// full and reports false once the reactor has stopped.
func (r *Reactor) Post(fn func()) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.events <- fn:
		return true
	case <-r.done:
		return false
	}
}

func (r *Reactor) Open(t core.Transport) (core.SessionID, error) {
	reply := make(chan core.SessionID, 1)
	if !r.Post(func() { reply <- r.registry.Register(t).ID }) {
		return "", ErrStopped
	}
	select {
	case sid := <-reply:
		return sid, nil
	case <-r.done:
		return "", ErrStopped
	}
}

func (r *Reactor) Feed(sid core.SessionID, chunk []byte) {
	at := r.now()
	r.Post(func() { r.ingest(sid, chunk, at) })
}

func (r *Reactor) Disconnect(sid core.SessionID) {
	r.Post(func() { r.dispatcher.Disconnect(sid) })
}

// Rooms lists the live rooms and their members.
func (r *Reactor) Rooms(ctx context.Context) ([]core.RoomInfo, error) {
	reply := make(chan []core.RoomInfo, 1)
	if !r.Post(func() { reply <- r.registry.Rooms() }) {
		return nil, ErrStopped
	}
	select {
	case rooms := <-reply:
		return rooms, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.done:
		return nil, ErrStopped
	}
}

// Stats is the most recent throughput snapshot. Safe from any goroutine.
func (r *Reactor) Stats() stats.Snapshot { return r.monitor.Latest() }

func (r *Reactor) Subscribe() (<-chan stats.Snapshot, func()) { return r.monitor.Subscribe() }

// Run processes events until ctx is done, then closes every transport.
func (r *Reactor) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.StatsPeriod)
	defer ticker.Stop()

	log.Info().Str("module", "reactor").Dur("stats_period", r.cfg.StatsPeriod).Int("max_buffer", r.cfg.MaxBuffer).
		Str("oversize", string(r.cfg.Oversize)).Msg("reactor started")

	for {
		select {
		case <-ctx.Done():
			r.stop()
			return nil
		case fn := <-r.events:
			fn()
		case <-ticker.C:
			r.tick(r.now())
		}
	}
}

func (r *Reactor) stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		n := 0
		r.registry.Each(func(c *core.Connection) {
			if c.Transport != nil {
				c.Transport.Close()
			}
			n++
		})
		log.Info().Str("module", "reactor").Int("connections", n).Msg("reactor stopped")
	})
}
