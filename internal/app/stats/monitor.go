package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Snapshot is an immutable point-in-time view. Replaced wholesale on every
// sample, never mutated after publication.
type Snapshot struct {
	ReceiveRate  uint64    `json:"receiveRate"` // bytes/s
	SendRate     uint64    `json:"sendRate"`    // bytes/s
	MediaBytes   uint64    `json:"mediaBytes"`
	ActiveRooms  int       `json:"activeRooms"`
	TotalClients int       `json:"totalClients"`
	SampledAt    time.Time `json:"sampledAt"`
}

// Metrics returns the snapshot as named values.
func (s Snapshot) Metrics() map[string]any {
	return map[string]any{
		"receiveRate":  s.ReceiveRate,
		"sendRate":     s.SendRate,
		"mediaBytes":   s.MediaBytes,
		"activeRooms":  s.ActiveRooms,
		"totalClients": s.TotalClients,
	}
}

// Monitor turns cumulative Counters into rates. Sample must be called from the
// goroutine that owns the counters; Latest and Subscribe are safe from anywhere.
type Monitor struct {
	counters *Counters

	lastReceived uint64
	lastSent     uint64
	lastAt       time.Time

	latest atomic.Pointer[Snapshot]

	mu   sync.Mutex
	subs map[chan Snapshot]struct{}
}

func NewMonitor(counters *Counters, now time.Time) *Monitor {
	m := &Monitor{
		counters:     counters,
		lastReceived: counters.BytesReceived,
		lastSent:     counters.BytesSent,
		lastAt:       now,
		subs:         make(map[chan Snapshot]struct{}),
	}
	m.latest.Store(&Snapshot{SampledAt: now})
	return m
}

// Sample computes rates since the previous sample and publishes a snapshot.
// It returns false (and publishes nothing) if no time has elapsed.
func (m *Monitor) Sample(now time.Time, activeRooms, totalClients int) (Snapshot, bool) {
	elapsed := now.Sub(m.lastAt).Milliseconds()
	if elapsed <= 0 {
		return Snapshot{}, false
	}
	snap := Snapshot{
		ReceiveRate:  (m.counters.BytesReceived - m.lastReceived) * 1000 / uint64(elapsed),
		SendRate:     (m.counters.BytesSent - m.lastSent) * 1000 / uint64(elapsed),
		MediaBytes:   m.counters.MediaBytesSent,
		ActiveRooms:  activeRooms,
		TotalClients: totalClients,
		SampledAt:    now,
	}
	m.lastReceived = m.counters.BytesReceived
	m.lastSent = m.counters.BytesSent
	m.lastAt = now

	m.latest.Store(&snap)
	m.publish(snap)

	log.Info().
		Str("module", "stats").
		Uint64("receive_kbps", snap.ReceiveRate/1024).
		Uint64("send_kbps", snap.SendRate/1024).
		Uint64("media_kb", snap.MediaBytes/1024).
		Int("rooms", activeRooms).
		Int("clients", totalClients).
		Msg("throughput")
	return snap, true
}

// Latest returns the most recently published snapshot.
func (m *Monitor) Latest() Snapshot {
	return *m.latest.Load()
}

// Subscribe returns a channel receiving every new snapshot. A subscriber that
// is not keeping up misses snapshots; it never delays the publisher.
func (m *Monitor) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, ch)
			m.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (m *Monitor) publish(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subs {
		select {
		case ch <- s:
		default:
		}
	}
}
