package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_Sample(t *testing.T) {
	start := time.UnixMilli(1_000_000)
	c := &Counters{BytesReceived: 500, BytesSent: 100}
	m := NewMonitor(c, start)

	c.BytesReceived += 20_480
	c.BytesSent += 10_240
	c.MediaBytesSent = 4096

	snap, ok := m.Sample(start.Add(10*time.Second), 2, 5)
	require.True(t, ok)
	assert.Equal(t, uint64(2048), snap.ReceiveRate)
	assert.Equal(t, uint64(1024), snap.SendRate)
	assert.Equal(t, uint64(4096), snap.MediaBytes)
	assert.Equal(t, 2, snap.ActiveRooms)
	assert.Equal(t, 5, snap.TotalClients)
	assert.Equal(t, snap, m.Latest())

	// no traffic since the last sample
	snap, ok = m.Sample(start.Add(20*time.Second), 0, 0)
	require.True(t, ok)
	assert.Zero(t, snap.ReceiveRate)
	assert.Zero(t, snap.SendRate)
	assert.Equal(t, uint64(4096), snap.MediaBytes)
}

func TestMonitor_SampleWithoutElapsedTime(t *testing.T) {
	now := time.UnixMilli(1)
	m := NewMonitor(&Counters{}, now)
	_, ok := m.Sample(now, 1, 1)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Latest().TotalClients)
}

func TestMonitor_Subscribe(t *testing.T) {
	start := time.UnixMilli(0)
	m := NewMonitor(&Counters{}, start)
	ch, cancel := m.Subscribe()

	m.Sample(start.Add(time.Second), 1, 3)
	got := <-ch
	assert.Equal(t, 3, got.TotalClients)

	// a full subscriber never blocks the publisher
	m.Sample(start.Add(2*time.Second), 1, 4)
	m.Sample(start.Add(3*time.Second), 1, 5)
	assert.Equal(t, 4, (<-ch).TotalClients)

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
	m.Sample(start.Add(4*time.Second), 0, 0)
}

func TestMonitor_ConcurrentLatest(t *testing.T) {
	start := time.UnixMilli(0)
	c := &Counters{}
	m := NewMonitor(c, start)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Go(func() {
			for {
				select {
				case <-stop:
					return
				default:
					s := m.Latest()
					// rooms and clients are published together
					assert.Equal(t, s.ActiveRooms*2, s.TotalClients)
				}
			}
		})
	}
	for i := 1; i <= 200; i++ {
		c.BytesReceived += 10
		m.Sample(start.Add(time.Duration(i)*time.Millisecond), i, i*2)
	}
	close(stop)
	wg.Wait()
}

func TestSnapshot_Metrics(t *testing.T) {
	s := Snapshot{ReceiveRate: 1, SendRate: 2, MediaBytes: 3, ActiveRooms: 4, TotalClients: 5}
	m := s.Metrics()
	assert.Equal(t, uint64(1), m["receiveRate"])
	assert.Equal(t, 5, m["totalClients"])
}
