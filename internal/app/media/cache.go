// Package media holds the retransmission state of forwarded media frames.
package media

import (
	"github.com/dkeye/Relay/internal/domain"
	"github.com/eapache/queue"
)

const DefaultCacheSize = 100

// Entry is an immutable cached enhanced frame.
type Entry struct {
	Room  domain.RoomID
	Frame []byte
}

// Cache keeps the most recently forwarded enhanced frames for QoS resends.
// Eviction is strictly FIFO by insertion; lookups never promote an entry.
// Not safe for concurrent use.
type Cache struct {
	size    int
	entries map[uint64]Entry
	order   *queue.Queue // sequence numbers, oldest first
}

func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Cache{
		size:    size,
		entries: make(map[uint64]Entry, size+1),
		order:   queue.New(),
	}
}

// Insert stores frame under seq, then evicts the oldest entry when over
// capacity. A sequence number that is already cached is left untouched.
func (c *Cache) Insert(seq uint64, room domain.RoomID, frame []byte) {
	if _, ok := c.entries[seq]; ok {
		return
	}
	c.entries[seq] = Entry{Room: room, Frame: frame}
	c.order.Add(seq)
	for c.order.Length() > c.size {
		oldest := c.order.Remove().(uint64)
		delete(c.entries, oldest)
	}
}

func (c *Cache) Lookup(seq uint64) (Entry, bool) {
	e, ok := c.entries[seq]
	return e, ok
}

func (c *Cache) Len() int { return len(c.entries) }

// Sequencer hands out process-unique, strictly increasing sequence numbers.
// The first number is 1.
type Sequencer struct {
	last uint64
}

func (s *Sequencer) Next() uint64 {
	s.last++
	return s.last
}
