package cache

import (
	"sync"

	"github.com/MrEthical07/goPubtkt/ticket"
)

const (
	DefaultCapacity = 200
	DefaultMaxSize  = ticket.MaxRawLen
)

type entry struct {
	digest uint32
	raw    string
	ticket ticket.Ticket
}

// Cache is a fixed-capacity ring of verified tickets, safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	slots   []entry
	next    int
	maxSize int
}

// New creates a cache with the given slot count and maximum raw ticket size.
// Non-positive values select the defaults.
func New(capacity, maxSize int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Cache{
		slots:   make([]entry, capacity),
		maxSize: maxSize,
	}
}

// Get returns a copy of the cached record for raw.
func (c *Cache) Get(raw string) (ticket.Ticket, bool) {
	if c == nil || len(raw) > c.maxSize {
		return ticket.Ticket{}, false
	}
	digest := Hash(raw)

	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := range c.slots {
		s := &c.slots[i]
		if s.digest == digest && s.raw == raw {
			return s.ticket, true
		}
	}
	return ticket.Ticket{}, false
}

// Put stores t under raw in the slot at the cursor, evicting whatever was
// there. Oversized raw tickets are ignored.
func (c *Cache) Put(raw string, t ticket.Ticket) {
	if c == nil || len(raw) > c.maxSize {
		return
	}
	e := entry{digest: Hash(raw), raw: raw, ticket: t}

	c.mu.Lock()
	c.slots[c.next] = e
	c.next = (c.next + 1) % len(c.slots)
	c.mu.Unlock()
}

// Len reports how many slots are occupied.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for i := range c.slots {
		if c.slots[i].digest != 0 {
			n++
		}
	}
	return n
}

// Capacity reports the slot count.
func (c *Cache) Capacity() int {
	if c == nil {
		return 0
	}
	return len(c.slots)
}
