package audit

import (
	"context"
	"sync"
)

const defaultRingCapacity = 1000

// Ring is a bounded in-memory sink. When full the oldest event is dropped.
type Ring struct {
	mu       sync.Mutex
	events   []Event
	head     int // next write position
	count    int
	capacity int
	dropped  int64
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = defaultRingCapacity
	}
	return &Ring{
		events:   make([]Event, capacity),
		capacity: capacity,
	}
}

func (r *Ring) Write(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == r.capacity {
		r.dropped++
	} else {
		r.count++
	}
	event.SKUs = append([]string(nil), event.SKUs...)
	r.events[r.head] = event
	r.head = (r.head + 1) % r.capacity
	return nil
}

// Recent returns up to n of the newest events, oldest first. n <= 0 returns
// everything held.
func (r *Ring) Recent(n int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n <= 0 || n > r.count {
		n = r.count
	}
	out := make([]Event, n)
	start := (r.head - n + r.capacity) % r.capacity
	for i := range n {
		out[i] = r.events[(start+i)%r.capacity]
	}
	return out
}

func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Dropped reports how many events were overwritten.
func (r *Ring) Dropped() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

func (r *Ring) Close() error { return nil }
