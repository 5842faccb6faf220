// Package publisher holds the most recent snapshot and hands it to any
// number of readers.
//
// Delivery is latest-wins: a subscriber that has not consumed the previous
// notification gets it replaced by the newer snapshot. Nothing is queued.
package publisher

import (
	"sync"
	"sync/atomic"

	"codeberg.org/mutker/ressmon/internal/metrics"
)

type Publisher struct {
	latest atomic.Pointer[metrics.Snapshot]

	mu     sync.Mutex
	subs   map[uint64]chan metrics.Snapshot
	nextID uint64
	closed bool
}

func New() *Publisher {
	return &Publisher{
		subs: make(map[uint64]chan metrics.Snapshot),
	}
}

// Set stores snapshot as the latest value and notifies subscribers. It
// never blocks. A snapshot older than the stored one is dropped and Set
// reports false.
func (p *Publisher) Set(snapshot metrics.Snapshot) bool {
	snapshot.CoreUsagePercent = snapshot.CoreUsage()

	p.mu.Lock()
	defer p.mu.Unlock()

	if prev := p.latest.Load(); prev != nil && snapshot.Timestamp.Before(prev.Timestamp) {
		return false
	}
	p.latest.Store(&snapshot)

	if p.closed {
		return true
	}

	for _, ch := range p.subs {
		// Sends only happen under p.mu, so after draining a stale value
		// the buffer slot is free.
		select {
		case <-ch:
		default:
		}
		ch <- withOwnCores(snapshot)
	}

	return true
}

// Latest returns the last snapshot set, or metrics.NotSampled before the
// first one. The caller owns the returned CoreUsagePercent.
func (p *Publisher) Latest() metrics.Snapshot {
	if s := p.latest.Load(); s != nil {
		return withOwnCores(*s)
	}

	return metrics.NotSampled
}

// withOwnCores gives s a private copy of the per-core slice so readers
// cannot write into the stored snapshot or each other's.
func withOwnCores(s metrics.Snapshot) metrics.Snapshot {
	s.CoreUsagePercent = s.CoreUsage()
	return s
}

// Subscribe returns a channel receiving new snapshots and a function that
// cancels the subscription and closes the channel. The channel holds at
// most one pending snapshot.
func (p *Publisher) Subscribe() (<-chan metrics.Snapshot, func()) {
	ch := make(chan metrics.Snapshot, 1)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		close(ch)
		return ch, func() {}
	}

	id := p.nextID
	p.nextID++
	p.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if c, ok := p.subs[id]; ok {
				delete(p.subs, id)
				close(c)
			}
		})
	}
}

// Close ends every subscription. Latest keeps returning the final
// snapshot.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	for id, ch := range p.subs {
		delete(p.subs, id)
		close(ch)
	}
}
