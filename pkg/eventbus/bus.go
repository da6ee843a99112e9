// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
)

type Topic string
type Event = any

// Bus is an in-memory latest-value pub/sub. Each subscriber holds at most
// one pending event; a newer publish replaces an unread one.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic]map[uint64]chan Event
	last   map[Topic]Event
	nextID atomic.Uint64
	closed atomic.Bool

	published atomic.Int64
	delivered atomic.Int64
	replaced  atomic.Int64
	dropped   atomic.Int64
}

type Stats struct {
	Published int64 `json:"published"`
	Delivered int64 `json:"delivered"`
	Replaced  int64 `json:"replaced"`
	Dropped   int64 `json:"dropped"`
}

func New() *Bus {
	return &Bus{
		subs: make(map[Topic]map[uint64]chan Event),
		last: make(map[Topic]Event),
	}
}

func (b *Bus) Stats() Stats {
	return Stats{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
		Replaced:  b.replaced.Load(),
		Dropped:   b.dropped.Load(),
	}
}

// Publish stores ev as the last event of topic and hands it to every
// subscriber without blocking. Sends happen under the lock so a concurrent
// Close or unsubscribe cannot close a channel mid-send.
func (b *Bus) Publish(topic Topic, ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed.Load() {
		return
	}
	b.published.Add(1)
	b.last[topic] = ev
	for _, ch := range b.subs[topic] {
		b.offer(ch, ev)
	}
}

// offer delivers ev, evicting a stale unread value if the slot is taken.
func (b *Bus) offer(ch chan Event, ev Event) {
	select {
	case ch <- ev:
		b.delivered.Add(1)
		return
	default:
	}

	select {
	case <-ch:
		b.replaced.Add(1)
	default:
	}
	select {
	case ch <- ev:
		b.delivered.Add(1)
	default:
		// unreachable while b.mu is held
		b.dropped.Add(1)
	}
}

// Subscribe returns a channel of latest events for topic. With withLast the
// most recent event (if any) is delivered immediately. The subscription ends
// when ctx is done or the returned func is called; the channel is then closed.
func (b *Bus) Subscribe(ctx context.Context, topic Topic, withLast bool) (<-chan Event, func()) {
	b.mu.Lock()
	if b.closed.Load() {
		b.mu.Unlock()
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	ch := make(chan Event, 1)
	id := b.nextID.Add(1)
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]chan Event)
	}
	b.subs[topic][id] = ch
	if last, ok := b.last[topic]; ok && withLast {
		b.offer(ch, last)
	}
	b.mu.Unlock()

	done := make(chan struct{})
	var stop sync.Once
	unsub := func() { stop.Do(func() { close(done) }) }

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		b.mu.Lock()
		if m, ok := b.subs[topic]; ok {
			if _, mine := m[id]; mine {
				delete(m, id)
				close(ch)
			}
			if len(m) == 0 {
				delete(b.subs, topic)
			}
		}
		b.mu.Unlock()
	}()

	return ch, unsub
}

// GetLast returns the last published event for a topic (if any).
func (b *Bus) GetLast(topic Topic) (Event, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.last[topic]
	return v, ok
}

// Close closes every subscriber channel. Publish is a no-op afterwards and
// Subscribe returns a closed channel.
func (b *Bus) Close() {
	if b.closed.Swap(true) {
		return
	}
	b.mu.Lock()
	for _, m := range b.subs {
		for _, ch := range m {
			close(ch)
		}
	}
	b.subs = make(map[Topic]map[uint64]chan Event)
	b.mu.Unlock()
}
