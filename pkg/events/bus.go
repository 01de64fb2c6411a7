// Package events provides a small generic subscriber list used to observe
// pool and scene lifecycle changes.
//
// A Bus delivers every published value synchronously, in subscription order,
// on the publisher's goroutine. Handlers must not block; a handler may
// unsubscribe itself (or others) while being called.
package events

import (
	"sync"
)

// Handler receives published values.
type Handler[E any] func(E)

type subscriber[E any] struct {
	id   uint64
	fn   Handler[E]
	once bool
}

// Bus is a list of subscribers for values of type E. The zero value is ready
// to use.
type Bus[E any] struct {
	mu     sync.RWMutex
	subs   []subscriber[E]
	nextID uint64
	closed bool
}

// NewBus creates an empty bus.
func NewBus[E any]() *Bus[E] {
	return &Bus[E]{}
}

// Subscription cancels a registered handler.
type Subscription struct {
	cancel func()
	once   sync.Once
}

// Unsubscribe removes the handler. Calling it more than once is harmless.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.cancel == nil {
		return
	}
	s.once.Do(s.cancel)
}

// Subscribe registers fn for every subsequent Publish. Subscribing to a closed
// bus returns an inert subscription.
func (b *Bus[E]) Subscribe(fn Handler[E]) *Subscription {
	return b.add(fn, false)
}

// SubscribeOnce registers fn for the next Publish only.
func (b *Bus[E]) SubscribeOnce(fn Handler[E]) *Subscription {
	return b.add(fn, true)
}

func (b *Bus[E]) add(fn Handler[E], once bool) *Subscription {
	if fn == nil {
		return &Subscription{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return &Subscription{}
	}
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber[E]{id: id, fn: fn, once: once})
	return &Subscription{cancel: func() { b.remove(id) }}
}

func (b *Bus[E]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish calls every current handler with e. Handlers added during Publish
// see only later values.
func (b *Bus[E]) Publish(e E) {
	if b == nil {
		return
	}
	b.mu.Lock()
	if b.closed || len(b.subs) == 0 {
		b.mu.Unlock()
		return
	}
	snapshot := make([]subscriber[E], len(b.subs))
	copy(snapshot, b.subs)
	kept := b.subs[:0:0]
	for _, s := range b.subs {
		if !s.once {
			kept = append(kept, s)
		}
	}
	b.subs = kept
	b.mu.Unlock()

	for _, s := range snapshot {
		if !s.once && !b.has(s.id) {
			continue
		}
		s.fn(e)
	}
}

func (b *Bus[E]) has(id uint64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if s.id == id {
			return true
		}
	}
	return false
}

// Len returns the number of registered handlers.
func (b *Bus[E]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close drops every handler. Later Subscribe and Publish calls are no-ops.
func (b *Bus[E]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = nil
}
