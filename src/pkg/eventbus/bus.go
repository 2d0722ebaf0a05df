// Package eventbus is a synchronous, typed, in-process publish/subscribe bus.
//
// Subscribers are isolated from each other: an error returned or a panic
// raised by one handler is logged and the remaining handlers still run.
package eventbus

import (
	"fmt"
	"sort"
	"sync"

	"wallet-engine/src/pkg/log"
)

// Event is implemented by every payload published on the bus.
type Event interface {
	EventKind() string
}

type Handler func(Event) error

type subscription struct {
	id      uint64
	handler Handler
}

type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string][]subscription
	log    log.Log
}

func New(logger log.Log) *Bus {
	return &Bus{
		subs: make(map[string][]subscription),
		log:  logger,
	}
}

// On registers handler for kind and returns a function removing it again.
// Calling the returned function more than once is harmless.
func (b *Bus) On(kind string, handler Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[kind] = append(b.subs[kind], subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(kind, id) })
	}
}

func (b *Bus) remove(kind string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[kind]
	for i, s := range subs {
		if s.id == id {
			b.subs[kind] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[kind]) == 0 {
		delete(b.subs, kind)
	}
}

// Emit delivers e to the current subscribers of its kind in subscription order.
func (b *Bus) Emit(e Event) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs[e.EventKind()]))
	copy(subs, b.subs[e.EventKind()])
	b.mu.RUnlock()

	for _, s := range subs {
		b.dispatch(e, s)
	}
}

func (b *Bus) dispatch(e Event, s subscription) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("eventbus", fmt.Sprintf("subscriber panicked: %v", r), e.EventKind(), fmt.Sprintf("subscription=%d", s.id))
		}
	}()
	if err := s.handler(e); err != nil {
		b.log.Error("eventbus", fmt.Sprintf("subscriber failed: %v", err), e.EventKind(), fmt.Sprintf("subscription=%d", s.id))
	}
}

// Clear drops every subscription.
func (b *Bus) Clear() {
	b.mu.Lock()
	b.subs = make(map[string][]subscription)
	b.mu.Unlock()
}

// Kinds lists the kinds that currently have at least one subscriber.
func (b *Bus) Kinds() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	kinds := make([]string, 0, len(b.subs))
	for k := range b.subs {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Subscribe registers a handler typed on the concrete event T.
func Subscribe[T Event](b *Bus, handler func(T) error) func() {
	var zero T
	return b.On(zero.EventKind(), func(e Event) error {
		typed, ok := e.(T)
		if !ok {
			return fmt.Errorf("unexpected event type %T for kind %s", e, e.EventKind())
		}
		return handler(typed)
	})
}
