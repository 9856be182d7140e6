// Package events is a small in-process publish/subscribe bus that consumes
// providers tagged with the "event" capability.
package events

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/km-arc/go-ioc/framework/capability"
)

// Capability is the tag carried by listener providers.
const Capability = "event"

// Event is a named payload.
type Event struct {
	Name    string
	Payload any
}

// Listener is implemented by listener providers.
type Listener interface {
	Handle(ctx context.Context, e Event) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, e Event) error

func (f ListenerFunc) Handle(ctx context.Context, e Event) error { return f(ctx, e) }

// On is the baseline marker of a listener provider.
type On struct {
	Event string
}

// Bus delivers events synchronously to subscribers in subscription order.
type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[string][]Listener)}
}

// Subscribe adds l for events named name.
func (b *Bus) Subscribe(name string, l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[name] = append(b.listeners[name], l)
}

// Publish delivers e to every listener. All listeners run; their errors are
// combined.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	ls := append([]Listener(nil), b.listeners[e.Name]...)
	b.mu.RUnlock()

	var errs error
	for _, l := range ls {
		errs = multierr.Append(errs, l.Handle(ctx, e))
	}
	return errs
}

// Listeners returns the number of listeners for name.
func (b *Bus) Listeners(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[name])
}

// Consumer subscribes "event" bindings to a Bus.
type Consumer struct {
	bus *Bus
}

// NewConsumer returns a capability consumer for bus.
func NewConsumer(bus *Bus) *Consumer { return &Consumer{bus: bus} }

func (c *Consumer) Capability() string { return Capability }

func (c *Consumer) Consume(_ context.Context, b capability.Binding) error {
	on, ok := b.Marker.(On)
	if !ok || on.Event == "" {
		return fmt.Errorf("marker is %#v, want events.On with an event name", b.Marker)
	}
	l, ok := b.Instance.(Listener)
	if !ok {
		return fmt.Errorf("%T does not implement events.Listener", b.Instance)
	}
	c.bus.Subscribe(on.Event, l)
	return nil
}
