package netstats

import (
	"context"
	"slices"
	"sync"

	"github.com/vshulcz/netstats/pkg/observer"
)

// Handler receives one complete collection per network tick.
type Handler func(*MetricCollection)

// Subscription is the token returned by Adapter.Subscribe.
type Subscription struct {
	cancel func()
}

// Adapter is a push source of metric collections.
type Adapter interface {
	Subscribe(h Handler) *Subscription
	Unsubscribe(s *Subscription)
}

// EventAdapter is an Adapter fed by Publish. It also implements Observer, so it can
// be registered directly on a Dispatcher.
type EventAdapter struct {
	subject *observer.Subject[*MetricCollection]
}

var (
	_ Adapter  = (*EventAdapter)(nil)
	_ Observer = (*EventAdapter)(nil)
)

// NewEventAdapter returns an adapter without subscribers.
func NewEventAdapter() *EventAdapter {
	return &EventAdapter{subject: observer.NewSubject[*MetricCollection]()}
}

// Subscribe registers h for every subsequent collection.
func (a *EventAdapter) Subscribe(h Handler) *Subscription {
	if h == nil {
		return &Subscription{cancel: func() {}}
	}
	cancel := a.subject.Subscribe(ObserverFunc(func(_ context.Context, c *MetricCollection) error {
		h(c)
		return nil
	}))
	return &Subscription{cancel: cancel}
}

// Unsubscribe stops delivery to the handler behind s.
func (a *EventAdapter) Unsubscribe(s *Subscription) {
	if s == nil || s.cancel == nil {
		return
	}
	s.cancel()
}

// Publish delivers c to every subscriber.
func (a *EventAdapter) Publish(ctx context.Context, c *MetricCollection) {
	a.subject.Publish(ctx, c)
}

// Notify forwards a dispatched collection to subscribers.
func (a *EventAdapter) Notify(ctx context.Context, c *MetricCollection) error {
	a.Publish(ctx, c)
	return nil
}

// Adapters is an explicit registry of producer adapters.
type Adapters struct {
	mu        sync.Mutex
	adapters  []Adapter
	onAdded   []func(Adapter)
	onRemoved []func(Adapter)
}

// NewAdapters returns an empty registry.
func NewAdapters() *Adapters {
	return &Adapters{}
}

// Add registers a and notifies OnAdded callbacks. Adding the same adapter twice is a no-op.
func (r *Adapters) Add(a Adapter) {
	r.mu.Lock()
	if a == nil || slices.Contains(r.adapters, a) {
		r.mu.Unlock()
		return
	}
	r.adapters = append(r.adapters, a)
	callbacks := slices.Clone(r.onAdded)
	r.mu.Unlock()

	for _, fn := range callbacks {
		fn(a)
	}
}

// Remove unregisters a and notifies OnRemoved callbacks.
func (r *Adapters) Remove(a Adapter) {
	r.mu.Lock()
	i := slices.Index(r.adapters, a)
	if i < 0 {
		r.mu.Unlock()
		return
	}
	r.adapters = slices.Delete(r.adapters, i, i+1)
	callbacks := slices.Clone(r.onRemoved)
	r.mu.Unlock()

	for _, fn := range callbacks {
		fn(a)
	}
}

// All returns the registered adapters.
func (r *Adapters) All() []Adapter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.adapters)
}

// OnAdded invokes fn for every adapter already registered and every one added later.
func (r *Adapters) OnAdded(fn func(Adapter)) {
	r.mu.Lock()
	r.onAdded = append(r.onAdded, fn)
	existing := slices.Clone(r.adapters)
	r.mu.Unlock()

	for _, a := range existing {
		fn(a)
	}
}

// OnRemoved invokes fn for every adapter removed later.
func (r *Adapters) OnRemoved(fn func(Adapter)) {
	r.mu.Lock()
	r.onRemoved = append(r.onRemoved, fn)
	r.mu.Unlock()
}
