// Package observer provides an ordered, generic fan-out of events to registered observers.
package observer

import (
	"context"
	"fmt"
	"sync"
)

// Observer defines the callback contract for receiving published events of type T.
type Observer[T any] interface {
	Notify(context.Context, T) error
}

// ObserverFunc adapts a standalone function into an Observer.
//
//revive:disable-next-line:exported
type ObserverFunc[T any] func(context.Context, T) error

// Notify executes the wrapped function.
func (f ObserverFunc[T]) Notify(ctx context.Context, evt T) error {
	if f == nil {
		return nil
	}
	return f(ctx, evt)
}

// Publisher publishes events to downstream observers.
type Publisher[T any] interface {
	Publish(context.Context, T)
}

type registration[T any] struct {
	id  uint64
	obs Observer[T]
}

// Subject coordinates observer registrations and event fan-out.
// Observers are notified in registration order.
type Subject[T any] struct {
	mu        sync.RWMutex
	observers []registration[T]
	nextID    uint64
	onError   func(error)
}

// NewSubject constructs a Subject with optional initial observers.
func NewSubject[T any](observers ...Observer[T]) *Subject[T] {
	s := &Subject[T]{}
	s.Attach(observers...)
	return s
}

// Publish invokes every observer with the provided event.
// A failing or panicking observer is reported to the error handler and does not
// prevent the remaining observers from running.
func (s *Subject[T]) Publish(ctx context.Context, evt T) {
	if s == nil {
		return
	}

	s.mu.RLock()
	observers := append([]registration[T](nil), s.observers...)
	errHandler := s.onError
	s.mu.RUnlock()

	for _, reg := range observers {
		if err := notify(ctx, reg.obs, evt); err != nil && errHandler != nil {
			errHandler(err)
		}
	}
}

func notify[T any](ctx context.Context, obs Observer[T], evt T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer panic: %v", r)
		}
	}()
	return obs.Notify(ctx, evt)
}

// Attach registers additional observers to the subject.
func (s *Subject[T]) Attach(observers ...Observer[T]) {
	if s == nil || len(observers) == 0 {
		return
	}
	s.mu.Lock()
	for _, obs := range observers {
		if obs == nil {
			continue
		}
		s.nextID++
		s.observers = append(s.observers, registration[T]{id: s.nextID, obs: obs})
	}
	s.mu.Unlock()
}

// Subscribe registers one observer and returns a function that detaches it again.
// Calling the returned function more than once is a no-op.
func (s *Subject[T]) Subscribe(obs Observer[T]) (cancel func()) {
	if s == nil || obs == nil {
		return func() {}
	}
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.observers = append(s.observers, registration[T]{id: id, obs: obs})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.detach(id) })
	}
}

func (s *Subject[T]) detach(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, reg := range s.observers {
		if reg.id == id {
			s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
			return
		}
	}
}

// Len reports how many observers are attached.
func (s *Subject[T]) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers)
}

// SetErrorHandler configures a callback for observer failures.
func (s *Subject[T]) SetErrorHandler(fn func(error)) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.onError = fn
	s.mu.Unlock()
}
