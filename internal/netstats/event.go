package netstats

import (
	"fmt"
	"slices"
)

// DefaultMaxNumberOfValues is the event buffer cap used when none is configured.
const DefaultMaxNumberOfValues = 1000

// EventSource is the type-erased view of an EventMetric used by the dispatcher and collections.
type EventSource interface {
	Metric
	TypeName() string
	Len() int
	WentOverLimit() bool
	WentOverLimitMessage() string
	payload() any
}

// EventMetric collects structured payloads between two dispatches.
// The buffer is bounded: values marked while it is full are dropped and the
// metric reports that it went over its limit until the next reset.
type EventMetric[T any] struct {
	id        MetricID
	typeName  string
	name      string
	values    []T
	max       int
	overLimit bool
	reset     bool
}

var _ EventSource = (*EventMetric[struct{}])(nil)

// NewEventMetric creates an event metric whose payloads are registered under typeName
// in the codec. It resets on dispatch by default.
func NewEventMetric[T any](id MetricID, typeName string, opts ...Option) *EventMetric[T] {
	o, reset := buildOptions(true, opts)
	maxValues := DefaultMaxNumberOfValues
	if o.maxValues != nil {
		maxValues = *o.maxValues
	}
	name := o.name
	if name == "" {
		name = typeName + "(" + id.String() + ")"
	}
	return &EventMetric[T]{
		id:       id,
		typeName: typeName,
		name:     name,
		max:      maxValues,
		reset:    reset,
	}
}

// ID returns the metric id.
func (e *EventMetric[T]) ID() MetricID { return e.id }

// TypeName returns the payload type name used to look up the codec factory.
func (e *EventMetric[T]) TypeName() string { return e.typeName }

// ShouldResetOnDispatch reports whether Dispatch clears the buffer.
func (e *EventMetric[T]) ShouldResetOnDispatch() bool { return e.reset }

// MaxNumberOfValues returns the buffer cap.
func (e *EventMetric[T]) MaxNumberOfValues() int { return e.max }

// Mark appends v, or drops it and flags the overflow when the buffer is full.
func (e *EventMetric[T]) Mark(v T) {
	if len(e.values) >= e.max {
		e.overLimit = true
		return
	}
	e.values = append(e.values, v)
}

// Values returns a copy of the buffered payloads.
func (e *EventMetric[T]) Values() []T {
	return slices.Clone(e.values)
}

// Len returns the number of buffered payloads.
func (e *EventMetric[T]) Len() int { return len(e.values) }

// WentOverLimit reports whether a Mark was dropped since the last reset.
func (e *EventMetric[T]) WentOverLimit() bool { return e.overLimit }

// WentOverLimitMessage describes the overflow for logging.
func (e *EventMetric[T]) WentOverLimitMessage() string {
	return fmt.Sprintf("Metric %s went over the limit of %d values per dispatch; extra values were dropped.", e.name, e.max)
}

// Reset empties the buffer and clears the overflow flag.
func (e *EventMetric[T]) Reset() {
	clear(e.values)
	e.values = e.values[:0]
	e.overLimit = false
}

func (e *EventMetric[T]) payload() any {
	out := make([]T, len(e.values))
	copy(out, e.values)
	return out
}
