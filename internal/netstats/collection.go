package netstats

import (
	"fmt"
	"iter"
	"math"
	"time"
)

// NoConnection is the ConnectionID of a collection not bound to a connection.
const NoConnection uint64 = math.MaxUint64

// ContainerType identifies which of the four metric containers holds an id.
type ContainerType uint8

// Container types, in wire order.
const (
	ContainerCounter ContainerType = iota
	ContainerGauge
	ContainerTimer
	ContainerEvent
)

// String returns the container name.
func (t ContainerType) String() string {
	switch t {
	case ContainerCounter:
		return "Counter"
	case ContainerGauge:
		return "Gauge"
	case ContainerTimer:
		return "Timer"
	case ContainerEvent:
		return "Event"
	default:
		return fmt.Sprintf("ContainerType(%d)", uint8(t))
	}
}

// EventValues is the read-only payload list an event metric held at snapshot time.
type EventValues struct {
	typeName string
	values   any
	n        int
}

// TypeName returns the payload type name.
func (v EventValues) TypeName() string { return v.typeName }

// Len returns the number of payloads.
func (v EventValues) Len() int { return v.n }

// Payload returns the underlying []T. Callers must not modify it.
func (v EventValues) Payload() any { return v.values }

// EventsAs returns the payloads of v typed as T.
func EventsAs[T any](v EventValues) ([]T, bool) {
	out, ok := v.values.([]T)
	return out, ok
}

type entry[V any] struct {
	id    MetricID
	value V
}

type slot struct {
	kind ContainerType
	pos  int
}

// MetricCollection is an immutable snapshot of counters, gauges, timers and event payloads.
// An id appears in at most one container. Iteration follows insertion order.
type MetricCollection struct {
	ConnectionID uint64

	counters []entry[int64]
	gauges   []entry[float64]
	timers   []entry[time.Duration]
	events   []entry[EventValues]
	index    map[MetricID]slot
}

// Len returns the total number of metrics.
func (c *MetricCollection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.index)
}

// Kind returns the container that holds id.
func (c *MetricCollection) Kind(id MetricID) (ContainerType, bool) {
	if c == nil {
		return 0, false
	}
	s, ok := c.index[id]
	return s.kind, ok
}

// Counter returns the counter value of id.
func (c *MetricCollection) Counter(id MetricID) (int64, bool) {
	s, ok := c.lookup(id, ContainerCounter)
	if !ok {
		return 0, false
	}
	return c.counters[s.pos].value, true
}

// Gauge returns the gauge value of id.
func (c *MetricCollection) Gauge(id MetricID) (float64, bool) {
	s, ok := c.lookup(id, ContainerGauge)
	if !ok {
		return 0, false
	}
	return c.gauges[s.pos].value, true
}

// Timer returns the timer value of id.
func (c *MetricCollection) Timer(id MetricID) (time.Duration, bool) {
	s, ok := c.lookup(id, ContainerTimer)
	if !ok {
		return 0, false
	}
	return c.timers[s.pos].value, true
}

// Event returns the event payloads of id.
func (c *MetricCollection) Event(id MetricID) (EventValues, bool) {
	s, ok := c.lookup(id, ContainerEvent)
	if !ok {
		return EventValues{}, false
	}
	return c.events[s.pos].value, true
}

func (c *MetricCollection) lookup(id MetricID, kind ContainerType) (slot, bool) {
	if c == nil {
		return slot{}, false
	}
	s, ok := c.index[id]
	if !ok || s.kind != kind {
		return slot{}, false
	}
	return s, true
}

// Counters iterates the counters in insertion order.
func (c *MetricCollection) Counters() iter.Seq2[MetricID, int64] {
	return seq(c, func(c *MetricCollection) []entry[int64] { return c.counters })
}

// Gauges iterates the gauges in insertion order.
func (c *MetricCollection) Gauges() iter.Seq2[MetricID, float64] {
	return seq(c, func(c *MetricCollection) []entry[float64] { return c.gauges })
}

// Timers iterates the timers in insertion order.
func (c *MetricCollection) Timers() iter.Seq2[MetricID, time.Duration] {
	return seq(c, func(c *MetricCollection) []entry[time.Duration] { return c.timers })
}

// Events iterates the event metrics in insertion order.
func (c *MetricCollection) Events() iter.Seq2[MetricID, EventValues] {
	return seq(c, func(c *MetricCollection) []entry[EventValues] { return c.events })
}

func seq[V any](c *MetricCollection, pick func(*MetricCollection) []entry[V]) iter.Seq2[MetricID, V] {
	return func(yield func(MetricID, V) bool) {
		if c == nil {
			return
		}
		for _, e := range pick(c) {
			if !yield(e.id, e.value) {
				return
			}
		}
	}
}

// Builder assembles a MetricCollection. The first error encountered is reported by Build.
type Builder struct {
	c   *MetricCollection
	err error
}

// NewBuilder returns a builder for a collection with no connection.
func NewBuilder() *Builder {
	b := &Builder{}
	b.reset()
	return b
}

func (b *Builder) reset() {
	b.c = &MetricCollection{ConnectionID: NoConnection, index: make(map[MetricID]slot)}
	b.err = nil
}

// WithConnectionID sets the collection's connection.
func (b *Builder) WithConnectionID(id uint64) *Builder {
	b.c.ConnectionID = id
	return b
}

func (b *Builder) claim(id MetricID, kind ContainerType, pos int) bool {
	if b.err != nil {
		return false
	}
	if prev, dup := b.c.index[id]; dup {
		b.err = fmt.Errorf("%w: %s already held as %s", ErrDuplicateMetricID, id, prev.kind)
		return false
	}
	b.c.index[id] = slot{kind: kind, pos: pos}
	return true
}

// AddCounter adds a counter value.
func (b *Builder) AddCounter(id MetricID, v int64) *Builder {
	if b.claim(id, ContainerCounter, len(b.c.counters)) {
		b.c.counters = append(b.c.counters, entry[int64]{id: id, value: v})
	}
	return b
}

// AddGauge adds a gauge value.
func (b *Builder) AddGauge(id MetricID, v float64) *Builder {
	if b.claim(id, ContainerGauge, len(b.c.gauges)) {
		b.c.gauges = append(b.c.gauges, entry[float64]{id: id, value: v})
	}
	return b
}

// AddTimer adds a timer value rounded to TimerResolution.
func (b *Builder) AddTimer(id MetricID, v time.Duration) *Builder {
	if b.claim(id, ContainerTimer, len(b.c.timers)) {
		b.c.timers = append(b.c.timers, entry[time.Duration]{id: id, value: v.Round(TimerResolution)})
	}
	return b
}

// AddEventPayload adds n payloads held in values, which must be a []T.
func (b *Builder) AddEventPayload(id MetricID, typeName string, values any, n int) *Builder {
	if b.claim(id, ContainerEvent, len(b.c.events)) {
		b.c.events = append(b.c.events, entry[EventValues]{
			id:    id,
			value: EventValues{typeName: typeName, values: values, n: n},
		})
	}
	return b
}

// AddEvents adds typed event payloads to b.
func AddEvents[T any](b *Builder, id MetricID, typeName string, values []T) *Builder {
	if values == nil {
		values = []T{}
	}
	return b.AddEventPayload(id, typeName, values, len(values))
}

// AddMetric snapshots the current value of a live metric.
func (b *Builder) AddMetric(m Metric) *Builder {
	switch mm := m.(type) {
	case *Counter:
		return b.AddCounter(mm.ID(), mm.Value())
	case *Gauge:
		return b.AddGauge(mm.ID(), mm.Value())
	case *Timer:
		return b.AddTimer(mm.ID(), mm.Value())
	case EventSource:
		return b.AddEventPayload(mm.ID(), mm.TypeName(), mm.payload(), mm.Len())
	default:
		if b.err == nil {
			b.err = fmt.Errorf("unsupported metric %T", m)
		}
		return b
	}
}

// Build returns the collection and resets the builder for reuse.
func (b *Builder) Build() (*MetricCollection, error) {
	c, err := b.c, b.err
	b.reset()
	if err != nil {
		return nil, err
	}
	return c, nil
}
