package codec

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/vshulcz/netstats/internal/netstats"
)

// Type names written in the header of scalar metrics.
const (
	CounterTypeName = "int64"
	GaugeTypeName   = "float64"
	TimerTypeName   = "duration"
)

type eventFactory interface {
	encode(w *Writer, v netstats.EventValues) error
	decode(r *Reader, b *netstats.Builder, id netstats.MetricID, typeName string) error
}

type structFactory[T any] struct {
	size int
}

func (f structFactory[T]) encode(w *Writer, v netstats.EventValues) error {
	values, ok := netstats.EventsAs[T](v)
	if !ok {
		return fmt.Errorf("event %q holds %T", v.TypeName(), v.Payload())
	}
	w.WriteI32(int32(len(values)))
	if len(values) == 0 {
		return nil
	}
	buf, err := binary.Append(w.buf, binary.LittleEndian, values)
	if err != nil {
		return fmt.Errorf("encode %q payload: %w", v.TypeName(), err)
	}
	w.buf = buf
	return nil
}

func (f structFactory[T]) decode(r *Reader, b *netstats.Builder, id netstats.MetricID, typeName string) error {
	n, err := r.ReadI32()
	if err != nil {
		return err
	}
	if n < 0 {
		return fmt.Errorf("%w: negative event count %d", ErrMalformed, n)
	}
	p, err := r.ReadBytes(int(n) * f.size)
	if err != nil {
		return err
	}
	values := make([]T, n)
	if n > 0 {
		if _, err := binary.Decode(p, binary.LittleEndian, values); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	netstats.AddEvents(b, id, typeName, values)
	return nil
}

// Registry maps payload type names to the factories that encode and decode them.
// Both ends of a connection must register the same payload types.
type Registry struct {
	mu     sync.RWMutex
	events map[string]eventFactory
}

// NewRegistry returns a registry that knows only the scalar metric kinds.
func NewRegistry() *Registry {
	return &Registry{events: make(map[string]eventFactory)}
}

// Register adds the fixed-layout payload struct T under typeName.
// T must have a fixed binary size; registering the same name twice is an error.
func Register[T any](r *Registry, typeName string) error {
	if typeName == "" || len(typeName) > MaxTypeNameLen {
		return fmt.Errorf("register %q: type name must be 1..%d bytes", typeName, MaxTypeNameLen)
	}
	var zero T
	size := binary.Size(zero)
	if size <= 0 {
		return fmt.Errorf("register %q: %T has no fixed binary size", typeName, zero)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.events[typeName]; dup {
		return fmt.Errorf("register %q: already registered", typeName)
	}
	r.events[typeName] = structFactory[T]{size: size}
	return nil
}

// RegisterStockEvents registers the stock MessageEvent and RPCEvent payloads.
func RegisterStockEvents(r *Registry) error {
	if err := Register[netstats.MessageEvent](r, netstats.MessageEventType); err != nil {
		return err
	}
	return Register[netstats.RPCEvent](r, netstats.RPCEventType)
}

// Known reports whether typeName is registered for the container.
func (r *Registry) Known(container netstats.ContainerType, typeName string) bool {
	switch container {
	case netstats.ContainerCounter:
		return typeName == CounterTypeName
	case netstats.ContainerGauge:
		return typeName == GaugeTypeName
	case netstats.ContainerTimer:
		return typeName == TimerTypeName
	case netstats.ContainerEvent:
		_, ok := r.event(typeName)
		return ok
	default:
		return false
	}
}

func (r *Registry) event(typeName string) (eventFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.events[typeName]
	return f, ok
}
