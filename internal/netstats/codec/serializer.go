// Package codec implements the binary wire format of metric collections.
//
// A frame is laid out little-endian as
//
//	[ConnectionID u64][MetricCount i32] { [TypeName u8+bytes][Container u8][TypeIndex i32][EnumValue i32][payload] }
//
// Counters carry an i64, gauges an f64, timers an i64 count of 100ns ticks and event
// metrics an i32 count followed by that many fixed-layout structs.
package codec

import (
	"fmt"
	"time"

	"github.com/vshulcz/netstats/internal/misc"
	"github.com/vshulcz/netstats/internal/netstats"
)

// Serializer encodes and decodes collections using a factory registry.
type Serializer struct {
	reg  *Registry
	pool *misc.Pool[*Writer]
}

// maxPooledWriter bounds the buffers kept for reuse after an unusually large frame.
const maxPooledWriter = 1 << 20

// NewSerializer returns a serializer bound to reg. A nil reg only handles scalar metrics.
func NewSerializer(reg *Registry) *Serializer {
	if reg == nil {
		reg = NewRegistry()
	}
	pool := misc.NewPool(func() *Writer { return NewWriter(512) })
	pool.SetKeep(func(w *Writer) bool { return cap(w.buf) <= maxPooledWriter })
	return &Serializer{reg: reg, pool: pool}
}

// Marshal encodes c into a new byte slice.
func (s *Serializer) Marshal(c *netstats.MetricCollection) ([]byte, error) {
	w := s.pool.Get()
	defer s.pool.Put(w)

	if err := s.Encode(w, c); err != nil {
		return nil, err
	}
	out := make([]byte, w.Len())
	copy(out, w.Bytes())
	return out, nil
}

// Encode appends the encoding of c to w. A nil collection encodes as an empty one.
func (s *Serializer) Encode(w *Writer, c *netstats.MetricCollection) error {
	connID := netstats.NoConnection
	if c != nil {
		connID = c.ConnectionID
	}
	w.WriteU64(connID)
	w.WriteI32(int32(c.Len()))

	for id, v := range c.Counters() {
		writeHeader(w, CounterTypeName, netstats.ContainerCounter, id)
		w.WriteI64(v)
	}
	for id, v := range c.Gauges() {
		writeHeader(w, GaugeTypeName, netstats.ContainerGauge, id)
		w.WriteF64(v)
	}
	for id, v := range c.Timers() {
		writeHeader(w, TimerTypeName, netstats.ContainerTimer, id)
		w.WriteI64(int64(v / netstats.TimerResolution))
	}
	for id, v := range c.Events() {
		f, ok := s.reg.event(v.TypeName())
		if !ok {
			return &UnknownMetricTypeError{Container: netstats.ContainerEvent, TypeName: v.TypeName(), ID: id, Index: -1}
		}
		writeHeader(w, v.TypeName(), netstats.ContainerEvent, id)
		if err := f.encode(w, v); err != nil {
			return err
		}
	}
	return nil
}

func writeHeader(w *Writer, typeName string, container netstats.ContainerType, id netstats.MetricID) {
	w.WriteString(typeName)
	w.WriteU8(uint8(container))
	w.WriteI32(id.TypeIndex)
	w.WriteI32(id.EnumValue)
}

// Unmarshal decodes one collection from data. Trailing bytes are rejected.
func (s *Serializer) Unmarshal(data []byte) (*netstats.MetricCollection, error) {
	r := NewReader(data)
	c, err := s.Decode(r)
	if err != nil {
		return nil, err
	}
	if r.Remaining() > 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, r.Remaining())
	}
	return c, nil
}

// Decode reads one collection from r.
func (s *Serializer) Decode(r *Reader) (*netstats.MetricCollection, error) {
	connID, err := r.ReadU64()
	if err != nil {
		return nil, fmt.Errorf("decode connection id: %w", err)
	}
	count, err := r.ReadI32()
	if err != nil {
		return nil, fmt.Errorf("decode metric count: %w", err)
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: negative metric count %d", ErrMalformed, count)
	}

	b := netstats.NewBuilder().WithConnectionID(connID)
	for i := range int(count) {
		if err := s.decodeMetric(r, b, i); err != nil {
			return nil, err
		}
	}
	c, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return c, nil
}

func (s *Serializer) decodeMetric(r *Reader, b *netstats.Builder, i int) error {
	typeName, err := r.ReadString()
	if err != nil {
		return fmt.Errorf("decode metric #%d header: %w", i, err)
	}
	tag, err := r.ReadU8()
	if err != nil {
		return fmt.Errorf("decode metric #%d header: %w", i, err)
	}
	container := netstats.ContainerType(tag)
	if container > netstats.ContainerEvent {
		return fmt.Errorf("%w: metric #%d %q has container tag %d", ErrMalformed, i, typeName, tag)
	}
	typeIndex, err := r.ReadI32()
	if err != nil {
		return fmt.Errorf("decode metric #%d header: %w", i, err)
	}
	enumValue, err := r.ReadI32()
	if err != nil {
		return fmt.Errorf("decode metric #%d header: %w", i, err)
	}
	id := netstats.MetricID{TypeIndex: typeIndex, EnumValue: enumValue}

	if !s.reg.Known(container, typeName) {
		return &UnknownMetricTypeError{Index: i, Container: container, TypeName: typeName, ID: id}
	}

	if err := s.decodePayload(r, b, container, typeName, id); err != nil {
		return fmt.Errorf("decode metric #%d (%s %q, id %s): %w", i, container, typeName, id, err)
	}
	return nil
}

func (s *Serializer) decodePayload(r *Reader, b *netstats.Builder, container netstats.ContainerType, typeName string, id netstats.MetricID) error {
	switch container {
	case netstats.ContainerCounter:
		v, err := r.ReadI64()
		if err != nil {
			return err
		}
		b.AddCounter(id, v)
	case netstats.ContainerGauge:
		v, err := r.ReadF64()
		if err != nil {
			return err
		}
		b.AddGauge(id, v)
	case netstats.ContainerTimer:
		v, err := r.ReadI64()
		if err != nil {
			return err
		}
		b.AddTimer(id, time.Duration(v)*netstats.TimerResolution)
	case netstats.ContainerEvent:
		f, _ := s.reg.event(typeName)
		return f.decode(r, b, id, typeName)
	}
	return nil
}
