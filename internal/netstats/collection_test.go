package netstats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func id(v int32) MetricID { return MetricID{TypeIndex: 0, EnumValue: v} }

func TestBuilder_BuildsAllKinds(t *testing.T) {
	b := NewBuilder().WithConnectionID(7).
		AddCounter(id(1), 10).
		AddGauge(id(2), 2.5).
		AddTimer(id(3), time.Second)
	AddEvents(b, id(4), MessageEventType, []MessageEvent{{Bytes: 3}})

	c, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, uint64(7), c.ConnectionID)
	assert.Equal(t, 4, c.Len())

	v, ok := c.Counter(id(1))
	require.True(t, ok)
	assert.Equal(t, int64(10), v)

	g, ok := c.Gauge(id(2))
	require.True(t, ok)
	assert.Equal(t, 2.5, g)

	d, ok := c.Timer(id(3))
	require.True(t, ok)
	assert.Equal(t, time.Second, d)

	ev, ok := c.Event(id(4))
	require.True(t, ok)
	assert.Equal(t, MessageEventType, ev.TypeName())
	assert.Equal(t, 1, ev.Len())
	typed, ok := EventsAs[MessageEvent](ev)
	require.True(t, ok)
	assert.Equal(t, int64(3), typed[0].Bytes)

	kind, ok := c.Kind(id(3))
	require.True(t, ok)
	assert.Equal(t, ContainerTimer, kind)

	_, ok = c.Gauge(id(1))
	assert.False(t, ok, "counter id must not be visible as a gauge")
}

func TestBuilder_DuplicateAcrossKinds(t *testing.T) {
	_, err := NewBuilder().AddCounter(id(1), 1).AddGauge(id(1), 1).Build()
	assert.ErrorIs(t, err, ErrDuplicateMetricID)
}

func TestBuilder_ResetsAfterBuild(t *testing.T) {
	b := NewBuilder().AddCounter(id(1), 1)
	_, err := b.Build()
	require.NoError(t, err)

	c, err := b.Build()
	require.NoError(t, err)
	assert.Zero(t, c.Len())
	assert.Equal(t, NoConnection, c.ConnectionID)
}

func TestCollection_IterationOrder(t *testing.T) {
	c, err := NewBuilder().AddCounter(id(3), 3).AddCounter(id(1), 1).AddCounter(id(2), 2).Build()
	require.NoError(t, err)

	var order []int32
	for mid, v := range c.Counters() {
		assert.Equal(t, int64(mid.EnumValue), v)
		order = append(order, mid.EnumValue)
	}
	assert.Equal(t, []int32{3, 1, 2}, order)

	for range c.Gauges() {
		t.Fatal("no gauges expected")
	}
}

func TestCollection_NilSafe(t *testing.T) {
	var c *MetricCollection
	assert.Zero(t, c.Len())
	_, ok := c.Counter(id(1))
	assert.False(t, ok)
	_, ok = c.Kind(id(1))
	assert.False(t, ok)
	for range c.Events() {
		t.Fatal("nil collection must not yield")
	}
}

func TestBuilder_AddMetricSnapshotsValues(t *testing.T) {
	ctr := NewCounter(id(1))
	ctr.Increment(4)
	ev := NewEventMetric[RPCEvent](id(2), RPCEventType)
	ev.Mark(RPCEvent{Bytes: 8})

	c, err := NewBuilder().AddMetric(ctr).AddMetric(ev).Build()
	require.NoError(t, err)

	ctr.Increment(100)
	ev.Reset()

	v, _ := c.Counter(id(1))
	assert.Equal(t, int64(4), v)
	evs, _ := c.Event(id(2))
	assert.Equal(t, 1, evs.Len())
}

func TestContainerType_String(t *testing.T) {
	assert.Equal(t, "Counter", ContainerCounter.String())
	assert.Equal(t, "Event", ContainerEvent.String())
	assert.Equal(t, "ContainerType(9)", ContainerType(9).String())
}
