package host

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	psnet "github.com/shirou/gopsutil/v3/net"

	"github.com/vshulcz/netstats/internal/netstats"
)

type fakeHost struct {
	io     [][]psnet.IOCountersStat
	calls  int
	cpu    []float64
	cpuErr error
	used   uint64
}

func (f *fakeHost) sources() sources {
	return sources{
		ioCounters: func(context.Context, bool) ([]psnet.IOCountersStat, error) {
			i := min(f.calls, len(f.io)-1)
			f.calls++
			return f.io[i], nil
		},
		cpuPercent: func(context.Context, time.Duration, bool) ([]float64, error) {
			return f.cpu, f.cpuErr
		},
		virtualMemory: func(context.Context) (*mem.VirtualMemoryStat, error) {
			return &mem.VirtualMemoryStat{Used: f.used}, nil
		},
	}
}

func newCollector(t *testing.T, f *fakeHost, maxEvents int) (*Collector, netstats.Enum[netstats.NetworkMetric]) {
	t.Helper()
	e, err := netstats.RegisterNetworkMetrics(netstats.NewRegistry())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	c := New(e, 7, maxEvents)
	c.src = f.sources()
	return c, e
}

func TestCollector_FirstSampleIsBaseline(t *testing.T) {
	f := &fakeHost{
		io:   [][]psnet.IOCountersStat{{{Name: "eth0", BytesSent: 1000, BytesRecv: 500}}},
		cpu:  []float64{25},
		used: 4096,
	}
	c, _ := newCollector(t, f, 10)

	if err := c.Sample(context.Background()); err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if c.bytesSent.Value() != 0 || c.bytesReceived.Value() != 0 {
		t.Fatalf("first sample must only record the baseline, got sent=%d recv=%d",
			c.bytesSent.Value(), c.bytesReceived.Value())
	}
	if c.cpuUsage.Value() != 0.25 {
		t.Errorf("cpu = %v, want 0.25", c.cpuUsage.Value())
	}
	if c.memoryUsage.Value() != 4096 {
		t.Errorf("memory = %v, want 4096", c.memoryUsage.Value())
	}
}

func TestCollector_Deltas(t *testing.T) {
	f := &fakeHost{io: [][]psnet.IOCountersStat{
		{
			{Name: "eth0", BytesSent: 1000, BytesRecv: 500, PacketsSent: 10},
			{Name: "lo", BytesSent: 10, BytesRecv: 10},
		},
		{
			{Name: "eth0", BytesSent: 1600, BytesRecv: 900, PacketsSent: 18, Dropout: 2},
			{Name: "lo", BytesSent: 10, BytesRecv: 30},
		},
	}}
	c, e := newCollector(t, f, 10)
	ctx := context.Background()
	_ = c.Sample(ctx)
	if err := c.Sample(ctx); err != nil {
		t.Fatalf("Sample: %v", err)
	}

	if got := c.bytesSent.Value(); got != 600 {
		t.Errorf("bytes sent = %d, want 600", got)
	}
	if got := c.bytesReceived.Value(); got != 420 {
		t.Errorf("bytes received = %d, want 420", got)
	}
	if got := c.packetLoss.Value(); got != 0.2 {
		t.Errorf("packet loss = %v, want 0.2", got)
	}

	events := c.messages.Values()
	if len(events) != 1 {
		t.Fatalf("expected 1 message event, got %d", len(events))
	}
	if ev := events[0]; ev.Bytes != 600 || ev.ConnectionID != 7 || ev.Channel != 0 {
		t.Errorf("unexpected event %+v", ev)
	}

	d := netstats.NewDispatcher(nil)
	if err := c.Register(d); err != nil {
		t.Fatalf("Register: %v", err)
	}
	col := d.Dispatch(ctx)
	if v, ok := col.Counter(e.ID(netstats.BytesSent)); !ok || v != 600 {
		t.Errorf("dispatched BytesSent = %d, %v", v, ok)
	}
	if c.bytesSent.Value() != 0 || c.messages.Len() != 0 {
		t.Error("counters and events must reset after dispatch")
	}
}

func TestCollector_CounterResetIsNotNegative(t *testing.T) {
	f := &fakeHost{io: [][]psnet.IOCountersStat{
		{{Name: "eth0", BytesSent: 1000}},
		{{Name: "eth0", BytesSent: 100}},
	}}
	c, _ := newCollector(t, f, 10)
	_ = c.Sample(context.Background())
	_ = c.Sample(context.Background())
	if c.bytesSent.Value() != 0 {
		t.Fatalf("bytes sent = %d after counter reset, want 0", c.bytesSent.Value())
	}
}

func TestCollector_PartialFailure(t *testing.T) {
	f := &fakeHost{
		io:     [][]psnet.IOCountersStat{{}},
		cpuErr: errors.New("cpu unavailable"),
		used:   10,
	}
	c, _ := newCollector(t, f, 10)
	err := c.Sample(context.Background())
	if err == nil || !strings.Contains(err.Error(), "cpu unavailable") {
		t.Fatalf("expected cpu error, got %v", err)
	}
	if c.memoryUsage.Value() != 10 {
		t.Error("memory must still be sampled when cpu fails")
	}
}

func TestCollector_ObserveRTT(t *testing.T) {
	c, _ := newCollector(t, &fakeHost{io: [][]psnet.IOCountersStat{{}}}, 1)
	c.ObserveRTT(15 * time.Millisecond)
	_ = c.Sample(context.Background())
	if c.rtt.Value() != 15*time.Millisecond {
		t.Fatalf("rtt = %v", c.rtt.Value())
	}
}
