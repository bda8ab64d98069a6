// Package host samples host network, CPU and memory usage into live netstats metrics.
package host

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	psnet "github.com/shirou/gopsutil/v3/net"
	"go.uber.org/multierr"

	"github.com/vshulcz/netstats/internal/netstats"
	"github.com/vshulcz/netstats/internal/ports"
)

// sources are the gopsutil probes used by Sample.
type sources struct {
	ioCounters    func(ctx context.Context, pernic bool) ([]psnet.IOCountersStat, error)
	cpuPercent    func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error)
	virtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
}

var defaultSources = sources{
	ioCounters:    psnet.IOCountersWithContext,
	cpuPercent:    cpu.PercentWithContext,
	virtualMemory: mem.VirtualMemoryWithContext,
}

// Collector owns the network metrics of one agent. It is not safe for concurrent
// use except for ObserveRTT, which may be called from any goroutine.
type Collector struct {
	src          sources
	connectionID uint64

	bytesSent       *netstats.Counter
	bytesReceived   *netstats.Counter
	packetsSent     *netstats.Counter
	packetsReceived *netstats.Counter
	packetLoss      *netstats.Gauge
	cpuUsage        *netstats.Gauge
	memoryUsage     *netstats.Gauge
	rtt             *netstats.Timer
	messages        *netstats.EventMetric[netstats.MessageEvent]

	last    map[string]psnet.IOCountersStat
	channel map[string]uint32
	lastRTT atomic.Int64
}

var _ ports.HostSampler = (*Collector)(nil)

// New creates a collector whose metric ids come from e. maxEvents caps the
// MessageEvent buffer per dispatch.
func New(e netstats.Enum[netstats.NetworkMetric], connectionID uint64, maxEvents int) *Collector {
	return &Collector{
		src:             defaultSources,
		connectionID:    connectionID,
		bytesSent:       netstats.NewCounter(e.ID(netstats.BytesSent)),
		bytesReceived:   netstats.NewCounter(e.ID(netstats.BytesReceived)),
		packetsSent:     netstats.NewCounter(e.ID(netstats.PacketsSent)),
		packetsReceived: netstats.NewCounter(e.ID(netstats.PacketsReceived)),
		packetLoss:      netstats.NewGauge(e.ID(netstats.PacketLoss)),
		cpuUsage:        netstats.NewGauge(e.ID(netstats.CPUUsage)),
		memoryUsage:     netstats.NewGauge(e.ID(netstats.MemoryUsage)),
		rtt:             netstats.NewTimer(e.ID(netstats.RTT)),
		messages: netstats.NewEventMetric[netstats.MessageEvent](
			e.ID(netstats.MessagesSent),
			netstats.MessageEventType,
			netstats.WithMaxNumberOfValues(maxEvents),
			netstats.WithName("MessageEvents"),
		),
		last:    make(map[string]psnet.IOCountersStat),
		channel: make(map[string]uint32),
	}
}

// Metrics returns every metric the collector writes, for registration with a dispatcher.
func (c *Collector) Metrics() []netstats.Metric {
	return []netstats.Metric{
		c.bytesSent, c.bytesReceived, c.packetsSent, c.packetsReceived,
		c.packetLoss, c.cpuUsage, c.memoryUsage, c.rtt, c.messages,
	}
}

// Register adds the collector's metrics to d.
func (c *Collector) Register(d *netstats.Dispatcher) error {
	return d.Register(c.Metrics()...)
}

// ObserveRTT records the latest round trip time reported by the frame sender.
func (c *Collector) ObserveRTT(d time.Duration) {
	c.lastRTT.Store(int64(d))
}

// Sample probes the host once. Probe failures are combined; the metrics of the
// probes that succeeded are still updated.
func (c *Collector) Sample(ctx context.Context) error {
	var errs error
	if err := c.sampleNetwork(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}
	if pct, err := c.src.cpuPercent(ctx, 0, false); err != nil {
		errs = multierr.Append(errs, err)
	} else if len(pct) > 0 {
		c.cpuUsage.Set(pct[0] / 100)
	}
	if vm, err := c.src.virtualMemory(ctx); err != nil {
		errs = multierr.Append(errs, err)
	} else if vm != nil {
		c.memoryUsage.Set(float64(vm.Used))
	}
	c.rtt.Set(time.Duration(c.lastRTT.Load()))
	return errs
}

func (c *Collector) sampleNetwork(ctx context.Context) error {
	stats, err := c.src.ioCounters(ctx, true)
	if err != nil {
		return err
	}
	var sent, dropped uint64
	for _, st := range stats {
		prev, seen := c.last[st.Name]
		c.last[st.Name] = st
		if !seen {
			c.channel[st.Name] = uint32(len(c.channel))
			continue
		}
		dSent := delta(st.BytesSent, prev.BytesSent)
		c.bytesSent.Increment(int64(dSent))
		c.bytesReceived.Increment(int64(delta(st.BytesRecv, prev.BytesRecv)))
		dPackets := delta(st.PacketsSent, prev.PacketsSent)
		c.packetsSent.Increment(int64(dPackets))
		c.packetsReceived.Increment(int64(delta(st.PacketsRecv, prev.PacketsRecv)))
		sent += dPackets
		dropped += delta(st.Dropout, prev.Dropout) + delta(st.Errout, prev.Errout)

		if dSent > 0 {
			c.messages.Mark(netstats.MessageEvent{
				ConnectionID: c.connectionID,
				Bytes:        int64(dSent),
				Channel:      c.channel[st.Name],
			})
		}
	}
	if total := sent + dropped; total > 0 {
		c.packetLoss.Set(float64(dropped) / float64(total))
	}
	return nil
}

// delta treats a decrease as a counter reset.
func delta(cur, prev uint64) uint64 {
	if cur < prev {
		return 0
	}
	return cur - prev
}
