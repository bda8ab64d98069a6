// Package monitor turns pushed metric collections into smoothed, formatted display values.
//
// A Monitor is single-threaded: the host feeds it collections and calls Tick at its own
// cadence from one goroutine.
package monitor

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/vshulcz/netstats/internal/monitor/format"
	"github.com/vshulcz/netstats/internal/netstats"
)

type resolvedElement struct {
	cfg        DisplayElement
	ids        []netstats.MetricID
	units      netstats.BaseUnits
	percentage bool
}

// Monitor accumulates collections per sample rate, keeps their history and renders the
// configured display elements.
type Monitor struct {
	reg       *netstats.Registry
	logger    *zap.Logger
	clock     clock.Clock
	formatter *format.Formatter

	cfg      Configuration
	cfgHash  uint64
	elements []resolvedElement

	accumulators [len(SampleRates)]*StatsAccumulator
	history      *MultiStatHistory

	subs map[netstats.Adapter]*netstats.Subscription

	started     time.Time
	lastRefresh time.Time
	display     Display
}

// Option customizes a Monitor.
type Option func(*Monitor)

// WithClock sets the clock used for collections delivered through adapters.
func WithClock(c clock.Clock) Option {
	return func(m *Monitor) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithFormatter sets the formatter used for counter text.
func WithFormatter(f *format.Formatter) Option {
	return func(m *Monitor) {
		if f != nil {
			m.formatter = f
		}
	}
}

// New creates a monitor for cfg. Stats are resolved by name against reg.
func New(reg *netstats.Registry, cfg Configuration, logger *zap.Logger, opts ...Option) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = netstats.NewRegistry()
	}
	m := &Monitor{
		reg:       reg,
		logger:    logger,
		clock:     clock.New(),
		formatter: format.ParseLocale(""),
		history:   NewMultiStatHistory(),
		subs:      make(map[netstats.Adapter]*netstats.Subscription),
	}
	for _, opt := range opts {
		opt(m)
	}
	for i, rate := range SampleRates {
		m.accumulators[i] = NewStatsAccumulator(rate)
	}
	m.started = m.clock.Now()
	m.Configure(cfg)
	return m
}

// Configuration returns the normalized configuration in use.
func (m *Monitor) Configuration() Configuration { return m.cfg }

// Configure applies cfg. History and accumulators are only rebuilt when the
// configuration hash changes; the return value reports whether that happened.
func (m *Monitor) Configure(cfg Configuration) bool {
	cfg = cfg.Normalize()
	hash := cfg.Hash()
	if m.history.built && hash == m.cfgHash {
		return false
	}
	m.cfg = cfg
	m.cfgHash = hash
	m.elements = m.resolve(cfg)

	reqs := make(Requirements)
	tracked := make([]map[netstats.MetricID]struct{}, len(SampleRates))
	for i := range tracked {
		tracked[i] = make(map[netstats.MetricID]struct{})
	}
	for _, e := range m.elements {
		for _, id := range e.ids {
			switch e.cfg.Type {
			case ElementGraph:
				reqs.require(StatKey{ID: id, Rate: e.cfg.Graph.SampleRate}, e.cfg.Graph.SampleCount, 0)
				tracked[e.cfg.Graph.SampleRate][id] = struct{}{}
			default:
				c := e.cfg.Counter
				key := StatKey{ID: id, Rate: c.SampleRate}
				if c.SmoothingMethod == SmoothingSMA {
					reqs.require(key, c.SampleCount, 0)
				} else {
					reqs.require(key, 1, c.HalfLife())
				}
				tracked[c.SampleRate][id] = struct{}{}
			}
		}
	}

	for i, acc := range m.accumulators {
		ids := make([]netstats.MetricID, 0, len(tracked[i]))
		for id := range tracked[i] {
			ids = append(ids, id)
		}
		acc.Track(ids)
	}
	m.history.Apply(reqs, hash)
	m.logger.Debug("display configuration applied",
		zap.Int("elements", len(m.elements)),
		zap.Int("histories", m.history.Len()),
	)
	return true
}

func (m *Monitor) resolve(cfg Configuration) []resolvedElement {
	out := make([]resolvedElement, 0, len(cfg.Elements))
	for _, e := range cfg.Elements {
		re := resolvedElement{cfg: e}
		for _, name := range e.Stats {
			id, err := m.reg.Lookup(name)
			if err != nil {
				m.logger.Warn("display element references unknown stat",
					zap.String("element", e.Label),
					zap.String("stat", name),
					zap.Error(err),
				)
				continue
			}
			re.ids = append(re.ids, id)
		}
		if len(re.ids) > 0 {
			if md, ok := m.reg.Metadata(re.ids[0]); ok {
				re.units = md.Units
				re.percentage = md.DisplayAsPercentage
				if md.Kind == netstats.KindCounter && e.Type == ElementCounter && e.Counter.SampleRate == PerSecond {
					re.units = re.units.PerSecond()
				}
			}
		}
		out = append(out, re)
	}
	return out
}

// Subscribe starts receiving collections from a. Subscribing twice is a no-op.
func (m *Monitor) Subscribe(a netstats.Adapter) {
	if a == nil {
		return
	}
	if _, ok := m.subs[a]; ok {
		return
	}
	m.subs[a] = a.Subscribe(func(c *netstats.MetricCollection) {
		m.OnMetricsReceived(c, m.clock.Now())
	})
}

// Unsubscribe stops receiving collections from a.
func (m *Monitor) Unsubscribe(a netstats.Adapter) {
	sub, ok := m.subs[a]
	if !ok {
		return
	}
	a.Unsubscribe(sub)
	delete(m.subs, a)
}

// Watch subscribes to every adapter in reg, including adapters added later.
func (m *Monitor) Watch(reg *netstats.Adapters) {
	reg.OnAdded(m.Subscribe)
	reg.OnRemoved(m.Unsubscribe)
}

// OnMetricsReceived feeds one collection. For each sample rate, a due collection is
// folded into history before c is accumulated, so a gap without data is recorded as
// its own sample.
func (m *Monitor) OnMetricsReceived(c *netstats.MetricCollection, now time.Time) {
	for _, acc := range m.accumulators {
		m.collect(acc, now)
		acc.Accumulate(c, now)
	}
}

// AddCustomValue injects a sample for id. It is ignored unless a display element
// references id; the return value reports whether it was accepted.
func (m *Monitor) AddCustomValue(id netstats.MetricID, v float32, now time.Time) bool {
	kind := netstats.KindGauge
	if md, ok := m.reg.Metadata(id); ok {
		kind = md.Kind
	}
	accepted := false
	for _, acc := range m.accumulators {
		if !acc.Tracks(id) {
			continue
		}
		m.collect(acc, now)
		accepted = acc.AccumulateValue(id, float64(v), kind, now) || accepted
	}
	return accepted
}

func (m *Monitor) collect(acc *StatsAccumulator, now time.Time) {
	if !acc.ShouldCollect(now) {
		return
	}
	samples, dt := acc.Collect(now)
	for _, s := range samples {
		m.history.Push(StatKey{ID: s.ID, Rate: acc.Rate()}, s.Value, dt)
	}
}

// Tick refreshes the display if the refresh interval has elapsed since the last refresh.
// It returns the current display and whether it was refreshed.
func (m *Monitor) Tick(now time.Time) (Display, bool) {
	if !m.lastRefresh.IsZero() && now.Sub(m.lastRefresh) < m.cfg.RefreshInterval() {
		return m.display, false
	}
	m.lastRefresh = now

	d := Display{
		Time:           now,
		NoDataReceived: m.noData(now),
		Elements:       make([]ElementDisplay, 0, len(m.elements)),
	}
	for _, e := range m.elements {
		d.Elements = append(d.Elements, m.render(e))
	}
	m.display = d
	return d, true
}

// Display returns the result of the last refresh.
func (m *Monitor) Display() Display { return m.display }

// NoDataReceived reports whether nothing was accumulated for longer than the configured delay.
func (m *Monitor) NoDataReceived(now time.Time) bool { return m.noData(now) }

func (m *Monitor) noData(now time.Time) bool {
	last := m.started
	for _, acc := range m.accumulators {
		if acc.LastAccumulationTime.After(last) {
			last = acc.LastAccumulationTime
		}
	}
	return now.Sub(last) > m.cfg.NoDataReceivedDelay()
}

// History returns the samples of id on the given track, oldest first.
func (m *Monitor) History(id netstats.MetricID, rate SampleRate) []float64 {
	h, ok := m.history.Get(StatKey{ID: id, Rate: rate})
	if !ok {
		return nil
	}
	return h.Samples.Values()
}

func (m *Monitor) render(e resolvedElement) ElementDisplay {
	out := ElementDisplay{Label: e.cfg.Label, Type: e.cfg.Type, Units: e.units.String()}
	if e.cfg.Type == ElementGraph {
		for _, id := range e.ids {
			out.Series = append(out.Series, Series{
				Stat:    m.reg.Name(id),
				Samples: m.History(id, e.cfg.Graph.SampleRate),
			})
		}
		return out
	}

	c := e.cfg.Counter
	var sum float64
	n := 0
	for _, id := range e.ids {
		h, ok := m.history.Get(StatKey{ID: id, Rate: c.SampleRate})
		if !ok || h.Samples.Len() == 0 {
			continue
		}
		if c.SmoothingMethod == SmoothingSMA {
			sum += SimpleMovingAverage(h.Samples, c.SampleCount)
		} else if ema, ok := h.EMA(c.HalfLife()); ok {
			sum += ema.Value()
		}
		n++
	}
	if n > 0 && c.AggregationMethod == AggregateAverage {
		sum /= float64(n)
	}
	out.Value = sum
	out.Text = m.formatter.Format(sum, out.Units, c.SignificantDigits, e.percentage)
	out.Highlighted = c.Highlighted(sum)
	return out
}
