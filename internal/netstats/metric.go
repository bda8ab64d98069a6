package netstats

import "time"

// TimerResolution is the smallest duration a timer carries. Values are rounded to it.
const TimerResolution = 100 * time.Nanosecond

// Metric is a single named statistic owned by its producer.
type Metric interface {
	ID() MetricID
	ShouldResetOnDispatch() bool
	Reset()
}

type metricOptions struct {
	resetOnDispatch *bool
	maxValues       *int
	name            string
}

// Option customizes a metric at construction.
type Option func(*metricOptions)

// WithResetOnDispatch controls whether the dispatcher clears the metric after notifying observers.
func WithResetOnDispatch(reset bool) Option {
	return func(o *metricOptions) { o.resetOnDispatch = &reset }
}

// WithMaxNumberOfValues caps an event metric's buffer. Negative values are treated as zero.
func WithMaxNumberOfValues(n int) Option {
	n = max(n, 0)
	return func(o *metricOptions) { o.maxValues = &n }
}

// WithName sets the name used in warnings about the metric.
func WithName(name string) Option {
	return func(o *metricOptions) { o.name = name }
}

func buildOptions(resetDefault bool, opts []Option) (metricOptions, bool) {
	var o metricOptions
	for _, f := range opts {
		if f != nil {
			f(&o)
		}
	}
	reset := resetDefault
	if o.resetOnDispatch != nil {
		reset = *o.resetOnDispatch
	}
	return o, reset
}

// Counter is an accumulating integer metric. It resets on dispatch by default.
type Counter struct {
	id    MetricID
	value int64
	reset bool
}

// NewCounter creates a counter starting at zero.
func NewCounter(id MetricID, opts ...Option) *Counter {
	_, reset := buildOptions(true, opts)
	return &Counter{id: id, reset: reset}
}

// ID returns the counter id.
func (c *Counter) ID() MetricID { return c.id }

// ShouldResetOnDispatch reports whether Dispatch clears the counter.
func (c *Counter) ShouldResetOnDispatch() bool { return c.reset }

// Increment adds delta. Counters should only grow; negative deltas are accepted as is.
func (c *Counter) Increment(delta int64) { c.value += delta }

// Value returns the current count.
func (c *Counter) Value() int64 { return c.value }

// Reset sets the counter to zero.
func (c *Counter) Reset() { c.value = 0 }

// Gauge holds a point-in-time value. It keeps its value across dispatches by default.
type Gauge struct {
	id    MetricID
	value float64
	reset bool
}

// NewGauge creates a gauge starting at zero.
func NewGauge(id MetricID, opts ...Option) *Gauge {
	_, reset := buildOptions(false, opts)
	return &Gauge{id: id, reset: reset}
}

// ID returns the gauge id.
func (g *Gauge) ID() MetricID { return g.id }

// ShouldResetOnDispatch reports whether Dispatch clears the gauge.
func (g *Gauge) ShouldResetOnDispatch() bool { return g.reset }

// Set overwrites the value.
func (g *Gauge) Set(v float64) { g.value = v }

// Value returns the current value.
func (g *Gauge) Value() float64 { return g.value }

// Reset sets the gauge to zero.
func (g *Gauge) Reset() { g.value = 0 }

// Timer holds a duration. It keeps its value across dispatches by default.
type Timer struct {
	id    MetricID
	value time.Duration
	reset bool
}

// NewTimer creates a timer starting at zero.
func NewTimer(id MetricID, opts ...Option) *Timer {
	_, reset := buildOptions(false, opts)
	return &Timer{id: id, reset: reset}
}

// ID returns the timer id.
func (t *Timer) ID() MetricID { return t.id }

// ShouldResetOnDispatch reports whether Dispatch clears the timer.
func (t *Timer) ShouldResetOnDispatch() bool { return t.reset }

// Set overwrites the duration, rounded to TimerResolution.
func (t *Timer) Set(d time.Duration) { t.value = d.Round(TimerResolution) }

// Value returns the current duration.
func (t *Timer) Value() time.Duration { return t.value }

// Reset sets the duration to zero.
func (t *Timer) Reset() { t.value = 0 }
