package monitor

import (
	"slices"
	"time"

	"github.com/vshulcz/netstats/internal/netstats"
)

// Sample is one collected value of a tracked stat.
type Sample struct {
	ID    netstats.MetricID
	Value float64
}

type accumulated struct {
	value float64
	kind  netstats.MetricKind
}

// StatsAccumulator folds incoming collections into running values for one sample rate.
//
// Counters and event counts are summed, gauges and timers overwrite. Collect turns the
// running values into samples and clears the summed ones.
type StatsAccumulator struct {
	rate  SampleRate
	ids   []netstats.MetricID
	stats map[netstats.MetricID]*accumulated

	LastAccumulationTime time.Time
	LastCollectionTime   time.Time
}

// NewStatsAccumulator returns an accumulator that tracks nothing yet.
func NewStatsAccumulator(rate SampleRate) *StatsAccumulator {
	return &StatsAccumulator{rate: rate, stats: make(map[netstats.MetricID]*accumulated)}
}

// Rate returns the accumulator's sample rate.
func (a *StatsAccumulator) Rate() SampleRate { return a.rate }

// Track replaces the tracked set. Running values of ids that stay tracked are kept.
func (a *StatsAccumulator) Track(ids []netstats.MetricID) {
	next := make(map[netstats.MetricID]*accumulated, len(ids))
	for _, id := range ids {
		if prev, ok := a.stats[id]; ok {
			next[id] = prev
			continue
		}
		next[id] = &accumulated{kind: netstats.KindGauge}
	}
	a.stats = next
	a.ids = a.ids[:0]
	for id := range next {
		a.ids = append(a.ids, id)
	}
	slices.SortFunc(a.ids, netstats.MetricID.Compare)
}

// Tracks reports whether id is tracked.
func (a *StatsAccumulator) Tracks(id netstats.MetricID) bool {
	_, ok := a.stats[id]
	return ok
}

// ShouldCollect reports whether the minimum interval since the last collection has elapsed.
func (a *StatsAccumulator) ShouldCollect(now time.Time) bool {
	return a.LastCollectionTime.IsZero() || now.Sub(a.LastCollectionTime) >= a.rate.MinInterval()
}

// Collect returns one sample per tracked stat and the interval they cover, then clears
// summed values. Per-second counters are divided by the interval. The first call only
// starts the interval and returns no samples.
func (a *StatsAccumulator) Collect(now time.Time) ([]Sample, time.Duration) {
	if a.LastCollectionTime.IsZero() {
		a.LastCollectionTime = now
		a.clearSums()
		return nil, 0
	}
	dt := now.Sub(a.LastCollectionTime)
	a.LastCollectionTime = now
	if dt <= 0 {
		return nil, 0
	}

	samples := make([]Sample, 0, len(a.ids))
	for _, id := range a.ids {
		st := a.stats[id]
		v := st.value
		if a.rate == PerSecond && st.kind == netstats.KindCounter {
			v /= dt.Seconds()
		}
		samples = append(samples, Sample{ID: id, Value: v})
	}
	a.clearSums()
	return samples, dt
}

func (a *StatsAccumulator) clearSums() {
	for _, st := range a.stats {
		if st.kind == netstats.KindCounter {
			st.value = 0
		}
	}
}

// Accumulate folds c into the running values of tracked stats.
func (a *StatsAccumulator) Accumulate(c *netstats.MetricCollection, now time.Time) {
	for id, v := range c.Counters() {
		a.add(id, float64(v), netstats.KindCounter)
	}
	for id, v := range c.Gauges() {
		a.add(id, v, netstats.KindGauge)
	}
	for id, v := range c.Timers() {
		a.add(id, v.Seconds(), netstats.KindGauge)
	}
	for id, v := range c.Events() {
		a.add(id, float64(v.Len()), netstats.KindCounter)
	}
	a.LastAccumulationTime = now
}

// AccumulateValue folds a single value of the given kind. It reports false when id is not tracked.
func (a *StatsAccumulator) AccumulateValue(id netstats.MetricID, v float64, kind netstats.MetricKind, now time.Time) bool {
	if !a.add(id, v, kind) {
		return false
	}
	a.LastAccumulationTime = now
	return true
}

func (a *StatsAccumulator) add(id netstats.MetricID, v float64, kind netstats.MetricKind) bool {
	st, ok := a.stats[id]
	if !ok {
		return false
	}
	if st.kind != kind {
		st.kind = kind
		st.value = 0
	}
	if kind == netstats.KindCounter {
		st.value += v
	} else {
		st.value = v
	}
	return true
}

// Value returns the running value of id.
func (a *StatsAccumulator) Value(id netstats.MetricID) (float64, bool) {
	st, ok := a.stats[id]
	if !ok {
		return 0, false
	}
	return st.value, true
}
