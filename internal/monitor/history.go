package monitor

import (
	"slices"
	"time"

	"github.com/vshulcz/netstats/internal/netstats"
)

// StatKey identifies the history of one stat on one sample-rate track.
type StatKey struct {
	ID   netstats.MetricID
	Rate SampleRate
}

// Requirement is what the display needs from the history of one stat.
type Requirement struct {
	Capacity  int
	HalfLives []time.Duration
}

// Requirements maps every stat the display needs to its history requirement.
type Requirements map[StatKey]Requirement

func (r Requirements) require(key StatKey, capacity int, halfLife time.Duration) {
	req := r[key]
	req.Capacity = max(req.Capacity, capacity, 1)
	if halfLife > 0 && !slices.Contains(req.HalfLives, halfLife) {
		req.HalfLives = append(req.HalfLives, halfLife)
	}
	r[key] = req
}

// StatHistory holds the recent samples of one stat and its moving averages.
type StatHistory struct {
	Samples *Ring[float64]
	emas    []*EMA
}

// EMA returns the moving average with the given half-life.
func (h *StatHistory) EMA(halfLife time.Duration) (*EMA, bool) {
	for _, e := range h.emas {
		if e.HalfLife() == halfLife {
			return e, true
		}
	}
	return nil, false
}

func (h *StatHistory) push(v float64, dt time.Duration) {
	h.Samples.Push(v)
	for _, e := range h.emas {
		e.Update(v, dt)
	}
}

// MultiStatHistory keeps a bounded history per required stat.
// Its layout only changes when Apply is called with a different requirements hash.
type MultiStatHistory struct {
	stats map[StatKey]*StatHistory
	hash  uint64
	built bool
}

// NewMultiStatHistory returns an empty history.
func NewMultiStatHistory() *MultiStatHistory {
	return &MultiStatHistory{stats: make(map[StatKey]*StatHistory)}
}

// Apply rebuilds the layout for reqs unless hash matches the current one. Histories of
// stats that stay required keep their newest samples and their averages.
// It reports whether a rebuild happened.
func (h *MultiStatHistory) Apply(reqs Requirements, hash uint64) bool {
	if h.built && h.hash == hash {
		return false
	}
	next := make(map[StatKey]*StatHistory, len(reqs))
	for key, req := range reqs {
		prev, ok := h.stats[key]
		if !ok {
			prev = &StatHistory{Samples: NewRing[float64](req.Capacity)}
		} else {
			prev.Samples.Resize(req.Capacity)
		}
		emas := make([]*EMA, 0, len(req.HalfLives))
		for _, hl := range req.HalfLives {
			if e, ok := prev.EMA(hl); ok {
				emas = append(emas, e)
				continue
			}
			emas = append(emas, NewEMA(hl))
		}
		prev.emas = emas
		next[key] = prev
	}
	h.stats = next
	h.hash = hash
	h.built = true
	return true
}

// Hash returns the hash of the applied requirements.
func (h *MultiStatHistory) Hash() uint64 { return h.hash }

// Len returns the number of stat histories.
func (h *MultiStatHistory) Len() int { return len(h.stats) }

// Get returns the history of key.
func (h *MultiStatHistory) Get(key StatKey) (*StatHistory, bool) {
	s, ok := h.stats[key]
	return s, ok
}

// Push appends v to the history of key and updates its averages after dt.
func (h *MultiStatHistory) Push(key StatKey, v float64, dt time.Duration) bool {
	s, ok := h.stats[key]
	if !ok {
		return false
	}
	s.push(v, dt)
	return true
}
