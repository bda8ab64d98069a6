package monitor

import (
	"math"
	"time"
)

// Decay returns the weight an exponential moving average keeps on its previous value
// after dt has elapsed, for the given half-life.
func Decay(dt, halfLife time.Duration) float64 {
	if halfLife <= 0 {
		return 0
	}
	if dt <= 0 {
		return 1
	}
	return math.Exp(-math.Ln2 * dt.Seconds() / halfLife.Seconds())
}

// EMA is an exponential moving average parameterized by half-life.
// The first sample seeds the average.
type EMA struct {
	halfLife time.Duration
	value    float64
	seeded   bool
}

// NewEMA returns an unseeded average.
func NewEMA(halfLife time.Duration) *EMA {
	return &EMA{halfLife: halfLife}
}

// HalfLife returns the configured half-life.
func (e *EMA) HalfLife() time.Duration { return e.halfLife }

// Update folds sample in after dt and returns the new average.
func (e *EMA) Update(sample float64, dt time.Duration) float64 {
	if !e.seeded {
		e.value, e.seeded = sample, true
		return e.value
	}
	e.value = sample + (e.value-sample)*Decay(dt, e.halfLife)
	return e.value
}

// Value returns the current average.
func (e *EMA) Value() float64 { return e.value }

// Seeded reports whether at least one sample was folded in.
func (e *EMA) Seeded() bool { return e.seeded }

// Reset sets the average to v as if it had been seeded with it.
func (e *EMA) Reset(v float64) {
	e.value, e.seeded = v, true
}

// SimpleMovingAverage returns the mean of the n most recent samples in r.
func SimpleMovingAverage(r *Ring[float64], n int) float64 {
	n = min(n, r.Len())
	if n <= 0 {
		return 0
	}
	var sum float64
	for i := r.Len() - n; i < r.Len(); i++ {
		sum += r.At(i)
	}
	return sum / float64(n)
}
