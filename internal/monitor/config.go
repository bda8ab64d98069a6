package monitor

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/vshulcz/netstats/internal/monitor/format"
)

// Bounds and defaults of the display configuration. Out-of-range values are clamped.
const (
	MinRefreshRate        = 1.0
	MaxRefreshRateLimit   = 1000.0
	DefaultMaxRefreshRate = 30.0

	MinSampleCount     = 8
	MaxSampleCount     = 4096
	DefaultSampleCount = 64

	MinHalfLife     = 10 * time.Millisecond
	MaxHalfLife     = 60 * time.Second
	DefaultHalfLife = time.Second

	DefaultSignificantDigits   = 3
	DefaultNoDataReceivedDelay = time.Second
)

// ElementType selects how a display element renders its stats.
type ElementType string

const (
	ElementCounter ElementType = "counter"
	ElementGraph   ElementType = "graph"
)

// SmoothingMethod converts raw samples into a display-stable value.
type SmoothingMethod string

const (
	SmoothingEMA SmoothingMethod = "ema"
	SmoothingSMA SmoothingMethod = "sma"
)

// AggregationMethod combines the stats of one display counter.
type AggregationMethod string

const (
	AggregateSum     AggregationMethod = "sum"
	AggregateAverage AggregationMethod = "average"
)

// SampleRate is the cadence at which accumulated values are folded into history.
type SampleRate uint8

const (
	PerFrame SampleRate = iota
	PerSecond
)

// SampleRates lists every sample rate track.
var SampleRates = [...]SampleRate{PerFrame, PerSecond}

// MinInterval is the shortest time between two collections on this track.
func (r SampleRate) MinInterval() time.Duration {
	if r == PerFrame {
		return 5 * time.Millisecond
	}
	return time.Second
}

func (r SampleRate) String() string {
	switch r {
	case PerFrame:
		return "per_frame"
	case PerSecond:
		return "per_second"
	default:
		return fmt.Sprintf("SampleRate(%d)", uint8(r))
	}
}

func (r SampleRate) valid() bool { return r == PerFrame || r == PerSecond }

// MarshalText implements encoding.TextMarshaler.
func (r SampleRate) MarshalText() ([]byte, error) {
	if !r.valid() {
		return nil, fmt.Errorf("invalid sample rate %d", uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *SampleRate) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "per_frame", "frame":
		*r = PerFrame
	case "per_second", "second", "":
		*r = PerSecond
	default:
		return fmt.Errorf("unknown sample rate %q", b)
	}
	return nil
}

// CounterConfiguration configures a numeric display counter.
type CounterConfiguration struct {
	SmoothingMethod     SmoothingMethod   `json:"smoothing_method"`
	AggregationMethod   AggregationMethod `json:"aggregation_method"`
	SampleRate          SampleRate        `json:"sample_rate"`
	HalfLifeSeconds     float64           `json:"half_life_seconds"`
	SampleCount         int               `json:"sample_count"`
	SignificantDigits   int               `json:"significant_digits"`
	HighlightLowerBound *float64          `json:"highlight_lower_bound,omitempty"`
	HighlightUpperBound *float64          `json:"highlight_upper_bound,omitempty"`
}

// DefaultCounterConfiguration returns the configuration of a new counter.
func DefaultCounterConfiguration() CounterConfiguration {
	return CounterConfiguration{
		SmoothingMethod:   SmoothingEMA,
		AggregationMethod: AggregateSum,
		SampleRate:        PerSecond,
		HalfLifeSeconds:   DefaultHalfLife.Seconds(),
		SampleCount:       DefaultSampleCount,
		SignificantDigits: DefaultSignificantDigits,
	}
}

// UnmarshalJSON fills omitted fields with their defaults.
func (c *CounterConfiguration) UnmarshalJSON(b []byte) error {
	type plain CounterConfiguration
	v := plain(DefaultCounterConfiguration())
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*c = CounterConfiguration(v)
	return nil
}

// HalfLife returns the EMA half-life.
func (c CounterConfiguration) HalfLife() time.Duration {
	return time.Duration(c.HalfLifeSeconds * float64(time.Second))
}

// Highlighted reports whether v falls outside the highlight bounds.
func (c CounterConfiguration) Highlighted(v float64) bool {
	if c.HighlightLowerBound != nil && v < *c.HighlightLowerBound {
		return true
	}
	return c.HighlightUpperBound != nil && v > *c.HighlightUpperBound
}

func (c CounterConfiguration) normalize() CounterConfiguration {
	if c.SmoothingMethod != SmoothingSMA {
		c.SmoothingMethod = SmoothingEMA
	}
	if c.AggregationMethod != AggregateAverage {
		c.AggregationMethod = AggregateSum
	}
	if !c.SampleRate.valid() {
		c.SampleRate = PerSecond
	}
	c.HalfLifeSeconds = clampFloat(c.HalfLifeSeconds, MinHalfLife.Seconds(), MaxHalfLife.Seconds())
	c.SampleCount = min(max(c.SampleCount, MinSampleCount), MaxSampleCount)
	c.SignificantDigits = min(max(c.SignificantDigits, format.MinSignificantDigits), format.MaxSignificantDigits)
	c.HighlightLowerBound = finiteOrNil(c.HighlightLowerBound)
	c.HighlightUpperBound = finiteOrNil(c.HighlightUpperBound)
	return c
}

// GraphConfiguration configures a history graph.
type GraphConfiguration struct {
	SampleRate  SampleRate `json:"sample_rate"`
	SampleCount int        `json:"sample_count"`
}

// DefaultGraphConfiguration returns the configuration of a new graph.
func DefaultGraphConfiguration() GraphConfiguration {
	return GraphConfiguration{SampleRate: PerFrame, SampleCount: DefaultSampleCount}
}

// UnmarshalJSON fills omitted fields with their defaults.
func (g *GraphConfiguration) UnmarshalJSON(b []byte) error {
	type plain GraphConfiguration
	v := plain(DefaultGraphConfiguration())
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*g = GraphConfiguration(v)
	return nil
}

func (g GraphConfiguration) normalize() GraphConfiguration {
	if !g.SampleRate.valid() {
		g.SampleRate = PerFrame
	}
	g.SampleCount = min(max(g.SampleCount, MinSampleCount), MaxSampleCount)
	return g
}

// DisplayElement is one counter or graph and the stats it shows, named "Type.Value".
type DisplayElement struct {
	Type    ElementType          `json:"type"`
	Label   string               `json:"label"`
	Stats   []string             `json:"stats"`
	Counter CounterConfiguration `json:"counter"`
	Graph   GraphConfiguration   `json:"graph"`
}

// UnmarshalJSON fills omitted fields with their defaults.
func (e *DisplayElement) UnmarshalJSON(b []byte) error {
	type plain DisplayElement
	v := plain{
		Type:    ElementCounter,
		Counter: DefaultCounterConfiguration(),
		Graph:   DefaultGraphConfiguration(),
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*e = DisplayElement(v)
	return nil
}

func (e DisplayElement) normalize() DisplayElement {
	if e.Type != ElementGraph {
		e.Type = ElementCounter
	}
	stats := make([]string, 0, len(e.Stats))
	for _, s := range e.Stats {
		if s = strings.TrimSpace(s); s != "" {
			stats = append(stats, s)
		}
	}
	e.Stats = stats
	e.Counter = e.Counter.normalize()
	e.Graph = e.Graph.normalize()
	return e
}

// Configuration is the display and sampling configuration of a Monitor.
type Configuration struct {
	MaxRefreshRate             float64          `json:"max_refresh_rate"`
	NoDataReceivedDelaySeconds float64          `json:"no_data_received_delay_seconds"`
	Elements                   []DisplayElement `json:"elements"`
}

// DefaultConfiguration returns a configuration without display elements.
func DefaultConfiguration() Configuration {
	return Configuration{
		MaxRefreshRate:             DefaultMaxRefreshRate,
		NoDataReceivedDelaySeconds: DefaultNoDataReceivedDelay.Seconds(),
	}
}

// UnmarshalJSON fills omitted fields with their defaults.
func (c *Configuration) UnmarshalJSON(b []byte) error {
	type plain Configuration
	v := plain(DefaultConfiguration())
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*c = Configuration(v)
	return nil
}

// Normalize returns a copy with every value clamped into its valid range.
func (c Configuration) Normalize() Configuration {
	if math.IsNaN(c.MaxRefreshRate) || c.MaxRefreshRate < MinRefreshRate {
		c.MaxRefreshRate = MinRefreshRate
	}
	c.MaxRefreshRate = min(c.MaxRefreshRate, MaxRefreshRateLimit)
	if math.IsNaN(c.NoDataReceivedDelaySeconds) || c.NoDataReceivedDelaySeconds < 0 {
		c.NoDataReceivedDelaySeconds = 0
	}
	elements := make([]DisplayElement, len(c.Elements))
	for i, e := range c.Elements {
		elements[i] = e.normalize()
	}
	c.Elements = elements
	return c
}

// RefreshInterval is the shortest time between two display refreshes.
func (c Configuration) RefreshInterval() time.Duration {
	rate := c.Normalize().MaxRefreshRate
	return time.Duration(float64(time.Second) / rate)
}

// NoDataReceivedDelay is how long without data before the display reports it.
func (c Configuration) NoDataReceivedDelay() time.Duration {
	return time.Duration(max(c.NoDataReceivedDelaySeconds, 0) * float64(time.Second))
}

// Hash fingerprints the normalized configuration. Equal hashes mean the history
// and accumulator layout does not need rebuilding.
func (c Configuration) Hash() uint64 {
	b, err := json.Marshal(c.Normalize())
	if err != nil {
		return 0
	}
	return murmur3.Sum64(b)
}

// LoadConfiguration decodes and normalizes a JSON configuration.
func LoadConfiguration(r io.Reader) (Configuration, error) {
	cfg := DefaultConfiguration()
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return Configuration{}, fmt.Errorf("decode display configuration: %w", err)
	}
	return cfg.Normalize(), nil
}

// LoadConfigurationFile reads the configuration at path.
func LoadConfigurationFile(path string) (Configuration, error) {
	f, err := os.Open(path)
	if err != nil {
		return Configuration{}, err
	}
	defer f.Close()
	return LoadConfiguration(f)
}

// StatNames lists every distinct stat referenced by the configuration.
func (c Configuration) StatNames() []string {
	var names []string
	for _, e := range c.Elements {
		for _, s := range e.Stats {
			if !slices.Contains(names, s) {
				names = append(names, s)
			}
		}
	}
	return names
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return min(max(v, lo), hi)
}

func finiteOrNil(p *float64) *float64 {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return nil
	}
	v := *p
	return &v
}
