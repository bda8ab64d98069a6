package netstats

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/vshulcz/netstats/pkg/observer"
)

// Observer receives every dispatched collection. The collection is shared between
// observers and must not be modified.
type Observer = observer.Observer[*MetricCollection]

// ObserverFunc adapts a function to Observer.
type ObserverFunc = observer.ObserverFunc[*MetricCollection]

// Dispatcher snapshots a fixed set of metrics once per cycle and fans the snapshot out.
//
// Each Dispatch runs, in order: over-limit checks on event metrics, one combined
// warning, observer notification in registration order, and the reset of every
// metric flagged ShouldResetOnDispatch. A failing observer is logged and does not
// stop the cycle.
type Dispatcher struct {
	metrics      []Metric
	events       []EventSource
	ids          map[MetricID]struct{}
	subject      *observer.Subject[*MetricCollection]
	builder      *Builder
	logger       *zap.Logger
	connectionID uint64

	warnings    strings.Builder
	observerErr error
}

// NewDispatcher creates a dispatcher with no metrics and no observers.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		ids:          make(map[MetricID]struct{}),
		subject:      observer.NewSubject[*MetricCollection](),
		builder:      NewBuilder(),
		logger:       logger,
		connectionID: NoConnection,
	}
	d.subject.SetErrorHandler(func(err error) {
		d.observerErr = multierr.Append(d.observerErr, err)
	})
	return d
}

// Register adds metrics to the dispatch set. Ids must be unique across all kinds.
func (d *Dispatcher) Register(metrics ...Metric) error {
	for _, m := range metrics {
		if m == nil {
			continue
		}
		switch m.(type) {
		case *Counter, *Gauge, *Timer, EventSource:
		default:
			return fmt.Errorf("register %T: unsupported metric", m)
		}
		if _, dup := d.ids[m.ID()]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateMetricID, m.ID())
		}
		d.ids[m.ID()] = struct{}{}
		d.metrics = append(d.metrics, m)
		if ev, ok := m.(EventSource); ok {
			d.events = append(d.events, ev)
		}
	}
	return nil
}

// RegisterObserver appends an observer. Observers cannot be removed.
func (d *Dispatcher) RegisterObserver(o Observer) {
	d.subject.Attach(o)
}

// SetConnectionID sets the ConnectionID stamped on subsequent collections.
func (d *Dispatcher) SetConnectionID(id uint64) {
	d.connectionID = id
}

// Dispatch runs one cycle and returns the collection handed to observers,
// or nil when there is nothing to dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context) *MetricCollection {
	if len(d.metrics) == 0 && d.subject.Len() == 0 {
		return nil
	}

	d.reportOverLimit()

	d.builder.WithConnectionID(d.connectionID)
	for _, m := range d.metrics {
		d.builder.AddMetric(m)
	}
	collection, err := d.builder.Build()
	if err != nil {
		d.logger.Error("build metric collection", zap.Error(err))
	} else {
		d.observerErr = nil
		d.subject.Publish(ctx, collection)
		if d.observerErr != nil {
			d.logger.Error("metrics observer failed",
				zap.Int("failures", len(multierr.Errors(d.observerErr))),
				zap.Error(d.observerErr),
			)
			d.observerErr = nil
		}
	}

	for _, m := range d.metrics {
		if m.ShouldResetOnDispatch() {
			m.Reset()
		}
	}
	return collection
}

func (d *Dispatcher) reportOverLimit() {
	for _, ev := range d.events {
		if !ev.WentOverLimit() {
			continue
		}
		if d.warnings.Len() > 0 {
			d.warnings.WriteByte('\n')
		}
		d.warnings.WriteString(ev.WentOverLimitMessage())
	}
	if d.warnings.Len() == 0 {
		return
	}
	d.logger.Warn(d.warnings.String())
	d.warnings.Reset()
}
