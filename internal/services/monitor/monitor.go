// Package monitor hosts the display pipeline behind a mutex: frames arrive from
// HTTP handlers, are stored and audited, and feed a single monitor.Monitor that is
// refreshed on a clock-driven tick.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vshulcz/netstats/internal/domain"
	display "github.com/vshulcz/netstats/internal/monitor"
	"github.com/vshulcz/netstats/internal/netstats"
	"github.com/vshulcz/netstats/internal/netstats/codec"
	"github.com/vshulcz/netstats/internal/ports"
	"github.com/vshulcz/netstats/internal/services/audit"
)

// Service is safe for concurrent use.
type Service struct {
	mu      sync.Mutex
	mon     *display.Monitor
	adapter *netstats.EventAdapter

	reg     *netstats.Registry
	ser     *codec.Serializer
	store   ports.CaptureStore
	audit   audit.Publisher
	clock   clock.Clock
	logger  *zap.Logger
	session string

	noData bool
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the wall clock used for receive times and ticks.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithAudit publishes one audit.Event per accepted frame.
func WithAudit(p audit.Publisher) Option {
	return func(s *Service) { s.audit = p }
}

// WithStore persists every accepted frame.
func WithStore(st ports.CaptureStore) Option {
	return func(s *Service) { s.store = st }
}

// New builds the service. The monitor is subscribed to the in-process adapter
// returned by Adapter; mon must use the same clock as the service.
func New(mon *display.Monitor, reg *netstats.Registry, ser *codec.Serializer, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		mon:     mon,
		adapter: netstats.NewEventAdapter(),
		reg:     reg,
		ser:     ser,
		clock:   clock.New(),
		logger:  logger,
		session: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	mon.Subscribe(s.adapter)
	return s
}

// Adapter returns the adapter that re-publishes every accepted collection.
func (s *Service) Adapter() *netstats.EventAdapter { return s.adapter }

// SessionID identifies this process in stored captures.
func (s *Service) SessionID() string { return s.session }

// IngestFrame decodes one frame and feeds it to the monitor. Decoding failures
// wrap domain.ErrInvalidFrame and leave the monitor untouched. A failing capture
// store is logged and does not reject the frame. The audit event takes its
// address from audit.WithOrigin.
func (s *Service) IngestFrame(ctx context.Context, frame []byte) (domain.Capture, error) {
	c, err := s.ser.Unmarshal(frame)
	if err != nil {
		return domain.Capture{}, fmt.Errorf("%w: %w", domain.ErrInvalidFrame, err)
	}

	capture := domain.Capture{
		ReceivedAt:   s.clock.Now(),
		SessionID:    s.session,
		Frame:        frame,
		ConnectionID: c.ConnectionID,
		MetricCount:  c.Len(),
		Size:         len(frame),
	}
	if s.store != nil {
		if err := s.store.Save(ctx, capture); err != nil {
			s.logger.Warn("capture store save failed", zap.Error(err))
		}
	}

	s.mu.Lock()
	s.adapter.Publish(ctx, c)
	s.mu.Unlock()

	if s.audit != nil {
		s.audit.Publish(ctx, audit.NewEvent(s.reg, capture, c, audit.Origin(ctx)))
	}
	return capture, nil
}

// AddCustomValue injects a sample for the stat named "Type.Value". It reports
// whether a display element consumed the value.
func (s *Service) AddCustomValue(name string, v float32) (bool, error) {
	id, err := s.reg.Lookup(name)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mon.AddCustomValue(id, v, s.clock.Now()), nil
}

// Display returns the latest rendered display, refreshing it first if it is due.
func (s *Service) Display() display.Display {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, _ := s.tick(s.clock.Now())
	return d
}

// Configure swaps the display configuration. It reports whether history was rebuilt.
func (s *Service) Configure(cfg display.Configuration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mon.Configure(cfg)
}

// Configuration returns the active display configuration.
func (s *Service) Configuration() display.Configuration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mon.Configuration()
}

// Captures returns up to limit of the most recent stored captures.
func (s *Service) Captures(ctx context.Context, limit int) ([]domain.Capture, error) {
	if s.store == nil {
		return nil, domain.ErrStoreNotConfigured
	}
	return s.store.Recent(ctx, limit)
}

// Ping checks the capture store.
func (s *Service) Ping(ctx context.Context) error {
	if s.store == nil {
		return domain.ErrStoreNotConfigured
	}
	return s.store.Ping(ctx)
}

// Replay feeds stored captures into the monitor at their original receive times.
// Undecodable captures are skipped; the count of replayed captures is returned.
func (s *Service) Replay(ctx context.Context, r ports.CaptureReplayer) (int, error) {
	n := 0
	err := r.Replay(ctx, func(capture domain.Capture) error {
		c, err := s.ser.Unmarshal(capture.Frame)
		if err != nil {
			s.logger.Warn("skipping undecodable capture",
				zap.Time("received_at", capture.ReceivedAt),
				zap.Error(err),
			)
			return nil
		}
		s.mu.Lock()
		s.mon.OnMetricsReceived(c, capture.ReceivedAt)
		s.mu.Unlock()
		n++
		return nil
	})
	return n, err
}

// Run refreshes the display every interval until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("tick interval must be positive")
	}
	ticker := s.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.mu.Lock()
			s.tick(now)
			s.mu.Unlock()
		}
	}
}

// tick must be called with s.mu held.
func (s *Service) tick(now time.Time) (display.Display, bool) {
	d, refreshed := s.mon.Tick(now)
	if refreshed && d.NoDataReceived != s.noData {
		s.noData = d.NoDataReceived
		if s.noData {
			s.logger.Info("no metric data received", zap.Duration("delay", s.mon.Configuration().NoDataReceivedDelay()))
		} else {
			s.logger.Info("metric data resumed")
		}
	}
	return d, refreshed
}
