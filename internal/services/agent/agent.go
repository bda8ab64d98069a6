// Package agent implements the producer loop: sample host metrics, dispatch a
// collection, encode it and ship the frame to the monitor.
package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vshulcz/netstats/internal/config"
	"github.com/vshulcz/netstats/internal/netstats"
	"github.com/vshulcz/netstats/internal/netstats/codec"
	"github.com/vshulcz/netstats/internal/ports"
)

// Service drives one dispatcher per tick and forwards its frames to the monitor.
type Service struct {
	cfg        config.AgentConfig
	sampler    ports.HostSampler
	dispatcher *netstats.Dispatcher
	serializer *codec.Serializer
	pub        ports.FramePublisher
	logger     *zap.Logger

	sender *FrameSender
	onSent func(time.Duration)
}

// New wires the service and registers its frame encoder as a dispatcher observer.
func New(
	cfg config.AgentConfig,
	d *netstats.Dispatcher,
	sampler ports.HostSampler,
	ser *codec.Serializer,
	pub ports.FramePublisher,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		cfg:        cfg,
		sampler:    sampler,
		dispatcher: d,
		serializer: ser,
		pub:        pub,
		logger:     logger,
	}
	d.SetConnectionID(cfg.ConnectionID)
	d.RegisterObserver(netstats.ObserverFunc(s.publishFrame))
	return s
}

// OnSent registers a callback receiving the round trip time of each delivered frame.
func (s *Service) OnSent(fn func(time.Duration)) {
	s.onSent = fn
}

// Run dispatches every TickInterval and blocks until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", s.cfg.TickInterval)
	}

	s.sender = NewFrameSender(s.pub, s.cfg.RateLimit, s.logger)
	s.sender.OnSent = s.onSent
	s.sender.Start(ctx)
	defer func() {
		s.sender.Stop()
		s.sender = nil
	}()

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	if s.sampler != nil {
		if err := s.sampler.Sample(ctx); err != nil {
			s.logger.Warn("host sample failed", zap.Error(err))
		}
	}
	s.dispatcher.Dispatch(ctx)
}

func (s *Service) publishFrame(ctx context.Context, c *netstats.MetricCollection) error {
	frame, err := s.serializer.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	if s.sender == nil {
		return nil
	}
	if !s.sender.Submit(ctx, frame) {
		s.logger.Debug("frame dropped on shutdown", zap.Int("metrics", c.Len()))
	}
	return nil
}
