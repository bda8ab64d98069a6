package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/vshulcz/netstats/internal/adapters/collector/host"
	"github.com/vshulcz/netstats/internal/adapters/publisher/framehttp"
	"github.com/vshulcz/netstats/internal/config"
	"github.com/vshulcz/netstats/internal/netstats"
	"github.com/vshulcz/netstats/internal/netstats/codec"
	agentsvc "github.com/vshulcz/netstats/internal/services/agent"
)

func run(ctx context.Context, cfg config.AgentConfig, hc *http.Client, logger *zap.Logger) error {
	svc, err := build(cfg, hc, logger)
	if err != nil {
		return err
	}

	logger.Info("agent started",
		zap.String("monitor", cfg.Address),
		zap.Duration("tick", cfg.TickInterval),
		zap.Int("rate_limit", cfg.RateLimit),
		zap.Uint64("connection_id", cfg.ConnectionID),
	)
	return svc.Run(ctx)
}

func build(cfg config.AgentConfig, hc *http.Client, logger *zap.Logger) (*agentsvc.Service, error) {
	reg := netstats.NewRegistry()
	enum, err := netstats.RegisterNetworkMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("register network metrics: %w", err)
	}
	creg := codec.NewRegistry()
	if err := codec.RegisterStockEvents(creg); err != nil {
		return nil, fmt.Errorf("register event payloads: %w", err)
	}

	collector := host.New(enum, cfg.ConnectionID, cfg.MaxEventValues)
	d := netstats.NewDispatcher(logger)
	if err := collector.Register(d); err != nil {
		return nil, fmt.Errorf("register collector: %w", err)
	}

	pub, err := framehttp.New(cfg.Address, hc, cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("init publisher: %w", err)
	}

	svc := agentsvc.New(cfg, d, collector, codec.NewSerializer(creg), pub, logger)
	svc.OnSent(collector.ObserveRTT)
	return svc, nil
}
