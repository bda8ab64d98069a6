package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vshulcz/netstats/internal/adapters/http/ginserver"
	"github.com/vshulcz/netstats/internal/adapters/http/ginserver/middlewares"
	"github.com/vshulcz/netstats/internal/adapters/prom"
	"github.com/vshulcz/netstats/internal/config"
	display "github.com/vshulcz/netstats/internal/monitor"
	"github.com/vshulcz/netstats/internal/monitor/format"
	"github.com/vshulcz/netstats/internal/netstats"
	"github.com/vshulcz/netstats/internal/netstats/codec"
	"github.com/vshulcz/netstats/internal/ports"
	monitorsvc "github.com/vshulcz/netstats/internal/services/monitor"
)

const shutdownTimeout = 5 * time.Second

type app struct {
	cfg     config.MonitorConfig
	svc     *monitorsvc.Service
	handler http.Handler
	logger  *zap.Logger
	closers []io.Closer
}

func build(ctx context.Context, cfg config.MonitorConfig, logger *zap.Logger) (*app, error) {
	reg := netstats.NewRegistry()
	if _, err := netstats.RegisterNetworkMetrics(reg); err != nil {
		return nil, fmt.Errorf("register network metrics: %w", err)
	}
	creg := codec.NewRegistry()
	if err := codec.RegisterStockEvents(creg); err != nil {
		return nil, fmt.Errorf("register event payloads: %w", err)
	}

	dcfg := monitorsvc.DefaultDisplayConfiguration()
	if cfg.DisplayConfig != "" {
		loaded, err := display.LoadConfigurationFile(cfg.DisplayConfig)
		if err != nil {
			return nil, fmt.Errorf("load display configuration: %w", err)
		}
		dcfg = loaded
	}
	mon := display.New(reg, dcfg, logger, display.WithFormatter(format.ParseLocale(cfg.Locale)))

	subj, auditCloser, err := buildAudit(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init audit: %w", err)
	}
	store, storeCloser := buildStore(ctx, cfg, logger)

	opts := []monitorsvc.Option{monitorsvc.WithStore(store)}
	if subj != nil {
		opts = append(opts, monitorsvc.WithAudit(subj))
	}
	svc := monitorsvc.New(mon, reg, codec.NewSerializer(creg), logger, opts...)

	exp := prom.New(reg)
	svc.Adapter().Subscribe(exp.Handle)

	if cfg.Replay {
		if r, ok := store.(ports.CaptureReplayer); ok {
			n, err := svc.Replay(ctx, r)
			if err != nil {
				logger.Warn("replay failed", zap.Error(err), zap.Int("replayed", n))
			} else {
				logger.Info("replay ok", zap.Int("replayed", n))
			}
		}
	}

	h := ginserver.NewHandler(svc, exp.Handler())
	router := ginserver.NewRouter(h, logger,
		middlewares.ZapLogger(logger),
		middlewares.GzipRequest(),
		middlewares.GzipResponse(),
		middlewares.HashSHA256(cfg.Key),
	)

	return &app{
		cfg:     cfg,
		svc:     svc,
		handler: router,
		logger:  logger,
		closers: []io.Closer{auditCloser, storeCloser},
	}, nil
}

// Serve runs the display tick loop and the HTTP server until ctx is done.
func (a *app) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Address,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return a.serve(ctx, srv, srv.ListenAndServe)
}

func (a *app) serve(ctx context.Context, srv *http.Server, listen func() error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tickErr := make(chan error, 1)
	go func() { tickErr <- a.svc.Run(ctx, a.cfg.TickInterval) }()

	srvErr := make(chan error, 1)
	go func() {
		a.logger.Info("monitor listening", zap.String("addr", a.cfg.Address))
		srvErr <- listen()
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-srvErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	case err = <-tickErr:
	}

	shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer stop()
	if serr := srv.Shutdown(shutdownCtx); serr != nil && err == nil {
		err = serr
	}
	cancel()
	return err
}

// Close releases the capture store and audit sinks.
func (a *app) Close() error {
	return closeAll(a.closers...)
}
