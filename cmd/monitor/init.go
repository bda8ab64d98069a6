package main

import (
	"context"
	"database/sql"
	"io"

	_ "github.com/lib/pq"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	auditfile "github.com/vshulcz/netstats/internal/adapters/audit/file"
	auditremote "github.com/vshulcz/netstats/internal/adapters/audit/remote"
	capfile "github.com/vshulcz/netstats/internal/adapters/capture/file"
	capmem "github.com/vshulcz/netstats/internal/adapters/capture/memory"
	pgstore "github.com/vshulcz/netstats/internal/adapters/capture/postgres"
	"github.com/vshulcz/netstats/internal/config"
	"github.com/vshulcz/netstats/internal/misc"
	"github.com/vshulcz/netstats/internal/ports"
	"github.com/vshulcz/netstats/internal/services/audit"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// buildStore picks Postgres when a DSN is configured and reachable, then the
// capture file, then an in-memory ring.
func buildStore(ctx context.Context, cfg config.MonitorConfig, logger *zap.Logger) (ports.CaptureStore, io.Closer) {
	if cfg.DSN != "" {
		db, err := sql.Open("postgres", cfg.DSN)
		if err == nil {
			op := func() error {
				if err := db.PingContext(ctx); err != nil {
					return err
				}
				return pgstore.Migrate(db)
			}
			if err = misc.Retry(ctx, misc.DefaultBackoff, pgstore.IsRetryable, op); err == nil {
				logger.Info("db connected & migrated")
				return pgstore.New(db), db
			}
			_ = db.Close()
		}
		logger.Warn("postgres init failed, falling back", zap.Error(err))
	}
	if cfg.CaptureFile != "" {
		logger.Info("capturing frames to file", zap.String("file", cfg.CaptureFile))
		return capfile.New(cfg.CaptureFile), closerFunc(func() error { return nil })
	}
	logger.Info("capturing frames in memory", zap.Int("limit", cfg.CaptureLimit))
	return capmem.New(cfg.CaptureLimit), closerFunc(func() error { return nil })
}

// buildAudit attaches the configured audit sinks. The returned subject is nil
// when no sink is configured.
func buildAudit(cfg config.MonitorConfig, logger *zap.Logger) (*audit.Subject, io.Closer, error) {
	var observers []audit.Observer
	var closer io.Closer = closerFunc(func() error { return nil })

	if cfg.AuditURL != "" {
		c, err := auditremote.New(cfg.AuditURL, nil, cfg.Key)
		if err != nil {
			return nil, nil, err
		}
		observers = append(observers, c)
	}
	if cfg.AuditFile != "" {
		w := auditfile.New(cfg.AuditFile)
		observers = append(observers, w)
		closer = w
	}
	if len(observers) == 0 {
		return nil, closer, nil
	}

	subj := audit.NewSubject(observers...)
	subj.SetErrorHandler(func(err error) {
		logger.Warn("audit sink failed", zap.Error(err))
	})
	return subj, closer, nil
}

func closeAll(closers ...io.Closer) error {
	var err error
	for _, c := range closers {
		if c != nil {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}
