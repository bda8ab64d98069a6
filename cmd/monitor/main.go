// Command monitor receives metric frames over HTTP, keeps them in a capture
// store and renders the smoothed network statistics display.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vshulcz/netstats/internal/config"
	"github.com/vshulcz/netstats/pkg/util"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	cfg, err := config.LoadMonitorConfig(os.Args[1:], nil)
	if err != nil {
		log.Fatalf("failed to parse flags: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}

	info := util.BuildInfo{Version: buildVersion, Date: buildDate, Commit: buildCommit}
	info.Print(os.Stdout)
	logger.Info("build", info.Fields()...)

	if err := start(cfg, logger); err != nil {
		logger.Fatal("monitor stopped", zap.Error(err))
	}
	_ = logger.Sync()
}

// start serves until SIGINT or SIGTERM and releases the stores before returning.
func start(cfg config.MonitorConfig, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			logger.Warn("close failed", zap.Error(cerr))
		}
	}()
	return app.Serve(ctx)
}
