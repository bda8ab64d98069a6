// Command agent samples host network statistics, dispatches them as metric
// collections and ships every encoded frame to the monitor.
package main

import (
	"context"
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
	cfg, err := config.LoadAgentConfig(os.Args[1:], nil)
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, nil, logger)
	stop()
	if err != nil {
		logger.Fatal("agent stopped", zap.Error(err))
	}
	_ = logger.Sync()
}
