// Command poll runs a single fetch cycle and writes the snapshot, for cron
// setups and manual checks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/stumpwatch/stumpwatch/internal/app"
	"github.com/stumpwatch/stumpwatch/internal/config"
	"github.com/stumpwatch/stumpwatch/internal/platform/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewJSON(logging.LevelInfo)
	defer func() { _ = logger.Sync() }()
	logging.SetDefault(logger)

	scheduler, err := app.BuildOneShotScheduler(cfg, logger)
	if err != nil {
		return fmt.Errorf("build scheduler: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	changed, err := scheduler.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("fetch cycle: %w", err)
	}

	logger.Info("fetch cycle complete", "changed", changed)
	return nil
}
