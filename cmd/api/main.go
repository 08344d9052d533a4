package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"

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
	// Absent .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewJSON(parseLevel(cfg.LogLevel))
	defer func() { _ = logger.Sync() }()
	logging.SetDefault(logger)

	logger.Info("starting stumpwatch", "env", string(cfg.Env), "addr", cfg.HTTPAddr)

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	logger.Info("stumpwatch stopped")
	return nil
}

func parseLevel(raw string) logging.Level {
	var level zapcore.Level
	if err := level.Set(raw); err != nil {
		return logging.LevelInfo
	}
	return level
}
