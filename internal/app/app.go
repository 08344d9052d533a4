// Package app wires configuration into the running service: providers,
// scheduler, escalation, and the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/sourcegraph/conc"
	"golang.org/x/time/rate"

	"github.com/stumpwatch/stumpwatch/external/cricapi"
	"github.com/stumpwatch/stumpwatch/external/cricscore"
	"github.com/stumpwatch/stumpwatch/internal/config"
	"github.com/stumpwatch/stumpwatch/internal/domain/rules"
	"github.com/stumpwatch/stumpwatch/internal/infrastructure/recovery"
	"github.com/stumpwatch/stumpwatch/internal/infrastructure/snapshot"
	"github.com/stumpwatch/stumpwatch/internal/interfaces/httpapi"
	"github.com/stumpwatch/stumpwatch/internal/observability/alert"
	"github.com/stumpwatch/stumpwatch/internal/platform/cache"
	"github.com/stumpwatch/stumpwatch/internal/platform/httpfetch"
	"github.com/stumpwatch/stumpwatch/internal/platform/logging"
	"github.com/stumpwatch/stumpwatch/internal/platform/resilience"
	"github.com/stumpwatch/stumpwatch/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	cfg       *config.Config
	logger    *logging.Logger
	scheduler *usecase.SchedulerService
	detail    *usecase.DetailSyncService
	server    *http.Server
}

func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	ruleSet, err := rules.Load(cfg.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	store, err := snapshot.NewStore(filepath.Join(cfg.DataDir, "scores.json"), logger)
	if err != nil {
		return nil, fmt.Errorf("create snapshot store: %w", err)
	}
	counter, err := snapshot.NewCounterFile(filepath.Join(cfg.DataDir, "failures.json"))
	if err != nil {
		return nil, fmt.Errorf("create failure counter: %w", err)
	}
	detailCache, err := snapshot.NewFileDetailCache(filepath.Join(cfg.DataDir, "details"))
	if err != nil {
		return nil, fmt.Errorf("create detail cache: %w", err)
	}

	escalator, err := buildEscalator(cfg, counter, logger)
	if err != nil {
		return nil, err
	}

	primaryFeed, err := buildPrimary(cfg, ruleSet, escalator, logger)
	if err != nil {
		return nil, err
	}
	secondaryFeed, err := buildSecondary(cfg, ruleSet, escalator, logger)
	if err != nil {
		return nil, err
	}

	matchFeed, err := usecase.NewMatchFeedService(primaryFeed, secondaryFeed, logger)
	if err != nil {
		return nil, fmt.Errorf("create match feed: %w", err)
	}

	detailSync, err := usecase.NewDetailSyncService(primaryFeed, detailCache, cfg.DetailSyncWorkers, logger)
	if err != nil {
		return nil, fmt.Errorf("create detail sync: %w", err)
	}

	scheduler, err := usecase.NewSchedulerService(
		matchFeed,
		store,
		usecase.NewChangeDetector(),
		escalator,
		detailSync,
		usecase.SchedulerConfig{
			Tiers:              cfg.Poll.Tiers,
			StartingSoonBuffer: cfg.Poll.StartingSoonBuffer,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	apiServer, err := httpapi.NewServer(store, detailCache, scheduler, cache.NewStore(cfg.SnapshotCacheTTL), logger)
	if err != nil {
		return nil, fmt.Errorf("create http server: %w", err)
	}

	return &App{
		cfg:       cfg,
		logger:    logger,
		scheduler: scheduler,
		detail:    detailSync,
		server: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           apiServer.Routes(),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Run starts the poll loop and the HTTP server, and blocks until ctx is
// cancelled and both have stopped.
func (a *App) Run(ctx context.Context) error {
	defer a.detail.Close()

	var wg conc.WaitGroup

	wg.Go(func() {
		if err := a.scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.ErrorContext(ctx, "scheduler stopped", "error", err)
		}
	})

	wg.Go(func() {
		a.logger.InfoContext(ctx, "http server listening", "addr", a.cfg.HTTPAddr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.ErrorContext(ctx, "http server stopped", "error", err)
		}
	})

	wg.Go(func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("http server shutdown", "error", err)
		}
	})

	wg.Wait()
	return nil
}

// BuildOneShotScheduler wires just enough of the stack for a single fetch
// cycle, used by the poll CLI.
func BuildOneShotScheduler(cfg *config.Config, logger *logging.Logger) (*usecase.SchedulerService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	ruleSet, err := rules.Load(cfg.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	store, err := snapshot.NewStore(filepath.Join(cfg.DataDir, "scores.json"), logger)
	if err != nil {
		return nil, fmt.Errorf("create snapshot store: %w", err)
	}

	primaryFeed, err := buildPrimary(cfg, ruleSet, nil, logger)
	if err != nil {
		return nil, err
	}
	secondaryFeed, err := buildSecondary(cfg, ruleSet, nil, logger)
	if err != nil {
		return nil, err
	}
	matchFeed, err := usecase.NewMatchFeedService(primaryFeed, secondaryFeed, logger)
	if err != nil {
		return nil, fmt.Errorf("create match feed: %w", err)
	}

	return usecase.NewSchedulerService(
		matchFeed, store, usecase.NewChangeDetector(), nil, nil,
		usecase.SchedulerConfig{Tiers: cfg.Poll.Tiers, StartingSoonBuffer: cfg.Poll.StartingSoonBuffer},
		logger,
	)
}

func buildEscalator(cfg *config.Config, counter *snapshot.CounterFile, logger *logging.Logger) (*usecase.EscalationService, error) {
	var notifier usecase.Notifier = alert.NopNotifier{}
	if cfg.Alert.TelegramToken != "" && cfg.Alert.TelegramChatID != 0 {
		telegram, err := alert.NewTelegramNotifier(cfg.Alert.TelegramToken, cfg.Alert.TelegramChatID)
		if err != nil {
			return nil, fmt.Errorf("create telegram notifier: %w", err)
		}
		notifier = telegram
	}

	var recoveryRunner usecase.RecoveryRunner
	if runner := recovery.NewCommandRunner(cfg.Escalation.RestartCmd, logger); runner != nil {
		recoveryRunner = runner
	}

	escalator, err := usecase.NewEscalationService(counter, notifier, recoveryRunner, usecase.EscalationConfig{
		Threshold:       cfg.Escalation.Threshold,
		BenignSignature: cfg.Escalation.BenignSignature,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create escalation service: %w", err)
	}
	return escalator, nil
}

func buildPrimary(cfg *config.Config, ruleSet *rules.Rules, recorder httpfetch.FailureRecorder, logger *logging.Logger) (*cricapi.Feed, error) {
	fetcher := httpfetch.New(httpfetch.Config{
		Timeout:     cfg.CricAPI.Timeout,
		MaxRetries:  cfg.CricAPI.MaxRetries,
		BaseBackoff: cfg.Fetch.BaseBackoff,
		RateLimit:   rate.Limit(cfg.Fetch.RateLimit),
		RateBurst:   cfg.Fetch.RateBurst,
		Logger:      logger,
		Recorder:    recorder,
	})

	client, err := cricapi.NewClient(cricapi.Config{
		BaseURL: cfg.CricAPI.BaseURL,
		APIKeys: cfg.CricAPI.APIKeys,
		Fetcher: fetcher,
		Breaker: buildBreaker(cfg.CricAPI.Breaker),
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create cricapi client: %w", err)
	}

	return cricapi.NewFeed(client, cricapi.NewAdapter(ruleSet, logger)), nil
}

func buildSecondary(cfg *config.Config, ruleSet *rules.Rules, recorder httpfetch.FailureRecorder, logger *logging.Logger) (usecase.SecondarySource, error) {
	if !cfg.HasSecondary() {
		return nil, nil
	}

	fetcher := httpfetch.New(httpfetch.Config{
		Timeout:     cfg.CricScore.Timeout,
		MaxRetries:  cfg.CricScore.MaxRetries,
		BaseBackoff: cfg.Fetch.BaseBackoff,
		RateLimit:   rate.Limit(cfg.Fetch.RateLimit),
		RateBurst:   cfg.Fetch.RateBurst,
		Logger:      logger,
		Recorder:    recorder,
	})

	client, err := cricscore.NewClient(cricscore.Config{
		BaseURL: cfg.CricScore.BaseURL,
		APIKey:  cfg.CricScore.APIKeys[0],
		Fetcher: fetcher,
		Breaker: buildBreaker(cfg.CricScore.Breaker),
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create cricscore client: %w", err)
	}

	return cricscore.NewFeed(client, cricscore.NewAdapter(ruleSet, logger)), nil
}

func buildBreaker(cfg resilience.CircuitBreakerConfig) *resilience.CircuitBreaker {
	if !cfg.Enabled {
		return nil
	}
	return resilience.NewCircuitBreaker(cfg.FailureThreshold, cfg.OpenTimeout, cfg.HalfOpenMaxReq)
}
