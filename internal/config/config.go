package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/stumpwatch/stumpwatch/internal/platform/resilience"
)

type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

type ProviderConfig struct {
	BaseURL    string
	APIKeys    []string
	Timeout    time.Duration
	MaxRetries int
	Breaker    resilience.CircuitBreakerConfig
}

type FetchConfig struct {
	BaseBackoff time.Duration
	RateLimit   float64
	RateBurst   int
}

type PollConfig struct {
	Tiers              []time.Duration
	StartingSoonBuffer time.Duration
}

type EscalationConfig struct {
	Threshold       int
	BenignSignature string
	RestartCmd      string
}

type AlertConfig struct {
	TelegramToken  string
	TelegramChatID int64
}

type Config struct {
	Env      Environment
	HTTPAddr string
	LogLevel string

	DataDir   string
	RulesFile string

	CricAPI   ProviderConfig
	CricScore ProviderConfig
	Fetch     FetchConfig
	Poll      PollConfig

	Escalation EscalationConfig
	Alert      AlertConfig

	SnapshotCacheTTL  time.Duration
	DetailSyncWorkers int
}

// Load reads configuration from the environment. Every malformed value is a
// startup error naming the offending key; nothing falls back silently.
func Load() (*Config, error) {
	cfg := &Config{
		Env:      Environment(getEnv("APP_ENV", string(EnvDevelopment))),
		HTTPAddr: getEnv("APP_HTTP_ADDR", ":8080"),
		LogLevel: getEnv("APP_LOG_LEVEL", "info"),

		DataDir:   getEnv("DATA_DIR", "./data"),
		RulesFile: getEnv("RULES_FILE", ""),
	}

	switch cfg.Env {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		return nil, fmt.Errorf("parse APP_ENV: unknown environment %q", cfg.Env)
	}

	var err error

	cfg.CricAPI.BaseURL = getEnv("CRICAPI_BASE_URL", "https://api.cricapi.com/v1")
	cfg.CricAPI.APIKeys = splitList(getEnv("CRICAPI_API_KEYS", ""))
	if len(cfg.CricAPI.APIKeys) == 0 {
		return nil, fmt.Errorf("parse CRICAPI_API_KEYS: at least one key is required")
	}
	if cfg.CricAPI.Timeout, err = getEnvAsDuration("CRICAPI_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.CricAPI.MaxRetries, err = getEnvAsInt("CRICAPI_MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.CricAPI.Breaker, err = loadBreaker("CRICAPI"); err != nil {
		return nil, err
	}

	cfg.CricScore.BaseURL = getEnv("CRICSCORE_BASE_URL", "https://api.cricapi.com/v1")
	cfg.CricScore.APIKeys = splitList(getEnv("CRICSCORE_API_KEY", ""))
	if cfg.CricScore.Timeout, err = getEnvAsDuration("CRICSCORE_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	// The fallback provider gets fewer attempts: when the primary is down the
	// cycle should fail fast enough for escalation to notice.
	if cfg.CricScore.MaxRetries, err = getEnvAsInt("CRICSCORE_MAX_RETRIES", 1); err != nil {
		return nil, err
	}
	if cfg.CricScore.Breaker, err = loadBreaker("CRICSCORE"); err != nil {
		return nil, err
	}

	if cfg.Fetch.BaseBackoff, err = getEnvAsDuration("FETCH_BASE_BACKOFF", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.Fetch.RateLimit, err = getEnvAsFloat("FETCH_RATE_LIMIT", 2); err != nil {
		return nil, err
	}
	if cfg.Fetch.RateBurst, err = getEnvAsInt("FETCH_RATE_BURST", 4); err != nil {
		return nil, err
	}

	if cfg.Poll.Tiers, err = getEnvAsDurationList("POLL_TIERS", "2m,3m,5m,10m,15m,20m"); err != nil {
		return nil, err
	}
	if cfg.Poll.StartingSoonBuffer, err = getEnvAsDuration("POLL_STARTING_SOON_BUFFER", time.Minute); err != nil {
		return nil, err
	}

	if cfg.Escalation.Threshold, err = getEnvAsInt("FAILURE_THRESHOLD", 5); err != nil {
		return nil, err
	}
	cfg.Escalation.BenignSignature = getEnv("BENIGN_ERROR_SIGNATURE", "storage full")
	cfg.Escalation.RestartCmd = getEnv("RESTART_CMD", "")

	cfg.Alert.TelegramToken = getEnv("ALERT_TELEGRAM_TOKEN", "")
	if cfg.Alert.TelegramChatID, err = getEnvAsInt64("ALERT_TELEGRAM_CHAT_ID", 0); err != nil {
		return nil, err
	}

	if cfg.SnapshotCacheTTL, err = getEnvAsDuration("SNAPSHOT_CACHE_TTL", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.DetailSyncWorkers, err = getEnvAsInt("DETAIL_SYNC_WORKERS", 4); err != nil {
		return nil, err
	}

	return cfg, nil
}

// HasSecondary reports whether the fallback provider is configured at all.
func (c *Config) HasSecondary() bool {
	return len(c.CricScore.APIKeys) > 0
}

func loadBreaker(prefix string) (resilience.CircuitBreakerConfig, error) {
	cfg := resilience.DefaultCircuitBreakerConfig()
	var err error

	if cfg.FailureThreshold, err = getEnvAsInt(prefix+"_CB_FAILURE_THRESHOLD", cfg.FailureThreshold); err != nil {
		return cfg, err
	}
	if cfg.OpenTimeout, err = getEnvAsDuration(prefix+"_CB_OPEN_TIMEOUT", cfg.OpenTimeout); err != nil {
		return cfg, err
	}
	if cfg.HalfOpenMaxReq, err = getEnvAsInt(prefix+"_CB_HALF_OPEN_MAX", cfg.HalfOpenMaxReq); err != nil {
		return cfg, err
	}
	return resilience.NormalizeCircuitBreakerConfig(cfg), nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}

func getEnvAsInt64(key string, fallback int64) (int64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}

func getEnvAsFloat(key string, fallback float64) (float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("parse %s: duration must be positive", key)
	}
	return value, nil
}

func getEnvAsDurationList(key, fallback string) ([]time.Duration, error) {
	raw := getEnv(key, fallback)
	parts := splitList(raw)
	if len(parts) == 0 {
		return nil, fmt.Errorf("parse %s: at least one duration is required", key)
	}

	tiers := make([]time.Duration, 0, len(parts))
	for _, part := range parts {
		d, err := time.ParseDuration(part)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", key, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("parse %s: duration %q must be positive", key, part)
		}
		tiers = append(tiers, d)
	}
	return tiers, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
