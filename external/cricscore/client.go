// Package cricscore is the fallback provider. Its feed is a flat score list
// with pre-formatted score strings and a coarse match-state flag, so the
// adapter here does less derivation than the primary one and trusts the feed
// for scores.
package cricscore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/stumpwatch/stumpwatch/internal/platform/httpfetch"
	"github.com/stumpwatch/stumpwatch/internal/platform/logging"
	"github.com/stumpwatch/stumpwatch/internal/platform/resilience"
)

// Source identifies records normalized from this provider.
const Source = "cricscore"

// ErrProviderStatus is returned when the provider answers 200 with a
// non-success envelope status.
var ErrProviderStatus = crerr.New("cricscore: provider reported failure status")

// ScorePayload is one entry of the flat cricScore feed. Team fields carry a
// trailing country code ("India [IND]"); score fields are pre-formatted.
type ScorePayload struct {
	ID          string `json:"id" validate:"required"`
	DateTimeGMT string `json:"dateTimeGMT"`
	MatchType   string `json:"matchType"`
	Status      string `json:"status"`
	MatchState  string `json:"ms"`
	Team1       string `json:"t1"`
	Team2       string `json:"t2"`
	Team1Score  string `json:"t1s"`
	Team2Score  string `json:"t2s"`
	Series      string `json:"series"`
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type Config struct {
	BaseURL string
	APIKey  string
	Fetcher *httpfetch.Fetcher
	Breaker *resilience.CircuitBreaker
	Logger  *logging.Logger
}

type Client struct {
	baseURL string
	apiKey  string
	fetcher *httpfetch.Fetcher
	breaker *resilience.CircuitBreaker
	logger  *logging.Logger
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("cricscore: base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cricscore: API key is required")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("cricscore: fetcher is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		fetcher: cfg.Fetcher,
		breaker: cfg.Breaker,
		logger:  logger,
	}, nil
}

// Scores fetches the whole feed. The raw data-array bytes are returned
// alongside the decoded payload so callers can fingerprint them for change
// detection without seeing envelope metadata.
func (c *Client) Scores(ctx context.Context) ([]byte, []ScorePayload, error) {
	if c.breaker != nil {
		if err := c.breaker.Allow(); err != nil {
			return nil, nil, err
		}
	}

	values := url.Values{"apikey": {c.apiKey}}
	raw, err := c.fetcher.Get(ctx, c.baseURL+"/cricScore?"+values.Encode())
	if err != nil {
		if c.breaker != nil {
			c.breaker.RecordFailure()
		}
		return nil, nil, err
	}

	var env envelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		if c.breaker != nil {
			c.breaker.RecordFailure()
		}
		return nil, nil, fmt.Errorf("cricscore: decode response: %w", err)
	}
	if env.Status != "success" {
		if c.breaker != nil {
			c.breaker.RecordFailure()
		}
		return nil, nil, crerr.Mark(fmt.Errorf("cricscore: response status %q", env.Status), ErrProviderStatus)
	}

	var scores []ScorePayload
	if len(env.Data) > 0 {
		if err := sonic.Unmarshal(env.Data, &scores); err != nil {
			if c.breaker != nil {
				c.breaker.RecordFailure()
			}
			return nil, nil, fmt.Errorf("cricscore: decode score list: %w", err)
		}
	}

	if c.breaker != nil {
		c.breaker.RecordSuccess()
	}
	return []byte(env.Data), scores, nil
}
