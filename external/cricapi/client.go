package cricapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/stumpwatch/stumpwatch/internal/platform/httpfetch"
	"github.com/stumpwatch/stumpwatch/internal/platform/logging"
	"github.com/stumpwatch/stumpwatch/internal/platform/resilience"
)

// Source identifies records normalized from this provider.
const Source = "cricapi"

// ErrProviderStatus is returned when the provider answers 200 with a
// non-success envelope status.
var ErrProviderStatus = crerr.New("cricapi: provider reported failure status")

type Config struct {
	BaseURL string
	APIKeys []string
	Fetcher *httpfetch.Fetcher
	Breaker *resilience.CircuitBreaker
	Logger  *logging.Logger
}

// Client talks to the CricAPI-shaped primary provider. It rotates through the
// configured API keys when one is rejected or throttled, and routes every
// request through the shared circuit breaker.
type Client struct {
	baseURL  string
	apiKeys  []string
	keyIndex atomic.Uint32
	fetcher  *httpfetch.Fetcher
	breaker  *resilience.CircuitBreaker
	logger   *logging.Logger
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("cricapi: base URL is required")
	}
	if len(cfg.APIKeys) == 0 {
		return nil, fmt.Errorf("cricapi: at least one API key is required")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("cricapi: fetcher is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKeys: cfg.APIKeys,
		fetcher: cfg.Fetcher,
		breaker: cfg.Breaker,
		logger:  logger,
	}, nil
}

// CurrentMatches fetches the live feed. The raw data-array bytes are
// returned alongside the decoded payload so callers can fingerprint them for
// change detection. The envelope's usage counters change on every request,
// so hashing must not see them.
func (c *Client) CurrentMatches(ctx context.Context) ([]byte, []MatchPayload, error) {
	raw, err := c.get(ctx, "/currentMatches", url.Values{"offset": {"0"}})
	if err != nil {
		return nil, nil, err
	}
	return decodeMatches(raw)
}

// Fixtures fetches the upcoming-fixtures side channel.
func (c *Client) Fixtures(ctx context.Context) ([]MatchPayload, error) {
	raw, err := c.get(ctx, "/matches", url.Values{"offset": {"0"}})
	if err != nil {
		return nil, err
	}
	_, matches, err := decodeMatches(raw)
	return matches, err
}

// Scorecard fetches the per-match detail blob. It is stored verbatim by the
// detail cache, so only the envelope status is checked here.
func (c *Client) Scorecard(ctx context.Context, matchID string) ([]byte, error) {
	if matchID == "" {
		return nil, fmt.Errorf("cricapi: match id is required")
	}
	raw, err := c.get(ctx, "/match_scorecard", url.Values{"id": {matchID}})
	if err != nil {
		return nil, err
	}

	var env envelope[json.RawMessage]
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("cricapi: decode scorecard envelope: %w", err)
	}
	if env.Status != "success" {
		return nil, crerr.Mark(fmt.Errorf("cricapi: scorecard status %q", env.Status), ErrProviderStatus)
	}
	return raw, nil
}

// get performs one provider call, trying each configured API key at most once
// when the current one comes back unauthorized or throttled.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if c.breaker != nil {
		if err := c.breaker.Allow(); err != nil {
			return nil, err
		}
	}

	var lastErr error
	for tries := 0; tries < len(c.apiKeys); tries++ {
		raw, err := c.fetcher.Get(ctx, c.buildURL(path, params))
		if err == nil {
			if c.breaker != nil {
				c.breaker.RecordSuccess()
			}
			return raw, nil
		}
		lastErr = err

		var statusErr *httpfetch.StatusError
		if crerr.As(err, &statusErr) && isKeyRejection(statusErr.Code) {
			c.rotateKey()
			c.logger.WarnContext(ctx, "cricapi key rejected, rotating", "status", statusErr.Code, "path", path)
			continue
		}
		break
	}

	if c.breaker != nil {
		c.breaker.RecordFailure()
	}
	return nil, lastErr
}

func (c *Client) buildURL(path string, params url.Values) string {
	values := url.Values{}
	for key, vals := range params {
		values[key] = vals
	}
	values.Set("apikey", c.currentKey())
	return c.baseURL + path + "?" + values.Encode()
}

func (c *Client) currentKey() string {
	return c.apiKeys[int(c.keyIndex.Load())%len(c.apiKeys)]
}

func (c *Client) rotateKey() {
	c.keyIndex.Add(1)
}

func isKeyRejection(code int) bool {
	return code == 401 || code == 403 || code == 429
}

func decodeMatches(raw []byte) ([]byte, []MatchPayload, error) {
	var env envelope[json.RawMessage]
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return nil, nil, fmt.Errorf("cricapi: decode response: %w", err)
	}
	if env.Status != "success" {
		return nil, nil, crerr.Mark(fmt.Errorf("cricapi: response status %q", env.Status), ErrProviderStatus)
	}

	var matches []MatchPayload
	if len(env.Data) > 0 {
		if err := sonic.Unmarshal(env.Data, &matches); err != nil {
			return nil, nil, fmt.Errorf("cricapi: decode match list: %w", err)
		}
	}
	return []byte(env.Data), matches, nil
}
