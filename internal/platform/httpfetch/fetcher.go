package httpfetch

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"regexp"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/stumpwatch/stumpwatch/internal/platform/logging"
)

const maxBodyBytes = 6 << 20

// ErrExhausted marks a GET that failed after all retry attempts.
var ErrExhausted = crerr.New("fetch failed after retries")

var apiKeyParamRegex = regexp.MustCompile(`(apikey|api_token|api_key)=[^&\s"']+`)

// StatusError is returned for non-2xx responses that are not worth retrying.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider status=%d body=%s", e.Code, e.Body)
}

// FailureRecorder receives exactly one call per exhausted-retries event.
// It is how the fetch layer feeds the failure-escalation counter without
// owning any cross-call state itself.
type FailureRecorder interface {
	RecordFetchFailure(ctx context.Context, url string, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordFetchFailure(context.Context, string, error) {}

func NewNopRecorder() FailureRecorder { return nopRecorder{} }

type Config struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	// MaxRetries is the total number of attempts per Get, not the number of
	// extra retries.
	MaxRetries  int
	BaseBackoff time.Duration
	RateLimit   rate.Limit
	RateBurst   int
	Logger      *logging.Logger
	Recorder    FailureRecorder
}

// Fetcher performs a single HTTP GET with per-attempt timeout, exponential
// backoff with jitter, and a shared rate limiter across all callers.
type Fetcher struct {
	httpClient  *http.Client
	timeout     time.Duration
	maxRetries  int
	baseBackoff time.Duration
	limiter     *rate.Limiter
	logger      *logging.Logger
	recorder    FailureRecorder
}

func New(cfg Config) *Fetcher {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = NewNopRecorder()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseBackoff := cfg.BaseBackoff
	if baseBackoff <= 0 {
		baseBackoff = 500 * time.Millisecond
	}

	limit := cfg.RateLimit
	if limit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}

	return &Fetcher{
		httpClient:  httpClient,
		timeout:     timeout,
		maxRetries:  maxInt(cfg.MaxRetries, 1),
		baseBackoff: baseBackoff,
		limiter:     rate.NewLimiter(limit, burst),
		logger:      logger,
		recorder:    recorder,
	}
}

// Get fetches fullURL, retrying transport errors and retryable statuses for
// at most MaxRetries attempts in total. Non-retryable statuses surface
// immediately as *StatusError; exhausted retries surface as an error marked
// ErrExhausted after one RecordFetchFailure call.
func (f *Fetcher) Get(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < f.maxRetries; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		raw, err := f.attempt(ctx, fullURL)
		if err == nil {
			return raw, nil
		}

		var statusErr *StatusError
		if crerr.As(err, &statusErr) && !isRetryableStatus(statusErr.Code) {
			return nil, err
		}
		lastErr = err

		if attempt == f.maxRetries-1 {
			break
		}
		if err := sleepContext(ctx, f.backoff(attempt)); err != nil {
			return nil, err
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	wrapped := crerr.Mark(fmt.Errorf("%s: %w", RedactURL(fullURL), lastErr), ErrExhausted)
	f.logger.WarnContext(ctx, "fetch exhausted retries", "url", RedactURL(fullURL), "attempts", f.maxRetries, "error", lastErr)
	f.recorder.RecordFetchFailure(ctx, RedactURL(fullURL), wrapped)
	return nil, wrapped
}

func (f *Fetcher) attempt(ctx context.Context, fullURL string) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %s", RedactURL(err.Error()))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil
	}

	return nil, &StatusError{Code: resp.StatusCode, Body: abbreviateBody(raw)}
}

// backoff returns base * 2^attempt scaled by uniform(0.5, 1.0) so retry storms
// from parallel processes do not synchronize.
func (f *Fetcher) backoff(attempt int) time.Duration {
	backoff := f.baseBackoff << uint(attempt)
	jitter := 0.5 + rand.Float64()*0.5
	return time.Duration(float64(backoff) * jitter)
}

func isRetryableStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	case code >= 500:
		return true
	default:
		return false
	}
}

// RedactURL strips API-key query values from a URL or error text before it
// reaches logs.
func RedactURL(value string) string {
	return apiKeyParamRegex.ReplaceAllString(strings.TrimSpace(value), "$1=REDACTED")
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	body := strings.TrimSpace(string(raw))
	if len(body) > limit {
		return body[:limit] + "..."
	}
	return body
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}
