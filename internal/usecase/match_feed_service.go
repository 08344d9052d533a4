package usecase

import (
	"context"
	"fmt"

	crerr "github.com/cockroachdb/errors"

	"github.com/stumpwatch/stumpwatch/internal/domain/match"
	"github.com/stumpwatch/stumpwatch/internal/platform/httpfetch"
	"github.com/stumpwatch/stumpwatch/internal/platform/logging"
	"github.com/stumpwatch/stumpwatch/internal/platform/resilience"
)

// PrimarySource is the preferred provider: richer payloads plus an
// upcoming-fixtures side channel.
type PrimarySource interface {
	Live(ctx context.Context) (raw []byte, records []match.Record, err error)
	Fixtures(ctx context.Context) ([]match.Record, error)
}

// SecondarySource is consulted only when the primary fails or returns an
// empty feed.
type SecondarySource interface {
	Live(ctx context.Context) (raw []byte, records []match.Record, err error)
}

// FeedResult is one fetch cycle's worth of normalized matches. Raw holds the
// winning provider's payload bytes for change fingerprinting.
type FeedResult struct {
	Raw     []byte
	Records []match.Record
	Source  string
}

// MatchFeedService implements the source-fallback policy and produces the
// final display ordering.
type MatchFeedService struct {
	primary   PrimarySource
	secondary SecondarySource
	logger    *logging.Logger
}

func NewMatchFeedService(primary PrimarySource, secondary SecondarySource, logger *logging.Logger) (*MatchFeedService, error) {
	if primary == nil {
		return nil, fmt.Errorf("primary source is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &MatchFeedService{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}, nil
}

// FetchMatches runs one fetch: primary first, secondary on failure or an
// empty primary feed, fixtures merged in dedup-only, then the stable
// status-rank/priority sort. Both sources failing is an ErrAllSourcesFailed.
func (s *MatchFeedService) FetchMatches(ctx context.Context) (FeedResult, error) {
	result, primaryErr := s.fetchPrimary(ctx)
	if primaryErr != nil {
		s.logger.WarnContext(ctx, "primary source failed, falling back", "error", primaryErr)

		var secondaryErr error
		result, secondaryErr = s.fetchSecondary(ctx)
		if secondaryErr != nil {
			err := fmt.Errorf("primary: %w; secondary: %v", primaryErr, secondaryErr)
			return FeedResult{}, crerr.Mark(err, ErrAllSourcesFailed)
		}
	}

	if fixtures := s.fetchFixtures(ctx); len(fixtures) > 0 {
		result.Records = mergeByID(result.Records, fixtures)
	}

	match.SortRecords(result.Records)
	return result, nil
}

func (s *MatchFeedService) fetchPrimary(ctx context.Context) (FeedResult, error) {
	raw, records, err := s.primary.Live(ctx)
	if err != nil {
		return FeedResult{}, classifyFetchError(err)
	}
	if len(records) == 0 {
		return FeedResult{}, fmt.Errorf("primary feed is empty")
	}
	return FeedResult{Raw: raw, Records: records, Source: "primary"}, nil
}

func (s *MatchFeedService) fetchSecondary(ctx context.Context) (FeedResult, error) {
	if s.secondary == nil {
		return FeedResult{}, fmt.Errorf("no secondary source configured")
	}
	raw, records, err := s.secondary.Live(ctx)
	if err != nil {
		return FeedResult{}, classifyFetchError(err)
	}
	if len(records) == 0 {
		return FeedResult{}, fmt.Errorf("secondary feed is empty")
	}
	return FeedResult{Raw: raw, Records: records, Source: "secondary"}, nil
}

// fetchFixtures is best-effort: a failed side channel only costs the extra
// upcoming entries, never the cycle.
func (s *MatchFeedService) fetchFixtures(ctx context.Context) []match.Record {
	fixtures, err := s.primary.Fixtures(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "fixtures side channel failed", "error", err)
		return nil
	}
	return fixtures
}

// classifyFetchError tags transport-level failures with the usecase
// sentinels so callers can branch without knowing the fetch internals.
func classifyFetchError(err error) error {
	switch {
	case crerr.Is(err, resilience.ErrCircuitOpen):
		return crerr.Mark(err, ErrDependencyUnavailable)
	case crerr.Is(err, httpfetch.ErrExhausted):
		return crerr.Mark(err, ErrFetchFailed)
	default:
		return err
	}
}

// mergeByID appends extra records whose MatchID is not already present. The
// base copy always wins on conflict.
func mergeByID(base, extra []match.Record) []match.Record {
	seen := make(map[string]struct{}, len(base))
	for _, r := range base {
		seen[r.MatchID] = struct{}{}
	}
	for _, r := range extra {
		if _, ok := seen[r.MatchID]; ok {
			continue
		}
		seen[r.MatchID] = struct{}{}
		base = append(base, r)
	}
	return base
}
