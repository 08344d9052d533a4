package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/stumpwatch/stumpwatch/internal/domain/match"
	"github.com/stumpwatch/stumpwatch/internal/platform/logging"
)

// ScorecardSource fetches the per-match detail blob from the primary
// provider.
type ScorecardSource interface {
	Scorecard(ctx context.Context, matchID string) ([]byte, error)
}

// DetailCache stores raw scorecard blobs keyed by match ID and prunes
// entries for matches that left the feed.
type DetailCache interface {
	WriteDetail(matchID string, raw []byte) error
	Prune(activeIDs map[string]struct{}) error
}

// DetailSyncService refreshes per-match scorecards after a changed cycle.
// Fetches run through a bounded worker pool; a failed match is a warning,
// never a cycle failure.
type DetailSyncService struct {
	source ScorecardSource
	cache  DetailCache
	pool   *ants.Pool
	logger *logging.Logger
}

func NewDetailSyncService(source ScorecardSource, cache DetailCache, workers int, logger *logging.Logger) (*DetailSyncService, error) {
	if source == nil {
		return nil, fmt.Errorf("scorecard source is required")
	}
	if cache == nil {
		return nil, fmt.Errorf("detail cache is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if workers <= 0 {
		workers = 4
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &DetailSyncService{
		source: source,
		cache:  cache,
		pool:   pool,
		logger: logger,
	}, nil
}

// Sync fetches scorecards for live and just-completed matches, then prunes
// cache entries whose match left the feed. Upcoming matches have no
// scorecard and are skipped.
func (s *DetailSyncService) Sync(ctx context.Context, records []match.Record) {
	active := make(map[string]struct{}, len(records))
	var wg sync.WaitGroup

	for _, record := range records {
		active[record.MatchID] = struct{}{}
		if record.Status != match.StatusLive && record.Status != match.StatusCompleted {
			continue
		}

		matchID := record.MatchID
		wg.Add(1)
		if err := s.pool.Submit(func() {
			defer wg.Done()
			s.syncOne(ctx, matchID)
		}); err != nil {
			wg.Done()
			s.logger.WarnContext(ctx, "scorecard sync not scheduled", "match_id", matchID, "error", err)
		}
	}
	wg.Wait()

	if err := s.cache.Prune(active); err != nil {
		s.logger.WarnContext(ctx, "scorecard cache prune failed", "error", err)
	}
}

func (s *DetailSyncService) Close() {
	s.pool.Release()
}

func (s *DetailSyncService) syncOne(ctx context.Context, matchID string) {
	raw, err := s.source.Scorecard(ctx, matchID)
	if err != nil {
		s.logger.WarnContext(ctx, "scorecard fetch failed", "match_id", matchID, "error", err)
		return
	}
	if err := s.cache.WriteDetail(matchID, raw); err != nil {
		s.logger.WarnContext(ctx, "scorecard write failed", "match_id", matchID, "error", err)
	}
}
