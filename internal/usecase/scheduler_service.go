package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stumpwatch/stumpwatch/internal/domain/match"
	"github.com/stumpwatch/stumpwatch/internal/platform/logging"
)

// DefaultTiers is the poll backoff ladder. Consecutive unchanged cycles walk
// up the ladder; any change or failure handling drops back down.
var DefaultTiers = []time.Duration{
	2 * time.Minute,
	3 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
	15 * time.Minute,
	20 * time.Minute,
}

// MatchFetcher is one fetch cycle: fallback policy, normalization, ordering.
type MatchFetcher interface {
	FetchMatches(ctx context.Context) (FeedResult, error)
}

// SnapshotPersister writes the published snapshot and marks it stale when a
// cycle fails.
type SnapshotPersister interface {
	Write(snapshot match.Snapshot) error
	AnnotateStale(checkedAt time.Time) error
}

// FailureEscalator receives cycle outcomes.
type FailureEscalator interface {
	RecordFailure(ctx context.Context, cause error)
	Reset(ctx context.Context)
}

// DetailSyncer refreshes per-match scorecards after a changed cycle.
type DetailSyncer interface {
	Sync(ctx context.Context, records []match.Record)
}

// Advisory is the published scheduling state, served by /status.
type Advisory struct {
	NextUpdateAt    time.Time
	Interval        time.Duration
	LastGeneratedAt time.Time
	LastCycleOK     bool
}

type SchedulerConfig struct {
	Tiers              []time.Duration
	StartingSoonBuffer time.Duration
}

// SchedulerService runs the fetch loop: fetch, detect change, persist,
// choose the next wait, sleep. One goroutine, cancelled via ctx.
type SchedulerService struct {
	fetcher   MatchFetcher
	persister SnapshotPersister
	detector  *ChangeDetector
	escalator FailureEscalator
	detail    DetailSyncer
	tiers     []time.Duration
	buffer    time.Duration
	logger    *logging.Logger
	clock     func() time.Time

	mu       sync.RWMutex
	advisory Advisory
}

func NewSchedulerService(
	fetcher MatchFetcher,
	persister SnapshotPersister,
	detector *ChangeDetector,
	escalator FailureEscalator,
	detail DetailSyncer,
	cfg SchedulerConfig,
	logger *logging.Logger,
) (*SchedulerService, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("match fetcher is required")
	}
	if persister == nil {
		return nil, fmt.Errorf("snapshot persister is required")
	}
	if detector == nil {
		detector = NewChangeDetector()
	}
	if logger == nil {
		logger = logging.Default()
	}

	tiers := cfg.Tiers
	if len(tiers) == 0 {
		tiers = DefaultTiers
	}
	buffer := cfg.StartingSoonBuffer
	if buffer <= 0 {
		buffer = time.Minute
	}

	return &SchedulerService{
		fetcher:   fetcher,
		persister: persister,
		detector:  detector,
		escalator: escalator,
		detail:    detail,
		tiers:     tiers,
		buffer:    buffer,
		logger:    logger,
		clock:     time.Now,
	}, nil
}

// Run loops until ctx is cancelled. Cancellation is checked at the loop top
// and during the sleep, never mid-cycle.
func (s *SchedulerService) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		wait := s.runCycle(ctx)
		if err := s.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// RunOnce executes a single cycle and reports whether the feed changed. Used
// by the one-shot CLI.
func (s *SchedulerService) RunOnce(ctx context.Context) (bool, error) {
	result, err := s.fetcher.FetchMatches(ctx)
	if err != nil {
		return false, err
	}
	changed, _ := s.detector.Observe(result.Raw)
	if changed {
		if err := s.persister.Write(match.NewSnapshot(s.clock(), result.Records)); err != nil {
			return changed, fmt.Errorf("persist snapshot: %w", err)
		}
	}
	return changed, nil
}

// Advisory returns the published next-poll estimate.
func (s *SchedulerService) Advisory() Advisory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.advisory
}

// runCycle performs one fetch cycle and returns how long to sleep before the
// next one.
func (s *SchedulerService) runCycle(ctx context.Context) time.Duration {
	start := s.clock()

	result, err := s.fetcher.FetchMatches(ctx)
	if err != nil {
		// Shutdown is a cooperative exit, not an outage: a cancelled ctx must
		// not advance the persisted failure counter or mark good data stale.
		if ctx.Err() != nil {
			return s.minTier()
		}
		s.logger.ErrorContext(ctx, "fetch cycle failed", "error", err)
		if s.escalator != nil {
			s.escalator.RecordFailure(ctx, err)
		}
		if staleErr := s.persister.AnnotateStale(s.clock()); staleErr != nil {
			s.logger.WarnContext(ctx, "stale annotation failed", "error", staleErr)
		}
		wait := s.minTier()
		s.publish(start, wait, false)
		return wait
	}

	changed, unchangedCount := s.detector.Observe(result.Raw)
	if changed {
		snapshot := match.NewSnapshot(s.clock(), result.Records)
		if err := s.persister.Write(snapshot); err != nil {
			s.logger.ErrorContext(ctx, "persist snapshot failed", "error", err)
		}
		if s.detail != nil {
			s.detail.Sync(ctx, result.Records)
		}
	}
	if s.escalator != nil {
		s.escalator.Reset(ctx)
	}

	interval := s.tiers[minInt(unchangedCount, len(s.tiers)-1)]
	if s.startingSoon(result.Records, start, interval) {
		interval = s.minTier()
	}

	elapsed := s.clock().Sub(start)
	wait := interval - elapsed
	if min := s.minTier(); wait < min {
		wait = min
	}

	s.logger.InfoContext(ctx, "fetch cycle complete",
		"source", result.Source,
		"matches", len(result.Records),
		"changed", changed,
		"unchanged_cycles", unchangedCount,
		"next_poll_in", wait.String(),
	)
	s.publish(start, wait, true)
	return wait
}

// startingSoon reports whether any upcoming match begins inside the chosen
// interval plus buffer. Such a match forces the minimum tier so its going
// live is not missed, regardless of how quiet the feed has been.
func (s *SchedulerService) startingSoon(records []match.Record, now time.Time, interval time.Duration) bool {
	horizon := now.Add(interval + s.buffer)
	for _, record := range records {
		if record.Status != match.StatusUpcoming || record.StartTime == nil {
			continue
		}
		start := time.Unix(*record.StartTime, 0)
		if !start.Before(now) && !start.After(horizon) {
			return true
		}
	}
	return false
}

func (s *SchedulerService) publish(cycleStart time.Time, wait time.Duration, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advisory = Advisory{
		NextUpdateAt:    s.clock().Add(wait),
		Interval:        wait,
		LastGeneratedAt: cycleStart,
		LastCycleOK:     ok,
	}
}

func (s *SchedulerService) minTier() time.Duration {
	return s.tiers[0]
}

func (s *SchedulerService) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func minInt(left, right int) int {
	if left < right {
		return left
	}
	return right
}
