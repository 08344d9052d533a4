package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/stumpwatch/stumpwatch/internal/platform/logging"
)

// FailureCounter is the persisted escalation state. It lives in a file so a
// process restart does not forgive an ongoing outage.
type FailureCounter struct {
	Count     int   `json:"count"`
	UpdatedAt int64 `json:"updated_at"`
}

// CounterStore persists the failure counter. A load error is treated as a
// zero counter.
type CounterStore interface {
	Load() (FailureCounter, error)
	Store(FailureCounter) error
}

// Notifier delivers an operator alert. Send failures are logged, never
// propagated.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// RecoveryRunner executes the configured restart action.
type RecoveryRunner interface {
	Restart(ctx context.Context) error
}

type EscalationConfig struct {
	Threshold       int
	BenignSignature string
}

// EscalationService tracks consecutive cycle failures and, at the threshold,
// fires exactly one alert and one recovery action before starting over.
type EscalationService struct {
	store     CounterStore
	notifier  Notifier
	recovery  RecoveryRunner
	threshold int
	benign    string
	logger    *logging.Logger
	clock     func() time.Time

	mu sync.Mutex
}

func NewEscalationService(store CounterStore, notifier Notifier, recovery RecoveryRunner, cfg EscalationConfig, logger *logging.Logger) (*EscalationService, error) {
	if store == nil {
		return nil, fmt.Errorf("counter store is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = 5
	}

	return &EscalationService{
		store:     store,
		notifier:  notifier,
		recovery:  recovery,
		threshold: threshold,
		benign:    cfg.BenignSignature,
		logger:    logger,
		clock:     time.Now,
	}, nil
}

// RecordFailure registers one failed fetch cycle. Errors carrying the benign
// signature alert the operator but do not advance the counter.
func (s *EscalationService) RecordFailure(ctx context.Context, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isBenign(cause) {
		s.logger.WarnContext(ctx, "benign upstream condition, not escalating", "error", cause)
		s.notify(ctx, fmt.Sprintf("score feed reported a benign upstream condition: %v", cause))
		return
	}

	counter, err := s.store.Load()
	if err != nil {
		s.logger.WarnContext(ctx, "failure counter unreadable, starting from zero", "error", err)
		counter = FailureCounter{}
	}

	counter.Count++
	counter.UpdatedAt = s.clock().Unix()
	s.logger.ErrorContext(ctx, "fetch cycle failed", "consecutive_failures", counter.Count, "threshold", s.threshold, "error", cause)

	if counter.Count < s.threshold {
		s.persist(ctx, counter)
		return
	}

	s.notify(ctx, fmt.Sprintf("score feed has failed %d consecutive cycles, restarting service", counter.Count))
	s.persist(ctx, FailureCounter{UpdatedAt: counter.UpdatedAt})
	s.runRecovery(ctx)
}

// Reset clears the counter after any successful cycle.
func (s *EscalationService) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counter, err := s.store.Load()
	if err == nil && counter.Count == 0 {
		return
	}
	s.persist(ctx, FailureCounter{UpdatedAt: s.clock().Unix()})
}

// RecordFetchFailure satisfies the fetch layer's failure hook. Individual
// request failures are logged here; only whole-cycle failures move the
// counter.
func (s *EscalationService) RecordFetchFailure(ctx context.Context, url string, err error) {
	s.logger.WarnContext(ctx, "provider request exhausted retries", "url", url, "error", err)
}

func (s *EscalationService) isBenign(cause error) bool {
	if cause == nil {
		return false
	}
	if crerr.Is(cause, ErrBenignUpstream) {
		return true
	}
	return s.benign != "" && strings.Contains(strings.ToLower(cause.Error()), strings.ToLower(s.benign))
}

func (s *EscalationService) notify(ctx context.Context, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, message); err != nil {
		s.logger.ErrorContext(ctx, "alert delivery failed", "error", err)
	}
}

func (s *EscalationService) persist(ctx context.Context, counter FailureCounter) {
	if err := s.store.Store(counter); err != nil {
		s.logger.ErrorContext(ctx, "persist failure counter", "error", err)
	}
}

func (s *EscalationService) runRecovery(ctx context.Context) {
	if s.recovery == nil {
		s.logger.WarnContext(ctx, "no recovery action configured")
		return
	}
	if err := s.recovery.Restart(ctx); err != nil {
		s.logger.ErrorContext(ctx, "recovery action failed", "error", err)
		return
	}
	s.logger.InfoContext(ctx, "recovery action completed")
}
