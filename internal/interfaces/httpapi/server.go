package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/stumpwatch/stumpwatch/internal/domain/match"
	"github.com/stumpwatch/stumpwatch/internal/platform/cache"
	"github.com/stumpwatch/stumpwatch/internal/platform/logging"
	"github.com/stumpwatch/stumpwatch/internal/usecase"
)

// SnapshotReader serves the latest persisted feed state.
type SnapshotReader interface {
	Read() (match.Snapshot, error)
	ModTime() (time.Time, error)
}

// DetailReader serves cached per-match scorecard blobs.
type DetailReader interface {
	ReadDetail(matchID string) ([]byte, error)
}

// AdvisoryProvider exposes the scheduler's next-poll estimate.
type AdvisoryProvider interface {
	Advisory() usecase.Advisory
}

// Server is the read-only serving layer over the snapshot files. It never
// fails hard on missing data: an absent snapshot serves as an empty feed.
type Server struct {
	snapshots SnapshotReader
	details   DetailReader
	advisory  AdvisoryProvider
	cache     *cache.Store
	logger    *logging.Logger
}

func NewServer(snapshots SnapshotReader, details DetailReader, advisory AdvisoryProvider, store *cache.Store, logger *logging.Logger) (*Server, error) {
	if snapshots == nil {
		return nil, fmt.Errorf("snapshot reader is required")
	}
	if store == nil {
		store = cache.NewStore(2 * time.Second)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Server{
		snapshots: snapshots,
		details:   details,
		advisory:  advisory,
		cache:     store,
		logger:    logger,
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleScoreboard)
	mux.HandleFunc("GET /api/matches", s.handleMatches)
	mux.HandleFunc("GET /api/matches/{id}/scorecard", s.handleScorecard)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	return s.recoverPanic(s.logRequests(mux))
}

func (s *Server) handleScoreboard(w http.ResponseWriter, r *http.Request) {
	snapshot := s.loadSnapshot(r.Context())
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(renderScoreboard(snapshot)))
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.loadSnapshot(r.Context()))
}

func (s *Server) handleScorecard(w http.ResponseWriter, r *http.Request) {
	if s.details == nil {
		writeError(w, http.StatusNotFound, "scorecard details are not enabled")
		return
	}

	matchID := r.PathValue("id")
	raw, err := s.details.ReadDetail(matchID)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusNotFound, "no scorecard for match "+matchID)
			return
		}
		s.logger.ErrorContext(r.Context(), "read scorecard detail", "match_id", matchID, "error", err)
		writeError(w, http.StatusInternalServerError, "scorecard unavailable")
		return
	}
	writeRawJSON(w, http.StatusOK, raw)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := s.loadSnapshot(r.Context())

	payload := map[string]any{
		"generated_at":        snapshot.GeneratedAt,
		"generated_at_string": snapshot.GeneratedAtString,
		"stale_since":         snapshot.StaleSince,
		"matches":             len(snapshot.Matches),
	}
	if s.advisory != nil {
		advisory := s.advisory.Advisory()
		payload["next_update_at"] = advisory.NextUpdateAt.Unix()
		payload["poll_interval"] = advisory.Interval.String()
		payload["last_cycle_ok"] = advisory.LastCycleOK
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// loadSnapshot reads the snapshot through the TTL cache, keyed by the file's
// mtime so a fresh write invalidates immediately.
func (s *Server) loadSnapshot(ctx context.Context) match.Snapshot {
	mtime, err := s.snapshots.ModTime()
	if err != nil {
		return match.Snapshot{}
	}

	key := "snapshot:" + mtime.UTC().Format(time.RFC3339Nano)
	value, err := s.cache.GetOrLoad(ctx, key, func(context.Context) (any, error) {
		snapshot, readErr := s.snapshots.Read()
		if readErr != nil {
			return nil, readErr
		}
		return snapshot, nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "load snapshot", "error", err)
		return match.Snapshot{}
	}

	snapshot, _ := value.(match.Snapshot)
	return snapshot
}

func (s *Server) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.ErrorContext(r.Context(), "panic in handler", "panic", rec, "path", r.URL.Path)
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.InfoContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start).String(),
		)
	})
}
