package httpapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stumpwatch/stumpwatch/internal/domain/match"
	"github.com/stumpwatch/stumpwatch/internal/platform/cache"
	"github.com/stumpwatch/stumpwatch/internal/platform/logging"
	"github.com/stumpwatch/stumpwatch/internal/usecase"
)

type stubSnapshots struct {
	snapshot match.Snapshot
	readErr  error
	statErr  error
	mtime    time.Time
	reads    int
}

func (s *stubSnapshots) Read() (match.Snapshot, error) {
	s.reads++
	return s.snapshot, s.readErr
}

func (s *stubSnapshots) ModTime() (time.Time, error) { return s.mtime, s.statErr }

type stubDetails struct {
	blobs map[string][]byte
}

func (s *stubDetails) ReadDetail(matchID string) ([]byte, error) {
	raw, ok := s.blobs[matchID]
	if !ok {
		return nil, fmt.Errorf("read scorecard detail: %w", os.ErrNotExist)
	}
	return raw, nil
}

type stubAdvisory struct{ advisory usecase.Advisory }

func (s *stubAdvisory) Advisory() usecase.Advisory { return s.advisory }

func newTestServer(t *testing.T, snapshots *stubSnapshots, details DetailReader, advisory AdvisoryProvider) *Server {
	t.Helper()
	srv, err := NewServer(snapshots, details, advisory, cache.NewStore(time.Minute), logging.NewNop())
	require.NoError(t, err)
	return srv
}

func liveSnapshot() match.Snapshot {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	return match.NewSnapshot(now, []match.Record{
		{
			MatchID: "m-1", Status: match.StatusLive, IsLive: true,
			Team1: "India", Team2: "Australia",
			Score1: "243/4 (41 ov)", Score2: "287/10 (49.3 ov)",
			Tournament: "ICC World Cup 2026", RawStatus: "India need 45 runs",
		},
	})
}

func TestServer_MatchesJSON(t *testing.T) {
	t.Parallel()

	snapshots := &stubSnapshots{snapshot: liveSnapshot(), mtime: time.Now()}
	srv := newTestServer(t, snapshots, nil, nil)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/matches", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"match_id":"m-1"`)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestServer_ScoreboardText(t *testing.T) {
	t.Parallel()

	snapshots := &stubSnapshots{snapshot: liveSnapshot(), mtime: time.Now()}
	srv := newTestServer(t, snapshots, nil, nil)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "[LIVE]")
	assert.Contains(t, body, "India")
	assert.Contains(t, body, "243/4 (41 ov)")
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
}

func TestServer_MissingSnapshotServesEmptyFeed(t *testing.T) {
	t.Parallel()

	snapshots := &stubSnapshots{statErr: os.ErrNotExist}
	srv := newTestServer(t, snapshots, nil, nil)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/matches", nil))

	require.Equal(t, http.StatusOK, rec.Code, "missing data must not 5xx")
	assert.Contains(t, rec.Body.String(), `"matches":null`)
}

func TestServer_SnapshotReadsAreCachedByModTime(t *testing.T) {
	t.Parallel()

	snapshots := &stubSnapshots{snapshot: liveSnapshot(), mtime: time.Unix(100, 0)}
	srv := newTestServer(t, snapshots, nil, nil)
	routes := srv.Routes()

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/matches", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 1, snapshots.reads, "same mtime must hit the cache")

	// A new write (new mtime) must bypass the cached copy.
	snapshots.mtime = time.Unix(200, 0)
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/matches", nil))
	assert.Equal(t, 2, snapshots.reads)
}

func TestServer_Scorecard(t *testing.T) {
	t.Parallel()

	snapshots := &stubSnapshots{snapshot: liveSnapshot(), mtime: time.Now()}
	details := &stubDetails{blobs: map[string][]byte{"m-1": []byte(`{"id":"m-1","scorecard":[]}`)}}
	srv := newTestServer(t, snapshots, details, nil)
	routes := srv.Routes()

	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/matches/m-1/scorecard", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"m-1","scorecard":[]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/matches/nope/scorecard", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Status(t *testing.T) {
	t.Parallel()

	next := time.Date(2026, 8, 20, 10, 2, 0, 0, time.UTC)
	snapshots := &stubSnapshots{snapshot: liveSnapshot(), mtime: time.Now()}
	advisory := &stubAdvisory{advisory: usecase.Advisory{
		NextUpdateAt: next,
		Interval:     2 * time.Minute,
		LastCycleOK:  true,
	}}
	srv := newTestServer(t, snapshots, nil, advisory)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, fmt.Sprintf(`"next_update_at":%d`, next.Unix()))
	assert.Contains(t, body, `"poll_interval":"2m0s"`)
	assert.Contains(t, body, `"last_cycle_ok":true`)
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	snapshots := &stubSnapshots{mtime: time.Now()}
	srv := newTestServer(t, snapshots, nil, nil)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
