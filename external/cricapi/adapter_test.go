package cricapi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stumpwatch/stumpwatch/internal/domain/match"
	"github.com/stumpwatch/stumpwatch/internal/domain/rules"
	"github.com/stumpwatch/stumpwatch/internal/platform/logging"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	a := NewAdapter(rules.Defaults(), logging.NewNop())
	a.now = func() time.Time { return time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC) }
	return a
}

func TestAdapter_NormalizeLiveMatch(t *testing.T) {
	t.Parallel()

	a := newTestAdapter(t)
	payloads := []MatchPayload{{
		ID:          "m-1",
		Name:        "India vs Australia, ICC World Cup 2026 Match 14",
		MatchType:   "odi",
		Status:      "India need 45 runs to win",
		Venue:       "Eden Gardens",
		Date:        "2026-08-20",
		DateTimeGMT: "2026-08-20T08:30:00",
		Teams:       []string{"India", "Australia"},
		Score: []ScoreEntry{
			{Runs: 287, Wickets: 10, Overs: 49.3, Inning: "Australia Inning 1"},
			{Runs: 243, Wickets: 4, Overs: 41, Inning: "India Inning 1"},
		},
		MatchStarted: true,
	}}

	records := a.Normalize(context.Background(), payloads)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "m-1", r.MatchID)
	assert.Equal(t, match.StatusLive, r.Status)
	assert.True(t, r.IsLive)
	assert.Equal(t, "India", r.Team1)
	assert.Equal(t, "243/4 (41 ov)", r.Score1)
	assert.Equal(t, "287/10 (49.3 ov)", r.Score2)
	assert.Equal(t, "ICC World Cup 2026", r.Tournament)
	assert.Equal(t, "Match 14", r.MatchNumber)
	assert.Equal(t, 1, r.Priority)
	assert.Equal(t, "ODI: ICC World Cup 2026", r.Category)
	assert.Equal(t, "Match at Eden Gardens, 2026-08-20", r.Description)
	assert.Equal(t, Source, r.Source)
	require.NotNil(t, r.StartTime)
	assert.Empty(t, r.StartTimeInfo, "countdown is only rendered for upcoming matches")
}

func TestAdapter_NormalizeUpcomingCountdown(t *testing.T) {
	t.Parallel()

	a := newTestAdapter(t)
	records := a.Normalize(context.Background(), []MatchPayload{{
		ID:          "m-2",
		Name:        "England vs Pakistan, T20 Series",
		MatchType:   "t20",
		Status:      "Match starts at 10:45 GMT",
		DateTimeGMT: "2026-08-20T10:45:00",
		Teams:       []string{"England", "Pakistan"},
	}})
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, match.StatusUpcoming, r.Status)
	assert.False(t, r.IsLive)
	assert.Equal(t, "Starts in 45 minutes\n10:45 UTC", r.StartTimeInfo)
	assert.Equal(t, 2, r.Priority, "top-team T20 takes the format tier")
}

func TestAdapter_UnparseableStartFallsBackToDate(t *testing.T) {
	t.Parallel()

	a := newTestAdapter(t)
	records := a.Normalize(context.Background(), []MatchPayload{{
		ID:          "m-3",
		Name:        "A vs B, Some Cup",
		Status:      "Match not started",
		Date:        "2026-09-01",
		DateTimeGMT: "not-a-time",
		Teams:       []string{"A", "B"},
	}})
	require.Len(t, records, 1)

	r := records[0]
	assert.Nil(t, r.StartTime)
	assert.Equal(t, "Match scheduled for 2026-09-01", r.StartTimeInfo)
}

func TestAdapter_SkipsMalformedAndIgnored(t *testing.T) {
	t.Parallel()

	a := newTestAdapter(t)
	records := a.Normalize(context.Background(), []MatchPayload{
		{Name: "missing id", Status: "Live"},
		{ID: "m-4", Name: "Lions vs Titans, Sheffield Shield Round 2", Status: "Live", MatchStarted: true},
		{ID: "m-5", Name: "C vs D, Kept Cup", Status: "Live", MatchStarted: true},
	})

	require.Len(t, records, 1)
	assert.Equal(t, "m-5", records[0].MatchID)
}
