package cricscore

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

func TestAdapter_Normalize(t *testing.T) {
	t.Parallel()

	a := newTestAdapter(t)
	records := a.Normalize(context.Background(), []ScorePayload{
		{
			ID:         "s-1",
			MatchType:  "t20",
			Status:     "India need 20 runs in 12 balls",
			MatchState: "live",
			Team1:      "India [IND]",
			Team2:      "Australia [AUS]",
			Team1Score: "185/4 (18)",
			Team2Score: "201/6 (20)",
			Series:     "Bilateral T20 Series",
		},
		{
			ID:          "s-2",
			MatchType:   "odi",
			Status:      "Match starts tomorrow",
			MatchState:  "fixture",
			Team1:       "England [ENG]",
			Team2:       "Pakistan [PAK]",
			Series:      "ODI Series",
			DateTimeGMT: "2026-08-21T14:00:00",
		},
		{
			ID:         "s-3",
			MatchState: "result",
			Status:     "New Zealand won by 7 wickets",
			Team1:      "New Zealand [NZ]",
			Team2:      "Sri Lanka [SL]",
			Series:     "Test Series",
			MatchType:  "test",
		},
	})
	require.Len(t, records, 3)

	live := records[0]
	assert.Equal(t, match.StatusLive, live.Status)
	assert.True(t, live.IsLive)
	assert.Equal(t, "India", live.Team1)
	assert.Equal(t, "185/4 (18)", live.Score1)
	assert.Equal(t, Source, live.Source)

	upcoming := records[1]
	assert.Equal(t, match.StatusUpcoming, upcoming.Status)
	require.NotNil(t, upcoming.StartTime)
	assert.Equal(t, "Starts tomorrow\n14:00 UTC", upcoming.StartTimeInfo)

	completed := records[2]
	assert.Equal(t, match.StatusCompleted, completed.Status)
	assert.False(t, completed.IsLive)
}

func TestAdapter_LiveStateAtStumpsIsNotActivelyLive(t *testing.T) {
	t.Parallel()

	a := newTestAdapter(t)
	records := a.Normalize(context.Background(), []ScorePayload{{
		ID:         "s-4",
		MatchState: "live",
		Status:     "Day 2: Stumps",
		Team1:      "India [IND]",
		Team2:      "England [ENG]",
		Series:     "Test Series",
	}})
	require.Len(t, records, 1)

	assert.Equal(t, match.StatusLive, records[0].Status)
	assert.False(t, records[0].IsLive)
}

func TestAdapter_SkipsMissingIDAndIgnoredSeries(t *testing.T) {
	t.Parallel()

	a := newTestAdapter(t)
	records := a.Normalize(context.Background(), []ScorePayload{
		{Series: "No ID Cup", Status: "Live", MatchState: "live"},
		{ID: "s-5", Series: "Plunket Shield Round 4", Status: "Live", MatchState: "live"},
	})
	assert.Empty(t, records)
}
