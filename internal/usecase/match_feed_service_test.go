package usecase

import (
	"context"
	"testing"

	crerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stumpwatch/stumpwatch/internal/domain/match"
	"github.com/stumpwatch/stumpwatch/internal/platform/logging"
)

type stubPrimary struct {
	raw      []byte
	records  []match.Record
	err      error
	fixtures []match.Record
	fixErr   error
}

func (s *stubPrimary) Live(context.Context) ([]byte, []match.Record, error) {
	return s.raw, s.records, s.err
}

func (s *stubPrimary) Fixtures(context.Context) ([]match.Record, error) {
	return s.fixtures, s.fixErr
}

type stubSecondary struct {
	raw     []byte
	records []match.Record
	err     error
	calls   int
}

func (s *stubSecondary) Live(context.Context) ([]byte, []match.Record, error) {
	s.calls++
	return s.raw, s.records, s.err
}

func TestMatchFeedService_PrimaryWinsWithoutConsultingSecondary(t *testing.T) {
	t.Parallel()

	primary := &stubPrimary{
		raw: []byte(`{"data":[]}`),
		records: []match.Record{
			{MatchID: "a", Status: match.StatusLive, Priority: 2, Source: "cricapi"},
		},
	}
	secondary := &stubSecondary{records: []match.Record{{MatchID: "b"}}}

	svc, err := NewMatchFeedService(primary, secondary, logging.NewNop())
	require.NoError(t, err)

	result, err := svc.FetchMatches(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, secondary.calls, "secondary must not be consulted when primary succeeds")
	require.Len(t, result.Records, 1)
	assert.Equal(t, "a", result.Records[0].MatchID)
	assert.Equal(t, []byte(`{"data":[]}`), result.Raw)
}

func TestMatchFeedService_FallsBackOnPrimaryFailure(t *testing.T) {
	t.Parallel()

	primary := &stubPrimary{err: crerr.New("boom")}
	secondary := &stubSecondary{
		raw:     []byte(`[]`),
		records: []match.Record{{MatchID: "b", Status: match.StatusLive, Source: "cricscore"}},
	}

	svc, err := NewMatchFeedService(primary, secondary, logging.NewNop())
	require.NoError(t, err)

	result, err := svc.FetchMatches(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "b", result.Records[0].MatchID)
	assert.Equal(t, "secondary", result.Source)
}

func TestMatchFeedService_EmptyPrimaryTriggersFallback(t *testing.T) {
	t.Parallel()

	primary := &stubPrimary{records: nil}
	secondary := &stubSecondary{records: []match.Record{{MatchID: "b", Status: match.StatusLive}}}

	svc, err := NewMatchFeedService(primary, secondary, logging.NewNop())
	require.NoError(t, err)

	result, err := svc.FetchMatches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, secondary.calls)
	require.Len(t, result.Records, 1)
}

func TestMatchFeedService_BothFailIsAllSourcesFailed(t *testing.T) {
	t.Parallel()

	primary := &stubPrimary{err: crerr.New("primary down")}
	secondary := &stubSecondary{err: crerr.New("secondary down")}

	svc, err := NewMatchFeedService(primary, secondary, logging.NewNop())
	require.NoError(t, err)

	_, err = svc.FetchMatches(context.Background())
	require.Error(t, err)
	assert.True(t, crerr.Is(err, ErrAllSourcesFailed))
}

func TestMatchFeedService_FixturesMergeDedupPrimaryWins(t *testing.T) {
	t.Parallel()

	primary := &stubPrimary{
		records: []match.Record{
			{MatchID: "live-1", Status: match.StatusLive, Priority: 2, Team1: "from-live"},
		},
		fixtures: []match.Record{
			{MatchID: "live-1", Status: match.StatusUpcoming, Team1: "from-fixtures"},
			{MatchID: "up-1", Status: match.StatusUpcoming, Priority: 1},
		},
	}

	svc, err := NewMatchFeedService(primary, nil, logging.NewNop())
	require.NoError(t, err)

	result, err := svc.FetchMatches(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Records, 2)

	assert.Equal(t, "live-1", result.Records[0].MatchID)
	assert.Equal(t, "from-live", result.Records[0].Team1, "live copy must win over fixture copy")
	assert.Equal(t, "up-1", result.Records[1].MatchID)
}

func TestMatchFeedService_SortsByStatusRankThenPriority(t *testing.T) {
	t.Parallel()

	primary := &stubPrimary{
		records: []match.Record{
			{MatchID: "done", Status: match.StatusCompleted, Priority: 1},
			{MatchID: "up", Status: match.StatusUpcoming, Priority: 1},
			{MatchID: "live-low", Status: match.StatusLive, Priority: 10},
			{MatchID: "live-top", Status: match.StatusLive, Priority: 1},
		},
	}

	svc, err := NewMatchFeedService(primary, nil, logging.NewNop())
	require.NoError(t, err)

	result, err := svc.FetchMatches(context.Background())
	require.NoError(t, err)

	var order []string
	for _, r := range result.Records {
		order = append(order, r.MatchID)
	}
	assert.Equal(t, []string{"live-top", "live-low", "up", "done"}, order)
}
