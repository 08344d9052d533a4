package cricapi

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/stumpwatch/stumpwatch/internal/domain/match"
	"github.com/stumpwatch/stumpwatch/internal/domain/rules"
	"github.com/stumpwatch/stumpwatch/internal/platform/logging"
)

const gmtTimeLayout = "2006-01-02T15:04:05"

// Adapter converts provider payloads into normalized match records. Malformed
// entries are skipped with a warning; one bad record never fails the batch.
type Adapter struct {
	rules    *rules.Rules
	validate *validator.Validate
	logger   *logging.Logger
	now      func() time.Time
}

func NewAdapter(ruleSet *rules.Rules, logger *logging.Logger) *Adapter {
	if ruleSet == nil {
		ruleSet = rules.Defaults()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Adapter{
		rules:    ruleSet,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// Normalize maps a batch of provider payloads to records, applying the ignore
// rules and computing priority per record.
func (a *Adapter) Normalize(ctx context.Context, payloads []MatchPayload) []match.Record {
	records := make([]match.Record, 0, len(payloads))
	for _, payload := range payloads {
		record, ok := a.normalizeOne(ctx, payload)
		if !ok {
			continue
		}
		records = append(records, record)
	}
	return records
}

func (a *Adapter) normalizeOne(ctx context.Context, payload MatchPayload) (match.Record, bool) {
	if err := a.validate.Struct(payload); err != nil {
		a.logger.WarnContext(ctx, "skipping malformed provider record", "name", payload.Name, "error", err)
		return match.Record{}, false
	}

	now := a.now()
	status := match.DeriveStatus(payload.MatchStarted, payload.MatchEnded, payload.Status)
	matchType := strings.ToUpper(payload.MatchType)
	tournament, matchNumber := match.SplitName(payload.Name)

	if a.rules.ShouldIgnore(payload.Name, payload.Teams...) {
		return match.Record{}, false
	}

	team1, team2 := "", ""
	if len(payload.Teams) > 0 {
		team1 = payload.Teams[0]
	}
	if len(payload.Teams) > 1 {
		team2 = payload.Teams[1]
	}

	innings := make([]match.Inning, 0, len(payload.Score))
	for _, entry := range payload.Score {
		innings = append(innings, match.Inning{
			Label: entry.Inning,
			Score: match.FormatScore(entry.Runs, entry.Wickets, entry.Overs),
		})
	}

	record := match.Record{
		MatchID:     payload.ID,
		Status:      status,
		IsLive:      match.IsActivelyLive(status, payload.Status),
		Team1:       team1,
		Team2:       team2,
		Score1:      match.InningsFor(team1, innings),
		Score2:      match.InningsFor(team2, innings),
		Tournament:  firstNonEmpty(tournament, matchType),
		Priority:    a.rules.PriorityFor(payload.Name, matchType, payload.Teams),
		RawStatus:   payload.Status,
		MatchType:   matchType,
		Venue:       payload.Venue,
		MatchNumber: matchNumber,
		Description: match.Describe(payload.Venue, payload.Date),
		Category:    match.Category(matchType, tournament),
		Source:      Source,
		LastUpdated: now.Unix(),
	}

	if start, ok := parseGMT(payload.DateTimeGMT); ok {
		unix := start.Unix()
		record.StartTime = &unix
		if status == match.StatusUpcoming {
			record.StartTimeInfo = match.StartTimeInfo(start, now)
		}
	} else if status == match.StatusUpcoming {
		record.StartTimeInfo = match.ScheduledFallback(payload.Date)
	}

	return record, true
}

func parseGMT(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(gmtTimeLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
