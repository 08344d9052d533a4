package cricscore

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

func (a *Adapter) Normalize(ctx context.Context, payloads []ScorePayload) []match.Record {
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

func (a *Adapter) normalizeOne(ctx context.Context, payload ScorePayload) (match.Record, bool) {
	if err := a.validate.Struct(payload); err != nil {
		a.logger.WarnContext(ctx, "skipping malformed provider record", "series", payload.Series, "error", err)
		return match.Record{}, false
	}

	team1 := stripCountryCode(payload.Team1)
	team2 := stripCountryCode(payload.Team2)

	if a.rules.ShouldIgnore(payload.Series, team1, team2) {
		return match.Record{}, false
	}

	now := a.now()
	status := deriveFromState(payload.MatchState, payload.Status)
	matchType := strings.ToUpper(payload.MatchType)

	record := match.Record{
		MatchID:     payload.ID,
		Status:      status,
		IsLive:      match.IsActivelyLive(status, payload.Status),
		Team1:       team1,
		Team2:       team2,
		Score1:      payload.Team1Score,
		Score2:      payload.Team2Score,
		Tournament:  firstNonEmpty(payload.Series, matchType),
		Priority:    a.rules.PriorityFor(payload.Series, matchType, []string{team1, team2}),
		RawStatus:   payload.Status,
		MatchType:   matchType,
		Category:    match.Category(matchType, payload.Series),
		Source:      Source,
		LastUpdated: now.Unix(),
	}

	if start, err := time.Parse(gmtTimeLayout, payload.DateTimeGMT); err == nil {
		unix := start.Unix()
		record.StartTime = &unix
		if status == match.StatusUpcoming {
			record.StartTimeInfo = match.StartTimeInfo(start, now)
		}
	}

	return record, true
}

// deriveFromState maps the feed's coarse "ms" flag onto the shared status
// rules: fixture and result are authoritative, anything else defers to the
// status text.
func deriveFromState(state, statusText string) match.Status {
	switch strings.ToLower(state) {
	case "fixture":
		return match.StatusUpcoming
	case "result":
		return match.StatusCompleted
	case "live":
		return match.DeriveStatus(true, false, statusText)
	default:
		if statusText == "" {
			return match.StatusUnknown
		}
		return match.DeriveStatus(true, false, statusText)
	}
}

// stripCountryCode drops the trailing "[IND]" marker from a team field.
func stripCountryCode(team string) string {
	if idx := strings.Index(team, " ["); idx >= 0 {
		return team[:idx]
	}
	return strings.TrimSpace(team)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
