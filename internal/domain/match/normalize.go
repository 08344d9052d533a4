package match

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var completedPhrases = []string{"won by", "tied", "abandoned", "no result", "cancelled"}

var breakPhrases = []string{"stumps", "lunch", "tea"}

var notLivePhrases = []string{"stumps", "lunch", "tea", "drinks", "rain"}

// DeriveStatus classifies a match from the provider's lifecycle flags and its
// free-text status line. Rules apply in order; the first hit wins.
func DeriveStatus(started, ended bool, statusText string) Status {
	text := strings.ToLower(statusText)

	if !started {
		return StatusUpcoming
	}
	if ended {
		return StatusCompleted
	}
	for _, phrase := range completedPhrases {
		if strings.Contains(text, phrase) {
			return StatusCompleted
		}
	}
	// Break phrases still classify as live; IsActivelyLive separates them.
	for _, phrase := range breakPhrases {
		if strings.Contains(text, phrase) {
			return StatusLive
		}
	}
	return StatusLive
}

// IsActivelyLive reports whether play is actually in progress, as opposed to a
// live match sitting at a break or a rain delay.
func IsActivelyLive(status Status, statusText string) bool {
	if status != StatusLive {
		return false
	}
	text := strings.ToLower(statusText)
	for _, phrase := range notLivePhrases {
		if strings.Contains(text, phrase) {
			return false
		}
	}
	return true
}

// FormatScore renders one innings as "runs/wickets (overs ov)". The overs
// suffix is dropped when no overs have been bowled.
func FormatScore(runs, wickets int, overs float64) string {
	score := fmt.Sprintf("%d/%d", runs, wickets)
	if overs != 0 {
		score += " (" + strconv.FormatFloat(overs, 'f', -1, 64) + " ov)"
	}
	return score
}

// Inning is a provider-agnostic innings line: the label names the batting
// side ("India Inning 1"), the score is already formatted.
type Inning struct {
	Label string
	Score string
}

// InningsFor collects the formatted scores whose label mentions the team,
// joined with " & " for multi-innings formats.
func InningsFor(team string, innings []Inning) string {
	if team == "" {
		return ""
	}
	needle := strings.ToLower(team)
	var parts []string
	for _, in := range innings {
		if strings.Contains(strings.ToLower(in.Label), needle) {
			parts = append(parts, in.Score)
		}
	}
	return strings.Join(parts, " & ")
}

// StartTimeInfo renders a two-line human countdown for an upcoming match: a
// relative line and the absolute UTC start time. A start already in the past
// is reported as overdue rather than being pushed into the future.
func StartTimeInfo(start, now time.Time) string {
	diff := start.Sub(now)
	absolute := start.UTC().Format("15:04 MST")

	var relative string
	switch {
	case diff < 0:
		relative = "Start time overdue"
	case diff < time.Minute:
		relative = "Starting in less than a minute"
	case diff < time.Hour:
		minutes := int(diff.Minutes())
		relative = fmt.Sprintf("Starts in %d %s", minutes, plural(minutes, "minute"))
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		relative = fmt.Sprintf("Starts in %d %s", hours, plural(hours, "hour"))
	case diff < 48*time.Hour:
		relative = "Starts tomorrow"
	default:
		days := int(diff.Hours() / 24)
		relative = fmt.Sprintf("Starts in %d %s", days, plural(days, "day"))
	}

	return relative + "\n" + absolute
}

// ScheduledFallback is the start_time_info used when the provider date cannot
// be parsed into a timestamp.
func ScheduledFallback(rawDate string) string {
	return "Match scheduled for " + rawDate
}

// SplitName breaks a provider match name like
// "India vs Australia, ICC World Cup 2026 Match 14" into the tournament and
// the match-number suffix. Either part may come back empty.
func SplitName(name string) (tournament, matchNumber string) {
	_, after, found := strings.Cut(name, ",")
	if !found {
		return "", ""
	}
	tournament = strings.TrimSpace(after)

	if idx := strings.LastIndex(tournament, " Match "); idx >= 0 {
		matchNumber = "Match " + strings.TrimSpace(tournament[idx+len(" Match "):])
		tournament = strings.TrimSpace(tournament[:idx])
	}
	return tournament, matchNumber
}

// Category builds the "{TYPE}: {tournament}" display grouping.
func Category(matchType, tournament string) string {
	if tournament == "" {
		return strings.ToUpper(matchType)
	}
	if matchType == "" {
		return tournament
	}
	return strings.ToUpper(matchType) + ": " + tournament
}

// Describe builds the one-line venue/date description.
func Describe(venue, date string) string {
	switch {
	case venue == "" && date == "":
		return ""
	case venue == "":
		return "Match on " + date
	case date == "":
		return "Match at " + venue
	default:
		return "Match at " + venue + ", " + date
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}
