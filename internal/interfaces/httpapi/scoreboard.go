package httpapi

import (
	"fmt"
	"strings"

	"github.com/stumpwatch/stumpwatch/internal/domain/match"
)

const cardWidth = 58

// renderScoreboard produces the plain-text front page: one fixed-width card
// per match in snapshot order.
func renderScoreboard(snapshot match.Snapshot) string {
	var b strings.Builder

	b.WriteString("STUMPWATCH — cricket live scores\n")
	if snapshot.GeneratedAtString != "" {
		fmt.Fprintf(&b, "Data last updated: %s\n", snapshot.GeneratedAtString)
	}
	if snapshot.StaleSince != "" {
		fmt.Fprintf(&b, "Last checked (stale): %s\n", snapshot.StaleSince)
	}
	b.WriteString("\n")

	if len(snapshot.Matches) == 0 {
		b.WriteString("No matches right now.\n")
		return b.String()
	}

	border := "+" + strings.Repeat("-", cardWidth-2) + "+"
	for _, record := range snapshot.Matches {
		b.WriteString(border + "\n")
		writeCardLine(&b, fmt.Sprintf("%s  %s", record.Tournament, statusTag(record)))
		writeCardLine(&b, scoreLine(record.Team1, record.Score1))
		writeCardLine(&b, scoreLine(record.Team2, record.Score2))
		if record.Status == match.StatusUpcoming && record.StartTimeInfo != "" {
			for _, line := range strings.Split(record.StartTimeInfo, "\n") {
				writeCardLine(&b, line)
			}
		} else if record.RawStatus != "" {
			writeCardLine(&b, record.RawStatus)
		}
		b.WriteString(border + "\n\n")
	}

	return b.String()
}

func statusTag(record match.Record) string {
	switch record.Status {
	case match.StatusLive:
		if record.IsLive {
			return "[LIVE]"
		}
		return "[LIVE - BREAK]"
	case match.StatusUpcoming:
		return "[UPCOMING]"
	case match.StatusCompleted:
		return "[COMPLETED]"
	default:
		return ""
	}
}

func scoreLine(team, score string) string {
	if team == "" {
		return ""
	}
	if score == "" {
		return team
	}
	return fmt.Sprintf("%-20s %s", team, score)
}

func writeCardLine(b *strings.Builder, text string) {
	inner := cardWidth - 4
	// Truncate on rune boundaries so multi-byte team or tournament names
	// never leave a split code point at the cut.
	if runes := []rune(text); len(runes) > inner {
		text = string(runes[:inner-3]) + "..."
	}
	fmt.Fprintf(b, "| %-*s |\n", inner, text)
}
