package match

import (
	"sort"
	"time"
)

// Status is the derived lifecycle state of a match.
type Status string

const (
	StatusLive      Status = "live"
	StatusUpcoming  Status = "upcoming"
	StatusCompleted Status = "completed"
	StatusUnknown   Status = "unknown"
)

// Rank orders statuses for display: live first, then upcoming, completed,
// and anything unclassified last.
func (s Status) Rank() int {
	switch s {
	case StatusLive:
		return 0
	case StatusUpcoming:
		return 1
	case StatusCompleted:
		return 2
	default:
		return 3
	}
}

// Record is one normalized match, independent of which provider produced it.
type Record struct {
	MatchID       string `json:"match_id"`
	Status        Status `json:"status"`
	IsLive        bool   `json:"is_live"`
	Team1         string `json:"team1"`
	Team2         string `json:"team2"`
	Score1        string `json:"score1"`
	Score2        string `json:"score2"`
	Tournament    string `json:"tournament"`
	Priority      int    `json:"priority"`
	StartTime     *int64 `json:"start_time,omitempty"`
	StartTimeInfo string `json:"start_time_info,omitempty"`
	RawStatus     string `json:"raw_status"`
	MatchType     string `json:"match_type,omitempty"`
	Venue         string `json:"venue,omitempty"`
	MatchNumber   string `json:"match_number,omitempty"`
	Description   string `json:"description,omitempty"`
	Category      string `json:"category,omitempty"`
	Source        string `json:"source"`
	LastUpdated   int64  `json:"last_updated"`
}

// Snapshot is the whole-file unit the store writes and the API serves.
type Snapshot struct {
	GeneratedAt       int64    `json:"generated_at"`
	GeneratedAtString string   `json:"generated_at_string"`
	StaleSince        string   `json:"stale_since,omitempty"`
	Matches           []Record `json:"matches"`
}

func NewSnapshot(now time.Time, matches []Record) Snapshot {
	return Snapshot{
		GeneratedAt:       now.Unix(),
		GeneratedAtString: now.UTC().Format("2006-01-02 15:04:05 MST"),
		Matches:           matches,
	}
}

// SortRecords orders records for display: status rank first, then priority
// ascending. The sort is stable so same-rank records keep provider order.
func SortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		ri, rj := records[i].Status.Rank(), records[j].Status.Rank()
		if ri != rj {
			return ri < rj
		}
		return records[i].Priority < records[j].Priority
	})
}
