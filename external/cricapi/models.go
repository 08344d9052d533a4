package cricapi

// envelope is the common CricAPI response wrapper. Status is "success" even
// when data is empty; anything else is a provider-side error.
type envelope[T any] struct {
	Status string `json:"status"`
	Data   T      `json:"data"`
	Info   *usage `json:"info,omitempty"`
}

type usage struct {
	HitsToday int `json:"hitsToday"`
	HitsUsed  int `json:"hitsUsed"`
	HitsLimit int `json:"hitsLimit"`
	TotalRows int `json:"totalRows"`
}

// MatchPayload is one entry of /currentMatches or /matches.
type MatchPayload struct {
	ID           string       `json:"id" validate:"required"`
	Name         string       `json:"name"`
	MatchType    string       `json:"matchType"`
	Status       string       `json:"status"`
	Venue        string       `json:"venue"`
	Date         string       `json:"date"`
	DateTimeGMT  string       `json:"dateTimeGMT"`
	Teams        []string     `json:"teams"`
	Score        []ScoreEntry `json:"score"`
	MatchStarted bool         `json:"matchStarted"`
	MatchEnded   bool         `json:"matchEnded"`
}

// ScoreEntry is one innings line; the inning label names the batting side.
type ScoreEntry struct {
	Runs    int     `json:"r"`
	Wickets int     `json:"w"`
	Overs   float64 `json:"o"`
	Inning  string  `json:"inning"`
}
