// Package rules holds the editorial knobs of the feed: which tournaments
// outrank which, which competitions are filtered out entirely, and which
// national sides lift an otherwise-unranked match. The data is plain YAML so
// it can be tuned without a rebuild; compiled defaults apply when no file is
// configured.
package rules

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// PriorityEntry maps a case-insensitive name fragment to a priority tier.
// Lower values sort first.
type PriorityEntry struct {
	Fragment string `yaml:"fragment"`
	Priority int    `yaml:"priority"`
}

type Rules struct {
	Priorities      []PriorityEntry `yaml:"priorities"`
	FormatPriority  map[string]int  `yaml:"format_priority"`
	WomensPriority  int             `yaml:"womens_priority"`
	DefaultPriority int             `yaml:"default_priority"`
	TopTeams        []string        `yaml:"top_teams"`
	IgnoredNames    []string        `yaml:"ignored_tournaments"`
	IgnoredTeams    []string        `yaml:"ignored_teams"`
}

// Defaults returns the compiled-in rule set.
func Defaults() *Rules {
	return &Rules{
		Priorities: []PriorityEntry{
			{"ICC World Cup", 1},
			{"ICC T20 World Cup", 1},
			{"World Test Championship", 1},
			{"Indian Premier League", 2},
			{"IPL", 2},
			{"Big Bash League", 3},
			{"Pakistan Super League", 3},
			{"Caribbean Premier League", 3},
			{"The Hundred", 3},
			{"International T20", 2},
			{"International ODI", 2},
			{"Test Match", 2},
			{"Women's", 3},
		},
		FormatPriority: map[string]int{
			"T20":  2,
			"ODI":  2,
			"TEST": 2,
		},
		WomensPriority:  3,
		DefaultPriority: 10,
		TopTeams: []string{
			"india", "australia", "england", "south africa", "new zealand",
			"pakistan", "bangladesh", "sri lanka", "west indies", "afghanistan",
		},
		IgnoredNames: []string{
			"Dhaka Premier Division Cricket League",
			"National Super League 4-Day Tournament",
			"CSA 4-Day Series Division 2",
			"CSA 4-Day Series Division 1",
			"Men's PM Cup",
			"National T20 Cup",
			"Plunket Shield",
			"Sheffield Shield",
			"County Championship Division 1",
			"County Championship Division 2",
			"Bangladesh Cricket League",
			"Ranji Trophy Plate",
		},
	}
}

// Load reads a YAML rule file. Fields left empty in the file keep their
// compiled defaults, so a file can override just the ignore list.
func Load(path string) (*Rules, error) {
	base := Defaults()
	if path == "" {
		return base, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var loaded Rules
	if err := yaml.Unmarshal(raw, &loaded); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}

	if len(loaded.Priorities) > 0 {
		base.Priorities = loaded.Priorities
	}
	if len(loaded.FormatPriority) > 0 {
		base.FormatPriority = loaded.FormatPriority
	}
	if loaded.WomensPriority > 0 {
		base.WomensPriority = loaded.WomensPriority
	}
	if loaded.DefaultPriority > 0 {
		base.DefaultPriority = loaded.DefaultPriority
	}
	if len(loaded.TopTeams) > 0 {
		base.TopTeams = loaded.TopTeams
	}
	if len(loaded.IgnoredNames) > 0 {
		base.IgnoredNames = loaded.IgnoredNames
	}
	if len(loaded.IgnoredTeams) > 0 {
		base.IgnoredTeams = loaded.IgnoredTeams
	}
	return base, nil
}

// PriorityFor scores a match. The fragment table is scanned in order against
// the full match name; the first hit wins. Failing that, a match involving a
// top-tier nation takes its format's tier, a women's match its own tier, and
// everything else the default.
func (r *Rules) PriorityFor(matchName, matchType string, teams []string) int {
	nameLower := strings.ToLower(matchName)

	for _, entry := range r.Priorities {
		if entry.Fragment != "" && strings.Contains(nameLower, strings.ToLower(entry.Fragment)) {
			return entry.Priority
		}
	}

	// The women's tier outranks the top-team format fallback, whatever the
	// sides involved.
	if strings.Contains(nameLower, "women") {
		return r.WomensPriority
	}
	if matchType != "" && len(teams) > 0 && r.hasTopTeam(teams) {
		if p, ok := r.FormatPriority[strings.ToUpper(matchType)]; ok {
			return p
		}
	}
	return r.DefaultPriority
}

// ShouldIgnore filters a match out of the feed: ignored tournaments match by
// substring, ignored teams by exact (case-insensitive) name.
func (r *Rules) ShouldIgnore(tournament string, teams ...string) bool {
	for _, ignored := range r.IgnoredNames {
		if ignored != "" && strings.Contains(tournament, ignored) {
			return true
		}
	}
	for _, team := range teams {
		for _, ignored := range r.IgnoredTeams {
			if strings.EqualFold(team, ignored) {
				return true
			}
		}
	}
	return false
}

func (r *Rules) hasTopTeam(teams []string) bool {
	for _, team := range teams {
		teamLower := strings.ToLower(strings.TrimSpace(team))
		for _, top := range r.TopTeams {
			if strings.Contains(teamLower, top) {
				return true
			}
		}
	}
	return false
}
