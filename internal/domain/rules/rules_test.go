package rules

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPriorityFor(t *testing.T) {
	t.Parallel()

	r := Defaults()

	tests := []struct {
		name      string
		matchName string
		matchType string
		teams     []string
		want      int
	}{
		{"world cup", "India vs Australia, ICC World Cup 2026 Final", "", nil, 1},
		{"ipl lowercase", "csk vs mi, ipl 2026 match 3", "", nil, 2},
		{"ipl embedded", "Qualifier 1, Indian Premier League", "", nil, 2},
		{"hundred", "Spirit vs Fire, The Hundred", "", nil, 3},
		{"top-team t20", "India vs Ireland, Bilateral Series", "T20", []string{"India", "Ireland"}, 2},
		{"top-team test", "England vs Zimbabwe, One-off Test", "TEST", []string{"England", "Zimbabwe"}, 2},
		{"womens fallback", "Sydney vs Perth, Women's League", "T20", []string{"Sydney", "Perth"}, 3},
		{"womens international beats top-team format", "India Women vs Australia Women, Women's T20I Series", "T20", []string{"India Women", "Australia Women"}, 3},
		{"womens lowercase no apostrophe", "a women xi vs b women xi, friendly", "T20", []string{"India Women", "B Women"}, 3},
		{"unranked", "Lions vs Titans, Provincial Cup", "T20", []string{"Lions", "Titans"}, 10},
		{"no type no teams", "Lions vs Titans, Provincial Cup", "", nil, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := r.PriorityFor(tt.matchName, tt.matchType, tt.teams); got != tt.want {
				t.Fatalf("PriorityFor(%q, %q, %v) = %d, want %d", tt.matchName, tt.matchType, tt.teams, got, tt.want)
			}
		})
	}
}

func TestShouldIgnore(t *testing.T) {
	t.Parallel()

	r := Defaults()
	r.IgnoredTeams = []string{"Boland"}

	if !r.ShouldIgnore("Sheffield Shield 2026") {
		t.Fatalf("expected Sheffield Shield to be ignored by substring")
	}
	if !r.ShouldIgnore("CSA 4-Day Series Division 2, Round 3") {
		t.Fatalf("expected CSA division to be ignored")
	}
	if r.ShouldIgnore("ICC World Cup 2026") {
		t.Fatalf("world cup must not be ignored")
	}
	if !r.ShouldIgnore("Some Cup", "boland") {
		t.Fatalf("expected exact team ignore to be case-insensitive")
	}
	if r.ShouldIgnore("Some Cup", "Bolandia") {
		t.Fatalf("team ignore must be exact, not substring")
	}
}

func TestLoad_FileOverridesSubsetOfDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := []byte("ignored_tournaments:\n  - Village League\ndefault_priority: 7\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write rules file: %v", err)
	}

	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if !r.ShouldIgnore("Village League Round 2") {
		t.Fatalf("file-provided ignore entry not applied")
	}
	if r.ShouldIgnore("Sheffield Shield") {
		t.Fatalf("file ignore list must replace defaults, not extend them")
	}
	if got := r.PriorityFor("Nowhere vs Nothing", "", nil); got != 7 {
		t.Fatalf("default priority override not applied, got %d", got)
	}
	if got := r.PriorityFor("a vs b, IPL 2026", "", nil); got != 2 {
		t.Fatalf("priority table should keep compiled defaults, got %d", got)
	}
}

func TestLoad_MissingPathUsesDefaults(t *testing.T) {
	t.Parallel()

	r, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got := r.PriorityFor("x, ICC World Cup", "", nil); got != 1 {
		t.Fatalf("expected compiled defaults, got %d", got)
	}
}
