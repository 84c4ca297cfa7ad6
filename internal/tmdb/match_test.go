// Medialetter - Recently-added newsletter for Emby and Jellyfin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medialetter/medialetter

package tmdb

import (
	"testing"
)

func TestBestMatchEmptyResults(t *testing.T) {
	if got := BestMatch(nil, "Heat", 1995); got != nil {
		t.Errorf("BestMatch(nil) = %+v, want nil", got)
	}
	if got := BestMatch([]SearchResult{}, "Heat", 1995); got != nil {
		t.Errorf("BestMatch(empty) = %+v, want nil", got)
	}
}

func TestBestMatchExactTitleWins(t *testing.T) {
	results := []SearchResult{
		{ID: 1, Title: "Heat Wave", Popularity: 900, ReleaseDate: "1995-06-01"},
		{ID: 2, Title: "Heat", Popularity: 5, ReleaseDate: "1995-12-15"},
		{ID: 3, Title: "Dead Heat", Popularity: 400, ReleaseDate: "1995-01-01"},
	}

	got := BestMatch(results, "Heat", 1995)
	if got == nil || got.ID != 2 {
		t.Fatalf("BestMatch = %+v, want ID 2 (exact title)", got)
	}
}

func TestBestMatchExactTitleCaseInsensitive(t *testing.T) {
	results := []SearchResult{
		{ID: 1, Title: "THE MATRIX", Popularity: 10, ReleaseDate: "1999-03-31"},
	}

	got := BestMatch(results, "the matrix", 1999)
	if got == nil || got.ID != 1 {
		t.Fatalf("BestMatch = %+v, want ID 1", got)
	}
}

func TestBestMatchYearBreaksExactTie(t *testing.T) {
	// Two exact title matches: the year bonus must decide.
	results := []SearchResult{
		{ID: 1, Title: "Dune", ReleaseDate: "1984-12-14"},
		{ID: 2, Title: "Dune", ReleaseDate: "2021-10-22"},
	}

	got := BestMatch(results, "Dune", 2021)
	if got == nil || got.ID != 2 {
		t.Fatalf("BestMatch = %+v, want ID 2 (year tie-break)", got)
	}

	got = BestMatch(results, "Dune", 1984)
	if got == nil || got.ID != 1 {
		t.Fatalf("BestMatch = %+v, want ID 1 (year tie-break)", got)
	}
}

func TestBestMatchExactBeatsSubstringWithCloserYear(t *testing.T) {
	// Exact match at year distance 2 still beats a substring match at
	// year distance 0, and the choice is deterministic across runs.
	results := []SearchResult{
		{ID: 1, Title: "Solaris Rising", Popularity: 50, ReleaseDate: "2002-11-27"},
		{ID: 2, Title: "Solaris", Popularity: 1, ReleaseDate: "2000-03-01"},
	}

	for i := 0; i < 10; i++ {
		got := BestMatch(results, "Solaris", 2002)
		if got == nil || got.ID != 2 {
			t.Fatalf("run %d: BestMatch = %+v, want ID 2", i, got)
		}
	}
}

func TestBestMatchExactBeatsPopularSubstring(t *testing.T) {
	// Popularity is unbounded in the API; a current release can carry
	// four-digit values. The exact title must still win.
	results := []SearchResult{
		{ID: 1, Title: "Dune", Popularity: 10, ReleaseDate: "2021-10-22"},
		{ID: 2, Title: "Dune: Part Two", Popularity: 1200, ReleaseDate: "2024-03-01"},
	}

	got := BestMatch(results, "Dune", 0)
	if got == nil || got.ID != 1 {
		t.Fatalf("BestMatch = %+v, want ID 1 (exact beats popular substring)", got)
	}
}

func TestBestMatchExactBeatsUnrelatedBlockbuster(t *testing.T) {
	results := []SearchResult{
		{ID: 1, Title: "Completely Different", Popularity: 5000},
		{ID: 2, Title: "Heat", Popularity: 2},
	}

	got := BestMatch(results, "Heat", 0)
	if got == nil || got.ID != 2 {
		t.Fatalf("BestMatch = %+v, want ID 2 (exact beats unrelated popularity)", got)
	}
}

func TestScaledPopularity(t *testing.T) {
	if got := scaledPopularity(0); got != 0 {
		t.Errorf("scaledPopularity(0) = %v, want 0", got)
	}
	if scaledPopularity(120) <= scaledPopularity(80) {
		t.Error("scaledPopularity not monotonic across the cap")
	}
	if scaledPopularity(5000) >= popularityCap {
		t.Errorf("scaledPopularity(5000) = %v, must stay below %v", scaledPopularity(5000), popularityCap)
	}
}

func TestBestMatchSubstringBeatsWordOverlap(t *testing.T) {
	results := []SearchResult{
		{ID: 1, Title: "Blade of the Immortal", Popularity: 10},
		{ID: 2, Title: "Blade Runner 2049", Popularity: 10},
	}

	got := BestMatch(results, "Blade Runner", 0)
	if got == nil || got.ID != 2 {
		t.Fatalf("BestMatch = %+v, want ID 2 (substring relation)", got)
	}
}

func TestBestMatchPopularityOnlyFallback(t *testing.T) {
	results := []SearchResult{
		{ID: 1, Title: "Completely Unrelated", Popularity: 3},
		{ID: 2, Title: "Also Unrelated", Popularity: 80},
	}

	got := BestMatch(results, "Zorblax", 0)
	if got == nil || got.ID != 2 {
		t.Fatalf("BestMatch = %+v, want ID 2 (highest popularity)", got)
	}
}

func TestBestMatchAllZeroScoresFallsBackToFirst(t *testing.T) {
	results := []SearchResult{
		{ID: 1, Title: "Alpha", Popularity: 0},
		{ID: 2, Title: "Beta", Popularity: 0},
	}

	got := BestMatch(results, "Zorblax", 0)
	if got == nil || got.ID != 1 {
		t.Fatalf("BestMatch = %+v, want ID 1 (first result fallback)", got)
	}
}

func TestBestMatchFirstFiveCandidatesOnly(t *testing.T) {
	results := []SearchResult{
		{ID: 1, Title: "Noise A", Popularity: 1},
		{ID: 2, Title: "Noise B", Popularity: 1},
		{ID: 3, Title: "Noise C", Popularity: 1},
		{ID: 4, Title: "Noise D", Popularity: 1},
		{ID: 5, Title: "Noise E", Popularity: 1},
		{ID: 6, Title: "Exact Target", Popularity: 1000},
	}

	got := BestMatch(results, "Exact Target", 0)
	if got == nil || got.ID == 6 {
		t.Fatalf("BestMatch = %+v, candidate beyond the first five must not win", got)
	}
}

func TestBestMatchYearToleranceIsPlusMinusOne(t *testing.T) {
	results := []SearchResult{
		{ID: 1, Title: "Arrival", ReleaseDate: "2016-11-11"},
		{ID: 2, Title: "Arrival", ReleaseDate: "2014-01-01"},
	}

	// 2016 is within ±1 of 2017; 2014 is not, so only the first
	// candidate receives the year bonus.
	got := BestMatch(results, "Arrival", 2017)
	if got == nil || got.ID != 1 {
		t.Fatalf("BestMatch = %+v, want ID 1 (2016 within ±1 of 2017)", got)
	}
}

func TestWordOverlap(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"the lord of the rings", "lord rings return", 2},
		{"heat", "cold", 0},
		{"", "anything", 0},
		{"a b c", "c b a", 3},
		{"dune part two", "dune part one", 2},
	}

	for _, tt := range tests {
		if got := wordOverlap(tt.a, tt.b); got != tt.want {
			t.Errorf("wordOverlap(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
