// Medialetter - Recently-added newsletter for Emby and Jellyfin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medialetter/medialetter

package render

import (
	"fmt"
	"strings"
	"testing"

	"github.com/medialetter/medialetter/internal/models"
)

func enOptions() Options {
	return Options{
		Language:         "en",
		Title:            "Weekly Newsletter",
		Subtitle:         "Fresh from the library",
		ServerURL:        "https://media.example.com",
		ServerOwnerName:  "Alex",
		UnsubscribeEmail: "admin@example.com",
	}
}

func TestRenderEscapesScriptInjection(t *testing.T) {
	data := Data{
		Movies: []models.ProcessedMovie{{
			Title:    `<script>alert(1)</script>`,
			Overview: `Click javascript:alert(2) & enjoy "quotes"`,
			Genres:   []string{"<b>Drama</b>"},
		}},
	}

	out, err := Render(data, enOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(out, "<script>alert(1)") {
		t.Error("raw script tag survived in output")
	}
	if !strings.Contains(out, "&lt;script&gt;alert(1)&lt;/script&gt;") {
		t.Error("escaped title missing from output")
	}
	if strings.Contains(out, "javascript:alert") {
		t.Error("javascript: scheme survived in output")
	}
	if !strings.Contains(out, "j_avascript:alert") {
		t.Error("neutralized scheme missing from output")
	}
	if !strings.Contains(out, "&lt;b&gt;Drama&lt;/b&gt;") {
		t.Error("genre not escaped")
	}
}

func TestRenderEmptyState(t *testing.T) {
	out, err := Render(Data{}, enOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(out, "No new content was added during this period.") {
		t.Error("empty-state message missing")
	}
	if strings.Contains(out, "New Movies") || strings.Contains(out, "New TV Episodes") {
		t.Error("section headings present despite empty content")
	}
}

func TestRenderSections(t *testing.T) {
	data := Data{
		Movies: []models.ProcessedMovie{{
			Title: "Heat", Year: 1995, Rating: 8.3, OfficialRating: "R",
			Overview:  "A crime saga.",
			Genres:    []string{"Crime", "Drama"},
			PosterURL: "https://image.tmdb.org/t/p/w500/heat.jpg",
		}},
		Series: []models.ProcessedSeries{{
			Title: "Alpha",
			Seasons: []models.Season{{
				Name: "Season 1",
				Episodes: []models.Episode{
					{Number: 3, Name: "Third", Overview: "Things happen."},
				},
			}},
		}},
		Stats: &models.LibraryStats{TotalMovies: 120, TotalSeries: 34},
	}

	out, err := Render(data, enOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"New Movies",
		"New TV Episodes",
		"Heat",
		"1995",
		"8.3 · R",
		`src="https://image.tmdb.org/t/p/w500/heat.jpg"`,
		"Season 1",
		"Episode 3 · Third",
		"120 movies · 34 series",
		`href="https://media.example.com"`,
		`href="mailto:admin@example.com"`,
		"Sent by Alex",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRenderTruncatesOverviews(t *testing.T) {
	long := strings.Repeat("a", 400)
	data := Data{
		Movies: []models.ProcessedMovie{{Title: "Long", Overview: long}},
	}

	out, err := Render(data, enOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := strings.Repeat("a", 300) + "..."
	if !strings.Contains(out, want) {
		t.Error("movie overview not truncated at 300 runes")
	}
	if strings.Contains(out, strings.Repeat("a", 301)) {
		t.Error("more than 300 overview runes survived")
	}
}

func TestRenderCapsGenresAtFive(t *testing.T) {
	data := Data{
		Movies: []models.ProcessedMovie{{
			Title:  "Busy",
			Genres: []string{"G1", "G2", "G3", "G4", "G5", "G6", "G7"},
		}},
	}

	out, err := Render(data, enOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(out, "G5") {
		t.Error("fifth genre missing")
	}
	if strings.Contains(out, "G6") {
		t.Error("genres not capped at five")
	}
}

func TestRenderCapsEpisodesPerSeason(t *testing.T) {
	var episodes []models.Episode
	for i := 1; i <= 14; i++ {
		episodes = append(episodes, models.Episode{Number: i, Name: fmt.Sprintf("Ep%d", i)})
	}
	data := Data{
		Series: []models.ProcessedSeries{{
			Title:   "Alpha",
			Seasons: []models.Season{{Name: "Season 1", Episodes: episodes}},
		}},
	}

	out, err := Render(data, enOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(out, "Ep10") {
		t.Error("tenth episode missing")
	}
	if strings.Contains(out, "Ep11") {
		t.Error("episodes not capped at ten per season")
	}
}

func TestRenderFrenchLabels(t *testing.T) {
	opts := enOptions()
	opts.Language = "fr"

	out, err := Render(Data{
		Movies: []models.ProcessedMovie{{Title: "Film"}},
		Series: []models.ProcessedSeries{{
			Title:   "Série",
			Seasons: []models.Season{{Name: "Saison 1", Episodes: []models.Episode{{Number: 1, Name: "Un"}}}},
		}},
	}, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"Nouveaux films", "Nouveaux épisodes", "Épisode 1 · Un", "Se désabonner"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRenderUnsupportedLanguage(t *testing.T) {
	opts := enOptions()
	opts.Language = "de"

	if _, err := Render(Data{}, opts); err == nil {
		t.Fatal("expected error for unsupported language")
	}
}

func TestRenderPosterPlaceholder(t *testing.T) {
	data := Data{Movies: []models.ProcessedMovie{{Title: "Bare"}}}

	out, err := Render(data, enOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(out, `<div class="no-poster">No poster</div>`) {
		t.Error("poster placeholder missing")
	}
}

func TestEscapeTextVariants(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"JAVASCRIPT:void(0)", "J_AVASCRIPT:void(0)"},
		{"Javascript:void(0)", "J_avascript:void(0)"},
		{"onclick", "o_nclick"},
		{"ONERROR", "O_NERROR"},
		{"data:text/html", "d_ata:text/html"},
		{"plain text", "plain text"},
	}

	for _, tt := range tests {
		if got := EscapeText(tt.in); got != tt.want {
			t.Errorf("EscapeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo wörld", 5); got != "héllo..." {
		t.Errorf("Truncate = %q, want rune-accurate cut", got)
	}
	if got := Truncate("short", 300); got != "short" {
		t.Errorf("Truncate = %q, want unchanged", got)
	}
}
