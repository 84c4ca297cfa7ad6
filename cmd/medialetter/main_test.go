// Medialetter - Recently-added newsletter for Emby and Jellyfin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medialetter/medialetter

package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/medialetter/medialetter/internal/config"
	"github.com/medialetter/medialetter/internal/mediaserver"
	"github.com/medialetter/medialetter/internal/tmdb"
)

// fakeTMDB enriches exactly one known title.
type fakeTMDB struct{}

func (fakeTMDB) SearchMovie(_ context.Context, title string, _ int) ([]tmdb.SearchResult, error) {
	if title == "Heat" {
		return []tmdb.SearchResult{{ID: 949, Title: "Heat", ReleaseDate: "1995-12-15", Popularity: 40}}, nil
	}
	return nil, nil
}

func (fakeTMDB) SearchTV(context.Context, string, int) ([]tmdb.SearchResult, error) {
	return nil, nil
}

func (fakeTMDB) MovieByID(_ context.Context, id int) (*tmdb.Details, error) {
	if id != 949 {
		return nil, fmt.Errorf("unknown id %d", id)
	}
	return &tmdb.Details{
		ID:          949,
		Title:       "Heat",
		Overview:    "Obsessive master thief Neil McCauley leads a top-notch crew.",
		PosterPath:  "/heat.jpg",
		ReleaseDate: "1995-12-15",
	}, nil
}

func (fakeTMDB) TVByID(_ context.Context, id int) (*tmdb.Details, error) {
	return nil, fmt.Errorf("unknown id %d", id)
}

// fakeSender records the delivery instead of talking SMTP.
type fakeSender struct {
	subject    string
	body       string
	recipients []string
	calls      int
}

func (f *fakeSender) Send(_ context.Context, subject, htmlBody string, recipients []string) error {
	f.calls++
	f.subject = subject
	f.body = htmlBody
	f.recipients = recipients
	return nil
}

func TestRunPipelineEndToEnd(t *testing.T) {
	inWindow := time.Now().AddDate(0, 0, -3).Format("2006-01-02T15:04:05.0000000Z")
	stale := time.Now().AddDate(0, 0, -90).Format("2006-01-02T15:04:05.0000000Z")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/Library/VirtualFolders":
			fmt.Fprint(w, `[{"Name":"Movies","Locations":["/data/Movies"]}]`)
		case r.URL.Path == "/Library/MediaFolders":
			fmt.Fprint(w, `{"Items":[{"Id":"f1","Name":"Movies","Locations":["/data/Movies"]}]}`)
		case r.URL.Path == "/Items" && r.URL.Query().Get("Limit") == "0":
			fmt.Fprint(w, `{"Items":[],"TotalRecordCount":42}`)
		case r.URL.Path == "/Items":
			fmt.Fprintf(w, `{"Items":[
				{"Id":"m1","Type":"Movie","Name":"Heat","ProductionYear":1995,"DateCreated":%q},
				{"Id":"m2","Type":"Movie","Name":"Obscure Gem","ProductionYear":2011,"DateCreated":%q},
				{"Id":"m3","Type":"Movie","Name":"Old News","ProductionYear":1980,"DateCreated":%q}
			],"TotalRecordCount":3}`, inWindow, inWindow, stale)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Kind:               "jellyfin",
			URL:                server.URL,
			APIToken:           "token",
			WatchedFilmFolders: []string{"Movies"},
			ObservedPeriodDays: 30,
		},
		EmailTemplate: config.EmailTemplateConfig{
			Language: "en",
			Subject:  "This week in the library",
			Title:    "Newsletter",
		},
		Recipients: []string{"alice@example.com", "bob@example.com"},
	}

	client := mediaserver.NewClient(mediaserver.KindJellyfin, server.URL, "token")
	mailer := &fakeSender{}

	if err := runPipeline(context.Background(), cfg, client, fakeTMDB{}, mailer); err != nil {
		t.Fatalf("runPipeline: %v", err)
	}

	if mailer.calls != 1 {
		t.Fatalf("Send calls = %d, want 1", mailer.calls)
	}
	if mailer.subject != "This week in the library" {
		t.Errorf("subject = %q", mailer.subject)
	}
	if len(mailer.recipients) != 2 {
		t.Errorf("recipients = %v, want both", mailer.recipients)
	}

	// Both in-window movies appear; the stale one does not.
	for _, want := range []string{"Heat", "Obscure Gem"} {
		if !strings.Contains(mailer.body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(mailer.body, "Old News") {
		t.Error("stale movie leaked into the newsletter")
	}

	// The enriched movie carries the provider overview and poster.
	if !strings.Contains(mailer.body, "Obsessive master thief") {
		t.Error("provider overview missing for enriched movie")
	}
	if !strings.Contains(mailer.body, "https://image.tmdb.org/t/p/w500/heat.jpg") {
		t.Error("provider poster missing for enriched movie")
	}

	// Library stats from the count endpoint.
	if !strings.Contains(mailer.body, "42 movies") {
		t.Error("library stats missing from footer")
	}
}
