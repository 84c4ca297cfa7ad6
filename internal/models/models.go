// Medialetter - Recently-added newsletter for Emby and Jellyfin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medialetter/medialetter

// Package models defines the in-memory data model shared across the
// newsletter pipeline. All state is rebuilt fresh each run; nothing in
// this package is persisted.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Item type tags as reported by the media server.
const (
	ItemTypeMovie   = "Movie"
	ItemTypeEpisode = "Episode"
	ItemTypeSeries  = "Series"
)

// LocationTypeVirtual marks placeholder items that are not actually
// present on disk. They must never be announced as new content.
const LocationTypeVirtual = "Virtual"

// RawItem is a single library item as returned by the media-server
// Items endpoint. Field names follow the server's JSON schema.
type RawItem struct {
	ID                string            `json:"Id"`
	Type              string            `json:"Type"`
	Name              string            `json:"Name"`
	SeriesID          string            `json:"SeriesId"`
	SeriesName        string            `json:"SeriesName"`
	SeasonName        string            `json:"SeasonName"`
	IndexNumber       int               `json:"IndexNumber"`
	ParentIndexNumber int               `json:"ParentIndexNumber"`
	DateCreated       string            `json:"DateCreated"`
	Overview          string            `json:"Overview"`
	Genres            []string          `json:"Genres"`
	CommunityRating   float64           `json:"CommunityRating"`
	OfficialRating    string            `json:"OfficialRating"`
	ProductionYear    int               `json:"ProductionYear"`
	LocationType      string            `json:"LocationType"`
	ProviderIDs       map[string]string `json:"ProviderIds"`
}

// CreationDate parses the item's DateCreated at day granularity.
// The server reports full timestamps; only the date part is compared
// when deciding whether an item falls inside the lookback window.
func (r *RawItem) CreationDate() (time.Time, error) {
	datePart, _, _ := strings.Cut(r.DateCreated, "T")
	t, err := time.Parse("2006-01-02", datePart)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid DateCreated %q for item %q: %w", r.DateCreated, r.Name, err)
	}
	return t, nil
}

// IsVirtual reports whether the item is a server-side placeholder.
func (r *RawItem) IsVirtual() bool {
	return r.LocationType == LocationTypeVirtual
}

// TmdbID returns the external metadata-provider id from the item's
// provider-id map, or empty if not present.
func (r *RawItem) TmdbID() string {
	if r.ProviderIDs == nil {
		return ""
	}
	return r.ProviderIDs["Tmdb"]
}

// MetadataMatch is the metadata provider's chosen candidate for a
// title/year query, normalized across the movie and TV endpoints.
type MetadataMatch struct {
	ID         int
	Title      string
	Overview   string
	PosterPath string
	Genres     []string
	Rating     float64
	Year       int
}

// ProcessedMovie is one movie entry of the rendered newsletter,
// locally-known fields possibly replaced by provider data.
type ProcessedMovie struct {
	Title          string
	Year           int
	Overview       string
	Genres         []string
	Rating         float64
	OfficialRating string
	PosterURL      string
	DateAdded      string
}

// Episode is one episode entry inside a season.
type Episode struct {
	Number    int
	Name      string
	Overview  string
	DateAdded string
}

// Season groups the newly added episodes of one season. The label is
// the server-reported season name.
type Season struct {
	Name     string
	Episodes []Episode
}

// ProcessedSeries is one series entry of the rendered newsletter.
// Seasons preserve first-seen order of season names; episodes within
// a season preserve input order. A series is only constructed when at
// least one qualifying episode exists.
type ProcessedSeries struct {
	Title     string
	Overview  string
	Genres    []string
	PosterURL string
	Seasons   []Season
}

// LibraryStats holds server-wide library totals for the footer.
type LibraryStats struct {
	TotalMovies int
	TotalSeries int
}
