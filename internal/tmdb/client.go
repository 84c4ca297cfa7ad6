// Medialetter - Recently-added newsletter for Emby and Jellyfin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medialetter/medialetter

// Package tmdb provides a client for The Movie Database API used to
// enrich newsletter items with overviews, posters, and genre names.
package tmdb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/medialetter/medialetter/internal/models"
)

const (
	defaultBaseURL = "https://api.themoviedb.org/3"

	// posterBaseURL is the fixed image host; poster paths from the API
	// are joined onto it to form absolute URLs.
	posterBaseURL = "https://image.tmdb.org/t/p/w500"
)

// Provider is the lookup surface the aggregator depends on.
// Both Client and CircuitBreakerClient implement it.
type Provider interface {
	SearchMovie(ctx context.Context, title string, year int) ([]SearchResult, error)
	SearchTV(ctx context.Context, title string, year int) ([]SearchResult, error)
	MovieByID(ctx context.Context, id int) (*Details, error)
	TVByID(ctx context.Context, id int) (*Details, error)
}

// Ensure Client implements Provider.
var _ Provider = (*Client)(nil)

// StatusError is returned when the API answers with a non-success
// HTTP status.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("tmdb returned status %d", e.Status)
	}
	return fmt.Sprintf("tmdb returned status %d: %s", e.Status, e.Body)
}

// SearchResult is one candidate from a search endpoint. Movies carry
// Title/ReleaseDate, TV series carry Name/FirstAirDate.
type SearchResult struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	VoteAverage  float64 `json:"vote_average"`
	Popularity   float64 `json:"popularity"`
}

// DisplayTitle returns the movie title or series name, whichever is set.
func (r *SearchResult) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

// Year extracts the release/first-air year, or 0 if unknown.
func (r *SearchResult) Year() int {
	return yearOf(r.ReleaseDate, r.FirstAirDate)
}

// Details is the full record of a movie or series, including resolved
// genre names that search results lack.
type Details struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	VoteAverage  float64 `json:"vote_average"`
	Genres       []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
}

// DisplayTitle returns the movie title or series name, whichever is set.
func (d *Details) DisplayTitle() string {
	if d.Title != "" {
		return d.Title
	}
	return d.Name
}

// Year extracts the release/first-air year, or 0 if unknown.
func (d *Details) Year() int {
	return yearOf(d.ReleaseDate, d.FirstAirDate)
}

// Match converts the details record into a MetadataMatch.
func (d *Details) Match() *models.MetadataMatch {
	genres := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		if g.Name != "" {
			genres = append(genres, g.Name)
		}
	}
	return &models.MetadataMatch{
		ID:         d.ID,
		Title:      d.DisplayTitle(),
		Overview:   d.Overview,
		PosterPath: d.PosterPath,
		Genres:     genres,
		Rating:     d.VoteAverage,
		Year:       d.Year(),
	}
}

// Match converts a search candidate into a MetadataMatch. Search
// results carry no genre names; callers wanting genres follow up with
// a details lookup by id.
func (r *SearchResult) Match() *models.MetadataMatch {
	return &models.MetadataMatch{
		ID:         r.ID,
		Title:      r.DisplayTitle(),
		Overview:   r.Overview,
		PosterPath: r.PosterPath,
		Rating:     r.VoteAverage,
		Year:       r.Year(),
	}
}

// yearOf parses the leading year of the first non-empty date string.
func yearOf(dates ...string) int {
	for _, d := range dates {
		if len(d) < 4 {
			continue
		}
		year, err := strconv.Atoi(d[:4])
		if err == nil {
			return year
		}
	}
	return 0
}

// PosterURL joins a poster path onto the fixed image host.
func PosterURL(posterPath string) string {
	if posterPath == "" {
		return ""
	}
	return posterBaseURL + posterPath
}

// searchResponse is the envelope of the search endpoints.
type searchResponse struct {
	Results      []SearchResult `json:"results"`
	TotalResults int            `json:"total_results"`
}

// Client is a TMDB API client using bearer-token auth.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// NewClient creates a new TMDB client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchMovie searches for movies by title, optionally constrained by
// release year. Results come back in the provider's relevance order.
func (c *Client) SearchMovie(ctx context.Context, title string, year int) ([]SearchResult, error) {
	query := url.Values{}
	query.Set("query", title)
	if year > 0 {
		query.Set("year", strconv.Itoa(year))
	}
	return c.search(ctx, "/search/movie", query)
}

// SearchTV searches for TV series by title, optionally constrained by
// first-air year.
func (c *Client) SearchTV(ctx context.Context, title string, year int) ([]SearchResult, error) {
	query := url.Values{}
	query.Set("query", title)
	if year > 0 {
		query.Set("first_air_date_year", strconv.Itoa(year))
	}
	return c.search(ctx, "/search/tv", query)
}

// search performs a search request and returns the raw result list.
func (c *Client) search(ctx context.Context, endpoint string, query url.Values) ([]SearchResult, error) {
	resp, err := c.doRequest(ctx, endpoint, query)
	if err != nil {
		return nil, fmt.Errorf("tmdb search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("tmdb search: %w", err)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode tmdb search results: %w", err)
	}
	return payload.Results, nil
}

// MovieByID fetches full movie details including genre names.
func (c *Client) MovieByID(ctx context.Context, id int) (*Details, error) {
	return c.details(ctx, fmt.Sprintf("/movie/%d", id))
}

// TVByID fetches full series details including genre names.
func (c *Client) TVByID(ctx context.Context, id int) (*Details, error) {
	return c.details(ctx, fmt.Sprintf("/tv/%d", id))
}

// details performs a detail-by-id request.
func (c *Client) details(ctx context.Context, endpoint string) (*Details, error) {
	resp, err := c.doRequest(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("tmdb details request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("tmdb details: %w", err)
	}

	var details Details
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return nil, fmt.Errorf("failed to decode tmdb details: %w", err)
	}
	return &details, nil
}

// Ping tests connectivity and credentials via the configuration
// endpoint.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.doRequest(ctx, "/configuration", nil)
	if err != nil {
		return fmt.Errorf("tmdb ping failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("tmdb ping: %w", err)
	}
	return nil
}

// doRequest performs an HTTP GET with bearer auth.
func (c *Client) doRequest(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	fullURL := c.baseURL + endpoint
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	return c.httpClient.Do(req)
}

// checkStatus converts a non-2xx response into a StatusError.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 512))
	if err != nil {
		return &StatusError{Status: resp.StatusCode}
	}
	return &StatusError{Status: resp.StatusCode, Body: string(body)}
}
