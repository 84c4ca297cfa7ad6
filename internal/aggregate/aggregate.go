// Medialetter - Recently-added newsletter for Emby and Jellyfin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medialetter/medialetter

// Package aggregate turns the flat recently-added item list into the
// grouped, enriched collections the renderer consumes.
//
// Enrichment is best effort: a failed metadata lookup degrades that
// single item to locally-known fields and never aborts the batch.
package aggregate

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/medialetter/medialetter/internal/logging"
	"github.com/medialetter/medialetter/internal/models"
	"github.com/medialetter/medialetter/internal/tmdb"
)

// defaultConcurrency bounds parallel movie enrichment lookups.
const defaultConcurrency = 4

// PosterSource builds a media-server poster URL for an item id.
type PosterSource interface {
	ImageURL(itemID string) string
}

// Aggregator builds the newsletter collections from raw items.
type Aggregator struct {
	provider    tmdb.Provider
	posters     PosterSource
	concurrency int
}

// Result holds the aggregated output. Movies preserve input order;
// series preserve first-seen order of distinct series names.
type Result struct {
	Movies []models.ProcessedMovie
	Series []models.ProcessedSeries
}

// New creates an Aggregator.
func New(provider tmdb.Provider, posters PosterSource) *Aggregator {
	return &Aggregator{
		provider:    provider,
		posters:     posters,
		concurrency: defaultConcurrency,
	}
}

// Aggregate partitions raw items into movies and episodes, groups
// episodes into series and seasons, and enriches everything with
// provider metadata where available. Items of any other type are
// ignored.
func (a *Aggregator) Aggregate(ctx context.Context, items []models.RawItem) Result {
	var movies, episodes []models.RawItem
	for i := range items {
		switch items[i].Type {
		case models.ItemTypeMovie:
			movies = append(movies, items[i])
		case models.ItemTypeEpisode:
			episodes = append(episodes, items[i])
		}
	}

	return Result{
		Movies: a.processMovies(ctx, movies),
		Series: a.processEpisodes(ctx, episodes),
	}
}

// processMovies enriches movies in parallel with a bounded worker
// group. Results are written by index so output order matches input
// order regardless of lookup interleaving.
func (a *Aggregator) processMovies(ctx context.Context, movies []models.RawItem) []models.ProcessedMovie {
	if len(movies) == 0 {
		return nil
	}

	processed := make([]models.ProcessedMovie, len(movies))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i := range movies {
		i := i
		g.Go(func() error {
			processed[i] = a.processMovie(gctx, &movies[i])
			return nil
		})
	}
	// Workers never return errors; per-item failures degrade in place.
	_ = g.Wait()

	return processed
}

// processMovie builds one ProcessedMovie from local fields, then
// applies provider enrichment when a lookup succeeds.
func (a *Aggregator) processMovie(ctx context.Context, item *models.RawItem) models.ProcessedMovie {
	movie := models.ProcessedMovie{
		Title:          item.Name,
		Year:           item.ProductionYear,
		Overview:       item.Overview,
		Genres:         item.Genres,
		Rating:         item.CommunityRating,
		OfficialRating: item.OfficialRating,
		PosterURL:      a.posters.ImageURL(item.ID),
		DateAdded:      item.DateCreated,
	}

	match, err := a.lookupMovie(ctx, item)
	if err != nil {
		logging.Warn().Err(err).Str("movie", item.Name).Msg("Metadata lookup failed, keeping local data")
		return movie
	}
	if match == nil {
		logging.Debug().Str("movie", item.Name).Msg("No metadata match found")
		return movie
	}

	applyEnrichment(&movie.Overview, &movie.Genres, &movie.PosterURL, match)
	return movie
}

// lookupMovie resolves provider metadata for a movie: a provider-id
// detail lookup when the item carries an external id, otherwise a
// title+year search followed by a detail lookup for genre names.
func (a *Aggregator) lookupMovie(ctx context.Context, item *models.RawItem) (*models.MetadataMatch, error) {
	if rawID := item.TmdbID(); rawID != "" {
		if id, err := strconv.Atoi(rawID); err == nil {
			details, err := a.provider.MovieByID(ctx, id)
			if err == nil {
				return details.Match(), nil
			}
			logging.Warn().Err(err).Str("movie", item.Name).Str("tmdb_id", rawID).
				Msg("Detail lookup by provider id failed, falling back to search")
		}
	}

	results, err := a.provider.SearchMovie(ctx, item.Name, item.ProductionYear)
	if err != nil {
		return nil, err
	}
	best := tmdb.BestMatch(results, item.Name, item.ProductionYear)
	if best == nil {
		return nil, nil
	}

	// Search results carry no genre names; a detail follow-up fills
	// them in when it succeeds.
	if details, err := a.provider.MovieByID(ctx, best.ID); err == nil {
		return details.Match(), nil
	}
	return best.Match(), nil
}

// processEpisodes groups episodes by series name then season name,
// both in first-seen order, performing exactly one provider lookup per
// distinct series name per run.
func (a *Aggregator) processEpisodes(ctx context.Context, episodes []models.RawItem) []models.ProcessedSeries {
	if len(episodes) == 0 {
		return nil
	}

	var series []models.ProcessedSeries
	seriesIndex := make(map[string]int)
	seasonIndex := make(map[string]map[string]int)

	for i := range episodes {
		ep := &episodes[i]
		name := ep.SeriesName
		if name == "" {
			logging.Warn().Str("episode", ep.Name).Msg("Skipping episode without series name")
			continue
		}

		si, ok := seriesIndex[name]
		if !ok {
			series = append(series, a.newSeries(ctx, ep))
			si = len(series) - 1
			seriesIndex[name] = si
			seasonIndex[name] = make(map[string]int)
		}

		seasons := seasonIndex[name]
		label := ep.SeasonName
		ssi, ok := seasons[label]
		if !ok {
			series[si].Seasons = append(series[si].Seasons, models.Season{Name: label})
			ssi = len(series[si].Seasons) - 1
			seasons[label] = ssi
		}

		series[si].Seasons[ssi].Episodes = append(series[si].Seasons[ssi].Episodes, models.Episode{
			Number:    ep.IndexNumber,
			Name:      ep.Name,
			Overview:  ep.Overview,
			DateAdded: ep.DateCreated,
		})
	}

	return series
}

// newSeries initializes a series entry from the first episode seen,
// including its single provider lookup.
func (a *Aggregator) newSeries(ctx context.Context, ep *models.RawItem) models.ProcessedSeries {
	s := models.ProcessedSeries{
		Title:     ep.SeriesName,
		PosterURL: a.posters.ImageURL(ep.SeriesID),
	}

	match, err := a.lookupSeries(ctx, ep)
	if err != nil {
		logging.Warn().Err(err).Str("series", ep.SeriesName).Msg("Metadata lookup failed, keeping local data")
		return s
	}
	if match == nil {
		logging.Debug().Str("series", ep.SeriesName).Msg("No metadata match found")
		return s
	}

	applyEnrichment(&s.Overview, &s.Genres, &s.PosterURL, match)
	return s
}

// lookupSeries resolves provider metadata for a series by title+year
// search, with a detail follow-up for genre names.
func (a *Aggregator) lookupSeries(ctx context.Context, ep *models.RawItem) (*models.MetadataMatch, error) {
	results, err := a.provider.SearchTV(ctx, ep.SeriesName, ep.ProductionYear)
	if err != nil {
		return nil, err
	}
	best := tmdb.BestMatch(results, ep.SeriesName, ep.ProductionYear)
	if best == nil {
		return nil, nil
	}

	if details, err := a.provider.TVByID(ctx, best.ID); err == nil {
		return details.Match(), nil
	}
	return best.Match(), nil
}

// applyEnrichment merges provider data into local fields.
//
// Poster: provider poster wins when present, else the media-server
// URL stays. Overview and genres follow the "at least as long wins"
// rule: provider data replaces local data only when non-empty and not
// shorter than what the server reported.
func applyEnrichment(overview *string, genres *[]string, posterURL *string, match *models.MetadataMatch) {
	if match.PosterPath != "" {
		*posterURL = tmdb.PosterURL(match.PosterPath)
	}
	if match.Overview != "" && len(match.Overview) >= len(*overview) {
		*overview = match.Overview
	}
	if len(match.Genres) > 0 && len(match.Genres) >= len(*genres) {
		*genres = match.Genres
	}
}
