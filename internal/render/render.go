// Medialetter - Recently-added newsletter for Emby and Jellyfin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medialetter/medialetter

// Package render produces the newsletter HTML body.
//
// The template is text/template, not html/template: every dynamic
// value is escaped and neutralized up front while building the view
// model, so the template itself only ever sees safe strings. This
// keeps the escaping rules in one place and testable on their own.
package render

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/medialetter/medialetter/internal/models"
)

const (
	movieOverviewLimit   = 300
	episodeOverviewLimit = 150
	maxGenres            = 5
	maxEpisodesPerSeason = 10
)

// Data is the aggregated content to render.
type Data struct {
	Movies []models.ProcessedMovie
	Series []models.ProcessedSeries
	Stats  *models.LibraryStats
}

// Options carries the operator-configured template settings.
type Options struct {
	Language         string
	Title            string
	Subtitle         string
	ServerURL        string
	ServerOwnerName  string
	UnsubscribeEmail string
}

// view is the fully escaped model handed to the template.
type view struct {
	Labels     Labels
	Title      string
	Subtitle   string
	HasContent bool
	Movies     []movieView
	Series     []seriesView

	ServerURL        string
	OwnerName        string
	UnsubscribeEmail string
	StatsLine        string
}

type movieView struct {
	Title     string
	Year      int
	Rating    string
	Overview  string
	Genres    []string
	PosterURL string
}

type seriesView struct {
	Title     string
	Overview  string
	Genres    []string
	PosterURL string
	Seasons   []seasonView
}

type seasonView struct {
	Name     string
	Episodes []episodeView
}

type episodeView struct {
	Label    string
	Overview string
}

// Render builds the full HTML document for the newsletter.
func Render(data Data, opts Options) (string, error) {
	labels, err := labelsFor(opts.Language)
	if err != nil {
		return "", err
	}

	v := view{
		Labels:           labels,
		Title:            EscapeText(opts.Title),
		Subtitle:         EscapeText(opts.Subtitle),
		HasContent:       len(data.Movies) > 0 || len(data.Series) > 0,
		ServerURL:        EscapeText(opts.ServerURL),
		OwnerName:        EscapeText(opts.ServerOwnerName),
		UnsubscribeEmail: EscapeText(opts.UnsubscribeEmail),
	}

	for i := range data.Movies {
		v.Movies = append(v.Movies, movieToView(&data.Movies[i]))
	}
	for i := range data.Series {
		v.Series = append(v.Series, seriesToView(&data.Series[i], labels))
	}
	if data.Stats != nil {
		v.StatsLine = fmt.Sprintf("%d %s · %d %s",
			data.Stats.TotalMovies, labels.StatsMovies,
			data.Stats.TotalSeries, labels.StatsSeries)
	}

	var sb strings.Builder
	if err := newsletterTemplate.Execute(&sb, &v); err != nil {
		return "", fmt.Errorf("failed to render newsletter template: %w", err)
	}
	return sb.String(), nil
}

func movieToView(m *models.ProcessedMovie) movieView {
	mv := movieView{
		Title:     EscapeText(m.Title),
		Year:      m.Year,
		Overview:  Truncate(EscapeText(m.Overview), movieOverviewLimit),
		Genres:    escapeGenres(m.Genres),
		PosterURL: EscapeText(m.PosterURL),
	}
	if m.Rating > 0 {
		mv.Rating = fmt.Sprintf("%.1f", m.Rating)
	}
	if m.OfficialRating != "" {
		if mv.Rating != "" {
			mv.Rating += " · "
		}
		mv.Rating += EscapeText(m.OfficialRating)
	}
	return mv
}

func seriesToView(s *models.ProcessedSeries, labels Labels) seriesView {
	sv := seriesView{
		Title:     EscapeText(s.Title),
		Overview:  Truncate(EscapeText(s.Overview), movieOverviewLimit),
		Genres:    escapeGenres(s.Genres),
		PosterURL: EscapeText(s.PosterURL),
	}
	for _, season := range s.Seasons {
		ssv := seasonView{Name: EscapeText(season.Name)}
		episodes := season.Episodes
		if len(episodes) > maxEpisodesPerSeason {
			episodes = episodes[:maxEpisodesPerSeason]
		}
		for _, ep := range episodes {
			label := EscapeText(ep.Name)
			if ep.Number > 0 {
				label = fmt.Sprintf("%s %d · %s", labels.EpisodeWord, ep.Number, label)
			}
			ssv.Episodes = append(ssv.Episodes, episodeView{
				Label:    label,
				Overview: Truncate(EscapeText(ep.Overview), episodeOverviewLimit),
			})
		}
		sv.Seasons = append(sv.Seasons, ssv)
	}
	return sv
}

func escapeGenres(genres []string) []string {
	if len(genres) > maxGenres {
		genres = genres[:maxGenres]
	}
	escaped := make([]string, 0, len(genres))
	for _, g := range genres {
		escaped = append(escaped, EscapeText(g))
	}
	return escaped
}

var newsletterTemplate = template.Must(template.New("newsletter").Parse(newsletterHTML))

const newsletterHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<style>
  body { margin: 0; padding: 0; background-color: #0f1115; font-family: 'Segoe UI', Helvetica, Arial, sans-serif; color: #e6e8eb; }
  .email-wrapper { width: 100%; background-color: #0f1115; padding: 24px 0; }
  .container { max-width: 640px; margin: 0 auto; background-color: #171a21; border-radius: 12px; overflow: hidden; }
  .header { padding: 32px 32px 24px; background: linear-gradient(135deg, #1d2330, #171a21); text-align: center; }
  .header h1 { margin: 0; font-size: 26px; color: #ffffff; }
  .subtitle { margin-top: 8px; font-size: 14px; color: #9aa3b2; }
  .section { padding: 8px 32px 16px; }
  .section-header { display: flex; align-items: center; margin: 24px 0 12px; }
  .section-icon { font-size: 20px; margin-right: 10px; }
  .section-header h2 { margin: 0; font-size: 18px; color: #ffffff; }
  .section-line { flex: 1; height: 1px; background-color: #2a3040; margin-left: 14px; }
  .item { display: flex; margin-bottom: 20px; background-color: #1d2330; border-radius: 8px; overflow: hidden; }
  .item-poster { width: 110px; min-height: 160px; object-fit: cover; flex-shrink: 0; }
  .no-poster { width: 110px; min-height: 160px; background-color: #242b3a; color: #5c6676; display: flex; align-items: center; justify-content: center; font-size: 11px; text-align: center; flex-shrink: 0; }
  .item-content { padding: 14px 16px; }
  .item-title { margin: 0; font-size: 16px; color: #ffffff; }
  .item-meta { margin: 4px 0 8px; font-size: 12px; color: #9aa3b2; }
  .item-year { color: #c4cbd6; }
  .item-overview { margin: 0; font-size: 13px; line-height: 1.5; color: #c4cbd6; }
  .genres { margin-top: 10px; }
  .genre-tag { display: inline-block; padding: 2px 8px; margin: 0 6px 4px 0; font-size: 11px; color: #9aa3b2; background-color: #242b3a; border-radius: 10px; }
  .tv-season { margin: 10px 0 4px; font-size: 13px; font-weight: 600; color: #c4cbd6; }
  .episode { margin: 6px 0; font-size: 13px; color: #e6e8eb; }
  .episode-overview { margin: 2px 0 0; font-size: 12px; color: #9aa3b2; line-height: 1.4; }
  .no-items { padding: 48px 32px; text-align: center; color: #9aa3b2; }
  .no-items-icon { font-size: 36px; margin-bottom: 12px; }
  .footer { padding: 24px 32px 32px; text-align: center; border-top: 1px solid #2a3040; }
  .footer-logo { font-size: 14px; font-weight: 600; color: #c4cbd6; }
  .footer-divider { margin: 0 8px; color: #3a4254; }
  .footer-content { margin-top: 8px; font-size: 12px; color: #5c6676; }
  .footer a { color: #7a9fd4; text-decoration: none; }
</style>
</head>
<body>
<div class="email-wrapper">
  <div class="container">
    <div class="header">
      <h1>{{.Title}}</h1>
      {{- if .Subtitle}}
      <div class="subtitle">{{.Subtitle}}</div>
      {{- end}}
    </div>
{{- if .HasContent}}
{{- if .Movies}}
    <div class="section">
      <div class="section-header">
        <span class="section-icon">&#127916;</span>
        <h2>{{.Labels.MoviesHeading}}</h2>
        <div class="section-line"></div>
      </div>
{{- range .Movies}}
      <div class="item">
        {{- if .PosterURL}}
        <img class="item-poster" src="{{.PosterURL}}" alt="{{.Title}}">
        {{- else}}
        <div class="no-poster">{{$.Labels.NoPoster}}</div>
        {{- end}}
        <div class="item-content">
          <h3 class="item-title">{{.Title}}</h3>
          <div class="item-meta">
            {{- if .Year}}<span class="item-year">{{.Year}}</span>{{end}}
            {{- if .Rating}}{{if .Year}} · {{end}}{{.Rating}}{{end}}
          </div>
          {{- if .Overview}}
          <p class="item-overview">{{.Overview}}</p>
          {{- end}}
          {{- if .Genres}}
          <div class="genres">
            {{- range .Genres}}<span class="genre-tag">{{.}}</span>{{end}}
          </div>
          {{- end}}
        </div>
      </div>
{{- end}}
    </div>
{{- end}}
{{- if .Series}}
    <div class="section">
      <div class="section-header">
        <span class="section-icon">&#128250;</span>
        <h2>{{.Labels.SeriesHeading}}</h2>
        <div class="section-line"></div>
      </div>
{{- range .Series}}
      <div class="item">
        {{- if .PosterURL}}
        <img class="item-poster" src="{{.PosterURL}}" alt="{{.Title}}">
        {{- else}}
        <div class="no-poster">{{$.Labels.NoPoster}}</div>
        {{- end}}
        <div class="item-content">
          <h3 class="item-title">{{.Title}}</h3>
          {{- if .Overview}}
          <p class="item-overview">{{.Overview}}</p>
          {{- end}}
          {{- if .Genres}}
          <div class="genres">
            {{- range .Genres}}<span class="genre-tag">{{.}}</span>{{end}}
          </div>
          {{- end}}
          {{- range .Seasons}}
          <div class="tv-season">{{.Name}}</div>
          {{- range .Episodes}}
          <div class="episode">{{.Label}}
            {{- if .Overview}}
            <p class="episode-overview">{{.Overview}}</p>
            {{- end}}
          </div>
          {{- end}}
          {{- end}}
        </div>
      </div>
{{- end}}
    </div>
{{- end}}
{{- else}}
    <div class="no-items">
      <div class="no-items-icon">&#127871;</div>
      <p>{{.Labels.NoContent}}</p>
      <p>{{.Labels.NoContentHint}}</p>
    </div>
{{- end}}
    <div class="footer">
      <span class="footer-logo">{{if .OwnerName}}{{.Labels.SentBy}} {{.OwnerName}}{{else}}Medialetter{{end}}</span>
      {{- if .StatsLine}}
      <span class="footer-divider">|</span><span>{{.StatsLine}}</span>
      {{- end}}
      <div class="footer-content">
        {{- if .ServerURL}}
        <a href="{{.ServerURL}}">{{.Labels.BrowseLibrary}}</a>
        {{- end}}
        {{- if and .ServerURL .UnsubscribeEmail}}
        <span class="footer-divider">|</span>
        {{- end}}
        {{- if .UnsubscribeEmail}}
        <a href="mailto:{{.UnsubscribeEmail}}">{{.Labels.Unsubscribe}}</a>
        {{- end}}
      </div>
    </div>
  </div>
</div>
</body>
</html>
`
