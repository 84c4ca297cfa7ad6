// Medialetter - Recently-added newsletter for Emby and Jellyfin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medialetter/medialetter

package render

import "fmt"

// Labels is the set of static strings the template needs in the
// newsletter's language.
type Labels struct {
	MoviesHeading string
	SeriesHeading string
	EpisodeWord   string
	NoContent     string
	NoContentHint string
	NoPoster      string
	BrowseLibrary string
	Unsubscribe   string
	SentBy        string
	StatsMovies   string
	StatsSeries   string
}

var labelSets = map[string]Labels{
	"en": {
		MoviesHeading: "New Movies",
		SeriesHeading: "New TV Episodes",
		EpisodeWord:   "Episode",
		NoContent:     "No new content was added during this period.",
		NoContentHint: "Check back after the next newsletter.",
		NoPoster:      "No poster",
		BrowseLibrary: "Browse the library",
		Unsubscribe:   "Unsubscribe",
		SentBy:        "Sent by",
		StatsMovies:   "movies",
		StatsSeries:   "series",
	},
	"fr": {
		MoviesHeading: "Nouveaux films",
		SeriesHeading: "Nouveaux épisodes",
		EpisodeWord:   "Épisode",
		NoContent:     "Aucun nouveau contenu n'a été ajouté durant cette période.",
		NoContentHint: "Revenez après la prochaine newsletter.",
		NoPoster:      "Pas d'affiche",
		BrowseLibrary: "Parcourir la bibliothèque",
		Unsubscribe:   "Se désabonner",
		SentBy:        "Envoyé par",
		StatsMovies:   "films",
		StatsSeries:   "séries",
	},
}

// labelsFor returns the label set for a language code. Unsupported
// languages are a hard error: silently falling back would ship a
// newsletter in the wrong language to every recipient.
func labelsFor(language string) (Labels, error) {
	labels, ok := labelSets[language]
	if !ok {
		return Labels{}, fmt.Errorf("unsupported template language %q", language)
	}
	return labels, nil
}
