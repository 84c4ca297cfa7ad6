// Medialetter - Recently-added newsletter for Emby and Jellyfin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medialetter/medialetter

package tmdb

import (
	"strings"
)

// Scoring weights for candidate selection. The ordering of the checks,
// the first-5 cap, and the ±1 year tolerance are the contract; the
// numeric constants are tunable.
const (
	// maxCandidates caps how many search results are scored.
	maxCandidates = 5

	// exactMatchScore is high enough that an exact title match always
	// beats any non-exact candidate, while exact matches still compete
	// with each other so the year bonus can break ties.
	exactMatchScore = 1000.0

	// substringMatchScore is the base when one title contains the other.
	substringMatchScore = 200.0

	// wordOverlapScore is the per-shared-word base for titles with no
	// substring relation.
	wordOverlapScore = 20.0

	// yearBonus is added when the candidate's year is within ±1 of the
	// query year.
	yearBonus = 150.0

	// popularityCap bounds the popularity contribution. Popularity is
	// unbounded in the API (current releases routinely exceed 1000), so
	// raw values would let a popular non-exact candidate outrank an
	// exact title. The invariant is
	// substringMatchScore + popularityCap + yearBonus < exactMatchScore.
	popularityCap = 100.0
)

// scaledPopularity maps raw popularity monotonically into
// [0, popularityCap), so more popular still scores higher but the
// contribution can never cross tier boundaries.
func scaledPopularity(p float64) float64 {
	if p <= 0 {
		return 0
	}
	return popularityCap * p / (p + popularityCap)
}

// BestMatch picks the single best candidate for a title/year query
// from a search-result list, considering at most the first
// maxCandidates results in provider order.
//
// The candidate with the strictly highest score wins; if no candidate
// scores above zero, the first result in provider order is returned.
// An empty result list yields nil, which callers treat as "no match",
// not an error.
func BestMatch(results []SearchResult, title string, year int) *SearchResult {
	if len(results) == 0 {
		return nil
	}

	limit := len(results)
	if limit > maxCandidates {
		limit = maxCandidates
	}

	best := -1
	bestScore := 0.0
	for i := 0; i < limit; i++ {
		score := scoreCandidate(&results[i], title, year)
		if score > bestScore {
			bestScore = score
			best = i
		}
	}

	if best < 0 {
		return &results[0]
	}
	return &results[best]
}

// scoreCandidate computes the match score of one candidate.
func scoreCandidate(candidate *SearchResult, title string, year int) float64 {
	query := strings.ToLower(strings.TrimSpace(title))
	candTitle := strings.ToLower(strings.TrimSpace(candidate.DisplayTitle()))

	popularity := scaledPopularity(candidate.Popularity)

	var score float64
	switch {
	case query != "" && candTitle == query:
		score = exactMatchScore
	case query != "" && candTitle != "" &&
		(strings.Contains(candTitle, query) || strings.Contains(query, candTitle)):
		score = substringMatchScore + popularity
	default:
		if overlap := wordOverlap(query, candTitle); overlap > 0 {
			score = wordOverlapScore*float64(overlap) + popularity
		} else {
			score = popularity
		}
	}

	if year > 0 {
		if candYear := candidate.Year(); candYear > 0 && absInt(candYear-year) <= 1 {
			score += yearBonus
		}
	}

	return score
}

// wordOverlap counts distinct whitespace-split tokens shared between
// the two lowercased titles.
func wordOverlap(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	tokens := make(map[string]bool)
	for _, word := range strings.Fields(a) {
		tokens[word] = true
	}
	count := 0
	seen := make(map[string]bool)
	for _, word := range strings.Fields(b) {
		if tokens[word] && !seen[word] {
			seen[word] = true
			count++
		}
	}
	return count
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
