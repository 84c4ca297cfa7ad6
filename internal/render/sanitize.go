// Medialetter - Recently-added newsletter for Emby and Jellyfin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medialetter/medialetter

package render

import (
	"html"
	"strings"
	"unicode"
)

// dangerousPatterns neutralizes script-bearing tokens that survive
// entity escaping inside attribute values (URL schemes, event handler
// names). Each token is broken with an underscore after its first
// letter so it no longer parses, while staying readable in the
// rendered text.
var dangerousPatterns = buildPatternReplacer([]string{
	"javascript:",
	"vbscript:",
	"data:",
	"onclick",
	"onload",
	"onerror",
	"onmouseover",
})

// buildPatternReplacer produces a Replacer covering the lowercase,
// UPPERCASE, and Capitalized form of every token.
func buildPatternReplacer(tokens []string) *strings.Replacer {
	var pairs []string
	for _, token := range tokens {
		for _, variant := range []string{
			strings.ToLower(token),
			strings.ToUpper(token),
			capitalize(token),
		} {
			pairs = append(pairs, variant, breakToken(variant))
		}
	}
	return strings.NewReplacer(pairs...)
}

// breakToken inserts an underscore after the first rune.
func breakToken(token string) string {
	runes := []rune(token)
	if len(runes) < 2 {
		return token
	}
	return string(runes[0]) + "_" + string(runes[1:])
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// EscapeText makes server- or provider-supplied text safe for
// embedding anywhere in the HTML document: entity-escape first, then
// neutralize the tokens escaping alone does not cover.
func EscapeText(s string) string {
	return dangerousPatterns.Replace(html.EscapeString(s))
}

// Truncate shortens escaped text to at most limit runes, appending an
// ellipsis marker when anything was cut. Truncation happens after
// escaping so an entity is never split in a way that re-opens markup.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
