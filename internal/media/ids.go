// Package media defines the canonical media item model shared by
// collections, presence matching, and the sync jobs.
package media

import (
	"fmt"
	"strings"
	"unicode"
)

// MediaType identifies whether an item is a movie or a TV show.
type MediaType string

const (
	TypeMovie MediaType = "MOVIE"
	TypeShow  MediaType = "SHOW"
)

// Valid reports whether the media type is one of the known values.
func (t MediaType) Valid() bool {
	return t == TypeMovie || t == TypeShow
}

// ExternalIDs holds the identifiers an item carries across providers.
// A zero value means the identifier is unknown.
type ExternalIDs struct {
	IMDB string `json:"imdbId,omitempty"`
	TMDB int    `json:"tmdbId,omitempty"`
	TVDB int    `json:"tvdbId,omitempty"`
}

// IsEmpty returns true when no identifier is populated.
func (ids ExternalIDs) IsEmpty() bool {
	return ids.IMDB == "" && ids.TMDB == 0 && ids.TVDB == 0
}

// Merge returns the union of two identifier sets. Values already present
// are never overwritten or cleared, so repeated resolution only ever
// grows the set.
func (ids ExternalIDs) Merge(other ExternalIDs) ExternalIDs {
	merged := ids
	if merged.IMDB == "" {
		merged.IMDB = other.IMDB
	}
	if merged.TMDB == 0 {
		merged.TMDB = other.TMDB
	}
	if merged.TVDB == 0 {
		merged.TVDB = other.TVDB
	}
	return merged
}

// Item is a canonical media item as stored inside a collection.
type Item struct {
	Title      string
	Year       int
	MediaType  MediaType
	PosterPath string
	Rating     float64
	IDs        ExternalIDs
}

// Unmatched reports whether the item carries no external identifier and
// therefore cannot participate in presence matching or download dispatch.
func (it Item) Unmatched() bool {
	return it.IDs.IsEmpty()
}

// CanonicalKey derives the identity used for de-duplication within a
// collection. Movies prefer TMDB, shows prefer TVDB, then the remaining
// identifiers in order of reliability. Items with no identifier at all
// fall back to normalized title + year + media type.
func CanonicalKey(mediaType MediaType, ids ExternalIDs, title string, year int) string {
	if mediaType == TypeShow && ids.TVDB != 0 {
		return fmt.Sprintf("tvdb:%d", ids.TVDB)
	}
	if ids.TMDB != 0 {
		return fmt.Sprintf("tmdb:%d", ids.TMDB)
	}
	if ids.TVDB != 0 {
		return fmt.Sprintf("tvdb:%d", ids.TVDB)
	}
	if ids.IMDB != "" {
		return "imdb:" + ids.IMDB
	}
	return fmt.Sprintf("title:%s|%d|%s", NormalizeTitle(title), year, mediaType)
}

// Key returns the item's canonical key.
func (it Item) Key() string {
	return CanonicalKey(it.MediaType, it.IDs, it.Title, it.Year)
}

// NormalizeTitle lowercases a title and strips everything that is not a
// letter or digit, collapsing runs of separators to a single space.
// "The Matrix: Reloaded" and "the matrix reloaded" normalize identically.
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	lastSpace := true
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
