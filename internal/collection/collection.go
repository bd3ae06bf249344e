// Package collection owns the Collection and CollectionItem model: user
// groupings of media items fed from an external list source (or curated
// manually) and mirrored into Emby.
package collection

import (
	"time"

	"github.com/collectarr/collectarr/internal/media"
)

// SourceType identifies where a collection's items come from.
type SourceType string

const (
	SourceManual         SourceType = "MANUAL"
	SourceMDBList        SourceType = "MDBLIST"
	SourceTraktList      SourceType = "TRAKT_LIST"
	SourceTraktWatchlist SourceType = "TRAKT_WATCHLIST"
)

// Valid reports whether the source type is one of the known values.
func (s SourceType) Valid() bool {
	switch s {
	case SourceManual, SourceMDBList, SourceTraktList, SourceTraktWatchlist:
		return true
	}
	return false
}

// Refreshable reports whether the source can be re-pulled. Manual
// collections have no upstream list and are never refreshed.
func (s SourceType) Refreshable() bool {
	return s.Valid() && s != SourceManual
}

// Collection is a user-owned grouping of media items.
type Collection struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	SourceType  SourceType `json:"sourceType"`
	// SourceID identifies the upstream list; required iff SourceType is
	// not MANUAL.
	SourceID             string   `json:"sourceId,omitempty"`
	PosterPath           string   `json:"posterPath,omitempty"`
	RefreshIntervalHours int      `json:"refreshIntervalHours"`
	RefreshTimeOfDay     string   `json:"refreshTimeOfDay,omitempty"` // "HH:MM"
	SyncToEmbyOnRefresh  bool     `json:"syncToEmbyOnRefresh"`
	RemoveFromEmby       bool     `json:"removeFromEmby"`
	DeleteFromEmbyOnDelete bool   `json:"deleteFromEmbyOnDelete"`
	EmbyServerIDs        []string `json:"embyServerIds"`

	LastRefreshedAt *time.Time `json:"lastRefreshedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`

	// Items is populated on single-collection reads.
	Items []*Item `json:"items,omitempty"`
}

// DueForRefresh reports whether the scheduled refresh should pull this
// collection now. Manual collections are never due. A collection pinned to a
// time of day is due only within the scheduler tick containing that time.
func (c *Collection) DueForRefresh(now time.Time, tick time.Duration) bool {
	if !c.SourceType.Refreshable() || c.RefreshIntervalHours <= 0 {
		return false
	}

	if c.RefreshTimeOfDay != "" {
		target, err := time.Parse("15:04", c.RefreshTimeOfDay)
		if err != nil {
			return false
		}
		todayTarget := time.Date(now.Year(), now.Month(), now.Day(),
			target.Hour(), target.Minute(), 0, 0, now.Location())
		if now.Before(todayTarget) || now.Sub(todayTarget) >= tick {
			return false
		}
		// Guard against re-running within the same window.
		return c.LastRefreshedAt == nil || c.LastRefreshedAt.Before(todayTarget)
	}

	if c.LastRefreshedAt == nil {
		return true
	}
	interval := time.Duration(c.RefreshIntervalHours) * time.Hour
	return now.Sub(*c.LastRefreshedAt) >= interval
}

// Item is one media entry within a collection. External identifiers are
// flattened into the JSON shape (imdbId/tmdbId/tvdbId).
type Item struct {
	ID           string          `json:"id"`
	CollectionID string          `json:"collectionId"`
	Title        string          `json:"title"`
	Year         int             `json:"year,omitempty"`
	MediaType    media.MediaType `json:"mediaType"`
	PosterPath   string          `json:"posterPath,omitempty"`
	Rating       float64         `json:"rating,omitempty"`
	media.ExternalIDs
	CanonicalKey string    `json:"-"`
	InEmby       bool      `json:"inEmby"`
	AddedAt      time.Time `json:"addedAt"`
}

// Unmatched reports whether the item has no external identifier; such
// items stay visible but cannot be presence-matched or dispatched.
func (it *Item) Unmatched() bool {
	return it.ExternalIDs.IsEmpty()
}

// FromMedia builds an item from a canonical media item.
func FromMedia(collectionID string, m media.Item) *Item {
	return &Item{
		CollectionID: collectionID,
		Title:        m.Title,
		Year:         m.Year,
		MediaType:    m.MediaType,
		PosterPath:   m.PosterPath,
		Rating:       m.Rating,
		ExternalIDs:  m.IDs,
		CanonicalKey: m.Key(),
	}
}
