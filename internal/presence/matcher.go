// Package presence determines whether canonical items already exist in an
// external inventory: an Emby library, a Radarr movie list, or a Sonarr
// series list. Matching is by external identifier only; title/year matching
// is deliberately not used to avoid false positives on remakes.
package presence

import (
	"math"

	"github.com/collectarr/collectarr/internal/media"
)

// LibraryItem is one entry of a media server library snapshot: the server's
// own item id plus whatever provider identifiers the server knows.
type LibraryItem struct {
	ID  string
	IDs media.ExternalIDs
}

// Index is a library snapshot keyed by identifier type for O(1) matching.
type Index struct {
	byIMDB map[string]string
	byTMDB map[int]string
	byTVDB map[int]string
}

// NewIndex builds an index from a library snapshot.
func NewIndex(items []LibraryItem) *Index {
	ix := &Index{
		byIMDB: make(map[string]string, len(items)),
		byTMDB: make(map[int]string, len(items)),
		byTVDB: make(map[int]string, len(items)),
	}
	for _, it := range items {
		if it.IDs.IMDB != "" {
			ix.byIMDB[it.IDs.IMDB] = it.ID
		}
		if it.IDs.TMDB != 0 {
			ix.byTMDB[it.IDs.TMDB] = it.ID
		}
		if it.IDs.TVDB != 0 {
			ix.byTVDB[it.IDs.TVDB] = it.ID
		}
	}
	return ix
}

// Size returns the number of distinct identifiers in the index.
func (ix *Index) Size() int {
	return len(ix.byIMDB) + len(ix.byTMDB) + len(ix.byTVDB)
}

// Lookup returns the library item id matching any of the populated
// identifiers. An empty identifier set never matches.
func (ix *Index) Lookup(ids media.ExternalIDs) (string, bool) {
	if ids.TMDB != 0 {
		if id, ok := ix.byTMDB[ids.TMDB]; ok {
			return id, true
		}
	}
	if ids.TVDB != 0 {
		if id, ok := ix.byTVDB[ids.TVDB]; ok {
			return id, true
		}
	}
	if ids.IMDB != "" {
		if id, ok := ix.byIMDB[ids.IMDB]; ok {
			return id, true
		}
	}
	return "", false
}

// Contains reports whether any populated identifier is present in the index.
func (ix *Index) Contains(ids media.ExternalIDs) bool {
	_, ok := ix.Lookup(ids)
	return ok
}

// InventoryIndex is a download-manager inventory keyed by the single
// identifier type that manager requires: tmdbId for Radarr movies, tvdbId
// for Sonarr series.
type InventoryIndex map[int]struct{}

// NewInventoryIndex builds an inventory index from a list of ids, skipping
// zero values.
func NewInventoryIndex(ids []int) InventoryIndex {
	ix := make(InventoryIndex, len(ids))
	for _, id := range ids {
		if id != 0 {
			ix[id] = struct{}{}
		}
	}
	return ix
}

// Contains reports whether the id is present. Zero (unknown) never matches.
func (ix InventoryIndex) Contains(id int) bool {
	if id == 0 {
		return false
	}
	_, ok := ix[id]
	return ok
}

// Stats are the aggregate presence figures for a collection.
type Stats struct {
	Total            int `json:"total"`
	InEmby           int `json:"inEmby"`
	Missing          int `json:"missing"`
	PercentInLibrary int `json:"percentInLibrary"`
}

// ComputeStats derives aggregate stats from total and in-library counts.
// An empty collection reports 0 percent rather than a division error.
func ComputeStats(total, inEmby int) Stats {
	s := Stats{
		Total:   total,
		InEmby:  inEmby,
		Missing: total - inEmby,
	}
	if total > 0 {
		s.PercentInLibrary = int(math.Round(float64(inEmby) / float64(total) * 100))
	}
	return s
}
