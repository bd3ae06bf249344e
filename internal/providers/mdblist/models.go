package mdblist

import "github.com/collectarr/collectarr/internal/media"

// Item is one entry of an MDBList list response. The "id" field carries
// the TMDB identifier.
type Item struct {
	ID          int    `json:"id"`
	Rank        int    `json:"rank"`
	Title       string `json:"title"`
	ImdbID      string `json:"imdb_id"`
	TvdbID      int    `json:"tvdb_id"`
	MediaType   string `json:"mediatype"`
	ReleaseYear int    `json:"release_year"`
}

// toRawEntry converts an MDBList item to a raw entry; unknown media types
// are skipped.
func (it Item) toRawEntry() (media.RawEntry, bool) {
	var mt media.MediaType
	switch it.MediaType {
	case "movie":
		mt = media.TypeMovie
	case "show":
		mt = media.TypeShow
	default:
		return media.RawEntry{}, false
	}

	return media.RawEntry{
		Title:     it.Title,
		Year:      it.ReleaseYear,
		MediaType: mt,
		IDs: media.ExternalIDs{
			IMDB: it.ImdbID,
			TMDB: it.ID,
			TVDB: it.TvdbID,
		},
	}, true
}
