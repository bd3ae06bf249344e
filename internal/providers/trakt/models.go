package trakt

import "github.com/collectarr/collectarr/internal/media"

// IDs holds the identifiers Trakt attaches to an entity.
type IDs struct {
	Trakt int    `json:"trakt"`
	Slug  string `json:"slug"`
	IMDB  string `json:"imdb"`
	TMDB  int    `json:"tmdb"`
	TVDB  int    `json:"tvdb"`
}

// Movie is a Trakt movie object.
type Movie struct {
	Title  string  `json:"title"`
	Year   int     `json:"year"`
	IDs    IDs     `json:"ids"`
	Rating float64 `json:"rating"`
}

// Show is a Trakt show object.
type Show struct {
	Title  string  `json:"title"`
	Year   int     `json:"year"`
	IDs    IDs     `json:"ids"`
	Rating float64 `json:"rating"`
}

// ListItem is one entry of a list or watchlist response. Exactly one of
// Movie/Show is populated depending on Type.
type ListItem struct {
	Rank  int    `json:"rank"`
	Type  string `json:"type"`
	Movie *Movie `json:"movie,omitempty"`
	Show  *Show  `json:"show,omitempty"`
}

// toRawEntry converts a list item to a raw entry. Entries of types other
// than movie/show (seasons, episodes, people) are skipped.
func (li ListItem) toRawEntry() (media.RawEntry, bool) {
	switch li.Type {
	case "movie":
		if li.Movie == nil {
			return media.RawEntry{}, false
		}
		return media.RawEntry{
			Title:     li.Movie.Title,
			Year:      li.Movie.Year,
			MediaType: media.TypeMovie,
			Rating:    li.Movie.Rating,
			IDs: media.ExternalIDs{
				IMDB: li.Movie.IDs.IMDB,
				TMDB: li.Movie.IDs.TMDB,
				TVDB: li.Movie.IDs.TVDB,
			},
		}, true
	case "show":
		if li.Show == nil {
			return media.RawEntry{}, false
		}
		return media.RawEntry{
			Title:     li.Show.Title,
			Year:      li.Show.Year,
			MediaType: media.TypeShow,
			Rating:    li.Show.Rating,
			IDs: media.ExternalIDs{
				IMDB: li.Show.IDs.IMDB,
				TMDB: li.Show.IDs.TMDB,
				TVDB: li.Show.IDs.TVDB,
			},
		}, true
	default:
		return media.RawEntry{}, false
	}
}
