package media

import (
	"context"

	"github.com/rs/zerolog"
)

// RawEntry is a list entry as delivered by a source provider, before
// identity resolution.
type RawEntry struct {
	Title      string
	Year       int
	MediaType  MediaType
	PosterPath string
	Rating     float64
	IDs        ExternalIDs
}

// IDLookup fills identifier gaps from a metadata provider. Implementations
// return whatever identifiers they can derive for the given set; returning
// the input unchanged is a valid answer.
type IDLookup interface {
	LookupMovieIDs(ctx context.Context, ids ExternalIDs) (ExternalIDs, error)
	LookupSeriesIDs(ctx context.Context, ids ExternalIDs) (ExternalIDs, error)
}

// Resolver maps raw list entries to canonical items, querying a metadata
// provider to triangulate missing identifiers. Resolution is monotonic:
// identifiers already known are never dropped, whatever the lookup returns.
type Resolver struct {
	lookup IDLookup
	logger zerolog.Logger
}

// NewResolver creates a resolver. lookup may be nil, in which case entries
// keep exactly the identifiers they arrived with.
func NewResolver(lookup IDLookup, logger zerolog.Logger) *Resolver {
	return &Resolver{
		lookup: lookup,
		logger: logger.With().Str("component", "resolver").Logger(),
	}
}

// Resolve converts a raw entry into a canonical item. A lookup failure is
// not fatal: the item is kept with whatever identifiers it already has,
// possibly none, and stays visible to the user as unmatched.
func (r *Resolver) Resolve(ctx context.Context, entry RawEntry) Item {
	item := Item{
		Title:      entry.Title,
		Year:       entry.Year,
		MediaType:  entry.MediaType,
		PosterPath: entry.PosterPath,
		Rating:     entry.Rating,
		IDs:        entry.IDs,
	}

	if r.lookup == nil || !r.needsLookup(item) {
		return item
	}

	var (
		found ExternalIDs
		err   error
	)
	switch item.MediaType {
	case TypeShow:
		found, err = r.lookup.LookupSeriesIDs(ctx, item.IDs)
	default:
		found, err = r.lookup.LookupMovieIDs(ctx, item.IDs)
	}
	if err != nil {
		r.logger.Warn().
			Err(err).
			Str("title", item.Title).
			Int("year", item.Year).
			Msg("identifier lookup failed, keeping entry as-is")
		return item
	}

	item.IDs = item.IDs.Merge(found)
	return item
}

// needsLookup reports whether the entry is worth a metadata round trip.
// Movies want a TMDB id (Radarr requirement), shows want a TVDB id
// (Sonarr requirement); anything already satisfying that is left alone.
func (r *Resolver) needsLookup(item Item) bool {
	if item.IDs.IsEmpty() {
		// Nothing to pivot a lookup on.
		return false
	}
	if item.MediaType == TypeShow {
		return item.IDs.TVDB == 0 || item.IDs.TMDB == 0
	}
	return item.IDs.TMDB == 0
}
