package refresh

import (
	"context"
	"errors"
	"fmt"

	"github.com/collectarr/collectarr/internal/collection"
	"github.com/collectarr/collectarr/internal/media"
)

var ErrUnknownSource = errors.New("no fetcher registered for source type")

// Fetcher pulls the current entries of one upstream list.
type Fetcher func(ctx context.Context, sourceID string) ([]media.RawEntry, error)

// Registry maps source types to their list fetchers.
type Registry struct {
	fetchers map[collection.SourceType]Fetcher
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{fetchers: make(map[collection.SourceType]Fetcher)}
}

// Register binds a fetcher to a source type, replacing any previous binding.
func (r *Registry) Register(sourceType collection.SourceType, f Fetcher) {
	r.fetchers[sourceType] = f
}

// Fetch pulls the entries for the given source.
func (r *Registry) Fetch(ctx context.Context, sourceType collection.SourceType, sourceID string) ([]media.RawEntry, error) {
	f, ok := r.fetchers[sourceType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, sourceType)
	}
	return f(ctx, sourceID)
}
