package servers

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/collectarr/collectarr/internal/providers/emby"
	"github.com/collectarr/collectarr/internal/providers/radarr"
	"github.com/collectarr/collectarr/internal/providers/sonarr"
)

// probeTimeout bounds each probe request; connection tests should fail fast.
const probeTimeout = 15 * time.Second

// NewProberFactory builds probers backed by the real provider clients.
func NewProberFactory(logger zerolog.Logger) ProberFactory {
	return func(srv *Server) Prober {
		switch srv.Type {
		case TypeRadarr:
			return &radarrProber{client: radarr.NewClient(srv.URL, srv.APIKey, probeTimeout, logger)}
		case TypeSonarr:
			return &sonarrProber{client: sonarr.NewClient(srv.URL, srv.APIKey, probeTimeout, logger)}
		default:
			return &embyProber{client: emby.NewClient(srv.URL, srv.APIKey, probeTimeout, logger)}
		}
	}
}

type embyProber struct {
	client *emby.Client
}

func (p *embyProber) Test(ctx context.Context) error {
	return p.client.Test(ctx)
}

func (p *embyProber) QualityProfiles(ctx context.Context) ([]QualityProfile, error) {
	return nil, ErrUnsupportedOperation
}

func (p *embyProber) RootFolders(ctx context.Context) ([]RootFolder, error) {
	return nil, ErrUnsupportedOperation
}

type radarrProber struct {
	client *radarr.Client
}

func (p *radarrProber) Test(ctx context.Context) error {
	return p.client.Test(ctx)
}

func (p *radarrProber) QualityProfiles(ctx context.Context) ([]QualityProfile, error) {
	profiles, err := p.client.QualityProfiles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]QualityProfile, 0, len(profiles))
	for _, qp := range profiles {
		out = append(out, QualityProfile{ID: qp.ID, Name: qp.Name})
	}
	return out, nil
}

func (p *radarrProber) RootFolders(ctx context.Context) ([]RootFolder, error) {
	folders, err := p.client.RootFolders(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RootFolder, 0, len(folders))
	for _, rf := range folders {
		out = append(out, RootFolder{ID: rf.ID, Path: rf.Path})
	}
	return out, nil
}

type sonarrProber struct {
	client *sonarr.Client
}

func (p *sonarrProber) Test(ctx context.Context) error {
	return p.client.Test(ctx)
}

func (p *sonarrProber) QualityProfiles(ctx context.Context) ([]QualityProfile, error) {
	profiles, err := p.client.QualityProfiles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]QualityProfile, 0, len(profiles))
	for _, qp := range profiles {
		out = append(out, QualityProfile{ID: qp.ID, Name: qp.Name})
	}
	return out, nil
}

func (p *sonarrProber) RootFolders(ctx context.Context) ([]RootFolder, error) {
	folders, err := p.client.RootFolders(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RootFolder, 0, len(folders))
	for _, rf := range folders {
		out = append(out, RootFolder{ID: rf.ID, Path: rf.Path})
	}
	return out, nil
}
