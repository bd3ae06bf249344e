// Package servers manages the configured external servers: Emby targets
// and Radarr/Sonarr download managers.
package servers

import (
	"strings"
	"time"
)

// Type identifies the kind of external server.
type Type string

const (
	TypeEmby   Type = "EMBY"
	TypeRadarr Type = "RADARR"
	TypeSonarr Type = "SONARR"
)

// Valid reports whether the type is one of the known values.
func (t Type) Valid() bool {
	return t == TypeEmby || t == TypeRadarr || t == TypeSonarr
}

// ParseType maps a URL path segment ("emby", "radarr", "sonarr") to a Type.
func ParseType(s string) (Type, bool) {
	t := Type(strings.ToUpper(s))
	return t, t.Valid()
}

// Server is a configured external server. The API key is a secret: it is
// stored in full but never serialized; responses carry only a masked form.
type Server struct {
	ID               string    `json:"id"`
	Type             Type      `json:"type"`
	Name             string    `json:"name"`
	URL              string    `json:"url"`
	APIKey           string    `json:"-"`
	IsDefault        bool      `json:"isDefault"`
	QualityProfileID int       `json:"qualityProfileId,omitempty"`
	RootFolderPath   string    `json:"rootFolderPath,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// MaskedAPIKey returns the key with all but the last four characters
// replaced, enough for the user to recognize which key is stored.
func (s *Server) MaskedAPIKey() string {
	if len(s.APIKey) <= 4 {
		return strings.Repeat("*", len(s.APIKey))
	}
	return strings.Repeat("*", len(s.APIKey)-4) + s.APIKey[len(s.APIKey)-4:]
}
