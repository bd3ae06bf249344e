package radarr

// SystemStatus is the response of /api/v3/system/status.
type SystemStatus struct {
	Version string `json:"version"`
	AppName string `json:"appName"`
}

// Movie is one entry of the movie inventory.
type Movie struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Year   int    `json:"year"`
	TmdbID int    `json:"tmdbId"`
	ImdbID string `json:"imdbId"`
}

// AddMovieRequest is the payload for POST /api/v3/movie.
type AddMovieRequest struct {
	Title            string     `json:"title"`
	Year             int        `json:"year,omitempty"`
	TmdbID           int        `json:"tmdbId"`
	QualityProfileID int        `json:"qualityProfileId"`
	RootFolderPath   string     `json:"rootFolderPath"`
	Monitored        bool       `json:"monitored"`
	AddOptions       AddOptions `json:"addOptions"`
}

// AddOptions controls Radarr's post-add behavior.
type AddOptions struct {
	SearchForMovie bool `json:"searchForMovie"`
}

// QualityProfile is one configured quality profile.
type QualityProfile struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// RootFolder is one configured root folder.
type RootFolder struct {
	ID   int    `json:"id"`
	Path string `json:"path"`
}

// ValidationFailure is one entry of Radarr's 400 validation response.
type ValidationFailure struct {
	PropertyName string `json:"propertyName"`
	ErrorMessage string `json:"errorMessage"`
}
