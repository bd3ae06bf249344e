package sonarr

// SystemStatus is the response of /api/v3/system/status.
type SystemStatus struct {
	Version string `json:"version"`
	AppName string `json:"appName"`
}

// Series is one entry of the series inventory.
type Series struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Year   int    `json:"year"`
	TvdbID int    `json:"tvdbId"`
	ImdbID string `json:"imdbId"`
}

// AddSeriesRequest is the payload for POST /api/v3/series.
type AddSeriesRequest struct {
	Title            string     `json:"title"`
	TvdbID           int        `json:"tvdbId"`
	QualityProfileID int        `json:"qualityProfileId"`
	RootFolderPath   string     `json:"rootFolderPath"`
	Monitored        bool       `json:"monitored"`
	SeasonFolder     bool       `json:"seasonFolder"`
	AddOptions       AddOptions `json:"addOptions"`
}

// AddOptions controls Sonarr's post-add behavior.
type AddOptions struct {
	SearchForMissingEpisodes bool `json:"searchForMissingEpisodes"`
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

// ValidationFailure is one entry of Sonarr's 400 validation response.
type ValidationFailure struct {
	PropertyName string `json:"propertyName"`
	ErrorMessage string `json:"errorMessage"`
}
