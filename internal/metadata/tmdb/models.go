package tmdb

// FindResponse is the response from the /find/{external_id} endpoint.
type FindResponse struct {
	MovieResults []FindResult `json:"movie_results"`
	TVResults    []FindResult `json:"tv_results"`
}

// FindResult is one match returned by /find.
type FindResult struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Name  string `json:"name"`
}

// ExternalIDsResponse is the response from the external_ids endpoints.
type ExternalIDsResponse struct {
	ImdbID string `json:"imdb_id"`
	TvdbID int    `json:"tvdb_id"`
}
