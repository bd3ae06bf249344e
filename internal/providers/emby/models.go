package emby

// SystemInfo is the response of /System/Info.
type SystemInfo struct {
	ServerName string `json:"ServerName"`
	Version    string `json:"Version"`
	ID         string `json:"Id"`
}

// Item is one library item as returned by /Items.
type Item struct {
	ID          string            `json:"Id"`
	Name        string            `json:"Name"`
	Type        string            `json:"Type"`
	ProviderIDs map[string]string `json:"ProviderIds"`
}

// ItemsResponse is the envelope of /Items queries.
type ItemsResponse struct {
	Items            []Item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
}

// CreateCollectionResponse is the response of POST /Collections.
type CreateCollectionResponse struct {
	ID string `json:"Id"`
}
