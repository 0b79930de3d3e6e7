package domain

// BulkItem is one entry of a bulk create request. original_url is the
// field name of the public API; url is still accepted from older clients.
type BulkItem struct {
	OriginalURL    string `json:"original_url"`
	URL            string `json:"url,omitempty"`
	CustomAlias    string `json:"custom_alias,omitempty"`
	ExpiresInHours *int   `json:"expires_in_hours,omitempty"`
}

// Target returns the destination URL, preferring original_url.
func (b BulkItem) Target() string {
	if b.OriginalURL != "" {
		return b.OriginalURL
	}
	return b.URL
}

// CreateRequest converts the item into a single Create request.
func (b BulkItem) CreateRequest() CreateRequest {
	return CreateRequest{
		URL:            b.Target(),
		CustomAlias:    b.CustomAlias,
		ExpiresInHours: b.ExpiresInHours,
	}
}
