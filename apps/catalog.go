package apps

import (
	"context"
	"net/http"

	"github.com/alexhail/quickcontroller/apiclient"
)

// CatalogEntry is the server's metadata for one app.
type CatalogEntry struct {
	AppID         string `json:"app_id"`
	DisplayName   string `json:"display_name"`
	Icon          string `json:"icon"`
	DefaultAccess bool   `json:"default_access"`
}

// FetchCatalog lists the apps known to the server.
func FetchCatalog(ctx context.Context, client Requester) ([]CatalogEntry, error) {
	var entries []CatalogEntry
	if err := client.DoJSON(ctx, http.MethodGet, apiclient.EndpointApps, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
