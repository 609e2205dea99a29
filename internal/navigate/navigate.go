// Package navigate builds handoff URLs for external map applications. The
// engine does no route planning itself; turn-by-turn is delegated to
// whatever maps app the device has.
package navigate

import (
	"fmt"
	"net/url"

	"mapengine.pawmap.org/internal/models"
)

// Handoff carries both forms of the external-maps link: the geo: deep link
// most mobile platforms resolve natively, and a web URL fallback.
type Handoff struct {
	GeoURI string `json:"geo_uri"`
	WebURL string `json:"web_url"`
}

// Build returns the handoff links for a destination. The label is optional
// and only decorates the deep link pin.
func Build(dest models.Coordinate, label string) Handoff {
	return Handoff{
		GeoURI: GeoURI(dest, label),
		WebURL: WebURL(dest),
	}
}

// GeoURI renders a geo: deep link, with an optional q= pin label.
func GeoURI(dest models.Coordinate, label string) string {
	uri := fmt.Sprintf("geo:%f,%f", dest.Latitude, dest.Longitude)
	if label != "" {
		uri += fmt.Sprintf("?q=%f,%f(%s)", dest.Latitude, dest.Longitude, url.QueryEscape(label))
	}
	return uri
}

// WebURL renders the web-maps directions fallback for platforms without a
// geo: handler.
func WebURL(dest models.Coordinate) string {
	q := url.Values{}
	q.Set("api", "1")
	q.Set("destination", fmt.Sprintf("%f,%f", dest.Latitude, dest.Longitude))
	return "https://www.google.com/maps/dir/?" + q.Encode()
}
