package navigate

import (
	"strings"
	"testing"

	"mapengine.pawmap.org/internal/models"
)

func TestGeoURI(t *testing.T) {
	dest := models.Coordinate{Latitude: 40.7128, Longitude: -74.0060}

	t.Run("WithLabel", func(t *testing.T) {
		got := GeoURI(dest, "Luna the husky")
		if !strings.HasPrefix(got, "geo:40.712800,-74.006000") {
			t.Errorf("GeoURI = %q, want geo: prefix with coordinates", got)
		}
		if !strings.Contains(got, "q=40.712800,-74.006000(Luna+the+husky)") {
			t.Errorf("GeoURI = %q, want escaped pin label", got)
		}
	})

	t.Run("WithoutLabel", func(t *testing.T) {
		got := GeoURI(dest, "")
		if got != "geo:40.712800,-74.006000" {
			t.Errorf("GeoURI = %q, want bare deep link", got)
		}
	})
}

func TestWebURL(t *testing.T) {
	dest := models.Coordinate{Latitude: 40.7128, Longitude: -74.0060}

	got := WebURL(dest)
	if !strings.HasPrefix(got, "https://www.google.com/maps/dir/?") {
		t.Errorf("WebURL = %q, want maps directions URL", got)
	}
	if !strings.Contains(got, "destination=40.712800%2C-74.006000") {
		t.Errorf("WebURL = %q, want escaped destination", got)
	}
}

func TestBuild(t *testing.T) {
	dest := models.Coordinate{Latitude: 1.5, Longitude: 2.5}
	h := Build(dest, "vet clinic")
	if h.GeoURI == "" || h.WebURL == "" {
		t.Fatalf("Build returned incomplete handoff: %+v", h)
	}
}
