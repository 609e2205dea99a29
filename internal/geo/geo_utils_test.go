package geo

import (
	"math"
	"testing"

	"github.com/golang/geo/s2"
	"mapengine.pawmap.org/internal/models"
)

func TestDistanceKmSymmetry(t *testing.T) {
	pairs := []struct {
		name string
		a, b models.Coordinate
	}{
		{"same hemisphere", models.Coordinate{Latitude: 40.0, Longitude: -74.0}, models.Coordinate{Latitude: 40.01, Longitude: -74.0}},
		{"across equator", models.Coordinate{Latitude: -1.5, Longitude: 36.8}, models.Coordinate{Latitude: 1.2, Longitude: 36.9}},
		{"across antimeridian", models.Coordinate{Latitude: 52.0, Longitude: 179.9}, models.Coordinate{Latitude: 52.0, Longitude: -179.9}},
	}

	for _, tt := range pairs {
		t.Run(tt.name, func(t *testing.T) {
			ab := DistanceKm(tt.a, tt.b)
			ba := DistanceKm(tt.b, tt.a)
			if ab != ba {
				t.Errorf("distance not symmetric: %f vs %f", ab, ba)
			}
			if ab < 0 {
				t.Errorf("distance must be non-negative, got %f", ab)
			}
		})
	}
}

func TestDistanceKmZeroForSamePoint(t *testing.T) {
	p := models.Coordinate{Latitude: 47.6062, Longitude: -122.3321}
	if d := DistanceKm(p, p); d != 0 {
		t.Errorf("expected 0 for identical points, got %f", d)
	}
}

func TestDistanceKmKnownValue(t *testing.T) {
	// 0.01 degrees of latitude is roughly 1.11 km anywhere on the sphere.
	a := models.Coordinate{Latitude: 40.0, Longitude: -74.0}
	b := models.Coordinate{Latitude: 40.01, Longitude: -74.0}

	d := DistanceKm(a, b)
	if math.Abs(d-1.112) > 0.01 {
		t.Errorf("expected ~1.112 km, got %f", d)
	}
}

func TestDistanceKmAgreesWithS2(t *testing.T) {
	pairs := []struct {
		a, b models.Coordinate
	}{
		{models.Coordinate{Latitude: 40.0, Longitude: -74.0}, models.Coordinate{Latitude: 40.7, Longitude: -73.9}},
		{models.Coordinate{Latitude: -33.9, Longitude: 151.2}, models.Coordinate{Latitude: -37.8, Longitude: 144.9}},
		{models.Coordinate{Latitude: 59.3, Longitude: 18.1}, models.Coordinate{Latitude: 59.4, Longitude: 18.2}},
	}

	for _, tt := range pairs {
		want := s2.LatLngFromDegrees(tt.a.Latitude, tt.a.Longitude).
			Distance(s2.LatLngFromDegrees(tt.b.Latitude, tt.b.Longitude)).Radians() * earthRadiusKm
		got := DistanceKm(tt.a, tt.b)
		if math.Abs(got-want) > want*0.001 {
			t.Errorf("DistanceKm(%+v, %+v) = %f, s2 says %f", tt.a, tt.b, got, want)
		}
	}
}

func TestIsValidCoordinate(t *testing.T) {
	tests := []struct {
		name  string
		coord models.Coordinate
		want  bool
	}{
		{"valid point", models.Coordinate{Latitude: 40.0, Longitude: -74.0}, true},
		{"null island placeholder", models.Coordinate{Latitude: 0, Longitude: 0}, false},
		{"zero latitude only", models.Coordinate{Latitude: 0, Longitude: 36.8}, true},
		{"latitude out of range", models.Coordinate{Latitude: 91, Longitude: 10}, false},
		{"longitude out of range", models.Coordinate{Latitude: 10, Longitude: -181}, false},
		{"nan latitude", models.Coordinate{Latitude: math.NaN(), Longitude: 10}, false},
		{"infinite longitude", models.Coordinate{Latitude: 10, Longitude: math.Inf(1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidCoordinate(tt.coord); got != tt.want {
				t.Errorf("IsValidCoordinate(%+v) = %v, want %v", tt.coord, got, tt.want)
			}
		})
	}
}

func TestMeanCenter(t *testing.T) {
	coords := []models.Coordinate{
		{Latitude: 40.000, Longitude: -74.000},
		{Latitude: 40.001, Longitude: -74.001},
	}

	c := MeanCenter(coords)
	if math.Abs(c.Latitude-40.0005) > 1e-9 || math.Abs(c.Longitude+74.0005) > 1e-9 {
		t.Errorf("unexpected mean center: %+v", c)
	}

	if got := MeanCenter(nil); got != (models.Coordinate{}) {
		t.Errorf("expected zero coordinate for empty input, got %+v", got)
	}
}

func TestCellIDStable(t *testing.T) {
	p := models.Coordinate{Latitude: 47.6062, Longitude: -122.3321}
	q := models.Coordinate{Latitude: 47.7, Longitude: -122.3}

	if CellID(p) != CellID(p) {
		t.Error("cell ID must be stable for the same point")
	}
	if CellID(p) == CellID(q) {
		t.Error("distinct points should map to distinct leaf cells")
	}
}

func TestDegreeDistance(t *testing.T) {
	a := models.Coordinate{Latitude: 40.0, Longitude: -74.0}
	b := models.Coordinate{Latitude: 40.003, Longitude: -74.004}

	if d := DegreeDistance(a, b); math.Abs(d-0.005) > 1e-9 {
		t.Errorf("expected 0.005 degrees, got %f", d)
	}
	if DegreeDistance(a, b) != DegreeDistance(b, a) {
		t.Error("degree distance must be symmetric")
	}
}
