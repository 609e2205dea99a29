package geo

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"

	"mapengine.pawmap.org/internal/models"
)

// earthRadiusKm is the Earth's volumetric mean radius, the usual choice for
// spherical approximations.
//
// Reference: NASA Planetary Fact Sheet – Earth
// https://nssdc.gsfc.nasa.gov/planetary/factsheet/earthfact.html
const earthRadiusKm = 6371.0

// DistanceKm returns the haversine great-circle distance in kilometres
// between two points. It is symmetric and returns 0 for identical points.
// Callers are responsible for excluding invalid coordinates first.
func DistanceKm(a, b models.Coordinate) float64 {
	dLat := degreesToRadians(b.Latitude - a.Latitude)
	dLon := degreesToRadians(b.Longitude - a.Longitude)

	rLat1 := degreesToRadians(a.Latitude)
	rLat2 := degreesToRadians(b.Latitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// DegreeDistance returns the planar Euclidean distance between two points in
// raw latitude/longitude degree space. This is not a geographic distance; it
// is a cheap approximation that holds up at single-metro map scale, where the
// clustering threshold lives.
func DegreeDistance(a, b models.Coordinate) float64 {
	return math.Hypot(a.Latitude-b.Latitude, a.Longitude-b.Longitude)
}

// IsValidCoordinate returns true if the coordinate falls within geographic
// bounds and carries real numbers.
//
// Note: (0,0) is treated as invalid even though it is a real location in the
// Gulf of Guinea. Upstream writers use (0,0) as an uninitialized placeholder,
// so it must be rejected rather than mapped.
func IsValidCoordinate(c models.Coordinate) bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) ||
		math.IsInf(c.Latitude, 0) || math.IsInf(c.Longitude, 0) {
		return false
	}
	if c.Latitude == 0 && c.Longitude == 0 {
		return false
	}
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return false
	}
	return true
}

// MeanCenter returns the arithmetic mean of the given coordinates. The zero
// value is returned for an empty slice.
func MeanCenter(coords []models.Coordinate) models.Coordinate {
	if len(coords) == 0 {
		return models.Coordinate{}
	}
	var lat, lon float64
	for _, c := range coords {
		lat += c.Latitude
		lon += c.Longitude
	}
	n := float64(len(coords))
	return models.Coordinate{Latitude: lat / n, Longitude: lon / n}
}

// CellID generates a stable S2-based identifier for a point. Leaf cells are
// used so distinct centers get distinct IDs.
func CellID(c models.Coordinate) string {
	ll := s2.LatLngFromDegrees(c.Latitude, c.Longitude)
	return fmt.Sprintf("s2_%d", uint64(s2.CellIDFromLatLng(ll)))
}
