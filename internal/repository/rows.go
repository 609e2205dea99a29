package repository

import (
	"time"

	"mapengine.pawmap.org/internal/geo"
	"mapengine.pawmap.org/internal/models"
)

// The backend returns loosely-typed rows: columns may be absent or null, and
// coordinates are known to arrive as (0,0) placeholders when the writing
// client never obtained a fix. Everything crossing the wire goes through a
// validating parse here; rows that fail it are dropped silently because bad
// coordinates are expected data noise, not an error condition.

type animalRow struct {
	ID        *string  `json:"id"`
	Name      *string  `json:"name"`
	Breed     *string  `json:"breed"`
	Size      *string  `json:"size"`
	Category  *string  `json:"category"`
	OwnerID   *string  `json:"owner_id"`
	OwnerName *string  `json:"owner_name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Age       *int     `json:"age"`
	Rating    *float64 `json:"rating"`
}

// toAnimal validates the row and annotates it with the distance from center.
// The second return is false when the row must be dropped.
func (r animalRow) toAnimal(center models.Coordinate) (models.Animal, bool) {
	if r.ID == nil || *r.ID == "" {
		return models.Animal{}, false
	}
	if r.Latitude == nil || r.Longitude == nil {
		return models.Animal{}, false
	}
	coord := models.Coordinate{Latitude: *r.Latitude, Longitude: *r.Longitude}
	if !geo.IsValidCoordinate(coord) {
		return models.Animal{}, false
	}

	a := models.Animal{
		ID:         *r.ID,
		Name:       deref(r.Name),
		Breed:      deref(r.Breed),
		Size:       deref(r.Size),
		Category:   models.AnimalCategory(deref(r.Category)),
		OwnerID:    deref(r.OwnerID),
		OwnerName:  deref(r.OwnerName),
		Coordinate: coord,
		Age:        r.Age,
		Rating:     r.Rating,
	}
	d := geo.DistanceKm(center, coord)
	a.DistanceKm = &d
	return a, true
}

type emergencyRow struct {
	ID                  *string  `json:"id"`
	Category            *string  `json:"category"`
	Severity            *string  `json:"severity"`
	Description         *string  `json:"description"`
	Status              *string  `json:"status"`
	Latitude            *float64 `json:"latitude"`
	Longitude           *float64 `json:"longitude"`
	VolunteersNeeded    *int     `json:"volunteers_needed"`
	VolunteersResponded *int     `json:"volunteers_responded"`
	CreatedAt           *string  `json:"created_at"`
}

// toReport validates the row, keeps only open reports, and annotates the
// distance from center. Timestamps that fail to parse are zeroed rather than
// rejecting the row; creation time is informational only.
func (r emergencyRow) toReport(center models.Coordinate) (models.EmergencyReport, bool) {
	if r.ID == nil || *r.ID == "" {
		return models.EmergencyReport{}, false
	}
	if r.Status != nil && *r.Status != "open" {
		return models.EmergencyReport{}, false
	}
	if r.Latitude == nil || r.Longitude == nil {
		return models.EmergencyReport{}, false
	}
	coord := models.Coordinate{Latitude: *r.Latitude, Longitude: *r.Longitude}
	if !geo.IsValidCoordinate(coord) {
		return models.EmergencyReport{}, false
	}

	var created time.Time
	if r.CreatedAt != nil {
		if t, err := time.Parse(time.RFC3339, *r.CreatedAt); err == nil {
			created = t
		}
	}

	e := models.EmergencyReport{
		ID:                  *r.ID,
		Category:            deref(r.Category),
		Severity:            models.Severity(deref(r.Severity)),
		Description:         deref(r.Description),
		Coordinate:          coord,
		VolunteersNeeded:    derefInt(r.VolunteersNeeded),
		VolunteersResponded: derefInt(r.VolunteersResponded),
		CreatedAt:           created,
	}
	d := geo.DistanceKm(center, coord)
	e.DistanceKm = &d
	return e, true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
