// Package filter applies the map view's multi-criteria filter to the fetched
// entity collections. Every predicate inspects only immutable entity fields
// plus the criteria, so the result is independent of predicate order and
// applying the same criteria twice is a no-op.
package filter

import (
	"strings"

	"mapengine.pawmap.org/internal/models"
)

// Result holds the two filtered collections. Input order is preserved; no
// entity is mutated.
type Result struct {
	Animals     []models.Animal
	Emergencies []models.EmergencyReport
}

// Apply runs all predicates over both collections and returns the survivors.
func Apply(criteria models.FilterCriteria, animals []models.Animal, emergencies []models.EmergencyReport) Result {
	var out Result

	if includesAnimals(criteria.Category) {
		for _, a := range animals {
			if animalMatches(criteria, a) {
				out.Animals = append(out.Animals, a)
			}
		}
	}

	if includesEmergencies(criteria.Category) {
		for _, e := range emergencies {
			if emergencyMatches(criteria, e) {
				out.Emergencies = append(out.Emergencies, e)
			}
		}
	}

	return out
}

// includesAnimals reports whether the category selector admits the animal
// collection at all.
func includesAnimals(c models.CategoryFilter) bool {
	switch c {
	case models.FilterAll, models.FilterAnimals,
		models.FilterStray, models.FilterOwned, models.FilterRescue:
		return true
	}
	return false
}

// includesEmergencies reports whether the category selector admits the
// emergency collection. A specific animal category excludes emergencies.
func includesEmergencies(c models.CategoryFilter) bool {
	return c == models.FilterAll || c == models.FilterEmergencies
}

func animalMatches(criteria models.FilterCriteria, a models.Animal) bool {
	return animalCategoryMatches(criteria.Category, a) &&
		animalTextMatches(criteria.Query, a) &&
		ageMatches(criteria, a.Age) &&
		sizeMatches(criteria.Size, a.Size) &&
		radiusMatches(criteria.RadiusKm, a.DistanceKm)
}

func emergencyMatches(criteria models.FilterCriteria, e models.EmergencyReport) bool {
	return emergencyTextMatches(criteria.Query, e) &&
		severityMatches(criteria.Severity, e.Severity) &&
		radiusMatches(criteria.RadiusKm, e.DistanceKm)
}

func animalCategoryMatches(c models.CategoryFilter, a models.Animal) bool {
	switch c {
	case models.FilterStray:
		return a.Category == models.CategoryStray
	case models.FilterOwned:
		return a.Category == models.CategoryOwned
	case models.FilterRescue:
		return a.Category == models.CategoryRescue
	}
	return true
}

// animalTextMatches performs a case-insensitive substring match over the
// animal's searchable fields. An empty query passes everything.
func animalTextMatches(query string, a models.Animal) bool {
	return textMatches(query, a.Name, a.Breed, a.OwnerName, string(a.Category))
}

func emergencyTextMatches(query string, e models.EmergencyReport) bool {
	return textMatches(query, e.Category, e.Description, string(e.Severity))
}

func textMatches(query string, fields ...string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// ageMatches checks the inclusive age range. Animals without an age pass:
// absence is not failure.
func ageMatches(criteria models.FilterCriteria, age *int) bool {
	if age == nil {
		return true
	}
	return *age >= criteria.AgeMin && *age <= criteria.AgeMax
}

func sizeMatches(want, got string) bool {
	if want == "" || want == "all" {
		return true
	}
	return strings.EqualFold(want, got)
}

func severityMatches(want string, got models.Severity) bool {
	if want == "" || want == "all" {
		return true
	}
	return strings.EqualFold(want, string(got))
}

// radiusMatches applies the distance cut. Entities without a computed
// distance pass: the repository's degraded path may not have annotated them,
// and "unknown" means include rather than hide.
func radiusMatches(radiusKm float64, distanceKm *float64) bool {
	if distanceKm == nil {
		return true
	}
	return *distanceKm <= radiusKm
}
