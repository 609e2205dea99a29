// Package cluster groups spatially-close map entities into marker clusters so
// the view can render a count bubble instead of overdrawn pins.
package cluster

import (
	"mapengine.pawmap.org/internal/geo"
	"mapengine.pawmap.org/internal/models"
)

// candidate is one entity flattened out of the two typed collections.
type candidate struct {
	ref   models.EntityRef
	coord models.Coordinate
}

// Build runs a greedy single pass over both filtered collections and returns
// the clusters plus the refs left to render as individual markers.
//
// The pass is deliberately not globally optimal: for each unprocessed
// candidate it collects every other still-unprocessed candidate within
// radiusDegrees (planar degree-space distance, a rendering-scale
// approximation), forms a cluster at their arithmetic mean, and marks the
// members processed. Candidates with no neighbors stay unclustered; a cluster
// therefore always has at least two members. When three candidates are
// mutually near but not all pairwise within radius, membership depends on
// input order. That sensitivity is retained on purpose: strict pairwise
// grouping keeps each cluster's diameter bounded by 2*radiusDegrees, which a
// transitive chain would not. Complexity is O(n²), fine for the few hundred
// entities a metro view holds.
func Build(animals []models.Animal, emergencies []models.EmergencyReport, radiusDegrees float64) (clusters []models.MarkerCluster, unclustered []models.EntityRef) {
	cands := make([]candidate, 0, len(animals)+len(emergencies))
	for _, a := range animals {
		cands = append(cands, candidate{
			ref:   models.EntityRef{Kind: models.KindAnimal, ID: a.ID},
			coord: a.Coordinate,
		})
	}
	for _, e := range emergencies {
		cands = append(cands, candidate{
			ref:   models.EntityRef{Kind: models.KindEmergency, ID: e.ID},
			coord: e.Coordinate,
		})
	}

	processed := make([]bool, len(cands))

	for i, c := range cands {
		if processed[i] {
			continue
		}

		var neighbors []int
		for j, other := range cands {
			if j == i || processed[j] {
				continue
			}
			if geo.DegreeDistance(c.coord, other.coord) <= radiusDegrees {
				neighbors = append(neighbors, j)
			}
		}

		if len(neighbors) == 0 {
			// Left unprocessed: a later candidate may still pull it in.
			continue
		}

		members := make([]models.EntityRef, 0, len(neighbors)+1)
		coords := make([]models.Coordinate, 0, len(neighbors)+1)

		processed[i] = true
		members = append(members, c.ref)
		coords = append(coords, c.coord)
		for _, j := range neighbors {
			processed[j] = true
			members = append(members, cands[j].ref)
			coords = append(coords, cands[j].coord)
		}

		center := geo.MeanCenter(coords)
		clusters = append(clusters, models.MarkerCluster{
			ID:        geo.CellID(center),
			Center:    center,
			MemberIDs: members,
			Count:     len(members),
		})
	}

	for i, c := range cands {
		if !processed[i] {
			unclustered = append(unclustered, c.ref)
		}
	}

	return clusters, unclustered
}
