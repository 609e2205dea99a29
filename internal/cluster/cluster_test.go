package cluster

import (
	"math"
	"testing"

	"mapengine.pawmap.org/internal/models"
)

func animalAt(id string, lat, lon float64) models.Animal {
	return models.Animal{ID: id, Coordinate: models.Coordinate{Latitude: lat, Longitude: lon}}
}

func emergencyAt(id string, lat, lon float64) models.EmergencyReport {
	return models.EmergencyReport{ID: id, Coordinate: models.Coordinate{Latitude: lat, Longitude: lon}}
}

// Two close entities cluster; a distant third stays an individual marker.
func TestBuildBasicGrouping(t *testing.T) {
	animals := []models.Animal{
		animalAt("a1", 40.000, -74.000),
		animalAt("a2", 40.0005, -74.0005),
		animalAt("a3", 40.05, -74.05),
	}

	clusters, unclustered := Build(animals, nil, 0.01)

	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	c := clusters[0]
	if c.Count != 2 || len(c.MemberIDs) != 2 {
		t.Errorf("expected a 2-member cluster, got count=%d members=%d", c.Count, len(c.MemberIDs))
	}
	if math.Abs(c.Center.Latitude-40.00025) > 1e-9 || math.Abs(c.Center.Longitude+74.00025) > 1e-9 {
		t.Errorf("unexpected cluster center: %+v", c.Center)
	}
	if c.ID == "" {
		t.Error("cluster ID must be populated")
	}

	if len(unclustered) != 1 || unclustered[0].ID != "a3" {
		t.Errorf("expected a3 unclustered, got %v", unclustered)
	}
}

// Clusters mix entities from both collections and tag their origin.
func TestBuildMixedKinds(t *testing.T) {
	animals := []models.Animal{animalAt("a1", 40.000, -74.000)}
	emergencies := []models.EmergencyReport{emergencyAt("e1", 40.0003, -74.0003)}

	clusters, unclustered := Build(animals, emergencies, 0.01)

	if len(clusters) != 1 || len(unclustered) != 0 {
		t.Fatalf("expected one mixed cluster, got clusters=%d unclustered=%d", len(clusters), len(unclustered))
	}

	kinds := map[models.EntityKind]bool{}
	for _, ref := range clusters[0].MemberIDs {
		kinds[ref.Kind] = true
	}
	if !kinds[models.KindAnimal] || !kinds[models.KindEmergency] {
		t.Errorf("expected both kinds in cluster, got %v", clusters[0].MemberIDs)
	}
}

func TestBuildNoNeighborsNoClusters(t *testing.T) {
	animals := []models.Animal{
		animalAt("a1", 40.0, -74.0),
		animalAt("a2", 41.0, -75.0),
	}

	clusters, unclustered := Build(animals, nil, 0.01)
	if len(clusters) != 0 {
		t.Fatalf("expected no clusters, got %d", len(clusters))
	}
	if len(unclustered) != 2 {
		t.Fatalf("expected both entities unclustered, got %d", len(unclustered))
	}
}

// A single surviving entity never forms a cluster.
func TestBuildSingleton(t *testing.T) {
	clusters, unclustered := Build([]models.Animal{animalAt("only", 40.01, -74.0)}, nil, 0.01)
	if len(clusters) != 0 {
		t.Fatalf("singleton must not cluster, got %d clusters", len(clusters))
	}
	if len(unclustered) != 1 || unclustered[0].ID != "only" {
		t.Fatalf("expected the singleton as an individual marker, got %v", unclustered)
	}
}

// Every entity ends up in exactly one cluster or exactly one individual
// marker, and every cluster has at least two members.
func TestBuildPartition(t *testing.T) {
	animals := []models.Animal{
		animalAt("a1", 40.000, -74.000),
		animalAt("a2", 40.0004, -74.0004),
		animalAt("a3", 40.0008, -74.0008),
		animalAt("a4", 40.1, -74.1),
		animalAt("a5", 40.1002, -74.1002),
	}
	emergencies := []models.EmergencyReport{
		emergencyAt("e1", 40.2, -74.2),
		emergencyAt("e2", 40.0002, -74.0002),
	}

	clusters, unclustered := Build(animals, emergencies, 0.001)

	seen := map[models.EntityRef]int{}
	for _, c := range clusters {
		if c.Count != len(c.MemberIDs) {
			t.Errorf("cluster %s: count %d != members %d", c.ID, c.Count, len(c.MemberIDs))
		}
		if c.Count < 2 {
			t.Errorf("cluster %s has fewer than 2 members", c.ID)
		}
		for _, ref := range c.MemberIDs {
			seen[ref]++
		}
	}
	for _, ref := range unclustered {
		seen[ref]++
	}

	total := len(animals) + len(emergencies)
	if len(seen) != total {
		t.Errorf("expected %d distinct entities across clusters and markers, got %d", total, len(seen))
	}
	for ref, n := range seen {
		if n != 1 {
			t.Errorf("entity %v appears %d times", ref, n)
		}
	}
}

// The greedy pass measures neighbors against the unprocessed set at the time
// each outer candidate is visited, so a chain A-B-C where only adjacent pairs
// are within radius clusters {A,B} and leaves C alone.
func TestBuildChainStopsAtRadius(t *testing.T) {
	animals := []models.Animal{
		animalAt("a", 40.0000, -74.0),
		animalAt("b", 40.0009, -74.0),
		animalAt("c", 40.0018, -74.0),
	}

	clusters, unclustered := Build(animals, nil, 0.001)

	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if clusters[0].Count != 2 {
		t.Errorf("expected the adjacent pair only, got count %d", clusters[0].Count)
	}
	if len(unclustered) != 1 || unclustered[0].ID != "c" {
		t.Errorf("expected c left as an individual marker, got %v", unclustered)
	}
}
