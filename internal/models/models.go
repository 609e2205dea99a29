package models

import "time"

// Coordinate is a WGS84 point in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// AnimalCategory describes how an animal entered the system.
type AnimalCategory string

const (
	CategoryStray  AnimalCategory = "stray"
	CategoryOwned  AnimalCategory = "owned"
	CategoryRescue AnimalCategory = "rescue"
)

// Animal represents a dog visible on the map. DistanceKm is derived from the
// current query center and is recomputed on every fetch; it is never persisted.
type Animal struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Breed      string         `json:"breed"`
	Size       string         `json:"size"`
	Category   AnimalCategory `json:"category"`
	OwnerID    string         `json:"owner_id,omitempty"`
	OwnerName  string         `json:"owner_name,omitempty"`
	Coordinate Coordinate     `json:"coordinate"`
	Age        *int           `json:"age,omitempty"`
	Rating     *float64       `json:"rating,omitempty"`
	DistanceKm *float64       `json:"distance_km,omitempty"`
}

// Severity is the triage level of an emergency report. The ordering
// low < medium < high is meaningful for visual priority.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank maps a severity onto an ordered scale. Unknown values rank below low
// so malformed rows sort last rather than jumping the queue.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	}
	return 0
}

// EmergencyReport is an open report of an animal in trouble. Only open
// reports ever reach the engine; resolution happens elsewhere.
type EmergencyReport struct {
	ID                  string     `json:"id"`
	Category            string     `json:"category"`
	Severity            Severity   `json:"severity"`
	Description         string     `json:"description"`
	Coordinate          Coordinate `json:"coordinate"`
	VolunteersNeeded    int        `json:"volunteers_needed"`
	VolunteersResponded int        `json:"volunteers_responded"`
	CreatedAt           time.Time  `json:"created_at"`
	DistanceKm          *float64   `json:"distance_km,omitempty"`
}

// Stale reports whether the volunteer counters are inconsistent. More
// responders than requested means the row lagged behind a close-out; the
// engine flags it instead of correcting it.
func (e EmergencyReport) Stale() bool {
	return e.VolunteersResponded > e.VolunteersNeeded
}

// CategoryFilter selects which entity collections (and which animal category)
// a map view considers.
type CategoryFilter string

const (
	FilterAll         CategoryFilter = "all"
	FilterAnimals     CategoryFilter = "animals"
	FilterEmergencies CategoryFilter = "emergencies"
	FilterStray       CategoryFilter = "stray"
	FilterOwned       CategoryFilter = "owned"
	FilterRescue      CategoryFilter = "rescue"
)

// FilterCriteria is the current set of user-chosen filter controls. It is a
// plain value recreated on every control change and never persisted.
type FilterCriteria struct {
	Query    string         `json:"query"`
	Category CategoryFilter `json:"category"`
	AgeMin   int            `json:"age_min"`
	AgeMax   int            `json:"age_max"`
	Size     string         `json:"size"`
	Severity string         `json:"severity"`
	RadiusKm float64        `json:"radius_km"`
}

// DefaultFilterCriteria returns the controls as they appear on a fresh map
// view: everything visible within 10 km.
func DefaultFilterCriteria() FilterCriteria {
	return FilterCriteria{
		Query:    "",
		Category: FilterAll,
		AgeMin:   0,
		AgeMax:   30,
		Size:     "all",
		Severity: "all",
		RadiusKm: 10,
	}
}

// EntityKind tags which collection a clustered entity came from.
type EntityKind string

const (
	KindAnimal    EntityKind = "animal"
	KindEmergency EntityKind = "emergency"
)

// EntityRef identifies one entity across the two collections.
type EntityRef struct {
	Kind EntityKind `json:"kind"`
	ID   string     `json:"id"`
}

// MarkerCluster is a transient visual grouping of nearby entities. It is
// recomputed from scratch on every pipeline run; Count always equals
// len(MemberIDs) and is at least 2.
type MarkerCluster struct {
	ID        string      `json:"id"`
	Center    Coordinate  `json:"center"`
	MemberIDs []EntityRef `json:"member_ids"`
	Count     int         `json:"count"`
}

// UserRegion is the current viewport: a center plus latitude/longitude spans
// acting as a zoom proxy.
type UserRegion struct {
	Center         Coordinate `json:"center"`
	LatitudeDelta  float64    `json:"latitude_delta"`
	LongitudeDelta float64    `json:"longitude_delta"`
}

// RenderModel is the final, immutable product of a pipeline run: the filtered
// entity lists plus clusters when clustering is enabled. StaleReports carries
// the IDs of reports whose volunteer counters are inconsistent.
type RenderModel struct {
	Animals      []Animal          `json:"animals"`
	Emergencies  []EmergencyReport `json:"emergencies"`
	Clusters     []MarkerCluster   `json:"clusters,omitempty"`
	StaleReports []string          `json:"stale_reports,omitempty"`
}

// Backend describes the hosted backend the repository talks to: a
// PostgREST-style REST surface with a public read key.
type Backend struct {
	BaseURL string `json:"base_url" yaml:"base_url"`
	APIKey  string `json:"api_key" yaml:"api_key"`
}

// LocationBridge describes where device positions come from. Endpoint points
// at a device-bridge service; when it is empty, the static coordinates are
// used instead (fixed kiosk deployments).
type LocationBridge struct {
	Endpoint        string   `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	StaticLatitude  *float64 `json:"static_latitude,omitempty" yaml:"static_latitude,omitempty"`
	StaticLongitude *float64 `json:"static_longitude,omitempty" yaml:"static_longitude,omitempty"`
}

// EngineSettings is the remotely loadable part of the configuration: backend
// endpoints plus pipeline tunables.
type EngineSettings struct {
	Backend              Backend        `json:"backend" yaml:"backend"`
	Location             LocationBridge `json:"location" yaml:"location"`
	ClusterRadiusDegrees float64        `json:"cluster_radius_degrees,omitempty" yaml:"cluster_radius_degrees,omitempty"`
	DebounceMs           int            `json:"debounce_ms,omitempty" yaml:"debounce_ms,omitempty"`
	RefreshSeconds       int            `json:"refresh_seconds,omitempty" yaml:"refresh_seconds,omitempty"`
}
