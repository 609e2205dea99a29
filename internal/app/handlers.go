package app

import (
	"encoding/json"
	"net/http"
	"strconv"

	"mapengine.pawmap.org/internal/geo"
	"mapengine.pawmap.org/internal/mapview"
	"mapengine.pawmap.org/internal/models"
	"mapengine.pawmap.org/internal/navigate"
)

// HealthStatus is the JSON body of /v1/healthcheck. Ready means a backend is
// configured; load balancers should not route map traffic before that.
type HealthStatus struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
	Version     string `json:"version"`
	Backend     bool   `json:"backend_configured"`
	Ready       bool   `json:"ready"`
}

// MapResponse is the JSON body of the map endpoints: pipeline state, active
// controls, and the last published render model.
type MapResponse struct {
	State      mapview.State         `json:"state"`
	Error      string                `json:"error,omitempty"`
	Criteria   models.FilterCriteria `json:"criteria"`
	Clustering bool                  `json:"clustering"`
	Region     *models.UserRegion    `json:"region,omitempty"`
	Render     models.RenderModel    `json:"render"`
}

func (app *Application) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	settings := app.ConfigService.Config.GetSettings()
	configured := settings.Backend.BaseURL != "" && settings.Backend.APIKey != ""

	status := HealthStatus{
		Status:      "available",
		Environment: app.ConfigService.Config.Env,
		Version:     app.Version,
		Backend:     configured,
		Ready:       configured,
	}

	w.Header().Set("Content-Type", "application/json")
	if !status.Ready {
		w.WriteHeader(http.StatusInternalServerError)
	}
	json.NewEncoder(w).Encode(status)
}

// mapHandler returns the current render model. Query params adjust the
// filter controls before the snapshot is taken; a radius change refetches,
// everything else re-filters locally.
func (app *Application) mapHandler(w http.ResponseWriter, r *http.Request) {
	patch, clustering, err := patchFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	if app.ViewModel.State() == mapview.StateIdle {
		app.ViewModel.Start(r.Context())
	}
	if patch != (mapview.CriteriaPatch{}) {
		app.ViewModel.SetCriteria(r.Context(), patch)
	}
	if clustering != nil {
		app.ViewModel.SetClustering(r.Context(), *clustering)
	}

	app.writeMapResponse(w)
}

func (app *Application) refreshHandler(w http.ResponseWriter, r *http.Request) {
	app.ViewModel.Refresh(r.Context())
	app.writeMapResponse(w)
}

func (app *Application) recenterHandler(w http.ResponseWriter, r *http.Request) {
	app.ViewModel.Recenter(r.Context())
	app.writeMapResponse(w)
}

// navigateHandler builds the external-maps handoff for a destination pin.
func (app *Application) navigateHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(q.Get("lng"), 64)
	dest := models.Coordinate{Latitude: lat, Longitude: lng}
	if latErr != nil || lngErr != nil || !geo.IsValidCoordinate(dest) {
		http.Error(w, "lat and lng must form a valid coordinate", http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(navigate.Build(dest, q.Get("label")))
}

func (app *Application) writeMapResponse(w http.ResponseWriter) {
	resp := MapResponse{
		State:      app.ViewModel.State(),
		Criteria:   app.ViewModel.Criteria(),
		Clustering: app.ViewModel.ClusteringEnabled(),
		Render:     app.ViewModel.Render(),
	}
	if err := app.ViewModel.Err(); err != nil {
		resp.Error = err.Error()
	}
	if region, ok := app.ViewModel.Region(); ok {
		resp.Region = &region
	}

	w.Header().Set("Content-Type", "application/json")
	if resp.State == mapview.StateError {
		w.WriteHeader(http.StatusBadGateway)
	}
	json.NewEncoder(w).Encode(resp)
}

// patchFromQuery translates map query params into a criteria patch. Absent
// params leave the current controls alone.
func patchFromQuery(r *http.Request) (mapview.CriteriaPatch, *bool, error) {
	q := r.URL.Query()
	var patch mapview.CriteriaPatch

	if q.Has("q") {
		v := q.Get("q")
		patch.Query = &v
	}
	if q.Has("category") {
		v := models.CategoryFilter(q.Get("category"))
		patch.Category = &v
	}
	if q.Has("age_min") {
		v, err := strconv.Atoi(q.Get("age_min"))
		if err != nil {
			return patch, nil, errParam("age_min")
		}
		patch.AgeMin = &v
	}
	if q.Has("age_max") {
		v, err := strconv.Atoi(q.Get("age_max"))
		if err != nil {
			return patch, nil, errParam("age_max")
		}
		patch.AgeMax = &v
	}
	if q.Has("size") {
		v := q.Get("size")
		patch.Size = &v
	}
	if q.Has("severity") {
		v := q.Get("severity")
		patch.Severity = &v
	}
	if q.Has("radius_km") {
		v, err := strconv.ParseFloat(q.Get("radius_km"), 64)
		if err != nil {
			return patch, nil, errParam("radius_km")
		}
		patch.RadiusKm = &v
	}

	var clustering *bool
	if q.Has("clustering") {
		v, err := strconv.ParseBool(q.Get("clustering"))
		if err != nil {
			return patch, nil, errParam("clustering")
		}
		clustering = &v
	}

	return patch, clustering, nil
}

type errParam string

func (e errParam) Error() string { return "invalid value for " + string(e) }
