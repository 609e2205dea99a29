package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mapengine.pawmap.org/internal/mapview"
	"mapengine.pawmap.org/internal/models"
)

func TestHealthcheckHandler(t *testing.T) {
	app := newTestApplication(t)

	rr := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/v1/healthcheck", nil)

	app.healthcheckHandler(rr, request)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v",
			status, http.StatusOK)
	}

	var resp HealthStatus
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Status != "available" {
		t.Errorf("expected status 'available', got %q", resp.Status)
	}
	if resp.Environment != "testing" {
		t.Errorf("expected environment 'testing', got %q", resp.Environment)
	}
	if resp.Version != "test-version" {
		t.Errorf("expected version 'test-version', got %q", resp.Version)
	}
	if !resp.Ready {
		t.Errorf("expected ready true, got false")
	}
}

func TestHealthcheckHandlerNotReady(t *testing.T) {
	app := newTestApplication(t)
	app.ConfigService.Config.UpdateSettings(models.EngineSettings{})

	rr := httptest.NewRecorder()
	app.healthcheckHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/healthcheck", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 without a configured backend, got %d", rr.Code)
	}
}

func TestMapHandler(t *testing.T) {
	app := newTestApplication(t)

	rr := httptest.NewRecorder()
	app.mapHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/map", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}

	var resp MapResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.State != mapview.StateReady {
		t.Fatalf("state = %q, want %q", resp.State, mapview.StateReady)
	}
	if len(resp.Render.Animals) != 2 {
		t.Errorf("animals = %d, want 2", len(resp.Render.Animals))
	}
	if len(resp.Render.Emergencies) != 1 {
		t.Errorf("emergencies = %d, want 1", len(resp.Render.Emergencies))
	}
	if resp.Region == nil || resp.Region.Center.Latitude != 40.0 {
		t.Errorf("region = %+v, want centered on the static fix", resp.Region)
	}
	// Animals come back nearest first.
	if resp.Render.Animals[0].ID != "near" {
		t.Errorf("first animal = %q, want near", resp.Render.Animals[0].ID)
	}
}

func TestMapHandlerFilterParams(t *testing.T) {
	app := newTestApplication(t)

	rr := httptest.NewRecorder()
	app.mapHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/map?q=luna&category=stray", nil))

	var resp MapResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(resp.Render.Animals) != 1 || resp.Render.Animals[0].ID != "near" {
		t.Errorf("filtered animals = %+v, want only Luna", resp.Render.Animals)
	}
	if len(resp.Render.Emergencies) != 0 {
		t.Errorf("specific animal category should exclude emergencies, got %d", len(resp.Render.Emergencies))
	}
	if resp.Criteria.Query != "luna" {
		t.Errorf("criteria query = %q, want luna", resp.Criteria.Query)
	}
}

func TestMapHandlerClusteringToggle(t *testing.T) {
	app := newTestApplication(t)

	rr := httptest.NewRecorder()
	app.mapHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/map?clustering=false", nil))

	var resp MapResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Clustering {
		t.Errorf("clustering still enabled after toggle param")
	}
	if len(resp.Render.Clusters) != 0 {
		t.Errorf("clusters rendered with clustering off")
	}
}

// A debounced radius change arrives over a real server, so the request
// context is canceled as soon as the response is written. The settled change
// must still refetch after the quiet period.
func TestMapHandlerDebouncedRadiusChangeRefetches(t *testing.T) {
	app, backend := newTestApplicationWithDebounce(t, 50)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := httptest.NewServer(app.Routes(ctx))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/map")
	if err != nil {
		t.Fatalf("initial map request failed: %v", err)
	}
	resp.Body.Close()
	if got := backend.rpcCalls.Load(); got != 1 {
		t.Fatalf("rpc calls after first request = %d, want 1", got)
	}

	resp, err = http.Get(srv.URL + "/v1/map?radius_km=25")
	if err != nil {
		t.Fatalf("radius change request failed: %v", err)
	}
	var mapResp MapResponse
	if err := json.NewDecoder(resp.Body).Decode(&mapResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	resp.Body.Close()
	if mapResp.Criteria.RadiusKm != 25 {
		t.Fatalf("criteria radius = %v, want 25", mapResp.Criteria.RadiusKm)
	}

	deadline := time.Now().Add(2 * time.Second)
	for backend.rpcCalls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := backend.rpcCalls.Load(); got != 2 {
		t.Fatalf("rpc calls = %d, want 2 (settled radius change must refetch)", got)
	}
}

func TestMapHandlerInvalidParam(t *testing.T) {
	app := newTestApplication(t)

	rr := httptest.NewRecorder()
	app.mapHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/map?radius_km=wide", nil))

	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for malformed radius, got %d", rr.Code)
	}
}

func TestRefreshAndRecenterHandlers(t *testing.T) {
	app := newTestApplication(t)

	rr := httptest.NewRecorder()
	app.refreshHandler(rr, httptest.NewRequest(http.MethodPost, "/v1/map/refresh", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh returned %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	app.recenterHandler(rr, httptest.NewRequest(http.MethodPost, "/v1/map/recenter", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("recenter returned %d", rr.Code)
	}

	var resp MapResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.State != mapview.StateReady {
		t.Errorf("state = %q, want %q", resp.State, mapview.StateReady)
	}
}

func TestNavigateHandler(t *testing.T) {
	app := newTestApplication(t)

	t.Run("ValidDestination", func(t *testing.T) {
		rr := httptest.NewRecorder()
		app.navigateHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/navigate?lat=40.01&lng=-74.0&label=Luna", nil))

		if rr.Code != http.StatusOK {
			t.Fatalf("handler returned %d", rr.Code)
		}
		var resp struct {
			GeoURI string `json:"geo_uri"`
			WebURL string `json:"web_url"`
		}
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.GeoURI == "" || resp.WebURL == "" {
			t.Errorf("incomplete handoff: %+v", resp)
		}
	})

	t.Run("PlaceholderDestination", func(t *testing.T) {
		rr := httptest.NewRecorder()
		app.navigateHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/navigate?lat=0&lng=0", nil))

		if rr.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected 422 for null island destination, got %d", rr.Code)
		}
	})

	t.Run("MissingDestination", func(t *testing.T) {
		rr := httptest.NewRecorder()
		app.navigateHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/navigate", nil))

		if rr.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected 422 without coordinates, got %d", rr.Code)
		}
	})
}

func TestRoutes(t *testing.T) {
	app := newTestApplication(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(app.Routes(ctx))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/healthcheck")
	if err != nil {
		t.Fatalf("healthcheck request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthcheck status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("security headers missing, X-Content-Type-Options = %q", got)
	}

	metricsResp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer metricsResp.Body.Close()
	if metricsResp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d", metricsResp.StatusCode)
	}
}

func TestRefreshTickBacksOffOnFailure(t *testing.T) {
	app := newTestApplication(t)
	ctx := context.Background()

	app.refreshTick(ctx)
	if app.ViewModel.State() != mapview.StateReady {
		t.Fatalf("state = %q, want ready", app.ViewModel.State())
	}
	if _, exists := app.Backoffs.NextRetryAt("pipeline"); exists {
		t.Fatalf("backoff set after successful tick")
	}

	// Point the engine at a dead backend and tick again.
	app.ConfigService.Config.UpdateSettings(models.EngineSettings{
		Backend: models.Backend{BaseURL: "http://127.0.0.1:1", APIKey: "k"},
	})
	app.refreshTick(ctx)

	if app.ViewModel.State() != mapview.StateError {
		t.Fatalf("state = %q, want error", app.ViewModel.State())
	}
	next, exists := app.Backoffs.NextRetryAt("pipeline")
	if !exists {
		t.Fatalf("backoff not set after failed tick")
	}
	if !next.After(time.Now().UTC()) {
		t.Fatalf("next retry %v is not in the future", next)
	}

	// While inside the backoff window the tick is a no-op.
	before := app.ViewModel.State()
	app.refreshTick(ctx)
	if app.ViewModel.State() != before {
		t.Errorf("tick ran despite active backoff")
	}
}

func TestDynamicRepositoryTracksSettings(t *testing.T) {
	app := newTestApplication(t)

	// First run succeeds against the test backend.
	app.ViewModel.Start(context.Background())
	if app.ViewModel.State() != mapview.StateReady {
		t.Fatalf("state = %q, want ready", app.ViewModel.State())
	}

	// Swapping the backend via config takes effect on the next fetch.
	settings := app.ConfigService.Config.GetSettings()
	settings.Backend.BaseURL = "http://127.0.0.1:1"
	app.ConfigService.Config.UpdateSettings(settings)

	app.ViewModel.Refresh(context.Background())
	if app.ViewModel.State() != mapview.StateError {
		t.Errorf("state = %q, want error after backend swap", app.ViewModel.State())
	}
}
