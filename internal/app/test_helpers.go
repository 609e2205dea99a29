package app

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"mapengine.pawmap.org/internal/config"
	"mapengine.pawmap.org/internal/models"
)

const testDogRows = `[
	{"id": "near", "name": "Luna", "breed": "husky", "size": "large",
	 "category": "stray", "age": 3, "latitude": 40.01, "longitude": -74.0},
	{"id": "mid", "name": "Rex", "breed": "beagle", "size": "small",
	 "category": "owned", "age": 5, "latitude": 40.03, "longitude": -74.0}
]`

const testReportRows = `[
	{"id": "e1", "category": "injured", "description": "limping near the park",
	 "severity": "high", "status": "open", "latitude": 40.012, "longitude": -74.0,
	 "volunteers_needed": 2, "volunteers_responded": 0}
]`

// testBackend stands in for the hosted backend: the proximity RPC plus the
// open emergency reports read. It counts RPC hits so tests can assert on
// refetch behavior.
type testBackend struct {
	*httptest.Server
	rpcCalls atomic.Int32
}

func newTestBackend(t *testing.T) *testBackend {
	t.Helper()

	backend := &testBackend{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /rest/v1/rpc/dogs_within_radius", func(w http.ResponseWriter, r *http.Request) {
		backend.rpcCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(testDogRows))
	})
	mux.HandleFunc("GET /rest/v1/emergency_reports", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(testReportRows))
	})

	backend.Server = httptest.NewServer(mux)
	t.Cleanup(backend.Close)
	return backend
}

func newTestApplication(t *testing.T) *Application {
	t.Helper()

	application, _ := newTestApplicationWithDebounce(t, 0)
	return application
}

func newTestApplicationWithDebounce(t *testing.T, debounceMs int) (*Application, *testBackend) {
	t.Helper()

	backend := newTestBackend(t)

	lat, lng := 40.0, -74.0
	settings := models.EngineSettings{
		Backend: models.Backend{BaseURL: backend.URL, APIKey: "test-key"},
		Location: models.LocationBridge{
			StaticLatitude:  &lat,
			StaticLongitude: &lng,
		},
		DebounceMs: debounceMs,
	}

	cfg := config.NewConfig(4000, "testing", settings)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	application, err := New(cfg, logger, backend.Client(), "test-version")
	if err != nil {
		t.Fatalf("failed to build application: %v", err)
	}
	t.Cleanup(application.ViewModel.Close)
	return application, backend
}
