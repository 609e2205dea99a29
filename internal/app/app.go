package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"mapengine.pawmap.org/internal/config"
	"mapengine.pawmap.org/internal/location"
	"mapengine.pawmap.org/internal/mapview"
	"mapengine.pawmap.org/internal/models"
	"mapengine.pawmap.org/internal/repository"
)

// Application wires the configuration service, location provider, entity
// repository, and map view model together and serves the HTTP API on top of
// them.
type Application struct {
	ConfigService *config.ConfigService
	ViewModel     *mapview.ViewModel
	Tracker       *location.Tracker
	Backoffs      *config.BackoffStore
	Logger        *slog.Logger
	Version       string
}

// New creates and wires all dependencies for the Application.
// Accepts config, logger, client, and version as arguments.
func New(cfg *config.Config, logger *slog.Logger, client *http.Client, version string) (*Application, error) {
	settings := cfg.GetSettings()

	provider, err := location.FromSettings(settings.Location, client, logger)
	if err != nil {
		return nil, err
	}

	// A live bridge gets a tracker in front of it so position reads hit the
	// tracked fix instead of a fresh bridge call per pipeline run.
	var tracker *location.Tracker
	if settings.Location.Endpoint != "" {
		tracker = location.NewTracker(provider, 0)
		provider = tracker
	}

	repo := &dynamicRepository{cfg: cfg, client: client, logger: logger}

	vm := mapview.New(provider, repo, logger, mapview.Options{
		ClusterRadiusDegrees: settings.ClusterRadiusDegrees,
		Debounce:             time.Duration(settings.DebounceMs) * time.Millisecond,
	})

	return &Application{
		ConfigService: config.NewConfigService(logger, client, cfg),
		ViewModel:     vm,
		Tracker:       tracker,
		Backoffs:      config.NewBackoffStore(),
		Logger:        logger,
		Version:       version,
	}, nil
}

// dynamicRepository builds a repository from the current engine settings on
// every call, so a remote config refresh swapping the backend takes effect
// without restarting the pipeline.
type dynamicRepository struct {
	cfg    *config.Config
	client *http.Client
	logger *slog.Logger
}

func (d *dynamicRepository) FetchNearby(ctx context.Context, center models.Coordinate, radiusKm float64) (repository.FetchResult, error) {
	settings := d.cfg.GetSettings()
	repo := repository.New(settings.Backend, d.client, d.logger)
	return repo.FetchNearby(ctx, center, radiusKm)
}
