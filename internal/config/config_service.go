package config

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"mapengine.pawmap.org/internal/models"
	"mapengine.pawmap.org/internal/report"
	"mapengine.pawmap.org/internal/utils"
)

// defaultLoadRetries bounds the backoff loop for remote config fetches.
const defaultLoadRetries = 3

// ConfigService holds dependencies and provides config operations.
type ConfigService struct {
	Logger *slog.Logger
	Client *http.Client
	Config *Config
}

// NewConfigService creates a new ConfigService instance with the provided logger and HTTP client.
func NewConfigService(logger *slog.Logger, client *http.Client, config *Config) *ConfigService {
	return &ConfigService{
		Logger: logger,
		Client: client,
		Config: config,
	}
}

// RefreshConfig blocks, polling the remote config URL until the context is
// canceled. Run it on its own goroutine.
func (cs *ConfigService) RefreshConfig(ctx context.Context, url, authUser, authPass string, interval time.Duration) {
	refreshConfig(ctx, cs.Client, url, authUser, authPass, cs.Config, cs.Logger, interval, defaultLoadRetries)
}

// LoadConfigFromFile loads engine settings from a JSON or YAML file on disk.
func LoadConfigFromFile(filePath string) (models.EngineSettings, error) {
	settings, err := loadConfigFromFile(filePath)
	if err != nil {
		err := fmt.Errorf("failed to load config from file %s: %w", filePath, err)
		report.ReportErrorWithOptions(err, report.Options{
			Tags:  utils.MakeMap("file_path", filePath),
			Level: sentry.LevelError,
		})
		return settings, err
	}
	return settings, nil
}

// LoadConfigFromURL loads engine settings from a remote endpoint with
// optional basic auth.
func LoadConfigFromURL(ctx context.Context, client *http.Client, url, authUser, authPass string) (models.EngineSettings, error) {
	settings, err := loadConfigFromURL(ctx, client, url, authUser, authPass, defaultLoadRetries)
	if err != nil {
		err := fmt.Errorf("failed to load config from URL %s: %w", url, err)
		report.ReportErrorWithOptions(err, report.Options{
			Tags:  utils.MakeMap("config_url", url),
			Level: sentry.LevelError,
		})
		return settings, err
	}
	return settings, nil
}
