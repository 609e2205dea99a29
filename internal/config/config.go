package config

import (
	"fmt"
	"sync"

	"mapengine.pawmap.org/internal/models"
)

// Config holds all the configuration settings for our application.
type Config struct {
	Port     int
	Env      string
	Mu       sync.RWMutex
	Settings models.EngineSettings
}

// NewConfig creates a new instance of a Config struct.
func NewConfig(port int, env string, settings models.EngineSettings) *Config {
	return &Config{
		Port:     port,
		Env:      env,
		Settings: settings,
	}
}

// UpdateSettings safely replaces the engine settings.
func (cfg *Config) UpdateSettings(settings models.EngineSettings) {
	cfg.Mu.Lock()
	defer cfg.Mu.Unlock()
	cfg.Settings = settings
}

// GetSettings safely returns a copy of the engine settings.
// This method should be used to access the settings from other parts of the application.
func (cfg *Config) GetSettings() models.EngineSettings {
	cfg.Mu.RLock()
	defer cfg.Mu.RUnlock()
	return cfg.Settings
}

// Validate rejects settings the engine cannot start with.
func Validate(settings models.EngineSettings) error {
	if settings.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if settings.Backend.APIKey == "" {
		return fmt.Errorf("backend.api_key is required")
	}
	if settings.ClusterRadiusDegrees < 0 {
		return fmt.Errorf("cluster_radius_degrees must not be negative")
	}
	if settings.DebounceMs < 0 {
		return fmt.Errorf("debounce_ms must not be negative")
	}
	if settings.RefreshSeconds < 0 {
		return fmt.Errorf("refresh_seconds must not be negative")
	}
	return nil
}
