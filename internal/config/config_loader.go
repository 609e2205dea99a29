package config

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"gopkg.in/yaml.v3"
	"mapengine.pawmap.org/internal/models"
	"mapengine.pawmap.org/internal/report"
	"mapengine.pawmap.org/internal/utils"
)

// ValidateConfigFlags ensures that only one configuration source is specified:
// either a config file "--config-file", a remote config URL "--config-url".
//
// Returns an error if more than one input method is specified.
func ValidateConfigFlags(configFile, configURL *string) error {
	if *configFile == "" && *configURL == "" {
		return fmt.Errorf("no configuration provided, either --config-file or --config-url must be specified")
	}
	if (*configFile != "" && *configURL != "") || (*configFile != "" && len(flag.Args()) > 0) || (*configURL != "" && len(flag.Args()) > 0) {
		return fmt.Errorf("only one of --config-file or --config-url can be specified")
	}
	return nil
}

// refreshConfig starts a background loop that periodically fetches
// configuration from a remote URL and swaps in the new engine settings.
//
// It uses the provided HTTP client to make GET requests with optional basic
// auth, and on success updates the configuration via cfg.UpdateSettings.
//
// Errors during fetch or parse are logged and reported to Sentry, but the
// loop continues, ensuring resiliency in the presence of transient issues.
//
// The routine stops gracefully when the context is canceled.
func refreshConfig(ctx context.Context, client *http.Client, configURL, configAuthUser, configAuthPass string, cfg *Config, logger *slog.Logger, interval time.Duration, maxRetries int) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping config refresh routine")
			return
		default:
			settings, err := loadConfigFromURL(ctx, client, configURL, configAuthUser, configAuthPass, maxRetries)
			if err != nil {
				report.ReportErrorWithOptions(err, report.Options{
					Tags:  utils.MakeMap("config_url", configURL),
					Level: sentry.LevelError,
				})
				logger.Error("Failed to refresh remote config", "error", err)
			} else if err := Validate(settings); err != nil {
				logger.Error("Rejected invalid remote config", "error", err)
			} else {
				cfg.UpdateSettings(settings)
				logger.Info("Successfully refreshed engine settings")
			}
			time.Sleep(interval)
		}
	}
}

// loadConfigFromFile reads a configuration file from disk and unmarshals it
// into the engine settings. Files ending in .yaml or .yml are parsed as
// YAML, everything else as JSON.
//
// On error, it reports issues to Sentry and returns a descriptive error.
func loadConfigFromFile(filePath string) (models.EngineSettings, error) {
	var settings models.EngineSettings

	data, err := os.ReadFile(filePath)
	if err != nil {
		report.ReportErrorWithOptions(err, report.Options{
			Tags:  utils.MakeMap("file_path", filePath),
			Level: sentry.LevelError,
		})
		return settings, fmt.Errorf("failed to read config file: %v", err)
	}

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &settings)
	default:
		err = json.Unmarshal(data, &settings)
	}
	if err != nil {
		report.ReportErrorWithOptions(err, report.Options{
			Tags:  utils.MakeMap("file_path", filePath),
			Level: sentry.LevelError,
		})
		return settings, fmt.Errorf("failed to unmarshal config: %v", err)
	}

	return settings, nil
}

// loadConfigFromURL fetches a JSON configuration from a remote HTTP(S)
// endpoint, using the provided client and optional basic authentication.
//
// It validates the response status, reads the body, and unmarshals the
// configuration into the engine settings.
//
// Errors are reported to Sentry for observability.
func loadConfigFromURL(ctx context.Context, client *http.Client, url, authUser, authPass string, maxRetries int) (models.EngineSettings, error) {
	var settings models.EngineSettings

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		report.ReportErrorWithOptions(err, report.Options{
			Tags:  utils.MakeMap("config_url", url),
			Level: sentry.LevelError,
		})
		return settings, fmt.Errorf("failed to create request: %v", err)
	}

	if authUser != "" && authPass != "" {
		req.SetBasicAuth(authUser, authPass)
	}

	resp, err := DoWithBackoff(ctx, client, req, maxRetries)
	if err != nil {
		report.ReportErrorWithOptions(err, report.Options{
			Tags:  utils.MakeMap("config_url", url),
			Level: sentry.LevelError,
		})
		return settings, fmt.Errorf("failed to fetch remote config: %v", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("remote config returned status: %d", resp.StatusCode)
		report.ReportErrorWithOptions(statusErr, report.Options{
			Tags:  utils.MakeMap("config_url", url),
			Level: sentry.LevelError,
		})
		return settings, statusErr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return settings, fmt.Errorf("failed to read remote config: %v", err)
	}

	if err := json.Unmarshal(data, &settings); err != nil {
		report.ReportErrorWithOptions(err, report.Options{
			Tags:  utils.MakeMap("config_url", url),
			Level: sentry.LevelError,
		})
		return settings, fmt.Errorf("failed to unmarshal JSON: %v", err)
	}

	return settings, nil
}

// DoWithBackoff issues the request, retrying with exponential backoff and
// jitter on transport errors and 5xx responses. Client errors (4xx) are not
// retried. The last response or error is returned after maxRetries attempts.
func DoWithBackoff(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	delay := BaseBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(withJitter(delay)):
			}
			delay = nextDelay(delay)
		}

		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("server returned status: %d", resp.StatusCode)
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			continue
		}
		return resp, nil
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, lastErr)
}
