// Package location acquires the device position and exposes it as a map
// region. Positions come from a device-bridge endpoint (the app shell that
// owns the OS permission prompt and GPS) or from static coordinates for
// fixed installs.
package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"mapengine.pawmap.org/internal/geo"
	"mapengine.pawmap.org/internal/models"
)

// DefaultSpanDegrees is the viewport delta applied to a fresh fix: 0.02° is
// a few kilometers of map, a comfortable starting zoom.
const DefaultSpanDegrees = 0.02

var (
	// ErrPermissionDenied means the user declined location access. The map
	// cannot function without a center point, so this is surfaced as a
	// blocking, actionable condition rather than retried silently.
	ErrPermissionDenied = errors.New("location permission denied")

	// ErrPositionUnavailable is a transient acquisition failure; callers
	// may retry.
	ErrPositionUnavailable = errors.New("position unavailable")
)

// Provider yields the current user region.
type Provider interface {
	Acquire(ctx context.Context) (models.UserRegion, error)
}

// BridgeProvider asks the device bridge for a fix over HTTP. The bridge
// answers 403 while the OS permission is missing and 5xx while no fix is
// available.
type BridgeProvider struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

func NewBridgeProvider(endpoint string, client *http.Client, logger *slog.Logger) *BridgeProvider {
	return &BridgeProvider{
		endpoint: endpoint,
		client:   client,
		logger:   logger,
	}
}

func (p *BridgeProvider) Acquire(ctx context.Context) (models.UserRegion, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return models.UserRegion{}, fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return models.UserRegion{}, fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return models.UserRegion{}, ErrPermissionDenied
	case resp.StatusCode != http.StatusOK:
		return models.UserRegion{}, fmt.Errorf("%w: bridge returned status %d", ErrPositionUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.UserRegion{}, fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}

	var fix struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := json.Unmarshal(data, &fix); err != nil {
		return models.UserRegion{}, fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}

	center := models.Coordinate{Latitude: fix.Latitude, Longitude: fix.Longitude}
	if !geo.IsValidCoordinate(center) {
		return models.UserRegion{}, fmt.Errorf("%w: bridge returned invalid coordinates", ErrPositionUnavailable)
	}

	return regionAround(center), nil
}

// StaticProvider serves a fixed position, used by kiosk deployments and
// tests.
type StaticProvider struct {
	Center models.Coordinate
}

func (p StaticProvider) Acquire(ctx context.Context) (models.UserRegion, error) {
	if !geo.IsValidCoordinate(p.Center) {
		return models.UserRegion{}, ErrPositionUnavailable
	}
	return regionAround(p.Center), nil
}

func regionAround(center models.Coordinate) models.UserRegion {
	return models.UserRegion{
		Center:         center,
		LatitudeDelta:  DefaultSpanDegrees,
		LongitudeDelta: DefaultSpanDegrees,
	}
}

// FromSettings builds the provider the settings describe: the bridge
// endpoint when present, otherwise the static coordinates.
func FromSettings(bridge models.LocationBridge, client *http.Client, logger *slog.Logger) (Provider, error) {
	if bridge.Endpoint != "" {
		return NewBridgeProvider(bridge.Endpoint, client, logger), nil
	}
	if bridge.StaticLatitude != nil && bridge.StaticLongitude != nil {
		return StaticProvider{Center: models.Coordinate{
			Latitude:  *bridge.StaticLatitude,
			Longitude: *bridge.StaticLongitude,
		}}, nil
	}
	return nil, errors.New("location settings need either an endpoint or static coordinates")
}
