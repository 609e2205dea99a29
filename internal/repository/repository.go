// Package repository fetches the two map entity collections from the hosted
// backend. Animals come from a server-side proximity RPC with a degraded
// full-table fallback; emergency reports come from a plain table read of open
// rows. Every returned entity carries a freshly computed distance from the
// query center.
package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"

	"github.com/getsentry/sentry-go"

	"mapengine.pawmap.org/internal/metrics"
	"mapengine.pawmap.org/internal/models"
	"mapengine.pawmap.org/internal/report"
	"mapengine.pawmap.org/internal/utils"
)

// FetchError reports that the repository could not produce a fresh entity
// set. For the animal half this means both the proximity RPC and the
// fallback table read failed; callers should keep showing the previous set.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("repository fetch failed: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// FetchResult holds both collections for one query center.
type FetchResult struct {
	Animals     []models.Animal
	Emergencies []models.EmergencyReport
}

// Repository is the backend client. The backend exposes a PostgREST-style
// surface: /rest/v1/<table> reads and /rest/v1/rpc/<fn> remote procedures,
// authorized with a public read key.
type Repository struct {
	backend models.Backend
	client  *http.Client
	logger  *slog.Logger
}

func New(backend models.Backend, client *http.Client, logger *slog.Logger) *Repository {
	return &Repository{
		backend: backend,
		client:  client,
		logger:  logger,
	}
}

// FetchNearby returns the animals and open emergency reports around center.
// The two halves are fetched sequentially and fail together: a failure in
// either half fails the whole call with a single *FetchError, and no partial
// result is returned.
func (r *Repository) FetchNearby(ctx context.Context, center models.Coordinate, radiusKm float64) (FetchResult, error) {
	animals, aErr := r.fetchAnimals(ctx, center, radiusKm)
	emergencies, eErr := r.fetchEmergencies(ctx, center)

	if aErr != nil || eErr != nil {
		err := &FetchError{Err: errors.Join(aErr, eErr)}
		report.ReportErrorWithOptions(err, report.Options{
			Tags:  utils.MakeMap("backend", r.backend.BaseURL),
			Level: sentry.LevelWarning,
		})
		return FetchResult{}, err
	}

	metrics.EntitiesFetched.WithLabelValues(string(models.KindAnimal)).Set(float64(len(animals)))
	metrics.EntitiesFetched.WithLabelValues(string(models.KindEmergency)).Set(float64(len(emergencies)))

	return FetchResult{Animals: animals, Emergencies: emergencies}, nil
}

// fetchAnimals tries the server-side proximity RPC first. The RPC is a
// privileged database function that can be unavailable or misconfigured
// independently of plain table access, so on failure the full dogs table is
// read instead and the distance and radius cut happen client-side.
func (r *Repository) fetchAnimals(ctx context.Context, center models.Coordinate, radiusKm float64) ([]models.Animal, error) {
	rows, primaryErr := r.proximityRPC(ctx, center, radiusKm)
	if primaryErr == nil {
		metrics.BackendPathStatus.WithLabelValues("primary").Set(1)
		return convertAnimals(rows, center), nil
	}

	metrics.BackendPathStatus.WithLabelValues("primary").Set(0)
	metrics.FallbackReads.Inc()
	r.logger.Warn("proximity RPC failed, falling back to table read", "error", primaryErr)

	rows, fallbackErr := r.readAnimalTable(ctx)
	if fallbackErr != nil {
		metrics.BackendPathStatus.WithLabelValues("fallback").Set(0)
		return nil, errors.Join(primaryErr, fallbackErr)
	}
	metrics.BackendPathStatus.WithLabelValues("fallback").Set(1)

	animals := convertAnimals(rows, center)

	// The fallback read is unfiltered, so apply the radius cut here.
	within := animals[:0]
	for _, a := range animals {
		if a.DistanceKm != nil && *a.DistanceKm <= radiusKm {
			within = append(within, a)
		}
	}
	return within, nil
}

func (r *Repository) proximityRPC(ctx context.Context, center models.Coordinate, radiusKm float64) ([]animalRow, error) {
	payload, err := json.Marshal(map[string]float64{
		"lat":       center.Latitude,
		"lng":       center.Longitude,
		"radius_km": radiusKm,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.backend.BaseURL+"/rest/v1/rpc/dogs_within_radius", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var rows []animalRow
	if err := r.doJSON(req, &rows); err != nil {
		return nil, fmt.Errorf("proximity RPC: %w", err)
	}
	return rows, nil
}

func (r *Repository) readAnimalTable(ctx context.Context) ([]animalRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		r.backend.BaseURL+"/rest/v1/dogs?select=*", nil)
	if err != nil {
		return nil, err
	}

	var rows []animalRow
	if err := r.doJSON(req, &rows); err != nil {
		return nil, fmt.Errorf("dogs table read: %w", err)
	}
	return rows, nil
}

// fetchEmergencies reads open reports directly from the table. There is no
// server-side proximity variant for reports; the radius cut is left to the
// filter stage, only the distance annotation happens here.
func (r *Repository) fetchEmergencies(ctx context.Context, center models.Coordinate) ([]models.EmergencyReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		r.backend.BaseURL+"/rest/v1/emergency_reports?select=*&status=eq.open", nil)
	if err != nil {
		return nil, err
	}

	var rows []emergencyRow
	if err := r.doJSON(req, &rows); err != nil {
		return nil, fmt.Errorf("emergency reports read: %w", err)
	}

	reports := make([]models.EmergencyReport, 0, len(rows))
	for _, row := range rows {
		if e, ok := row.toReport(center); ok {
			reports = append(reports, e)
		}
	}
	return reports, nil
}

// doJSON executes the request with the backend's read key attached and
// decodes the JSON array response into out.
func (r *Repository) doJSON(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	if r.backend.APIKey != "" {
		req.Header.Set("apikey", r.backend.APIKey)
		req.Header.Set("Authorization", "Bearer "+r.backend.APIKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func convertAnimals(rows []animalRow, center models.Coordinate) []models.Animal {
	animals := make([]models.Animal, 0, len(rows))
	for _, row := range rows {
		if a, ok := row.toAnimal(center); ok {
			animals = append(animals, a)
		}
	}
	return animals
}

// SortByDistance orders animals nearest-first with an insertion sort; the
// visible set is small enough that simplicity wins. Animals without a
// distance sink to the end.
func SortByDistance(animals []models.Animal) {
	for i := 1; i < len(animals); i++ {
		key := animals[i]
		j := i - 1
		for j >= 0 && distanceOf(animals[j]) > distanceOf(key) {
			animals[j+1] = animals[j]
			j--
		}
		animals[j+1] = key
	}
}

func distanceOf(a models.Animal) float64 {
	if a.DistanceKm == nil {
		return math.MaxFloat64
	}
	return *a.DistanceKm
}
