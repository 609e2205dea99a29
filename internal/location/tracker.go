package location

import (
	"context"
	"sync"
	"time"

	"mapengine.pawmap.org/internal/models"
)

// DefaultTrackInterval is how often tracking mode re-acquires the position.
const DefaultTrackInterval = time.Second

// Tracker keeps a region store fresh while tracking mode is on. It only
// updates the stored region; it never triggers a pipeline run itself, the
// orchestrator decides when a new region is worth a refetch.
type Tracker struct {
	provider Provider
	interval time.Duration

	mu     sync.RWMutex
	region models.UserRegion
	ok     bool
}

func NewTracker(provider Provider, interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = DefaultTrackInterval
	}
	return &Tracker{
		provider: provider,
		interval: interval,
	}
}

// Run re-acquires the position on the tracking interval until the context is
// canceled. Acquisition failures leave the last good region in place.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			region, err := t.provider.Acquire(ctx)
			if err != nil {
				continue
			}
			t.mu.Lock()
			t.region = region
			t.ok = true
			t.mu.Unlock()
		}
	}
}

// Acquire satisfies Provider. It serves the tracked region when one exists
// and falls back to a direct acquisition before the first tick lands.
func (t *Tracker) Acquire(ctx context.Context) (models.UserRegion, error) {
	if region, ok := t.Region(); ok {
		return region, nil
	}
	return t.provider.Acquire(ctx)
}

// Region returns the most recent good region and whether one exists yet.
func (t *Tracker) Region() (models.UserRegion, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.region, t.ok
}
