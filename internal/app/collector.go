package app

import (
	"context"
	"time"

	"mapengine.pawmap.org/internal/mapview"
)

// DefaultRefreshInterval is the pipeline re-run cadence when the settings do
// not specify one.
const DefaultRefreshInterval = 30 * time.Second

// refreshTarget keys the backoff store entry for the background pipeline.
const refreshTarget = "pipeline"

// StartRefreshLoop re-runs the map pipeline on a fixed cadence so the render
// model tracks backend changes without client interaction. Failed runs back
// off exponentially instead of hammering a broken backend on every tick; a
// successful run resets the pacing.
//
// The loop stops when ctx is canceled.
func (app *Application) StartRefreshLoop(ctx context.Context) {
	if app.Tracker != nil {
		go app.Tracker.Run(ctx)
	}

	interval := DefaultRefreshInterval
	if s := app.ConfigService.Config.GetSettings().RefreshSeconds; s > 0 {
		interval = time.Duration(s) * time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				app.Logger.Info("Stopping map refresh routine")
				return
			case <-ticker.C:
				app.refreshTick(ctx)
			}
		}
	}()
}

func (app *Application) refreshTick(ctx context.Context) {
	if next, exists := app.Backoffs.NextRetryAt(refreshTarget); exists && time.Now().UTC().Before(next) {
		return
	}

	if app.ViewModel.State() == mapview.StateIdle {
		app.ViewModel.Start(ctx)
	} else {
		app.ViewModel.Refresh(ctx)
	}

	if app.ViewModel.State() == mapview.StateError {
		app.Backoffs.UpdateBackoff(refreshTarget)
		app.Logger.Warn("Background refresh failed, backing off", "error", app.ViewModel.Err())
		return
	}
	app.Backoffs.ResetBackoff(refreshTarget)
}
