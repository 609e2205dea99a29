// Package mapview orchestrates the map pipeline: acquire a position, fetch
// nearby entities, filter them, cluster them, publish a render model. It owns
// all filter/criteria state and serializes pipeline runs so views only ever
// observe complete, immutable snapshots.
package mapview

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"mapengine.pawmap.org/internal/cluster"
	"mapengine.pawmap.org/internal/filter"
	"mapengine.pawmap.org/internal/location"
	"mapengine.pawmap.org/internal/metrics"
	"mapengine.pawmap.org/internal/models"
	"mapengine.pawmap.org/internal/repository"
)

// State is the pipeline's lifecycle position. Error is reachable from
// Locating and Loading and is always retryable.
type State string

const (
	StateIdle     State = "idle"
	StateLocating State = "locating"
	StateLoading  State = "loading"
	StateReady    State = "ready"
	StateError    State = "error"
)

const (
	// DefaultClusterRadiusDegrees is the grouping threshold in raw degree
	// space, roughly a kilometer of latitude.
	DefaultClusterRadiusDegrees = 0.01

	// DefaultDebounce is the quiet period after a filter-control change
	// before the pipeline reacts; rapid slider movement settles to one run.
	DefaultDebounce = 250 * time.Millisecond
)

// Repository is the slice of the entity repository the orchestrator needs.
type Repository interface {
	FetchNearby(ctx context.Context, center models.Coordinate, radiusKm float64) (repository.FetchResult, error)
}

// Options tune a ViewModel; zero values select the defaults.
type Options struct {
	ClusterRadiusDegrees float64
	Debounce             time.Duration
}

// runRequest describes how much of the pipeline a run must redo.
type runRequest struct {
	locate bool
	fetch  bool
}

// ViewModel wires the location provider, repository, filter, and clustering
// engine together and exposes the result to the transport layer.
type ViewModel struct {
	provider location.Provider
	repo     Repository
	logger   *slog.Logger

	clusterRadius float64
	debounce      time.Duration

	// lifeCtx spans the view model's lifetime and is canceled by Close. Work
	// fired by the debounce timer runs under it, since the caller context
	// that scheduled the timer is usually gone by the time it fires.
	lifeCtx    context.Context
	cancelLife context.CancelFunc

	mu            sync.Mutex
	state         State
	lastErr       error
	criteria      models.FilterCriteria
	clustering    bool
	region        models.UserRegion
	hasRegion     bool
	fetched       repository.FetchResult
	hasFetched    bool
	render        models.RenderModel
	running       bool
	queued        runRequest
	hasQueued     bool
	pendingFetch  bool
	debounceTimer *time.Timer
	closed        bool
}

func New(provider location.Provider, repo Repository, logger *slog.Logger, opts Options) *ViewModel {
	clusterRadius := opts.ClusterRadiusDegrees
	if clusterRadius <= 0 {
		clusterRadius = DefaultClusterRadiusDegrees
	}

	lifeCtx, cancel := context.WithCancel(context.Background())

	return &ViewModel{
		provider:      provider,
		repo:          repo,
		logger:        logger,
		clusterRadius: clusterRadius,
		debounce:      opts.Debounce,
		lifeCtx:       lifeCtx,
		cancelLife:    cancel,
		state:         StateIdle,
		criteria:      models.DefaultFilterCriteria(),
		clustering:    true,
	}
}

// Start kicks off the first full pipeline run: Idle → Locating → Loading →
// Ready.
func (vm *ViewModel) Start(ctx context.Context) {
	vm.request(ctx, runRequest{locate: true, fetch: true})
}

// Refresh re-runs fetch/filter/cluster against the current region. If no
// region was ever acquired it locates first.
func (vm *ViewModel) Refresh(ctx context.Context) {
	vm.request(ctx, runRequest{fetch: true})
}

// Retry is the recovery edge out of the Error state: back to Locating and
// through the whole pipeline.
func (vm *ViewModel) Retry(ctx context.Context) {
	vm.request(ctx, runRequest{locate: true, fetch: true})
}

// Recenter re-acquires the device position and refetches around it.
func (vm *ViewModel) Recenter(ctx context.Context) {
	vm.request(ctx, runRequest{locate: true, fetch: true})
}

// Close tears the view model down. In-flight work may still finish its I/O
// but its results are discarded; no state changes happen after Close.
func (vm *ViewModel) Close() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.closed = true
	vm.cancelLife()
	if vm.debounceTimer != nil {
		vm.debounceTimer.Stop()
	}
}

// request serializes pipeline runs. A request arriving while a run is in
// flight is queued and merged (last-requested-wins); it executes once the
// current run settles. Runs never overlap, so a slow fetch can never clobber
// a newer result.
func (vm *ViewModel) request(ctx context.Context, req runRequest) {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return
	}
	if vm.running {
		vm.queued = runRequest{
			locate: vm.queued.locate || req.locate,
			fetch:  vm.queued.fetch || req.fetch,
		}
		vm.hasQueued = true
		vm.mu.Unlock()
		return
	}
	vm.running = true
	vm.mu.Unlock()

	for {
		vm.run(ctx, req)

		vm.mu.Lock()
		if vm.hasQueued && ctx.Err() == nil && !vm.closed {
			req = vm.queued
			vm.queued = runRequest{}
			vm.hasQueued = false
			vm.mu.Unlock()
			continue
		}
		// Abandoning the loop drops any queued request with it; replaying it
		// after an unrelated later run would be a stale extra pipeline pass.
		vm.queued = runRequest{}
		vm.hasQueued = false
		vm.running = false
		vm.mu.Unlock()
		return
	}
}

// run executes one pipeline pass. Each suspension point re-checks the
// context so an abandoned view never receives a late state update.
func (vm *ViewModel) run(ctx context.Context, req runRequest) {
	start := time.Now()

	vm.mu.Lock()
	needLocate := req.locate || !vm.hasRegion
	vm.mu.Unlock()

	if needLocate {
		if !vm.setState(ctx, StateLocating, nil) {
			return
		}

		region, err := vm.provider.Acquire(ctx)
		if ctx.Err() != nil {
			metrics.PipelineRuns.WithLabelValues("canceled").Inc()
			return
		}
		if err != nil {
			vm.logger.Error("position acquisition failed", "error", err)
			vm.setState(ctx, StateError, err)
			metrics.PipelineRuns.WithLabelValues("location_error").Inc()
			return
		}

		vm.mu.Lock()
		vm.region = region
		vm.hasRegion = true
		vm.mu.Unlock()
	}

	if req.fetch {
		if !vm.setState(ctx, StateLoading, nil) {
			return
		}

		vm.mu.Lock()
		center := vm.region.Center
		radiusKm := vm.criteria.RadiusKm
		vm.mu.Unlock()

		res, err := vm.repo.FetchNearby(ctx, center, radiusKm)
		if ctx.Err() != nil {
			metrics.PipelineRuns.WithLabelValues("canceled").Inc()
			return
		}
		if err != nil {
			// Stale-but-present beats empty: the previous render model
			// stays published while the error is surfaced.
			vm.logger.Error("entity fetch failed", "error", err)
			vm.setState(ctx, StateError, err)
			metrics.PipelineRuns.WithLabelValues("fetch_error").Inc()
			return
		}

		vm.mu.Lock()
		vm.fetched = res
		vm.hasFetched = true
		vm.mu.Unlock()
	}

	if vm.publish(ctx) {
		metrics.PipelineRuns.WithLabelValues("ready").Inc()
		metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	}
}

// publish projects the fetched set through the filter and clustering stages
// and swaps in a fresh render model. Returns false when the view model was
// torn down first or nothing was ever fetched.
func (vm *ViewModel) publish(ctx context.Context) bool {
	vm.mu.Lock()
	if vm.closed || !vm.hasFetched {
		vm.mu.Unlock()
		return false
	}
	criteria := vm.criteria
	clustering := vm.clustering
	fetched := vm.fetched
	vm.mu.Unlock()

	res := filter.Apply(criteria, fetched.Animals, fetched.Emergencies)

	animals := append([]models.Animal(nil), res.Animals...)
	repository.SortByDistance(animals)

	emergencies := append([]models.EmergencyReport(nil), res.Emergencies...)
	sortReports(emergencies)

	var clusters []models.MarkerCluster
	if clustering {
		clusters, _ = cluster.Build(res.Animals, res.Emergencies, vm.clusterRadius)
	}

	var staleIDs []string
	for _, e := range emergencies {
		if e.Stale() {
			staleIDs = append(staleIDs, e.ID)
		}
	}

	model := models.RenderModel{
		Animals:      animals,
		Emergencies:  emergencies,
		Clusters:     clusters,
		StaleReports: staleIDs,
	}

	vm.mu.Lock()
	if vm.closed || ctx.Err() != nil {
		vm.mu.Unlock()
		return false
	}
	vm.render = model
	vm.state = StateReady
	vm.lastErr = nil
	vm.mu.Unlock()

	metrics.EntitiesRendered.WithLabelValues(string(models.KindAnimal)).Set(float64(len(animals)))
	metrics.EntitiesRendered.WithLabelValues(string(models.KindEmergency)).Set(float64(len(emergencies)))
	metrics.ClustersRendered.Set(float64(len(clusters)))
	return true
}

// sortReports orders emergencies by severity (high first) then distance
// (near first) for visual priority. This is a presentation aid, not a
// filter; it runs on a copy of the filtered slice.
func sortReports(reports []models.EmergencyReport) {
	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i].Severity.Rank() != reports[j].Severity.Rank() {
			return reports[i].Severity.Rank() > reports[j].Severity.Rank()
		}
		di, dj := reportDistance(reports[i]), reportDistance(reports[j])
		return di < dj
	})
}

func reportDistance(e models.EmergencyReport) float64 {
	if e.DistanceKm == nil {
		return 1e18
	}
	return *e.DistanceKm
}

// setState transitions the state machine unless the context was canceled or
// the view model closed. Returns false when the transition was suppressed.
func (vm *ViewModel) setState(ctx context.Context, s State, err error) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.closed || ctx.Err() != nil {
		return false
	}
	vm.state = s
	vm.lastErr = err
	return true
}

// State returns the current pipeline state.
func (vm *ViewModel) State() State {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.state
}

// Err returns the error behind the current Error state, or nil.
func (vm *ViewModel) Err() error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.lastErr
}

// Render returns the last published render model. The returned value must be
// treated as immutable.
func (vm *ViewModel) Render() models.RenderModel {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.render
}

// Criteria returns a copy of the active filter criteria.
func (vm *ViewModel) Criteria() models.FilterCriteria {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.criteria
}

// Region returns the current viewport and whether a position was acquired.
func (vm *ViewModel) Region() (models.UserRegion, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.region, vm.hasRegion
}

// ClusteringEnabled reports whether cluster rendering is on.
func (vm *ViewModel) ClusteringEnabled() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.clustering
}

// ToggleClustering flips cluster rendering and republishes from the
// already-fetched data; no refetch happens.
func (vm *ViewModel) ToggleClustering(ctx context.Context) bool {
	vm.mu.Lock()
	vm.clustering = !vm.clustering
	enabled := vm.clustering
	vm.mu.Unlock()

	vm.publish(ctx)
	return enabled
}

// SetClustering sets cluster rendering to an explicit value. The compare and
// the write happen under one lock, so concurrent callers asking for the same
// value cannot flip it back and forth; no-op calls do not republish.
func (vm *ViewModel) SetClustering(ctx context.Context, enabled bool) {
	vm.mu.Lock()
	if vm.clustering == enabled {
		vm.mu.Unlock()
		return
	}
	vm.clustering = enabled
	vm.mu.Unlock()

	vm.publish(ctx)
}

// CriteriaPatch is a partial update to the filter controls; nil fields leave
// the current value alone.
type CriteriaPatch struct {
	Query    *string
	Category *models.CategoryFilter
	AgeMin   *int
	AgeMax   *int
	Size     *string
	Severity *string
	RadiusKm *float64
}

// SetCriteria applies a control change. The new values take effect
// immediately for readers, but the pipeline reaction is debounced: after the
// quiet period, a radius change triggers a refetch while purely local
// changes (text, category, ranges) only re-filter and re-cluster the
// already-fetched data.
func (vm *ViewModel) SetCriteria(ctx context.Context, patch CriteriaPatch) {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return
	}

	prevRadius := vm.criteria.RadiusKm
	patch.applyTo(&vm.criteria)
	if vm.criteria.RadiusKm != prevRadius {
		vm.pendingFetch = true
	}

	if vm.debounce <= 0 {
		vm.mu.Unlock()
		vm.settleCriteria(ctx)
		return
	}

	if vm.debounceTimer != nil {
		vm.debounceTimer.Stop()
	}
	// The timer outlives the caller; by the time it fires, ctx (typically a
	// request context) is already canceled, so the settled work runs under
	// the view model's own lifetime instead.
	vm.debounceTimer = time.AfterFunc(vm.debounce, func() {
		vm.settleCriteria(vm.lifeCtx)
	})
	vm.mu.Unlock()
}

// settleCriteria runs once the controls have been quiet for the debounce
// period.
func (vm *ViewModel) settleCriteria(ctx context.Context) {
	vm.mu.Lock()
	needFetch := vm.pendingFetch
	vm.pendingFetch = false
	vm.mu.Unlock()

	if needFetch {
		vm.request(ctx, runRequest{fetch: true})
		return
	}
	vm.publish(ctx)
}

// applyTo merges the patch into the criteria, dropping values that would
// violate the control invariants (empty ranges, non-positive radius).
func (p CriteriaPatch) applyTo(c *models.FilterCriteria) {
	if p.Query != nil {
		c.Query = *p.Query
	}
	if p.Category != nil {
		c.Category = *p.Category
	}
	if p.AgeMin != nil && *p.AgeMin <= c.AgeMax {
		c.AgeMin = *p.AgeMin
	}
	if p.AgeMax != nil && *p.AgeMax >= c.AgeMin {
		c.AgeMax = *p.AgeMax
	}
	if p.Size != nil {
		c.Size = *p.Size
	}
	if p.Severity != nil {
		c.Severity = *p.Severity
	}
	if p.RadiusKm != nil && *p.RadiusKm > 0 {
		c.RadiusKm = *p.RadiusKm
	}
}
