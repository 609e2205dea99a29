package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BackendPathStatus tracks whether each backend query path is working
	// (0 = failing, 1 = working). Paths: "primary" (proximity RPC) and
	// "fallback" (full table read).
	BackendPathStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mapengine_backend_path_status",
			Help: "Status of the backend query path (0 = failing, 1 = working)",
		},
		[]string{"path"},
	)

	// FallbackReads counts how often the degraded full-table read was used
	// because the proximity RPC failed.
	FallbackReads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mapengine_fallback_reads_total",
		Help: "Number of times the degraded full-table fallback read was used",
	})
)

var (
	EntitiesFetched = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mapengine_entities_fetched",
		Help: "Number of valid entities returned by the last backend fetch",
	}, []string{"kind"})

	EntitiesRendered = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mapengine_entities_rendered",
		Help: "Number of entities in the published render model after filtering",
	}, []string{"kind"})

	ClustersRendered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mapengine_clusters_rendered",
		Help: "Number of marker clusters in the published render model",
	})
)

var (
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mapengine_pipeline_runs_total",
		Help: "Pipeline runs by outcome (ready, location_error, fetch_error, canceled)",
	}, []string{"outcome"})

	PipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mapengine_pipeline_duration_seconds",
		Help:    "Wall time of a full pipeline run (locate, fetch, filter, cluster)",
		Buckets: prometheus.DefBuckets,
	})

	// OutgoingLatency is observed by the instrumented HTTP transport for
	// every outbound request, labeled with a normalized URL.
	OutgoingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mapengine_outgoing_request_duration_seconds",
		Help:    "Latency of outgoing HTTP requests to the backend and device bridge",
		Buckets: prometheus.DefBuckets,
	}, []string{"url", "method", "status"})
)
