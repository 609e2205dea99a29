package app

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"mapengine.pawmap.org/internal/metrics"
)

// latencyTrackingRoundTripper wraps another RoundTripper to record the
// latency of each outgoing request as a Prometheus histogram, labeled by
// URL, method, and status.
type latencyTrackingRoundTripper struct {
	next http.RoundTripper
}

func (rt *latencyTrackingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := rt.next.RoundTrip(req)
	duration := time.Since(start).Seconds()

	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}

	// Normalized URL label without query params, to keep cardinality down.
	safeURL := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path

	metrics.OutgoingLatency.WithLabelValues(
		safeURL,
		req.Method,
		status,
	).Observe(duration)

	return resp, err
}

// NewPooledClient returns an HTTP client tuned for polling the hosted
// backend every refresh tick: connections are reused across ticks, dial and
// TLS handshakes fail fast, and every request is instrumented for latency.
//
//   - MaxIdleConns / MaxIdleConnsPerHost keep enough idle connections for
//     the backend host plus the location bridge.
//   - IdleConnTimeout of 90s outlives the default 30s refresh interval, so
//     ticks hit warm connections.
//   - The 10s client timeout covers the whole request lifecycle and bounds
//     how long a pipeline run can hang on a dead backend.
func NewPooledClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	instrumentedTransport := &latencyTrackingRoundTripper{next: transport}

	client := &http.Client{
		Transport: instrumentedTransport,
		Timeout:   10 * time.Second,
	}
	return client
}
