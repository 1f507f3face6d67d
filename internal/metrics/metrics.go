package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry              *prometheus.Registry
	httpRequests          *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	clicksIgnored         prometheus.Counter
	badGeometry           prometheus.Counter
	highlightReplays      prometheus.Counter
	selectionMutations    *prometheus.CounterVec
	spatialFilterDuration prometheus.Histogram
}

// New creates a fresh Metrics registry with HTTP and selection metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blocks",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by blocksd",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blocks",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by blocksd",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	clicksIgnored := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "blocks",
		Name:      "clicks_ignored_total",
		Help:      "Clicks dropped because no stable block id could be derived",
	})

	badGeometry := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "blocks",
		Name:      "bad_geometry_total",
		Help:      "Candidate blocks skipped by the spatial filter for degenerate geometry",
	})

	highlightReplays := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "blocks",
		Name:      "highlight_replays_total",
		Help:      "Full highlight replays after map source reloads",
	})

	selectionMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blocks",
		Name:      "selection_mutations_total",
		Help:      "Selection store mutations by operation",
	}, []string{"op"})

	spatialFilterDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "blocks",
		Name:      "spatial_filter_duration_seconds",
		Help:      "Duration of boundary/block intersection passes",
		Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1},
	})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		clicksIgnored,
		badGeometry,
		highlightReplays,
		selectionMutations,
		spatialFilterDuration,
	)

	return &Metrics{
		registry:              registry,
		httpRequests:          httpRequests,
		httpRequestDuration:   httpRequestDuration,
		clicksIgnored:         clicksIgnored,
		badGeometry:           badGeometry,
		highlightReplays:      highlightReplays,
		selectionMutations:    selectionMutations,
		spatialFilterDuration: spatialFilterDuration,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// IncClickIgnored counts a click with no derivable stable block id.
func (m *Metrics) IncClickIgnored() {
	if m == nil {
		return
	}
	m.clicksIgnored.Inc()
}

// AddBadGeometry counts candidates skipped for degenerate geometry.
func (m *Metrics) AddBadGeometry(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.badGeometry.Add(float64(n))
}

// IncHighlightReplay counts one full replay after a source reload.
func (m *Metrics) IncHighlightReplay() {
	if m == nil {
		return
	}
	m.highlightReplays.Inc()
}

// IncSelectionMutation counts one store mutation by operation name.
func (m *Metrics) IncSelectionMutation(op string) {
	if m == nil {
		return
	}
	m.selectionMutations.WithLabelValues(op).Inc()
}

// ObserveSpatialFilter observes one intersection pass duration.
func (m *Metrics) ObserveSpatialFilter(duration time.Duration) {
	if m == nil {
		return
	}
	m.spatialFilterDuration.Observe(duration.Seconds())
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
