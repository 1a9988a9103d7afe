package observability

import (
	"time"

	"github.com/mbelgrano/deudores-bcra-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the ingestion pipeline.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration  *prometheus.HistogramVec
	upstreamRequests *prometheus.CounterVec
	upstreamErrors   *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	batchesTotal     *prometheus.CounterVec
	identifiers      prometheus.Counter
}

// Upstream request outcomes, one increment per fetch per category.
const (
	OutcomeOK       = "ok"
	OutcomeEmpty    = "empty"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "deudores_request_duration_seconds",
				Help:    "Duration of operations by name.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		upstreamRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deudores_upstream_requests_total",
				Help: "Registry API fetches by category and outcome.",
			},
			[]string{"category", "outcome"},
		),
		upstreamErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deudores_upstream_errors_total",
				Help: "Total classified failures from the registry API.",
			},
			[]string{"category"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deudores_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deudores_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		batchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deudores_batches_total",
				Help: "Aggregation batches by final status.",
			},
			[]string{"status"},
		),
		identifiers: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "deudores_identifiers_processed_total",
				Help: "CUITs summarized across all batches.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrUpstreamRequest counts one registry fetch with its outcome.
func (m *Metrics) IncrUpstreamRequest(category, outcome string) {
	m.upstreamRequests.WithLabelValues(category, outcome).Inc()
}

// IncrUpstreamError increments the upstream failure counter.
func (m *Metrics) IncrUpstreamError(category string) {
	m.upstreamErrors.WithLabelValues(category).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrBatch counts a finished (or rejected) aggregation batch.
func (m *Metrics) IncrBatch(status string) {
	m.batchesTotal.WithLabelValues(status).Inc()
}

// AddIdentifiers counts CUITs summarized in a batch.
func (m *Metrics) AddIdentifiers(n int) {
	m.identifiers.Add(float64(n))
}

// GetPipelineSnapshot returns a snapshot of pipeline counters suitable for
// the GET /v1/metrics/pipeline endpoint.
// Note: Prometheus counters expose cumulative values.
func (m *Metrics) GetPipelineSnapshot() *domain.PipelineMetrics {
	completed := getCounterValue(m.batchesTotal, "completed")
	rejected := getCounterValue(m.batchesTotal, "rejected")

	var requests, failures float64
	for _, cat := range []string{"deudas", "historicas", "cheques"} {
		for _, outcome := range []string{OutcomeOK, OutcomeEmpty, OutcomeNotFound, OutcomeError} {
			v := getCounterValue(m.upstreamRequests, cat, outcome)
			requests += v
			if outcome == OutcomeError {
				failures += v
			}
		}
	}

	hits := getCounterValue(m.cacheHits, "debtor")
	misses := getCounterValue(m.cacheMisses, "debtor")

	errorRate := float64(0)
	if requests > 0 {
		errorRate = failures / requests
	}
	cacheHitRate := float64(0)
	if hits+misses > 0 {
		cacheHitRate = hits / (hits + misses)
	}

	return &domain.PipelineMetrics{
		BatchesCompleted:     int64(completed),
		BatchesRejected:      int64(rejected),
		IdentifiersProcessed: int64(counterValue(m.identifiers)),
		UpstreamRequests:     int64(requests),
		UpstreamErrorRate:    errorRate,
		CacheHitRate:         cacheHitRate,
		Period:               "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for
// the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	return counterValue(counter.(prometheus.Metric))
}

func counterValue(c prometheus.Metric) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
