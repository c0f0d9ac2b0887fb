package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for generation counters.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Metrics groups the service's collectors.
type Metrics struct {
	gatherer prometheus.Gatherer

	Generations        *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	RequestDuration    *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests
// to avoid clashing with the default registry.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		Generations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "random_generations_total",
				Help: "Generation requests by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		GenerationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "random_generation_duration_seconds",
				Help:    "Time spent inside the generation engine",
				Buckets: []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
			},
			[]string{"operation"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"method", "status_code"},
		),
	}
}

// ObserveGeneration records one engine call.
func (m *Metrics) ObserveGeneration(operation, outcome string, start time.Time) {
	m.Generations.WithLabelValues(operation, outcome).Inc()
	if outcome == OutcomeOK {
		m.GenerationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// Middleware tracks HTTP request duration.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.RequestDuration.
			WithLabelValues(c.Request.Method, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
