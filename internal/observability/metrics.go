package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metric names.
const (
	MetricNarratorRequestsTotal   = "hinterland_narrator_requests_total"
	MetricNarratorRequestDuration = "hinterland_narrator_request_duration_seconds"
	MetricLocationsCreatedTotal   = "hinterland_locations_created_total"
	MetricDiscoveriesTotal        = "hinterland_discoveries_total"
	MetricExpansionsTotal         = "hinterland_expansions_total"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Metrics holds the Prometheus collectors for world exploration. It satisfies
// explore.Observer. All methods are safe for concurrent use.
type Metrics struct {
	narratorRequests *prometheus.CounterVec
	narratorDuration *prometheus.HistogramVec
	locationsCreated *prometheus.CounterVec
	discoveries      prometheus.Counter
	expansions       *prometheus.CounterVec
}

// NewMetrics creates the collectors. Call Register to expose them.
func NewMetrics() *Metrics {
	return &Metrics{
		narratorRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricNarratorRequestsTotal,
				Help: "Total narrator requests by purpose and status",
			},
			[]string{"purpose", "status"},
		),
		narratorDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricNarratorRequestDuration,
				Help:    "Narrator request latency in seconds by purpose",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"purpose"},
		),
		locationsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricLocationsCreatedTotal,
				Help: "Total locations created by source",
			},
			[]string{"source"},
		),
		discoveries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricDiscoveriesTotal,
			Help: "Total locations discovered",
		}),
		expansions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricExpansionsTotal,
				Help: "Total expansion attempts by status",
			},
			[]string{"status"},
		),
	}
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns every collector.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.narratorRequests,
		m.narratorDuration,
		m.locationsCreated,
		m.discoveries,
		m.expansions,
	}
}

// NarratorRequest records one narrator call.
func (m *Metrics) NarratorRequest(purpose string, elapsed time.Duration, err error) {
	m.narratorRequests.WithLabelValues(purpose, status(err)).Inc()
	m.narratorDuration.WithLabelValues(purpose).Observe(elapsed.Seconds())
}

// LocationsCreated adds n to the created-locations counter for source.
func (m *Metrics) LocationsCreated(source string, n int) {
	if n <= 0 {
		return
	}
	m.locationsCreated.WithLabelValues(source).Add(float64(n))
}

// Discovered counts one discovery.
func (m *Metrics) Discovered() {
	m.discoveries.Inc()
}

// Expanded counts one expansion attempt.
func (m *Metrics) Expanded(err error) {
	m.expansions.WithLabelValues(status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return StatusFailure
	}
	return StatusSuccess
}

// MetricsServer serves /metrics for one registry.
type MetricsServer struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewMetricsServer creates a server exposing reg at addr under /metrics.
func NewMetricsServer(addr string, reg *prometheus.Registry, logger *zap.Logger) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &MetricsServer{
		srv:    &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger: logger,
	}
}

// Start serves until Stop is called.
//
// Postcondition: Returns nil after a clean Stop, or the listen error.
func (s *MetricsServer) Start() error {
	s.logger.Info("metrics server starting", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *MetricsServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("metrics server shutdown", zap.Error(err))
	}
}
