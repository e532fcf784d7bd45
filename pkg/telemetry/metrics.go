package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the effectivity engine.
// A disabled or nil Metrics records nothing.
type Metrics struct {
	config MetricsConfig

	// Effectivity evaluation metrics
	effectivityChecks *prometheus.CounterVec

	// Version resolution metrics
	versionResolutions *prometheus.CounterVec
	resolveDuration    prometheus.Histogram

	// Lifecycle metrics
	statusTransitions  *prometheus.CounterVec
	effectivityUpdates *prometheus.CounterVec

	// Validation metrics
	validationFailures *prometheus.CounterVec

	// Transition planning metrics
	transitionPlans prometheus.Counter

	// Error metrics
	errorsByKind *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		effectivityChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "effectivity_checks_total",
				Help:      "Total number of effectivity rule evaluations",
			},
			[]string{"kind", "result"},
		),
		versionResolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "version_resolutions_total",
				Help:      "Total number of effective version resolutions",
			},
			[]string{"source"},
		),
		resolveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "version_resolve_duration_seconds",
				Help:      "Duration of effective version resolution",
				Buckets:   prometheus.DefBuckets,
			},
		),
		statusTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_transitions_total",
				Help:      "Total number of ECO status transitions",
			},
			[]string{"from", "to"},
		),
		effectivityUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "effectivity_updates_total",
				Help:      "Total number of effectivity configuration writes",
			},
			[]string{"kind"},
		),
		validationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_failures_total",
				Help:      "Total number of effectivity validation failures",
			},
			[]string{"code"},
		),
		transitionPlans: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transition_plans_total",
				Help:      "Total number of transition plans computed",
			},
		),
		errorsByKind: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of classified engine errors",
			},
			[]string{"kind", "code"},
		),
	}

	registry.MustRegister(
		m.effectivityChecks,
		m.versionResolutions,
		m.resolveDuration,
		m.statusTransitions,
		m.effectivityUpdates,
		m.validationFailures,
		m.transitionPlans,
		m.errorsByKind,
	)

	return m, nil
}

// enabled reports whether the collector records anything.
func (m *Metrics) enabled() bool {
	return m != nil && m.config.Enabled
}

// RecordEffectivityCheck records one rule evaluation and its outcome.
func (m *Metrics) RecordEffectivityCheck(kind string, effective bool) {
	if !m.enabled() {
		return
	}
	result := "not_effective"
	if effective {
		result = "effective"
	}
	m.effectivityChecks.WithLabelValues(kind, result).Inc()
}

// RecordVersionResolution records one resolution and which tier supplied it.
func (m *Metrics) RecordVersionResolution(source string, duration time.Duration) {
	if !m.enabled() {
		return
	}
	m.versionResolutions.WithLabelValues(source).Inc()
	m.resolveDuration.Observe(duration.Seconds())
}

// RecordStatusTransition records one lifecycle edge.
func (m *Metrics) RecordStatusTransition(from, to string) {
	if !m.enabled() {
		return
	}
	m.statusTransitions.WithLabelValues(from, to).Inc()
}

// RecordEffectivityUpdate records one effectivity write by kind.
func (m *Metrics) RecordEffectivityUpdate(kind string) {
	if !m.enabled() {
		return
	}
	m.effectivityUpdates.WithLabelValues(kind).Inc()
}

// RecordValidationFailure records one rejected validation by error code.
func (m *Metrics) RecordValidationFailure(code string) {
	if !m.enabled() {
		return
	}
	m.validationFailures.WithLabelValues(code).Inc()
}

// RecordTransitionPlan records one computed transition plan.
func (m *Metrics) RecordTransitionPlan() {
	if !m.enabled() {
		return
	}
	m.transitionPlans.Inc()
}

// RecordError records one classified engine error.
func (m *Metrics) RecordError(kind, code string) {
	if !m.enabled() {
		return
	}
	m.errorsByKind.WithLabelValues(kind, code).Inc()
}

// Handler returns the Prometheus scrape handler for the registry.
func (m *Metrics) Handler() http.Handler {
	if !m.enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartMetricsServer starts the metrics HTTP server when enabled.
// It returns immediately; the server runs on a background goroutine.
func (m *Metrics) StartMetricsServer() error {
	if !m.enabled() {
		return nil
	}

	mux := http.NewServeMux()
	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}
	mux.Handle(path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		_ = server.ListenAndServe()
	}()

	return nil
}

// Timer measures operation durations for histogram observation.
type Timer struct {
	start time.Time
}

// NewTimer starts a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
