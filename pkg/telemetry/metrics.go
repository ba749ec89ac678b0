package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for nodeutils. It satisfies
// cmdref.Recorder and cmdref.ReloadRecorder.
type Metrics struct {
	config MetricsConfig

	// Reference metrics
	referenceLoads    *prometheus.CounterVec
	referenceLoadTime prometheus.Histogram
	referenceFeatures prometheus.Gauge
	referenceReloads  *prometheus.CounterVec

	// Lookup metrics
	lookups     *prometheus.CounterVec
	resolveTime prometheus.Histogram

	// Lint metrics
	lintViolations *prometheus.CounterVec

	// Device metrics
	deviceCommands *prometheus.CounterVec
	deviceDuration *prometheus.HistogramVec

	// Snapshot metrics
	snapshotsSaved prometheus.Counter

	registry *prometheus.Registry
	server   *http.Server
}

// NewMetrics creates a new metrics collector with the given configuration.
// A disabled configuration yields a collector whose methods do nothing.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		referenceLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reference_loads_total",
				Help:      "Total number of command reference loads",
			},
			[]string{"status"},
		),
		referenceLoadTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "reference_load_duration_seconds",
				Help:      "Duration of command reference loads in seconds",
				Buckets:   buckets,
			},
		),
		referenceFeatures: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "reference_features",
				Help:      "Number of features in the most recently loaded command reference",
			},
		),
		referenceReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reference_reloads_total",
				Help:      "Total number of command reference reloads",
			},
			[]string{"status"},
		),

		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lookups_total",
				Help:      "Total number of feature lookups",
			},
			[]string{"result"},
		),
		resolveTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolve_duration_seconds",
				Help:      "Duration of feature resolution in seconds",
				Buckets:   buckets,
			},
		),

		lintViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lint_violations_total",
				Help:      "Total number of lint violations found",
			},
			[]string{"policy", "severity"},
		),

		deviceCommands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "device_commands_total",
				Help:      "Total number of commands sent to devices",
			},
			[]string{"kind", "status"},
		),
		deviceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "device_command_duration_seconds",
				Help:      "Duration of device commands in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),

		snapshotsSaved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshots_saved_total",
				Help:      "Total number of snapshots saved",
			},
		),
	}

	registry.MustRegister(
		m.referenceLoads,
		m.referenceLoadTime,
		m.referenceFeatures,
		m.referenceReloads,
		m.lookups,
		m.resolveTime,
		m.lintViolations,
		m.deviceCommands,
		m.deviceDuration,
		m.snapshotsSaved,
	)

	return m, nil
}

// Reference Metrics

// RecordReferenceLoad records a completed load attempt.
func (m *Metrics) RecordReferenceLoad(success bool, features int, duration time.Duration) {
	if m.referenceLoads == nil {
		return
	}
	m.referenceLoads.WithLabelValues(status(success)).Inc()
	if success {
		m.referenceLoadTime.Observe(duration.Seconds())
		m.referenceFeatures.Set(float64(features))
	}
}

// RecordReload records a hot reload attempt.
func (m *Metrics) RecordReload(success bool) {
	if m.referenceReloads == nil {
		return
	}
	m.referenceReloads.WithLabelValues(status(success)).Inc()
}

// Lookup Metrics

// RecordLookup records a feature lookup and whether it was served from cache.
func (m *Metrics) RecordLookup(_ string, cached bool) {
	if m.lookups == nil {
		return
	}
	result := "miss"
	if cached {
		result = "hit"
	}
	m.lookups.WithLabelValues(result).Inc()
}

// RecordResolve records the time spent resolving one feature.
func (m *Metrics) RecordResolve(duration time.Duration) {
	if m.resolveTime == nil {
		return
	}
	m.resolveTime.Observe(duration.Seconds())
}

// Lint Metrics

// RecordLintViolation records one lint violation.
func (m *Metrics) RecordLintViolation(policy, severity string) {
	if m.lintViolations == nil {
		return
	}
	m.lintViolations.WithLabelValues(policy, severity).Inc()
}

// Device Metrics

// RecordDeviceCommand records a show or config exchange with a device.
func (m *Metrics) RecordDeviceCommand(kind string, err error, duration time.Duration) {
	if m.deviceCommands == nil {
		return
	}
	m.deviceCommands.WithLabelValues(kind, status(err == nil)).Inc()
	m.deviceDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// Snapshot Metrics

// RecordSnapshotSaved counts a stored snapshot.
func (m *Metrics) RecordSnapshotSaved() {
	if m.snapshotsSaved == nil {
		return
	}
	m.snapshotsSaved.Inc()
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// Registry returns the private registry, nil when metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server exposing the metrics. Serve
// errors are passed to onError.
func (m *Metrics) StartMetricsServer(onError func(error)) error {
	if !m.config.Enabled || m.config.ListenAddress == "" {
		return nil
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	m.server = &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv := m.server
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) && onError != nil {
			onError(err)
		}
	}()

	return nil
}

// StopMetricsServer shuts the metrics server down.
func (m *Metrics) StopMetricsServer(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}
