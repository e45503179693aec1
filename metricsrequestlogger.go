// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRequestLoggerConfig configures a [MetricsRequestLogger]: the
// metric name prefix used for its registered collectors.
type MetricsRequestLoggerConfig struct {
	BaseConfig

	// Namespace prefixes every metric name, e.g. "webhouse" yields
	// "webhouse_requests_total". Defaults to "webhouse".
	Namespace string
}

// Validate implements [ConfigRecord].
func (c *MetricsRequestLoggerConfig) Validate() error {
	return c.BaseConfig.Validate()
}

// MetricsRequestLogger is the built-in [RequestLogger] implementation
// (§4.10): a Prometheus-backed access logger, grounded on
// [cuemby/warren]'s `pkg/metrics` collector-registration style.
// RequestStarted/RequestEnded update a request counter, an in-flight
// gauge, and a duration histogram rather than writing log lines.
type MetricsRequestLogger struct {
	NoopImpl
	*BaseComponent

	registry *prometheus.Registry
	total    *prometheus.CounterVec
	inFlight prometheus.Gauge
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec

	mu      sync.Mutex
	started map[string]time.Time
}

var _ Component = &MetricsRequestLogger{}
var _ RequestLogger = &MetricsRequestLogger{}

// NewMetricsRequestLogger returns a [*MetricsRequestLogger] for cfg,
// registering its collectors on registry. A nil registry registers
// against [prometheus.NewRegistry]'s fresh default (callers that want
// process-wide collectors pass their own shared registry).
func NewMetricsRequestLogger(cfg *MetricsRequestLoggerConfig, registry *prometheus.Registry) (*MetricsRequestLogger, error) {
	if err := CheckClass(cfg.Class, "MetricsRequestLogger"); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	namespace := mergeDefault(cfg.Namespace, "webhouse")
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	l := &MetricsRequestLogger{
		registry: registry,
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of requests dispatched, by method and status class.",
		}, []string{"method", "status_class"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_in_flight",
			Help:      "Number of requests currently dispatched but not yet ended.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request handling duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_errors_total",
			Help:      "Total number of requests ending with a non-empty errorCodes list, by code.",
		}, []string{"code"}),
		started: make(map[string]time.Time),
	}
	if err := registry.Register(l.total); err != nil {
		return nil, NewError(KindConfiguration, "failed to register requests_total collector", err)
	}
	if err := registry.Register(l.inFlight); err != nil {
		return nil, NewError(KindConfiguration, "failed to register requests_in_flight collector", err)
	}
	if err := registry.Register(l.duration); err != nil {
		return nil, NewError(KindConfiguration, "failed to register request_duration_seconds collector", err)
	}
	if err := registry.Register(l.errors); err != nil {
		return nil, NewError(KindConfiguration, "failed to register request_errors_total collector", err)
	}

	l.BaseComponent = NewBaseComponent("MetricsRequestLogger", l)
	return l, nil
}

// NewMetricsRequestLoggerComponent is the [Constructor] registered for
// class "MetricsRequestLogger". It passes a nil registry, so each
// instance registers against its own fresh [prometheus.NewRegistry],
// since the [Registry] constructor signature has no room for extra
// dependencies; callers wanting a shared
// [*prometheus.Registry] should construct directly with
// [NewMetricsRequestLogger] instead of going through the class
// registry.
func NewMetricsRequestLoggerComponent(cfg ConfigRecord) (Component, error) {
	mrlCfg, ok := cfg.(*MetricsRequestLoggerConfig)
	if !ok {
		return nil, NewError(KindConfiguration, "MetricsRequestLogger requires a *MetricsRequestLoggerConfig", nil)
	}
	return NewMetricsRequestLogger(mrlCfg, nil)
}

// Registry returns the [*prometheus.Registry] this logger's collectors
// are registered against, for wiring into an HTTP exposition endpoint.
func (l *MetricsRequestLogger) Registry() *prometheus.Registry {
	return l.registry
}

// RequestStarted implements [RequestLogger].
func (l *MetricsRequestLogger) RequestStarted(req *Request) {
	l.inFlight.Inc()
	l.mu.Lock()
	l.started[req.ID] = time.Now()
	l.mu.Unlock()
}

// RequestEnded implements [RequestLogger].
func (l *MetricsRequestLogger) RequestEnded(req *Request, statusCode int, errorCodes []string) {
	l.mu.Lock()
	start, ok := l.started[req.ID]
	delete(l.started, req.ID)
	l.mu.Unlock()

	l.inFlight.Dec()
	l.total.WithLabelValues(req.Method, statusClass(statusCode)).Inc()
	if ok {
		l.duration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
	}
	for _, code := range errorCodes {
		l.errors.WithLabelValues(code).Inc()
	}
}

// statusClass buckets an HTTP status into its "Nxx" class string.
func statusClass(statusCode int) string {
	if statusCode < 100 || statusCode > 599 {
		return "xxx"
	}
	return strconv.Itoa(statusCode/100) + "xx"
}
