// Package metrics provides Prometheus metrics collection for the control
// plane's operational spine (spec.md §4.13).
package metrics

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/boringdata/boring-ui-controlplane/infrastructure/runtime"
)

// Metrics holds every collector the operational spine exposes.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	ProvisionJobsTotal    *prometheus.CounterVec
	AuditEventsEmitted    prometheus.Counter
	TenantBoundaryIncidents *prometheus.CounterVec

	ActiveStreams *prometheus.GaugeVec
}

// New creates a Metrics instance and registers its collectors.
func New(service string) *Metrics {
	return NewWithRegistry(service, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Metrics instance registered against a specific
// registerer, used by tests to avoid the global default registry.
func NewWithRegistry(service string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "requests_total",
				Help: "Total number of HTTP requests handled by the control plane.",
			},
			[]string{"method", "path", "status_class"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "request_duration_seconds",
				Help:    "HTTP request duration in seconds.",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		ProvisionJobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provision_jobs_total",
				Help: "Total provisioning jobs by terminal state and last_error_code.",
			},
			[]string{"state", "last_error_code"},
		),
		AuditEventsEmitted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "audit_events_emitted",
				Help: "Total number of audit events appended.",
			},
		),
		TenantBoundaryIncidents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenant_boundary_incidents",
				Help: "Total cross-tenant access attempts rejected (403/404).",
			},
			[]string{"reason"},
		),
		ActiveStreams: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "active_proxy_streams",
				Help: "Number of active SSE/WebSocket proxy streams per workspace.",
			},
			[]string{"workspace_id"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.RequestsTotal,
			m.RequestDuration,
			m.RequestsInFlight,
			m.ProvisionJobsTotal,
			m.AuditEventsEmitted,
			m.TenantBoundaryIncidents,
			m.ActiveStreams,
		)
	}

	_ = service
	return m
}

// RecordHTTPRequest records one completed request.
func (m *Metrics) RecordHTTPRequest(method, path, statusClass string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, statusClass).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordProvisionJob records a terminal provisioning job outcome.
func (m *Metrics) RecordProvisionJob(state, lastErrorCode string) {
	m.ProvisionJobsTotal.WithLabelValues(state, lastErrorCode).Inc()
}

// RecordAuditEvent increments the audit counter.
func (m *Metrics) RecordAuditEvent() {
	m.AuditEventsEmitted.Inc()
}

// RecordTenantBoundaryIncident increments the cross-tenant rejection counter.
func (m *Metrics) RecordTenantBoundaryIncident(reason string) {
	m.TenantBoundaryIncidents.WithLabelValues(reason).Inc()
}

// SetActiveStreams sets the current stream gauge for a workspace.
func (m *Metrics) SetActiveStreams(workspaceID string, count int) {
	m.ActiveStreams.WithLabelValues(workspaceID).Set(float64(count))
}

// Enabled reports whether Prometheus metrics should be exposed.
//
// Defaults: disabled in production unless METRICS_ENABLED is set; enabled
// everywhere else unless explicitly disabled.
func Enabled() bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("METRICS_ENABLED")))
	if raw == "" {
		return !runtime.IsProduction()
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

var (
	global   *Metrics
	globalMu sync.Mutex
)

// Init lazily initializes and returns the global Metrics instance.
func Init(service string) *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = New(service)
	}
	return global
}

// Global returns the global Metrics instance, initializing a default one if
// necessary.
func Global() *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = New("controlplane")
	}
	return global
}
