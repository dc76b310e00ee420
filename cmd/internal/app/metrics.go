package app

import (
	"net/http"
	"time"

	"backoffice/cmd/internal/guard"
	"backoffice/cmd/internal/session"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "backoffice"

// Metrics holds the server's Prometheus collectors on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	GuardDecisions *prometheus.CounterVec
	Dispatches     *prometheus.CounterVec
	LoginAttempts  *prometheus.CounterVec
	SyncPublished  *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
}

// NewMetrics registers every collector, plus the Go and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		GuardDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "guard_decisions_total",
			Help:      "Guarded view mounts by terminal state",
		}, []string{"state"}),
		Dispatches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "session_dispatch_total",
			Help:      "Session store dispatches by action type",
		}, []string{"action"}),
		LoginAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome",
		}, []string{"outcome"}),
		SyncPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sessionsync_frames_total",
			Help:      "Session sync frames by delivery result",
		}, []string{"result"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status class",
		}, []string{"method", "class"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveGuard is a guard decision hook.
func (m *Metrics) ObserveGuard(s guard.State) {
	m.GuardDecisions.WithLabelValues(s.String()).Inc()
}

// ObserveDispatch is an auth dispatch observer.
func (m *Metrics) ObserveDispatch(a session.Action, _ session.Session, _ string) {
	m.Dispatches.WithLabelValues(string(a.Type)).Inc()
}

// ObserveLogin is an auth login hook.
func (m *Metrics) ObserveLogin(outcome string) {
	m.LoginAttempts.WithLabelValues(outcome).Inc()
}

// ObservePublish records one hub fan-out.
func (m *Metrics) ObservePublish(delivered, dropped int) {
	m.SyncPublished.WithLabelValues("delivered").Add(float64(delivered))
	m.SyncPublished.WithLabelValues("dropped").Add(float64(dropped))
}

// Instrument counts and times requests passing through next.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(lrw, r)

		m.HTTPRequests.WithLabelValues(r.Method, statusClass(lrw.status)).Inc()
		m.HTTPDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
