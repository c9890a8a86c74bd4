package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metric collectors for the share service.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// View metrics.
	RendersTotal      *prometheus.CounterVec
	RenderErrorsTotal *prometheus.CounterVec
	RenderDuration    *prometheus.HistogramVec
	UIEventsTotal     *prometheus.CounterVec
	ActiveSessions    prometheus.Gauge

	// Portal RPC metrics.
	RemoteCallsTotal    *prometheus.CounterVec
	RemoteCallDuration  *prometheus.HistogramVec
	RemoteFailuresTotal *prometheus.CounterVec

	RateLimitRejectionsTotal *prometheus.CounterVec

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pageshare_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pageshare_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		RendersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pageshare_renders_total",
			Help: "Total number of view renders.",
		}, []string{"view"}),

		RenderErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pageshare_render_errors_total",
			Help: "Total number of failed view renders.",
		}, []string{"view"}),

		RenderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pageshare_render_duration_seconds",
			Help:    "View render duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"view"}),

		UIEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pageshare_ui_events_total",
			Help: "Total number of UI events by binding and result.",
		}, []string{"binding", "result"}),

		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pageshare_active_sessions",
			Help: "Number of live share sessions.",
		}),

		RemoteCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pageshare_remote_calls_total",
			Help: "Total number of portal RPC calls.",
		}, []string{"operation", "status"}),

		RemoteCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pageshare_remote_call_duration_seconds",
			Help:    "Portal RPC duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),

		RemoteFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pageshare_remote_failures_total",
			Help: "Total number of failed portal RPC calls by reason.",
		}, []string{"operation", "reason"}),

		RateLimitRejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pageshare_ratelimit_rejections_total",
			Help: "Total number of rate limit rejections.",
		}, []string{"limiter_type", "scope"}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pageshare_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RendersTotal,
		m.RenderErrorsTotal,
		m.RenderDuration,
		m.UIEventsTotal,
		m.ActiveSessions,
		m.RemoteCallsTotal,
		m.RemoteCallDuration,
		m.RemoteFailuresTotal,
		m.RateLimitRejectionsTotal,
		m.ServerStartTime,
	)

	m.ServerStartTime.Set(float64(time.Now().Unix()))

	// Register Go runtime and process collectors.
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(method, pattern string, status int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, pattern, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pattern).Observe(d.Seconds())
}

// ObserveRender records a render attempt of view.
func (m *Metrics) ObserveRender(view string, d time.Duration, err error) {
	m.RendersTotal.WithLabelValues(view).Inc()
	m.RenderDuration.WithLabelValues(view).Observe(d.Seconds())
	if err != nil {
		m.RenderErrorsTotal.WithLabelValues(view).Inc()
	}
}

// IncUIEvent counts a handled UI event.
func (m *Metrics) IncUIEvent(binding, result string) {
	m.UIEventsTotal.WithLabelValues(binding, result).Inc()
}

// SetActiveSessions sets the live session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.ActiveSessions.Set(float64(n))
}

// ObserveRemoteCall records a completed portal call.
func (m *Metrics) ObserveRemoteCall(op, status string, seconds float64) {
	m.RemoteCallsTotal.WithLabelValues(op, status).Inc()
	m.RemoteCallDuration.WithLabelValues(op).Observe(seconds)
}

// IncRemoteFailure counts a portal call whose success callback was skipped.
func (m *Metrics) IncRemoteFailure(op, reason string) {
	m.RemoteFailuresTotal.WithLabelValues(op, reason).Inc()
}

// IncRateLimitRejection increments the rate limit rejection counter.
func (m *Metrics) IncRateLimitRejection(limiterType, scope string) {
	m.RateLimitRejectionsTotal.WithLabelValues(limiterType, scope).Inc()
}
