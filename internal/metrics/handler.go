package metrics

import (
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"time"

	dto "github.com/prometheus/client_model/go"
)

// Summary is the JSON response for the metrics summary endpoint.
type Summary struct {
	Mode      string        `json:"mode"`
	HTTP      httpSummary   `json:"http"`
	Views     viewSummary   `json:"views"`
	Remote    remoteSummary `json:"remote"`
	RateLimit rateLimitInfo `json:"rateLimit"`
	Server    serverInfo    `json:"server"`
}

type httpSummary struct {
	TotalRequests float64 `json:"totalRequests"`
	ErrorRate     float64 `json:"errorRate"`
	P50Latency    float64 `json:"p50Latency"`
	P95Latency    float64 `json:"p95Latency"`
	P99Latency    float64 `json:"p99Latency"`
}

type viewSummary struct {
	ActiveSessions float64 `json:"activeSessions"`
	Renders        float64 `json:"renders"`
	RenderErrors   float64 `json:"renderErrors"`
	P95Render      float64 `json:"p95Render"`
	UIEvents       float64 `json:"uiEvents"`
	UIEventErrors  float64 `json:"uiEventErrors"`
}

type remoteSummary struct {
	TotalCalls float64 `json:"totalCalls"`
	Failures   float64 `json:"failures"`
	P50Latency float64 `json:"p50Latency"`
	P95Latency float64 `json:"p95Latency"`
}

type rateLimitInfo struct {
	Rejections float64 `json:"rejections"`
}

type serverInfo struct {
	StartTime     float64 `json:"startTime"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
}

// Handler returns an http.HandlerFunc that serves live metrics in JSON format.
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.handleLive(w)
	}
}

// Summarize gathers the registry into a Summary.
func (m *Metrics) Summarize() (Summary, error) {
	gathered, err := m.registry.Gather()
	if err != nil {
		return Summary{}, err
	}

	fams := make(map[string]family, len(gathered))
	for _, f := range gathered {
		fams[f.GetName()] = family{f}
	}
	get := func(name string) family { return fams["pageshare_"+name] }

	httpRequests := get("http_requests_total")
	httpDuration := get("http_request_duration_seconds")
	remoteDuration := get("remote_call_duration_seconds")
	start := get("server_start_time_seconds").gauge()

	return Summary{
		Mode: "live",
		HTTP: httpSummary{
			TotalRequests: httpRequests.sum(),
			ErrorRate:     httpRequests.ratio(isHTTPError),
			P50Latency:    httpDuration.quantile(0.50),
			P95Latency:    httpDuration.quantile(0.95),
			P99Latency:    httpDuration.quantile(0.99),
		},
		Views: viewSummary{
			ActiveSessions: get("active_sessions").gauge(),
			Renders:        get("renders_total").sum(),
			RenderErrors:   get("render_errors_total").sum(),
			P95Render:      get("render_duration_seconds").quantile(0.95),
			UIEvents:       get("ui_events_total").sum(),
			UIEventErrors:  get("ui_events_total").sumWhere(labelIs("result", "error")),
		},
		Remote: remoteSummary{
			TotalCalls: get("remote_calls_total").sum(),
			Failures:   get("remote_failures_total").sum(),
			P50Latency: remoteDuration.quantile(0.50),
			P95Latency: remoteDuration.quantile(0.95),
		},
		RateLimit: rateLimitInfo{
			Rejections: get("ratelimit_rejections_total").sum(),
		},
		Server: serverInfo{
			StartTime:     start,
			UptimeSeconds: float64(time.Now().Unix()) - start,
		},
	}, nil
}

func (m *Metrics) handleLive(w http.ResponseWriter) {
	summary, err := m.Summarize()
	if err != nil {
		http.Error(w, "failed to gather metrics", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	_ = json.NewEncoder(w).Encode(summary)
}

// family wraps a gathered metric family. A zero family reads as empty.
type family struct {
	*dto.MetricFamily
}

type metricFilter func(*dto.Metric) bool

func labelIs(name, value string) metricFilter {
	return func(m *dto.Metric) bool {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == name && lp.GetValue() == value {
				return true
			}
		}
		return false
	}
}

// isHTTPError matches 4xx and 5xx responses.
func isHTTPError(m *dto.Metric) bool {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == "status_code" {
			code := lp.GetValue()
			return code != "" && code[0] >= '4'
		}
	}
	return false
}

func (f family) sum() float64 {
	return f.sumWhere(func(*dto.Metric) bool { return true })
}

func (f family) sumWhere(keep metricFilter) float64 {
	var total float64
	for _, m := range f.GetMetric() {
		if c := m.GetCounter(); c != nil && keep(m) {
			total += c.GetValue()
		}
	}
	return total
}

// ratio is the share of the family's counts matched by keep.
func (f family) ratio(keep metricFilter) float64 {
	total := f.sum()
	if total == 0 {
		return 0
	}
	return f.sumWhere(keep) / total
}

func (f family) gauge() float64 {
	for _, m := range f.GetMetric() {
		if g := m.GetGauge(); g != nil {
			return g.GetValue()
		}
	}
	return 0
}

// quantile estimates the q-quantile across every histogram in the family,
// interpolating linearly inside the bucket that holds the rank.
func (f family) quantile(q float64) float64 {
	counts := make(map[float64]uint64)
	var observed uint64
	for _, m := range f.GetMetric() {
		h := m.GetHistogram()
		if h == nil {
			continue
		}
		observed += h.GetSampleCount()
		for _, b := range h.GetBucket() {
			if !math.IsInf(b.GetUpperBound(), 1) {
				counts[b.GetUpperBound()] += b.GetCumulativeCount()
			}
		}
	}
	if observed == 0 || len(counts) == 0 {
		return 0
	}

	bounds := make([]float64, 0, len(counts))
	for ub := range counts {
		bounds = append(bounds, ub)
	}
	sort.Float64s(bounds)

	rank := q * float64(observed)
	var lower float64
	var below uint64
	for _, ub := range bounds {
		cum := counts[ub]
		if float64(cum) >= rank {
			inBucket := cum - below
			if inBucket == 0 {
				return ub
			}
			return lower + (rank-float64(below))/float64(inBucket)*(ub-lower)
		}
		lower, below = ub, cum
	}
	return bounds[len(bounds)-1]
}
