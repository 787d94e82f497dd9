package metrics

import (
	"net/http"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "studyhub"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg          *prom.Registry
	streak       prom.Gauge
	transitions  *prom.CounterVec
	completions  *prom.CounterVec
	reminders    *prom.CounterVec
	jobRuns      *prom.CounterVec
	httpDuration *prom.HistogramVec
}

// NewPrometheusRecorder constructs and registers the metrics on reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		streak: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "streak_days",
			Help:      "Current study streak in days",
		}),
		transitions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "streak_transitions_total",
			Help:      "Persisted streak changes by transition",
		}, []string{"transition"}),
		completions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Qualifying study actions by source",
		}, []string{"source"}),
		reminders: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_total",
			Help:      "Study reminders by delivery result",
		}, []string{"result"}),
		jobRuns: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Background job runs by job and result",
		}, []string{"job", "result"}),
		httpDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Dashboard HTTP request duration",
			Buckets:   prom.DefBuckets,
		}, []string{"route", "code"}),
	}
	reg.MustRegister(pr.streak, pr.transitions, pr.completions, pr.reminders, pr.jobRuns, pr.httpDuration)
	return pr
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failed"
}

func (p *PrometheusRecorder) SetStreak(count int) {
	if p == nil {
		return
	}
	p.streak.Set(float64(count))
}

func (p *PrometheusRecorder) IncTransition(transition string) {
	if p == nil {
		return
	}
	p.transitions.WithLabelValues(transition).Inc()
}

func (p *PrometheusRecorder) IncCompletion(source string) {
	if p == nil {
		return
	}
	p.completions.WithLabelValues(source).Inc()
}

func (p *PrometheusRecorder) IncReminder(sent bool) {
	if p == nil {
		return
	}
	p.reminders.WithLabelValues(result(sent)).Inc()
}

func (p *PrometheusRecorder) IncJobRun(job string, success bool) {
	if p == nil {
		return
	}
	p.jobRuns.WithLabelValues(job, result(success)).Inc()
}

func (p *PrometheusRecorder) ObserveHTTPRequest(route string, status int, d time.Duration) {
	if p == nil {
		return
	}
	p.httpDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler serves the recorder's registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
