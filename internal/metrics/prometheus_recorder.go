package metrics

import (
	"net/http"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/pageboot/internal/outcome"
)

const namespace = "pageboot"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	phaseDuration   *prom.HistogramVec
	stepResults     *prom.CounterVec
	requestDuration *prom.HistogramVec
	contentFetch    *prom.HistogramVec
	rumEvents       *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		phaseDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Duration of loader phases",
			Buckets:   prom.DefBuckets,
		}, []string{"phase"}),
		stepResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "step_results_total",
			Help:      "Bootstrap step results by status",
		}, []string{"phase", "step", "status"}),
		requestDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of proxied requests",
			Buckets:   prom.DefBuckets,
		}, []string{"route", "code"}),
		contentFetch: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "content_fetch_duration_seconds",
			Help:      "Duration of content fetches against the author origin",
			Buckets:   prom.DefBuckets,
		}, []string{"result"}),
		rumEvents: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rum_events_total",
			Help:      "Sampled RUM events by checkpoint",
		}, []string{"checkpoint"}),
	}
	reg.MustRegister(pr.phaseDuration, pr.stepResults, pr.requestDuration, pr.contentFetch, pr.rumEvents)
	return pr
}

func (p *PrometheusRecorder) ObservePhaseDuration(phase string, d time.Duration) {
	p.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStepResult(phase, step string, status outcome.Status) {
	p.stepResults.WithLabelValues(phase, step, string(status)).Inc()
}

func (p *PrometheusRecorder) ObserveRequestDuration(route string, code int, d time.Duration) {
	p.requestDuration.WithLabelValues(route, strconv.Itoa(code)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveContentFetch(d time.Duration, success bool) {
	res := "failed"
	if success {
		res = "success"
	}
	p.contentFetch.WithLabelValues(res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRUMEvent(checkpoint string) {
	p.rumEvents.WithLabelValues(checkpoint).Inc()
}

// HTTPHandler returns an http.Handler that serves Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
