package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	slideResults  *prom.CounterVec
	slideDuration *prom.HistogramVec
	runDuration   *prom.HistogramVec
	runOutcomes   *prom.CounterVec
}

// NewPrometheusRecorder constructs the build metrics and registers them on reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		slideResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "deckbuild",
			Name:      "slide_results_total",
			Help:      "Slide render attempts by deck and result",
		}, []string{"deck", "result"}),
		slideDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "deckbuild",
			Name:      "slide_render_duration_seconds",
			Help:      "Duration of individual slide render calls",
			Buckets:   prom.DefBuckets,
		}, []string{"deck"}),
		runDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "deckbuild",
			Name:      "run_duration_seconds",
			Help:      "Duration of complete deck runs including persistence",
			Buckets:   prom.DefBuckets,
		}, []string{"deck"}),
		runOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "deckbuild",
			Name:      "run_outcomes_total",
			Help:      "Deck runs by final outcome",
		}, []string{"deck", "outcome"}),
	}
	reg.MustRegister(pr.slideResults, pr.slideDuration, pr.runDuration, pr.runOutcomes)
	return pr
}

func (p *PrometheusRecorder) IncSlideResult(deck string, result SlideResult) {
	if p == nil || p.slideResults == nil {
		return
	}
	p.slideResults.WithLabelValues(deck, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveSlideDuration(deck string, d time.Duration) {
	if p == nil || p.slideDuration == nil {
		return
	}
	p.slideDuration.WithLabelValues(deck).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRunDuration(deck string, d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.WithLabelValues(deck).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(deck string, outcome RunOutcome) {
	if p == nil || p.runOutcomes == nil {
		return
	}
	p.runOutcomes.WithLabelValues(deck, string(outcome)).Inc()
}

// Handler exposes reg in the Prometheus text format.
func Handler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
