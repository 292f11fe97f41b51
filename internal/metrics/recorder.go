// Package metrics defines observability hooks for deck builds.
package metrics

import "time"

// SlideResult labels the outcome of one slide attempt.
type SlideResult string

const (
	SlideRendered SlideResult = "rendered"
	SlideFailed   SlideResult = "failed"
)

// RunOutcome labels how a run ended.
type RunOutcome string

const (
	RunComplete RunOutcome = "complete" // every slide rendered, artifact written
	RunPartial  RunOutcome = "partial"  // some slides failed, artifact written
	RunAborted  RunOutcome = "aborted"  // annotation or persistence failure
	RunRejected RunOutcome = "rejected" // configuration error, nothing rendered
)

// Recorder receives build metrics. Implementations may forward to Prometheus.
type Recorder interface {
	IncSlideResult(deck string, result SlideResult)
	ObserveSlideDuration(deck string, d time.Duration)
	ObserveRunDuration(deck string, d time.Duration)
	IncRunOutcome(deck string, outcome RunOutcome)
}

// NoopRecorder is the default when metrics are not configured.
type NoopRecorder struct{}

func (NoopRecorder) IncSlideResult(string, SlideResult)          {}
func (NoopRecorder) ObserveSlideDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(string, time.Duration)   {}
func (NoopRecorder) IncRunOutcome(string, RunOutcome)            {}
