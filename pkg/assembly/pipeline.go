package assembly

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	berrors "github.com/joeblew999/deckbuild/internal/errors"
	"github.com/joeblew999/deckbuild/internal/logfields"
	"github.com/joeblew999/deckbuild/internal/metrics"
)

// Annotatable is the handle a renderer returns for a slide it produced.
type Annotatable interface {
	AttachAnnotation(text string) error
}

// Renderer turns one slide-source reference into one slide of d.
type Renderer interface {
	Render(ctx context.Context, source string, d *Deck) (Annotatable, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, source string, d *Deck) (Annotatable, error)

func (f RendererFunc) Render(ctx context.Context, source string, d *Deck) (Annotatable, error) {
	return f(ctx, source, d)
}

// Persister writes the finished deck under a name derived from outputName.
type Persister interface {
	Persist(ctx context.Context, d *Deck, outputName string) error
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(ctx context.Context, d *Deck, outputName string) error

func (f PersisterFunc) Persist(ctx context.Context, d *Deck, outputName string) error {
	return f(ctx, d, outputName)
}

var errNoSlide = errors.New("renderer returned no slide")

// Assembler runs the deck assembly pipeline.
type Assembler struct {
	renderer  Renderer
	persister Persister
	logger    *slog.Logger
	recorder  metrics.Recorder
	newID     func() string
	now       func() time.Time
	width     int
	height    int
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets the logger used for run progress.
func WithLogger(l *slog.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(a *Assembler) {
		if r != nil {
			a.recorder = r
		}
	}
}

// WithIDGenerator replaces the run ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(a *Assembler) {
		if fn != nil {
			a.newID = fn
		}
	}
}

// WithClock replaces the time source.
func WithClock(fn func() time.Time) Option {
	return func(a *Assembler) {
		if fn != nil {
			a.now = fn
		}
	}
}

// WithCanvas sets the canvas size of every deck the assembler creates.
func WithCanvas(width, height int) Option {
	return func(a *Assembler) {
		a.width, a.height = width, height
	}
}

// New creates an Assembler around a renderer and a persister.
func New(r Renderer, p Persister, opts ...Option) *Assembler {
	a := &Assembler{
		renderer:  r,
		persister: p,
		logger:    slog.Default(),
		recorder:  metrics.NoopRecorder{},
		newID:     uuid.NewString,
		now:       time.Now,
		width:     DefaultCanvasWidth,
		height:    DefaultCanvasHeight,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// render calls the renderer, turning a panic into a render error.
func (a *Assembler) render(ctx context.Context, source string, d *Deck) (slide Annotatable, err error) {
	defer func() {
		if r := recover(); r != nil {
			slide, err = nil, fmt.Errorf("renderer panic: %v", r)
		}
	}()
	return a.renderer.Render(ctx, source, d)
}

// Assemble executes one run for cfg.
//
// A configuration error is returned before any rendering. A render failure is
// recorded in the report and the run continues with the next position. An
// annotation failure aborts the run with a nil report. The deck is persisted
// once after every position was attempted; if that fails the complete report
// is returned together with the error.
func (a *Assembler) Assemble(ctx context.Context, cfg DeckConfiguration) (*RunReport, error) {
	if err := cfg.Validate(); err != nil {
		a.recorder.IncRunOutcome(cfg.Name, metrics.RunRejected)
		return nil, err
	}

	runID := a.newID()
	log := a.logger.With(logfields.Deck(cfg.Name), logfields.RunID(runID))
	started := a.now()
	total := len(cfg.SlideOrder)

	d := NewDeck(cfg.Metadata)
	d.SetCanvas(a.width, a.height)

	log.Info("Assembling deck", logfields.Total(total), logfields.Output(cfg.OutputName))

	results := make([]RenderResult, 0, total)
	for i, source := range cfg.SlideOrder {
		position := i + 1
		d.begin(position)
		log.Debug("Rendering slide", logfields.Position(position), logfields.Total(total), logfields.Source(source))

		slideStart := a.now()
		before := d.Len()
		slide, err := a.render(ctx, source, d)
		a.recorder.ObserveSlideDuration(cfg.Name, a.now().Sub(slideStart))
		if err == nil && slide == nil {
			err = errNoSlide
		}
		if err != nil {
			d.truncate(before)
			log.Warn("Slide failed, continuing",
				logfields.Position(position), logfields.Total(total),
				logfields.Source(source), logfields.Error(err))
			a.recorder.IncSlideResult(cfg.Name, metrics.SlideFailed)
			results = append(results, RenderResult{
				Position: position,
				Source:   source,
				Outcome:  OutcomeFailure,
				Message:  err.Error(),
			})
			continue
		}

		result := RenderResult{
			Position: position,
			Source:   source,
			Outcome:  OutcomeSuccess,
			Slide:    slide,
		}
		if note, ok := cfg.Annotations[position]; ok {
			if err := slide.AttachAnnotation(note); err != nil {
				log.Error("Annotation rejected, aborting run",
					logfields.Position(position), logfields.Source(source), logfields.Error(err))
				a.recorder.IncRunOutcome(cfg.Name, metrics.RunAborted)
				return nil, berrors.AnnotationFailed(position, source, err)
			}
			result.Annotated = true
		}
		a.recorder.IncSlideResult(cfg.Name, metrics.SlideRendered)
		results = append(results, result)
	}

	report := newRunReport(cfg, runID, results)
	report.StartedAt = started

	log.Debug("Persisting deck", logfields.Output(cfg.OutputName))
	persistErr := a.persister.Persist(ctx, d, cfg.OutputName)
	report.FinishedAt = a.now()
	a.recorder.ObserveRunDuration(cfg.Name, report.Duration())

	if persistErr != nil {
		log.Error("Artifact persistence failed", logfields.Output(cfg.OutputName), logfields.Error(persistErr))
		a.recorder.IncRunOutcome(cfg.Name, metrics.RunAborted)
		return report, berrors.PersistFailed(cfg.OutputName, persistErr)
	}

	outcome := metrics.RunComplete
	if !report.Complete() {
		outcome = metrics.RunPartial
	}
	a.recorder.IncRunOutcome(cfg.Name, outcome)
	log.Info("Deck assembled",
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		logfields.Output(cfg.OutputName),
		logfields.DurationMS(float64(report.Duration().Microseconds())/1000))

	return report, nil
}
