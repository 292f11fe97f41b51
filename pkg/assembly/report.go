package assembly

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Outcome is the result kind of one slide attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota + 1
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// RenderResult records the attempt for one entry of the slide order.
type RenderResult struct {
	Position  int         `json:"position"`
	Source    string      `json:"source"`
	Outcome   Outcome     `json:"outcome"`
	Message   string      `json:"message,omitempty"`
	Annotated bool        `json:"annotated,omitempty"`
	Slide     Annotatable `json:"-"`
}

// Failure is a render failure as listed in a RunReport.
type Failure struct {
	Position int    `json:"position"`
	Source   string `json:"source"`
	Message  string `json:"message"`
}

// RunReport is the aggregate outcome of one run.
type RunReport struct {
	RunID      string         `json:"run_id"`
	Deck       string         `json:"deck"`
	OutputName string         `json:"output_name"`
	Total      int            `json:"total"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	Failures   []Failure      `json:"failures"`
	Results    []RenderResult `json:"results"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

func newRunReport(cfg DeckConfiguration, runID string, results []RenderResult) *RunReport {
	r := &RunReport{
		RunID:      runID,
		Deck:       cfg.Name,
		OutputName: cfg.OutputName,
		Total:      len(results),
		Failures:   make([]Failure, 0),
		Results:    results,
	}
	for _, res := range results {
		if res.Outcome == OutcomeSuccess {
			r.Succeeded++
			continue
		}
		r.Failed++
		r.Failures = append(r.Failures, Failure{
			Position: res.Position,
			Source:   res.Source,
			Message:  res.Message,
		})
	}
	return r
}

// Complete reports whether every slide rendered.
func (r *RunReport) Complete() bool { return r.Failed == 0 }

// Duration is the wall time of the run including persistence.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// JSON encodes the report for event consumers.
func (r *RunReport) JSON() ([]byte, error) {
	return json.Marshal(r)
}

// ExcerptLength bounds failure messages in Summary.
const ExcerptLength = 80

// Summary renders the report as text for the console and the stored report.
func (r *RunReport) Summary() string {
	var b strings.Builder
	title := r.Deck
	if r.OutputName != "" {
		title = fmt.Sprintf("%s (%s)", r.Deck, r.OutputName)
	}
	fmt.Fprintf(&b, "Deck: %s\n", title)
	fmt.Fprintf(&b, "Successful: %d/%d\n", r.Succeeded, r.Total)
	fmt.Fprintf(&b, "Failed: %d\n", r.Failed)
	if len(r.Failures) > 0 {
		b.WriteString("\nFailed slides:\n")
		for _, f := range r.Failures {
			fmt.Fprintf(&b, "  - [%d] %s: %s\n", f.Position, f.Source, excerpt(f.Message, ExcerptLength))
		}
	}
	return b.String()
}

func excerpt(msg string, limit int) string {
	msg = strings.Join(strings.Fields(msg), " ")
	runes := []rune(msg)
	if len(runes) <= limit {
		return msg
	}
	return string(runes[:limit]) + "..."
}
