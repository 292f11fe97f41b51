package logfields

import "log/slog"

// Canonical log field names shared by the pipeline, CLI and watcher.
const (
	KeyDeck       = "deck"
	KeyRunID      = "run_id"
	KeyPosition   = "position"
	KeyTotal      = "total"
	KeySource     = "source"
	KeyOutput     = "output"
	KeyFormat     = "format"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

func Deck(name string) slog.Attr      { return slog.String(KeyDeck, name) }
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Position(p int) slog.Attr        { return slog.Int(KeyPosition, p) }
func Total(n int) slog.Attr           { return slog.Int(KeyTotal, n) }
func Source(ref string) slog.Attr     { return slog.String(KeySource, ref) }
func Output(name string) slog.Attr    { return slog.String(KeyOutput, name) }
func Format(f string) slog.Attr       { return slog.String(KeyFormat, f) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
