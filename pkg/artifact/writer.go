// Package artifact persists assembled decks: the deck markup, a JSON manifest
// and any exported renditions.
package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"log/slog"
	"time"

	"github.com/ajstarks/deck"

	berrors "github.com/joeblew999/deckbuild/internal/errors"
	"github.com/joeblew999/deckbuild/internal/logfields"
	"github.com/joeblew999/deckbuild/pkg/assembly"
	"github.com/joeblew999/deckbuild/pkg/export"
	"github.com/joeblew999/deckbuild/runtime"
)

// Marshal encodes d as deck markup. An attached annotation becomes the
// slide's <note>, replacing any note the renderer produced.
func Marshal(d *assembly.Deck) ([]byte, error) {
	meta := d.Metadata()
	out := deck.Deck{
		Title:   meta.Title,
		Creator: meta.Author,
		Subject: meta.Subject,
		Slide:   make([]deck.Slide, 0, d.Len()),
	}
	out.Canvas.Width, out.Canvas.Height = d.Canvas()
	for _, s := range d.Slides() {
		slide := s.Markup
		if note, ok := s.Annotation(); ok {
			slide.Note = note
		}
		out.Slide = append(out.Slide, slide)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.EncodeElement(out, xml.StartElement{Name: xml.Name{Local: "deck"}}); err != nil {
		return nil, fmt.Errorf("failed to encode deck: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Manifest describes a persisted deck.
type Manifest struct {
	OutputName  string          `json:"output_name"`
	Title       string          `json:"title"`
	Author      string          `json:"author"`
	Subject     string          `json:"subject"`
	SlideCount  int             `json:"slide_count"`
	GeneratedAt time.Time       `json:"generated_at"`
	Slides      []ManifestSlide `json:"slides"`
	Files       []string        `json:"files"`
}

// ManifestSlide describes one slide of a persisted deck.
type ManifestSlide struct {
	Index       int    `json:"index"`
	Position    int    `json:"position"`
	Source      string `json:"source"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Annotated   bool   `json:"annotated"`
}

// Keys of the files written for an output name.
func DeckKey(outputName string) string     { return outputName + ".xml" }
func ManifestKey(outputName string) string { return outputName + ".manifest.json" }
func ReportKey(outputName string) string   { return outputName + ".report.txt" }

// PageKey names one exported page. PDF exports are a single document.
func PageKey(outputName string, format export.Format, page int) string {
	if format == export.FormatPDF {
		return outputName + ".pdf"
	}
	return fmt.Sprintf("%s/slide-%02d.%s", outputName, page, format)
}

var contentTypes = map[export.Format]string{
	export.FormatSVG: "image/svg+xml",
	export.FormatPNG: "image/png",
	export.FormatPDF: "application/pdf",
}

// Writer implements assembly.Persister on a runtime.Storage.
type Writer struct {
	store    runtime.Storage
	exporter export.Exporter
	formats  []export.Format
	logger   *slog.Logger
	now      func() time.Time
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithExports renders every persisted deck in formats using e.
func WithExports(e export.Exporter, formats ...export.Format) WriterOption {
	return func(w *Writer) {
		w.exporter = e
		w.formats = formats
	}
}

// WithWriterLogger sets the logger.
func WithWriterLogger(l *slog.Logger) WriterOption {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithWriterClock replaces the time source used for GeneratedAt.
func WithWriterClock(fn func() time.Time) WriterOption {
	return func(w *Writer) {
		if fn != nil {
			w.now = fn
		}
	}
}

// NewWriter creates a Writer storing artifacts in store.
func NewWriter(store runtime.Storage, opts ...WriterOption) *Writer {
	w := &Writer{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Persist implements assembly.Persister. The deck markup is written first;
// exports and the manifest follow. Any failure aborts the remaining writes.
func (w *Writer) Persist(ctx context.Context, d *assembly.Deck, outputName string) error {
	data, err := Marshal(d)
	if err != nil {
		return err
	}

	key := DeckKey(outputName)
	if err := w.store.Put(ctx, key, data, "application/xml"); err != nil {
		return berrors.StorageError("put", key, err)
	}
	files := []string{key}

	if w.exporter != nil && d.Len() > 0 {
		for _, format := range w.formats {
			keys, err := w.export(ctx, data, outputName, format)
			if err != nil {
				return err
			}
			files = append(files, keys...)
		}
	}

	manifest := w.manifest(d, outputName, files)
	mdata, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	mkey := ManifestKey(outputName)
	if err := w.store.Put(ctx, mkey, mdata, "application/json"); err != nil {
		return berrors.StorageError("put", mkey, err)
	}

	w.logger.Info("Deck written",
		logfields.Output(outputName),
		slog.Int("slides", d.Len()),
		slog.Int("files", len(files)+1))
	return nil
}

func (w *Writer) export(ctx context.Context, data []byte, outputName string, format export.Format) ([]string, error) {
	start := w.now()
	res, err := w.exporter.Export(ctx, data, format)
	if err != nil {
		return nil, fmt.Errorf("%s export failed: %w", format, err)
	}

	keys := make([]string, 0, len(res.Pages))
	for i, page := range res.Pages {
		key := PageKey(outputName, format, i+1)
		if err := w.store.Put(ctx, key, page, contentTypes[format]); err != nil {
			return nil, berrors.StorageError("put", key, err)
		}
		keys = append(keys, key)
	}

	w.logger.Debug("Deck exported",
		logfields.Output(outputName),
		logfields.Format(string(format)),
		slog.Int("pages", len(keys)),
		logfields.DurationMS(float64(w.now().Sub(start).Microseconds())/1000))
	return keys, nil
}

func (w *Writer) manifest(d *assembly.Deck, outputName string, files []string) Manifest {
	meta := d.Metadata()
	m := Manifest{
		OutputName:  outputName,
		Title:       meta.Title,
		Author:      meta.Author,
		Subject:     meta.Subject,
		SlideCount:  d.Len(),
		GeneratedAt: w.now().UTC(),
		Slides:      make([]ManifestSlide, 0, d.Len()),
		Files:       files,
	}
	for _, s := range d.Slides() {
		_, annotated := s.Annotation()
		m.Slides = append(m.Slides, ManifestSlide{
			Index:       s.Index,
			Position:    s.Position,
			Source:      s.Source,
			Fingerprint: s.Fingerprint,
			Annotated:   annotated,
		})
	}
	return m
}
