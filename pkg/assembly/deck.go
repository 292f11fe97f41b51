// Package assembly builds one presentation deck from an ordered list of slide
// sources. Sources are rendered one at a time into a shared Deck; a slide that
// fails to render is recorded and skipped, and the deck is always handed to the
// persister once every source has been attempted.
package assembly

import (
	"fmt"

	"github.com/ajstarks/deck"
)

// Default canvas, 16:9.
const (
	DefaultCanvasWidth  = 1920
	DefaultCanvasHeight = 1080
)

// Metadata is attached to a deck once, before any slide is rendered.
type Metadata struct {
	Author  string `yaml:"author" json:"author"`
	Title   string `yaml:"title" json:"title"`
	Subject string `yaml:"subject" json:"subject"`
}

// Deck is the deck-in-progress. It is owned by a single run and is not safe
// for concurrent use.
type Deck struct {
	meta   Metadata
	width  int
	height int
	slides []*Slide

	// configuration position of the source currently being rendered
	position int
}

// NewDeck returns an empty deck with meta applied and the default canvas.
func NewDeck(meta Metadata) *Deck {
	return &Deck{
		meta:   meta,
		width:  DefaultCanvasWidth,
		height: DefaultCanvasHeight,
	}
}

// SetCanvas overrides the canvas size. Non-positive values are ignored.
func (d *Deck) SetCanvas(width, height int) {
	if width > 0 {
		d.width = width
	}
	if height > 0 {
		d.height = height
	}
}

// Canvas returns the canvas width and height in pixels.
func (d *Deck) Canvas() (int, int) { return d.width, d.height }

func (d *Deck) Metadata() Metadata { return d.meta }

// Slides returns the rendered slides in deck order.
func (d *Deck) Slides() []*Slide { return d.slides }

// Len returns the number of rendered slides.
func (d *Deck) Len() int { return len(d.slides) }

// AddSlide appends a rendered slide for source and returns its handle.
// Renderers call this exactly once per successful render.
func (d *Deck) AddSlide(source string, markup deck.Slide) *Slide {
	s := &Slide{
		Index:    len(d.slides) + 1,
		Position: d.position,
		Source:   source,
		Markup:   markup,
	}
	d.slides = append(d.slides, s)
	return s
}

func (d *Deck) begin(position int) { d.position = position }

// truncate drops slides added after the deck held n.
func (d *Deck) truncate(n int) {
	if n < len(d.slides) {
		d.slides = d.slides[:n]
	}
}

// Slide is one rendered slide inside a Deck.
type Slide struct {
	Index       int    // 1-based place in the deck
	Position    int    // 1-based place in the configured slide order
	Source      string // slide-source reference it was rendered from
	Fingerprint string // content fingerprint, if the renderer computed one
	Markup      deck.Slide

	note      string
	annotated bool
}

// AttachAnnotation sets the speaker notes for the slide. A slide accepts one
// annotation per run.
func (s *Slide) AttachAnnotation(text string) error {
	if s.annotated {
		return fmt.Errorf("slide %d (%s) already has an annotation", s.Position, s.Source)
	}
	s.note = text
	s.annotated = true
	return nil
}

// Annotation returns the speaker notes and whether any were attached.
func (s *Slide) Annotation() (string, bool) {
	return s.note, s.annotated
}
