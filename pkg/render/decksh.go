package render

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"regexp"

	"github.com/ajstarks/deck"
	"github.com/ajstarks/decksh"

	"github.com/joeblew999/deckbuild/pkg/assembly"
)

// DeckshRenderer renders .dsh slide sources with decksh.
//
// A source may be a complete "deck ... edeck" document holding one slide or
// just the slide body ("slide ... eslide"), which is wrapped before
// conversion.
type DeckshRenderer struct {
	load Loader
}

// NewDeckshRenderer creates a renderer reading sources through load.
func NewDeckshRenderer(load Loader) *DeckshRenderer {
	return &DeckshRenderer{load: load}
}

var deckKeywordRegex = regexp.MustCompile(`(?m)^\s*deck\s*$`)

// Render implements assembly.Renderer.
func (r *DeckshRenderer) Render(ctx context.Context, source string, d *assembly.Deck) (assembly.Annotatable, error) {
	content, err := r.load(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", source, err)
	}

	slide, err := r.Convert(ctx, content, source)
	if err != nil {
		return nil, err
	}
	return d.AddSlide(source, slide), nil
}

// Convert turns decksh markup into the single slide it describes.
func (r *DeckshRenderer) Convert(ctx context.Context, content []byte, sourceKey string) (deck.Slide, error) {
	if HasImports(content) {
		expanded, err := NewImportResolver(r.load).Expand(ctx, content, sourceKey)
		if err != nil {
			return deck.Slide{}, err
		}
		content = expanded
	}

	if !deckKeywordRegex.Match(content) {
		var wrapped bytes.Buffer
		wrapped.WriteString("deck\n")
		wrapped.Write(content)
		wrapped.WriteString("\nedeck\n")
		content = wrapped.Bytes()
	}

	var deckXML bytes.Buffer
	if err := decksh.Process(&deckXML, bytes.NewReader(content)); err != nil {
		return deck.Slide{}, fmt.Errorf("decksh processing failed: %w", err)
	}

	var parsed deck.Deck
	if err := xml.Unmarshal(deckXML.Bytes(), &parsed); err != nil {
		return deck.Slide{}, fmt.Errorf("failed to parse deck XML: %w", err)
	}

	if n := len(parsed.Slide); n != 1 {
		return deck.Slide{}, fmt.Errorf("expected exactly one slide, found %d", n)
	}
	return parsed.Slide[0], nil
}
