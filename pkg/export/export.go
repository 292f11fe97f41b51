// Package export converts compiled deck markup into viewable renditions.
package export

import (
	"context"
	"fmt"
	"strings"
)

// Format represents a rendition format
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
	FormatPDF Format = "pdf"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatSVG, FormatPNG, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want svg, png or pdf)", s)
	}
}

// Exporter renders deck markup (the XML of a compiled artifact).
type Exporter interface {
	Export(ctx context.Context, deckXML []byte, format Format) (*Result, error)

	// Formats returns the formats this exporter can produce
	Formats() []Format
}

// Result holds the output of one export.
type Result struct {
	// Pages holds one document per slide, or a single multi-page document
	// for PDF.
	Pages [][]byte

	Format Format

	// Title from the deck metadata
	Title string

	SlideCount int
}

// Supports reports whether e can produce f.
func Supports(e Exporter, f Format) bool {
	for _, have := range e.Formats() {
		if have == f {
			return true
		}
	}
	return false
}
