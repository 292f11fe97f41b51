package export

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ajstarks/deck"
)

// NativeExporter pipes deck markup through ajstarks' renderer binaries
// (svgdeck, pngdeck, pdfdeck). PNG and PDF output need the deck fonts.
type NativeExporter struct {
	bins     map[Format]string
	fontDir  string
	assetDir string
}

// NewNativeExporter locates the renderer binaries in binDir (default
// .bin/deck). At least one of them must exist.
func NewNativeExporter(binDir, fontDir string) (*NativeExporter, error) {
	if binDir == "" {
		binDir = ".bin/deck"
	}
	absBinDir, err := filepath.Abs(binDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for binDir: %w", err)
	}

	if fontDir == "" {
		fontDir = os.Getenv("DECKFONTS")
	}
	if fontDir == "" {
		fontDir = ".src/deckfonts"
	}
	absFontDir, err := filepath.Abs(fontDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for fontDir: %w", err)
	}

	e := &NativeExporter{
		bins: map[Format]string{
			FormatSVG: filepath.Join(absBinDir, "svgdeck"),
			FormatPNG: filepath.Join(absBinDir, "pngdeck"),
			FormatPDF: filepath.Join(absBinDir, "pdfdeck"),
		},
		fontDir: absFontDir,
	}
	if len(e.Formats()) == 0 {
		return nil, fmt.Errorf("no deck renderer binaries found in %s", absBinDir)
	}
	return e, nil
}

// WithAssetDir sets the working directory the renderers resolve images from.
func (e *NativeExporter) WithAssetDir(dir string) *NativeExporter {
	if abs, err := filepath.Abs(dir); err == nil {
		e.assetDir = abs
	}
	return e
}

// Formats returns the formats whose binaries are present.
func (e *NativeExporter) Formats() []Format {
	formats := []Format{}
	for _, f := range []Format{FormatSVG, FormatPNG, FormatPDF} {
		if _, err := os.Stat(e.bins[f]); err == nil {
			formats = append(formats, f)
		}
	}
	return formats
}

// Export implements Exporter.
func (e *NativeExporter) Export(ctx context.Context, deckXML []byte, format Format) (*Result, error) {
	bin, ok := e.bins[format]
	if !ok {
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	if _, err := os.Stat(bin); err != nil {
		return nil, fmt.Errorf("%s binary not found at %s: %w", format, bin, err)
	}

	var d deck.Deck
	if err := xml.Unmarshal(deckXML, &d); err != nil {
		return nil, fmt.Errorf("failed to parse deck XML: %w", err)
	}

	pages, err := e.render(ctx, bin, deckXML, len(d.Slide), format)
	if err != nil {
		return nil, err
	}
	return &Result{
		Pages:      pages,
		Format:     format,
		Title:      d.Title,
		SlideCount: len(d.Slide),
	}, nil
}

func (e *NativeExporter) render(ctx context.Context, bin string, deckXML []byte, slideCount int, format Format) ([][]byte, error) {
	if slideCount == 0 {
		return [][]byte{}, nil
	}

	tmpDir, err := os.MkdirTemp("", "deckbuild-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	xmlFile := filepath.Join(tmpDir, "deck.xml")
	if err := os.WriteFile(xmlFile, deckXML, 0644); err != nil {
		return nil, fmt.Errorf("failed to write XML file: %w", err)
	}

	// pdfdeck writes one multi-page document
	if format == FormatPDF {
		if err := e.run(ctx, bin, "-pages", fmt.Sprintf("1-%d", slideCount), "-fontdir", e.fontDir, "-outdir", tmpDir, xmlFile); err != nil {
			return nil, fmt.Errorf("pdf failed: %w", err)
		}
		data, err := os.ReadFile(filepath.Join(tmpDir, "deck.pdf"))
		if err != nil {
			return nil, fmt.Errorf("failed to read generated pdf: %w", err)
		}
		return [][]byte{data}, nil
	}

	pages := make([][]byte, slideCount)
	for i := range pages {
		n := i + 1
		args := []string{"-pages", fmt.Sprintf("%d-%d", n, n)}
		if format == FormatPNG {
			args = append(args, "-fontdir", e.fontDir)
		}
		args = append(args, "-outdir", tmpDir, xmlFile)
		if err := e.run(ctx, bin, args...); err != nil {
			return nil, fmt.Errorf("%s failed on slide %d: %w", format, n, err)
		}

		// output files are named deck-00001.{svg|png}
		out := filepath.Join(tmpDir, fmt.Sprintf("deck-%05d.%s", n, format))
		data, err := os.ReadFile(out)
		if err != nil {
			return nil, fmt.Errorf("failed to read generated %s for slide %d: %w", format, n, err)
		}
		pages[i] = data
	}
	return pages, nil
}

func (e *NativeExporter) run(ctx context.Context, bin string, args ...string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	if e.assetDir != "" {
		cmd.Dir = e.assetDir
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w\nstderr: %s", err, stderr.String())
	}
	return nil
}
