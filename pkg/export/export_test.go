package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoSlides = `<deck>
  <title>Voice-Driven AI Development Workflows</title>
  <canvas width="1280" height="720"/>
  <slide bg="white" fg="black">
    <text xp="10" yp="90" sp="5">Cursor &amp; Azure</text>
    <text xp="10" yp="70" sp="2" type="block" wp="80">A long paragraph that should wrap across more than one line of the slide canvas when laid out.</text>
    <rect xp="50" yp="20" wp="20" hp="10" color="hsv(0,100,100)"/>
    <list xp="10" yp="50" sp="2" type="number">
      <li>First</li>
      <li>Second</li>
    </list>
  </slide>
  <slide bg="black" fg="white">
    <line xp1="10" yp1="10" xp2="90" yp2="10"/>
    <polygon xc="10 20 30" yc="10 30 10"/>
    <text xp="10" yp="50" sp="2" type="code">go test ./...</text>
  </slide>
</deck>`

func TestSVGExporter_Export(t *testing.T) {
	res, err := NewSVGExporter().Export(context.Background(), []byte(twoSlides), FormatSVG)
	require.NoError(t, err)

	assert.Equal(t, 2, res.SlideCount)
	assert.Equal(t, "Voice-Driven AI Development Workflows", res.Title)
	require.Len(t, res.Pages, 2)

	first := string(res.Pages[0])
	assert.Contains(t, first, "<svg")
	assert.Contains(t, first, "viewBox=")
	assert.Contains(t, first, "1280")
	assert.Contains(t, first, "Cursor &amp; Azure")
	assert.Contains(t, first, "1. First")
	assert.Contains(t, first, "fill:rgb(255,0,0)")
	assert.Contains(t, first, "</svg>")

	second := string(res.Pages[1])
	assert.Contains(t, second, "<polygon")
	assert.Contains(t, second, "go test ./...")
	assert.Contains(t, second, "Monaco")
}

func TestSVGExporter_DefaultCanvas(t *testing.T) {
	res, err := NewSVGExporter().WithCanvas(800, 600).
		Export(context.Background(), []byte(`<deck><slide><text xp="50" yp="50" sp="3">x</text></slide></deck>`), FormatSVG)
	require.NoError(t, err)
	assert.Contains(t, string(res.Pages[0]), "800")
	assert.NotContains(t, string(res.Pages[0]), "1920")
}

func TestSVGExporter_Errors(t *testing.T) {
	e := NewSVGExporter()
	_, err := e.Export(context.Background(), []byte(twoSlides), FormatPDF)
	assert.Error(t, err)

	_, err = e.Export(context.Background(), []byte("<deck><slide>"), FormatSVG)
	assert.ErrorContains(t, err, "failed to parse deck XML")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Export(ctx, []byte(twoSlides), FormatSVG)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"svg": FormatSVG, " PNG ": FormatPNG, "pdf": FormatPDF} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("pptx")
	assert.Error(t, err)

	assert.True(t, Supports(NewSVGExporter(), FormatSVG))
	assert.False(t, Supports(NewSVGExporter(), FormatPNG))
}

func TestSVGColor(t *testing.T) {
	assert.Equal(t, "red", svgcolor("red"))
	assert.Equal(t, "rgb(255,0,0)", svgcolor("hsv(0,100,100)"))
	assert.Equal(t, "rgb(0,0,255)", svgcolor("hsv(240, 100, 100)"))
	assert.Equal(t, "rgb(0,0,0)", svgcolor("hsv(1,2)"))
}

func TestNativeExporter_MissingBinaries(t *testing.T) {
	_, err := NewNativeExporter(t.TempDir(), "")
	assert.ErrorContains(t, err, "no deck renderer binaries")
}

func TestNativeExporter_SVG(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	root := wd
	for {
		if _, err := os.Stat(filepath.Join(root, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(root)
		if parent == root {
			t.Skip("could not find project root")
		}
		root = parent
	}

	e, err := NewNativeExporter(filepath.Join(root, ".bin", "deck"), "")
	if err != nil {
		t.Skipf("deck binaries not available: %v", err)
	}
	if !Supports(e, FormatSVG) {
		t.Skip("svgdeck not available")
	}

	res, err := e.Export(context.Background(), []byte(twoSlides), FormatSVG)
	require.NoError(t, err)
	require.Len(t, res.Pages, 2)
	assert.True(t, strings.Contains(string(res.Pages[0]), "<svg"))
}
