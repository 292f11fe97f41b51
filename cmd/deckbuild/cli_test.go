package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const slideOne = `slide "white" "black"
	text "Welcome" 50 50 4
eslide
`

const slideTwo = `---
bg: black
fg: white
---
# Install

- Download
- Sign in
`

// newWorkspace lays out a source root, an output dir and a catalog.
func newWorkspace(t *testing.T, notes string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	out := filepath.Join(dir, "dist")
	files := map[string]string{
		"slides/slide1.dsh":  slideOne,
		"slides/slide2.md":   slideTwo,
		"slides/slide3.dsh":  "deck\nedeck\n",
		"slides/readme.txt":  "not a slide",
		"slides/slide10.dsh": slideOne,
	}
	for name, content := range files {
		path := filepath.Join(src, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	catalog := fmt.Sprintf(`
build:
  source_root: %s
  output_dir: %s
  exports: [svg]
decks:
  - name: demo
    output: Demo
    metadata:
      title: Demo
      author: Tester
    slides:
      - slides/slide1.dsh
      - slides/slide2.md
      - slides/slide3.dsh
      - slides/missing.dsh
    notes: %s
  - name: scanned
    output: Scanned
    scan:
      dir: slides
      prefix: slide
      extensions: [.dsh, .md]
`, src, out, notes)
	path := filepath.Join(dir, "decks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0o644))
	return path, out
}

func runCLI(t *testing.T, args ...string) (int, string) {
	t.Helper()
	var stdout bytes.Buffer
	cli := CLI{stdout: &stdout}
	parser, err := kong.New(&cli, kong.Name("deckbuild"), kong.Exit(func(int) {}))
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	require.NoError(t, err)
	return run(ctx, &cli), stdout.String()
}

func TestBuild_PartialFailureIsNotAnError(t *testing.T) {
	catalog, out := newWorkspace(t, `{2: "Markdown slide note"}`)

	code, stdout := runCLI(t, "-c", catalog, "build", "demo")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "Deck: demo (Demo)")
	assert.Contains(t, stdout, "Successful: 2/4")
	assert.Contains(t, stdout, "Failed: 2")
	assert.Contains(t, stdout, "[3] slides/slide3.dsh")
	assert.Contains(t, stdout, "[4] slides/missing.dsh")

	for _, name := range []string{"Demo.xml", "Demo.manifest.json", "Demo.report.txt", "Demo/slide-01.svg", "Demo/slide-02.svg"} {
		assert.FileExists(t, filepath.Join(out, filepath.FromSlash(name)))
	}
	xml, err := os.ReadFile(filepath.Join(out, "Demo.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(xml), "<note>Markdown slide note</note>")

	report, err := os.ReadFile(filepath.Join(out, "Demo.report.txt"))
	require.NoError(t, err)
	assert.Equal(t, stdout, string(report))
}

func TestBuild_ScannedDeck(t *testing.T) {
	catalog, out := newWorkspace(t, `{}`)

	code, stdout := runCLI(t, "-c", catalog, "build", "scanned")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "Successful: 3/4")
	assert.Contains(t, stdout, "[3] slides/slide3.dsh")
	assert.FileExists(t, filepath.Join(out, "Scanned.xml"))
}

func TestBuild_OutOfRangeNoteIsConfigError(t *testing.T) {
	catalog, out := newWorkspace(t, `{9: "nowhere"}`)

	code, stdout := runCLI(t, "-c", catalog, "build", "demo")
	assert.Equal(t, 7, code)
	assert.Empty(t, stdout)
	assert.NoFileExists(t, filepath.Join(out, "Demo.xml"))
}

func TestBuild_Usage(t *testing.T) {
	catalog, _ := newWorkspace(t, `{}`)

	code, _ := runCLI(t, "-c", catalog, "build")
	assert.Equal(t, 2, code)

	code, _ = runCLI(t, "-c", catalog, "build", "demo", "--all")
	assert.Equal(t, 2, code)

	code, _ = runCLI(t, "-c", catalog, "build", "unknown")
	assert.Equal(t, 2, code)

	code, _ = runCLI(t, "-c", filepath.Join(t.TempDir(), "missing.yaml"), "build", "demo")
	assert.Equal(t, 7, code)
}

func TestBuild_All(t *testing.T) {
	catalog, out := newWorkspace(t, `{}`)

	code, stdout := runCLI(t, "-c", catalog, "build", "--all", "--export", "svg")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "Deck: demo (Demo)")
	assert.Contains(t, stdout, "Deck: scanned (Scanned)")
	assert.FileExists(t, filepath.Join(out, "Demo.xml"))
	assert.FileExists(t, filepath.Join(out, "Scanned.xml"))
}

func TestList(t *testing.T) {
	code, stdout := runCLI(t, "list")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "NAME")
	assert.Contains(t, stdout, "Voice_AI_Workflows_Part1_CORE")
	assert.Contains(t, stdout, "scan:src/slides")
}

func TestVersion(t *testing.T) {
	code, stdout := runCLI(t, "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "deckbuild dev\n", stdout)
}
