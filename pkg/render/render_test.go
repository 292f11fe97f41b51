package render

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/ajstarks/deck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/deckbuild/pkg/assembly"
	"github.com/joeblew999/deckbuild/runtime"
)

const oneSlide = `deck
	slide "white" "black"
		text "Hello" 50 50 3
	eslide
edeck
`

func TestDeckshRenderer_Render(t *testing.T) {
	r := NewDeckshRenderer(mapLoader(map[string]string{"slides/slide01.dsh": oneSlide}))
	d := assembly.NewDeck(assembly.Metadata{Title: "t"})

	handle, err := r.Render(context.Background(), "slides/slide01.dsh", d)
	require.NoError(t, err)
	require.NotNil(t, handle)

	require.Equal(t, 1, d.Len())
	s := d.Slides()[0]
	assert.Equal(t, "slides/slide01.dsh", s.Source)
	assert.Equal(t, "white", s.Markup.Bg)
	require.Len(t, s.Markup.Text, 1)
	assert.Equal(t, "Hello", s.Markup.Text[0].Tdata)
	assert.NoError(t, handle.AttachAnnotation("say hello"))
}

func TestDeckshRenderer_WrapsBareSlide(t *testing.T) {
	src := "slide \"black\" \"white\"\n\ttext \"Bare\" 50 50 3\neslide\n"
	slide, err := NewDeckshRenderer(mapLoader(nil)).Convert(context.Background(), []byte(src), "bare.dsh")
	require.NoError(t, err)
	assert.Equal(t, "black", slide.Bg)
	require.Len(t, slide.Text, 1)
	assert.Equal(t, "Bare", slide.Text[0].Tdata)
}

func TestDeckshRenderer_SlideCount(t *testing.T) {
	r := NewDeckshRenderer(mapLoader(nil))

	_, err := r.Convert(context.Background(), []byte("deck\nedeck\n"), "empty.dsh")
	assert.ErrorContains(t, err, "expected exactly one slide, found 0")

	two := "deck\n\tslide\n\teslide\n\tslide\n\teslide\nedeck\n"
	_, err = r.Convert(context.Background(), []byte(two), "two.dsh")
	assert.ErrorContains(t, err, "expected exactly one slide, found 2")
}

func TestDeckshRenderer_StorageErrors(t *testing.T) {
	store, err := runtime.NewLocalFileStorage(t.TempDir())
	require.NoError(t, err)
	r := NewDeckshRenderer(StorageLoader(store))
	d := assembly.NewDeck(assembly.Metadata{})

	_, err = r.Render(context.Background(), "slides/missing.dsh", d)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Zero(t, d.Len())
}

func TestDeckshRenderer_FromStorageWithInclude(t *testing.T) {
	ctx := context.Background()
	store, err := runtime.NewLocalFileStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "slides/slide02.dsh", []byte("slide \"white\"\n\tinclude \"parts/title.dsh\"\neslide\n"), ""))
	require.NoError(t, store.Put(ctx, "slides/parts/title.dsh", []byte("text \"From include\" 50 80 4\n"), ""))

	d := assembly.NewDeck(assembly.Metadata{})
	_, err = NewDeckshRenderer(StorageLoader(store)).Render(ctx, "slides/slide02.dsh", d)
	require.NoError(t, err)
	require.Len(t, d.Slides()[0].Markup.Text, 1)
	assert.Equal(t, "From include", d.Slides()[0].Markup.Text[0].Tdata)
}

const markdownSlide = `---
bg: "#0b3d91"
fg: white
---
# Voice-Driven Development

Speak the intent, review the diff.

- Dictate prompts
- Review changes
- Commit

` + "```go\nfmt.Println(\"hi\")\n```\n"

func TestMarkdownRenderer_Convert(t *testing.T) {
	slide, fp, err := NewMarkdownRenderer(mapLoader(nil)).Convert([]byte(markdownSlide))
	require.NoError(t, err)

	assert.Equal(t, "#0b3d91", slide.Bg)
	assert.Equal(t, "white", slide.Fg)
	assert.NotEmpty(t, fp)

	require.Len(t, slide.Text, 3)
	assert.Equal(t, "Voice-Driven Development", slide.Text[0].Tdata)
	assert.Equal(t, h1Size, slide.Text[0].Sp)
	assert.Equal(t, "Speak the intent, review the diff.", slide.Text[1].Tdata)
	assert.Equal(t, "block", slide.Text[1].Type)
	assert.Equal(t, "code", slide.Text[2].Type)
	assert.Equal(t, `fmt.Println("hi")`, slide.Text[2].Tdata)

	require.Len(t, slide.List, 1)
	assert.Equal(t, "bullet", slide.List[0].Type)
	require.Len(t, slide.List[0].Li, 3)
	assert.Equal(t, "Review changes", slide.List[0].Li[1].ListText)

	assert.Greater(t, slide.Text[0].Yp, slide.Text[1].Yp)
	assert.Greater(t, slide.Text[1].Yp, slide.List[0].Yp)
}

func TestMarkdownRenderer_Fingerprint(t *testing.T) {
	r := NewMarkdownRenderer(mapLoader(nil))
	_, a, err := r.Convert([]byte("# Title\n\nBody"))
	require.NoError(t, err)
	_, b, err := r.Convert([]byte("# Title\n\nBody"))
	require.NoError(t, err)
	_, c, err := r.Convert([]byte("# Title\n\nOther body"))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestMarkdownRenderer_TitleLayoutAndInline(t *testing.T) {
	src := "---\nlayout: title\n---\n# Part **One**\n\n1. first `step`\n2. second\n"
	slide, _, err := NewMarkdownRenderer(mapLoader(nil)).Convert([]byte(src))
	require.NoError(t, err)

	require.NotEmpty(t, slide.Text)
	assert.Equal(t, "Part One", slide.Text[0].Tdata)
	assert.Equal(t, "center", slide.Text[0].Align)
	assert.Equal(t, 50.0, slide.Text[0].Xp)

	require.Len(t, slide.List, 1)
	assert.Equal(t, "number", slide.List[0].Type)
	assert.Equal(t, "first step", slide.List[0].Li[0].ListText)
}

func TestMarkdownRenderer_Errors(t *testing.T) {
	r := NewMarkdownRenderer(mapLoader(nil))

	_, _, err := r.Convert([]byte("---\nbg: red\n# never closed"))
	assert.ErrorIs(t, err, ErrMissingClosingDelimiter)

	_, _, err = r.Convert([]byte("---\nbg: [unterminated\n---\n# x"))
	assert.ErrorContains(t, err, "invalid frontmatter")

	_, _, err = r.Convert([]byte("---\nbg: red\n---\n\n"))
	assert.ErrorContains(t, err, "no content")
}

func TestMarkdownRenderer_Render(t *testing.T) {
	r := NewMarkdownRenderer(mapLoader(map[string]string{"html/slide1.md": "# One"}))
	d := assembly.NewDeck(assembly.Metadata{})
	_, err := r.Render(context.Background(), "html/slide1.md", d)
	require.NoError(t, err)
	require.Equal(t, 1, d.Len())
	assert.NotEmpty(t, d.Slides()[0].Fingerprint)
}

type fixedRenderer struct{ name string }

func (f fixedRenderer) Render(_ context.Context, source string, d *assembly.Deck) (assembly.Annotatable, error) {
	s := d.AddSlide(source, deck.Slide{})
	s.Fingerprint = f.name
	return s, nil
}

func TestRegistry_Dispatch(t *testing.T) {
	reg := NewRegistry().
		Register(".dsh", fixedRenderer{name: "decksh"}).
		Register("MD", fixedRenderer{name: "markdown"})

	assert.Equal(t, []string{".dsh", ".md"}, reg.Extensions())

	d := assembly.NewDeck(assembly.Metadata{})
	_, err := reg.Render(context.Background(), "a/slide1.dsh", d)
	require.NoError(t, err)
	_, err = reg.Render(context.Background(), "a/slide2.Md", d)
	require.NoError(t, err)
	assert.Equal(t, "decksh", d.Slides()[0].Fingerprint)
	assert.Equal(t, "markdown", d.Slides()[1].Fingerprint)

	_, err = reg.Render(context.Background(), "a/slide3.html", d)
	assert.ErrorIs(t, err, ErrUnsupportedSource)
	assert.Equal(t, 2, d.Len())
}
