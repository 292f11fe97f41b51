package assembly

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	berrors "github.com/joeblew999/deckbuild/internal/errors"
	"github.com/joeblew999/deckbuild/runtime"
)

func TestSortByEmbeddedNumber(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"discovery order", []string{"slide1", "slide3", "slide2"}, []string{"slide1", "slide2", "slide3"}},
		{"numeric not lexical", []string{"slide10.dsh", "slide9.dsh", "slide100.dsh"}, []string{"slide9.dsh", "slide10.dsh", "slide100.dsh"}},
		{"zero padded", []string{"slide02.md", "slide01.md"}, []string{"slide01.md", "slide02.md"}},
		{"gaps kept", []string{"slide81", "slide4", "slide58"}, []string{"slide4", "slide58", "slide81"}},
		{"no digits dropped", []string{"slide2", "README", "slide1"}, []string{"slide1", "slide2"}},
		{"ties break on reference", []string{"slide1b", "slide1a"}, []string{"slide1a", "slide1b"}},
		{"directory digits ignored", []string{"v9/slide2", "v1/slide3"}, []string{"v9/slide2", "v1/slide3"}},
		{"empty", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SortByEmbeddedNumber(tt.in))
		})
	}
}

type fakeLister struct {
	keys   []string
	err    error
	prefix string
}

func (f *fakeLister) List(_ context.Context, prefix, _ string) (*runtime.ListResult, error) {
	f.prefix = prefix
	if f.err != nil {
		return nil, f.err
	}
	return &runtime.ListResult{Keys: f.keys}, nil
}

func TestDirectoryScan_Resolve(t *testing.T) {
	store := &fakeLister{keys: []string{
		"slides/slide1.dsh", "slides/slide3.dsh", "slides/slide2.dsh",
		"slides/notes.txt", "slides/cover7.dsh", "slides/slide4.md",
	}}
	scan := DirectoryScan{Store: store, Dir: "/slides/", Prefix: "slide", Extensions: []string{".dsh"}}

	order, err := scan.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "slides/", store.prefix)
	assert.Equal(t, []string{"slides/slide1.dsh", "slides/slide2.dsh", "slides/slide3.dsh"}, order)
}

func TestDirectoryScan_LocalStorage(t *testing.T) {
	ctx := context.Background()
	store, err := runtime.NewLocalFileStorage(t.TempDir())
	require.NoError(t, err)
	for _, name := range []string{"slide3.md", "slide1.md", "slide2.md"} {
		require.NoError(t, store.Put(ctx, "html/"+name, []byte("# x"), ""))
	}

	order, err := DirectoryScan{Store: store, Dir: "html"}.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"html/slide1.md", "html/slide2.md", "html/slide3.md"}, order)
}

func TestDirectoryScan_Errors(t *testing.T) {
	_, err := DirectoryScan{Store: &fakeLister{}, Dir: "empty"}.Resolve(context.Background())
	assert.ErrorContains(t, err, "no numbered slide sources")

	_, err = DirectoryScan{Store: &fakeLister{err: errors.New("denied")}, Dir: "x"}.Resolve(context.Background())
	assert.ErrorContains(t, err, "denied")

	_, err = DirectoryScan{Dir: "x"}.Resolve(context.Background())
	assert.Error(t, err)
}

func TestExplicitList_Resolve(t *testing.T) {
	list := ExplicitList{"slide01", "slide81", "slide58", "slide01"}
	order, err := list.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"slide01", "slide81", "slide58", "slide01"}, order)

	order[0] = "changed"
	assert.Equal(t, "slide01", list[0])

	_, err = ExplicitList{}.Resolve(context.Background())
	assert.Error(t, err)
}

func TestDeckDefinition_Resolve(t *testing.T) {
	def := DeckDefinition{
		Name:        "workflow",
		Metadata:    Metadata{Author: "Austin Public Health", Title: "Workflow"},
		OutputName:  "Voice_First_Project_Workflow",
		Annotations: map[int]string{1: "intro"},
		Slides:      ExplicitList{"a", "b"},
	}
	cfg, err := def.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "workflow", cfg.Name)
	assert.Equal(t, []string{"a", "b"}, cfg.SlideOrder)
	assert.Equal(t, "intro", cfg.Annotations[1])
	assert.NoError(t, cfg.Validate())

	def.Slides = DirectoryScan{Store: &fakeLister{}, Dir: "missing"}
	_, err = def.Resolve(context.Background())
	assert.True(t, berrors.IsCategory(err, berrors.CategoryConfig))

	def.Slides = nil
	_, err = def.Resolve(context.Background())
	assert.True(t, berrors.IsCategory(err, berrors.CategoryConfig))
}

func TestDeckDefinition_NotesByNumber(t *testing.T) {
	store := &fakeLister{keys: []string{"slides/slide4.dsh", "slides/slide1.dsh", "slides/slide3.dsh"}}
	def := DeckDefinition{
		Name:          "full",
		Slides:        DirectoryScan{Store: store, Dir: "slides"},
		NotesByNumber: map[int]string{1: "one", 2: "two", 3: "three", 4: "four", 82: "late"},
	}

	cfg, err := def.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"slides/slide1.dsh", "slides/slide3.dsh", "slides/slide4.dsh"}, cfg.SlideOrder)
	assert.Equal(t, map[int]string{1: "one", 2: "three", 3: "four"}, cfg.Annotations)
	assert.NoError(t, cfg.Validate())
}

func TestDeckDefinition_NotesByNumberMerge(t *testing.T) {
	def := DeckDefinition{
		Name:          "mixed",
		Slides:        ExplicitList{"cover.dsh", "slide7.dsh", "slide9.md"},
		Annotations:   map[int]string{1: "cover"},
		NotesByNumber: map[int]string{9: "nine"},
	}
	cfg, err := def.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "cover", 3: "nine"}, cfg.Annotations)
	assert.Equal(t, map[int]string{1: "cover"}, def.Annotations)

	def.Annotations = map[int]string{2: "positional"}
	def.NotesByNumber = map[int]string{7: "numbered"}
	_, err = def.Resolve(context.Background())
	assert.True(t, berrors.IsCategory(err, berrors.CategoryConfig))
	assert.ErrorContains(t, err, "file number 7")
}
