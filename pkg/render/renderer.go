// Package render provides the slide renderers used by the assembly pipeline.
// Each renderer loads one slide source from storage, converts it to deck
// markup and appends exactly one slide to the deck in progress.
package render

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/joeblew999/deckbuild/pkg/assembly"
)

// ErrUnsupportedSource is returned for sources no renderer is registered for.
var ErrUnsupportedSource = errors.New("unsupported slide source")

// Registry dispatches a source to a renderer by file extension.
type Registry struct {
	byExt map[string]assembly.Renderer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]assembly.Renderer)}
}

// Register binds ext (".dsh") to renderer, replacing any earlier binding.
func (r *Registry) Register(ext string, renderer assembly.Renderer) *Registry {
	r.byExt[normalizeExt(ext)] = renderer
	return r
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Render implements assembly.Renderer.
func (r *Registry) Render(ctx context.Context, source string, d *assembly.Deck) (assembly.Annotatable, error) {
	ext := normalizeExt(path.Ext(source))
	renderer, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, source)
	}
	return renderer.Render(ctx, source, d)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
