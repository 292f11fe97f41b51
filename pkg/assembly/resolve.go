package assembly

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	berrors "github.com/joeblew999/deckbuild/internal/errors"
	"github.com/joeblew999/deckbuild/runtime"
)

// SlideSource produces the ordered slide-source references of a deck.
type SlideSource interface {
	Resolve(ctx context.Context) ([]string, error)
}

// ExplicitList is a hand-curated slide order.
type ExplicitList []string

func (l ExplicitList) Resolve(context.Context) ([]string, error) {
	if len(l) == 0 {
		return nil, fmt.Errorf("explicit slide list is empty")
	}
	return append([]string(nil), l...), nil
}

// Lister is the part of runtime.Storage a DirectoryScan needs.
type Lister interface {
	List(ctx context.Context, prefix string, delimiter string) (*runtime.ListResult, error)
}

// DirectoryScan orders the sources found in one storage directory by the
// number embedded in their file names.
type DirectoryScan struct {
	Store Lister
	Dir   string

	// Prefix, when set, keeps only file names starting with it.
	Prefix string

	// Extensions, when set, keeps only files with one of these extensions
	// (".dsh", ".md").
	Extensions []string
}

func (s DirectoryScan) Resolve(ctx context.Context) ([]string, error) {
	if s.Store == nil {
		return nil, fmt.Errorf("directory scan of %q has no storage", s.Dir)
	}
	prefix := strings.Trim(s.Dir, "/")
	if prefix != "" {
		prefix += "/"
	}
	listing, err := s.Store.List(ctx, prefix, "/")
	if err != nil {
		return nil, fmt.Errorf("failed to list %q: %w", s.Dir, err)
	}

	refs := make([]string, 0, len(listing.Keys))
	for _, key := range listing.Keys {
		name := path.Base(key)
		if s.Prefix != "" && !strings.HasPrefix(name, s.Prefix) {
			continue
		}
		if len(s.Extensions) > 0 && !hasExtension(name, s.Extensions) {
			continue
		}
		refs = append(refs, key)
	}

	ordered := SortByEmbeddedNumber(refs)
	if len(ordered) == 0 {
		return nil, fmt.Errorf("no numbered slide sources found in %q", s.Dir)
	}
	return ordered, nil
}

func hasExtension(name string, exts []string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

var digitsRegex = regexp.MustCompile(`\d+`)

// SortByEmbeddedNumber returns the references that carry a number in their
// file name, ordered by that number ascending. The first run of digits in the
// base name counts. References without digits are dropped; equal numbers keep
// a stable order by reference.
func SortByEmbeddedNumber(refs []string) []string {
	type numbered struct {
		ref string
		n   uint64
	}
	items := make([]numbered, 0, len(refs))
	for _, ref := range refs {
		if n, ok := embeddedNumber(ref); ok {
			items = append(items, numbered{ref: ref, n: n})
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].n != items[j].n {
			return items[i].n < items[j].n
		}
		return items[i].ref < items[j].ref
	})

	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ref
	}
	return out
}

// embeddedNumber returns the first run of digits in the base name of ref.
func embeddedNumber(ref string) (uint64, bool) {
	digits := digitsRegex.FindString(path.Base(ref))
	if digits == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// DeckDefinition is a named deck variant whose slide order is resolved at
// build time.
type DeckDefinition struct {
	Name        string
	Metadata    Metadata
	OutputName  string
	Annotations map[int]string
	Slides      SlideSource

	// NotesByNumber keys speaker notes by the number embedded in a source's
	// file name. Resolve moves them to the position that source lands on;
	// numbers with no matching source are dropped.
	NotesByNumber map[int]string
}

// Resolve turns the definition into a concrete configuration.
func (def DeckDefinition) Resolve(ctx context.Context) (DeckConfiguration, error) {
	if def.Slides == nil {
		return DeckConfiguration{}, berrors.ConfigInvalid(def.Name, "no slide source")
	}
	order, err := def.Slides.Resolve(ctx)
	if err != nil {
		return DeckConfiguration{}, berrors.ResolveFailed(def.Name, err)
	}
	annotations := def.Annotations
	if len(def.NotesByNumber) > 0 {
		if annotations, err = def.positionalNotes(order); err != nil {
			return DeckConfiguration{}, err
		}
	}
	return DeckConfiguration{
		Name:        def.Name,
		SlideOrder:  order,
		Annotations: annotations,
		Metadata:    def.Metadata,
		OutputName:  def.OutputName,
	}, nil
}

// positionalNotes merges Annotations with NotesByNumber mapped onto order.
// When two sources share a number the first one gets the note.
func (def DeckDefinition) positionalNotes(order []string) (map[int]string, error) {
	positions := make(map[uint64]int, len(order))
	for i, ref := range order {
		if n, ok := embeddedNumber(ref); ok {
			if _, seen := positions[n]; !seen {
				positions[n] = i + 1
			}
		}
	}

	out := make(map[int]string, len(def.Annotations)+len(def.NotesByNumber))
	for pos, note := range def.Annotations {
		out[pos] = note
	}
	for num, note := range def.NotesByNumber {
		if num < 0 {
			continue
		}
		pos, ok := positions[uint64(num)]
		if !ok {
			continue
		}
		if _, taken := out[pos]; taken {
			return nil, berrors.ConfigInvalid(def.Name,
				fmt.Sprintf("slide %d has both a positional note and a note for file number %d", pos, num))
		}
		out[pos] = note
	}
	return out, nil
}
