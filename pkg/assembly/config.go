package assembly

import (
	"sort"

	berrors "github.com/joeblew999/deckbuild/internal/errors"
)

// DeckConfiguration is the static description of one presentation.
type DeckConfiguration struct {
	// Name identifies the deck in logs, metrics and reports.
	Name string

	// SlideOrder lists slide-source references in output order. Duplicates
	// are allowed.
	SlideOrder []string

	// Annotations maps a 1-based position in SlideOrder to speaker notes.
	// Keys bind to positions, not to source references.
	Annotations map[int]string

	Metadata Metadata

	// OutputName names the persisted artifact.
	OutputName string
}

// Validate checks the preconditions of a run. Any problem is a configuration
// error and no slide may be rendered.
func (c DeckConfiguration) Validate() error {
	v := NewValidator()
	v.RequireItems("slide order", len(c.SlideOrder))
	v.RequireNonEmpty("output name", c.OutputName)
	v.RequireNoPathTraversal("output name", c.OutputName)

	keys := make([]int, 0, len(c.Annotations))
	for k := range c.Annotations {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		v.RequireInRange("annotation key", k, 1, len(c.SlideOrder))
	}

	if !v.IsValid() {
		return berrors.ConfigInvalid(c.Name, v.Error())
	}
	return nil
}
