// Package config loads the deck catalog: build settings plus the named deck
// variants that can be assembled.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	berrors "github.com/joeblew999/deckbuild/internal/errors"
	"github.com/joeblew999/deckbuild/pkg/assembly"
	"github.com/joeblew999/deckbuild/pkg/export"
	"github.com/joeblew999/deckbuild/runtime"
)

//go:embed decks.yaml
var defaultCatalog []byte

// Config is the top-level catalog document.
type Config struct {
	Build BuildSettings `yaml:"build"`
	Decks []DeckRecord  `yaml:"decks"`
}

// BuildSettings controls where sources are read from and where artifacts go.
type BuildSettings struct {
	SourceRoot  string   `yaml:"source_root"`
	OutputDir   string   `yaml:"output_dir"`
	Exports     []string `yaml:"exports"`
	Exporter    string   `yaml:"exporter"` // svg or native
	BinDir      string   `yaml:"bin_dir"`
	FontDir     string   `yaml:"font_dir"`
	NATSURL     string   `yaml:"nats_url"`
	NATSSubject string   `yaml:"nats_subject"`
	MetricsAddr string   `yaml:"metrics_addr"`
	Canvas      Canvas   `yaml:"canvas"`

	// OutputBucket, when its endpoint is set, receives artifacts instead of
	// OutputDir.
	OutputBucket runtime.BucketConfig `yaml:"output_bucket"`
}

// Canvas is the slide size in pixels.
type Canvas struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// DeckRecord is one deck variant. Exactly one of Slides and Scan is set.
type DeckRecord struct {
	Name       string            `yaml:"name"`
	OutputName string            `yaml:"output"`
	Metadata   assembly.Metadata `yaml:"metadata"`
	Slides     []string          `yaml:"slides,omitempty"`
	Scan       *ScanRecord       `yaml:"scan,omitempty"`

	// Notes maps 1-based slide positions to speaker notes.
	Notes map[int]string `yaml:"notes,omitempty"`
}

// ScanRecord selects slides by listing a directory.
type ScanRecord struct {
	Dir        string   `yaml:"dir"`
	Prefix     string   `yaml:"prefix"`
	Extensions []string `yaml:"extensions"`

	// NotesByNumber keys speaker notes by the number in the file name.
	NotesByNumber map[int]string `yaml:"notes_by_number,omitempty"`
}

const (
	ExporterSVG    = "svg"
	ExporterNative = "native"
)

// Load reads the catalog at path. A .env and .env.local next to the working
// directory are loaded first so settings can reference them.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(".env", ".env.local"); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, berrors.ConfigNotFound(path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the built-in catalog.
func Default() (*Config, error) {
	if err := loadEnvFiles(".env", ".env.local"); err != nil {
		return nil, err
	}
	return parse(defaultCatalog)
}

func loadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

func parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Build.expandEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Only build settings are expanded; speaker notes may contain "$".
func (b *BuildSettings) expandEnv() {
	for _, s := range []*string{&b.SourceRoot, &b.OutputDir, &b.Exporter, &b.BinDir, &b.FontDir, &b.NATSURL, &b.NATSSubject, &b.MetricsAddr,
		&b.OutputBucket.Endpoint, &b.OutputBucket.Bucket, &b.OutputBucket.AccessKeyID, &b.OutputBucket.SecretKey} {
		*s = os.ExpandEnv(*s)
	}
}

func (c *Config) applyDefaults() {
	if c.Build.SourceRoot == "" {
		c.Build.SourceRoot = "."
	}
	if c.Build.OutputDir == "" {
		c.Build.OutputDir = "dist"
	}
	if c.Build.Exporter == "" {
		c.Build.Exporter = ExporterSVG
	}
	if c.Build.NATSSubject == "" {
		c.Build.NATSSubject = "deckbuild.runs"
	}
	if c.Build.Canvas.Width <= 0 || c.Build.Canvas.Height <= 0 {
		c.Build.Canvas = Canvas{Width: assembly.DefaultCanvasWidth, Height: assembly.DefaultCanvasHeight}
	}
	for i := range c.Decks {
		if c.Decks[i].OutputName == "" {
			c.Decks[i].OutputName = c.Decks[i].Name
		}
	}
}

// Validate checks the catalog structure. Per-deck annotation ranges are
// checked when a deck is assembled, once its slide order is known.
func (c *Config) Validate() error {
	switch c.Build.Exporter {
	case ExporterSVG, ExporterNative:
	default:
		return berrors.ConfigInvalid("", fmt.Sprintf("unknown exporter %q", c.Build.Exporter))
	}
	if _, err := c.Build.ExportFormats(); err != nil {
		return berrors.ConfigInvalid("", err.Error())
	}

	seen := make(map[string]bool, len(c.Decks))
	for _, d := range c.Decks {
		if d.Name == "" {
			return berrors.ConfigInvalid("", "deck without a name")
		}
		if seen[d.Name] {
			return berrors.ConfigInvalid(d.Name, "duplicate deck name")
		}
		seen[d.Name] = true

		if (len(d.Slides) > 0) == (d.Scan != nil) {
			return berrors.ConfigInvalid(d.Name, "exactly one of slides and scan must be set")
		}
	}
	return nil
}

// ExportFormats parses the configured export formats.
func (b BuildSettings) ExportFormats() ([]export.Format, error) {
	formats := make([]export.Format, 0, len(b.Exports))
	for _, s := range b.Exports {
		f, err := export.ParseFormat(s)
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}
	return formats, nil
}

// Names returns the deck names in catalog order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Decks))
	for _, d := range c.Decks {
		names = append(names, d.Name)
	}
	return names
}

// Deck returns the record named name.
func (c *Config) Deck(name string) (DeckRecord, error) {
	for _, d := range c.Decks {
		if d.Name == name {
			return d, nil
		}
	}
	return DeckRecord{}, berrors.DeckNotFound(name)
}

// Definition builds the deck definition for name. Scanned decks list their
// directory through lister.
func (c *Config) Definition(name string, lister assembly.Lister) (assembly.DeckDefinition, error) {
	rec, err := c.Deck(name)
	if err != nil {
		return assembly.DeckDefinition{}, err
	}

	def := assembly.DeckDefinition{
		Name:        rec.Name,
		Metadata:    rec.Metadata,
		OutputName:  rec.OutputName,
		Annotations: rec.Notes,
	}
	if rec.Scan != nil {
		def.Slides = assembly.DirectoryScan{
			Store:      lister,
			Dir:        rec.Scan.Dir,
			Prefix:     rec.Scan.Prefix,
			Extensions: rec.Scan.Extensions,
		}
		def.NotesByNumber = rec.Scan.NotesByNumber
	} else {
		def.Slides = assembly.ExplicitList(rec.Slides)
	}
	return def, nil
}

// SourceDirs returns the directories, relative to SourceRoot, that hold the
// slides of the named decks.
func (c *Config) SourceDirs(names ...string) []string {
	dirs := map[string]bool{}
	for _, name := range names {
		rec, err := c.Deck(name)
		if err != nil {
			continue
		}
		if rec.Scan != nil {
			dirs[filepath.FromSlash(strings.Trim(rec.Scan.Dir, "/"))] = true
			continue
		}
		for _, s := range rec.Slides {
			dirs[filepath.Dir(filepath.FromSlash(s))] = true
		}
	}
	out := make([]string, 0, len(dirs))
	for d := range dirs {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
