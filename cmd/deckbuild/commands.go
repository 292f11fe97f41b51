package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	berrors "github.com/joeblew999/deckbuild/internal/errors"
	"github.com/joeblew999/deckbuild/internal/logfields"
	"github.com/joeblew999/deckbuild/internal/watch"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Decks   []string `arg:"" optional:"" help:"Decks to build"`
	All     bool     `short:"a" help:"Build every deck in the catalog"`
	Exports []string `name:"export" short:"e" help:"Override build.exports (svg, png, pdf)"`
}

func (c *BuildCmd) Run(root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	names := c.Decks
	switch {
	case c.All && len(names) > 0:
		return berrors.New(berrors.CategoryValidation, berrors.SeverityFatal, "name decks or pass --all, not both")
	case c.All:
		names = cfg.Names()
	case len(names) == 0:
		return berrors.New(berrors.CategoryValidation, berrors.SeverityFatal, "no deck named; pass a deck or --all")
	}

	b, err := newBuilder(cfg, root.out(), c.Exports)
	if err != nil {
		return err
	}
	defer b.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Each deck is an independent run; one deck's fatal error does not stop
	// the others.
	var errs []error
	for i, name := range names {
		if i > 0 {
			fmt.Fprintln(root.out())
		}
		if err := b.buildDeck(ctx, name); err != nil {
			b.logger.Error("Deck build failed", logfields.Deck(name), logfields.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ListCmd implements the 'list' command.
type ListCmd struct{}

func (ListCmd) Run(root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(root.out(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tOUTPUT\tSLIDES\tNOTES\tTITLE")
	for _, d := range cfg.Decks {
		slides := fmt.Sprintf("%d", len(d.Slides))
		if d.Scan != nil {
			slides = "scan:" + d.Scan.Dir
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", d.Name, d.OutputName, slides, len(d.Notes), d.Metadata.Title)
	}
	return w.Flush()
}

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Deck    string   `arg:"" help:"Deck to rebuild"`
	Exports []string `name:"export" short:"e" help:"Override build.exports (svg, png, pdf)"`
	Metrics string   `name:"metrics-addr" help:"Override build.metrics_addr, e.g. :9090"`
}

func (c *WatchCmd) Run(root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if _, err := cfg.Deck(c.Deck); err != nil {
		return err
	}

	b, err := newBuilder(cfg, root.out(), c.Exports)
	if err != nil {
		return err
	}
	defer b.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := cfg.Build.MetricsAddr
	if c.Metrics != "" {
		addr = c.Metrics
	}
	if addr != "" {
		b.serveMetrics(ctx, addr)
	}

	w := watch.New(b.sourceDirs(c.Deck), func(ctx context.Context) error {
		return b.buildDeck(ctx, c.Deck)
	}, watch.WithLogger(b.logger))
	return w.Run(ctx)
}
