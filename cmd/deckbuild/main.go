// Command deckbuild assembles slide decks from per-slide sources.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	berrors "github.com/joeblew999/deckbuild/internal/errors"
)

var version = "dev"

// CLI definition & global flags.
type CLI struct {
	Config     string           `short:"c" help:"Deck catalog file (defaults to the built-in catalog)" type:"path"`
	SourceRoot string           `name:"source-root" help:"Override build.source_root"`
	Output     string           `short:"o" help:"Override build.output_dir"`
	Verbose    bool             `short:"v" help:"Enable verbose logging"`

	Build   BuildCmd   `cmd:"" help:"Assemble one or more decks"`
	List    ListCmd    `cmd:"" help:"List the decks in the catalog"`
	Watch   WatchCmd   `cmd:"" help:"Rebuild a deck whenever its sources change"`
	Version VersionCmd `cmd:"" name:"version" help:"Print version"`

	stdout io.Writer
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

func (c *CLI) out() io.Writer {
	if c.stdout != nil {
		return c.stdout
	}
	return os.Stdout
}

// VersionCmd implements the 'version' command.
type VersionCmd struct{}

func (VersionCmd) Run(root *CLI) error {
	_, err := fmt.Fprintf(root.out(), "deckbuild %s\n", version)
	return err
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("deckbuild"),
		kong.Description("Assemble slide decks from per-slide sources."),
		kong.UsageOnError(),
	)
	os.Exit(run(ctx, &cli))
}

func run(ctx *kong.Context, cli *CLI) int {
	err := ctx.Run(cli)
	if err == nil {
		return 0
	}
	adapter := berrors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
	adapter.Log(err)
	fmt.Fprintln(os.Stderr, adapter.FormatError(err))
	return adapter.ExitCodeFor(err)
}
