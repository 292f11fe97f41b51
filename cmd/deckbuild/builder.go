package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/joeblew999/deckbuild/internal/config"
	berrors "github.com/joeblew999/deckbuild/internal/errors"
	"github.com/joeblew999/deckbuild/internal/logfields"
	"github.com/joeblew999/deckbuild/internal/metrics"
	"github.com/joeblew999/deckbuild/pkg/artifact"
	"github.com/joeblew999/deckbuild/pkg/assembly"
	"github.com/joeblew999/deckbuild/pkg/export"
	"github.com/joeblew999/deckbuild/pkg/render"
	"github.com/joeblew999/deckbuild/runtime"
)

// loadConfig reads the catalog named on the command line, or the built-in
// one, and applies the global overrides.
func loadConfig(root *CLI) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if root.Config != "" {
		cfg, err = config.Load(root.Config)
	} else {
		cfg, err = config.Default()
	}
	if err != nil {
		return nil, err
	}
	if root.SourceRoot != "" {
		cfg.Build.SourceRoot = root.SourceRoot
	}
	if root.Output != "" {
		cfg.Build.OutputDir = root.Output
	}
	return cfg, nil
}

// builder holds everything one or more deck runs share.
type builder struct {
	cfg       *config.Config
	input     *runtime.LocalFileStorage
	assembler *assembly.Assembler
	registry  *prom.Registry
	stdout    io.Writer
	logger    *slog.Logger
	closers   []func() error
}

func newBuilder(cfg *config.Config, stdout io.Writer, exports []string) (*builder, error) {
	input, err := runtime.NewLocalFileStorage(cfg.Build.SourceRoot)
	if err != nil {
		return nil, berrors.StorageError("open", cfg.Build.SourceRoot, err)
	}
	output, err := newOutputStorage(cfg.Build)
	if err != nil {
		return nil, err
	}

	b := &builder{
		cfg:      cfg,
		input:    input,
		registry: prom.NewRegistry(),
		stdout:   stdout,
		logger:   slog.Default(),
	}

	rt := &runtime.Runtime{InputStorage: input, OutputStorage: output}
	if cfg.Build.NATSURL != "" {
		pub, err := runtime.NewNATSPublisher(cfg.Build.NATSURL)
		if err != nil {
			return nil, berrors.Wrap(err, berrors.CategoryRuntime, berrors.SeverityFatal, "event publisher unavailable")
		}
		rt.Publisher = pub
		b.closers = append(b.closers, pub.Close)
	}
	runtime.SetRuntime(rt)

	writerOpts := []artifact.WriterOption{artifact.WithWriterLogger(b.logger)}
	if len(exports) == 0 {
		exports = cfg.Build.Exports
	}
	if len(exports) > 0 {
		exporter, formats, err := newExporter(cfg, exports)
		if err != nil {
			b.Close()
			return nil, err
		}
		writerOpts = append(writerOpts, artifact.WithExports(exporter, formats...))
	}

	load := render.StorageLoader(runtime.Input())
	registry := render.NewRegistry().
		Register(".dsh", render.NewDeckshRenderer(load)).
		Register(".md", render.NewMarkdownRenderer(load))

	b.assembler = assembly.New(registry, artifact.NewWriter(runtime.Output(), writerOpts...),
		assembly.WithLogger(b.logger),
		assembly.WithRecorder(metrics.NewPrometheusRecorder(b.registry)),
		assembly.WithCanvas(cfg.Build.Canvas.Width, cfg.Build.Canvas.Height))
	return b, nil
}

func newOutputStorage(settings config.BuildSettings) (runtime.Storage, error) {
	if settings.OutputBucket.Endpoint != "" {
		store, err := runtime.NewBucketStorage(settings.OutputBucket, &http.Client{Timeout: 30 * time.Second})
		if err != nil {
			return nil, berrors.ConfigInvalid("", err.Error())
		}
		return store, nil
	}
	store, err := runtime.NewLocalFileStorage(settings.OutputDir)
	if err != nil {
		return nil, berrors.StorageError("open", settings.OutputDir, err)
	}
	return store, nil
}

func newExporter(cfg *config.Config, names []string) (export.Exporter, []export.Format, error) {
	settings := cfg.Build
	settings.Exports = names
	formats, err := settings.ExportFormats()
	if err != nil {
		return nil, nil, berrors.ConfigInvalid("", err.Error())
	}

	var exporter export.Exporter
	switch cfg.Build.Exporter {
	case config.ExporterNative:
		native, err := export.NewNativeExporter(cfg.Build.BinDir, cfg.Build.FontDir)
		if err != nil {
			return nil, nil, berrors.ConfigInvalid("", err.Error())
		}
		exporter = native.WithAssetDir(cfg.Build.SourceRoot)
	default:
		exporter = export.NewSVGExporter().WithCanvas(cfg.Build.Canvas.Width, cfg.Build.Canvas.Height)
	}

	for _, f := range formats {
		if !export.Supports(exporter, f) {
			return nil, nil, berrors.ConfigInvalid("", fmt.Sprintf("%s exporter cannot produce %s", cfg.Build.Exporter, f))
		}
	}
	return exporter, formats, nil
}

// Close releases the publisher connection.
func (b *builder) Close() {
	for _, c := range b.closers {
		if err := c(); err != nil {
			b.logger.Warn("Close failed", logfields.Error(err))
		}
	}
	b.closers = nil
}

// buildDeck runs the pipeline for one deck, prints its report, stores it next
// to the artifact and publishes it. Failed slides are not an error.
func (b *builder) buildDeck(ctx context.Context, name string) error {
	def, err := b.cfg.Definition(name, runtime.Input())
	if err != nil {
		return err
	}
	dc, err := def.Resolve(ctx)
	if err != nil {
		return err
	}

	report, runErr := b.assembler.Assemble(ctx, dc)
	if report != nil {
		summary := report.Summary()
		fmt.Fprint(b.stdout, summary)
		b.storeReport(ctx, dc.OutputName, summary)
		b.publish(ctx, report)
	}
	return runErr
}

func (b *builder) storeReport(ctx context.Context, outputName, summary string) {
	key := artifact.ReportKey(outputName)
	if err := runtime.Output().Put(ctx, key, []byte(summary), "text/plain; charset=utf-8"); err != nil {
		b.logger.Warn("Failed to store run report", logfields.Output(key), logfields.Error(err))
	}
}

func (b *builder) publish(ctx context.Context, report *assembly.RunReport) {
	data, err := report.JSON()
	if err != nil {
		b.logger.Warn("Failed to encode run report", logfields.Deck(report.Deck), logfields.Error(err))
		return
	}
	subject := b.cfg.Build.NATSSubject + "." + report.Deck
	if err := runtime.Events().Publish(ctx, subject, data); err != nil {
		b.logger.Warn("Failed to publish run report", logfields.Deck(report.Deck), logfields.Error(err))
	}
}

// sourceDirs returns the absolute directories holding the slides of names.
func (b *builder) sourceDirs(names ...string) []string {
	rel := b.cfg.SourceDirs(names...)
	dirs := make([]string, 0, len(rel))
	for _, d := range rel {
		dirs = append(dirs, filepath.Join(b.input.BaseDir(), d))
	}
	return dirs
}

// serveMetrics exposes the run metrics on addr until ctx is done.
func (b *builder) serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(b.registry))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		b.logger.Info("Serving metrics", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.logger.Warn("Metrics server stopped", logfields.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
