package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"github.com/kiln-ssg/kiln/builder/config"
	"github.com/kiln-ssg/kiln/builder/metrics"
	"github.com/kiln-ssg/kiln/builder/run"
	"github.com/kiln-ssg/kiln/internal/watch"
)

// ErrBuildErrors is returned when a build finished but some items failed.
var ErrBuildErrors = errors.New("build finished with errors")

// BuildFlags are shared by build and watch.
type BuildFlags struct {
	Incremental bool   `short:"I" help:"Only rebuild what changed since the last build"`
	Drafts      bool   `short:"D" help:"Render posts in _drafts"`
	Future      bool   `help:"Publish posts dated in the future"`
	Unpublished bool   `help:"Render pages marked published: false"`
	BaseURL     string `short:"b" name:"baseurl" help:"Serve the site from this base path"`
	Minify      bool   `help:"Minify HTML, CSS and JS output"`
	MetricsFile string `name:"metrics-file" help:"Write Prometheus metrics in text format to this file" type:"path"`
}

// loadConfig reads the site config and applies command line overrides.
func loadConfig(cli *CLI, flags *BuildFlags) (*config.Config, error) {
	cfg, err := config.Load(afero.NewOsFs(), cli.Source, cli.Config)
	if err != nil {
		return nil, err
	}
	if cli.Destination != "" {
		cfg.Destination = cli.Destination
	}
	if cli.Verbose {
		cfg.Verbose = true
	}
	if flags == nil {
		return cfg, nil
	}
	if flags.Incremental {
		cfg.Incremental = true
	}
	if flags.Drafts {
		cfg.ShowDrafts = true
	}
	if flags.Future {
		cfg.Future = true
	}
	if flags.Unpublished {
		cfg.Unpublished = true
	}
	if flags.Minify {
		cfg.Minify = true
	}
	if flags.BaseURL != "" {
		cfg.BaseURL = flags.BaseURL
	}
	return cfg, nil
}

// newBuilder wires a builder and, with --metrics-file, a Prometheus recorder.
func newBuilder(g *Global, cfg *config.Config, flags *BuildFlags) (*run.Builder, *metrics.PrometheusRecorder, error) {
	var rec *metrics.PrometheusRecorder
	opts := run.Options{Config: cfg, Logger: g.Logger}
	if flags.MetricsFile != "" {
		rec = metrics.NewPrometheusRecorder(prom.NewRegistry())
		opts.Recorder = rec
	}
	b, err := run.NewBuilder(opts)
	return b, rec, err
}

func buildOnce(ctx context.Context, g *Global, b *run.Builder) error {
	stats, err := b.Build(ctx)
	if stats != nil {
		stats.Print(os.Stdout)
	}
	if err != nil {
		return err
	}
	if stats.Errors > 0 {
		return fmt.Errorf("%w: %d failed", ErrBuildErrors, stats.Errors)
	}
	return nil
}

func writeMetrics(g *Global, rec *metrics.PrometheusRecorder, path string) {
	if rec == nil {
		return
	}
	if err := rec.WriteFile(afero.NewOsFs(), path); err != nil {
		g.Logger.Warn("Failed to write metrics", "path", path, "error", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// BuildCmd implements 'kiln build'.
type BuildCmd struct {
	BuildFlags
}

func (c *BuildCmd) Run(g *Global, cli *CLI) error {
	cfg, err := loadConfig(cli, &c.BuildFlags)
	if err != nil {
		return err
	}
	b, rec, err := newBuilder(g, cfg, &c.BuildFlags)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	ctx, stop := signalContext()
	defer stop()
	err = buildOnce(ctx, g, b)
	writeMetrics(g, rec, c.MetricsFile)
	return err
}

// WatchCmd implements 'kiln watch'.
type WatchCmd struct {
	BuildFlags
}

func (c *WatchCmd) Run(g *Global, cli *CLI) error {
	cfg, err := loadConfig(cli, &c.BuildFlags)
	if err != nil {
		return err
	}
	// every rebuild after the first only touches what changed
	cfg.Incremental = true
	b, rec, err := newBuilder(g, cfg, &c.BuildFlags)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	ctx, stop := signalContext()
	defer stop()
	if err := buildOnce(ctx, g, b); err != nil && !errors.Is(err, ErrBuildErrors) {
		return err
	}
	writeMetrics(g, rec, c.MetricsFile)

	w, err := watch.New(watch.Options{
		Root:   cfg.Source,
		Ignore: []string{cfg.DestinationPath(), cfg.CachePath()},
		Logger: g.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	return w.Run(ctx, func(changed []string) {
		g.Logger.Info("Change detected, rebuilding", "files", len(changed))
		if err := buildOnce(ctx, g, b); err != nil {
			g.Logger.Error("Rebuild failed", "error", err)
		}
		writeMetrics(g, rec, c.MetricsFile)
	})
}
