package run

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/tdewolff/minify/v2"

	"github.com/kiln-ssg/kiln/builder/cache"
	"github.com/kiln-ssg/kiln/builder/config"
	"github.com/kiln-ssg/kiln/builder/markdown"
	"github.com/kiln-ssg/kiln/builder/metrics"
	"github.com/kiln-ssg/kiln/builder/utils"
)

// Version is reported to templates as jekyll.version.
const Version = "4.3.0"

// RenderStoreDir is the render store location inside the cache dir.
const RenderStoreDir = "renders"

// Options configures a Builder. Only Config is required.
type Options struct {
	Config   *config.Config
	SourceFs afero.Fs
	DestFs   afero.Fs
	Logger   *slog.Logger
	Recorder metrics.Recorder
}

// Builder maintains the state shared by successive builds of one site.
type Builder struct {
	cfg      *config.Config
	sourceFs afero.Fs
	destFs   afero.Fs
	logger   *slog.Logger
	recorder metrics.Recorder

	md       *markdown.Renderer
	store    *cache.RenderStore
	minifier *minify.M
	now      func() time.Time
}

// NewLogger returns the text logger used by the CLI: info level, debug when verbose.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewBuilder initializes a site builder. The render store is only opened when
// the source lives on the OS filesystem.
func NewBuilder(opts Options) (*Builder, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("%w: no configuration", config.ErrInvalidConfig)
	}
	cfg := opts.Config

	b := &Builder{
		cfg:      cfg,
		sourceFs: opts.SourceFs,
		destFs:   opts.DestFs,
		logger:   opts.Logger,
		recorder: opts.Recorder,
		now:      time.Now,
	}
	if b.sourceFs == nil {
		b.sourceFs = afero.NewOsFs()
	}
	if b.destFs == nil {
		b.destFs = b.sourceFs
	}
	if b.logger == nil {
		b.logger = NewLogger(os.Stderr, cfg.Verbose)
	}
	if b.recorder == nil {
		b.recorder = metrics.NoopRecorder{}
	}
	if cfg.Minify {
		b.minifier = utils.NewMinifier()
	}

	if _, onDisk := b.sourceFs.(*afero.OsFs); onDisk && cfg.RenderCache {
		store, err := cache.OpenRenderStore(filepath.Join(cfg.CachePath(), RenderStoreDir))
		if err != nil {
			b.logger.Warn("Render store unavailable, rendering without it", "error", err)
		} else {
			b.store = store
		}
	}

	mdOpts := markdown.Options{
		Theme:  cfg.HighlightTheme,
		Math:   cfg.Markdown.Math,
		Logger: b.logger,
	}
	if b.store != nil {
		mdOpts.Memo = b.store
	}
	md, err := markdown.New(mdOpts)
	if err != nil {
		b.logger.Warn("Unknown highlight theme, using default", "theme", cfg.HighlightTheme, "error", err)
		mdOpts.Theme = markdown.DefaultTheme
		if md, err = markdown.New(mdOpts); err != nil {
			_ = b.Close()
			return nil, err
		}
	}
	b.md = md
	return b, nil
}

// Config returns the builder's configuration.
func (b *Builder) Config() *config.Config {
	return b.cfg
}

// Logger returns the builder's logger.
func (b *Builder) Logger() *slog.Logger {
	return b.logger
}

// Close releases the render store.
func (b *Builder) Close() error {
	if b.store == nil {
		return nil
	}
	err := b.store.Close()
	b.store = nil
	return err
}
