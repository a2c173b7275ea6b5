package run

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/kiln-ssg/kiln/builder/cache"
	"github.com/kiln-ssg/kiln/builder/config"
	"github.com/kiln-ssg/kiln/builder/content"
	"github.com/kiln-ssg/kiln/builder/generators"
	"github.com/kiln-ssg/kiln/builder/metrics"
	"github.com/kiln-ssg/kiln/builder/models"
	"github.com/kiln-ssg/kiln/builder/renderer"
	"github.com/kiln-ssg/kiln/builder/templates"
	"github.com/kiln-ssg/kiln/builder/utils"
)

const (
	SitemapFile = "sitemap.xml"
	FeedFile    = "feed.xml"
)

// Build renders the site once. Per-item failures are logged and counted in the
// returned stats; structural failures (unreadable source, bad pagination) abort
// the build with an error.
func (b *Builder) Build(ctx context.Context) (*metrics.BuildStats, error) {
	stats := metrics.NewBuildStats()
	err := b.build(ctx, stats)
	stats.RecordEnd()
	b.recorder.ObserveBuildDuration(stats.Duration)

	switch {
	case err != nil:
		b.recorder.IncBuildOutcome("failed")
	case stats.Errors > 0:
		b.recorder.IncBuildOutcome("partial")
	default:
		b.recorder.IncBuildOutcome("success")
	}
	return stats, err
}

func (b *Builder) build(ctx context.Context, stats *metrics.BuildStats) error {
	cfg := b.cfg
	inc, loaded := b.loadIncremental()

	stage := time.Now()
	pages, err := content.NewCollector(b.sourceFs, cfg, b.logger).Collect()
	if err != nil {
		return err
	}
	loader := content.NewLoader(b.sourceFs, cfg, b.logger)
	collections, err := loader.LoadCollections()
	if err != nil {
		return err
	}
	data, err := loader.LoadData()
	if err != nil {
		return err
	}
	if posts, ok := collections[config.PostsCollection]; ok {
		generators.LinkNeighbors(posts)
		generators.ComputeRelated(posts)
	}
	b.recorder.ObserveStageDuration("collect", time.Since(stage))

	engine := templates.New(templates.Options{
		FS:          b.sourceFs,
		Source:      cfg.Source,
		IncludesDir: cfg.IncludesDir,
		ThemeDir:    cfg.ThemeDir,
		BaseURL:     cfg.BaseURL,
		URL:         cfg.URL,
		LinkIndex:   linkIndex(pages, collections),
		Deps:        inc,
		Markdownify: b.md.RenderString,
		Logger:      b.logger,
	})

	dirs := []renderer.LayoutDir{{Path: cfg.Path(cfg.LayoutsDir), Key: utils.ToSlash(cfg.LayoutsDir)}}
	if cfg.ThemeDir != "" {
		themeLayouts := filepath.Join(cfg.Path(cfg.ThemeDir), "_layouts")
		dirs = append(dirs, renderer.LayoutDir{Path: themeLayouts, Key: filepath.ToSlash(themeLayouts)})
	}
	infos, err := renderer.LoadLayouts(b.sourceFs, dirs)
	if err != nil {
		return err
	}
	layouts, err := renderer.NewLayoutRenderer(engine, infos, inc)
	if err != nil {
		return err
	}

	b.renderExcerpts(engine, collections)

	pages, err = generators.Paginate(pages, collections, cfg.PaginatePath)
	if err != nil {
		return err
	}

	st := &buildState{
		inc:     inc,
		plan:    b.planBuild(inc, loaded, collections),
		engine:  engine,
		layouts: layouts,
		writer:  renderer.NewWriter(b.destFs, cfg.DestinationPath(), b.minifier),
		snap:    b.newSnapshot(pages, collections, data),
		outputs: make(map[string]string),
	}
	stats.IsIncremental = !st.plan.full
	if st.plan.full {
		b.logger.Info("Full build", "reason", st.plan.reason)
	} else {
		stats.ChangedFiles = changedFiles(inc)
		b.logger.Info("Incremental build", "changed", len(stats.ChangedFiles))
	}
	if err := b.destFs.MkdirAll(cfg.DestinationPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}

	for _, label := range sortedLabels(collections) {
		if err := b.runBatch(ctx, st, label, itemsFor(collections[label]), stats); err != nil {
			return err
		}
	}
	if err := b.runBatch(ctx, st, "pages", pageItems(pages), stats); err != nil {
		return err
	}

	b.generate(st, pages, collections, stats)

	stage = time.Now()
	stats.Pruned = b.prune(st.writer)
	b.recorder.ObserveStageDuration("prune", time.Since(stage))

	for _, key := range inc.Files() {
		inc.UpdateMTime(key)
	}
	for _, key := range b.configKeys() {
		inc.UpdateMTime(key)
	}
	if err := inc.Save(); err != nil {
		b.logger.Warn("Failed to save incremental cache", "error", err)
	}

	if b.store != nil {
		stats.MemoHits, stats.MemoMisses = b.store.Stats()
		b.recorder.AddMemo(stats.MemoHits, stats.MemoMisses)
	}
	return nil
}

// renderExcerpts fills Excerpt on every document. It runs before the snapshot,
// so excerpts see the site configuration and their own page only.
func (b *Builder) renderExcerpts(engine *templates.Engine, collections map[string]*models.Collection) {
	site := b.cfg.SiteData()
	for _, col := range collections {
		for _, d := range col.Docs {
			src := content.ExcerptSource(d.Content, d.FrontMatter, b.cfg.ExcerptSeparator)
			scope := map[string]any{"site": site, "page": docBase(d)}
			excerpt, err := b.renderExcerpt(engine, d, src, scope)
			if err != nil {
				b.logger.Warn("Failed to render excerpt", "path", d.RelPath, "error", err)
				continue
			}
			d.Excerpt = excerpt
		}
	}
}

// linkIndex maps source paths to URLs for the link tag.
func linkIndex(pages []*models.Page, collections map[string]*models.Collection) map[string]string {
	index := make(map[string]string)
	for _, p := range pages {
		index[p.RelPath] = p.URL
	}
	for _, col := range collections {
		for _, d := range col.Docs {
			index[d.RelPath] = d.URL
		}
		for _, f := range col.Files {
			index[f.RelPath] = f.URL
		}
	}
	return index
}

func changedFiles(inc *cache.Incremental) []string {
	var changed []string
	for _, key := range inc.Files() {
		if inc.IsModified(key) {
			changed = append(changed, key)
		}
	}
	return changed
}

// generate writes sitemap.xml and feed.xml when enabled and no page claims them.
func (b *Builder) generate(st *buildState, pages []*models.Page, collections map[string]*models.Collection, stats *metrics.BuildStats) {
	write := func(name string, data []byte, err error) {
		if err == nil {
			err = st.writer.WritePage(name, string(data))
		}
		if err != nil {
			b.logger.Error("Failed to generate", "path", name, "error", err)
			stats.Errors++
			return
		}
		stats.Generated++
	}

	if _, claimed := st.outputs[SitemapFile]; b.cfg.Sitemap && !claimed {
		var entries []generators.SitemapEntry
		for _, p := range pages {
			if p.Process && isHTML(p.OutputPath) {
				entries = append(entries, generators.SitemapEntry{URL: p.URL, LastMod: p.ModTime})
			}
		}
		for _, label := range sortedLabels(collections) {
			for _, d := range collections[label].Docs {
				if d.OutputPath == "" || !isHTML(d.OutputPath) {
					continue
				}
				lastMod := d.Date
				if lastMod.IsZero() {
					lastMod = d.ModTime
				}
				entries = append(entries, generators.SitemapEntry{URL: d.URL, LastMod: lastMod})
			}
		}
		data, err := generators.Sitemap(b.cfg.URL, b.cfg.BaseURL, entries)
		write(SitemapFile, data, err)
	}

	if _, claimed := st.outputs[FeedFile]; b.cfg.Feed && !claimed {
		var docs []*models.Document
		if posts, ok := collections[config.PostsCollection]; ok {
			docs = posts.Docs
		}
		data, err := generators.Feed(generators.FeedMeta{
			Title:       b.cfg.Title,
			Description: b.cfg.Description,
			SiteURL:     b.cfg.URL,
			BaseURL:     b.cfg.BaseURL,
		}, docs)
		write(FeedFile, data, err)
	}
}

// prune removes destination files this build did not produce, except those
// under keep_files, then any directories left empty.
func (b *Builder) prune(w *renderer.Writer) int {
	root := b.cfg.DestinationPath()
	var stale, dirs []string
	err := afero.Walk(b.destFs, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := utils.SafeRel(root, p)
		if err != nil || rel == "." {
			return nil
		}
		if b.kept(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			dirs = append(dirs, p)
			return nil
		}
		if !w.Written(rel) {
			stale = append(stale, p)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		b.logger.Warn("Failed to scan destination", "error", err)
	}

	pruned := 0
	for _, p := range stale {
		if err := b.destFs.Remove(p); err != nil {
			b.logger.Warn("Failed to remove stale file", "path", p, "error", err)
			continue
		}
		b.logger.Debug("Removed stale file", "path", p)
		pruned++
	}
	// deepest first so parents empty out after their children
	slices.SortFunc(dirs, func(a, c string) int { return len(c) - len(a) })
	for _, d := range dirs {
		if entries, err := afero.ReadDir(b.destFs, d); err == nil && len(entries) == 0 {
			_ = b.destFs.Remove(d)
		}
	}
	return pruned
}

func (b *Builder) kept(rel string) bool {
	for _, k := range b.cfg.KeepFiles {
		if utils.IsWithin(rel, strings.TrimPrefix(utils.ToSlash(k), "/")) {
			return true
		}
	}
	return false
}
