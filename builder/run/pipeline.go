package run

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/kiln-ssg/kiln/builder/cache"
	"github.com/kiln-ssg/kiln/builder/metrics"
	"github.com/kiln-ssg/kiln/builder/models"
	"github.com/kiln-ssg/kiln/builder/renderer"
	"github.com/kiln-ssg/kiln/builder/templates"
	"github.com/kiln-ssg/kiln/builder/utils"
)

const (
	kindPage     = "page"
	kindDocument = "document"
	kindStatic   = "static"
)

// buildState is everything a worker reads. Only the incremental cache and the
// writer's file registry are written concurrently, both behind their own locks.
type buildState struct {
	inc     *cache.Incremental
	plan    plan
	engine  *templates.Engine
	layouts *renderer.LayoutRenderer
	writer  *renderer.Writer
	snap    *snapshot
	outputs map[string]string // output path -> source that claimed it
}

type workItem struct {
	kind string
	page *models.Page
	doc  *models.Document
	skip bool
}

type itemResult struct {
	kind    string
	path    string
	output  string
	skipped bool
	err     error
}

// batch prepares items for fan-out: claims output paths, decides what to skip,
// clears stale dependency edges and creates every output directory.
func (b *Builder) batch(st *buildState, items []workItem) ([]workItem, error) {
	kept := items[:0]
	var outputs []string
	cleared := make(map[string]struct{})
	for _, it := range items {
		p := it.page
		if owner, ok := st.outputs[p.OutputPath]; ok && owner != p.RelPath {
			b.logger.Warn("Conflicting output, skipping", "path", p.RelPath, "output", p.OutputPath, "claimed_by", owner)
			continue
		}
		st.outputs[p.OutputPath] = p.RelPath

		exists := utils.Exists(b.destFs, st.writer.Path(p.OutputPath))
		it.skip = !st.plan.needsRender(st.inc, p, it.doc != nil, exists)
		if !it.skip && p.Process {
			if _, ok := cleared[p.RelPath]; !ok {
				st.inc.ClearDependencies(p.RelPath)
				cleared[p.RelPath] = struct{}{}
			}
		}
		kept = append(kept, it)
		outputs = append(outputs, p.OutputPath)
	}
	if err := utils.EnsureDirs(b.destFs, st.writer.Dirs(outputs)); err != nil {
		return nil, err
	}
	return kept, nil
}

// runBatch renders one batch on the worker pool and folds the results into stats.
func (b *Builder) runBatch(ctx context.Context, st *buildState, name string, items []workItem, stats *metrics.BuildStats) error {
	if len(items) == 0 {
		return nil
	}
	start := time.Now()
	items, err := b.batch(st, items)
	if err != nil {
		return err
	}

	// results of items that never ran keep their zero value
	dropped := 0
	results, _ := utils.ParallelMap(ctx, b.cfg.Workers, items, func(it workItem) itemResult {
		return b.renderItem(st, it)
	})

	for _, r := range results {
		switch {
		case r.kind == "":
			dropped++
		case r.err != nil:
			b.logger.Error("Failed to build", "path", r.path, "error", r.err)
			stats.Errors++
			st.inc.Forget(r.path)
			b.recorder.IncItemResult(r.kind, metrics.ResultFailed)
		case r.skipped:
			stats.Skipped++
			st.writer.RegisterFile(r.output)
			b.recorder.IncItemResult(r.kind, metrics.ResultSkipped)
		default:
			st.inc.UpdateMTime(r.path)
			switch r.kind {
			case kindStatic:
				stats.StaticFiles++
				b.recorder.IncItemResult(r.kind, metrics.ResultCopied)
			case kindDocument:
				stats.Documents++
				b.recorder.IncItemResult(r.kind, metrics.ResultWritten)
			default:
				stats.Pages++
				b.recorder.IncItemResult(r.kind, metrics.ResultWritten)
			}
		}
	}
	b.recorder.ObserveStageDuration(name, time.Since(start))
	b.logger.Debug("Batch complete", "batch", name, "items", len(items), "duration", time.Since(start))
	if dropped > 0 {
		return fmt.Errorf("batch %s: %d items not built: %w", name, dropped, ctx.Err())
	}
	return nil
}

func (b *Builder) renderItem(st *buildState, it workItem) itemResult {
	p := it.page
	res := itemResult{kind: it.kind, path: p.RelPath, output: p.OutputPath}
	if it.skip {
		res.skipped = true
		return res
	}
	if !p.Process {
		res.kind = kindStatic
		res.err = st.writer.CopyFile(b.sourceFs, p.SourcePath, p.OutputPath)
		return res
	}

	scope := st.snap.scope(p, it.doc, b.cfg.BaseURL)
	body, err := b.renderContent(st.engine, p, scope)
	if err != nil {
		res.err = err
		return res
	}
	if it.doc != nil {
		it.doc.Rendered = body
	}
	scope["page"].(map[string]any)["content"] = body

	out := body
	if layout := p.Layout(); layout != "" && layout != "none" && layout != "null" {
		if out, err = st.layouts.Apply(body, layout, scope); err != nil {
			res.err = err
			return res
		}
	}
	res.err = st.writer.WritePage(p.OutputPath, out)
	return res
}

// renderContent runs markdown (for markdown sources) and the template tags.
func (b *Builder) renderContent(engine *templates.Engine, p *models.Page, scope map[string]any) (string, error) {
	src := string(p.Content)
	if p.IsMarkdown() {
		return b.renderMarkdown(engine, p.RelPath, src, scope)
	}
	if !templates.HasTags(src) {
		return src, nil
	}
	return engine.Render(p.RelPath, src, scope)
}

// renderMarkdown converts src with raw blocks and liquid markup held out of the
// markdown pass, then evaluates the markup on the HTML.
func (b *Builder) renderMarkdown(engine *templates.Engine, name, src string, scope map[string]any) (string, error) {
	text, raw := engine.Protect(src)
	text, markup := engine.ProtectMarkup(text)
	html, err := b.md.Render([]byte(text))
	if err != nil {
		return "", err
	}
	if raw.Len() == 0 && markup.Len() == 0 {
		return html, nil
	}
	html = markup.Restore(html, false)
	tpl, err := engine.ParseProtected(name, html, raw, true)
	if err != nil {
		return "", err
	}
	return tpl.Render(scope)
}

// renderExcerpt renders the excerpt source of doc in the same way as its body.
func (b *Builder) renderExcerpt(engine *templates.Engine, doc *models.Document, src string, scope map[string]any) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}
	name := doc.RelPath + "#excerpt"
	if doc.IsMarkdown() {
		return b.renderMarkdown(engine, name, src, scope)
	}
	if !templates.HasTags(src) {
		return src, nil
	}
	return engine.Render(name, src, scope)
}

// itemsFor lists the work of one collection: documents that are written out and
// the collection's static files.
func itemsFor(col *models.Collection) []workItem {
	if !col.Output {
		return nil
	}
	items := make([]workItem, 0, len(col.Docs)+len(col.Files))
	for _, d := range col.Docs {
		if d.OutputPath == "" {
			continue
		}
		items = append(items, workItem{kind: kindDocument, page: &d.Page, doc: d})
	}
	for _, f := range col.Files {
		items = append(items, workItem{kind: kindStatic, page: f})
	}
	return items
}

func pageItems(pages []*models.Page) []workItem {
	items := make([]workItem, 0, len(pages))
	for _, p := range pages {
		kind := kindPage
		if !p.Process {
			kind = kindStatic
		}
		items = append(items, workItem{kind: kind, page: p})
	}
	return items
}

// isHTML reports whether an output path is an HTML page.
func isHTML(outputPath string) bool {
	switch path.Ext(outputPath) {
	case ".html", ".htm":
		return true
	}
	return false
}
