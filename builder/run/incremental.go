package run

import (
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/kiln-ssg/kiln/builder/cache"
	"github.com/kiln-ssg/kiln/builder/models"
	"github.com/kiln-ssg/kiln/builder/utils"
)

// plan is the incremental decision for one build.
type plan struct {
	full   bool
	reason string
	// dirty holds items reached from a modified layout, include or other
	// dependency through the reverse dependency graph.
	dirty map[string]struct{}
	// listingsStale is set when a collection document was added, changed or
	// removed, which invalidates every page that may list documents.
	listingsStale bool
}

func (b *Builder) loadIncremental() (*cache.Incremental, bool) {
	path := filepath.Join(b.cfg.CachePath(), cache.IncrementalFile)
	if !b.cfg.Incremental {
		return cache.NewIncremental(b.sourceFs, b.cfg.Source, path), false
	}
	return cache.LoadIncremental(b.sourceFs, b.cfg.Source, path)
}

// configKeys are the cache keys of files that force a full rebuild when changed.
func (b *Builder) configKeys() []string {
	var keys []string
	for _, name := range []string{"_config.yml", "_config.yaml", ".env"} {
		if utils.IsFile(b.sourceFs, filepath.Join(b.cfg.Source, name)) {
			keys = append(keys, name)
		}
	}
	root := b.cfg.Path(b.cfg.DataDir)
	_ = afero.Walk(b.sourceFs, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if rel, err := utils.SafeRel(b.cfg.Source, p); err == nil {
			keys = append(keys, rel)
		}
		return nil
	})
	return keys
}

// planBuild decides between a full and an incremental build and, for the
// latter, which items the changed dependencies reach.
func (b *Builder) planBuild(inc *cache.Incremental, loaded bool, collections map[string]*models.Collection) plan {
	p := plan{dirty: make(map[string]struct{})}
	switch {
	case !b.cfg.Incremental:
		p.full, p.reason = true, "incremental disabled"
	case !loaded:
		p.full, p.reason = true, "no incremental cache"
	case !utils.Exists(b.destFs, b.cfg.DestinationPath()):
		p.full, p.reason = true, "destination missing"
	}
	if p.full {
		return p
	}

	for _, key := range b.configKeys() {
		if inc.IsModified(key) {
			p.full, p.reason = true, "configuration or data changed: "+key
			return p
		}
	}
	dataDir := utils.ToSlash(b.cfg.DataDir)
	for _, key := range inc.Files() {
		if !inc.IsModified(key) {
			continue
		}
		if utils.IsWithin(key, dataDir) {
			p.full, p.reason = true, "data file removed: "+key
			return p
		}
		if !utils.Exists(b.sourceFs, b.sourcePath(key)) {
			// removed sources may have been listed anywhere
			p.listingsStale = true
		}
		for _, affected := range inc.GetAffectedFiles(key) {
			p.dirty[affected] = struct{}{}
		}
	}

	for _, col := range collections {
		for _, d := range col.Docs {
			if inc.IsModified(d.RelPath) {
				p.listingsStale = true
				return p
			}
		}
	}
	return p
}

// needsRender reports whether an item has to be produced again. Standalone
// pages are treated as listings; documents are not.
func (p *plan) needsRender(inc *cache.Incremental, page *models.Page, isDoc, outputExists bool) bool {
	if p.full || !outputExists {
		return true
	}
	if !page.Process {
		return inc.IsModified(page.RelPath)
	}
	if page.Paginator != nil || (p.listingsStale && !isDoc) {
		return true
	}
	if _, ok := p.dirty[page.RelPath]; ok {
		return true
	}
	return inc.NeedsRebuild(page.RelPath)
}

func (b *Builder) sourcePath(key string) string {
	if filepath.IsAbs(key) {
		return key
	}
	return filepath.Join(b.cfg.Source, filepath.FromSlash(key))
}
