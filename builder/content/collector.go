// Package content discovers the pages, collections and data files of a site.
package content

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/kiln-ssg/kiln/builder/config"
	"github.com/kiln-ssg/kiln/builder/frontmatter"
	"github.com/kiln-ssg/kiln/builder/models"
	"github.com/kiln-ssg/kiln/builder/utils"
)

// processable extensions go through the template pipeline; everything else is copied.
var processable = map[string]bool{
	".html": true, ".htm": true, ".md": true, ".markdown": true, ".xml": true,
	".txt": true, ".yml": true, ".yaml": true, ".json": true,
}

// IsProcessable reports whether rel has a template-processed extension.
func IsProcessable(rel string) bool {
	return processable[strings.ToLower(path.Ext(rel))]
}

// Collector walks the source tree for standalone pages.
type Collector struct {
	fs     afero.Fs
	cfg    *config.Config
	logger *slog.Logger
	filter *Filter
}

func NewCollector(fs afero.Fs, cfg *config.Config, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{fs: fs, cfg: cfg, logger: logger, filter: NewFilter(cfg)}
}

// Collect returns every page outside the reserved directories. Unreadable files
// are logged and skipped; an unreadable source root is an error.
func (c *Collector) Collect() ([]*models.Page, error) {
	root := c.cfg.Source
	if _, err := c.fs.Stat(root); err != nil {
		return nil, fmt.Errorf("failed to read source %s: %w", root, err)
	}

	var pages []*models.Page
	err := afero.Walk(c.fs, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			c.logger.Warn("Skipping unreadable path", "path", p, "error", err)
			return nil
		}
		rel, relErr := utils.SafeRel(root, p)
		if relErr != nil || rel == "." {
			return nil
		}
		if info.IsDir() {
			if c.filter.ExcludedDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if c.filter.Excluded(rel) {
			return nil
		}

		page, err := c.load(p, rel, info)
		if err != nil {
			c.logger.Warn("Skipping file", "path", rel, "error", err)
			return nil
		}
		if page != nil {
			pages = append(pages, page)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	slices.SortFunc(pages, func(a, b *models.Page) int { return strings.Compare(a.RelPath, b.RelPath) })
	return pages, nil
}

func (c *Collector) load(p, rel string, info fs.FileInfo) (*models.Page, error) {
	page := &models.Page{
		SourcePath:  p,
		RelPath:     rel,
		ModTime:     info.ModTime(),
		FrontMatter: models.NewFrontMatter(nil),
	}
	if !IsProcessable(rel) {
		page.OutputPath = rel
		page.URL = "/" + rel
		return page, nil
	}

	data, err := afero.ReadFile(c.fs, p)
	if err != nil {
		return nil, err
	}
	fm, body, _, err := frontmatter.Parse(data)
	if err != nil {
		c.logger.Warn("Invalid front matter, copying verbatim", "path", rel, "error", err)
		page.OutputPath = rel
		page.URL = "/" + rel
		return page, nil
	}
	if !fm.IsPublished() && !c.cfg.Unpublished {
		c.logger.Debug("Skipping unpublished page", "path", rel)
		return nil, nil
	}

	page.Process = true
	page.Content = body
	page.FrontMatter = fm
	page.Date = fm.Date
	page.OutputPath = PageOutputPath(rel, fm)
	page.URL = URLFromOutputPath(page.OutputPath)
	return page, nil
}

// PageOutputPath derives the destination-relative path of a standalone page.
func PageOutputPath(rel string, fm *models.FrontMatter) string {
	if fm == nil || fm.Permalink == "" {
		return MirrorOutputPath(rel)
	}
	name := strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	u := ExpandPermalink(fm.Permalink, URLVars{
		Path:       strings.TrimSuffix(rel, path.Ext(rel)),
		Name:       name,
		Title:      name,
		Slug:       utils.Slugify(name),
		Date:       fm.Date,
		Categories: fm.Categories,
		OutputExt:  OutputExt(rel),
	})
	return OutputPathFromURL(u)
}
