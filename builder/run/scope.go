package run

import (
	"maps"
	"path"
	"slices"
	"strings"

	"github.com/kiln-ssg/kiln/builder/config"
	"github.com/kiln-ssg/kiln/builder/generators"
	"github.com/kiln-ssg/kiln/builder/models"
)

// relatedFallback is the size of site.related_posts on pages that are not posts.
const relatedFallback = 10

// snapshot is the read-only template data shared by every worker of a build.
type snapshot struct {
	site   map[string]any
	jekyll map[string]any
	docs   map[*models.Document]map[string]any
	byID   map[string]*models.Document
	latest []any
}

// docBase is the template view of a document without neighbor links.
func docBase(doc *models.Document) map[string]any {
	m := doc.FrontMatter.Data()
	m["title"] = doc.Title()
	m["url"] = doc.URL
	m["id"] = doc.ID
	m["path"] = doc.RelPath
	m["relative_path"] = doc.RelPath
	m["name"] = path.Base(doc.RelPath)
	m["slug"] = doc.Slug
	m["collection"] = doc.Collection
	m["categories"] = doc.Categories
	m["tags"] = doc.Tags
	m["excerpt"] = doc.Excerpt
	m["draft"] = doc.Draft
	m["layout"] = doc.Layout()
	if !doc.Date.IsZero() {
		m["date"] = doc.Date
	}
	return m
}

// pageBase is the template view of a standalone page.
func pageBase(p *models.Page) map[string]any {
	m := p.FrontMatter.Data()
	m["title"] = p.Title()
	m["url"] = p.URL
	m["path"] = p.RelPath
	m["name"] = path.Base(p.RelPath)
	m["dir"] = path.Dir(p.URL)
	if strings.HasSuffix(p.URL, "/") {
		m["dir"] = p.URL
	}
	m["layout"] = p.Layout()
	if !p.Date.IsZero() {
		m["date"] = p.Date
	}
	return m
}

// newSnapshot assembles site.*: config values, data, pages, collections,
// categories and tags. Document maps link next/previous to neighbor maps that
// carry no links themselves, so the structure has no cycles.
func (b *Builder) newSnapshot(pages []*models.Page, collections map[string]*models.Collection, data map[string]any) *snapshot {
	s := &snapshot{
		site:   b.cfg.SiteData(),
		jekyll: map[string]any{"environment": b.cfg.Environment, "version": Version},
		docs:   make(map[*models.Document]map[string]any),
		byID:   make(map[string]*models.Document),
	}

	base := make(map[*models.Document]map[string]any)
	for _, col := range collections {
		for _, d := range col.Docs {
			base[d] = docBase(d)
			s.byID[d.ID] = d
		}
	}
	for d, m := range base {
		full := maps.Clone(m)
		if d.Next != nil {
			full["next"] = base[d.Next]
		}
		if d.Previous != nil {
			full["previous"] = base[d.Previous]
		}
		s.docs[d] = full
	}

	site := s.site
	site["time"] = b.now()
	site["data"] = data

	var htmlPages, allPages, static []any
	for _, p := range pages {
		if p.Paginator != nil && p.Paginator.Page > 1 {
			continue
		}
		if !p.Process {
			static = append(static, map[string]any{
				"path":          "/" + p.RelPath,
				"name":          path.Base(p.RelPath),
				"extname":       path.Ext(p.RelPath),
				"modified_time": p.ModTime,
			})
			continue
		}
		m := pageBase(p)
		allPages = append(allPages, m)
		if strings.HasSuffix(p.OutputPath, ".html") {
			htmlPages = append(htmlPages, m)
		}
	}
	site["pages"] = allPages
	site["html_pages"] = htmlPages
	site["static_files"] = static

	labels := sortedLabels(collections)
	colList := make([]any, 0, len(labels))
	categories := map[string]any{}
	tags := map[string]any{}
	for _, label := range labels {
		col := collections[label]
		docs := make([]any, 0, len(col.Docs))
		ordered := col.Docs
		if label == config.PostsCollection {
			ordered = generators.NewestFirst(col.Docs)
		}
		for _, d := range ordered {
			m := s.docs[d]
			docs = append(docs, m)
			if label != config.PostsCollection {
				continue
			}
			for _, c := range d.Categories {
				categories[c] = append(asList(categories[c]), m)
			}
			for _, t := range d.Tags {
				tags[t] = append(asList(tags[t]), m)
			}
		}
		colList = append(colList, map[string]any{
			"label":     label,
			"docs":      docs,
			"output":    col.Output,
			"directory": col.Dir,
			"files":     len(col.Files),
		})
		site[label] = docs
		if label == config.PostsCollection {
			s.latest = docs[:min(relatedFallback, len(docs))]
		}
	}
	if _, ok := site[config.PostsCollection]; !ok {
		site[config.PostsCollection] = []any{}
	}
	site["collections"] = colList
	site["categories"] = categories
	site["tags"] = tags
	site["related_posts"] = s.latest
	return s
}

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}

func sortedLabels(collections map[string]*models.Collection) []string {
	labels := slices.Collect(maps.Keys(collections))
	slices.SortFunc(labels, func(a, b string) int {
		switch {
		case a == b:
			return 0
		case a == config.PostsCollection:
			return -1
		case b == config.PostsCollection:
			return 1
		}
		return strings.Compare(a, b)
	})
	return labels
}

// scope builds the bindings for one item. Maps shared with other workers are
// cloned before anything is set on them.
func (s *snapshot) scope(p *models.Page, doc *models.Document, baseURL string) map[string]any {
	site := s.site
	var page map[string]any
	if doc != nil {
		page = maps.Clone(s.docs[doc])
		if len(doc.Related) > 0 {
			related := make([]any, 0, len(doc.Related))
			for _, id := range doc.Related {
				if d, ok := s.byID[id]; ok {
					related = append(related, s.docs[d])
				}
			}
			site = maps.Clone(s.site)
			site["related_posts"] = related
		}
	} else {
		page = pageBase(p)
	}

	scope := map[string]any{
		"site":    site,
		"page":    page,
		"jekyll":  s.jekyll,
		"content": "",
	}
	if p.Paginator != nil {
		scope["paginator"] = s.paginator(p.Paginator, baseURL)
	}
	return scope
}

func (s *snapshot) paginator(pg *models.Paginator, baseURL string) map[string]any {
	items := make([]any, 0, len(pg.Items))
	for _, d := range pg.Items {
		items = append(items, s.docs[d])
	}
	m := map[string]any{
		"page":        pg.Page,
		"per_page":    pg.PerPage,
		"total_pages": pg.TotalPages,
		"total_posts": pg.TotalItems,
		"posts":       items,
	}
	if pg.PreviousPage > 0 {
		m["previous_page"] = pg.PreviousPage
		m["previous_page_path"] = baseURL + pg.PreviousPath
	}
	if pg.NextPage > 0 {
		m["next_page"] = pg.NextPage
		m["next_page_path"] = baseURL + pg.NextPath
	}
	return m
}
