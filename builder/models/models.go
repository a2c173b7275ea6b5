// defines the data structures shared by the collector, generators and the render pipeline
package models

import (
	"maps"
	"path"
	"strings"
	"time"
)

// --- Front Matter ---

// PaginationSpec is the `pagination:` block of a page's front matter.
type PaginationSpec struct {
	Enabled    bool
	PerPage    int
	Collection string
	Path       string
}

// FrontMatter holds the recognized front matter keys plus everything else in Extra.
type FrontMatter struct {
	Title       string
	Permalink   string
	Layout      string
	Description string
	Published   *bool
	Categories  []string
	Tags        []string
	Date        time.Time
	Pagination  *PaginationSpec
	Extra       map[string]any

	raw map[string]any
}

// NewFrontMatter wraps the raw decoded map. Callers fill the typed fields.
func NewFrontMatter(raw map[string]any) *FrontMatter {
	if raw == nil {
		raw = map[string]any{}
	}
	return &FrontMatter{raw: raw, Extra: map[string]any{}}
}

// IsPublished reports whether the document should be rendered (default true).
func (fm *FrontMatter) IsPublished() bool {
	if fm == nil || fm.Published == nil {
		return true
	}
	return *fm.Published
}

// Data returns the full front matter as a template map.
func (fm *FrontMatter) Data() map[string]any {
	if fm == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(fm.raw)+len(fm.Extra))
	maps.Copy(out, fm.raw)
	maps.Copy(out, fm.Extra)
	return out
}

// Get returns a raw front matter value.
func (fm *FrontMatter) Get(key string) (any, bool) {
	if fm == nil {
		return nil, false
	}
	v, ok := fm.raw[key]
	return v, ok
}

// Clone returns a deep enough copy for pagination: maps are copied, slices shared.
func (fm *FrontMatter) Clone() *FrontMatter {
	if fm == nil {
		return nil
	}
	c := *fm
	c.raw = maps.Clone(fm.raw)
	c.Extra = maps.Clone(fm.Extra)
	if fm.Pagination != nil {
		p := *fm.Pagination
		c.Pagination = &p
	}
	return &c
}

// --- Pages ---

// Paginator is the state exposed to templates as `paginator`.
type Paginator struct {
	Page         int
	PerPage      int
	TotalPages   int
	TotalItems   int
	Items        []*Document
	PreviousPage int
	NextPage     int
	PreviousPath string
	NextPath     string
}

// Page is a file discovered in the source tree outside of collections.
type Page struct {
	SourcePath  string
	RelPath     string
	OutputPath  string
	URL         string
	Date        time.Time
	ModTime     time.Time
	Content     []byte
	FrontMatter *FrontMatter
	Process     bool
	Paginator   *Paginator
}

// Clone copies the page for pagination. Content is shared since it is never mutated.
func (p *Page) Clone() *Page {
	c := *p
	c.FrontMatter = p.FrontMatter.Clone()
	if p.Paginator != nil {
		pg := *p.Paginator
		c.Paginator = &pg
	}
	return &c
}

// IsMarkdown reports whether the source should go through the markdown renderer.
func (p *Page) IsMarkdown() bool {
	return IsMarkdownPath(p.RelPath)
}

// Layout returns the declared layout name, if any.
func (p *Page) Layout() string {
	if p.FrontMatter == nil {
		return ""
	}
	return p.FrontMatter.Layout
}

// Title returns the front matter title.
func (p *Page) Title() string {
	if p.FrontMatter == nil {
		return ""
	}
	return p.FrontMatter.Title
}

// --- Collections ---

// Document is a member of a collection.
type Document struct {
	Page

	Collection string
	ID         string
	Slug       string
	Categories []string
	Tags       []string
	Draft      bool
	Excerpt    string
	Rendered   string
	Related    []string
	Next       *Document
	Previous   *Document
}

// Collection is a named, ordered set of documents.
type Collection struct {
	Label     string
	Dir       string
	Output    bool
	Permalink string
	Docs      []*Document
	Files     []*Page
}

// LayoutInfo is a parsed file from the layouts directory.
type LayoutInfo struct {
	Name        string
	Path        string
	Content     string
	FrontMatter *FrontMatter
}

// Parent returns the layout this layout wraps itself in.
func (l *LayoutInfo) Parent() string {
	if l == nil || l.FrontMatter == nil {
		return ""
	}
	return l.FrontMatter.Layout
}

// --- Helpers ---

// IsMarkdownPath reports whether p has a markdown extension.
func IsMarkdownPath(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".md", ".markdown":
		return true
	}
	return false
}
