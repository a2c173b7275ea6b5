// Package renderer applies layout chains and writes rendered output.
package renderer

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/kiln-ssg/kiln/builder/frontmatter"
	"github.com/kiln-ssg/kiln/builder/models"
	"github.com/kiln-ssg/kiln/builder/templates"
	"github.com/kiln-ssg/kiln/builder/utils"
)

// MaxLayoutDepth bounds a layout chain.
const MaxLayoutDepth = 32

var (
	ErrLayoutNotFound = errors.New("layout not found")
	ErrLayoutCycle    = errors.New("layout cycle detected")
)

// LayoutDir is a directory to load layouts from. Key is the prefix used for
// dependency keys: the source-relative dir for site layouts, the absolute path
// for theme layouts.
type LayoutDir struct {
	Path string
	Key  string
}

// LoadLayouts reads every layout file. Earlier dirs win over later ones, so the
// site directory goes first and the theme last. Missing dirs are skipped.
func LoadLayouts(fsys afero.Fs, dirs []LayoutDir) (map[string]*models.LayoutInfo, error) {
	layouts := make(map[string]*models.LayoutInfo)
	for _, dir := range dirs {
		if _, err := fsys.Stat(dir.Path); err != nil {
			continue
		}
		err := afero.Walk(fsys, dir.Path, func(p string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			rel, err := utils.SafeRel(dir.Path, p)
			if err != nil {
				return err
			}
			name := strings.TrimSuffix(rel, path.Ext(rel))
			if _, ok := layouts[name]; ok {
				return nil
			}

			data, err := afero.ReadFile(fsys, p)
			if err != nil {
				return err
			}
			fm, body, _, err := frontmatter.Parse(data)
			if err != nil {
				return fmt.Errorf("layout %s: %w", rel, err)
			}
			layouts[name] = &models.LayoutInfo{
				Name:        name,
				Path:        path.Join(dir.Key, rel),
				Content:     string(body),
				FrontMatter: fm,
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load layouts from %s: %w", filepath.ToSlash(dir.Path), err)
		}
	}
	return layouts, nil
}

type layout struct {
	info *models.LayoutInfo
	tpl  *templates.Template
	data map[string]any
}

// LayoutRenderer wraps rendered content in its layout chain. It is read-only
// after construction and safe for concurrent use.
type LayoutRenderer struct {
	layouts map[string]*layout
	deps    templates.DependencyRecorder
}

// NewLayoutRenderer parses every layout once. deps may be nil.
func NewLayoutRenderer(engine *templates.Engine, infos map[string]*models.LayoutInfo, deps templates.DependencyRecorder) (*LayoutRenderer, error) {
	r := &LayoutRenderer{layouts: make(map[string]*layout, len(infos)), deps: deps}
	for name, info := range infos {
		tpl, err := engine.Parse(info.Path, info.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to parse layout %s: %w", name, err)
		}
		data := info.FrontMatter.Data()
		data["layout"] = info.Parent()
		r.layouts[name] = &layout{info: info, tpl: tpl, data: data}
	}
	return r, nil
}

// Has reports whether a layout with this name exists.
func (r *LayoutRenderer) Has(name string) bool {
	_, ok := r.layouts[normalize(name)]
	return ok
}

// Layout returns the parsed layout file.
func (r *LayoutRenderer) Layout(name string) (*models.LayoutInfo, bool) {
	l, ok := r.layouts[normalize(name)]
	if !ok {
		return nil, false
	}
	return l.info, true
}

func normalize(name string) string {
	name = strings.TrimSpace(name)
	return strings.TrimSuffix(name, path.Ext(name))
}

// Apply renders content through the named layout and then each parent in turn.
// scope is not modified.
func (r *LayoutRenderer) Apply(content, name string, scope map[string]any) (string, error) {
	pagePath := pagePath(scope)
	var seen []string

	vars := maps.Clone(scope)
	for depth := 0; name != ""; depth++ {
		name = normalize(name)
		if slices.Contains(seen, name) {
			return "", fmt.Errorf("%w: %s -> %s", ErrLayoutCycle, strings.Join(seen, " -> "), name)
		}
		if depth >= MaxLayoutDepth {
			return "", fmt.Errorf("%w: more than %d nested layouts", ErrLayoutCycle, MaxLayoutDepth)
		}
		seen = append(seen, name)

		l, ok := r.layouts[name]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrLayoutNotFound, name)
		}
		if r.deps != nil && pagePath != "" {
			r.deps.AddDependency(pagePath, l.info.Path)
		}
		parent := normalize(l.info.Parent())
		if r.deps != nil && parent != "" {
			if p, ok := r.layouts[parent]; ok {
				r.deps.AddDependency(l.info.Path, p.info.Path)
			}
		}

		vars["content"] = content
		vars["layout"] = l.data
		out, err := l.tpl.Render(vars)
		if err != nil {
			return "", fmt.Errorf("layout %s: %w", name, err)
		}
		content = out
		name = parent
	}
	return content, nil
}

func pagePath(scope map[string]any) string {
	page, ok := scope["page"].(map[string]any)
	if !ok {
		return ""
	}
	p, _ := page["path"].(string)
	return p
}
