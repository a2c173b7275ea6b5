package content

import (
	"path"
	"strings"

	"github.com/kiln-ssg/kiln/builder/config"
	"github.com/kiln-ssg/kiln/builder/utils"
)

// Filter decides which source paths are part of the page set. Paths are slash
// paths relative to the source root.
type Filter struct {
	reserved []string
	exclude  []string
	include  []string
}

func NewFilter(cfg *config.Config) *Filter {
	f := &Filter{
		exclude: cleanList(cfg.Exclude),
		include: cleanList(cfg.Include),
	}
	f.reserved = append(f.reserved, cfg.LayoutsDir, cfg.IncludesDir, cfg.DataDir, "_posts", "_drafts")
	for label := range cfg.Collections {
		f.reserved = append(f.reserved, "_"+label)
	}
	for _, dir := range []string{cfg.Destination, cfg.CacheDir} {
		if rel, err := utils.SafeRel(cfg.Source, cfg.Path(dir)); err == nil && rel != "." {
			f.reserved = append(f.reserved, rel)
		}
	}
	f.reserved = cleanList(f.reserved)
	return f
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.Trim(utils.ToSlash(s), "/")
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ExcludedDir reports whether the walk should not descend into dir.
func (f *Filter) ExcludedDir(dir string) bool {
	for _, r := range f.reserved {
		if utils.IsWithin(dir, r) {
			return true
		}
	}
	if f.matches(f.exclude, dir) {
		return true
	}
	base := path.Base(dir)
	return hidden(base) && !f.matches(f.include, dir)
}

// Excluded reports whether file rel is left out of the page set.
func (f *Filter) Excluded(rel string) bool {
	for _, r := range f.reserved {
		if utils.IsWithin(rel, r) {
			return true
		}
	}
	if f.matches(f.exclude, rel) {
		return true
	}
	if f.matches(f.include, rel) {
		return false
	}
	for _, part := range strings.Split(rel, "/") {
		if hidden(part) {
			return true
		}
	}
	return false
}

// matches reports whether rel equals, lies below, or glob-matches a pattern.
// A pattern without a slash is also matched against the base name.
func (f *Filter) matches(patterns []string, rel string) bool {
	base := path.Base(rel)
	for _, pat := range patterns {
		if utils.IsWithin(rel, pat) {
			return true
		}
		if ok, _ := path.Match(pat, rel); ok {
			return true
		}
		if !strings.Contains(pat, "/") {
			if ok, _ := path.Match(pat, base); ok {
				return true
			}
		}
	}
	return false
}

func hidden(name string) bool {
	return strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")
}
