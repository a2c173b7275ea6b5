package content

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cast"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kiln-ssg/kiln/builder/config"
	"github.com/kiln-ssg/kiln/builder/frontmatter"
	"github.com/kiln-ssg/kiln/builder/models"
	"github.com/kiln-ssg/kiln/builder/utils"
)

const (
	postsDir  = "_posts"
	draftsDir = "_drafts"
)

var postNameRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-(.+)$`)

// Loader reads collections (posts and drafts included) and data files.
type Loader struct {
	fs     afero.Fs
	cfg    *config.Config
	logger *slog.Logger
	filter *Filter
	now    func() time.Time
}

func NewLoader(fs afero.Fs, cfg *config.Config, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{fs: fs, cfg: cfg, logger: logger, filter: NewFilter(cfg), now: time.Now}
}

// LoadCollections loads every configured collection. Posts are always present.
func (l *Loader) LoadCollections() (map[string]*models.Collection, error) {
	out := make(map[string]*models.Collection, len(l.cfg.Collections))
	for label, cc := range l.cfg.Collections {
		col := &models.Collection{
			Label:     label,
			Dir:       "_" + label,
			Output:    cc.Output,
			Permalink: cc.Permalink,
		}
		if col.Permalink == "" {
			col.Permalink = DefaultCollectionPermalink
		}

		var err error
		if label == config.PostsCollection {
			err = l.loadPosts(col)
		} else {
			err = l.walkCollection(col, col.Dir, nil, false)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load collection %s: %w", label, err)
		}
		l.finish(col)
		out[label] = col
	}
	return out, nil
}

// loadPosts reads _posts at the root, <categories>/_posts below it and _drafts
// when drafts are shown.
func (l *Loader) loadPosts(col *models.Collection) error {
	root := l.cfg.Source
	err := afero.Walk(l.fs, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil || !info.IsDir() {
			return nil
		}
		rel, relErr := utils.SafeRel(root, p)
		if relErr != nil || rel == "." {
			return nil
		}
		if path.Base(rel) == postsDir {
			var cats []string
			if parent := path.Dir(rel); parent != "." {
				cats = strings.Split(parent, "/")
			}
			if err := l.walkCollection(col, rel, cats, false); err != nil {
				return err
			}
			return filepath.SkipDir
		}
		if l.filter.ExcludedDir(rel) {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return err
	}
	if l.cfg.ShowDrafts {
		return l.walkCollection(col, draftsDir, nil, true)
	}
	return nil
}

// walkCollection adds every file under dir (source relative) to col.
func (l *Loader) walkCollection(col *models.Collection, dir string, cats []string, draft bool) error {
	base := filepath.Join(l.cfg.Source, filepath.FromSlash(dir))
	if _, err := l.fs.Stat(base); err != nil {
		return nil
	}
	return afero.Walk(l.fs, base, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			l.logger.Warn("Skipping unreadable path", "path", p, "error", err)
			return nil
		}
		if info.IsDir() {
			return nil
		}
		inCol, err := utils.SafeRel(base, p)
		if err != nil || strings.HasPrefix(path.Base(inCol), ".") {
			return nil
		}
		rel := path.Join(dir, inCol)

		if !IsProcessable(inCol) {
			if col.Output && col.Label != config.PostsCollection {
				col.Files = append(col.Files, &models.Page{
					SourcePath:  p,
					RelPath:     rel,
					OutputPath:  path.Join(col.Label, inCol),
					URL:         "/" + path.Join(col.Label, inCol),
					ModTime:     info.ModTime(),
					FrontMatter: models.NewFrontMatter(nil),
				})
			}
			return nil
		}

		doc, err := l.document(col, p, rel, inCol, info, cats, draft)
		if err != nil {
			l.logger.Warn("Skipping document", "path", rel, "error", err)
			return nil
		}
		if doc != nil {
			col.Docs = append(col.Docs, doc)
		}
		return nil
	})
}

func (l *Loader) document(col *models.Collection, p, rel, inCol string, info fs.FileInfo, cats []string, draft bool) (*models.Document, error) {
	data, err := afero.ReadFile(l.fs, p)
	if err != nil {
		return nil, err
	}
	fm, body, _, err := frontmatter.Parse(data)
	if err != nil {
		return nil, err
	}
	if !fm.IsPublished() && !l.cfg.Unpublished {
		return nil, nil
	}

	name := strings.TrimSuffix(path.Base(inCol), path.Ext(inCol))
	slug := name
	var date time.Time
	if m := postNameRe.FindStringSubmatch(name); m != nil {
		slug = m[2]
		if d, err := time.ParseInLocation("2006-01-02", m[1], time.Local); err == nil {
			date = d
		}
	} else if col.Label == config.PostsCollection && !draft {
		l.logger.Debug("Ignoring post without a date in its name", "path", rel)
		return nil, nil
	}
	if v, ok := fm.Get("slug"); ok && cast.ToString(v) != "" {
		slug = cast.ToString(v)
	}
	if !fm.Date.IsZero() {
		date = fm.Date
	}
	if date.IsZero() && draft {
		date = info.ModTime()
	}
	if col.Label == config.PostsCollection && !l.cfg.Future && date.After(l.now()) {
		l.logger.Debug("Skipping future post", "path", rel, "date", date)
		return nil, nil
	}
	if fm.Title == "" && col.Label == config.PostsCollection {
		fm.Title = cases.Title(language.Und).String(strings.ReplaceAll(slug, "-", " "))
	}

	doc := &models.Document{
		Page: models.Page{
			SourcePath:  p,
			RelPath:     rel,
			Date:        date,
			ModTime:     info.ModTime(),
			Content:     body,
			FrontMatter: fm,
			Process:     true,
		},
		Collection: col.Label,
		Slug:       utils.Slugify(slug),
		Categories: dedupe(append(slices.Clone(cats), fm.Categories...)),
		Tags:       dedupe(fm.Tags),
		Draft:      draft,
	}

	permalink := col.Permalink
	if fm.Permalink != "" {
		permalink = fm.Permalink
	}
	u := ExpandPermalink(permalink, URLVars{
		Collection: col.Label,
		Path:       strings.TrimSuffix(inCol, path.Ext(inCol)),
		Name:       name,
		Title:      slug,
		Slug:       doc.Slug,
		Date:       date,
		Categories: doc.Categories,
		OutputExt:  OutputExt(inCol),
	})
	out := OutputPathFromURL(u)
	doc.URL = URLFromOutputPath(out)
	if col.Output {
		doc.OutputPath = out
	}
	doc.ID = doc.URL
	return doc, nil
}

// finish orders the documents: posts by date, everything else by path.
func (l *Loader) finish(col *models.Collection) {
	if col.Label == config.PostsCollection {
		slices.SortStableFunc(col.Docs, func(a, b *models.Document) int {
			if c := a.Date.Compare(b.Date); c != 0 {
				return c
			}
			return strings.Compare(a.RelPath, b.RelPath)
		})
		if n := l.cfg.LimitPosts; n > 0 && len(col.Docs) > n {
			col.Docs = col.Docs[len(col.Docs)-n:]
		}
		return
	}
	slices.SortFunc(col.Docs, func(a, b *models.Document) int { return strings.Compare(a.RelPath, b.RelPath) })
	slices.SortFunc(col.Files, func(a, b *models.Page) int { return strings.Compare(a.RelPath, b.RelPath) })
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
