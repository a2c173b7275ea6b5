// Package generators derives content from the collected site: paginated index
// pages, related posts, neighbors, the sitemap and the feed.
package generators

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/kiln-ssg/kiln/builder/content"
	"github.com/kiln-ssg/kiln/builder/models"
)

const (
	DefaultPerPage    = 10
	DefaultCollection = "posts"
)

var ErrCollectionNotFound = errors.New("pagination collection not found")

// Paginate gives every page with an enabled pagination block its paginator and
// returns pages followed by the generated pages 2..N.
func Paginate(pages []*models.Page, collections map[string]*models.Collection, defaultPath string) ([]*models.Page, error) {
	out := slices.Clone(pages)
	for _, page := range pages {
		spec := page.FrontMatter.Pagination
		if !page.Process || spec == nil || !spec.Enabled {
			continue
		}
		generated, err := paginate(page, spec, collections, defaultPath)
		if err != nil {
			return nil, fmt.Errorf("failed to paginate %s: %w", page.RelPath, err)
		}
		out = append(out, generated...)
	}
	return out, nil
}

func paginate(page *models.Page, spec *models.PaginationSpec, collections map[string]*models.Collection, defaultPath string) ([]*models.Page, error) {
	label := spec.Collection
	if label == "" {
		label = DefaultCollection
	}
	col, ok := collections[label]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, label)
	}
	perPage := spec.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	pattern := spec.Path
	if pattern == "" {
		pattern = defaultPath
	}

	items := NewestFirst(col.Docs)
	total := len(items)
	numPages := (total + perPage - 1) / perPage
	if numPages < 1 {
		numPages = 1
	}

	urls := make([]string, numPages+1)
	urls[1] = page.URL
	for n := 2; n <= numPages; n++ {
		urls[n] = PagerURL(page.URL, pattern, n)
	}

	var generated []*models.Page
	for n := 1; n <= numPages; n++ {
		target := page
		if n > 1 {
			target = page.Clone()
			target.URL = urls[n]
			target.OutputPath = content.OutputPathFromURL(urls[n])
			generated = append(generated, target)
		}
		start := (n - 1) * perPage
		end := min(start+perPage, total)
		pg := &models.Paginator{
			Page:       n,
			PerPage:    perPage,
			TotalPages: numPages,
			TotalItems: total,
			Items:      items[start:end],
		}
		if n > 1 {
			pg.PreviousPage = n - 1
			pg.PreviousPath = urls[n-1]
		}
		if n < numPages {
			pg.NextPage = n + 1
			pg.NextPath = urls[n+1]
		}
		target.Paginator = pg
	}
	return generated, nil
}

// PagerURL expands :num in pattern relative to the directory of the first page,
// so "/page:num/" on /blog/ gives /blog/page2/.
func PagerURL(firstURL, pattern string, n int) string {
	dir := firstURL
	if !strings.HasSuffix(dir, "/") {
		dir = path.Dir(dir)
	}
	p := path.Join(dir, strings.ReplaceAll(pattern, ":num", strconv.Itoa(n)))
	if strings.HasSuffix(pattern, "/") {
		p += "/"
	}
	return content.ExpandPermalink(p, content.URLVars{})
}

// NewestFirst returns a copy of docs ordered by date, newest first.
func NewestFirst(docs []*models.Document) []*models.Document {
	out := slices.Clone(docs)
	slices.SortStableFunc(out, func(a, b *models.Document) int {
		return b.Date.Compare(a.Date)
	})
	return out
}
