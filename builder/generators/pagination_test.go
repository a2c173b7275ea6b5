package generators

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ssg/kiln/builder/models"
)

func postsCollection(n int) *models.Collection {
	col := &models.Collection{Label: "posts", Output: true}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		d := &models.Document{Collection: "posts"}
		d.Date = base.AddDate(0, 0, i)
		d.URL = fmt.Sprintf("/post-%d.html", i)
		d.ID = d.URL
		col.Docs = append(col.Docs, d)
	}
	return col
}

func indexPage(url string, spec *models.PaginationSpec) *models.Page {
	fm := models.NewFrontMatter(nil)
	fm.Pagination = spec
	return &models.Page{
		RelPath:     "index.html",
		OutputPath:  "index.html",
		URL:         url,
		Process:     true,
		FrontMatter: fm,
	}
}

func TestPaginateSlices(t *testing.T) {
	cols := map[string]*models.Collection{"posts": postsCollection(5)}
	index := indexPage("/", &models.PaginationSpec{Enabled: true, PerPage: 2})

	pages, err := Paginate([]*models.Page{index}, cols, "/page:num/")
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Same(t, index, pages[0])

	tests := []struct {
		page   int
		output string
		url    string
		ids    []string
		prev   string
		next   string
	}{
		{1, "index.html", "/", []string{"/post-4.html", "/post-3.html"}, "", "/page2/"},
		{2, "page2/index.html", "/page2/", []string{"/post-2.html", "/post-1.html"}, "/", "/page3/"},
		{3, "page3/index.html", "/page3/", []string{"/post-0.html"}, "/page2/", ""},
	}
	for i, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			p := pages[i]
			require.NotNil(t, p.Paginator)
			assert.Equal(t, tt.page, p.Paginator.Page)
			assert.Equal(t, 3, p.Paginator.TotalPages)
			assert.Equal(t, 5, p.Paginator.TotalItems)
			assert.Equal(t, tt.output, p.OutputPath)
			assert.Equal(t, tt.url, p.URL)
			assert.Equal(t, tt.prev, p.Paginator.PreviousPath)
			assert.Equal(t, tt.next, p.Paginator.NextPath)

			var ids []string
			for _, d := range p.Paginator.Items {
				ids = append(ids, d.ID)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
	assert.NotSame(t, pages[0].FrontMatter, pages[1].FrontMatter)
}

func TestPaginateSinglePage(t *testing.T) {
	cols := map[string]*models.Collection{"posts": postsCollection(2)}
	index := indexPage("/", &models.PaginationSpec{Enabled: true, PerPage: 5})

	pages, err := Paginate([]*models.Page{index}, cols, "/page:num/")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.NotNil(t, index.Paginator)
	assert.Equal(t, 1, index.Paginator.TotalPages)
	assert.Len(t, index.Paginator.Items, 2)
	assert.Zero(t, index.Paginator.NextPage)
}

func TestPaginateMissingCollection(t *testing.T) {
	index := indexPage("/", &models.PaginationSpec{Enabled: true, PerPage: 2, Collection: "news"})
	_, err := Paginate([]*models.Page{index}, map[string]*models.Collection{}, "/page:num/")
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestPaginateSkipsDisabled(t *testing.T) {
	index := indexPage("/", &models.PaginationSpec{Enabled: false, PerPage: 2, Collection: "news"})
	pages, err := Paginate([]*models.Page{index}, map[string]*models.Collection{}, "/page:num/")
	require.NoError(t, err)
	assert.Len(t, pages, 1)
	assert.Nil(t, index.Paginator)
}

func TestPagerURL(t *testing.T) {
	assert.Equal(t, "/page2/", PagerURL("/", "/page:num/", 2))
	assert.Equal(t, "/blog/page3/", PagerURL("/blog/", "/page:num/", 3))
	assert.Equal(t, "/blog/page-4.html", PagerURL("/blog/index.html", "page-:num.html", 4))
}
