package generators

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ssg/kiln/builder/models"
)

func TestSitemap(t *testing.T) {
	out, err := Sitemap("https://example.com", "/blog", []SitemapEntry{
		{URL: "/"},
		{URL: "/a&b/", LastMod: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)
	s := string(out)
	assert.True(t, strings.HasPrefix(s, "<?xml"))
	assert.Contains(t, s, `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	assert.Contains(t, s, "<loc>https://example.com/blog/</loc>")
	assert.Contains(t, s, "<loc>https://example.com/blog/a&amp;b/</loc>")
	assert.Contains(t, s, "<lastmod>2024-03-04</lastmod>")
}

func TestFeed(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var docs []*models.Document
	for i := 0; i < FeedSize+3; i++ {
		d := doc("/p"+string(rune('a'+i))+".html", base.AddDate(0, 0, i))
		d.FrontMatter = models.NewFrontMatter(nil)
		d.FrontMatter.Title = "Post " + string(rune('A'+i))
		docs = append(docs, d)
	}
	docs[len(docs)-1].Draft = true

	out, err := Feed(FeedMeta{Title: "Site", SiteURL: "https://example.com"}, docs)
	require.NoError(t, err)
	s := string(out)
	assert.Equal(t, FeedSize, strings.Count(s, "<item>"))
	assert.NotContains(t, s, "Post M")
	assert.Contains(t, s, "<title>Post L</title>")
	assert.Contains(t, s, "<link>https://example.com/pl.html</link>")
	assert.NotContains(t, s, "Post A<")
}
