package content

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kiln-ssg/kiln/builder/models"
)

func TestExpandPermalink(t *testing.T) {
	date := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	vars := URLVars{
		Collection: "posts",
		Path:       "2024-01-05-hello",
		Name:       "2024-01-05-hello",
		Title:      "hello",
		Slug:       "hello",
		Date:       date,
		OutputExt:  ".html",
	}
	withCats := vars
	withCats.Categories = []string{"Go Lang", "web"}

	tests := []struct {
		name      string
		permalink string
		vars      URLVars
		want      string
	}{
		{"date style", "date", withCats, "/go-lang/web/2024/01/05/hello.html"},
		{"pretty style", "pretty", vars, "/2024/01/05/hello/"},
		{"ordinal style", "ordinal", vars, "/2024/005/hello.html"},
		{"none style", "none", vars, "/hello.html"},
		{"short forms", "/:short_year/:i_month/:i_day/:slug", vars, "/24/1/5/hello"},
		{"collection path", "/:collection/:path:output_ext", URLVars{Collection: "docs", Path: "guide/setup", OutputExt: ".html"}, "/docs/guide/setup.html"},
		{"literal", "/about/", vars, "/about/"},
		{"no leading slash", "feed.xml", vars, "/feed.xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPermalink(tt.permalink, tt.vars))
		})
	}
}

func TestOutputPaths(t *testing.T) {
	assert.Equal(t, "index.html", OutputPathFromURL("/"))
	assert.Equal(t, "a/index.html", OutputPathFromURL("/a/"))
	assert.Equal(t, "a/b.html", OutputPathFromURL("/a/b.html"))

	assert.Equal(t, "/", URLFromOutputPath("index.html"))
	assert.Equal(t, "/a/", URLFromOutputPath("a/index.html"))
	assert.Equal(t, "/feed.xml", URLFromOutputPath("feed.xml"))
	assert.Equal(t, "/docs/myindex.html", URLFromOutputPath("docs/myindex.html"))
	assert.Equal(t, "/myindex.html", URLFromOutputPath("myindex.html"))

	assert.Equal(t, "a/b.html", MirrorOutputPath("a/b.markdown"))
	assert.Equal(t, "a/b.txt", MirrorOutputPath("a/b.txt"))
	assert.Equal(t, ".html", OutputExt("x.md"))
	assert.Equal(t, ".xml", OutputExt("feed.xml"))
}

func TestPageOutputPath(t *testing.T) {
	fm := models.NewFrontMatter(nil)
	assert.Equal(t, "docs/intro.html", PageOutputPath("docs/intro.md", fm))
	assert.Equal(t, "docs/myindex.html", PageOutputPath("docs/myindex.html", fm))

	fm.Permalink = "/about/"
	assert.Equal(t, "about/index.html", PageOutputPath("about.md", fm))

	fm.Permalink = "/pages/:name:output_ext"
	assert.Equal(t, "pages/contact.html", PageOutputPath("contact.md", fm))
}

func TestExcerptSource(t *testing.T) {
	fm := models.NewFrontMatter(nil)
	body := []byte("\nFirst para.\n\nSecond para.\n")
	assert.Equal(t, "First para.", ExcerptSource(body, fm, "\n\n"))

	fm = models.NewFrontMatter(map[string]any{"excerpt_separator": "<!--more-->"})
	body = []byte("Intro\n\nstill intro<!--more-->rest")
	assert.Equal(t, "Intro\n\nstill intro", ExcerptSource(body, fm, "\n\n"))

	assert.Equal(t, "no separator", ExcerptSource([]byte("no separator"), models.NewFrontMatter(nil), "\n\n"))
}
