package templates

import (
	"sort"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ssg/kiln/builder/testutil"
)

type depRecorder struct {
	mu    sync.Mutex
	edges map[string][]string
}

func (r *depRecorder) AddDependency(file, dep string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.edges == nil {
		r.edges = map[string][]string{}
	}
	r.edges[file] = append(r.edges[file], dep)
}

func newTestEngine(t *testing.T, files map[string]string) (*Engine, *depRecorder) {
	t.Helper()
	fs, _ := testutil.CreateTestFilesystemWithContent(files)
	deps := &depRecorder{}
	e := New(Options{
		FS:      fs,
		Source:  "/site",
		BaseURL: "/blog",
		URL:     "https://example.com",
		Deps:    deps,
		LinkIndex: map[string]string{
			"_posts/2024-01-10-first.md": "/2024/01/10/first.html",
			"about.md":                   "/about/",
		},
	})
	return e, deps
}

func renderT(t *testing.T, e *Engine, src string, bindings map[string]any) string {
	t.Helper()
	out, err := e.Render("test", src, bindings)
	require.NoError(t, err)
	return out
}

func pageScope(path string) map[string]any {
	return map[string]any{
		"site": map[string]any{"title": "Site"},
		"page": map[string]any{"path": path, "title": "Page Title"},
	}
}

func TestIncludeWithAndWithoutExtension(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{
		"/site/_includes/header.html": "<h1>{{ site.title }}</h1>",
	})
	a := renderT(t, e, "{% include header %}", pageScope("index.html"))
	b := renderT(t, e, "{% include header.html %}", pageScope("index.html"))
	assert.Equal(t, "<h1>Site</h1>", a)
	assert.Equal(t, a, b)
}

func TestIncludeParamsAndDefaults(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{
		"/site/_includes/card.html": "[{{ title }}|{{ include.title }}|{{ include.count }}|{{ include.flag }}|{{ include.color }}|{{ include.show_logo }}|{{ include.name }}]",
	})
	out := renderT(t, e, `{% include card.html with title=page.title count=3 flag=false %}`, pageScope("index.html"))
	assert.Equal(t, "[Page Title|Page Title|3|false||false|card.html]", out)

	out = renderT(t, e, `{% include card.html title="literal" %}`, pageScope("index.html"))
	assert.Equal(t, "[literal|literal||||false|card.html]", out)
}

func TestIncludeUnknownPathIsLiteral(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{
		"/site/_includes/v.html": "{{ include.v }}",
	})
	out := renderT(t, e, `{% include v.html v=not.a.var %}`, pageScope("index.html"))
	assert.Equal(t, "not.a.var", out)
}

func TestIncludeScopeIsIsolated(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{
		"/site/_includes/leak.html": "[{{ secret }}]",
	})
	scope := pageScope("index.html")
	scope["secret"] = "caller-only"
	assert.Equal(t, "[]", renderT(t, e, "{% include leak.html %}", scope))
}

func TestIncludeNestedPathAndDynamicName(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{
		"/site/_includes/widgets/box.html": "box:{{ include.label }}",
	})
	scope := pageScope("index.html")
	scope["page"].(map[string]any)["widget"] = "widgets/box"

	assert.Equal(t, "box:a", renderT(t, e, "{% include widgets/box.html label=a %}", scope))
	assert.Equal(t, "box:b", renderT(t, e, "{% include {{ page.widget }}.html label=b %}", scope))
}

func TestIncludeNested(t *testing.T) {
	e, deps := newTestEngine(t, map[string]string{
		"/site/_includes/outer.html": "<o>{% include inner.html %}</o>",
		"/site/_includes/inner.html": "<i>{{ page.title }}</i>",
	})
	assert.Equal(t, "<o><i>Page Title</i></o>", renderT(t, e, "{% include outer.html %}", pageScope("about.md")))

	got := deps.edges["about.md"]
	sort.Strings(got)
	assert.Equal(t, []string{"_includes/inner.html", "_includes/outer.html"}, got)
}

func TestIncludeMissingFile(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	_, err := e.Render("test", "{% include nope.html %}", pageScope("index.html"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncludeNotFound)
}

func TestIncludeMissingFileInsideInclude(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{
		"/site/_includes/outer.html": "<o>{% include gone.html %}</o>",
	})
	_, err := e.Render("test", "{% include outer.html %}", pageScope("index.html"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncludeNotFound)
	assert.Contains(t, err.Error(), "gone.html")
}

func TestIncludeStripsFrontMatterAndProtectsRaw(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{
		"/site/_includes/fm.html": "---\nnote: ignored\n---\n{% raw %}{{ literal }}{% endraw %}",
	})
	assert.Equal(t, "{{ literal }}", renderT(t, e, "{% include fm.html %}", pageScope("index.html")))
}

func TestIncludeFromTheme(t *testing.T) {
	fs := afero.NewMemMapFs()
	testutil.WriteFiles(fs, map[string]string{
		"/theme/_includes/footer.html": "theme footer",
		"/site/_includes/head.html":    "site head",
	})
	e := New(Options{FS: fs, Source: "/site", ThemeDir: "/theme"})
	assert.Equal(t, "site head|theme footer",
		renderT(t, e, "{% include head.html %}|{% include footer.html %}", pageScope("index.html")))
}

func TestIncludeRelative(t *testing.T) {
	e, deps := newTestEngine(t, map[string]string{
		"/site/docs/snippet.md":         "near",
		"/site/docs/parts_intro.md":     "flattened",
		"/site/_includes/fallback.html": "global",
	})
	scope := pageScope("docs/guide.md")

	assert.Equal(t, "near", renderT(t, e, "{% include_relative snippet.md %}", scope))
	assert.Equal(t, "flattened", renderT(t, e, "{% include_relative parts/intro.md %}", scope))
	assert.Equal(t, "global", renderT(t, e, "{% include_relative fallback.html %}", scope))
	assert.Contains(t, deps.edges["docs/guide.md"], "docs/snippet.md")

	_, err := e.Render("test", "{% include_relative missing.md %}", scope)
	assert.ErrorIs(t, err, ErrIncludeNotFound)
}

func TestLinkTag(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{
		"/site/_posts/2024-01-10-first.md": "x",
		"/site/about.md":                   "x",
		"/site/assets/site.css":            "x",
	})
	tests := []struct {
		src  string
		want string
	}{
		{"{% link _posts/2024-01-10-first.md %}", "/blog/2024/01/10/first.html"},
		{"{% link posts/2024-01-10-first.md %}", "/blog/2024/01/10/first.html"},
		{"{% link about.md %}", "/blog/about/"},
		{"{% link assets/site.css %}", "/blog/assets/site.css"},
		{"{% link missing/page.md %}", "/blog/missing/page.html"},
		{"{% link docs/guide.markdown %}", "/blog/_docs/guide.html"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, renderT(t, e, tt.src, pageScope("index.html")))
		})
	}
}

func TestFilters(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	e.opts.Markdownify = func(s string) (string, error) { return "<p>" + s + "</p>", nil }

	assert.Equal(t, "/blog/css/a.css", renderT(t, e, `{{ "css/a.css" | relative_url }}`, nil))
	assert.Equal(t, "https://example.com/blog/x/", renderT(t, e, `{{ "/x/" | absolute_url }}`, nil))
	assert.Equal(t, "hello-world", renderT(t, e, `{{ "Hello World" | slugify }}`, nil))
	assert.Equal(t, "a &amp; b", renderT(t, e, `{{ "a & b" | xml_escape }}`, nil))
	assert.Equal(t, `["a","b"]`, renderT(t, e, `{{ tags | jsonify }}`, map[string]any{"tags": []string{"a", "b"}}))
	assert.Equal(t, "<p>hi</p>", renderT(t, e, `{{ "hi" | markdownify }}`, nil))
	assert.Equal(t, "2024-01-02T00:00:00Z", renderT(t, e, `{{ "2024-01-02" | date_to_xmlschema }}`, nil))
}

func TestTemplateConcurrentRender(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{
		"/site/_includes/item.html": "<li>{{ include.n }}</li>",
	})
	tpl, err := e.Parse("list", "{% include item.html n=page.title %}")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := tpl.Render(pageScope("index.html"))
			assert.NoError(t, err)
			assert.Equal(t, "<li>Page Title</li>", out)
		}()
	}
	wg.Wait()
}
