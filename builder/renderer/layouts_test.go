package renderer

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ssg/kiln/builder/templates"
	"github.com/kiln-ssg/kiln/builder/testutil"
)

type recorder struct {
	mu    sync.Mutex
	edges map[string][]string
}

func (r *recorder) AddDependency(file, dep string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.edges == nil {
		r.edges = map[string][]string{}
	}
	r.edges[file] = append(r.edges[file], dep)
}

var siteDirs = []LayoutDir{
	{Path: "/site/_layouts", Key: "_layouts"},
	{Path: "/theme/_layouts", Key: "/theme/_layouts"},
}

func newLayoutRenderer(t *testing.T, files map[string]string) (*LayoutRenderer, *recorder) {
	t.Helper()
	fs, _ := testutil.CreateTestFilesystemWithContent(files)
	infos, err := LoadLayouts(fs, siteDirs)
	require.NoError(t, err)

	deps := &recorder{}
	engine := templates.New(templates.Options{FS: fs, Source: "/site"})
	r, err := NewLayoutRenderer(engine, infos, deps)
	require.NoError(t, err)
	return r, deps
}

func scopeFor(path string) map[string]any {
	return map[string]any{
		"site": map[string]any{"title": "Site"},
		"page": map[string]any{"path": path, "title": "Hello"},
	}
}

func TestApplyNestedLayouts(t *testing.T) {
	r, deps := newLayoutRenderer(t, map[string]string{
		"/site/_layouts/default.html": "<html><title>{{ page.title }}</title>{{ content }}</html>",
		"/site/_layouts/post.html":    "---\nlayout: default\n---\n<article>{{ content }}</article>",
	})

	out, err := r.Apply("<p>x</p>", "post", scopeFor("_posts/2024-01-01-a.md"))
	require.NoError(t, err)
	assert.Equal(t, "<html><title>Hello</title><article><p>x</p></article></html>", out)

	assert.Equal(t, []string{"_layouts/post.html", "_layouts/default.html"}, deps.edges["_posts/2024-01-01-a.md"])
	assert.Equal(t, []string{"_layouts/default.html"}, deps.edges["_layouts/post.html"])
}

func TestApplyLayoutVariables(t *testing.T) {
	r, _ := newLayoutRenderer(t, map[string]string{
		"/site/_layouts/default.html": "{{ content }}",
		"/site/_layouts/post.html":    "---\nlayout: default\nauthor: Ada\n---\n{{ layout.author }}|{{ content }}",
	})
	out, err := r.Apply("body", "post.html", scopeFor("a.md"))
	require.NoError(t, err)
	assert.Equal(t, "Ada|body", out)
}

func TestApplyDoesNotMutateScope(t *testing.T) {
	r, _ := newLayoutRenderer(t, map[string]string{"/site/_layouts/default.html": "[{{ content }}]"})
	scope := scopeFor("a.md")
	_, err := r.Apply("body", "default", scope)
	require.NoError(t, err)
	assert.NotContains(t, scope, "content")
	assert.NotContains(t, scope, "layout")
}

func TestApplyErrors(t *testing.T) {
	r, _ := newLayoutRenderer(t, map[string]string{
		"/site/_layouts/a.html":      "---\nlayout: b\n---\nA{{ content }}",
		"/site/_layouts/b.html":      "---\nlayout: a\n---\nB{{ content }}",
		"/site/_layouts/self.html":   "---\nlayout: self\n---\n{{ content }}",
		"/site/_layouts/orphan.html": "---\nlayout: missing\n---\n{{ content }}",
	})

	tests := []struct {
		layout string
		want   error
	}{
		{"a", ErrLayoutCycle},
		{"self", ErrLayoutCycle},
		{"orphan", ErrLayoutNotFound},
		{"nope", ErrLayoutNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.layout, func(t *testing.T) {
			_, err := r.Apply("x", tt.layout, scopeFor("p.md"))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestApplyDepthLimit(t *testing.T) {
	files := map[string]string{"/site/_layouts/l0.html": "{{ content }}"}
	for i := 1; i <= MaxLayoutDepth+1; i++ {
		files["/site/_layouts/l"+strconv.Itoa(i)+".html"] = "---\nlayout: l" + strconv.Itoa(i-1) + "\n---\n{{ content }}"
	}
	r, _ := newLayoutRenderer(t, files)

	_, err := r.Apply("x", "l"+strconv.Itoa(MaxLayoutDepth-1), scopeFor("p.md"))
	require.NoError(t, err)

	_, err = r.Apply("x", "l"+strconv.Itoa(MaxLayoutDepth+1), scopeFor("p.md"))
	assert.ErrorIs(t, err, ErrLayoutCycle)
}

func TestThemeLayoutsFallback(t *testing.T) {
	r, deps := newLayoutRenderer(t, map[string]string{
		"/site/_layouts/default.html":  "site:{{ content }}",
		"/theme/_layouts/default.html": "theme:{{ content }}",
		"/theme/_layouts/page.html":    "---\nlayout: default\n---\npage:{{ content }}",
	})

	out, err := r.Apply("x", "page", scopeFor("about.md"))
	require.NoError(t, err)
	assert.Equal(t, "site:page:x", out)
	assert.Equal(t, []string{"/theme/_layouts/page.html", "_layouts/default.html"}, deps.edges["about.md"])

	info, ok := r.Layout("default")
	require.True(t, ok)
	assert.Equal(t, "_layouts/default.html", info.Path)
	assert.True(t, r.Has("page.html"))
}
