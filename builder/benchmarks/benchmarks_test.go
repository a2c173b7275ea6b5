// Package benchmarks measures the hot paths of a build.
// Run with: go test -bench=. -benchmem ./builder/benchmarks/
package benchmarks

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/kiln-ssg/kiln/builder/cache"
	"github.com/kiln-ssg/kiln/builder/config"
	"github.com/kiln-ssg/kiln/builder/frontmatter"
	"github.com/kiln-ssg/kiln/builder/generators"
	"github.com/kiln-ssg/kiln/builder/markdown"
	"github.com/kiln-ssg/kiln/builder/models"
	"github.com/kiln-ssg/kiln/builder/run"
	"github.com/kiln-ssg/kiln/builder/templates"
	"github.com/kiln-ssg/kiln/builder/testutil"
	"github.com/kiln-ssg/kiln/builder/utils"
)

// BenchmarkBuild builds sites of increasing size on an in-memory filesystem.
func BenchmarkBuild(b *testing.B) {
	for _, size := range []int{10, 100, 500} {
		b.Run(fmt.Sprintf("Posts-%d", size), func(b *testing.B) {
			files := testutil.SampleSite("/site")
			start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
			for i := 0; i < size; i++ {
				d := start.AddDate(0, 0, i)
				files[fmt.Sprintf("/site/_posts/%s-post-%d.md", d.Format("2006-01-02"), i)] =
					testutil.PostMarkdown(fmt.Sprintf("Post %d", i), d, []string{"go", fmt.Sprintf("t%d", i%7)},
						"Some **markdown** with `code`.\n\n```go\nfunc main() {}\n```\n")
			}
			fs, _ := testutil.CreateTestFilesystemWithContent(files)
			cfg, err := config.Load(fs, "/site", "")
			if err != nil {
				b.Fatal(err)
			}
			builder, err := run.NewBuilder(run.Options{Config: cfg, SourceFs: fs, Logger: run.NewLogger(io.Discard, false)})
			if err != nil {
				b.Fatal(err)
			}
			defer func() { _ = builder.Close() }()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := builder.Build(context.Background()); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkMarkdown renders a post body with highlighted code.
func BenchmarkMarkdown(b *testing.B) {
	r, err := markdown.New(markdown.Options{})
	if err != nil {
		b.Fatal(err)
	}
	src := []byte(strings.Repeat("## Heading\n\nA paragraph with *emphasis*.\n\n```go\nfmt.Println(\"hi\")\n```\n\n", 20))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.Render(src); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkTemplateRender evaluates a small loop over posts.
func BenchmarkTemplateRender(b *testing.B) {
	e := templates.New(templates.Options{FS: afero.NewMemMapFs(), Source: "/site"})
	tpl, err := e.Parse("index.html", "{% for p in site.posts %}<li>{{ p.title | slugify }}</li>{% endfor %}")
	if err != nil {
		b.Fatal(err)
	}
	posts := make([]any, 100)
	for i := range posts {
		posts[i] = map[string]any{"title": fmt.Sprintf("Post Number %d", i)}
	}
	scope := map[string]any{"site": map[string]any{"posts": posts}, "page": map[string]any{"path": "index.html"}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tpl.Render(scope); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkFrontMatter parses a typical post header.
func BenchmarkFrontMatter(b *testing.B) {
	src := []byte(testutil.PostMarkdown("Benchmark", time.Now(), []string{"go", "ssg", "performance"}, "body\n"))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, _, err := frontmatter.Parse(src); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkHashContent tests hash computation for render keys.
func BenchmarkHashContent(b *testing.B) {
	data := []byte(testutil.CreateLargeHTML())
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cache.HashContent(data)
	}
}

// BenchmarkComputeRelated scores every pair of posts in a collection.
func BenchmarkComputeRelated(b *testing.B) {
	for _, size := range []int{50, 500} {
		b.Run(fmt.Sprintf("Size-%d", size), func(b *testing.B) {
			col := &models.Collection{Label: "posts"}
			for i := 0; i < size; i++ {
				d := &models.Document{ID: fmt.Sprintf("/p%d.html", i), Tags: []string{fmt.Sprintf("t%d", i%10), "all"}}
				d.Date = time.Unix(int64(i), 0)
				col.Docs = append(col.Docs, d)
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				generators.ComputeRelated(col)
			}
		})
	}
}

// BenchmarkSlugify tests slug generation on accented titles.
func BenchmarkSlugify(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = utils.Slugify("Ça va très bien: a Déjà Vu story, part 42")
	}
}
