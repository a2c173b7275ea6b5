// Package scaffold lays out a new site: config, layouts, an index page and a
// first post.
package scaffold

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/kiln-ssg/kiln/builder/config"
	"github.com/kiln-ssg/kiln/builder/utils"
	"github.com/kiln-ssg/kiln/internal/post"
)

const defaultConfig = `title: %q
description: "A new site built with kiln"
url: ""
baseurl: ""
permalink: date
paginate_path: /page:num/
highlight_theme: github
exclude:
  - README.md
`

const defaultLayout = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  {% include head.html %}
</head>
<body>
  <main>{{ content }}</main>
</body>
</html>
`

const postLayout = `---
layout: default
---
<article>
  <h1>{{ page.title }}</h1>
  <time>{{ page.date | date: "%B %d, %Y" }}</time>
  {{ content }}
</article>
`

const headInclude = `<title>{% if page.title != "" %}{{ page.title }} | {% endif %}{{ site.title }}</title>
`

const indexPage = `---
layout: default
pagination:
  enabled: true
---
<ul>
{% for post in paginator.posts %}  <li><a href="{{ post.url | relative_url }}">{{ post.title }}</a></li>
{% endfor %}</ul>
`

// Result lists the files a scaffold created and skipped.
type Result struct {
	Created []string
	Skipped []string
}

// Run creates the skeleton in dir. Existing files are left untouched.
func Run(fs afero.Fs, dir, title string, logger *slog.Logger) (Result, error) {
	var res Result
	files := []struct {
		name, body string
	}{
		{"_config.yml", fmt.Sprintf(defaultConfig, title)},
		{"_layouts/default.html", defaultLayout},
		{"_layouts/post.html", postLayout},
		{"_includes/head.html", headInclude},
		{"index.html", indexPage},
	}
	for _, f := range files {
		p := filepath.Join(dir, filepath.FromSlash(f.name))
		if utils.Exists(fs, p) {
			logger.Warn("File exists, skipping", "path", p)
			res.Skipped = append(res.Skipped, f.name)
			continue
		}
		if err := utils.WriteFileVFS(fs, p, []byte(f.body)); err != nil {
			return res, err
		}
		logger.Debug("Created", "path", p)
		res.Created = append(res.Created, f.name)
	}

	cfg := config.Default()
	cfg.Source = dir
	if matches, _ := afero.Glob(fs, filepath.Join(dir, "_posts", "*.md")); len(matches) == 0 {
		p, err := post.Create(fs, cfg, post.Options{Title: "Welcome to kiln", Date: time.Now()})
		if err != nil {
			return res, err
		}
		rel, _ := utils.SafeRel(dir, p)
		res.Created = append(res.Created, rel)
	}
	return res, nil
}
