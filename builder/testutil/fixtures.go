package testutil

import (
	"fmt"
	"strings"
	"time"
)

// PostMarkdown builds a post body with front matter.
func PostMarkdown(title string, date time.Time, tags []string, body string) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %q\n", title)
	b.WriteString("layout: post\n")
	fmt.Fprintf(&b, "date: %s\n", date.Format("2006-01-02 15:04:05 -0700"))
	if len(tags) > 0 {
		fmt.Fprintf(&b, "tags: [%s]\n", strings.Join(tags, ", "))
	}
	b.WriteString("---\n")
	b.WriteString(body)
	return b.String()
}

// SampleSite returns a small Jekyll tree rooted at root: two layouts, an include,
// two posts, an index page and a static asset.
func SampleSite(root string) map[string]string {
	d1 := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 2, 20, 9, 0, 0, 0, time.UTC)
	return map[string]string{
		root + "/_config.yml": "title: Sample\nbaseurl: \"\"\npermalink: /:year/:month/:day/:title.html\n",
		root + "/_layouts/default.html": "<html><head>{% include head.html title=page.title %}</head>" +
			"<body>{{ content }}</body></html>\n",
		root + "/_layouts/post.html":         "---\nlayout: default\n---\n<article>{{ content }}</article>",
		root + "/_includes/head.html":        "<title>{{ include.title }}</title>",
		root + "/_posts/2024-01-10-first.md": PostMarkdown("First", d1, []string{"go"}, "Hello **first**.\n"),
		root + "/_posts/2024-02-20-second.md": PostMarkdown("Second", d2, []string{"go", "web"},
			"See [first]({% link _posts/2024-01-10-first.md %}).\n"),
		root + "/index.html":      "---\nlayout: default\ntitle: Home\n---\n<ul>{% for p in site.posts %}<li>{{ p.title }}</li>{% endfor %}</ul>",
		root + "/assets/logo.png": "\x89PNG\r\n\x1a\n\x00binary",
	}
}

// CreateLargeHTML returns an HTML body well above the render store inline threshold.
func CreateLargeHTML() string {
	return strings.Repeat("<p>Lorem ipsum dolor sit amet, consectetur adipiscing elit.</p>\n", 2000)
}
