package markdown

import (
	"path"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/kiln-ssg/kiln/builder/models"
)

// linkTransformer points relative links at markdown sources to their rendered
// .html output, e.g. `guide.md#setup` becomes `guide.html#setup`.
type linkTransformer struct{}

func (t *linkTransformer) Transform(node *ast.Document, _ text.Reader, _ parser.Context) {
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if link, ok := n.(*ast.Link); ok {
			link.Destination = []byte(rewriteMarkdownLink(string(link.Destination)))
		}
		return ast.WalkContinue, nil
	})
}

func rewriteMarkdownLink(href string) string {
	if href == "" || strings.Contains(href, "://") || strings.HasPrefix(href, "//") ||
		strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") {
		return href
	}

	target, frag := href, ""
	if i := strings.IndexAny(href, "#?"); i >= 0 {
		target, frag = href[:i], href[i:]
	}
	if !models.IsMarkdownPath(target) {
		return href
	}
	return strings.TrimSuffix(target, path.Ext(target)) + ".html" + frag
}
