package templates

import (
	"fmt"
	"path"
	"strings"

	"github.com/osteele/liquid/render"

	"github.com/kiln-ssg/kiln/builder/models"
	"github.com/kiln-ssg/kiln/builder/utils"
)

type linkNode struct {
	parts []token
}

func parseLink(args string) (*linkNode, error) {
	toks, err := lexArgs(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTag, err)
	}
	n := &linkNode{}
	for _, t := range toks {
		if t.Kind == tokTrim {
			continue
		}
		if t.Kind == tokAssign {
			return nil, fmt.Errorf("%w: link does not take parameters", ErrInvalidTag)
		}
		n.parts = append(n.parts, t)
	}
	if len(n.parts) == 0 {
		return nil, fmt.Errorf("%w: link requires a path", ErrInvalidTag)
	}
	return n, nil
}

func (e *Engine) linkTag(ctx render.Context) (string, error) {
	args := ctx.TagArgs()
	node, err := e.node("link", args, func() (any, error) { return parseLink(args) })
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, part := range node.(*linkNode).parts {
		if part.Kind == tokVariable {
			v, err := ctx.EvaluateString(part.Text)
			if err != nil {
				return "", err
			}
			if v != nil {
				b.WriteString(fmt.Sprint(v))
			}
			continue
		}
		b.WriteString(part.Text)
	}
	return e.ResolveLink(b.String()), nil
}

// linkCandidates lists the source paths a link target may refer to, in order.
func linkCandidates(p string) []string {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	raw := []string{p, strings.TrimPrefix(p, "_")}
	if strings.HasPrefix(p, "posts/") {
		raw = append(raw, "_"+p)
	}
	switch {
	case strings.HasPrefix(p, "docs/"):
		raw = append(raw, "_"+p)
	case strings.HasPrefix(p, "_docs/"):
		raw = append(raw, strings.TrimPrefix(p, "_"))
	}

	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, c := range raw {
		if c != "" && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// ResolveLink turns a source-relative path into a site URL. It never fails: when
// no candidate exists the last one is converted as if it did.
func (e *Engine) ResolveLink(target string) string {
	candidates := linkCandidates(target)
	if len(candidates) == 0 {
		return e.withBaseURL("/")
	}

	for _, c := range candidates {
		if url, ok := e.opts.LinkIndex[c]; ok {
			return e.withBaseURL(url)
		}
		if utils.IsFile(e.opts.FS, e.fsPath(c)) {
			return e.withBaseURL("/" + c)
		}
	}

	last := candidates[len(candidates)-1]
	if models.IsMarkdownPath(last) {
		last = strings.TrimSuffix(last, path.Ext(last)) + ".html"
	}
	return e.withBaseURL("/" + last)
}

func (e *Engine) withBaseURL(url string) string {
	base := strings.TrimRight(e.opts.BaseURL, "/")
	if base == "" {
		return url
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return base + url
}
