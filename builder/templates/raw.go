package templates

import (
	"html"
	"regexp"
	"strconv"
	"strings"
)

var (
	rawBlockRe = regexp.MustCompile(`(?s)\{%-?\s*raw\s*-?%\}(.*?)\{%-?\s*endraw\s*-?%\}`)
	markupRe   = regexp.MustCompile(`(?s)\{%.*?%\}|\{\{.*?\}\}`)
)

// RawTable holds text cut out of one template (raw block bodies, or liquid markup
// hidden from markdown). Each cut is replaced by an alphanumeric placeholder that
// survives markdown and liquid untouched. Tables are immutable once built.
type RawTable struct {
	prefix string
	bodies []string
	re     *regexp.Regexp
}

func (t *RawTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.bodies)
}

func (t *RawTable) placeholder(i int) string {
	return t.prefix + strconv.Itoa(i) + "e"
}

// protectRaw replaces every raw block in src with a placeholder.
func protectRaw(src, prefix string) (string, *RawTable) {
	if !strings.Contains(src, "raw") {
		return src, &RawTable{prefix: prefix}
	}
	return protect(src, prefix, rawBlockRe, 1)
}

// protectMarkup replaces every liquid tag and output with a placeholder.
func protectMarkup(src, prefix string) (string, *RawTable) {
	if !strings.Contains(src, "{%") && !strings.Contains(src, "{{") {
		return src, &RawTable{prefix: prefix}
	}
	return protect(src, prefix, markupRe, 0)
}

func protect(src, prefix string, re *regexp.Regexp, group int) (string, *RawTable) {
	t := &RawTable{prefix: prefix}
	var b strings.Builder
	last := 0
	for _, m := range re.FindAllStringSubmatchIndex(src, -1) {
		b.WriteString(src[last:m[0]])
		t.bodies = append(t.bodies, src[m[2*group]:m[2*group+1]])
		b.WriteString(t.placeholder(len(t.bodies) - 1))
		last = m[1]
	}
	if len(t.bodies) == 0 {
		return src, t
	}
	b.WriteString(src[last:])
	t.re = regexp.MustCompile(regexp.QuoteMeta(prefix) + `(\d+)e`)
	return b.String(), t
}

// Restore puts the raw bodies back. With escapeInCode, bodies that landed inside
// a <code> element (markdown code blocks and spans) are HTML escaped the way the
// surrounding code text already is.
func (t *RawTable) Restore(s string, escapeInCode bool) string {
	if t.Len() == 0 || !strings.Contains(s, t.prefix) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for _, m := range t.re.FindAllStringSubmatchIndex(s, -1) {
		idx, err := strconv.Atoi(s[m[2]:m[3]])
		if err != nil || idx >= len(t.bodies) {
			continue
		}
		b.WriteString(s[last:m[0]])
		body := t.bodies[idx]
		if escapeInCode && insideCode(s[:m[0]]) {
			body = html.EscapeString(body)
		}
		b.WriteString(body)
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

func insideCode(before string) bool {
	open := strings.LastIndex(before, "<code")
	return open >= 0 && open > strings.LastIndex(before, "</code>")
}
