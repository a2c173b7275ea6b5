package templates

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/kiln-ssg/kiln/builder/frontmatter"
	"github.com/kiln-ssg/kiln/builder/utils"
)

func (e *Engine) registerTags() {
	e.liquid.RegisterTag("include", e.includeTag(false))
	e.liquid.RegisterTag("include_relative", e.includeTag(true))
	e.liquid.RegisterTag("link", e.linkTag)
}

func (e *Engine) registerFilters() {
	e.liquid.RegisterFilter("relative_url", e.relativeURL)
	e.liquid.RegisterFilter("absolute_url", e.absoluteURL)
	e.liquid.RegisterFilter("slugify", func(s string) string { return utils.Slugify(s) })
	e.liquid.RegisterFilter("xml_escape", func(s string) string { return html.EscapeString(s) })
	e.liquid.RegisterFilter("jsonify", jsonify)
	e.liquid.RegisterFilter("date_to_xmlschema", dateToXMLSchema)
	e.liquid.RegisterFilter("markdownify", func(s string) (string, error) {
		if e.opts.Markdownify == nil {
			return s, nil
		}
		return e.opts.Markdownify(s)
	})
}

func (e *Engine) relativeURL(s string) string {
	if strings.Contains(s, "://") || strings.HasPrefix(s, "//") {
		return s
	}
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	return e.withBaseURL(s)
}

func (e *Engine) absoluteURL(s string) string {
	if strings.Contains(s, "://") || strings.HasPrefix(s, "//") {
		return s
	}
	return strings.TrimRight(e.opts.URL, "/") + e.relativeURL(s)
}

func jsonify(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("jsonify: %w", err)
	}
	return string(data), nil
}

func dateToXMLSchema(v any) (string, error) {
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.RFC3339), nil
	case nil:
		return "", nil
	}
	t, err := frontmatter.ParseDate(v)
	if err != nil {
		return "", fmt.Errorf("date_to_xmlschema: %w", err)
	}
	return t.Format(time.RFC3339), nil
}
