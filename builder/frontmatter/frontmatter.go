// Splits and decodes the YAML header at the top of content files
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/kiln-ssg/kiln/builder/models"
)

// ErrMissingClosingDelimiter is returned when a file opens a front matter block but never closes it.
var ErrMissingClosingDelimiter = errors.New("front matter start delimiter found but closing delimiter is missing")

// HasFrontMatter reports whether content opens with a `---` line.
func HasFrontMatter(content []byte) bool {
	_, ok := openLen(content)
	return ok
}

func openLen(content []byte) (int, bool) {
	switch {
	case bytes.HasPrefix(content, []byte("---\n")):
		return 4, true
	case bytes.HasPrefix(content, []byte("---\r\n")):
		return 5, true
	}
	return 0, false
}

// Split separates the YAML block from the body. When content has no front matter,
// had is false and body is the full input.
func Split(content []byte) (header, body []byte, had bool, err error) {
	start, ok := openLen(content)
	if !ok {
		return nil, content, false, nil
	}

	rest := content[start:]
	pos := 0
	for pos <= len(rest) {
		end := bytes.IndexByte(rest[pos:], '\n')
		var line []byte
		next := len(rest) + 1
		if end < 0 {
			line = rest[pos:]
		} else {
			line = rest[pos : pos+end]
			next = pos + end + 1
		}
		trimmed := bytes.TrimRight(line, "\r \t")
		if bytes.Equal(trimmed, []byte("---")) || bytes.Equal(trimmed, []byte("...")) {
			if next > len(rest) {
				return rest[:pos], nil, true, nil
			}
			return rest[:pos], rest[next:], true, nil
		}
		if end < 0 {
			break
		}
		pos = next
	}
	return nil, nil, false, ErrMissingClosingDelimiter
}

// ParseYAML decodes a raw YAML block into a map. An empty block yields an empty map.
func ParseYAML(header []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(header)) == 0 {
		return map[string]any{}, nil
	}
	var fields map[string]any
	if err := yaml.Unmarshal(header, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// Parse splits content and decodes its front matter. Files without a header get
// an empty FrontMatter and had=false.
func Parse(content []byte) (fm *models.FrontMatter, body []byte, had bool, err error) {
	header, body, had, err := Split(content)
	if err != nil {
		return nil, nil, false, err
	}
	if !had {
		return models.NewFrontMatter(nil), body, false, nil
	}
	raw, err := ParseYAML(header)
	if err != nil {
		return nil, nil, true, fmt.Errorf("invalid front matter: %w", err)
	}
	fm, err = FromMap(raw)
	if err != nil {
		return nil, nil, true, err
	}
	return fm, body, true, nil
}

// FromMap fills the typed fields of a FrontMatter from a decoded map.
func FromMap(raw map[string]any) (*models.FrontMatter, error) {
	fm := models.NewFrontMatter(raw)

	for key, val := range raw {
		switch key {
		case "title":
			fm.Title = cast.ToString(val)
		case "permalink":
			fm.Permalink = cast.ToString(val)
		case "layout":
			fm.Layout = cast.ToString(val)
		case "description":
			fm.Description = cast.ToString(val)
		case "published":
			b, err := cast.ToBoolE(val)
			if err != nil {
				return nil, fmt.Errorf("published: %w", err)
			}
			fm.Published = &b
		case "categories", "category":
			fm.Categories = append(fm.Categories, StringList(val)...)
		case "tags", "tag":
			fm.Tags = append(fm.Tags, StringList(val)...)
		case "date":
			t, err := ParseDate(val)
			if err != nil {
				return nil, fmt.Errorf("date: %w", err)
			}
			fm.Date = t
		case "pagination":
			p, err := parsePagination(val)
			if err != nil {
				return nil, fmt.Errorf("pagination: %w", err)
			}
			fm.Pagination = p
		default:
			fm.Extra[key] = val
		}
	}
	return fm, nil
}

// StringList accepts a YAML list or a whitespace separated string.
func StringList(val any) []string {
	switch v := val.(type) {
	case nil:
		return nil
	case string:
		return strings.Fields(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := strings.TrimSpace(cast.ToString(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return cast.ToStringSlice(val)
}

var dateLayouts = []string{
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 -07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDate understands the date shapes Jekyll sites use, then anything cast accepts.
func ParseDate(val any) (time.Time, error) {
	if s, ok := val.(string); ok {
		s = strings.TrimSpace(s)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
	}
	return cast.ToTimeE(val)
}

func parsePagination(val any) (*models.PaginationSpec, error) {
	m, err := cast.ToStringMapE(val)
	if err != nil {
		return nil, err
	}
	p := &models.PaginationSpec{
		Enabled:    cast.ToBool(m["enabled"]),
		PerPage:    cast.ToInt(m["per_page"]),
		Collection: cast.ToString(m["collection"]),
		Path:       cast.ToString(m["path"]),
	}
	if p.PerPage < 0 {
		return nil, fmt.Errorf("per_page must not be negative, got %d", p.PerPage)
	}
	return p, nil
}
