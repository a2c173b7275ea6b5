package content

import (
	"strings"

	"github.com/spf13/cast"

	"github.com/kiln-ssg/kiln/builder/models"
)

// ExcerptSource returns the part of body before the separator. A document's
// `excerpt_separator` front matter key overrides the site default.
func ExcerptSource(body []byte, fm *models.FrontMatter, sep string) string {
	if v, ok := fm.Get("excerpt_separator"); ok {
		if s := cast.ToString(v); s != "" {
			sep = s
		}
	}
	text := strings.TrimLeft(string(body), "\r\n")
	if sep == "" {
		return text
	}
	if i := strings.Index(text, sep); i >= 0 {
		return text[:i]
	}
	return text
}
