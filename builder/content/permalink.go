package content

import (
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/kiln-ssg/kiln/builder/models"
	"github.com/kiln-ssg/kiln/builder/utils"
)

// Built-in permalink styles.
var permalinkStyles = map[string]string{
	"date":    "/:categories/:year/:month/:day/:title:output_ext",
	"pretty":  "/:categories/:year/:month/:day/:title/",
	"ordinal": "/:categories/:year/:y_day/:title:output_ext",
	"none":    "/:categories/:title:output_ext",
}

// DefaultCollectionPermalink is used by collections other than posts.
const DefaultCollectionPermalink = "/:collection/:path:output_ext"

// ResolveStyle expands a style name into its template; templates pass through.
func ResolveStyle(permalink string) string {
	if tpl, ok := permalinkStyles[permalink]; ok {
		return tpl
	}
	return permalink
}

// URLVars are the values a permalink template can reference.
type URLVars struct {
	Collection string
	Path       string // relative to the collection dir, without extension
	Name       string // file name without extension
	Title      string
	Slug       string
	Date       time.Time
	Categories []string
	OutputExt  string
}

// placeholders recognized in permalink templates.
var placeholders = []string{
	":collection", ":categories", ":short_year", ":output_ext",
	":i_month", ":i_day", ":y_day", ":month", ":year", ":day",
	":title", ":slug", ":name", ":path",
}

func (v URLVars) value(ph string) string {
	switch ph {
	case ":collection":
		return v.Collection
	case ":categories":
		parts := make([]string, 0, len(v.Categories))
		for _, c := range v.Categories {
			if s := utils.Slugify(c); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "/")
	case ":path":
		return v.Path
	case ":name":
		return v.Name
	case ":title":
		if v.Title != "" {
			return v.Title
		}
		return v.Slug
	case ":slug":
		return v.Slug
	case ":output_ext":
		return v.OutputExt
	case ":year":
		return v.Date.Format("2006")
	case ":short_year":
		return v.Date.Format("06")
	case ":month":
		return v.Date.Format("01")
	case ":i_month":
		return strconv.Itoa(int(v.Date.Month()))
	case ":day":
		return v.Date.Format("02")
	case ":i_day":
		return strconv.Itoa(v.Date.Day())
	case ":y_day":
		return v.Date.Format("002")
	}
	return ""
}

// ExpandPermalink fills a permalink template (or style name) and returns a
// rooted URL. Empty segments collapse so ":categories" may expand to nothing.
func ExpandPermalink(permalink string, v URLVars) string {
	tpl := ResolveStyle(permalink)
	if strings.Contains(tpl, ":") {
		var b strings.Builder
		b.Grow(len(tpl) + 32)
		for i := 0; i < len(tpl); {
			if tpl[i] == ':' {
				if ph := matchPlaceholder(tpl[i:]); ph != "" {
					b.WriteString(v.value(ph))
					i += len(ph)
					continue
				}
			}
			b.WriteByte(tpl[i])
			i++
		}
		tpl = b.String()
	}
	return cleanURL(tpl)
}

func matchPlaceholder(s string) string {
	for _, ph := range placeholders {
		if strings.HasPrefix(s, ph) {
			return ph
		}
	}
	return ""
}

func cleanURL(u string) string {
	trailing := strings.HasSuffix(u, "/")
	u = path.Clean("/" + u)
	if trailing && u != "/" {
		u += "/"
	}
	return u
}

// OutputPathFromURL maps a rooted URL to a destination-relative file path.
func OutputPathFromURL(u string) string {
	p := strings.TrimPrefix(u, "/")
	if p == "" || strings.HasSuffix(p, "/") {
		p += "index.html"
	}
	return p
}

// URLFromOutputPath is the inverse: "/" plus the path with index.html trimmed.
func URLFromOutputPath(p string) string {
	if path.Base(p) == "index.html" {
		p = strings.TrimSuffix(p, "index.html")
	}
	return "/" + p
}

// MirrorOutputPath keeps rel but renders markdown sources to .html.
func MirrorOutputPath(rel string) string {
	if models.IsMarkdownPath(rel) {
		return strings.TrimSuffix(rel, path.Ext(rel)) + ".html"
	}
	return rel
}

// OutputExt is the extension a rendered source ends up with.
func OutputExt(rel string) string {
	if models.IsMarkdownPath(rel) {
		return ".html"
	}
	return path.Ext(rel)
}
