// Configures goldmark and the chroma highlighting pass for content files
package markdown

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/alecthomas/chroma/v2"
	chroma_html "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/gohugoio/hugo-goldmark-extensions/passthrough"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"

	"github.com/kiln-ssg/kiln/builder/cache"
	"github.com/kiln-ssg/kiln/builder/utils"
)

const DefaultTheme = "github"

// Memo stores rendered output across builds.
type Memo interface {
	Get(key string) (string, bool)
	Put(key, html string) error
}

type Options struct {
	Theme string
	// Math keeps $...$ and $$...$$ spans verbatim for client-side rendering.
	Math   bool
	Memo   Memo
	Logger *slog.Logger
}

// Renderer converts markdown to HTML. It is safe for concurrent use.
type Renderer struct {
	md        goldmark.Markdown
	formatter *chroma_html.Formatter
	memo      Memo
	math      bool
	logger    *slog.Logger

	mu    sync.RWMutex
	theme string
	style *chroma.Style
}

func New(opts Options) (*Renderer, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	exts := []goldmark.Extender{extension.GFM}
	if opts.Math {
		exts = append(exts, passthrough.New(passthrough.Config{
			InlineDelimiters: []passthrough.Delimiters{{Open: "$", Close: "$"}, {Open: "\\(", Close: "\\)"}},
			BlockDelimiters:  []passthrough.Delimiters{{Open: "$$", Close: "$$"}, {Open: "\\[", Close: "\\]"}},
		}))
	}

	r := &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(exts...),
			goldmark.WithParserOptions(
				parser.WithASTTransformers(
					util.Prioritized(&linkTransformer{}, 100),
				),
				parser.WithAutoHeadingID(),
			),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
		formatter: chroma_html.New(chroma_html.PreventSurroundingPre(true)),
		memo:      opts.Memo,
		math:      opts.Math,
		logger:    logger,
	}

	theme := opts.Theme
	if theme == "" {
		theme = DefaultTheme
	}
	if err := r.SetTheme(theme); err != nil {
		return nil, err
	}
	return r, nil
}

// SetTheme selects the chroma style. Unknown names are rejected and the current
// theme is kept.
func (r *Renderer) SetTheme(name string) error {
	style, ok := styles.Registry[name]
	if !ok {
		return fmt.Errorf("unknown highlight theme %q", name)
	}
	r.mu.Lock()
	r.theme = name
	r.style = style
	r.mu.Unlock()
	return nil
}

func (r *Renderer) Theme() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.theme
}

func (r *Renderer) current() (string, *chroma.Style) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.theme, r.style
}

// Render converts src to HTML and highlights fenced code blocks.
func (r *Renderer) Render(src []byte) (string, error) {
	theme, style := r.current()

	var key string
	if r.memo != nil {
		math := "0"
		if r.math {
			math = "1"
		}
		key = cache.RenderKey("markdown", theme, math, string(src))
		if html, ok := r.memo.Get(key); ok {
			return html, nil
		}
	}

	buf := utils.SharedBufferPool.Get()
	defer utils.SharedBufferPool.Put(buf)
	if err := r.md.Convert(src, buf); err != nil {
		return "", fmt.Errorf("markdown conversion failed: %w", err)
	}

	out, err := r.highlight(buf.String(), style)
	if err != nil {
		r.logger.Warn("Highlighting failed, keeping plain code blocks", "error", err)
		out = buf.String()
	}

	if r.memo != nil {
		if err := r.memo.Put(key, out); err != nil {
			r.logger.Warn("Failed to memoize render", "error", err)
		}
	}
	return out, nil
}

// RenderString is Render for strings, used by the markdownify filter.
func (r *Renderer) RenderString(s string) (string, error) {
	return r.Render([]byte(s))
}
