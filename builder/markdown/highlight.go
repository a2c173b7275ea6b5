package markdown

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/kiln-ssg/kiln/builder/utils"
)

var codeBlockRe = regexp.MustCompile(`(?s)<pre><code class="language-([^"\s]+)">(.*?)</code></pre>`)

// highlight rewrites every fenced code block with a language into chroma output
// wrapped as <div class="highlight"><pre class="highlight LANG"><code>.
// The first failure aborts the pass and is returned.
func (r *Renderer) highlight(doc string, style *chroma.Style) (string, error) {
	if !strings.Contains(doc, `<pre><code class="language-`) {
		return doc, nil
	}

	var firstErr error
	out := codeBlockRe.ReplaceAllStringFunc(doc, func(block string) string {
		if firstErr != nil {
			return block
		}
		m := codeBlockRe.FindStringSubmatch(block)
		lang, code := m[1], html.UnescapeString(m[2])

		highlighted, err := r.highlightCode(lang, code, style)
		if err != nil {
			firstErr = fmt.Errorf("highlight %s block: %w", lang, err)
			return block
		}
		return `<div class="highlight"><pre class="highlight ` + html.EscapeString(lang) + `"><code>` +
			highlighted + `</code></pre></div>`
	})
	if firstErr != nil {
		return doc, firstErr
	}
	return out, nil
}

func (r *Renderer) highlightCode(lang, code string, style *chroma.Style) (string, error) {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", err
	}

	sb := utils.SharedStringBuilderPool.Get()
	defer utils.SharedStringBuilderPool.Put(sb)
	if err := r.formatter.Format(sb, style, iterator); err != nil {
		return "", err
	}
	return sb.String(), nil
}
