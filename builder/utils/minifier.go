package utils

import (
	"bytes"
	"path"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/json"
	"github.com/tdewolff/minify/v2/xml"
)

// NewMinifier returns a minifier configured for every rendered output type.
func NewMinifier() *minify.M {
	m := minify.New()
	m.Add("text/html", &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("application/javascript", js.Minify)
	m.AddFunc("application/json", json.Minify)
	m.AddFunc("text/xml", xml.Minify)
	return m
}

// MediaType maps an output path to the media type the minifier registers.
// Unknown types return "".
func MediaType(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".html", ".htm":
		return "text/html"
	case ".css":
		return "text/css"
	case ".js":
		return "application/javascript"
	case ".json":
		return "application/json"
	case ".xml":
		return "text/xml"
	}
	return ""
}

// Minify minifies data according to the output path. On any failure, or for types
// without a minifier, the input is returned unchanged.
func Minify(m *minify.M, outputPath string, data []byte) []byte {
	mt := MediaType(outputPath)
	if m == nil || mt == "" {
		return data
	}
	buf := SharedBufferPool.Get()
	defer SharedBufferPool.Put(buf)
	if err := m.Minify(mt, buf, bytes.NewReader(data)); err != nil {
		return data
	}
	return bytes.Clone(buf.Bytes())
}
