// Package templates runs Liquid templates with the Jekyll tags layered on top of
// osteele/liquid: include, include_relative, link and raw.
package templates

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/osteele/liquid"
	"github.com/spf13/afero"

	"github.com/kiln-ssg/kiln/builder/cache"
)

var (
	ErrIncludeNotFound = errors.New("included file not found")
	ErrInvalidTag      = errors.New("invalid tag arguments")
)

// DependencyRecorder receives "file depends on dep" edges discovered while rendering.
type DependencyRecorder interface {
	AddDependency(file, dep string)
}

// Options configures an Engine. Paths are slash paths; directories are relative
// to Source unless absolute.
type Options struct {
	FS          afero.Fs
	Source      string
	IncludesDir string
	ThemeDir    string
	BaseURL     string
	URL         string

	// LinkIndex maps source-relative paths to the URL they render at.
	LinkIndex map[string]string
	Deps      DependencyRecorder
	// Markdownify backs the markdownify filter.
	Markdownify func(string) (string, error)
	Logger      *slog.Logger
}

// Engine is safe for concurrent use once constructed.
type Engine struct {
	opts   Options
	liquid *liquid.Engine
	logger *slog.Logger

	nodes    sync.Map // tag + args -> parsed node
	includes sync.Map // include file path -> *Template
}

func New(opts Options) *Engine {
	if opts.FS == nil {
		opts.FS = afero.NewOsFs()
	}
	if opts.IncludesDir == "" {
		opts.IncludesDir = "_includes"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		opts:   opts,
		liquid: liquid.NewEngine(),
		logger: logger,
	}
	e.registerTags()
	e.registerFilters()
	return e
}

// Template is a parsed liquid template together with the raw blocks cut out of it.
type Template struct {
	name string
	tpl  *liquid.Template
	raw  *RawTable
	// code marks templates whose source went through markdown, so raw bodies
	// inside <code> are escaped on restore.
	code bool
}

func (t *Template) Name() string { return t.name }

// Render evaluates the template against bindings and restores raw blocks.
func (t *Template) Render(bindings map[string]any) (string, error) {
	out, err := t.tpl.Render(liquid.Bindings(bindings))
	if err != nil {
		return "", fmt.Errorf("%s: %w", t.name, liquidError{err})
	}
	return t.raw.Restore(string(out), t.code), nil
}

// liquidError exposes the cause of a liquid source error to errors.Is and
// errors.As. Liquid keeps the error a tag returned behind Cause only.
type liquidError struct {
	err error
}

func (e liquidError) Error() string { return e.err.Error() }

func (e liquidError) Unwrap() error {
	if c, ok := e.err.(interface{ Cause() error }); ok {
		return c.Cause()
	}
	return nil
}

// placeholderPrefix derives the placeholder prefix from the text being protected,
// so the same source always protects to the same output.
func placeholderPrefix(kind, src string) string {
	return "kiln" + kind + cache.HashContent([]byte(src))[:16] + "n"
}

// Protect cuts raw blocks out of src before other processing (markdown) sees it.
func (e *Engine) Protect(src string) (string, *RawTable) {
	return protectRaw(src, placeholderPrefix("raw", src))
}

// ProtectMarkup hides liquid tags and outputs from the markdown renderer so that,
// for example, `[x]({% link a.md %})` still parses as a link. Restore the table on
// the markdown output before parsing it as a template.
func (e *Engine) ProtectMarkup(src string) (string, *RawTable) {
	return protectMarkup(src, placeholderPrefix("liq", src))
}

// Parse protects and parses src.
func (e *Engine) Parse(name, src string) (*Template, error) {
	text, raw := e.Protect(src)
	return e.ParseProtected(name, text, raw, false)
}

// ParseProtected parses text that already went through Protect. Set fromMarkdown
// when text is markdown output.
func (e *Engine) ParseProtected(name, text string, raw *RawTable, fromMarkdown bool) (*Template, error) {
	tpl, err := e.liquid.ParseTemplate([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, liquidError{err})
	}
	return &Template{name: name, tpl: tpl, raw: raw, code: fromMarkdown}, nil
}

// Render parses and renders src in one step.
func (e *Engine) Render(name, src string, bindings map[string]any) (string, error) {
	tpl, err := e.Parse(name, src)
	if err != nil {
		return "", err
	}
	return tpl.Render(bindings)
}

// HasTags reports whether src contains any liquid markup.
func HasTags(src string) bool {
	return strings.Contains(src, "{%") || strings.Contains(src, "{{")
}
