package templates

import (
	"fmt"
	"maps"
	"path"
	"strings"

	"github.com/osteele/liquid/render"
	"github.com/spf13/afero"

	"github.com/kiln-ssg/kiln/builder/frontmatter"
	"github.com/kiln-ssg/kiln/builder/utils"
)

// includeNode is the parsed form of an include or include_relative tag.
type includeNode struct {
	relative bool
	filename []token // word and variable parts, concatenated at render time
	params   []token // assign tokens in declaration order
	trim     bool
}

func parseInclude(args string, relative bool) (*includeNode, error) {
	toks, err := lexArgs(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTag, err)
	}

	n := &includeNode{relative: relative}
	i := 0
	for ; i < len(toks); i++ {
		t := toks[i]
		if t.Kind == tokAssign || t.Kind == tokTrim || (t.Kind == tokWord && t.Text == "with") {
			break
		}
		n.filename = append(n.filename, t)
	}
	if len(n.filename) == 0 {
		return nil, fmt.Errorf("%w: include requires a file name", ErrInvalidTag)
	}
	if i < len(toks) && toks[i].Kind == tokWord && toks[i].Text == "with" {
		i++
	}
	for ; i < len(toks); i++ {
		switch t := toks[i]; t.Kind {
		case tokAssign:
			n.params = append(n.params, t)
		case tokTrim:
			n.trim = true
		default:
			return nil, fmt.Errorf("%w: unexpected %s %q in include parameters", ErrInvalidTag, t.Kind, t.Text)
		}
	}
	return n, nil
}

// name assembles the file name, evaluating dynamic parts against ctx.
func (n *includeNode) name(ctx render.Context) (string, error) {
	var b strings.Builder
	for _, part := range n.filename {
		switch part.Kind {
		case tokVariable:
			v, err := ctx.EvaluateString(part.Text)
			if err != nil {
				return "", err
			}
			if v != nil {
				b.WriteString(fmt.Sprint(v))
			}
		default:
			b.WriteString(part.Text)
		}
	}
	name := strings.TrimSpace(b.String())
	if name == "" {
		return "", fmt.Errorf("%w: include file name evaluated to an empty string", ErrInvalidTag)
	}
	return name, nil
}

func (n *includeNode) resolveParams(ctx render.Context) (map[string]any, error) {
	params := make(map[string]any, len(n.params))
	for _, p := range n.params {
		v, err := evalValue(ctx, *p.Value)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", p.Key, err)
		}
		params[p.Key] = v
	}
	return params, nil
}

func (e *Engine) includeTag(relative bool) func(render.Context) (string, error) {
	tag := "include"
	if relative {
		tag = "include_relative"
	}
	return func(ctx render.Context) (string, error) {
		args := ctx.TagArgs()
		node, err := e.node(tag, args, func() (any, error) { return parseInclude(args, relative) })
		if err != nil {
			return "", err
		}
		return e.renderInclude(ctx, node.(*includeNode))
	}
}

// node returns the cached parse of a tag's arguments.
func (e *Engine) node(tag, args string, parse func() (any, error)) (any, error) {
	key := tag + "\x00" + args
	if n, ok := e.nodes.Load(key); ok {
		return n, nil
	}
	n, err := parse()
	if err != nil {
		return nil, err
	}
	actual, _ := e.nodes.LoadOrStore(key, n)
	return actual, nil
}

func (e *Engine) renderInclude(ctx render.Context, node *includeNode) (string, error) {
	name, err := node.name(ctx)
	if err != nil {
		return "", err
	}
	params, err := node.resolveParams(ctx)
	if err != nil {
		return "", err
	}

	page, _ := ctx.Get("page").(map[string]any)
	pagePath, _ := page["path"].(string)

	var file, key string
	if node.relative {
		file, key, err = e.resolveRelative(name, pagePath)
	} else {
		file, key, err = e.resolveInclude(name)
	}
	if err != nil {
		return "", err
	}
	if e.opts.Deps != nil && pagePath != "" {
		e.opts.Deps.AddDependency(pagePath, key)
	}

	tpl, err := e.includeTemplate(file)
	if err != nil {
		return "", err
	}

	out, err := tpl.Render(includeScope(ctx, page, name, key, params))
	if err != nil {
		return "", err
	}
	if node.trim {
		out = strings.TrimRight(out, " \t\r\n")
	}
	return out, nil
}

// includeScope builds the isolated scope an include renders against: copies of
// site and page, the parameters as top-level variables and the include object.
func includeScope(ctx render.Context, page map[string]any, name, key string, params map[string]any) map[string]any {
	scope := make(map[string]any, len(params)+3)
	if site, ok := ctx.Get("site").(map[string]any); ok {
		scope["site"] = maps.Clone(site)
	}
	scope["page"] = maps.Clone(page)
	for k, v := range params {
		scope[k] = v
	}

	inc := map[string]any{
		"content":   "",
		"path":      key,
		"name":      path.Base(name),
		"url":       "",
		"title":     "",
		"color":     "",
		"show_logo": false,
		"logo_path": "",
	}
	maps.Copy(inc, params)
	scope["include"] = inc
	return scope
}

// fsPath maps a source-relative or absolute slash path onto the source fs.
func (e *Engine) fsPath(p string) string {
	if path.IsAbs(p) {
		return p
	}
	return path.Join(e.opts.Source, p)
}

func (e *Engine) includeDirs() []string {
	dirs := []string{e.opts.IncludesDir}
	if e.opts.ThemeDir != "" {
		dirs = append(dirs, path.Join(e.opts.ThemeDir, "_includes"))
	}
	return dirs
}

// resolveInclude finds name in the site includes dir, then the theme's. A name
// without an extension is retried with ".html". key is the dependency key.
func (e *Engine) resolveInclude(name string) (file, key string, err error) {
	clean := path.Clean(strings.TrimPrefix(name, "/"))
	if strings.HasPrefix(clean, "..") {
		return "", "", fmt.Errorf("%w: %s escapes the includes directory", ErrIncludeNotFound, name)
	}
	candidates := []string{clean}
	if path.Ext(clean) == "" {
		candidates = append(candidates, clean+".html")
	}
	for _, dir := range e.includeDirs() {
		for _, c := range candidates {
			key := path.Join(dir, c)
			if utils.IsFile(e.opts.FS, e.fsPath(key)) {
				return e.fsPath(key), key, nil
			}
		}
	}
	return "", "", fmt.Errorf("%w: %s", ErrIncludeNotFound, name)
}

// resolveRelative resolves name against the directory of the including page,
// then with '/' flattened to '_', then through the includes directories.
func (e *Engine) resolveRelative(name, pagePath string) (file, key string, err error) {
	dir := path.Dir(pagePath)
	for _, c := range []string{name, strings.ReplaceAll(name, "/", "_")} {
		key := path.Join(dir, c)
		if utils.IsFile(e.opts.FS, e.fsPath(key)) {
			return e.fsPath(key), key, nil
		}
	}
	if file, key, err := e.resolveInclude(name); err == nil {
		return file, key, nil
	}
	return "", "", fmt.Errorf("%w: %s (relative to %s)", ErrIncludeNotFound, name, pagePath)
}

// includeTemplate loads, strips front matter from and parses an include file once.
func (e *Engine) includeTemplate(file string) (*Template, error) {
	if t, ok := e.includes.Load(file); ok {
		return t.(*Template), nil
	}
	data, err := afero.ReadFile(e.opts.FS, file)
	if err != nil {
		return nil, fmt.Errorf("failed to read include %s: %w", file, err)
	}
	if _, body, had, err := frontmatter.Split(data); err == nil && had {
		data = body
	}
	tpl, err := e.Parse(file, string(data))
	if err != nil {
		return nil, err
	}
	actual, _ := e.includes.LoadOrStore(file, tpl)
	return actual.(*Template), nil
}
