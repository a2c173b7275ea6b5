package templates

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/osteele/liquid/render"
)

// evalValue evaluates an include parameter: true/false, then a number, then a
// quoted literal, then a variable path in the current scope, else the bare text.
func evalValue(ctx render.Context, t token) (any, error) {
	switch t.Kind {
	case tokString:
		return t.Text, nil
	case tokVariable:
		return ctx.EvaluateString(t.Text)
	}

	switch t.Text {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	if i, err := strconv.ParseInt(t.Text, 10, 64); err == nil {
		return int(i), nil
	}
	if f, err := strconv.ParseFloat(t.Text, 64); err == nil {
		return f, nil
	}
	if v, ok := lookupPath(ctx.Bindings(), t.Text); ok {
		return v, nil
	}
	return t.Text, nil
}

// lookupPath walks a dotted path such as `page.tags[0]` or `site.data.nav.0`
// through maps and slices.
func lookupPath(scope map[string]any, p string) (any, bool) {
	segs := splitPath(p)
	if len(segs) == 0 {
		return nil, false
	}
	var cur any = scope
	for _, seg := range segs {
		next, ok := step(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func splitPath(p string) []string {
	p = strings.ReplaceAll(p, "[", ".")
	p = strings.ReplaceAll(p, "]", "")
	var out []string
	for _, s := range strings.Split(p, ".") {
		s = strings.Trim(s, `"'`)
		if s == "" {
			return nil
		}
		out = append(out, s)
	}
	return out
}

func step(cur any, seg string) (any, bool) {
	switch v := cur.(type) {
	case map[string]any:
		x, ok := v[seg]
		return x, ok
	case []any:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(v) {
			return nil, false
		}
		return v[i], true
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(cur)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		x := rv.MapIndex(reflect.ValueOf(seg).Convert(rv.Type().Key()))
		if !x.IsValid() {
			return nil, false
		}
		return x.Interface(), true
	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= rv.Len() {
			return nil, false
		}
		return rv.Index(i).Interface(), true
	}
	return nil, false
}
