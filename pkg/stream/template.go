package stream

import (
	"net/url"
	"strings"

	errs "tap-instagram/pkg/errors"
)

type templatePart struct {
	literal  string
	variable string
}

// PathTemplate is a request path with {name} placeholders filled from a Context
type PathTemplate struct {
	raw   string
	parts []templatePart
	vars  []string
}

// ParseTemplate compiles a path template. Unbalanced braces and empty or
// malformed placeholder names are configuration errors.
func ParseTemplate(raw string) (*PathTemplate, error) {
	if !strings.HasPrefix(raw, "/") {
		return nil, errs.NewConfigurationError("path", "path template %q must start with /", raw)
	}

	t := &PathTemplate{raw: raw}
	seen := map[string]bool{}
	rest := raw
	for len(rest) > 0 {
		open := strings.IndexAny(rest, "{}")
		if open < 0 {
			t.parts = append(t.parts, templatePart{literal: rest})
			break
		}
		if rest[open] == '}' {
			return nil, errs.NewConfigurationError("path", "unbalanced '}' in path template %q", raw)
		}
		if open > 0 {
			t.parts = append(t.parts, templatePart{literal: rest[:open]})
		}
		closeIdx := strings.IndexByte(rest[open:], '}')
		if closeIdx < 0 {
			return nil, errs.NewConfigurationError("path", "unterminated placeholder in path template %q", raw)
		}
		name := rest[open+1 : open+closeIdx]
		if !validVariable(name) {
			return nil, errs.NewConfigurationError("path", "invalid placeholder {%s} in path template %q", name, raw)
		}
		t.parts = append(t.parts, templatePart{variable: name})
		if !seen[name] {
			seen[name] = true
			t.vars = append(t.vars, name)
		}
		rest = rest[open+closeIdx+1:]
	}
	return t, nil
}

func validVariable(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Variables lists placeholder names in order of first appearance
func (t *PathTemplate) Variables() []string {
	out := make([]string, len(t.vars))
	copy(out, t.vars)
	return out
}

func (t *PathTemplate) String() string {
	return t.raw
}

// Expand substitutes context values, path-escaping each one
func (t *PathTemplate) Expand(ctx Context) (string, error) {
	var b strings.Builder
	for _, p := range t.parts {
		if p.variable == "" {
			b.WriteString(p.literal)
			continue
		}
		v, ok := ctx[p.variable]
		if !ok || v == "" {
			return "", errs.NewConfigurationError("context", "path template %q requires context variable %q", t.raw, p.variable)
		}
		b.WriteString(url.PathEscape(v))
	}
	return b.String(), nil
}
