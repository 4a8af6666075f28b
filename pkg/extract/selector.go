package extract

import (
	"fmt"
	"iter"
	"sort"
	"strconv"
	"strings"

	errs "tap-instagram/pkg/errors"
)

type stepKind int

const (
	stepMember stepKind = iota
	stepIndex
	stepWildcard
)

type step struct {
	kind  stepKind
	name  string
	index int
}

// Selector is a compiled JSONPath expression. The supported subset is the
// root $, member access (.name or ['name']), array indexes ([0]) and
// wildcards ([*] or .*).
type Selector struct {
	expr  string
	steps []step
}

// Compile parses a JSONPath expression. Syntax errors are configuration errors.
func Compile(expr string) (*Selector, error) {
	steps, err := parse(expr)
	if err != nil {
		return nil, errs.NewConfigurationError("selector", "invalid selector %q: %v", expr, err)
	}
	return &Selector{expr: expr, steps: steps}, nil
}

// MustCompile is like Compile but panics on error. Use it for static selectors only.
func MustCompile(expr string) *Selector {
	s, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Selector) String() string {
	return s.expr
}

func parse(expr string) ([]step, error) {
	if !strings.HasPrefix(expr, "$") {
		return nil, fmt.Errorf("must start with $")
	}

	var steps []step
	rest := expr[1:]
	for len(rest) > 0 {
		switch rest[0] {
		case '.':
			rest = rest[1:]
			if strings.HasPrefix(rest, ".") {
				return nil, fmt.Errorf("recursive descent is not supported")
			}
			if strings.HasPrefix(rest, "*") {
				steps = append(steps, step{kind: stepWildcard})
				rest = rest[1:]
				continue
			}
			n := 0
			for n < len(rest) && isNameByte(rest[n]) {
				n++
			}
			if n == 0 {
				return nil, fmt.Errorf("expected member name after '.'")
			}
			steps = append(steps, step{kind: stepMember, name: rest[:n]})
			rest = rest[n:]

		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return nil, fmt.Errorf("unterminated '['")
			}
			inner := strings.TrimSpace(rest[1:end])
			rest = rest[end+1:]

			switch {
			case inner == "*":
				steps = append(steps, step{kind: stepWildcard})
			case len(inner) >= 2 && (inner[0] == '\'' || inner[0] == '"') && inner[len(inner)-1] == inner[0]:
				steps = append(steps, step{kind: stepMember, name: inner[1 : len(inner)-1]})
			default:
				idx, err := strconv.Atoi(inner)
				if err != nil || idx < 0 {
					return nil, fmt.Errorf("unsupported bracket expression [%s]", inner)
				}
				steps = append(steps, step{kind: stepIndex, index: idx})
			}

		default:
			return nil, fmt.Errorf("unexpected %q", rest[0])
		}
	}
	return steps, nil
}

func isNameByte(c byte) bool {
	return c == '_' || c == '-' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// Select lazily yields every value found at the selector location, in document order.
// Object wildcards visit keys in sorted order.
func (s *Selector) Select(doc interface{}) iter.Seq[interface{}] {
	return func(yield func(interface{}) bool) {
		walk(doc, s.steps, yield)
	}
}

func walk(node interface{}, steps []step, yield func(interface{}) bool) bool {
	if len(steps) == 0 {
		return yield(node)
	}

	st, rest := steps[0], steps[1:]
	switch st.kind {
	case stepMember:
		obj, ok := node.(map[string]interface{})
		if !ok {
			return true
		}
		child, ok := obj[st.name]
		if !ok {
			return true
		}
		return walk(child, rest, yield)

	case stepIndex:
		arr, ok := node.([]interface{})
		if !ok || st.index >= len(arr) {
			return true
		}
		return walk(arr[st.index], rest, yield)

	case stepWildcard:
		switch v := node.(type) {
		case []interface{}:
			for _, elem := range v {
				if !walk(elem, rest, yield) {
					return false
				}
			}
		case map[string]interface{}:
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if !walk(v[k], rest, yield) {
					return false
				}
			}
		}
	}
	return true
}

// Records lazily yields the JSON objects at the selector location.
// Anything that is not an object, including null, is skipped.
func (s *Selector) Records(doc interface{}) iter.Seq[map[string]interface{}] {
	return func(yield func(map[string]interface{}) bool) {
		for v := range s.Select(doc) {
			obj, ok := v.(map[string]interface{})
			if !ok {
				continue
			}
			if !yield(obj) {
				return
			}
		}
	}
}

// First returns the first value at the selector location
func (s *Selector) First(doc interface{}) (interface{}, bool) {
	for v := range s.Select(doc) {
		return v, true
	}
	return nil, false
}

// FirstString returns the first value at the selector location when it is a non-empty string
func (s *Selector) FirstString(doc interface{}) (string, bool) {
	v, ok := s.First(doc)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok && str != ""
}
