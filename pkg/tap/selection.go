package tap

import (
	"strings"

	errs "tap-instagram/pkg/errors"
	"tap-instagram/pkg/stream"
)

// Selection resolves which streams emit messages and which must be
// traversed. A parent of a selected stream is traversed even when it is not
// selected itself, since its records seed the child's context.
type Selection struct {
	selected map[string]bool
	needed   map[string]bool
	order    []string
}

// NewSelection resolves names against the registry. No names selects every
// stream. Unknown names are a configuration error.
func NewSelection(reg *stream.Registry, names []string) (*Selection, error) {
	sel := &Selection{selected: map[string]bool{}, needed: map[string]bool{}}

	want := map[string]bool{}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := reg.Lookup(name); !ok {
			return nil, errs.NewConfigurationError("streams.selected", "unknown stream %q (available: %s)",
				name, strings.Join(reg.Names(), ", "))
		}
		want[name] = true
	}

	for _, s := range reg.Streams() {
		if len(want) > 0 && !want[s.Name()] {
			continue
		}
		sel.selected[s.Name()] = true
		sel.order = append(sel.order, s.Name())
		for p := s; p != nil; p = p.Parent() {
			sel.needed[p.Name()] = true
		}
	}
	return sel, nil
}

// Selected reports whether name emits messages
func (s *Selection) Selected(name string) bool { return s.selected[name] }

// Needed reports whether name must be fetched
func (s *Selection) Needed(name string) bool { return s.needed[name] }

// Names returns the selected streams in declaration order
func (s *Selection) Names() []string { return append([]string(nil), s.order...) }
