package schema

import (
	"fmt"
)

// Registry is a read-only lookup of stream schemas, built once at startup
type Registry struct {
	order   []string
	schemas map[string]Schema
}

// Entry pairs a stream name with its schema for NewRegistry
type Entry struct {
	Stream string
	Schema Schema
}

// NewRegistry validates and indexes the given schemas
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{schemas: make(map[string]Schema, len(entries))}
	for _, e := range entries {
		if e.Stream == "" {
			return nil, fmt.Errorf("schema entry without stream name")
		}
		if _, dup := r.schemas[e.Stream]; dup {
			return nil, fmt.Errorf("duplicate schema for stream %q", e.Stream)
		}
		if err := e.Schema.Validate(); err != nil {
			return nil, fmt.Errorf("schema for stream %q: %w", e.Stream, err)
		}
		r.order = append(r.order, e.Stream)
		r.schemas[e.Stream] = e.Schema
	}
	return r, nil
}

// Describe returns the ordered top-level fields of a stream
func (r *Registry) Describe(stream string) ([]Property, error) {
	s, ok := r.schemas[stream]
	if !ok {
		return nil, fmt.Errorf("unknown stream %q", stream)
	}
	out := make([]Property, len(s.Properties))
	copy(out, s.Properties)
	return out, nil
}

// Schema returns the full schema of a stream
func (r *Registry) Schema(stream string) (Schema, bool) {
	s, ok := r.schemas[stream]
	return s, ok
}

// Streams lists registered stream names in registration order
func (r *Registry) Streams() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
