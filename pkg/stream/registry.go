package stream

import (
	"fmt"

	errs "tap-instagram/pkg/errors"
	"tap-instagram/pkg/extract"
	"tap-instagram/pkg/schema"
)

// Registry holds the compiled stream graph. It is built once and not mutated afterwards.
type Registry struct {
	streams []*Stream
	byName  map[string]*Stream
	roots   []*Stream
	schemas *schema.Registry
}

// NewRegistry compiles and links definitions. A parent must be declared before
// its children, and every placeholder in a child's path must be a context key
// its parent provides. Violations are configuration errors.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Stream, len(defs))}
	entries := make([]schema.Entry, 0, len(defs))

	for _, def := range defs {
		s, err := compile(def)
		if err != nil {
			return nil, err
		}
		if _, dup := r.byName[def.Name]; dup {
			return nil, errs.NewConfigurationError("streams", "duplicate stream %q", def.Name)
		}

		if def.Parent == "" {
			if vars := s.path.Variables(); len(vars) > 0 {
				return nil, errs.NewConfigurationError("streams",
					"root stream %q path needs context %v but has no parent", def.Name, vars)
			}
			r.roots = append(r.roots, s)
		} else {
			parent, ok := r.byName[def.Parent]
			if !ok {
				return nil, errs.NewConfigurationError("streams",
					"stream %q has unknown parent %q (parents must be declared first)", def.Name, def.Parent)
			}
			for _, v := range s.path.Variables() {
				if _, ok := parent.def.ChildContext[v]; !ok {
					return nil, errs.NewConfigurationError("streams",
						"stream %q path needs context %q which parent %q does not provide", def.Name, v, parent.def.Name)
				}
			}
			s.parent = parent
			parent.children = append(parent.children, s)
		}

		r.streams = append(r.streams, s)
		r.byName[def.Name] = s
		entries = append(entries, schema.Entry{Stream: def.Name, Schema: def.Schema})
	}

	schemas, err := schema.NewRegistry(entries...)
	if err != nil {
		return nil, errs.NewConfigurationError("streams", "%v", err)
	}
	r.schemas = schemas
	return r, nil
}

// Default builds the registry of the Instagram streams
func Default() (*Registry, error) {
	return NewRegistry(Definitions()...)
}

func compile(def Definition) (*Stream, error) {
	if def.Name == "" {
		return nil, errs.NewConfigurationError("streams", "stream without a name")
	}

	path, err := ParseTemplate(def.Path)
	if err != nil {
		return nil, fmt.Errorf("stream %q: %w", def.Name, err)
	}
	records, err := extract.Compile(def.RecordsPath)
	if err != nil {
		return nil, fmt.Errorf("stream %q: %w", def.Name, err)
	}

	var next *extract.Selector
	if def.NextPagePath != "" {
		if next, err = extract.Compile(def.NextPagePath); err != nil {
			return nil, fmt.Errorf("stream %q: %w", def.Name, err)
		}
	}

	declared := make(map[string]bool, len(def.Schema.Properties))
	for _, name := range def.Schema.Names() {
		declared[name] = true
	}
	if len(def.PrimaryKeys) == 0 {
		return nil, errs.NewConfigurationError("streams", "stream %q has no primary key", def.Name)
	}
	for _, pk := range def.PrimaryKeys {
		if !declared[pk] {
			return nil, errs.NewConfigurationError("streams", "stream %q primary key %q is not in its schema", def.Name, pk)
		}
	}
	if def.ReplicationKey != "" && !declared[def.ReplicationKey] {
		return nil, errs.NewConfigurationError("streams", "stream %q replication key %q is not in its schema", def.Name, def.ReplicationKey)
	}
	for key, field := range def.ChildContext {
		if key == "" || field == "" {
			return nil, errs.NewConfigurationError("streams", "stream %q has an empty child context mapping", def.Name)
		}
	}

	return &Stream{
		def:     def,
		path:    path,
		query:   encodeParams(def.Params),
		records: records,
		next:    next,
		ctxKeys: sortedKeys(def.ChildContext),
	}, nil
}

// Streams returns every stream in declaration order
func (r *Registry) Streams() []*Stream {
	return append([]*Stream(nil), r.streams...)
}

// Roots returns the streams without a parent
func (r *Registry) Roots() []*Stream {
	return append([]*Stream(nil), r.roots...)
}

// Lookup finds a stream by name
func (r *Registry) Lookup(name string) (*Stream, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// Schemas returns the schema registry of all streams
func (r *Registry) Schemas() *schema.Registry {
	return r.schemas
}

// Names returns stream names in declaration order
func (r *Registry) Names() []string {
	names := make([]string, len(r.streams))
	for i, s := range r.streams {
		names[i] = s.def.Name
	}
	return names
}
