package stream

import (
	"net/url"
	"sort"

	errs "tap-instagram/pkg/errors"
	"tap-instagram/pkg/extract"
	"tap-instagram/pkg/schema"
)

// Fetchable is what the orchestrator needs from a stream node
type Fetchable interface {
	Name() string
	RequestPath(ctx Context) (string, error)
	RecordSelector() *extract.Selector
	ChildContext(rec Record) (Context, error)
}

// Stream is a compiled Definition linked into the stream graph
type Stream struct {
	def      Definition
	path     *PathTemplate
	query    string
	records  *extract.Selector
	next     *extract.Selector
	parent   *Stream
	children []*Stream
	ctxKeys  []string
}

var _ Fetchable = (*Stream)(nil)

func (s *Stream) Name() string                      { return s.def.Name }
func (s *Stream) PrimaryKeys() []string             { return append([]string(nil), s.def.PrimaryKeys...) }
func (s *Stream) ReplicationKey() string            { return s.def.ReplicationKey }
func (s *Stream) Schema() schema.Schema             { return s.def.Schema }
func (s *Stream) Parent() *Stream                   { return s.parent }
func (s *Stream) Children() []*Stream               { return append([]*Stream(nil), s.children...) }
func (s *Stream) PathTemplate() string              { return s.path.String() }
func (s *Stream) IsLeaf() bool                      { return len(s.children) == 0 }
func (s *Stream) ContextKeys() []string             { return append([]string(nil), s.ctxKeys...) }
func (s *Stream) RecordSelector() *extract.Selector { return s.records }

// NextPageSelector returns nil when the endpoint does not paginate
func (s *Stream) NextPageSelector() *extract.Selector {
	return s.next
}

// RequestPath expands the path template and appends the fixed query parameters
func (s *Stream) RequestPath(ctx Context) (string, error) {
	p, err := s.path.Expand(ctx)
	if err != nil {
		return "", err
	}
	if s.query != "" {
		p += "?" + s.query
	}
	return p, nil
}

// ChildContext derives the context seeding this stream's children from one record.
// Leaf streams return an empty context. A record without a required field is a
// configuration error because every child request would be malformed.
func (s *Stream) ChildContext(rec Record) (Context, error) {
	ctx := make(Context, len(s.def.ChildContext))
	for _, key := range s.ctxKeys {
		field := s.def.ChildContext[key]
		raw, ok := rec[field]
		if !ok || raw == nil {
			return nil, errs.NewConfigurationError("context",
				"stream %q record has no %q field for child context %q", s.def.Name, field, key)
		}
		v, err := contextValue(raw)
		if err != nil {
			return nil, errs.NewConfigurationError("context",
				"stream %q field %q cannot seed context %q: %v", s.def.Name, field, key, err)
		}
		ctx[key] = v
	}
	return ctx, nil
}

func encodeParams(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	return values.Encode()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
