package stream

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "tap-instagram/pkg/errors"
	"tap-instagram/pkg/schema"
)

func defaultRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := Default()
	require.NoError(t, err)
	return reg
}

func lookup(t *testing.T, reg *Registry, name string) *Stream {
	t.Helper()
	s, ok := reg.Lookup(name)
	require.True(t, ok, name)
	return s
}

func TestDefaultGraph(t *testing.T) {
	reg := defaultRegistry(t)

	assert.Equal(t, []string{PagesStream, AccountsStream, MediaStream, StoriesStream}, reg.Names())

	roots := reg.Roots()
	require.Len(t, roots, 1)
	assert.Equal(t, PagesStream, roots[0].Name())

	accounts := lookup(t, reg, AccountsStream)
	assert.Equal(t, PagesStream, accounts.Parent().Name())

	var children []string
	for _, c := range accounts.Children() {
		children = append(children, c.Name())
	}
	assert.Equal(t, []string{MediaStream, StoriesStream}, children)

	for _, s := range reg.Streams() {
		assert.Equal(t, []string{"id"}, s.PrimaryKeys(), s.Name())
		assert.Empty(t, s.ReplicationKey(), s.Name())
	}
	assert.True(t, lookup(t, reg, MediaStream).IsLeaf())
	assert.True(t, lookup(t, reg, StoriesStream).IsLeaf())
}

func TestChildContextPages(t *testing.T) {
	pages := lookup(t, defaultRegistry(t), PagesStream)

	ctx, err := pages.ChildContext(Record{"id": "42", "name": "My Page", "category": "Brand"})
	require.NoError(t, err)
	assert.Equal(t, Context{"account_id": "42"}, ctx)
}

func TestChildContextAccounts(t *testing.T) {
	accounts := lookup(t, defaultRegistry(t), AccountsStream)

	ctx, err := accounts.ChildContext(Record{"id": "ig_7"})
	require.NoError(t, err)
	assert.Equal(t, Context{"instagram_id": "ig_7"}, ctx)
}

func TestChildContextNumericID(t *testing.T) {
	pages := lookup(t, defaultRegistry(t), PagesStream)

	ctx, err := pages.ChildContext(Record{"id": json.Number("1784")})
	require.NoError(t, err)
	assert.Equal(t, Context{"account_id": "1784"}, ctx)
}

func TestChildContextMissingField(t *testing.T) {
	pages := lookup(t, defaultRegistry(t), PagesStream)

	_, err := pages.ChildContext(Record{"name": "no id"})
	require.Error(t, err)
	assert.True(t, errs.IsConfiguration(err))

	_, err = pages.ChildContext(Record{"id": map[string]interface{}{"nested": true}})
	assert.True(t, errs.IsConfiguration(err))
}

func TestChildContextLeafIsEmpty(t *testing.T) {
	media := lookup(t, defaultRegistry(t), MediaStream)

	ctx, err := media.ChildContext(Record{"id": "m1"})
	require.NoError(t, err)
	assert.Empty(t, ctx)
}

func TestRequestPath(t *testing.T) {
	reg := defaultRegistry(t)

	path, err := lookup(t, reg, PagesStream).RequestPath(nil)
	require.NoError(t, err)
	assert.Equal(t, "/me/accounts", path)

	path, err = lookup(t, reg, AccountsStream).RequestPath(Context{"account_id": "42"})
	require.NoError(t, err)
	assert.Equal(t, "/42?fields=instagram_business_account", path)

	path, err = lookup(t, reg, MediaStream).RequestPath(Context{"instagram_id": "ig_7"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(path, "/ig_7?"), path)

	u, err := url.Parse(path)
	require.NoError(t, err)
	assert.Equal(t, mediaFields, u.Query().Get("fields"))
}

func TestRequestPathMissingContext(t *testing.T) {
	stories := lookup(t, defaultRegistry(t), StoriesStream)

	_, err := stories.RequestPath(Context{"account_id": "42"})
	require.Error(t, err)
	assert.True(t, errs.IsConfiguration(err))
	assert.Contains(t, err.Error(), "instagram_id")
}

func TestSelectors(t *testing.T) {
	reg := defaultRegistry(t)

	assert.Equal(t, "$.data[*]", lookup(t, reg, PagesStream).RecordSelector().String())
	assert.Equal(t, "$.instagram_business_account", lookup(t, reg, AccountsStream).RecordSelector().String())
	assert.Equal(t, "$.media.data[*]", lookup(t, reg, MediaStream).RecordSelector().String())
	assert.Equal(t, "$.stories.data[*]", lookup(t, reg, StoriesStream).RecordSelector().String())

	assert.Nil(t, lookup(t, reg, AccountsStream).NextPageSelector())
	assert.Equal(t, "$.media.paging.next", lookup(t, reg, MediaStream).NextPageSelector().String())
}

func TestSchemasRegistered(t *testing.T) {
	reg := defaultRegistry(t)

	fields, err := reg.Schemas().Describe(MediaStream)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"id", "caption", "media_type", "like_count", "comments_count", "media_url", "comments", "media_product_type", "insights"},
		schema.New(fields...).Names())

	fields, err = reg.Schemas().Describe(StoriesStream)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"id", "caption", "media_type", "media_url", "media_product_type", "insights"},
		schema.New(fields...).Names())
}

func TestNewRegistryValidation(t *testing.T) {
	idSchema := schema.New(schema.Prop("id", schema.String()))
	root := Definition{
		Name: "root", Path: "/root", RecordsPath: "$.data[*]", PrimaryKeys: []string{"id"},
		Schema: idSchema, ChildContext: map[string]string{"root_id": "id"},
	}

	tests := []struct {
		name string
		defs []Definition
		want string
	}{
		{
			name: "unknown parent",
			defs: []Definition{{Name: "child", Path: "/x", RecordsPath: "$", PrimaryKeys: []string{"id"}, Schema: idSchema, Parent: "ghost"}},
			want: "unknown parent",
		},
		{
			name: "missing context key",
			defs: []Definition{root, {Name: "child", Path: "/{other_id}", RecordsPath: "$", PrimaryKeys: []string{"id"}, Schema: idSchema, Parent: "root"}},
			want: "does not provide",
		},
		{
			name: "root with placeholder",
			defs: []Definition{{Name: "r", Path: "/{id}", RecordsPath: "$", PrimaryKeys: []string{"id"}, Schema: idSchema}},
			want: "has no parent",
		},
		{
			name: "bad selector",
			defs: []Definition{{Name: "r", Path: "/r", RecordsPath: "data", PrimaryKeys: []string{"id"}, Schema: idSchema}},
			want: "invalid selector",
		},
		{
			name: "bad template",
			defs: []Definition{{Name: "r", Path: "/{unclosed", RecordsPath: "$", PrimaryKeys: []string{"id"}, Schema: idSchema}},
			want: "unterminated placeholder",
		},
		{
			name: "primary key not in schema",
			defs: []Definition{{Name: "r", Path: "/r", RecordsPath: "$", PrimaryKeys: []string{"uuid"}, Schema: idSchema}},
			want: "primary key",
		},
		{
			name: "duplicate",
			defs: []Definition{root, root},
			want: "duplicate stream",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.defs...)
			require.Error(t, err)
			assert.True(t, errs.IsConfiguration(err), "expected configuration error, got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseTemplate(t *testing.T) {
	tpl, err := ParseTemplate("/{a}/x/{b_2}/{a}")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b_2"}, tpl.Variables())

	got, err := tpl.Expand(Context{"a": "1", "b_2": "two words"})
	require.NoError(t, err)
	assert.Equal(t, "/1/x/two%20words/1", got)

	for _, bad := range []string{"me/accounts", "/}", "/{}", "/{9lives}", "/{a b}"} {
		_, err := ParseTemplate(bad)
		assert.Error(t, err, bad)
	}
}

func TestContextString(t *testing.T) {
	assert.Equal(t, "{a=1,b=2}", Context{"b": "2", "a": "1"}.String())

	orig := Context{"a": "1"}
	clone := orig.Clone()
	clone["a"] = "2"
	assert.Equal(t, "1", orig["a"])
}
