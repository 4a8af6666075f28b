package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commentsSchema() Schema {
	return New(
		Prop("id", String()),
		Prop("like_count", Integer()),
		Prop("comments", Object(
			Prop("data", ArrayOf(Object(
				Prop("id", String()),
				Prop("timestamp", DateTime()),
				Prop("text", String()),
			))),
		)),
	)
}

func TestSchemaMarshalPreservesOrder(t *testing.T) {
	s := New(Prop("zeta", String()), Prop("alpha", Integer()), Prop("mid", DateTime()))

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t,
		`{"type":"object","properties":{"zeta":{"type":["string","null"]},"alpha":{"type":["integer","null"]},"mid":{"type":["string","null"],"format":"date-time"}}}`,
		string(raw))
}

func TestSchemaMarshalNested(t *testing.T) {
	raw, err := json.Marshal(commentsSchema())
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	props := decoded["properties"].(map[string]interface{})
	comments := props["comments"].(map[string]interface{})
	data := comments["properties"].(map[string]interface{})["data"].(map[string]interface{})
	items := data["items"].(map[string]interface{})
	ts := items["properties"].(map[string]interface{})["timestamp"].(map[string]interface{})

	assert.Equal(t, "date-time", ts["format"])
	assert.Equal(t, []interface{}{"array", "null"}, data["type"])
}

func TestSchemaValidate(t *testing.T) {
	assert.NoError(t, commentsSchema().Validate())

	dup := New(Prop("id", String()), Prop("id", Integer()))
	assert.ErrorContains(t, dup.Validate(), "duplicate property")

	noItems := New(Prop("tags", Type{Kind: KindArray}))
	assert.ErrorContains(t, noItems.Validate(), "no item type")

	unknown := New(Prop("x", Type{Kind: "float"}))
	assert.ErrorContains(t, unknown.Validate(), "unknown kind")
}

func TestRegistryDescribe(t *testing.T) {
	reg, err := NewRegistry(
		Entry{Stream: "media", Schema: commentsSchema()},
		Entry{Stream: "accounts", Schema: New(Prop("id", String()))},
	)
	require.NoError(t, err)

	fields, err := reg.Describe("media")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "like_count", "comments"}, New(fields...).Names())
	assert.Equal(t, []string{"media", "accounts"}, reg.Streams())

	_, err = reg.Describe("unknown")
	assert.Error(t, err)
}

func TestRegistryDescribeReturnsCopy(t *testing.T) {
	reg, err := NewRegistry(Entry{Stream: "accounts", Schema: New(Prop("id", String()))})
	require.NoError(t, err)

	fields, _ := reg.Describe("accounts")
	fields[0].Name = "mutated"

	again, _ := reg.Describe("accounts")
	assert.Equal(t, "id", again[0].Name)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(
		Entry{Stream: "media", Schema: New()},
		Entry{Stream: "media", Schema: New()},
	)
	assert.Error(t, err)
}

func TestCheckerIsLenient(t *testing.T) {
	checker, err := NewChecker(commentsSchema())
	require.NoError(t, err)

	issues, err := checker.Check(map[string]interface{}{
		"id":         "m1",
		"like_count": json.Number("3"),
		"unknown":    true,
	})
	require.NoError(t, err)
	assert.Empty(t, issues, "missing and unknown fields are tolerated")

	issues, err = checker.Check(map[string]interface{}{"id": "m1", "like_count": "lots"})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0], "like_count")
}
