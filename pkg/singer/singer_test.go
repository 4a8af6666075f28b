package singer

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tap-instagram/pkg/schema"
	"tap-instagram/pkg/stream"
)

func TestWriterEmitsJSONLines(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out)

	s := schema.New(schema.Prop("id", schema.String()))
	require.NoError(t, w.Write(NewSchemaMessage("media", s, []string{"id"}, nil)))
	require.NoError(t, w.Write(NewRecordMessage("media",
		map[string]interface{}{"id": "m1", "like_count": json.Number("7"), "media_url": "https://x/?a=1&b=2"},
		time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("CEST", 2*3600)))))
	require.NoError(t, w.Write(NewStateMessage(map[string]interface{}{"bookmarks": map[string]interface{}{}})))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)

	assert.Equal(t,
		`{"type":"SCHEMA","stream":"media","schema":{"type":"object","properties":{"id":{"type":["string","null"]}}},"key_properties":["id"]}`,
		lines[0])
	assert.Equal(t,
		`{"type":"RECORD","stream":"media","record":{"id":"m1","like_count":7,"media_url":"https://x/?a=1&b=2"},"time_extracted":"2024-05-01T08:00:00Z"}`,
		lines[1])
	assert.Equal(t, `{"type":"STATE","value":{"bookmarks":{}}}`, lines[2])
}

func TestSchemaMessageEmptyKeys(t *testing.T) {
	msg := NewSchemaMessage("x", schema.New(), nil, nil)
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"key_properties":[]`)
}

func TestBuildCatalog(t *testing.T) {
	reg, err := stream.Default()
	require.NoError(t, err)

	catalog := BuildCatalog(reg, func(name string) bool { return name == stream.MediaStream })
	require.Len(t, catalog.Streams, 4)

	names := make([]string, 0, 4)
	for _, entry := range catalog.Streams {
		names = append(names, entry.TapStreamID)
		assert.Equal(t, []string{"id"}, entry.KeyProperties)
	}
	assert.Equal(t, []string{"facebook pages", "instagram accounts", "media", "stories"}, names)

	media := catalog.Streams[2]
	assert.Equal(t, true, media.Metadata[0].Metadata["selected"])
	assert.Equal(t, "instagram accounts", media.Metadata[0].Metadata["parent-tap-stream-id"])
	assert.Equal(t, []string{"properties", "id"}, media.Metadata[1].Breadcrumb)
	assert.Equal(t, "automatic", media.Metadata[1].Metadata["inclusion"])

	pages := catalog.Streams[0]
	assert.Equal(t, false, pages.Metadata[0].Metadata["selected"])
	_, hasParent := pages.Metadata[0].Metadata["parent-tap-stream-id"]
	assert.False(t, hasParent)

	raw, err := json.Marshal(catalog)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"tap_stream_id":"facebook pages"`)
}

func TestNewAbout(t *testing.T) {
	about := NewAbout("1.2.3")
	raw, err := json.Marshal(about)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"required":["access_token"]`)
	assert.Contains(t, about.Capabilities, "discover")
}
