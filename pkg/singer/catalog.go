package singer

import (
	"tap-instagram/pkg/schema"
	"tap-instagram/pkg/stream"
)

// Catalog is the discovery document listing every stream the tap offers
type Catalog struct {
	Streams []CatalogEntry `json:"streams"`
}

// CatalogEntry describes one stream
type CatalogEntry struct {
	TapStreamID   string          `json:"tap_stream_id"`
	Stream        string          `json:"stream"`
	Schema        schema.Schema   `json:"schema"`
	KeyProperties []string        `json:"key_properties"`
	Metadata      []MetadataEntry `json:"metadata"`
}

// MetadataEntry annotates the stream (empty breadcrumb) or one of its properties
type MetadataEntry struct {
	Breadcrumb []string               `json:"breadcrumb"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// BuildCatalog describes the registry's streams. selected reports whether a
// stream will be synced; nil marks every stream selected.
func BuildCatalog(reg *stream.Registry, selected func(name string) bool) Catalog {
	catalog := Catalog{Streams: make([]CatalogEntry, 0, len(reg.Streams()))}

	for _, s := range reg.Streams() {
		isSelected := selected == nil || selected(s.Name())

		streamMeta := map[string]interface{}{
			"inclusion":                 "available",
			"selected":                  isSelected,
			"table-key-properties":      s.PrimaryKeys(),
			"forced-replication-method": "FULL_TABLE",
		}
		if parent := s.Parent(); parent != nil {
			streamMeta["parent-tap-stream-id"] = parent.Name()
		}

		metadata := []MetadataEntry{{Breadcrumb: []string{}, Metadata: streamMeta}}
		keys := map[string]bool{}
		for _, k := range s.PrimaryKeys() {
			keys[k] = true
		}
		for _, name := range s.Schema().Names() {
			inclusion := "available"
			if keys[name] {
				inclusion = "automatic"
			}
			metadata = append(metadata, MetadataEntry{
				Breadcrumb: []string{"properties", name},
				Metadata:   map[string]interface{}{"inclusion": inclusion},
			})
		}

		catalog.Streams = append(catalog.Streams, CatalogEntry{
			TapStreamID:   s.Name(),
			Stream:        s.Name(),
			Schema:        s.Schema(),
			KeyProperties: s.PrimaryKeys(),
			Metadata:      metadata,
		})
	}
	return catalog
}

// About is printed by --about
type About struct {
	Name         string                 `json:"name"`
	Description  string                 `json:"description"`
	Version      string                 `json:"version"`
	Capabilities []string               `json:"capabilities"`
	Settings     map[string]interface{} `json:"settings_schema"`
}

// NewAbout describes the tap and its minimal settings
func NewAbout(version string) About {
	return About{
		Name:         "tap-instagram",
		Description:  "Extracts Facebook pages, linked Instagram business accounts, media and stories from the Graph API",
		Version:      version,
		Capabilities: []string{"catalog", "discover", "state", "about"},
		Settings: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"access_token": map[string]interface{}{
					"type":        "string",
					"description": "Graph API user or page access token",
					"secret":      true,
				},
			},
			"required": []string{"access_token"},
		},
	}
}
