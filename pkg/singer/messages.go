package singer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"tap-instagram/pkg/schema"
)

// MessageType is the "type" field of a Singer message
type MessageType string

const (
	TypeSchema MessageType = "SCHEMA"
	TypeRecord MessageType = "RECORD"
	TypeState  MessageType = "STATE"
)

// SchemaMessage declares a stream's layout before any of its records
type SchemaMessage struct {
	Type               MessageType   `json:"type"`
	Stream             string        `json:"stream"`
	Schema             schema.Schema `json:"schema"`
	KeyProperties      []string      `json:"key_properties"`
	BookmarkProperties []string      `json:"bookmark_properties,omitempty"`
}

// RecordMessage carries one extracted record
type RecordMessage struct {
	Type          MessageType            `json:"type"`
	Stream        string                 `json:"stream"`
	Record        map[string]interface{} `json:"record"`
	TimeExtracted time.Time              `json:"time_extracted"`
}

// StateMessage carries the sync state a target should persist
type StateMessage struct {
	Type  MessageType `json:"type"`
	Value interface{} `json:"value"`
}

// NewSchemaMessage builds a SCHEMA message
func NewSchemaMessage(stream string, s schema.Schema, keys []string, bookmarks []string) SchemaMessage {
	if keys == nil {
		keys = []string{}
	}
	return SchemaMessage{
		Type:               TypeSchema,
		Stream:             stream,
		Schema:             s,
		KeyProperties:      keys,
		BookmarkProperties: bookmarks,
	}
}

// NewRecordMessage builds a RECORD message stamped in UTC
func NewRecordMessage(stream string, record map[string]interface{}, extracted time.Time) RecordMessage {
	return RecordMessage{
		Type:          TypeRecord,
		Stream:        stream,
		Record:        record,
		TimeExtracted: extracted.UTC(),
	}
}

// NewStateMessage builds a STATE message
func NewStateMessage(value interface{}) StateMessage {
	return StateMessage{Type: TypeState, Value: value}
}

// Writer writes messages as JSON lines. Each message is flushed as soon as
// it is written so a downstream target sees records without delay.
type Writer struct {
	mu  sync.Mutex
	buf *bufio.Writer
	enc *json.Encoder
}

// NewWriter wraps an output stream, normally os.Stdout
func NewWriter(w io.Writer) *Writer {
	buf := bufio.NewWriter(w)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &Writer{buf: buf, enc: enc}
}

// Write encodes one message followed by a newline
func (w *Writer) Write(msg interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.enc.Encode(msg); err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	return w.buf.Flush()
}
