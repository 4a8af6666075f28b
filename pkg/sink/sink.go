package sink

import (
	"context"
	"fmt"
	"io"
	"strings"

	"tap-instagram/pkg/config"
	"tap-instagram/pkg/logger"
	"tap-instagram/pkg/singer"
)

// Sink receives the tap's messages in emission order
type Sink interface {
	WriteSchema(ctx context.Context, msg singer.SchemaMessage) error
	WriteRecord(ctx context.Context, msg singer.RecordMessage) error
	WriteState(ctx context.Context, msg singer.StateMessage) error
	// Close flushes and releases resources; outputs become final only after Close
	Close() error
	// Abort releases resources after a failed run without finalising outputs
	Abort() error
}

// New builds the sink selected by the output configuration. stdout is where
// Singer messages go for the stdout sink.
func New(cfg config.OutputConfig, stdout io.Writer, log logger.Logger) (Sink, error) {
	switch strings.ToLower(cfg.Sink) {
	case "", config.SinkStdout:
		return NewStdoutSink(stdout), nil
	case config.SinkJSONL:
		return NewJSONLSink(cfg.Directory, log)
	case config.SinkSQLite:
		return NewSQLiteSink(cfg.SQLitePath, log)
	default:
		return nil, fmt.Errorf("unknown sink %q", cfg.Sink)
	}
}

// fileName turns a stream name such as "facebook pages" into a safe file stem
func fileName(stream string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(stream) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "stream"
	}
	return b.String()
}
