package sink

import (
	"context"
	"io"

	"tap-instagram/pkg/singer"
)

// StdoutSink writes Singer messages as JSON lines, normally to os.Stdout
type StdoutSink struct {
	w *singer.Writer
}

// NewStdoutSink wraps an output stream
func NewStdoutSink(out io.Writer) *StdoutSink {
	return &StdoutSink{w: singer.NewWriter(out)}
}

func (s *StdoutSink) WriteSchema(ctx context.Context, msg singer.SchemaMessage) error {
	return s.w.Write(msg)
}

func (s *StdoutSink) WriteRecord(ctx context.Context, msg singer.RecordMessage) error {
	return s.w.Write(msg)
}

func (s *StdoutSink) WriteState(ctx context.Context, msg singer.StateMessage) error {
	return s.w.Write(msg)
}

func (s *StdoutSink) Close() error {
	return nil
}

// Abort is a no-op; messages already written cannot be recalled
func (s *StdoutSink) Abort() error {
	return nil
}
