package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"tap-instagram/pkg/logger"
	"tap-instagram/pkg/singer"
)

type jsonlFile struct {
	path    string
	file    *os.File
	buf     *bufio.Writer
	enc     *json.Encoder
	records int
}

// JSONLSink writes one <stream>.jsonl file of records per stream, plus
// <stream>.schema.json and a final state.json. Record files are written to
// temporary names and renamed into place on Close; Abort removes them.
type JSONLSink struct {
	dir    string
	files  map[string]*jsonlFile
	state  interface{}
	logger logger.Logger
}

// NewJSONLSink creates the output directory if needed
func NewJSONLSink(dir string, log logger.Logger) (*JSONLSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("jsonl sink requires an output directory")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &JSONLSink{dir: dir, files: map[string]*jsonlFile{}, logger: log}, nil
}

// Dir returns the output directory
func (s *JSONLSink) Dir() string {
	return s.dir
}

func (s *JSONLSink) WriteSchema(ctx context.Context, msg singer.SchemaMessage) error {
	if _, err := s.open(msg.Stream); err != nil {
		return err
	}
	path := filepath.Join(s.dir, fileName(msg.Stream)+".schema.json")
	return writeFileAtomic(path, msg)
}

func (s *JSONLSink) WriteRecord(ctx context.Context, msg singer.RecordMessage) error {
	f, err := s.open(msg.Stream)
	if err != nil {
		return err
	}
	if err := f.enc.Encode(msg.Record); err != nil {
		return fmt.Errorf("failed to write %s record: %w", msg.Stream, err)
	}
	f.records++
	return nil
}

// WriteState keeps the latest state; it is written once on Close
func (s *JSONLSink) WriteState(ctx context.Context, msg singer.StateMessage) error {
	s.state = msg.Value
	return nil
}

func (s *JSONLSink) open(stream string) (*jsonlFile, error) {
	if f, ok := s.files[stream]; ok {
		return f, nil
	}

	path := filepath.Join(s.dir, fileName(stream)+".jsonl")
	file, err := os.Create(path + ".tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	buf := bufio.NewWriter(file)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)

	f := &jsonlFile{path: path, file: file, buf: buf, enc: enc}
	s.files[stream] = f
	return f, nil
}

// Close finalises every stream file. Errors are collected so one bad file
// does not leave the others as temporaries.
func (s *JSONLSink) Close() error {
	var errs []error
	for stream, f := range s.files {
		if err := f.finish(); err != nil {
			errs = append(errs, fmt.Errorf("stream %s: %w", stream, err))
			continue
		}
		s.logger.DebugWithFields("Stream file written", map[string]interface{}{
			"stream":  stream,
			"path":    f.path,
			"records": f.records,
		})
	}
	s.files = map[string]*jsonlFile{}

	if s.state != nil {
		if err := writeFileAtomic(filepath.Join(s.dir, "state.json"), s.state); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Abort removes the temporary record files and skips state.json, so a failed
// run never replaces the output of an earlier complete one.
func (s *JSONLSink) Abort() error {
	var errs []error
	for stream, f := range s.files {
		if err := f.discard(); err != nil {
			errs = append(errs, fmt.Errorf("stream %s: %w", stream, err))
			continue
		}
		s.logger.DebugWithFields("Stream file discarded", map[string]interface{}{
			"stream":  stream,
			"records": f.records,
		})
	}
	s.files = map[string]*jsonlFile{}
	s.state = nil
	return errors.Join(errs...)
}

func (f *jsonlFile) discard() error {
	f.file.Close()
	if err := os.Remove(f.path + ".tmp"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove temporary output file: %w", err)
	}
	return nil
}

func (f *jsonlFile) finish() error {
	tempPath := f.path + ".tmp"
	if err := f.buf.Flush(); err != nil {
		f.file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to flush output file: %w", err)
	}
	if err := f.file.Sync(); err != nil {
		f.file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync output file: %w", err)
	}
	if err := f.file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close output file: %w", err)
	}
	if err := os.Rename(tempPath, f.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename output file: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
