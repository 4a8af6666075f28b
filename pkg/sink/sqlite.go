package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"tap-instagram/pkg/logger"
	"tap-instagram/pkg/singer"
)

// SQLiteSink upserts records into a local SQLite database keyed by stream
// and primary key, so re-running a full refresh replaces rows instead of
// duplicating them.
type SQLiteSink struct {
	db     *sql.DB
	keys   map[string][]string
	logger logger.Logger
}

// NewSQLiteSink opens or creates the database at path
func NewSQLiteSink(path string, log logger.Logger) (*SQLiteSink, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite sink requires a database path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if log == nil {
		log = logger.GetLogger()
	}
	s := &SQLiteSink{db: db, keys: map[string][]string{}, logger: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteSink) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schemas (
		stream         TEXT PRIMARY KEY,
		schema         TEXT NOT NULL,
		key_properties TEXT NOT NULL,
		updated_at     TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS records (
		stream       TEXT NOT NULL,
		pk           TEXT NOT NULL,
		record       TEXT NOT NULL,
		extracted_at TEXT NOT NULL,
		PRIMARY KEY (stream, pk)
	);
	CREATE INDEX IF NOT EXISTS idx_records_extracted ON records(stream, extracted_at);

	CREATE TABLE IF NOT EXISTS state (
		id         INTEGER PRIMARY KEY CHECK (id = 1),
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteSink) WriteSchema(ctx context.Context, msg singer.SchemaMessage) error {
	schemaJSON, err := json.Marshal(msg.Schema)
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	keysJSON, err := json.Marshal(msg.KeyProperties)
	if err != nil {
		return fmt.Errorf("encode key properties: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO schemas (stream, schema, key_properties, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(stream) DO UPDATE SET
			schema = excluded.schema,
			key_properties = excluded.key_properties,
			updated_at = excluded.updated_at`,
		msg.Stream, string(schemaJSON), string(keysJSON), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("store schema for %s: %w", msg.Stream, err)
	}

	s.keys[msg.Stream] = append([]string(nil), msg.KeyProperties...)
	return nil
}

func (s *SQLiteSink) WriteRecord(ctx context.Context, msg singer.RecordMessage) error {
	keys, ok := s.keys[msg.Stream]
	if !ok {
		return fmt.Errorf("record for stream %s arrived before its schema", msg.Stream)
	}

	pk, err := primaryKey(msg.Record, keys)
	if err != nil {
		return fmt.Errorf("stream %s: %w", msg.Stream, err)
	}
	recordJSON, err := json.Marshal(msg.Record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (stream, pk, record, extracted_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(stream, pk) DO UPDATE SET
			record = excluded.record,
			extracted_at = excluded.extracted_at`,
		msg.Stream, pk, string(recordJSON), msg.TimeExtracted.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store %s record: %w", msg.Stream, err)
	}
	return nil
}

func (s *SQLiteSink) WriteState(ctx context.Context, msg singer.StateMessage) error {
	valueJSON, err := json.Marshal(msg.Value)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO state (id, value, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		string(valueJSON), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("store state: %w", err)
	}
	return nil
}

// Count returns the number of stored records of a stream
func (s *SQLiteSink) Count(ctx context.Context, stream string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE stream = ?`, stream).Scan(&n)
	return n, err
}

// Records returns the stored records of a stream ordered by primary key
func (s *SQLiteSink) Records(ctx context.Context, stream string) ([]map[string]interface{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM records WHERE stream = ? ORDER BY pk`, stream)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var rec map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode stored record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// Abort closes the database. Rows are upserted as they arrive, so rows from
// a failed run stay and are replaced by the next successful one.
func (s *SQLiteSink) Abort() error {
	return s.db.Close()
}

// primaryKey renders the key property values as a JSON array
func primaryKey(record map[string]interface{}, keys []string) (string, error) {
	if len(keys) == 0 {
		return "", fmt.Errorf("no key properties declared")
	}
	values := make([]interface{}, len(keys))
	for i, k := range keys {
		v, ok := record[k]
		if !ok || v == nil {
			return "", fmt.Errorf("record has no value for key property %q", k)
		}
		values[i] = v
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
