package tracelog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	// Registers the pure-Go "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

const sqliteTable = "trace_records"

const createTraceTable = `CREATE TABLE IF NOT EXISTS trace_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	record_id TEXT NOT NULL DEFAULT '',
	stage TEXT NOT NULL,
	fields_json TEXT NOT NULL,
	created_at TEXT NOT NULL
)`

// SQLiteSink stores trace records in a local SQLite database.
type SQLiteSink struct {
	path string
	db   *sql.DB
}

// NewSQLiteSink opens (or creates) the database at path and ensures the table exists.
func NewSQLiteSink(ctx context.Context, path string) (*SQLiteSink, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil && !os.IsExist(err) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createTraceTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}
	return &SQLiteSink{path: path, db: db}, nil
}

func (s *SQLiteSink) Name() string { return "sqlite:" + s.path }

func (s *SQLiteSink) Deliver(ctx context.Context, rec Record) error {
	fields, err := rec.fieldsJSON()
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	query, args, err := sq.Insert(sqliteTable).
		Columns("record_id", "stage", "fields_json", "created_at").
		Values(rec.ID, rec.Stage, string(fields), ts.Format(time.RFC3339Nano)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Records reads stored records back in insertion order, optionally filtered by stage.
func (s *SQLiteSink) Records(ctx context.Context, stage string) ([]Record, error) {
	builder := sq.Select("record_id", "stage", "fields_json", "created_at").
		From(sqliteTable).
		OrderBy("id ASC")
	if stage != "" {
		builder = builder.Where(sq.Eq{"stage": stage})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec       Record
			fieldsRaw string
			created   string
		)
		if err := rows.Scan(&rec.ID, &rec.Stage, &fieldsRaw, &created); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		fields, err := decodeFields(fieldsRaw)
		if err != nil {
			return nil, err
		}
		rec.Fields = fields
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			rec.Timestamp = ts
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteSink) Close(context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// decodeFields restores the object written by fieldsJSON, keeping key order.
func decodeFields(raw string) ([]Field, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("decode fields: expected object")
	}
	var fields []Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode fields: %w", err)
		}
		key, _ := keyTok.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode field %q: %w", key, err)
		}
		fields = append(fields, Field{Key: key, Value: v})
	}
	return fields, nil
}
