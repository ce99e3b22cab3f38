// Package history persists candidate selections to a local SQLite
// database and exports them as schema-validated JSON.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema for the cantotype selection history.
const schema = `
CREATE TABLE IF NOT EXISTS selections (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    ts_ns       INTEGER NOT NULL,
    query       TEXT NOT NULL,
    retained    TEXT NOT NULL,
    candidate   TEXT NOT NULL,
    page_index  INTEGER NOT NULL,
    position    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_selections_ts ON selections(ts_ns);
CREATE INDEX IF NOT EXISTS idx_selections_query ON selections(query);
`

// exportSchema validates the JSON document Export produces.
const exportSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["version", "exported_at", "selections"],
  "properties": {
    "version": {"type": "integer", "minimum": 1},
    "exported_at": {"type": "string"},
    "selections": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["ts_ns", "query", "candidate", "page_index", "position"],
        "properties": {
          "ts_ns": {"type": "integer", "minimum": 0},
          "query": {"type": "string", "minLength": 1},
          "retained": {"type": "string"},
          "candidate": {"type": "string", "minLength": 1},
          "page_index": {"type": "integer", "minimum": 0},
          "position": {"type": "integer", "minimum": 1, "maximum": 6}
        }
      }
    }
  }
}`

// ExportVersion is the version field of exported documents.
const ExportVersion = 1

// Entry is one recorded selection.
type Entry struct {
	TimestampNs int64  `json:"ts_ns"`
	Query       string `json:"query"`
	Retained    string `json:"retained"`
	Candidate   string `json:"candidate"`
	PageIndex   int    `json:"page_index"`
	Position    int    `json:"position"`
}

// exportDoc is the document shape Export writes.
type exportDoc struct {
	Version    int     `json:"version"`
	ExportedAt string  `json:"exported_at"`
	Selections []Entry `json:"selections"`
}

// Store is the SQLite selection-history store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record inserts a selection. A zero TimestampNs is filled with now.
func (s *Store) Record(e Entry) error {
	if e.TimestampNs == 0 {
		e.TimestampNs = time.Now().UnixNano()
	}

	_, err := s.db.Exec(`
		INSERT INTO selections (ts_ns, query, retained, candidate, page_index, position)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.TimestampNs, e.Query, e.Retained, e.Candidate, e.PageIndex, e.Position,
	)
	if err != nil {
		return fmt.Errorf("insert selection: %w", err)
	}
	return nil
}

// Recent returns the most recent selections, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT ts_ns, query, retained, candidate, page_index, position
		FROM selections ORDER BY ts_ns DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query selections: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.TimestampNs, &e.Query, &e.Retained, &e.Candidate, &e.PageIndex, &e.Position); err != nil {
			return nil, fmt.Errorf("scan selection: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of recorded selections.
func (s *Store) Count() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM selections`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count selections: %w", err)
	}
	return n, nil
}

// Export writes the full history as a JSON document to w, validating the
// document against the export schema before emitting it.
func (s *Store) Export(w io.Writer) error {
	rows, err := s.db.Query(`
		SELECT ts_ns, query, retained, candidate, page_index, position
		FROM selections ORDER BY ts_ns ASC`)
	if err != nil {
		return fmt.Errorf("query selections: %w", err)
	}
	defer rows.Close()

	doc := exportDoc{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Selections: []Entry{},
	}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.TimestampNs, &e.Query, &e.Retained, &e.Candidate, &e.PageIndex, &e.Position); err != nil {
			return fmt.Errorf("scan selection: %w", err)
		}
		doc.Selections = append(doc.Selections, e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate selections: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}

	if err := ValidateExport(data); err != nil {
		return fmt.Errorf("export does not match schema: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// ValidateExport checks a JSON export document against the export schema.
func ValidateExport(data []byte) error {
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("unmarshal export: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("history-export.schema.json", strings.NewReader(exportSchema)); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := compiler.Compile("history-export.schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	return sch.Validate(instance)
}
