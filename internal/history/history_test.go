package history

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)

	entries := []Entry{
		{TimestampNs: 100, Query: "nei", Retained: "", Candidate: "你", PageIndex: 0, Position: 1},
		{TimestampNs: 200, Query: "hou", Retained: "你", Candidate: "好", PageIndex: 0, Position: 2},
		{TimestampNs: 300, Query: "maa", Retained: "你好", Candidate: "嗎", PageIndex: 1, Position: 1},
	}
	for _, e := range entries {
		if err := s.Record(e); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	got, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent returned %d entries, want 2", len(got))
	}
	if got[0].Candidate != "嗎" || got[1].Candidate != "好" {
		t.Errorf("wrong order: %q, %q", got[0].Candidate, got[1].Candidate)
	}
	if got[0].Retained != "你好" {
		t.Errorf("Retained = %q, want 你好", got[0].Retained)
	}

	n, err := s.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
}

func TestRecordFillsTimestamp(t *testing.T) {
	s := openTestStore(t)

	if err := s.Record(Entry{Query: "ngo", Candidate: "我", Position: 1}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got, err := s.Recent(1)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 1 || got[0].TimestampNs == 0 {
		t.Errorf("timestamp not filled: %+v", got)
	}
}

func TestExportValidatesAgainstSchema(t *testing.T) {
	s := openTestStore(t)

	if err := s.Record(Entry{TimestampNs: 42, Query: "m", Candidate: "唔", PageIndex: 0, Position: 1}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	var buf bytes.Buffer
	if err := s.Export(&buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var doc struct {
		Version    int     `json:"version"`
		Selections []Entry `json:"selections"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("export is not JSON: %v", err)
	}
	if doc.Version != ExportVersion {
		t.Errorf("version = %d, want %d", doc.Version, ExportVersion)
	}
	if len(doc.Selections) != 1 || doc.Selections[0].Candidate != "唔" {
		t.Errorf("unexpected selections: %+v", doc.Selections)
	}
}

func TestExportEmptyStore(t *testing.T) {
	s := openTestStore(t)

	var buf bytes.Buffer
	if err := s.Export(&buf); err != nil {
		t.Fatalf("Export failed on empty store: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"selections": []`)) {
		t.Errorf("empty export should contain an empty array: %s", buf.String())
	}
}

func TestValidateExportRejectsBadDocument(t *testing.T) {
	bad := []byte(`{"version": 1, "exported_at": "now", "selections": [{"query": "", "candidate": "x", "ts_ns": 1, "page_index": 0, "position": 9}]}`)
	if err := ValidateExport(bad); err == nil {
		t.Error("expected schema violation for empty query and position 9")
	}
}
