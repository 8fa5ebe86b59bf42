package sink

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/myorg/cyclesim/cyclesim/internal/engine"
)

func TestCSVHistorySink_WritesSortedColumnsExcludingMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	s, err := NewCSVHistorySink(CSVConfig{Path: path})
	if err != nil {
		t.Fatalf("NewCSVHistorySink: %v", err)
	}

	snap := engine.Snapshot{
		Values: map[string]float64{
			"v1":          1.5,
			"tank1.level": 0.25,
			"cycleCount":  7,
		},
		CycleCount: 1,
		NeedSample: true,
		SimTime:    10,
	}
	wall := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := s.Record(context.Background(), snap, wall, true); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening written file: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 (header + one data row)", len(rows))
	}

	wantHeader := []string{"timeStamp", "tank1.level", "v1"}
	for i, col := range wantHeader {
		if rows[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], col)
		}
	}
	if rows[1][1] != "0.25" {
		t.Errorf("tank1.level column = %q, want 0.25", rows[1][1])
	}
	if rows[1][2] != "1.5" {
		t.Errorf("v1 column = %q, want 1.5", rows[1][2])
	}
}

func TestCSVHistorySink_SkipsUnsampledCycles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	s, err := NewCSVHistorySink(CSVConfig{Path: path})
	if err != nil {
		t.Fatalf("NewCSVHistorySink: %v", err)
	}

	snap := engine.Snapshot{Values: map[string]float64{"v1": 1}}
	if err := s.Record(context.Background(), snap, time.Now(), false); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if s.Written() != 0 {
		t.Errorf("Written() = %d, want 0 after an unsampled cycle", s.Written())
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestCSVHistorySink_TwoRowHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	s, err := NewCSVHistorySink(CSVConfig{Path: path, HeaderRows: 2})
	if err != nil {
		t.Fatalf("NewCSVHistorySink: %v", err)
	}
	snap := engine.Snapshot{Values: map[string]float64{"v1": 1}}
	if err := s.Record(context.Background(), snap, time.Now(), true); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening written file: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3 (two header rows + one data row)", len(rows))
	}
}

func TestNewCSVHistorySinkFromTemplate_NilTemplateUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	s, err := NewCSVHistorySinkFromTemplate(path, nil)
	if err != nil {
		t.Fatalf("NewCSVHistorySinkFromTemplate: %v", err)
	}
	if s.cfg.TimeColumnName != "timeStamp" {
		t.Errorf("TimeColumnName = %q, want default timeStamp", s.cfg.TimeColumnName)
	}
	s.Close()
}
