// CSVHistorySink substitutes for the spec's DuckDB history sink: no
// DuckDB Go driver exists anywhere in the retrieved example pack. It
// reuses the teacher's buffered encoding/csv writer idiom from
// internal/timeline/csv_writer.go (explicit Flush/Close, written counter)
// and export_templates/csv_exporter.py's metadata-field exclusion rule
// and two-row-header option, adapted from a batch exporter into a
// streaming per-cycle sink.
package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/myorg/cyclesim/cyclesim/internal/config"
	"github.com/myorg/cyclesim/cyclesim/internal/engine"
)

// metadataFields are the reserved snapshot fields never written as data
// columns, mirroring csv_exporter.py's METADATA_FIELDS.
var metadataFields = map[string]bool{
	"cycleCount": true,
	"needSample": true,
	"timeStr":    true,
	"simTime":    true,
	"execRatio":  true,
}

// CSVConfig configures a CSVHistorySink.
type CSVConfig struct {
	Path           string
	TimeColumnName string
	TimeFormat     string
	HeaderRows     int
	Uppercase      bool
}

func (c *CSVConfig) setDefaults() {
	if c.TimeColumnName == "" {
		c.TimeColumnName = "timeStamp"
	}
	if c.TimeFormat == "" {
		c.TimeFormat = "2006/01/02 15:04:05"
	}
	if c.HeaderRows == 0 {
		c.HeaderRows = 1
	}
}

// CSVHistorySink writes every sampled snapshot as one CSV row, flushing
// on Close. The column set is fixed from the first sampled snapshot's own
// keys, sorted for a stable, reproducible column order.
type CSVHistorySink struct {
	mu      sync.Mutex
	file    *os.File
	writer  *csv.Writer
	cfg     CSVConfig
	columns []string
	written int64
}

// NewCSVHistorySink creates (truncating) the file at cfg.Path.
func NewCSVHistorySink(cfg CSVConfig) (*CSVHistorySink, error) {
	cfg.setDefaults()
	f, err := os.Create(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("creating history CSV: %w", err)
	}
	return &CSVHistorySink{file: f, writer: csv.NewWriter(f), cfg: cfg}, nil
}

// NewCSVHistorySinkFromTemplate builds a CSVHistorySink from a parsed
// program's optional export_template section, falling back to CSVConfig's
// defaults when tmpl is nil.
func NewCSVHistorySinkFromTemplate(path string, tmpl *config.ExportTemplate) (*CSVHistorySink, error) {
	cfg := CSVConfig{Path: path}
	if tmpl != nil {
		cfg.TimeColumnName = tmpl.TimeColumnName
		cfg.TimeFormat = tmpl.TimeFormat
		cfg.HeaderRows = tmpl.HeaderRows
		cfg.Uppercase = tmpl.UppercaseColumnNames
	}
	return NewCSVHistorySink(cfg)
}

// Record writes one CSV row for snap, using wallClock for the time
// column. Only called for sampled cycles; a defensive check against
// needSample still applies in case a caller wires this sink directly
// instead of through an Engine. ctx is checked once up front: a write
// to a local file never blocks long enough to need checking mid-call,
// but a caller whose context is already canceled by the time its
// worker gets to this record should not still perform the write.
func (s *CSVHistorySink) Record(ctx context.Context, snap engine.Snapshot, wallClock time.Time, needSample bool) error {
	if !needSample {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("history record canceled: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.columns == nil {
		s.columns = dataColumns(snap.Values)
		if err := s.writeHeader(); err != nil {
			return err
		}
	}

	row := make([]string, 0, len(s.columns)+1)
	row = append(row, wallClock.Format(s.cfg.TimeFormat))
	for _, col := range s.columns {
		row = append(row, strconv.FormatFloat(snap.Values[col], 'f', -1, 64))
	}
	if err := s.writer.Write(row); err != nil {
		return fmt.Errorf("writing history row: %w", err)
	}
	s.written++
	return nil
}

func (s *CSVHistorySink) writeHeader() error {
	header := append([]string{s.cfg.TimeColumnName}, s.columns...)
	if s.cfg.Uppercase {
		for i, h := range header {
			header[i] = strings.ToUpper(h)
		}
	}
	if err := s.writer.Write(header); err != nil {
		return fmt.Errorf("writing history header: %w", err)
	}

	if s.cfg.HeaderRows == 2 {
		desc := make([]string, len(header))
		desc[0] = "time"
		for i := range s.columns {
			desc[i+1] = "value"
		}
		if err := s.writer.Write(desc); err != nil {
			return fmt.Errorf("writing history description row: %w", err)
		}
	}

	s.writer.Flush()
	return s.writer.Error()
}

func dataColumns(values map[string]float64) []string {
	cols := make([]string, 0, len(values))
	for k := range values {
		if !metadataFields[k] {
			cols = append(cols, k)
		}
	}
	sort.Strings(cols)
	return cols
}

// Written returns the number of rows written so far.
func (s *CSVHistorySink) Written() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Close flushes and closes the underlying file.
func (s *CSVHistorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
