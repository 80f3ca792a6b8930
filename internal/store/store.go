// Package store exports evaluated sensor tables to CSV with one file per
// day, and reads those exports back.
package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/luki/smartfarm/internal/pipeline"
	"github.com/luki/smartfarm/internal/reading"
)

const (
	timeLayout = "2006-01-02T15:04:05"
	fileLayout = "2006-01-02"
)

// header is fixed so files stay appendable across filter changes.
var header = []string{"exported_at", "reading_time", "temperature", "humidity", "co2", "light_intensity", "breaches"}

// Exporter appends evaluated readings to <dir>/YYYY-MM-DD.csv:
//
//	exported_at,reading_time,temperature,humidity,co2,light_intensity,breaches
//
// Missing values are written as N/A. breaches lists the parameters over
// their threshold, separated by '|'.
type Exporter struct {
	dir     string
	current *os.File
	writer  *csv.Writer
	curDate string
}

// Row is a single line from an export file.
type Row struct {
	ExportedAt  time.Time
	ReadingTime string
	Reading     reading.SensorReading
	Breaches    []reading.Parameter
}

// New creates an exporter, creating dir if needed.
func New(dir string) (*Exporter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create export dir: %w", err)
	}
	return &Exporter{dir: dir}, nil
}

// Path returns the file a write at t goes to.
func (e *Exporter) Path(t time.Time) string {
	return filepath.Join(e.dir, t.Format(fileLayout)+".csv")
}

// Write evaluates readings against the snapshot's thresholds (all four
// parameters, whatever the display filter) and appends them to the file
// for t's day.
func (e *Exporter) Write(readings []reading.SensorReading, snap pipeline.Snapshot, t time.Time) error {
	dateStr := t.Format(fileLayout)

	if e.curDate != dateStr || e.current == nil {
		e.Close()
		f, err := os.OpenFile(e.Path(t), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return fmt.Errorf("stat %s: %w", f.Name(), err)
		}
		e.current = f
		e.writer = csv.NewWriter(f)
		e.curDate = dateStr

		if info.Size() == 0 {
			e.writer.Write(header)
		}
	}

	snap.Filter = pipeline.FilterAll
	table := pipeline.BuildTable(readings, snap)

	ts := t.Format(timeLayout)
	for _, row := range table.Rows {
		rec := []string{ts, row.Label}
		var breaches []string
		for _, c := range row.Cells {
			rec = append(rec, c.Value.String())
			if c.Breach {
				breaches = append(breaches, string(c.Parameter))
			}
		}
		rec = append(rec, strings.Join(breaches, "|"))
		e.writer.Write(rec)
	}
	e.writer.Flush()
	return e.writer.Error()
}

// Close flushes and closes the current file.
func (e *Exporter) Close() {
	if e.writer != nil {
		e.writer.Flush()
	}
	if e.current != nil {
		e.current.Close()
		e.current = nil
	}
}

// ListDays returns available export dates (newest first).
func ListDays(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var days []string
	for i := len(entries) - 1; i >= 0; i-- {
		name := entries[i].Name()
		if strings.HasSuffix(name, ".csv") {
			days = append(days, strings.TrimSuffix(name, ".csv"))
		}
	}
	return days, nil
}

// LoadFile reads all rows from an export file. Malformed lines are skipped.
func LoadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	params := reading.Parameters()
	var rows []Row
	for i, rec := range records {
		if i == 0 && len(rec) > 0 && rec[0] == header[0] {
			continue
		}
		if len(rec) < len(header) {
			continue
		}

		t, err := time.ParseInLocation(timeLayout, rec[0], time.Local)
		if err != nil {
			continue
		}

		row := Row{ExportedAt: t, ReadingTime: rec[1]}
		row.Reading.Timestamp = rec[1]
		for j, p := range params {
			row.Reading.Set(p, reading.ParseValue(rec[2+j]))
		}
		if rec[6] != "" {
			for _, name := range strings.Split(rec[6], "|") {
				if p, err := reading.ParseParameter(name); err == nil {
					row.Breaches = append(row.Breaches, p)
				}
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}
