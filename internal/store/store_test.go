package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/luki/smartfarm/internal/pipeline"
	"github.com/luki/smartfarm/internal/reading"
	"github.com/luki/smartfarm/internal/threshold"
)

func TestExporterRoundTrip(t *testing.T) {
	dir := t.TempDir()

	ex, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer ex.Close()

	now := time.Date(2024, 12, 1, 14, 30, 0, 0, time.Local)
	readings := []reading.SensorReading{
		{Timestamp: "2024-12-01 14:00:00", Temperature: reading.Num(35), Humidity: reading.Num(50), CO2: reading.Num(300), LightIntensity: reading.Num(100)},
		{Timestamp: "2024-12-01 14:10:00", Temperature: reading.Num(22.5), Humidity: reading.Num(65), LightIntensity: reading.Num(600)},
	}
	// The display filter must not narrow the export.
	snap := pipeline.Snapshot{Thresholds: threshold.Defaults(), Filter: "humidity"}

	if err := ex.Write(readings, snap, now); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := ex.Write(readings[:1], snap, now.Add(time.Minute)); err != nil {
		t.Fatalf("second Write: %v", err)
	}
	ex.Close()

	loaded, err := LoadFile(filepath.Join(dir, "2024-12-01.csv"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(loaded))
	}

	first := loaded[0]
	if first.ReadingTime != "2024-12-01 14:00:00" || first.Reading.Temperature.Num != 35 {
		t.Errorf("first row: %+v", first)
	}
	if len(first.Breaches) != 1 || first.Breaches[0] != reading.Temperature {
		t.Errorf("first row breaches: %v", first.Breaches)
	}

	second := loaded[1]
	if second.Reading.CO2.Valid {
		t.Errorf("missing co2 should load as missing, got %v", second.Reading.CO2)
	}
	if len(second.Breaches) != 2 || second.Breaches[0] != reading.Humidity || second.Breaches[1] != reading.LightIntensity {
		t.Errorf("second row breaches: %v", second.Breaches)
	}
	if !loaded[2].ExportedAt.Equal(now.Add(time.Minute)) {
		t.Errorf("third row exported_at: %v", loaded[2].ExportedAt)
	}
}

func TestExporterRotatesDaily(t *testing.T) {
	dir := t.TempDir()
	ex, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer ex.Close()

	snap := pipeline.Snapshot{Thresholds: threshold.Defaults(), Filter: pipeline.FilterAll}
	r := []reading.SensorReading{{Timestamp: "x", Temperature: reading.Num(20)}}
	day1 := time.Date(2024, 12, 1, 23, 59, 0, 0, time.Local)

	if err := ex.Write(r, snap, day1); err != nil {
		t.Fatal(err)
	}
	if err := ex.Write(r, snap, day1.Add(2*time.Minute)); err != nil {
		t.Fatal(err)
	}
	ex.Close()

	days, err := ListDays(dir)
	if err != nil {
		t.Fatalf("ListDays: %v", err)
	}
	if len(days) != 2 || days[0] != "2024-12-02" || days[1] != "2024-12-01" {
		t.Errorf("days = %v", days)
	}

	b, err := os.ReadFile(ex.Path(day1))
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("export:\n%s", b)
}

func TestExporterReopenWritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	snap := pipeline.Snapshot{Thresholds: threshold.Defaults(), Filter: pipeline.FilterAll}
	r := []reading.SensorReading{{Timestamp: "2024-12-01 08:00:00", Temperature: reading.Num(20)}}
	now := time.Date(2024, 12, 1, 9, 0, 0, 0, time.Local)

	for i := 0; i < 2; i++ {
		ex, err := New(dir)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if err := ex.Write(r, snap, now.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
		ex.Close()
	}

	b, err := os.ReadFile(filepath.Join(dir, "2024-12-01.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(b), strings.Join(header, ",")); n != 1 {
		t.Errorf("header written %d times:\n%s", n, b)
	}
	loaded, err := LoadFile(filepath.Join(dir, "2024-12-01.csv"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(loaded) != 2 {
		t.Errorf("expected 2 rows, got %d", len(loaded))
	}
}

func TestExporterWriteFailsWhenDirGone(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	ex, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer ex.Close()
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	snap := pipeline.Snapshot{Thresholds: threshold.Defaults(), Filter: pipeline.FilterAll}
	if err := ex.Write(nil, snap, time.Now()); err == nil {
		t.Error("expected an error writing into a removed directory")
	}
}
