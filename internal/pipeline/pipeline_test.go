package pipeline

import (
	"strings"
	"testing"

	"github.com/luki/smartfarm/internal/reading"
	"github.com/luki/smartfarm/internal/threshold"
)

func temps(vals ...float64) []reading.SensorReading {
	out := make([]reading.SensorReading, len(vals))
	for i, v := range vals {
		out[i] = reading.SensorReading{Timestamp: string(rune('a' + i)), Temperature: reading.Num(v)}
	}
	return out
}

func snapshot(f Filter) Snapshot {
	return NewState(threshold.Defaults(), f).Snapshot()
}

func TestEvaluateBreachBoundary(t *testing.T) {
	snap := snapshot(Filter(reading.Temperature))
	for _, v := range []float64{-10, 0, 29.99, 30} {
		if EvaluateBreach(snap, reading.Temperature, reading.Num(v)) {
			t.Errorf("%v should not breach threshold 30", v)
		}
	}
	if !EvaluateBreach(snap, reading.Temperature, reading.Num(30.01)) {
		t.Error("30.01 should breach threshold 30")
	}
	if EvaluateBreach(snap, reading.Temperature, reading.Value{}) {
		t.Error("missing value must not breach")
	}
}

func TestComputeAlertEmpty(t *testing.T) {
	for _, f := range []Filter{FilterAll, Filter(reading.Temperature)} {
		if msg, ok := ComputeAlert(nil, snapshot(f)); ok || msg != "" {
			t.Errorf("filter %s: got (%q, %v), want no alert", f, msg, ok)
		}
	}
}

func TestComputeAlertLatestOnly(t *testing.T) {
	snap := snapshot(Filter(reading.Temperature))

	msg, ok := ComputeAlert(temps(20, 40), snap)
	if !ok {
		t.Fatal("expected alert when last reading is 40")
	}
	want := "Warning: Latest temperature value (40) exceeds the threshold of 30!"
	if msg != want {
		t.Errorf("message: got %q, want %q", msg, want)
	}

	if msg, ok := ComputeAlert(temps(40, 20), snap); ok {
		t.Errorf("historical breach raised alert: %q", msg)
	}
}

func TestComputeAlertAllCombined(t *testing.T) {
	readings := []reading.SensorReading{{
		Timestamp:      "t",
		Temperature:    reading.Num(35),
		Humidity:       reading.Num(50),
		CO2:            reading.Num(1200),
		LightIntensity: reading.Num(100),
	}}
	msg, ok := ComputeAlert(readings, snapshot(FilterAll))
	if !ok {
		t.Fatal("expected combined alert")
	}
	if !strings.Contains(msg, "temperature, co2") {
		t.Errorf("combined message should name temperature and co2 in order: %q", msg)
	}
	if strings.Contains(msg, "humidity") || strings.Contains(msg, "light") {
		t.Errorf("message names non-breaching parameters: %q", msg)
	}
}

func TestBuildTableOrderAndCount(t *testing.T) {
	readings := temps(10, 50, 20, 31)
	tbl := BuildTable(readings, snapshot(Filter(reading.Temperature)))

	if len(tbl.Rows) != len(readings) {
		t.Fatalf("rows: got %d, want %d", len(tbl.Rows), len(readings))
	}
	for i, row := range tbl.Rows {
		if row.Label != readings[i].Timestamp {
			t.Errorf("row %d label: got %q, want %q", i, row.Label, readings[i].Timestamp)
		}
		if len(row.Cells) != 1 {
			t.Errorf("row %d: got %d cells, want 1", i, len(row.Cells))
		}
		if row.Cells[0].Value != readings[i].Temperature {
			t.Errorf("row %d value altered: %+v", i, row.Cells[0].Value)
		}
	}

	wantBreach := []bool{false, true, false, true}
	for i, row := range tbl.Rows {
		if row.Cells[0].Breach != wantBreach[i] {
			t.Errorf("row %d breach: got %v, want %v", i, row.Cells[0].Breach, wantBreach[i])
		}
	}
}

func TestBuildTableAllTagsOnlyTemperature(t *testing.T) {
	readings := []reading.SensorReading{{
		Timestamp:      "t0",
		Temperature:    reading.Num(35),
		Humidity:       reading.Num(50),
		CO2:            reading.Num(300),
		LightIntensity: reading.Num(100),
	}}
	tbl := BuildTable(readings, snapshot(FilterAll))

	if len(tbl.Columns) != 4 {
		t.Fatalf("columns: got %d, want 4", len(tbl.Columns))
	}
	row := tbl.Rows[0]
	if !row.Breach {
		t.Error("row should be flagged")
	}
	for _, c := range row.Cells {
		want := c.Parameter == reading.Temperature
		if c.Breach != want {
			t.Errorf("%s breach: got %v, want %v", c.Parameter, c.Breach, want)
		}
	}
}

func TestRefreshChart(t *testing.T) {
	readings := temps(20, 25)
	snap := snapshot(Filter(reading.Temperature))
	cs := RefreshChart(readings, snap)

	if len(cs.Series) != 1 {
		t.Fatalf("series: got %d, want 1", len(cs.Series))
	}
	s := cs.Series[0]
	if s.Threshold != 30 {
		t.Errorf("threshold marker: got %f, want 30", s.Threshold)
	}
	if len(s.Values) != 2 || s.Values[1].Num != 25 {
		t.Errorf("values: got %+v", s.Values)
	}
	if len(cs.Labels) != 2 || cs.Labels[0] != "a" {
		t.Errorf("labels: got %v", cs.Labels)
	}

	all := RefreshChart(readings, snapshot(FilterAll))
	if len(all.Series) != 4 {
		t.Fatalf("all series: got %d, want 4", len(all.Series))
	}
	if all.Series[2].Threshold != 1000 {
		t.Errorf("co2 marker: got %f", all.Series[2].Threshold)
	}
}

func TestOverviewUsesZeroForMissing(t *testing.T) {
	readings := []reading.SensorReading{{Timestamp: "t", Temperature: reading.Num(31)}}
	cards := Overview(readings, snapshot(FilterAll))
	if len(cards) != 4 {
		t.Fatalf("cards: got %d", len(cards))
	}
	if !cards[0].Breach || cards[0].Value != 31 {
		t.Errorf("temperature card: %+v", cards[0])
	}
	if cards[1].Value != 0 || cards[1].Breach {
		t.Errorf("missing humidity card: %+v", cards[1])
	}
	if Overview(nil, snapshot(FilterAll)) != nil {
		t.Error("expected no cards for empty input")
	}
}

func TestOverviewMissingNeverBreachesNegativeLimit(t *testing.T) {
	s := NewState(nil, FilterAll)
	if !s.OverrideThreshold(reading.Temperature, "-5") {
		t.Fatal("override rejected")
	}
	readings := []reading.SensorReading{{Timestamp: "t", Humidity: reading.Num(40)}}
	cards := Overview(readings, s.Snapshot())
	if cards[0].Parameter != reading.Temperature || cards[0].Value != 0 {
		t.Fatalf("temperature card: %+v", cards[0])
	}
	if cards[0].Breach {
		t.Error("missing temperature flagged as breach against a negative limit")
	}
}

func TestStateSnapshotIsImmutable(t *testing.T) {
	s := NewState(nil, FilterAll)
	snap := s.Snapshot()

	if !s.OverrideThreshold(reading.Temperature, "25") {
		t.Fatal("override rejected")
	}
	if snap.Thresholds.Lookup(reading.Temperature) != 30 {
		t.Errorf("snapshot changed after override: %f", snap.Thresholds.Lookup(reading.Temperature))
	}
	if s.Threshold(reading.Temperature) != 25 {
		t.Errorf("state threshold: got %f", s.Threshold(reading.Temperature))
	}

	if s.OverrideThreshold(reading.Temperature, "hot") {
		t.Error("non-numeric override accepted")
	}
	if s.Threshold(reading.Temperature) != 25 {
		t.Errorf("non-numeric override changed threshold to %f", s.Threshold(reading.Temperature))
	}
}

func TestGenerationLatestWins(t *testing.T) {
	s := NewState(nil, "")
	first := s.NextGeneration()
	second := s.NextGeneration()
	if s.Current(first) {
		t.Error("stale generation reported current")
	}
	if !s.Current(second) {
		t.Error("latest generation not current")
	}
	if s.Generation() != second {
		t.Errorf("generation: got %d, want %d", s.Generation(), second)
	}
	if s.Filter() != Filter(reading.Temperature) {
		t.Errorf("default filter: got %q", s.Filter())
	}
}

func TestParseFilter(t *testing.T) {
	if f, err := ParseFilter("ALL"); err != nil || f != FilterAll {
		t.Errorf("ParseFilter(ALL) = %q, %v", f, err)
	}
	if f, err := ParseFilter("light"); err != nil || f != Filter(reading.LightIntensity) {
		t.Errorf("ParseFilter(light) = %q, %v", f, err)
	}
	if _, err := ParseFilter("soil"); err == nil {
		t.Error("expected error")
	}
}
