package chart

import (
	"strings"
	"testing"

	"github.com/luki/smartfarm/internal/pipeline"
	"github.com/luki/smartfarm/internal/reading"
	"github.com/luki/smartfarm/internal/threshold"
)

func sampleReadings() []reading.SensorReading {
	vals := []float64{20, 21, 22, 25, 34, 23}
	out := make([]reading.SensorReading, len(vals))
	for i, v := range vals {
		out[i] = reading.SensorReading{
			Timestamp:      "2024-12-01 0" + string(rune('0'+i)) + ":00",
			Temperature:    reading.Num(v),
			Humidity:       reading.Num(50 + v),
			CO2:            reading.Num(400 + 10*v),
			LightIntensity: reading.Num(300),
		}
	}
	return out
}

func TestSparkline(t *testing.T) {
	values := []reading.Value{reading.Num(30), reading.Num(35), {}, reading.Num(90), reading.Num(100)}
	result := RenderSparkline(values, 20, 20, 110, 80)
	if len(result) == 0 {
		t.Error("sparkline should not be empty")
	}
	t.Logf("Sparkline: %s", result)
}

func TestPlotDrawsThresholdMarker(t *testing.T) {
	values := []reading.Value{reading.Num(10), reading.Num(12), reading.Num(11)}
	lines := RenderPlot(values, 10, 6, 0, 60, 50)
	if len(lines) != 6 {
		t.Fatalf("expected 6 rows, got %d", len(lines))
	}
	if !strings.Contains(strings.Join(lines, "\n"), "┄") {
		t.Error("expected threshold marker in plot")
	}
}

func TestRangeIncludesThreshold(t *testing.T) {
	lo, hi := Range([]reading.Value{reading.Num(10), reading.Num(20)}, 500)
	if hi < 500 || lo > 10 {
		t.Errorf("Range = [%f, %f], want to cover 10..500", lo, hi)
	}
	lo, hi = Range(nil, 0)
	if lo >= hi {
		t.Errorf("empty Range = [%f, %f]", lo, hi)
	}
}

func TestBoardRedrawLeavesOneChart(t *testing.T) {
	readings := sampleReadings()
	state := pipeline.NewState(threshold.Defaults(), pipeline.Filter(reading.Temperature))

	var b Board
	first := b.Draw(pipeline.RefreshChart(readings, state.Snapshot()), 60, 6)

	state.SetFilter(pipeline.FilterAll)
	second := b.Draw(pipeline.RefreshChart(readings, state.Snapshot()), 60, 6)

	state.SetFilter(pipeline.Filter(reading.CO2))
	third := b.Draw(pipeline.RefreshChart(readings, state.Snapshot()), 60, 6)

	if b.Active() != 1 {
		t.Fatalf("Active() = %d, want 1", b.Active())
	}
	if !first.Destroyed() || !second.Destroyed() {
		t.Error("previous charts should be torn down")
	}
	if third.Destroyed() || b.Current() != third {
		t.Error("latest chart should be live")
	}
	if first.String() != "" {
		t.Error("destroyed chart still renders")
	}
	if !strings.Contains(b.View(), "CO₂") {
		t.Errorf("live chart should show the co2 series:\n%s", b.View())
	}

	b.Destroy()
	b.Destroy()
	if b.Active() != 0 || b.View() != "" {
		t.Errorf("after Destroy: Active() = %d", b.Active())
	}
}

func TestShortLabel(t *testing.T) {
	tests := map[string]string{
		"2024-12-01 08:00:00":  "08:00:00",
		"2024-12-01T08:15:00Z": "08:15:00Z",
		"Next Hour":            "Next Hour",
		"N/A":                  "N/A",
	}
	for in, want := range tests {
		if got := ShortLabel(in); got != want {
			t.Errorf("ShortLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
