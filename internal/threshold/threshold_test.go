package threshold

import (
	"math"
	"testing"

	"github.com/luki/smartfarm/internal/reading"
)

func TestBreach(t *testing.T) {
	tbl := Defaults()

	tests := []struct {
		name  string
		param reading.Parameter
		value reading.Value
		want  bool
	}{
		{"above", reading.Temperature, reading.Num(30.5), true},
		{"boundary", reading.Temperature, reading.Num(30), false},
		{"below", reading.Temperature, reading.Num(12), false},
		{"missing", reading.Temperature, reading.Value{}, false},
		{"nan", reading.Humidity, reading.Value{Num: math.NaN(), Valid: true}, false},
		{"co2 above", reading.CO2, reading.Num(1000.0001), true},
		{"unknown parameter", reading.Parameter("soil_pH"), reading.Num(1e9), false},
	}
	for _, tt := range tests {
		if got := tbl.Breach(tt.param, tt.value); got != tt.want {
			t.Errorf("%s: Breach(%s, %v) = %v, want %v", tt.name, tt.param, tt.value, got, tt.want)
		}
	}
}

func TestLookupFallsBackToDefault(t *testing.T) {
	tbl := Table{reading.Temperature: 25}
	if got := tbl.Lookup(reading.Temperature); got != 25 {
		t.Errorf("configured: got %f", got)
	}
	if got := tbl.Lookup(reading.Humidity); got != 60 {
		t.Errorf("humidity default: got %f, want 60", got)
	}
	if got := tbl.Lookup("unknown"); !math.IsInf(got, 1) {
		t.Errorf("unknown: got %f, want +Inf", got)
	}

	var nilTable Table
	if got := nilTable.Lookup(reading.CO2); got != 1000 {
		t.Errorf("nil table: got %f", got)
	}
}

func TestOverride(t *testing.T) {
	tbl := Defaults()

	if !tbl.Override(reading.Temperature, " 28.5 ") {
		t.Fatal("Override with valid number returned false")
	}
	if tbl[reading.Temperature] != 28.5 {
		t.Errorf("temperature: got %f, want 28.5", tbl[reading.Temperature])
	}

	for _, raw := range []string{"", "warm", "NaN", "Inf", "12abc"} {
		if tbl.Override(reading.Temperature, raw) {
			t.Errorf("Override(%q) accepted", raw)
		}
		if tbl[reading.Temperature] != 28.5 {
			t.Errorf("after Override(%q): got %f, want previous 28.5", raw, tbl[reading.Temperature])
		}
	}
}

func TestClone(t *testing.T) {
	tbl := Defaults()
	c := tbl.Clone()
	c[reading.CO2] = 1
	if tbl[reading.CO2] != 1000 {
		t.Errorf("Clone shares storage: original co2 = %f", tbl[reading.CO2])
	}
}
