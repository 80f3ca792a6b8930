// Package threshold holds the per-parameter breach limits and the breach
// test applied to every displayed value.
package threshold

import (
	"math"
	"strconv"
	"strings"

	"github.com/luki/smartfarm/internal/reading"
)

var defaults = map[reading.Parameter]float64{
	reading.Temperature:    30,
	reading.Humidity:       60,
	reading.CO2:            1000,
	reading.LightIntensity: 500,
}

// Table maps a parameter to the value above which it is flagged.
type Table map[reading.Parameter]float64

// Defaults returns a fresh table with the built-in limits.
func Defaults() Table {
	t := make(Table, len(defaults))
	for p, v := range defaults {
		t[p] = v
	}
	return t
}

// Default returns the built-in limit for p. Unknown parameters get +Inf so
// they can never breach.
func Default(p reading.Parameter) float64 {
	if v, ok := defaults[p]; ok {
		return v
	}
	return math.Inf(1)
}

// Lookup returns the configured limit, falling back to Default.
func (t Table) Lookup(p reading.Parameter) float64 {
	if v, ok := t[p]; ok && !math.IsNaN(v) {
		return v
	}
	return Default(p)
}

// Override sets p from user input. Input that is not a finite number
// leaves the previous limit in place and reports false.
func (t Table) Override(p reading.Parameter, raw string) bool {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	t[p] = v
	return true
}

// Breach reports whether v is a valid number strictly above p's limit.
func (t Table) Breach(p reading.Parameter, v reading.Value) bool {
	if !v.Valid || math.IsNaN(v.Num) {
		return false
	}
	return v.Num > t.Lookup(p)
}

// Clone returns an independent copy.
func (t Table) Clone() Table {
	c := make(Table, len(t))
	for p, v := range t {
		c[p] = v
	}
	return c
}
