package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/luki/smartfarm/internal/reading"
)

// Cell is one displayed value. Breach is a highlight tag only.
type Cell struct {
	Parameter reading.Parameter
	Value     reading.Value
	Breach    bool
}

// Row is one table line, in input order.
type Row struct {
	Label  string
	Cells  []Cell
	Breach bool // any cell breaches
}

// Table is the evaluated table for one refresh.
type Table struct {
	Columns []reading.Parameter
	Rows    []Row
}

// Card is one overview tile: the latest value of a parameter.
type Card struct {
	Parameter reading.Parameter
	Value     float64
	Threshold float64
	Breach    bool
}

// Series is one chart line with its constant threshold marker.
type Series struct {
	Parameter reading.Parameter
	Label     string
	Values    []reading.Value
	Threshold float64
}

// ChartSeries is everything a chart needs for one draw.
type ChartSeries struct {
	Labels []string
	Series []Series
}

// EvaluateBreach reports whether v strictly exceeds the limit for p.
func EvaluateBreach(snap Snapshot, p reading.Parameter, v reading.Value) bool {
	return snap.Thresholds.Breach(p, v)
}

// BuildTable produces one row per reading, preserving order.
func BuildTable(readings []reading.SensorReading, snap Snapshot) Table {
	cols := snap.Filter.Parameters()
	t := Table{Columns: cols, Rows: make([]Row, 0, len(readings))}

	for _, r := range readings {
		row := Row{Label: r.Timestamp, Cells: make([]Cell, 0, len(cols))}
		for _, p := range cols {
			v := r.Get(p)
			c := Cell{Parameter: p, Value: v, Breach: EvaluateBreach(snap, p, v)}
			row.Breach = row.Breach || c.Breach
			row.Cells = append(row.Cells, c)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// ComputeAlert inspects only the last reading. It returns the warning text
// and true when the filtered parameter (or, for FilterAll, any parameter)
// breaches on that reading.
func ComputeAlert(readings []reading.SensorReading, snap Snapshot) (string, bool) {
	if len(readings) == 0 {
		return "", false
	}
	latest := readings[len(readings)-1]

	if snap.Filter != FilterAll {
		p := reading.Parameter(snap.Filter)
		v := latest.Get(p)
		if !EvaluateBreach(snap, p, v) {
			return "", false
		}
		return fmt.Sprintf("Warning: Latest %s value (%s) exceeds the threshold of %s!",
			p, v, formatNum(snap.Thresholds.Lookup(p))), true
	}

	var names []string
	for _, p := range reading.Parameters() {
		if EvaluateBreach(snap, p, latest.Get(p)) {
			names = append(names, string(p))
		}
	}
	if len(names) == 0 {
		return "", false
	}
	return fmt.Sprintf("Warning: Latest reading exceeds the threshold for %s!", strings.Join(names, ", ")), true
}

// RefreshChart builds the chart series for the filter. Every series gets a
// horizontal marker at its parameter's threshold.
func RefreshChart(readings []reading.SensorReading, snap Snapshot) ChartSeries {
	cs := ChartSeries{Labels: make([]string, len(readings))}
	for i, r := range readings {
		cs.Labels[i] = r.Timestamp
	}

	for _, p := range snap.Filter.Parameters() {
		s := Series{
			Parameter: p,
			Label:     p.Title(),
			Values:    make([]reading.Value, len(readings)),
			Threshold: snap.Thresholds.Lookup(p),
		}
		for i, r := range readings {
			s.Values[i] = r.Get(p)
		}
		cs.Series = append(cs.Series, s)
	}
	return cs
}

// Overview returns one card per parameter for the latest reading. Missing
// values show as 0 but never breach.
func Overview(readings []reading.SensorReading, snap Snapshot) []Card {
	if len(readings) == 0 {
		return nil
	}
	latest := readings[len(readings)-1]

	cards := make([]Card, 0, 4)
	for _, p := range reading.Parameters() {
		v := latest.Get(p)
		cards = append(cards, Card{
			Parameter: p,
			Value:     v.Or(0),
			Threshold: snap.Thresholds.Lookup(p),
			Breach:    EvaluateBreach(snap, p, v),
		})
	}
	return cards
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
