// Package pipeline turns a sequence of readings plus the active thresholds
// and filter into the table rows, alert text, overview cards and chart
// series that the dashboards display.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/luki/smartfarm/internal/reading"
	"github.com/luki/smartfarm/internal/threshold"
)

// Filter is a parameter name or FilterAll.
type Filter string

// FilterAll shows every parameter.
const FilterAll Filter = "all"

// ParseFilter accepts "all" or any parameter name or alias.
func ParseFilter(s string) (Filter, error) {
	if strings.EqualFold(strings.TrimSpace(s), string(FilterAll)) {
		return FilterAll, nil
	}
	p, err := reading.ParseParameter(s)
	if err != nil {
		return "", fmt.Errorf("unknown filter %q", s)
	}
	return Filter(p), nil
}

// Parameters returns the parameters the filter selects.
func (f Filter) Parameters() []reading.Parameter {
	if f == FilterAll {
		return reading.Parameters()
	}
	return []reading.Parameter{reading.Parameter(f)}
}

// Snapshot is the immutable view of State used for one refresh.
type Snapshot struct {
	Thresholds threshold.Table
	Filter     Filter
}

// State is owned by a single controller. It is not safe for concurrent use.
type State struct {
	thresholds threshold.Table
	filter     Filter
	generation uint64
}

// NewState builds a state from an initial threshold table and filter. A nil
// table means the defaults.
func NewState(t threshold.Table, f Filter) *State {
	if t == nil {
		t = threshold.Defaults()
	}
	if f == "" {
		f = Filter(reading.Temperature)
	}
	return &State{thresholds: t.Clone(), filter: f}
}

// Snapshot copies the current thresholds and filter.
func (s *State) Snapshot() Snapshot {
	return Snapshot{Thresholds: s.thresholds.Clone(), Filter: s.filter}
}

// Filter returns the active filter.
func (s *State) Filter() Filter { return s.filter }

// SetFilter changes the active filter.
func (s *State) SetFilter(f Filter) { s.filter = f }

// Threshold returns the effective limit for p.
func (s *State) Threshold(p reading.Parameter) float64 {
	return s.thresholds.Lookup(p)
}

// OverrideThreshold applies user input for p; see threshold.Table.Override.
func (s *State) OverrideThreshold(p reading.Parameter, raw string) bool {
	return s.thresholds.Override(p, raw)
}

// NextGeneration starts a new fetch and returns its token. Responses
// carrying an older token must be discarded.
func (s *State) NextGeneration() uint64 {
	s.generation++
	return s.generation
}

// Current reports whether gen belongs to the most recent fetch.
func (s *State) Current(gen uint64) bool {
	return gen == s.generation
}

// Generation returns the token of the most recent fetch.
func (s *State) Generation() uint64 { return s.generation }
