// Package history provides a ring buffer of parameter values with
// min/peak/avg statistics, used for the stats column of the dashboard.
package history

import (
	"math"

	"github.com/luki/smartfarm/internal/reading"
)

// Point is a single value with the label of the reading it came from.
type Point struct {
	Value float64
	Label string
}

// Buffer stores a ring buffer of values for one parameter.
type Buffer struct {
	Points []Point
	Max    int // capacity
	Min    float64
	Peak   float64
}

// NewBuffer creates a new ring buffer with the given capacity.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		Points: make([]Point, 0, capacity),
		Max:    capacity,
		Min:    math.MaxFloat64,
		Peak:   -math.MaxFloat64,
	}
}

// Push adds a value, dropping the oldest when full.
func (b *Buffer) Push(v float64, label string) {
	p := Point{Value: v, Label: label}
	if len(b.Points) >= b.Max {
		copy(b.Points, b.Points[1:])
		b.Points[len(b.Points)-1] = p
	} else {
		b.Points = append(b.Points, p)
	}

	if v < b.Min {
		b.Min = v
	}
	if v > b.Peak {
		b.Peak = v
	}
}

// Last returns the most recent point, or the zero Point if empty.
func (b *Buffer) Last() Point {
	if len(b.Points) == 0 {
		return Point{}
	}
	return b.Points[len(b.Points)-1]
}

// Avg returns the average of all stored values.
func (b *Buffer) Avg() float64 {
	if len(b.Points) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range b.Points {
		sum += p.Value
	}
	return sum / float64(len(b.Points))
}

// Len returns the number of stored values.
func (b *Buffer) Len() int {
	return len(b.Points)
}

// Store manages one buffer per parameter.
type Store struct {
	Data     map[reading.Parameter]*Buffer
	Capacity int
}

// NewStore creates a new store with the given per-parameter capacity.
func NewStore(capacity int) *Store {
	return &Store{
		Data:     make(map[reading.Parameter]*Buffer),
		Capacity: capacity,
	}
}

// Record adds a value for p.
func (s *Store) Record(p reading.Parameter, v float64, label string) {
	b, ok := s.Data[p]
	if !ok {
		b = NewBuffer(s.Capacity)
		s.Data[p] = b
	}
	b.Push(v, label)
}

// Get returns the buffer for p, or nil.
func (s *Store) Get(p reading.Parameter) *Buffer {
	return s.Data[p]
}

// FromReadings builds a store from a reading sequence. Missing values are
// skipped so they never drag the statistics towards zero.
func FromReadings(readings []reading.SensorReading, capacity int) *Store {
	s := NewStore(capacity)
	for _, r := range readings {
		for _, p := range reading.Parameters() {
			if v := r.Get(p); v.Valid {
				s.Record(p, v.Num, r.Timestamp)
			}
		}
	}
	return s
}
