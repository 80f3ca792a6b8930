// Package reading models the Smart Farm telemetry rows returned by the
// backend: a timestamp label plus temperature, humidity, CO2 and light
// intensity values that may be missing or unparseable.
package reading

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NoTimestamp is the label used when the server omits a timestamp.
const NoTimestamp = "N/A"

// Value is a single numeric cell. Valid is false when the server sent
// nothing, null, or something that does not parse as a number.
type Value struct {
	Num   float64
	Valid bool
}

// Num returns a valid Value.
func Num(v float64) Value {
	return Value{Num: v, Valid: true}
}

// Or returns the number, or fallback when the value is missing.
func (v Value) Or(fallback float64) float64 {
	if !v.Valid {
		return fallback
	}
	return v.Num
}

// String prints the number, or "N/A" when the value is missing.
func (v Value) String() string {
	if !v.Valid {
		return "N/A"
	}
	return strconv.FormatFloat(v.Num, 'f', -1, 64)
}

// UnmarshalJSON accepts numbers, numeric strings and null. Anything else
// decodes to an invalid value rather than failing the whole payload.
func (v *Value) UnmarshalJSON(b []byte) error {
	*v = Value{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	raw := string(b)
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		raw = s
	}
	*v = ParseValue(raw)
	return nil
}

// ParseValue parses a decimal number. Empty, non-numeric, NaN and infinite
// input give a missing value.
func ParseValue(s string) Value {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Num(f)
}

// MarshalJSON writes the number or null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(v.Num, 'f', -1, 64)), nil
}

// SensorReading is one row of telemetry.
type SensorReading struct {
	Timestamp      string
	Temperature    Value
	Humidity       Value
	CO2            Value
	LightIntensity Value
}

// Get returns the value for a parameter. Unknown parameters are missing.
func (r SensorReading) Get(p Parameter) Value {
	switch p {
	case Temperature:
		return r.Temperature
	case Humidity:
		return r.Humidity
	case CO2:
		return r.CO2
	case LightIntensity:
		return r.LightIntensity
	}
	return Value{}
}

// Set replaces the value for a parameter. Unknown parameters are ignored.
func (r *SensorReading) Set(p Parameter, v Value) {
	switch p {
	case Temperature:
		r.Temperature = v
	case Humidity:
		r.Humidity = v
	case CO2:
		r.CO2 = v
	case LightIntensity:
		r.LightIntensity = v
	}
}

type wireReading struct {
	UpdatedTime    *string `json:"updated_time,omitempty"`
	Time           *string `json:"time,omitempty"`
	Timestamp      *string `json:"timestamp,omitempty"`
	Temperature    Value   `json:"temperature"`
	Humidity       Value   `json:"humidity"`
	CO2            Value   `json:"co2"`
	LightIntensity Value   `json:"light_intensity"`
}

// UnmarshalJSON reads the row shapes the backend variants produce. The
// timestamp may arrive as updated_time, time or timestamp.
func (r *SensorReading) UnmarshalJSON(b []byte) error {
	var w wireReading
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = SensorReading{
		Timestamp:      NoTimestamp,
		Temperature:    w.Temperature,
		Humidity:       w.Humidity,
		CO2:            w.CO2,
		LightIntensity: w.LightIntensity,
	}
	for _, ts := range []*string{w.UpdatedTime, w.Time, w.Timestamp} {
		if ts != nil && strings.TrimSpace(*ts) != "" {
			r.Timestamp = *ts
			break
		}
	}
	return nil
}

// MarshalJSON writes the row in the updated_time shape served by the
// simulator.
func (r SensorReading) MarshalJSON() ([]byte, error) {
	ts := r.Timestamp
	return json.Marshal(wireReading{
		UpdatedTime:    &ts,
		Temperature:    r.Temperature,
		Humidity:       r.Humidity,
		CO2:            r.CO2,
		LightIntensity: r.LightIntensity,
	})
}
