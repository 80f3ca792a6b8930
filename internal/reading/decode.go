package reading

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrMalformed is returned when a payload is not an object with a "data"
// array.
var ErrMalformed = errors.New("invalid data format received from the server")

// SimulatedLabel is the timestamp given to readings appended by Next.
const SimulatedLabel = "Next Hour"

type envelope struct {
	Data json.RawMessage `json:"data"`
}

// DecodeResponse reads a {"data": [...]} payload. Anything else, including
// a "data" member that is not an array, yields ErrMalformed.
func DecodeResponse(r io.Reader) ([]SensorReading, error) {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || data[0] != '[' {
		return nil, ErrMalformed
	}

	var readings []SensorReading
	if err := json.Unmarshal(data, &readings); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if readings == nil {
		readings = []SensorReading{}
	}
	return readings, nil
}

// Next returns a copy of readings with one synthetic reading appended: the
// last reading with p shifted by delta. A missing value is treated as 0.
// The input slice is not modified.
func Next(readings []SensorReading, p Parameter, delta float64) []SensorReading {
	out := make([]SensorReading, len(readings), len(readings)+1)
	copy(out, readings)

	var next SensorReading
	if len(readings) > 0 {
		next = readings[len(readings)-1]
	}
	next.Timestamp = SimulatedLabel
	next.Set(p, Num(next.Get(p).Or(0)+delta))
	return append(out, next)
}
