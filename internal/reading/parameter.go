package reading

import (
	"fmt"
	"strings"
)

// Parameter names one measured quantity.
type Parameter string

const (
	Temperature    Parameter = "temperature"
	Humidity       Parameter = "humidity"
	CO2            Parameter = "co2"
	LightIntensity Parameter = "light_intensity"
)

// parameterInfo lists the parameters in display order with their labels,
// units and accepted aliases.
var parameterInfo = []struct {
	param   Parameter
	label   string
	unit    string
	aliases []string
}{
	{Temperature, "Temperature", "°C", []string{"temp"}},
	{Humidity, "Humidity", "%", nil},
	{CO2, "CO₂", "ppm", []string{"co2_concentration"}},
	{LightIntensity, "Light Intensity", "lx", []string{"light", "lightintensity"}},
}

// Parameters returns every parameter in canonical display order.
func Parameters() []Parameter {
	out := make([]Parameter, len(parameterInfo))
	for i, entry := range parameterInfo {
		out[i] = entry.param
	}
	return out
}

// ParseParameter resolves a parameter name or alias, case-insensitively.
func ParseParameter(s string) (Parameter, error) {
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, entry := range parameterInfo {
		if lower == string(entry.param) {
			return entry.param, nil
		}
		for _, a := range entry.aliases {
			if lower == a {
				return entry.param, nil
			}
		}
	}
	return "", fmt.Errorf("unknown parameter %q", s)
}

// Known reports whether p is one of the four measured parameters.
func (p Parameter) Known() bool {
	for _, entry := range parameterInfo {
		if entry.param == p {
			return true
		}
	}
	return false
}

// Label returns the human-readable name, e.g. "CO₂".
func (p Parameter) Label() string {
	for _, entry := range parameterInfo {
		if entry.param == p {
			return entry.label
		}
	}
	return string(p)
}

// Unit returns the measurement unit, or "" for unknown parameters.
func (p Parameter) Unit() string {
	for _, entry := range parameterInfo {
		if entry.param == p {
			return entry.unit
		}
	}
	return ""
}

// Title returns the label with its unit, e.g. "Temperature (°C)".
func (p Parameter) Title() string {
	if u := p.Unit(); u != "" {
		return p.Label() + " (" + u + ")"
	}
	return p.Label()
}
