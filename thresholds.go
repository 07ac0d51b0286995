package pump_control

import "math"

// Well-known sensor parameters. The map is open: unknown parameter names are
// accepted and forwarded to the remote store as-is.
const (
	ParamTemperature = "temperature"
	ParamHumidity    = "humidity"
	ParamSoilPercent = "soilPercent"
	ParamIlluminance = "lux"
	ParamRainfall    = "rainValue"
)

// Thresholds maps a sensor parameter name to its automatic-mode trigger
// value. Negative or zero values are permitted; interpretation belongs to the
// automatic-mode consumer on the device side.
type Thresholds map[string]float64

// DefaultThresholds are applied on first run, before any user edit.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ParamTemperature: 30,
		ParamHumidity:    60,
		ParamSoilPercent: 40,
		ParamIlluminance: 500,
		ParamRainfall:    2,
	}
}

// Set stores a trigger value. Only finiteness is validated here; clamping, if
// any, is the consumer's concern.
func (t Thresholds) Set(parameter string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return ErrInvalidThreshold
	}
	t[parameter] = value
	return nil
}

// Snapshot returns an independent copy safe to hand to other goroutines or
// to serialize for transmission.
func (t Thresholds) Snapshot() Thresholds {
	out := make(Thresholds, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
