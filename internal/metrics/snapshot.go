package metrics

import (
	"encoding/json"
	"time"
)

// Snapshot is the immutable set of metrics derived for one tick. A new tick
// supersedes it with a new value; it is never mutated after construction.
type Snapshot struct {
	Timestamp          time.Time   `json:"timestamp" yaml:"timestamp"`
	CPUUsagePercent    float64     `json:"cpu_usage_percent" yaml:"cpu_usage_percent"`
	CoreUsagePercent   []float64   `json:"core_usage_percent" yaml:"core_usage_percent"`
	CPUAvgFrequencyMHz float64     `json:"cpu_avg_frequency_mhz" yaml:"cpu_avg_frequency_mhz"`
	CPUTemperature     Temperature `json:"cpu_temperature_celsius" yaml:"cpu_temperature_celsius"`
	RAMUsagePercent    float64     `json:"ram_usage_percent" yaml:"ram_usage_percent"`
	Sampled            bool        `json:"sampled" yaml:"sampled"`
}

// NotSampled is returned by readers before the first tick completes.
var NotSampled = Snapshot{}

// CoreUsage returns a copy of the per-core usage values.
func (s Snapshot) CoreUsage() []float64 {
	if s.CoreUsagePercent == nil {
		return nil
	}
	out := make([]float64, len(s.CoreUsagePercent))
	copy(out, s.CoreUsagePercent)

	return out
}

// Temperature is an optional reading in degrees Celsius. The zero value is
// absent.
type Temperature struct {
	celsius float64
	present bool
}

// Celsius returns a present temperature.
func Celsius(v float64) Temperature {
	return Temperature{celsius: v, present: true}
}

// NoTemperature returns an absent temperature.
func NoTemperature() Temperature {
	return Temperature{}
}

// Value returns the reading and whether it is present.
func (t Temperature) Value() (float64, bool) {
	return t.celsius, t.present
}

// Present reports whether a reading exists.
func (t Temperature) Present() bool {
	return t.present
}

func (t Temperature) MarshalJSON() ([]byte, error) {
	if !t.present {
		return []byte("null"), nil
	}

	return json.Marshal(t.celsius)
}

func (t *Temperature) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Temperature{}
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*t = Celsius(v)

	return nil
}

// MarshalYAML renders an absent reading as null.
func (t Temperature) MarshalYAML() (interface{}, error) {
	if !t.present {
		return nil, nil
	}

	return t.celsius, nil
}
