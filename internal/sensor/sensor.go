// Package sensor classifies thermal sensors and picks the one that stands
// for "CPU temperature" on a given machine.
package sensor

import (
	"fmt"
	"sort"
	"strings"

	"codeberg.org/mutker/ressmon/internal/metrics"
)

// DefaultPreferred is the label used when no sensor has been selected.
const DefaultPreferred = "k10temp-pci-00c3"

// Reading is one thermal sensor value.
type Reading struct {
	Label   string  `json:"label" yaml:"label"`
	Celsius float64 `json:"celsius" yaml:"celsius"`
}

// Kind is the hardware class a sensor label belongs to.
type Kind string

const (
	KindCPU         Kind = "CPU"
	KindGPU         Kind = "GPU"
	KindSSD         Kind = "SSD"
	KindBattery     Kind = "Battery"
	KindAmbient     Kind = "Ambient"
	KindEC          Kind = "EC"
	KindMotherboard Kind = "Motherboard"
	KindMemory      Kind = "Memory"
	KindWireless    Kind = "Wireless"
	KindFan         Kind = "Fan"
	KindPower       Kind = "Power"
	KindController  Kind = "Controller"
	KindOther       Kind = "Other"
)

var cpuKeywords = []string{"cpu", "package", "pkg", "k10temp", "coretemp", "tctl", "tdie", "core"}

// Classify maps a sensor label to a Kind. Rules are checked in priority
// order; the first match wins.
func Classify(label string) Kind {
	l := strings.ToLower(label)

	switch {
	case containsAny(l, cpuKeywords...):
		return KindCPU
	case containsAny(l, "gpu", "amdgpu", "nvidia", "radeon"):
		return KindGPU
	case containsAny(l, "nvme", "ssd", "disk", "hdd"):
		return KindSSD
	case containsAny(l, "battery", "charge"):
		return KindBattery
	case containsAny(l, "acpitz", "ambient"):
		return KindAmbient
	case containsAny(l, "pch", "motherboard", "board", "ec"):
		if strings.Contains(l, "cros_ec") {
			return KindEC
		}
		return KindMotherboard
	case containsAny(l, "spd", "dimm", "memory", "dram"):
		return KindMemory
	case containsAny(l, "iwl", "wifi", "wlan", "phy", "mt7"):
		return KindWireless
	case containsAny(l, "fan", "tach"):
		return KindFan
	case containsAny(l, "psu", "ac", "power"):
		return KindPower
	case containsAny(l, "raid", "md", "controller"):
		return KindController
	default:
		return KindOther
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}

// Selector picks the CPU temperature out of all available readings.
type Selector struct {
	preferred string
}

// NewSelector returns a Selector preferring the given label. An empty label
// falls back to DefaultPreferred.
func NewSelector(preferred string) Selector {
	if strings.TrimSpace(preferred) == "" {
		preferred = DefaultPreferred
	}

	return Selector{preferred: strings.TrimSpace(preferred)}
}

// Preferred returns the label the selector looks for first.
func (s Selector) Preferred() string {
	return s.preferred
}

// Select resolves the temperature in this order: the preferred label
// (case-insensitive), the mean of labels containing "cpu" or "package",
// the hottest sensor. With no readings the result is absent.
func (s Selector) Select(readings []Reading) metrics.Temperature {
	if len(readings) == 0 {
		return metrics.NoTemperature()
	}

	for _, r := range readings {
		if strings.EqualFold(r.Label, s.preferred) {
			return metrics.Celsius(r.Celsius)
		}
	}

	var sum float64
	var n int
	for _, r := range readings {
		l := strings.ToLower(r.Label)
		if strings.Contains(l, "cpu") || strings.Contains(l, "package") {
			sum += r.Celsius
			n++
		}
	}
	if n > 0 {
		return metrics.Celsius(sum / float64(n))
	}

	hottest := readings[0].Celsius
	for _, r := range readings[1:] {
		hottest = max(hottest, r.Celsius)
	}

	return metrics.Celsius(hottest)
}

// Entry is one line of the sensor catalog.
type Entry struct {
	Kind    Kind    `json:"kind" yaml:"kind"`
	Label   string  `json:"label" yaml:"label"`
	Celsius float64 `json:"celsius" yaml:"celsius"`
}

// String renders the entry as "KIND — label — 42.3 °C".
func (e Entry) String() string {
	return fmt.Sprintf("%s — %s — %.1f °C", e.Kind, e.Label, e.Celsius)
}

// Catalog classifies readings and sorts them by kind, then label.
func Catalog(readings []Reading) []Entry {
	entries := make([]Entry, 0, len(readings))
	for _, r := range readings {
		entries = append(entries, Entry{Kind: Classify(r.Label), Label: r.Label, Celsius: r.Celsius})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Kind != entries[j].Kind {
			return entries[i].Kind < entries[j].Kind
		}
		return entries[i].Label < entries[j].Label
	})

	return entries
}

// ParseEntry extracts the label from a rendered catalog line. Input that is
// not in catalog form is returned trimmed.
func ParseEntry(line string) string {
	line = strings.TrimSpace(line)
	parts := strings.Split(line, " — ")
	if len(parts) >= 2 {
		return strings.TrimSpace(parts[1])
	}

	return line
}
