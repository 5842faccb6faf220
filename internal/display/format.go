package display

import (
	"fmt"
	"strings"

	"codeberg.org/mutker/ressmon/internal/metrics"
)

const separator = " · "

// FormatPercent renders a utilization with one decimal, "12.3%".
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// FormatFrequency renders MHz without decimals. Zero means the frequency
// could not be read and renders as "-- MHz".
func FormatFrequency(mhz float64) string {
	if mhz <= 0 {
		return "-- MHz"
	}
	return fmt.Sprintf("%.0f MHz", mhz)
}

// FormatTemperature renders "45.0 °C", or "-- °C" when absent.
func FormatTemperature(t metrics.Temperature) string {
	celsius, ok := t.Value()
	if !ok {
		return "-- °C"
	}
	return fmt.Sprintf("%.1f °C", celsius)
}

// RenderLine is the one line summary of a snapshot:
// "CPU 12.3% · 2400 MHz · 45.0 °C · RAM 40.1%".
func RenderLine(s metrics.Snapshot) string {
	return strings.Join([]string{
		"CPU " + FormatPercent(s.CPUUsagePercent),
		FormatFrequency(s.CPUAvgFrequencyMHz),
		FormatTemperature(s.CPUTemperature),
		"RAM " + FormatPercent(s.RAMUsagePercent),
	}, separator)
}

// RenderCores lists per-core utilization, one core per line.
func RenderCores(s metrics.Snapshot) []string {
	cores := s.CoreUsage()
	width := len(fmt.Sprint(len(cores) - 1))

	lines := make([]string, len(cores))
	for i, usage := range cores {
		lines[i] = fmt.Sprintf("cpu%-*d %6s", width, i, FormatPercent(usage))
	}

	return lines
}
