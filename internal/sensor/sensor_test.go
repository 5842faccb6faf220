package sensor_test

import (
	"testing"

	"codeberg.org/mutker/ressmon/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		label string
		want  sensor.Kind
	}{
		{"k10temp Tctl", sensor.KindCPU},
		{"coretemp Package id 0", sensor.KindCPU},
		{"amdgpu edge", sensor.KindGPU},
		{"nvme Composite", sensor.KindSSD},
		{"battery BAT0", sensor.KindBattery},
		{"acpitz", sensor.KindAmbient},
		{"cros_ec", sensor.KindEC},
		{"pch_skylake", sensor.KindMotherboard},
		{"spd5118", sensor.KindMemory},
		{"iwlwifi_1", sensor.KindWireless},
		{"fan1", sensor.KindFan},
		{"psu", sensor.KindPower},
		{"zz", sensor.KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, sensor.Classify(tt.label))
		})
	}
}

func TestSelectorPreferredLabel(t *testing.T) {
	sel := sensor.NewSelector("NVME Composite")
	temp := sel.Select([]sensor.Reading{
		{Label: "coretemp Package id 0", Celsius: 55},
		{Label: "nvme Composite", Celsius: 38},
	})

	v, ok := temp.Value()
	require.True(t, ok)
	assert.Equal(t, 38.0, v)
}

func TestSelectorDefaultPreferred(t *testing.T) {
	sel := sensor.NewSelector("  ")
	assert.Equal(t, sensor.DefaultPreferred, sel.Preferred())

	temp := sel.Select([]sensor.Reading{
		{Label: "acpitz", Celsius: 30},
		{Label: "k10temp-pci-00c3", Celsius: 61.5},
	})
	v, ok := temp.Value()
	require.True(t, ok)
	assert.Equal(t, 61.5, v)
}

func TestSelectorMeanOfCPULabels(t *testing.T) {
	sel := sensor.NewSelector("")
	temp := sel.Select([]sensor.Reading{
		{Label: "Package id 0", Celsius: 50},
		{Label: "cpu_thermal", Celsius: 60},
		{Label: "nvme Composite", Celsius: 90},
	})

	v, ok := temp.Value()
	require.True(t, ok)
	assert.Equal(t, 55.0, v)
}

func TestSelectorHottestFallback(t *testing.T) {
	sel := sensor.NewSelector("")
	temp := sel.Select([]sensor.Reading{
		{Label: "acpitz", Celsius: 27.8},
		{Label: "nvme Composite", Celsius: 41},
		{Label: "iwlwifi_1", Celsius: 39},
	})

	v, ok := temp.Value()
	require.True(t, ok)
	assert.Equal(t, 41.0, v)
}

func TestSelectorNoSensors(t *testing.T) {
	sel := sensor.NewSelector("")
	assert.False(t, sel.Select(nil).Present())
	assert.False(t, sel.Select([]sensor.Reading{}).Present())
}

func TestCatalogSortedByKindThenLabel(t *testing.T) {
	entries := sensor.Catalog([]sensor.Reading{
		{Label: "nvme Composite", Celsius: 38},
		{Label: "k10temp Tdie", Celsius: 52},
		{Label: "amdgpu edge", Celsius: 47},
		{Label: "k10temp Tctl", Celsius: 54.3},
	})

	require.Len(t, entries, 4)
	assert.Equal(t, "k10temp Tctl", entries[0].Label)
	assert.Equal(t, "k10temp Tdie", entries[1].Label)
	assert.Equal(t, sensor.KindGPU, entries[2].Kind)
	assert.Equal(t, sensor.KindSSD, entries[3].Kind)
	assert.Equal(t, "CPU — k10temp Tctl — 54.3 °C", entries[0].String())
}

func TestParseEntry(t *testing.T) {
	assert.Equal(t, "k10temp Tctl", sensor.ParseEntry("CPU — k10temp Tctl — 54.2 °C\n"))
	assert.Equal(t, "acpitz", sensor.ParseEntry("  acpitz "))
}
