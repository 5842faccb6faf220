package display

import (
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"codeberg.org/mutker/ressmon/internal/metrics"
	"codeberg.org/mutker/ressmon/internal/sensor"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() metrics.Snapshot {
	return metrics.Snapshot{
		Timestamp:          time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		CPUUsagePercent:    12.34,
		CoreUsagePercent:   []float64{10, 14.68},
		CPUAvgFrequencyMHz: 2400.4,
		CPUTemperature:     metrics.Celsius(45),
		RAMUsagePercent:    40.06,
		Sampled:            true,
	}
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "12.3%", FormatPercent(12.34))
	assert.Equal(t, "0.0%", FormatPercent(0))
	assert.Equal(t, "100.0%", FormatPercent(100))

	assert.Equal(t, "2400 MHz", FormatFrequency(2400.4))
	assert.Equal(t, "-- MHz", FormatFrequency(0))

	assert.Equal(t, "45.0 °C", FormatTemperature(metrics.Celsius(45)))
	assert.Equal(t, "-- °C", FormatTemperature(metrics.NoTemperature()))
}

func TestRenderLine(t *testing.T) {
	assert.Equal(t, "CPU 12.3% · 2400 MHz · 45.0 °C · RAM 40.1%", RenderLine(sample()))

	s := sample()
	s.CPUTemperature = metrics.NoTemperature()
	assert.Equal(t, "CPU 12.3% · 2400 MHz · -- °C · RAM 40.1%", RenderLine(s))
}

func TestRenderCores(t *testing.T) {
	assert.Equal(t, []string{"cpu0  10.0%", "cpu1  14.7%"}, RenderCores(sample()))

	s := sample()
	s.CoreUsagePercent = make([]float64, 12)
	lines := RenderCores(s)
	require.Len(t, lines, 12)
	assert.Equal(t, "cpu0    0.0%", lines[0])
	assert.Equal(t, "cpu11   0.0%", lines[11])
}

func TestModelReceivesSnapshots(t *testing.T) {
	updates := make(chan metrics.Snapshot, 1)
	model := NewModel(updates, metrics.NotSampled, "k10temp-pci-00c3", nil)

	assert.Contains(t, model.View(), "Sampling...")

	updates <- sample()
	cmd := model.Init()
	require.NotNil(t, cmd)
	message := cmd()
	require.IsType(t, snapshotMsg{}, message)

	updated, next := model.Update(message)
	model = updated.(Model)
	assert.NotNil(t, next, "keeps listening")
	assert.Equal(t, sample(), model.Snapshot())
	assert.Contains(t, model.View(), "CPU 12.3% · 2400 MHz · 45.0 °C · RAM 40.1%")
	assert.Contains(t, model.View(), "k10temp-pci-00c3")
}

func TestModelQuitsWhenUpdatesClose(t *testing.T) {
	updates := make(chan metrics.Snapshot)
	close(updates)
	model := NewModel(updates, sample(), "", nil)

	message := model.Init()()
	assert.IsType(t, updatesClosedMsg{}, message)

	_, cmd := model.Update(message)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModelKeys(t *testing.T) {
	model := NewModel(nil, sample(), "", nil)
	assert.Nil(t, model.Init())

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'c'}})
	model = updated.(Model)
	assert.Contains(t, model.View(), "cpu1")

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'c'}})
	model = updated.(Model)
	assert.False(t, strings.Contains(model.View(), "cpu1"))

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	updated, cmd = model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Nil(t, cmd)
	assert.Equal(t, 80, updated.(Model).width)
}

type fakePicker struct {
	readings  []sensor.Reading
	listErr   error
	selectErr error
	selected  []string
}

func (f *fakePicker) Sensors() ([]sensor.Reading, error) {
	return f.readings, f.listErr
}

func (f *fakePicker) Select(label string) error {
	f.selected = append(f.selected, label)
	return f.selectErr
}

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func openMenu(t *testing.T, model Model) Model {
	t.Helper()
	updated, cmd := model.Update(key('s'))
	require.NotNil(t, cmd)
	assert.Contains(t, updated.(Model).View(), "Loading sensors...")
	updated, _ = updated.Update(cmd())
	return updated.(Model)
}

func TestSensorMenuSelects(t *testing.T) {
	picker := &fakePicker{readings: []sensor.Reading{
		{Label: "k10temp-pci-00c3 Tctl", Celsius: 50},
		{Label: "acpitz", Celsius: 38},
	}}
	model := NewModel(nil, sample(), "k10temp-pci-00c3 Tctl", picker)
	assert.Contains(t, model.View(), "s sensor")

	model = openMenu(t, model)
	require.True(t, model.picking)
	assert.Equal(t, 1, model.cursor, "starts on the current sensor")
	assert.Contains(t, model.View(), "Ambient — acpitz — 38.0 °C")
	assert.Contains(t, model.View(), "CPU — k10temp-pci-00c3 Tctl — 50.0 °C")

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyUp})
	updated, _ = updated.Update(tea.KeyMsg{Type: tea.KeyUp})
	model = updated.(Model)
	assert.Equal(t, 0, model.cursor, "cursor stops at the top")

	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.False(t, updated.(Model).picking)

	updated, _ = updated.Update(cmd())
	model = updated.(Model)
	assert.Equal(t, []string{"acpitz"}, picker.selected)
	assert.Equal(t, "acpitz", model.sensor)
	assert.Contains(t, model.View(), "Sensor set to acpitz")
	assert.Contains(t, model.View(), "sensor: acpitz")
}

func TestSensorMenuCancel(t *testing.T) {
	picker := &fakePicker{readings: []sensor.Reading{{Label: "acpitz", Celsius: 38}}}
	model := openMenu(t, NewModel(nil, sample(), "", picker))

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 0, updated.(Model).cursor, "cursor stops at the bottom")

	updated, cmd := updated.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd, "esc leaves the menu without quitting")
	model = updated.(Model)
	assert.False(t, model.picking)
	assert.Empty(t, picker.selected)
	assert.Contains(t, model.View(), "CPU 12.3%")
}

func TestSensorMenuErrors(t *testing.T) {
	picker := &fakePicker{listErr: stderrors.New("no hwmon")}
	model := openMenu(t, NewModel(nil, sample(), "", picker))
	assert.False(t, model.picking)
	assert.Contains(t, model.View(), "Failed to list sensors: no hwmon")

	picker = &fakePicker{}
	model = openMenu(t, NewModel(nil, sample(), "", picker))
	assert.False(t, model.picking)
	assert.Contains(t, model.View(), "No thermal sensors found")

	picker = &fakePicker{
		readings:  []sensor.Reading{{Label: "acpitz", Celsius: 38}},
		selectErr: stderrors.New("read-only file system"),
	}
	model = openMenu(t, NewModel(nil, sample(), "coretemp", picker))
	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	updated, _ = updated.Update(cmd())
	model = updated.(Model)
	assert.Equal(t, "coretemp", model.sensor)
	assert.Contains(t, model.View(), "Failed to save sensor: read-only file system")
}

func TestSensorMenuDisabledWithoutPicker(t *testing.T) {
	model := NewModel(nil, sample(), "", nil)
	assert.NotContains(t, model.View(), "s sensor")

	updated, cmd := model.Update(key('s'))
	assert.Nil(t, cmd)
	assert.False(t, updated.(Model).picking)
}

func TestSensorChangedElsewhere(t *testing.T) {
	model := NewModel(nil, sample(), "k10temp-pci-00c3", nil)

	updated, cmd := model.Update(SensorChangedMsg{Label: "acpitz"})
	assert.Nil(t, cmd)
	assert.Contains(t, updated.View(), "sensor: acpitz")
}
