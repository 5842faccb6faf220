// Package display renders snapshots in a terminal panel built on
// bubbletea. The model listens on a publisher subscription and redraws on
// every new snapshot.
package display

import (
	"strings"

	"codeberg.org/mutker/ressmon/internal/metrics"
	"codeberg.org/mutker/ressmon/internal/sensor"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	lineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	faintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)
)

// snapshotMsg delivers a published snapshot through the bubbletea loop.
type snapshotMsg struct {
	snapshot metrics.Snapshot
}

// updatesClosedMsg is sent when the subscription ends.
type updatesClosedMsg struct{}

type sensorsLoadedMsg struct {
	entries []sensor.Entry
	err     error
}

type sensorSelectedMsg struct {
	label string
	err   error
}

// SensorChangedMsg tells the panel the preferred sensor was changed
// outside of it.
type SensorChangedMsg struct {
	Label string
}

// SensorPicker lists the thermal sensors and applies the one chosen in the
// sensor menu.
type SensorPicker interface {
	Sensors() ([]sensor.Reading, error)
	Select(label string) error
}

type Model struct {
	updates   <-chan metrics.Snapshot
	snapshot  metrics.Snapshot
	sensor    string
	showCores bool
	width     int

	picker  SensorPicker
	picking bool
	entries []sensor.Entry
	cursor  int
	status  string
}

// NewModel draws initial until the first update arrives on updates. The
// sensor menu is disabled when picker is nil.
func NewModel(updates <-chan metrics.Snapshot, initial metrics.Snapshot, sensor string, picker SensorPicker) Model {
	return Model{
		updates:  updates,
		snapshot: initial,
		sensor:   sensor,
		picker:   picker,
	}
}

func (model Model) Snapshot() metrics.Snapshot {
	return model.snapshot
}

func (model Model) Init() tea.Cmd {
	return listenForSnapshot(model.updates)
}

// listenForSnapshot blocks until a snapshot arrives on the subscription.
func listenForSnapshot(updates <-chan metrics.Snapshot) tea.Cmd {
	if updates == nil {
		return nil
	}

	return func() tea.Msg {
		snapshot, ok := <-updates
		if !ok {
			return updatesClosedMsg{}
		}
		return snapshotMsg{snapshot: snapshot}
	}
}

func loadSensors(picker SensorPicker) tea.Cmd {
	return func() tea.Msg {
		readings, err := picker.Sensors()
		return sensorsLoadedMsg{entries: sensor.Catalog(readings), err: err}
	}
}

func selectSensor(picker SensorPicker, label string) tea.Cmd {
	return func() tea.Msg {
		return sensorSelectedMsg{label: label, err: picker.Select(label)}
	}
}

func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case snapshotMsg:
		model.snapshot = message.snapshot
		return model, listenForSnapshot(model.updates)

	case updatesClosedMsg:
		return model, tea.Quit

	case tea.WindowSizeMsg:
		model.width = message.Width
		return model, nil

	case sensorsLoadedMsg:
		model.status = ""
		switch {
		case message.err != nil:
			model.status = "Failed to list sensors: " + message.err.Error()
		case len(message.entries) == 0:
			model.status = "No thermal sensors found"
		default:
			model.picking = true
			model.entries = message.entries
			model.cursor = 0
			for i, entry := range model.entries {
				if strings.EqualFold(entry.Label, model.sensor) {
					model.cursor = i
					break
				}
			}
		}
		return model, nil

	case sensorSelectedMsg:
		if message.err != nil {
			model.status = "Failed to save sensor: " + message.err.Error()
			return model, nil
		}
		model.sensor = message.label
		model.status = "Sensor set to " + message.label
		return model, nil

	case SensorChangedMsg:
		model.sensor = message.Label
		return model, nil

	case tea.KeyMsg:
		if model.picking {
			return model.updateMenu(message)
		}

		switch message.String() {
		case "q", "esc", "ctrl+c":
			return model, tea.Quit
		case "c":
			model.showCores = !model.showCores
		case "s":
			if model.picker != nil {
				model.status = "Loading sensors..."
				return model, loadSensors(model.picker)
			}
		}
		return model, nil
	}

	return model, nil
}

func (model Model) updateMenu(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "q", "ctrl+c":
		return model, tea.Quit
	case "esc", "s":
		model.picking = false
	case "up", "k":
		model.cursor = max(model.cursor-1, 0)
	case "down", "j":
		model.cursor = min(model.cursor+1, len(model.entries)-1)
	case "enter":
		model.picking = false
		return model, selectSensor(model.picker, model.entries[model.cursor].Label)
	}

	return model, nil
}

func (model Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("ressmon"))
	if model.sensor != "" {
		b.WriteString(faintStyle.Render("  sensor: " + model.sensor))
	}
	b.WriteString("\n")

	switch {
	case model.picking:
		b.WriteString(lineStyle.Render("Select sensor"))
		for i, entry := range model.entries {
			b.WriteString("\n")
			if i == model.cursor {
				b.WriteString(titleStyle.Render("> " + entry.String()))
			} else {
				b.WriteString("  " + entry.String())
			}
		}
	case !model.snapshot.Sampled:
		b.WriteString(faintStyle.Render("Sampling..."))
	default:
		b.WriteString(lineStyle.Render(RenderLine(model.snapshot)))
		if model.showCores {
			for _, line := range RenderCores(model.snapshot) {
				b.WriteString("\n")
				b.WriteString(line)
			}
		}
	}

	if model.status != "" {
		b.WriteString("\n")
		b.WriteString(faintStyle.Render(model.status))
	}

	b.WriteString("\n")
	b.WriteString(faintStyle.Render(model.help()))

	panel := panelStyle
	if model.width > 0 {
		panel = panel.MaxWidth(model.width)
	}

	return panel.Render(b.String()) + "\n"
}

func (model Model) help() string {
	switch {
	case model.picking:
		return "↑/↓ move · enter save · esc back"
	case model.picker != nil:
		return "q quit · c cores · s sensor"
	default:
		return "q quit · c cores"
	}
}
