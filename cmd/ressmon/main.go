// Copyright © 2024 Mutker Telag <witty.text5011@fastmail.com>
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"codeberg.org/mutker/ressmon/internal/config"
	"codeberg.org/mutker/ressmon/internal/display"
	"codeberg.org/mutker/ressmon/internal/errors"
	"codeberg.org/mutker/ressmon/internal/logger"
	"codeberg.org/mutker/ressmon/internal/metrics"
	"codeberg.org/mutker/ressmon/internal/monitor"
	"codeberg.org/mutker/ressmon/internal/pid"
	"codeberg.org/mutker/ressmon/internal/sampler"
	"codeberg.org/mutker/ressmon/internal/sensor"
	"codeberg.org/mutker/ressmon/internal/sysinfo"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type app struct {
	cfg      *config.Config
	log      logger.Logger
	gpu      *sensor.GPUSource
	source   sysinfo.Source
	selector sensor.Selector
}

// sensorPicker backs the panel's sensor menu.
type sensorPicker struct {
	ctx     context.Context
	app     *app
	monitor *monitor.Monitor
}

func (p sensorPicker) Sensors() ([]sensor.Reading, error) {
	return p.app.readings(p.ctx)
}

func (p sensorPicker) Select(label string) error {
	path, err := p.app.cfg.SaveSensor(label)
	if err != nil {
		return err
	}
	p.monitor.SetSensor(label)
	p.app.log.Info().Str("sensor", label).Str("config_file", path).Msg("Saved sensor")

	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		var e errors.Error
		if errors.As(err, &e) {
			logger.FatalWithCode(e).Msg("failed to load config")
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 2
	}

	level, err := logger.ParseLevel(cfg.GetLogLevel())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 2
	}

	// The panel owns the terminal, logging would corrupt it.
	var logOutput io.Writer
	if cfg.SelectSensor == "" && !cfg.ListSensors && panelMode(cfg) {
		logOutput = io.Discard
	}
	logger.Init(level, logger.IsService(), logOutput)
	logger.Debug().Str("config_file", cfg.ConfigFile).Msg("Config loaded")

	a := newApp(cfg)
	defer a.cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	switch {
	case cfg.SelectSensor != "":
		err = a.selectSensor(ctx)
	case cfg.ListSensors:
		err = a.listSensors(ctx)
	case cfg.GetOutput() != "":
		err = a.oneShot(ctx)
	default:
		err = a.loop(ctx, cancel)
	}

	if err != nil {
		var e errors.Error
		if errors.As(err, &e) {
			logger.ErrorWithCode(e).Msg("ressmon failed")
		} else {
			logger.Error().Err(err).Msg("ressmon failed")
		}
		fmt.Fprintf(os.Stderr, "ressmon: %v\n", err)
		return 1
	}

	return 0
}

// panelMode reports whether the sampling loop draws the terminal panel.
func panelMode(cfg config.Provider) bool {
	return cfg.GetOutput() == "" && !cfg.IsMonitorMode()
}

func newApp(cfg *config.Config) *app {
	log := logger.Default()
	gpu := sensor.NewGPUSource(log)

	return &app{
		cfg:      cfg,
		log:      log,
		gpu:      gpu,
		source:   sysinfo.NewSystem(log, sysinfo.WithGPU(gpu)),
		selector: sensor.NewSelector(cfg.GetSensor()),
	}
}

func (a *app) cleanup() {
	if err := a.gpu.Close(); err != nil {
		logger.ErrorWithCode(errors.New().Wrap(errors.ErrShutdownFailed, err)).Msg("failed to shut down NVML")
	}
	logger.Debug().Msg("Exiting...")
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

// loop runs the monitor until a signal arrives or the panel is closed.
func (a *app) loop(ctx context.Context, cancel context.CancelFunc) error {
	if err := pid.Write(); err != nil {
		return err
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Error().Err(err).Msg("failed to remove PID file")
		}
	}()

	m := monitor.New(a.cfg, a.source, a.selector, a.log)
	if err := m.Start(ctx); err != nil {
		return err
	}

	updates, unsubscribe := m.Publisher().Subscribe()
	defer unsubscribe()

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	var err error
	if !panelMode(a.cfg) {
		a.watchSensor(func(label string) { m.SetSensor(label) })

		logger.Info().Dur("interval", a.cfg.GetInterval()).Msg("Monitor mode activated. Logging snapshots...")
		for snapshot := range updates {
			logSnapshot(snapshot)
		}
	} else {
		picker := sensorPicker{ctx: ctx, app: a, monitor: m}
		program := tea.NewProgram(display.NewModel(updates, m.Latest(), m.Sensor(), picker))
		a.watchSensor(func(label string) {
			m.SetSensor(label)
			program.Send(display.SensorChangedMsg{Label: label})
		})

		_, err = program.Run()
		cancel()
	}

	if runErr := <-done; runErr != nil {
		return errors.New().Wrap(errors.ErrMainLoop, runErr)
	}
	if err != nil {
		return errors.New().Wrap(errors.ErrMainLoop, err)
	}

	return nil
}

// watchSensor applies sensor changes saved by another ressmon process.
// Failing to watch only loses that, so it is logged and ignored.
func (a *app) watchSensor(apply func(label string)) {
	if err := a.cfg.WatchSensor(apply); err != nil {
		var e errors.Error
		if errors.As(err, &e) {
			logger.ErrorWithCode(e).Msg("Not watching for sensor changes")
		}
	}
}

func logSnapshot(s metrics.Snapshot) {
	event := logger.Info().
		Float64("cpu_percent", s.CPUUsagePercent).
		Float64("frequency_mhz", s.CPUAvgFrequencyMHz).
		Float64("ram_percent", s.RAMUsagePercent)
	if celsius, ok := s.CPUTemperature.Value(); ok {
		event = event.Float64("temperature_c", celsius)
	}
	event.Msg(display.RenderLine(s))
}

// oneShot samples twice one interval apart and prints the snapshot.
func (a *app) oneShot(ctx context.Context) error {
	s, err := sampler.New(ctx, a.source, a.selector, a.log)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return nil
	case <-time.After(a.cfg.GetInterval()):
	}

	snapshot, err := s.Refresh(ctx, time.Now())
	if err != nil {
		return err
	}

	var out []byte
	switch config.OutputFormat(a.cfg.GetOutput()) {
	case config.OutputYAML:
		out, err = yaml.Marshal(snapshot)
	default:
		out, err = json.MarshalIndent(snapshot, "", "  ")
		out = append(out, '\n')
	}
	if err != nil {
		return errors.New().Wrap(errors.ErrInternal, err)
	}

	_, err = os.Stdout.Write(out)
	return err
}

func (a *app) readings(ctx context.Context) ([]sensor.Reading, error) {
	readings, err := a.source.Temperatures(ctx)
	if err != nil && len(readings) == 0 {
		return nil, err
	}

	return readings, nil
}

func (a *app) listSensors(ctx context.Context) error {
	readings, err := a.readings(ctx)
	if err != nil {
		return err
	}

	for _, entry := range sensor.Catalog(readings) {
		marker := "  "
		if strings.EqualFold(entry.Label, a.selector.Preferred()) {
			marker = "* "
		}
		fmt.Println(marker + entry.String())
	}

	return nil
}

// selectSensor accepts a bare label or a line copied from --list-sensors.
func (a *app) selectSensor(ctx context.Context) error {
	label := sensor.ParseEntry(a.cfg.SelectSensor)

	if readings, err := a.readings(ctx); err == nil {
		found := false
		for _, r := range readings {
			if strings.EqualFold(r.Label, label) {
				found = true
				break
			}
		}
		if !found {
			logger.Warn().Str("sensor", label).Msg("Sensor not present, saving anyway")
		}
	}

	path, err := a.cfg.SaveSensor(label)
	if err != nil {
		return err
	}

	fmt.Printf("Saved sensor %q to %s\n", label, path)

	return nil
}
