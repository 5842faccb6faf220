package sysinfo

import (
	"context"

	"codeberg.org/mutker/ressmon/internal/errors"
	"codeberg.org/mutker/ressmon/internal/logger"
	"codeberg.org/mutker/ressmon/internal/sensor"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	defaultSysfsCPUDir = "/sys/devices/system/cpu"
	defaultCPUInfoPath = "/proc/cpuinfo"
)

const (
	ErrCPUTimesFailed    = errors.ErrorCode("sysinfo_cpu_times_failed")
	ErrFrequencyFailed   = errors.ErrorCode("sysinfo_frequency_failed")
	ErrTemperatureFailed = errors.ErrorCode("sysinfo_temperature_failed")
	ErrMemoryFailed      = errors.ErrorCode("sysinfo_memory_failed")
)

// GPUTemperatures supplies extra thermal readings, such as NVML GPUs.
type GPUTemperatures interface {
	Temperatures() ([]sensor.Reading, error)
}

// System implements Source on gopsutil, with sysfs and procfs readers for
// the current clock frequency.
type System struct {
	sysfsCPUDir string
	cpuInfoPath string
	gpu         GPUTemperatures
	log         logger.Logger
}

// Option configures a System
type Option func(*System)

// WithSysfsCPUDir overrides /sys/devices/system/cpu
func WithSysfsCPUDir(dir string) Option {
	return func(s *System) {
		s.sysfsCPUDir = dir
	}
}

// WithCPUInfo overrides /proc/cpuinfo
func WithCPUInfo(path string) Option {
	return func(s *System) {
		s.cpuInfoPath = path
	}
}

// WithGPU adds a GPU temperature source. nil is ignored.
func WithGPU(gpu GPUTemperatures) Option {
	return func(s *System) {
		s.gpu = gpu
	}
}

// NewSystem returns the host metrics source.
func NewSystem(log logger.Logger, opts ...Option) *System {
	s := &System{
		sysfsCPUDir: defaultSysfsCPUDir,
		cpuInfoPath: defaultCPUInfoPath,
		log:         log,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *System) CPUTimes(ctx context.Context) ([]CPUTimes, error) {
	stats, err := cpu.TimesWithContext(ctx, true)
	if err != nil {
		return nil, errors.New().Wrap(ErrCPUTimesFailed, err)
	}
	if len(stats) == 0 {
		return nil, errors.New().WithData(ErrCPUTimesFailed, "no cores reported")
	}

	times := make([]CPUTimes, 0, len(stats))
	for _, st := range stats {
		times = append(times, fromTimesStat(st))
	}

	return times, nil
}

func fromTimesStat(st cpu.TimesStat) CPUTimes {
	return CPUTimes{
		CPU:  st.CPU,
		Busy: st.User + st.Nice + st.System + st.Irq + st.Softirq + st.Steal,
		Idle: st.Idle + st.Iowait,
	}
}

// Frequencies prefers scaling_cur_freq, then "cpu MHz" from cpuinfo, then
// gopsutil's cpu.Info.
func (s *System) Frequencies(ctx context.Context) ([]float64, error) {
	if freqs, err := readScalingCurFreq(s.sysfsCPUDir); err == nil && len(freqs) > 0 {
		return freqs, nil
	}

	if freqs, err := readCPUInfoMHz(s.cpuInfoPath); err == nil && len(freqs) > 0 {
		return freqs, nil
	}

	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return nil, errors.New().Wrap(ErrFrequencyFailed, err)
	}

	freqs := make([]float64, 0, len(infos))
	for _, info := range infos {
		if info.Mhz > 0 {
			freqs = append(freqs, info.Mhz)
		}
	}

	return freqs, nil
}

// Temperatures merges hwmon sensors with GPU readings. Partial results are
// kept; an error is returned only when nothing could be read.
func (s *System) Temperatures(ctx context.Context) ([]sensor.Reading, error) {
	var readings []sensor.Reading

	temps, hostErr := host.SensorsTemperaturesWithContext(ctx)
	for _, t := range temps {
		readings = append(readings, sensor.Reading{Label: t.SensorKey, Celsius: t.Temperature})
	}
	if hostErr != nil && len(temps) > 0 {
		s.log.Debug().Err(hostErr).Int("sensors", len(temps)).Msg("Partial sensor read")
	}

	var gpuErr error
	if s.gpu != nil {
		var gpuReadings []sensor.Reading
		gpuReadings, gpuErr = s.gpu.Temperatures()
		readings = append(readings, gpuReadings...)
	}

	if len(readings) == 0 && (hostErr != nil || gpuErr != nil) {
		return nil, errors.New().Wrap(ErrTemperatureFailed, errors.Join(hostErr, gpuErr))
	}

	return readings, nil
}

func (s *System) Memory(ctx context.Context) (Memory, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Memory{}, errors.New().Wrap(ErrMemoryFailed, err)
	}

	return Memory{Total: vm.Total, Available: vm.Available}, nil
}
