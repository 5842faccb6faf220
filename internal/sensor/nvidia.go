package sensor

import (
	"fmt"
	"sync"

	"codeberg.org/mutker/ressmon/internal/errors"
	"codeberg.org/mutker/ressmon/internal/logger"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

const (
	ErrNVMLInitFailed     = errors.ErrorCode("sensor_nvml_init_failed")
	ErrNVMLShutdownFailed = errors.ErrorCode("sensor_nvml_shutdown_failed")
	ErrDeviceCountFailed  = errors.ErrorCode("sensor_nvml_device_count_failed")
	ErrDeviceNotFound     = errors.ErrorCode("sensor_nvml_device_not_found")
	ErrTemperatureRead    = errors.ErrorCode("sensor_nvml_temperature_read_failed")
)

// nvmlError represents an NVML-specific error
type nvmlError struct {
	ret nvml.Return
}

func (e nvmlError) Error() string {
	return nvml.ErrorString(e.ret)
}

func newNVMLError(ret nvml.Return) error {
	if ret == nvml.SUCCESS {
		return nil
	}
	return &nvmlError{ret: ret}
}

func isNVMLSuccess(ret nvml.Return) bool {
	return ret == nvml.SUCCESS
}

// gpuDevice is the part of nvml.Device used for thermal readings.
type gpuDevice interface {
	GetName() (string, nvml.Return)
	GetTemperature(nvml.TemperatureSensors) (uint32, nvml.Return)
}

// nvmlController abstracts NVML library calls for testing
type nvmlController interface {
	Initialize() error
	Shutdown() error
	GetDeviceCount() (int, error)
	GetDevice(index int) (gpuDevice, error)
}

type nvmlWrapper struct {
	initialized bool
}

func (w *nvmlWrapper) Initialize() error {
	if w.initialized {
		return nil
	}

	if ret := nvml.Init(); !isNVMLSuccess(ret) {
		return errors.New().Wrap(ErrNVMLInitFailed, newNVMLError(ret))
	}
	w.initialized = true

	return nil
}

func (w *nvmlWrapper) Shutdown() error {
	if !w.initialized {
		return nil
	}

	if ret := nvml.Shutdown(); !isNVMLSuccess(ret) {
		return errors.New().Wrap(ErrNVMLShutdownFailed, newNVMLError(ret))
	}
	w.initialized = false

	return nil
}

func (w *nvmlWrapper) GetDeviceCount() (int, error) {
	count, ret := nvml.DeviceGetCount()
	if !isNVMLSuccess(ret) {
		return 0, errors.New().Wrap(ErrDeviceCountFailed, newNVMLError(ret))
	}

	return count, nil
}

func (w *nvmlWrapper) GetDevice(index int) (gpuDevice, error) {
	device, ret := nvml.DeviceGetHandleByIndex(index)
	if !isNVMLSuccess(ret) {
		return nil, errors.New().Wrap(ErrDeviceNotFound, newNVMLError(ret))
	}

	return device, nil
}

// GPUSource reads NVIDIA GPU temperatures through NVML. Machines without
// the NVIDIA driver simply report no readings.
type GPUSource struct {
	ctrl      nvmlController
	log       logger.Logger
	mu        sync.Mutex
	available bool
	devices   []gpuDevice
	labels    []string
}

// NewGPUSource loads NVML and enumerates devices. It never fails: a missing
// driver leaves the source empty.
func NewGPUSource(log logger.Logger) *GPUSource {
	return newGPUSource(&nvmlWrapper{}, log)
}

func newGPUSource(ctrl nvmlController, log logger.Logger) *GPUSource {
	g := &GPUSource{ctrl: ctrl, log: log}

	if err := ctrl.Initialize(); err != nil {
		log.Debug().Err(err).Msg("NVML not available, skipping GPU sensors")
		return g
	}

	count, err := ctrl.GetDeviceCount()
	if err != nil {
		log.Debug().Err(err).Msg("Failed to count NVIDIA devices")
		return g
	}

	for i := 0; i < count; i++ {
		device, err := ctrl.GetDevice(i)
		if err != nil {
			log.Debug().Err(err).Int("index", i).Msg("Failed to get NVIDIA device")
			continue
		}

		name, ret := device.GetName()
		if !isNVMLSuccess(ret) {
			name = "gpu"
		}
		g.devices = append(g.devices, device)
		g.labels = append(g.labels, fmt.Sprintf("nvidia %s #%d", name, i))
	}

	g.available = len(g.devices) > 0
	if g.available {
		log.Info().Int("devices", len(g.devices)).Msg("Detected NVIDIA GPUs")
	}

	return g
}

// Available reports whether any GPU was found.
func (g *GPUSource) Available() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.available
}

// Temperatures returns one reading per GPU. Devices whose read fails are
// skipped; the error is returned only when every device failed.
func (g *GPUSource) Temperatures() ([]Reading, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.available {
		return nil, nil
	}

	readings := make([]Reading, 0, len(g.devices))
	var lastErr error
	for i, device := range g.devices {
		temp, ret := device.GetTemperature(nvml.TEMPERATURE_GPU)
		if !isNVMLSuccess(ret) {
			lastErr = errors.New().Wrap(ErrTemperatureRead, newNVMLError(ret))
			continue
		}
		readings = append(readings, Reading{Label: g.labels[i], Celsius: float64(temp)})
	}

	if len(readings) == 0 && lastErr != nil {
		return nil, lastErr
	}

	return readings, nil
}

// Close releases NVML.
func (g *GPUSource) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.available = false
	g.devices = nil

	return g.ctrl.Shutdown()
}
