package sensor

import (
	"testing"

	"codeberg.org/mutker/ressmon/internal/errors"
	"codeberg.org/mutker/ressmon/internal/logger"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	name string
	temp uint32
	ret  nvml.Return
}

func (d *fakeDevice) GetName() (string, nvml.Return) {
	return d.name, nvml.SUCCESS
}

func (d *fakeDevice) GetTemperature(nvml.TemperatureSensors) (uint32, nvml.Return) {
	return d.temp, d.ret
}

type fakeNVML struct {
	initErr  error
	devices  []*fakeDevice
	shutdown int
}

func (f *fakeNVML) Initialize() error { return f.initErr }

func (f *fakeNVML) Shutdown() error {
	f.shutdown++
	return nil
}

func (f *fakeNVML) GetDeviceCount() (int, error) { return len(f.devices), nil }

func (f *fakeNVML) GetDevice(index int) (gpuDevice, error) { return f.devices[index], nil }

func TestGPUSourceUnavailable(t *testing.T) {
	ctrl := &fakeNVML{initErr: errors.New().New(ErrNVMLInitFailed)}
	src := newGPUSource(ctrl, logger.Nop())

	assert.False(t, src.Available())
	readings, err := src.Temperatures()
	require.NoError(t, err)
	assert.Empty(t, readings)
}

func TestGPUSourceReadsAllDevices(t *testing.T) {
	ctrl := &fakeNVML{devices: []*fakeDevice{
		{name: "RTX 4070", temp: 48, ret: nvml.SUCCESS},
		{name: "RTX 3060", temp: 61, ret: nvml.SUCCESS},
	}}
	src := newGPUSource(ctrl, logger.Nop())
	require.True(t, src.Available())

	readings, err := src.Temperatures()
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, Reading{Label: "nvidia RTX 4070 #0", Celsius: 48}, readings[0])
	assert.Equal(t, KindGPU, Classify(readings[1].Label))

	require.NoError(t, src.Close())
	assert.Equal(t, 1, ctrl.shutdown)
	assert.False(t, src.Available())
}

func TestGPUSourceSkipsFailedDevice(t *testing.T) {
	ctrl := &fakeNVML{devices: []*fakeDevice{
		{name: "a", ret: nvml.ERROR_NOT_SUPPORTED},
		{name: "b", temp: 55, ret: nvml.SUCCESS},
	}}
	src := newGPUSource(ctrl, logger.Nop())

	readings, err := src.Temperatures()
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, 55.0, readings[0].Celsius)
}

func TestGPUSourceAllDevicesFail(t *testing.T) {
	ctrl := &fakeNVML{devices: []*fakeDevice{{name: "a", ret: nvml.ERROR_GPU_IS_LOST}}}
	src := newGPUSource(ctrl, logger.Nop())

	readings, err := src.Temperatures()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.New().New(ErrTemperatureRead)))
	assert.Empty(t, readings)
}
