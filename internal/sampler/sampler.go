// Package sampler turns cumulative OS counters into metric snapshots.
//
// A Sampler keeps the raw counters from its previous read and derives rates
// over the window between two reads. It is not safe for concurrent use: one
// goroutine drives Refresh. SetPreferred may be called from any goroutine.
package sampler

import (
	"context"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/ressmon/internal/logger"
	"codeberg.org/mutker/ressmon/internal/metrics"
	"codeberg.org/mutker/ressmon/internal/sensor"
	"codeberg.org/mutker/ressmon/internal/sysinfo"
)

// counterState holds the cumulative counters of the previous read.
type counterState struct {
	cores []sysinfo.CPUTimes
}

type Sampler struct {
	source   sysinfo.Source
	selector atomic.Pointer[sensor.Selector]
	log      logger.Logger
	state    counterState

	tempAbsent bool
}

// New performs a throwaway baseline read so the first Refresh has a prior
// window. It fails only if CPU times or memory cannot be read; a missing
// thermal sensor is not an error.
func New(ctx context.Context, source sysinfo.Source, selector sensor.Selector, log logger.Logger) (*Sampler, error) {
	s := &Sampler{
		source: source,
		log:    log.With("sampler"),
	}
	s.selector.Store(&selector)

	cores, err := source.CPUTimes(ctx)
	if err != nil {
		return nil, sourceUnavailable(SourceCPUTimes, err)
	}

	if _, err := source.Memory(ctx); err != nil {
		return nil, sourceUnavailable(SourceMemory, err)
	}

	if _, err := source.Temperatures(ctx); err != nil {
		s.log.Info().Err(err).Msg("No thermal sensor available, temperature will be reported as absent")
	}

	s.state.cores = cores

	s.log.Debug().
		Int("cores", len(cores)).
		Str("preferred_sensor", selector.Preferred()).
		Msg("Baseline counters read")

	return s, nil
}

// Refresh reads the counters, derives a snapshot for the window since the
// previous read and makes the new counters the baseline.
//
// ErrCounterRegression is returned when a cumulative counter decreased; no
// snapshot is produced but the baseline still advances, so the next call
// succeeds. ErrSourceUnavailable is returned when CPU times or memory cannot
// be read; the baseline is kept.
func (s *Sampler) Refresh(ctx context.Context, now time.Time) (metrics.Snapshot, error) {
	cores, err := s.source.CPUTimes(ctx)
	if err != nil {
		return metrics.Snapshot{}, sourceUnavailable(SourceCPUTimes, err)
	}

	memory, err := s.source.Memory(ctx)
	if err != nil {
		return metrics.Snapshot{}, sourceUnavailable(SourceMemory, err)
	}

	ramUsage, err := ramUsagePercent(memory)
	if err != nil {
		return metrics.Snapshot{}, err
	}

	prev := s.state.cores
	s.state.cores = cores

	coreUsage, err := coreUsages(prev, cores)
	if err != nil {
		return metrics.Snapshot{}, err
	}

	return metrics.Snapshot{
		Timestamp:          now,
		CPUUsagePercent:    mean(coreUsage),
		CoreUsagePercent:   coreUsage,
		CPUAvgFrequencyMHz: s.averageFrequency(ctx),
		CPUTemperature:     s.temperature(ctx),
		RAMUsagePercent:    ramUsage,
		Sampled:            true,
	}, nil
}

func (s *Sampler) averageFrequency(ctx context.Context) float64 {
	freqs, err := s.source.Frequencies(ctx)
	if err != nil {
		s.log.Debug().Err(err).Msg("Failed to read CPU frequency")
		return 0
	}

	return max(mean(freqs), 0)
}

// Preferred returns the sensor label the next Refresh prefers.
func (s *Sampler) Preferred() string {
	return s.selector.Load().Preferred()
}

// SetPreferred switches the preferred sensor from the next Refresh on.
func (s *Sampler) SetPreferred(label string) {
	selector := sensor.NewSelector(label)
	if prev := s.selector.Swap(&selector); prev.Preferred() != selector.Preferred() {
		s.log.Info().Str("sensor", selector.Preferred()).Msg("Preferred sensor changed")
	}
}

func (s *Sampler) temperature(ctx context.Context) metrics.Temperature {
	readings, err := s.source.Temperatures(ctx)
	if err != nil {
		readings = nil
	}

	temp := s.selector.Load().Select(readings)

	// Log transitions only, a machine without sensors would otherwise log
	// every tick.
	if absent := !temp.Present(); absent != s.tempAbsent {
		s.tempAbsent = absent
		if absent {
			s.log.Debug().Err(err).Msg("CPU temperature unavailable")
		} else {
			s.log.Debug().Msg("CPU temperature available")
		}
	}

	return temp
}

// coreUsages computes busy/(busy+idle) per core over the window between
// prev and cur. A changed core count or any decreasing counter makes the
// window invalid.
func coreUsages(prev, cur []sysinfo.CPUTimes) ([]float64, error) {
	if len(prev) != len(cur) {
		return nil, counterRegression("", "core_count", float64(len(prev)), float64(len(cur)))
	}

	usage := make([]float64, len(cur))
	for i := range cur {
		if cur[i].Busy < prev[i].Busy {
			return nil, counterRegression(cur[i].CPU, "busy", prev[i].Busy, cur[i].Busy)
		}
		if cur[i].Idle < prev[i].Idle {
			return nil, counterRegression(cur[i].CPU, "idle", prev[i].Idle, cur[i].Idle)
		}

		usage[i] = UsagePercent(cur[i].Busy-prev[i].Busy, cur[i].Idle-prev[i].Idle)
	}

	return usage, nil
}

// UsagePercent returns busyDelta/(busyDelta+idleDelta)*100 clamped to
// [0,100]. An empty window is 0%.
func UsagePercent(busyDelta, idleDelta float64) float64 {
	total := busyDelta + idleDelta
	if total <= 0 {
		return 0
	}

	return clamp(busyDelta/total*100, 0, 100)
}

// ramUsagePercent returns (total-available)/total*100. A zero total means
// the memory source reported nothing usable.
func ramUsagePercent(m sysinfo.Memory) (float64, error) {
	if m.Total == 0 {
		return 0, sourceUnavailable(SourceMemory, nil)
	}
	if m.Available >= m.Total {
		return 0, nil
	}

	return float64(m.Total-m.Available) / float64(m.Total) * 100, nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

func clamp(value, minValue, maxValue float64) float64 {
	if value < minValue {
		return minValue
	}
	if value > maxValue {
		return maxValue
	}

	return value
}
