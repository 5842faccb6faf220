package sysinfo

import (
	"context"

	"codeberg.org/mutker/ressmon/internal/sensor"
)

// Source is the OS metrics facility the sampler reads from.
type Source interface {
	// CPUTimes returns cumulative CPU time per logical core.
	CPUTimes(ctx context.Context) ([]CPUTimes, error)

	// Frequencies returns the instantaneous clock of each core in MHz.
	Frequencies(ctx context.Context) ([]float64, error)

	// Temperatures returns every thermal sensor reading available.
	Temperatures(ctx context.Context) ([]sensor.Reading, error)

	// Memory returns total and available physical memory.
	Memory(ctx context.Context) (Memory, error)
}

// CPUTimes holds the cumulative time of one core split into busy and idle.
//
// busy = user + nice + system + irq + softirq + steal
// idle = idle + iowait
//
// guest and guest_nice are already accounted in user and nice.
type CPUTimes struct {
	CPU  string
	Busy float64
	Idle float64
}

// Memory is a physical memory reading in bytes.
type Memory struct {
	Total     uint64
	Available uint64
}
