package sampler

import (
	"fmt"

	"codeberg.org/mutker/ressmon/internal/errors"
)

// Mandatory source names reported by SourceError.
const (
	SourceCPUTimes = "cpu_times"
	SourceMemory   = "memory"
)

// Sentinels for errors.Is. Any error carrying the same code matches.
var (
	ErrCounterRegression = errors.New().New(errors.ErrCounterRegression)
	ErrSourceUnavailable = errors.New().New(errors.ErrSourceUnavailable)
)

// SourceError names the mandatory source that could not be read.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	if e.Err == nil {
		return e.Source
	}
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

func sourceUnavailable(source string, err error) error {
	return errors.New().Wrap(errors.ErrSourceUnavailable, &SourceError{Source: source, Err: err})
}

// SourceName returns the failing source of an ErrSourceUnavailable error.
func SourceName(err error) (string, bool) {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Source, true
	}

	return "", false
}

func counterRegression(cpu, counter string, prev, cur float64) error {
	return errors.New().WithData(errors.ErrCounterRegression, struct {
		CPU      string
		Counter  string
		Previous float64
		Current  float64
	}{
		CPU:      cpu,
		Counter:  counter,
		Previous: prev,
		Current:  cur,
	})
}
