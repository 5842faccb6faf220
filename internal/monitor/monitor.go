// Package monitor drives the sampler from a ticker and publishes snapshots.
package monitor

import (
	"context"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/ressmon/internal/config"
	"codeberg.org/mutker/ressmon/internal/errors"
	"codeberg.org/mutker/ressmon/internal/logger"
	"codeberg.org/mutker/ressmon/internal/metrics"
	"codeberg.org/mutker/ressmon/internal/publisher"
	"codeberg.org/mutker/ressmon/internal/sampler"
	"codeberg.org/mutker/ressmon/internal/sensor"
	"codeberg.org/mutker/ressmon/internal/sysinfo"
)

type State int32

const (
	Uninitialized State = iota
	Initializing
	Ready
	ShuttingDown
	Stopped
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case ShuttingDown:
		return "shutting_down"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Ticker is the subset of time.Ticker the monitor uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a Ticker firing every interval.
type TickerFunc func(interval time.Duration) Ticker

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(interval time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(interval)}
}

type Option func(*Monitor)

// WithTicker replaces the wall clock ticker.
func WithTicker(fn TickerFunc) Option {
	return func(m *Monitor) {
		m.newTicker = fn
	}
}

type Monitor struct {
	interval  time.Duration
	source    sysinfo.Source
	log       logger.Logger
	publisher *publisher.Publisher
	newTicker TickerFunc

	selector atomic.Pointer[sensor.Selector]
	sampler  atomic.Pointer[sampler.Sampler]
	state    atomic.Int32
	failing  bool
}

func New(cfg config.Provider, source sysinfo.Source, selector sensor.Selector, log logger.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		interval:  cfg.GetInterval(),
		source:    source,
		log:       log.With("monitor"),
		publisher: publisher.New(),
		newTicker: newTimeTicker,
	}
	m.selector.Store(&selector)

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Monitor) State() State {
	return State(m.state.Load())
}

func (m *Monitor) Publisher() *publisher.Publisher {
	return m.publisher
}

// Latest is shorthand for Publisher().Latest().
func (m *Monitor) Latest() metrics.Snapshot {
	return m.publisher.Latest()
}

// Sensor returns the preferred temperature sensor label.
func (m *Monitor) Sensor() string {
	return m.selector.Load().Preferred()
}

// SetSensor changes the preferred temperature sensor. It is safe to call
// from any goroutine and applies from the next tick.
func (m *Monitor) SetSensor(label string) {
	selector := sensor.NewSelector(label)
	m.selector.Store(&selector)
	if s := m.sampler.Load(); s != nil {
		s.SetPreferred(selector.Preferred())
	}
}

func (m *Monitor) transition(from, to State) error {
	if !m.state.CompareAndSwap(int32(from), int32(to)) {
		return errors.New().WithData(errors.ErrInvalidState, struct {
			From, To, Current string
		}{from.String(), to.String(), m.State().String()})
	}

	m.log.Debug().Str("from", from.String()).Str("to", to.String()).Msg("State changed")

	return nil
}

// Start reads the baseline counters. On failure the monitor is Stopped and
// the error is returned.
func (m *Monitor) Start(ctx context.Context) error {
	if err := m.transition(Uninitialized, Initializing); err != nil {
		return err
	}

	if m.interval <= 0 {
		m.stop(Initializing)
		return errors.New().WithData(errors.ErrInvalidInterval, m.interval.String())
	}

	s, err := sampler.New(ctx, m.source, *m.selector.Load(), m.log)
	if err != nil {
		m.stop(Initializing)
		return errors.New().Wrap(errors.ErrInitFailed, err)
	}
	m.sampler.Store(s)
	// Catch a SetSensor that raced with the baseline read.
	s.SetPreferred(m.Sensor())

	if err := m.transition(Initializing, Ready); err != nil {
		return err
	}

	m.log.Info().Dur("interval", m.interval).Msg("Monitor ready")

	return nil
}

func (m *Monitor) stop(from State) {
	if err := m.transition(from, Stopped); err != nil {
		m.log.Error().Err(err).Msg("Failed to stop monitor")
	}
	m.publisher.Close()
}

// Run refreshes once per tick until ctx is cancelled. Refresh errors are
// logged and the next tick retries. A refresh in progress when ctx is
// cancelled still completes and is published, but no refresh starts after
// cancellation.
func (m *Monitor) Run(ctx context.Context) error {
	if state := m.State(); state != Ready {
		return errors.New().WithData(errors.ErrInvalidState, state.String())
	}

	ticker := m.newTicker(m.interval)

	for {
		select {
		case <-ctx.Done():
			return m.shutdown(ticker)
		case now := <-ticker.C():
			// select picks randomly when a tick and cancellation are both ready.
			if ctx.Err() != nil {
				return m.shutdown(ticker)
			}
			m.tick(context.WithoutCancel(ctx), now)
		}
	}
}

func (m *Monitor) shutdown(ticker Ticker) error {
	if err := m.transition(Ready, ShuttingDown); err != nil {
		return err
	}
	ticker.Stop()
	m.stop(ShuttingDown)
	m.log.Info().Msg("Monitor stopped")

	return nil
}

func (m *Monitor) tick(ctx context.Context, now time.Time) {
	snapshot, err := m.sampler.Load().Refresh(ctx, now)
	if err != nil {
		m.failing = true
		m.logRefreshError(err)
		return
	}

	if m.failing {
		m.failing = false
		m.log.Info().Msg("Sampling recovered")
	}

	if !m.publisher.Set(snapshot) {
		m.log.Debug().Time("timestamp", now).Msg("Dropped out of order snapshot")
	}
}

func (m *Monitor) logRefreshError(err error) {
	switch {
	case errors.Is(err, sampler.ErrCounterRegression):
		m.log.Debug().Err(err).Msg("Counter regression, skipping tick")
	case errors.Is(err, sampler.ErrSourceUnavailable):
		source, _ := sampler.SourceName(err)
		m.log.Warn().Err(err).Str("source", source).Msg("Metric source unavailable, keeping previous snapshot")
	default:
		m.log.Error().Err(err).Msg("Failed to refresh metrics")
	}
}
