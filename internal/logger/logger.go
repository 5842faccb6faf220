package logger

import (
	"io"
	"os"
	"syscall"
	"time"

	"codeberg.org/mutker/ressmon/internal/errors"
	"github.com/rs/zerolog"
)

var log = zerolog.New(os.Stderr).With().Timestamp().Logger()

type LogLevel int8

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

type LogEvent struct {
	*zerolog.Event
}

func (e *LogEvent) Msg(msg string) {
	e.Event.Msg(msg)
}

func (e *LogEvent) Send() {
	e.Event.Send()
}

// ParseLevel maps a configured level name to a LogLevel
func ParseLevel(name string) (LogLevel, error) {
	switch name {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warning", "warn":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return WarnLevel, errors.New().WithData(errors.ErrInvalidLogLevel, name)
	}
}

// Init initializes the package logger. Output goes to w (stderr when nil)
// so that stdout stays free for the terminal panel and one-shot output.
func Init(level LogLevel, isService bool, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}

	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}

	if isService {
		output.TimeFormat = ""
		output.FormatTimestamp = func(_ interface{}) string {
			return ""
		}
	}

	log = zerolog.New(output).With().Timestamp().Logger()

	SetLogLevel(level)
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	zerolog.SetGlobalLevel(zerolog.Level(level))
}

// IsService checks if the application is running as a service
func IsService() bool {
	if _, err := os.Stdin.Stat(); err != nil {
		return true
	}
	if os.Getenv("SERVICE_NAME") != "" || os.Getenv("INVOCATION_ID") != "" {
		return true
	}
	if os.Getppid() == 1 {
		return true
	}

	return syscall.Getpgrp() == syscall.Getpid()
}

// Debug logs a debug message
func Debug() *LogEvent {
	return &LogEvent{log.Debug()}
}

// Info logs an info message
func Info() *LogEvent {
	return &LogEvent{log.Info()}
}

// Warn logs a warning message
func Warn() *LogEvent {
	return &LogEvent{log.Warn()}
}

// Error logs an error message
func Error() *LogEvent {
	return &LogEvent{log.Error()}
}

// ErrorWithCode logs an error message with a specific error code
func ErrorWithCode(err errors.Error) *LogEvent {
	return errorWithCode(log, err)
}

// FatalWithCode logs a fatal message with a specific error code and exits the program
func FatalWithCode(err errors.Error) *LogEvent {
	return withCode(log.Fatal(), err)
}

func errorWithCode(l zerolog.Logger, err errors.Error) *LogEvent {
	return withCode(l.Error(), err)
}

func withCode(e *zerolog.Event, err errors.Error) *LogEvent {
	return &LogEvent{e.
		Str("error_code", string(err.Code())).
		Str("error_message", err.Error()).
		AnErr("error", err.Unwrap())}
}

// componentLogger implements Logger on top of the package logger, tagging
// every event with the owning component.
type componentLogger struct {
	base      *zerolog.Logger
	component string
}

// Default returns a Logger backed by the package logger. Events are built
// from the logger configured by Init at the time they are emitted.
func Default() Logger {
	return componentLogger{}
}

// New returns a Logger writing JSON lines to w, independent of Init.
func New(w io.Writer) Logger {
	l := zerolog.New(w).With().Timestamp().Logger()
	return componentLogger{base: &l}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	l := zerolog.Nop()
	return componentLogger{base: &l}
}

func (c componentLogger) logger() zerolog.Logger {
	l := log
	if c.base != nil {
		l = *c.base
	}
	if c.component != "" {
		l = l.With().Str("component", c.component).Logger()
	}

	return l
}

func (c componentLogger) Debug() *LogEvent {
	l := c.logger()
	return &LogEvent{l.Debug()}
}

func (c componentLogger) Info() *LogEvent {
	l := c.logger()
	return &LogEvent{l.Info()}
}

func (c componentLogger) Warn() *LogEvent {
	l := c.logger()
	return &LogEvent{l.Warn()}
}

func (c componentLogger) Error() *LogEvent {
	l := c.logger()
	return &LogEvent{l.Error()}
}

func (c componentLogger) ErrorWithCode(err errors.Error) *LogEvent {
	return errorWithCode(c.logger(), err)
}

func (c componentLogger) With(component string) Logger {
	c.component = component
	return c
}
