package config

import "time"

// Provider defines the interface for accessing configuration values.
// All values are immutable after loading.
type Provider interface {
	// GetInterval returns the sampling interval
	GetInterval() time.Duration

	// GetLogLevel returns the configured logging level
	GetLogLevel() string

	// GetSensor returns the preferred temperature sensor label
	GetSensor() string

	// IsMonitorMode returns whether snapshots are logged instead of drawn
	IsMonitorMode() bool

	// GetOutput returns the one-shot output format, empty when disabled
	GetOutput() string
}

// Option defines a configuration option that can be passed to Load
type Option func(*options)

type options struct {
	configPath string
	args       []string
}

// WithConfigFile specifies an explicit configuration file path
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.configPath = path
	}
}

// WithArgs replaces the command line arguments, os.Args[1:] by default
func WithArgs(args []string) Option {
	return func(o *options) {
		o.args = args
	}
}

// LogLevel represents valid logging levels
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// IsValid returns whether the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
		return true
	default:
		return false
	}
}

func (l LogLevel) String() string {
	return string(l)
}

// OutputFormat selects the one-shot output encoding
type OutputFormat string

const (
	OutputNone OutputFormat = ""
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
)

func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputNone, OutputJSON, OutputYAML:
		return true
	default:
		return false
	}
}
