package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrAlreadyRunning  ErrorCode = "already_running"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrWriteConfig     ErrorCode = "write_config_failed"
	ErrWatchConfig     ErrorCode = "watch_config_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"
	ErrInvalidOutput   ErrorCode = "invalid_output_format"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Application errors
	ErrMainLoop     ErrorCode = "main_loop_failed"
	ErrInvalidState ErrorCode = "invalid_state_transition"

	// Sampling errors
	ErrCounterRegression ErrorCode = "sampler_counter_regression"
	ErrSourceUnavailable ErrorCode = "sampler_source_unavailable"
)

var errorMessages = map[ErrorCode]string{
	ErrInternal:          "Internal error occurred",
	ErrInvalidArgument:   "Invalid argument provided",
	ErrAlreadyRunning:    "Another instance is already running",
	ErrInvalidConfig:     "Invalid configuration",
	ErrBindFlags:         "Failed to bind flags",
	ErrReadConfig:        "Failed to read config file",
	ErrWriteConfig:       "Failed to write config file",
	ErrWatchConfig:       "Failed to watch config file",
	ErrInvalidInterval:   "Invalid interval value",
	ErrInvalidOutput:     "Invalid output format",
	ErrInvalidLogLevel:   "Invalid log level",
	ErrInitFailed:        "Initialization failed",
	ErrShutdownFailed:    "Shutdown failed",
	ErrMainLoop:          "Error in main loop",
	ErrInvalidState:      "Invalid state transition",
	ErrCounterRegression: "Cumulative counter decreased since last read",
	ErrSourceUnavailable: "Mandatory metric source unavailable",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
