package config

import "strings"

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// NormalizeLogLevel maps free-form input to a LogLevel, defaulting to info.
func NormalizeLogLevel(raw string) LogLevel {
	switch l := LogLevel(clean(raw)); l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return l
	case "warning":
		return LogLevelWarn
	}
	return LogLevelInfo
}

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// NormalizeLogFormat maps free-form input to a LogFormat, defaulting to text.
func NormalizeLogFormat(raw string) LogFormat {
	if LogFormat(clean(raw)) == LogFormatJSON {
		return LogFormatJSON
	}
	return LogFormatText
}

// StoreBackend selects the session store implementation.
type StoreBackend string

const (
	StoreMemory   StoreBackend = "memory"
	StoreSQLite   StoreBackend = "sqlite"
	StoreNATS     StoreBackend = "nats"
	StoreDisabled StoreBackend = "disabled"
)

// FragmentSource selects where fragments are read from.
type FragmentSource string

const (
	FragmentSourceHTTP FragmentSource = "http"
	FragmentSourceDir  FragmentSource = "dir"
)

// BackoffMode selects how retry delays grow.
type BackoffMode string

const (
	BackoffFixed       BackoffMode = "fixed"
	BackoffLinear      BackoffMode = "linear"
	BackoffExponential BackoffMode = "exponential"
)

// RUMSink selects where sampled events go.
type RUMSink string

const (
	RUMSinkLog  RUMSink = "log"
	RUMSinkNATS RUMSink = "nats"
)

func clean(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
