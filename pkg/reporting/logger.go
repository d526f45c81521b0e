package reporting

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/jihwankim/cascade-sim/pkg/config"
)

// LogLevel is a logging verbosity threshold.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat selects how log lines are rendered.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// LoggerConfig configures a Logger.
type LoggerConfig struct {
	Level  LogLevel
	Format LogFormat
	Output io.Writer
}

// Logger wraps zerolog with the key/value call signature used
// throughout the runner and engine wiring code.
type Logger struct {
	z zerolog.Logger
}

// NewLogger builds a Logger from explicit settings.
func NewLogger(cfg LoggerConfig) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	var out io.Writer = cfg.Output
	if cfg.Format == LogFormatText {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.RFC3339}
	}

	z := zerolog.New(out).With().Timestamp().Logger().Level(levelOf(cfg.Level))
	return &Logger{z: z}
}

// NewLoggerFromConfig builds a Logger from a sweep's framework settings -
// the construction path cmd/cascade-sim actually uses.
func NewLoggerFromConfig(fw config.FrameworkConfig) *Logger {
	return NewLogger(LoggerConfig{Level: LogLevel(fw.LogLevel), Format: LogFormat(fw.LogFormat)})
}

func levelOf(l LogLevel) zerolog.Level {
	switch l {
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *Logger) event(e *zerolog.Event, msg string, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, kv[i+1])
	}
	e.Msg(msg)
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.event(l.z.Debug(), msg, kv) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.event(l.z.Info(), msg, kv) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.event(l.z.Warn(), msg, kv) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.event(l.z.Error(), msg, kv) }
func (l *Logger) Fatal(msg string, kv ...interface{}) { l.event(l.z.Fatal(), msg, kv) }

// WithCell returns a child logger carrying a cell's identifying fields,
// so every line an in-flight cell emits is attributable without
// threading the tuple through every call site.
func (l *Logger) WithCell(routing, restoration string, load float64, seed int64) *Logger {
	return &Logger{z: l.z.With().
		Str("routing", routing).
		Str("restoration", restoration).
		Float64("load", load).
		Int64("seed", seed).
		Logger(),
	}
}

// WithField returns a child logger with one additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{z: l.z.With().Interface(key, value).Logger()}
}

// Zerolog exposes the underlying logger for call sites that need raw
// zerolog chaining.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.z
}
