// Package logger is the structured logging surface shared by the cph engine
// and CLI. Engine packages take a *Logger through their WithLogger options; a
// nil *Logger discards everything.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options selects level, format and destination. Writer defaults to stderr.
// HumanReadable switches from JSON lines to zerolog's console format.
type Options struct {
	Level         string
	HumanReadable bool
	Writer        io.Writer
}

// Logger carries run-scoped fields (run_id, mode, node_id) down the call
// chain through With and WithFields.
type Logger struct {
	base zerolog.Logger
}

// New builds a Logger. An empty level means info; unknown levels are an error.
func New(opts Options) (*Logger, error) {
	level, err := parseLevel(opts.Level, zerolog.InfoLevel)
	if err != nil {
		return nil, err
	}

	base := zerolog.New(sink(opts)).Level(level).With().Timestamp().Logger()
	return &Logger{base: base}, nil
}

// Nop returns a logger that drops everything.
func Nop() *Logger {
	return &Logger{base: zerolog.Nop()}
}

func sink(opts Options) io.Writer {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	if !opts.HumanReadable {
		return w
	}
	console := zerolog.NewConsoleWriter()
	console.Out = w
	console.TimeFormat = time.TimeOnly
	return console
}

func parseLevel(name string, fallback zerolog.Level) (zerolog.Level, error) {
	if strings.TrimSpace(name) == "" {
		return fallback, nil
	}
	return zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
}

// WithFields derives a logger that adds fields to every entry.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	if l == nil {
		return nil
	}
	ctx := l.base.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{base: ctx.Logger()}
}

// With is WithFields for a single field.
func (l *Logger) With(key string, value any) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{base: l.base.With().Interface(key, value).Logger()}
}

func (l *Logger) Debug(msg string) {
	if l != nil {
		l.base.Debug().Msg(msg)
	}
}

func (l *Logger) Info(msg string) {
	if l != nil {
		l.base.Info().Msg(msg)
	}
}

func (l *Logger) Warn(msg string) {
	if l != nil {
		l.base.Warn().Msg(msg)
	}
}

// Error logs msg at error level. err may be nil when the failure is described
// by fields alone, as with a non-zero exit code.
func (l *Logger) Error(err error, msg string) {
	if l == nil {
		return
	}
	event := l.base.Error()
	if err != nil {
		event = event.Err(err)
	}
	event.Msg(msg)
}

// Enabled reports whether entries at level would be written. Unknown levels
// report false.
func (l *Logger) Enabled(level string) bool {
	if l == nil {
		return false
	}
	parsed, err := parseLevel(level, zerolog.NoLevel)
	if err != nil || parsed == zerolog.NoLevel {
		return false
	}
	return parsed >= l.base.GetLevel()
}
