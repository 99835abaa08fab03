// Package logging builds the zerolog logger used by the server bootstrap and
// attaches it to the eventbus.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	Disabled   = zerolog.Disabled
)

// Format selects the log encoding.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// Option adjusts a logger after it is created.
type Option func(zerolog.Logger) zerolog.Logger

// WithOutput replaces the output writer. The format still applies.
func WithOutput(out io.Writer) Option {
	return func(l zerolog.Logger) zerolog.Logger { return l.Output(out) }
}

// WithLevel sets the minimum level.
func WithLevel(level Level) Option {
	return func(l zerolog.Logger) zerolog.Logger { return l.Level(level) }
}

// New creates a logger writing to out in the given format.
func New(out io.Writer, format Format, opts ...Option) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}
	w := out
	if format != FormatJSON {
		console := zerolog.ConsoleWriter{Out: out, TimeFormat: time.DateTime, NoColor: true}
		console.FormatLevel = func(i any) string {
			return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
		}
		w = console
	}
	l := zerolog.New(w).With().Timestamp().Logger()
	for _, o := range opts {
		l = o(l)
	}
	return l
}

// ParseLevel accepts zerolog level names; an empty string means info.
func ParseLevel(s string) (Level, error) {
	if s == "" {
		return InfoLevel, nil
	}
	l, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}

// ParseFormat accepts "console" and "json"; an empty string means console.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatConsole:
		return FormatConsole, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("invalid log format %q", s)
}

// WithContext returns a copy of ctx carrying l.
func WithContext(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}

// FromContext returns the logger in ctx, or a disabled logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}
