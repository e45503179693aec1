//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: slogger.go (teacher's SLogger interface and discard default)
//

package webhouse

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Logger is the structured-logging contract used throughout webhouse.
//
// This generalizes the teacher's SLogger (Debug/Info over a fixed pair of
// levels) into the shape the component hierarchy needs: With derives a
// sub-logger scoped to a named path segment (so every log line below a
// component carries its full dotted name), Event emits one structured
// record, and NewId mints a correlation id (a connection id, a span id,
// ...) using the logger's own id source.
//
// Event args follow the [log/slog] convention: alternating key, value
// pairs, or slog.Attr values.
type Logger interface {
	// With returns a sub-logger scoped to the given context segment.
	With(context string) Logger

	// Event emits one structured log record of the given event type.
	Event(eventType string, args ...any)

	// NewId mints a fresh correlation id.
	NewId() string
}

// DefaultLogger returns the default [Logger], which discards all output.
//
// This follows the teacher's convention of not writing to stdout/stderr
// unless explicitly configured.
func DefaultLogger() Logger {
	return discardLogger{}
}

type discardLogger struct{}

var _ Logger = discardLogger{}

func (discardLogger) With(context string) Logger        { return discardLogger{} }
func (discardLogger) Event(eventType string, args ...any) {}
func (discardLogger) NewId() string                       { return newUUIDv7() }

// NewSlogLogger adapts a [*slog.Logger] to [Logger], preserving the
// teacher's choice of [log/slog] as a first-class backend. Event records
// are emitted at [slog.LevelInfo].
func NewSlogLogger(base *slog.Logger) Logger {
	if base == nil {
		base = slog.Default()
	}
	return &slogLogger{base: base}
}

type slogLogger struct {
	base *slog.Logger
	path string
}

var _ Logger = &slogLogger{}

func (l *slogLogger) With(context string) Logger {
	path := context
	if l.path != "" {
		path = l.path + "." + context
	}
	return &slogLogger{base: l.base.With(slog.String("component", path)), path: path}
}

func (l *slogLogger) Event(eventType string, args ...any) {
	l.base.Info(eventType, args...)
}

func (l *slogLogger) NewId() string {
	return newUUIDv7()
}

// NewZerologLogger adapts a [zerolog.Logger] to [Logger]. This is the
// production backend wired from [cuemby/warren]'s logging stack: the
// interface is fixed by the spec, the backend is swappable, exactly the
// teacher's SLogger-accepts-any-slog-handler pattern generalized to a
// second concrete backend.
func NewZerologLogger(base zerolog.Logger) Logger {
	return &zerologLogger{base: base}
}

type zerologLogger struct {
	base zerolog.Logger
	path string
}

var _ Logger = &zerologLogger{}

func (l *zerologLogger) With(context string) Logger {
	path := context
	if l.path != "" {
		path = l.path + "." + context
	}
	return &zerologLogger{base: l.base.With().Str("component", path).Logger(), path: path}
}

func (l *zerologLogger) Event(eventType string, args ...any) {
	ev := l.base.Info().Str("event", eventType)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, args[i+1])
	}
	ev.Msg(eventType)
}

func (l *zerologLogger) NewId() string {
	return newUUIDv7()
}

// newUUIDv7 returns a fresh time-ordered UUIDv7 string, used as the
// default correlation id source for [Logger.NewId] and connection ids.
func newUUIDv7() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Extraordinarily unlikely (system CSPRNG failure); fall back to
		// a random v4 rather than panicking a request-serving goroutine.
		return uuid.New().String()
	}
	return id.String()
}
