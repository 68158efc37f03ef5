/*
 * jdecomp - a Java class-file decompiler
 * Licensed under the Mozilla Public License 2.0 (MPL 2.0)
 */

// Package trace is the decompiler's structured logging sink. It keeps the
// small call-site API Jacobin exposes from its own jacobin/trace package
// -- Trace/Error/Init/SetLevel -- but backs it with github.com/rs/zerolog
// instead of a hand-rolled writer, since zerolog is the structured-logging
// library of choice across comparable VM/emulator tooling.
package trace

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Level mirrors Jacobin's FINE/INFO/SEVERE level names.
type Level int

const (
	FINE Level = iota
	INFO
	SEVERE
)

var (
	mu      sync.Mutex
	logger  zerolog.Logger
	minimum Level
	inited  bool
)

// Init wires the package-level Logger to stderr in human-readable form.
// Safe to call more than once; later calls reset the sink.
func Init() {
	initWith(os.Stderr)
}

// InitWriter is Init but with a caller-supplied sink, used by tests that
// want to capture log output.
func InitWriter(w io.Writer) {
	initWith(w)
}

func initWith(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).With().Timestamp().Logger()
	minimum = INFO
	inited = true
}

// SetLevel changes the minimum level that reaches the sink.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	minimum = l
}

func ensureInit() {
	mu.Lock()
	already := inited
	mu.Unlock()
	if !already {
		Init()
	}
}

// Trace logs an informational message at FINE level.
func Trace(msg string) { logAt(FINE, msg) }

// Info logs at INFO level.
func Info(msg string) { logAt(INFO, msg) }

// Error logs at SEVERE level.
func Error(msg string) { logAt(SEVERE, msg) }

func logAt(level Level, msg string) {
	ensureInit()
	mu.Lock()
	l := logger
	min := minimum
	mu.Unlock()
	if level < min {
		return
	}
	switch level {
	case FINE:
		l.Debug().Msg(msg)
	case INFO:
		l.Info().Msg(msg)
	case SEVERE:
		l.Error().Msg(msg)
	}
}

// Class returns a logger pre-bound with a "class" field, used by the
// driver to tag every diagnostic it emits for one decompilation.
func Class(name string) zerolog.Logger {
	ensureInit()
	mu.Lock()
	defer mu.Unlock()
	return logger.With().Str("class", name).Logger()
}
