// Package logging builds the leveled logger handed to every component.
//
// Each Logger gets its own backend, so tests can capture output in a buffer
// without touching process-wide state.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	gologging "gopkg.in/op/go-logging.v1"
)

// Logger is the handle passed to components.
type Logger = gologging.Logger

// Level is a logging severity.
type Level = gologging.Level

const (
	plainFormat = `%{time:2006-01-02T15:04:05.000Z07:00} %{level:-8s} %{module}: %{message}`
	colorFormat = `%{color}%{time:15:04:05.000} %{level:-8s}%{color:reset} %{module}: %{message}`
)

// ParseLevel maps a severity name to a Level. Names are case-insensitive;
// WARN and FATAL are accepted as aliases of WARNING and CRITICAL.
func ParseLevel(name string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "WARN":
		name = "WARNING"
	case "FATAL":
		name = "CRITICAL"
	}
	lvl, err := gologging.LogLevel(strings.TrimSpace(name))
	if err != nil {
		return gologging.INFO, fmt.Errorf("unknown log level %q", name)
	}
	return lvl, nil
}

// New returns a Logger for module writing to w at the given level. Output is
// colored only when w is a terminal.
func New(w io.Writer, level Level, module string) *Logger {
	format := plainFormat
	if isTerminal(w) {
		format = colorFormat
	}
	backend := gologging.NewBackendFormatter(
		gologging.NewLogBackend(w, "", 0),
		gologging.MustStringFormatter(format),
	)
	leveled := gologging.AddModuleLevel(backend)
	leveled.SetLevel(level, "")

	log := gologging.MustGetLogger(module)
	log.SetBackend(leveled)
	return log
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, gologging.CRITICAL, "discard")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
