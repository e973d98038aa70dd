// Package logging hands out per-component loggers built on echo's gommon
// logger, so application and HTTP logs share one format.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/labstack/gommon/log"
)

// Header renders as "2025-01-01T10:00:00Z INFO [DuckStore]".
const Header = "${time_rfc3339} ${level} [${prefix}]"

var (
	mu      sync.Mutex
	level   = log.INFO
	output  io.Writer = os.Stdout
	loggers = make(map[string]*log.Logger)
)

// New returns the logger for component, creating it on first use.
func New(component string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[component]; ok {
		return l
	}
	l := log.New(component)
	l.SetHeader(Header)
	l.SetLevel(level)
	l.SetOutput(output)
	loggers[component] = l
	return l
}

// ParseLevel maps a config level name to a gommon level.
// Unknown names fall back to INFO.
func ParseLevel(name string) log.Lvl {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off", "none":
		return log.OFF
	default:
		return log.INFO
	}
}

// SetLevel changes the level of every logger, including ones created later.
func SetLevel(name string) log.Lvl {
	mu.Lock()
	defer mu.Unlock()

	level = ParseLevel(name)
	for _, l := range loggers {
		l.SetLevel(level)
	}
	return level
}

// SetOutput redirects every logger. Tests use it to silence output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	output = w
	for _, l := range loggers {
		l.SetOutput(w)
	}
}
