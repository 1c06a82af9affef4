package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// logging levels
const (
	TRACE = "TRACE"
	DEBUG = "DEBUG"
	INFO  = "INFO"
	WARN  = "WARN"
	ERROR = "ERROR"
)

// output is shared by the root logger and every sub logger
var output = &switchWriter{w: os.Stdout}

var logger = hclog.New(&hclog.LoggerOptions{
	Name:   "kafkalite",
	Level:  hclog.Info,
	Output: output,
})

type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *switchWriter) set(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

// SetLogLevel sets the log level for filtering logs. Unknown levels fall back to INFO.
func SetLogLevel(logLevel string) {
	level := hclog.LevelFromString(logLevel)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	logger.SetLevel(level)
}

// SetOutput redirects every log line to w, including those of loggers
// already returned by Named.
func SetOutput(w io.Writer) {
	output.set(w)
}

// Named returns a sub logger for structured key/value logging
func Named(name string) hclog.Logger {
	return logger.Named(name)
}

// Trace logs a message at TRACE level
func Trace(message string, a ...any) {
	if logger.IsTrace() {
		logger.Trace(fmt.Sprintf(message, a...))
	}
}

// Debug logs a message at DEBUG level
func Debug(message string, a ...any) {
	if logger.IsDebug() {
		logger.Debug(fmt.Sprintf(message, a...))
	}
}

// Info logs a message at INFO level
func Info(message string, a ...any) {
	logger.Info(fmt.Sprintf(message, a...))
}

// Warn logs a message at WARN level
func Warn(message string, a ...any) {
	logger.Warn(fmt.Sprintf(message, a...))
}

// Error logs a message at ERROR level
func Error(message string, a ...any) {
	logger.Error(fmt.Sprintf(message, a...))
}
