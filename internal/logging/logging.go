// Package logging is the append-only text sink the snapshot engine writes to.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
)

const (
	DebugLevel = "DEBUG"
	InfoLevel  = "INFO"
	WarnLevel  = "WARN"
	ErrorLevel = "ERROR"
)

// Sink receives log lines. Implementations must not panic and never report
// failures back to the caller.
type Sink interface {
	Log(message, level string)
}

type Options struct {
	// Path of the log file lines are appended to. Empty disables the file.
	Path string
	// Level is the minimum level written (DEBUG, INFO, WARN, ERROR).
	Level string
	// Output receives a copy of every line; defaults to stderr.
	Output io.Writer
	Name   string
}

// Logger writes "time [LEVEL] name: message" lines through hclog.
type Logger struct {
	mu     sync.Mutex
	hl     hclog.Logger
	file   *os.File
	closed bool
}

func New(opts Options) (*Logger, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var file *os.File
	if opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		out = io.MultiWriter(out, f)
	}

	level := hclog.LevelFromString(opts.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}

	hl := hclog.New(&hclog.LoggerOptions{
		Name:       opts.Name,
		Level:      level,
		Output:     out,
		TimeFormat: "2006-01-02 15:04:05",
		// the log file is read back by Tail, keep it free of escape codes
		Color: hclog.ColorOff,
	})

	return &Logger{hl: hl, file: file}, nil
}

func (l *Logger) Log(message, level string) {
	defer func() {
		// a broken sink must never take an operation down with it
		_ = recover()
	}()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}

	lvl := hclog.LevelFromString(strings.TrimSpace(level))
	if lvl == hclog.NoLevel {
		lvl = hclog.Info
	}
	l.hl.Log(lvl, message)
}

func (l *Logger) Info(format string, args ...any)  { l.Log(fmt.Sprintf(format, args...), InfoLevel) }
func (l *Logger) Warn(format string, args ...any)  { l.Log(fmt.Sprintf(format, args...), WarnLevel) }
func (l *Logger) Error(format string, args ...any) { l.Log(fmt.Sprintf(format, args...), ErrorLevel) }

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

type discard struct{}

func (discard) Log(string, string) {}

// Discard drops everything.
var Discard Sink = discard{}

// Func adapts a plain function into a Sink.
type Func func(message, level string)

func (f Func) Log(message, level string) {
	defer func() { _ = recover() }()
	f(message, level)
}

// Logf formats and sends one line to s, which may be nil.
func Logf(s Sink, level, format string, args ...any) {
	if s == nil {
		return
	}
	s.Log(fmt.Sprintf(format, args...), level)
}
