package utils

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Logger provides structured, leveled logging. Console output is colored;
// the optional log file receives the same lines without ANSI codes.
type Logger struct {
	out  *log.Logger
	err  *log.Logger
	file *log.Logger
	f    *os.File
}

// NewLogger creates a console-only Logger.
func NewLogger() *Logger {
	return &Logger{
		out: log.New(os.Stdout, "", 0),
		err: log.New(os.Stderr, "", 0),
	}
}

// NewFileLogger creates a Logger that also appends to the file at path.
// Intermediate directories are created automatically.
func NewFileLogger(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("logger: create log dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("logger: open log file %q: %w", path, err)
	}

	l := NewLogger()
	l.f = f
	l.file = log.New(f, "", 0)
	return l, nil
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.f == nil {
		return nil
	}
	return l.f.Close()
}

func (l *Logger) write(dst *log.Logger, level, color, format string, args ...any) {
	ts := time.Now().Format("2006-01-02 15:04:05")
	dst.Printf(fmt.Sprintf("[%s] %s%s\033[0m %s\n", ts, color, level, format), args...)
	if l.file != nil {
		l.file.Printf(fmt.Sprintf("[%s] %s %s\n", ts, level, format), args...)
	}
}

func (l *Logger) Info(format string, args ...any) {
	l.write(l.out, "INFO ", "\033[32m", format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.write(l.out, "WARN ", "\033[33m", format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.write(l.err, "ERROR", "\033[31m", format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.write(l.out, "DEBUG", "\033[36m", format, args...)
}
