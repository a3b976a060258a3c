package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger provides logging functionality. It writes to a dated file and to stdout.
type Logger struct {
	file *os.File
	*logrus.Logger
}

// LogOptions controls level and formatting of a Logger
type LogOptions struct {
	Level  string // debug, info, warn, error
	Format string // json or text
}

// NewLogger creates a new logger writing to logPath and stdout
func NewLogger(logPath string, opts LogOptions) (*Logger, error) {
	// Ensure directory exists
	dir := filepath.Dir(logPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Open log file
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := logrus.New()
	l.SetOutput(io.MultiWriter(file, os.Stdout))
	if err := configure(l, opts); err != nil {
		file.Close()
		return nil, err
	}

	return &Logger{file: file, Logger: l}, nil
}

// NewConsoleLogger creates a logger that only writes to w
func NewConsoleLogger(w io.Writer, opts LogOptions) (*Logger, error) {
	l := logrus.New()
	l.SetOutput(w)
	if err := configure(l, opts); err != nil {
		return nil, err
	}
	return &Logger{Logger: l}, nil
}

func configure(l *logrus.Logger, opts LogOptions) error {
	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}
	l.SetLevel(level)

	switch opts.Format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid log format %q", opts.Format)
	}
	return nil
}

// Close closes the logger
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	l.Logger.Infof(format, v...)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.Logger.Errorf(format, v...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	l.Logger.Debugf(format, v...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) {
	l.Logger.Warnf(format, v...)
}

// GetLogPath returns the dated log path inside dir
func GetLogPath(dir string) string {
	if dir == "" {
		dir = filepath.Join(".", "logs")
	}
	return filepath.Join(dir, fmt.Sprintf("app-%s.log", time.Now().Format("2006-01-02")))
}
