// Package logger wraps logrus with optional rotating file output.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects level, format and destination.
// Output is "stdout", "stderr" or a file path rotated by size.
type Config struct {
	Level      string
	Format     string
	Output     string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// Logger is a thin wrapper over a logrus logger.
type Logger struct {
	log *logrus.Logger
}

// New builds a logger from cfg. Unknown levels fall back to info and unknown
// formats to text.
func New(cfg Config) *Logger {
	log := logrus.New()

	switch strings.ToLower(cfg.Format) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	default:
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	var writer io.Writer
	switch cfg.Output {
	case "", "stdout":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		writer = &lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}
	}
	log.SetOutput(writer)

	return &Logger{log: log}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Logger{log: log}
}

// SetOutput redirects log output.
func (l *Logger) SetOutput(w io.Writer) {
	l.log.SetOutput(w)
}

// Close releases a rotating file, if any.
func (l *Logger) Close() error {
	if c, ok := l.log.Out.(io.Closer); ok && l.log.Out != os.Stdout && l.log.Out != os.Stderr {
		return c.Close()
	}
	return nil
}

func (l *Logger) Debug(msg string) { l.log.Debug(msg) }

func (l *Logger) Info(msg string) { l.log.Info(msg) }

func (l *Logger) Warn(msg string) { l.log.Warn(msg) }

func (l *Logger) Error(msg string) { l.log.Error(msg) }

func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.log.WithFields(fields)
}

func (l *Logger) WithError(err error) *logrus.Entry {
	return l.log.WithError(err)
}

func (l *Logger) WithComponent(component string) *logrus.Entry {
	return l.log.WithField("component", component)
}

func (l *Logger) WithRun(runID, executionID string) *logrus.Entry {
	return l.log.WithFields(logrus.Fields{
		"run_id":       runID,
		"execution_id": executionID,
	})
}

func (l *Logger) WithSymbol(symbol string) *logrus.Entry {
	return l.log.WithField("symbol", symbol)
}
