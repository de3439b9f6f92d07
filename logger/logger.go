package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	InfoLogger  *logrus.Logger
	WarnLogger  *logrus.Logger
	ErrorLogger *logrus.Logger
)

// Options controls where and how the loggers write.
type Options struct {
	Level      string
	Format     string // "text" or "json"
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func init() {
	// Packages may log before main configures the loggers (tests, init hooks).
	InitLoggers()
}

// InitLoggers sets up stdout-only loggers with default settings.
func InitLoggers() {
	Configure(Options{})
}

// Configure rebuilds the three loggers. When File is set, output is
// duplicated into a rotating log file.
func Configure(opts Options) {
	var out io.Writer = os.Stdout
	if opts.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    withDefault(opts.MaxSizeMB, 50),
			MaxBackups: withDefault(opts.MaxBackups, 5),
			MaxAge:     withDefault(opts.MaxAgeDays, 28),
			Compress:   true,
		})
	}

	level := logrus.InfoLevel
	if opts.Level != "" {
		if parsed, err := logrus.ParseLevel(opts.Level); err == nil {
			level = parsed
		}
	}

	InfoLogger = newLogger(out, opts.Format, level)
	WarnLogger = newLogger(out, opts.Format, level)
	ErrorLogger = newLogger(out, opts.Format, level)
}

func newLogger(out io.Writer, format string, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

func withDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
