// Package logging builds the process slog.Logger. Lines go to stderr and,
// when a file is configured, to a size-rotated log file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

type Options struct {
	Level  string
	Format string
	// File enables rotated file output in addition to Stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Stderr     io.Writer
}

// Logger owns the handler chain and the rotating file, if any.
type Logger struct {
	*slog.Logger
	file *lumberjack.Logger
}

func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

func ParseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unsupported log level %q", raw)
	}
}

func Setup(opts Options) (*Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = FormatText
	}
	if format != FormatText && format != FormatJSON {
		return nil, fmt.Errorf("unsupported log format %q", opts.Format)
	}

	var out io.Writer = opts.Stderr
	if out == nil {
		out = os.Stderr
	}
	var file *lumberjack.Logger
	if path := strings.TrimSpace(opts.File); path != "" {
		file = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    positiveOr(opts.MaxSizeMB, 10),
			MaxBackups: positiveOr(opts.MaxBackups, 3),
			MaxAge:     positiveOr(opts.MaxAgeDays, 14),
		}
		out = io.MultiWriter(out, file)
	}

	handlerOpts := &slog.HandlerOptions{Level: level, ReplaceAttr: replaceAttr(format)}
	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}
	return &Logger{Logger: slog.New(handler), file: file}, nil
}

func replaceAttr(format string) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, attr slog.Attr) slog.Attr {
		if IsSensitive(attr.Key) {
			return MaskField(attr.Key, attr.Value.String())
		}
		if format != FormatJSON || len(groups) > 0 {
			return attr
		}
		switch attr.Key {
		case slog.TimeKey:
			return slog.Attr{Key: "timestamp", Value: attr.Value}
		case slog.LevelKey:
			return slog.String("severity", strings.ToUpper(attr.Value.String()))
		case slog.MessageKey:
			return slog.Attr{Key: "message", Value: attr.Value}
		}
		return attr
	}
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
