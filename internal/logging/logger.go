package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"lawfeed/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level            string
	Format           string
	OutputPaths      []string
	ErrorOutputPaths []string
	Development      bool
	// JSONPaths receive records as JSON lines alongside the primary output,
	// whatever Format says.
	JSONPaths []string
	// JSONLevel filters the JSONPaths records; empty means Level.
	JSONLevel string
	// Color forces ANSI level colours on or off; nil detects a terminal on stdout.
	Color *bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	outputs := defaultSlice(opts.OutputPaths, []string{"stdout"})
	outputWriter, err := openWriters(outputs, defaultSlice(opts.ErrorOutputPaths, []string{"stderr"}))
	if err != nil {
		return nil, err
	}

	addSource := opts.Development || level <= slog.LevelDebug

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = newJSONHandler(outputWriter, levelVar, addSource)
	case "console":
		color := colorEnabled(outputs)
		if opts.Color != nil {
			color = *opts.Color
		}
		handler = newPrettyHandler(outputWriter, levelVar, addSource, color)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	if len(opts.JSONPaths) > 0 {
		jsonWriter, err := openWriters(opts.JSONPaths, nil)
		if err != nil {
			return nil, err
		}
		jsonLevel := new(slog.LevelVar)
		jsonLevel.Set(level)
		if strings.TrimSpace(opts.JSONLevel) != "" {
			jsonLevel.Set(parseLevel(opts.JSONLevel))
		}
		handler = newFanoutHandler(
			sink{name: "console", handler: handler},
			sink{name: "file", handler: newJSONHandler(jsonWriter, jsonLevel, addSource)},
		)
	}

	return slog.New(handler), nil
}

// NewFromConfig creates a logger from the logging section. Records go to
// console ("stdout" or "stderr") in the configured format and to logPath as
// JSON lines. An empty logPath selects LogFilePath(cfg).
func NewFromConfig(cfg *config.Config, console, logPath string) (*slog.Logger, error) {
	if strings.TrimSpace(console) == "" {
		console = "stdout"
	}
	if cfg == nil {
		return New(Options{Level: "info", Format: "console", OutputPaths: []string{console}, ErrorOutputPaths: []string{console}})
	}

	opts := Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{console},
		ErrorOutputPaths: []string{console},
	}
	if logPath == "" {
		logPath = LogFilePath(cfg)
	}
	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		opts.JSONPaths = []string{logPath}
		opts.JSONLevel = cfg.Logging.FileLevel
	}
	return New(opts)
}

// LogFilePath returns the log file shared by one-shot commands, or "" without
// a log directory.
func LogFilePath(cfg *config.Config) string {
	if cfg == nil || cfg.Paths.LogDir == "" {
		return ""
	}
	return filepath.Join(cfg.Paths.LogDir, "lawfeed.log")
}

// RunLogPath returns the log file of one daemon run.
func RunLogPath(cfg *config.Config, runStamp string) string {
	return filepath.Join(cfg.Paths.LogDir, runLogPrefix+runStamp+runLogSuffix)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaultSlice(value []string, fallback []string) []string {
	src := value
	if len(src) == 0 {
		src = fallback
	}
	cp := make([]string, len(src))
	copy(cp, src)
	return cp
}

// colorEnabled reports whether every console destination is a terminal.
// A log file in the output set disables colour so files stay plain text.
func colorEnabled(outputs []string) bool {
	sawStdout := false
	for _, path := range outputs {
		switch strings.TrimSpace(path) {
		case "stdout":
			sawStdout = true
		case "", "stderr":
		default:
			return false
		}
	}
	if !sawStdout {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func openWriters(outputPaths []string, errorPaths []string) (io.Writer, error) {
	seen := map[string]struct{}{}
	var writers []io.Writer
	combined := append([]string{}, outputPaths...)
	combined = append(combined, errorPaths...)

	for _, path := range combined {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}

		switch trimmed {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if err := ensureLogDir(trimmed); err != nil {
				return nil, err
			}
			file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", trimmed, err)
			}
			writers = append(writers, file)
		}
	}

	if len(writers) == 0 {
		return os.Stdout, nil
	}
	if len(writers) == 1 {
		return writers[0], nil
	}
	return io.MultiWriter(writers...), nil
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
