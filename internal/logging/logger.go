// Package logging provides structured logging with file output support.
// It uses environment variables for configuration and adapts the detection
// library's diagnostics onto the same logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"gm8detect/internal/gamedata"
)

// LoggerCloser wraps a logger and provides a Close method for cleanup
type LoggerCloser struct {
	*log.Logger
	closer io.Closer
	path   string
}

// Close closes the underlying writer if it's closeable
func (lc *LoggerCloser) Close() error {
	if lc.closer != nil {
		return lc.closer.Close()
	}
	return nil
}

// Path returns the log file in use, or "" when logging to stderr.
func (lc *LoggerCloser) Path() string { return lc.path }

// ParseLevel maps a config or env level name onto a charm log level.
// Unknown names mean info.
func ParseLevel(name string) log.Level {
	switch strings.ToLower(name) {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// NewLoggerWithWriter creates a new logger with the provided writer.
// GM8DETECT_LOG_LEVEL, when set, wins over level.
func NewLoggerWithWriter(w io.Writer, level string) *LoggerCloser {
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})

	if env := os.Getenv("GM8DETECT_LOG_LEVEL"); env != "" {
		level = env
	}
	lg.SetLevel(ParseLevel(level))

	prefix := os.Getenv("GM8DETECT_LOG_PREFIX")
	if prefix == "" {
		prefix = "gm8detect "
	}

	var closer io.Closer
	if c, ok := w.(io.Closer); ok && w != os.Stderr {
		closer = c
	}

	return &LoggerCloser{
		Logger: lg.WithPrefix(prefix),
		closer: closer,
	}
}

// NewLogger creates a new logger based on environment variables
// GM8DETECT_LOG_LEVEL: debug, info, warn, error (default: level)
// GM8DETECT_LOG_PREFIX: prefix for log messages (default: "gm8detect ")
// GM8DETECT_LOG_TO_FILE: when set to "1", logs to a timestamped file in dir instead of stderr
func NewLogger(dir, level string) *LoggerCloser {
	output := io.Writer(os.Stderr)
	var path string

	if os.Getenv("GM8DETECT_LOG_TO_FILE") == "1" {
		timestamp := time.Now().Format("20060102-150405")
		name := filepath.Join(dir, fmt.Sprintf("gm8detect-%s.log", timestamp))

		// If file creation fails, fall back to stderr
		if err := os.MkdirAll(dir, 0o755); err == nil {
			if f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644); err == nil {
				output = f
				path = name
			}
		}
	}

	lc := NewLoggerWithWriter(output, level)
	lc.path = path
	return lc
}

// IsDebug returns true if debug logging is enabled
func IsDebug() bool {
	return os.Getenv("GM8DETECT_LOG_LEVEL") == "debug"
}

// LatestFile returns the newest gm8detect log file in dir.
func LatestFile(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "gm8detect-*.log"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no log files in %s", dir)
	}
	// Timestamped names sort chronologically.
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// Sink forwards detection diagnostics to a charm logger at debug level.
// Fields are attached to every line.
type Sink struct {
	Logger *log.Logger
	Fields []any
}

// Logf implements gamedata.Logger.
func (s Sink) Logf(format string, args ...any) {
	if s.Logger == nil {
		return
	}
	s.Logger.Debug(fmt.Sprintf(format, args...), s.Fields...)
}

// Recorder keeps detection diagnostics in memory for reports, and passes
// them on to Next when set. It is not safe for concurrent use.
type Recorder struct {
	Lines []string
	Next  gamedata.Logger
}

// Logf implements gamedata.Logger.
func (r *Recorder) Logf(format string, args ...any) {
	r.Lines = append(r.Lines, fmt.Sprintf(format, args...))
	if r.Next != nil {
		r.Next.Logf(format, args...)
	}
}
