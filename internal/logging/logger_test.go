package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"gm8detect/internal/gamedata"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]log.Level{
		"debug": log.DebugLevel,
		"DEBUG": log.DebugLevel,
		"warn":  log.WarnLevel,
		"error": log.ErrorLevel,
		"info":  log.InfoLevel,
		"":      log.InfoLevel,
		"loud":  log.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestEnvLevelWins(t *testing.T) {
	t.Setenv("GM8DETECT_LOG_LEVEL", "error")
	var buf bytes.Buffer
	lc := NewLoggerWithWriter(&buf, "debug")
	lc.Info("hidden")
	lc.Error("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestSink(t *testing.T) {
	t.Setenv("GM8DETECT_LOG_LEVEL", "")
	t.Setenv("GM8DETECT_LOG_PREFIX", "test ")
	var buf bytes.Buffer
	lc := NewLoggerWithWriter(&buf, "debug")

	var sink gamedata.Logger = Sink{Logger: lc.Logger, Fields: []any{"file", "game.exe"}}
	sink.Logf("Detection committed to %s", "antidec81")

	out := buf.String()
	for _, want := range []string{"test", "Detection committed to antidec81", "file=game.exe"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}

	Sink{}.Logf("no logger is fine")
}

func TestRecorder(t *testing.T) {
	var forwarded []string
	r := &Recorder{Next: gamedata.LoggerFunc(func(format string, args ...any) {
		forwarded = append(forwarded, format)
	})}
	r.Logf("a %d", 1)
	r.Logf("b")
	if strings.Join(r.Lines, "|") != "a 1|b" {
		t.Errorf("Lines = %q", r.Lines)
	}
	if len(forwarded) != 2 {
		t.Errorf("forwarded %d lines", len(forwarded))
	}
}

func TestLogToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	t.Setenv("GM8DETECT_LOG_TO_FILE", "1")
	t.Setenv("GM8DETECT_LOG_LEVEL", "")

	lc := NewLogger(dir, "info")
	lc.Info("to file")
	if err := lc.Close(); err != nil {
		t.Fatal(err)
	}
	if lc.Path() == "" {
		t.Fatal("no log file opened")
	}

	latest, err := LatestFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	if latest != lc.Path() {
		t.Errorf("LatestFile = %q, want %q", latest, lc.Path())
	}
	data, err := os.ReadFile(latest)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file content = %q", data)
	}
}

func TestLatestFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := LatestFile(dir); err == nil {
		t.Error("expected error for empty dir")
	}
	for _, name := range []string{"gm8detect-20240101-000000.log", "gm8detect-20250101-000000.log", "other.log"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := LatestFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != "gm8detect-20250101-000000.log" {
		t.Errorf("LatestFile = %q", got)
	}
}
