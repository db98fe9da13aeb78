package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		hasError bool
	}{
		{"debug", LevelDebug, false},
		{"DEBUG", LevelDebug, false},
		{"info", LevelInfo, false},
		{"", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"ERROR", LevelError, false},
		{"invalid", LevelInfo, true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			level, err := ParseLevel(test.input)
			if test.hasError && err == nil {
				t.Error("expected error, got nil")
			}
			if !test.hasError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !test.hasError && level != test.expected {
				t.Errorf("expected %v, got %v", test.expected, level)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	for _, level := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		parsed, err := ParseLevel(LevelString(level))
		if err != nil {
			t.Fatalf("ParseLevel(LevelString(%v)): %v", level, err)
		}
		if parsed != level {
			t.Errorf("expected %v, got %v", level, parsed)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("JSON"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(JSON) = %v, %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatText {
		t.Errorf("ParseFormat(\"\") = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("expected default level Info, got %v", cfg.Level)
	}
	if cfg.Output != "stderr" {
		t.Errorf("expected default output stderr, got %s", cfg.Output)
	}
	if cfg.Component != "wlinput" {
		t.Errorf("expected component wlinput, got %s", cfg.Component)
	}
	if !strings.HasSuffix(cfg.FilePath, filepath.Join("wlinput", "wlinput.log")) {
		t.Errorf("unexpected default log path %s", cfg.FilePath)
	}
}

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", buf.String(), err)
	}
	buf.Reset()
	return rec
}

func TestJSONFormatAndComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, &Config{Level: LevelInfo, Format: FormatJSON, Component: "wlinputd"})

	logger.Info("bootstrap complete", "input_method", true)
	rec := decodeRecord(t, &buf)
	if rec["msg"] != "bootstrap complete" {
		t.Errorf("unexpected msg %v", rec["msg"])
	}
	if rec["component"] != "wlinputd" {
		t.Errorf("unexpected component %v", rec["component"])
	}
	if rec["input_method"] != true {
		t.Errorf("unexpected input_method %v", rec["input_method"])
	}

	logger.WithComponent("wayland").Info("connected")
	rec = decodeRecord(t, &buf)
	if rec["component"] != "wayland" {
		t.Errorf("WithComponent did not override component: %v", rec["component"])
	}
}

func TestRedaction(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, &Config{Level: LevelDebug, Format: FormatJSON, RedactText: true})

	logger.Debug("commit string", "text", "hunter2", "keycode", 30, "auth_token", "abc")
	rec := decodeRecord(t, &buf)
	if rec["text"] != Redacted {
		t.Errorf("text not redacted: %v", rec["text"])
	}
	if rec["auth_token"] != Redacted {
		t.Errorf("auth_token not redacted: %v", rec["auth_token"])
	}
	if rec["keycode"] != float64(30) {
		t.Errorf("keycode must stay visible, got %v", rec["keycode"])
	}

	plain := NewWithWriter(&buf, &Config{Level: LevelDebug, Format: FormatJSON})
	plain.Debug("commit string", "text", "hello")
	rec = decodeRecord(t, &buf)
	if rec["text"] != "hello" {
		t.Errorf("text redacted without RedactText: %v", rec["text"])
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, &Config{Level: LevelInfo, Format: FormatText})
	child := logger.WithComponent("child")

	child.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug record written at info level: %q", buf.String())
	}

	logger.SetLevel(LevelDebug)
	if logger.GetLevel() != LevelDebug {
		t.Errorf("expected debug, got %v", logger.GetLevel())
	}
	child.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("derived logger did not pick up new level: %q", buf.String())
	}
}

func TestLoggerFileOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "wlinput.log")
	logger, err := New(&Config{Level: LevelInfo, Output: "file", FilePath: logPath, MaxSize: 1})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	logger.Info("hello file")
	if err := logger.Sync(); err != nil {
		t.Errorf("sync failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello file") {
		t.Errorf("log file missing record: %q", data)
	}
}

func TestFileRotatorRotation(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	rotator, err := NewFileRotator(RotatorConfig{
		Path:       logPath,
		MaxSize:    1,
		MaxBackups: 2,
		Compress:   true,
	})
	if err != nil {
		t.Fatalf("failed to create rotator: %v", err)
	}

	line := []byte(strings.Repeat("x", 1023) + "\n")
	// Four megabytes forces three rotations.
	for i := 0; i < 4*1024; i++ {
		if _, err := rotator.Write(line); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := rotator.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	backups, err := rotator.Backups()
	if err != nil {
		t.Fatalf("list backups: %v", err)
	}
	if len(backups) != 2 {
		t.Fatalf("expected 2 backups, got %d: %v", len(backups), backups)
	}
	for _, b := range backups {
		if !strings.HasSuffix(b, ".gz") {
			t.Errorf("backup %s was not compressed", b)
		}
	}

	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("stat current log: %v", err)
	}
	if info.Size() > 1024*1024 {
		t.Errorf("current log exceeds max size: %d", info.Size())
	}
}

func TestCrashHandlerRecover(t *testing.T) {
	var buf bytes.Buffer
	dir := t.TempDir()
	var got CrashReport
	h := &CrashHandler{
		Dir:       dir,
		Component: "wlinputd",
		Log:       NewWithWriter(&buf, &Config{Level: LevelInfo, Format: FormatText}).Logger,
		OnCrash:   func(r CrashReport) { got = r },
	}

	func() {
		defer h.Recover()
		panic("dispatch failed")
	}()

	if got.PanicValue != "dispatch failed" {
		t.Errorf("unexpected panic value %q", got.PanicValue)
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Errorf("panic was not logged: %q", buf.String())
	}

	reports, err := h.Reports()
	if err != nil {
		t.Fatalf("read reports: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	if reports[0].Component != "wlinputd" || reports[0].StackTrace == "" {
		t.Errorf("incomplete report: %+v", reports[0])
	}
	if time.Since(reports[0].Timestamp) > time.Minute {
		t.Errorf("unexpected timestamp %v", reports[0].Timestamp)
	}
}
