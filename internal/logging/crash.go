package logging

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"
)

// CrashReport describes a recovered panic.
type CrashReport struct {
	Timestamp  time.Time `json:"timestamp"`
	Component  string    `json:"component,omitempty"`
	GOOS       string    `json:"goos"`
	GOARCH     string    `json:"goarch"`
	PanicValue string    `json:"panic_value"`
	StackTrace string    `json:"stack_trace"`
}

// DefaultCrashDir returns $XDG_STATE_HOME/wlinput/crashes.
func DefaultCrashDir() string {
	return filepath.Join(filepath.Dir(DefaultLogPath()), "crashes")
}

// CrashHandler turns panics into logged, persisted crash reports.
type CrashHandler struct {
	Dir       string
	Component string
	Log       *slog.Logger
	// OnCrash runs after the report was written.
	OnCrash func(CrashReport)
}

// Recover must be deferred directly. It recovers a panic, logs it, writes
// a report to Dir and calls OnCrash.
//
//	defer crash.Recover()
func (h *CrashHandler) Recover() {
	if r := recover(); r != nil {
		h.HandlePanic(r)
	}
}

// HandlePanic records v as a crash.
func (h *CrashHandler) HandlePanic(v any) {
	report := CrashReport{
		Timestamp:  time.Now().UTC(),
		Component:  h.Component,
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
		PanicValue: fmt.Sprint(v),
		StackTrace: string(debug.Stack()),
	}

	log := h.Log
	if log == nil {
		log = slog.Default()
	}
	path, err := h.write(report)
	if err != nil {
		log.Error("panic recovered", "panic", report.PanicValue, "report_error", err)
	} else {
		log.Error("panic recovered", "panic", report.PanicValue, "report", path)
	}

	if h.OnCrash != nil {
		h.OnCrash(report)
	}
}

func (h *CrashHandler) write(report CrashReport) (string, error) {
	if h.Dir == "" {
		return "", fmt.Errorf("no crash directory")
	}
	if err := os.MkdirAll(h.Dir, 0o750); err != nil {
		return "", fmt.Errorf("create crash directory: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal crash report: %w", err)
	}
	name := fmt.Sprintf("crash-%s-%s.json", report.Component, report.Timestamp.Format("20060102-150405.000"))
	path := filepath.Join(h.Dir, name)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("write crash report: %w", err)
	}
	return path, nil
}

// Reports reads every crash report in Dir.
func (h *CrashHandler) Reports() ([]CrashReport, error) {
	files, err := filepath.Glob(filepath.Join(h.Dir, "crash-*.json"))
	if err != nil {
		return nil, err
	}
	reports := make([]CrashReport, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			continue
		}
		var r CrashReport
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}
		reports = append(reports, r)
	}
	return reports, nil
}
