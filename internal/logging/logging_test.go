package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ibus-m17n/internal/config"
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
		if err != nil || parsed != level {
			t.Errorf("LevelString(%v) does not round trip", level)
		}
	}
}

func TestFromConfig(t *testing.T) {
	lc := config.LoggingConfig{
		Level:      "warn",
		Format:     "json",
		Output:     "file",
		FilePath:   "/tmp/engine.log",
		MaxSizeMB:  2,
		MaxBackups: 4,
		Compress:   true,
		LogText:    true,
	}
	cfg, err := FromConfig(lc, false)
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}
	if cfg.Level != LevelWarn || cfg.Format != FormatJSON || cfg.Output != "file" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.MaxSize != 2 || cfg.MaxBackups != 4 || !cfg.Compress {
		t.Errorf("unexpected rotation settings %+v", cfg)
	}
	if !cfg.LogText {
		t.Error("LogText should be carried over")
	}

	cfg, err = FromConfig(lc, true)
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}
	if cfg.Level != LevelDebug {
		t.Errorf("verbose should force debug, got %v", cfg.Level)
	}

	if _, err := FromConfig(config.LoggingConfig{Level: "loud"}, false); err == nil {
		t.Error("expected error for unknown level")
	}
}

func newBufferLogger(t *testing.T, logText bool) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, err := New(&Config{
		Level:     LevelDebug,
		Format:    FormatJSON,
		Component: "test",
		LogText:   logText,
		Writer:    &buf,
	})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return logger, &buf
}

func TestJSONFormat(t *testing.T) {
	logger, buf := newBufferLogger(t, false)
	defer logger.Close()

	logger.WithEngine("m17n:hi:itrans").WithSession(7).Info("session opened")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["component"] != "test" {
		t.Errorf("expected component test, got %v", entry["component"])
	}
	if entry["engine"] != "m17n:hi:itrans" {
		t.Errorf("expected engine attribute, got %v", entry["engine"])
	}
	if entry["session"] != float64(7) {
		t.Errorf("expected session 7, got %v", entry["session"])
	}
}

func TestRedaction(t *testing.T) {
	logger, buf := newBufferLogger(t, false)
	logger.Debug("commit", "commit_text", "नमस्ते", "keys", 3)
	out := buf.String()
	if strings.Contains(out, "नमस्ते") {
		t.Errorf("typed text leaked: %s", out)
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Errorf("expected redaction marker: %s", out)
	}

	logger, buf = newBufferLogger(t, true)
	logger.Debug("commit", "commit_text", "नमस्ते")
	if !strings.Contains(buf.String(), "नमस्ते") {
		t.Errorf("LogText should keep typed text: %s", buf.String())
	}
}

func TestShouldRedact(t *testing.T) {
	for key, want := range map[string]bool{
		"text":          true,
		"preedit_text":  true,
		"Candidate":     true,
		"engine":        false,
		"session":       false,
		"keysym":        false,
	} {
		if got := shouldRedact(key); got != want {
			t.Errorf("shouldRedact(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestFileRotator(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "engine.log")

	rotator, err := NewFileRotator(&Config{FilePath: logPath, MaxSize: 1, MaxBackups: 3})
	if err != nil {
		t.Fatalf("failed to create rotator: %v", err)
	}
	defer rotator.Close()

	testData := []byte("test log line\n")
	n, err := rotator.Write(testData)
	if err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	if n != len(testData) {
		t.Errorf("expected to write %d bytes, wrote %d", len(testData), n)
	}
	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("log file was not created: %v", err)
	}
	if err := rotator.Sync(); err != nil {
		t.Errorf("sync failed: %v", err)
	}
}

func TestFileRotatorRotation(t *testing.T) {
	for _, compress := range []bool{false, true} {
		logPath := filepath.Join(t.TempDir(), "engine.log")
		rotator, err := NewFileRotator(&Config{
			FilePath:   logPath,
			MaxSize:    1,
			MaxBackups: 2,
			Compress:   compress,
		})
		if err != nil {
			t.Fatalf("failed to create rotator: %v", err)
		}

		chunk := bytes.Repeat([]byte("x"), 512*1024)
		// Each pair of chunks fills the 1 MB limit, so five writes rotate
		// twice and leave the current file with one chunk.
		for i := 0; i < 5; i++ {
			if _, err := rotator.Write(chunk); err != nil {
				t.Fatalf("write %d failed: %v", i, err)
			}
		}
		rotator.Close()

		suffix := ""
		if compress {
			suffix = ".gz"
		}
		for _, name := range []string{logPath + ".1" + suffix, logPath + ".2" + suffix} {
			if _, err := os.Stat(name); err != nil {
				t.Errorf("compress=%v: expected backup %s: %v", compress, name, err)
			}
		}
		if _, err := os.Stat(logPath + ".3" + suffix); err == nil {
			t.Errorf("compress=%v: backup beyond MaxBackups kept", compress)
		}
		if files := rotator.logFiles(); len(files) != 3 {
			t.Errorf("compress=%v: expected 3 log files, got %v", compress, files)
		}
	}
}

func TestCrashHandler(t *testing.T) {
	logger, _ := newBufferLogger(t, false)
	handler := NewCrashHandler(t.TempDir(), "0.1.0", logger)

	var seen []CrashReport
	handler.OnCrash(func(r CrashReport) { seen = append(seen, r) })

	ok := handler.Run("ProcessKeyEvent", "m17n:hi:itrans", func() {
		panic("intentional test panic")
	})
	if ok {
		t.Error("Run should report the panic")
	}
	if !handler.Run("FocusIn", "", func() {}) {
		t.Error("Run should report success")
	}

	func() {
		defer handler.Recover("Reset", "m17n:zh:pinyin")
		panic("second")
	}()

	reports, err := handler.Reports()
	if err != nil {
		t.Fatalf("failed to get crash reports: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if reports[0].PanicValue != "intentional test panic" || reports[0].Operation != "ProcessKeyEvent" {
		t.Errorf("unexpected first report %+v", reports[0])
	}
	if reports[1].Engine != "m17n:zh:pinyin" || reports[1].Version != "0.1.0" {
		t.Errorf("unexpected second report %+v", reports[1])
	}
	if len(seen) != 2 {
		t.Errorf("expected 2 callbacks, got %d", len(seen))
	}
	if !strings.Contains(reports[0].StackTrace, "goroutine") {
		t.Error("stack trace missing")
	}
}

func TestCrashHandlerRepeated(t *testing.T) {
	handler := NewCrashHandler(t.TempDir(), "", nil)

	var seen []CrashReport
	handler.OnCrash(func(r CrashReport) { seen = append(seen, r) })
	for i := 0; i < 3; i++ {
		handler.Run("ProcessKeyEvent", "m17n:hi:itrans", func() { panic("every key") })
	}
	handler.Run("ProcessKeyEvent", "m17n:hi:itrans", func() { panic("other") })

	reports, err := handler.Reports()
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if len(seen) != 4 {
		t.Errorf("expected 4 callbacks, got %d", len(seen))
	}
	if seen[0].Fingerprint == "" || seen[0].Fingerprint != seen[2].Fingerprint {
		t.Errorf("repeated panics have fingerprints %q and %q", seen[0].Fingerprint, seen[2].Fingerprint)
	}
	if seen[0].Fingerprint == seen[3].Fingerprint {
		t.Error("different panics share a fingerprint")
	}
}

func TestCrashHandlerCleanup(t *testing.T) {
	dir := t.TempDir()
	handler := NewCrashHandler(dir, "", nil)
	handler.HandlePanic("old", "op", "")

	files, _ := filepath.Glob(filepath.Join(dir, "crash-*.json"))
	past := time.Now().Add(-48 * time.Hour)
	for _, f := range files {
		os.Chtimes(f, past, past)
	}
	handler.HandlePanic("new", "op", "")

	if err := handler.Cleanup(24 * time.Hour); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	reports, _ := handler.Reports()
	if len(reports) != 1 || reports[0].PanicValue != "new" {
		t.Errorf("expected only the new report, got %+v", reports)
	}
}
