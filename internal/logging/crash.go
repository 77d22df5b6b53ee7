package logging

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"ibus-m17n/internal/config"
	"ibus-m17n/internal/security"
)

// CrashReport describes a panic recovered while serving a bus call.
type CrashReport struct {
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version"`
	GOOS       string    `json:"goos"`
	GOARCH     string    `json:"goarch"`
	Operation  string    `json:"operation"`
	Engine     string    `json:"engine,omitempty"`
	PanicValue string    `json:"panic_value"`
	StackTrace string    `json:"stack_trace"`

	// Fingerprint identifies the crash site across reports.
	Fingerprint string `json:"fingerprint"`
}

// CrashHandler turns panics into crash reports so that one failing input
// method does not take the engine process down.
type CrashHandler struct {
	mu      sync.Mutex
	dir     string
	version string
	log     *Logger
	seq     int
	seen    map[string]int
	onCrash func(CrashReport)
}

// DefaultCrashDir returns the crash report directory.
func DefaultCrashDir() string {
	return filepath.Join(config.PlatformLogDir(), "crashes")
}

// NewCrashHandler returns a handler writing reports to dir. log may be nil.
func NewCrashHandler(dir, version string, log *Logger) *CrashHandler {
	if dir == "" {
		dir = DefaultCrashDir()
	}
	if log == nil {
		log = Default()
	}
	return &CrashHandler{dir: dir, version: version, log: log, seen: make(map[string]int)}
}

// OnCrash registers cb, called after a report is written.
func (h *CrashHandler) OnCrash(cb func(CrashReport)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onCrash = cb
}

// Recover must be deferred directly:
//
//	defer crash.Recover("ProcessKeyEvent", "m17n:hi:itrans")
func (h *CrashHandler) Recover(op, engine string) {
	if r := recover(); r != nil {
		h.HandlePanic(r, op, engine)
	}
}

// Run calls fn and reports whether it returned without panicking.
func (h *CrashHandler) Run(op, engine string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			h.HandlePanic(r, op, engine)
			ok = false
		}
	}()
	fn()
	return true
}

// HandlePanic records a recovered panic value.
func (h *CrashHandler) HandlePanic(value any, op, engine string) CrashReport {
	h.mu.Lock()
	defer h.mu.Unlock()

	report := CrashReport{
		Timestamp:  time.Now().UTC(),
		Version:    h.version,
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
		Operation:  op,
		Engine:     engine,
		PanicValue: fmt.Sprintf("%v", value),
		StackTrace: string(debug.Stack()),
	}

	report.Fingerprint = fingerprint(report)

	// Only the first occurrence of a crash site is written.
	h.seen[report.Fingerprint]++
	if n := h.seen[report.Fingerprint]; n > 1 {
		h.log.Warn("recovered panic",
			"operation", op,
			"engine", engine,
			"fingerprint", report.Fingerprint,
			"occurrences", n,
		)
	} else {
		h.seq++
		path, err := h.writeCrashDump(report)
		if err != nil {
			h.log.Error("write crash report", "error", err)
		}
		h.log.Error("recovered panic",
			"operation", op,
			"engine", engine,
			"panic", report.PanicValue,
			"fingerprint", report.Fingerprint,
			"report", path,
		)
	}

	if h.onCrash != nil {
		h.onCrash(report)
	}
	return report
}

// fingerprint hashes the operation, the panic value and the function
// names of the stack. Goroutine ids and argument values are left out.
func fingerprint(r CrashReport) string {
	h, _ := blake2b.New256(nil)
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00", r.Operation, r.Engine, r.PanicValue)
	for _, line := range strings.Split(r.StackTrace, "\n") {
		if line == "" || strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "goroutine ") {
			continue
		}
		if i := strings.LastIndexByte(line, '('); i > 0 {
			line = line[:i]
		}
		fmt.Fprintln(h, line)
	}
	return hex.EncodeToString(h.Sum(nil)[:12])
}

func (h *CrashHandler) writeCrashDump(report CrashReport) (string, error) {
	if err := security.EnsureSecureDir(h.dir); err != nil {
		return "", fmt.Errorf("create crash directory: %w", err)
	}
	name := fmt.Sprintf("crash-%s-%d-%d.json",
		report.Timestamp.Format("20060102-150405"), os.Getpid(), h.seq)
	path := filepath.Join(h.dir, name)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal crash report: %w", err)
	}
	if err := security.WriteSecretFile(path, data); err != nil {
		return "", fmt.Errorf("write crash report: %w", err)
	}
	return path, nil
}

// Reports returns the stored crash reports, oldest first.
func (h *CrashHandler) Reports() ([]CrashReport, error) {
	files, err := filepath.Glob(filepath.Join(h.dir, "crash-*.json"))
	if err != nil {
		return nil, err
	}

	reports := make([]CrashReport, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		var report CrashReport
		if err := json.Unmarshal(data, &report); err != nil {
			continue
		}
		reports = append(reports, report)
	}
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].Timestamp.Before(reports[j].Timestamp)
	})
	return reports, nil
}

// Cleanup removes crash reports older than maxAge.
func (h *CrashHandler) Cleanup(maxAge time.Duration) error {
	files, err := filepath.Glob(filepath.Join(h.dir, "crash-*.json"))
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-maxAge)
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(file)
		}
	}
	return nil
}
