package metrics

import (
	"time"

	"ibus-m17n/internal/security"
)

// Namespace prefixes every engine metric.
const Namespace = "ibus_m17n"

// EngineMetrics holds the metrics of the engine process.
type EngineMetrics struct {
	registry *Registry
	started  time.Time

	// Counters
	SessionsOpened *Counter
	KeysHandled    *Counter
	KeysPassed     *Counter
	Commits        *Counter
	Crashes        *Counter
	SettingChanges *Counter
	CatalogReloads *Counter

	// Gauges
	ActiveSessions *Gauge
	UptimeSeconds  *Gauge

	// Histograms
	KeyDuration *Histogram
}

// NewEngineMetrics registers the engine metrics in registry, or in a new
// registry under Namespace when registry is nil.
func NewEngineMetrics(registry *Registry) *EngineMetrics {
	if registry == nil {
		registry = NewRegistry(Namespace)
	}
	return &EngineMetrics{
		registry: registry,
		started:  time.Now(),

		SessionsOpened: registry.RegisterCounter("sessions_opened_total",
			"Sessions opened since the process started", nil),
		KeysHandled: registry.RegisterCounter("keys_handled_total",
			"Key events consumed by an input method", nil),
		KeysPassed: registry.RegisterCounter("keys_passed_total",
			"Key events returned to the client unhandled", nil),
		Commits: registry.RegisterCounter("commits_total",
			"Text commits sent to clients", nil),
		Crashes: registry.RegisterCounter("crashes_total",
			"Panics recovered while serving bus calls", nil),
		SettingChanges: registry.RegisterCounter("setting_changes_total",
			"Style setting changes applied to sessions", nil),
		CatalogReloads: registry.RegisterCounter("catalog_reloads_total",
			"Engine catalog rebuilds after configuration changes", nil),

		ActiveSessions: registry.RegisterGauge("sessions_active",
			"Sessions currently open", nil),
		UptimeSeconds: registry.RegisterGauge("uptime_seconds",
			"Seconds since the process started", nil),

		KeyDuration: registry.RegisterHistogram("key_duration_seconds",
			"Time to process one key event", nil, LatencyBuckets),
	}
}

// Registry returns the registry holding m.
func (m *EngineMetrics) Registry() *Registry {
	return m.registry
}

// ObserveKey records one processed key event.
func (m *EngineMetrics) ObserveKey(handled bool, d time.Duration) {
	if handled {
		m.KeysHandled.Inc()
	} else {
		m.KeysPassed.Inc()
	}
	m.KeyDuration.ObserveDuration(d)
}

// WriteFile writes the metrics to path atomically, for a textfile
// collector to pick up.
func (m *EngineMetrics) WriteFile(path string) error {
	m.UptimeSeconds.Set(int64(time.Since(m.started).Seconds()))

	w, err := security.NewSecureFileWriter(path, security.PermPublicFile)
	if err != nil {
		return err
	}
	if err := m.registry.WritePrometheus(w); err != nil {
		w.Abort()
		return err
	}
	return w.Commit()
}
