package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"ibus-m17n/internal/config"
)

// SettingsFunc resolves the style settings of a variant.
type SettingsFunc func(v EngineVariant) config.Settings

// Manager opens and closes sessions. It holds one configuration record per
// variant and applies configuration changes to the live sessions.
type Manager struct {
	registry   *Registry
	dispatcher *Dispatcher
	host       Host
	resolve    SettingsFunc
	settings   map[EngineVariant]config.Settings
	sessions   map[uint64]*Session
	nextID     uint64
	log        *slog.Logger
}

// NewManager returns a Manager. resolve may be nil, in which case every
// variant uses config.DefaultSettings(false).
func NewManager(registry *Registry, host Host, resolve SettingsFunc, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	if resolve == nil {
		resolve = func(EngineVariant) config.Settings { return config.DefaultSettings(false) }
	}
	return &Manager{
		registry:   registry,
		dispatcher: NewDispatcher(log),
		host:       host,
		resolve:    resolve,
		settings:   make(map[EngineVariant]config.Settings),
		sessions:   make(map[uint64]*Session),
		log:        log,
	}
}

// Open creates a session for the engine identifier. Errors wrap
// ErrInvalidIdentifier or ErrMethodUnavailable.
func (m *Manager) Open(identifier string) (*Session, error) {
	v, err := ParseIdentifier(identifier)
	if err != nil {
		return nil, err
	}
	method, err := m.registry.Method(v, m.dispatcher.Register)
	if err != nil {
		m.log.Warn("cannot open input method", "engine", identifier, "error", err)
		return nil, err
	}

	m.nextID++
	s := newSession(m.nextID, v, m.host, m.settingsFor(v), m.log)

	ctx, err := method.CreateContext()
	if err == nil && ctx == nil {
		err = errors.New("no context")
	}
	if err != nil {
		m.dispatcher.discardPending()
		m.log.Warn("cannot create input context", "engine", identifier, "error", err)
		return nil, fmt.Errorf("%w: %s: %v", ErrMethodUnavailable, identifier, err)
	}
	m.sessions[s.id] = s
	m.dispatcher.Bind(ctx, s)
	m.log.Debug("session opened", "session", s.id, "engine", identifier)
	return s, nil
}

// Close destroys the context of s. The shared method stays open. Closing
// twice is a no-op.
func (m *Manager) Close(s *Session) {
	if s == nil || s.closed {
		return
	}
	s.closed = true
	delete(m.sessions, s.id)
	if s.ctx != nil {
		m.dispatcher.Unbind(s.ctx)
		s.ctx.Destroy()
		s.ctx = nil
	}
	m.log.Debug("session closed", "session", s.id)
}

// Session returns the open session with id.
func (m *Manager) Session(id uint64) (*Session, bool) {
	s, ok := m.sessions[id]
	return s, ok
}

// Sessions returns the open sessions ordered by id.
func (m *Manager) Sessions() []*Session {
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// ApplyChange applies a configuration store change to the variant owning
// its section and re-renders the sessions of that variant. Changes to
// sections of variants without a configuration record are ignored; the
// record is resolved fresh when the variant is first used.
func (m *Manager) ApplyChange(c config.Change) {
	kind := config.KindOf(c.Key)
	if kind == config.ChangeNone {
		return
	}
	for v, cur := range m.settings {
		if v.ConfigSection() != c.Section {
			continue
		}
		next := cur
		if c.Deleted {
			next = m.resolve(v)
		} else if _, err := next.Apply(c.Key, c.Value); err != nil {
			m.log.Warn("ignoring invalid setting", "section", c.Section, "key", c.Key, "error", err)
			return
		}
		m.settings[v] = next
		for _, s := range m.Sessions() {
			if s.variant == v {
				s.applySettings(next, kind)
			}
		}
		return
	}
}

// Reload drops every configuration record and re-resolves the settings of
// open sessions, re-rendering them.
func (m *Manager) Reload() {
	m.settings = make(map[EngineVariant]config.Settings)
	for _, s := range m.Sessions() {
		s.applySettings(m.settingsFor(s.variant), config.ChangePreedit)
		if s.state.Candidates != nil {
			s.updateCandidates()
		}
	}
}

// Shutdown closes every session and then every method.
func (m *Manager) Shutdown() {
	for _, s := range m.Sessions() {
		m.Close(s)
	}
	m.registry.Close()
}

func (m *Manager) settingsFor(v EngineVariant) config.Settings {
	if s, ok := m.settings[v]; ok {
		return s
	}
	s := m.resolve(v)
	m.settings[v] = s
	return s
}
