package engine

import (
	"log/slog"
	"strconv"

	"ibus-m17n/internal/config"
	"ibus-m17n/internal/keysym"
	"ibus-m17n/internal/m17n"
)

// Navigation keys fed through the adapter for host actions.
const (
	keyPageUp     m17n.Symbol = "Up"
	keyPageDown   m17n.Symbol = "Down"
	keyCursorUp   m17n.Symbol = "Left"
	keyCursorDown m17n.Symbol = "Right"
)

// Session is one focused input client. It owns its input context.
type Session struct {
	id         uint64
	variant    EngineVariant
	ctx        m17n.Context
	host       Host
	settings   config.Settings
	state      RenderState
	status     Property
	translator keysym.Translator
	log        *slog.Logger
	closed     bool
}

func newSession(id uint64, v EngineVariant, host Host, settings config.Settings, log *slog.Logger) *Session {
	return &Session{
		id:       id,
		variant:  v,
		host:     host,
		settings: settings,
		status: Property{
			Key:       StatusPropertyKey,
			Sensitive: true,
		},
		log: log.With("session", id, "engine", v.String()),
	}
}

// ID is unique among sessions of a Manager.
func (s *Session) ID() uint64 { return s.id }

// Variant returns the engine variant of s.
func (s *Session) Variant() EngineVariant { return s.variant }

// Settings returns the current style settings.
func (s *Session) Settings() config.Settings { return s.settings }

// RenderState returns a copy of what s currently shows.
func (s *Session) RenderState() RenderState {
	st := s.state
	st.Preedit.Attributes = append([]Attribute(nil), s.state.Preedit.Attributes...)
	if s.state.Candidates != nil {
		page := *s.state.Candidates
		page.Items = append([]string(nil), s.state.Candidates.Items...)
		st.Candidates = &page
	}
	return st
}

// Properties returns the property list of s.
func (s *Session) Properties() []Property {
	return []Property{s.status}
}

// Closed reports whether s has been closed.
func (s *Session) Closed() bool { return s.closed }

func (s *Session) usable() bool {
	return !s.closed && s.ctx != nil
}

// ProcessKeyEvent translates a host key event and processes it. It reports
// whether the event was handled; unhandled events go to the host's default
// handling.
func (s *Session) ProcessKeyEvent(keyval, keycode, modifiers uint32) bool {
	sym, ok := s.translator.Translate(keycode, keyval, modifiers)
	if !ok {
		return false
	}
	return s.ProcessKey(sym)
}

// FocusIn publishes the property list and tells the method the client
// gained focus.
func (s *Session) FocusIn() {
	if !s.usable() {
		return
	}
	s.host.RegisterProperties(s, s.Properties())
	s.ProcessKey(m17n.FocusIn)
}

// FocusOut tells the method the client lost focus.
func (s *Session) FocusOut() {
	if !s.usable() {
		return
	}
	s.ProcessKey(m17n.FocusOut)
}

// Reset resets the input context and re-synchronises the projections.
func (s *Session) Reset() {
	if !s.usable() {
		return
	}
	s.ctx.Reset()
	s.FocusIn()
}

// Enable is called when the engine becomes active for the client.
func (s *Session) Enable() {}

// Disable is called when the engine is switched away from.
func (s *Session) Disable() {
	s.FocusOut()
}

// PageUp moves the candidate selection to the previous group.
func (s *Session) PageUp() { s.ProcessKey(keyPageUp) }

// PageDown moves the candidate selection to the next group.
func (s *Session) PageDown() { s.ProcessKey(keyPageDown) }

// CursorUp moves the candidate selection backwards within the page.
func (s *Session) CursorUp() { s.ProcessKey(keyCursorUp) }

// CursorDown moves the candidate selection forwards within the page.
func (s *Session) CursorDown() { s.ProcessKey(keyCursorDown) }

// CandidateClicked selects the candidate at index of the visible page by
// typing its digit label ("1".."9", "0" for the tenth).
func (s *Session) CandidateClicked(index int) bool {
	if index < 0 || index > 9 || s.state.Candidates == nil || index >= len(s.state.Candidates.Items) {
		return false
	}
	return s.ProcessKey(m17n.Symbol(strconv.Itoa((index + 1) % 10)))
}

// applySettings replaces the style settings and re-renders the projection
// affected by kind.
func (s *Session) applySettings(settings config.Settings, kind config.ChangeKind) {
	s.settings = settings
	if !s.usable() {
		return
	}
	switch kind {
	case config.ChangePreedit:
		s.updatePreedit()
	case config.ChangeOrientation:
		if s.state.Candidates != nil {
			s.updateCandidates()
		}
	}
}
