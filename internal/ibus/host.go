package ibus

import (
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"

	"ibus-m17n/internal/engine"
	"ibus-m17n/internal/metrics"
)

// D-Bus names used by the engine process.
const (
	IBusService          = "org.freedesktop.IBus"
	IBusPath             = "/org/freedesktop/IBus"
	IBusInterface        = "org.freedesktop.IBus"
	IBusFactoryPath      = "/org/freedesktop/IBus/Factory"
	IBusFactoryInterface = "org.freedesktop.IBus.Factory"
	IBusEngineInterface  = "org.freedesktop.IBus.Engine"
	IBusServiceInterface = "org.freedesktop.IBus.Service"

	enginePathPrefix = "/org/freedesktop/IBus/Engine/m17n/"
)

// Emitter sends D-Bus signals. *dbus.Conn implements it.
type Emitter interface {
	Emit(path dbus.ObjectPath, name string, values ...interface{}) error
}

// EnginePath returns the object path of the session with id.
func EnginePath(id uint64) dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("%s%d", enginePathPrefix, id))
}

// Host turns session output into IBus engine signals. The object path is
// derived from the session id, so output produced while a session is still
// being opened reaches the right object.
type Host struct {
	conn    Emitter
	log     *slog.Logger
	commits *metrics.Counter
}

var _ engine.Host = (*Host)(nil)

// NewHost returns a Host emitting on conn.
func NewHost(conn Emitter, log *slog.Logger) *Host {
	if log == nil {
		log = slog.Default()
	}
	return &Host{conn: conn, log: log}
}

func (h *Host) emit(s *engine.Session, signal string, values ...interface{}) {
	if err := h.conn.Emit(EnginePath(s.ID()), IBusEngineInterface+"."+signal, values...); err != nil {
		h.log.Warn("emit signal", "signal", signal, "session", s.ID(), "error", err)
	}
}

// CommitText sends text to the client and counts the commit.
func (h *Host) CommitText(s *engine.Session, text string) {
	h.emit(s, "CommitText", NewText(text).Variant())
	if h.commits != nil {
		h.commits.Inc()
	}
}

// UpdatePreedit sends the styled preedit. It is cleared when focus moves.
func (h *Host) UpdatePreedit(s *engine.Session, text string, attrs []engine.Attribute, cursorPos int, visible bool) {
	h.emit(s, "UpdatePreeditText", NewText(text, attrs...).Variant(), uint32(cursorPos), visible, PreeditClear)
}

// HidePreedit hides the preedit.
func (h *Host) HidePreedit(s *engine.Session) {
	h.emit(s, "HidePreeditText")
}

// UpdateCandidates shows the page and its "( page / total )" counter as
// auxiliary text.
func (h *Host) UpdateCandidates(s *engine.Session, page *engine.CandidatePage) {
	h.emit(s, "UpdateAuxiliaryText", NewText(page.Label()).Variant(), true)
	h.emit(s, "UpdateLookupTable", dbus.MakeVariant(NewLookupTable(page)), true)
}

// HideCandidates hides the lookup table and its counter.
func (h *Host) HideCandidates(s *engine.Session) {
	h.emit(s, "HideLookupTable")
	h.emit(s, "HideAuxiliaryText")
}

// UpdateStatusProperty updates the status property, visible or not.
func (h *Host) UpdateStatusProperty(s *engine.Session, label string, visible bool) {
	prop := NewProperty(engine.Property{
		Key:       engine.StatusPropertyKey,
		Label:     label,
		Visible:   visible,
		Sensitive: true,
	})
	h.emit(s, "UpdateProperty", dbus.MakeVariant(prop))
}

// RegisterProperties publishes the property list of s.
func (h *Host) RegisterProperties(s *engine.Session, props []engine.Property) {
	h.emit(s, "RegisterProperties", dbus.MakeVariant(NewPropList(props...)))
}
