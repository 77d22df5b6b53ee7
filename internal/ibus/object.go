package ibus

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"

	"ibus-m17n/internal/engine"
)

// Factory is exported at IBusFactoryPath. The daemon calls CreateEngine
// once per input context that selects one of our engines.
type Factory struct {
	server *Server
}

// CreateEngine opens a session for engineName and exports its engine
// object.
func (f *Factory) CreateEngine(engineName string) (dbus.ObjectPath, *dbus.Error) {
	var (
		path dbus.ObjectPath
		err  error
	)
	if cerr := f.server.loop.Call(func() {
		path, err = f.server.createEngine(engineName)
	}); cerr != nil {
		return "", dbus.MakeFailedError(cerr)
	}
	if err != nil {
		return "", dbus.NewError("org.freedesktop.IBus.NoEngine", []interface{}{err.Error()})
	}
	return path, nil
}

// Engine is the bus object of one session. Every method runs on the
// server's loop.
type Engine struct {
	server  *Server
	session *engine.Session
	path    dbus.ObjectPath
	log     *slog.Logger
}

// Path returns the object path of e.
func (e *Engine) Path() dbus.ObjectPath { return e.path }

func (e *Engine) call(op string, fn func()) *dbus.Error {
	var ok bool
	err := e.server.loop.Call(func() {
		if e.session.Closed() {
			ok = true
			return
		}
		ok = e.server.guard(op, e.session.Variant().String(), fn)
	})
	if err != nil {
		return dbus.MakeFailedError(err)
	}
	if !ok {
		return dbus.MakeFailedError(fmt.Errorf("%s: internal error", op))
	}
	return nil
}

// ProcessKeyEvent reports whether the key was handled. Unhandled keys get
// the client's default handling.
func (e *Engine) ProcessKeyEvent(keyval, keycode, state uint32) (bool, *dbus.Error) {
	var handled bool
	derr := e.call("ProcessKeyEvent", func() {
		start := time.Now()
		handled = e.session.ProcessKeyEvent(keyval, keycode, state)
		e.server.metrics.ObserveKey(handled, time.Since(start))
	})
	return handled, derr
}

func (e *Engine) FocusIn() *dbus.Error {
	e.log.Debug("focus in")
	return e.call("FocusIn", e.session.FocusIn)
}

func (e *Engine) FocusOut() *dbus.Error {
	e.log.Debug("focus out")
	return e.call("FocusOut", e.session.FocusOut)
}

func (e *Engine) Reset() *dbus.Error {
	return e.call("Reset", e.session.Reset)
}

func (e *Engine) Enable() *dbus.Error {
	return e.call("Enable", e.session.Enable)
}

func (e *Engine) Disable() *dbus.Error {
	return e.call("Disable", e.session.Disable)
}

func (e *Engine) PageUp() *dbus.Error {
	return e.call("PageUp", e.session.PageUp)
}

func (e *Engine) PageDown() *dbus.Error {
	return e.call("PageDown", e.session.PageDown)
}

func (e *Engine) CursorUp() *dbus.Error {
	return e.call("CursorUp", e.session.CursorUp)
}

func (e *Engine) CursorDown() *dbus.Error {
	return e.call("CursorDown", e.session.CursorDown)
}

// CandidateClicked selects the clicked candidate of the visible page.
func (e *Engine) CandidateClicked(index, button, state uint32) *dbus.Error {
	return e.call("CandidateClicked", func() {
		e.session.CandidateClicked(int(index))
	})
}

// PropertyActivate is logged only: the status property is informational.
func (e *Engine) PropertyActivate(name string, state uint32) *dbus.Error {
	e.log.Debug("property activated", "property", name, "state", state)
	return nil
}

func (e *Engine) PropertyShow(name string) *dbus.Error { return nil }

func (e *Engine) PropertyHide(name string) *dbus.Error { return nil }

func (e *Engine) SetCapabilities(caps uint32) *dbus.Error {
	e.log.Debug("capabilities", "caps", caps)
	return nil
}

func (e *Engine) SetCursorLocation(x, y, w, h int32) *dbus.Error { return nil }

func (e *Engine) SetContentType(purpose, hints uint32) *dbus.Error { return nil }

func (e *Engine) SetSurroundingText(text dbus.Variant, cursorPos, anchorPos uint32) *dbus.Error {
	return nil
}

// Destroy closes the session and removes the object from the bus.
func (e *Engine) Destroy() *dbus.Error {
	if err := e.server.loop.Call(func() { e.server.destroyEngine(e) }); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}
