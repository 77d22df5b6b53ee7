package ibus

import (
	"io"
	"sync"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/require"

	"ibus-m17n/internal/logging"
)

type signal struct {
	path   dbus.ObjectPath
	name   string
	values []interface{}
}

// fakeConn records what the server puts on the bus.
type fakeConn struct {
	mu        sync.Mutex
	exports   map[string]interface{}
	signals   []signal
	calls     []*dbus.Call
	nameReply dbus.RequestNameReply
	names     []string
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		exports:   make(map[string]interface{}),
		nameReply: dbus.RequestNameReplyPrimaryOwner,
	}
}

func (c *fakeConn) Emit(path dbus.ObjectPath, name string, values ...interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signals = append(c.signals, signal{path: path, name: name, values: values})
	return nil
}

func (c *fakeConn) Export(v interface{}, path dbus.ObjectPath, iface string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := string(path) + " " + iface
	if v == nil {
		delete(c.exports, key)
		return nil
	}
	c.exports[key] = v
	return nil
}

func (c *fakeConn) RequestName(name string, _ dbus.RequestNameFlags) (dbus.RequestNameReply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = append(c.names, name)
	return c.nameReply, nil
}

func (c *fakeConn) Object(dest string, path dbus.ObjectPath) dbus.BusObject {
	return &fakeObject{conn: c, dest: dest, path: path}
}

func (c *fakeConn) exported(path dbus.ObjectPath, iface string) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exports[string(path)+" "+iface]
}

// named returns the signals called name emitted on path.
func (c *fakeConn) named(path dbus.ObjectPath, name string) []signal {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []signal
	for _, s := range c.signals {
		if s.path == path && s.name == IBusEngineInterface+"."+name {
			out = append(out, s)
		}
	}
	return out
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signals = nil
}

type fakeObject struct {
	dbus.BusObject
	conn *fakeConn
	dest string
	path dbus.ObjectPath
}

func (o *fakeObject) Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call {
	call := &dbus.Call{Destination: o.dest, Path: o.path, Method: method, Args: args}
	o.conn.mu.Lock()
	o.conn.calls = append(o.conn.calls, call)
	o.conn.mu.Unlock()
	return call
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	l, err := logging.New(&logging.Config{Level: logging.LevelDebug, Writer: io.Discard})
	require.NoError(t, err)
	return l
}

// lastText returns the IBusText carried by the first value of the last
// signal in sigs.
func lastText(t *testing.T, sigs []signal) Text {
	t.Helper()
	require.NotEmpty(t, sigs)
	v, ok := sigs[len(sigs)-1].values[0].(dbus.Variant)
	require.True(t, ok)
	text, ok := v.Value().(Text)
	require.True(t, ok)
	return text
}
