// Package ibus connects the engine to the IBus daemon over D-Bus.
//
// The daemon talks to a Factory object, which opens one engine.Session per
// input context and exports it as an Engine object. Session output goes
// back as signals through Host. All of it runs on one Loop goroutine.
package ibus

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"

	"ibus-m17n/internal/catalog"
	"ibus-m17n/internal/config"
	"ibus-m17n/internal/engine"
	"ibus-m17n/internal/logging"
	"ibus-m17n/internal/m17n"
	"ibus-m17n/internal/metrics"
)

// Conn is the part of *dbus.Conn the server uses.
type Conn interface {
	Emitter
	Export(v interface{}, path dbus.ObjectPath, iface string) error
	RequestName(name string, flags dbus.RequestNameFlags) (dbus.RequestNameReply, error)
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
}

// ErrNameTaken is returned by Start when another process owns the bus name.
var ErrNameTaken = errors.New("ibus: bus name already taken")

// Connect opens a private connection to the IBus daemon at address.
func Connect(address string) (*dbus.Conn, error) {
	addr, err := Address(address)
	if err != nil {
		return nil, err
	}
	conn, err := dbus.Connect(addr)
	if err != nil {
		return nil, fmt.Errorf("connect to ibus daemon: %w", err)
	}
	return conn, nil
}

// Options configure a Server.
type Options struct {
	IBus     config.IBusConfig
	Library  m17n.Library
	Catalog  *catalog.Catalog
	Registry *engine.Registry
	Store    config.Store
	Crash    *logging.CrashHandler
	Logger   *logging.Logger
	Metrics  *metrics.EngineMetrics

	// QueueSize bounds the number of pending loop functions.
	QueueSize int
}

// Server owns the sessions of the process.
type Server struct {
	conn    Conn
	cfg     config.IBusConfig
	lib     m17n.Library
	loop    *Loop
	host    *Host
	manager *engine.Manager
	catalog *catalog.Catalog
	store   config.Store
	crash   *logging.CrashHandler
	log     *logging.Logger
	metrics *metrics.EngineMetrics
	engines map[dbus.ObjectPath]*Engine
}

// NewServer returns a server on conn. Nothing is exported until Start.
func NewServer(conn Conn, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logging.Default()
	}
	log = log.WithComponent("ibus")
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewEngineMetrics(nil)
	}
	s := &Server{
		conn:    conn,
		cfg:     opts.IBus,
		lib:     opts.Library,
		loop:    NewLoop(opts.QueueSize),
		host:    NewHost(conn, log.Logger),
		catalog: opts.Catalog,
		store:   opts.Store,
		crash:   opts.Crash,
		log:     log,
		metrics: opts.Metrics,
		engines: make(map[dbus.ObjectPath]*Engine),
	}
	s.host.commits = opts.Metrics.Commits
	if s.crash != nil {
		s.crash.OnCrash(func(logging.CrashReport) { s.metrics.Crashes.Inc() })
	}
	s.manager = engine.NewManager(opts.Registry, s.host, s.resolve, log.Logger)
	if s.store != nil {
		s.store.OnChange(s.StoreChanged)
	}
	return s
}

func (s *Server) resolve(v engine.EngineVariant) config.Settings {
	if s.catalog == nil {
		return config.Resolve(s.store, v.ConfigSection(), false)
	}
	return s.catalog.Resolver(s.store)(v)
}

// Start exports the factory and announces it to the daemon: by requesting
// the configured bus name when the daemon launched us, or by registering
// the component otherwise.
func (s *Server) Start(launchedByDaemon bool) error {
	if err := s.conn.Export(&Factory{server: s}, IBusFactoryPath, IBusFactoryInterface); err != nil {
		return fmt.Errorf("export factory: %w", err)
	}
	if launchedByDaemon {
		reply, err := s.conn.RequestName(s.cfg.BusName, dbus.NameFlagDoNotQueue)
		if err != nil {
			return fmt.Errorf("request bus name: %w", err)
		}
		if reply != dbus.RequestNameReplyPrimaryOwner {
			return fmt.Errorf("%w: %s", ErrNameTaken, s.cfg.BusName)
		}
		s.log.Info("bus name acquired", "name", s.cfg.BusName)
		return nil
	}
	return s.RegisterComponent()
}

// RegisterComponent sends the component description, engines included, to
// the daemon.
func (s *Server) RegisterComponent() error {
	if s.catalog == nil {
		return errors.New("ibus: no engine catalog")
	}
	comp := NewComponent(s.catalog.Component(s.cfg), s.catalog.Engines())
	call := s.conn.Object(IBusService, IBusPath).Call(IBusInterface+".RegisterComponent", 0, dbus.MakeVariant(comp))
	if call.Err != nil {
		return fmt.Errorf("register component: %w", call.Err)
	}
	s.log.Info("component registered", "name", s.cfg.ComponentName, "engines", len(comp.Engines))
	return nil
}

// Run serves bus calls until ctx is cancelled, then closes every session
// and method.
func (s *Server) Run(ctx context.Context) {
	s.loop.Run(ctx)
	s.manager.Shutdown()
	for path := range s.engines {
		s.unexport(path)
	}
	s.metrics.ActiveSessions.Set(0)
	s.log.Info("server stopped")
}

// StoreChanged applies a configuration store change on the loop. It may be
// called from any goroutine.
func (s *Server) StoreChanged(c config.Change) {
	s.loop.Post(func() {
		s.log.Debug("setting changed", "section", c.Section, "key", c.Key, "deleted", c.Deleted)
		s.manager.ApplyChange(c)
		s.metrics.SettingChanges.Inc()
	})
}

// ReloadCatalog rebuilds the engine catalog with new overrides, for
// example after the configuration file changed, and re-resolves the
// settings of open sessions. The library is only used on the loop.
func (s *Server) ReloadCatalog(overrides []config.EngineOverride) {
	s.loop.Post(func() {
		if s.lib == nil {
			return
		}
		c, err := catalog.Load(s.lib, overrides, s.log.Logger)
		if err != nil {
			s.log.Warn("reload catalog", "error", err)
			return
		}
		s.catalog = c
		s.manager.Reload()
		s.metrics.CatalogReloads.Inc()
		s.log.Info("catalog reloaded", "engines", len(c.Names()))
	})
}

// Metrics returns the metrics of the server.
func (s *Server) Metrics() *metrics.EngineMetrics {
	return s.metrics
}

// Sessions returns the number of open sessions.
func (s *Server) Sessions() int {
	var n int
	s.loop.Call(func() { n = len(s.engines) })
	return n
}

func (s *Server) createEngine(name string) (dbus.ObjectPath, error) {
	if s.catalog != nil {
		if _, ok := s.catalog.Lookup(name); !ok {
			s.log.Debug("engine not in catalog", "engine", name)
		}
	}
	var (
		sess *engine.Session
		err  error
	)
	if !s.guard("CreateEngine", name, func() { sess, err = s.manager.Open(name) }) {
		return "", fmt.Errorf("create engine %s: internal error", name)
	}
	if err != nil {
		return "", err
	}
	e := &Engine{
		server:  s,
		session: sess,
		path:    EnginePath(sess.ID()),
		log:     s.log.WithEngine(name).WithSession(sess.ID()).Logger,
	}
	for _, iface := range []string{IBusEngineInterface, IBusServiceInterface} {
		if err := s.conn.Export(e, e.path, iface); err != nil {
			s.manager.Close(sess)
			return "", fmt.Errorf("export engine: %w", err)
		}
	}
	s.engines[e.path] = e
	s.metrics.SessionsOpened.Inc()
	s.metrics.ActiveSessions.Inc()
	e.log.Info("engine created", "path", e.path)
	return e.path, nil
}

func (s *Server) destroyEngine(e *Engine) {
	s.manager.Close(e.session)
	if _, ok := s.engines[e.path]; ok {
		s.unexport(e.path)
		s.metrics.ActiveSessions.Dec()
		e.log.Info("engine destroyed")
	}
}

func (s *Server) unexport(path dbus.ObjectPath) {
	for _, iface := range []string{IBusEngineInterface, IBusServiceInterface} {
		s.conn.Export(nil, path, iface)
	}
	delete(s.engines, path)
}

// guard runs fn, turning a panic into a crash report. It reports whether
// fn returned normally.
func (s *Server) guard(op, engineName string, fn func()) bool {
	if s.crash == nil {
		fn()
		return true
	}
	return s.crash.Run(op, engineName, fn)
}
