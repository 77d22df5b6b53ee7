// ibus-engine-m17n serves m17n input methods to the IBus daemon.
//
// Usage:
//
//	ibus-engine-m17n -xml          print the <engines> list and exit
//	ibus-engine-m17n -install      write the IBus component file and exit
//	ibus-engine-m17n -ibus         run as launched by ibus-daemon
//	ibus-engine-m17n               run standalone, registering the component
//
// Style settings are read from the settings store and follow live changes
// made with ibus-setup-m17n.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ibus-m17n/internal/catalog"
	"ibus-m17n/internal/config"
	"ibus-m17n/internal/engine"
	"ibus-m17n/internal/ibus"
	"ibus-m17n/internal/logging"
	"ibus-m17n/internal/m17n/backend"
	"ibus-m17n/internal/metrics"
	"ibus-m17n/internal/security"
	"ibus-m17n/internal/store"
)

const version = catalog.ComponentVersion

type options struct {
	xml        bool
	ibus       bool
	verbose    bool
	install    bool
	configPath string
	keymaps    string
}

func main() {
	var opts options
	flag.BoolVar(&opts.xml, "xml", false, "print the engine list as XML and exit")
	flag.BoolVar(&opts.ibus, "ibus", false, "component is executed by ibus-daemon")
	flag.BoolVar(&opts.verbose, "verbose", false, "log debug messages")
	flag.BoolVar(&opts.install, "install", false, "install the IBus component file and exit")
	flag.StringVar(&opts.configPath, "config", "", "configuration file (default "+config.ConfigPath()+")")
	flag.StringVar(&opts.keymaps, "keymaps", "", "additional keymap directories, "+string(os.PathListSeparator)+"-separated")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "ibus-engine-m17n: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	// A .env next to the binary's working directory may set IBUS_M17N_*.
	_ = godotenv.Load()

	path := opts.configPath
	if path == "" {
		if path = config.FindConfigFile(); path == "" {
			path = config.ConfigPath()
		}
	}
	loader := config.NewLoader(path)
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	defer loader.Close()
	if opts.keymaps != "" {
		cfg.Keymaps.Dirs = append(cfg.Keymaps.Dirs, filepath.SplitList(opts.keymaps)...)
	}

	logCfg, err := logging.FromConfig(cfg.Logging, opts.verbose)
	if err != nil {
		return err
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	defer logger.Close()
	logging.SetDefault(logger)

	if err := security.DisableCoreDumps(); err != nil {
		logger.Debug("core dumps stay enabled", "error", err)
	}

	lib, err := backend.Open(cfg.Keymaps.Dirs)
	if err != nil {
		return fmt.Errorf("open %s library: %w", backend.Name, err)
	}
	defer lib.Close()

	cat, err := catalog.Load(lib, cfg.Engines, logger.Logger)
	if err != nil {
		return err
	}

	if opts.xml {
		return cat.WriteEngines(os.Stdout)
	}
	if opts.install {
		file, err := cat.InstallComponent("", cfg.IBus)
		if err != nil {
			return err
		}
		fmt.Printf("Installed %s. Run 'ibus restart' to load it.\n", file)
		return nil
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	if !opts.ibus {
		// ibus-daemon keeps a single instance through the bus name; a
		// standalone engine needs its own guard.
		lock, err := security.AcquireLock(filepath.Join(filepath.Dir(cfg.Store.Path), "engine.lock"))
		if err != nil {
			return fmt.Errorf("another engine is running: %w", err)
		}
		defer lock.Release()
	}
	st, err := store.OpenConfig(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	conn, err := ibus.Connect(cfg.IBus.Address)
	if err != nil {
		return err
	}
	defer conn.Close()

	crash := logging.NewCrashHandler("", version, logger)
	if err := crash.Cleanup(30 * 24 * time.Hour); err != nil {
		logger.Debug("crash report cleanup", "error", err)
	}

	stats := metrics.NewEngineMetrics(nil)
	srv := ibus.NewServer(conn, ibus.Options{
		IBus:     cfg.IBus,
		Library:  lib,
		Catalog:  cat,
		Registry: engine.NewRegistry(lib),
		Store:    st,
		Crash:    crash,
		Logger:   logger,
		Metrics:  stats,
	})
	if err := srv.Start(opts.ibus); err != nil {
		return err
	}
	logger.Info("engine started",
		"backend", backend.Name,
		"engines", len(cat.Names()),
		"config", loader.Path(),
		"store", st.Path(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Store.Watch {
		w := store.NewWatcher(st)
		if err := w.Start(); err != nil {
			logger.Warn("settings written by other processes will not be seen", "error", err)
		} else {
			defer w.Close()
			go logErrors(ctx, logger, "settings watcher", w.Errors())
		}
	}

	loader.OnChange(func(c *config.Config) {
		logger.Info("configuration changed", "path", loader.Path())
		srv.ReloadCatalog(c.Engines)
	})
	if err := loader.Watch(); err != nil {
		logger.Warn("configuration changes will not be seen", "error", err)
	} else {
		go logErrors(ctx, logger, "config watcher", loader.Errors())
	}

	if cfg.Metrics.File != "" {
		defer func() {
			if err := stats.WriteFile(cfg.Metrics.File); err != nil {
				logger.Warn("write metrics", "error", err)
			}
		}()
		if cfg.Metrics.IntervalSec > 0 {
			go writeMetrics(ctx, logger, stats, cfg.Metrics)
		}
	}

	go func() {
		select {
		case <-conn.Context().Done():
			logger.Info("connection to ibus-daemon closed")
			stop()
		case <-ctx.Done():
		}
	}()

	srv.Run(ctx)
	return nil
}

func logErrors(ctx context.Context, logger *logging.Logger, source string, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errs:
			logger.Warn(source, "error", err)
		}
	}
}

func writeMetrics(ctx context.Context, logger *logging.Logger, stats *metrics.EngineMetrics, cfg config.MetricsConfig) {
	ticker := time.NewTicker(time.Duration(cfg.IntervalSec) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := stats.WriteFile(cfg.File); err != nil {
				logger.Warn("write metrics", "error", err)
			}
		}
	}
}
