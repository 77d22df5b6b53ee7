// m17n-try runs one m17n input method in the terminal, without IBus. It
// shows the committed text, the styled preedit, the status and the
// candidate page the way a client would.
//
//	m17n-try -name m17n:zh:pinyin
//	m17n-try -list
//
// Ctrl-C quits. Keys the method does not handle edit the text directly.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"

	"ibus-m17n/internal/catalog"
	"ibus-m17n/internal/config"
	"ibus-m17n/internal/engine"
	"ibus-m17n/internal/logging"
	"ibus-m17n/internal/m17n/backend"
	"ibus-m17n/internal/store"
)

type options struct {
	name       string
	list       bool
	verbose    bool
	configPath string
	keymaps    string
}

func main() {
	var opts options
	flag.StringVar(&opts.name, "name", "m17n:hi:itrans", "engine identifier, m17n:<language>:<method>")
	flag.BoolVar(&opts.list, "list", false, "list the available engines and exit")
	flag.BoolVar(&opts.verbose, "verbose", false, "log debug messages to the log file")
	flag.StringVar(&opts.configPath, "config", "", "configuration file (default "+config.ConfigPath()+")")
	flag.StringVar(&opts.keymaps, "keymaps", "", "additional keymap directories, "+string(os.PathListSeparator)+"-separated")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "m17n-try: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	_ = godotenv.Load()

	path := opts.configPath
	if path == "" {
		if path = config.FindConfigFile(); path == "" {
			path = config.ConfigPath()
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if opts.keymaps != "" {
		cfg.Keymaps.Dirs = append(cfg.Keymaps.Dirs, filepath.SplitList(opts.keymaps)...)
	}

	// The screen belongs to the session; logs go to the file only.
	logCfg, err := logging.FromConfig(cfg.Logging, opts.verbose)
	if err != nil {
		return err
	}
	logCfg.Output = "file"
	logCfg.Component = "m17n-try"
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	lib, err := backend.Open(cfg.Keymaps.Dirs)
	if err != nil {
		return fmt.Errorf("open %s library: %w", backend.Name, err)
	}
	defer lib.Close()

	cat, err := catalog.Load(lib, cfg.Engines, logger.Logger)
	if err != nil {
		return err
	}
	if opts.list {
		for _, e := range cat.Engines() {
			fmt.Printf("%-28s %s\n", e.Name, e.LongName)
		}
		return nil
	}

	// Stored settings are optional here: without a database the catalog
	// defaults apply.
	var settings config.Store
	if _, err := os.Stat(cfg.Store.Path); err == nil {
		st, err := store.OpenConfig(cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()
		settings = st
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	app := newApp(opts.name)
	manager := engine.NewManager(engine.NewRegistry(lib), app, cat.Resolver(settings), logger.Logger)
	defer manager.Shutdown()
	sess, err := manager.Open(opts.name)
	if err != nil {
		return err
	}
	app.session = sess
	logger.Info("session opened", "engine", opts.name, "backend", backend.Name)

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	app.run(screen)
	return nil
}
