// ibus-setup-m17n edits the per-engine style settings read by
// ibus-engine-m17n. A running engine picks the changes up immediately.
//
//	ibus-setup-m17n -name m17n:si:wijesekera -list
//	ibus-setup-m17n -name m17n:zh:pinyin -set preedit_background=#c8c8f0
//	ibus-setup-m17n -name m17n:zh:pinyin -unset lookup_table_orientation
//	ibus-setup-m17n -list
//	ibus-setup-m17n -check
//	ibus-setup-m17n -stats
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"ibus-m17n/internal/catalog"
	"ibus-m17n/internal/config"
	"ibus-m17n/internal/engine"
	"ibus-m17n/internal/m17n"
	"ibus-m17n/internal/store"
)

func main() {
	name := flag.String("name", "", "engine identifier, m17n:<language>:<method>")
	list := flag.Bool("list", false, "show the settings of -name, or every configured engine")
	get := flag.String("get", "", "print the stored value of `key`")
	set := flag.String("set", "", "store `key=value`")
	unset := flag.String("unset", "", "remove the stored value of `key`")
	check := flag.Bool("check", false, "verify the settings database")
	stats := flag.Bool("stats", false, "print the counters last written by the engine")
	configPath := flag.String("config", "", "configuration file (default "+config.ConfigPath()+")")
	flag.Parse()

	_ = godotenv.Load()

	if err := run(*configPath, *name, command{list: *list, get: *get, set: *set, unset: *unset, check: *check, stats: *stats}); err != nil {
		fmt.Fprintf(os.Stderr, "ibus-setup-m17n: %v\n", err)
		os.Exit(1)
	}
}

type command struct {
	list  bool
	check bool
	stats bool
	get   string
	set   string
	unset string
}

func run(configPath, name string, cmd command) error {
	if configPath == "" {
		if configPath = config.FindConfigFile(); configPath == "" {
			configPath = config.ConfigPath()
		}
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	st, err := store.OpenConfig(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	tool := &setupTool{out: os.Stdout, store: st, overrides: cfg.Engines, metricsFile: cfg.Metrics.File}
	return tool.exec(name, cmd)
}

// setupTool applies one command to the settings store.
type setupTool struct {
	out         io.Writer
	store       *store.Store
	overrides   []config.EngineOverride
	metricsFile string
}

func (t *setupTool) exec(name string, cmd command) error {
	if cmd.check {
		if err := t.store.Verify(); err != nil {
			return err
		}
		schema, err := t.store.SchemaVersion()
		if err != nil {
			return err
		}
		fmt.Fprintf(t.out, "%s: ok (schema %d, revision %d)\n", t.store.Path(), schema, t.store.Revision())
		return nil
	}
	if cmd.stats {
		return t.printStats()
	}
	if name == "" {
		if cmd.list {
			return t.listSections()
		}
		return errors.New("-name is required")
	}
	v, err := engine.ParseIdentifier(name)
	if err != nil {
		return err
	}

	switch {
	case cmd.set != "":
		key, value, ok := strings.Cut(cmd.set, "=")
		if !ok {
			return fmt.Errorf("-set expects key=value, got %q", cmd.set)
		}
		return t.set(v, strings.TrimSpace(key), strings.TrimSpace(value))
	case cmd.unset != "":
		if err := checkKey(cmd.unset); err != nil {
			return err
		}
		return t.store.Unset(v.ConfigSection(), cmd.unset)
	case cmd.get != "":
		if err := checkKey(cmd.get); err != nil {
			return err
		}
		value, ok, err := t.store.Get(v.ConfigSection(), cmd.get)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s is not set for %s", cmd.get, name)
		}
		fmt.Fprintln(t.out, value)
		return nil
	default:
		return t.listEngine(v)
	}
}

func checkKey(key string) error {
	if !slices.Contains(config.SettingKeys, key) {
		return fmt.Errorf("unknown key %q (known: %s)", key, strings.Join(config.SettingKeys, ", "))
	}
	return nil
}

// set validates value the way the engine parses it before storing it.
func (t *setupTool) set(v engine.EngineVariant, key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	var s config.Settings
	if _, err := s.Apply(key, value); err != nil {
		return err
	}
	return t.store.Set(v.ConfigSection(), key, value)
}

// highlight reports the catalog default of v under the configured
// overrides.
func (t *setupTool) highlight(v engine.EngineVariant) bool {
	cat := catalog.Build([]m17n.MethodInfo{{Language: v.Language, Name: v.Method}}, t.overrides, nil)
	return cat.PreeditHighlight(v.String())
}

func (t *setupTool) listEngine(v engine.EngineVariant) error {
	section := v.ConfigSection()
	effective := config.Resolve(t.store, section, t.highlight(v))

	tw := tabwriter.NewWriter(t.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "KEY\tVALUE\tSTORED\n")
	for _, key := range config.SettingKeys {
		stored, ok, err := t.store.Get(section, key)
		if err != nil {
			return err
		}
		if !ok {
			stored = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", key, formatSetting(effective, key), stored)
	}
	return tw.Flush()
}

func (t *setupTool) listSections() error {
	sections, err := t.store.Sections()
	if err != nil {
		return err
	}
	for _, section := range sections {
		entries, err := t.store.List(section)
		if err != nil {
			return err
		}
		fmt.Fprintf(t.out, "[%s]\n", section)
		for _, e := range entries {
			fmt.Fprintf(t.out, "%s = %s\n", e.Key, e.Value)
		}
	}
	return nil
}

// printStats prints the samples of the engine's metrics file, one per
// line, without the exposition comments.
func (t *setupTool) printStats() error {
	if t.metricsFile == "" {
		return errors.New("metrics are disabled in the configuration")
	}
	data, err := os.ReadFile(t.metricsFile)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s does not exist; is the engine running?", t.metricsFile)
	}
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(t.out, 0, 4, 2, ' ', 0)
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		i := strings.LastIndexByte(line, ' ')
		if i < 0 {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\n", line[:i], line[i+1:])
	}
	return tw.Flush()
}

func formatSetting(s config.Settings, key string) string {
	switch key {
	case config.KeyPreeditForeground:
		return colorOrNone(s.Foreground)
	case config.KeyPreeditBackground:
		return colorOrNone(s.Background)
	case config.KeyPreeditUnderline:
		return strconv.Itoa(int(s.Underline))
	case config.KeyLookupTableOrientation:
		return strconv.Itoa(int(s.Orientation))
	}
	return ""
}

func colorOrNone(c config.Color) string {
	if !c.Valid() {
		return "none"
	}
	return c.String()
}
