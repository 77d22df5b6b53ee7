// Package catalog enumerates the engines the process offers to IBus.
package catalog

import (
	"fmt"
	"log/slog"
	"path"
	"sort"

	"ibus-m17n/internal/config"
	"ibus-m17n/internal/engine"
	"ibus-m17n/internal/m17n"
)

// Component metadata.
const (
	ComponentVersion = "0.1.0"
	License          = "GPL"
	Author           = "Peng Huang <shawn.p.huang@gmail.com>"
	Homepage         = "http://code.google.com/p/ibus/"
	Layout           = "us"
)

// defaultRanked lists the preferred method of each language. They get rank
// 1, every other engine rank 0.
var defaultRanked = map[string]bool{
	"m17n:as:phonetic":      true,
	"m17n:bn:inscript":      true,
	"m17n:gu:inscript":      true,
	"m17n:hi:inscript":      true,
	"m17n:kn:kgp":           true,
	"m17n:ks:kbd":           true,
	"m17n:mai:inscript":     true,
	"m17n:ml:inscript":      true,
	"m17n:mr:inscript":      true,
	"m17n:ne:rom":           true,
	"m17n:or:inscript":      true,
	"m17n:pa:inscript":      true,
	"m17n:sa:harvard-kyoto": true,
	"m17n:sd:inscript":      true,
	"m17n:si:wijesekera":    true,
	"m17n:ta:tamil99":       true,
	"m17n:te:inscript":      true,
}

// highlightPatterns select engines whose preedit is highlighted by default:
// the conversion-style methods where the preedit is long-lived.
var highlightPatterns = []string{
	"m17n:ja:*",
	"m17n:ko:*",
	"m17n:zh:*",
}

// EngineInfo describes one engine.
type EngineInfo struct {
	Name             string
	LongName         string
	Description      string
	Language         string
	License          string
	Author           string
	Icon             string
	Layout           string
	Symbol           string
	Rank             int
	PreeditHighlight bool
}

// Variant returns the engine variant of e.
func (e EngineInfo) Variant() engine.EngineVariant {
	v, _ := engine.ParseIdentifier(e.Name)
	return v
}

// Catalog is the ordered list of engines.
type Catalog struct {
	engines []EngineInfo
	byName  map[string]int
}

// Build creates a catalog from method descriptions. Overrides apply in
// order, so a later match wins. Methods whose identifier is malformed are
// skipped.
func Build(methods []m17n.MethodInfo, overrides []config.EngineOverride, log *slog.Logger) *Catalog {
	if log == nil {
		log = slog.Default()
	}
	c := &Catalog{byName: make(map[string]int)}
	for _, mi := range methods {
		v := engine.EngineVariant{Language: mi.Language, Method: mi.Name}
		name := v.String()
		if _, err := engine.ParseIdentifier(name); err != nil {
			log.Debug("skipping input method", "engine", name, "error", err)
			continue
		}
		if _, dup := c.byName[name]; dup {
			continue
		}
		info := EngineInfo{
			Name:        name,
			LongName:    fmt.Sprintf("%s (m17n)", mi.Name),
			Description: mi.Description,
			Language:    string(mi.Language),
			License:     License,
			Author:      Author,
			Icon:        mi.Icon,
			Layout:      Layout,
			Symbol:      mi.Title,
		}
		if defaultRanked[name] {
			info.Rank = 1
		}
		for _, p := range highlightPatterns {
			if ok, _ := path.Match(p, name); ok {
				info.PreeditHighlight = true
			}
		}
		for _, o := range overrides {
			if !o.Match(name) {
				continue
			}
			if o.Rank != nil {
				info.Rank = *o.Rank
			}
			if o.PreeditHighlight != nil {
				info.PreeditHighlight = *o.PreeditHighlight
			}
		}
		c.byName[name] = len(c.engines)
		c.engines = append(c.engines, info)
	}
	sort.SliceStable(c.engines, func(i, j int) bool {
		return c.engines[i].Name < c.engines[j].Name
	})
	for i, e := range c.engines {
		c.byName[e.Name] = i
	}
	return c
}

// Load builds a catalog from the methods lib lists.
func Load(lib m17n.Library, overrides []config.EngineOverride, log *slog.Logger) (*Catalog, error) {
	methods, err := lib.ListMethods()
	if err != nil {
		return nil, fmt.Errorf("list input methods: %w", err)
	}
	return Build(methods, overrides, log), nil
}

// Engines returns the engines ordered by name.
func (c *Catalog) Engines() []EngineInfo {
	return append([]EngineInfo(nil), c.engines...)
}

// Names returns the engine identifiers ordered by name.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.engines))
	for i, e := range c.engines {
		names[i] = e.Name
	}
	return names
}

// Lookup returns the engine named name.
func (c *Catalog) Lookup(name string) (EngineInfo, bool) {
	i, ok := c.byName[name]
	if !ok {
		return EngineInfo{}, false
	}
	return c.engines[i], true
}

// PreeditHighlight reports whether name highlights its preedit by default.
// Unknown engines do not.
func (c *Catalog) PreeditHighlight(name string) bool {
	e, ok := c.Lookup(name)
	return ok && e.PreeditHighlight
}

// Resolver returns the settings resolver for the engine manager: stored
// values from store over the catalog defaults.
func (c *Catalog) Resolver(store config.Store) engine.SettingsFunc {
	return func(v engine.EngineVariant) config.Settings {
		return config.Resolve(store, v.ConfigSection(), c.PreeditHighlight(v.String()))
	}
}
