// Package table is a pure-Go m17n.Library driven by YAML keymaps.
//
// A keymap maps key sequences to output text or to candidate groups.
// While a sequence is incomplete it is shown as preedit; a completed
// sequence either commits its output or opens a candidate list that is
// navigated with Up/Down (group), Left/Right (candidate), digits, space
// and Return. A few keymaps are built in; more are loaded from
// directories of *.yaml files, later definitions replacing earlier ones.
package table

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"ibus-m17n/internal/m17n"
)

//go:embed keymaps/*.yaml
var builtin embed.FS

type methodKey struct {
	language, name m17n.Symbol
}

// Library holds the known keymaps.
type Library struct {
	keymaps map[methodKey]*Keymap
	nextID  atomic.Uint64
}

// New returns a Library with the built-in keymaps and those found in dirs.
// Missing directories are skipped.
func New(dirs ...string) (*Library, error) {
	l := &Library{keymaps: make(map[methodKey]*Keymap)}
	err := fs.WalkDir(builtin, "keymaps", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := builtin.ReadFile(path)
		if err != nil {
			return err
		}
		km, err := ParseKeymap(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		l.Add(km)
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		if err := l.LoadDir(dir); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// LoadDir adds every *.yaml and *.yml keymap in dir.
func (l *Library) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		km, err := LoadKeymap(filepath.Join(dir, e.Name()))
		if err != nil {
			return err
		}
		l.Add(km)
	}
	return nil
}

// Add registers km, replacing a keymap with the same language and name.
func (l *Library) Add(km *Keymap) {
	l.keymaps[methodKey{m17n.Symbol(km.Language), m17n.Symbol(km.Name)}] = km
}

// OpenMethod implements m17n.Library.
func (l *Library) OpenMethod(language, name m17n.Symbol) (m17n.Method, error) {
	km, ok := l.keymaps[methodKey{language, name}]
	if !ok {
		return nil, fmt.Errorf("%w: %s-%s", m17n.ErrNoMethod, language, name)
	}
	return &method{
		lib:       l,
		keymap:    km,
		index:     newIndex(km),
		callbacks: make(map[m17n.Symbol]m17n.Callback),
	}, nil
}

// ListMethods implements m17n.Library. Methods are sorted by language
// and name.
func (l *Library) ListMethods() ([]m17n.MethodInfo, error) {
	out := make([]m17n.MethodInfo, 0, len(l.keymaps))
	for k, km := range l.keymaps {
		out = append(out, m17n.MethodInfo{
			Language:    k.language,
			Name:        k.name,
			Title:       km.Title,
			Description: km.Description,
			Icon:        km.Icon,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Language != out[j].Language {
			return out[i].Language < out[j].Language
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Close implements m17n.Library.
func (l *Library) Close() error {
	return nil
}

type method struct {
	lib       *Library
	keymap    *Keymap
	index     *index
	callbacks map[m17n.Symbol]m17n.Callback
	closed    bool
}

func (m *method) SetCallback(command m17n.Symbol, cb m17n.Callback) {
	m.callbacks[command] = cb
}

// CreateContext draws the status of the new context, the way libm17n
// does while creating one.
func (m *method) CreateContext() (m17n.Context, error) {
	if m.closed {
		return nil, m17n.ErrContext
	}
	c := &context{id: m.lib.nextID.Add(1), m: m}
	if m.keymap.Title != "" {
		c.emit(m17n.StatusStart)
		c.drawStatus()
	}
	return c, nil
}

func (m *method) Close() {
	m.closed = true
}
