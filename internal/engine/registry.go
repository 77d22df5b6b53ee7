package engine

import (
	"fmt"
	"sort"

	"ibus-m17n/internal/m17n"
)

// Registry holds the opened methods of a process, one per variant. It owns
// them: sessions only borrow a Method and Close releases every entry.
type Registry struct {
	lib     m17n.Library
	methods map[EngineVariant]m17n.Method
	failed  map[EngineVariant]error
}

// NewRegistry returns a Registry opening methods from lib.
func NewRegistry(lib m17n.Library) *Registry {
	return &Registry{
		lib:     lib,
		methods: make(map[EngineVariant]m17n.Method),
		failed:  make(map[EngineVariant]error),
	}
}

// Method returns the method of v, opening it on first use. onOpen runs
// once, right after the method is opened. A failed open is remembered and
// returned again without asking the library.
func (r *Registry) Method(v EngineVariant, onOpen func(m17n.Method)) (m17n.Method, error) {
	if m, ok := r.methods[v]; ok {
		return m, nil
	}
	if err, ok := r.failed[v]; ok {
		return nil, err
	}
	m, err := r.lib.OpenMethod(v.Language, v.Method)
	if err == nil && m == nil {
		err = m17n.ErrNoMethod
	}
	if err != nil {
		err = fmt.Errorf("%w: %s: %v", ErrMethodUnavailable, v, err)
		r.failed[v] = err
		return nil, err
	}
	if onOpen != nil {
		onOpen(m)
	}
	r.methods[v] = m
	return m, nil
}

// Variants returns the variants with an open method, sorted.
func (r *Registry) Variants() []EngineVariant {
	out := make([]EngineVariant, 0, len(r.methods))
	for v := range r.methods {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Close closes every opened method.
func (r *Registry) Close() {
	for _, v := range r.Variants() {
		r.methods[v].Close()
		delete(r.methods, v)
	}
	r.failed = make(map[EngineVariant]error)
}
