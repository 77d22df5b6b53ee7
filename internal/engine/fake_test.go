package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"ibus-m17n/internal/m17n"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeContext is a scripted m17n.Context.
type fakeContext struct {
	id     uint64
	method *fakeMethod

	preedit m17n.Text
	cursor  int
	status  m17n.Text
	cands   m17n.CandidateList
	index   int
	show    bool

	filter func(c *fakeContext, key m17n.Symbol) bool
	lookup func(c *fakeContext, key m17n.Symbol, produced *m17n.Text) bool

	keys      []m17n.Symbol
	resets    int
	destroyed int
}

func (c *fakeContext) emit(cmd m17n.Symbol) {
	if cb, ok := c.method.callbacks[cmd]; ok {
		cb(c, cmd)
	}
}

func (c *fakeContext) ID() uint64 { return c.id }

func (c *fakeContext) Filter(key m17n.Symbol) bool {
	c.keys = append(c.keys, key)
	if c.filter == nil {
		return false
	}
	return c.filter(c, key)
}

func (c *fakeContext) Lookup(key m17n.Symbol, produced *m17n.Text) bool {
	if c.lookup == nil {
		return false
	}
	return c.lookup(c, key, produced)
}

func (c *fakeContext) Reset() {
	c.resets++
	c.preedit = nil
	c.cursor = 0
}

func (c *fakeContext) Preedit() m17n.Text { return c.preedit }
func (c *fakeContext) CursorPos() int { return c.cursor }
func (c *fakeContext) Status() m17n.Text { return c.status }
func (c *fakeContext) Candidates() m17n.CandidateList { return c.cands }
func (c *fakeContext) CandidateIndex() int { return c.index }
func (c *fakeContext) CandidateShow() bool { return c.show }
func (c *fakeContext) Destroy() { c.destroyed++ }

// fakeMethod creates fakeContexts. setup configures each new context and
// may emit callbacks, as a real method does while creating a context.
type fakeMethod struct {
	lib       *fakeLibrary
	callbacks map[m17n.Symbol]m17n.Callback
	sets      int
	contexts  []*fakeContext
	setup     func(c *fakeContext)
	createErr error
	closed    int
}

func (m *fakeMethod) SetCallback(cmd m17n.Symbol, cb m17n.Callback) {
	m.sets++
	m.callbacks[cmd] = cb
}

func (m *fakeMethod) CreateContext() (m17n.Context, error) {
	m.lib.nextID++
	c := &fakeContext{id: m.lib.nextID, method: m}
	if m.setup != nil {
		m.setup(c)
	}
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.contexts = append(m.contexts, c)
	return c, nil
}

func (m *fakeMethod) Close() { m.closed++ }

type fakeLibrary struct {
	methods map[EngineVariant]*fakeMethod
	opens   map[EngineVariant]int
	nextID  uint64
	closed  bool
}

func newFakeLibrary(ids ...string) *fakeLibrary {
	l := &fakeLibrary{
		methods: make(map[EngineVariant]*fakeMethod),
		opens:   make(map[EngineVariant]int),
	}
	for _, id := range ids {
		v, err := ParseIdentifier(id)
		if err != nil {
			panic(err)
		}
		l.methods[v] = &fakeMethod{lib: l, callbacks: make(map[m17n.Symbol]m17n.Callback)}
	}
	return l
}

func (l *fakeLibrary) method(id string) *fakeMethod {
	v, err := ParseIdentifier(id)
	if err != nil {
		panic(err)
	}
	return l.methods[v]
}

func (l *fakeLibrary) OpenMethod(lang, name m17n.Symbol) (m17n.Method, error) {
	v := EngineVariant{Language: lang, Method: name}
	l.opens[v]++
	m, ok := l.methods[v]
	if !ok {
		return nil, fmt.Errorf("%w: %s-%s", m17n.ErrNoMethod, lang, name)
	}
	return m, nil
}

func (l *fakeLibrary) ListMethods() ([]m17n.MethodInfo, error) {
	var out []m17n.MethodInfo
	for v := range l.methods {
		out = append(out, m17n.MethodInfo{Language: v.Language, Name: v.Method})
	}
	return out, nil
}

func (l *fakeLibrary) Close() error {
	if l.closed {
		return errors.New("closed twice")
	}
	l.closed = true
	return nil
}

// composeLookup commits the key itself for single-character keys.
func composeLookup(c *fakeContext, key m17n.Symbol, produced *m17n.Text) bool {
	t := m17n.TextOf(string(key))
	if t.Len() != 1 {
		return false
	}
	*produced = append(*produced, t...)
	return true
}

// recordingHost records every sink call.
type recordingHost struct {
	events   []string
	commits  []string
	preedits []PreeditState
	pages    []*CandidatePage
	statuses []StatusState
	props    [][]Property
}

func (h *recordingHost) CommitText(s *Session, text string) {
	h.events = append(h.events, "commit")
	h.commits = append(h.commits, text)
}

func (h *recordingHost) UpdatePreedit(s *Session, text string, attrs []Attribute, cursorPos int, visible bool) {
	h.events = append(h.events, "preedit")
	h.preedits = append(h.preedits, PreeditState{Text: text, Attributes: attrs, CursorPos: cursorPos, Visible: visible})
}

func (h *recordingHost) HidePreedit(s *Session) {
	h.events = append(h.events, "hide-preedit")
}

func (h *recordingHost) UpdateCandidates(s *Session, page *CandidatePage) {
	h.events = append(h.events, "candidates")
	h.pages = append(h.pages, page)
}

func (h *recordingHost) HideCandidates(s *Session) {
	h.events = append(h.events, "hide-candidates")
}

func (h *recordingHost) UpdateStatusProperty(s *Session, label string, visible bool) {
	h.events = append(h.events, "status")
	h.statuses = append(h.statuses, StatusState{Text: label, Visible: visible})
}

func (h *recordingHost) RegisterProperties(s *Session, props []Property) {
	h.events = append(h.events, "props")
	h.props = append(h.props, props)
}

func (h *recordingHost) reset() {
	*h = recordingHost{}
}
