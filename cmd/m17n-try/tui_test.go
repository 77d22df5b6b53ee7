package main

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibus-m17n/internal/engine"
	"ibus-m17n/internal/keysym"
	"ibus-m17n/internal/m17n/table"
)

func newTestApp(t *testing.T, name string) *app {
	t.Helper()
	lib, err := table.New()
	require.NoError(t, err)
	t.Cleanup(func() { lib.Close() })

	a := newApp(name)
	manager := engine.NewManager(engine.NewRegistry(lib), a, nil, nil)
	t.Cleanup(manager.Shutdown)
	a.session, err = manager.Open(name)
	require.NoError(t, err)
	a.session.FocusIn()
	return a
}

func newScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, s.Init())
	t.Cleanup(s.Fini)
	s.SetSize(60, 12)
	return s
}

func typeRunes(a *app, text string) {
	for _, r := range text {
		a.handleKey(tcell.NewEventKey(tcell.KeyRune, r, 0))
	}
}

func TestKeyEvent(t *testing.T) {
	tests := []struct {
		name   string
		ev     *tcell.EventKey
		keyval uint32
		state  uint32
	}{
		{"ascii", tcell.NewEventKey(tcell.KeyRune, 'a', 0), 'a', 0},
		{"unicode", tcell.NewEventKey(tcell.KeyRune, 'क', 0), 0x01000915, 0},
		{"enter", tcell.NewEventKey(tcell.KeyEnter, 0, 0), keysym.Return, 0},
		{"backspace", tcell.NewEventKey(tcell.KeyBackspace2, 0, 0), keysym.BackSpace, 0},
		{"ctrl letter", tcell.NewEventKey(tcell.KeyCtrlB, 0, tcell.ModCtrl), 'b', keysym.ControlMask},
		{"ctrl rune", tcell.NewEventKey(tcell.KeyRune, 'B', tcell.ModCtrl), 'b', keysym.ControlMask},
		{"function", tcell.NewEventKey(tcell.KeyF3, 0, 0), keysym.F1 + 2, 0},
		{"shift arrow", tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModShift), keysym.Left, keysym.ShiftMask},
		{"alt", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModAlt), 'x', keysym.Mod1Mask},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keyval, _, state, ok := keyEvent(tt.ev)
			require.True(t, ok)
			assert.Equal(t, tt.keyval, keyval)
			assert.Equal(t, tt.state, state)
		})
	}

	_, keycode, _, _ := keyEvent(tcell.NewEventKey(tcell.KeyRune, 'q', 0))
	assert.Equal(t, uint32(16), keycode)

	_, _, _, ok := keyEvent(tcell.NewEventKey(tcell.KeyInsert, 0, 0))
	assert.False(t, ok)
}

func TestQuit(t *testing.T) {
	a := newTestApp(t, "m17n:t:latn-post")
	assert.False(t, a.handleKey(tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl)))
	assert.True(t, a.handleKey(tcell.NewEventKey(tcell.KeyRune, 'e', 0)))
}

func TestTypeAndEdit(t *testing.T) {
	a := newTestApp(t, "m17n:t:latn-post")

	typeRunes(a, "e")
	assert.Empty(t, a.text)
	assert.True(t, a.preedit.Visible)
	assert.Equal(t, "e", a.preedit.Text)

	typeRunes(a, "'x")
	assert.Equal(t, "éx", a.text)

	a.handleKey(tcell.NewEventKey(tcell.KeyEnter, 0, 0))
	typeRunes(a, "z")
	assert.Equal(t, "éx\nz", a.text)

	a.handleKey(tcell.NewEventKey(tcell.KeyBackspace2, 0, 0))
	a.handleKey(tcell.NewEventKey(tcell.KeyBackspace2, 0, 0))
	assert.Equal(t, "éx", a.text)
}

func TestEnterAfterPreedit(t *testing.T) {
	a := newTestApp(t, "m17n:hi:itrans")
	typeRunes(a, "k")
	require.True(t, a.preedit.Visible)

	a.handleKey(tcell.NewEventKey(tcell.KeyEnter, 0, 0))
	assert.Equal(t, "क्\n", a.text)
}

func TestStatus(t *testing.T) {
	a := newTestApp(t, "m17n:hi:itrans")
	assert.Equal(t, "क", a.status)
	assert.True(t, a.statusVisible)

	s := newScreen(t)
	a.draw(s)
	title := ""
	for x := 0; x < 30; x++ {
		r, _, _, _ := s.GetContent(x, 0)
		title += string(r)
	}
	assert.Contains(t, title, "m17n:hi:itrans  [क]")
}

func TestDrawPreedit(t *testing.T) {
	a := newTestApp(t, "m17n:t:latn-post")
	typeRunes(a, "ab")
	assert.Equal(t, "ab", a.text, "no rule for a followed by b")
	typeRunes(a, "e")
	require.True(t, a.preedit.Visible)

	s := newScreen(t)
	a.draw(s)
	r, _, _, _ := s.GetContent(1, textTop)
	assert.Equal(t, 'b', r)
	r, _, st, _ := s.GetContent(2, textTop)
	assert.Equal(t, 'e', r)
	assert.Equal(t, preeditStyle(a.preedit.Attributes, 0), st)
}

func TestDrawCandidates(t *testing.T) {
	a := newTestApp(t, "m17n:zh:pinyin")
	typeRunes(a, "wo")
	require.NotNil(t, a.page)
	require.Len(t, a.page.Items, 3)

	s := newScreen(t)
	a.draw(s)

	row := textTop + 2
	r, _, st, _ := s.GetContent(3, row)
	assert.Equal(t, '我', r)
	assert.Equal(t, tcell.StyleDefault.Reverse(true), st, "cursor item is highlighted")
	r, _, _, _ = s.GetContent(8, row)
	assert.Equal(t, '握', r)

	a.page.Orientation = 1
	a.draw(s)
	r, _, _, _ = s.GetContent(3, row+1)
	assert.Equal(t, '握', r)
	r, _, _, _ = s.GetContent(1, row+3)
	assert.Equal(t, '(', r)
}

func TestPreeditStyle(t *testing.T) {
	attrs := []engine.Attribute{
		{Type: engine.AttrForeground, Value: 0x112233, Start: 0, End: 2},
		{Type: engine.AttrBackground, Value: 0xc8c8f0, Start: 1, End: 2},
	}
	fg, bg, _ := preeditStyle(attrs, 1).Decompose()
	assert.Equal(t, tcell.NewHexColor(0x112233), fg)
	assert.Equal(t, tcell.NewHexColor(0xc8c8f0), bg)

	_, bg, _ = preeditStyle(attrs, 0).Decompose()
	assert.Equal(t, tcell.ColorDefault, bg)
	assert.Equal(t, tcell.StyleDefault, preeditStyle(attrs, 2))
}

func TestClusters(t *testing.T) {
	// क + virama + ष
	cs := clusters("क्ष")
	require.Len(t, cs, 2)
	assert.Equal(t, []rune{'्'}, cs[0].comb)
	assert.Equal(t, 2, cs[1].index)

	assert.Equal(t, 4, textWidth("我áb"))
	assert.Equal(t, 2, columnOf("我握", 1))
	assert.Equal(t, 4, columnOf("我握", 5))
}
