package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibus-m17n/internal/config"
	"ibus-m17n/internal/keysym"
	"ibus-m17n/internal/m17n"
)

const testEngine = "m17n:si:wijesekera"

func openTestSession(t *testing.T, setup func(c *fakeContext)) (*Session, *fakeContext, *recordingHost) {
	t.Helper()
	lib := newFakeLibrary(testEngine)
	lib.method(testEngine).setup = setup
	host := &recordingHost{}
	m := NewManager(NewRegistry(lib), host, nil, discard)
	s, err := m.Open(testEngine)
	require.NoError(t, err)
	return s, s.ctx.(*fakeContext), host
}

func TestProcessKeyFilterConsumed(t *testing.T) {
	s, ctx, host := openTestSession(t, func(c *fakeContext) {
		c.filter = func(*fakeContext, m17n.Symbol) bool { return true }
		c.lookup = composeLookup
	})

	assert.True(t, s.ProcessKey("a"))
	assert.Empty(t, host.commits)
	assert.Empty(t, host.events)
	assert.Equal(t, []m17n.Symbol{"a"}, ctx.keys)
}

func TestProcessKeyCommitsLookupText(t *testing.T) {
	s, _, host := openTestSession(t, func(c *fakeContext) {
		c.lookup = composeLookup
	})

	assert.True(t, s.ProcessKey("k"))
	assert.Equal(t, []string{"k"}, host.commits)
	// Committing refreshes the preedit.
	assert.Equal(t, []string{"commit", "preedit"}, host.events)
	assert.False(t, host.preedits[0].Visible)
}

func TestProcessKeyPassThrough(t *testing.T) {
	s, _, host := openTestSession(t, nil)

	assert.False(t, s.ProcessKey("F5"))
	assert.False(t, s.ProcessKey(m17n.Nil))
	assert.Empty(t, host.events)
}

func TestProcessKeyEncodingFailure(t *testing.T) {
	s, _, host := openTestSession(t, func(c *fakeContext) {
		c.lookup = func(_ *fakeContext, _ m17n.Symbol, produced *m17n.Text) bool {
			*produced = append(*produced, 0x110000)
			return true
		}
	})

	assert.True(t, s.ProcessKey("x"))
	assert.Empty(t, host.commits)
	assert.Empty(t, host.events)
}

func TestFilterDeterministic(t *testing.T) {
	s, ctx, host := openTestSession(t, func(c *fakeContext) {
		c.filter = func(c *fakeContext, key m17n.Symbol) bool {
			if key != "k" {
				return false
			}
			c.emit(m17n.PreeditStart)
			c.preedit = append(c.preedit, 'ක')
			c.cursor = c.preedit.Len()
			c.emit(m17n.PreeditDraw)
			return true
		}
	})

	run := func() ([]string, []PreeditState) {
		host.reset()
		require.True(t, s.ProcessKey("k"))
		return host.events, host.preedits
	}

	events1, preedits1 := run()
	ctx.Reset()
	events2, preedits2 := run()

	assert.Equal(t, []string{"hide-preedit", "preedit"}, events1)
	assert.Equal(t, events1, events2)
	assert.Equal(t, preedits1, preedits2)
	assert.Equal(t, "ක", preedits2[0].Text)
}

func TestPreeditDraw(t *testing.T) {
	s, ctx, host := openTestSession(t, nil)
	ctx.preedit = m17n.TextOf("කා")
	ctx.cursor = 1
	ctx.emit(m17n.PreeditDraw)

	require.Len(t, host.preedits, 1)
	p := host.preedits[0]
	assert.Equal(t, "කා", p.Text)
	assert.Equal(t, 1, p.CursorPos)
	assert.True(t, p.Visible)
	assert.Equal(t, []Attribute{{Type: AttrUnderline, Value: 0, Start: 0, End: 2}}, p.Attributes)
	assert.Equal(t, p, s.RenderState().Preedit)

	// Highlight colours come before the underline.
	s.settings = config.DefaultSettings(true)
	ctx.emit(m17n.PreeditDraw)
	assert.Equal(t, []Attribute{
		{Type: AttrForeground, Value: 0x000000, Start: 0, End: 2},
		{Type: AttrBackground, Value: 0xc8c8f0, Start: 0, End: 2},
		{Type: AttrUnderline, Value: 0, Start: 0, End: 2},
	}, host.preedits[1].Attributes)

	ctx.preedit = nil
	ctx.cursor = 5
	ctx.emit(m17n.PreeditDraw)
	assert.False(t, host.preedits[2].Visible)
	assert.Equal(t, 0, host.preedits[2].CursorPos)
}

func TestPreeditHidden(t *testing.T) {
	for _, cmd := range []m17n.Symbol{m17n.PreeditStart, m17n.PreeditDone, m17n.StatusStart} {
		s, ctx, host := openTestSession(t, nil)
		ctx.preedit = m17n.TextOf("a")
		ctx.emit(m17n.PreeditDraw)
		require.True(t, s.RenderState().Preedit.Visible)

		ctx.emit(cmd)
		assert.Equal(t, "hide-preedit", host.events[len(host.events)-1], string(cmd))
		assert.False(t, s.RenderState().Preedit.Visible, string(cmd))
	}
}

func TestStatusDraw(t *testing.T) {
	s, ctx, host := openTestSession(t, nil)
	ctx.status = m17n.TextOf("අ")
	ctx.emit(m17n.StatusDraw)
	ctx.status = nil
	ctx.emit(m17n.StatusDraw)

	assert.Equal(t, []StatusState{{Text: "අ", Visible: true}, {Text: "", Visible: false}}, host.statuses)
	assert.Equal(t, StatusState{}, s.RenderState().Status)

	ctx.status = m17n.Text{0x110000}
	ctx.emit(m17n.StatusDraw)
	assert.Len(t, host.statuses, 2)
}

func TestCandidatesLifecycle(t *testing.T) {
	s, ctx, host := openTestSession(t, nil)
	ctx.cands = blocks("ab", "cde")
	ctx.index = 3
	ctx.show = true

	ctx.emit(m17n.CandidatesStart)
	ctx.emit(m17n.CandidatesDraw)
	require.NotNil(t, s.RenderState().Candidates)
	assert.Equal(t, []string{"c", "d", "e"}, s.RenderState().Candidates.Items)

	ctx.emit(m17n.CandidatesDone)
	assert.Nil(t, s.RenderState().Candidates)
	assert.Equal(t, []string{"hide-candidates", "candidates", "hide-candidates"}, host.events)
}

func TestIgnoredCommands(t *testing.T) {
	_, ctx, host := openTestSession(t, nil)
	for _, cmd := range []m17n.Symbol{m17n.StatusDone, m17n.SetSpot, m17n.Toggle, m17n.GetSurroundingText, m17n.DeleteSurroundingText} {
		ctx.emit(cmd)
	}
	assert.Empty(t, host.events)
}

func TestFocusIn(t *testing.T) {
	s, ctx, host := openTestSession(t, nil)
	s.FocusIn()

	assert.Equal(t, []string{"props"}, host.events)
	require.Len(t, host.props[0], 1)
	assert.Equal(t, StatusPropertyKey, host.props[0][0].Key)
	assert.False(t, host.props[0][0].Visible)
	assert.Equal(t, []m17n.Symbol{m17n.FocusIn}, ctx.keys)

	s.FocusOut()
	s.Disable()
	assert.Equal(t, []m17n.Symbol{m17n.FocusIn, m17n.FocusOut, m17n.FocusOut}, ctx.keys)
}

func TestReset(t *testing.T) {
	s, ctx, host := openTestSession(t, nil)
	ctx.preedit = m17n.TextOf("a")
	s.Reset()

	assert.Equal(t, 1, ctx.resets)
	assert.Empty(t, ctx.preedit)
	assert.Equal(t, []m17n.Symbol{m17n.FocusIn}, ctx.keys)
	assert.Equal(t, []string{"props"}, host.events)
}

func TestNavigation(t *testing.T) {
	s, ctx, _ := openTestSession(t, nil)
	s.PageUp()
	s.PageDown()
	s.CursorUp()
	s.CursorDown()
	assert.Equal(t, []m17n.Symbol{"Up", "Down", "Left", "Right"}, ctx.keys)
}

func TestCandidateClicked(t *testing.T) {
	s, ctx, _ := openTestSession(t, nil)
	assert.False(t, s.CandidateClicked(0), "no page")

	ctx.cands = blocks("abcdefghijk")
	ctx.show = true
	ctx.emit(m17n.CandidatesDraw)

	s.CandidateClicked(1)
	s.CandidateClicked(9)
	s.CandidateClicked(10)
	s.CandidateClicked(-1)
	assert.Equal(t, []m17n.Symbol{"2", "0"}, ctx.keys)
}

func TestProcessKeyEvent(t *testing.T) {
	s, ctx, host := openTestSession(t, func(c *fakeContext) {
		c.lookup = composeLookup
	})

	assert.True(t, s.ProcessKeyEvent('a', 30, 0))
	assert.False(t, s.ProcessKeyEvent('a', 30, keysym.ReleaseMask))
	assert.False(t, s.ProcessKeyEvent(keysym.ShiftL, 42, 0))
	assert.False(t, s.ProcessKeyEvent(keysym.Up, 103, keysym.ControlMask))

	assert.Equal(t, []m17n.Symbol{"a", "C-Up"}, ctx.keys)
	assert.Equal(t, []string{"a"}, host.commits)
}

func TestClosedSessionIgnoresInput(t *testing.T) {
	lib := newFakeLibrary(testEngine)
	host := &recordingHost{}
	m := NewManager(NewRegistry(lib), host, nil, discard)
	s, err := m.Open(testEngine)
	require.NoError(t, err)
	ctx := s.ctx.(*fakeContext)

	m.Close(s)
	assert.True(t, s.Closed())
	assert.False(t, s.ProcessKey("a"))
	s.FocusIn()
	s.Reset()
	assert.Empty(t, ctx.keys)
	assert.Empty(t, host.events)
}
