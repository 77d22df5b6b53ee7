package main

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/text/width"

	"ibus-m17n/internal/config"
	"ibus-m17n/internal/engine"
	"ibus-m17n/internal/keysym"
)

// Rows above the text area: the title bar and a blank line.
const textTop = 2

// app is the terminal client of one session. It is also the session's
// host, so it sees exactly what IBus would be sent.
type app struct {
	name    string
	session *engine.Session

	text          string
	preedit       engine.PreeditState
	status        string
	statusVisible bool
	page          *engine.CandidatePage
	props         []engine.Property
}

var _ engine.Host = (*app)(nil)

func newApp(name string) *app {
	return &app{name: name}
}

func (a *app) CommitText(_ *engine.Session, text string) {
	a.text += text
}

func (a *app) UpdatePreedit(_ *engine.Session, text string, attrs []engine.Attribute, cursorPos int, visible bool) {
	a.preedit = engine.PreeditState{Text: text, Attributes: attrs, CursorPos: cursorPos, Visible: visible}
}

func (a *app) HidePreedit(*engine.Session) {
	a.preedit.Visible = false
}

func (a *app) UpdateCandidates(_ *engine.Session, page *engine.CandidatePage) {
	a.page = page
}

func (a *app) HideCandidates(*engine.Session) {
	a.page = nil
}

func (a *app) UpdateStatusProperty(_ *engine.Session, label string, visible bool) {
	a.status, a.statusVisible = label, visible
}

func (a *app) RegisterProperties(_ *engine.Session, props []engine.Property) {
	a.props = props
}

func (a *app) run(screen tcell.Screen) {
	a.session.FocusIn()
	for {
		a.draw(screen)
		switch ev := screen.PollEvent().(type) {
		case *tcell.EventResize:
			screen.Sync()
		case *tcell.EventKey:
			if !a.handleKey(ev) {
				return
			}
		case nil:
			return
		}
	}
}

// handleKey feeds ev to the session and reports whether to keep running.
func (a *app) handleKey(ev *tcell.EventKey) bool {
	if isQuit(ev) {
		return false
	}
	keyval, keycode, state, ok := keyEvent(ev)
	if !ok {
		return true
	}
	if a.session.ProcessKeyEvent(keyval, keycode, state) {
		return true
	}
	a.edit(ev)
	return true
}

// edit applies a key the method passed through, like a text field would.
func (a *app) edit(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyRune:
		if ev.Modifiers()&(tcell.ModCtrl|tcell.ModAlt) == 0 {
			a.text += string(ev.Rune())
		}
	case tcell.KeyEnter:
		a.text += "\n"
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if _, size := utf8.DecodeLastRuneInString(a.text); size > 0 {
			a.text = a.text[:len(a.text)-size]
		}
	}
}

func isQuit(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyCtrlC {
		return true
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == 'c' && ev.Modifiers()&tcell.ModCtrl != 0
}

var specialKeys = map[tcell.Key]uint32{
	tcell.KeyBackspace:  keysym.BackSpace,
	tcell.KeyBackspace2: keysym.BackSpace,
	tcell.KeyTab:        keysym.Tab,
	tcell.KeyEnter:      keysym.Return,
	tcell.KeyEscape:     keysym.Escape,
	tcell.KeyDelete:     keysym.Delete,
	tcell.KeyHome:       keysym.Home,
	tcell.KeyEnd:        keysym.End,
	tcell.KeyLeft:       keysym.Left,
	tcell.KeyUp:         keysym.Up,
	tcell.KeyRight:      keysym.Right,
	tcell.KeyDown:       keysym.Down,
	tcell.KeyPgUp:       keysym.PageUp,
	tcell.KeyPgDn:       keysym.PageDown,
}

// keyEvent converts a terminal key to the (keyval, keycode, state) triple
// IBus would deliver. Keycodes assume a US layout.
func keyEvent(ev *tcell.EventKey) (keyval, keycode, state uint32, ok bool) {
	state = modifierState(ev.Modifiers())
	k := ev.Key()
	switch {
	case k == tcell.KeyRune:
		r := ev.Rune()
		if state&keysym.ControlMask != 0 {
			r = unicode.ToLower(r)
		}
		keyval = keysym.FromRune(r)
	case specialKeys[k] != 0:
		keyval = specialKeys[k]
	case k >= tcell.KeyF1 && k <= tcell.KeyF12:
		keyval = keysym.F1 + uint32(k-tcell.KeyF1)
	case k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ:
		keyval = keysym.LowerA + uint32(k-tcell.KeyCtrlA)
		state |= keysym.ControlMask
	}
	if keyval == 0 {
		return 0, 0, 0, false
	}
	keycode, _, _ = keysym.KeycodeFor(keyval)
	return keyval, keycode, state, true
}

func modifierState(m tcell.ModMask) uint32 {
	var state uint32
	if m&tcell.ModShift != 0 {
		state |= keysym.ShiftMask
	}
	if m&tcell.ModCtrl != 0 {
		state |= keysym.ControlMask
	}
	if m&tcell.ModAlt != 0 {
		state |= keysym.Mod1Mask
	}
	return state
}

func (a *app) draw(s tcell.Screen) {
	s.Clear()
	w, h := s.Size()

	bar := tcell.StyleDefault.Reverse(true)
	fillRow(s, 0, w, bar)
	title := a.name
	if a.statusVisible && a.status != "" {
		title += "  [" + a.status + "]"
	}
	drawText(s, 1, 0, title, bar)
	const help = "Ctrl-C quit"
	drawText(s, w-textWidth(help)-1, 0, help, bar)

	lines := strings.Split(a.text, "\n")
	if rows := h - textTop - 4; rows > 0 && len(lines) > rows {
		lines = lines[len(lines)-rows:]
	}
	x, y := 0, textTop
	for i, line := range lines {
		y = textTop + i
		x = drawText(s, 0, y, line, tcell.StyleDefault)
	}

	cursor := x
	if a.preedit.Visible && a.preedit.Text != "" {
		attrs := a.preedit.Attributes
		drawRunes(s, x, y, a.preedit.Text, func(i int) tcell.Style { return preeditStyle(attrs, i) })
		cursor = x + columnOf(a.preedit.Text, a.preedit.CursorPos)
	}
	s.ShowCursor(cursor, y)

	if a.page != nil {
		a.drawPage(s, y+2)
	}
	s.Show()
}

func (a *app) drawPage(s tcell.Screen, y int) {
	plain := tcell.StyleDefault
	selected := tcell.StyleDefault.Reverse(true)
	dim := tcell.StyleDefault.Dim(true)

	vertical := a.page.Orientation == config.OrientationVertical
	x := 1
	for i, item := range a.page.Items {
		st := plain
		if i == a.page.CursorIndex {
			st = selected
		}
		label := fmt.Sprintf("%d.%s", (i+1)%10, item)
		if vertical {
			drawText(s, 1, y, label, st)
			y++
			continue
		}
		x = drawText(s, x, y, label, st) + 1
	}
	if vertical {
		drawText(s, 1, y, a.page.Label(), dim)
		return
	}
	drawText(s, x+1, y, a.page.Label(), dim)
}

// preeditStyle styles the preedit character at index i.
func preeditStyle(attrs []engine.Attribute, i int) tcell.Style {
	st := tcell.StyleDefault
	for _, attr := range attrs {
		if i < attr.Start || i >= attr.End {
			continue
		}
		switch attr.Type {
		case engine.AttrForeground:
			st = st.Foreground(tcell.NewHexColor(int32(attr.Value)))
		case engine.AttrBackground:
			st = st.Background(tcell.NewHexColor(int32(attr.Value)))
		case engine.AttrUnderline:
			switch config.Underline(attr.Value) {
			case config.UnderlineNone:
			case config.UnderlineDouble:
				st = st.Underline(tcell.UnderlineStyleDouble)
			case config.UnderlineError:
				st = st.Underline(tcell.UnderlineStyleCurly)
			default:
				st = st.Underline(true)
			}
		}
	}
	return st
}

func fillRow(s tcell.Screen, y, w int, st tcell.Style) {
	for x := range w {
		s.SetContent(x, y, ' ', nil, st)
	}
}

func drawText(s tcell.Screen, x, y int, text string, st tcell.Style) int {
	return drawRunes(s, x, y, text, func(int) tcell.Style { return st })
}

// drawRunes draws text from column x and returns the column after it.
// style receives the character index of each cell.
func drawRunes(s tcell.Screen, x, y int, text string, style func(i int) tcell.Style) int {
	for _, c := range clusters(text) {
		s.SetContent(x, y, c.main, c.comb, style(c.index))
		x += c.width
	}
	return x
}

// cluster is one screen cell: a base character and the marks drawn on it.
type cluster struct {
	main  rune
	comb  []rune
	index int
	width int
}

func clusters(text string) []cluster {
	var out []cluster
	i := 0
	for _, r := range text {
		w := runeWidth(r)
		switch {
		case w == 0 && len(out) > 0:
			last := &out[len(out)-1]
			last.comb = append(last.comb, r)
		case w == 0:
			out = append(out, cluster{main: r, index: i, width: 1})
		default:
			out = append(out, cluster{main: r, index: i, width: w})
		}
		i++
	}
	return out
}

// runeWidth is the number of terminal columns r takes. Combining marks
// take none.
func runeWidth(r rune) int {
	if r < 0x20 || unicode.In(r, unicode.Mn, unicode.Me) {
		return 0
	}
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	}
	return 1
}

func textWidth(s string) int {
	n := 0
	for _, c := range clusters(s) {
		n += c.width
	}
	return n
}

// columnOf returns the column offset of character pos in text.
func columnOf(text string, pos int) int {
	n := 0
	for _, c := range clusters(text) {
		if c.index >= pos {
			break
		}
		n += c.width
	}
	return n
}
