package table

import (
	"unicode/utf8"

	"ibus-m17n/internal/m17n"
)

const (
	keyBackSpace m17n.Symbol = "BackSpace"
	keyEscape    m17n.Symbol = "Escape"
	keyReturn    m17n.Symbol = "Return"
	keySpace     m17n.Symbol = " "
	keyUp        m17n.Symbol = "Up"
	keyDown      m17n.Symbol = "Down"
	keyLeft      m17n.Symbol = "Left"
	keyRight     m17n.Symbol = "Right"
)

type context struct {
	id uint64
	m  *method

	pending  []m17n.Symbol
	produced m17n.Text
	// passed is set when the key that ended a sequence was not used.
	passed bool

	preedit m17n.Text
	cursor  int
	status  m17n.Text
	cands   m17n.CandidateList
	index   int
	show    bool

	destroyed bool
}

func (c *context) ID() uint64 { return c.id }

func (c *context) Preedit() m17n.Text { return c.preedit }

func (c *context) CursorPos() int { return c.cursor }

func (c *context) Status() m17n.Text { return c.status }

func (c *context) Candidates() m17n.CandidateList { return c.cands }

func (c *context) CandidateIndex() int { return c.index }

func (c *context) CandidateShow() bool { return c.show }

func (c *context) emit(command m17n.Symbol) {
	if cb := c.m.callbacks[command]; cb != nil {
		cb(c, command)
	}
}

// Filter consumes key unless it produces text or is unknown to the
// keymap; produced text is returned by the following Lookup.
func (c *context) Filter(key m17n.Symbol) bool {
	if c.destroyed {
		return false
	}
	c.produced = nil
	c.passed = false
	switch key {
	case m17n.FocusIn:
		c.drawStatus()
		return true
	case m17n.FocusOut:
		return true
	}
	if c.show {
		c.filterCandidates(key)
		return len(c.produced) == 0
	}
	if !c.filterKey(key) {
		return false
	}
	return len(c.produced) == 0
}

// Lookup returns the text produced by the last Filter. It reports false
// when the key itself was left for the client, even if the sequence it
// ended produced text.
func (c *context) Lookup(key m17n.Symbol, produced *m17n.Text) bool {
	if len(c.produced) == 0 {
		return false
	}
	*produced = append(*produced, c.produced...)
	c.produced = nil
	return !c.passed
}

func (c *context) Reset() {
	c.pending = nil
	c.produced = nil
	if c.show {
		c.closeCandidates()
	}
	c.setPreedit(nil)
}

func (c *context) Destroy() {
	c.destroyed = true
	c.pending = nil
	c.cands = nil
}

// filterKey reports whether the keymap used key.
func (c *context) filterKey(key m17n.Symbol) bool {
	if key == keyBackSpace && len(c.pending) > 0 {
		c.pending = c.pending[:len(c.pending)-1]
		c.setPreedit(c.pendingText())
		return true
	}

	seq := append(append([]m17n.Symbol(nil), c.pending...), key)
	if c.m.index.matches(seq) {
		c.pending = seq
		if r, err := c.m.index.rule(seq); err == nil && !c.m.index.extends(seq) {
			c.pending = nil
			c.apply(r)
		} else {
			c.setPreedit(c.pendingText())
		}
		return true
	}

	if len(c.pending) > 0 {
		if r, err := c.m.index.rule(c.pending); err == nil && len(r.Candidates) > 0 && (key == keySpace || key == keyReturn) {
			c.pending = nil
			c.apply(r)
			return true
		}
		c.flush()
		if !c.filterKey(key) && !c.appendKey(key) {
			c.passed = true
		}
		return true
	}
	return false
}

func (c *context) filterCandidates(key m17n.Symbol) {
	switch key {
	case keyUp:
		c.moveGroup(-1)
		return
	case keyDown:
		c.moveGroup(1)
		return
	case keyLeft:
		c.moveIndex(-1)
		return
	case keyRight:
		c.moveIndex(1)
		return
	case keyBackSpace, keyEscape:
		c.closeCandidates()
		c.setPreedit(nil)
		return
	case keySpace, keyReturn:
		c.commitCandidate()
		return
	}
	if n, ok := digit(key); ok {
		start, size := c.group()
		if n < size {
			c.index = start + n
			c.commitCandidate()
		}
		return
	}
	c.commitCandidate()
	if !c.filterKey(key) && !c.appendKey(key) {
		c.passed = true
	}
}

// pendingText is the preedit of an incomplete sequence: the output of the
// rule it already completes, or the typed keys.
func (c *context) pendingText() m17n.Text {
	if r, err := c.m.index.rule(c.pending); err == nil && r.Output != "" {
		return m17n.TextOf(r.Output)
	}
	var t m17n.Text
	for _, k := range c.pending {
		t = append(t, m17n.TextOf(string(k))...)
	}
	return t
}

// flush commits the pending sequence as it stands.
func (c *context) flush() {
	r, err := c.m.index.rule(c.pending)
	switch {
	case err == nil && r.Output != "":
		c.produced = append(c.produced, m17n.TextOf(r.Output)...)
	case err == nil && len(r.Candidates) > 0:
		c.produced = append(c.produced, firstCandidate(r.Candidates)...)
	default:
		c.produced = append(c.produced, c.pendingText()...)
	}
	c.pending = nil
	c.setPreedit(nil)
}

func (c *context) apply(r *Rule) {
	if r.Output != "" {
		c.produced = append(c.produced, m17n.TextOf(r.Output)...)
		c.setPreedit(nil)
		return
	}
	c.cands = make(m17n.CandidateList, len(r.Candidates))
	for i, g := range r.Candidates {
		c.cands[i] = g.candidateGroup()
	}
	c.index = 0
	c.show = true
	c.emit(m17n.CandidatesStart)
	c.setPreedit(c.selected())
	c.emit(m17n.CandidatesDraw)
}

// appendKey produces a single-character key as text. Named keys are not
// text and are left alone.
func (c *context) appendKey(key m17n.Symbol) bool {
	if utf8.RuneCountInString(string(key)) != 1 {
		return false
	}
	c.produced = append(c.produced, m17n.TextOf(string(key))...)
	return true
}

func (c *context) setPreedit(t m17n.Text) {
	was := c.preedit.Len() > 0
	if !was && t.Len() == 0 {
		return
	}
	c.preedit = t
	c.cursor = t.Len()
	if !was {
		c.emit(m17n.PreeditStart)
	}
	c.emit(m17n.PreeditDraw)
	if t.Len() == 0 {
		c.emit(m17n.PreeditDone)
	}
}

func (c *context) drawStatus() {
	c.status = m17n.TextOf(c.m.keymap.Title)
	c.emit(m17n.StatusDraw)
}

// group returns the start index and size of the selected group.
func (c *context) group() (start, size int) {
	for _, g := range c.cands {
		if start+g.Len() > c.index {
			return start, g.Len()
		}
		start += g.Len()
	}
	return start, 0
}

func (c *context) selected() m17n.Text {
	start := 0
	for _, g := range c.cands {
		if start+g.Len() > c.index {
			off := c.index - start
			if g.IsBlock() {
				return m17n.Text{g.Block[off]}
			}
			return g.Strings[off]
		}
		start += g.Len()
	}
	return nil
}

func (c *context) redrawCandidates() {
	c.setPreedit(c.selected())
	c.emit(m17n.CandidatesDraw)
}

func (c *context) moveGroup(delta int) {
	bounds := make([]int, 0, len(c.cands))
	start, cur := 0, 0
	for i, g := range c.cands {
		bounds = append(bounds, start)
		if start <= c.index && c.index < start+g.Len() {
			cur = i
		}
		start += g.Len()
	}
	next := cur + delta
	if next < 0 || next >= len(c.cands) {
		return
	}
	off := c.index - bounds[cur]
	if n := c.cands[next].Len(); off >= n {
		off = n - 1
	}
	c.index = bounds[next] + off
	c.redrawCandidates()
}

func (c *context) moveIndex(delta int) {
	next := c.index + delta
	if next < 0 || next >= c.cands.Total() {
		return
	}
	c.index = next
	c.redrawCandidates()
}

func (c *context) commitCandidate() {
	c.produced = append(c.produced, c.selected()...)
	c.closeCandidates()
	c.setPreedit(nil)
}

func (c *context) closeCandidates() {
	c.cands = nil
	c.index = 0
	c.show = false
	c.emit(m17n.CandidatesDone)
}

func firstCandidate(groups []Group) m17n.Text {
	if len(groups) == 0 {
		return nil
	}
	g := groups[0].candidateGroup()
	if g.Len() == 0 {
		return nil
	}
	if g.IsBlock() {
		return m17n.Text{g.Block[0]}
	}
	return g.Strings[0]
}

// digit maps "1".."9" to 0..8 and "0" to 9.
func digit(key m17n.Symbol) (int, bool) {
	if len(key) != 1 || key[0] < '0' || key[0] > '9' {
		return 0, false
	}
	if key[0] == '0' {
		return 9, true
	}
	return int(key[0] - '1'), true
}
