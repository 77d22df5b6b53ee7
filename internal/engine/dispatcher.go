package engine

import (
	"fmt"
	"log/slog"
	"unicode/utf8"

	"ibus-m17n/internal/config"
	"ibus-m17n/internal/m17n"
)

// maxPending bounds the commands queued for a context with no session.
const maxPending = 64

// Dispatcher routes context callbacks to the session owning the context.
// A context may emit callbacks while it is being created, before its
// session is bound; those are queued and replayed by Bind.
type Dispatcher struct {
	sessions map[uint64]*Session
	pending  map[uint64][]m17n.Symbol
	log      *slog.Logger
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher(log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		sessions: make(map[uint64]*Session),
		pending:  make(map[uint64][]m17n.Symbol),
		log:      log,
	}
}

// Register installs the dispatcher as the callback of every command on m.
func (d *Dispatcher) Register(m m17n.Method) {
	for _, cmd := range m17n.Commands {
		m.SetCallback(cmd, d.Callback)
	}
}

// Callback is the m17n.Callback of registered methods.
func (d *Dispatcher) Callback(ctx m17n.Context, command m17n.Symbol) {
	id := ctx.ID()
	s, ok := d.sessions[id]
	if !ok {
		q := d.pending[id]
		if len(q) >= maxPending {
			d.log.Warn("dropping callback for unbound context", "context", id, "command", string(command))
			return
		}
		d.pending[id] = append(q, command)
		return
	}
	d.dispatch(s, command)
}

// Bind associates ctx with s and replays commands queued for ctx.
func (d *Dispatcher) Bind(ctx m17n.Context, s *Session) {
	id := ctx.ID()
	s.ctx = ctx
	d.sessions[id] = s
	q := d.pending[id]
	delete(d.pending, id)
	for _, cmd := range q {
		if s.closed {
			return
		}
		d.dispatch(s, cmd)
	}
}

// Unbind forgets ctx and anything queued for it.
func (d *Dispatcher) Unbind(ctx m17n.Context) {
	id := ctx.ID()
	delete(d.sessions, id)
	delete(d.pending, id)
}

// discardPending drops commands queued for contexts that were never bound.
func (d *Dispatcher) discardPending() {
	for id := range d.pending {
		delete(d.pending, id)
	}
}

// Bound returns the number of bound contexts.
func (d *Dispatcher) Bound() int {
	return len(d.sessions)
}

func (d *Dispatcher) dispatch(s *Session, command m17n.Symbol) {
	d.log.Debug("callback", "session", s.id, "command", string(command))
	switch command {
	case m17n.PreeditStart, m17n.PreeditDone, m17n.StatusStart:
		s.hidePreedit()
	case m17n.PreeditDraw:
		s.updatePreedit()
	case m17n.StatusDraw:
		s.updateStatus()
	case m17n.CandidatesStart, m17n.CandidatesDone:
		s.hideCandidates()
	case m17n.CandidatesDraw:
		s.updateCandidates()
	case m17n.StatusDone, m17n.SetSpot, m17n.Toggle, m17n.Reset,
		m17n.GetSurroundingText, m17n.DeleteSurroundingText:
	default:
		d.log.Debug("unknown callback command", "command", string(command))
	}
}

func (s *Session) hidePreedit() {
	s.state.Preedit.Visible = false
	s.host.HidePreedit(s)
}

func (s *Session) updatePreedit() {
	if !s.usable() {
		return
	}
	buf := s.ctx.Preedit()
	text, err := buf.UTF8()
	if err != nil {
		s.log.Debug("skipping preedit update", "error", err)
		return
	}
	n := utf8.RuneCountInString(text)
	cursor := s.ctx.CursorPos()
	if cursor < 0 {
		cursor = 0
	} else if cursor > n {
		cursor = n
	}
	s.state.Preedit = PreeditState{
		Text:       text,
		Attributes: preeditAttributes(s.settings, n),
		CursorPos:  cursor,
		Visible:    buf.Len() > 0,
	}
	p := s.state.Preedit
	s.host.UpdatePreedit(s, p.Text, p.Attributes, p.CursorPos, p.Visible)
}

func (s *Session) updateStatus() {
	text, err := s.ctx.Status().UTF8()
	if err != nil {
		s.log.Debug("skipping status update", "error", err)
		return
	}
	s.state.Status = StatusState{Text: text, Visible: text != ""}
	s.status.Label = text
	s.status.Visible = text != ""
	s.host.UpdateStatusProperty(s, text, s.status.Visible)
}

func (s *Session) hideCandidates() {
	s.state.Candidates = nil
	s.host.HideCandidates(s)
}

func (s *Session) updateCandidates() {
	page, err := BuildCandidatePage(s.ctx.Candidates(), s.ctx.CandidateIndex(), s.ctx.CandidateShow(), s.settings.Orientation)
	if err != nil {
		s.log.Debug("skipping candidate update", "session", s.id, "error", err)
		return
	}
	if page == nil {
		s.hideCandidates()
		return
	}
	s.state.Candidates = page
	s.host.UpdateCandidates(s, page)
}

// BuildCandidatePage returns the page holding the candidate at index, or
// nil when the page must be hidden: no candidates, show unset or index past
// the last group. It fails with m17n.ErrEncoding when a candidate of the
// page has no UTF-8 form; items are never dropped, so the cursor always
// marks the selected candidate.
func BuildCandidatePage(list m17n.CandidateList, index int, show bool, orientation config.Orientation) (*CandidatePage, error) {
	if len(list) == 0 || !show {
		return nil, nil
	}

	start, page := 0, 1
	g := 0
	for ; g < len(list); g++ {
		if start+list[g].Len() > index {
			break
		}
		start += list[g].Len()
		page++
	}
	if g == len(list) {
		return nil, nil
	}

	group := list[g]
	var items []string
	if group.IsBlock() {
		chars, err := group.Block.Chars()
		if err != nil {
			return nil, fmt.Errorf("candidate page %d: %w", page, err)
		}
		items = chars
	} else {
		items = make([]string, 0, len(group.Strings))
		for i, t := range group.Strings {
			s, err := t.UTF8()
			if err != nil {
				return nil, fmt.Errorf("candidate %d of page %d: %w", i, page, err)
			}
			items = append(items, s)
		}
	}

	cursor := index - start
	if cursor < 0 {
		cursor = 0
	}
	return &CandidatePage{
		Items:       items,
		CursorIndex: cursor,
		PageNumber:  page,
		TotalPages:  len(list),
		Orientation: orientation,
	}, nil
}
