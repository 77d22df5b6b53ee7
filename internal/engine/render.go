package engine

import (
	"fmt"

	"ibus-m17n/internal/config"
)

// AttrType is the kind of a preedit text attribute. Values match IBus.
type AttrType uint32

const (
	AttrUnderline  AttrType = 1
	AttrForeground AttrType = 2
	AttrBackground AttrType = 3
)

// Attribute styles the characters [Start, End) of a text.
type Attribute struct {
	Type  AttrType
	Value uint32
	Start int
	End   int
}

// PreeditState is the preedit projection.
type PreeditState struct {
	Text       string
	Attributes []Attribute
	CursorPos  int
	Visible    bool
}

// StatusState is the status projection.
type StatusState struct {
	Text    string
	Visible bool
}

// CandidatePage is one page of the candidate list.
type CandidatePage struct {
	Items       []string
	CursorIndex int
	PageNumber  int
	TotalPages  int
	Orientation config.Orientation
}

// Label is the auxiliary page counter shown next to the page.
func (p *CandidatePage) Label() string {
	return fmt.Sprintf("( %d / %d )", p.PageNumber, p.TotalPages)
}

// RenderState is what a session currently shows. Candidates is nil while
// the candidate page is hidden.
type RenderState struct {
	Preedit    PreeditState
	Status     StatusState
	Candidates *CandidatePage
}

// preeditAttributes styles a preedit of n characters.
func preeditAttributes(s config.Settings, n int) []Attribute {
	attrs := make([]Attribute, 0, 3)
	if s.Foreground.Valid() {
		attrs = append(attrs, Attribute{Type: AttrForeground, Value: uint32(s.Foreground), Start: 0, End: n})
	}
	if s.Background.Valid() {
		attrs = append(attrs, Attribute{Type: AttrBackground, Value: uint32(s.Background), Start: 0, End: n})
	}
	attrs = append(attrs, Attribute{Type: AttrUnderline, Value: uint32(s.Underline), Start: 0, End: n})
	return attrs
}
