package ibus

import (
	"github.com/godbus/dbus/v5"

	"ibus-m17n/internal/catalog"
	"ibus-m17n/internal/engine"
)

// IBus serialises its objects as D-Bus structs whose first two fields are
// the type name and an attachment dictionary. Nested objects travel as
// variants.

type attachments = map[string]dbus.Variant

// Attribute is an IBusAttribute.
type Attribute struct {
	Name        string
	Attachments attachments
	Type        uint32
	Value       uint32
	Start       uint32
	End         uint32
}

// AttrList is an IBusAttrList.
type AttrList struct {
	Name        string
	Attachments attachments
	Attributes  []dbus.Variant
}

// Text is an IBusText.
type Text struct {
	Name        string
	Attachments attachments
	Text        string
	AttrList    dbus.Variant
}

// LookupTable is an IBusLookupTable.
type LookupTable struct {
	Name          string
	Attachments   attachments
	PageSize      uint32
	CursorPos     uint32
	CursorVisible bool
	Round         bool
	Orientation   int32
	Candidates    []dbus.Variant
	Labels        []dbus.Variant
}

// Property is an IBusProperty.
type Property struct {
	Name        string
	Attachments attachments
	Key         string
	Type        uint32
	Label       dbus.Variant
	Icon        string
	Tooltip     dbus.Variant
	Sensitive   bool
	Visible     bool
	State       uint32
	SubProps    dbus.Variant
	Symbol      dbus.Variant
}

// PropList is an IBusPropList.
type PropList struct {
	Name        string
	Attachments attachments
	Properties  []dbus.Variant
}

// EngineDesc is an IBusEngineDesc.
type EngineDesc struct {
	Name          string
	Attachments   attachments
	EngineName    string
	LongName      string
	Description   string
	Language      string
	License       string
	Author        string
	Icon          string
	Layout        string
	Rank          uint32
	Hotkeys       string
	Symbol        string
	Setup         string
	LayoutVariant string
	LayoutOption  string
	Version       string
	Textdomain    string
}

// Component is an IBusComponent.
type Component struct {
	Name          string
	Attachments   attachments
	ComponentName string
	Description   string
	Version       string
	License       string
	Author        string
	Homepage      string
	Exec          string
	Textdomain    string
	ObservedPaths []dbus.Variant
	Engines       []dbus.Variant
}

// Property types and states.
const (
	PropTypeNormal     uint32 = 0
	PropStateUnchecked uint32 = 0
)

// Preedit commit modes of UpdatePreeditText.
const (
	PreeditClear  uint32 = 0
	PreeditCommit uint32 = 1
)

// NewText returns an IBusText with attrs.
func NewText(s string, attrs ...engine.Attribute) Text {
	list := AttrList{
		Name:        "IBusAttrList",
		Attachments: attachments{},
		Attributes:  make([]dbus.Variant, 0, len(attrs)),
	}
	for _, a := range attrs {
		list.Attributes = append(list.Attributes, dbus.MakeVariant(Attribute{
			Name:        "IBusAttribute",
			Attachments: attachments{},
			Type:        uint32(a.Type),
			Value:       a.Value,
			Start:       uint32(a.Start),
			End:         uint32(a.End),
		}))
	}
	return Text{
		Name:        "IBusText",
		Attachments: attachments{},
		Text:        s,
		AttrList:    dbus.MakeVariant(list),
	}
}

// Variant wraps t for the wire.
func (t Text) Variant() dbus.Variant { return dbus.MakeVariant(t) }

// NewLookupTable converts a candidate page. The page size is the number of
// items: the engine pages by candidate group, so the client shows exactly
// one page.
func NewLookupTable(page *engine.CandidatePage) LookupTable {
	t := LookupTable{
		Name:          "IBusLookupTable",
		Attachments:   attachments{},
		PageSize:      uint32(len(page.Items)),
		CursorPos:     uint32(page.CursorIndex),
		CursorVisible: true,
		Orientation:   int32(page.Orientation),
		Candidates:    make([]dbus.Variant, 0, len(page.Items)),
		Labels:        []dbus.Variant{},
	}
	for _, item := range page.Items {
		t.Candidates = append(t.Candidates, NewText(item).Variant())
	}
	return t
}

// NewProperty converts a session property.
func NewProperty(p engine.Property) Property {
	return Property{
		Name:        "IBusProperty",
		Attachments: attachments{},
		Key:         p.Key,
		Type:        PropTypeNormal,
		Label:       NewText(p.Label).Variant(),
		Tooltip:     NewText(p.Tooltip).Variant(),
		Sensitive:   p.Sensitive,
		Visible:     p.Visible,
		State:       PropStateUnchecked,
		SubProps:    dbus.MakeVariant(NewPropList()),
		Symbol:      NewText("").Variant(),
	}
}

// NewPropList returns an IBusPropList of props.
func NewPropList(props ...engine.Property) PropList {
	l := PropList{
		Name:        "IBusPropList",
		Attachments: attachments{},
		Properties:  make([]dbus.Variant, 0, len(props)),
	}
	for _, p := range props {
		l.Properties = append(l.Properties, dbus.MakeVariant(NewProperty(p)))
	}
	return l
}

// NewEngineDesc converts a catalog entry.
func NewEngineDesc(e catalog.EngineInfo, textdomain string) EngineDesc {
	return EngineDesc{
		Name:        "IBusEngineDesc",
		Attachments: attachments{},
		EngineName:  e.Name,
		LongName:    e.LongName,
		Description: e.Description,
		Language:    e.Language,
		License:     e.License,
		Author:      e.Author,
		Icon:        e.Icon,
		Layout:      e.Layout,
		Rank:        rank(e.Rank),
		Symbol:      e.Symbol,
		Version:     catalog.ComponentVersion,
		Textdomain:  textdomain,
	}
}

// NewComponent converts the catalog's component description.
func NewComponent(c catalog.Component, engines []catalog.EngineInfo) Component {
	comp := Component{
		Name:          "IBusComponent",
		Attachments:   attachments{},
		ComponentName: c.Name,
		Description:   c.Description,
		Version:       c.Version,
		License:       c.License,
		Author:        c.Author,
		Homepage:      c.Homepage,
		Exec:          c.Exec,
		Textdomain:    c.Textdomain,
		ObservedPaths: []dbus.Variant{},
		Engines:       make([]dbus.Variant, 0, len(engines)),
	}
	for _, e := range engines {
		comp.Engines = append(comp.Engines, dbus.MakeVariant(NewEngineDesc(e, c.Textdomain)))
	}
	return comp
}

func rank(r int) uint32 {
	if r < 0 {
		return 0
	}
	return uint32(r)
}
