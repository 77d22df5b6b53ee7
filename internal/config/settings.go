package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Keys of the per-engine style settings.
const (
	KeyPreeditForeground      = "preedit_foreground"
	KeyPreeditBackground      = "preedit_background"
	KeyPreeditUnderline       = "preedit_underline"
	KeyLookupTableOrientation = "lookup_table_orientation"
)

// SettingKeys lists the keys understood by Settings.Apply.
var SettingKeys = []string{
	KeyPreeditForeground,
	KeyPreeditBackground,
	KeyPreeditUnderline,
	KeyLookupTableOrientation,
}

// Color is a 0xRRGGBB value.
type Color uint32

// InvalidColor marks an unset colour.
const InvalidColor Color = 0xffffffff

// Colours used when an engine asks for preedit highlighting.
const (
	HighlightForeground Color = 0x000000
	HighlightBackground Color = 0xc8c8f0
)

// Valid reports whether c is set.
func (c Color) Valid() bool {
	return c != InvalidColor
}

// String formats c as "#rrggbb".
func (c Color) String() string {
	if !c.Valid() {
		return ""
	}
	return fmt.Sprintf("#%06x", uint32(c))
}

// ParseColor parses "#rrggbb" (the leading '#' is optional).
func ParseColor(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return InvalidColor, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return InvalidColor, fmt.Errorf("invalid color %q", s)
	}
	return Color(v), nil
}

// Underline is the preedit underline style. Values match IBus.
type Underline int

const (
	UnderlineNone Underline = iota
	UnderlineSingle
	UnderlineDouble
	UnderlineLow
	UnderlineError
)

// Orientation is the candidate list orientation. Values match IBus.
type Orientation int

const (
	OrientationHorizontal Orientation = iota
	OrientationVertical
	OrientationSystem
)

// Settings are the resolved style settings of one engine variant.
type Settings struct {
	Foreground  Color
	Background  Color
	Underline   Underline
	Orientation Orientation
}

// DefaultSettings returns the settings used when nothing is configured.
// highlight selects the highlight colours for engines that want them.
func DefaultSettings(highlight bool) Settings {
	s := Settings{
		Foreground:  InvalidColor,
		Background:  InvalidColor,
		Underline:   UnderlineNone,
		Orientation: OrientationSystem,
	}
	if highlight {
		s.Foreground = HighlightForeground
		s.Background = HighlightBackground
	}
	return s
}

// ChangeKind tells which projection a settings change affects.
type ChangeKind int

const (
	ChangeNone ChangeKind = iota
	ChangePreedit
	ChangeOrientation
)

// KindOf returns the projection affected by key.
func KindOf(key string) ChangeKind {
	switch key {
	case KeyPreeditForeground, KeyPreeditBackground, KeyPreeditUnderline:
		return ChangePreedit
	case KeyLookupTableOrientation:
		return ChangeOrientation
	}
	return ChangeNone
}

// Apply sets key from its stored string form. Unknown keys are ignored.
// An invalid value leaves s unchanged and returns an error.
func (s *Settings) Apply(key, value string) (ChangeKind, error) {
	switch key {
	case KeyPreeditForeground, KeyPreeditBackground:
		c, err := ParseColor(value)
		if err != nil {
			return ChangeNone, err
		}
		if key == KeyPreeditForeground {
			s.Foreground = c
		} else {
			s.Background = c
		}
	case KeyPreeditUnderline:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < int(UnderlineNone) || n > int(UnderlineError) {
			return ChangeNone, fmt.Errorf("invalid %s %q", key, value)
		}
		s.Underline = Underline(n)
	case KeyLookupTableOrientation:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < int(OrientationHorizontal) || n > int(OrientationSystem) {
			return ChangeNone, fmt.Errorf("invalid %s %q", key, value)
		}
		s.Orientation = Orientation(n)
	default:
		return ChangeNone, nil
	}
	return KindOf(key), nil
}

// Change is one configuration store update.
type Change struct {
	Section string
	Key     string
	Value   string
	Deleted bool
}

// Store is a sectioned key-value configuration store.
type Store interface {
	Get(section, key string) (string, bool, error)
	Set(section, key, value string) error
	Unset(section, key string) error
	OnChange(cb func(Change))
}

// Resolve builds the settings of section: stored values override the
// defaults, invalid stored values are skipped.
func Resolve(store Store, section string, highlight bool) Settings {
	s := DefaultSettings(highlight)
	if store == nil {
		return s
	}
	for _, key := range SettingKeys {
		v, ok, err := store.Get(section, key)
		if err != nil || !ok {
			continue
		}
		_, _ = s.Apply(key, v)
	}
	return s
}
