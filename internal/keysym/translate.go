package keysym

import (
	"strings"

	"ibus-m17n/internal/m17n"
)

// prefixes in the order m17n parses them.
var prefixes = []struct {
	mask   uint32
	prefix string
}{
	{ShiftMask, "S-"},
	{ControlMask, "C-"},
	{MetaMask, "M-"},
	{Mod1Mask, "A-"},
	{Mod5Mask, "G-"},
	{SuperMask, "s-"},
	{HyperMask, "H-"},
}

// Translator converts key events to m17n symbols. The zero value uses the
// US keymap for AltGr re-resolution.
type Translator struct {
	Keymap Keymap
}

var defaultTranslator Translator

// Translate converts a key event using the US keymap.
func Translate(keycode, keyval, modifiers uint32) (m17n.Symbol, bool) {
	return defaultTranslator.Translate(keycode, keyval, modifiers)
}

// Translate returns the symbol for a key press. It reports false for
// release events, modifier keys and keys without a name.
func (t Translator) Translate(keycode, keyval, modifiers uint32) (m17n.Symbol, bool) {
	if modifiers&ReleaseMask != 0 || IsModifier(keyval) {
		return m17n.Nil, false
	}

	// With AltGr held keyval is already translated by level 3. m17n wants
	// the untranslated key marked with "G-".
	if modifiers&Mod5Mask != 0 {
		keyval = t.keymap().Lookup(keycode, modifiers&^Mod5Mask)
	}

	var (
		base string
		mask uint32
	)
	if IsPrintable(keyval) {
		c := keyval
		if keyval == Space && modifiers&ShiftMask != 0 {
			mask |= ShiftMask
		}
		if modifiers&ControlMask != 0 {
			if c >= LowerA && c <= LowerZ {
				c -= LowerA - UpperA
			}
			mask |= ControlMask
		}
		base = string(rune(c))
	} else {
		mask |= modifiers & (ControlMask | ShiftMask)
		base = Name(keyval)
		if base == "" {
			return m17n.Nil, false
		}
	}
	mask |= modifiers & (Mod1Mask | Mod5Mask | MetaMask | SuperMask | HyperMask)

	var b strings.Builder
	for _, p := range prefixes {
		if mask&p.mask != 0 {
			b.WriteString(p.prefix)
		}
	}
	b.WriteString(base)
	return m17n.Symbol(b.String()), true
}

func (t Translator) keymap() Keymap {
	if t.Keymap == nil {
		return USKeymap{}
	}
	return t.Keymap
}
