// Package keysym translates IBus key events into m17n key symbols.
//
// IBus delivers a key event as (keyval, keycode, state): keyval is an X11
// keysym already translated by the active layout and modifiers, keycode
// is the evdev hardware code, and state is a modifier mask. m17n expects
// a symbol such as "a", "Return" or "C-S-Left".
package keysym

// Modifier masks of an IBus key event state.
const (
	ShiftMask   uint32 = 1 << 0
	LockMask    uint32 = 1 << 1
	ControlMask uint32 = 1 << 2
	Mod1Mask    uint32 = 1 << 3 // Alt
	Mod2Mask    uint32 = 1 << 4
	Mod3Mask    uint32 = 1 << 5
	Mod4Mask    uint32 = 1 << 6
	Mod5Mask    uint32 = 1 << 7 // ISO_Level3_Shift (AltGr)
	SuperMask   uint32 = 1 << 26
	HyperMask   uint32 = 1 << 27
	MetaMask    uint32 = 1 << 28
	ReleaseMask uint32 = 1 << 30
)

// Keysyms referenced by the translator.
const (
	VoidSymbol uint32 = 0xffffff

	Space      uint32 = 0x0020
	AsciiTilde uint32 = 0x007e
	LowerA     uint32 = 0x0061
	LowerZ     uint32 = 0x007a
	UpperA     uint32 = 0x0041

	BackSpace uint32 = 0xff08
	Tab       uint32 = 0xff09
	Return    uint32 = 0xff0d
	Escape    uint32 = 0xff1b
	Delete    uint32 = 0xffff
	Home      uint32 = 0xff50
	Left      uint32 = 0xff51
	Up        uint32 = 0xff52
	Right     uint32 = 0xff53
	Down      uint32 = 0xff54
	PageUp    uint32 = 0xff55
	PageDown  uint32 = 0xff56
	End       uint32 = 0xff57
	F1        uint32 = 0xffbe

	ShiftL   uint32 = 0xffe1
	ControlL uint32 = 0xffe3
	AltL     uint32 = 0xffe9
	SuperL   uint32 = 0xffeb
	HyperR   uint32 = 0xffee

	unicodeBase uint32 = 0x01000000
)

// IsModifier reports whether keyval is a modifier key itself
// (Shift_L through Hyper_R).
func IsModifier(keyval uint32) bool {
	return keyval >= ShiftL && keyval <= HyperR
}

// IsPrintable reports whether keyval is in the printable ASCII range.
func IsPrintable(keyval uint32) bool {
	return keyval >= Space && keyval <= AsciiTilde
}

// FromRune returns the keysym for r.
func FromRune(r rune) uint32 {
	switch {
	case r >= 0x20 && r <= 0x7e, r >= 0xa0 && r <= 0xff:
		return uint32(r)
	case r > 0xff && r <= 0x10ffff:
		return unicodeBase + uint32(r)
	}
	return 0
}
