package keysym

// Keymap resolves a hardware keycode to a keysym under a modifier state.
type Keymap interface {
	Lookup(keycode, state uint32) uint32
}

type keyEntry struct {
	base, shifted uint32
}

// USKeymap is the evdev "us" layout, levels 1 and 2.
type USKeymap struct{}

var usKeys = map[uint32]keyEntry{
	1:  {Escape, Escape},
	14: {BackSpace, BackSpace},
	15: {Tab, 0xfe20},
	28: {Return, Return},
	57: {Space, Space},
}

func init() {
	rows := []struct {
		first          uint32
		base, shifted string
	}{
		{2, "1234567890-=", "!@#$%^&*()_+"},
		{16, "qwertyuiop[]", "QWERTYUIOP{}"},
		{30, "asdfghjkl;'`", "ASDFGHJKL:\"~"},
		{43, "\\zxcvbnm,./", "|ZXCVBNM<>?"},
	}
	for _, row := range rows {
		shifted := []rune(row.shifted)
		for i, r := range []rune(row.base) {
			usKeys[row.first+uint32(i)] = keyEntry{uint32(r), uint32(shifted[i])}
		}
	}
}

// Lookup implements Keymap. Caps Lock only affects letters. Unknown
// keycodes resolve to VoidSymbol.
func (USKeymap) Lookup(keycode, state uint32) uint32 {
	e, ok := usKeys[keycode]
	if !ok {
		return VoidSymbol
	}
	shift := state&ShiftMask != 0
	if state&LockMask != 0 && e.base >= LowerA && e.base <= LowerZ {
		shift = !shift
	}
	if shift {
		return e.shifted
	}
	return e.base
}

// KeycodeFor returns the US keycode producing keyval and whether Shift is
// needed. It is the inverse of Lookup for the printable keys.
func KeycodeFor(keyval uint32) (keycode uint32, shift bool, ok bool) {
	for code, e := range usKeys {
		if e.base == keyval {
			return code, false, true
		}
		if e.shifted == keyval {
			return code, true, true
		}
	}
	return 0, false, false
}
