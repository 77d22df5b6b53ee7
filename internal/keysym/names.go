package keysym

import "fmt"

// names maps non-printable keysyms to their X11 names. When a keysym has
// aliases the canonical X11 name is used (Prior, Next).
var names = map[uint32]string{
	0xff08: "BackSpace",
	0xff09: "Tab",
	0xff0a: "Linefeed",
	0xff0b: "Clear",
	0xff0d: "Return",
	0xff13: "Pause",
	0xff14: "Scroll_Lock",
	0xff15: "Sys_Req",
	0xff1b: "Escape",
	0xff20: "Multi_key",
	0xff21: "Kanji",
	0xff22: "Muhenkan",
	0xff23: "Henkan",
	0xff24: "Romaji",
	0xff25: "Hiragana",
	0xff26: "Katakana",
	0xff27: "Hiragana_Katakana",
	0xff28: "Zenkaku",
	0xff29: "Hankaku",
	0xff2a: "Zenkaku_Hankaku",
	0xff31: "Hangul",
	0xff34: "Hangul_Hanja",
	0xff50: "Home",
	0xff51: "Left",
	0xff52: "Up",
	0xff53: "Right",
	0xff54: "Down",
	0xff55: "Prior",
	0xff56: "Next",
	0xff57: "End",
	0xff58: "Begin",
	0xff60: "Select",
	0xff61: "Print",
	0xff62: "Execute",
	0xff63: "Insert",
	0xff65: "Undo",
	0xff66: "Redo",
	0xff67: "Menu",
	0xff68: "Find",
	0xff69: "Cancel",
	0xff6a: "Help",
	0xff6b: "Break",
	0xff7e: "Mode_switch",
	0xff7f: "Num_Lock",
	0xff80: "KP_Space",
	0xff89: "KP_Tab",
	0xff8d: "KP_Enter",
	0xff91: "KP_F1",
	0xff92: "KP_F2",
	0xff93: "KP_F3",
	0xff94: "KP_F4",
	0xff95: "KP_Home",
	0xff96: "KP_Left",
	0xff97: "KP_Up",
	0xff98: "KP_Right",
	0xff99: "KP_Down",
	0xff9a: "KP_Prior",
	0xff9b: "KP_Next",
	0xff9c: "KP_End",
	0xff9d: "KP_Begin",
	0xff9e: "KP_Insert",
	0xff9f: "KP_Delete",
	0xffaa: "KP_Multiply",
	0xffab: "KP_Add",
	0xffac: "KP_Separator",
	0xffad: "KP_Subtract",
	0xffae: "KP_Decimal",
	0xffaf: "KP_Divide",
	0xffbd: "KP_Equal",
	0xffe1: "Shift_L",
	0xffe2: "Shift_R",
	0xffe3: "Control_L",
	0xffe4: "Control_R",
	0xffe5: "Caps_Lock",
	0xffe6: "Shift_Lock",
	0xffe7: "Meta_L",
	0xffe8: "Meta_R",
	0xffe9: "Alt_L",
	0xffea: "Alt_R",
	0xffeb: "Super_L",
	0xffec: "Super_R",
	0xffed: "Hyper_L",
	0xffee: "Hyper_R",
	0xffff: "Delete",

	0xfe03: "ISO_Level3_Shift",
	0xfe08: "ISO_Next_Group",
	0xfe20: "ISO_Left_Tab",

	0xfe50: "dead_grave",
	0xfe51: "dead_acute",
	0xfe52: "dead_circumflex",
	0xfe53: "dead_tilde",
	0xfe54: "dead_macron",
	0xfe55: "dead_breve",
	0xfe56: "dead_abovedot",
	0xfe57: "dead_diaeresis",
	0xfe58: "dead_abovering",
	0xfe59: "dead_doubleacute",
	0xfe5a: "dead_caron",
	0xfe5b: "dead_cedilla",

	0x00a0: "nobreakspace",
	0x00a1: "exclamdown",
	0x00a2: "cent",
	0x00a3: "sterling",
	0x00a4: "currency",
	0x00a5: "yen",
	0x00a6: "brokenbar",
	0x00a7: "section",
	0x00a8: "diaeresis",
	0x00a9: "copyright",
	0x00aa: "ordfeminine",
	0x00ab: "guillemotleft",
	0x00ac: "notsign",
	0x00ad: "hyphen",
	0x00ae: "registered",
	0x00af: "macron",
	0x00b0: "degree",
	0x00b1: "plusminus",
	0x00b2: "twosuperior",
	0x00b3: "threesuperior",
	0x00b4: "acute",
	0x00b5: "mu",
	0x00b6: "paragraph",
	0x00b7: "periodcentered",
	0x00b8: "cedilla",
	0x00b9: "onesuperior",
	0x00ba: "masculine",
	0x00bb: "guillemotright",
	0x00bc: "onequarter",
	0x00bd: "onehalf",
	0x00be: "threequarters",
	0x00bf: "questiondown",
	0x00d7: "multiply",
	0x00df: "ssharp",
	0x00f7: "division",
}

func init() {
	// KP_0 .. KP_9
	for i := uint32(0); i <= 9; i++ {
		names[0xffb0+i] = fmt.Sprintf("KP_%d", i)
	}
	// F1 .. F35
	for i := uint32(0); i < 35; i++ {
		names[F1+i] = fmt.Sprintf("F%d", i+1)
	}
}

// Name returns the X11 name of keyval, or "" when keyval has none.
// Keysyms that encode a Unicode code point are named "U+XXXX".
func Name(keyval uint32) string {
	if keyval&0xff000000 == unicodeBase {
		return fmt.Sprintf("U+%04X", keyval&0x00ffffff)
	}
	if IsPrintable(keyval) {
		return string(rune(keyval))
	}
	return names[keyval]
}
