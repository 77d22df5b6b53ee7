//go:build m17n

package native

/*
#cgo pkg-config: m17n-shell
#include <stdint.h>
#include <stdlib.h>
#include <m17n.h>

int ibus_m17n_init(void);
void ibus_m17n_fini(void);
void ibus_m17n_unref(void *object);
void ibus_m17n_set_callback(MInputMethod *im, MSymbol command);
MInputContext *ibus_m17n_create_ic(MInputMethod *im, uintptr_t handle);
uintptr_t ibus_m17n_ic_handle(MInputContext *ic);
int ibus_m17n_to_utf32(MText *text, unsigned char *buf, int size);
*/
import "C"

import (
	"errors"
	"fmt"
	"runtime/cgo"
	"sort"
	"unsafe"

	"ibus-m17n/internal/m17n"
)

// invalid marks text that failed to convert; it has no UTF-8 form.
const invalid rune = 0x110000

// Library is the process-wide libm17n instance.
type Library struct {
	closed bool
}

// Open initialises libm17n.
func Open() (*Library, error) {
	if code := C.ibus_m17n_init(); code != 0 {
		return nil, fmt.Errorf("m17n: initialisation failed (error %d)", int(code))
	}
	return &Library{}, nil
}

// Close shuts libm17n down. Methods must be closed first.
func (l *Library) Close() error {
	if l.closed {
		return errors.New("m17n: library already closed")
	}
	l.closed = true
	C.ibus_m17n_fini()
	return nil
}

// OpenMethod implements m17n.Library.
func (l *Library) OpenMethod(language, name m17n.Symbol) (m17n.Method, error) {
	im := C.minput_open_im(symbol(language), symbol(name), nil)
	if im == nil {
		return nil, fmt.Errorf("%w: %s-%s", m17n.ErrNoMethod, language, name)
	}
	return &method{im: im, callbacks: make(map[m17n.Symbol]m17n.Callback)}, nil
}

// ListMethods implements m17n.Library. Methods whose candidates are not
// produced in UTF-8 are left out.
func (l *Library) ListMethods() ([]m17n.MethodInfo, error) {
	list := C.mdatabase_list(symbol("input-method"), C.Mnil, C.Mnil, C.Mnil)
	if list == nil {
		return nil, nil
	}
	defer C.ibus_m17n_unref(unsafe.Pointer(list))

	var out []m17n.MethodInfo
	for p := list; p != nil && C.mplist_key(p) != C.Mnil; p = C.mplist_next(p) {
		mdb := (*C.MDatabase)(C.mplist_value(p))
		tag := (*[4]C.MSymbol)(unsafe.Pointer(C.mdatabase_tag(mdb)))
		lang, name := tag[1], tag[2]
		if lang == C.Mnil || name == C.Mnil {
			continue
		}
		if !utf8Candidates(lang, name) {
			continue
		}
		out = append(out, describe(lang, name))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Language != out[j].Language {
			return out[i].Language < out[j].Language
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func utf8Candidates(lang, name C.MSymbol) bool {
	l := C.minput_get_variable(lang, name, symbol("candidates-charset"))
	if l == nil {
		return true
	}
	defer C.ibus_m17n_unref(unsafe.Pointer(l))

	// (name description unknown charset)
	sl := (*C.MPlist)(C.mplist_value(l))
	for i := 0; i < 3 && sl != nil; i++ {
		sl = C.mplist_next(sl)
	}
	if sl == nil || C.mplist_key(sl) == C.Mnil {
		return true
	}
	charset := C.MSymbol(C.mplist_value(sl))
	return charset == C.Mcoding_utf_8 || charset == C.Mcoding_utf_8_full
}

func describe(lang, name C.MSymbol) m17n.MethodInfo {
	info := m17n.MethodInfo{
		Language: m17n.Symbol(C.GoString(C.msymbol_name(lang))),
		Name:     m17n.Symbol(C.GoString(C.msymbol_name(name))),
	}
	if desc := C.minput_get_description(lang, name); desc != nil {
		info.Description = textString(desc)
		C.ibus_m17n_unref(unsafe.Pointer(desc))
	}
	l := C.minput_get_title_icon(lang, name)
	if l == nil {
		return info
	}
	defer C.ibus_m17n_unref(unsafe.Pointer(l))
	if C.mplist_key(l) == C.Mtext {
		info.Title = textString((*C.MText)(C.mplist_value(l)))
	}
	if n := C.mplist_next(l); n != nil && C.mplist_key(n) == C.Mtext {
		info.Icon = textString((*C.MText)(C.mplist_value(n)))
	}
	return info
}

type method struct {
	im        *C.MInputMethod
	callbacks map[m17n.Symbol]m17n.Callback
}

func (m *method) SetCallback(command m17n.Symbol, cb m17n.Callback) {
	m.callbacks[command] = cb
	C.ibus_m17n_set_callback(m.im, symbol(command))
}

func (m *method) CreateContext() (m17n.Context, error) {
	c := &context{m: m}
	c.handle = cgo.NewHandle(c)
	c.ic = C.ibus_m17n_create_ic(m.im, C.uintptr_t(c.handle))
	if c.ic == nil {
		c.handle.Delete()
		return nil, m17n.ErrContext
	}
	return c, nil
}

func (m *method) Close() {
	if m.im != nil {
		C.minput_close_im(m.im)
		m.im = nil
	}
}

type context struct {
	m      *method
	ic     *C.MInputContext
	handle cgo.Handle
}

//export goInputCallback
func goInputCallback(ic *C.MInputContext, command C.MSymbol) {
	h := cgo.Handle(C.ibus_m17n_ic_handle(ic))
	if h == 0 {
		return
	}
	c, ok := h.Value().(*context)
	if !ok {
		return
	}
	// minput_create_ic has not returned yet.
	if c.ic == nil {
		c.ic = ic
	}
	name := m17n.Symbol(C.GoString(C.msymbol_name(command)))
	if cb := c.m.callbacks[name]; cb != nil {
		cb(c, name)
	}
}

func (c *context) ID() uint64 { return uint64(c.handle) }

func (c *context) Filter(key m17n.Symbol) bool {
	if c.ic == nil {
		return false
	}
	return C.minput_filter(c.ic, symbol(key), nil) != 0
}

func (c *context) Lookup(key m17n.Symbol, produced *m17n.Text) bool {
	if c.ic == nil {
		return false
	}
	mt := C.mtext()
	defer C.ibus_m17n_unref(unsafe.Pointer(mt))
	ret := C.minput_lookup(c.ic, symbol(key), nil, mt)
	*produced = append(*produced, convert(mt)...)
	return ret == 0
}

func (c *context) Reset() {
	if c.ic != nil {
		C.minput_reset_ic(c.ic)
	}
}

func (c *context) Preedit() m17n.Text {
	if c.ic == nil {
		return nil
	}
	return convert(c.ic.preedit)
}

func (c *context) CursorPos() int {
	if c.ic == nil {
		return 0
	}
	return int(c.ic.cursor_pos)
}

func (c *context) Status() m17n.Text {
	if c.ic == nil {
		return nil
	}
	return convert(c.ic.status)
}

func (c *context) Candidates() m17n.CandidateList {
	if c.ic == nil || c.ic.candidate_list == nil {
		return nil
	}
	list := c.ic.candidate_list
	var out m17n.CandidateList
	for p := list; C.mplist_key(p) != C.Mnil; p = C.mplist_next(p) {
		if C.mplist_key(p) == C.Mtext {
			out = append(out, m17n.CandidateGroup{Block: convert((*C.MText)(C.mplist_value(p)))})
			continue
		}
		strs := make([]m17n.Text, 0)
		for q := (*C.MPlist)(C.mplist_value(p)); C.mplist_key(q) != C.Mnil; q = C.mplist_next(q) {
			strs = append(strs, convert((*C.MText)(C.mplist_value(q))))
		}
		out = append(out, m17n.CandidateGroup{Strings: strs})
	}
	return out
}

func (c *context) CandidateIndex() int {
	if c.ic == nil {
		return 0
	}
	return int(c.ic.candidate_index)
}

func (c *context) CandidateShow() bool {
	if c.ic == nil {
		return false
	}
	return c.ic.candidate_show != 0
}

func (c *context) Destroy() {
	if c.ic != nil {
		C.minput_destroy_ic(c.ic)
		c.ic = nil
	}
	c.handle.Delete()
}

func symbol(s m17n.Symbol) C.MSymbol {
	cs := C.CString(string(s))
	defer C.free(unsafe.Pointer(cs))
	return C.msymbol(cs)
}

// convert returns the characters of mt. A failed conversion yields as
// many invalid characters, so lengths still match the library's view.
func convert(mt *C.MText) m17n.Text {
	if mt == nil {
		return nil
	}
	n := int(C.mtext_len(mt))
	if n == 0 {
		return nil
	}
	t, err := toUCS4(mt, n)
	if err != nil {
		t = make(m17n.Text, n)
		for i := range t {
			t[i] = invalid
		}
	}
	return t
}

func toUCS4(mt *C.MText, n int) (m17n.Text, error) {
	size := (n + 2) * 4
	buf := C.malloc(C.size_t(size))
	defer C.free(buf)
	written := C.ibus_m17n_to_utf32(mt, (*C.uchar)(buf), C.int(size))
	if written < 0 {
		return nil, m17n.ErrEncoding
	}
	return m17n.DecodeUCS4(C.GoBytes(buf, written))
}

func textString(mt *C.MText) string {
	s, err := convert(mt).UTF8()
	if err != nil {
		return ""
	}
	return s
}
