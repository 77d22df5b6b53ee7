package m17n

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode/utf32"
)

// ErrEncoding reports text that has no UTF-8 representation.
var ErrEncoding = errors.New("m17n: text not representable as UTF-8")

// Text is a sequence of characters as held by the library. Characters
// outside the Unicode range are possible and make UTF8 fail.
type Text []rune

// TextOf returns s as Text.
func TextOf(s string) Text {
	return Text([]rune(s))
}

// Len returns the number of characters.
func (t Text) Len() int {
	return len(t)
}

// UTF8 converts t to a string.
func (t Text) UTF8() (string, error) {
	var b strings.Builder
	b.Grow(len(t))
	for i, r := range t {
		if !utf8.ValidRune(r) {
			return "", fmt.Errorf("%w: character %d is %#x", ErrEncoding, i, r)
		}
		b.WriteRune(r)
	}
	return b.String(), nil
}

// Chars splits t into single-character strings. It fails with
// ErrEncoding if any character has no UTF-8 form.
func (t Text) Chars() ([]string, error) {
	out := make([]string, 0, len(t))
	for i, r := range t {
		if !utf8.ValidRune(r) {
			return nil, fmt.Errorf("%w: character %d is %#x", ErrEncoding, i, r)
		}
		out = append(out, string(r))
	}
	return out, nil
}

// DecodeUCS4 decodes little-endian UCS-4 data as produced by the library's
// UTF-32 converter.
func DecodeUCS4(b []byte) (Text, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of 4", ErrEncoding, len(b))
	}
	dec := utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM).NewDecoder()
	s, err := dec.Bytes(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	t := Text([]rune(string(s)))
	if t.Len() != len(b)/4 {
		return nil, fmt.Errorf("%w: %d characters decoded from %d bytes", ErrEncoding, t.Len(), len(b))
	}
	for i, r := range t {
		if r == utf8.RuneError && !isEncodedReplacement(b[i*4:i*4+4]) {
			return nil, fmt.Errorf("%w: invalid character at %d", ErrEncoding, i)
		}
	}
	return t, nil
}

func isEncodedReplacement(b []byte) bool {
	return b[0] == 0xfd && b[1] == 0xff && b[2] == 0 && b[3] == 0
}

// CandidateGroup is one page of candidates: either a block of single
// characters or a list of strings.
type CandidateGroup struct {
	Block   Text
	Strings []Text
}

// IsBlock reports whether g is a character block.
func (g CandidateGroup) IsBlock() bool {
	return g.Strings == nil
}

// Len is the number of candidates in g.
func (g CandidateGroup) Len() int {
	if g.IsBlock() {
		return g.Block.Len()
	}
	return len(g.Strings)
}

// CandidateList is the ordered sequence of candidate groups.
type CandidateList []CandidateGroup

// Total is the number of candidates across all groups.
func (l CandidateList) Total() int {
	n := 0
	for _, g := range l {
		n += g.Len()
	}
	return n
}
