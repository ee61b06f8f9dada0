package aeatfile

import (
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// Combining marks the agency charset can represent. Everything else is
// stripped: é -> E, but ç and ñ survive.
const (
	combiningCedilla = '̧'
	combiningTilde   = '̃'
)

// Normalize uppercases text and strips the diacritics the submission charset
// cannot carry, keeping cedilla and tilde
func Normalize(s string) string {
	decomposed := norm.NFD.String(strings.ToUpper(s))
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) && r != combiningCedilla && r != combiningTilde {
			continue
		}
		b.WriteRune(r)
	}
	return norm.NFC.String(b.String())
}

// EncodeLatin1 converts text to ISO-8859-1, silently dropping any rune the
// charset cannot represent
func EncodeLatin1(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if b, ok := charmap.ISO8859_1.EncodeRune(r); ok {
			out = append(out, b)
		}
	}
	return out
}
