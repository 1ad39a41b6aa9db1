// Package charset provides the character tables used by the compilers:
// the \d \w \s categories in their Unicode and ASCII flavours, case-fold
// closures, and compiled character sets.
//
// All predicates operate on decoded units. For text subjects a unit is a
// rune; for binary subjects it is a byte widened to a rune, which is why the
// ASCII flavour never reports a unit >= 0x80 as a member of any category.
package charset

import "unicode"

// Mode selects which flavour of the character categories is in effect.
type Mode uint8

const (
	// ModeUnicode uses Unicode properties (the default for text patterns).
	ModeUnicode Mode = iota

	// ModeASCII restricts categories to ASCII (ASCII flag, binary patterns).
	ModeASCII

	// ModeLocale is accepted for binary patterns. No locale database is
	// consulted, so it behaves like ModeASCII.
	ModeLocale
)

// String returns the flag-style name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeUnicode:
		return "UNICODE"
	case ModeASCII:
		return "ASCII"
	case ModeLocale:
		return "LOCALE"
	default:
		return "UNKNOWN"
	}
}

// Category identifies one of the escape categories usable inside and
// outside character classes.
type Category uint8

const (
	CategoryDigit Category = iota
	CategoryNotDigit
	CategorySpace
	CategoryNotSpace
	CategoryWord
	CategoryNotWord
)

var categoryNames = [...]string{
	CategoryDigit:    "CATEGORY_DIGIT",
	CategoryNotDigit: "CATEGORY_NOT_DIGIT",
	CategorySpace:    "CATEGORY_SPACE",
	CategoryNotSpace: "CATEGORY_NOT_SPACE",
	CategoryWord:     "CATEGORY_WORD",
	CategoryNotWord:  "CATEGORY_NOT_WORD",
}

// String returns the name used in debug dumps.
func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "CATEGORY_UNKNOWN"
}

// Negated reports whether c is one of the upper-case escape categories.
func (c Category) Negated() bool {
	return c&1 == 1
}

// Contains reports whether r belongs to the category under mode m.
func (c Category) Contains(r rune, m Mode) bool {
	var in bool
	switch c &^ 1 {
	case CategoryDigit:
		in = IsDigit(r, m)
	case CategorySpace:
		in = IsSpace(r, m)
	case CategoryWord:
		in = IsWord(r, m)
	}
	return in != c.Negated()
}

// IsDigit reports whether r matches \d.
func IsDigit(r rune, m Mode) bool {
	if r < 0x80 || m != ModeUnicode {
		return '0' <= r && r <= '9'
	}
	return unicode.Is(unicode.Nd, r)
}

// IsSpace reports whether r matches \s.
func IsSpace(r rune, m Mode) bool {
	if r < 0x80 {
		switch r {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			return true
		case 0x1c, 0x1d, 0x1e, 0x1f:
			return m == ModeUnicode
		}
		return false
	}
	if m != ModeUnicode {
		return false
	}
	switch r {
	case 0x85, 0xa0, 0x1680, 0x2028, 0x2029, 0x202f, 0x205f, 0x3000:
		return true
	}
	return 0x2000 <= r && r <= 0x200a
}

// IsWord reports whether r matches \w.
func IsWord(r rune, m Mode) bool {
	if r < 0x80 || m != ModeUnicode {
		return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') || r == '_'
	}
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}
