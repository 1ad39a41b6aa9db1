package syntax

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/runenames"
)

var (
	charNamesOnce sync.Once
	charNames     map[string]rune
)

var (
	jamoL = []string{"G", "GG", "N", "D", "DD", "R", "M", "B", "BB", "S", "SS", "", "J", "JJ", "C", "K", "T", "P", "H"}
	jamoV = []string{"A", "AE", "YA", "YAE", "EO", "E", "YEO", "YE", "O", "WA", "WAE", "OE", "YO", "U", "WEO", "WE", "WI", "YU", "EU", "YI", "I"}
	jamoT = []string{"", "G", "GG", "GS", "N", "NJ", "NH", "D", "L", "LG", "LM", "LB", "LS", "LT", "LP", "LH", "M", "B", "BS", "S", "SS", "NG", "J", "C", "K", "T", "P", "H"}
)

const (
	hangulBase  = 0xac00
	hangulCount = 19 * 21 * 28
)

func buildCharNames() {
	charNames = make(map[string]rune, 1<<16)
	for r := rune(0); r <= unicode.MaxRune; r++ {
		if 0xd800 <= r && r <= 0xdfff {
			continue
		}
		name := runenames.Name(r)
		if name == "" || name[0] == '<' {
			continue
		}
		charNames[name] = r
	}
	for i := 0; i < hangulCount; i++ {
		name := "HANGUL SYLLABLE " + jamoL[i/(21*28)] + jamoV[i%(21*28)/28] + jamoT[i%28]
		charNames[name] = rune(hangulBase + i)
	}
}

// lookupCharName resolves a \N{...} character name. Matching is case
// insensitive, like Python's unicodedata.lookup.
func lookupCharName(name string) (rune, bool) {
	upper := strings.ToUpper(name)
	if hex, ok := strings.CutPrefix(upper, "CJK UNIFIED IDEOGRAPH-"); ok && (len(hex) == 4 || len(hex) == 5) {
		v, err := strconv.ParseUint(hex, 16, 32)
		if err == nil && unicode.Is(unicode.Unified_Ideograph, rune(v)) {
			return rune(v), true
		}
		return 0, false
	}
	charNamesOnce.Do(buildCharNames)
	r, ok := charNames[upper]
	return r, ok
}

// isIdentifier approximates Python's str.isidentifier with the Go Unicode
// tables: a letter, letter number or underscore followed by letters,
// numbers, marks and connector punctuation.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == utf8.RuneError {
			return false
		}
		if r == '_' || unicode.IsLetter(r) || unicode.Is(unicode.Nl, r) || unicode.Is(unicode.Other_ID_Start, r) {
			continue
		}
		if i > 0 && (unicode.In(r, unicode.Mn, unicode.Mc, unicode.Nd, unicode.Pc) || unicode.Is(unicode.Other_ID_Continue, r)) {
			continue
		}
		return false
	}
	return true
}

// Quote renders s the way Python's repr renders a str, without any b
// prefix. For binary strings every byte is one character and bytes
// outside ASCII are escaped as \xNN.
func Quote(s string, binary bool) string {
	quote := byte('\'')
	if strings.IndexByte(s, '\'') >= 0 && strings.IndexByte(s, '"') < 0 {
		quote = '"'
	}
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(quote)
	for i := 0; i < len(s); {
		r, w := rune(s[i]), 1
		if !binary && r >= utf8.RuneSelf {
			r, w = utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && w == 1 {
				fmt.Fprintf(&b, "\\udc%02x", s[i])
				i++
				continue
			}
		}
		i += w
		switch {
		case r == rune(quote) || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\t':
			b.WriteString(`\t`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, "\\x%02x", r)
		case r < utf8.RuneSelf:
			b.WriteRune(r)
		case binary || !unicode.IsPrint(r):
			switch {
			case r <= 0xff:
				fmt.Fprintf(&b, "\\x%02x", r)
			case r <= 0xffff:
				fmt.Fprintf(&b, "\\u%04x", r)
			default:
				fmt.Fprintf(&b, "\\U%08x", r)
			}
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(quote)
	return b.String()
}
