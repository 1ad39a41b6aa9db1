package syntax

import (
	"strconv"
	"unicode/utf8"
)

// Template is a parsed substitution template: literal chunks interleaved
// with group references. Literals always has one more element than Groups.
type Template struct {
	Literals []string
	Groups   []int
}

// ParseTemplate parses a replacement template for re. Escapes are
// processed like in Python string literals; \N, \NN and \g<name> refer to
// groups; octal escapes \0, \0NN and \NNN denote characters.
func ParseTemplate(tmpl string, re *Regexp) (*Template, error) {
	t := &Template{}
	var lit []byte
	flush := func(group int) {
		t.Literals = append(t.Literals, string(lit))
		t.Groups = append(t.Groups, group)
		lit = lit[:0]
	}
	appendChar := func(r rune) {
		if re.Binary {
			lit = append(lit, byte(r))
		} else {
			lit = utf8.AppendRune(lit, r)
		}
	}
	errorAt := func(pos int, format string, args ...any) error {
		return TemplateErrorf(tmpl, pos, format, args...)
	}

	for i := 0; i < len(tmpl); {
		c := tmpl[i]
		if c != '\\' {
			lit = append(lit, c)
			i++
			continue
		}
		start := i
		i++
		if i >= len(tmpl) {
			return nil, errorAt(start, "bad escape (end of pattern)")
		}
		c = tmpl[i]
		i++

		switch {
		case c == 'g':
			if i >= len(tmpl) || tmpl[i] != '<' {
				return nil, errorAt(i, "missing <")
			}
			i++
			nameStart := i
			end := nameStart
			for end < len(tmpl) && tmpl[end] != '>' {
				end++
			}
			if end == nameStart {
				return nil, errorAt(nameStart, "missing group name")
			}
			if end >= len(tmpl) {
				return nil, errorAt(nameStart, "missing >, unterminated name")
			}
			name := tmpl[nameStart:end]
			i = end + 1

			var index int
			if isASCIIDigits(name) {
				n, err := strconv.Atoi(name)
				if err != nil || n >= MaxGroups {
					return nil, errorAt(nameStart, "invalid group reference %s", name)
				}
				index = n
			} else {
				if re.Binary && !isASCII(name) {
					return nil, errorAt(nameStart, "bad character in group name %s", Quote(name, true))
				}
				if !isIdentifier(name) {
					return nil, errorAt(nameStart, "bad character in group name %s", Quote(name, re.Binary))
				}
				gid, ok := re.GroupIndex[name]
				if !ok {
					return nil, errorAt(nameStart, "unknown group name %s", Quote(name, re.Binary))
				}
				index = gid
			}
			if index > re.Groups {
				return nil, errorAt(nameStart, "invalid group reference %d", index)
			}
			flush(index)

		case c == '0':
			v := 0
			for n := 0; n < 2 && i < len(tmpl) && isOctDigit(tmpl[i]); n++ {
				v = v*8 + int(tmpl[i]-'0')
				i++
			}
			appendChar(rune(v & 0xff))

		case isDigit(c):
			digits := tmpl[start+1 : i]
			if i < len(tmpl) && isDigit(tmpl[i]) {
				digits = tmpl[start+1 : i+1]
				i++
				if isOctDigit(digits[0]) && isOctDigit(digits[1]) && i < len(tmpl) && isOctDigit(tmpl[i]) {
					digits = tmpl[start+1 : i+1]
					i++
					v, _ := strconv.ParseUint(digits, 8, 32)
					if v > 0o377 {
						return nil, errorAt(start, "octal escape value \\%s outside of range 0-0o377", digits)
					}
					appendChar(rune(v))
					continue
				}
			}
			index, _ := strconv.Atoi(digits)
			if index > re.Groups {
				return nil, errorAt(start+1, "invalid group reference %d", index)
			}
			flush(index)

		default:
			if r, ok := templateEscape(c); ok {
				lit = append(lit, r)
				continue
			}
			if isASCIILetter(rune(c)) {
				return nil, errorAt(start, "bad escape \\%c", c)
			}
			lit = append(lit, '\\', c)
		}
	}
	t.Literals = append(t.Literals, string(lit))
	return t, nil
}

func templateEscape(c byte) (byte, bool) {
	switch c {
	case 'a':
		return '\a', true
	case 'b':
		return '\b', true
	case 'f':
		return '\f', true
	case 'n':
		return '\n', true
	case 'r':
		return '\r', true
	case 't':
		return '\t', true
	case 'v':
		return '\v', true
	case '\\':
		return '\\', true
	}
	return 0, false
}

// Literal reports whether the template contains no group references, and
// returns its text.
func (t *Template) Literal() (string, bool) {
	if len(t.Groups) == 0 {
		return t.Literals[0], true
	}
	return "", false
}

// Expand appends the expansion of t to dst. group returns the text of a
// group, or "" for a group that did not participate.
func (t *Template) Expand(dst []byte, group func(int) string) []byte {
	for i, g := range t.Groups {
		dst = append(dst, t.Literals[i]...)
		dst = append(dst, group(g)...)
	}
	return append(dst, t.Literals[len(t.Literals)-1]...)
}
