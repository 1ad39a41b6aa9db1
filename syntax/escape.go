package syntax

import (
	"strconv"

	"github.com/coregx/sre/internal/charset"
)

// parseEscape parses an escape outside a class. The backslash at start
// has been consumed.
func (p *parser) parseEscape(start int, cur Flag) (*Node, error) {
	s := &p.src
	c, ok := s.next()
	if !ok {
		return nil, s.errorAt(start, "bad escape (end of pattern)")
	}

	anchor := func(at AtCode) *Node {
		return &Node{Op: OpAnchor, At: at, Flags: cur, Pos: start}
	}
	switch c {
	case 'A':
		return anchor(AtBeginningString), nil
	case 'Z':
		return anchor(AtEndString), nil
	case 'b':
		return anchor(AtBoundary), nil
	case 'B':
		return anchor(AtNonBoundary), nil
	}
	if cat, ok := categoryEscape(c); ok {
		return &Node{
			Op:    OpClass,
			Flags: cur,
			Pos:   start,
			Class: &Class{Items: []ClassItem{{Kind: ItemCategory, Category: cat}}},
		}, nil
	}

	if '1' <= c && c <= '9' {
		return p.parseGroupRef(start, c, cur)
	}

	r, err := p.escapeLiteral(start, c)
	if err != nil {
		return nil, err
	}
	return &Node{Op: OpLiteral, Rune: r, Flags: cur, Pos: start}, nil
}

// parseGroupRef parses \N where N starts with a nonzero digit: either a
// three-digit octal escape or a numeric back reference.
func (p *parser) parseGroupRef(start int, c rune, cur Flag) (*Node, error) {
	s := &p.src
	digits := string(c)
	if d, ok := s.peek(); ok && d < 0x80 && isDigit(byte(d)) {
		s.next()
		digits += string(d)
		if isOctDigit(digits[0]) && isOctDigit(digits[1]) {
			if d, ok := s.peek(); ok && d < 0x80 && isOctDigit(byte(d)) {
				s.next()
				digits += string(d)
				v, _ := strconv.ParseUint(digits, 8, 32)
				if v > 0o377 {
					return nil, s.errorAt(start, "octal escape value \\%s outside of range 0-0o377", digits)
				}
				return &Node{Op: OpLiteral, Rune: rune(v), Flags: cur, Pos: start}, nil
			}
		}
	}

	group, _ := strconv.Atoi(digits)
	if group < p.groups() {
		if !p.checkGroup(group) {
			return nil, s.errorAt(start, "cannot refer to an open group")
		}
		if err := p.checkLookbehindGroup(group); err != nil {
			return nil, err
		}
		return &Node{Op: OpBackref, Index: group, Flags: cur, Pos: start}, nil
	}
	return nil, s.errorAt(start+1, "invalid group reference %d", group)
}

// classEscape parses an escape inside a class. The backslash at start has
// been consumed.
func (p *parser) classEscape(start int) (ClassItem, error) {
	s := &p.src
	c, ok := s.next()
	if !ok {
		return ClassItem{}, s.errorAt(start, "bad escape (end of pattern)")
	}
	if cat, ok := categoryEscape(c); ok {
		return ClassItem{Kind: ItemCategory, Category: cat}, nil
	}
	var r rune
	var err error
	switch {
	case c == 'b':
		r = '\b'
	case '0' <= c && c <= '7':
		digits := string(c) + s.oct(2)
		v, _ := strconv.ParseUint(digits, 8, 32)
		if v > 0o377 {
			return ClassItem{}, s.errorAt(start, "octal escape value \\%s outside of range 0-0o377", digits)
		}
		r = rune(v)
	case c == '8' || c == '9':
		return ClassItem{}, s.errorAt(start, "bad escape \\%c", c)
	default:
		if r, err = p.escapeLiteral(start, c); err != nil {
			return ClassItem{}, err
		}
	}
	return ClassItem{Kind: ItemLiteral, Lo: r, Hi: r}, nil
}

func categoryEscape(c rune) (charset.Category, bool) {
	switch c {
	case 'd':
		return charset.CategoryDigit, true
	case 'D':
		return charset.CategoryNotDigit, true
	case 's':
		return charset.CategorySpace, true
	case 'S':
		return charset.CategoryNotSpace, true
	case 'w':
		return charset.CategoryWord, true
	case 'W':
		return charset.CategoryNotWord, true
	}
	return 0, false
}

// escapeLiteral decodes the escapes that denote a single character and
// are valid both inside and outside classes.
func (p *parser) escapeLiteral(start int, c rune) (rune, error) {
	s := &p.src
	switch c {
	case 'a':
		return '\a', nil
	case 'f':
		return '\f', nil
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 't':
		return '\t', nil
	case 'v':
		return '\v', nil
	case '\\':
		return '\\', nil
	case 'x':
		return p.hexEscape(start, 'x', 2)
	case '0':
		digits := "0" + s.oct(2)
		v, _ := strconv.ParseUint(digits, 8, 32)
		return rune(v), nil
	}

	if !s.binary {
		switch c {
		case 'u':
			return p.hexEscape(start, 'u', 4)
		case 'U':
			return p.hexEscape(start, 'U', 8)
		case 'N':
			if !s.match('{') {
				return 0, s.errorf("missing {")
			}
			name, err := s.getUntil('}', "character name")
			if err != nil {
				return 0, err
			}
			r, ok := lookupCharName(name)
			if !ok {
				return 0, s.errorAt(start, "undefined character name %s", Quote(name, false))
			}
			return r, nil
		}
	}

	if isASCIILetter(c) {
		return 0, s.errorAt(start, "bad escape \\%c", c)
	}
	return c, nil
}

func (p *parser) hexEscape(start int, c rune, n int) (rune, error) {
	s := &p.src
	digits := s.hex(n)
	if len(digits) != n {
		return 0, s.errorAt(start, "incomplete escape \\%c%s", c, digits)
	}
	v, _ := strconv.ParseUint(digits, 16, 32)
	if v > 0x10ffff {
		return 0, s.errorAt(start, "bad escape \\%c%s", c, digits)
	}
	return rune(v), nil
}

// parseClass parses a character class. The '[' at start has been consumed.
func (p *parser) parseClass(start int, cur Flag) (*Node, error) {
	s := &p.src
	var items []ClassItem
	negate := s.match('^')

	for {
		thisStart := s.tell()
		c, ok := s.next()
		if !ok {
			return nil, s.errorAt(start, "unterminated character set")
		}
		if c == ']' && len(items) > 0 {
			break
		}

		lo := ClassItem{Kind: ItemLiteral, Lo: c, Hi: c}
		if c == '\\' {
			var err error
			if lo, err = p.classEscape(thisStart); err != nil {
				return nil, err
			}
		}

		if !s.match('-') {
			items = append(items, lo)
			continue
		}
		thatStart := s.tell()
		c2, ok := s.next()
		if !ok {
			return nil, s.errorAt(start, "unterminated character set")
		}
		if c2 == ']' {
			items = append(items, lo, ClassItem{Kind: ItemLiteral, Lo: '-', Hi: '-'})
			break
		}
		hi := ClassItem{Kind: ItemLiteral, Lo: c2, Hi: c2}
		if c2 == '\\' {
			var err error
			if hi, err = p.classEscape(thatStart); err != nil {
				return nil, err
			}
		}
		if lo.Kind != ItemLiteral || hi.Kind != ItemLiteral || hi.Lo < lo.Lo {
			return nil, s.errorAt(thisStart, "bad character range %s-%s", s.token(thisStart), s.token(thatStart))
		}
		items = append(items, ClassItem{Kind: ItemRange, Lo: lo.Lo, Hi: hi.Lo})
	}

	items = uniqueItems(items)
	if len(items) == 1 && items[0].Kind == ItemLiteral {
		op := OpLiteral
		if negate {
			op = OpNotLiteral
		}
		return &Node{Op: op, Rune: items[0].Lo, Flags: cur, Pos: start}, nil
	}
	return &Node{Op: OpClass, Flags: cur, Pos: start, Class: &Class{Items: items, Negate: negate}}, nil
}

// token renders the pattern token at pos for error messages: one unit, or
// a backslash and the unit after it.
func (s *source) token(pos int) string {
	t := source{pattern: s.pattern, pos: pos, binary: s.binary}
	c, _ := t.next()
	if c != '\\' {
		return s.unitString(c)
	}
	c, ok := t.next()
	if !ok {
		return "\\"
	}
	return "\\" + s.unitString(c)
}
