package syntax

import (
	"fmt"
	"unicode/utf8"
)

// source is the parser's cursor over the pattern text. All positions are
// byte offsets; the unit under the cursor is a rune for text patterns and a
// byte for binary ones.
type source struct {
	pattern string
	pos     int
	binary  bool
}

func (s *source) tell() int { return s.pos }

func (s *source) seek(pos int) { s.pos = pos }

func (s *source) atEnd() bool { return s.pos >= len(s.pattern) }

// peek returns the next unit without consuming it.
func (s *source) peek() (rune, bool) {
	r, _ := s.decode()
	return r, r >= 0
}

func (s *source) decode() (rune, int) {
	if s.pos >= len(s.pattern) {
		return -1, 0
	}
	c := s.pattern[s.pos]
	if c < utf8.RuneSelf || s.binary {
		return rune(c), 1
	}
	r, w := utf8.DecodeRuneInString(s.pattern[s.pos:])
	if r == utf8.RuneError && w == 1 {
		return rune(c), 1
	}
	return r, w
}

// next consumes and returns the next unit.
func (s *source) next() (rune, bool) {
	r, w := s.decode()
	s.pos += w
	return r, w > 0
}

// match consumes the next unit if it equals c.
func (s *source) match(c rune) bool {
	r, w := s.decode()
	if w > 0 && r == c {
		s.pos += w
		return true
	}
	return false
}

// errorAt returns a syntax error positioned at pos.
func (s *source) errorAt(pos int, format string, args ...any) *Error {
	return SyntaxErrorf(s.pattern, pos, format, args...)
}

// errorf returns a syntax error positioned at the cursor.
func (s *source) errorf(format string, args ...any) *Error {
	return s.errorAt(s.pos, format, args...)
}

// getUntil reads a name terminated by term, consuming the terminator.
func (s *source) getUntil(term rune, what string) (string, error) {
	start := s.pos
	for {
		at := s.pos
		c, ok := s.next()
		if !ok {
			if at == start {
				return "", s.errorf("missing %s", what)
			}
			return "", s.errorAt(start, "missing %c, unterminated name", term)
		}
		if c == term {
			if at == start {
				return "", s.errorAt(at, "missing %s", what)
			}
			return s.pattern[start:at], nil
		}
	}
}

// skipComment skips a verbose-mode comment up to and including the newline.
func (s *source) skipComment() {
	for {
		c, ok := s.next()
		if !ok || c == '\n' {
			return
		}
	}
}

// span consumes up to n ASCII bytes accepted by fn and returns them.
func (s *source) span(n int, fn func(byte) bool) string {
	start := s.pos
	for s.pos < len(s.pattern) && s.pos-start < n && fn(s.pattern[s.pos]) {
		s.pos++
	}
	return s.pattern[start:s.pos]
}

func (s *source) digits() string { return s.span(len(s.pattern), isDigit) }

func (s *source) hex(n int) string { return s.span(n, isHexDigit) }

func (s *source) oct(n int) string { return s.span(n, isOctDigit) }

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func isOctDigit(c byte) bool { return '0' <= c && c <= '7' }

func isHexDigit(c byte) bool {
	return isDigit(c) || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func isASCIILetter(c rune) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isVerboseSpace(c rune) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// unitString renders a single pattern unit for error messages.
func (s *source) unitString(c rune) string {
	if s.binary && c >= utf8.RuneSelf {
		return fmt.Sprintf("\\x%02x", c)
	}
	return string(c)
}
