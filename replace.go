package sre

import (
	"strings"

	"github.com/coregx/sre/syntax"
)

// template returns the parsed replacement template, caching it on p.
func (p *Pattern) template(tmpl string) (*syntax.Template, error) {
	if t, ok := p.templates.Get(tmpl); ok {
		return t, nil
	}
	t, err := syntax.ParseTemplate(tmpl, p.re)
	if err != nil {
		return nil, err
	}
	return p.templates.Add(tmpl, t), nil
}

// Sub returns s with the leftmost non-overlapping matches of p replaced by
// the expansion of repl. At most count matches are replaced when count is
// positive; a negative count replaces none.
//
// In repl, \1 to \99 and \g<N> refer to groups by number, \g<name> by
// name; \0 and three-digit octal escapes denote characters, and the usual
// \n \t \\ escapes are processed. Groups that did not participate expand to
// the empty string.
//
// Example:
//
//	p := sre.MustCompile(`(?i)b+`, 0)
//	s, _ := p.Sub("x", "bbbb BBBB", 0) // "x x"
func (p *Pattern) Sub(repl, s string, count int) (string, error) {
	out, _, err := p.Subn(repl, s, count)
	return out, err
}

// Subn is like Sub and also returns the number of replacements made.
func (p *Pattern) Subn(repl, s string, count int) (string, int, error) {
	t, err := p.template(repl)
	if err != nil {
		return "", 0, err
	}
	if lit, ok := t.Literal(); ok {
		out, n := p.replace(s, count, func(dst []byte, _ *Match) ([]byte, error) {
			return append(dst, lit...), nil
		}, false)
		return out, n, nil
	}
	out, n := p.replace(s, count, func(dst []byte, m *Match) ([]byte, error) {
		return m.expand(dst, t), nil
	}, true)
	return out, n, nil
}

// SubFunc returns s with the leftmost non-overlapping matches of p replaced
// by the result of repl. The first error returned by repl aborts the
// substitution.
func (p *Pattern) SubFunc(repl func(*Match) (string, error), s string, count int) (string, error) {
	out, _, err := p.SubnFunc(repl, s, count)
	return out, err
}

// SubnFunc is like SubFunc and also returns the number of replacements
// made.
func (p *Pattern) SubnFunc(repl func(*Match) (string, error), s string, count int) (string, int, error) {
	var replErr error
	out, n := p.replace(s, count, func(dst []byte, m *Match) ([]byte, error) {
		r, err := repl(m)
		if err != nil {
			replErr = err
			return nil, err
		}
		return append(dst, r...), nil
	}, true)
	if replErr != nil {
		return "", 0, replErr
	}
	return out, n, nil
}

// replace drives substitution. fn appends the replacement for a match; the
// Match is only built when withMatch is set.
func (p *Pattern) replace(s string, count int, fn func([]byte, *Match) ([]byte, error), withMatch bool) (string, int) {
	var (
		buf  []byte
		last int
		n    int
	)
	for r := range p.results(s, 0, len(s), count) {
		buf = append(buf, s[last:r.Caps[0]]...)
		var m *Match
		if withMatch {
			m = p.newMatch(s, 0, len(s), r)
		}
		var err error
		if buf, err = fn(buf, m); err != nil {
			return "", 0
		}
		last = r.Caps[1]
		n++
	}
	if n == 0 {
		return s, 0
	}
	buf = append(buf, s[last:]...)
	return string(buf), n
}

// escapeBytes marks the bytes Escape prefixes with a backslash.
var escapeBytes = func() (set [256]bool) {
	for _, c := range []byte("()[]{}?*+-|^$\\.&~# \t\n\r\v\f") {
		set[c] = true
	}
	return set
}()

// Escape returns s with every character that is special in a pattern
// escaped by a backslash, so that the result matches s literally.
func Escape(s string) string {
	i := 0
	for i < len(s) && !escapeBytes[s[i]] {
		i++
	}
	if i == len(s) {
		return s
	}
	var b strings.Builder
	b.Grow(2*len(s) - i)
	b.WriteString(s[:i])
	for ; i < len(s); i++ {
		if escapeBytes[s[i]] {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
