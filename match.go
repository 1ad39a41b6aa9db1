package sre

import (
	"fmt"

	"github.com/coregx/sre/meta"
	"github.com/coregx/sre/syntax"
)

// Match is the result of a successful match.
//
// Group keys are either an int index or a string group name. Any other key,
// an index out of range or an unknown name yields an ErrUsage error.
type Match struct {
	pattern   *Pattern
	subject   string
	pos       int
	endpos    int
	caps      []int
	lastIndex int
}

func (p *Pattern) newMatch(s string, pos, endpos int, r *meta.Result) *Match {
	return &Match{
		pattern:   p,
		subject:   s,
		pos:       pos,
		endpos:    endpos,
		caps:      r.Caps,
		lastIndex: r.LastIndex,
	}
}

// index resolves a group key.
func (m *Match) index(key any) (int, error) {
	switch k := key.(type) {
	case int:
		if k >= 0 && k <= m.pattern.re.Groups {
			return k, nil
		}
	case string:
		if i, ok := m.pattern.re.GroupIndex[k]; ok {
			return i, nil
		}
	}
	return 0, syntax.UsageErrorf("no such group")
}

// Group returns the text matched by a group, or "" if the group did not
// participate in the match.
func (m *Match) Group(key any) (string, error) {
	s, _, err := m.GroupOK(key)
	return s, err
}

// GroupOK is like Group and also reports whether the group participated.
func (m *Match) GroupOK(key any) (string, bool, error) {
	g, err := m.index(key)
	if err != nil {
		return "", false, err
	}
	if m.caps[2*g] < 0 {
		return "", false, nil
	}
	return m.subject[m.caps[2*g]:m.caps[2*g+1]], true, nil
}

// GroupTuple returns the text of several groups at once.
func (m *Match) GroupTuple(keys ...any) ([]string, error) {
	out := make([]string, len(keys))
	for i, k := range keys {
		s, err := m.Group(k)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// Groups returns the text of every group from 1 up, using def for groups
// that did not participate.
func (m *Match) Groups(def string) []string {
	out := make([]string, m.pattern.re.Groups)
	for i := range out {
		out[i] = m.groupOr(i+1, def)
	}
	return out
}

// GroupDict returns the text of every named group, using def for groups
// that did not participate.
func (m *Match) GroupDict(def string) map[string]string {
	out := make(map[string]string, len(m.pattern.re.GroupIndex))
	for name, i := range m.pattern.re.GroupIndex {
		out[name] = m.groupOr(i, def)
	}
	return out
}

func (m *Match) groupOr(g int, def string) string {
	if m.caps[2*g] < 0 {
		return def
	}
	return m.subject[m.caps[2*g]:m.caps[2*g+1]]
}

// Span returns the start and end of a group, (-1, -1) if it did not
// participate.
func (m *Match) Span(key any) (int, int, error) {
	g, err := m.index(key)
	if err != nil {
		return -1, -1, err
	}
	return m.caps[2*g], m.caps[2*g+1], nil
}

// Start returns the start of a group, -1 if it did not participate.
func (m *Match) Start(key any) (int, error) {
	start, _, err := m.Span(key)
	return start, err
}

// End returns the end of a group, -1 if it did not participate.
func (m *Match) End(key any) (int, error) {
	_, end, err := m.Span(key)
	return end, err
}

// Expand returns template with group references replaced by the groups of
// m, using the same syntax as Pattern.Sub.
func (m *Match) Expand(template string) (string, error) {
	t, err := m.pattern.template(template)
	if err != nil {
		return "", err
	}
	return string(m.expand(nil, t)), nil
}

func (m *Match) expand(dst []byte, t *syntax.Template) []byte {
	return t.Expand(dst, func(g int) string {
		return m.groupOr(g, "")
	})
}

// Pos returns the pos the search started from.
func (m *Match) Pos() int { return m.pos }

// EndPos returns the endpos the search was limited to.
func (m *Match) EndPos() int { return m.endpos }

// Subject returns the string that was matched against.
func (m *Match) Subject() string { return m.subject }

// Re returns the pattern that produced the match.
func (m *Match) Re() *Pattern { return m.pattern }

// LastIndex returns the index of the last group that closed, or -1.
func (m *Match) LastIndex() int { return m.lastIndex }

// LastGroup returns the name of the last group that closed, or "" if that
// group is unnamed or no group closed.
func (m *Match) LastGroup() string {
	if m.lastIndex < 0 {
		return ""
	}
	return m.pattern.re.GroupNames[m.lastIndex]
}

// Regs returns the span of every group, including group 0.
func (m *Match) Regs() [][2]int {
	out := make([][2]int, len(m.caps)/2)
	for i := range out {
		out[i] = [2]int{m.caps[2*i], m.caps[2*i+1]}
	}
	return out
}

// String returns the Python repr of the match, for example
// <re.Match object; span=(0, 1), match='a'>.
func (m *Match) String() string {
	text := syntax.Quote(m.subject[m.caps[0]:m.caps[1]], m.pattern.re.Binary)
	if m.pattern.re.Binary {
		text = "b" + text
	}
	return fmt.Sprintf("<re.Match object; span=(%d, %d), match=%s>", m.caps[0], m.caps[1], text)
}
