package syntax

import (
	"github.com/coregx/sre/internal/charset"
	"github.com/coregx/sre/internal/input"
)

// Match reports whether the anchor holds at pos in in. mode selects the
// word definition for \b and \B. Both are false on an empty subject.
func (a AtCode) Match(in input.Input, pos int, mode charset.Mode) bool {
	end := in.Len()
	switch a {
	case AtBeginning, AtBeginningString:
		return pos == 0
	case AtBeginningLine:
		if pos == 0 {
			return true
		}
		r, _ := in.Prev(pos)
		return r == '\n'
	case AtEnd:
		if pos == end {
			return true
		}
		r, w := in.Next(pos)
		return r == '\n' && pos+w == end
	case AtEndLine:
		if pos == end {
			return true
		}
		r, _ := in.Next(pos)
		return r == '\n'
	case AtEndString:
		return pos == end
	case AtBoundary, AtNonBoundary:
		if end == 0 {
			return false
		}
		before, after := false, false
		if r, w := in.Prev(pos); w > 0 {
			before = charset.IsWord(r, mode)
		}
		if r, w := in.Next(pos); w > 0 {
			after = charset.IsWord(r, mode)
		}
		return (before != after) == (a == AtBoundary)
	}
	return false
}
