// Package input decodes subjects into the units the matchers consume.
//
// A text subject is decoded as UTF-8. A byte that does not start a valid
// sequence is its own unit whose value is the byte. A binary subject is a
// sequence of byte units. Positions are always byte offsets.
package input

import "unicode/utf8"

// Input is a subject truncated at the caller's endpos.
type Input struct {
	S      string
	Binary bool
}

// New returns an Input for s.
func New(s string, binary bool) Input {
	return Input{S: s, Binary: binary}
}

// Len returns the length of the subject in bytes.
func (in Input) Len() int { return len(in.S) }

// Next decodes the unit starting at pos. It returns a zero width at the end
// of the subject.
func (in Input) Next(pos int) (rune, int) {
	if pos >= len(in.S) {
		return -1, 0
	}
	c := in.S[pos]
	if c < utf8.RuneSelf || in.Binary {
		return rune(c), 1
	}
	r, w := utf8.DecodeRuneInString(in.S[pos:])
	if r == utf8.RuneError && w == 1 {
		return rune(c), 1
	}
	return r, w
}

// Prev decodes the unit ending at pos. It returns a zero width at the
// start of the subject.
func (in Input) Prev(pos int) (rune, int) {
	if pos <= 0 {
		return -1, 0
	}
	c := in.S[pos-1]
	if c < utf8.RuneSelf || in.Binary {
		return rune(c), 1
	}
	r, w := utf8.DecodeLastRuneInString(in.S[:pos])
	if r == utf8.RuneError && w == 1 {
		return rune(c), 1
	}
	return r, w
}

// Back steps back n units from pos. It returns false when the subject
// starts before n units are consumed.
func (in Input) Back(pos, n int) (int, bool) {
	if in.Binary {
		if pos < n {
			return 0, false
		}
		return pos - n, true
	}
	if pos < n {
		// every unit is at least one byte wide
		return 0, false
	}
	for ; n > 0; n-- {
		_, w := in.Prev(pos)
		if w == 0 {
			return 0, false
		}
		pos -= w
	}
	return pos, true
}

// Skip advances n units from pos. It returns false when the subject ends
// first.
func (in Input) Skip(pos, n int) (int, bool) {
	if in.Binary {
		if len(in.S)-pos < n {
			return 0, false
		}
		return pos + n, true
	}
	for ; n > 0; n-- {
		_, w := in.Next(pos)
		if w == 0 {
			return 0, false
		}
		pos += w
	}
	return pos, true
}

// NextPos returns the position one unit after pos, or len+1 at the end.
func (in Input) NextPos(pos int) int {
	_, w := in.Next(pos)
	if w == 0 {
		return pos + 1
	}
	return pos + w
}
