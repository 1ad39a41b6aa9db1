// Package literal extracts the literal prefixes that every match of a
// parsed pattern must start with.
//
// A Seq lists alternative prefixes in priority order; a Literal marks
// whether it is the whole match (Complete) or only its start. The
// prefilter package turns a Seq into a fast candidate scanner.
package literal

import (
	"bytes"
	"slices"
	"strconv"
)

// Literal is one required prefix, in the subject's encoding.
type Literal struct {
	Bytes []byte

	// Complete means a match is exactly Bytes, not merely prefixed by it.
	Complete bool
}

// NewLiteral returns a Literal.
func NewLiteral(b []byte, complete bool) Literal {
	return Literal{Bytes: b, Complete: complete}
}

// Len returns the length of the literal in bytes.
func (l Literal) Len() int {
	return len(l.Bytes)
}

// String quotes the literal; a trailing "+" marks an incomplete one.
func (l Literal) String() string {
	s := strconv.Quote(string(l.Bytes))
	if !l.Complete {
		s += "+"
	}
	return s
}

// Seq is a set of alternative literals, one of which starts every match.
// An empty or nil Seq means no such set is known.
type Seq struct {
	literals []Literal
}

// NewSeq returns a Seq of lits.
func NewSeq(lits ...Literal) *Seq {
	return &Seq{literals: lits}
}

// Len returns the number of literals.
func (s *Seq) Len() int {
	if s == nil {
		return 0
	}
	return len(s.literals)
}

// Get returns literal i.
func (s *Seq) Get(i int) Literal {
	return s.literals[i]
}

// Literals returns the literals. The slice must not be modified.
func (s *Seq) Literals() []Literal {
	if s == nil {
		return nil
	}
	return s.literals
}

// IsEmpty reports whether s has no literals.
func (s *Seq) IsEmpty() bool {
	return s.Len() == 0
}

// MinLen returns the length of the shortest literal, or 0.
func (s *Seq) MinLen() int {
	if s.IsEmpty() {
		return 0
	}
	n := len(s.literals[0].Bytes)
	for _, lit := range s.literals[1:] {
		n = min(n, len(lit.Bytes))
	}
	return n
}

// Minimize drops every literal that has another literal as a prefix, since
// the shorter one already finds all of its occurrences. A literal that
// absorbed a longer or incomplete one becomes incomplete. Literals of equal
// length keep their relative order.
func (s *Seq) Minimize() {
	if s.IsEmpty() {
		return
	}
	slices.SortStableFunc(s.literals, func(a, b Literal) int {
		return len(a.Bytes) - len(b.Bytes)
	})

	kept := s.literals[:0:0]
outer:
	for _, lit := range s.literals {
		for j := range kept {
			if bytes.HasPrefix(lit.Bytes, kept[j].Bytes) {
				if len(lit.Bytes) > len(kept[j].Bytes) || !lit.Complete {
					kept[j].Complete = false
				}
				continue outer
			}
		}
		kept = append(kept, lit)
	}
	s.literals = kept
}
