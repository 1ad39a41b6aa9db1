package charset

import (
	"fmt"
	"slices"
	"strings"
)

// Range is an inclusive interval of units.
type Range struct {
	Lo, Hi rune
}

// Set is a compiled character class: sorted disjoint ranges, a list of
// categories and a negation bit. Case folding has already been applied to
// the ranges, so membership is a plain lookup.
//
// Set is immutable after Build and safe for concurrent use.
type Set struct {
	ranges []Range
	cats   []Category
	mode   Mode
	negate bool

	// ascii caches membership of the units 0-127, negation included
	ascii [2]uint64
}

// Contains reports whether r is a member of the set.
func (s *Set) Contains(r rune) bool {
	if uint32(r) < 128 {
		return s.ascii[r>>6]&(1<<(uint(r)&63)) != 0
	}
	return s.contains(r)
}

func (s *Set) contains(r rune) bool {
	in := inRanges(s.ranges, r)
	if !in {
		for _, c := range s.cats {
			if c.Contains(r, s.mode) {
				in = true
				break
			}
		}
	}
	return in != s.negate
}

func inRanges(ranges []Range, r rune) bool {
	i, j := 0, len(ranges)
	for i < j {
		h := int(uint(i+j) >> 1)
		switch {
		case ranges[h].Hi < r:
			i = h + 1
		case ranges[h].Lo > r:
			j = h
		default:
			return true
		}
	}
	return false
}

// Ranges returns the folded ranges of the set, excluding categories.
func (s *Set) Ranges() []Range { return s.ranges }

// Categories returns the categories of the set.
func (s *Set) Categories() []Category { return s.cats }

// Negated reports whether the set is a complement.
func (s *Set) Negated() bool { return s.negate }

// Single returns the only member of a set holding exactly one unit.
func (s *Set) Single() (rune, bool) {
	if s.negate || len(s.cats) > 0 || len(s.ranges) != 1 || s.ranges[0].Lo != s.ranges[0].Hi {
		return 0, false
	}
	return s.ranges[0].Lo, true
}

// Literals returns the members of a small positive set without categories.
// It returns false when the set has more than limit members.
func (s *Set) Literals(limit int) ([]rune, bool) {
	if s.negate || len(s.cats) > 0 {
		return nil, false
	}
	var out []rune
	for _, r := range s.ranges {
		if int(r.Hi-r.Lo)+len(out) >= limit {
			return nil, false
		}
		for c := r.Lo; c <= r.Hi; c++ {
			out = append(out, c)
		}
	}
	return out, true
}

// String renders the set in class syntax for program listings.
func (s *Set) String() string {
	var b strings.Builder
	b.WriteByte('[')
	if s.negate {
		b.WriteByte('^')
	}
	for _, r := range s.ranges {
		if r.Lo == r.Hi {
			fmt.Fprintf(&b, "%#x ", r.Lo)
		} else {
			fmt.Fprintf(&b, "%#x-%#x ", r.Lo, r.Hi)
		}
	}
	for _, c := range s.cats {
		b.WriteString(c.String())
		b.WriteByte(' ')
	}
	out := strings.TrimRight(b.String(), " ")
	return out + "]"
}

// Builder accumulates class items and produces a Set.
type Builder struct {
	mode   Mode
	fold   FoldMode
	ranges []Range
	cats   []Category
	negate bool
}

// NewBuilder returns a builder for classes evaluated under mode m with
// case folding fm.
func NewBuilder(m Mode, fm FoldMode) *Builder {
	return &Builder{mode: m, fold: fm}
}

// AddRune adds r and its fold closure.
func (b *Builder) AddRune(r rune) *Builder {
	return b.AddRange(r, r)
}

// AddRange adds [lo, hi] and the fold closure of each member.
func (b *Builder) AddRange(lo, hi rune) *Builder {
	b.ranges = append(b.ranges, Range{lo, hi})
	b.ranges = foldRange(b.ranges, lo, hi, b.fold)
	return b
}

// AddCategory adds a \d \w \s style category.
func (b *Builder) AddCategory(c Category) *Builder {
	if !slices.Contains(b.cats, c) {
		b.cats = append(b.cats, c)
	}
	return b
}

// Negate turns the class into its complement.
func (b *Builder) Negate() *Builder {
	b.negate = !b.negate
	return b
}

// Build sorts and merges the ranges and returns the finished Set.
func (b *Builder) Build() *Set {
	s := &Set{
		ranges: mergeRanges(b.ranges),
		cats:   slices.Clone(b.cats),
		mode:   b.mode,
		negate: b.negate,
	}
	for r := rune(0); r < 128; r++ {
		if s.contains(r) {
			s.ascii[r>>6] |= 1 << (uint(r) & 63)
		}
	}
	return s
}

func mergeRanges(in []Range) []Range {
	if len(in) == 0 {
		return nil
	}
	rs := slices.Clone(in)
	slices.SortFunc(rs, func(a, b Range) int {
		if a.Lo != b.Lo {
			return int(a.Lo - b.Lo)
		}
		return int(a.Hi - b.Hi)
	})
	out := rs[:1]
	for _, r := range rs[1:] {
		last := &out[len(out)-1]
		if r.Lo <= last.Hi+1 {
			last.Hi = max(last.Hi, r.Hi)
			continue
		}
		out = append(out, r)
	}
	return out
}
