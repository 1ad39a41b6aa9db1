package charset

import (
	"slices"
	"unicode"
)

// FoldMode selects the case-insensitive comparison in effect.
type FoldMode uint8

const (
	// FoldNone compares units exactly.
	FoldNone FoldMode = iota

	// FoldASCII folds only the letters A-Z and a-z.
	FoldASCII

	// FoldUnicode folds using the Unicode case-folding orbits plus the
	// extra equivalences in foldExtras.
	FoldUnicode
)

// foldExtras lists characters that compare equal under IGNORECASE but that
// the simple case-folding orbits keep apart. Each row is one equivalence.
var foldExtras = [][]rune{
	{'I', 'i', 0x130, 0x131}, // dotted and dotless i
	{0x390, 0x1fd3},          // iota with dialytika and tonos/oxia
	{0x3b0, 0x1fe3},          // upsilon with dialytika and tonos/oxia
	{0xfb05, 0xfb06},         // long s t and s t ligatures
}

// foldExtraIndex maps a rune to its row in foldExtras.
var foldExtraIndex = func() map[rune]int {
	m := make(map[rune]int)
	for i, row := range foldExtras {
		for _, r := range row {
			m[r] = i
		}
	}
	return m
}()

const (
	// minFold and maxFold bound every rune that has a non-trivial closure.
	minFold = 'A'
	maxFold = 0x1e943
)

// Closure returns the set of runes equal to r under fm, sorted and
// including r itself. The relation is symmetric: s is in Closure(r) iff r
// is in Closure(s).
func Closure(r rune, fm FoldMode) []rune {
	switch fm {
	case FoldASCII:
		switch {
		case 'a' <= r && r <= 'z':
			return []rune{r - 0x20, r}
		case 'A' <= r && r <= 'Z':
			return []rune{r, r + 0x20}
		}
		return []rune{r}
	case FoldUnicode:
		if r < minFold || r > maxFold {
			return []rune{r}
		}
		return unicodeClosure(r)
	default:
		return []rune{r}
	}
}

// unicodeClosure walks the SimpleFold orbit of r and merges any extra
// equivalence rows reachable from it.
func unicodeClosure(r rune) []rune {
	out := []rune{r}
	for i := 0; i < len(out); i++ {
		c := out[i]
		for f := unicode.SimpleFold(c); f != c; f = unicode.SimpleFold(f) {
			if !slices.Contains(out, f) {
				out = append(out, f)
			}
		}
		if row, ok := foldExtraIndex[c]; ok {
			for _, f := range foldExtras[row] {
				if !slices.Contains(out, f) {
					out = append(out, f)
				}
			}
		}
	}
	slices.Sort(out)
	return out
}

// HasFold reports whether r has any case variant under fm.
func HasFold(r rune, fm FoldMode) bool {
	return len(Closure(r, fm)) > 1
}

// Equal reports whether a and b compare equal under fm.
func Equal(a, b rune, fm FoldMode) bool {
	if a == b {
		return true
	}
	if fm == FoldNone {
		return false
	}
	return slices.Contains(Closure(a, fm), b)
}

// foldRange appends the closure of every rune in [lo, hi] to dst as ranges.
// The input range itself is not appended.
func foldRange(dst []Range, lo, hi rune, fm FoldMode) []Range {
	switch fm {
	case FoldASCII:
		if l, h := max(lo, 'a'), min(hi, 'z'); l <= h {
			dst = append(dst, Range{l - 0x20, h - 0x20})
		}
		if l, h := max(lo, 'A'), min(hi, 'Z'); l <= h {
			dst = append(dst, Range{l + 0x20, h + 0x20})
		}
		return dst
	case FoldUnicode:
		// every closure of a rune inside [minFold, maxFold] stays inside it
		if lo <= minFold && hi >= maxFold {
			return dst
		}
		for r := max(lo, minFold); r <= min(hi, maxFold); r++ {
			if unicode.SimpleFold(r) == r {
				if _, ok := foldExtraIndex[r]; !ok {
					continue
				}
			}
			for _, f := range unicodeClosure(r) {
				if f < lo || f > hi {
					dst = append(dst, Range{f, f})
				}
			}
		}
		return dst
	default:
		return dst
	}
}
