package sre

import (
	"iter"
	"maps"
	"strings"

	"github.com/coregx/sre/cache"
	"github.com/coregx/sre/internal/input"
	"github.com/coregx/sre/meta"
	"github.com/coregx/sre/syntax"
)

// templateCacheSize bounds the parsed replacement templates kept per
// pattern.
const templateCacheSize = 16

// Pattern is a compiled regular expression.
//
// A Pattern is immutable and safe to use concurrently from multiple
// goroutines.
//
// Example:
//
//	p := sre.MustCompile(`(\w+) (\w+)`, 0)
//	s, _ := p.Sub(`\2 \1`, "hello world", 0)
//	fmt.Println(s) // world hello
type Pattern struct {
	re        *syntax.Regexp
	engine    *meta.Engine
	templates *cache.Cache[string, *syntax.Template]
}

func newPattern(re *syntax.Regexp, engine *meta.Engine) *Pattern {
	return &Pattern{
		re:        re,
		engine:    engine,
		templates: cache.New[string, *syntax.Template](templateCacheSize),
	}
}

// Pattern returns the source text of the pattern.
func (p *Pattern) Pattern() string {
	return p.re.Pattern
}

// IsBinary reports whether p was compiled from a bytes pattern.
func (p *Pattern) IsBinary() bool {
	return p.re.Binary
}

// Flags returns the effective flags: the ones given to Compile, the global
// inline flags and the implicit Unicode flag of text patterns.
func (p *Pattern) Flags() Flag {
	return p.re.Flags
}

// Groups returns the number of capturing groups.
func (p *Pattern) Groups() int {
	return p.re.Groups
}

// GroupIndex returns a copy of the mapping from group names to indices.
func (p *Pattern) GroupIndex() map[string]int {
	return maps.Clone(p.re.GroupIndex)
}

// GroupNames returns the name of every group by index, "" for unnamed
// groups and for group 0.
func (p *Pattern) GroupNames() []string {
	return append([]string(nil), p.re.GroupNames...)
}

// Stats returns the execution statistics of the underlying engine.
func (p *Pattern) Stats() meta.Stats {
	return p.engine.Stats()
}

// String returns the Python repr of the pattern, for example
// re.compile('a+', re.IGNORECASE).
func (p *Pattern) String() string {
	r := syntax.Quote(p.re.Pattern, p.re.Binary)
	if p.re.Binary {
		r = "b" + r
	}
	if len(r) > 200 {
		r = r[:200]
	}

	var b strings.Builder
	b.WriteString("re.compile(")
	b.WriteString(r)
	flags := p.re.Flags
	if !p.re.Binary && flags&syntax.TypeFlags == Unicode {
		flags &^= Unicode
	}
	if flags != 0 {
		b.WriteString(", ")
		b.WriteString(flags.String())
	}
	b.WriteByte(')')
	return b.String()
}

// Match matches p at the start of s.
func (p *Pattern) Match(s string) *Match {
	return p.MatchRange(s, 0, len(s))
}

// MatchRange matches p at pos, treating endpos as the end of s. Both are
// clamped to [0, len(s)].
func (p *Pattern) MatchRange(s string, pos, endpos int) *Match {
	return p.matchAt(s, pos, endpos, meta.Options{})
}

// FullMatch matches p against the whole of s.
func (p *Pattern) FullMatch(s string) *Match {
	return p.FullMatchRange(s, 0, len(s))
}

// FullMatchRange matches p against s[pos:endpos]. Anchors still see pos as
// a position inside s.
func (p *Pattern) FullMatchRange(s string, pos, endpos int) *Match {
	return p.matchAt(s, pos, endpos, meta.Options{Full: true})
}

// Search returns the first match of p in s, or nil.
func (p *Pattern) Search(s string) *Match {
	return p.SearchRange(s, 0, len(s))
}

// SearchRange returns the first match of p starting at or after pos and
// ending at or before endpos.
func (p *Pattern) SearchRange(s string, pos, endpos int) *Match {
	pos, endpos, ok := clamp(s, pos, endpos)
	if !ok {
		return nil
	}
	r := p.engine.Search(p.input(s, endpos), pos, meta.Options{})
	if r == nil {
		return nil
	}
	return p.newMatch(s, pos, endpos, r)
}

func (p *Pattern) matchAt(s string, pos, endpos int, opts meta.Options) *Match {
	pos, endpos, ok := clamp(s, pos, endpos)
	if !ok {
		return nil
	}
	r := p.engine.MatchAt(p.input(s, endpos), pos, opts)
	if r == nil {
		return nil
	}
	return p.newMatch(s, pos, endpos, r)
}

func (p *Pattern) input(s string, endpos int) input.Input {
	return input.New(s[:endpos], p.re.Binary)
}

// clamp limits pos and endpos to the subject and reports whether the range
// is non-inverted.
func clamp(s string, pos, endpos int) (int, int, bool) {
	pos = min(max(pos, 0), len(s))
	endpos = min(max(endpos, 0), len(s))
	return pos, endpos, pos <= endpos
}

// results yields successive non-overlapping matches of p in s[:endpos]
// starting at pos. A limit of zero means no limit; a negative limit yields
// nothing. After an empty match the next match may start at the same
// position but must not be empty there.
func (p *Pattern) results(s string, pos, endpos, limit int) iter.Seq[*meta.Result] {
	return func(yield func(*meta.Result) bool) {
		pos, endpos, ok := clamp(s, pos, endpos)
		if !ok {
			return
		}
		in := p.input(s, endpos)
		mustAdvance := false
		for n := 0; (limit == 0 || n < limit) && pos <= endpos; n++ {
			r := p.engine.Search(in, pos, meta.Options{MustAdvance: mustAdvance})
			if r == nil || !yield(r) {
				return
			}
			mustAdvance = r.Caps[0] == r.Caps[1]
			pos = r.Caps[1]
		}
	}
}

// FindIter returns an iterator over all non-overlapping matches of p in s,
// including empty ones.
//
// Example:
//
//	for m := range sre.MustCompile(`\d+`, 0).FindIter("a1b22c333") {
//	    fmt.Println(m.Span(0))
//	}
func (p *Pattern) FindIter(s string) iter.Seq[*Match] {
	return p.FindIterRange(s, 0, len(s))
}

// FindIterRange is like FindIter restricted to s[pos:endpos].
func (p *Pattern) FindIterRange(s string, pos, endpos int) iter.Seq[*Match] {
	return func(yield func(*Match) bool) {
		cpos, cend, _ := clamp(s, pos, endpos)
		for r := range p.results(s, pos, endpos, 0) {
			if !yield(p.newMatch(s, cpos, cend, r)) {
				return
			}
		}
	}
}

// FindAll returns all non-overlapping matches of p in s. Each element holds
// the whole match when p has no groups, otherwise the text of every group,
// "" for groups that did not participate.
func (p *Pattern) FindAll(s string) [][]string {
	return p.FindAllRange(s, 0, len(s))
}

// FindAllRange is like FindAll restricted to s[pos:endpos].
func (p *Pattern) FindAllRange(s string, pos, endpos int) [][]string {
	var out [][]string
	for r := range p.results(s, pos, endpos, 0) {
		if p.re.Groups == 0 {
			out = append(out, []string{s[r.Caps[0]:r.Caps[1]]})
			continue
		}
		item := make([]string, p.re.Groups)
		for g := range item {
			item[g] = capText(s, r.Caps, g+1)
		}
		out = append(out, item)
	}
	return out
}

// Split splits s by the matches of p and returns the pieces between them.
// When p has groups, the text of every group is inserted after each piece,
// "" for groups that did not participate. At most maxsplit splits are made
// when maxsplit is positive; a negative maxsplit makes none.
//
// Example:
//
//	sre.MustCompile(`(:+)`, 0).Split(":a:b::c", 0)
//	// ["", ":", "a", ":", "b", "::", "c"]
func (p *Pattern) Split(s string, maxsplit int) []string {
	spans := p.SplitSpans(s, maxsplit)
	out := make([]string, len(spans))
	for i, sp := range spans {
		if sp[0] >= 0 {
			out[i] = s[sp[0]:sp[1]]
		}
	}
	return out
}

// SplitSpans is like Split but returns the span of every piece. Groups that
// did not participate are reported as [-1, -1].
func (p *Pattern) SplitSpans(s string, maxsplit int) [][2]int {
	var out [][2]int
	last := 0
	for r := range p.results(s, 0, len(s), maxsplit) {
		out = append(out, [2]int{last, r.Caps[0]})
		for g := 1; g <= p.re.Groups; g++ {
			out = append(out, [2]int{r.Caps[2*g], r.Caps[2*g+1]})
		}
		last = r.Caps[1]
	}
	return append(out, [2]int{last, len(s)})
}

func capText(s string, caps []int, g int) string {
	if caps[2*g] < 0 {
		return ""
	}
	return s[caps[2*g]:caps[2*g+1]]
}
