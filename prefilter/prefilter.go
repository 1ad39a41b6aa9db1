// Package prefilter provides fast candidate filtering for pattern search using
// extracted literal sequences.
//
// A prefilter is used to quickly skip positions in the subject that cannot
// start a match. The matcher then runs its engine only at candidate
// positions, so patterns with a required literal prefix cost roughly one
// substring search over text that does not match.
//
// The package selects a prefilter from the extracted prefixes:
//   - Single byte → memchr (strings.IndexByte)
//   - Single substring → memmem (strings.Index)
//   - Several single bytes → byte set scan
//   - Several literals → Aho-Corasick automaton
//
// Example usage:
//
//	re, _ := syntax.Parse("hello|world", 0, false)
//	prefixes := literal.New(literal.DefaultConfig()).ExtractPrefixes(re)
//	pf := prefilter.NewBuilder(prefixes).Build()
//	pos := pf.Find("foo hello bar world baz", 0)
//	// pos == 4 (position of "hello")
package prefilter

import (
	"strings"

	"github.com/coregx/sre/literal"
)

// Prefilter is used to quickly find candidate match positions before running
// the full engine.
//
// Key methods:
//   - Find: returns the next candidate position
//   - IsComplete: indicates if prefilter match is sufficient (no verification needed)
//   - HeapBytes: returns memory usage for profiling
type Prefilter interface {
	// Find returns the index of the first candidate match starting at or after
	// start, or -1 if no candidate is found.
	//
	// A candidate is a position where one of the prefilter literals begins.
	// It does not guarantee a match; the caller must verify it with the
	// engine unless IsComplete() is true.
	Find(haystack string, start int) int

	// IsComplete returns true if a prefilter match guarantees a full match
	// of LiteralLen() bytes at the candidate.
	IsComplete() bool

	// LiteralLen returns the length of the matched literal when IsComplete()
	// is true, and 0 otherwise.
	LiteralLen() int

	// HeapBytes returns the number of bytes of heap memory used by this prefilter.
	HeapBytes() int
}

// Config bounds prefilter selection.
type Config struct {
	// MinLiteralLen is the shortest literal worth running a multi-literal
	// automaton for. Single literals are always used.
	// Default: 1
	MinLiteralLen int
}

// Builder constructs the best prefilter from extracted prefix literals.
//
// Selection strategy (in order of preference):
//  1. Single byte literal → memchr (fastest)
//  2. Single substring literal → memmem
//  3. Several one-byte literals → byte set
//  4. Several literals, none shorter than MinLiteralLen → Aho-Corasick
//  5. No suitable literals → nil (no prefilter)
//
// Example:
//
//	pf := prefilter.NewBuilder(prefixes).Build()
//	if pf != nil {
//	    pos := pf.Find(haystack, 0)
//	}
type Builder struct {
	prefixes *literal.Seq
	config   Config
}

// NewBuilder creates a new prefilter builder from extracted prefixes.
func NewBuilder(prefixes *literal.Seq) *Builder {
	return &Builder{
		prefixes: prefixes,
		config:   Config{MinLiteralLen: 1},
	}
}

// WithConfig sets the selection limits.
func (b *Builder) WithConfig(config Config) *Builder {
	if config.MinLiteralLen < 1 {
		config.MinLiteralLen = 1
	}
	b.config = config
	return b
}

// Build constructs the best prefilter for the given literals.
//
// Returns nil if no effective prefilter can be built (e.g., no literals,
// or an automaton could not be constructed).
func (b *Builder) Build() Prefilter {
	seq := b.prefixes
	if seq.IsEmpty() || seq.MinLen() == 0 {
		return nil
	}

	if seq.Len() == 1 {
		lit := seq.Get(0)
		if len(lit.Bytes) == 1 {
			return newMemchrPrefilter(lit.Bytes[0], lit.Complete)
		}
		return newMemmemPrefilter(lit.Bytes, lit.Complete)
	}

	if seq.MinLen() == 1 {
		// nil unless every literal is a single byte
		if pf := newByteSetPrefilter(seq); pf != nil {
			return pf
		}
	}

	if seq.MinLen() < b.config.MinLiteralLen {
		return nil
	}
	pf, err := newAhoCorasickPrefilter(seq)
	if err != nil {
		return nil
	}
	return pf
}

// memchrPrefilter searches for a single byte.
//
// Example patterns:
//
//	/a.*/         → search for 'a'
//	/x\d+/        → search for 'x'
type memchrPrefilter struct {
	needle   byte
	complete bool
}

func newMemchrPrefilter(needle byte, complete bool) Prefilter {
	return &memchrPrefilter{
		needle:   needle,
		complete: complete,
	}
}

// Find implements Prefilter.Find using strings.IndexByte.
func (p *memchrPrefilter) Find(haystack string, start int) int {
	if start < 0 || start >= len(haystack) {
		return -1
	}
	idx := strings.IndexByte(haystack[start:], p.needle)
	if idx == -1 {
		return -1
	}
	return start + idx
}

// IsComplete implements Prefilter.IsComplete.
func (p *memchrPrefilter) IsComplete() bool {
	return p.complete
}

// LiteralLen implements Prefilter.LiteralLen.
func (p *memchrPrefilter) LiteralLen() int {
	if p.complete {
		return 1
	}
	return 0
}

// HeapBytes implements Prefilter.HeapBytes.
func (p *memchrPrefilter) HeapBytes() int {
	return 0
}

// memmemPrefilter searches for a single substring.
//
// Example patterns:
//
//	/hello/       → search for "hello"
//	/foo|foobar/  → after minimization → search for "foo"
//	/prefix.*/    → search for "prefix"
type memmemPrefilter struct {
	needle   string
	complete bool
}

func newMemmemPrefilter(needle []byte, complete bool) Prefilter {
	return &memmemPrefilter{
		needle:   string(needle),
		complete: complete,
	}
}

// Find implements Prefilter.Find using strings.Index.
func (p *memmemPrefilter) Find(haystack string, start int) int {
	if start < 0 || start >= len(haystack) {
		return -1
	}
	idx := strings.Index(haystack[start:], p.needle)
	if idx == -1 {
		return -1
	}
	return start + idx
}

// IsComplete implements Prefilter.IsComplete.
func (p *memmemPrefilter) IsComplete() bool {
	return p.complete
}

// LiteralLen implements Prefilter.LiteralLen.
func (p *memmemPrefilter) LiteralLen() int {
	if p.complete {
		return len(p.needle)
	}
	return 0
}

// HeapBytes implements Prefilter.HeapBytes.
func (p *memmemPrefilter) HeapBytes() int {
	return len(p.needle)
}

// byteSetPrefilter searches for any byte of a small set. Case-insensitive
// single letters and short classes like [xyz] end up here.
type byteSetPrefilter struct {
	set   [256]bool
	bytes string // members in order of appearance
}

// newByteSetPrefilter returns nil unless every literal is one byte.
func newByteSetPrefilter(seq *literal.Seq) Prefilter {
	p := &byteSetPrefilter{}
	var members []byte
	for _, lit := range seq.Literals() {
		if len(lit.Bytes) != 1 {
			return nil
		}
		if !p.set[lit.Bytes[0]] {
			p.set[lit.Bytes[0]] = true
			members = append(members, lit.Bytes[0])
		}
	}
	p.bytes = string(members)
	return p
}

// Find implements Prefilter.Find.
func (p *byteSetPrefilter) Find(haystack string, start int) int {
	if start < 0 || start >= len(haystack) {
		return -1
	}
	if len(p.bytes) == 2 {
		// two-byte sets (case pairs) are common: search for the earlier of both
		a := strings.IndexByte(haystack[start:], p.bytes[0])
		limit := len(haystack)
		if a >= 0 {
			limit = start + a
		}
		b := strings.IndexByte(haystack[start:limit], p.bytes[1])
		switch {
		case b >= 0:
			return start + b
		case a >= 0:
			return start + a
		}
		return -1
	}
	for i := start; i < len(haystack); i++ {
		if p.set[haystack[i]] {
			return i
		}
	}
	return -1
}

// IsComplete implements Prefilter.IsComplete.
func (p *byteSetPrefilter) IsComplete() bool {
	return false
}

// LiteralLen implements Prefilter.LiteralLen.
func (p *byteSetPrefilter) LiteralLen() int {
	return 0
}

// HeapBytes implements Prefilter.HeapBytes.
func (p *byteSetPrefilter) HeapBytes() int {
	return len(p.set) + len(p.bytes)
}
