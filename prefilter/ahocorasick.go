package prefilter

import (
	"unsafe"

	"github.com/coregx/ahocorasick"

	"github.com/coregx/sre/literal"
)

// ahoCorasickPrefilter finds the leftmost occurrence of any of several
// literals with a single automaton pass. Case-insensitive words and literal
// alternations like /error|warning|fatal/ end up here.
type ahoCorasickPrefilter struct {
	auto  *ahocorasick.Automaton
	bytes int
}

func newAhoCorasickPrefilter(seq *literal.Seq) (Prefilter, error) {
	builder := ahocorasick.NewBuilder()
	total := 0
	for _, lit := range seq.Literals() {
		builder.AddPattern(lit.Bytes)
		total += len(lit.Bytes)
	}
	auto, err := builder.Build()
	if err != nil {
		return nil, err
	}
	return &ahoCorasickPrefilter{auto: auto, bytes: total}, nil
}

// Find implements Prefilter.Find. The automaton only reads the haystack, so
// it is viewed as bytes without a copy.
func (p *ahoCorasickPrefilter) Find(haystack string, start int) int {
	if start < 0 || start >= len(haystack) {
		return -1
	}
	h := unsafe.Slice(unsafe.StringData(haystack), len(haystack))
	m := p.auto.Find(h, start)
	if m == nil {
		return -1
	}
	return m.Start
}

// IsComplete implements Prefilter.IsComplete. Candidates are always
// verified, since the engine decides which alternative wins.
func (p *ahoCorasickPrefilter) IsComplete() bool {
	return false
}

// LiteralLen implements Prefilter.LiteralLen.
func (p *ahoCorasickPrefilter) LiteralLen() int {
	return 0
}

// HeapBytes implements Prefilter.HeapBytes. The automaton does not report
// its size, so this counts the pattern bytes it was built from.
func (p *ahoCorasickPrefilter) HeapBytes() int {
	return p.bytes
}
