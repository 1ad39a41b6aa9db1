package literal

import (
	"unicode/utf8"

	"github.com/coregx/sre/syntax"
)

// ExtractorConfig configures literal extraction limits.
//
// These limits prevent excessive extraction from complex patterns:
//   - MaxLiterals: prevents memory bloat from alternations like (a|b|c|d|...)
//   - MaxLiteralLen: prevents extracting very long literals that hurt cache locality
//   - MaxClassSize: prevents expanding large character classes like [a-z]
type ExtractorConfig struct {
	// MaxLiterals limits the number of literals in a sequence. Case-insensitive
	// literals expand into every spelling, so "(?i)abc" alone needs 8.
	// Default: 64.
	MaxLiterals int

	// MaxLiteralLen limits the length of each extracted literal in bytes.
	// Default: 64.
	MaxLiteralLen int

	// MaxClassSize limits the size of character classes to expand.
	// Character classes like [abc] are expanded to ["a", "b", "c"].
	// Default: 10.
	MaxClassSize int
}

// DefaultConfig returns the default extractor configuration.
func DefaultConfig() ExtractorConfig {
	return ExtractorConfig{
		MaxLiterals:   64,
		MaxLiteralLen: 64,
		MaxClassSize:  10,
	}
}

// Extractor extracts literal sequences from parsed patterns.
//
// It walks the pattern tree and computes the set of literals every match
// must begin with. Case folding and the alphabet (text or bytes) are read
// from each node, so "(?i)ab" yields ["AB", "Ab", "aB", "ab"].
//
// Example:
//
//	re, _ := syntax.Parse("(hello|world)", 0, false)
//	extractor := literal.New(literal.DefaultConfig())
//	prefixes := extractor.ExtractPrefixes(re)
//	// prefixes = ["hello", "world"]
type Extractor struct {
	config ExtractorConfig
	binary bool
}

// New creates a new Extractor with the given configuration.
func New(config ExtractorConfig) *Extractor {
	def := DefaultConfig()
	if config.MaxLiterals <= 0 {
		config.MaxLiterals = def.MaxLiterals
	}
	if config.MaxLiteralLen <= 0 {
		config.MaxLiteralLen = def.MaxLiteralLen
	}
	if config.MaxClassSize <= 0 {
		config.MaxClassSize = def.MaxClassSize
	}
	return &Extractor{config: config}
}

// ExtractPrefixes extracts the literals one of which starts every match.
//
// Examples:
//
//	"hello"         → ["hello"]
//	"(foo|bar)"     → ["foo", "bar"]
//	"[ab]test"      → ["atest", "btest"]
//	"a?bc"          → ["a", "bc"]
//	"hello.*world"  → ["hello"]
//	".*foo"         → [] (no prefix requirement)
//
// Literals are complete only when the pattern is a plain string: any
// anchor or lookaround leaves them incomplete.
//
// Returns an empty Seq if some match can start with anything.
func (e *Extractor) ExtractPrefixes(re *syntax.Regexp) *Seq {
	e.binary = re.Binary
	lits, ok := e.prefixes(re.Root, 0)
	if !ok {
		return NewSeq()
	}
	for _, lit := range lits {
		if len(lit.Bytes) == 0 {
			// some match can be empty or start with anything
			return NewSeq()
		}
	}
	if hasAssertions(re.Root) {
		for i := range lits {
			lits[i].Complete = false
		}
	}
	seq := NewSeq(lits...)
	seq.Minimize()
	return seq
}

// hasAssertions reports whether n contains zero-width constraints.
func hasAssertions(n *syntax.Node) bool {
	found := false
	syntax.Walk(n, func(n *syntax.Node) bool {
		switch n.Op {
		case syntax.OpAnchor, syntax.OpLookaround, syntax.OpBackref, syntax.OpConditional:
			found = true
		}
		return !found
	})
	return found
}

// prefixes returns the literals that start every match of n. A complete
// literal covers the whole of n, so what follows n can be appended to it.
// It returns false when n can start with an unbounded set of units.
func (e *Extractor) prefixes(n *syntax.Node, depth int) ([]Literal, bool) {
	// Guard against excessive recursion on deeply nested patterns
	if depth > 100 {
		return nil, false
	}

	switch n.Op {
	case syntax.OpEmpty, syntax.OpAnchor, syntax.OpLookaround:
		// zero-width nodes do not change what the match starts with
		return []Literal{{Complete: true}}, true

	case syntax.OpLiteral, syntax.OpNotLiteral, syntax.OpClass:
		return e.unit(n)

	case syntax.OpConcat:
		return e.concat(n.Subs, depth)

	case syntax.OpAlternate:
		var all []Literal
		for _, sub := range n.Subs {
			lits, ok := e.prefixes(sub, depth+1)
			if !ok {
				return nil, false
			}
			all = append(all, lits...)
			if len(all) > e.config.MaxLiterals {
				return nil, false
			}
		}
		return all, true

	case syntax.OpGroup, syntax.OpAtomic:
		return e.prefixes(n.Subs[0], depth+1)

	case syntax.OpRepeat:
		return e.repeat(n, depth)
	}

	// OpAny, OpBackref, OpConditional, OpFailure
	return nil, false
}

// unit expands a single-unit node into its members.
func (e *Extractor) unit(n *syntax.Node) ([]Literal, bool) {
	runes, ok := n.Set(e.binary).Literals(e.config.MaxClassSize)
	if !ok || len(runes) == 0 {
		return nil, false
	}
	lits := make([]Literal, 0, len(runes))
	for _, r := range runes {
		var b []byte
		switch {
		case e.binary:
			b = []byte{byte(r)}
		case r >= utf8.RuneSelf && r <= 0xFF:
			// also matches the invalid byte of the same value in text
			return nil, false
		default:
			b = utf8.AppendRune(nil, r)
		}
		lits = append(lits, Literal{Bytes: b, Complete: true})
	}
	return lits, true
}

// concat extends the complete literals of the running product with the
// prefixes of each following node.
func (e *Extractor) concat(subs []*syntax.Node, depth int) ([]Literal, bool) {
	out := []Literal{{Complete: true}}
	for _, sub := range subs {
		if !anyComplete(out) {
			break
		}
		lits, ok := e.prefixes(sub, depth+1)
		if !ok {
			markIncomplete(out)
			break
		}
		next, ok := e.cross(out, lits)
		if !ok {
			markIncomplete(out)
			break
		}
		out = next
	}
	return out, true
}

// cross appends every literal of suffixes to every complete literal of
// prefixes. It returns false when the product grows past MaxLiterals.
func (e *Extractor) cross(prefixes, suffixes []Literal) ([]Literal, bool) {
	var out []Literal
	for _, p := range prefixes {
		if !p.Complete {
			out = append(out, p)
			continue
		}
		for _, s := range suffixes {
			b := make([]byte, 0, len(p.Bytes)+len(s.Bytes))
			b = append(append(b, p.Bytes...), s.Bytes...)
			lit := Literal{Bytes: b, Complete: s.Complete}
			if len(b) > e.config.MaxLiteralLen {
				lit = Literal{Bytes: b[:e.config.MaxLiteralLen], Complete: false}
			}
			out = append(out, lit)
		}
		if len(out) > e.config.MaxLiterals {
			return nil, false
		}
	}
	return out, true
}

// repeat handles {min,max}. Only a single mandatory copy stays complete;
// an optional repeat also contributes the empty literal for the skip.
func (e *Extractor) repeat(n *syntax.Node, depth int) ([]Literal, bool) {
	if n.Max == 0 {
		return []Literal{{Complete: true}}, true
	}
	lits, ok := e.prefixes(n.Subs[0], depth+1)
	if !ok {
		return nil, false
	}
	if n.Min != 1 || n.Max != 1 {
		markIncomplete(lits)
	}
	if n.Min == 0 {
		skip := Literal{Complete: true}
		if n.Greed == syntax.Lazy {
			return append([]Literal{skip}, lits...), true
		}
		lits = append(lits, skip)
	}
	return lits, true
}

func anyComplete(lits []Literal) bool {
	for _, lit := range lits {
		if lit.Complete {
			return true
		}
	}
	return false
}

func markIncomplete(lits []Literal) {
	for i := range lits {
		lits[i].Complete = false
	}
}
