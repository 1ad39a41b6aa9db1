package syntax

import (
	"slices"

	"github.com/coregx/sre/internal/charset"
)

const (
	// MaxRepeat bounds repetition counts and lookbehind widths. A count of
	// MaxRepeat or more is rejected; as an upper bound it means unlimited.
	MaxRepeat = 1<<32 - 1

	// MaxGroups bounds the number of capturing groups.
	MaxGroups = 1 << 30
)

// Op is the kind of an AST node.
type Op uint8

const (
	OpEmpty       Op = iota // matches the empty string
	OpLiteral               // Rune
	OpNotLiteral            // any unit except Rune
	OpClass                 // Class
	OpAny                   // any unit, newline only under DOTALL
	OpAnchor                // At
	OpConcat                // Subs in sequence
	OpAlternate             // Subs as ordered branches
	OpRepeat                // Subs[0] repeated Min..Max times, Greed
	OpGroup                 // Subs[0]; capturing when Index > 0; flag scope AddFlags/DelFlags
	OpBackref               // text of group Index
	OpConditional           // Subs[0] if group Index matched, else Subs[1] (may be nil)
	OpLookaround            // Subs[0]; Behind, Negate
	OpAtomic                // Subs[0] without backtracking into it
	OpFailure               // never matches
)

var opNames = [...]string{
	OpEmpty:       "EMPTY",
	OpLiteral:     "LITERAL",
	OpNotLiteral:  "NOT_LITERAL",
	OpClass:       "IN",
	OpAny:         "ANY",
	OpAnchor:      "AT",
	OpConcat:      "CONCAT",
	OpAlternate:   "BRANCH",
	OpRepeat:      "REPEAT",
	OpGroup:       "SUBPATTERN",
	OpBackref:     "GROUPREF",
	OpConditional: "GROUPREF_EXISTS",
	OpLookaround:  "ASSERT",
	OpAtomic:      "ATOMIC_GROUP",
	OpFailure:     "FAILURE",
}

// String returns the dump name of the op.
func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "UNKNOWN"
}

// Greed is the quantifier flavour of a repeat.
type Greed uint8

const (
	Greedy     Greed = iota // MAX_REPEAT
	Lazy                    // MIN_REPEAT
	Possessive              // POSSESSIVE_REPEAT
)

// String returns the dump name of the repeat flavour.
func (g Greed) String() string {
	switch g {
	case Lazy:
		return "MIN_REPEAT"
	case Possessive:
		return "POSSESSIVE_REPEAT"
	default:
		return "MAX_REPEAT"
	}
}

// AtCode identifies a zero-width anchor. Multiline forms are chosen by the
// parser from the flags in force.
type AtCode uint8

const (
	AtBeginning       AtCode = iota // ^
	AtBeginningLine                 // ^ under MULTILINE
	AtBeginningString               // \A
	AtBoundary                      // \b
	AtNonBoundary                   // \B
	AtEnd                           // $
	AtEndLine                       // $ under MULTILINE
	AtEndString                     // \Z
)

var atNames = [...]string{
	AtBeginning:       "AT_BEGINNING",
	AtBeginningLine:   "AT_BEGINNING_LINE",
	AtBeginningString: "AT_BEGINNING_STRING",
	AtBoundary:        "AT_BOUNDARY",
	AtNonBoundary:     "AT_NON_BOUNDARY",
	AtEnd:             "AT_END",
	AtEndLine:         "AT_END_LINE",
	AtEndString:       "AT_END_STRING",
}

func (a AtCode) String() string {
	if int(a) < len(atNames) {
		return atNames[a]
	}
	return "AT_UNKNOWN"
}

// ClassItemKind is the kind of a character class member.
type ClassItemKind uint8

const (
	ItemLiteral ClassItemKind = iota
	ItemRange
	ItemCategory
)

// ClassItem is one member of a character class.
type ClassItem struct {
	Kind     ClassItemKind
	Lo, Hi   rune
	Category charset.Category
}

// Class is a parsed character class.
type Class struct {
	Items  []ClassItem
	Negate bool
}

// Node is an AST node. Which fields are meaningful depends on Op.
//
// Flags holds the flags in force where the node appeared, after inline and
// scoped flags were applied. Compilers read case folding, DOTALL and the
// alphabet mode from it rather than tracking scopes themselves.
type Node struct {
	Op    Op
	Flags Flag
	Pos   int // byte offset of the construct in the pattern

	Rune  rune
	Class *Class
	At    AtCode

	Min, Max int
	Greed    Greed

	Index    int
	Name     string
	AddFlags Flag
	DelFlags Flag

	Behind bool
	Negate bool
	Width  int // lookbehind width in units

	Subs []*Node

	width    width
	measured bool
}

// Regexp is a parsed pattern.
type Regexp struct {
	Pattern    string
	Binary     bool
	Flags      Flag           // resolved pattern flags
	Groups     int            // number of capturing groups
	GroupIndex map[string]int // name -> group index
	GroupNames []string       // index -> name ("" when unnamed), len Groups+1
	Root       *Node
}

// Mode returns the category flavour selected by flags for a pattern of the
// given alphabet.
func Mode(flags Flag, binary bool) charset.Mode {
	switch {
	case flags&FlagASCII != 0:
		return charset.ModeASCII
	case flags&FlagLocale != 0:
		return charset.ModeLocale
	case binary || flags&FlagUnicode == 0:
		return charset.ModeASCII
	default:
		return charset.ModeUnicode
	}
}

// Fold returns the case folding selected by flags.
func Fold(flags Flag, binary bool) charset.FoldMode {
	if flags&FlagIgnoreCase == 0 {
		return charset.FoldNone
	}
	if Mode(flags, binary) == charset.ModeUnicode {
		return charset.FoldUnicode
	}
	return charset.FoldASCII
}

// Set compiles a LITERAL, NOT_LITERAL, IN or ANY node into a character set
// with case folding applied.
func (n *Node) Set(binary bool) *charset.Set {
	b := charset.NewBuilder(Mode(n.Flags, binary), Fold(n.Flags, binary))
	switch n.Op {
	case OpLiteral:
		b.AddRune(n.Rune)
	case OpNotLiteral:
		b.AddRune(n.Rune).Negate()
	case OpAny:
		b = charset.NewBuilder(Mode(n.Flags, binary), charset.FoldNone)
		if n.Flags&FlagDotAll == 0 {
			b.AddRune('\n')
		}
		b.Negate()
	case OpClass:
		for _, it := range n.Class.Items {
			switch it.Kind {
			case ItemLiteral:
				b.AddRune(it.Lo)
			case ItemRange:
				b.AddRange(it.Lo, it.Hi)
			case ItemCategory:
				b.AddCategory(it.Category)
			}
		}
		if n.Class.Negate {
			b.Negate()
		}
	}
	return b.Build()
}

// Walk calls fn for n and every descendant in pre-order. Returning false
// from fn skips the node's children.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, sub := range n.Subs {
		Walk(sub, fn)
	}
}

// equal reports structural equality, used to factor common prefixes out of
// alternations.
func (n *Node) equal(m *Node) bool {
	if n.Op != m.Op || n.Flags != m.Flags || n.Rune != m.Rune || n.At != m.At ||
		n.Min != m.Min || n.Max != m.Max || n.Greed != m.Greed || n.Index != m.Index ||
		n.AddFlags != m.AddFlags || n.DelFlags != m.DelFlags ||
		n.Behind != m.Behind || n.Negate != m.Negate || len(n.Subs) != len(m.Subs) {
		return false
	}
	if (n.Class == nil) != (m.Class == nil) {
		return false
	}
	if n.Class != nil && (n.Class.Negate != m.Class.Negate || !slices.Equal(n.Class.Items, m.Class.Items)) {
		return false
	}
	for i := range n.Subs {
		if (n.Subs[i] == nil) != (m.Subs[i] == nil) {
			return false
		}
		if n.Subs[i] != nil && !n.Subs[i].equal(m.Subs[i]) {
			return false
		}
	}
	return true
}
