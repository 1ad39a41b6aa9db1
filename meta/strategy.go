package meta

import (
	"errors"

	"github.com/coregx/sre/literal"
	"github.com/coregx/sre/nfa"
	"github.com/coregx/sre/syntax"
)

// Strategy represents the execution strategy for a pattern.
//
// The orchestrator chooses between:
//   - UseNFA: Pike VM, linear in the subject length
//   - UseBacktrack: backtracking VM, required by some constructs
//   - UseLiteral: substring search, for patterns that are a plain literal
//
// Strategy selection is automatic based on pattern analysis.
type Strategy int

const (
	// UseNFA uses the Pike VM.
	// Selected for patterns without backreferences, lookaround, conditional
	// or atomic groups and possessive repeats.
	UseNFA Strategy = iota

	// UseBacktrack uses the backtracking VM.
	// Selected for:
	//   - Patterns compiled with the FALLBACK flag
	//   - Patterns the linear compiler rejects (see StrategyReason)
	UseBacktrack

	// UseLiteral answers searches with the prefilter alone.
	// Selected for patterns that are a single case-sensitive literal without
	// groups or anchors, where a substring search is the whole match.
	UseLiteral
)

// String returns a human-readable representation of the Strategy.
func (s Strategy) String() string {
	switch s {
	case UseNFA:
		return "UseNFA"
	case UseBacktrack:
		return "UseBacktrack"
	case UseLiteral:
		return "UseLiteral"
	default:
		return "Unknown"
	}
}

// StrategyReason explains why a strategy was chosen. Construct and Pos are
// set when the linear compiler rejected the pattern.
type StrategyReason struct {
	Strategy  Strategy
	Construct string
	Pos       int
	Message   string
}

// String returns the reason as a single line.
func (r StrategyReason) String() string {
	return r.Strategy.String() + ": " + r.Message
}

// selectStrategy picks the engine for re. nfaErr is the error returned by
// the linear compiler (nil when it succeeded); literals are the extracted
// prefixes.
func selectStrategy(re *syntax.Regexp, nfaErr error, literals *literal.Seq) StrategyReason {
	if re.Flags&syntax.FlagFallback != 0 {
		return StrategyReason{Strategy: UseBacktrack, Pos: -1, Message: "FALLBACK flag"}
	}

	var unsupported *nfa.UnsupportedError
	if errors.As(nfaErr, &unsupported) {
		return StrategyReason{
			Strategy:  UseBacktrack,
			Construct: unsupported.Construct,
			Pos:       unsupported.Pos,
			Message:   unsupported.Error(),
		}
	}

	if isPlainLiteral(re, literals) {
		return StrategyReason{Strategy: UseLiteral, Pos: -1, Message: "plain literal"}
	}
	return StrategyReason{Strategy: UseNFA, Pos: -1, Message: "linear engine"}
}

// isPlainLiteral reports whether every match of re is exactly the single
// extracted literal, so no engine has to run and no group has to be filled.
func isPlainLiteral(re *syntax.Regexp, literals *literal.Seq) bool {
	if re.Groups > 0 || literals.Len() != 1 {
		return false
	}
	lit := literals.Get(0)
	return lit.Complete && lit.Len() > 0
}
