package meta

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/coregx/sre/backtrack"
	"github.com/coregx/sre/internal/input"
	"github.com/coregx/sre/literal"
	"github.com/coregx/sre/nfa"
	"github.com/coregx/sre/prefilter"
	"github.com/coregx/sre/syntax"
)

// Engine is a compiled pattern ready for matching.
//
// Engine is immutable after Compile and safe for concurrent use; per-search
// state comes from an internal sync.Pool.
//
// Example:
//
//	re, _ := syntax.Parse(`(\w+)@example\.com`, 0, false)
//	engine, err := meta.Compile(re, meta.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	if m := engine.Search(input.New("mail bob@example.com", false), 0, meta.Options{}); m != nil {
//	    fmt.Println(m.Caps[2], m.Caps[3]) // 5 8
//	}
type Engine struct {
	re     *syntax.Regexp
	config Config
	reason StrategyReason

	nfa  *nfa.NFA
	vm   *nfa.PikeVM
	prog *backtrack.Program

	prefilter prefilter.Prefilter
	literal   string // UseLiteral only
	anchored  bool
	numCaps   int

	pool  *searchStatePool
	stats Stats
}

// Stats tracks execution statistics for performance analysis.
type Stats struct {
	// NFASearches counts Pike VM match attempts
	NFASearches uint64

	// BacktrackSearches counts backtracking VM match attempts
	BacktrackSearches uint64

	// LiteralSearches counts searches answered by substring search alone
	LiteralSearches uint64

	// PrefilterHits counts prefilter candidates that matched
	PrefilterHits uint64

	// PrefilterMisses counts prefilter candidates that didn't match
	PrefilterMisses uint64

	// PrefilterAbandoned counts times prefilter was abandoned due to high FP rate
	PrefilterAbandoned uint64
}

// Options controls a single search or match.
type Options struct {
	// Full requires the match to end at the end of the input.
	Full bool

	// MustAdvance rejects an empty match at the starting position. Iteration
	// sets it after an empty match so the next match makes progress.
	MustAdvance bool
}

// Result is a successful match.
type Result struct {
	// Caps holds start and end for group 0 and every capturing group,
	// -1 when the group did not participate.
	Caps []int

	// LastIndex is the group that closed last, or -1.
	LastIndex int
}

// Compile selects a strategy for re and compiles the engines it needs.
//
// The linear compiler runs first unless the FALLBACK flag is set. When it
// rejects the pattern, the backtracking VM is used, or compilation fails
// with an unsupported-syntax error if config.DisableFallback is set.
func Compile(re *syntax.Regexp, config Config) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		re:      re,
		config:  config,
		numCaps: 2 * (re.Groups + 1),
	}

	var nfaErr error
	if re.Flags&syntax.FlagFallback == 0 {
		compiler := nfa.NewCompiler(nfa.CompilerConfig{MaxStates: config.MaxLinearStates})
		e.nfa, nfaErr = compiler.Compile(re)
		if nfaErr != nil {
			var unsupported *nfa.UnsupportedError
			if !errors.As(nfaErr, &unsupported) {
				return nil, nfaErr
			}
			if config.DisableFallback {
				return nil, syntax.UnsupportedErrorf(re.Pattern, unsupported.Pos,
					"unsupported syntax: %s", unsupported.Construct)
			}
		}
	}

	extractor := literal.New(literal.ExtractorConfig{MaxLiterals: config.MaxLiterals})
	literals := extractor.ExtractPrefixes(re)
	e.reason = selectStrategy(re, nfaErr, literals)

	switch e.reason.Strategy {
	case UseBacktrack:
		prog, err := backtrack.Compile(re)
		if err != nil {
			return nil, err
		}
		e.prog = prog
		e.anchored = prog.Anchored
	default:
		e.vm = nfa.NewPikeVM(e.nfa)
		e.anchored = e.nfa.IsAnchored()
	}

	if config.EnablePrefilter && !e.anchored {
		e.prefilter = prefilter.NewBuilder(literals).
			WithConfig(prefilter.Config{MinLiteralLen: config.MinLiteralLen}).
			Build()
	}
	if e.reason.Strategy == UseLiteral {
		if e.prefilter == nil || !e.prefilter.IsComplete() {
			e.reason = StrategyReason{Strategy: UseNFA, Pos: -1, Message: "linear engine"}
		} else {
			e.literal = string(literals.Get(0).Bytes)
		}
	}

	e.pool = newSearchStatePool(e.vm, e.prog, e.prefilter)
	return e, nil
}

// Regexp returns the parsed pattern.
func (e *Engine) Regexp() *syntax.Regexp {
	return e.re
}

// Strategy returns the execution strategy selected for this engine.
func (e *Engine) Strategy() Strategy {
	return e.reason.Strategy
}

// Reason returns why the strategy was selected.
func (e *Engine) Reason() StrategyReason {
	return e.reason
}

// IsStartAnchored returns true if every match must start at position 0.
func (e *Engine) IsStartAnchored() bool {
	return e.anchored
}

// NumCaptures returns the number of groups including group 0.
func (e *Engine) NumCaptures() int {
	return e.numCaps / 2
}

// Prefilter returns the prefilter used by searches, or nil.
func (e *Engine) Prefilter() prefilter.Prefilter {
	return e.prefilter
}

// Stats returns a snapshot of the execution statistics.
func (e *Engine) Stats() Stats {
	return Stats{
		NFASearches:        atomic.LoadUint64(&e.stats.NFASearches),
		BacktrackSearches:  atomic.LoadUint64(&e.stats.BacktrackSearches),
		LiteralSearches:    atomic.LoadUint64(&e.stats.LiteralSearches),
		PrefilterHits:      atomic.LoadUint64(&e.stats.PrefilterHits),
		PrefilterMisses:    atomic.LoadUint64(&e.stats.PrefilterMisses),
		PrefilterAbandoned: atomic.LoadUint64(&e.stats.PrefilterAbandoned),
	}
}

// ResetStats resets execution statistics to zero.
func (e *Engine) ResetStats() {
	atomic.StoreUint64(&e.stats.NFASearches, 0)
	atomic.StoreUint64(&e.stats.BacktrackSearches, 0)
	atomic.StoreUint64(&e.stats.LiteralSearches, 0)
	atomic.StoreUint64(&e.stats.PrefilterHits, 0)
	atomic.StoreUint64(&e.stats.PrefilterMisses, 0)
	atomic.StoreUint64(&e.stats.PrefilterAbandoned, 0)
}

// String returns the program listing of the engine that runs the pattern.
func (e *Engine) String() string {
	if e.prog != nil {
		return e.prog.String()
	}
	return e.nfa.String()
}

// MatchAt attempts a match starting exactly at pos.
func (e *Engine) MatchAt(in input.Input, pos int, opts Options) *Result {
	if e.reason.Strategy == UseLiteral {
		atomic.AddUint64(&e.stats.LiteralSearches, 1)
		return e.literalAt(in, pos, opts)
	}

	state := e.pool.get()
	defer e.pool.put(state)
	if !e.matchAt(state, in, pos, opts) {
		return nil
	}
	return e.result(state)
}

// Search finds the match with the leftmost start at or after pos.
func (e *Engine) Search(in input.Input, pos int, opts Options) *Result {
	if e.anchored && pos > 0 {
		return nil
	}
	if e.reason.Strategy == UseLiteral {
		atomic.AddUint64(&e.stats.LiteralSearches, 1)
		return e.searchLiteral(in, pos, opts)
	}

	state := e.pool.get()
	defer e.pool.put(state)
	if e.prefilter != nil {
		return e.searchPrefilter(state, in, pos, opts)
	}
	if !e.search(state, in, pos, opts) {
		return nil
	}
	return e.result(state)
}

// searchPrefilter skips to the first prefilter candidate. The Pike VM then
// searches the rest of the subject in one pass; the backtracking VM
// verifies candidates one by one until the tracker retires the prefilter,
// and then searches the rest of the subject directly.
func (e *Engine) searchPrefilter(state *SearchState, in input.Input, pos int, opts Options) *Result {
	tracker := state.tracker
	start := pos
	for {
		cand, ok := tracker.Next(in.S, start)
		if ok && cand >= 0 && state.machine == nil {
			o := opts
			o.MustAdvance = opts.MustAdvance && cand == pos
			if !e.search(state, in, cand, o) {
				atomic.AddUint64(&e.stats.PrefilterMisses, 1)
				return nil
			}
			tracker.Hit()
			atomic.AddUint64(&e.stats.PrefilterHits, 1)
			return e.result(state)
		}
		if !ok {
			atomic.AddUint64(&e.stats.PrefilterAbandoned, 1)
			o := opts
			o.MustAdvance = opts.MustAdvance && start == pos
			if !e.search(state, in, start, o) {
				return nil
			}
			return e.result(state)
		}
		if cand < 0 {
			return nil
		}

		o := opts
		o.MustAdvance = opts.MustAdvance && cand == pos
		if e.matchAt(state, in, cand, o) {
			tracker.Hit()
			atomic.AddUint64(&e.stats.PrefilterHits, 1)
			return e.result(state)
		}
		atomic.AddUint64(&e.stats.PrefilterMisses, 1)
		start = in.NextPos(cand)
	}
}

func (e *Engine) matchAt(state *SearchState, in input.Input, pos int, opts Options) bool {
	if state.machine != nil {
		atomic.AddUint64(&e.stats.BacktrackSearches, 1)
		return state.machine.MatchAt(in, pos, backtrack.Options(opts))
	}
	atomic.AddUint64(&e.stats.NFASearches, 1)
	return e.vm.MatchAt(state.vm, in, pos, nfa.Options(opts))
}

func (e *Engine) search(state *SearchState, in input.Input, pos int, opts Options) bool {
	if state.machine != nil {
		atomic.AddUint64(&e.stats.BacktrackSearches, 1)
		return state.machine.Search(in, pos, backtrack.Options(opts))
	}
	atomic.AddUint64(&e.stats.NFASearches, 1)
	return e.vm.Search(state.vm, in, pos, nfa.Options(opts))
}

// result copies the winning slots out of the pooled state.
func (e *Engine) result(state *SearchState) *Result {
	var caps []int
	lastIndex := -1
	if state.machine != nil {
		caps, lastIndex = state.machine.Caps(), state.machine.LastIndex()
	} else {
		caps, lastIndex = state.vm.Caps(), state.vm.LastIndex()
	}
	out := make([]int, e.numCaps)
	copy(out, caps)
	return &Result{Caps: out, LastIndex: lastIndex}
}

func (e *Engine) literalResult(start int) *Result {
	caps := make([]int, e.numCaps)
	caps[0], caps[1] = start, start+len(e.literal)
	return &Result{Caps: caps, LastIndex: -1}
}

func (e *Engine) literalAt(in input.Input, pos int, opts Options) *Result {
	if pos < 0 || pos > in.Len() || !strings.HasPrefix(in.S[pos:], e.literal) {
		return nil
	}
	if opts.Full && pos+len(e.literal) != in.Len() {
		return nil
	}
	return e.literalResult(pos)
}

func (e *Engine) searchLiteral(in input.Input, pos int, opts Options) *Result {
	if opts.Full {
		start := in.Len() - len(e.literal)
		if start < pos {
			return nil
		}
		return e.literalAt(in, start, opts)
	}
	start := e.prefilter.Find(in.S, pos)
	if start < 0 {
		return nil
	}
	return e.literalResult(start)
}
