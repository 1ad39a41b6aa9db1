package nfa

import (
	"github.com/coregx/sre/internal/conv"
	"github.com/coregx/sre/syntax"
)

// CompilerConfig configures NFA compilation behavior
type CompilerConfig struct {
	// MaxStates bounds the size of the automaton. Counted repeats are
	// expanded by copying their body, so {m,n} with large bounds can exceed
	// it, in which case compilation fails with ErrTooComplex.
	// Default: 10000
	MaxStates int
}

// DefaultCompilerConfig returns a compiler configuration with sensible defaults
func DefaultCompilerConfig() CompilerConfig {
	return CompilerConfig{MaxStates: 10000}
}

// Compiler compiles parsed patterns into Thompson NFAs
type Compiler struct {
	config    CompilerConfig
	builder   *Builder
	binary    bool
	loopSlots int
	slotBase  int // first loop slot
}

// NewCompiler creates a new NFA compiler with the given configuration
func NewCompiler(config CompilerConfig) *Compiler {
	if config.MaxStates <= 0 {
		config.MaxStates = DefaultCompilerConfig().MaxStates
	}
	return &Compiler{config: config}
}

// Compile compiles a parsed pattern with the default configuration.
func Compile(re *syntax.Regexp) (*NFA, error) {
	return NewCompiler(DefaultCompilerConfig()).Compile(re)
}

// Compile compiles a parsed pattern into an NFA. It returns an
// *UnsupportedError when the pattern needs the backtracking engine.
func (c *Compiler) Compile(re *syntax.Regexp) (*NFA, error) {
	if err := checkSupported(re.Root); err != nil {
		return nil, err
	}

	c.builder = NewBuilder()
	c.binary = re.Binary
	c.loopSlots = 0
	// slots: 2 per group, lastindex, then loop slots
	c.slotBase = 2*(re.Groups+1) + 1

	start, end, err := c.compile(re.Root)
	if err != nil {
		return nil, err
	}
	match := c.builder.AddMatch()
	if err := c.builder.Patch(end, match); err != nil {
		return nil, err
	}
	c.builder.SetStart(start)

	return c.builder.Build(
		WithBinary(re.Binary),
		WithCaptureCount(re.Groups+1),
		WithCaptureNames(re.GroupNames),
		WithLoopSlots(c.loopSlots),
	)
}

// checkSupported walks the tree before anything is built so the reported
// construct is the leftmost one.
func checkSupported(root *syntax.Node) error {
	var err error
	syntax.Walk(root, func(n *syntax.Node) bool {
		if err != nil {
			return false
		}
		var construct string
		switch n.Op {
		case syntax.OpBackref:
			construct = "backreference"
		case syntax.OpConditional:
			construct = "conditional group"
		case syntax.OpAtomic:
			construct = "atomic group"
		case syntax.OpLookaround:
			switch {
			case n.Behind && n.Negate:
				construct = "negative lookbehind"
			case n.Behind:
				construct = "lookbehind"
			case n.Negate:
				construct = "negative lookahead"
			default:
				construct = "lookahead"
			}
		case syntax.OpRepeat:
			switch {
			case n.Greed == syntax.Possessive:
				construct = "possessive repeat"
			case n.Max > n.Min && n.Subs[0].MinWidth() == 0 && hasCapture(n.Subs[0]):
				// a final empty iteration must keep its captures, which
				// the per-position state set cannot represent
				construct = "empty-matching repeat with groups"
			}
		}
		if construct != "" {
			err = &UnsupportedError{Construct: construct, Pos: n.Pos, Err: ErrUnsupported}
			return false
		}
		return true
	})
	return err
}

func hasCapture(n *syntax.Node) bool {
	found := false
	syntax.Walk(n, func(n *syntax.Node) bool {
		if n.Op == syntax.OpGroup && n.Index > 0 {
			found = true
		}
		return !found
	})
	return found
}

// compile compiles a node into a fragment. end is a single-successor state
// still to be patched.
func (c *Compiler) compile(n *syntax.Node) (start, end StateID, err error) {
	if c.builder.States() > c.config.MaxStates {
		return InvalidState, InvalidState, &UnsupportedError{
			Construct: "repetition too large",
			Pos:       n.Pos,
			Err:       ErrTooComplex,
		}
	}

	switch n.Op {
	case syntax.OpEmpty:
		return c.compileEmpty()
	case syntax.OpLiteral, syntax.OpNotLiteral, syntax.OpClass, syntax.OpAny:
		id := c.compileUnit(n)
		return id, id, nil
	case syntax.OpAnchor:
		id := c.builder.AddLook(n.At, syntax.Mode(n.Flags, c.binary), InvalidState)
		return id, id, nil
	case syntax.OpFailure:
		fail := c.builder.AddFail()
		// the fragment needs a patchable end that nothing reaches
		end := c.builder.AddEpsilon(InvalidState)
		return fail, end, nil
	case syntax.OpConcat:
		return c.compileConcat(n.Subs)
	case syntax.OpAlternate:
		return c.compileAlternate(n.Subs)
	case syntax.OpGroup:
		return c.compileGroup(n)
	case syntax.OpRepeat:
		return c.compileRepeat(n)
	}
	// checkSupported rejected everything else
	return InvalidState, InvalidState, &UnsupportedError{Construct: n.Op.String(), Pos: n.Pos, Err: ErrUnsupported}
}

func (c *Compiler) compileEmpty() (start, end StateID, err error) {
	id := c.builder.AddEpsilon(InvalidState)
	return id, id, nil
}

// compileUnit compiles a node consuming exactly one unit. Case folding is
// resolved into the set, so the VM compares units exactly.
func (c *Compiler) compileUnit(n *syntax.Node) StateID {
	if n.Op == syntax.OpAny {
		return c.builder.AddAny(n.Flags&syntax.FlagDotAll == 0, InvalidState)
	}
	set := n.Set(c.binary)
	if r, ok := set.Single(); ok {
		return c.builder.AddRune(r, InvalidState)
	}
	return c.builder.AddSet(set, InvalidState)
}

func (c *Compiler) compileConcat(subs []*syntax.Node) (start, end StateID, err error) {
	if len(subs) == 0 {
		return c.compileEmpty()
	}
	start, end, err = c.compile(subs[0])
	if err != nil {
		return InvalidState, InvalidState, err
	}
	for _, sub := range subs[1:] {
		nextStart, nextEnd, err := c.compile(sub)
		if err != nil {
			return InvalidState, InvalidState, err
		}
		if err := c.builder.Patch(end, nextStart); err != nil {
			return InvalidState, InvalidState, err
		}
		end = nextEnd
	}
	return start, end, nil
}

// compileAlternate compiles ordered branches. Earlier branches have
// priority.
func (c *Compiler) compileAlternate(subs []*syntax.Node) (start, end StateID, err error) {
	if len(subs) == 1 {
		return c.compile(subs[0])
	}
	starts := make([]StateID, 0, len(subs))
	ends := make([]StateID, 0, len(subs))
	for _, sub := range subs {
		s, e, err := c.compile(sub)
		if err != nil {
			return InvalidState, InvalidState, err
		}
		starts = append(starts, s)
		ends = append(ends, e)
	}

	join := c.builder.AddEpsilon(InvalidState)
	for _, e := range ends {
		if err := c.builder.Patch(e, join); err != nil {
			return InvalidState, InvalidState, err
		}
	}
	return c.buildSplitChain(starts), join, nil
}

// buildSplitChain builds Split(alt1, Split(alt2, Split(alt3, ...)))
func (c *Compiler) buildSplitChain(targets []StateID) StateID {
	if len(targets) == 1 {
		return targets[0]
	}
	right := c.buildSplitChain(targets[1:])
	return c.builder.AddSplit(targets[0], right)
}

func (c *Compiler) compileGroup(n *syntax.Node) (start, end StateID, err error) {
	if n.Index == 0 {
		return c.compile(n.Subs[0])
	}
	slot := conv.IntToUint32(2 * n.Index)
	bodyStart, bodyEnd, err := c.compile(n.Subs[0])
	if err != nil {
		return InvalidState, InvalidState, err
	}
	open := c.builder.AddCapture(slot, bodyStart)
	closing := c.builder.AddCapture(slot+1, InvalidState)
	if err := c.builder.Patch(bodyEnd, closing); err != nil {
		return InvalidState, InvalidState, err
	}
	return open, closing, nil
}

// compileRepeat expands {m,n} into m mandatory copies of the body followed
// by either a loop or n-m nested optional copies.
func (c *Compiler) compileRepeat(n *syntax.Node) (start, end StateID, err error) {
	sub := n.Subs[0]
	if n.Max == 0 {
		return c.compileEmpty()
	}

	start, end, err = c.compileEmpty()
	if err != nil {
		return InvalidState, InvalidState, err
	}
	for range n.Min {
		s, e, err := c.compile(sub)
		if err != nil {
			return InvalidState, InvalidState, err
		}
		if err := c.builder.Patch(end, s); err != nil {
			return InvalidState, InvalidState, err
		}
		end = e
	}
	if n.Max == n.Min {
		return start, end, nil
	}

	var s, e StateID
	if n.Max == syntax.MaxRepeat {
		s, e, err = c.compileLoop(sub, n.Greed == syntax.Lazy)
	} else {
		s, e, err = c.compileOptional(sub, n.Max-n.Min, n.Greed == syntax.Lazy)
	}
	if err != nil {
		return InvalidState, InvalidState, err
	}
	if err := c.builder.Patch(end, s); err != nil {
		return InvalidState, InvalidState, err
	}
	return start, e, nil
}

// newLoopSlot returns a slot recording where the current iteration of a
// possibly-empty loop body started, or false when the body always consumes.
func (c *Compiler) newLoopSlot(sub *syntax.Node) (uint32, bool) {
	if sub.MinWidth() > 0 {
		return 0, false
	}
	slot := conv.IntToUint32(c.slotBase + c.loopSlots)
	c.loopSlots++
	return slot, true
}

// split orders the iterate and exit targets by greed.
func (c *Compiler) split(body, exit StateID, lazy bool) StateID {
	if lazy {
		return c.builder.AddSplit(exit, body)
	}
	return c.builder.AddSplit(body, exit)
}

// compileLoop compiles an unbounded repeat. An iteration that consumes
// nothing leaves the loop with its captures kept.
func (c *Compiler) compileLoop(sub *syntax.Node, lazy bool) (start, end StateID, err error) {
	bodyStart, bodyEnd, err := c.compile(sub)
	if err != nil {
		return InvalidState, InvalidState, err
	}
	exit := c.builder.AddEpsilon(InvalidState)

	slot, guarded := c.newLoopSlot(sub)
	if !guarded {
		loop := c.split(bodyStart, exit, lazy)
		if err := c.builder.Patch(bodyEnd, loop); err != nil {
			return InvalidState, InvalidState, err
		}
		return loop, exit, nil
	}

	check := c.builder.AddCheck(slot, InvalidState, exit)
	if err := c.builder.Patch(bodyEnd, check); err != nil {
		return InvalidState, InvalidState, err
	}
	mark := c.builder.AddMark(slot, bodyStart)
	loop := c.split(mark, exit, lazy)
	if err := c.builder.PatchCheck(check, loop); err != nil {
		return InvalidState, InvalidState, err
	}
	return loop, exit, nil
}

// compileOptional compiles count nested optional copies of sub: once an
// iteration is skipped or matches empty, no further iteration is tried.
func (c *Compiler) compileOptional(sub *syntax.Node, count int, lazy bool) (start, end StateID, err error) {
	exit := c.builder.AddEpsilon(InvalidState)
	slot, guarded := c.newLoopSlot(sub)

	// built innermost first so each copy can continue into the next
	next := exit
	for range count {
		bodyStart, bodyEnd, err := c.compile(sub)
		if err != nil {
			return InvalidState, InvalidState, err
		}
		entry := bodyStart
		if guarded {
			check := c.builder.AddCheck(slot, next, exit)
			if err := c.builder.Patch(bodyEnd, check); err != nil {
				return InvalidState, InvalidState, err
			}
			entry = c.builder.AddMark(slot, bodyStart)
		} else if err := c.builder.Patch(bodyEnd, next); err != nil {
			return InvalidState, InvalidState, err
		}
		next = c.split(entry, exit, lazy)
	}
	return next, exit, nil
}
