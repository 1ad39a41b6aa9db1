// Package backtrack implements the full-featured matching engine: a
// backtracking virtual machine with an explicit stack.
//
// It supports every construct the parser accepts, including back
// references, lookaround, conditionals, atomic groups and possessive
// repeats. Matching follows Python's leftmost-first semantics exactly,
// including capture and lastindex behaviour on backtracking and the
// zero-width iteration rule for repeats.
package backtrack

import (
	"fmt"
	"strings"

	"github.com/coregx/sre/internal/charset"
	"github.com/coregx/sre/syntax"
)

// InstOp is an instruction opcode.
type InstOp uint8

const (
	InstFail      InstOp = iota // never matches
	InstMatch                   // top-level success
	InstSucceed                 // end of a lookaround or atomic body
	InstChar                    // unit equal to Rune
	InstSet                     // unit in Set
	InstAnyNotNL                // any unit except '\n'
	InstAny                     // any unit
	InstAssert                  // zero-width anchor At
	InstSave                    // record position in capture slot Arg
	InstBranch                  // ordered alternatives Alts
	InstJump                    // continue at Next
	InstRepeatOne               // single-unit body Arg repeated Min..Max times
	InstRepeat                  // general body at Arg repeated Min..Max times, Until at Alt
	InstUntil                   // end of a general repeat body; Arg is the InstRepeat
	InstBackref                 // text of group Arg
	InstCond                    // Next if group Arg matched, else Alt
	InstLook                    // lookaround with body at Arg
	InstAtomic                  // atomic group with body at Arg
)

var instNames = [...]string{
	InstFail:      "FAILURE",
	InstMatch:     "SUCCESS",
	InstSucceed:   "SUCCEED",
	InstChar:      "LITERAL",
	InstSet:       "IN",
	InstAnyNotNL:  "ANY",
	InstAny:       "ANY_ALL",
	InstAssert:    "AT",
	InstSave:      "MARK",
	InstBranch:    "BRANCH",
	InstJump:      "JUMP",
	InstRepeatOne: "REPEAT_ONE",
	InstRepeat:    "REPEAT",
	InstUntil:     "UNTIL",
	InstBackref:   "GROUPREF",
	InstCond:      "GROUPREF_EXISTS",
	InstLook:      "ASSERT",
	InstAtomic:    "ATOMIC_GROUP",
}

func (op InstOp) String() string {
	if int(op) < len(instNames) {
		return instNames[op]
	}
	return fmt.Sprintf("InstOp(%d)", op)
}

// Inst is one instruction. Which fields are meaningful depends on Op.
type Inst struct {
	Op   InstOp
	Next int // continuation
	Alt  int // second continuation
	Arg  int // slot, group, body or repeat instruction

	Rune rune
	Set  *charset.Set

	At   syntax.AtCode
	Mode charset.Mode
	Fold charset.FoldMode

	Min, Max int
	Greed    syntax.Greed

	Alts []int
	// Firsts holds, per alternative, the unit matchers one of which must
	// accept the first unit; nil entries accept anything.
	Firsts [][]int

	Behind bool
	Negate bool
	Width  int
}

// Program is a compiled pattern.
type Program struct {
	Inst    []Inst
	Start   int
	NumCaps int // 2 * (groups + 1)
	Binary  bool

	// First lists the unit matchers one of which must accept the first
	// unit of any match, or nil when unknown.
	First []int
	// Anchored is set when every match must start at the beginning of
	// the subject.
	Anchored bool
}

// Compile compiles a parsed pattern into a program.
func Compile(re *syntax.Regexp) (*Program, error) {
	c := &compiler{
		prog: &Program{
			NumCaps: 2 * (re.Groups + 1),
			Binary:  re.Binary,
		},
		binary: re.Binary,
	}
	match := c.emit(Inst{Op: InstMatch})
	c.prog.Start = c.compile(re.Root, match)
	c.prog.First = c.firsts(c.prog.Start)
	for i := range c.prog.Inst {
		inst := &c.prog.Inst[i]
		if inst.Op == InstBranch {
			inst.Firsts = make([][]int, len(inst.Alts))
			for j, alt := range inst.Alts {
				inst.Firsts[j] = c.firsts(alt)
			}
		}
	}
	c.prog.Anchored = c.anchored(c.prog.Start)
	return c.prog, nil
}

type compiler struct {
	prog   *Program
	binary bool
}

func (c *compiler) emit(inst Inst) int {
	c.prog.Inst = append(c.prog.Inst, inst)
	return len(c.prog.Inst) - 1
}

// compile emits code for n continuing at next and returns its entry.
func (c *compiler) compile(n *syntax.Node, next int) int {
	if n == nil {
		return next
	}
	switch n.Op {
	case syntax.OpEmpty:
		return next

	case syntax.OpFailure:
		return c.emit(Inst{Op: InstFail})

	case syntax.OpLiteral, syntax.OpNotLiteral, syntax.OpClass, syntax.OpAny:
		return c.unit(n, next)

	case syntax.OpAnchor:
		return c.emit(Inst{Op: InstAssert, At: n.At, Mode: syntax.Mode(n.Flags, c.binary), Next: next})

	case syntax.OpConcat:
		for i := len(n.Subs) - 1; i >= 0; i-- {
			next = c.compile(n.Subs[i], next)
		}
		return next

	case syntax.OpAlternate:
		alts := make([]int, len(n.Subs))
		for i, sub := range n.Subs {
			alts[i] = c.compile(sub, next)
		}
		return c.emit(Inst{Op: InstBranch, Alts: alts})

	case syntax.OpGroup:
		if n.Index == 0 {
			return c.compile(n.Subs[0], next)
		}
		end := c.emit(Inst{Op: InstSave, Arg: 2*n.Index + 1, Next: next})
		body := c.compile(n.Subs[0], end)
		return c.emit(Inst{Op: InstSave, Arg: 2 * n.Index, Next: body})

	case syntax.OpBackref:
		return c.emit(Inst{Op: InstBackref, Arg: n.Index, Fold: syntax.Fold(n.Flags, c.binary), Next: next})

	case syntax.OpConditional:
		no := next
		if n.Subs[1] != nil {
			no = c.compile(n.Subs[1], next)
		}
		yes := c.compile(n.Subs[0], next)
		return c.emit(Inst{Op: InstCond, Arg: n.Index, Next: yes, Alt: no})

	case syntax.OpLookaround:
		succeed := c.emit(Inst{Op: InstSucceed})
		body := c.compile(n.Subs[0], succeed)
		return c.emit(Inst{Op: InstLook, Arg: body, Behind: n.Behind, Negate: n.Negate, Width: n.Width, Next: next})

	case syntax.OpAtomic:
		succeed := c.emit(Inst{Op: InstSucceed})
		body := c.compile(n.Subs[0], succeed)
		return c.emit(Inst{Op: InstAtomic, Arg: body, Next: next})

	case syntax.OpRepeat:
		return c.repeat(n, next)
	}
	panic(fmt.Sprintf("backtrack: unexpected op %v", n.Op))
}

// unit emits a single-unit matcher.
func (c *compiler) unit(n *syntax.Node, next int) int {
	if n.Op == syntax.OpAny {
		op := InstAnyNotNL
		if n.Flags&syntax.FlagDotAll != 0 {
			op = InstAny
		}
		return c.emit(Inst{Op: op, Next: next})
	}
	set := n.Set(c.binary)
	if r, ok := set.Single(); ok {
		return c.emit(Inst{Op: InstChar, Rune: r, Next: next})
	}
	return c.emit(Inst{Op: InstSet, Set: set, Next: next})
}

func isUnit(n *syntax.Node) bool {
	switch n.Op {
	case syntax.OpLiteral, syntax.OpNotLiteral, syntax.OpClass, syntax.OpAny:
		return true
	}
	return false
}

func (c *compiler) repeat(n *syntax.Node, next int) int {
	sub := n.Subs[0]
	if n.Max == 0 {
		return next
	}
	if isUnit(sub) {
		body := c.unit(sub, -1)
		return c.emit(Inst{Op: InstRepeatOne, Arg: body, Min: n.Min, Max: n.Max, Greed: n.Greed, Next: next})
	}

	if n.Greed == syntax.Possessive {
		succeed := c.emit(Inst{Op: InstSucceed})
		inner := *n
		inner.Greed = syntax.Greedy
		body := c.repeat(&inner, succeed)
		return c.emit(Inst{Op: InstAtomic, Arg: body, Next: next})
	}

	rep := c.emit(Inst{Op: InstRepeat, Min: n.Min, Max: n.Max, Greed: n.Greed, Next: next})
	until := c.emit(Inst{Op: InstUntil, Arg: rep})
	body := c.compile(sub, until)
	c.prog.Inst[rep].Arg = body
	c.prog.Inst[rep].Alt = until
	return rep
}

const maxFirsts = 16

// firsts collects the unit matchers that can accept the first unit of a
// match starting at pc. It returns nil when some path can match without
// consuming a unit or is not analysable.
func (c *compiler) firsts(pc int) []int {
	var out []int
	seen := make(map[int]bool)
	var walk func(pc int) bool
	walk = func(pc int) bool {
		if seen[pc] {
			return true
		}
		seen[pc] = true
		inst := &c.prog.Inst[pc]
		switch inst.Op {
		case InstChar, InstSet, InstAnyNotNL, InstAny:
			out = append(out, pc)
			return len(out) <= maxFirsts
		case InstSave, InstJump:
			return walk(inst.Next)
		case InstBranch:
			for _, alt := range inst.Alts {
				if !walk(alt) {
					return false
				}
			}
			return true
		case InstRepeatOne:
			if inst.Min == 0 {
				return false
			}
			out = append(out, inst.Arg)
			return len(out) <= maxFirsts
		case InstFail:
			return true
		}
		return false
	}
	if !walk(pc) {
		return nil
	}
	return out
}

// anchored reports whether every path from pc starts with \A or a
// non-multiline ^.
func (c *compiler) anchored(pc int) bool {
	seen := make(map[int]bool)
	var walk func(pc int) bool
	walk = func(pc int) bool {
		if seen[pc] {
			return true
		}
		seen[pc] = true
		inst := &c.prog.Inst[pc]
		switch inst.Op {
		case InstAssert:
			return inst.At == syntax.AtBeginning || inst.At == syntax.AtBeginningString
		case InstSave, InstJump:
			return walk(inst.Next)
		case InstBranch:
			for _, alt := range inst.Alts {
				if !walk(alt) {
					return false
				}
			}
			return true
		}
		return false
	}
	return walk(pc)
}

// String returns a listing of the program, one instruction per line.
func (p *Program) String() string {
	var b strings.Builder
	for pc, inst := range p.Inst {
		start := ' '
		if pc == p.Start {
			start = '*'
		}
		fmt.Fprintf(&b, "%c%3d. %s", start, pc, inst.Op)
		switch inst.Op {
		case InstChar:
			fmt.Fprintf(&b, " %d", inst.Rune)
		case InstSet:
			fmt.Fprintf(&b, " %v", inst.Set)
		case InstAssert:
			fmt.Fprintf(&b, " %v", inst.At)
		case InstSave, InstBackref:
			fmt.Fprintf(&b, " %d", inst.Arg)
		case InstBranch:
			fmt.Fprintf(&b, " %v", inst.Alts)
		case InstRepeatOne, InstRepeat:
			hi := fmt.Sprint(inst.Max)
			if inst.Max == syntax.MaxRepeat {
				hi = "MAXREPEAT"
			}
			fmt.Fprintf(&b, " %s %d %s body=%d", inst.Greed, inst.Min, hi, inst.Arg)
		case InstUntil:
			fmt.Fprintf(&b, " repeat=%d", inst.Arg)
		case InstCond:
			fmt.Fprintf(&b, " %d else=%d", inst.Arg, inst.Alt)
		case InstLook:
			dir := 1
			if inst.Behind {
				dir = -1
			}
			fmt.Fprintf(&b, " dir=%d negate=%v body=%d", dir, inst.Negate, inst.Arg)
		case InstAtomic:
			fmt.Fprintf(&b, " body=%d", inst.Arg)
		}
		switch inst.Op {
		case InstFail, InstMatch, InstSucceed, InstBranch, InstUntil:
		default:
			if inst.Next >= 0 {
				fmt.Fprintf(&b, " -> %d", inst.Next)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
