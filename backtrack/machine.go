package backtrack

import (
	"github.com/coregx/sre/internal/charset"
	"github.com/coregx/sre/internal/input"
	"github.com/coregx/sre/syntax"
)

// frameKind tags an entry of the backtrack stack. Choice frames resume
// execution; undo frames restore state mutated after the frame was pushed.
type frameKind uint8

const (
	frameChoice frameKind = iota
	frameBranch
	frameRepeatOneGreedy
	frameRepeatOneLazy
	frameUntilTail
	frameUntilMore

	undoCap
	undoLastIndex
	undoRep
	undoRepState
	undoRepArena
)

type frame struct {
	kind frameKind
	pc   int
	pos  int
	n    int
	m    int
}

// repState is one active general repeat.
type repState struct {
	inst    int
	count   int
	lastPos int
	prev    int
}

// Options control a single match attempt.
type Options struct {
	// Full requires the match to end at the end of the input.
	Full bool
	// MustAdvance rejects an empty match at the position the search
	// started from.
	MustAdvance bool
}

// Machine executes a program. A Machine is not safe for concurrent use;
// the caller pools them.
type Machine struct {
	prog *Program
	in   input.Input
	opts Options

	stack []frame
	caps  []int
	reps  []repState
	rep   int

	lastIndex int
	origin    int
}

// NewMachine returns a machine for prog.
func NewMachine(prog *Program) *Machine {
	return &Machine{
		prog: prog,
		caps: make([]int, prog.NumCaps),
	}
}

// Program returns the program the machine runs.
func (m *Machine) Program() *Program { return m.prog }

// Caps returns the capture slots of the last successful match. Slot 2i
// and 2i+1 hold the span of group i, or -1 when the group did not
// participate. The slice is reused by the next call.
func (m *Machine) Caps() []int { return m.caps }

// LastIndex returns the group that closed last in the last successful
// match, or -1.
func (m *Machine) LastIndex() int { return m.lastIndex }

// MatchAt attempts a match starting exactly at pos.
func (m *Machine) MatchAt(in input.Input, pos int, opts Options) bool {
	m.in = in
	m.opts = opts
	m.origin = pos
	return m.attempt(pos)
}

// Search finds the leftmost match starting at or after pos.
func (m *Machine) Search(in input.Input, pos int, opts Options) bool {
	m.in = in
	m.opts = opts
	m.origin = pos
	if m.prog.Anchored {
		return pos == 0 && m.attempt(0)
	}
	for {
		if m.prog.First != nil {
			pos = m.skip(pos)
			if pos < 0 {
				return false
			}
		}
		if m.attempt(pos) {
			return true
		}
		if pos >= in.Len() {
			return false
		}
		pos = in.NextPos(pos)
	}
}

// skip advances pos to the next position whose unit can start a match.
func (m *Machine) skip(pos int) int {
	for pos < m.in.Len() {
		r, w := m.in.Next(pos)
		for _, pc := range m.prog.First {
			if m.unitMatches(&m.prog.Inst[pc], r) {
				return pos
			}
		}
		pos += w
	}
	return -1
}

func (m *Machine) attempt(pos int) bool {
	for i := range m.caps {
		m.caps[i] = -1
	}
	m.stack = m.stack[:0]
	m.reps = m.reps[:0]
	m.rep = -1
	m.lastIndex = -1

	end, ok := m.run(m.prog.Start, pos)
	if !ok {
		return false
	}
	m.caps[0], m.caps[1] = pos, end
	return true
}

func (m *Machine) push(f frame) { m.stack = append(m.stack, f) }

func (m *Machine) setCap(slot, pos int) {
	m.push(frame{kind: undoCap, n: slot, m: m.caps[slot]})
	m.caps[slot] = pos
	if slot&1 == 1 {
		m.push(frame{kind: undoLastIndex, n: m.lastIndex})
		m.lastIndex = slot / 2
	}
}

func (m *Machine) setRep(rep int) {
	m.push(frame{kind: undoRep, n: m.rep})
	m.rep = rep
}

func (m *Machine) setRepState(rep, count, lastPos int) {
	r := &m.reps[rep]
	m.push(frame{kind: undoRepState, n: rep, m: r.count, pos: r.lastPos})
	r.count = count
	r.lastPos = lastPos
}

// cut drops the choice frames above base, keeping the undo frames so that
// backtracking past base still restores state.
func (m *Machine) cut(base int) {
	out := m.stack[:base]
	for _, f := range m.stack[base:] {
		if f.kind >= undoCap {
			out = append(out, f)
		}
	}
	m.stack = out
}

// unwind pops every frame above base, applying undo frames.
func (m *Machine) unwind(base int) {
	for len(m.stack) > base {
		f := m.stack[len(m.stack)-1]
		m.stack = m.stack[:len(m.stack)-1]
		m.undo(f)
	}
}

func (m *Machine) undo(f frame) {
	switch f.kind {
	case undoCap:
		m.caps[f.n] = f.m
	case undoLastIndex:
		m.lastIndex = f.n
	case undoRep:
		m.rep = f.n
	case undoRepState:
		m.reps[f.n].count = f.m
		m.reps[f.n].lastPos = f.pos
	case undoRepArena:
		m.reps = m.reps[:f.n]
	}
}

func (m *Machine) unitMatches(inst *Inst, r rune) bool {
	switch inst.Op {
	case InstChar:
		return r == inst.Rune
	case InstSet:
		return inst.Set.Contains(r)
	case InstAnyNotNL:
		return r != '\n'
	case InstAny:
		return true
	}
	return false
}

// matchUnit matches the single-unit instruction at pos and returns the
// position after the unit.
func (m *Machine) matchUnit(inst *Inst, pos int) (int, bool) {
	r, w := m.in.Next(pos)
	if w == 0 || !m.unitMatches(inst, r) {
		return pos, false
	}
	return pos + w, true
}

// run executes from pc at pos until InstMatch or InstSucceed and returns
// the end position. Frames pushed below the entry height are never
// popped; on failure the stack is back at the entry height.
func (m *Machine) run(pc, pos int) (int, bool) {
	base := len(m.stack)
	prog := m.prog.Inst

	for {
		inst := &prog[pc]
		switch inst.Op {
		case InstMatch:
			if m.opts.Full && pos != m.in.Len() {
				goto fail
			}
			if m.opts.MustAdvance && pos == m.origin {
				goto fail
			}
			return pos, true

		case InstSucceed:
			return pos, true

		case InstFail:
			goto fail

		case InstChar, InstSet, InstAnyNotNL, InstAny:
			next, ok := m.matchUnit(inst, pos)
			if !ok {
				goto fail
			}
			pos = next
			pc = inst.Next
			continue

		case InstAssert:
			if !inst.At.Match(m.in, pos, inst.Mode) {
				goto fail
			}
			pc = inst.Next
			continue

		case InstSave:
			m.setCap(inst.Arg, pos)
			pc = inst.Next
			continue

		case InstJump:
			pc = inst.Next
			continue

		case InstBranch:
			alt, ok := m.nextAlt(inst, 0, pos)
			if !ok {
				goto fail
			}
			if _, more := m.nextAlt(inst, alt+1, pos); more {
				m.push(frame{kind: frameBranch, pc: pc, pos: pos, n: alt + 1})
			}
			pc = inst.Alts[alt]
			continue

		case InstRepeatOne:
			body := &prog[inst.Arg]
			n := 0
			if inst.Greed == syntax.Lazy {
				for ; n < inst.Min; n++ {
					next, ok := m.matchUnit(body, pos)
					if !ok {
						goto fail
					}
					pos = next
				}
				if n < inst.Max {
					m.push(frame{kind: frameRepeatOneLazy, pc: pc, pos: pos, n: n})
				}
				pc = inst.Next
				continue
			}
			for n < inst.Max {
				next, ok := m.matchUnit(body, pos)
				if !ok {
					break
				}
				pos = next
				n++
			}
			if n < inst.Min {
				goto fail
			}
			if inst.Greed == syntax.Greedy && n > inst.Min {
				m.push(frame{kind: frameRepeatOneGreedy, pc: pc, pos: pos, n: n})
			}
			pc = inst.Next
			continue

		case InstRepeat:
			m.setRep(m.rep)
			m.push(frame{kind: undoRepArena, n: len(m.reps)})
			m.reps = append(m.reps, repState{inst: pc, count: -1, lastPos: -1, prev: m.rep})
			m.rep = len(m.reps) - 1
			pc = inst.Alt
			continue

		case InstUntil:
			r := m.reps[m.rep]
			ri := &prog[r.inst]
			count := r.count + 1
			if count < ri.Min {
				m.setRepState(m.rep, count, r.lastPos)
				pc = ri.Arg
				continue
			}
			if ri.Greed == syntax.Lazy {
				m.push(frame{kind: frameUntilMore, pc: pc, pos: pos})
				m.setRep(r.prev)
				pc = ri.Next
				continue
			}
			if (count < ri.Max || ri.Max == syntax.MaxRepeat) && pos != r.lastPos {
				m.push(frame{kind: frameUntilTail, pc: pc, pos: pos})
				m.setRepState(m.rep, count, pos)
				pc = ri.Arg
				continue
			}
			m.setRep(r.prev)
			pc = ri.Next
			continue

		case InstBackref:
			next, ok := m.backref(inst, pos)
			if !ok {
				goto fail
			}
			pos = next
			pc = inst.Next
			continue

		case InstCond:
			if m.caps[2*inst.Arg+1] >= 0 {
				pc = inst.Next
			} else {
				pc = inst.Alt
			}
			continue

		case InstLook:
			if !m.look(inst, pos) {
				goto fail
			}
			pc = inst.Next
			continue

		case InstAtomic:
			mark := len(m.stack)
			end, ok := m.run(inst.Arg, pos)
			if !ok {
				goto fail
			}
			m.cut(mark)
			pos = end
			pc = inst.Next
			continue
		}
		panic("backtrack: bad instruction")

	fail:
		for {
			if len(m.stack) <= base {
				return -1, false
			}
			f := m.stack[len(m.stack)-1]
			m.stack = m.stack[:len(m.stack)-1]
			if f.kind >= undoCap {
				m.undo(f)
				continue
			}
			var ok bool
			if pc, pos, ok = m.resume(f); ok {
				break
			}
		}
	}
}

// resume continues from a choice frame. It reports false when the frame
// offers no further alternative.
func (m *Machine) resume(f frame) (pc, pos int, ok bool) {
	prog := m.prog.Inst
	inst := &prog[f.pc]
	switch f.kind {
	case frameChoice:
		return f.pc, f.pos, true

	case frameBranch:
		alt, found := m.nextAlt(inst, f.n, f.pos)
		if !found {
			return 0, 0, false
		}
		if _, more := m.nextAlt(inst, alt+1, f.pos); more {
			m.push(frame{kind: frameBranch, pc: f.pc, pos: f.pos, n: alt + 1})
		}
		return inst.Alts[alt], f.pos, true

	case frameRepeatOneGreedy:
		n, pos := f.n, f.pos
		follow, hasFollow := m.follow(inst)
		for {
			if n <= inst.Min {
				return 0, 0, false
			}
			_, w := m.in.Prev(pos)
			pos -= w
			n--
			if !hasFollow {
				break
			}
			if r, w := m.in.Next(pos); w > 0 && r == follow {
				break
			}
		}
		if n > inst.Min {
			m.push(frame{kind: frameRepeatOneGreedy, pc: f.pc, pos: pos, n: n})
		}
		return inst.Next, pos, true

	case frameRepeatOneLazy:
		next, matched := m.matchUnit(&prog[inst.Arg], f.pos)
		if !matched {
			return 0, 0, false
		}
		if f.n+1 < inst.Max {
			m.push(frame{kind: frameRepeatOneLazy, pc: f.pc, pos: next, n: f.n + 1})
		}
		return inst.Next, next, true

	case frameUntilTail:
		r := m.reps[m.rep]
		m.setRep(r.prev)
		return prog[r.inst].Next, f.pos, true

	case frameUntilMore:
		r := m.reps[m.rep]
		ri := &prog[r.inst]
		count := r.count + 1
		if (count >= ri.Max && ri.Max != syntax.MaxRepeat) || f.pos == r.lastPos {
			return 0, 0, false
		}
		m.setRepState(m.rep, count, f.pos)
		return ri.Arg, f.pos, true
	}
	return 0, 0, false
}

// follow returns the literal that must follow a repeat, used to skip
// hopeless backtracking positions.
func (m *Machine) follow(inst *Inst) (rune, bool) {
	if inst.Next < 0 {
		return 0, false
	}
	next := &m.prog.Inst[inst.Next]
	if next.Op == InstChar {
		return next.Rune, true
	}
	return 0, false
}

// nextAlt returns the first alternative at or after i whose first unit
// can match at pos.
func (m *Machine) nextAlt(inst *Inst, i, pos int) (int, bool) {
	var r rune = -1
	decoded := false
	for ; i < len(inst.Alts); i++ {
		firsts := inst.Firsts[i]
		if firsts == nil {
			return i, true
		}
		if !decoded {
			var w int
			r, w = m.in.Next(pos)
			if w == 0 {
				r = -1
			}
			decoded = true
		}
		if r < 0 {
			continue
		}
		for _, pc := range firsts {
			if m.unitMatches(&m.prog.Inst[pc], r) {
				return i, true
			}
		}
	}
	return 0, false
}

func (m *Machine) backref(inst *Inst, pos int) (int, bool) {
	start, end := m.caps[2*inst.Arg], m.caps[2*inst.Arg+1]
	if start < 0 || end < 0 {
		return pos, false
	}
	if inst.Fold == charset.FoldNone {
		n := end - start
		if m.in.Len()-pos < n || m.in.S[pos:pos+n] != m.in.S[start:end] {
			return pos, false
		}
		return pos + n, true
	}
	for start < end {
		a, wa := m.in.Next(start)
		b, wb := m.in.Next(pos)
		if wb == 0 || !charset.Equal(a, b, inst.Fold) {
			return pos, false
		}
		start += wa
		pos += wb
	}
	return pos, true
}

func (m *Machine) look(inst *Inst, pos int) bool {
	start := pos
	if inst.Behind {
		var ok bool
		if start, ok = m.in.Back(pos, inst.Width); !ok {
			return inst.Negate
		}
	}
	mark := len(m.stack)
	end, ok := m.run(inst.Arg, start)
	if ok && inst.Behind && end != pos {
		m.unwind(mark)
		ok = false
	}
	if inst.Negate {
		if ok {
			m.unwind(mark)
			return false
		}
		return true
	}
	if !ok {
		return false
	}
	m.cut(mark)
	return true
}
