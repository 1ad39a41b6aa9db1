package nfa

import (
	"github.com/coregx/sre/internal/conv"
	"github.com/coregx/sre/internal/input"
	"github.com/coregx/sre/internal/sparse"
)

// PikeVM implements the Pike VM algorithm for NFA execution.
// It simulates the NFA by maintaining an ordered set of active threads and
// advancing all of them one unit at a time.
//
// Threads are kept in priority order, so the first thread to reach the
// match state wins and lower-priority threads are cut. This gives
// leftmost-first semantics with captures identical to a backtracking
// engine for the constructs the NFA supports.
//
// Thread safety: PikeVM is immutable after creation. Per-search state lives
// in PikeVMState, which callers pool (via sync.Pool) for concurrent usage.
type PikeVM struct {
	nfa *NFA
}

// Options controls a single match attempt.
type Options struct {
	// Full requires the match to end at the end of the input.
	Full bool

	// MustAdvance rejects an empty match at the starting position.
	MustAdvance bool
}

// PikeVMState holds mutable per-search state for PikeVM.
// Each goroutine must use its own PikeVMState instance.
type PikeVMState struct {
	queue, next *threadQueue

	// epsilonStack replaces recursion in the epsilon closure
	epsilonStack []entry

	caps      []int
	lastIndex int
}

// thread is an NFA state together with its slots.
type thread struct {
	state StateID
	caps  cowCaptures
}

// entry is a pending branch of an epsilon closure.
type entry struct {
	state StateID
	caps  cowCaptures
}

// threadQueue is a priority-ordered list of threads with O(1) membership.
type threadQueue struct {
	set     *sparse.SparseSet
	threads []thread
}

func newThreadQueue(capacity int) *threadQueue {
	return &threadQueue{
		set:     sparse.NewSparseSet(conv.IntToUint32(capacity)),
		threads: make([]thread, 0, capacity),
	}
}

func (q *threadQueue) clear() {
	q.set.Clear()
	q.threads = q.threads[:0]
}

// cowCaptures implements copy-on-write semantics for capture slots.
// Multiple threads can share the same underlying data until modification.
type cowCaptures struct {
	shared *sharedCaptures
}

type sharedCaptures struct {
	data []int
	refs int
}

// clone increments ref count and returns a reference to the same data (no copy)
func (c cowCaptures) clone() cowCaptures {
	c.shared.refs++
	return c
}

// update modifies a slot, copying only if the data is shared
func (c cowCaptures) update(slot, value int) cowCaptures {
	if c.shared.data[slot] == value {
		return c
	}
	if c.shared.refs > 1 {
		c.shared.refs--
		data := make([]int, len(c.shared.data))
		copy(data, c.shared.data)
		data[slot] = value
		return cowCaptures{shared: &sharedCaptures{data: data, refs: 1}}
	}
	c.shared.data[slot] = value
	return c
}

// NewPikeVM creates a new PikeVM for executing the given NFA
func NewPikeVM(nfa *NFA) *PikeVM {
	return &PikeVM{nfa: nfa}
}

// NFA returns the automaton executed by the VM.
func (p *PikeVM) NFA() *NFA {
	return p.nfa
}

// NewState creates search state sized for this VM.
func (p *PikeVM) NewState() *PikeVMState {
	capacity := max(p.nfa.States(), 16)
	return &PikeVMState{
		queue:        newThreadQueue(capacity),
		next:         newThreadQueue(capacity),
		epsilonStack: make([]entry, 0, capacity),
		caps:         make([]int, 2*p.nfa.CaptureCount()),
		lastIndex:    -1,
	}
}

// Caps returns the capture slots of the last successful match: start and
// end for each group, -1 when unset. The slice is reused by the next search.
func (s *PikeVMState) Caps() []int {
	return s.caps
}

// LastIndex returns the index of the last group closed by the last
// successful match, or -1.
func (s *PikeVMState) LastIndex() int {
	return s.lastIndex
}

// MatchAt reports whether the pattern matches starting exactly at pos.
func (p *PikeVM) MatchAt(s *PikeVMState, in input.Input, pos int, opts Options) bool {
	return p.run(s, in, pos, true, opts)
}

// Search reports whether the pattern matches at pos or later. The match
// with the leftmost start wins.
func (p *PikeVM) Search(s *PikeVMState, in input.Input, pos int, opts Options) bool {
	if p.nfa.anchored && pos > 0 {
		return false
	}
	return p.run(s, in, pos, p.nfa.anchored, opts)
}

func (p *PikeVM) newCaptures(pos int) cowCaptures {
	data := make([]int, p.nfa.SlotCount())
	for i := range data {
		data[i] = -1
	}
	data[0] = pos
	return cowCaptures{shared: &sharedCaptures{data: data, refs: 1}}
}

func (p *PikeVM) run(s *PikeVMState, in input.Input, origin int, anchored bool, opts Options) bool {
	clist, nlist := s.queue, s.next
	clist.clear()
	nlist.clear()

	matched := false
	end := in.Len()
	for pos := origin; ; {
		if !matched && (!anchored || pos == origin) {
			// a thread started here has lower priority than every thread
			// started earlier
			p.addThread(s, clist, p.nfa.start, pos, p.newCaptures(pos), in)
		}
		if len(clist.threads) == 0 && (matched || anchored) {
			break
		}

		r, w := in.Next(pos)
	step:
		for _, t := range clist.threads {
			st := &p.nfa.states[t.state]
			if st.kind == StateMatch {
				if opts.Full && pos != end {
					continue
				}
				if opts.MustAdvance && pos == origin {
					continue
				}
				p.record(s, t.caps, pos)
				matched = true
				// lower-priority threads are cut
				break step
			}
			if w > 0 && st.matches(r) {
				p.addThread(s, nlist, st.next, pos+w, t.caps, in)
			}
		}

		if w == 0 {
			break
		}
		pos += w
		clist, nlist = nlist, clist
		nlist.clear()
	}
	s.queue, s.next = clist, nlist
	return matched
}

// record saves the slots of the winning thread.
func (p *PikeVM) record(s *PikeVMState, caps cowCaptures, pos int) {
	n := 2 * p.nfa.captureCount
	copy(s.caps, caps.shared.data[:n])
	s.caps[1] = pos
	s.lastIndex = caps.shared.data[p.nfa.lastIndexSlot()]
}

// addThread follows epsilon transitions from id at pos, appending the
// reached consuming and match states to q in priority order. States already
// in q are skipped, except Check states whose outcome depends on the
// thread's slots.
func (p *PikeVM) addThread(s *PikeVMState, q *threadQueue, id StateID, pos int, caps cowCaptures, in input.Input) {
	lastIndexSlot := p.nfa.lastIndexSlot()
	stack := append(s.epsilonStack[:0], entry{id, caps})
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		id, caps := e.state, e.caps

	closure:
		for {
			st := &p.nfa.states[id]
			if st.kind != StateCheck && !q.set.Insert(uint32(id)) {
				break
			}
			switch st.kind {
			case StateEpsilon:
				id = st.next
			case StateSplit:
				stack = append(stack, entry{st.right, caps.clone()})
				id = st.left
			case StateCapture:
				caps = caps.update(int(st.slot), pos)
				if st.slot&1 == 1 {
					caps = caps.update(lastIndexSlot, int(st.slot/2))
				}
				id = st.next
			case StateMark:
				caps = caps.update(int(st.slot), pos)
				id = st.next
			case StateCheck:
				if caps.shared.data[st.slot] == pos {
					id = st.right
				} else {
					id = st.left
				}
			case StateLook:
				if !st.at.Match(in, pos, st.mode) {
					break closure
				}
				id = st.next
			case StateFail:
				break closure
			default:
				q.threads = append(q.threads, thread{id, caps})
				break closure
			}
		}
	}
	s.epsilonStack = stack[:0]
}
