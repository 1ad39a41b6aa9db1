package nfa

import (
	"fmt"

	"github.com/coregx/sre/internal/charset"
	"github.com/coregx/sre/internal/conv"
	"github.com/coregx/sre/syntax"
)

// Builder constructs NFAs incrementally using a low-level API.
// This provides full control over NFA construction and is used by the Compiler.
type Builder struct {
	states []State
	start  StateID
}

// NewBuilder creates a new NFA builder with default capacity
func NewBuilder() *Builder {
	return NewBuilderWithCapacity(16)
}

// NewBuilderWithCapacity creates a new NFA builder with specified initial capacity
func NewBuilderWithCapacity(capacity int) *Builder {
	return &Builder{
		states: make([]State, 0, capacity),
		start:  InvalidState,
	}
}

func (b *Builder) add(s State) StateID {
	id := StateID(conv.IntToUint32(len(b.states)))
	s.id = id
	b.states = append(b.states, s)
	return id
}

// AddMatch adds a match (accepting) state and returns its ID
func (b *Builder) AddMatch() StateID {
	return b.add(State{kind: StateMatch})
}

// AddRune adds a state that consumes the unit r.
func (b *Builder) AddRune(r rune, next StateID) StateID {
	return b.add(State{kind: StateRune, r: r, next: next})
}

// AddSet adds a state that consumes one unit contained in set.
func (b *Builder) AddSet(set *charset.Set, next StateID) StateID {
	return b.add(State{kind: StateSet, set: set, next: next})
}

// AddAny adds a state that consumes any unit, or any unit except '\n'
// when notNL is set.
func (b *Builder) AddAny(notNL bool, next StateID) StateID {
	kind := StateAny
	if notNL {
		kind = StateAnyNotNL
	}
	return b.add(State{kind: kind, next: next})
}

// AddSplit adds a state with epsilon transitions to two states.
// Threads following left have priority over threads following right.
func (b *Builder) AddSplit(left, right StateID) StateID {
	return b.add(State{kind: StateSplit, left: left, right: right})
}

// AddEpsilon adds a state with a single epsilon transition (no input consumed)
func (b *Builder) AddEpsilon(next StateID) StateID {
	return b.add(State{kind: StateEpsilon, next: next})
}

// AddFail adds a dead state with no transitions
func (b *Builder) AddFail() StateID {
	return b.add(State{kind: StateFail, next: InvalidState})
}

// AddCapture adds a capture boundary state writing slot.
// Slot 2*g opens group g and slot 2*g+1 closes it.
func (b *Builder) AddCapture(slot uint32, next StateID) StateID {
	return b.add(State{kind: StateCapture, slot: slot, next: next})
}

// AddLook adds a zero-width anchor state.
func (b *Builder) AddLook(at syntax.AtCode, mode charset.Mode, next StateID) StateID {
	return b.add(State{kind: StateLook, at: at, mode: mode, next: next})
}

// AddMark adds a state recording the start of a loop iteration in slot.
func (b *Builder) AddMark(slot uint32, next StateID) StateID {
	return b.add(State{kind: StateMark, slot: slot, next: next})
}

// AddCheck adds the end of a loop iteration. It continues at loop unless
// the iteration started at the current position, in which case it goes to
// exit.
func (b *Builder) AddCheck(slot uint32, loop, exit StateID) StateID {
	return b.add(State{kind: StateCheck, slot: slot, left: loop, right: exit})
}

// Patch updates the next target of a single-successor state.
func (b *Builder) Patch(stateID, target StateID) error {
	if int(stateID) >= len(b.states) {
		return &BuildError{
			Message: "state ID out of bounds",
			StateID: stateID,
		}
	}

	s := &b.states[stateID]
	switch s.kind {
	case StateRune, StateSet, StateAny, StateAnyNotNL, StateEpsilon,
		StateCapture, StateLook, StateMark:
		s.next = target
		return nil
	case StateFail:
		return nil
	default:
		return &BuildError{
			Message: fmt.Sprintf("cannot patch state of kind %s", s.kind),
			StateID: stateID,
		}
	}
}

// PatchCheck updates the loop target of a Check state.
func (b *Builder) PatchCheck(stateID, loop StateID) error {
	if int(stateID) >= len(b.states) || b.states[stateID].kind != StateCheck {
		return &BuildError{
			Message: "expected Check state",
			StateID: stateID,
		}
	}
	b.states[stateID].left = loop
	return nil
}

// SetStart sets the starting state for the NFA
func (b *Builder) SetStart(start StateID) {
	b.start = start
}

// States returns the current number of states
func (b *Builder) States() int {
	return len(b.states)
}

// Validate checks that the NFA is well-formed:
// the start state is valid and every reference points to a valid state.
func (b *Builder) Validate() error {
	if b.start == InvalidState {
		return &BuildError{Message: "start state not set", StateID: InvalidState}
	}
	if int(b.start) >= len(b.states) {
		return &BuildError{Message: "start state out of bounds", StateID: b.start}
	}

	valid := func(id StateID) bool {
		return int(id) < len(b.states)
	}
	for i := range b.states {
		s := &b.states[i]
		switch s.kind {
		case StateSplit, StateCheck:
			if !valid(s.left) || !valid(s.right) {
				return &BuildError{
					Message: fmt.Sprintf("invalid targets [%d, %d]", s.left, s.right),
					StateID: s.id,
				}
			}
		case StateMatch, StateFail:
		default:
			if !valid(s.next) {
				return &BuildError{
					Message: fmt.Sprintf("invalid next state %d", s.next),
					StateID: s.id,
				}
			}
		}
	}
	return nil
}

// Build finalizes and returns the constructed NFA.
func (b *Builder) Build(opts ...BuildOption) (*NFA, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	nfa := &NFA{
		states:       b.states,
		start:        b.start,
		captureCount: 1,
	}
	for _, opt := range opts {
		opt(nfa)
	}
	nfa.anchored = nfa.anchoredFrom(nfa.start)
	return nfa, nil
}

// BuildOption is a functional option for configuring the built NFA
type BuildOption func(*NFA)

// WithBinary sets whether the NFA consumes bytes
func WithBinary(binary bool) BuildOption {
	return func(n *NFA) {
		n.binary = binary
	}
}

// WithCaptureCount sets the number of capture groups in the NFA,
// including group 0.
func WithCaptureCount(count int) BuildOption {
	return func(n *NFA) {
		n.captureCount = count
	}
}

// WithLoopSlots sets the number of loop iteration slots.
func WithLoopSlots(count int) BuildOption {
	return func(n *NFA) {
		n.loopSlots = count
	}
}

// WithCaptureNames sets the names of capture groups in the NFA.
// Index 0 should be "" (entire match).
func WithCaptureNames(names []string) BuildOption {
	return func(n *NFA) {
		if len(names) > 0 {
			n.captureNames = make([]string, len(names))
			copy(n.captureNames, names)
		}
	}
}

// anchoredFrom reports whether every path from id passes a start-of-string
// anchor before consuming input or matching.
func (n *NFA) anchoredFrom(id StateID) bool {
	seen := make(map[StateID]bool)
	stack := []StateID{id}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		s := &n.states[id]
		switch s.kind {
		case StateLook:
			if s.at == syntax.AtBeginning || s.at == syntax.AtBeginningString {
				continue
			}
			stack = append(stack, s.next)
		case StateEpsilon, StateCapture, StateMark:
			stack = append(stack, s.next)
		case StateSplit, StateCheck:
			stack = append(stack, s.left, s.right)
		case StateFail:
		default:
			return false
		}
	}
	return true
}
