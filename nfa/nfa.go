// Package nfa provides a Thompson NFA over decoded subject units together
// with a PikeVM execution engine.
//
// The NFA is compiled from a parsed sre pattern. Text patterns transition on
// runes and binary patterns on bytes, so the automaton never has to reason
// about UTF-8 sequences. Matching runs in time linear in the subject for a
// fixed pattern. Constructs that need backtracking are rejected at compile
// time with an *UnsupportedError.
package nfa

import (
	"fmt"
	"strings"

	"github.com/coregx/sre/internal/charset"
	"github.com/coregx/sre/syntax"
)

// StateID uniquely identifies an NFA state.
// This is a 32-bit unsigned integer for compact representation.
type StateID uint32

// Special state constants
const (
	// InvalidState represents an invalid/uninitialized state ID
	InvalidState StateID = 0xFFFFFFFF
)

// StateKind identifies the type of NFA state and determines which fields are valid.
type StateKind uint8

const (
	// StateMatch represents a match state (accepting state)
	StateMatch StateKind = iota

	// StateRune consumes one unit equal to a rune
	StateRune

	// StateSet consumes one unit contained in a character set
	StateSet

	// StateAny consumes any unit
	StateAny

	// StateAnyNotNL consumes any unit except '\n'
	StateAnyNotNL

	// StateSplit represents an epsilon transition to 2 states.
	// The left state has priority.
	StateSplit

	// StateEpsilon represents an epsilon transition to 1 state
	StateEpsilon

	// StateCapture records the current position in a capture slot
	StateCapture

	// StateLook is a zero-width anchor
	StateLook

	// StateMark records where a loop iteration started
	StateMark

	// StateCheck ends a loop iteration. An iteration that consumed nothing
	// leaves the loop.
	StateCheck

	// StateFail represents a dead state (no valid transitions)
	StateFail
)

var stateKindNames = [...]string{
	StateMatch:    "Match",
	StateRune:     "Rune",
	StateSet:      "Set",
	StateAny:      "Any",
	StateAnyNotNL: "AnyNotNL",
	StateSplit:    "Split",
	StateEpsilon:  "Epsilon",
	StateCapture:  "Capture",
	StateLook:     "Look",
	StateMark:     "Mark",
	StateCheck:    "Check",
	StateFail:     "Fail",
}

// String returns a human-readable representation of the StateKind
func (k StateKind) String() string {
	if int(k) < len(stateKindNames) {
		return stateKindNames[k]
	}
	return fmt.Sprintf("Unknown(%d)", k)
}

// State represents a single NFA state with its transitions.
// The state's kind determines which fields are valid.
type State struct {
	id   StateID
	kind StateKind

	// For Rune and Set
	r   rune
	set *charset.Set

	// target for consuming states, Epsilon, Capture, Look and Mark
	next StateID

	// For Split: left is preferred. For Check: left continues the loop,
	// right leaves it.
	left, right StateID

	// For Capture, Mark and Check: slot index
	slot uint32

	// For Look
	at   syntax.AtCode
	mode charset.Mode
}

// ID returns the state's unique identifier
func (s *State) ID() StateID {
	return s.id
}

// Kind returns the state's type
func (s *State) Kind() StateKind {
	return s.kind
}

// IsMatch returns true if this is a match state
func (s *State) IsMatch() bool {
	return s.kind == StateMatch
}

// Next returns the successor of a single-successor state, or InvalidState.
func (s *State) Next() StateID {
	switch s.kind {
	case StateRune, StateSet, StateAny, StateAnyNotNL, StateEpsilon,
		StateCapture, StateLook, StateMark:
		return s.next
	}
	return InvalidState
}

// Split returns the two target states for Split and Check states.
// Returns (InvalidState, InvalidState) for other states.
func (s *State) Split() (left, right StateID) {
	if s.kind == StateSplit || s.kind == StateCheck {
		return s.left, s.right
	}
	return InvalidState, InvalidState
}

// Rune returns the unit matched by a Rune state.
func (s *State) Rune() (rune, bool) {
	return s.r, s.kind == StateRune
}

// Set returns the character set of a Set state, or nil.
func (s *State) Set() *charset.Set {
	if s.kind == StateSet {
		return s.set
	}
	return nil
}

// Slot returns the slot written or read by Capture, Mark and Check states.
func (s *State) Slot() uint32 {
	return s.slot
}

// Look returns the anchor of a Look state.
func (s *State) Look() (syntax.AtCode, charset.Mode) {
	return s.at, s.mode
}

// matches reports whether a consuming state accepts unit r.
func (s *State) matches(r rune) bool {
	switch s.kind {
	case StateRune:
		return r == s.r
	case StateSet:
		return s.set.Contains(r)
	case StateAny:
		return true
	case StateAnyNotNL:
		return r != '\n'
	}
	return false
}

// String returns a human-readable representation of the state
func (s *State) String() string {
	switch s.kind {
	case StateMatch:
		return fmt.Sprintf("State(%d, Match)", s.id)
	case StateRune:
		return fmt.Sprintf("State(%d, Rune %q -> %d)", s.id, s.r, s.next)
	case StateSet:
		return fmt.Sprintf("State(%d, Set %s -> %d)", s.id, s.set, s.next)
	case StateAny, StateAnyNotNL, StateEpsilon:
		return fmt.Sprintf("State(%d, %s -> %d)", s.id, s.kind, s.next)
	case StateSplit:
		return fmt.Sprintf("State(%d, Split -> [%d, %d])", s.id, s.left, s.right)
	case StateCapture:
		return fmt.Sprintf("State(%d, Capture slot %d -> %d)", s.id, s.slot, s.next)
	case StateLook:
		return fmt.Sprintf("State(%d, Look %s -> %d)", s.id, s.at, s.next)
	case StateMark:
		return fmt.Sprintf("State(%d, Mark slot %d -> %d)", s.id, s.slot, s.next)
	case StateCheck:
		return fmt.Sprintf("State(%d, Check slot %d -> [%d, %d])", s.id, s.slot, s.left, s.right)
	case StateFail:
		return fmt.Sprintf("State(%d, Fail)", s.id)
	default:
		return fmt.Sprintf("State(%d, Unknown)", s.id)
	}
}

// NFA represents a compiled Thompson NFA.
type NFA struct {
	// states contains all NFA states indexed by StateID
	states []State

	// start is the first state of the compiled pattern
	start StateID

	// anchored indicates every match must start at position 0
	anchored bool

	// binary indicates the NFA consumes bytes rather than runes
	binary bool

	// captureCount is the number of capture groups in the pattern.
	// Group 0 is the entire match, groups 1+ are explicit captures.
	captureCount int

	// loopSlots is the number of iteration-start slots used by Mark and
	// Check states.
	loopSlots int

	// captureNames stores the names of capture groups.
	// Index 0 is always "" (entire match).
	captureNames []string
}

// Start returns the starting state ID of the NFA
func (n *NFA) Start() StateID {
	return n.start
}

// State returns the state with the given ID.
// Returns nil if the ID is invalid.
func (n *NFA) State(id StateID) *State {
	if id == InvalidState || int(id) >= len(n.states) {
		return nil
	}
	return &n.states[id]
}

// States returns the total number of states in the NFA
func (n *NFA) States() int {
	return len(n.states)
}

// IsAnchored returns true if every match must start at position 0
func (n *NFA) IsAnchored() bool {
	return n.anchored
}

// IsBinary returns true if the NFA consumes bytes
func (n *NFA) IsBinary() bool {
	return n.binary
}

// CaptureCount returns the number of capture groups in the NFA.
// For a pattern like "(a)(b)", this returns 3 (entire match + 2 groups).
func (n *NFA) CaptureCount() int {
	return n.captureCount
}

// SlotCount returns the number of per-thread slots: two per capture group,
// one for lastindex, and one per loop that can iterate without consuming
// input.
func (n *NFA) SlotCount() int {
	return 2*n.captureCount + 1 + n.loopSlots
}

// lastIndexSlot is the slot holding the index of the last closed group.
func (n *NFA) lastIndexSlot() int {
	return 2 * n.captureCount
}

// SubexpNames returns the names of capture groups in the pattern.
// Index 0 is always "" (representing the entire match).
func (n *NFA) SubexpNames() []string {
	names := make([]string, n.captureCount)
	copy(names, n.captureNames)
	return names
}

// String returns a listing of the NFA, one state per line.
func (n *NFA) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "NFA{states: %d, start: %d, anchored: %v, binary: %v}\n",
		len(n.states), n.start, n.anchored, n.binary)
	for i := range n.states {
		b.WriteString("  ")
		b.WriteString(n.states[i].String())
		b.WriteByte('\n')
	}
	return b.String()
}
