package meta

import (
	"sync"

	"github.com/coregx/sre/backtrack"
	"github.com/coregx/sre/nfa"
	"github.com/coregx/sre/prefilter"
)

// SearchState is the mutable scratch of one search. Exactly one of vm and
// machine is set, matching the engine's strategy.
type SearchState struct {
	vm      *nfa.PikeVMState
	machine *backtrack.Machine
	tracker *prefilter.Tracker
}

// searchStatePool hands out SearchStates so that concurrent searches on one
// Engine never share scratch.
type searchStatePool struct {
	pool sync.Pool
}

func newSearchStatePool(vm *nfa.PikeVM, prog *backtrack.Program, pf prefilter.Prefilter) *searchStatePool {
	p := &searchStatePool{}
	p.pool.New = func() any {
		state := &SearchState{tracker: prefilter.NewTracker(pf, prefilter.DefaultTrackerConfig())}
		switch {
		case vm != nil:
			state.vm = vm.NewState()
		case prog != nil:
			state.machine = backtrack.NewMachine(prog)
		}
		return state
	}
	return p
}

// get returns a state whose tracker starts from zero.
func (p *searchStatePool) get() *SearchState {
	state := p.pool.Get().(*SearchState)
	if state.tracker != nil {
		state.tracker.Reset()
	}
	return state
}

func (p *searchStatePool) put(state *SearchState) {
	p.pool.Put(state)
}
