// Package conv holds checked integer narrowing used when sizing automata.
package conv

import "math"

// IntToUint32 converts n to uint32, panicking when it does not fit. A
// failure means an automaton outgrew the 32-bit state space, which the
// compilers' size limits rule out.
func IntToUint32(n int) uint32 {
	if n < 0 || uint64(n) > math.MaxUint32 {
		panic("conv: int value out of uint32 range")
	}
	return uint32(n)
}
