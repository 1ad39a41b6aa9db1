// Package sparse provides the state set used by the PikeVM.
//
// A sparse set supports O(1) insertion, membership testing and clearing
// over a fixed universe [0, capacity), which makes it cheap to reset the
// visited set once per subject unit.
package sparse

// SparseSet is a set of uint32 values below a fixed capacity.
// The sparse array maps a value to its index in the dense array; an entry
// is valid only when the dense array points back at the value, so stale
// entries never need clearing.
type SparseSet struct {
	sparse []uint32
	dense  []uint32
}

// NewSparseSet creates a new sparse set holding values below capacity.
func NewSparseSet(capacity uint32) *SparseSet {
	return &SparseSet{
		sparse: make([]uint32, capacity),
		dense:  make([]uint32, 0, capacity),
	}
}

// Capacity returns the exclusive upper bound on values.
func (s *SparseSet) Capacity() int {
	return len(s.sparse)
}

// Insert adds a value to the set. It reports whether the value was absent.
// Panics if value >= capacity.
func (s *SparseSet) Insert(value uint32) bool {
	if s.Contains(value) {
		return false
	}
	s.sparse[value] = uint32(len(s.dense))
	s.dense = append(s.dense, value)
	return true
}

// Contains returns true if the value is in the set
func (s *SparseSet) Contains(value uint32) bool {
	if int(value) >= len(s.sparse) {
		return false
	}
	idx := s.sparse[value]
	return int(idx) < len(s.dense) && s.dense[idx] == value
}

// Clear removes all elements from the set in O(1) time
func (s *SparseSet) Clear() {
	s.dense = s.dense[:0]
}

// Len returns the number of elements in the set
func (s *SparseSet) Len() int {
	return len(s.dense)
}

// Values returns the elements in insertion order.
// The returned slice is valid until the next mutation.
func (s *SparseSet) Values() []uint32 {
	return s.dense
}
