// Package sparse provides a sparse set of dense integer identifiers.
//
// The set supports O(1) insertion, membership testing and clearing while
// keeping a dense insertion-ordered list of members. It is used for state
// reachability walks and for marking which actions a machine references.
package sparse

// ID is the element type accepted by Set.
type ID interface {
	~int | ~int32 | ~uint32
}

// Set is a set of identifiers drawn from [0, capacity).
//
// The sparse array maps a value to its index in the dense array; a value is
// present when that index is in range and points back at the value.
type Set[T ID] struct {
	sparse []int32
	dense  []T
}

// New creates a set able to hold identifiers in [0, capacity).
func New[T ID](capacity int) *Set[T] {
	return &Set[T]{
		sparse: make([]int32, capacity),
		dense:  make([]T, 0, capacity),
	}
}

// Insert adds v to the set and reports whether it was newly added.
// Values outside [0, capacity) are ignored.
func (s *Set[T]) Insert(v T) bool {
	if !s.inRange(v) || s.Contains(v) {
		return false
	}
	//nolint:gosec // G115: dense length is bounded by capacity
	s.sparse[v] = int32(len(s.dense))
	s.dense = append(s.dense, v)
	return true
}

// Contains reports whether v is in the set.
func (s *Set[T]) Contains(v T) bool {
	if !s.inRange(v) {
		return false
	}
	idx := s.sparse[v]
	return int(idx) < len(s.dense) && s.dense[idx] == v
}

// Clear removes all elements in O(1) time.
func (s *Set[T]) Clear() {
	s.dense = s.dense[:0]
}

// Len returns the number of elements.
func (s *Set[T]) Len() int {
	return len(s.dense)
}

// Values returns the members in insertion order.
// The returned slice is valid until the next mutation.
func (s *Set[T]) Values() []T {
	return s.dense
}

func (s *Set[T]) inRange(v T) bool {
	return int64(v) >= 0 && int64(v) < int64(len(s.sparse))
}
