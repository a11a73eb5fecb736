// Package bisect builds the binary-search decision trees the goto-driven
// matcher inlines for key lookup and condition lookup.
//
// A tree is built over sorted, non-overlapping key intervals. Each node
// records whether its low and high comparisons are needed: a comparison is
// dropped when the bounds implied by the path from the root (or by the
// alphabet limits) already guarantee it.
package bisect

import "github.com/coregx/fsmc/fsm"

// Item is one key interval with its payload.
type Item[T any] struct {
	Low   fsm.Key
	High  fsm.Key
	Value T
}

// Node is one comparison point of the tree.
type Node[T any] struct {
	Low   fsm.Key
	High  fsm.Key
	Value T

	// Left is searched when key < Low, Right when key > High.
	Left  *Node[T]
	Right *Node[T]

	// CheckLow and CheckHigh report whether the key must be compared against
	// Low and High at this node.
	CheckLow  bool
	CheckHigh bool
}

type bounds struct {
	lo, hi       fsm.Key
	hasLo, hasHi bool
}

// Build returns the tree for items, which must be sorted by Low and
// non-overlapping. When limited is true, keys are known to lie in
// [keys.Min, keys.Max]; otherwise (widened condition keys) no outer bound is
// assumed. An empty item list yields nil.
func Build[T any](items []Item[T], keys fsm.KeyOps, limited bool) *Node[T] {
	b := bounds{}
	if limited {
		b = bounds{lo: keys.Min, hi: keys.Max, hasLo: true, hasHi: true}
	}
	return build(items, b)
}

func build[T any](items []Item[T], b bounds) *Node[T] {
	if len(items) == 0 {
		return nil
	}
	mid := len(items) / 2
	it := items[mid]
	n := &Node[T]{
		Low:       it.Low,
		High:      it.High,
		Value:     it.Value,
		CheckLow:  !(b.hasLo && b.lo >= it.Low),
		CheckHigh: !(b.hasHi && b.hi <= it.High),
	}

	left := b
	left.hi, left.hasHi = it.Low-1, true
	right := b
	right.lo, right.hasLo = it.High+1, true

	n.Left = build(items[:mid], left)
	n.Right = build(items[mid+1:], right)
	return n
}

// Find walks the tree exactly as the generated cascade does, skipping the
// comparisons the tree marked as implied.
func (n *Node[T]) Find(key fsm.Key) (T, bool) {
	for n != nil {
		switch {
		case n.CheckLow && key < n.Low:
			n = n.Left
		case n.CheckHigh && key > n.High:
			n = n.Right
		default:
			return n.Value, true
		}
	}
	var zero T
	return zero, false
}

// Depth returns the height of the tree.
func (n *Node[T]) Depth() int {
	if n == nil {
		return 0
	}
	return 1 + max(n.Left.Depth(), n.Right.Depth())
}

// Walk visits nodes in key order.
func (n *Node[T]) Walk(fn func(*Node[T])) {
	if n == nil {
		return
	}
	n.Left.Walk(fn)
	fn(n)
	n.Right.Walk(fn)
}
