// Package cond encodes condition spaces: guarded sub-alphabets whose symbols
// are widened before transition lookup.
//
// In a state with a condition space covering the raw symbol, the key used for
// matching is
//
//	widec = space.BaseKey + (raw - keys.Min) + Σ Weight(i) for each predicate i that holds
//
// with Weight(i) = 2^i × alphabet size, i counted in predicate declaration
// order. Every predicate combination therefore lands in its own copy of the
// alphabet above BaseKey, and ordinary single/range transitions on widened
// keys select the guarded behavior.
package cond

import (
	"github.com/coregx/fsmc/fsm"
	"github.com/coregx/fsmc/internal/bisect"
)

// Weight returns the widening contribution of the i-th predicate.
func Weight(keys fsm.KeyOps, i int) fsm.Key {
	return fsm.Key((int64(1) << i) * keys.AlphSize())
}

// Widen computes the widened key for raw under space. holds reports whether
// the predicate with the given index in space.Conds is true.
func Widen(keys fsm.KeyOps, space *fsm.CondSpace, raw fsm.Key, holds func(i int) bool) fsm.Key {
	w := space.BaseKey + (raw - keys.Min)
	for i := range space.Conds {
		if holds(i) {
			w += Weight(keys, i)
		}
	}
	return w
}

// Limit returns the largest widened key space can produce.
func Limit(keys fsm.KeyOps, space *fsm.CondSpace) fsm.Key {
	return space.BaseKey + fsm.Key((int64(1)<<len(space.Conds))*keys.AlphSize()) - 1
}

// Lookup returns the condition space applying to raw in a state's sorted
// condition list, by binary search over the ranges.
func Lookup(conds []fsm.StateCond, raw fsm.Key) (space int, ok bool) {
	lo, hi := 0, len(conds)-1
	for lo <= hi {
		mid := int(uint(lo+hi) >> 1)
		switch {
		case raw < conds[mid].Low:
			hi = mid - 1
		case raw > conds[mid].High:
			lo = mid + 1
		default:
			return conds[mid].Space, true
		}
	}
	return -1, false
}

// Tree is the inlined condition cascade of one state; node values are
// condition space IDs.
type Tree = bisect.Node[int]

// BuildTree returns the condition cascade for a state's condition list.
// Condition ranges are keyed on raw symbols, so alphabet limits apply.
func BuildTree(conds []fsm.StateCond, keys fsm.KeyOps) *Tree {
	items := make([]bisect.Item[int], len(conds))
	for i, c := range conds {
		items[i] = bisect.Item[int]{Low: c.Low, High: c.High, Value: c.Space}
	}
	return bisect.Build(items, keys, true)
}

// Overlaps reports whether the widened key ranges of two spaces intersect.
// Front ends allocate base keys so that this never happens; the serializer
// relies on it.
func Overlaps(keys fsm.KeyOps, a, b *fsm.CondSpace) bool {
	return a.BaseKey <= Limit(keys, b) && b.BaseKey <= Limit(keys, a)
}
