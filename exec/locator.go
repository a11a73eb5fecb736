package exec

import (
	"github.com/coregx/fsmc/codegen"
	"github.com/coregx/fsmc/compact"
	"github.com/coregx/fsmc/fsm"
	"github.com/coregx/fsmc/internal/conv"
	"github.com/coregx/fsmc/tables"
)

// locator answers the per-state lookups of the matcher loop. Action
// references are 0 for none and 1+list ID otherwise, as in the arrays.
type locator interface {
	condSpace(cs int, raw fsm.Key) (space int, ok bool)
	locate(cs int, key fsm.Key) (target int, acts int64)
	eofTrans(cs int) (target int, acts int64, ok bool)
	toState(cs int) int64
	fromState(cs int) int64
	eofActions(cs int) int64
	actions(ref int64) []int64
}

// arrays implements the lookups shared by the table and flat layouts.
type arrays struct {
	t *tables.Tables
}

func idx(v int64) int {
	return conv.Int64ToIndex(v)
}

func (a arrays) trans(slot int) (int, int64) {
	if a.t.UseIndex {
		slot = idx(a.t.Indicies.At(slot))
	}
	return conv.Int64ToInt(a.t.TransTargs.At(slot)), a.t.TransActions.At(slot)
}

func (a arrays) condSpace(cs int, raw fsm.Key) (int, bool) {
	t := a.t
	n := idx(t.CondLengths.At(cs))
	if n == 0 {
		return 0, false
	}
	off := idx(t.CondOffsets.At(cs))
	k := int64(raw)
	lo, hi := 0, n-1
	for lo <= hi {
		mid := lo + (hi-lo)>>1
		pos := 2 * (off + mid)
		switch {
		case k < t.CondKeys.At(pos):
			hi = mid - 1
		case k > t.CondKeys.At(pos+1):
			lo = mid + 1
		default:
			return idx(t.CondSpaces.At(off + mid)), true
		}
	}
	return 0, false
}

func (a arrays) eofTrans(cs int) (int, int64, bool) {
	pos := a.t.EOFTrans.At(cs)
	if pos == 0 {
		return 0, 0, false
	}
	slot := idx(pos - 1)
	return conv.Int64ToInt(a.t.TransTargs.At(slot)), a.t.TransActions.At(slot), true
}

func (a arrays) toState(cs int) int64    { return a.t.ToStateActions.At(cs) }
func (a arrays) fromState(cs int) int64  { return a.t.FromStateActions.At(cs) }
func (a arrays) eofActions(cs int) int64 { return a.t.EOFActions.At(cs) }

func (a arrays) actions(ref int64) []int64 {
	return a.t.ActionList(ref)
}

// tableLocator binary-searches the singles, then the ranges of a state.
type tableLocator struct {
	arrays
}

func (l tableLocator) locate(cs int, key fsm.Key) (int, int64) {
	t := l.t
	keys := idx(t.KeyOffsets.At(cs))
	slot := idx(t.IndexOffsets.At(cs))
	k := int64(key)

	if n := idx(t.SingleLengths.At(cs)); n > 0 {
		lo, hi := keys, keys+n-1
		for lo <= hi {
			mid := lo + (hi-lo)>>1
			switch v := t.TransKeys.At(mid); {
			case k < v:
				hi = mid - 1
			case k > v:
				lo = mid + 1
			default:
				return l.trans(slot + mid - keys)
			}
		}
		keys += n
		slot += n
	}

	if n := idx(t.RangeLengths.At(cs)); n > 0 {
		lo, hi := 0, n-1
		for lo <= hi {
			mid := lo + (hi-lo)>>1
			pos := keys + 2*mid
			switch {
			case k < t.TransKeys.At(pos):
				hi = mid - 1
			case k > t.TransKeys.At(pos + 1):
				lo = mid + 1
			default:
				return l.trans(slot + mid)
			}
		}
		slot += n
	}
	return l.trans(slot)
}

// flatLocator indexes the state's key span directly; keys outside the span
// take the slot after it, which holds the default.
type flatLocator struct {
	arrays
}

func (l flatLocator) locate(cs int, key fsm.Key) (int, int64) {
	t := l.t
	off := idx(t.IndexOffsets.At(cs))
	span := idx(t.KeySpans.At(cs))
	lo, hi := t.FlatKeys.At(2*cs), t.FlatKeys.At(2*cs+1)
	slot := off + span
	if k := int64(key); span > 0 && k >= lo && k <= hi {
		slot = off + int(k-lo)
	}
	return l.trans(slot)
}

// gotoLocator walks the per-state comparison trees of a goto program.
type gotoLocator struct {
	states []*codegen.StateCode
	lists  [][]int64
}

func newGotoLocator(p *codegen.Program) *gotoLocator {
	l := &gotoLocator{states: p.States, lists: make([][]int64, len(p.Lists))}
	for i, list := range p.Lists {
		l.lists[i] = make([]int64, len(list))
		for j, id := range list {
			l.lists[i][j] = int64(id)
		}
	}
	return l
}

func transRef(t *compact.Trans) (int, int64) {
	return int(t.Target), listRef(t.Action)
}

func listRef(list int) int64 {
	return int64(list) + 1
}

func (l *gotoLocator) condSpace(cs int, raw fsm.Key) (int, bool) {
	return l.states[cs].CondSpace(raw)
}

func (l *gotoLocator) locate(cs int, key fsm.Key) (int, int64) {
	return transRef(l.states[cs].Locate(key))
}

func (l *gotoLocator) eofTrans(cs int) (int, int64, bool) {
	t := l.states[cs].EOFTrans
	if t == nil {
		return 0, 0, false
	}
	target, acts := transRef(t)
	return target, acts, true
}

func (l *gotoLocator) toState(cs int) int64    { return listRef(l.states[cs].ToState) }
func (l *gotoLocator) fromState(cs int) int64  { return listRef(l.states[cs].FromState) }
func (l *gotoLocator) eofActions(cs int) int64 { return listRef(l.states[cs].EOF) }

func (l *gotoLocator) actions(ref int64) []int64 {
	if ref <= 0 {
		return nil
	}
	return l.lists[ref-1]
}
