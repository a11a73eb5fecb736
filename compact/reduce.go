// Package compact reduces a minimized automaton to the per-state encodings the
// table serializer and the matcher generator work from.
//
// For every state the compactor classifies the outgoing transitions into
// single keys, key ranges and one default transition, so that every symbol
// maps to exactly one of them. Transitions with identical (target, action
// list) are numbered once in TransSet; action sequences are interned in the
// compilation's ActionTable. Decide then picks between direct per-state
// transition arrays and a shared indirection index.
package compact

import (
	"fmt"

	"github.com/coregx/fsmc/fsm"
)

// Trans is a distinct (target, action list) pair.
type Trans struct {
	ID     int
	Target fsm.StateID
	Action int // action list ID, -1 when the transition runs nothing
}

// HasAction reports whether the transition runs an action list.
func (t *Trans) HasAction() bool {
	return t.Action >= 0
}

// Range is a key interval mapped to a transition. Singles have Low == High.
type Range struct {
	Low   fsm.Key
	High  fsm.Key
	Trans *Trans
}

// State is the compacted form of one automaton state.
type State struct {
	ID       fsm.StateID
	Singles  []Range
	Ranges   []Range
	Default  *Trans
	EOFTrans *Trans

	// Action list IDs, -1 when absent.
	ToState   int
	FromState int
	EOF       int

	Conds []fsm.StateCond
	Final bool
	Error bool
}

// TotalIndex returns the number of index slots the state occupies: its
// singles, its ranges and its default.
func (s *State) TotalIndex() int {
	n := len(s.Singles) + len(s.Ranges)
	if s.Default != nil {
		n++
	}
	return n
}

// KeySpan returns the smallest interval covering every single and range key
// of the state. ok is false for states that only have a default.
func (s *State) KeySpan() (lo, hi fsm.Key, ok bool) {
	first := true
	visit := func(r Range) {
		if first || r.Low < lo {
			lo = r.Low
		}
		if first || r.High > hi {
			hi = r.High
		}
		first = false
	}
	for _, r := range s.Singles {
		visit(r)
	}
	for _, r := range s.Ranges {
		visit(r)
	}
	return lo, hi, !first
}

// Locate returns the transition taken on key: a single, else a range, else
// the default. This is the reference lookup every generated strategy must
// agree with.
func (s *State) Locate(key fsm.Key) *Trans {
	if t := search(s.Singles, key); t != nil {
		return t
	}
	if t := search(s.Ranges, key); t != nil {
		return t
	}
	return s.Default
}

func search(list []Range, key fsm.Key) *Trans {
	lo, hi := 0, len(list)-1
	for lo <= hi {
		mid := int(uint(lo+hi) >> 1)
		switch {
		case key < list[mid].Low:
			hi = mid - 1
		case key > list[mid].High:
			lo = mid + 1
		default:
			return list[mid].Trans
		}
	}
	return nil
}

// Stats holds the machine-wide maxima that drive array element widths.
type Stats struct {
	MaxState      int
	MaxIndex      int // largest transition ID stored in an index array
	MaxActionList int // largest action list ID, -1 when there are none
	MinKey        fsm.Key
	MaxKey        fsm.Key
	MaxSpan       int64
	MaxSingleLen  int
	MaxRangeLen   int
	MaxCondSpace  int
	MaxCondLen    int

	AnyActions    bool // some transition runs actions
	AnyConds      bool
	AnyToState    bool
	AnyFromState  bool
	AnyEOFActions bool
	AnyEOFTrans   bool
}

// Machine is the reduced automaton.
type Machine struct {
	Source   *fsm.Machine
	Keys     fsm.KeyOps
	States   []*State
	TransSet []*Trans
	Actions  *ActionTable

	Start      fsm.StateID
	FirstFinal fsm.StateID
	Error      fsm.StateID

	Stats Stats

	transIDs map[transKey]*Trans
}

type transKey struct {
	target fsm.StateID
	action int
}

// Reduce compacts every state of m, interning action sequences into actions.
// m is not modified.
func Reduce(m *fsm.Machine, actions *ActionTable) *Machine {
	r := &Machine{
		Source:     m,
		Keys:       m.Keys,
		States:     make([]*State, len(m.States)),
		Actions:    actions,
		Start:      m.Start,
		FirstFinal: m.FirstFinal,
		Error:      m.Error,
		transIDs:   make(map[transKey]*Trans),
	}

	for _, s := range m.States {
		r.States[s.ID] = r.reduceState(m, s)
	}
	r.computeStats()
	return r
}

func (r *Machine) trans(target fsm.StateID, actions []int) *Trans {
	k := transKey{target: target, action: r.Actions.Intern(actions)}
	if t, ok := r.transIDs[k]; ok {
		return t
	}
	t := &Trans{ID: len(r.TransSet), Target: k.target, Action: k.action}
	r.transIDs[k] = t
	r.TransSet = append(r.TransSet, t)
	return t
}

func (r *Machine) reduceState(m *fsm.Machine, s *fsm.State) *State {
	rs := &State{
		ID:    s.ID,
		Conds: s.Conds,
		Final: s.Final,
		Error: s.ID == m.Error,
	}

	// Action lists are interned before transitions are numbered so that list
	// IDs follow source order.
	out := make([]Range, len(s.Out))
	for i, t := range s.Out {
		out[i] = Range{Low: t.Low, High: t.High, Trans: r.trans(t.Target, t.Actions)}
	}

	switch {
	case s.Default != nil:
		rs.Default = r.trans(s.Default.Target, s.Default.Actions)
	case covers(out, m.Keys):
		rs.Default = widestTrans(out, m.Keys)
		out = without(out, rs.Default)
	case m.HasError():
		rs.Default = r.trans(m.Error, nil)
	default:
		rs.Default = r.trans(s.ID, nil)
	}

	for _, rg := range out {
		if rg.Low == rg.High {
			rs.Singles = append(rs.Singles, rg)
		} else {
			rs.Ranges = append(rs.Ranges, rg)
		}
	}

	if s.EOFTrans != nil {
		rs.EOFTrans = r.trans(s.EOFTrans.Target, s.EOFTrans.Actions)
	}
	rs.ToState = r.Actions.Intern(s.ToState)
	rs.FromState = r.Actions.Intern(s.FromState)
	rs.EOF = r.Actions.Intern(s.EOF)
	return rs
}

// covers reports whether the sorted ranges cover the whole alphabet without
// gaps.
func covers(out []Range, keys fsm.KeyOps) bool {
	if len(out) == 0 {
		return false
	}
	next := keys.Min
	for _, rg := range out {
		if rg.Low != next {
			return false
		}
		next = rg.High + 1
	}
	return next == keys.Max+1
}

// widestTrans picks the transition covering the most keys; the first one
// wins ties.
func widestTrans(out []Range, keys fsm.KeyOps) *Trans {
	spans := make(map[*Trans]int64, len(out))
	var best *Trans
	for _, rg := range out {
		spans[rg.Trans] += keys.Span(rg.Low, rg.High)
	}
	for _, rg := range out {
		if best == nil || spans[rg.Trans] > spans[best] {
			best = rg.Trans
		}
	}
	return best
}

func without(out []Range, t *Trans) []Range {
	kept := out[:0]
	for _, rg := range out {
		if rg.Trans != t {
			kept = append(kept, rg)
		}
	}
	return kept
}

func (r *Machine) computeStats() {
	st := Stats{
		MaxState:      len(r.States) - 1,
		MaxIndex:      len(r.TransSet) - 1,
		MaxActionList: r.Actions.Len() - 1,
		MinKey:        r.Keys.Min,
		MaxKey:        r.Keys.Max,
		MaxCondSpace:  len(r.Source.CondSpaces) - 1,
	}
	for _, t := range r.TransSet {
		if t.HasAction() {
			st.AnyActions = true
		}
	}
	for _, s := range r.States {
		st.MaxSingleLen = max(st.MaxSingleLen, len(s.Singles))
		st.MaxRangeLen = max(st.MaxRangeLen, len(s.Ranges))
		st.MaxCondLen = max(st.MaxCondLen, len(s.Conds))
		for _, rg := range append(append([]Range(nil), s.Singles...), s.Ranges...) {
			st.MinKey = min(st.MinKey, rg.Low)
			st.MaxKey = max(st.MaxKey, rg.High)
		}
		for _, c := range s.Conds {
			st.MinKey = min(st.MinKey, c.Low)
			st.MaxKey = max(st.MaxKey, c.High)
		}
		if lo, hi, ok := s.KeySpan(); ok {
			st.MaxSpan = max(st.MaxSpan, r.Keys.Span(lo, hi))
		}
		st.AnyConds = st.AnyConds || len(s.Conds) > 0
		st.AnyToState = st.AnyToState || s.ToState >= 0
		st.AnyFromState = st.AnyFromState || s.FromState >= 0
		st.AnyEOFActions = st.AnyEOFActions || s.EOF >= 0
		st.AnyEOFTrans = st.AnyEOFTrans || s.EOFTrans != nil
	}
	r.Stats = st
}

// State returns the reduced state with the given ID.
func (r *Machine) State(id fsm.StateID) *State {
	if id < 0 || int(id) >= len(r.States) {
		return nil
	}
	return r.States[id]
}

// String returns a short summary of the reduced machine.
func (r *Machine) String() string {
	return fmt.Sprintf("Reduced(states=%d, trans=%d, actionLists=%d)",
		len(r.States), len(r.TransSet), r.Actions.Len())
}
