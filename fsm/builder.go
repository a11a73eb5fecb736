package fsm

import (
	"cmp"
	"fmt"
	"slices"
)

// Builder constructs machines incrementally using a low-level API.
//
// Methods that receive an invalid state or action ID record the first error
// and turn every later call into a no-op; Build reports it.
type Builder struct {
	name      string
	keys      KeyOps
	states    []*State
	actions   []*Action
	spaces    []*CondSpace
	start     StateID
	errState  StateID
	entries   map[string]StateID
	exports   map[string]Key
	stackSize int
	err       error
}

// NewBuilder creates a builder for a machine over the given alphabet.
func NewBuilder(name string, keys KeyOps) *Builder {
	return &Builder{
		name:     name,
		keys:     keys,
		states:   make([]*State, 0, 16),
		start:    NoState,
		errState: NoState,
		entries:  make(map[string]StateID),
		exports:  make(map[string]Key),
	}
}

// AddState adds an anonymous state and returns its ID.
func (b *Builder) AddState() StateID {
	return b.AddNamedState("")
}

// AddNamedState adds a state carrying a name, used by Machine.Lookup.
func (b *Builder) AddNamedState(name string) StateID {
	id := StateID(len(b.states))
	b.states = append(b.states, &State{ID: id, Name: name})
	return id
}

// AddAction registers a shared action and returns its ID.
func (b *Builder) AddAction(name string, items ...InlineItem) int {
	id := len(b.actions)
	b.actions = append(b.actions, &Action{ID: id, Name: name, Items: items})
	return id
}

// SetActionSource records where the body of an action was written.
func (b *Builder) SetActionSource(id int, file string, line int) {
	if id < 0 || id >= len(b.actions) {
		b.fail(NoState, fmt.Sprintf("unknown action %d", id))
		return
	}
	b.actions[id].File = file
	b.actions[id].Line = line
}

// AddRange adds a transition on [lo, hi] from one state to another.
func (b *Builder) AddRange(from StateID, lo, hi Key, to StateID, actions ...int) {
	s := b.state(from)
	if s == nil {
		return
	}
	if hi < lo {
		b.fail(from, fmt.Sprintf("inverted range [%d, %d]", lo, hi))
		return
	}
	s.Out = append(s.Out, Trans{Low: lo, High: hi, Target: to, Actions: actions})
}

// AddKey adds a single-key transition.
func (b *Builder) AddKey(from StateID, key Key, to StateID, actions ...int) {
	b.AddRange(from, key, key, to, actions...)
}

// SetDefault sets the transition taken when no key transition matches.
func (b *Builder) SetDefault(from, to StateID, actions ...int) {
	if s := b.state(from); s != nil {
		s.Default = &Trans{Target: to, Actions: actions}
	}
}

// SetEOFTrans sets the transition taken at end of input.
func (b *Builder) SetEOFTrans(from, to StateID, actions ...int) {
	if s := b.state(from); s != nil {
		s.EOFTrans = &Trans{Target: to, Actions: actions}
	}
}

// SetToStateActions sets the actions run when entering the state.
func (b *Builder) SetToStateActions(id StateID, actions ...int) {
	if s := b.state(id); s != nil {
		s.ToState = actions
	}
}

// SetFromStateActions sets the actions run before consuming a symbol in the state.
func (b *Builder) SetFromStateActions(id StateID, actions ...int) {
	if s := b.state(id); s != nil {
		s.FromState = actions
	}
}

// SetEOFActions sets the actions run at end of input in the state.
func (b *Builder) SetEOFActions(id StateID, actions ...int) {
	if s := b.state(id); s != nil {
		s.EOF = actions
	}
}

// AddCondSpace registers a condition space and returns its ID.
func (b *Builder) AddCondSpace(base Key, preds ...int) int {
	id := len(b.spaces)
	b.spaces = append(b.spaces, &CondSpace{ID: id, BaseKey: base, Conds: preds})
	return id
}

// AddStateCond applies a condition space to keys [lo, hi] of a state.
func (b *Builder) AddStateCond(id StateID, lo, hi Key, space int) {
	if s := b.state(id); s != nil {
		s.Conds = append(s.Conds, StateCond{Low: lo, High: hi, Space: space})
	}
}

// SetFinal marks a state as accepting.
func (b *Builder) SetFinal(id StateID) {
	if s := b.state(id); s != nil {
		s.Final = true
	}
}

// SetError designates the error state.
func (b *Builder) SetError(id StateID) {
	if b.state(id) != nil {
		b.errState = id
	}
}

// SetStart designates the start state.
func (b *Builder) SetStart(id StateID) {
	if b.state(id) != nil {
		b.start = id
	}
}

// AddEntry names a sub-machine entry point.
func (b *Builder) AddEntry(name string, id StateID) {
	if b.state(id) != nil {
		b.entries[name] = id
	}
}

// AddExport exports a named alphabet key.
func (b *Builder) AddExport(name string, key Key) {
	b.exports[name] = key
}

// SetStackSize sets the call stack depth used by Call items.
func (b *Builder) SetStackSize(n int) {
	b.stackSize = n
}

func (b *Builder) state(id StateID) *State {
	if b.err != nil {
		return nil
	}
	if id < 0 || int(id) >= len(b.states) {
		b.fail(id, "no such state")
		return nil
	}
	return b.states[id]
}

func (b *Builder) fail(id StateID, msg string) {
	if b.err == nil {
		b.err = &BuildError{Message: msg, StateID: id}
	}
}

// Build finalizes the machine.
//
// Transitions and condition ranges are sorted by low key. States are
// renumbered (stably) so that final states form a contiguous tail starting at
// FirstFinal; every state reference, including inline Goto/Call/Next targets,
// is rewritten accordingly.
func (b *Builder) Build() (*Machine, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.keys.Validate(); err != nil {
		return nil, &BuildError{Message: err.Error(), StateID: NoState}
	}
	if b.start == NoState {
		return nil, &BuildError{Message: ErrNoStart.Error(), StateID: NoState}
	}
	if err := b.checkRefs(); err != nil {
		return nil, err
	}

	remap := b.finalOrder()
	re := func(id StateID) StateID {
		if id == NoState {
			return NoState
		}
		return remap[id]
	}

	m := &Machine{
		Name:       b.name,
		Keys:       b.keys,
		States:     make([]*State, len(b.states)),
		Actions:    make([]*Action, len(b.actions)),
		CondSpaces: b.spaces,
		Start:      re(b.start),
		Error:      re(b.errState),
		Entries:    make(map[string]StateID, len(b.entries)),
		Exports:    b.exports,
		StackSize:  b.stackSize,
	}
	for name, id := range b.entries {
		m.Entries[name] = re(id)
	}
	for i, a := range b.actions {
		m.Actions[i] = &Action{ID: a.ID, Name: a.Name, Items: remapItems(a.Items, re), File: a.File, Line: a.Line}
	}
	for _, s := range b.states {
		ns := &State{
			ID:        re(s.ID),
			Name:      s.Name,
			Out:       make([]Trans, len(s.Out)),
			ToState:   s.ToState,
			FromState: s.FromState,
			EOF:       s.EOF,
			Conds:     slices.Clone(s.Conds),
			Final:     s.Final,
		}
		for i, t := range s.Out {
			t.Target = re(t.Target)
			ns.Out[i] = t
		}
		slices.SortStableFunc(ns.Out, func(x, y Trans) int { return cmp.Compare(x.Low, y.Low) })
		slices.SortStableFunc(ns.Conds, func(x, y StateCond) int { return cmp.Compare(x.Low, y.Low) })
		if s.Default != nil {
			d := *s.Default
			d.Target = re(d.Target)
			ns.Default = &d
		}
		if s.EOFTrans != nil {
			e := *s.EOFTrans
			e.Target = re(e.Target)
			ns.EOFTrans = &e
		}
		m.States[ns.ID] = ns
	}

	m.FirstFinal = StateID(len(m.States))
	for _, s := range m.States {
		if s.Final {
			m.FirstFinal = s.ID
			break
		}
	}
	return m, nil
}

// finalOrder returns old ID -> new ID with non-final states first.
func (b *Builder) finalOrder() []StateID {
	remap := make([]StateID, len(b.states))
	next := StateID(0)
	for _, s := range b.states {
		if !s.Final {
			remap[s.ID] = next
			next++
		}
	}
	for _, s := range b.states {
		if s.Final {
			remap[s.ID] = next
			next++
		}
	}
	return remap
}

func (b *Builder) checkRefs() error {
	n := StateID(len(b.states))
	badState := func(id StateID) bool { return id < 0 || id >= n }
	badActions := func(list []int) bool {
		for _, a := range list {
			if a < 0 || a >= len(b.actions) {
				return true
			}
		}
		return false
	}

	for _, s := range b.states {
		trans := s.Out
		if s.Default != nil {
			trans = append(slices.Clip(trans), *s.Default)
		}
		if s.EOFTrans != nil {
			trans = append(slices.Clip(trans), *s.EOFTrans)
		}
		for _, t := range trans {
			if badState(t.Target) {
				return &BuildError{Message: fmt.Sprintf("transition target %d: %v", t.Target, ErrInvalidState), StateID: s.ID}
			}
			if badActions(t.Actions) {
				return &BuildError{Message: ErrInvalidAction.Error(), StateID: s.ID}
			}
		}
		if badActions(s.ToState) || badActions(s.FromState) || badActions(s.EOF) {
			return &BuildError{Message: ErrInvalidAction.Error(), StateID: s.ID}
		}
		for _, c := range s.Conds {
			if c.Space < 0 || c.Space >= len(b.spaces) {
				return &BuildError{Message: fmt.Sprintf("condition space %d does not exist", c.Space), StateID: s.ID}
			}
		}
	}
	for _, cs := range b.spaces {
		if badActions(cs.Conds) {
			return &BuildError{Message: fmt.Sprintf("condition space %d: %v", cs.ID, ErrInvalidAction), StateID: NoState}
		}
	}
	for _, a := range b.actions {
		if err := checkItemTargets(a.Items, badState); err != nil {
			return err
		}
	}
	return nil
}

func checkItemTargets(items []InlineItem, bad func(StateID) bool) error {
	for _, it := range items {
		switch it.Kind {
		case ItemGoto, ItemNext, ItemCall:
			if bad(it.Target) {
				return &BuildError{Message: fmt.Sprintf("%s target: %v", it.Kind, ErrInvalidState), StateID: it.Target}
			}
		case ItemLmSwitch:
			for _, c := range it.Cases {
				if err := checkItemTargets(c.Items, bad); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func remapItems(items []InlineItem, re func(StateID) StateID) []InlineItem {
	if items == nil {
		return nil
	}
	out := make([]InlineItem, len(items))
	for i, it := range items {
		switch it.Kind {
		case ItemGoto, ItemNext, ItemCall:
			it.Target = re(it.Target)
		case ItemLmSwitch:
			cases := make([]LmCase, len(it.Cases))
			for j, c := range it.Cases {
				cases[j] = LmCase{ID: c.ID, Items: remapItems(c.Items, re)}
			}
			it.Cases = cases
		}
		out[i] = it
	}
	return out
}
