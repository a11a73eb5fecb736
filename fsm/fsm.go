// Package fsm defines the minimized automaton consumed by the compactor and
// the matcher generator.
//
// A Machine is produced once by the front end (or by Builder) and is read-only
// afterwards: compaction, serialization and code generation only derive
// auxiliary tables from it.
//
// Terminology:
//   - Trans: a transition on the closed key interval [Low, High]
//   - Default: the catch-all transition taken when nothing else matches
//   - CondSpace: a set of boolean predicates that widen the input symbol
//   - Action: a shared list of inline operations referenced by ID
package fsm

import "fmt"

// StateID is a dense state identifier in [0, len(Machine.States)).
type StateID int

// NoState marks an absent state reference (for example "no error state").
const NoState StateID = -1

// Trans is a transition on the closed key interval [Low, High].
// Single-key transitions have Low == High.
type Trans struct {
	Low     Key
	High    Key
	Target  StateID
	Actions []int // ordered action IDs, nil when the transition runs nothing
}

// StateCond applies a condition space to keys in [Low, High] while the
// automaton is in the owning state.
type StateCond struct {
	Low   Key
	High  Key
	Space int
}

// State is one automaton state.
type State struct {
	ID   StateID
	Name string

	// Out holds the outgoing transitions sorted by Low and non-overlapping.
	Out []Trans

	// Default is taken when no transition in Out matches. Nil means the
	// compactor picks one.
	Default *Trans

	// EOFTrans is taken when end of input is reached in this state.
	EOFTrans *Trans

	// ToState runs when entering the state, FromState before consuming a
	// symbol in it, EOF at end of input when no EOFTrans exists.
	ToState   []int
	FromState []int
	EOF       []int

	// Conds lists the condition spaces active in this state, sorted by Low.
	Conds []StateCond

	Final bool
}

// CondSpace is a condition expansion point: keys guarded by it are widened to
// BaseKey + (raw - Min) plus a power-of-two multiple of the alphabet size for
// each predicate that holds.
type CondSpace struct {
	ID      int
	BaseKey Key
	Conds   []int // predicate action IDs in declaration order
}

// Machine is a deterministic, minimized automaton ready for compaction.
type Machine struct {
	Name string
	Keys KeyOps

	States     []*State
	Actions    []*Action
	CondSpaces []*CondSpace

	Start      StateID
	FirstFinal StateID // len(States) when there are no final states
	Error      StateID // NoState when the machine has no error state

	// Entries maps named sub-machine entry points to their start states.
	Entries map[string]StateID

	// Exports maps exported names to alphabet keys.
	Exports map[string]Key

	// StackSize bounds the call stack used by Call/Ret items.
	StackSize int

	// Errors counts upstream errors. The serializer refuses to emit anything
	// when it is non-zero.
	Errors int
}

// State returns the state with the given ID, or nil if out of range.
func (m *Machine) State(id StateID) *State {
	if id < 0 || int(id) >= len(m.States) {
		return nil
	}
	return m.States[id]
}

// Action returns the action with the given ID, or nil if out of range.
func (m *Machine) Action(id int) *Action {
	if id < 0 || id >= len(m.Actions) {
		return nil
	}
	return m.Actions[id]
}

// CondSpace returns the condition space with the given ID, or nil.
func (m *Machine) CondSpace(id int) *CondSpace {
	if id < 0 || id >= len(m.CondSpaces) {
		return nil
	}
	return m.CondSpaces[id]
}

// Lookup returns the ID of the state with the given name.
func (m *Machine) Lookup(name string) (StateID, bool) {
	for _, s := range m.States {
		if s.Name == name {
			return s.ID, true
		}
	}
	return NoState, false
}

// NumStates returns the number of states.
func (m *Machine) NumStates() int {
	return len(m.States)
}

// HasError reports whether the machine has a designated error state.
func (m *Machine) HasError() bool {
	return m.Error != NoState
}

// AnyConds reports whether any state uses a condition space.
func (m *Machine) AnyConds() bool {
	for _, s := range m.States {
		if len(s.Conds) > 0 {
			return true
		}
	}
	return false
}

// AnyItem reports whether any action contains an item of kind k.
func (m *Machine) AnyItem(k ItemKind) bool {
	for _, a := range m.Actions {
		if a.HasKind(k) {
			return true
		}
	}
	return false
}

// String returns a short summary of the machine.
func (m *Machine) String() string {
	return fmt.Sprintf("Machine(%s, states=%d, actions=%d, condSpaces=%d, start=%d, firstFinal=%d, error=%d)",
		m.Name, len(m.States), len(m.Actions), len(m.CondSpaces), m.Start, m.FirstFinal, m.Error)
}
