package exec

import "github.com/coregx/fsmc/fsm"

// State is everything the matcher keeps between invocations. Positions are
// absolute offsets into the logical input stream.
type State struct {
	// CS is the current automaton state.
	CS int

	// P is the position of the next symbol to consume.
	P int

	// Stack and Top form the call stack; Stack is allocated by Init with the
	// machine's stack size.
	Stack []int
	Top   int

	// TS and TE delimit the current longest-match token, -1 when unset.
	TS  int
	TE  int
	Act int
}

// Frame is the view of one invocation handed to host actions.
type Frame struct {
	State *State

	// Base is the absolute position of the first buffered symbol; exactly
	// one of Data and Keys holds the buffer.
	Base int
	Data []byte
	Keys []fsm.Key

	// Key is the symbol being matched, after condition widening.
	Key fsm.Key
}

// Token returns the bytes of the current token [TS, TE), or nil when either
// bound is unset or outside the buffer.
func (f *Frame) Token() []byte {
	st := f.State
	if st.TS < f.Base || st.TE < st.TS || st.TE-f.Base > len(f.Data) {
		return nil
	}
	return f.Data[st.TS-f.Base : st.TE-f.Base]
}

// Bytes returns the buffered bytes in [from, to), clamped to the buffer.
func (f *Frame) Bytes(from, to int) []byte {
	from = max(from-f.Base, 0)
	to = min(to-f.Base, len(f.Data))
	if from >= to {
		return nil
	}
	return f.Data[from:to]
}

// Host executes the literal parts of actions.
type Host interface {
	// Text runs a literal code item of action.
	Text(action *fsm.Action, text string, f *Frame)

	// Cond evaluates a condition predicate for the raw symbol key.
	Cond(pred *fsm.Action, key fsm.Key) bool
}

// NopHost ignores action text and treats every predicate as false.
type NopHost struct{}

// Text implements Host.
func (NopHost) Text(*fsm.Action, string, *Frame) {}

// Cond implements Host.
func (NopHost) Cond(*fsm.Action, fsm.Key) bool { return false }
