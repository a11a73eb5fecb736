// Package exec runs compiled matchers in process.
//
// A Runner interprets the same artifacts a back end renders: the serialized
// arrays for the table and flat styles, the per-state comparison trees for
// the goto and split styles. Its loop follows the program's phase skeleton,
// so a Runner behaves like the generated procedure would, including the
// suspend/resume protocol: Exec consumes one buffer and returns with the
// State positioned for the next one.
//
// A Runner is immutable and safe for concurrent use; every concurrent run
// needs its own State.
package exec

import (
	"fmt"

	"github.com/coregx/fsmc/codegen"
	"github.com/coregx/fsmc/cond"
	"github.com/coregx/fsmc/fsm"
)

// Runner executes one compiled machine.
type Runner struct {
	prog *codegen.Program
	m    *fsm.Machine
	loc  locator

	start      int
	firstFinal int
	errState   int // -1 without an error state

	has [codegen.PhaseOut + 1]bool
}

// New builds a runner for a compiled program.
func New(p *codegen.Program) (*Runner, error) {
	if p == nil {
		return nil, ErrNoProgram
	}
	r := &Runner{
		prog:       p,
		m:          p.Machine,
		start:      int(p.Machine.Start),
		firstFinal: int(p.Machine.FirstFinal),
		errState:   int(p.Machine.Error),
	}

	switch p.Style() {
	case codegen.StyleTable, codegen.StyleFlat:
		if p.Tables == nil {
			return nil, fmt.Errorf("%w: style %s", codegen.ErrMissingTables, p.Style())
		}
		a := arrays{t: p.Tables}
		if p.Style() == codegen.StyleFlat {
			r.loc = flatLocator{a}
		} else {
			r.loc = tableLocator{a}
		}
		r.start = int(p.Tables.Start)
		r.firstFinal = int(p.Tables.FirstFinal)
		r.errState = int(p.Tables.Error)
	default:
		r.loc = newGotoLocator(p)
	}

	for _, s := range p.Steps {
		r.has[s.Phase] = true
	}
	return r, nil
}

// Program returns the program the runner executes.
func (r *Runner) Program() *codegen.Program {
	return r.prog
}

// Init resets st to the start state with an empty stack and no token.
func (r *Runner) Init(st *State) {
	st.CS = r.start
	st.P = 0
	st.Top = 0
	st.TS = -1
	st.TE = -1
	st.Act = 0
	if cap(st.Stack) >= r.m.StackSize {
		st.Stack = st.Stack[:r.m.StackSize]
	} else {
		st.Stack = make([]int, r.m.StackSize)
	}
}

// Entry returns the state ID of a named entry point.
func (r *Runner) Entry(name string) (int, bool) {
	id, ok := r.m.Entries[name]
	return int(id), ok
}

// Accepts reports whether st is in a final state.
func (r *Runner) Accepts(st *State) bool {
	return st.CS >= r.firstFinal
}

// Failed reports whether st is in the error state.
func (r *Runner) Failed(st *State) bool {
	return r.errState >= 0 && st.CS == r.errState
}

// Exec runs the machine over data, whose first byte is at absolute position
// st.P. When eof is true the end of data is the end of input and eof
// transitions and actions run. Bytes are mapped to keys through the
// machine's alphabet, so a signed alphabet sees 0xFF as -1.
func (r *Runner) Exec(st *State, data []byte, eof bool, h Host) error {
	return r.run(st, data, nil, st.P, eof, h)
}

// ExecKeys is Exec for machines over alphabets wider than a byte.
func (r *Runner) ExecKeys(st *State, keys []fsm.Key, eof bool, h Host) error {
	return r.run(st, nil, keys, st.P, eof, h)
}

// control is the effect of an action list on the loop.
type control uint8

const (
	ctlNone  control = iota
	ctlJump          // goto, call or ret: continue at Again
	ctlBreak         // break: advance and leave
)

type run struct {
	r     *Runner
	st    *State
	h     Host
	frame Frame
	eof   bool
}

func (r *Runner) run(st *State, data []byte, keys []fsm.Key, base int, eof bool, h Host) error {
	if h == nil {
		h = NopHost{}
	}
	x := &run{
		r:     r,
		st:    st,
		h:     h,
		frame: Frame{State: st, Base: base, Data: data, Keys: keys},
		eof:   eof,
	}
	return x.loop()
}

func (x *run) pe() int {
	if x.frame.Keys != nil {
		return x.frame.Base + len(x.frame.Keys)
	}
	return x.frame.Base + len(x.frame.Data)
}

func (x *run) key(p int) fsm.Key {
	i := p - x.frame.Base
	if x.frame.Keys != nil {
		return x.frame.Keys[i]
	}
	return x.r.m.Keys.FromSymbol(uint32(x.frame.Data[i]))
}

// loop is the phase loop of the generated procedure.
func (x *run) loop() error {
	r, st, loc := x.r, x.st, x.r.loc
	pe := x.pe()

	var (
		target int
		acts   int64
	)

	ph := codegen.PhaseResume
	switch {
	case st.P >= pe:
		ph = codegen.PhaseTestEOF
	case r.errState >= 0 && st.CS == r.errState:
		ph = codegen.PhaseOut
	}

	for {
		switch ph {
		case codegen.PhaseResume:
			if ref := loc.fromState(st.CS); ref > 0 {
				ctl, err := x.runList(ref, false)
				if err != nil {
					return err
				}
				if ctl == ctlJump {
					ph = codegen.PhaseAgain
					continue
				}
				if ctl == ctlBreak {
					st.P++
					ph = codegen.PhaseOut
					continue
				}
			}
			if st.P < x.frame.Base {
				return fmt.Errorf("%w: p=%d, buffer starts at %d", ErrBufferUnderflow, st.P, x.frame.Base)
			}
			x.frame.Key = x.key(st.P)
			ph = codegen.PhaseLocate
			if r.has[codegen.PhaseCondTranslate] {
				ph = codegen.PhaseCondTranslate
			}

		case codegen.PhaseCondTranslate:
			if space, ok := loc.condSpace(st.CS, x.frame.Key); ok {
				x.frame.Key = x.widen(space, x.frame.Key)
			}
			ph = codegen.PhaseLocate

		case codegen.PhaseLocate:
			target, acts = loc.locate(st.CS, x.frame.Key)
			ph = codegen.PhaseApply

		case codegen.PhaseEOFTrans:
			target, acts, _ = loc.eofTrans(st.CS)
			ph = codegen.PhaseApply

		case codegen.PhaseApply:
			st.CS = target
			ph = codegen.PhaseAgain
			if acts > 0 {
				ph = codegen.PhaseDispatch
			}

		case codegen.PhaseDispatch:
			ctl, err := x.runList(acts, false)
			if err != nil {
				return err
			}
			ph = codegen.PhaseAgain
			if ctl == ctlBreak {
				st.P++
				ph = codegen.PhaseOut
			}

		case codegen.PhaseAgain:
			ph = codegen.PhaseAdvance
			if ref := loc.toState(st.CS); ref > 0 {
				ctl, err := x.runList(ref, false)
				if err != nil {
					return err
				}
				switch ctl {
				case ctlJump:
					ph = codegen.PhaseAgain
				case ctlBreak:
					st.P++
					ph = codegen.PhaseOut
				}
			}

		case codegen.PhaseAdvance:
			if r.errState >= 0 && st.CS == r.errState {
				ph = codegen.PhaseOut
				continue
			}
			st.P++
			switch {
			case st.P < pe:
				ph = codegen.PhaseResume
			case st.P == pe:
				ph = codegen.PhaseTestEOF
			default:
				// Past the end after an eof transition that did not hold.
				ph = codegen.PhaseOut
			}

		case codegen.PhaseTestEOF:
			ph = codegen.PhaseOut
			if !x.eof || st.P != pe {
				continue
			}
			if r.has[codegen.PhaseEOFTrans] {
				if _, _, ok := loc.eofTrans(st.CS); ok {
					ph = codegen.PhaseEOFTrans
					continue
				}
			}
			if ref := loc.eofActions(st.CS); ref > 0 {
				if _, err := x.runList(ref, true); err != nil {
					return err
				}
			}

		case codegen.PhaseOut:
			return nil

		default:
			panic(fmt.Sprintf("exec: unexpected phase %s", ph))
		}
	}
}

// widen computes the widened key of raw under a condition space, evaluating
// its predicates through the host.
func (x *run) widen(space int, raw fsm.Key) fsm.Key {
	m := x.r.m
	cs := m.CondSpace(space)
	return cond.Widen(m.Keys, cs, raw, func(i int) bool {
		return x.h.Cond(m.Action(cs.Conds[i]), raw)
	})
}
