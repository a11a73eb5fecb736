// Package codegen builds the control-flow skeleton of a resumable matcher and
// renders it through pluggable back ends.
//
// A Program is an abstract description of the generated procedure: an ordered
// list of phases, each holding the operations it performs, the action cases
// the dispatcher switches over, the constants and arrays the matcher reads,
// and, for the goto-driven styles, one comparison tree per state.
//
// The phase order is fixed:
//
//	Resume → CondTranslate? → Locate → EOFTrans? → Apply → Dispatch? →
//	Again → ToStateActions? → Advance → TestEOF → EOFActions? → Out
//
// Optional phases are present only when the machine needs them. Advance
// loops back to Resume until the buffer is exhausted; Out is the only exit.
// The generated procedure is an explicit phase loop, so a caller suspends by
// returning from Out and resumes by calling again with the saved state.
package codegen

import (
	"fmt"
	"slices"
	"strings"

	"github.com/coregx/fsmc/compact"
	"github.com/coregx/fsmc/fsm"
	"github.com/coregx/fsmc/internal/sparse"
	"github.com/coregx/fsmc/tables"
)

// Phase is one labeled section of the matcher loop.
type Phase uint8

const (
	PhaseResume Phase = iota
	PhaseCondTranslate
	PhaseLocate
	PhaseEOFTrans
	PhaseApply
	PhaseDispatch
	PhaseAgain
	PhaseToStateActions
	PhaseAdvance
	PhaseTestEOF
	PhaseEOFActions
	PhaseOut
)

var phaseNames = [...]string{
	PhaseResume:         "resume",
	PhaseCondTranslate:  "cond_translate",
	PhaseLocate:         "locate_trans",
	PhaseEOFTrans:       "eof_trans",
	PhaseApply:          "apply",
	PhaseDispatch:       "action_dispatch",
	PhaseAgain:          "again",
	PhaseToStateActions: "to_state_actions",
	PhaseAdvance:        "advance",
	PhaseTestEOF:        "test_eof",
	PhaseEOFActions:     "eof_actions",
	PhaseOut:            "out",
}

// String returns the phase label.
func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", p)
}

// Op is one abstract operation of a phase.
type Op uint8

const (
	// OpSuspend leaves for TestEOF when the cursor reached the buffer end.
	OpSuspend Op = iota
	// OpErrorCheck leaves for Out when the current state is the error state.
	OpErrorCheck
	// OpFromStateActions runs the from-state actions of the current state.
	OpFromStateActions
	// OpCondTranslate widens the current symbol through a condition space.
	OpCondTranslate
	// OpLocateTable binary-searches singles then ranges in trans_keys.
	OpLocateTable
	// OpLocateFlat indexes the state's key span directly.
	OpLocateFlat
	// OpLocateGoto walks the state's inlined comparison tree.
	OpLocateGoto
	// OpEOFTrans selects the current state's eof transition.
	OpEOFTrans
	// OpApply sets the current state to the transition target.
	OpApply
	// OpDispatch runs the transition's action list.
	OpDispatch
	// OpToStateActions runs the to-state actions of the new state.
	OpToStateActions
	// OpAdvance moves the cursor to the next symbol.
	OpAdvance
	// OpTestEOF checks whether the cursor is at the end of input.
	OpTestEOF
	// OpEOFActions runs the eof actions of the current state.
	OpEOFActions
	// OpOut returns to the caller.
	OpOut
)

var opNames = [...]string{
	OpSuspend:          "suspend",
	OpErrorCheck:       "error_check",
	OpFromStateActions: "from_state_actions",
	OpCondTranslate:    "cond_translate",
	OpLocateTable:      "locate_table",
	OpLocateFlat:       "locate_flat",
	OpLocateGoto:       "locate_goto",
	OpEOFTrans:         "eof_trans",
	OpApply:            "apply",
	OpDispatch:         "dispatch",
	OpToStateActions:   "to_state_actions",
	OpAdvance:          "advance",
	OpTestEOF:          "test_eof",
	OpEOFActions:       "eof_actions",
	OpOut:              "out",
}

// String returns the operation name.
func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", o)
}

// Step is one phase with its operations.
type Step struct {
	Phase Phase
	Ops   []Op
}

// Has reports whether the step performs op.
func (s Step) Has(op Op) bool {
	return slices.Contains(s.Ops, op)
}

// Options controls the generated shape.
type Options struct {
	Style Style

	// Partitions is the number of state partitions for StyleSplit.
	Partitions int

	// NoEnd drops the buffer boundary checks: the whole input is available
	// in one call and the matcher never suspends. Generated code then reads
	// past the end of data unless an action stops it first, typically a
	// break on a sentinel symbol. The exec runtime still stops at the end of
	// the data it is given.
	NoEnd bool

	// NoPrefix emits constants without the machine name prefix.
	NoPrefix bool

	// NoFinal and NoError omit the first_final and error constants.
	NoFinal bool
	NoError bool

	// LineDirectives emits source positions of action bodies.
	LineDirectives bool
}

// ActionCase is one arm of the action dispatcher.
type ActionCase struct {
	ID     int
	Action *fsm.Action

	// Jumps is true when the action can transfer control back to Again
	// (goto, call or ret), which ends the action list early.
	Jumps bool
}

// Const is a named integer constant of the generated code.
type Const struct {
	Name  string
	Value int64
}

// Program is the abstract matcher.
type Program struct {
	Name     string
	Options  Options
	Machine  *fsm.Machine
	Reduced  *compact.Machine
	Decision compact.Decision

	// Tables is set for the table-driven styles.
	Tables *tables.Tables

	Steps   []Step
	Consts  []Const
	Actions []ActionCase
	Lists   [][]int

	// States holds the per-state code of the goto-driven styles, indexed
	// by state ID.
	States []*StateCode

	HasStack bool

	// HasLongestMatch is set when some action reads or writes ts, te or act.
	HasLongestMatch bool
}

// Style returns the program style.
func (p *Program) Style() Style {
	return p.Options.Style
}

// Step returns the step of phase ph.
func (p *Program) Step(ph Phase) (Step, bool) {
	for _, s := range p.Steps {
		if s.Phase == ph {
			return s, true
		}
	}
	return Step{}, false
}

// HasPhase reports whether the program contains phase ph.
func (p *Program) HasPhase(ph Phase) bool {
	_, ok := p.Step(ph)
	return ok
}

// Prefix returns the identifier prefix for generated names.
func (p *Program) Prefix() string {
	if p.Options.NoPrefix || p.Name == "" {
		return ""
	}
	return p.Name + "_"
}

// Const returns the value of the named constant.
func (p *Program) Const(name string) (int64, bool) {
	for _, c := range p.Consts {
		if c.Name == name {
			return c.Value, true
		}
	}
	return 0, false
}

// String returns a one-line summary.
func (p *Program) String() string {
	phases := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		phases[i] = s.Phase.String()
	}
	return fmt.Sprintf("Program(%s, style=%s, phases=[%s])",
		p.Name, p.Options.Style, strings.Join(phases, " "))
}

// Build assembles the matcher program for a reduced machine.
//
// t must be the serialized arrays for the table-driven styles and is ignored
// by the goto-driven ones.
func Build(r *compact.Machine, d compact.Decision, t *tables.Tables, opts Options) (*Program, error) {
	if opts.Style.UsesTables() {
		if t == nil {
			return nil, fmt.Errorf("%w: style %s", ErrMissingTables, opts.Style)
		}
		if t.Layout != opts.Style.Layout() {
			return nil, fmt.Errorf("%w: style %s, layout %s", ErrLayoutMismatch, opts.Style, t.Layout)
		}
	} else {
		t = nil
	}

	m := r.Source
	p := &Program{
		Name:     m.Name,
		Options:  opts,
		Machine:  m,
		Reduced:  r,
		Decision: d,
		Tables:   t,
		Lists:    r.Actions.Lists(),
	}
	p.HasStack = m.AnyItem(fsm.ItemCall) || m.AnyItem(fsm.ItemRet)
	p.HasLongestMatch = m.AnyItem(fsm.ItemInitTokStart) || m.AnyItem(fsm.ItemSetTokStart) ||
		m.AnyItem(fsm.ItemSetTokEnd) || m.AnyItem(fsm.ItemLmSwitch) ||
		m.AnyItem(fsm.ItemExec) || m.AnyItem(fsm.ItemInitAct) || m.AnyItem(fsm.ItemSetAct)

	p.buildSteps()
	p.buildConsts()
	p.buildActions()
	if !opts.Style.UsesTables() {
		p.buildStates()
	}
	return p, nil
}

func (p *Program) buildSteps() {
	st := p.Reduced.Stats
	noEnd := p.Options.NoEnd
	hasError := p.Reduced.Error != fsm.NoState

	add := func(ph Phase, ops ...Op) {
		p.Steps = append(p.Steps, Step{Phase: ph, Ops: ops})
	}

	var resume []Op
	if !noEnd {
		resume = append(resume, OpSuspend)
	}
	if hasError {
		resume = append(resume, OpErrorCheck)
	}
	if st.AnyFromState {
		resume = append(resume, OpFromStateActions)
	}
	add(PhaseResume, resume...)

	if st.AnyConds {
		add(PhaseCondTranslate, OpCondTranslate)
	}
	switch p.Options.Style {
	case StyleFlat:
		add(PhaseLocate, OpLocateFlat)
	case StyleGoto, StyleSplit:
		add(PhaseLocate, OpLocateGoto)
	default:
		add(PhaseLocate, OpLocateTable)
	}
	if st.AnyEOFTrans {
		add(PhaseEOFTrans, OpEOFTrans)
	}
	add(PhaseApply, OpApply)
	if st.AnyActions {
		add(PhaseDispatch, OpDispatch)
	}
	add(PhaseAgain)
	if st.AnyToState {
		add(PhaseToStateActions, OpToStateActions)
	}

	advance := []Op{}
	if hasError {
		advance = append(advance, OpErrorCheck)
	}
	advance = append(advance, OpAdvance)
	if !noEnd {
		advance = append(advance, OpSuspend)
	}
	add(PhaseAdvance, advance...)

	add(PhaseTestEOF, OpTestEOF)
	if st.AnyEOFActions {
		add(PhaseEOFActions, OpEOFActions)
	}
	add(PhaseOut, OpOut)
}

func (p *Program) buildConsts() {
	m := p.Machine
	pre := p.Prefix()
	add := func(name string, v int64) {
		p.Consts = append(p.Consts, Const{Name: pre + name, Value: v})
	}

	add("start", int64(m.Start))
	if !p.Options.NoFinal {
		add("first_final", int64(m.FirstFinal))
	}
	if !p.Options.NoError {
		errState := int64(tables.NoError)
		if m.Error != fsm.NoState {
			errState = int64(m.Error)
		}
		add("error", errState)
	}

	// Entries and exports are maps; emit them in name order.
	for _, name := range sortedKeys(m.Entries) {
		add("en_"+name, int64(m.Entries[name]))
	}
	for _, name := range sortedKeys(m.Exports) {
		add("ex_"+name, int64(m.Exports[name]))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// buildActions emits one dispatcher case per action referenced by some
// action list, in action ID order.
func (p *Program) buildActions() {
	used := sparse.New[int](len(p.Machine.Actions))
	for _, list := range p.Lists {
		for _, id := range list {
			used.Insert(id)
		}
	}
	ids := slices.Clone(used.Values())
	slices.Sort(ids)

	for _, id := range ids {
		a := p.Machine.Action(id)
		p.Actions = append(p.Actions, ActionCase{
			ID:     id,
			Action: a,
			Jumps:  a.HasKind(fsm.ItemGoto) || a.HasKind(fsm.ItemCall) || a.HasKind(fsm.ItemRet),
		})
	}
}
