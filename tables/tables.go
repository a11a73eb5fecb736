// Package tables serializes a reduced machine into the flat integer arrays the
// table-driven and flat-driven matchers read.
//
// Two layouts are supported:
//
// LayoutTable stores, per state, its sorted single keys followed by its range
// bounds in trans_keys; the matcher binary-searches them. Transitions are
// either listed inline per state (direct) or through the indicies array into a
// deduplicated transition table, as chosen by compact.Decide.
//
// LayoutFlat stores, per state, the [lo, hi] key span of its non-default
// transitions and one indicies slot per key in the span followed by the
// default; the matcher indexes it directly.
//
// Action references are 0 for "none" and 1+listID otherwise; eof_trans entries
// are 0 for "none" and 1+position in trans_targs otherwise.
package tables

import (
	"fmt"

	"github.com/coregx/fsmc/compact"
	"github.com/coregx/fsmc/fsm"
	"github.com/coregx/fsmc/hosttype"
)

// Layout selects the array layout.
type Layout uint8

const (
	// LayoutTable is the binary-search layout.
	LayoutTable Layout = iota
	// LayoutFlat is the direct-index layout.
	LayoutFlat
)

// String returns the layout name.
func (l Layout) String() string {
	if l == LayoutFlat {
		return "flat"
	}
	return "table"
}

// DefaultMaxFlatSpan bounds the key span of one state in the flat layout.
const DefaultMaxFlatSpan = 1 << 16

// Options controls serialization.
type Options struct {
	Layout      Layout
	Host        hosttype.Table
	MaxFlatSpan int64
}

// NoError is the error-state constant emitted when the machine has none.
const NoError = -1

// Tables holds the serialized arrays of one machine.
//
// Arrays that a machine does not need are nil; Array.At reads them as zeros.
type Tables struct {
	Layout   Layout
	UseIndex bool

	// Table layout.
	KeyOffsets    *Array
	TransKeys     *Array
	SingleLengths *Array
	RangeLengths  *Array

	// Flat layout.
	FlatKeys *Array
	KeySpans *Array

	// Shared.
	IndexOffsets     *Array
	Indicies         *Array
	TransTargs       *Array
	TransActions     *Array
	CondOffsets      *Array
	CondLengths      *Array
	CondKeys         *Array
	CondSpaces       *Array
	ToStateActions   *Array
	FromStateActions *Array
	EOFActions       *Array
	EOFTrans         *Array
	Actions          *Array
	ActionOffsets    *Array

	// Arrays in emission order.
	Arrays []*Array

	Start      int64
	FirstFinal int64
	Error      int64
	Entries    map[string]int64
	Exports    map[string]int64

	numStates int
}

// NumStates returns the number of serialized states.
func (t *Tables) NumStates() int {
	return t.numStates
}

// Bytes returns the total encoded size of all arrays.
func (t *Tables) Bytes() int {
	n := 0
	for _, a := range t.Arrays {
		n += a.Bytes()
	}
	return n
}

// Lookup returns the array with the given name.
func (t *Tables) Lookup(name string) (*Array, bool) {
	for _, a := range t.Arrays {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

func actionRef(list int) int64 {
	if list < 0 {
		return 0
	}
	return int64(list) + 1
}

type serializer struct {
	r    *compact.Machine
	d    compact.Decision
	opts Options
	t    *Tables

	keyOffsets, transKeys, singleLens, rangeLens *arrayBuilder
	flatKeys, keySpans                           *arrayBuilder
	indexOffsets, indicies                       *arrayBuilder
	transTargs, transActions                     *arrayBuilder
	condOffsets, condLens, condKeys, condSpaces  *arrayBuilder
	toState, fromState, eofActions, eofTrans     *arrayBuilder
	actions, actionOffsets                       *arrayBuilder
}

func newBuilder(name string) *arrayBuilder {
	return &arrayBuilder{name: name}
}

// Serialize emits the arrays for r in strict ascending state order.
//
// If the source machine carries upstream errors nothing is produced and
// ErrUpstreamErrors is returned; this gate is checked once before any array
// is built.
func Serialize(r *compact.Machine, d compact.Decision, opts Options) (*Tables, error) {
	if r.Source != nil && r.Source.Errors > 0 {
		return nil, fmt.Errorf("%w (%d errors)", ErrUpstreamErrors, r.Source.Errors)
	}
	if opts.Host == nil {
		opts.Host = hosttype.Go()
	}
	if opts.MaxFlatSpan <= 0 {
		opts.MaxFlatSpan = DefaultMaxFlatSpan
	}

	s := &serializer{
		r:    r,
		d:    d,
		opts: opts,
		t: &Tables{
			Layout:     opts.Layout,
			UseIndex:   opts.Layout == LayoutFlat || d.UseIndex,
			Start:      int64(r.Start),
			FirstFinal: int64(r.FirstFinal),
			Error:      NoError,
			Entries:    make(map[string]int64),
			Exports:    make(map[string]int64),
			numStates:  len(r.States),
		},
		keyOffsets:    newBuilder("key_offsets"),
		transKeys:     newBuilder("trans_keys"),
		singleLens:    newBuilder("single_lengths"),
		rangeLens:     newBuilder("range_lengths"),
		flatKeys:      newBuilder("keys"),
		keySpans:      newBuilder("key_spans"),
		indexOffsets:  newBuilder("index_offsets"),
		indicies:      newBuilder("indicies"),
		transTargs:    newBuilder("trans_targs"),
		transActions:  newBuilder("trans_actions"),
		condOffsets:   newBuilder("cond_offsets"),
		condLens:      newBuilder("cond_lengths"),
		condKeys:      newBuilder("cond_keys"),
		condSpaces:    newBuilder("cond_spaces"),
		toState:       newBuilder("to_state_actions"),
		fromState:     newBuilder("from_state_actions"),
		eofActions:    newBuilder("eof_actions"),
		eofTrans:      newBuilder("eof_trans"),
		actions:       newBuilder("actions"),
		actionOffsets: newBuilder("action_offsets"),
	}
	if r.Error != fsm.NoState {
		s.t.Error = int64(r.Error)
	}
	if r.Source != nil {
		for name, id := range r.Source.Entries {
			s.t.Entries[name] = int64(id)
		}
		for name, k := range r.Source.Exports {
			s.t.Exports[name] = int64(k)
		}
	}

	s.writeActions()
	var err error
	switch opts.Layout {
	case LayoutFlat:
		err = s.writeFlat()
	default:
		s.writeTable()
	}
	if err != nil {
		return nil, err
	}
	s.writeStateArrays()

	if err := s.finish(); err != nil {
		return nil, err
	}
	return s.t, nil
}

// writeActions flattens every action list as count, ids...
func (s *serializer) writeActions() {
	for _, list := range s.r.Actions.Lists() {
		s.actionOffsets.add(int64(s.actions.len()))
		s.actions.add(int64(len(list)))
		for _, a := range list {
			s.actions.add(int64(a))
		}
	}
}

func (s *serializer) emitTrans(t *compact.Trans) {
	if s.t.UseIndex {
		s.indicies.add(int64(t.ID))
		return
	}
	s.transTargs.add(int64(t.Target))
	s.transActions.add(actionRef(t.Action))
}

func (s *serializer) writeTable() {
	indexOff := 0
	for _, st := range s.r.States {
		s.keyOffsets.add(int64(s.transKeys.len()))
		s.singleLens.add(int64(len(st.Singles)))
		s.rangeLens.add(int64(len(st.Ranges)))
		s.indexOffsets.add(int64(indexOff))

		for _, rg := range st.Singles {
			s.transKeys.add(int64(rg.Low))
		}
		for _, rg := range st.Ranges {
			s.transKeys.add(int64(rg.Low), int64(rg.High))
		}

		for _, rg := range st.Singles {
			s.emitTrans(rg.Trans)
		}
		for _, rg := range st.Ranges {
			s.emitTrans(rg.Trans)
		}
		s.emitTrans(st.Default)
		indexOff += st.TotalIndex()
	}
	// Trailing dummy so emitters never special-case the last element.
	s.transKeys.add(0)

	if s.t.UseIndex {
		s.writeTransSet()
		return
	}
	// Direct layout: eof transitions follow every state's inline block.
	for _, st := range s.r.States {
		if st.EOFTrans != nil {
			s.eofTrans.add(int64(s.transTargs.len()) + 1)
			s.transTargs.add(int64(st.EOFTrans.Target))
			s.transActions.add(actionRef(st.EOFTrans.Action))
		} else {
			s.eofTrans.add(0)
		}
	}
}

func (s *serializer) writeFlat() error {
	for _, st := range s.r.States {
		s.indexOffsets.add(int64(s.indicies.len()))
		lo, hi, ok := st.KeySpan()
		if !ok {
			// Empty span: lo > hi so no key falls inside it.
			s.flatKeys.add(1, 0)
			s.keySpans.add(0)
		} else {
			span := s.r.Keys.Span(lo, hi)
			if span > s.opts.MaxFlatSpan {
				return &SpanError{State: int(st.ID), Span: span, Limit: s.opts.MaxFlatSpan}
			}
			s.flatKeys.add(int64(lo), int64(hi))
			s.keySpans.add(span)
			for k := lo; k <= hi; k++ {
				s.indicies.add(int64(st.Locate(k).ID))
			}
		}
		s.indicies.add(int64(st.Default.ID))
	}
	s.writeTransSet()
	return nil
}

func (s *serializer) writeTransSet() {
	for _, t := range s.r.TransSet {
		s.transTargs.add(int64(t.Target))
		s.transActions.add(actionRef(t.Action))
	}
	for _, st := range s.r.States {
		if st.EOFTrans != nil {
			s.eofTrans.add(int64(st.EOFTrans.ID) + 1)
		} else {
			s.eofTrans.add(0)
		}
	}
}

func (s *serializer) writeStateArrays() {
	off := 0
	for _, st := range s.r.States {
		s.condOffsets.add(int64(off))
		s.condLens.add(int64(len(st.Conds)))
		for _, c := range st.Conds {
			s.condKeys.add(int64(c.Low), int64(c.High))
			s.condSpaces.add(int64(c.Space))
		}
		off += len(st.Conds)

		s.toState.add(actionRef(st.ToState))
		s.fromState.add(actionRef(st.FromState))
		s.eofActions.add(actionRef(st.EOF))
	}
}

func (s *serializer) finish() error {
	st := s.r.Stats
	type slot struct {
		b    *arrayBuilder
		dst  **Array
		keep bool
	}
	table := s.opts.Layout == LayoutTable
	slots := []slot{
		{s.keyOffsets, &s.t.KeyOffsets, table},
		{s.transKeys, &s.t.TransKeys, table},
		{s.singleLens, &s.t.SingleLengths, table},
		{s.rangeLens, &s.t.RangeLengths, table},
		{s.flatKeys, &s.t.FlatKeys, !table},
		{s.keySpans, &s.t.KeySpans, !table},
		{s.indexOffsets, &s.t.IndexOffsets, true},
		{s.indicies, &s.t.Indicies, s.t.UseIndex},
		{s.transTargs, &s.t.TransTargs, true},
		{s.transActions, &s.t.TransActions, st.AnyActions},
		{s.condOffsets, &s.t.CondOffsets, st.AnyConds},
		{s.condLens, &s.t.CondLengths, st.AnyConds},
		{s.condKeys, &s.t.CondKeys, st.AnyConds},
		{s.condSpaces, &s.t.CondSpaces, st.AnyConds},
		{s.toState, &s.t.ToStateActions, st.AnyToState},
		{s.fromState, &s.t.FromStateActions, st.AnyFromState},
		{s.eofActions, &s.t.EOFActions, st.AnyEOFActions},
		{s.eofTrans, &s.t.EOFTrans, st.AnyEOFTrans},
		{s.actions, &s.t.Actions, s.r.Actions.Len() > 0},
		{s.actionOffsets, &s.t.ActionOffsets, s.r.Actions.Len() > 0},
	}
	for _, sl := range slots {
		if !sl.keep {
			continue
		}
		a, err := sl.b.finish(s.opts.Host)
		if err != nil {
			return err
		}
		*sl.dst = a
		s.t.Arrays = append(s.t.Arrays, a)
	}
	return nil
}
