package codegen

import (
	"github.com/coregx/fsmc/compact"
	"github.com/coregx/fsmc/cond"
	"github.com/coregx/fsmc/fsm"
	"github.com/coregx/fsmc/internal/bisect"
)

// Tree is the comparison cascade of one state; node values are transitions.
type Tree = bisect.Node[*compact.Trans]

// StateCode is the inlined code of one state in the goto-driven styles.
type StateCode struct {
	ID        fsm.StateID
	Partition int

	// Tree covers the state's singles and ranges; keys it does not match
	// take Default. Nil when the state has only a default.
	Tree    *Tree
	Default *compact.Trans

	// Conds is the condition cascade, nil without conditions.
	Conds *cond.Tree

	EOFTrans *compact.Trans

	// Action list IDs, -1 when absent.
	ToState   int
	FromState int
	EOF       int

	Final bool
}

// Locate walks the state's cascade for key, falling back to the default.
func (s *StateCode) Locate(key fsm.Key) *compact.Trans {
	if t, ok := s.Tree.Find(key); ok {
		return t
	}
	return s.Default
}

// CondSpace returns the condition space covering raw, if any.
func (s *StateCode) CondSpace(raw fsm.Key) (int, bool) {
	return s.Conds.Find(raw)
}

// buildStates builds the per-state cascades and assigns partitions.
//
// Singles and ranges are merged into one sorted interval list so that the
// cascade needs no separate single-key pass. Widened keys lie above the raw
// alphabet, so the alphabet limits are used as implied bounds only for
// states without conditions.
func (p *Program) buildStates() {
	r := p.Reduced
	parts := p.partitions()
	n := len(r.States)

	p.States = make([]*StateCode, n)
	for i, st := range r.States {
		items := make([]bisect.Item[*compact.Trans], 0, len(st.Singles)+len(st.Ranges))
		for _, rg := range mergeRanges(st.Singles, st.Ranges) {
			items = append(items, bisect.Item[*compact.Trans]{Low: rg.Low, High: rg.High, Value: rg.Trans})
		}

		sc := &StateCode{
			ID:        st.ID,
			Partition: i * parts / max(n, 1),
			Tree:      bisect.Build(items, r.Keys, len(st.Conds) == 0),
			Default:   st.Default,
			EOFTrans:  st.EOFTrans,
			ToState:   st.ToState,
			FromState: st.FromState,
			EOF:       st.EOF,
			Final:     st.Final,
		}
		if len(st.Conds) > 0 {
			sc.Conds = cond.BuildTree(st.Conds, r.Keys)
		}
		p.States[i] = sc
	}
}

// partitions returns the effective partition count.
func (p *Program) partitions() int {
	if p.Options.Style != StyleSplit {
		return 1
	}
	n := p.Options.Partitions
	if n < 1 {
		n = 1
	}
	return min(n, max(len(p.Reduced.States), 1))
}

// Partition returns the states of partition i in ID order.
func (p *Program) Partition(i int) []*StateCode {
	var out []*StateCode
	for _, s := range p.States {
		if s.Partition == i {
			out = append(out, s)
		}
	}
	return out
}

// NumPartitions returns the number of state partitions; 1 unless the style
// is StyleSplit.
func (p *Program) NumPartitions() int {
	if p.States == nil {
		return 0
	}
	return p.partitions()
}

func mergeRanges(singles, ranges []compact.Range) []compact.Range {
	out := make([]compact.Range, 0, len(singles)+len(ranges))
	i, j := 0, 0
	for i < len(singles) || j < len(ranges) {
		if j == len(ranges) || (i < len(singles) && singles[i].Low < ranges[j].Low) {
			out = append(out, singles[i])
			i++
		} else {
			out = append(out, ranges[j])
			j++
		}
	}
	return out
}
