package fsm

import (
	"errors"
	"fmt"

	"github.com/coregx/fsmc/internal/sparse"
)

// Validate checks the upstream contract the compactor relies on: sorted,
// non-overlapping transitions and condition ranges, and reachability of every
// state. Each defect is counted in Errors and reported as a *ValidationError;
// the joined error is nil when the machine is well formed.
func (m *Machine) Validate() error {
	var errs []error
	report := func(id StateID, err error, detail string) {
		errs = append(errs, &ValidationError{StateID: id, Err: err, Detail: detail})
	}

	if m.State(m.Start) == nil {
		report(m.Start, ErrNoStart, "")
	}

	for _, s := range m.States {
		for i := 1; i < len(s.Out); i++ {
			prev, cur := s.Out[i-1], s.Out[i]
			if cur.Low <= prev.High {
				report(s.ID, ErrOverlap, fmt.Sprintf("[%d, %d] and [%d, %d]", prev.Low, prev.High, cur.Low, cur.High))
			}
		}
		for i := 1; i < len(s.Conds); i++ {
			prev, cur := s.Conds[i-1], s.Conds[i]
			if cur.Low <= prev.High {
				report(s.ID, ErrOverlap, fmt.Sprintf("condition ranges [%d, %d] and [%d, %d]", prev.Low, prev.High, cur.Low, cur.High))
			}
		}
	}

	if m.State(m.Start) != nil {
		reached := m.Reachable()
		for _, s := range m.States {
			if s.ID != m.Error && !reached.Contains(s.ID) {
				report(s.ID, ErrUnreachable, "")
			}
		}
	}

	m.Errors += len(errs)
	return errors.Join(errs...)
}

// Reachable returns the set of states reachable from the start state, the
// named entry points and every state targeted by a Goto, Next or Call item.
func (m *Machine) Reachable() *sparse.Set[StateID] {
	seen := sparse.New[StateID](len(m.States))
	seen.Insert(m.Start)
	for _, id := range m.Entries {
		seen.Insert(id)
	}
	for _, a := range m.Actions {
		markItemTargets(a.Items, seen)
	}

	// seen doubles as the work list: Values grows while we walk it.
	for i := 0; i < seen.Len(); i++ {
		s := m.State(seen.Values()[i])
		if s == nil {
			continue
		}
		for _, t := range s.Out {
			seen.Insert(t.Target)
		}
		if s.Default != nil {
			seen.Insert(s.Default.Target)
		}
		if s.EOFTrans != nil {
			seen.Insert(s.EOFTrans.Target)
		}
	}
	return seen
}

func markItemTargets(items []InlineItem, seen *sparse.Set[StateID]) {
	for _, it := range items {
		switch it.Kind {
		case ItemGoto, ItemNext, ItemCall:
			seen.Insert(it.Target)
		case ItemLmSwitch:
			for _, c := range it.Cases {
				markItemTargets(c.Items, seen)
			}
		}
	}
}
