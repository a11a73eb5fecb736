package compact

import (
	"fmt"

	"github.com/coregx/fsmc/hosttype"
)

// Decision is the per-machine result of the index cost model. It is computed
// once before serialization and never revised.
type Decision struct {
	// UseIndex selects the shared indirection index (indicies array plus a
	// deduplicated transition table) over direct per-state transition arrays.
	UseIndex bool

	SizeWithIndex    int
	SizeWithoutIndex int

	// Element widths in bytes used by the model.
	IndexWidth  int
	StateWidth  int
	ActionWidth int
}

// String returns a human-readable summary.
func (d Decision) String() string {
	return fmt.Sprintf("Decision(useIndex=%v, withIndex=%d, withoutIndex=%d)",
		d.UseIndex, d.SizeWithIndex, d.SizeWithoutIndex)
}

// Decide compares the encoded size of the two transition layouts and picks
// the smaller one. Ties favor the direct layout, which needs one indirection
// less at run time.
//
//	withIndex    = Σ totalIndex×w(maxIndex) + |trans|×w(maxState) [+ |trans|×w(maxAction)]
//	withoutIndex = Σ totalIndex×(w(maxState) [+ w(maxAction)])
//
// Action widths are counted only when some transition runs actions. Stored
// action references are 1+listID, so the action width covers MaxActionList+1.
func Decide(r *Machine, host hosttype.Table) (Decision, error) {
	st := r.Stats
	idxW, err := width(host, "indicies", int64(max(st.MaxIndex, 0)))
	if err != nil {
		return Decision{}, err
	}
	stateW, err := width(host, "trans_targs", int64(max(st.MaxState, 0)))
	if err != nil {
		return Decision{}, err
	}
	actW, err := width(host, "trans_actions", int64(st.MaxActionList+1))
	if err != nil {
		return Decision{}, err
	}

	d := Decision{IndexWidth: idxW, StateWidth: stateW, ActionWidth: actW}
	nTrans := len(r.TransSet)

	for _, s := range r.States {
		total := s.TotalIndex()
		d.SizeWithIndex += idxW * total
		d.SizeWithoutIndex += stateW * total
		if st.AnyActions {
			d.SizeWithoutIndex += actW * total
		}
	}
	d.SizeWithIndex += stateW * nTrans
	if st.AnyActions {
		d.SizeWithIndex += actW * nTrans
	}

	d.UseIndex = d.SizeWithIndex < d.SizeWithoutIndex
	return d, nil
}

func width(host hosttype.Table, array string, maxVal int64) (int, error) {
	w, err := host.SizeOf(maxVal)
	if err != nil {
		return 0, &CostError{Array: array, Max: maxVal, Err: err}
	}
	return w, nil
}
