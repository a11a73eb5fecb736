package tables

import "fmt"

// DecodedTrans is a transition read back from the arrays.
type DecodedTrans struct {
	Target int64
	Action int64 // 0 for none, else 1+listID
}

// DecodedRange is a key interval read back from the arrays.
type DecodedRange struct {
	Low   int64
	High  int64
	Trans DecodedTrans
}

// DecodedState is the transition set of one state read back from the arrays.
type DecodedState struct {
	Singles []DecodedRange
	Ranges  []DecodedRange
	Default DecodedTrans
	EOF     *DecodedTrans
}

// DecodeState reconstructs the transition set of state id.
//
// For the table layout the result mirrors the compactor's partition exactly.
// The flat layout keeps no single/range distinction, so runs of consecutive
// keys sharing a non-default transition come back as one interval.
func (t *Tables) DecodeState(id int) (*DecodedState, error) {
	if id < 0 || id >= t.numStates {
		return nil, fmt.Errorf("%w: %d", ErrNoState, id)
	}
	var ds *DecodedState
	if t.Layout == LayoutFlat {
		ds = t.decodeFlat(id)
	} else {
		ds = t.decodeTable(id)
	}
	if pos := t.EOFTrans.At(id); pos > 0 {
		tr := t.transAt(int(pos - 1))
		ds.EOF = &tr
	}
	return ds, nil
}

func (t *Tables) transAt(pos int) DecodedTrans {
	return DecodedTrans{Target: t.TransTargs.At(pos), Action: t.TransActions.At(pos)}
}

// slotTrans resolves an index slot to its transition, through indicies when
// the index layout is in use.
func (t *Tables) slotTrans(slot int) DecodedTrans {
	if t.UseIndex {
		return t.transAt(int(t.Indicies.At(slot)))
	}
	return t.transAt(slot)
}

func (t *Tables) decodeTable(id int) *DecodedState {
	ds := &DecodedState{}
	keys := int(t.KeyOffsets.At(id))
	slot := int(t.IndexOffsets.At(id))
	slen := int(t.SingleLengths.At(id))
	rlen := int(t.RangeLengths.At(id))

	for i := 0; i < slen; i++ {
		k := t.TransKeys.At(keys + i)
		ds.Singles = append(ds.Singles, DecodedRange{Low: k, High: k, Trans: t.slotTrans(slot + i)})
	}
	keys += slen
	for i := 0; i < rlen; i++ {
		ds.Ranges = append(ds.Ranges, DecodedRange{
			Low:   t.TransKeys.At(keys + 2*i),
			High:  t.TransKeys.At(keys + 2*i + 1),
			Trans: t.slotTrans(slot + slen + i),
		})
	}
	ds.Default = t.slotTrans(slot + slen + rlen)
	return ds
}

func (t *Tables) decodeFlat(id int) *DecodedState {
	ds := &DecodedState{}
	lo := t.FlatKeys.At(2 * id)
	span := int(t.KeySpans.At(id))
	off := int(t.IndexOffsets.At(id))
	def := t.Indicies.At(off + span)
	ds.Default = t.transAt(int(def))

	for i := 0; i < span; {
		tid := t.Indicies.At(off + i)
		j := i + 1
		for j < span && t.Indicies.At(off+j) == tid {
			j++
		}
		if tid != def {
			r := DecodedRange{Low: lo + int64(i), High: lo + int64(j-1), Trans: t.transAt(int(tid))}
			if r.Low == r.High {
				ds.Singles = append(ds.Singles, r)
			} else {
				ds.Ranges = append(ds.Ranges, r)
			}
		}
		i = j
	}
	return ds
}

// ActionList returns the action IDs of a stored action reference (1+listID).
// A zero reference yields nil.
func (t *Tables) ActionList(ref int64) []int64 {
	if ref <= 0 {
		return nil
	}
	off := int(t.ActionOffsets.At(int(ref - 1)))
	n := int(t.Actions.At(off))
	return t.Actions.Values[off+1 : off+1+n]
}
