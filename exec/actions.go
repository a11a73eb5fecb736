package exec

import (
	"fmt"

	"github.com/coregx/fsmc/fsm"
)

// runList runs the actions of a list reference in order. A jump or break
// ends the list. In eof context jumps only change the current state.
func (x *run) runList(ref int64, inEOF bool) (control, error) {
	for _, id := range x.r.loc.actions(ref) {
		a := x.r.m.Action(int(id))
		if a == nil {
			panic(fmt.Sprintf("exec: action list %d refers to unknown action %d", ref-1, id))
		}
		ctl, err := x.runItems(a, a.Items, inEOF)
		if err != nil || ctl != ctlNone {
			return ctl, err
		}
	}
	return ctlNone, nil
}

func (x *run) runItems(a *fsm.Action, items []fsm.InlineItem, inEOF bool) (control, error) {
	st := x.st
	jump := ctlJump
	if inEOF {
		jump = ctlNone
	}

	for i := range items {
		it := &items[i]
		switch it.Kind {
		case fsm.ItemText:
			x.h.Text(a, it.Text, &x.frame)

		case fsm.ItemHold:
			st.P--

		case fsm.ItemExec:
			if it.Mark == fsm.MarkTokEnd {
				st.P = st.TE - 1
			} else {
				st.P = st.TS - 1
			}

		case fsm.ItemGoto:
			st.CS = int(it.Target)
			if jump != ctlNone {
				return jump, nil
			}

		case fsm.ItemNext:
			st.CS = int(it.Target)

		case fsm.ItemCall:
			if st.Top >= len(st.Stack) {
				return ctlNone, fmt.Errorf("%w: depth %d, action %s", ErrStackOverflow, st.Top, a.Name)
			}
			st.Stack[st.Top] = st.CS
			st.Top++
			st.CS = int(it.Target)
			if jump != ctlNone {
				return jump, nil
			}

		case fsm.ItemRet:
			if st.Top == 0 {
				return ctlNone, fmt.Errorf("%w: action %s", ErrStackUnderflow, a.Name)
			}
			st.Top--
			st.CS = st.Stack[st.Top]
			if jump != ctlNone {
				return jump, nil
			}

		case fsm.ItemBreak:
			return ctlBreak, nil

		case fsm.ItemInitTokStart:
			st.TS = -1

		case fsm.ItemSetTokStart:
			st.TS = st.P

		case fsm.ItemSetTokEnd:
			st.TE = st.P + it.Offset

		case fsm.ItemInitAct:
			st.Act = 0

		case fsm.ItemSetAct:
			st.Act = it.Value

		case fsm.ItemLmSwitch:
			for _, c := range it.Cases {
				if c.ID != st.Act {
					continue
				}
				st.P = st.TE - 1
				if ctl, err := x.runItems(a, c.Items, inEOF); err != nil || ctl != ctlNone {
					return ctl, err
				}
				break
			}

		default:
			panic(fmt.Sprintf("exec: unknown item kind %s in action %s", it.Kind, a.Name))
		}
	}
	return ctlNone, nil
}
