package fsm

import (
	"fmt"
	"strings"
)

// ItemKind identifies one inline operation inside an Action.
type ItemKind uint8

const (
	// ItemText is literal host code, run verbatim.
	ItemText ItemKind = iota

	// ItemHold steps the cursor back one symbol (p--).
	ItemHold

	// ItemExec moves the cursor to a token marker minus one, so the next
	// advance lands exactly on the marker.
	ItemExec

	// ItemGoto sets the current state and jumps to the again phase.
	ItemGoto

	// ItemNext sets the current state without jumping.
	ItemNext

	// ItemCall pushes the current state and jumps to Target.
	ItemCall

	// ItemRet pops the call stack and jumps to the popped state.
	ItemRet

	// ItemBreak advances the cursor and leaves the matcher immediately.
	ItemBreak

	// ItemInitTokStart clears the token start marker.
	ItemInitTokStart

	// ItemSetTokStart sets ts = p.
	ItemSetTokStart

	// ItemSetTokEnd sets te = p + Offset.
	ItemSetTokEnd

	// ItemInitAct clears the longest-match id.
	ItemInitAct

	// ItemSetAct sets the longest-match id to Value.
	ItemSetAct

	// ItemLmSwitch dispatches on the longest-match id.
	ItemLmSwitch
)

// String returns the directive name of the item kind.
func (k ItemKind) String() string {
	switch k {
	case ItemText:
		return "text"
	case ItemHold:
		return "hold"
	case ItemExec:
		return "exec"
	case ItemGoto:
		return "goto"
	case ItemNext:
		return "next"
	case ItemCall:
		return "call"
	case ItemRet:
		return "ret"
	case ItemBreak:
		return "break"
	case ItemInitTokStart:
		return "init_ts"
	case ItemSetTokStart:
		return "set_ts"
	case ItemSetTokEnd:
		return "set_te"
	case ItemInitAct:
		return "init_act"
	case ItemSetAct:
		return "set_act"
	case ItemLmSwitch:
		return "lm_switch"
	default:
		return fmt.Sprintf("ItemKind(%d)", k)
	}
}

// Mark names a token boundary register.
type Mark uint8

const (
	// MarkTokStart is the ts register.
	MarkTokStart Mark = iota
	// MarkTokEnd is the te register.
	MarkTokEnd
)

// String returns the register name.
func (m Mark) String() string {
	if m == MarkTokStart {
		return "ts"
	}
	return "te"
}

// InlineItem is one operation of an Action.
type InlineItem struct {
	Kind   ItemKind
	Text   string   // ItemText
	Target StateID  // ItemGoto, ItemNext, ItemCall
	Offset int      // ItemSetTokEnd
	Value  int      // ItemSetAct
	Mark   Mark     // ItemExec
	Cases  []LmCase // ItemLmSwitch
}

// LmCase is one arm of a longest-match switch. Before running Items the
// cursor is rewound to te-1.
type LmCase struct {
	ID    int
	Items []InlineItem
}

// Text returns a literal host-code item.
func Text(code string) InlineItem { return InlineItem{Kind: ItemText, Text: code} }

// Hold returns an item that steps the cursor back by one.
func Hold() InlineItem { return InlineItem{Kind: ItemHold} }

// Exec returns an item that moves the cursor to the given marker.
func Exec(m Mark) InlineItem { return InlineItem{Kind: ItemExec, Mark: m} }

// Goto returns an item that jumps to target.
func Goto(target StateID) InlineItem { return InlineItem{Kind: ItemGoto, Target: target} }

// Next returns an item that sets the next state to target.
func Next(target StateID) InlineItem { return InlineItem{Kind: ItemNext, Target: target} }

// Call returns an item that calls the sub-machine starting at target.
func Call(target StateID) InlineItem { return InlineItem{Kind: ItemCall, Target: target} }

// Ret returns an item that returns from a sub-machine call.
func Ret() InlineItem { return InlineItem{Kind: ItemRet} }

// Break returns an item that leaves the matcher after the current symbol.
func Break() InlineItem { return InlineItem{Kind: ItemBreak} }

// InitTokStart returns an item that clears ts.
func InitTokStart() InlineItem { return InlineItem{Kind: ItemInitTokStart} }

// SetTokStart returns an item that sets ts = p.
func SetTokStart() InlineItem { return InlineItem{Kind: ItemSetTokStart} }

// SetTokEnd returns an item that sets te = p + offset.
func SetTokEnd(offset int) InlineItem { return InlineItem{Kind: ItemSetTokEnd, Offset: offset} }

// InitAct returns an item that clears the longest-match id.
func InitAct() InlineItem { return InlineItem{Kind: ItemInitAct} }

// SetAct returns an item that records longest-match id n.
func SetAct(n int) InlineItem { return InlineItem{Kind: ItemSetAct, Value: n} }

// LmSwitch returns a longest-match dispatch item.
func LmSwitch(cases ...LmCase) InlineItem { return InlineItem{Kind: ItemLmSwitch, Cases: cases} }

// Action is a named, immutable list of inline items. Actions are shared:
// transitions and states refer to them by ID.
type Action struct {
	ID    int
	Name  string
	Items []InlineItem

	// Source position of the action body, when known. Used for line
	// directives in generated code.
	File string
	Line int
}

// HasKind reports whether any item of the action (including longest-match
// case bodies) has kind k.
func (a *Action) HasKind(k ItemKind) bool {
	return hasKind(a.Items, k)
}

func hasKind(items []InlineItem, k ItemKind) bool {
	for i := range items {
		if items[i].Kind == k {
			return true
		}
		for _, c := range items[i].Cases {
			if hasKind(c.Items, k) {
				return true
			}
		}
	}
	return false
}

// String returns a compact listing of the action's items.
func (a *Action) String() string {
	var sb strings.Builder
	sb.WriteString(a.Name)
	sb.WriteByte('{')
	writeItems(&sb, a.Items)
	sb.WriteByte('}')
	return sb.String()
}

func writeItems(sb *strings.Builder, items []InlineItem) {
	for i, it := range items {
		if i > 0 {
			sb.WriteString("; ")
		}
		switch it.Kind {
		case ItemText:
			fmt.Fprintf(sb, "%q", it.Text)
		case ItemGoto, ItemNext, ItemCall:
			fmt.Fprintf(sb, "%s %d", it.Kind, it.Target)
		case ItemSetTokEnd:
			fmt.Fprintf(sb, "te = p+%d", it.Offset)
		case ItemSetAct:
			fmt.Fprintf(sb, "act = %d", it.Value)
		case ItemExec:
			fmt.Fprintf(sb, "exec %s", it.Mark)
		case ItemLmSwitch:
			sb.WriteString("switch act {")
			for _, c := range it.Cases {
				fmt.Fprintf(sb, " %d: ", c.ID)
				writeItems(sb, c.Items)
			}
			sb.WriteString(" }")
		default:
			sb.WriteString(it.Kind.String())
		}
	}
}
