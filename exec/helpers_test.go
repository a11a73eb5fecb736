package exec

import (
	"strings"
	"testing"

	"github.com/coregx/fsmc/codegen"
	"github.com/coregx/fsmc/compact"
	"github.com/coregx/fsmc/fsm"
	"github.com/coregx/fsmc/hosttype"
	"github.com/coregx/fsmc/tables"
)

// newRunner compiles m for one style the way fsmc.Compile does.
func newRunner(tb testing.TB, m *fsm.Machine, style codegen.Style) *Runner {
	tb.Helper()
	r := compact.Reduce(m, compact.NewActionTable())
	d, err := compact.Decide(r, hosttype.Go())
	if err != nil {
		tb.Fatalf("Decide() error: %v", err)
	}
	var t *tables.Tables
	if style.UsesTables() {
		t, err = tables.Serialize(r, d, tables.Options{Layout: style.Layout()})
		if err != nil {
			tb.Fatalf("Serialize() error: %v", err)
		}
	}
	p, err := codegen.Build(r, d, t, codegen.Options{Style: style, Partitions: 2})
	if err != nil {
		tb.Fatalf("codegen.Build() error: %v", err)
	}
	run, err := New(p)
	if err != nil {
		tb.Fatalf("New() error: %v", err)
	}
	return run
}

// allRunners returns a runner per style plus an indexed table runner.
func allRunners(tb testing.TB, m *fsm.Machine) map[string]*Runner {
	tb.Helper()
	out := make(map[string]*Runner)
	for _, s := range codegen.Styles() {
		out[s.String()] = newRunner(tb, m, s)
	}

	r := compact.Reduce(m, compact.NewActionTable())
	d := compact.Decision{UseIndex: true}
	t, err := tables.Serialize(r, d, tables.Options{Layout: tables.LayoutTable})
	if err != nil {
		tb.Fatalf("Serialize() error: %v", err)
	}
	p, err := codegen.Build(r, d, t, codegen.Options{Style: codegen.StyleTable})
	if err != nil {
		tb.Fatalf("codegen.Build() error: %v", err)
	}
	run, err := New(p)
	if err != nil {
		tb.Fatalf("New() error: %v", err)
	}
	out["table-indexed"] = run
	return out
}

// recorder logs every action text. Texts starting with "tok" also record the
// current token; "on" and "off" toggle the flag predicate.
type recorder struct {
	events []string
	flag   bool
}

func (h *recorder) Text(_ *fsm.Action, text string, f *Frame) {
	switch {
	case strings.HasPrefix(text, "tok"):
		h.events = append(h.events, text+":"+string(f.Token()))
	case text == "on":
		h.flag = true
		h.events = append(h.events, text)
	case text == "off":
		h.flag = false
		h.events = append(h.events, text)
	default:
		h.events = append(h.events, text)
	}
}

func (h *recorder) Cond(pred *fsm.Action, _ fsm.Key) bool {
	return pred.Name == "flag" && h.flag
}

func (h *recorder) String() string {
	return strings.Join(h.events, " ")
}

func mustBuild(tb testing.TB, b *fsm.Builder) *fsm.Machine {
	tb.Helper()
	m, err := b.Build()
	if err != nil {
		tb.Fatalf("Build() error: %v", err)
	}
	return m
}

// seenMachine: state 0 loops on everything but 'a', which leads to final
// state 1 whose to-state action reports "seen-a".
func seenMachine(tb testing.TB) *fsm.Machine {
	b := fsm.NewBuilder("seen", fsm.ByteKeys)
	s0 := b.AddState()
	s1 := b.AddState()
	seen := b.AddAction("seen", fsm.Text("seen-a"))
	b.SetStart(s0)
	b.SetFinal(s1)
	b.AddKey(s0, 'a', s1)
	b.SetDefault(s0, s0)
	b.SetToStateActions(s1, seen)
	return mustBuild(tb, b)
}

// condMachine widens lowercase letters by the flag predicate.
func condMachine(tb testing.TB) *fsm.Machine {
	b := fsm.NewBuilder("cond", fsm.ByteKeys)
	s := b.AddState()
	flag := b.AddAction("flag")
	on := b.AddAction("on", fsm.Text("on"))
	off := b.AddAction("off", fsm.Text("off"))
	lower := b.AddAction("lower", fsm.Text("lower"))
	upper := b.AddAction("upper", fsm.Text("upper"))
	space := b.AddCondSpace(256, flag)

	b.SetStart(s)
	b.SetFinal(s)
	b.AddKey(s, '+', s, on)
	b.AddKey(s, '-', s, off)
	b.AddStateCond(s, 'a', 'z', space)
	b.AddRange(s, 256+'a', 256+'z', s, lower)
	b.AddRange(s, 512+'a', 512+'z', s, upper)
	return mustBuild(tb, b)
}

// callMachine runs a sub-machine between parentheses.
func callMachine(tb testing.TB, stack int) *fsm.Machine {
	b := fsm.NewBuilder("call", fsm.ByteKeys)
	main := b.AddNamedState("main")
	sub := b.AddNamedState("sub")
	call := b.AddAction("call", fsm.Call(sub))
	ret := b.AddAction("ret", fsm.Ret())
	x := b.AddAction("x", fsm.Text("x"))
	y := b.AddAction("y", fsm.Text("y"))

	b.SetStart(main)
	b.SetFinal(main)
	b.AddKey(main, '(', main, call)
	b.AddKey(main, ')', main, ret)
	b.AddKey(main, 'x', main, x)
	b.AddKey(sub, '(', sub, call)
	b.AddKey(sub, ')', sub, ret)
	b.AddKey(sub, 'y', sub, y)
	b.AddEntry("sub", sub)
	b.SetStackSize(stack)
	return mustBuild(tb, b)
}

// scanMachine is a longest-match scanner for the tokens "a", "aab" and "X".
// From "aa" without a following 'b' it backtracks to the last "a".
func scanMachine(tb testing.TB) *fsm.Machine {
	b := fsm.NewBuilder("scan", fsm.ByteKeys)
	s0 := b.AddNamedState("start")
	s1 := b.AddNamedState("a")
	s2 := b.AddNamedState("aa")

	startTok := b.AddAction("ts", fsm.SetTokStart())
	clearTok := b.AddAction("clear", fsm.InitTokStart())
	sawA := b.AddAction("saw-a", fsm.SetTokEnd(1), fsm.SetAct(1))
	emitAAB := b.AddAction("aab", fsm.SetTokEnd(1), fsm.Text("tok"))
	emitX := b.AddAction("x", fsm.SetTokEnd(1), fsm.Text("tok"))
	emitHeld := b.AddAction("held", fsm.SetTokEnd(0), fsm.Hold(), fsm.Text("tok"))
	backtrack := b.AddAction("backtrack", fsm.LmSwitch(
		fsm.LmCase{ID: 1, Items: []fsm.InlineItem{fsm.Text("tok")}},
	))

	b.SetStart(s0)
	b.SetFinal(s0)
	b.SetFromStateActions(s0, startTok)
	b.SetToStateActions(s0, clearTok)
	b.AddKey(s0, 'a', s1, sawA)
	b.AddKey(s0, 'X', s0, emitX)

	b.AddKey(s1, 'a', s2)
	b.SetDefault(s1, s0, emitHeld)
	b.SetEOFTrans(s1, s0, emitHeld)

	b.AddKey(s2, 'b', s0, emitAAB)
	b.SetDefault(s2, s0, backtrack)
	b.SetEOFTrans(s2, s0, backtrack)
	return mustBuild(tb, b)
}
