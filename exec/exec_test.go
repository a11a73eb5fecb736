package exec

import (
	"errors"
	"fmt"
	"testing"

	"github.com/coregx/fsmc/codegen"
	"github.com/coregx/fsmc/fsm"
)

func TestSeenAcrossBuffers(t *testing.T) {
	m := seenMachine(t)
	for name, r := range allRunners(t, m) {
		t.Run(name, func(t *testing.T) {
			var whole State
			wholeHost := &recorder{}
			r.Init(&whole)
			if err := r.Exec(&whole, []byte("xxa"), false, wholeHost); err != nil {
				t.Fatalf("Exec(xxa) error: %v", err)
			}

			var split State
			splitHost := &recorder{}
			r.Init(&split)
			if err := r.Exec(&split, []byte("xx"), false, splitHost); err != nil {
				t.Fatalf("Exec(xx) error: %v", err)
			}
			if split.P != 2 {
				t.Fatalf("after xx: P = %d, want 2", split.P)
			}
			if err := r.Exec(&split, []byte("a"), false, splitHost); err != nil {
				t.Fatalf("Exec(a) error: %v", err)
			}

			if wholeHost.String() != "seen-a" || splitHost.String() != "seen-a" {
				t.Errorf("traces = %q / %q, want seen-a", wholeHost, splitHost)
			}
			if whole.CS != 1 || split.CS != 1 {
				t.Errorf("final states = %d / %d, want 1", whole.CS, split.CS)
			}
			if !r.Accepts(&whole) {
				t.Error("Accepts() = false in final state")
			}
		})
	}
}

func TestStylesAgree(t *testing.T) {
	tests := []struct {
		name    string
		machine func(testing.TB) *fsm.Machine
		inputs  []string
	}{
		{"seen", seenMachine, []string{"", "a", "xxa", "bbb", "aaaa"}},
		{"cond", condMachine, []string{"abc", "a+b-c", "+xyz", "++--q", "a?b"}},
		{"call", func(tb testing.TB) *fsm.Machine { return callMachine(tb, 4) },
			[]string{"x(y)x", "((yy))x", "x(y"}},
		{"scan", scanMachine, []string{"a", "aab", "aaX", "aaaab", "XaXaa", "aa"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runners := allRunners(t, tt.machine(t))
			for _, in := range tt.inputs {
				var want string
				first := true
				for _, style := range []string{"table", "table-indexed", "flat", "goto", "split"} {
					r := runners[style]
					var st State
					h := &recorder{}
					r.Init(&st)
					err := r.Exec(&st, []byte(in), true, h)
					got := fmt.Sprintf("cs=%d p=%d ts=%d te=%d err=%v trace=[%s]", st.CS, st.P, st.TS, st.TE, err, h)
					if first {
						want, first = got, false
						continue
					}
					if got != want {
						t.Errorf("input %q: %s = %s, table = %s", in, style, got, want)
					}
				}
			}
		})
	}
}

func TestExpectedTraces(t *testing.T) {
	tests := []struct {
		name    string
		machine func(testing.TB) *fsm.Machine
		input   string
		want    string
	}{
		{"cond", condMachine, "a+b-c", "lower on upper off lower"},
		{"call", func(tb testing.TB) *fsm.Machine { return callMachine(tb, 2) }, "x(y)x", "x y x"},
		{"scan-aab", scanMachine, "aab", "tok:aab"},
		{"scan-backtrack", scanMachine, "aaX", "tok:a tok:a tok:X"},
		{"scan-eof", scanMachine, "aa", "tok:a tok:a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, style := range codegen.Styles() {
				r := newRunner(t, tt.machine(t), style)
				var st State
				h := &recorder{}
				r.Init(&st)
				if err := r.Exec(&st, []byte(tt.input), true, h); err != nil {
					t.Fatalf("%s: Exec() error: %v", style, err)
				}
				if got := h.String(); got != tt.want {
					t.Errorf("%s: trace = %q, want %q", style, got, tt.want)
				}
			}
		})
	}
}

func TestCallStack(t *testing.T) {
	for _, style := range codegen.Styles() {
		t.Run(style.String(), func(t *testing.T) {
			r := newRunner(t, callMachine(t, 2), style)

			var st State
			r.Init(&st)
			if err := r.Exec(&st, []byte("(("), false, nil); err != nil {
				t.Fatalf("depth 2: %v", err)
			}
			if st.Top != 2 {
				t.Errorf("Top = %d, want 2", st.Top)
			}
			if err := r.Exec(&st, []byte("("), false, nil); !errors.Is(err, ErrStackOverflow) {
				t.Errorf("depth 3 error = %v, want ErrStackOverflow", err)
			}

			r.Init(&st)
			if err := r.Exec(&st, []byte(")"), false, nil); !errors.Is(err, ErrStackUnderflow) {
				t.Errorf("ret at top level error = %v, want ErrStackUnderflow", err)
			}
		})
	}
}

func TestEntryPoint(t *testing.T) {
	r := newRunner(t, callMachine(t, 1), codegen.StyleGoto)
	sub, ok := r.Entry("sub")
	if !ok {
		t.Fatal("Entry(sub) not found")
	}
	var st State
	h := &recorder{}
	r.Init(&st)
	st.CS = sub
	if err := r.Exec(&st, []byte("yy"), true, h); err != nil {
		t.Fatalf("Exec() error: %v", err)
	}
	if h.String() != "y y" {
		t.Errorf("trace = %q, want %q", h, "y y")
	}
}

func TestSuspendResumeEverySplit(t *testing.T) {
	inputs := map[string]func(testing.TB) *fsm.Machine{
		"xxaxa":   seenMachine,
		"a+bc-de": condMachine,
		"x(y(y))": func(tb testing.TB) *fsm.Machine { return callMachine(tb, 4) },
	}
	for in, build := range inputs {
		for name, r := range allRunners(t, build(t)) {
			var st State
			whole := &recorder{}
			r.Init(&st)
			if err := r.Exec(&st, []byte(in), true, whole); err != nil {
				t.Fatalf("%s %q: %v", name, in, err)
			}
			want := fmt.Sprintf("%d/%d/[%s]", st.CS, st.P, whole)

			for i := 0; i <= len(in); i++ {
				h := &recorder{}
				r.Init(&st)
				if err := r.Exec(&st, []byte(in[:i]), false, h); err != nil {
					t.Fatalf("%s %q split %d: %v", name, in, i, err)
				}
				if err := r.Exec(&st, []byte(in[i:]), true, h); err != nil {
					t.Fatalf("%s %q split %d: %v", name, in, i, err)
				}
				if got := fmt.Sprintf("%d/%d/[%s]", st.CS, st.P, h); got != want {
					t.Errorf("%s %q split %d: %s, want %s", name, in, i, got, want)
				}
			}
		}
	}
}

func TestBreakStopsEarly(t *testing.T) {
	b := fsm.NewBuilder("brk", fsm.ByteKeys)
	s := b.AddState()
	stop := b.AddAction("stop", fsm.Text("stop"), fsm.Break(), fsm.Text("unreached"))
	b.SetStart(s)
	b.AddKey(s, ';', s, stop)
	m := mustBuild(t, b)

	for _, style := range codegen.Styles() {
		r := newRunner(t, m, style)
		var st State
		h := &recorder{}
		r.Init(&st)
		if err := r.Exec(&st, []byte("ab;cd"), false, h); err != nil {
			t.Fatalf("%s: %v", style, err)
		}
		if st.P != 3 {
			t.Errorf("%s: P = %d, want 3", style, st.P)
		}
		if h.String() != "stop" {
			t.Errorf("%s: trace = %q, want stop", style, h)
		}
	}
}

func TestErrorStateStops(t *testing.T) {
	b := fsm.NewBuilder("digits", fsm.ByteKeys)
	s := b.AddState()
	e := b.AddState()
	b.SetStart(s)
	b.SetFinal(s)
	b.SetError(e)
	b.AddRange(s, '0', '9', s)
	m := mustBuild(t, b)

	for _, style := range codegen.Styles() {
		r := newRunner(t, m, style)
		var st State
		r.Init(&st)
		if err := r.Exec(&st, []byte("12x45"), true, nil); err != nil {
			t.Fatalf("%s: %v", style, err)
		}
		if !r.Failed(&st) {
			t.Errorf("%s: Failed() = false, cs = %d", style, st.CS)
		}
		if st.P != 2 {
			t.Errorf("%s: P = %d, want 2 (position of the bad symbol)", style, st.P)
		}
		if err := r.Exec(&st, []byte("9"), false, nil); err != nil || !r.Failed(&st) {
			t.Errorf("%s: run after failure moved the machine: %v", style, err)
		}
	}
}

func TestEOFActionsAndPureDefault(t *testing.T) {
	b := fsm.NewBuilder("toggle", fsm.ByteKeys)
	even := b.AddState()
	odd := b.AddState()
	done := b.AddAction("done", fsm.Text("even"))
	b.SetStart(even)
	b.SetFinal(even)
	b.SetDefault(even, odd)
	b.SetDefault(odd, even)
	b.SetEOFActions(even, done)
	m := mustBuild(t, b)

	for name, r := range allRunners(t, m) {
		for _, tc := range []struct {
			in   string
			want string
		}{
			{"", "even"},
			{"ab", "even"},
			{"abc", ""},
		} {
			var st State
			h := &recorder{}
			r.Init(&st)
			if err := r.Exec(&st, []byte(tc.in), true, h); err != nil {
				t.Fatalf("%s: %v", name, err)
			}
			if h.String() != tc.want {
				t.Errorf("%s %q: trace = %q, want %q", name, tc.in, h, tc.want)
			}
		}
	}
}

func TestSignedAndWideAlphabets(t *testing.T) {
	b := fsm.NewBuilder("signed", fsm.CharKeys)
	s := b.AddState()
	neg := b.AddAction("neg", fsm.Text("neg"))
	b.SetStart(s)
	b.AddRange(s, -128, -1, s, neg)
	m := mustBuild(t, b)

	for _, style := range codegen.Styles() {
		r := newRunner(t, m, style)
		var st State
		h := &recorder{}
		r.Init(&st)
		if err := r.Exec(&st, []byte{0x41, 0xFF, 0x80}, true, h); err != nil {
			t.Fatalf("%s: %v", style, err)
		}
		if h.String() != "neg neg" {
			t.Errorf("%s: trace = %q, want %q", style, h, "neg neg")
		}
	}

	b = fsm.NewBuilder("runes", fsm.RuneKeys)
	s = b.AddState()
	cyr := b.AddAction("cyr", fsm.Text("cyr"))
	b.SetStart(s)
	b.AddRange(s, 0x400, 0x4FF, s, cyr)
	m = mustBuild(t, b)

	for _, style := range []codegen.Style{codegen.StyleTable, codegen.StyleGoto} {
		r := newRunner(t, m, style)
		var st State
		h := &recorder{}
		r.Init(&st)
		if err := r.ExecKeys(&st, []fsm.Key{'a', 0x416, 0x10FFFF, 0x4FF}, true, h); err != nil {
			t.Fatalf("%s: %v", style, err)
		}
		if h.String() != "cyr cyr" {
			t.Errorf("%s: trace = %q, want %q", style, h, "cyr cyr")
		}
	}
}

func TestBufferUnderflow(t *testing.T) {
	r := newRunner(t, scanMachine(t), codegen.StyleTable)
	var st State
	r.Init(&st)
	if err := r.Exec(&st, []byte("a"), false, nil); err != nil {
		t.Fatal(err)
	}
	if err := r.Exec(&st, []byte("a"), false, nil); err != nil {
		t.Fatal(err)
	}
	// Backtracking to the first "a" needs a byte that is no longer buffered.
	err := r.Exec(&st, []byte("X"), false, nil)
	if !errors.Is(err, ErrBufferUnderflow) {
		t.Errorf("Exec() error = %v, want ErrBufferUnderflow", err)
	}
}

func TestNewNilProgram(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNoProgram) {
		t.Errorf("New(nil) error = %v, want ErrNoProgram", err)
	}
}
