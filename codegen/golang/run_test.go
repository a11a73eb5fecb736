package golang

import (
	"fmt"
	"os"
	osexec "os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/coregx/fsmc/codegen"
	"github.com/coregx/fsmc/exec"
	"github.com/coregx/fsmc/fsm"
)

// Action code in these machines calls emit with the action name, so the
// generated matchers and the runtime produce the same traces.

func seenLoop(t *testing.T, name string) *fsm.Machine {
	t.Helper()
	b := fsm.NewBuilder(name, fsm.ByteKeys)
	s0 := b.AddState()
	s1 := b.AddState()
	seen := b.AddAction("seen", fsm.Text(`emit("seen")`))
	b.SetStart(s0)
	b.SetFinal(s1)
	b.AddKey(s0, 'a', s1)
	b.SetDefault(s0, s0)
	b.SetToStateActions(s1, seen)
	m, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return m
}

// callCond calls into sub on '(' and returns on ')'; lowercase letters in
// main are widened by the predicate on.
func callCond(t *testing.T, name string) *fsm.Machine {
	t.Helper()
	b := fsm.NewBuilder(name, fsm.ByteKeys)
	main := b.AddNamedState("main")
	sub := b.AddNamedState("sub")

	on := b.AddAction("on", fsm.Text("on"))
	open := b.AddAction("open", fsm.Text(`emit("open")`), fsm.Call(sub))
	closing := b.AddAction("close", fsm.Text(`emit("close")`), fsm.Ret())
	lower := b.AddAction("lower", fsm.Text(`emit("lower")`))
	plain := b.AddAction("plain", fsm.Text(`emit("plain")`))
	done := b.AddAction("done", fsm.Text(`emit("done")`))
	space := b.AddCondSpace(256, on)

	b.SetStart(main)
	b.SetFinal(main)
	b.AddKey(main, '(', main, open)
	b.AddStateCond(main, 'a', 'z', space)
	b.AddRange(main, 256+'a', 256+'z', main, plain)
	b.AddRange(main, 512+'a', 512+'z', main, lower)
	b.SetDefault(main, main)
	b.SetEOFActions(main, done)
	b.AddKey(sub, ')', sub, closing)
	b.SetDefault(sub, sub)
	b.SetStackSize(2)

	m, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return m
}

type nameTrace struct {
	names []string
}

func (h *nameTrace) Text(a *fsm.Action, _ string, _ *exec.Frame) {
	h.names = append(h.names, a.Name)
}

func (h *nameTrace) Cond(pred *fsm.Action, _ fsm.Key) bool {
	return pred.Name == "on"
}

const driverHead = `package main

import (
	"fmt"
	"strings"
)

var (
	trace []string
	on    = true
)

func emit(s string) { trace = append(trace, s) }

func report(name, in string, run func(string, int) string) {
	for cut := 0; cut <= len(in); cut++ {
		fmt.Printf("%s %d %s\n", name, cut, run(in, cut))
	}
}
`

const driverRun = `
func run_%[1]s(in string, cut int) string {
	trace = nil
	var m %[1]sMachine
	m.init()
	if _, err := m.exec([]byte(in[:cut]), false); err != nil {
		return err.Error()
	}
	if _, err := m.exec([]byte(in[cut:]), true); err != nil {
		return err.Error()
	}
	return fmt.Sprintf("%%s|%%d", strings.Join(trace, " "), m.cs)
}
`

// runtimeLines runs p in process the way the driver runs the generated code:
// the input split in two at every position.
func runtimeLines(t *testing.T, p *codegen.Program, in string) []string {
	t.Helper()
	r, err := exec.New(p)
	if err != nil {
		t.Fatalf("exec.New() error: %v", err)
	}
	var lines []string
	for cut := 0; cut <= len(in); cut++ {
		var st exec.State
		h := &nameTrace{}
		r.Init(&st)
		if err := r.Exec(&st, []byte(in[:cut]), false, h); err != nil {
			t.Fatalf("%s cut %d: %v", p.Name, cut, err)
		}
		if err := r.Exec(&st, []byte(in[cut:]), true, h); err != nil {
			t.Fatalf("%s cut %d: %v", p.Name, cut, err)
		}
		lines = append(lines, fmt.Sprintf("%s %d %s|%d", p.Name, cut, strings.Join(h.names, " "), st.CS))
	}
	return lines
}

func TestGeneratedMatchesRuntime(t *testing.T) {
	if testing.Short() {
		t.Skip("builds and runs generated code")
	}
	goTool, err := osexec.LookPath("go")
	if err != nil {
		t.Skip("go tool not in PATH")
	}

	machines := []struct {
		name  string
		build func(*testing.T, string) *fsm.Machine
		input string
	}{
		{"seen", seenLoop, "xxa"},
		{"call", callCond, "a(b)Z(cd)e"},
	}

	dir := t.TempDir()
	write := func(name, src string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("go.mod", "module fsmcgen\n\ngo 1.21\n")

	driver := driverHead
	var calls, want []string
	for _, mc := range machines {
		for _, style := range codegen.Styles() {
			name := mc.name + "_" + style.String()
			p := program(t, mc.build(t, name), codegen.Options{Style: style, Partitions: 2})
			src, err := codegen.Render(p, New("main"))
			if err != nil {
				t.Fatalf("%s: Render() error: %v", name, err)
			}
			write(name+".go", string(src))
			driver += fmt.Sprintf(driverRun, name)
			calls = append(calls, fmt.Sprintf("\treport(%q, %q, run_%s)", name, mc.input, name))
			want = append(want, runtimeLines(t, p, mc.input)...)
		}
	}
	driver += "\nfunc main() {\n" + strings.Join(calls, "\n") + "\n}\n"
	write("main.go", driver)

	cmd := osexec.Command(goTool, "run", ".")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GOWORK=off", "GOFLAGS=")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("go run: %v\n%s", err, out)
	}

	got := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(got), len(want), out)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: generated %q, runtime %q", i, got[i], want[i])
		}
	}
}
