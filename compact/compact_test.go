package compact

import (
	"testing"

	"github.com/coregx/fsmc/fsm"
	"github.com/coregx/fsmc/hosttype"
)

func mustBuild(t *testing.T, b *fsm.Builder) *fsm.Machine {
	t.Helper()
	m, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return m
}

func TestActionTableIntern(t *testing.T) {
	at := NewActionTable()

	a := at.Intern([]int{1, 2, 3})
	b := at.Intern([]int{3, 2, 1})
	c := at.Intern([]int{1, 2, 3})

	if a != c {
		t.Errorf("same sequence got ids %d and %d", a, c)
	}
	if a == b {
		t.Errorf("distinct sequences share id %d", a)
	}
	if got := at.Intern(nil); got != -1 {
		t.Errorf("Intern(nil) = %d, want -1", got)
	}
	// 300 encodes to two varint bytes; must not collide with {172, 2}.
	if at.Intern([]int{300}) == at.Intern([]int{172, 2}) {
		t.Error("varint encoding collision")
	}
	if got := at.List(b); len(got) != 3 || got[0] != 3 {
		t.Errorf("List(%d) = %v, want [3 2 1]", b, got)
	}
}

func TestReduceClassifiesSinglesAndRanges(t *testing.T) {
	b := fsm.NewBuilder("classify", fsm.ByteKeys)
	s0 := b.AddState()
	s1 := b.AddState()
	b.SetStart(s0)
	b.AddKey(s0, 'a', s1)
	b.AddRange(s0, '0', '9', s1)
	b.AddKey(s0, 'z', s0)
	m := mustBuild(t, b)

	r := Reduce(m, NewActionTable())
	st := r.States[s0]

	if len(st.Singles) != 2 || st.Singles[0].Low != 'a' || st.Singles[1].Low != 'z' {
		t.Errorf("Singles = %+v, want a and z", st.Singles)
	}
	if len(st.Ranges) != 1 || st.Ranges[0].Low != '0' || st.Ranges[0].High != '9' {
		t.Errorf("Ranges = %+v, want [0-9]", st.Ranges)
	}
	// No error state and no declared default: stay in place.
	if st.Default.Target != s0 || st.Default.HasAction() {
		t.Errorf("Default = %+v, want stay transition to %d", st.Default, s0)
	}
}

func TestReduceDefaultSelection(t *testing.T) {
	t.Run("covered alphabet picks widest", func(t *testing.T) {
		b := fsm.NewBuilder("covered", fsm.ByteKeys)
		s0 := b.AddState()
		s1 := b.AddState()
		b.SetStart(s0)
		b.AddRange(s0, 0, 'a'-1, s0)
		b.AddKey(s0, 'a', s1)
		b.AddRange(s0, 'a'+1, 0xFF, s0)
		m := mustBuild(t, b)

		st := Reduce(m, NewActionTable()).States[s0]
		if st.Default.Target != s0 {
			t.Errorf("Default target = %d, want %d", st.Default.Target, s0)
		}
		if len(st.Ranges) != 0 || len(st.Singles) != 1 {
			t.Errorf("singles=%d ranges=%d, want 1 and 0", len(st.Singles), len(st.Ranges))
		}
	})

	t.Run("gaps go to error state", func(t *testing.T) {
		b := fsm.NewBuilder("err", fsm.ByteKeys)
		s0 := b.AddState()
		errS := b.AddState()
		b.SetStart(s0)
		b.SetError(errS)
		b.AddKey(s0, 'x', s0)
		m := mustBuild(t, b)

		st := Reduce(m, NewActionTable()).States[s0]
		if st.Default.Target != errS {
			t.Errorf("Default target = %d, want error state %d", st.Default.Target, errS)
		}
	})

	t.Run("declared default wins", func(t *testing.T) {
		b := fsm.NewBuilder("decl", fsm.ByteKeys)
		s0 := b.AddState()
		s1 := b.AddState()
		act := b.AddAction("a", fsm.Text("x()"))
		b.SetStart(s0)
		b.AddKey(s0, 'x', s0)
		b.SetDefault(s0, s1, act)
		m := mustBuild(t, b)

		st := Reduce(m, NewActionTable()).States[s0]
		if st.Default.Target != s1 || !st.Default.HasAction() {
			t.Errorf("Default = %+v, want declared transition", st.Default)
		}
	})
}

func TestReduceDeduplicatesTransitions(t *testing.T) {
	b := fsm.NewBuilder("dedup", fsm.ByteKeys)
	s0 := b.AddState()
	s1 := b.AddState()
	act := b.AddAction("a", fsm.Text("x()"))
	b.SetStart(s0)
	b.AddKey(s0, 'a', s1, act)
	b.AddKey(s0, 'b', s1, act)
	b.AddKey(s1, 'a', s1, act)
	b.AddKey(s1, 'c', s1)
	b.SetDefault(s0, s0)
	b.SetDefault(s1, s1)
	m := mustBuild(t, b)

	r := Reduce(m, NewActionTable())
	// (s1,act), (s0,-), (s1,-)
	if got := len(r.TransSet); got != 3 {
		t.Errorf("len(TransSet) = %d, want 3", got)
	}
	if r.States[s0].Singles[0].Trans != r.States[s0].Singles[1].Trans {
		t.Error("identical transitions not shared")
	}
	if r.Actions.Len() != 1 {
		t.Errorf("action lists = %d, want 1", r.Actions.Len())
	}
}

func TestLocateCompleteness(t *testing.T) {
	b := fsm.NewBuilder("complete", fsm.ByteKeys)
	s0 := b.AddState()
	s1 := b.AddState()
	s2 := b.AddState()
	b.SetStart(s0)
	b.AddKey(s0, 'a', s1)
	b.AddRange(s0, 'c', 'f', s2)
	b.AddKey(s0, 'q', s2)
	m := mustBuild(t, b)

	st := Reduce(m, NewActionTable()).States[s0]
	for k := fsm.Key(0); k <= 0xFF; k++ {
		matches := 0
		if search(st.Singles, k) != nil {
			matches++
		}
		if search(st.Ranges, k) != nil {
			matches++
		}
		if st.Locate(k) == nil {
			t.Fatalf("Locate(%d) returned nil", k)
		}
		if matches > 1 {
			t.Errorf("key %d matched %d entries", k, matches)
		}
	}
	if got := st.Locate('d').Target; got != s2 {
		t.Errorf("Locate('d') target = %d, want %d", got, s2)
	}
}

func TestDecide(t *testing.T) {
	b := fsm.NewBuilder("decide", fsm.ByteKeys)
	states := make([]fsm.StateID, 20)
	for i := range states {
		states[i] = b.AddState()
	}
	act := b.AddAction("a", fsm.Text("x()"))
	b.SetStart(states[0])
	// Every state shares the same handful of transitions: indexing wins.
	for i, s := range states {
		for k := fsm.Key('a'); k <= 'z'; k += 2 {
			b.AddKey(s, k, states[(i+1)%len(states)], act)
		}
		b.SetDefault(s, states[0])
	}
	m := mustBuild(t, b)
	r := Reduce(m, NewActionTable())

	d1, err := Decide(r, hosttype.Go())
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}
	d2, _ := Decide(r, hosttype.Go())
	if d1 != d2 {
		t.Errorf("Decide not deterministic: %v vs %v", d1, d2)
	}
	if d1.SizeWithIndex < 0 || d1.SizeWithoutIndex < 0 {
		t.Errorf("negative sizes: %v", d1)
	}
	if d1.UseIndex != (d1.SizeWithIndex < d1.SizeWithoutIndex) {
		t.Errorf("UseIndex inconsistent with sizes: %v", d1)
	}
}

func TestDecideTieFavorsDirect(t *testing.T) {
	b := fsm.NewBuilder("tie", fsm.ByteKeys)
	s0 := b.AddState()
	b.SetStart(s0)
	b.SetDefault(s0, s0)
	m := mustBuild(t, b)

	d, err := Decide(Reduce(m, NewActionTable()), hosttype.Go())
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}
	// One state, one default: withIndex = 1 + 1, withoutIndex = 1.
	if d.UseIndex {
		t.Errorf("UseIndex = true for %v", d)
	}
}

func TestDecideNoHostType(t *testing.T) {
	b := fsm.NewBuilder("tiny", fsm.ByteKeys)
	s0 := b.AddState()
	b.SetStart(s0)
	m := mustBuild(t, b)

	_, err := Decide(Reduce(m, NewActionTable()), hosttype.Table{})
	if err == nil {
		t.Fatal("Decide() with empty host table succeeded")
	}
}
