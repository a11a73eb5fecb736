package exec

import (
	"errors"
	"testing"

	"github.com/coregx/fsmc/codegen"
)

func TestSessionRetainsOpenToken(t *testing.T) {
	inputs := []string{"aaX", "aab", "XaXaa", "aaaab", "aXaaXa"}
	for _, style := range codegen.Styles() {
		r := newRunner(t, scanMachine(t), style)
		for _, in := range inputs {
			var st State
			want := &recorder{}
			r.Init(&st)
			if err := r.Exec(&st, []byte(in), true, want); err != nil {
				t.Fatalf("%s %q: %v", style, in, err)
			}

			// Every two-way split, then one byte per write.
			for i := 0; i <= len(in); i++ {
				h := &recorder{}
				s := r.NewSession(h)
				if _, err := s.Write([]byte(in[:i])); err != nil {
					t.Fatalf("%s %q split %d: %v", style, in, i, err)
				}
				if _, err := s.Write([]byte(in[i:])); err != nil {
					t.Fatalf("%s %q split %d: %v", style, in, i, err)
				}
				if err := s.Close(); err != nil {
					t.Fatalf("%s %q split %d: Close: %v", style, in, i, err)
				}
				if h.String() != want.String() {
					t.Errorf("%s %q split %d: trace = %q, want %q", style, in, i, h, want)
				}
				if got := registers(s.State()); got != registers(&st) {
					t.Errorf("%s %q split %d: state = %+v, want %+v", style, in, i, got, registers(&st))
				}
			}

			h := &recorder{}
			s := r.NewSession(h)
			for j := range len(in) {
				if _, err := s.Write([]byte{in[j]}); err != nil {
					t.Fatalf("%s %q byte %d: %v", style, in, j, err)
				}
			}
			if err := s.Close(); err != nil {
				t.Fatal(err)
			}
			if h.String() != want.String() {
				t.Errorf("%s %q bytewise: trace = %q, want %q", style, in, h, want)
			}
			if got := registers(s.State()); got != registers(&st) {
				t.Errorf("%s %q bytewise: state = %+v, want %+v", style, in, got, registers(&st))
			}
		}
	}
}

// cursor is the comparable part of a State.
type cursor struct {
	CS, P, Top, TS, TE, Act int
}

func registers(st *State) cursor {
	return cursor{CS: st.CS, P: st.P, Top: st.Top, TS: st.TS, TE: st.TE, Act: st.Act}
}

func TestSessionReleasesConsumedBytes(t *testing.T) {
	r := newRunner(t, scanMachine(t), codegen.StyleTable)
	s := r.NewSession(&recorder{})

	if _, err := s.Write([]byte("XXa")); err != nil {
		t.Fatal(err)
	}
	// The open token "a" starts at 2; "XX" is gone.
	if got := s.Buffered(); got != 1 {
		t.Errorf("Buffered() = %d, want 1", got)
	}
	if _, err := s.Write([]byte("b")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Write([]byte("X")); err != nil {
		t.Fatal(err)
	}
	if got := s.Buffered(); got != 0 {
		t.Errorf("Buffered() = %d after tokens closed, want 0", got)
	}
	if s.State().P != 5 {
		t.Errorf("P = %d, want 5", s.State().P)
	}
}

func TestSessionClosed(t *testing.T) {
	r := newRunner(t, seenMachine(t), codegen.StyleGoto)
	s := r.NewSession(nil)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Write([]byte("a")); !errors.Is(err, ErrClosed) {
		t.Errorf("Write after Close error = %v, want ErrClosed", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
