package codegen

import (
	"bytes"
	"fmt"

	"github.com/coregx/fsmc/compact"
	"github.com/coregx/fsmc/cond"
	"github.com/coregx/fsmc/fsm"
	"github.com/coregx/fsmc/tables"
)

// Renderer turns a program into target text.
//
// Render calls Const for every constant, Array for every serialized array,
// Matcher once, and finally Bytes.
type Renderer interface {
	Const(name string, value int64) error
	Array(name string, a *tables.Array) error
	Matcher(p *Program) error
	Bytes() ([]byte, error)
}

// Render drives r over p.
func Render(p *Program, r Renderer) ([]byte, error) {
	for _, c := range p.Consts {
		if err := r.Const(c.Name, c.Value); err != nil {
			return nil, fmt.Errorf("const %s: %w", c.Name, err)
		}
	}
	if p.Tables != nil {
		for _, a := range p.Tables.Arrays {
			name := "_" + p.Prefix() + a.Name
			if err := r.Array(name, a); err != nil {
				return nil, fmt.Errorf("array %s: %w", name, err)
			}
		}
	}
	if err := r.Matcher(p); err != nil {
		return nil, fmt.Errorf("matcher: %w", err)
	}
	return r.Bytes()
}

// TextRenderer renders a readable listing of a program.
type TextRenderer struct {
	buf bytes.Buffer
}

// NewTextRenderer creates an empty text renderer.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

// Const implements Renderer.
func (t *TextRenderer) Const(name string, value int64) error {
	fmt.Fprintf(&t.buf, "const %s = %d\n", name, value)
	return nil
}

// Array implements Renderer.
func (t *TextRenderer) Array(name string, a *tables.Array) error {
	fmt.Fprintf(&t.buf, "array %s %s[%d] = %v\n", name, a.Type.Name, a.Len(), a.Values)
	return nil
}

// Matcher implements Renderer.
func (t *TextRenderer) Matcher(p *Program) error {
	b := &t.buf
	fmt.Fprintf(b, "matcher %s style=%s", p.Name, p.Style())
	if p.Style() == StyleSplit {
		fmt.Fprintf(b, " partitions=%d", p.NumPartitions())
	}
	if p.Tables != nil {
		fmt.Fprintf(b, " index=%v", p.Tables.UseIndex)
	}
	b.WriteByte('\n')

	for _, s := range p.Steps {
		fmt.Fprintf(b, "%s:", s.Phase)
		for _, op := range s.Ops {
			fmt.Fprintf(b, " %s", op)
		}
		b.WriteByte('\n')
	}

	for _, c := range p.Actions {
		fmt.Fprintf(b, "action %d %s", c.ID, c.Action)
		if c.Jumps {
			b.WriteString(" [jumps]")
		}
		if p.Options.LineDirectives && c.Action.File != "" {
			fmt.Fprintf(b, " @%s:%d", c.Action.File, c.Action.Line)
		}
		b.WriteByte('\n')
	}
	for i, l := range p.Lists {
		fmt.Fprintf(b, "list %d %v\n", i, l)
	}

	for _, s := range p.States {
		t.state(p, s)
	}
	return nil
}

func (t *TextRenderer) state(p *Program, s *StateCode) {
	b := &t.buf
	fmt.Fprintf(b, "state %d", s.ID)
	if p.Style() == StyleSplit {
		fmt.Fprintf(b, " part=%d", s.Partition)
	}
	if s.Final {
		b.WriteString(" final")
	}
	b.WriteByte('\n')

	if s.Conds != nil {
		s.Conds.Walk(func(n *cond.Tree) {
			fmt.Fprintf(b, "  cond %s -> space %d\n", bounds(n.Low, n.High, n.CheckLow, n.CheckHigh), n.Value)
		})
	}
	s.Tree.Walk(func(n *Tree) {
		fmt.Fprintf(b, "  %s -> %s\n", bounds(n.Low, n.High, n.CheckLow, n.CheckHigh), transString(n.Value))
	})
	fmt.Fprintf(b, "  default -> %s\n", transString(s.Default))
	if s.EOFTrans != nil {
		fmt.Fprintf(b, "  eof -> %s\n", transString(s.EOFTrans))
	}
}

// bounds prints an interval, marking implied comparisons with '~'.
func bounds(lo, hi fsm.Key, checkLo, checkHi bool) string {
	mark := func(check bool) string {
		if check {
			return ""
		}
		return "~"
	}
	if lo == hi {
		return fmt.Sprintf("%s%d%s", mark(checkLo), lo, mark(checkHi))
	}
	return fmt.Sprintf("%s%d..%d%s", mark(checkLo), lo, hi, mark(checkHi))
}

func transString(t *compact.Trans) string {
	if t.HasAction() {
		return fmt.Sprintf("%d / list %d", t.Target, t.Action)
	}
	return fmt.Sprintf("%d", t.Target)
}

// Bytes implements Renderer.
func (t *TextRenderer) Bytes() ([]byte, error) {
	return bytes.Clone(t.buf.Bytes()), nil
}
