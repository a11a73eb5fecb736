// Package golang renders matcher programs as Go source.
//
// The output is one file holding the machine constants, the serialized
// arrays, a state type and two methods:
//
//	type wordsMachine struct { cs int; ... }
//	func (m *wordsMachine) init()
//	func (m *wordsMachine) exec(data []byte, atEOF bool) (int, error)
//
// exec runs the phase loop of the program over data and returns the position
// where it stopped. Positions are relative to data; a caller feeding several
// buffers restarts each call at position 0 and keeps the token bytes it
// still needs. Action code is copied verbatim and sees the locals data, p,
// pe, eof, cs and, for scanners, ts, te and act.
//
// With codegen.Options.NoEnd the matcher has no end checks at all: it keeps
// reading data[p] until an action breaks out or moves it to the error
// state, and indexing past data panics. Inputs for such matchers carry a
// terminating symbol whose transition runs a break.
//
// Constants are named after the machine (words_start, words_error). Without
// the prefix a name that collides with a predeclared Go identifier gets a
// _state suffix, so the error state constant is error_state.
package golang

import (
	"bytes"
	"errors"
	"fmt"
	"go/token"
	"go/types"
	"strings"

	"github.com/coregx/fsmc/codegen"
	"github.com/coregx/fsmc/compact"
	"github.com/coregx/fsmc/fsm"
	"github.com/coregx/fsmc/hosttype"
	"github.com/coregx/fsmc/internal/bisect"
	"github.com/coregx/fsmc/tables"
	"github.com/dave/jennifer/jen"
)

var (
	// ErrHostType is returned for arrays whose element type is not a Go type.
	ErrHostType = errors.New("array element type is not a Go integer type")

	// ErrIdentifier is returned when a machine, entry or export name does
	// not form a Go identifier.
	ErrIdentifier = errors.New("not a Go identifier")
)

// Control values returned by the generated action runner.
const (
	ctlNone = iota
	ctlJump
	ctlBreak
	ctlError
)

// Renderer renders Go source with jennifer.
type Renderer struct {
	file *jen.File
	host hosttype.Table
}

// New creates a renderer for a file in package pkg.
func New(pkg string) *Renderer {
	f := jen.NewFile(pkg)
	f.HeaderComment("Code generated by fsmc. DO NOT EDIT.")
	return &Renderer{file: f, host: hosttype.Go()}
}

// Const implements codegen.Renderer. Without a machine prefix a constant
// can collide with a predeclared name such as error; those get a _state
// suffix.
func (r *Renderer) Const(name string, value int64) error {
	id := constName(name)
	if !token.IsIdentifier(id) {
		return fmt.Errorf("%w: constant %q", ErrIdentifier, name)
	}
	r.file.Const().Id(id).Int().Op("=").Lit(int(value))
	return nil
}

func constName(name string) string {
	if types.Universe.Lookup(name) != nil {
		return name + "_state"
	}
	return name
}

// Array implements codegen.Renderer.
func (r *Renderer) Array(name string, a *tables.Array) error {
	if _, ok := r.host.Lookup(a.Type.Name); !ok {
		return fmt.Errorf("%w: %s", ErrHostType, a.Type.Name)
	}
	vals := make([]jen.Code, len(a.Values))
	for i, v := range a.Values {
		vals[i] = jen.Lit(int(v))
	}
	r.file.Var().Id(name).Op("=").Index(jen.Op("...")).Id(a.Type.Name).Values(vals...)
	return nil
}

// Bytes implements codegen.Renderer. The file is gofmt-formatted, so a
// syntax error in action code is reported here.
func (r *Renderer) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.file.Render(&buf); err != nil {
		return nil, fmt.Errorf("render go: %w", err)
	}
	return buf.Bytes(), nil
}

// Matcher implements codegen.Renderer.
func (r *Renderer) Matcher(p *codegen.Program) error {
	g := &gen{
		p:      p,
		m:      p.Machine,
		typ:    typeName(p.Name),
		prefix: "_" + p.Prefix(),
		acts:   p.Reduced.Stats.AnyActions,
		lists:  len(p.Lists) > 0,
	}
	if !token.IsIdentifier(g.typ) {
		return fmt.Errorf("%w: machine name %q", ErrIdentifier, p.Name)
	}

	if p.Tables == nil && g.lists {
		if err := r.listArrays(g); err != nil {
			return err
		}
	}
	if p.Style() == codegen.StyleSplit {
		for i := 0; i < p.NumPartitions(); i++ {
			r.file.Add(g.partitionFunc(i))
		}
	}

	r.file.Comment(g.typ + " holds the matcher state between calls.")
	r.file.Type().Id(g.typ).Struct(g.fields()...)
	r.file.Func().Params(jen.Id("m").Op("*").Id(g.typ)).Id("init").Params().Block(g.initBody()...)

	r.file.Comment("exec runs the matcher over data and returns the position where it stopped.")
	r.file.Comment("atEOF marks the end of data as the end of input.")
	r.file.Func().Params(jen.Id("m").Op("*").Id(g.typ)).Id("exec").
		Params(jen.Id("data").Add(g.dataType()), jen.Id("atEOF").Bool()).
		Params(jen.Int(), jen.Error()).
		Block(g.execBody()...)
	return nil
}

// listArrays emits the action lists of the goto-driven styles in the same
// encoding the table styles use: a count followed by the action IDs.
func (r *Renderer) listArrays(g *gen) error {
	var acts, offs []int64
	for _, l := range g.p.Lists {
		offs = append(offs, int64(len(acts)))
		acts = append(acts, int64(len(l)))
		for _, id := range l {
			acts = append(acts, int64(id))
		}
	}
	for _, a := range []struct {
		name string
		vals []int64
	}{{"actions", acts}, {"action_offsets", offs}} {
		lo, hi := bounds(a.vals)
		t, err := r.host.Smallest(lo, hi)
		if err != nil {
			return fmt.Errorf("%s: %w", a.name, err)
		}
		if err := r.Array(g.prefix+a.name, &tables.Array{Name: a.name, Type: t, Values: a.vals}); err != nil {
			return err
		}
	}
	return nil
}

func bounds(vals []int64) (lo, hi int64) {
	for i, v := range vals {
		if i == 0 || v < lo {
			lo = v
		}
		if i == 0 || v > hi {
			hi = v
		}
	}
	return lo, hi
}

func typeName(name string) string {
	if name == "" {
		return "machine"
	}
	return name + "Machine"
}

type gen struct {
	p      *codegen.Program
	m      *fsm.Machine
	typ    string
	prefix string
	acts   bool
	lists  bool
}

func (g *gen) arr(name string, i jen.Code) *jen.Statement {
	return jen.Int().Call(jen.Id(g.prefix + name).Index(i))
}

func (g *gen) constant(name string) *jen.Statement {
	return jen.Id(constName(g.p.Prefix() + name))
}

func (g *gen) errState() *jen.Statement {
	if !g.p.Options.NoError {
		return g.constant("error")
	}
	return jen.Lit(int(g.m.Error))
}

func phase(ph codegen.Phase) *jen.Statement {
	return jen.Lit(int(ph))
}

func setPhase(ph codegen.Phase) *jen.Statement {
	return jen.Id("_ph").Op("=").Add(phase(ph))
}

func (g *gen) next(after ...codegen.Phase) codegen.Phase {
	for _, ph := range after {
		if g.p.HasPhase(ph) {
			return ph
		}
	}
	return codegen.PhaseOut
}

func (g *gen) fields() []jen.Code {
	f := []jen.Code{jen.Id("cs").Int()}
	if g.p.HasLongestMatch {
		f = append(f, jen.Id("ts").Int(), jen.Id("te").Int(), jen.Id("act").Int())
	}
	if g.p.HasStack {
		f = append(f, jen.Id("top").Int(), jen.Id("stack").Index(jen.Lit(g.m.StackSize)).Int())
	}
	return f
}

func (g *gen) initBody() []jen.Code {
	body := []jen.Code{jen.Id("m").Dot("cs").Op("=").Add(g.constant("start"))}
	if g.p.HasLongestMatch {
		body = append(body,
			jen.Id("m").Dot("ts").Op("=").Lit(-1),
			jen.Id("m").Dot("te").Op("=").Lit(-1),
			jen.Id("m").Dot("act").Op("=").Lit(0),
		)
	}
	if g.p.HasStack {
		body = append(body, jen.Id("m").Dot("top").Op("=").Lit(0))
	}
	return body
}

func (g *gen) dataType() *jen.Statement {
	switch g.m.Keys.Width {
	case 2:
		return jen.Index().Uint16()
	case 4:
		return jen.Index().Rune()
	}
	return jen.Index().Byte()
}

func (g *gen) readKey() *jen.Statement {
	sym := jen.Id("data").Index(jen.Id("p"))
	if g.m.Keys.Width == 1 && g.m.Keys.Signed {
		return jen.Int().Call(jen.Int8().Call(sym))
	}
	return jen.Int().Call(sym)
}

func (g *gen) execBody() []jen.Code {
	body := []jen.Code{jen.List(jen.Id("cs"), jen.Id("p")).Op(":=").List(jen.Id("m").Dot("cs"), jen.Lit(0))}
	if !g.p.Options.NoEnd || g.needEOF() {
		body = append(body, jen.Id("pe").Op(":=").Len(jen.Id("data")))
	}
	if g.needEOF() {
		body = append(body,
			jen.Id("eof").Op(":=").Lit(-1),
			jen.If(jen.Id("atEOF")).Block(jen.Id("eof").Op("=").Id("pe")),
		)
	}
	if g.p.HasLongestMatch {
		body = append(body, jen.List(jen.Id("ts"), jen.Id("te"), jen.Id("act")).Op(":=").
			List(jen.Id("m").Dot("ts"), jen.Id("m").Dot("te"), jen.Id("m").Dot("act")))
	}
	vars := []jen.Code{jen.Id("_key"), jen.Id("_targ")}
	if g.acts {
		vars = append(vars, jen.Id("_acts"))
	}
	body = append(body,
		jen.Var().Id("_err").Error(),
		jen.Var().List(vars...).Int(),
	)
	if g.lists {
		body = append(body, jen.Id("_run").Op(":=").Func().
			Params(jen.Id("_ref").Int(), jen.Id("_eof").Bool()).Int().
			Block(g.runBody()...))
	}

	var cases []jen.Code
	for _, s := range g.p.Steps {
		stmts := append([]jen.Code{jen.Comment(s.Phase.String())}, g.step(s)...)
		cases = append(cases, jen.Case(phase(s.Phase)).Block(stmts...))
	}
	body = append(body,
		jen.Id("_ph").Op(":=").Add(phase(codegen.PhaseResume)),
		jen.For().Block(jen.Switch(jen.Id("_ph")).Block(cases...)),
	)
	return body
}

// step renders the ops of one phase. Every case ends by choosing the next
// phase; an op that leaves early sets _ph and continues the loop.
func (g *gen) step(s codegen.Step) []jen.Code {
	switch s.Phase {
	case codegen.PhaseResume:
		return g.resume(s)
	case codegen.PhaseCondTranslate:
		return append(g.condTranslate(), setPhase(codegen.PhaseLocate))
	case codegen.PhaseLocate:
		return append(g.locate(), setPhase(codegen.PhaseApply))
	case codegen.PhaseEOFTrans:
		return append(g.eofTrans(), setPhase(codegen.PhaseApply))
	case codegen.PhaseApply:
		out := []jen.Code{jen.Id("cs").Op("=").Id("_targ"), setPhase(codegen.PhaseAgain)}
		if g.p.HasPhase(codegen.PhaseDispatch) {
			out = append(out, jen.If(jen.Id("_acts").Op(">").Lit(0)).Block(setPhase(codegen.PhaseDispatch)))
		}
		return out
	case codegen.PhaseDispatch:
		return []jen.Code{
			setPhase(codegen.PhaseAgain),
			g.control(jen.Id("_run").Call(jen.Id("_acts"), jen.False()), false),
		}
	case codegen.PhaseAgain:
		return []jen.Code{setPhase(g.next(codegen.PhaseToStateActions, codegen.PhaseAdvance))}
	case codegen.PhaseToStateActions:
		return []jen.Code{
			setPhase(codegen.PhaseAdvance),
			g.control(jen.Id("_run").Call(g.listRef("to_state_actions", func(sc *codegen.StateCode) int { return sc.ToState }), jen.False()), true),
		}
	case codegen.PhaseAdvance:
		return g.advance(s)
	case codegen.PhaseTestEOF:
		return g.testEOF()
	case codegen.PhaseEOFActions:
		ref := g.listRef("eof_actions", func(sc *codegen.StateCode) int { return sc.EOF })
		return []jen.Code{jen.Id("_run").Call(ref, jen.True()), setPhase(codegen.PhaseOut)}
	case codegen.PhaseOut:
		out := []jen.Code{jen.Id("m").Dot("cs").Op("=").Id("cs")}
		if g.p.HasLongestMatch {
			out = append(out, jen.List(jen.Id("m").Dot("ts"), jen.Id("m").Dot("te"), jen.Id("m").Dot("act")).Op("=").
				List(jen.Id("ts"), jen.Id("te"), jen.Id("act")))
		}
		return append(out, jen.Return(jen.Id("p"), jen.Id("_err")))
	}
	panic(fmt.Sprintf("golang: unexpected phase %s", s.Phase))
}

// control handles the result of an action list run: a jump continues at
// Again, a break advances past the symbol and leaves, an error leaves.
func (g *gen) control(call *jen.Statement, jumpAgain bool) jen.Code {
	cases := []jen.Code{
		jen.Case(jen.Lit(ctlBreak)).Block(jen.Id("p").Op("++"), setPhase(codegen.PhaseOut)),
		jen.Case(jen.Lit(ctlError)).Block(setPhase(codegen.PhaseOut)),
	}
	if jumpAgain {
		cases = append([]jen.Code{jen.Case(jen.Lit(ctlJump)).Block(setPhase(codegen.PhaseAgain))}, cases...)
	}
	return jen.Switch(call).Block(cases...)
}

func (g *gen) resume(s codegen.Step) []jen.Code {
	var out []jen.Code
	for _, op := range s.Ops {
		switch op {
		case codegen.OpSuspend:
			out = append(out, jen.If(jen.Id("p").Op(">=").Id("pe")).Block(setPhase(codegen.PhaseTestEOF), jen.Continue()))
		case codegen.OpErrorCheck:
			out = append(out, jen.If(jen.Id("cs").Op("==").Add(g.errState())).Block(setPhase(codegen.PhaseOut), jen.Continue()))
		case codegen.OpFromStateActions:
			ref := g.listRef("from_state_actions", func(sc *codegen.StateCode) int { return sc.FromState })
			out = append(out, jen.Switch(jen.Id("_run").Call(ref, jen.False())).Block(
				jen.Case(jen.Lit(ctlJump)).Block(setPhase(codegen.PhaseAgain), jen.Continue()),
				jen.Case(jen.Lit(ctlBreak)).Block(jen.Id("p").Op("++"), setPhase(codegen.PhaseOut), jen.Continue()),
				jen.Case(jen.Lit(ctlError)).Block(setPhase(codegen.PhaseOut), jen.Continue()),
			))
		}
	}
	out = append(out,
		jen.If(jen.Id("p").Op("<").Lit(0)).Block(
			jen.Id("_err").Op("=").Qual("fmt", "Errorf").Call(jen.Lit(g.p.Name+": buffer underflow at %d"), jen.Id("p")),
			setPhase(codegen.PhaseOut),
			jen.Continue(),
		),
		jen.Id("_key").Op("=").Add(g.readKey()),
		setPhase(g.next(codegen.PhaseCondTranslate, codegen.PhaseLocate)),
	)
	return out
}

func (g *gen) advance(s codegen.Step) []jen.Code {
	var out []jen.Code
	for _, op := range s.Ops {
		switch op {
		case codegen.OpErrorCheck:
			out = append(out, jen.If(jen.Id("cs").Op("==").Add(g.errState())).Block(setPhase(codegen.PhaseOut), jen.Continue()))
		case codegen.OpAdvance:
			out = append(out, jen.Id("p").Op("++"))
		case codegen.OpSuspend:
			out = append(out,
				jen.If(jen.Id("p").Op("==").Id("pe")).Block(setPhase(codegen.PhaseTestEOF), jen.Continue()),
				jen.If(jen.Id("p").Op(">").Id("pe")).Block(setPhase(codegen.PhaseOut), jen.Continue()),
			)
		}
	}
	return append(out, setPhase(codegen.PhaseResume))
}

func (g *gen) testEOF() []jen.Code {
	var atEOF []jen.Code
	if g.p.HasPhase(codegen.PhaseEOFTrans) {
		if g.p.Tables != nil {
			atEOF = append(atEOF, jen.If(g.arr("eof_trans", jen.Id("cs")).Op(">").Lit(0)).Block(
				setPhase(codegen.PhaseEOFTrans), jen.Continue()))
		} else {
			var ids []jen.Code
			for _, sc := range g.p.States {
				if sc.EOFTrans != nil {
					ids = append(ids, jen.Lit(int(sc.ID)))
				}
			}
			atEOF = append(atEOF, jen.Switch(jen.Id("cs")).Block(
				jen.Case(ids...).Block(setPhase(codegen.PhaseEOFTrans), jen.Continue())))
		}
	}
	if g.p.HasPhase(codegen.PhaseEOFActions) {
		atEOF = append(atEOF, setPhase(codegen.PhaseEOFActions))
	}
	out := []jen.Code{setPhase(codegen.PhaseOut)}
	if len(atEOF) > 0 {
		out = append(out, jen.If(jen.Id("p").Op("==").Id("eof")).Block(atEOF...))
	}
	return out
}

// needEOF reports whether the matcher reads the eof position.
func (g *gen) needEOF() bool {
	return g.p.HasPhase(codegen.PhaseEOFTrans) || g.p.HasPhase(codegen.PhaseEOFActions)
}

// listRef is the action list reference of the current state: read from an
// array in the table styles, selected by a switch on cs otherwise.
func (g *gen) listRef(array string, list func(*codegen.StateCode) int) jen.Code {
	if g.p.Tables != nil {
		return g.arr(array, jen.Id("cs"))
	}
	var cases []jen.Code
	for _, sc := range g.p.States {
		if l := list(sc); l >= 0 {
			cases = append(cases, jen.Case(jen.Lit(int(sc.ID))).Block(jen.Return(jen.Lit(l+1))))
		}
	}
	return jen.Func().Params().Int().Block(
		jen.Switch(jen.Id("cs")).Block(cases...),
		jen.Return(jen.Lit(0)),
	).Call()
}

func (g *gen) condTranslate() []jen.Code {
	if g.p.Tables == nil {
		var cases []jen.Code
		for _, sc := range g.p.States {
			if sc.Conds == nil {
				continue
			}
			tree := cascade(sc.Conds, func(space int) []jen.Code { return g.widen(space) }, nil)
			cases = append(cases, jen.Case(jen.Lit(int(sc.ID))).Block(tree...))
		}
		return []jen.Code{jen.Switch(jen.Id("cs")).Block(cases...)}
	}

	var spaces []jen.Code
	for i := range g.m.CondSpaces {
		spaces = append(spaces, jen.Case(jen.Lit(i)).Block(g.widen(i)...))
	}
	return []jen.Code{jen.Block(
		jen.List(jen.Id("_lo"), jen.Id("_hi")).Op(":=").List(jen.Lit(0), g.arr("cond_lengths", jen.Id("cs")).Op("-").Lit(1)),
		jen.Id("_off").Op(":=").Add(g.arr("cond_offsets", jen.Id("cs"))),
		jen.For(jen.Id("_lo").Op("<=").Id("_hi")).Block(
			jen.Id("_mid").Op(":=").Id("_lo").Op("+").Parens(jen.Id("_hi").Op("-").Id("_lo")).Op(">>").Lit(1),
			jen.Id("_pos").Op(":=").Lit(2).Op("*").Parens(jen.Id("_off").Op("+").Id("_mid")),
			jen.If(jen.Id("_key").Op("<").Add(g.arr("cond_keys", jen.Id("_pos")))).Block(
				jen.Id("_hi").Op("=").Id("_mid").Op("-").Lit(1),
			).Else().If(jen.Id("_key").Op(">").Add(g.arr("cond_keys", jen.Id("_pos").Op("+").Lit(1)))).Block(
				jen.Id("_lo").Op("=").Id("_mid").Op("+").Lit(1),
			).Else().Block(
				jen.Switch(g.arr("cond_spaces", jen.Id("_off").Op("+").Id("_mid"))).Block(spaces...),
				jen.Break(),
			),
		),
	)}
}

// widen replaces _key by its widened value under a condition space.
func (g *gen) widen(space int) []jen.Code {
	cs := g.m.CondSpace(space)
	keys := g.m.Keys
	out := []jen.Code{
		jen.Id("_w").Op(":=").Lit(int(cs.BaseKey)).Op("+").Parens(jen.Id("_key").Op("-").Lit(int(keys.Min))),
	}
	for i, id := range cs.Conds {
		w := int64(1) << i * keys.AlphSize()
		out = append(out, jen.If(jen.Id(predicate(g.m.Action(id)))).Block(
			jen.Id("_w").Op("+=").Lit(int(w))))
	}
	return append(out, jen.Id("_key").Op("=").Id("_w"))
}

// predicate is the host expression of a condition: the action's text, or
// its name when it has none.
func predicate(a *fsm.Action) string {
	var parts []string
	for _, it := range a.Items {
		if it.Kind == fsm.ItemText {
			parts = append(parts, it.Text)
		}
	}
	if len(parts) == 0 {
		return a.Name
	}
	return strings.Join(parts, " ")
}

func (g *gen) locate() []jen.Code {
	switch g.p.Style() {
	case codegen.StyleFlat:
		return g.locateFlat()
	case codegen.StyleGoto:
		var cases []jen.Code
		for _, sc := range g.p.States {
			cases = append(cases, jen.Case(jen.Lit(int(sc.ID))).Block(g.stateTree(sc, g.assign)...))
		}
		return []jen.Code{jen.Switch(jen.Id("cs")).Block(cases...)}
	case codegen.StyleSplit:
		return g.locateSplit()
	}
	return g.locateTable()
}

func (g *gen) assign(t *compact.Trans) []jen.Code {
	out := []jen.Code{jen.Id("_targ").Op("=").Lit(int(t.Target))}
	if g.acts {
		out = append(out, jen.Id("_acts").Op("=").Lit(t.Action+1))
	}
	return out
}

func (g *gen) ret(t *compact.Trans) []jen.Code {
	return []jen.Code{jen.Return(jen.Lit(int(t.Target)), jen.Lit(t.Action+1))}
}

func (g *gen) stateTree(sc *codegen.StateCode, leaf func(*compact.Trans) []jen.Code) []jen.Code {
	return cascade(sc.Tree, leaf, leaf(sc.Default))
}

// cascade renders a bisection tree as nested comparisons, skipping the
// comparisons the tree marks as implied. Keys outside every interval run
// miss.
func cascade[T any](n *bisect.Node[T], leaf func(T) []jen.Code, miss []jen.Code) []jen.Code {
	if n == nil {
		return miss
	}
	hit := leaf(n.Value)
	below := jen.Id("_key").Op("<").Lit(int(n.Low))
	above := jen.Id("_key").Op(">").Lit(int(n.High))
	switch {
	case n.CheckLow && n.CheckHigh:
		return []jen.Code{jen.If(below).Block(cascade(n.Left, leaf, miss)...).
			Else().If(above).Block(cascade(n.Right, leaf, miss)...).
			Else().Block(hit...)}
	case n.CheckLow:
		return []jen.Code{jen.If(below).Block(cascade(n.Left, leaf, miss)...).Else().Block(hit...)}
	case n.CheckHigh:
		return []jen.Code{jen.If(above).Block(cascade(n.Right, leaf, miss)...).Else().Block(hit...)}
	}
	return hit
}

func (g *gen) partitionName(i int) string {
	return fmt.Sprintf("%slocate%d", g.prefix, i)
}

// partitionFunc renders the cascades of one split partition as a function
// of the state and key.
func (g *gen) partitionFunc(i int) jen.Code {
	var cases []jen.Code
	for _, sc := range g.p.Partition(i) {
		cases = append(cases, jen.Case(jen.Lit(int(sc.ID))).Block(g.stateTree(sc, g.ret)...))
	}
	return jen.Func().Id(g.partitionName(i)).
		Params(jen.List(jen.Id("cs"), jen.Id("_key")).Int()).
		Params(jen.Int(), jen.Int()).
		Block(
			jen.Switch(jen.Id("cs")).Block(cases...),
			jen.Panic(jen.Qual("fmt", "Sprintf").Call(jen.Lit(fmt.Sprintf("%s: state %%d outside partition %d", g.p.Name, i)), jen.Id("cs"))),
		)
}

func (g *gen) locateSplit() []jen.Code {
	acts := jen.Id("_")
	if g.acts {
		acts = jen.Id("_acts")
	}
	var cases []jen.Code
	n := g.p.NumPartitions()
	for i := 0; i < n; i++ {
		call := jen.List(jen.Id("_targ"), acts.Clone()).Op("=").Id(g.partitionName(i)).Call(jen.Id("cs"), jen.Id("_key"))
		if i == n-1 {
			cases = append(cases, jen.Default().Block(call))
			break
		}
		part := g.p.Partition(i)
		last := part[len(part)-1].ID
		cases = append(cases, jen.Case(jen.Id("cs").Op("<=").Lit(int(last))).Block(call))
	}
	return []jen.Code{jen.Switch().Block(cases...)}
}

// slot reads the transition at _slot, through the index when present.
func (g *gen) slot() []jen.Code {
	var out []jen.Code
	if g.p.Tables.UseIndex {
		out = append(out, jen.Id("_slot").Op("=").Add(g.arr("indicies", jen.Id("_slot"))))
	}
	out = append(out, jen.Id("_targ").Op("=").Add(g.arr("trans_targs", jen.Id("_slot"))))
	if g.acts {
		out = append(out, jen.Id("_acts").Op("=").Add(g.arr("trans_actions", jen.Id("_slot"))))
	}
	return out
}

func (g *gen) locateTable() []jen.Code {
	search := func(lenArr string, lo, hi jen.Code, below, above, found jen.Code) jen.Code {
		return jen.If(jen.Id("_slot").Op("<").Lit(0)).Block(
			jen.List(jen.Id("_lo"), jen.Id("_hi")).Op(":=").List(lo, hi),
			jen.For(jen.Id("_lo").Op("<=").Id("_hi")).Block(
				jen.Id("_mid").Op(":=").Id("_lo").Op("+").Parens(jen.Id("_hi").Op("-").Id("_lo")).Op(">>").Lit(1),
				jen.If(below).Block(jen.Id("_hi").Op("=").Id("_mid").Op("-").Lit(1)).
					Else().If(above).Block(jen.Id("_lo").Op("=").Id("_mid").Op("+").Lit(1)).
					Else().Block(jen.Id("_slot").Op("=").Add(found), jen.Break()),
			),
			jen.Id("_keys").Op("+=").Add(jen.Id(lenArr + "_n")),
			jen.Id("_trans").Op("+=").Id(lenArr+"_n"),
		)
	}

	body := []jen.Code{
		jen.Id("_keys").Op(":=").Add(g.arr("key_offsets", jen.Id("cs"))),
		jen.Id("_trans").Op(":=").Add(g.arr("index_offsets", jen.Id("cs"))),
		jen.Id("_slot").Op(":=").Lit(-1),
		jen.Id("_single_n").Op(":=").Add(g.arr("single_lengths", jen.Id("cs"))),
		jen.Id("_range_n").Op(":=").Add(g.arr("range_lengths", jen.Id("cs"))),
		search("_single",
			jen.Id("_keys"), jen.Id("_keys").Op("+").Id("_single_n").Op("-").Lit(1),
			jen.Id("_key").Op("<").Add(g.arr("trans_keys", jen.Id("_mid"))),
			jen.Id("_key").Op(">").Add(g.arr("trans_keys", jen.Id("_mid"))),
			jen.Id("_trans").Op("+").Id("_mid").Op("-").Id("_keys")),
		jen.Comment("Range pairs are [low, high]; _keys was advanced past the singles."),
		search("_range",
			jen.Lit(0), jen.Id("_range_n").Op("-").Lit(1),
			jen.Id("_key").Op("<").Add(g.arr("trans_keys", jen.Id("_keys").Op("+").Lit(2).Op("*").Id("_mid"))),
			jen.Id("_key").Op(">").Add(g.arr("trans_keys", jen.Id("_keys").Op("+").Lit(2).Op("*").Id("_mid").Op("+").Lit(1))),
			jen.Id("_trans").Op("+").Id("_mid")),
		jen.If(jen.Id("_slot").Op("<").Lit(0)).Block(jen.Id("_slot").Op("=").Id("_trans")),
	}
	return []jen.Code{jen.Block(append(body, g.slot()...)...)}
}

func (g *gen) locateFlat() []jen.Code {
	lo := g.arr("keys", jen.Lit(2).Op("*").Id("cs"))
	hi := g.arr("keys", jen.Lit(2).Op("*").Id("cs").Op("+").Lit(1))
	body := []jen.Code{
		jen.Id("_off").Op(":=").Add(g.arr("index_offsets", jen.Id("cs"))),
		jen.Id("_span").Op(":=").Add(g.arr("key_spans", jen.Id("cs"))),
		jen.Id("_slot").Op(":=").Id("_off").Op("+").Id("_span"),
		jen.If(jen.Id("_span").Op(">").Lit(0).Op("&&").Id("_key").Op(">=").Add(lo).Op("&&").Id("_key").Op("<=").Add(hi)).Block(
			jen.Id("_slot").Op("=").Id("_off").Op("+").Id("_key").Op("-").Add(lo.Clone()),
		),
	}
	return []jen.Code{jen.Block(append(body, g.slot()...)...)}
}

func (g *gen) eofTrans() []jen.Code {
	if g.p.Tables == nil {
		var cases []jen.Code
		for _, sc := range g.p.States {
			if sc.EOFTrans != nil {
				cases = append(cases, jen.Case(jen.Lit(int(sc.ID))).Block(g.assign(sc.EOFTrans)...))
			}
		}
		return []jen.Code{jen.Switch(jen.Id("cs")).Block(cases...)}
	}
	body := []jen.Code{
		jen.Id("_slot").Op(":=").Add(g.arr("eof_trans", jen.Id("cs"))).Op("-").Lit(1),
		jen.Id("_targ").Op("=").Add(g.arr("trans_targs", jen.Id("_slot"))),
	}
	if g.acts {
		body = append(body, jen.Id("_acts").Op("=").Add(g.arr("trans_actions", jen.Id("_slot"))))
	}
	return []jen.Code{jen.Block(body...)}
}

// runBody is the action runner closure: it runs the list behind _ref and
// reports jumps, breaks and stack errors to the phase loop. With _eof set
// jumps only change cs.
func (g *gen) runBody() []jen.Code {
	var cases []jen.Code
	for _, c := range g.p.Actions {
		stmts := []jen.Code{jen.Comment(c.Action.Name)}
		if g.p.Options.LineDirectives && c.Action.File != "" {
			stmts = append(stmts, jen.Comment(fmt.Sprintf("//line %s:%d", c.Action.File, c.Action.Line)))
		}
		stmts = append(stmts, g.items(c.Action, c.Action.Items)...)
		cases = append(cases, jen.Case(jen.Lit(c.ID)).Block(stmts...))
	}
	return []jen.Code{
		jen.If(jen.Id("_ref").Op("<=").Lit(0)).Block(jen.Return(jen.Lit(ctlNone))),
		jen.Id("_off").Op(":=").Add(g.arr("action_offsets", jen.Id("_ref").Op("-").Lit(1))),
		jen.Id("_n").Op(":=").Add(g.arr("actions", jen.Id("_off"))),
		jen.For(jen.Id("_i").Op(":=").Lit(1), jen.Id("_i").Op("<=").Id("_n"), jen.Id("_i").Op("++")).Block(
			jen.Switch(g.arr("actions", jen.Id("_off").Op("+").Id("_i"))).Block(cases...),
		),
		jen.Return(jen.Lit(ctlNone)),
	}
}

func jump() jen.Code {
	return jen.If(jen.Op("!").Id("_eof")).Block(jen.Return(jen.Lit(ctlJump)))
}

func (g *gen) stackErr(format string, a *fsm.Action) jen.Code {
	return jen.Block(
		jen.Id("_err").Op("=").Qual("fmt", "Errorf").Call(jen.Lit(g.p.Name+": "+format), jen.Lit(a.Name)),
		jen.Return(jen.Lit(ctlError)),
	)
}

func (g *gen) items(a *fsm.Action, items []fsm.InlineItem) []jen.Code {
	var out []jen.Code
	for _, it := range items {
		switch it.Kind {
		case fsm.ItemText:
			out = append(out, jen.Id(it.Text))
		case fsm.ItemHold:
			out = append(out, jen.Id("p").Op("--"))
		case fsm.ItemExec:
			mark := "ts"
			if it.Mark == fsm.MarkTokEnd {
				mark = "te"
			}
			out = append(out, jen.Id("p").Op("=").Id(mark).Op("-").Lit(1))
		case fsm.ItemGoto:
			out = append(out, jen.Id("cs").Op("=").Lit(int(it.Target)), jump())
		case fsm.ItemNext:
			out = append(out, jen.Id("cs").Op("=").Lit(int(it.Target)))
		case fsm.ItemCall:
			out = append(out,
				jen.If(jen.Id("m").Dot("top").Op(">=").Len(jen.Id("m").Dot("stack"))).Add(g.stackErr("stack overflow in action %s", a)),
				jen.Id("m").Dot("stack").Index(jen.Id("m").Dot("top")).Op("=").Id("cs"),
				jen.Id("m").Dot("top").Op("++"),
				jen.Id("cs").Op("=").Lit(int(it.Target)),
				jump(),
			)
		case fsm.ItemRet:
			out = append(out,
				jen.If(jen.Id("m").Dot("top").Op("==").Lit(0)).Add(g.stackErr("stack underflow in action %s", a)),
				jen.Id("m").Dot("top").Op("--"),
				jen.Id("cs").Op("=").Id("m").Dot("stack").Index(jen.Id("m").Dot("top")),
				jump(),
			)
		case fsm.ItemBreak:
			out = append(out, jen.Return(jen.Lit(ctlBreak)))
		case fsm.ItemInitTokStart:
			out = append(out, jen.Id("ts").Op("=").Lit(-1))
		case fsm.ItemSetTokStart:
			out = append(out, jen.Id("ts").Op("=").Id("p"))
		case fsm.ItemSetTokEnd:
			out = append(out, jen.Id("te").Op("=").Id("p").Op("+").Lit(it.Offset))
		case fsm.ItemInitAct:
			out = append(out, jen.Id("act").Op("=").Lit(0))
		case fsm.ItemSetAct:
			out = append(out, jen.Id("act").Op("=").Lit(it.Value))
		case fsm.ItemLmSwitch:
			var cases []jen.Code
			for _, c := range it.Cases {
				body := append([]jen.Code{jen.Id("p").Op("=").Id("te").Op("-").Lit(1)}, g.items(a, c.Items)...)
				cases = append(cases, jen.Case(jen.Lit(c.ID)).Block(body...))
			}
			out = append(out, jen.Switch(jen.Id("act")).Block(cases...))
		default:
			panic(fmt.Sprintf("golang: unknown item kind %s in action %s", it.Kind, a.Name))
		}
	}
	return out
}
