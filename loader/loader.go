// Package loader reads machine descriptions written in YAML.
//
// A description lists actions, condition spaces and states by name:
//
//	name: words
//	alphabet: byte
//	start: start
//	error: fail
//	actions:
//	  - name: emit
//	    code: "emit(); fgoto start;"
//	states:
//	  - name: start
//	    on:
//	      - {range: [a, z], to: word}
//	  - name: word
//	    final: true
//	    on:
//	      - {range: [a, z], to: word}
//	      - {key: " ", to: start, do: [emit]}
//	  - name: fail
//
// Keys are integers or single characters. Action code is scanned for control
// directives (see ScanDirectives); token bookkeeping is declared with the
// pre list and longest-match switches with the switch map.
package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/coregx/fsmc/fsm"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownState indicates a reference to an undeclared state.
	ErrUnknownState = errors.New("unknown state")

	// ErrUnknownAction indicates a reference to an undeclared action.
	ErrUnknownAction = errors.New("unknown action")

	// ErrDirective indicates a malformed control directive.
	ErrDirective = errors.New("malformed directive")

	// ErrUnterminated indicates a directive without a closing ';'.
	ErrUnterminated = errors.New("directive not terminated by ';'")

	// ErrBadKey indicates a key that is neither an integer nor one character.
	ErrBadKey = errors.New("invalid key")
)

// Error is a description error with its source position.
type Error struct {
	File string
	Line int
	Err  error
}

// Error implements error.
func (e *Error) Error() string {
	if e.File == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Key is a YAML key scalar.
type Key struct {
	Value fsm.Key
	Line  int
}

// UnmarshalYAML accepts an integer or a one-character string.
func (k *Key) UnmarshalYAML(n *yaml.Node) error {
	k.Line = n.Line
	if n.Kind != yaml.ScalarNode {
		return &Error{Line: n.Line, Err: fmt.Errorf("%w: not a scalar", ErrBadKey)}
	}
	if n.Tag == "!!int" {
		v, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return &Error{Line: n.Line, Err: fmt.Errorf("%w: %v", ErrBadKey, err)}
		}
		k.Value = fsm.Key(v)
		return nil
	}
	r, size := utf8.DecodeRuneInString(n.Value)
	if r == utf8.RuneError || size != len(n.Value) {
		return &Error{Line: n.Line, Err: fmt.Errorf("%w: %q", ErrBadKey, n.Value)}
	}
	k.Value = fsm.Key(r)
	return nil
}

// Trans is one transition.
type Trans struct {
	Key   *Key     `yaml:"key"`
	Range []Key    `yaml:"range"`
	To    string   `yaml:"to"`
	Do    []string `yaml:"do"`
}

// CondRange applies a condition space to a key range.
type CondRange struct {
	Range []Key  `yaml:"range"`
	Space string `yaml:"space"`
}

// State is one state description.
type State struct {
	Name     string      `yaml:"name"`
	Final    bool        `yaml:"final"`
	On       []Trans     `yaml:"on"`
	Default  *Trans      `yaml:"default"`
	EOFTrans *Trans      `yaml:"eof_trans"`
	From     []string    `yaml:"from"`
	To       []string    `yaml:"to"`
	EOF      []string    `yaml:"eof"`
	Conds    []CondRange `yaml:"conds"`

	line int
}

// Action is one action description.
type Action struct {
	Name   string         `yaml:"name"`
	Pre    []string       `yaml:"pre"`
	Code   string         `yaml:"code"`
	Switch map[int]string `yaml:"switch"`

	line int
}

// CondSpace is one condition space description.
type CondSpace struct {
	Name  string   `yaml:"name"`
	Base  Key      `yaml:"base"`
	Preds []string `yaml:"preds"`
}

// Description is a whole machine description.
type Description struct {
	Name       string            `yaml:"name"`
	Alphabet   string            `yaml:"alphabet"`
	Start      string            `yaml:"start"`
	Error      string            `yaml:"error"`
	Stack      int               `yaml:"stack"`
	Actions    []Action          `yaml:"actions"`
	CondSpaces []CondSpace       `yaml:"cond_spaces"`
	States     []State           `yaml:"states"`
	Entries    map[string]string `yaml:"entries"`
	Exports    map[string]Key    `yaml:"exports"`
}

// UnmarshalYAML records the line of the state.
func (s *State) UnmarshalYAML(n *yaml.Node) error {
	type plain State
	if err := n.Decode((*plain)(s)); err != nil {
		return err
	}
	s.line = n.Line
	return nil
}

// UnmarshalYAML records the line of the action.
func (a *Action) UnmarshalYAML(n *yaml.Node) error {
	type plain Action
	if err := n.Decode((*plain)(a)); err != nil {
		return err
	}
	a.line = n.Line
	return nil
}

// Alphabets maps alphabet names to key descriptions.
var Alphabets = map[string]fsm.KeyOps{
	"byte":   fsm.ByteKeys,
	"char":   fsm.CharKeys,
	"uint16": fsm.Uint16Keys,
	"rune":   fsm.RuneKeys,
}

// Parse reads a description. file is used in error messages and recorded as
// the source of every action.
func Parse(data []byte, file string) (*fsm.Machine, error) {
	var d Description
	if err := yaml.Unmarshal(data, &d); err != nil {
		var le *Error
		if errors.As(err, &le) {
			le.File = file
			return nil, le
		}
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return d.Build(file)
}

// Load reads a description from r.
func Load(r io.Reader, file string) (*fsm.Machine, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data, file)
}

// LoadFile reads a description from a file.
func LoadFile(path string) (*fsm.Machine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, path)
}

type compiler struct {
	file    string
	b       *fsm.Builder
	states  map[string]fsm.StateID
	actions map[string]int
	spaces  map[string]int
}

func (c *compiler) fail(line int, err error) error {
	return &Error{File: c.file, Line: line, Err: err}
}

// Build converts the description to a machine.
func (d *Description) Build(file string) (*fsm.Machine, error) {
	alpha := d.Alphabet
	if alpha == "" {
		alpha = "byte"
	}
	keys, ok := Alphabets[alpha]
	if !ok {
		return nil, &Error{File: file, Err: fmt.Errorf("unknown alphabet %q", d.Alphabet)}
	}

	c := &compiler{
		file:    file,
		b:       fsm.NewBuilder(d.Name, keys),
		states:  make(map[string]fsm.StateID, len(d.States)),
		actions: make(map[string]int, len(d.Actions)),
		spaces:  make(map[string]int, len(d.CondSpaces)),
	}

	// States first: directives in action code refer to them.
	for _, s := range d.States {
		if _, dup := c.states[s.Name]; dup || s.Name == "" {
			return nil, c.fail(s.line, fmt.Errorf("duplicate or empty state name %q", s.Name))
		}
		c.states[s.Name] = c.b.AddNamedState(s.Name)
	}
	for _, a := range d.Actions {
		if err := c.action(a); err != nil {
			return nil, err
		}
	}
	for _, cs := range d.CondSpaces {
		preds, err := c.actionIDs(0, cs.Preds)
		if err != nil {
			return nil, err
		}
		c.spaces[cs.Name] = c.b.AddCondSpace(cs.Base.Value, preds...)
	}
	for _, s := range d.States {
		if err := c.state(s); err != nil {
			return nil, err
		}
	}

	start, ok := c.states[d.Start]
	if !ok {
		return nil, &Error{File: file, Err: fmt.Errorf("start: %w: %q", ErrUnknownState, d.Start)}
	}
	c.b.SetStart(start)
	if d.Error != "" {
		id, ok := c.states[d.Error]
		if !ok {
			return nil, &Error{File: file, Err: fmt.Errorf("error: %w: %q", ErrUnknownState, d.Error)}
		}
		c.b.SetError(id)
	}
	for _, name := range sortedKeys(d.Entries) {
		id, ok := c.states[d.Entries[name]]
		if !ok {
			return nil, &Error{File: file, Err: fmt.Errorf("entry %s: %w: %q", name, ErrUnknownState, d.Entries[name])}
		}
		c.b.AddEntry(name, id)
	}
	for _, name := range sortedKeys(d.Exports) {
		c.b.AddExport(name, d.Exports[name].Value)
	}
	c.b.SetStackSize(d.Stack)

	m, err := c.b.Build()
	if err != nil {
		return nil, &Error{File: file, Err: err}
	}
	return m, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (c *compiler) resolve(name string) (fsm.StateID, bool) {
	id, ok := c.states[name]
	return id, ok
}

func (c *compiler) action(a Action) error {
	if _, dup := c.actions[a.Name]; dup || a.Name == "" {
		return c.fail(a.line, fmt.Errorf("duplicate or empty action name %q", a.Name))
	}

	var items []fsm.InlineItem
	for _, p := range a.Pre {
		it, err := bookkeeping(p)
		if err != nil {
			return c.fail(a.line, fmt.Errorf("action %s: %w", a.Name, err))
		}
		items = append(items, it)
	}

	code, err := ScanDirectives(a.Code, c.resolve)
	if err != nil {
		return c.fail(a.line, fmt.Errorf("action %s: %w", a.Name, err))
	}
	items = append(items, code...)

	if len(a.Switch) > 0 {
		ids := make([]int, 0, len(a.Switch))
		for id := range a.Switch {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		cases := make([]fsm.LmCase, 0, len(ids))
		for _, id := range ids {
			caseItems, err := ScanDirectives(a.Switch[id], c.resolve)
			if err != nil {
				return c.fail(a.line, fmt.Errorf("action %s case %d: %w", a.Name, id, err))
			}
			cases = append(cases, fsm.LmCase{ID: id, Items: caseItems})
		}
		items = append(items, fsm.LmSwitch(cases...))
	}

	id := c.b.AddAction(a.Name, items...)
	c.b.SetActionSource(id, c.file, a.line)
	c.actions[a.Name] = id
	return nil
}

// bookkeeping parses one token bookkeeping item: set_ts, clear_ts, set_te,
// set_te+N, set_te-N, init_act or act=N.
func bookkeeping(s string) (fsm.InlineItem, error) {
	switch s = strings.ReplaceAll(s, " ", ""); {
	case s == "set_ts":
		return fsm.SetTokStart(), nil
	case s == "clear_ts":
		return fsm.InitTokStart(), nil
	case s == "init_act":
		return fsm.InitAct(), nil
	case s == "set_te":
		return fsm.SetTokEnd(0), nil
	case strings.HasPrefix(s, "set_te"):
		off, err := strconv.Atoi(strings.TrimPrefix(s, "set_te"))
		if err != nil {
			return fsm.InlineItem{}, fmt.Errorf("%w: %q", ErrDirective, s)
		}
		return fsm.SetTokEnd(off), nil
	case strings.HasPrefix(s, "act="):
		n, err := strconv.Atoi(strings.TrimPrefix(s, "act="))
		if err != nil {
			return fsm.InlineItem{}, fmt.Errorf("%w: %q", ErrDirective, s)
		}
		return fsm.SetAct(n), nil
	}
	return fsm.InlineItem{}, fmt.Errorf("%w: unknown bookkeeping item %q", ErrDirective, s)
}

func (c *compiler) actionIDs(line int, names []string) ([]int, error) {
	ids := make([]int, len(names))
	for i, n := range names {
		id, ok := c.actions[n]
		if !ok {
			return nil, c.fail(line, fmt.Errorf("%w: %q", ErrUnknownAction, n))
		}
		ids[i] = id
	}
	return ids, nil
}

func (c *compiler) target(line int, name string) (fsm.StateID, error) {
	id, ok := c.states[name]
	if !ok {
		return fsm.NoState, c.fail(line, fmt.Errorf("%w: %q", ErrUnknownState, name))
	}
	return id, nil
}

func (c *compiler) keyRange(line int, t Trans) (lo, hi fsm.Key, err error) {
	switch {
	case t.Key != nil && t.Range == nil:
		return t.Key.Value, t.Key.Value, nil
	case t.Key == nil && len(t.Range) == 2:
		return t.Range[0].Value, t.Range[1].Value, nil
	}
	return 0, 0, c.fail(line, fmt.Errorf("%w: transition needs key or a two-element range", ErrBadKey))
}

func (c *compiler) state(s State) error {
	id := c.states[s.Name]
	if s.Final {
		c.b.SetFinal(id)
	}

	for _, t := range s.On {
		lo, hi, err := c.keyRange(s.line, t)
		if err != nil {
			return err
		}
		to, err := c.target(s.line, t.To)
		if err != nil {
			return err
		}
		acts, err := c.actionIDs(s.line, t.Do)
		if err != nil {
			return err
		}
		c.b.AddRange(id, lo, hi, to, acts...)
	}

	special := []struct {
		t   *Trans
		set func(from, to fsm.StateID, actions ...int)
	}{
		{s.Default, c.b.SetDefault},
		{s.EOFTrans, c.b.SetEOFTrans},
	}
	for _, sp := range special {
		if sp.t == nil {
			continue
		}
		to, err := c.target(s.line, sp.t.To)
		if err != nil {
			return err
		}
		acts, err := c.actionIDs(s.line, sp.t.Do)
		if err != nil {
			return err
		}
		sp.set(id, to, acts...)
	}

	lists := []struct {
		names []string
		set   func(id fsm.StateID, actions ...int)
	}{
		{s.From, c.b.SetFromStateActions},
		{s.To, c.b.SetToStateActions},
		{s.EOF, c.b.SetEOFActions},
	}
	for _, l := range lists {
		if len(l.names) == 0 {
			continue
		}
		acts, err := c.actionIDs(s.line, l.names)
		if err != nil {
			return err
		}
		l.set(id, acts...)
	}

	for _, cr := range s.Conds {
		if len(cr.Range) != 2 {
			return c.fail(s.line, fmt.Errorf("%w: condition needs a two-element range", ErrBadKey))
		}
		space, ok := c.spaces[cr.Space]
		if !ok {
			return c.fail(s.line, fmt.Errorf("unknown condition space %q", cr.Space))
		}
		c.b.AddStateCond(id, cr.Range[0].Value, cr.Range[1].Value, space)
	}
	return nil
}
