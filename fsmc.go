// Package fsmc compiles finite-state machines into compact tables and
// resumable matchers.
//
// A compilation takes a minimized automaton (fsm.Machine), compacts each
// state's transitions into singles, ranges and a default, decides whether an
// indirection index pays for itself, serializes the arrays of the chosen
// style and assembles the matcher skeleton. The result can be rendered as Go
// source or as a readable listing, or executed in process.
//
// Basic usage:
//
//	m, err := loader.LoadFile("words.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := fsmc.Compile(m)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	src, err := out.Go()
//
// Running in process:
//
//	r, _ := out.Runner()
//	s := r.NewSession(host)
//	io.Copy(s, input)
//	s.Close()
package fsmc

import (
	"errors"
	"fmt"

	"github.com/coregx/fsmc/codegen"
	"github.com/coregx/fsmc/codegen/golang"
	"github.com/coregx/fsmc/compact"
	"github.com/coregx/fsmc/exec"
	"github.com/coregx/fsmc/fsm"
	"github.com/coregx/fsmc/hosttype"
	"github.com/coregx/fsmc/tables"
	"go.uber.org/zap"
)

var (
	// ErrNilMachine is returned when Compile is given no machine.
	ErrNilMachine = errors.New("nil machine")

	// ErrHostLang is returned when Go source is requested for a non-Go
	// host-type table.
	ErrHostLang = errors.New("output requires the go host language")
)

// CompileError reports the compilation stage that failed.
type CompileError struct {
	Machine string
	Stage   string
	Err     error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("fsmc: compile %s: %s: %v", e.Machine, e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// Output is the result of one compilation.
type Output struct {
	Config   Config
	Machine  *fsm.Machine
	Reduced  *compact.Machine
	Decision compact.Decision

	// Tables is nil for the goto-driven styles.
	Tables *tables.Tables

	Program *codegen.Program
}

// Compile compiles m with the default configuration.
func Compile(m *fsm.Machine) (*Output, error) {
	return CompileWithConfig(m, DefaultConfig())
}

// MustCompile is like Compile but panics on error.
func MustCompile(m *fsm.Machine) *Output {
	out, err := Compile(m)
	if err != nil {
		panic(err)
	}
	return out
}

// CompileWithConfig compiles m. It returns a complete Output or an error,
// never a partial result.
func CompileWithConfig(m *fsm.Machine, config Config) (*Output, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNilMachine
	}
	host, err := hosttype.ForLang(config.HostLang)
	if err != nil {
		return nil, err
	}
	c := &compilation{
		config:  config,
		log:     config.logger().With(zap.String("machine", m.Name)),
		host:    host,
		actions: compact.NewActionTable(),
		m:       m,
	}
	return c.run()
}

// compilation is the state of one Compile call. Nothing in it outlives the
// call or is shared between calls.
type compilation struct {
	config  Config
	log     *zap.Logger
	host    hosttype.Table
	actions *compact.ActionTable
	m       *fsm.Machine
}

func (c *compilation) fail(stage string, err error) error {
	c.log.Debug("compilation failed", zap.String("stage", stage), zap.Error(err))
	return &CompileError{Machine: c.m.Name, Stage: stage, Err: err}
}

func (c *compilation) run() (*Output, error) {
	m := c.m
	if m.Errors > 0 {
		return nil, c.fail("validate", fmt.Errorf("%w (%d errors)", tables.ErrUpstreamErrors, m.Errors))
	}
	if err := m.Validate(); err != nil {
		return nil, c.fail("validate", err)
	}

	r := compact.Reduce(m, c.actions)
	c.log.Debug("reduced",
		zap.Int("states", len(r.States)),
		zap.Int("transitions", len(r.TransSet)),
		zap.Int("action_lists", c.actions.Len()),
	)

	d, err := compact.Decide(r, c.host)
	if err != nil {
		return nil, c.fail("decide", err)
	}
	c.log.Debug("index decision",
		zap.Bool("use_index", d.UseIndex),
		zap.Int("size_with_index", d.SizeWithIndex),
		zap.Int("size_without_index", d.SizeWithoutIndex),
	)

	style := c.config.Style
	var t *tables.Tables
	if style.UsesTables() {
		t, err = tables.Serialize(r, d, tables.Options{
			Layout:      style.Layout(),
			Host:        c.host,
			MaxFlatSpan: c.config.MaxFlatSpan,
		})
		if err != nil {
			return nil, c.fail("serialize", err)
		}
		c.log.Debug("tables serialized",
			zap.Stringer("layout", t.Layout),
			zap.Int("arrays", len(t.Arrays)),
			zap.Int("bytes", t.Bytes()),
		)
	}

	p, err := codegen.Build(r, d, t, c.config.options())
	if err != nil {
		return nil, c.fail("codegen", err)
	}
	c.log.Debug("program built",
		zap.Stringer("style", style),
		zap.Int("steps", len(p.Steps)),
		zap.Int("actions", len(p.Actions)),
	)

	return &Output{
		Config:   c.config,
		Machine:  m,
		Reduced:  r,
		Decision: d,
		Tables:   t,
		Program:  p,
	}, nil
}

// Render renders the program with r.
func (o *Output) Render(r codegen.Renderer) ([]byte, error) {
	return codegen.Render(o.Program, r)
}

// Go renders the program as Go source in the configured package.
func (o *Output) Go() ([]byte, error) {
	if o.Config.HostLang != "go" {
		return nil, fmt.Errorf("%w, have %q", ErrHostLang, o.Config.HostLang)
	}
	return o.Render(golang.New(o.Config.Package))
}

// Text renders a readable listing of the program.
func (o *Output) Text() ([]byte, error) {
	return o.Render(codegen.NewTextRenderer())
}

// Runner returns an in-process runner for the program.
func (o *Output) Runner() (*exec.Runner, error) {
	return exec.New(o.Program)
}
