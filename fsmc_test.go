package fsmc_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/coregx/fsmc"
	"github.com/coregx/fsmc/codegen"
	"github.com/coregx/fsmc/codegen/golang"
	"github.com/coregx/fsmc/exec"
	"github.com/coregx/fsmc/fsm"
	"github.com/coregx/fsmc/loader"
	"github.com/coregx/fsmc/tables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// seenMachine loops in state 0 until 'a' moves it to final state 1, whose
// to-state action reports "seen-a".
func seenMachine(t *testing.T) *fsm.Machine {
	t.Helper()
	b := fsm.NewBuilder("seen", fsm.ByteKeys)
	s0 := b.AddState()
	s1 := b.AddState()
	seen := b.AddAction("seen", fsm.Text("seen-a"))
	b.SetStart(s0)
	b.SetFinal(s1)
	b.AddKey(s0, 'a', s1)
	b.SetDefault(s0, s0)
	b.SetToStateActions(s1, seen)
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

const wordsYAML = `
name: words
start: space
actions:
  - name: begin
    pre: [set_ts]
  - name: word
    pre: [set_te]
    code: "word"
states:
  - name: space
    on:
      - {range: [a, z], to: word, do: [begin]}
    default: {to: space}
  - name: word
    final: true
    on:
      - {range: [a, z], to: word}
    default: {to: space, do: [word]}
    eof: [word]
`

type trace struct {
	events []string
}

func (h *trace) Text(_ *fsm.Action, text string, f *exec.Frame) {
	if tok := f.Token(); tok != nil {
		text += ":" + string(tok)
	}
	h.events = append(h.events, text)
}

func (h *trace) Cond(*fsm.Action, fsm.Key) bool { return false }

func (h *trace) String() string {
	return strings.Join(h.events, " ")
}

func TestCompileSeenAcrossBuffers(t *testing.T) {
	for _, style := range codegen.Styles() {
		t.Run(style.String(), func(t *testing.T) {
			out, err := fsmc.CompileWithConfig(seenMachine(t), fsmc.DefaultConfig().WithStyle(style))
			require.NoError(t, err)
			r, err := out.Runner()
			require.NoError(t, err)

			var whole, split exec.State
			wholeTrace, splitTrace := &trace{}, &trace{}
			r.Init(&whole)
			require.NoError(t, r.Exec(&whole, []byte("xxa"), false, wholeTrace))

			r.Init(&split)
			require.NoError(t, r.Exec(&split, []byte("xx"), false, splitTrace))
			require.NoError(t, r.Exec(&split, []byte("a"), false, splitTrace))

			assert.Equal(t, "seen-a", wholeTrace.String())
			assert.Equal(t, wholeTrace.String(), splitTrace.String())
			assert.Equal(t, 1, whole.CS)
			assert.Equal(t, whole.CS, split.CS)
			assert.True(t, r.Accepts(&split))
		})
	}
}

func TestCompileOutput(t *testing.T) {
	out, err := fsmc.Compile(seenMachine(t))
	require.NoError(t, err)

	require.NotNil(t, out.Tables)
	assert.Equal(t, tables.LayoutTable, out.Tables.Layout)
	assert.Equal(t, out.Decision.UseIndex, out.Tables.UseIndex)
	start, ok := out.Program.Const("seen_start")
	require.True(t, ok)
	assert.EqualValues(t, 0, start)
	errState, ok := out.Program.Const("seen_error")
	require.True(t, ok)
	assert.EqualValues(t, tables.NoError, errState)

	out, err = fsmc.CompileWithConfig(seenMachine(t), fsmc.DefaultConfig().WithStyle(codegen.StyleGoto))
	require.NoError(t, err)
	assert.Nil(t, out.Tables)
	assert.Len(t, out.Program.States, 2)
}

func TestCompileRender(t *testing.T) {
	config := fsmc.DefaultConfig()
	config.Package = "seen"
	out, err := fsmc.CompileWithConfig(seenMachine(t), config)
	require.NoError(t, err)

	src, err := out.Go()
	require.NoError(t, err)
	assert.Contains(t, string(src), "package seen")
	assert.Contains(t, string(src), "func (m *seenMachine) exec(data []byte, atEOF bool) (int, error)")

	text, err := out.Text()
	require.NoError(t, err)
	assert.Contains(t, string(text), "matcher seen style=table")

	config = config.WithHostLang("c")
	out, err = fsmc.CompileWithConfig(seenMachine(t), config)
	require.NoError(t, err)
	_, err = out.Go()
	assert.ErrorIs(t, err, fsmc.ErrHostLang)
	text, err = out.Text()
	require.NoError(t, err)
	assert.Contains(t, string(text), "char")
}

func TestCompileRenderNames(t *testing.T) {
	config := fsmc.DefaultConfig()
	config.NoPrefix = true
	out, err := fsmc.CompileWithConfig(seenMachine(t), config)
	require.NoError(t, err)
	src, err := out.Go()
	require.NoError(t, err)
	assert.Contains(t, string(src), "const error_state int = ")
	assert.NotContains(t, string(src), "const error int")

	b := fsm.NewBuilder("my-lexer", fsm.ByteKeys)
	s := b.AddState()
	b.SetStart(s)
	b.SetFinal(s)
	b.AddKey(s, 'a', s)
	m, err := b.Build()
	require.NoError(t, err)
	out, err = fsmc.Compile(m)
	require.NoError(t, err)
	_, err = out.Go()
	assert.ErrorIs(t, err, golang.ErrIdentifier)
}

func TestCompileErrors(t *testing.T) {
	_, err := fsmc.Compile(nil)
	assert.ErrorIs(t, err, fsmc.ErrNilMachine)

	m := seenMachine(t)
	m.Errors = 2
	_, err = fsmc.Compile(m)
	assert.ErrorIs(t, err, tables.ErrUpstreamErrors)
	var ce *fsmc.CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "validate", ce.Stage)

	b := fsm.NewBuilder("orphan", fsm.ByteKeys)
	s := b.AddState()
	b.AddState()
	b.SetStart(s)
	orphan, err := b.Build()
	require.NoError(t, err)
	_, err = fsmc.Compile(orphan)
	assert.ErrorIs(t, err, fsm.ErrUnreachable)

	wide := fsm.NewBuilder("wide", fsm.RuneKeys)
	ws := wide.AddState()
	wide.SetStart(ws)
	wide.AddKey(ws, 0, ws)
	wide.AddKey(ws, 0x10FFFF, ws)
	wm, err := wide.Build()
	require.NoError(t, err)
	config := fsmc.DefaultConfig().WithStyle(codegen.StyleFlat)
	config.MaxFlatSpan = 1024
	_, err = fsmc.CompileWithConfig(wm, config)
	assert.ErrorIs(t, err, tables.ErrFlatSpanTooLarge)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*fsmc.Config)
		field  string
	}{
		{"default", func(*fsmc.Config) {}, ""},
		{"style", func(c *fsmc.Config) { c.Style = codegen.Style(9) }, "Style"},
		{"partitions", func(c *fsmc.Config) { c.Partitions = 0 }, "Partitions"},
		{"flat span", func(c *fsmc.Config) { c.MaxFlatSpan = 0 }, "MaxFlatSpan"},
		{"host", func(c *fsmc.Config) { c.HostLang = "cobol" }, "HostLang"},
		{"package", func(c *fsmc.Config) { c.Package = "my-pkg" }, "Package"},
		{"c package ignored", func(c *fsmc.Config) { c.HostLang, c.Package = "c", "" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := fsmc.DefaultConfig()
			tt.modify(&config)
			err := config.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ce *fsmc.ConfigError
			require.True(t, errors.As(err, &ce), "error %v is not a *ConfigError", err)
			assert.Equal(t, tt.field, ce.Field)

			_, err = fsmc.CompileWithConfig(seenMachine(t), config)
			assert.Error(t, err)
		})
	}
}

func TestCompileLogs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	config := fsmc.DefaultConfig().WithLogger(zap.New(core))
	_, err := fsmc.CompileWithConfig(seenMachine(t), config)
	require.NoError(t, err)

	for _, msg := range []string{"reduced", "index decision", "tables serialized", "program built"} {
		assert.Equal(t, 1, logs.FilterMessage(msg).Len(), msg)
	}
	entry := logs.FilterMessage("program built").All()[0]
	assert.Equal(t, "seen", entry.ContextMap()["machine"])
}

func TestLoadedScannerSession(t *testing.T) {
	m, err := loader.Parse([]byte(wordsYAML), "words.yaml")
	require.NoError(t, err)

	for _, style := range codegen.Styles() {
		t.Run(style.String(), func(t *testing.T) {
			out, err := fsmc.CompileWithConfig(m, fsmc.DefaultConfig().WithStyle(style).WithPartitions(2))
			require.NoError(t, err)
			r, err := out.Runner()
			require.NoError(t, err)

			h := &trace{}
			s := r.NewSession(h)
			for _, chunk := range []string{"a", "b c", "d"} {
				_, err := s.Write([]byte(chunk))
				require.NoError(t, err)
			}
			require.NoError(t, s.Close())
			assert.Equal(t, "word:ab word:cd", h.String())
		})
	}
}
