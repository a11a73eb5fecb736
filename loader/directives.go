package loader

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/coregx/ahocorasick"
	"github.com/coregx/fsmc/fsm"
)

// Directive keywords recognized inside action code.
var directives = []string{"fhold", "fexec", "fgoto", "fcall", "fret", "fbreak", "fnext"}

var (
	directiveOnce sync.Once
	directiveAuto *ahocorasick.Automaton
	directiveErr  error
)

func directiveAutomaton() (*ahocorasick.Automaton, error) {
	directiveOnce.Do(func() {
		builder := ahocorasick.NewBuilder()
		for _, d := range directives {
			builder.AddPattern([]byte(d))
		}
		directiveAuto, directiveErr = builder.Build()
	})
	return directiveAuto, directiveErr
}

// Resolver maps a state name used by a directive to its ID.
type Resolver func(name string) (fsm.StateID, bool)

// ScanDirectives splits action code into inline items. Host code between
// directives becomes Text items; each directive becomes its control item:
//
//	fhold;           hold the current symbol
//	fexec ts; fexec te;  continue at the token start or end
//	fgoto S; fnext S;    jump to, or set the next state to, S
//	fcall S; fret;       call S, return
//	fbreak;          stop after the current symbol
//
// A keyword embedded in a longer identifier, or inside a string, rune or
// raw string literal or a comment, is host code.
func ScanDirectives(code string, resolve Resolver) ([]fsm.InlineItem, error) {
	auto, err := directiveAutomaton()
	if err != nil {
		return nil, fmt.Errorf("directive automaton: %w", err)
	}

	src := []byte(code)
	literal := hostLiterals(src)
	var items []fsm.InlineItem
	text := 0
	flush := func(end int) {
		if t := strings.TrimSpace(code[text:end]); t != "" {
			items = append(items, fsm.Text(t))
		}
	}

	for at := 0; at < len(src); {
		m := auto.Find(src, at)
		if m == nil {
			break
		}
		if literal[m.Start] || !wordBoundary(src, m.Start, m.End) {
			at = m.Start + 1
			continue
		}
		kw := code[m.Start:m.End]
		arg, next, err := directiveArg(code, m.End)
		if err != nil {
			return nil, fmt.Errorf("%s at offset %d: %w", kw, m.Start, err)
		}
		item, err := directiveItem(kw, arg, resolve)
		if err != nil {
			return nil, fmt.Errorf("%s at offset %d: %w", kw, m.Start, err)
		}
		flush(m.Start)
		items = append(items, item)
		text, at = next, next
	}
	flush(len(code))
	return items, nil
}

// hostLiterals marks the bytes of src that belong to string, rune and raw
// string literals or to comments. An unterminated literal runs to the end.
func hostLiterals(src []byte) []bool {
	in := make([]bool, len(src))
	mark := func(from, to int) int {
		to = min(to, len(src))
		for i := from; i < to; i++ {
			in[i] = true
		}
		return to
	}
	for i := 0; i < len(src); {
		switch c := src[i]; {
		case c == '"' || c == '\'':
			j := i + 1
			for j < len(src) && src[j] != c {
				if src[j] == '\\' {
					j++
				}
				j++
			}
			i = mark(i, j+1)
		case c == '`':
			j := bytes.IndexByte(src[i+1:], '`')
			if j < 0 {
				i = mark(i, len(src))
				continue
			}
			i = mark(i, i+j+2)
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			j := bytes.IndexByte(src[i:], '\n')
			if j < 0 {
				j = len(src) - i
			}
			i = mark(i, i+j)
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			j := bytes.Index(src[i+2:], []byte("*/"))
			if j < 0 {
				i = mark(i, len(src))
				continue
			}
			i = mark(i, i+j+4)
		default:
			i++
		}
	}
	return in
}

func isIdent(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func wordBoundary(src []byte, start, end int) bool {
	if start > 0 && isIdent(src[start-1]) {
		return false
	}
	return end >= len(src) || !isIdent(src[end])
}

// directiveArg returns the trimmed text up to the terminating ';' and the
// offset just past it.
func directiveArg(code string, from int) (string, int, error) {
	i := strings.IndexByte(code[from:], ';')
	if i < 0 {
		return "", 0, ErrUnterminated
	}
	return strings.TrimSpace(code[from : from+i]), from + i + 1, nil
}

func directiveItem(kw, arg string, resolve Resolver) (fsm.InlineItem, error) {
	noArg := func(it fsm.InlineItem) (fsm.InlineItem, error) {
		if arg != "" {
			return fsm.InlineItem{}, fmt.Errorf("%w: unexpected argument %q", ErrDirective, arg)
		}
		return it, nil
	}
	target := func(mk func(fsm.StateID) fsm.InlineItem) (fsm.InlineItem, error) {
		if arg == "" {
			return fsm.InlineItem{}, fmt.Errorf("%w: missing target state", ErrDirective)
		}
		id, ok := resolve(arg)
		if !ok {
			return fsm.InlineItem{}, fmt.Errorf("%w: %q", ErrUnknownState, arg)
		}
		return mk(id), nil
	}

	switch kw {
	case "fhold":
		return noArg(fsm.Hold())
	case "fret":
		return noArg(fsm.Ret())
	case "fbreak":
		return noArg(fsm.Break())
	case "fgoto":
		return target(fsm.Goto)
	case "fnext":
		return target(fsm.Next)
	case "fcall":
		return target(fsm.Call)
	case "fexec":
		switch arg {
		case "ts":
			return fsm.Exec(fsm.MarkTokStart), nil
		case "te":
			return fsm.Exec(fsm.MarkTokEnd), nil
		}
		return fsm.InlineItem{}, fmt.Errorf("%w: fexec takes ts or te, got %q", ErrDirective, arg)
	}
	return fsm.InlineItem{}, fmt.Errorf("%w: %s", ErrDirective, kw)
}
