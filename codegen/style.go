package codegen

import (
	"fmt"
	"strings"

	"github.com/coregx/fsmc/tables"
)

// Style selects how the matcher locates transitions.
type Style uint8

const (
	// StyleTable binary-searches keys stored in the table arrays.
	StyleTable Style = iota
	// StyleFlat indexes the table arrays directly within each state's span.
	StyleFlat
	// StyleGoto inlines a comparison cascade per state.
	StyleGoto
	// StyleSplit is StyleGoto with states spread over N partitions.
	StyleSplit
)

var styleNames = [...]string{
	StyleTable: "table",
	StyleFlat:  "flat",
	StyleGoto:  "goto",
	StyleSplit: "split",
}

// String returns the style name.
func (s Style) String() string {
	if int(s) < len(styleNames) {
		return styleNames[s]
	}
	return fmt.Sprintf("Style(%d)", s)
}

// ParseStyle returns the style with the given name.
func ParseStyle(name string) (Style, error) {
	for s, n := range styleNames {
		if strings.EqualFold(n, name) {
			return Style(s), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStyle, name)
}

// Styles returns every style in declaration order.
func Styles() []Style {
	return []Style{StyleTable, StyleFlat, StyleGoto, StyleSplit}
}

// UsesTables reports whether the style reads serialized arrays.
func (s Style) UsesTables() bool {
	return s == StyleTable || s == StyleFlat
}

// Layout returns the array layout of a table-driven style.
func (s Style) Layout() tables.Layout {
	if s == StyleFlat {
		return tables.LayoutFlat
	}
	return tables.LayoutTable
}

// MarshalText implements encoding.TextMarshaler.
func (s Style) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Style) UnmarshalText(b []byte) error {
	v, err := ParseStyle(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
