package fsmc

import (
	"go/token"

	"github.com/coregx/fsmc/codegen"
	"github.com/coregx/fsmc/hosttype"
	"github.com/coregx/fsmc/tables"
	"go.uber.org/zap"
)

// Config controls compilation.
//
// Example:
//
//	config := fsmc.DefaultConfig()
//	config.Style = codegen.StyleGoto
//	out, err := fsmc.CompileWithConfig(m, config)
type Config struct {
	// Style selects the matcher strategy.
	// Default: codegen.StyleTable
	Style codegen.Style `yaml:"style"`

	// Partitions is the number of state partitions for codegen.StyleSplit.
	// Default: 1
	Partitions int `yaml:"partitions"`

	// NoEnd drops the buffer end checks from the generated matcher, which
	// must then be stopped by an action before it runs off the data.
	NoEnd bool `yaml:"no_end"`

	// NoPrefix emits constants without the machine name prefix.
	NoPrefix bool `yaml:"no_prefix"`

	// NoFinal and NoError omit the first_final and error constants.
	NoFinal bool `yaml:"no_final"`
	NoError bool `yaml:"no_error"`

	// LineDirectives emits source positions of action code.
	LineDirectives bool `yaml:"line_directives"`

	// MaxFlatSpan caps the key span of one state in codegen.StyleFlat.
	// Default: tables.DefaultMaxFlatSpan
	MaxFlatSpan int64 `yaml:"max_flat_span"`

	// HostLang names the host-type table: "go" or "c".
	// Default: "go"
	HostLang string `yaml:"host_lang"`

	// Package is the package clause of rendered Go source.
	// Default: "fsm"
	Package string `yaml:"package"`

	// Logger receives debug records of the compilation steps.
	// Default: zap.NewNop()
	Logger *zap.Logger `yaml:"-"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Style:       codegen.StyleTable,
		Partitions:  1,
		MaxFlatSpan: tables.DefaultMaxFlatSpan,
		HostLang:    "go",
		Package:     "fsm",
	}
}

// Validate checks the configuration.
//
// Valid ranges:
//   - Partitions: 1 to 1,024
//   - MaxFlatSpan: 1 to 16,777,216
//   - HostLang: a known host-type table
//   - Package: a Go identifier when HostLang is "go"
func (c Config) Validate() error {
	if c.Style > codegen.StyleSplit {
		return &ConfigError{Field: "Style", Message: "unknown style " + c.Style.String()}
	}
	if c.Partitions < 1 || c.Partitions > 1_024 {
		return &ConfigError{Field: "Partitions", Message: "must be between 1 and 1,024"}
	}
	if c.MaxFlatSpan < 1 || c.MaxFlatSpan > 1<<24 {
		return &ConfigError{Field: "MaxFlatSpan", Message: "must be between 1 and 16,777,216"}
	}
	if _, err := hosttype.ForLang(c.HostLang); err != nil {
		return &ConfigError{Field: "HostLang", Message: err.Error()}
	}
	if c.HostLang == "go" && !token.IsIdentifier(c.Package) {
		return &ConfigError{Field: "Package", Message: "not a Go identifier: " + c.Package}
	}
	return nil
}

// WithStyle returns a new config with the specified style.
func (c Config) WithStyle(s codegen.Style) Config {
	c.Style = s
	return c
}

// WithPartitions returns a new config with the specified partition count.
func (c Config) WithPartitions(n int) Config {
	c.Partitions = n
	return c
}

// WithHostLang returns a new config with the specified host language.
func (c Config) WithHostLang(lang string) Config {
	c.HostLang = lang
	return c
}

// WithLogger returns a new config that logs to l.
func (c Config) WithLogger(l *zap.Logger) Config {
	c.Logger = l
	return c
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c Config) options() codegen.Options {
	return codegen.Options{
		Style:          c.Style,
		Partitions:     c.Partitions,
		NoEnd:          c.NoEnd,
		NoPrefix:       c.NoPrefix,
		NoFinal:        c.NoFinal,
		NoError:        c.NoError,
		LineDirectives: c.LineDirectives,
	}
}

// ConfigError represents an invalid configuration parameter.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "fsmc: invalid config: " + e.Field + ": " + e.Message
}
