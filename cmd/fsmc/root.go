package main

import (
	"fmt"
	"os"

	"github.com/coregx/fsmc"
	"github.com/coregx/fsmc/codegen"
	"github.com/coregx/fsmc/loader"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// app is the state shared by the commands of one invocation.
type app struct {
	cfgFile string
	verbose bool

	logger *zap.Logger
	config fsmc.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "fsmc",
		Short:        "fsmc - state-machine table compactor and matcher generator",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "YAML file with compilation settings")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log compilation steps")

	root.AddCommand(newCompileCmd(a))
	root.AddCommand(newTablesCmd(a))
	root.AddCommand(newRunCmd(a))
	root.AddCommand(newStylesCmd())
	return root
}

func (a *app) setup() error {
	var err error
	if a.verbose {
		a.logger, err = zap.NewDevelopment()
	} else {
		a.logger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	a.config = fsmc.DefaultConfig()
	if a.cfgFile != "" {
		data, err := os.ReadFile(a.cfgFile)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &a.config); err != nil {
			return fmt.Errorf("parse config %s: %w", a.cfgFile, err)
		}
	}
	a.config.Logger = a.logger
	return nil
}

// compileFlags are the settings every compiling command accepts. Flags
// given on the command line override the config file.
type compileFlags struct {
	style          string
	partitions     int
	host           string
	pkg            string
	maxFlatSpan    int64
	noEnd          bool
	noPrefix       bool
	noFinal        bool
	noError        bool
	lineDirectives bool
}

func (f *compileFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.style, "style", "s", "table", "Matcher style: table, flat, goto or split")
	fl.IntVar(&f.partitions, "partitions", 1, "State partitions for the split style")
	fl.StringVar(&f.host, "host", "go", "Host-type table: go or c")
	fl.StringVar(&f.pkg, "package", "fsm", "Package clause of generated Go source")
	fl.Int64Var(&f.maxFlatSpan, "max-flat-span", 0, "Largest key span of one state in the flat style")
	fl.BoolVar(&f.noEnd, "no-end", false, "Drop buffer end checks from the matcher")
	fl.BoolVar(&f.noPrefix, "no-prefix", false, "Emit constants without the machine name prefix")
	fl.BoolVar(&f.noFinal, "no-final", false, "Omit the first_final constant")
	fl.BoolVar(&f.noError, "no-error", false, "Omit the error constant")
	fl.BoolVar(&f.lineDirectives, "line-directives", false, "Emit source positions of action code")
}

func (f *compileFlags) apply(cmd *cobra.Command, c *fsmc.Config) error {
	fl := cmd.Flags()
	if fl.Changed("style") {
		s, err := codegen.ParseStyle(f.style)
		if err != nil {
			return err
		}
		c.Style = s
	}
	if fl.Changed("partitions") {
		c.Partitions = f.partitions
	}
	if fl.Changed("host") {
		c.HostLang = f.host
	}
	if fl.Changed("package") {
		c.Package = f.pkg
	}
	if fl.Changed("max-flat-span") {
		c.MaxFlatSpan = f.maxFlatSpan
	}
	c.NoEnd = c.NoEnd || f.noEnd
	c.NoPrefix = c.NoPrefix || f.noPrefix
	c.NoFinal = c.NoFinal || f.noFinal
	c.NoError = c.NoError || f.noError
	c.LineDirectives = c.LineDirectives || f.lineDirectives
	return nil
}

// compile loads the machine at path and compiles it with the flags of cmd.
func (a *app) compile(cmd *cobra.Command, f *compileFlags, path string) (*fsmc.Output, error) {
	config := a.config
	if err := f.apply(cmd, &config); err != nil {
		return nil, err
	}
	m, err := loader.LoadFile(path)
	if err != nil {
		return nil, err
	}
	out, err := fsmc.CompileWithConfig(m, config)
	if err != nil {
		a.logger.Error("compilation failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	a.logger.Debug("compiled", zap.String("path", path), zap.Stringer("program", out.Program))
	return out, nil
}
