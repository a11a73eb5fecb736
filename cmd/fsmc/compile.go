package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCompileCmd(a *app) *cobra.Command {
	var (
		flags  compileFlags
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "compile <machine.yaml>",
		Short: "Compile a machine into a matcher",
		Long: `Compile loads a machine description, compacts its transitions and
renders the matcher as Go source or as a readable listing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.compile(cmd, &flags, args[0])
			if err != nil {
				return err
			}

			var src []byte
			switch format {
			case "go":
				src, err = out.Go()
			case "text":
				src, err = out.Text()
			default:
				return fmt.Errorf("unknown format %q (want go or text)", format)
			}
			if err != nil {
				return err
			}

			if output == "" {
				_, err = cmd.OutOrStdout().Write(src)
				return err
			}
			if err := os.WriteFile(output, src, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			a.logger.Debug("matcher written", zap.String("output", output), zap.Int("bytes", len(src)))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "go", "Output format: go or text")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}
