package main

import (
	"fmt"

	"github.com/coregx/fsmc/codegen"
	"github.com/spf13/cobra"
)

func newTablesCmd(a *app) *cobra.Command {
	var (
		flags  compileFlags
		values bool
	)
	cmd := &cobra.Command{
		Use:   "tables <machine.yaml>",
		Short: "Show the serialized arrays of a machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.compile(cmd, &flags, args[0])
			if err != nil {
				return err
			}
			t := out.Tables
			if t == nil {
				return fmt.Errorf("style %s does not use tables", out.Config.Style)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s\n", out.Decision)
			fmt.Fprintf(w, "layout %s, %d states, index %v, %d bytes\n",
				t.Layout, t.NumStates(), t.UseIndex, t.Bytes())
			fmt.Fprintf(w, "%-20s %-8s %6s %6s\n", "ARRAY", "TYPE", "LEN", "BYTES")
			for _, arr := range t.Arrays {
				fmt.Fprintf(w, "%-20s %-8s %6d %6d\n", arr.Name, arr.Type, arr.Len(), arr.Bytes())
				if values {
					fmt.Fprintf(w, "  %v\n", arr.Values)
				}
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&values, "values", false, "Print array contents")
	return cmd
}

func newStylesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "styles",
		Short: "List the matcher styles",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, s := range codegen.Styles() {
				kind := "goto"
				if s.UsesTables() {
					kind = s.Layout().String() + " tables"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-6s %s\n", s, kind)
			}
		},
	}
}
