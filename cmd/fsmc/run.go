package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/coregx/fsmc/exec"
	"github.com/coregx/fsmc/fsm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// printHost prints one line per literal action item with the current token.
type printHost struct {
	w     io.Writer
	conds []string
}

func (h *printHost) Text(a *fsm.Action, text string, f *exec.Frame) {
	fmt.Fprintf(h.w, "%s\t%s\t%q\n", a.Name, text, f.Token())
}

func (h *printHost) Cond(pred *fsm.Action, _ fsm.Key) bool {
	return slices.Contains(h.conds, pred.Name)
}

func newRunCmd(a *app) *cobra.Command {
	var (
		flags compileFlags
		entry string
		chunk int
		conds []string
	)
	cmd := &cobra.Command{
		Use:   "run <machine.yaml> [input...]",
		Short: "Run a machine over files or standard input",
		Long: `Run compiles a machine and feeds it the named files, or standard input
when none are given, as one stream. Literal action code is printed
instead of executed, one line per item with the current token.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if chunk < 1 {
				return fmt.Errorf("chunk size must be positive, have %d", chunk)
			}
			out, err := a.compile(cmd, &flags, args[0])
			if err != nil {
				return err
			}
			r, err := out.Runner()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			s := r.NewSession(&printHost{w: w, conds: conds})
			if entry != "" {
				cs, ok := r.Entry(entry)
				if !ok {
					return fmt.Errorf("unknown entry point %q", entry)
				}
				s.State().CS = cs
			}

			inputs := args[1:]
			if len(inputs) == 0 {
				err = feed(s, cmd.InOrStdin(), chunk)
			}
			for _, path := range inputs {
				if err != nil {
					break
				}
				err = feedFile(s, path, chunk)
			}
			if err != nil {
				return err
			}
			if err := s.Close(); err != nil {
				return err
			}

			st := s.State()
			a.logger.Debug("run finished", zap.Int("state", st.CS), zap.Int("consumed", st.P))
			fmt.Fprintf(w, "state %d accepted=%v failed=%v\n", st.CS, r.Accepts(st), r.Failed(st))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&entry, "entry", "", "Start at the named entry point")
	cmd.Flags().IntVar(&chunk, "chunk", 4096, "Bytes per write to the matcher")
	cmd.Flags().StringSliceVar(&conds, "cond", nil, "Condition predicates that evaluate to true")
	return cmd
}

func feedFile(s *exec.Session, path string, chunk int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return feed(s, f, chunk)
}

func feed(s *exec.Session, r io.Reader, chunk int) error {
	buf := make([]byte, chunk)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := s.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
