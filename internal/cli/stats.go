package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitrdm/gosched/internal/instance"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file|dir|pattern>...",
		Short: "Show model statistics without solving",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := expandPatterns(args)
			if err != nil {
				return err
			}
			opts, err := cfg.modelOptions()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-24s  %9s  %8s  %9s  %6s  %9s  %11s\n",
				"INSTANCE", "INTERVALS", "OPTIONAL", "SEQUENCES", "CUMULS", "VARIABLES", "CONSTRAINTS")
			for _, p := range paths {
				in, err := instance.Load(p)
				if err != nil {
					return err
				}
				b, err := instance.Build(in, opts...)
				if err != nil {
					return err
				}
				st := b.Model.Statistics()
				fmt.Fprintf(w, "%-24s  %9d  %8d  %9d  %6d  %9d  %11d\n",
					in.Name, st.Intervals, st.OptionalIntervals, st.Sequences,
					st.CumulFunctions, st.SolverVariables, st.SolverConstraints)
			}
			return nil
		},
	}
}
