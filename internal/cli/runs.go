package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitrdm/gosched/internal/store"
)

// errNoRun is returned when a run lookup finds nothing.
var errNoRun = errors.New("run not found")

func newRunsCmd() *cobra.Command {
	var opts store.ListOptions
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			runs, total, err := st.ListRuns(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			w := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(w, "No runs found.")
				return nil
			}
			fmt.Fprintf(w, "%-40s  %-20s  %-12s  %10s  %s\n", "ID", "INSTANCE", "STATUS", "OBJECTIVE", "CREATED")
			for _, r := range runs {
				fmt.Fprintf(w, "%-40s  %-20s  %-12s  %10d  %s\n",
					r.ID, r.Instance, r.Status, r.Objective, r.CreatedAt.Format(time.RFC3339))
			}
			if len(runs) < total {
				fmt.Fprintf(w, "\n(%d of %d shown)\n", len(runs), total)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Instance, "instance", "", "Only runs of this instance")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "Maximum runs to list")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Runs to skip")

	cmd.AddCommand(newRunsShowCmd(), newRunsBestCmd(), newRunsDeleteCmd())
	return cmd
}

func printRun(cmd *cobra.Command, r *store.Run) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "ID:        %s\n", r.ID)
	fmt.Fprintf(w, "Instance:  %s (%s)\n", r.Instance, r.Kind)
	fmt.Fprintf(w, "Status:    %s\n", r.Status)
	fmt.Fprintf(w, "Objective: %d\n", r.Objective)
	fmt.Fprintf(w, "Limited:   %t\n", r.Limited)
	fmt.Fprintf(w, "Elapsed:   %s\n", r.Elapsed)
	fmt.Fprintf(w, "Nodes:     %d\n", r.Nodes)
	fmt.Fprintf(w, "Created:   %s\n", r.CreatedAt.Format(time.RFC3339))
	for _, iv := range r.Intervals {
		fmt.Fprintf(w, "  %-22s  [%d, %d)\n", iv.Name, iv.Start, iv.End)
	}
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()
			r, err := st.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if r == nil {
				return fmt.Errorf("%w: %s", errNoRun, args[0])
			}
			printRun(cmd, r)
			return nil
		},
	}
}

func newRunsBestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "best <instance>",
		Short: "Show the best solved run of an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()
			r, err := st.BestRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if r == nil {
				return fmt.Errorf("%w: no solved run of %s", errNoRun, args[0])
			}
			printRun(cmd, r)
			return nil
		},
	}
}

func newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>...",
		Short: "Delete runs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()
			for _, id := range args {
				if err := st.DeleteRun(cmd.Context(), id); err != nil {
					return fmt.Errorf("delete %s: %w", id, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d run(s).\n", len(args))
			return nil
		},
	}
}
