package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitrdm/gosched/internal/metrics"
	"github.com/gitrdm/gosched/internal/store"
)

type solveResult struct {
	File      string             `json:"file"`
	Instance  string             `json:"instance,omitempty"`
	Kind      string             `json:"kind,omitempty"`
	Status    string             `json:"status"`
	Objective int                `json:"objective"`
	Limited   bool               `json:"limited"`
	ElapsedMS float64            `json:"elapsed_ms"`
	Nodes     int                `json:"nodes"`
	RunID     string             `json:"run_id,omitempty"`
	Intervals []store.Assignment `json:"intervals,omitempty"`
	Error     string             `json:"error,omitempty"`
}

func newSolveCmd() *cobra.Command {
	var (
		timeout time.Duration
		nodes   int
		workers int
		noStore bool
		show    bool
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "solve <file|dir|pattern>...",
		Short: "Solve instance files",
		Long: "Solve every instance matched by the arguments. Directories are searched " +
			"recursively for YAML files and patterns may use ** globs.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("timeout") {
				cfg.Timeout = timeout
			}
			if cmd.Flags().Changed("nodes") {
				cfg.NodeLimit = nodes
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if noStore {
				cfg.Store = false
			}

			paths, err := expandPatterns(args)
			if err != nil {
				return err
			}

			r := &runner{cfg: cfg, log: logger, rec: metrics.NewRecorder()}
			if cfg.Store {
				st, err := openStore(cmd.Context())
				if err != nil {
					return err
				}
				defer st.Close()
				r.store = st
			}

			outcomes, err := r.solveAll(cmd.Context(), paths)
			if err != nil {
				return err
			}
			if err := writeMetrics(r.rec); err != nil {
				return err
			}

			results := make([]solveResult, len(outcomes))
			failed := 0
			for i, o := range outcomes {
				results[i] = toResult(o, show || asJSON)
				if o.Err != nil {
					failed++
				}
			}
			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return err
				}
			} else {
				printResults(w, results, show)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d instances failed", failed, len(outcomes))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Time limit per instance (overrides config)")
	cmd.Flags().IntVar(&nodes, "nodes", 0, "Search node limit per instance (overrides config)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Instances solved in parallel (0 = CPU count)")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Do not record runs in the database")
	cmd.Flags().BoolVar(&show, "show", false, "Print the interval assignments")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}

func toResult(o outcome, withIntervals bool) solveResult {
	res := solveResult{File: o.Path, RunID: o.RunID}
	if o.Instance != nil {
		res.Instance = o.Instance.Name
		res.Kind = string(o.Instance.Kind)
	}
	if o.Err != nil {
		res.Status = "ERROR"
		res.Error = o.Err.Error()
		return res
	}
	sol := o.Solution
	res.Status = sol.Status.String()
	res.Objective = sol.Objective
	res.Limited = sol.Limited
	res.ElapsedMS = float64(sol.Elapsed.Microseconds()) / 1000
	if sol.Stats != nil {
		res.Nodes = sol.Stats.NodesExplored
	}
	if withIntervals {
		res.Intervals = runFromSolution(o.Instance, o.Built, sol).Intervals
	}
	return res
}

func printResults(w io.Writer, results []solveResult, show bool) {
	fmt.Fprintf(w, "%-24s  %-16s  %-12s  %10s  %10s  %8s\n", "INSTANCE", "KIND", "STATUS", "OBJECTIVE", "TIME(ms)", "NODES")
	for _, r := range results {
		name := r.Instance
		if name == "" {
			name = r.File
		}
		status := r.Status
		if r.Limited {
			status += "*"
		}
		fmt.Fprintf(w, "%-24s  %-16s  %-12s  %10d  %10.1f  %8d\n", name, r.Kind, status, r.Objective, r.ElapsedMS, r.Nodes)
		if r.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", r.Error)
		}
		if show {
			for _, iv := range r.Intervals {
				fmt.Fprintf(w, "  %-22s  [%d, %d)\n", iv.Name, iv.Start, iv.End)
			}
		}
	}
}
