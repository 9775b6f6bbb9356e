package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/gitrdm/gosched/internal/instance"
	"github.com/gitrdm/gosched/internal/metrics"
	"github.com/gitrdm/gosched/internal/parallel"
	"github.com/gitrdm/gosched/internal/store"
	"github.com/gitrdm/gosched/pkg/scheduling"
)

// outcome is the result of solving one instance file.
type outcome struct {
	Path     string
	Instance *instance.Instance
	Built    *instance.Built
	Solution *scheduling.Solution
	RunID    string
	Err      error
}

// runner solves instance files with shared settings, store and metrics.
type runner struct {
	cfg   Config
	log   *slog.Logger
	store store.Store
	rec   *metrics.Recorder
}

// expandPatterns resolves files, directories and doublestar patterns into
// a sorted list of instance files. A directory stands for every YAML file
// below it.
func expandPatterns(patterns []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, p := range patterns {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			p = filepath.Join(p, "**", "*.{yaml,yml}")
		}
		matches, err := doublestar.FilepathGlob(p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no instance files match %q", p)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	slices.Sort(out)
	return out, nil
}

// solveFile loads, builds and solves one instance and records the run.
func (r *runner) solveFile(ctx context.Context, path string) outcome {
	out := outcome{Path: path}
	log := r.log.With("file", path)

	in, err := instance.Load(path)
	if err != nil {
		out.Err = err
		return out
	}
	out.Instance = in

	opts, err := r.cfg.modelOptions()
	if err != nil {
		out.Err = err
		return out
	}
	built, err := instance.Build(in, append(opts, scheduling.WithLogger(log))...)
	if err != nil {
		out.Err = err
		if r.rec != nil {
			r.rec.ObserveSolve(string(in.Kind), nil, scheduling.ModelStatistics{})
		}
		return out
	}
	out.Built = built

	var done func()
	if r.rec != nil {
		done = r.rec.Start()
	}
	sol, err := built.Model.Solve(ctx, r.cfg.solveOptions()...)
	if done != nil {
		done()
	}
	if r.rec != nil {
		r.rec.ObserveSolve(string(in.Kind), sol, built.Model.Statistics())
	}
	if err != nil {
		out.Err = err
		return out
	}
	out.Solution = sol
	log.Info("instance solved",
		"instance", in.Name,
		"status", sol.Status.String(),
		"objective", sol.Objective,
		"limited", sol.Limited,
		"elapsed", sol.Elapsed,
	)

	if r.store != nil {
		run := runFromSolution(in, built, sol)
		if err := r.store.CreateRun(ctx, run); err != nil {
			log.Warn("run not recorded", "error", err)
		} else {
			out.RunID = run.ID
		}
	}
	return out
}

// solveAll solves every path on a pool of cfg.Workers goroutines and
// returns the outcomes in path order.
func (r *runner) solveAll(ctx context.Context, paths []string) ([]outcome, error) {
	wp := parallel.NewWorkerPool(r.cfg.Workers)
	defer wp.Shutdown()
	r.log.Debug("batch started", "files", len(paths), "workers", wp.Size())
	return parallel.Map(ctx, wp, len(paths), func(ctx context.Context, i int) outcome {
		return r.solveFile(ctx, paths[i])
	})
}

func runFromSolution(in *instance.Instance, b *instance.Built, sol *scheduling.Solution) *store.Run {
	run := &store.Run{
		Instance:  in.Name,
		Kind:      string(in.Kind),
		Status:    sol.Status.String(),
		Objective: sol.Objective,
		Limited:   sol.Limited,
		Elapsed:   sol.Elapsed,
	}
	if sol.Stats != nil {
		run.Nodes = sol.Stats.NodesExplored
	}
	for _, iv := range b.Tasks {
		if v, ok := sol.IntervalValue(iv); ok {
			run.Intervals = append(run.Intervals, store.Assignment{
				Name:   v.Name,
				Start:  v.Start,
				End:    v.End,
				Length: v.Length,
			})
		}
	}
	return run
}
