package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/gitrdm/gosched/internal/metrics"
)

func newWatchCmd() *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Re-solve instances in a directory whenever they change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fsw, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer fsw.Close()
			if err := fsw.Add(args[0]); err != nil {
				return fmt.Errorf("watch %s: %w", args[0], err)
			}

			r := &runner{cfg: cfg, log: logger, rec: metrics.NewRecorder()}
			if cfg.Store {
				st, err := openStore(ctx)
				if err != nil {
					return err
				}
				defer st.Close()
				r.store = st
			}
			logger.Info("watching for instance changes", "dir", args[0], "debounce", debounce)

			w := cmd.OutOrStdout()
			watchLoop(ctx, fsw, debounce, logger, func(paths []string) {
				outcomes, err := r.solveAll(ctx, paths)
				if err != nil {
					logger.Error("batch failed", "error", err)
					return
				}
				results := make([]solveResult, len(outcomes))
				for i, o := range outcomes {
					results[i] = toResult(o, false)
				}
				printResults(w, results, false)
				if err := writeMetrics(r.rec); err != nil {
					logger.Warn("metrics not written", "error", err)
				}
			})
			return nil
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 300*time.Millisecond, "Quiet period before re-solving")
	return cmd
}

func isInstanceFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// watchLoop collects changed instance files from fsw and hands them to
// onChange once no event has arrived for the debounce period. It returns
// when ctx is done or the watcher closes.
func watchLoop(ctx context.Context, fsw *fsnotify.Watcher, debounce time.Duration, log *slog.Logger, onChange func([]string)) {
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	pending := map[string]bool{}
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !isInstanceFile(ev.Name) || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			log.Debug("instance changed", "path", ev.Name, "op", ev.Op.String())
			pending[ev.Name] = true
			timer.Reset(debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			log.Error("watcher error", "error", err)

		case <-timer.C:
			var paths []string
			for p := range pending {
				if _, err := os.Stat(p); err == nil {
					paths = append(paths, p)
				}
			}
			clear(pending)
			if len(paths) == 0 {
				continue
			}
			slices.Sort(paths)
			onChange(paths)
		}
	}
}
