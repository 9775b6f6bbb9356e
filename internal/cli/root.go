// Package cli implements the gosched command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gitrdm/gosched/internal/logging"
	"github.com/gitrdm/gosched/internal/metrics"
	"github.com/gitrdm/gosched/internal/store"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var (
	flagConfig     string
	flagDB         string
	flagMetricsOut string
	flagDebug      bool
	flagLogLevel   string
	flagLogFormat  string

	logger *slog.Logger
	cfg    Config
)

// defaultDB returns the run database path, checking GOSCHED_DB first.
func defaultDB() string {
	if s := os.Getenv("GOSCHED_DB"); s != "" {
		return s
	}
	return "gosched.db"
}

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gosched",
		Short: "gosched solves interval scheduling instances",
		Long: "gosched compiles job-shop, RCPSP and routing instances written in YAML " +
			"into a finite-domain model, solves them and records the runs.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.NewLoggerWithWriter(logging.ParseLevel(flagLogLevel), flagLogFormat, cmd.ErrOrStderr())
			var err error
			cfg, err = LoadConfig(flagConfig)
			return err
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Solver config file (YAML)")
	root.PersistentFlags().StringVar(&flagDB, "db", defaultDB(), "Run database path (or GOSCHED_DB env)")
	root.PersistentFlags().StringVar(&flagMetricsOut, "metrics-out", "", "Write Prometheus metrics to this textfile")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newSolveCmd(),
		newStatsCmd(),
		newRunsCmd(),
		newWatchCmd(),
		newVersionCmd(),
	)

	return root
}

// openStore opens and migrates the run database.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := store.NewSQLiteStore(flagDB, logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate %s: %w", flagDB, err)
	}
	return st, nil
}

// writeMetrics flushes rec to --metrics-out when set.
func writeMetrics(rec *metrics.Recorder) error {
	if flagMetricsOut == "" {
		return nil
	}
	if err := rec.WriteTextfile(flagMetricsOut); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	logger.Debug("metrics written", "path", flagMetricsOut)
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gosched version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gosched %s\n", Version)
		},
	}
}
