package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"csb/enginebench/client/engine"
	"csb/enginebench/client/logger"
	"csb/enginebench/client/query"
	"csb/enginebench/client/runner"
	benchCfg "csb/enginebench/control/config"
	constants "csb/enginebench/control/constants"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runEngines []string
	runQueries []string
)

var RunCmd = &cobra.Command{
	Use:   "run [flags]",
	Short: "Run the query benchmark",
	Long:  "Run every query on every configured engine, warmup runs first, and write the median of the timed runs to the benchmark log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GConfig.config()
		if err != nil {
			return err
		}
		queries, err := selectQueries(runQueries)
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()

		engines, err := openEngines(ctx, cfg, pick(runEngines, cfg.Engines))
		if err != nil {
			return err
		}
		defer closeEngines(engines)

		benchRunner, report, err := newRunner(cfg, constants.DEFAULT_BENCH_LOG_FILE, cfg.LogPath(cfg.MetricsFile))
		if err != nil {
			return err
		}
		defer report.Close()
		defer benchRunner.Close()

		start := time.Now()
		if err := benchRunner.Run(ctx, engines, queries); err != nil {
			return fmt.Errorf("benchmark failed: %w", err)
		}
		GConfig.log.Info("benchmark finished", zap.Duration("elapsed", time.Since(start)),
			zap.Int("results", len(benchRunner.GetResults())))
		return nil
	},
}

func init() {
	RunCmd.Flags().StringSliceVar(&runEngines, "engines", nil, "engines to benchmark, overrides the config")
	RunCmd.Flags().StringSliceVar(&runQueries, "queries", nil, "query names to run, all when empty")
}

// pick returns override unless it is empty
func pick(override, fallback []string) []string {
	if len(override) > 0 {
		return override
	}
	return fallback
}

func selectQueries(names []string) ([]query.Query, error) {
	if len(names) == 0 {
		return query.All(), nil
	}
	queries := make([]query.Query, 0, len(names))
	for _, name := range names {
		q, ok := query.Find(name)
		if !ok {
			return nil, fmt.Errorf("unknown query %q", name)
		}
		queries = append(queries, q)
	}
	return queries, nil
}

func engineOptions(cfg *benchCfg.BenchctlConfig) engine.Options {
	return engine.Options{
		SQLitePath:     cfg.SQLitePath,
		DuckDBPath:     cfg.DuckDBPath,
		DataDir:        cfg.DataDir,
		DuckDBThreads:  cfg.DuckDBThreads,
		FrameBatchRows: cfg.FrameBatchRows,
		Logger:         GConfig.log,
	}
}

// openEngines opens every named engine, closing the ones already open on error
func openEngines(ctx context.Context, cfg *benchCfg.BenchctlConfig, names []string) ([]engine.Engine, error) {
	opts := engineOptions(cfg)
	engines := make([]engine.Engine, 0, len(names))
	for _, name := range names {
		e, err := engine.Open(ctx, name, opts)
		if err != nil {
			closeEngines(engines)
			if errors.Is(err, engine.ErrMissingDatabase) {
				return nil, fmt.Errorf("%w, run 'benchctl load %s' first", err, name)
			}
			if errors.Is(err, engine.ErrMissingDataset) {
				return nil, fmt.Errorf("%w, run 'benchctl generate' first", err)
			}
			return nil, err
		}
		engines = append(engines, e)
	}
	return engines, nil
}

func closeEngines(engines []engine.Engine) {
	for _, e := range engines {
		if err := e.Close(); err != nil {
			GConfig.log.Warn("failed to close engine", zap.String("engine", e.Name()), zap.Error(err))
		}
	}
}

// newRunner opens the report log and builds a runner with a fresh run id. An
// empty metricsFile disables the metrics export.
func newRunner(cfg *benchCfg.BenchctlConfig, logFile, metricsFile string) (*runner.BenchmarkRunner, *logger.Logger, error) {
	report, err := logger.NewLogger(cfg.LogPath(logFile))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open report log: %w", err)
	}
	runID := uuid.NewString()
	benchRunner, err := runner.NewBenchmarkRunner(&runner.BenchmarkRunConfig{
		Warmup:             cfg.Warmup,
		Repeats:            cfg.Repeats,
		SlowQueryThreshold: time.Duration(cfg.SlowQueryThreshold),
		RunID:              runID,
		Meta: []string{
			"sqlite_db=" + cfg.SQLitePath,
			"duckdb_db=" + cfg.DuckDBPath,
			"data_dir=" + cfg.DataDir,
		},
		MetricsFile:      metricsFile,
		MetricsBatchSize: constants.DEFAULT_METRICS_BATCH_SIZE,
	}, report, GConfig.log.With(zap.String("run_id", runID)))
	if err != nil {
		report.Close()
		return nil, nil, err
	}
	return benchRunner, report, nil
}
