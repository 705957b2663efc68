package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"csb/enginebench/client/loader"
	benchCfg "csb/enginebench/control/config"
	constants "csb/enginebench/control/constants"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

const loadAll = "all"

var LoadCmd = &cobra.Command{
	Use:       "load [sqlite|duckdb|all]",
	Short:     "Load the parquet dataset into the SQL engines",
	Long:      "Recreate the SQLite and/or DuckDB database from the parquet parts in data_dir. Any existing database file is removed first",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{constants.ENGINE_SQLITE, constants.ENGINE_DUCKDB, loadAll},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GConfig.config()
		if err != nil {
			return err
		}
		target := loadAll
		if len(args) == 1 {
			target = args[0]
		}
		ctx, stop := signalContext()
		defer stop()

		for _, name := range loadTargets(target) {
			res, err := loader.Load(ctx, name, loadOptions(cfg, name))
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", name, err)
			}
			fmt.Printf("Loaded %s rows into %s (%s) in %s\n", humanize.Comma(res.Rows), res.Path, res.Engine, res.Elapsed)
		}
		return nil
	},
}

func loadTargets(target string) []string {
	if target == loadAll {
		return []string{constants.ENGINE_SQLITE, constants.ENGINE_DUCKDB}
	}
	return []string{target}
}

func loadOptions(cfg *benchCfg.BenchctlConfig, name string) loader.Options {
	opts := loader.Options{
		DataDir:       cfg.DataDir,
		Path:          cfg.SQLitePath,
		BatchSize:     cfg.LoadBatchSize,
		DuckDBThreads: cfg.DuckDBThreads,
		Logger:        GConfig.log,
	}
	if name == constants.ENGINE_DUCKDB {
		opts.Path = cfg.DuckDBPath
	}
	return opts
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
