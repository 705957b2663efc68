package cmd

import (
	"fmt"

	constants "csb/enginebench/control/constants"

	"github.com/spf13/cobra"
)

var readEngines []string

var ReadCmd = &cobra.Command{
	Use:   "read [flags]",
	Short: "Run the streaming read benchmark",
	Long:  "Stream every row of the table from each engine in batches of read_batch_rows and write the elapsed time to the read benchmark log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GConfig.config()
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()

		engines, err := openEngines(ctx, cfg, pick(readEngines, []string{constants.ENGINE_SQLITE, constants.ENGINE_DUCKDB}))
		if err != nil {
			return err
		}
		defer closeEngines(engines)

		benchRunner, report, err := newRunner(cfg, constants.DEFAULT_READ_LOG_FILE, "")
		if err != nil {
			return err
		}
		defer report.Close()
		defer benchRunner.Close()

		if err := benchRunner.RunRead(ctx, engines, cfg.ReadBatchRows); err != nil {
			return fmt.Errorf("read benchmark failed: %w", err)
		}
		return nil
	},
}

func init() {
	ReadCmd.Flags().StringSliceVar(&readEngines, "engines", nil, "engines to read from, sqlite and duckdb when empty")
}
