package cmd

import (
	"errors"
	"fmt"

	"csb/enginebench/client/runner"
	constants "csb/enginebench/control/constants"

	"github.com/spf13/cobra"
)

var (
	verifyEngines   []string
	verifyQueries   []string
	verifyTolerance float64
)

var VerifyCmd = &cobra.Command{
	Use:   "verify [flags]",
	Short: "Check that all engines return the same query results",
	Long:  "Collect the full result of every query on every engine and compare them with the first engine's, ignoring row order and allowing a relative float tolerance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GConfig.config()
		if err != nil {
			return err
		}
		queries, err := selectQueries(verifyQueries)
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()

		engines, err := openEngines(ctx, cfg, pick(verifyEngines, cfg.Engines))
		if err != nil {
			return err
		}
		defer closeEngines(engines)

		benchRunner, report, err := newRunner(cfg, constants.DEFAULT_VERIFY_LOG_FILE, "")
		if err != nil {
			return err
		}
		defer report.Close()
		defer benchRunner.Close()

		mismatches, err := benchRunner.Verify(ctx, engines, queries, verifyTolerance)
		for _, m := range mismatches {
			fmt.Println(m)
		}
		if errors.Is(err, runner.ErrResultMismatch) {
			return err
		}
		if err != nil {
			return fmt.Errorf("verify failed: %w", err)
		}
		fmt.Printf("All %d queries agree on %d engines\n", len(queries), len(engines))
		return nil
	},
}

func init() {
	VerifyCmd.Flags().StringSliceVar(&verifyEngines, "engines", nil, "engines to compare, overrides the config")
	VerifyCmd.Flags().StringSliceVar(&verifyQueries, "queries", nil, "query names to compare, all when empty")
	VerifyCmd.Flags().Float64Var(&verifyTolerance, "tolerance", constants.DEFAULT_FLOAT_TOLERANCE, "relative tolerance for floating point values")
}
