package cmd

import (
	"fmt"

	dg "csb/enginebench/data-generator"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var GenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the synthetic parquet dataset",
	Long:  "Generate num_rows employee-month rows in parts of chunk_size rows under data_dir. Existing parts are left untouched",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GConfig.config()
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()

		dataGenerator := dg.NewGenerator(GConfig.rg)
		info, err := dataGenerator.GenerateDataset(ctx, dg.Options{
			Dir:         cfg.DataDir,
			NumRows:     cfg.NumRows,
			ChunkSize:   cfg.ChunkSize,
			Compression: cfg.Compression,
			Logger:      GConfig.log,
		})
		if err != nil {
			return fmt.Errorf("failed to generate data: %w", err)
		}
		if info.Skipped {
			fmt.Printf("Dataset %s already has %d parts, nothing generated\n", info.Dir, len(info.Parts))
			return nil
		}
		fmt.Printf("Generated %s rows in %d parts under %s in %s\n",
			humanize.Comma(info.Rows), len(info.Parts), info.Dir, info.Elapsed)
		return nil
	},
}
