package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"csb/enginebench/client/frame"
	"csb/enginebench/client/query"
	"csb/enginebench/control/constants"

	"go.uber.org/zap"
)

// frameEngine evaluates query plans directly over the parquet parts. Every
// call starts a fresh scan, so nothing is cached between runs.
type frameEngine struct {
	glob      string
	batchRows int
	logger    *zap.Logger
}

func OpenFrame(dataDir string, batchRows int, logger *zap.Logger) (Engine, error) {
	glob := filepath.Join(dataDir, constants.PART_FILE_GLOB)
	parts, err := filepath.Glob(glob)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		if _, statErr := os.Stat(dataDir); statErr != nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingDataset, dataDir)
		}
		return nil, fmt.Errorf("%w: no parts in %s", ErrMissingDataset, dataDir)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("opened dataset", zap.String("engine", constants.ENGINE_FRAME), zap.String("glob", glob),
		zap.Int("parts", len(parts)))
	return &frameEngine{glob: glob, batchRows: batchRows, logger: logger}, nil
}

func (e *frameEngine) Name() string { return constants.ENGINE_FRAME }

func (e *frameEngine) scan() frame.LazyFrame {
	return frame.ScanParquet(e.glob, frame.WithBatchRows(e.batchRows))
}

func (e *frameEngine) RowCount(ctx context.Context) (int64, error) {
	return e.scan().Count(ctx)
}

func (e *frameEngine) Count(ctx context.Context, q query.Query) (int64, error) {
	n, err := q.Plan(e.scan()).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", constants.ENGINE_FRAME, q.Name, err)
	}
	return n, nil
}

func (e *frameEngine) Collect(ctx context.Context, q query.Query) (*Result, error) {
	df, err := q.Plan(e.scan()).Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", constants.ENGINE_FRAME, q.Name, err)
	}
	return &Result{Columns: df.Columns(), Rows: df.Rows()}, nil
}

func (e *frameEngine) Stream(ctx context.Context, batchRows int) (StreamStats, error) {
	var stats StreamStats
	err := frame.ReadBatches(ctx, e.glob, nil, batchRows, func(df *frame.DataFrame) error {
		stats.Rows += int64(df.Height())
		stats.Batches++
		return nil
	})
	return stats, err
}

func (e *frameEngine) Close() error { return nil }
