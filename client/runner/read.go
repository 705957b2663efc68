package runner

import (
	"context"
	"fmt"

	"csb/enginebench/client/engine"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

const readQueryName = "read_select_star"

// RunRead measures a full streaming scan of the table on every engine
func (r *BenchmarkRunner) RunRead(ctx context.Context, engines []engine.Engine, batchRows int) error {
	r.writeHeader("read_benchmark_start")
	r.report.Linef("meta", "batch_rows=%d", batchRows)

	for _, e := range engines {
		if err := r.VerifyRowCounts(ctx, []engine.Engine{e}); err != nil {
			return err
		}
		r.report.Line("read", "start", "engine="+e.Name(), "query=select_star")

		start := r.now()
		stats, err := e.Stream(ctx, batchRows)
		elapsed := r.now().Sub(start)
		r.record(RunMetric{
			Timestamp: start,
			RunID:     r.config.RunID,
			Engine:    e.Name(),
			Query:     readQueryName,
			Phase:     PhaseRead,
			Iteration: 1,
			Latency:   elapsed,
			Rows:      stats.Rows,
			Success:   err == nil,
		})
		if err != nil {
			return fmt.Errorf("%s %s: %w", e.Name(), readQueryName, err)
		}

		r.results = append(r.results, &QueryResult{
			Engine: e.Name(), Query: readQueryName, Median: elapsed, Rows: stats.Rows,
		})
		r.report.Line(e.Name(), readQueryName, "seconds="+seconds(elapsed), fmt.Sprintf("rows=%d", stats.Rows))
		r.log.Info("read done", zap.String("engine", e.Name()), zap.String("rows", humanize.Comma(stats.Rows)),
			zap.Int("batches", stats.Batches), zap.Duration("elapsed", elapsed))
	}

	r.report.Line("meta", "read_benchmark_done")
	r.report.Line("meta", "log_file="+r.report.Path())
	return r.report.Flush()
}
