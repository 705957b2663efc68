package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"csb/enginebench/client/engine"
	"csb/enginebench/client/logger"
	"csb/enginebench/client/query"

	"go.uber.org/zap"
)

// BenchmarkRunner times queries on engines and writes the report. Engines and
// queries are run strictly one after another.
type BenchmarkRunner struct {
	config          *BenchmarkRunConfig
	report          *logger.Logger
	log             *zap.Logger
	metricsExporter *MetricsExporter
	results         []*QueryResult
	now             func() time.Time
}

func NewBenchmarkRunner(config *BenchmarkRunConfig, report *logger.Logger, log *zap.Logger) (*BenchmarkRunner, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	r := &BenchmarkRunner{
		config: config,
		report: report,
		log:    log,
		now:    time.Now,
	}
	if config.MetricsFile != "" {
		exporter, err := NewMetricsExporter(config.MetricsFile, config.MetricsBatchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics exporter: %w", err)
		}
		r.metricsExporter = exporter
	}
	return r, nil
}

// Close flushes the metrics file
func (r *BenchmarkRunner) Close() error {
	if r.metricsExporter != nil {
		return r.metricsExporter.Close()
	}
	return nil
}

func (r *BenchmarkRunner) GetResults() []*QueryResult {
	return r.results
}

func (r *BenchmarkRunner) writeHeader(start string) {
	r.report.Line("meta", start)
	if r.config.RunID != "" {
		r.report.Line("meta", "run_id="+r.config.RunID)
	}
	for _, m := range r.config.Meta {
		r.report.Line("meta", m)
	}
}

// VerifyRowCounts writes one line with the table row count of every engine
func (r *BenchmarkRunner) VerifyRowCounts(ctx context.Context, engines []engine.Engine) error {
	counts := make([]string, len(engines))
	for i, e := range engines {
		start := r.now()
		n, err := e.RowCount(ctx)
		if err != nil {
			return fmt.Errorf("%s row count: %w", e.Name(), err)
		}
		counts[i] = fmt.Sprintf("%s=%d", e.Name(), n)
		r.log.Debug("row count", zap.String("engine", e.Name()), zap.Int64("rows", n),
			zap.Duration("elapsed", r.now().Sub(start)))
	}
	r.report.Line("verify", "rowcount", strings.Join(counts, " "))
	return nil
}

// Run benchmarks every query on every engine and writes the report
func (r *BenchmarkRunner) Run(ctx context.Context, engines []engine.Engine, queries []query.Query) error {
	if len(engines) == 0 {
		return errors.New("no engine to benchmark")
	}
	r.writeHeader("benchmark_start")
	r.report.Linef("meta", "warmup=%d repeats=%d", r.config.Warmup, r.config.Repeats)
	if err := r.VerifyRowCounts(ctx, engines); err != nil {
		return err
	}

	for _, e := range engines {
		r.report.Line("bench", "start", "engine="+e.Name())
		r.log.Info("benchmarking engine", zap.String("engine", e.Name()), zap.Int("queries", len(queries)))
		for _, q := range queries {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := r.runQuery(ctx, e, q)
			if err != nil {
				return err
			}
			r.results = append(r.results, result)
			r.report.Line(result.Engine, result.Query, seconds(result.Median)+"s", fmt.Sprintf("rows=%d", result.Rows))
		}
	}

	r.report.Line("meta", "benchmark_done")
	r.report.Line("meta", "log_file="+r.report.Path())
	return r.report.Flush()
}

// runQuery runs the warmup executions, then the timed ones, and reduces the
// timings to their median.
func (r *BenchmarkRunner) runQuery(ctx context.Context, e engine.Engine, q query.Query) (*QueryResult, error) {
	for i := 1; i <= r.config.Warmup; i++ {
		if _, _, err := r.execute(ctx, e, q, PhaseWarmup, i); err != nil {
			return nil, err
		}
	}

	result := &QueryResult{Engine: e.Name(), Query: q.Name, Durations: make([]time.Duration, 0, r.config.Repeats)}
	for i := 1; i <= r.config.Repeats; i++ {
		rows, latency, err := r.execute(ctx, e, q, PhaseTimed, i)
		if err != nil {
			return nil, err
		}
		result.Durations = append(result.Durations, latency)
		result.Rows = rows
		if r.config.SlowQueryThreshold > 0 && latency > r.config.SlowQueryThreshold {
			r.log.Warn("slow query",
				zap.String("engine", e.Name()),
				zap.String("query", q.Name),
				zap.Int("iteration", i),
				zap.Duration("latency", latency),
				zap.Duration("threshold", r.config.SlowQueryThreshold))
		}
	}
	result.Median = Median(result.Durations)
	r.log.Debug("query done", zap.String("engine", e.Name()), zap.String("query", q.Name),
		zap.Duration("median", result.Median), zap.Int64("rows", result.Rows))
	return result, nil
}

func (r *BenchmarkRunner) execute(ctx context.Context, e engine.Engine, q query.Query, phase Phase, iteration int) (int64, time.Duration, error) {
	start := r.now()
	rows, err := e.Count(ctx, q)
	latency := r.now().Sub(start)

	r.record(RunMetric{
		Timestamp: start,
		RunID:     r.config.RunID,
		Engine:    e.Name(),
		Query:     q.Name,
		Phase:     phase,
		Iteration: iteration,
		Latency:   latency,
		Rows:      rows,
		Success:   err == nil,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("%s run %d of %s on %s: %w", phase, iteration, q.Name, e.Name(), err)
	}
	return rows, latency, nil
}

func (r *BenchmarkRunner) record(metric RunMetric) {
	if r.metricsExporter == nil {
		return
	}
	if err := r.metricsExporter.AddMetric(metric); err != nil {
		r.log.Warn("failed to export metric", zap.Error(err))
	}
}
