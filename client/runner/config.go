package runner

import (
	"errors"
	"time"
)

// BenchmarkRunConfig holds all configuration parameters
type BenchmarkRunConfig struct {
	// Untimed runs before measuring, and timed runs per query
	Warmup  int
	Repeats int

	// A timed run slower than this is logged as a warning; zero disables it
	SlowQueryThreshold time.Duration

	// Identifies the run in the report and in the metrics file
	RunID string

	// Extra "key=value" lines written to the report header
	Meta []string

	// Metrics parameters
	MetricsFile      string
	MetricsBatchSize int
}

// Phase of a single query execution
type Phase string

const (
	PhaseWarmup Phase = "warmup"
	PhaseTimed  Phase = "timed"
	PhaseRead   Phase = "read"
)

func (c *BenchmarkRunConfig) validate() error {
	if c.Warmup < 0 {
		return errors.New("warmup must not be negative")
	}
	if c.Repeats < 1 {
		return errors.New("at least one timed repeat is required")
	}
	return nil
}

// QueryResult is the outcome of benchmarking one query on one engine
type QueryResult struct {
	Engine    string
	Query     string
	Durations []time.Duration
	Median    time.Duration
	// Rows returned by the last timed run
	Rows int64
}
