package runner

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"
	"time"
)

// RunMetric is one query execution, timed or not
type RunMetric struct {
	Timestamp time.Time     // Start of the execution
	RunID     string        // Benchmark run the execution belongs to
	Engine    string        // Engine name
	Query     string        // Query name
	Phase     Phase         // warmup, timed or read
	Iteration int           // 1-based index within the phase
	Latency   time.Duration // Wall time of the execution
	Rows      int64         // Result rows
	Success   bool          // Whether the execution succeeded
}

// MetricsExporter handles the export of raw metrics to CSV
type MetricsExporter struct {
	file      *os.File
	batchSize int
	metrics   []RunMetric
	mu        sync.Mutex
}

func NewMetricsExporter(filename string, batchSize int) (*MetricsExporter, error) {
	if batchSize <= 0 {
		batchSize = 1
	}
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	// Write CSV header
	writer := csv.NewWriter(file)
	err = writer.Write([]string{
		"unix_timestamp_nano",
		"run_id",
		"engine",
		"query",
		"run_phase",
		"iteration",
		"latency_ms",
		"rows",
		"success",
	})
	if err != nil {
		file.Close()
		return nil, err
	}
	writer.Flush()

	return &MetricsExporter{
		file:      file,
		batchSize: batchSize,
		metrics:   make([]RunMetric, 0, batchSize),
	}, nil
}

func (e *MetricsExporter) AddMetric(metric RunMetric) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.metrics = append(e.metrics, metric)

	if len(e.metrics) >= e.batchSize {
		return e.flush()
	}
	return nil
}

func (e *MetricsExporter) flush() error {
	writer := csv.NewWriter(e.file)
	for _, metric := range e.metrics {
		err := writer.Write([]string{
			strconv.FormatInt(metric.Timestamp.UnixNano(), 10),
			metric.RunID,
			metric.Engine,
			metric.Query,
			string(metric.Phase),
			strconv.Itoa(metric.Iteration),
			strconv.FormatFloat(float64(metric.Latency.Microseconds())/1000, 'f', 3, 64),
			strconv.FormatInt(metric.Rows, 10),
			strconv.FormatBool(metric.Success),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	e.metrics = e.metrics[:0]
	return writer.Error()
}

func (e *MetricsExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.metrics) > 0 {
		if err := e.flush(); err != nil {
			return err
		}
	}
	return e.file.Close()
}
