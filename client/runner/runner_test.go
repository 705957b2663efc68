package runner

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"csb/enginebench/client/engine"
	"csb/enginebench/client/logger"
	"csb/enginebench/client/query"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

// fakeEngine advances the clock by the next scripted latency on every Count
type fakeEngine struct {
	name      string
	clock     *fakeClock
	latencies []time.Duration
	calls     int
	rows      int64
	result    *engine.Result
	err       error
}

func (e *fakeEngine) Name() string                            { return e.name }
func (e *fakeEngine) RowCount(context.Context) (int64, error) { return 1_000, nil }
func (e *fakeEngine) Close() error                            { return nil }

func (e *fakeEngine) Count(context.Context, query.Query) (int64, error) {
	d := time.Second
	if e.calls < len(e.latencies) {
		d = e.latencies[e.calls]
	}
	e.calls++
	e.clock.t = e.clock.t.Add(d)
	return e.rows, e.err
}

func (e *fakeEngine) Collect(context.Context, query.Query) (*engine.Result, error) {
	return e.result, e.err
}

func (e *fakeEngine) Stream(context.Context, int) (engine.StreamStats, error) {
	e.clock.t = e.clock.t.Add(3 * time.Second)
	return engine.StreamStats{Rows: 1_000, Batches: 2}, nil
}

func newTestRunner(t *testing.T, config *BenchmarkRunConfig, clock *fakeClock) (*BenchmarkRunner, string) {
	t.Helper()
	reportPath := filepath.Join(t.TempDir(), "benchmark.log")
	report, err := logger.NewLogger(reportPath)
	require.NoError(t, err)
	t.Cleanup(func() { report.Close() })

	r, err := NewBenchmarkRunner(config, report, nil)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	r.now = clock.now
	return r, reportPath
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(content)), "\n")
}

func TestMedian(t *testing.T) {
	testCases := []struct {
		name string
		in   []time.Duration
		want time.Duration
	}{
		{"Empty", nil, 0},
		{"Single", []time.Duration{3}, 3},
		{"Odd unsorted", []time.Duration{5, 1, 3}, 3},
		{"Even takes mean of middles", []time.Duration{4, 1, 2, 10}, 3},
		{"Outlier", []time.Duration{time.Second, time.Second, time.Hour, time.Second, time.Second}, time.Second},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := append([]time.Duration(nil), tc.in...)
			assert.Equal(t, tc.want, Median(in))
			assert.Equal(t, tc.in, in, "input must not be reordered")
		})
	}
}

func TestProperty_MedianIgnoresSingleStall(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("one stalled run among five does not move the median outside the others", prop.ForAll(
		func(runs []int64, stallAt int, stall int64) bool {
			durations := make([]time.Duration, 5)
			var lo, hi time.Duration = 1 << 62, 0
			for i := range durations {
				durations[i] = time.Duration(runs[i])
			}
			durations[stallAt] = time.Duration(stall)
			for i, d := range durations {
				if i == stallAt {
					continue
				}
				lo, hi = min(lo, d), max(hi, d)
			}
			m := Median(durations)
			return m >= lo && m <= hi
		},
		gen.SliceOfN(5, gen.Int64Range(1, int64(time.Second))),
		gen.IntRange(0, 4),
		gen.Int64Range(int64(time.Minute), int64(time.Hour)),
	))

	properties.TestingRun(t)
}

func TestRunReportsMedianAndLastRows(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	metricsPath := filepath.Join(t.TempDir(), "metrics.csv")
	r, reportPath := newTestRunner(t, &BenchmarkRunConfig{
		Warmup:             1,
		Repeats:            5,
		SlowQueryThreshold: 10 * time.Second,
		RunID:              "run-1",
		Meta:               []string{"sqlite_db=db/sqlite.db"},
		MetricsFile:        metricsPath,
		MetricsBatchSize:   4,
	}, clock)

	// warmup, then five timed runs of which the third stalls
	e := &fakeEngine{
		name:      "fake",
		clock:     clock,
		rows:      42,
		latencies: []time.Duration{time.Minute, time.Second, 2 * time.Second, 100 * time.Second, time.Second, 3 * time.Second},
	}
	q := query.Query{Name: "Q_test"}
	require.NoError(t, r.Run(context.Background(), []engine.Engine{e}, []query.Query{q}))
	require.NoError(t, r.Close())

	results := r.GetResults()
	require.Len(t, results, 1)
	assert.Equal(t, 2*time.Second, results[0].Median)
	assert.Len(t, results[0].Durations, 5)
	assert.Equal(t, int64(42), results[0].Rows)
	assert.Equal(t, 6, e.calls)

	lines := readLines(t, reportPath)
	assert.Equal(t, []string{
		"meta | benchmark_start",
		"meta | run_id=run-1",
		"meta | sqlite_db=db/sqlite.db",
		"meta | warmup=1 repeats=5",
		"verify | rowcount | fake=1000",
		"bench | start | engine=fake",
		"fake | Q_test | 2.0000s | rows=42",
		"meta | benchmark_done",
		"meta | log_file=" + reportPath,
	}, lines)

	f, err := os.Open(metricsPath)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 7)
	assert.Equal(t, "run_phase", records[0][4])
	assert.Equal(t, []string{"run-1", "fake", "Q_test", "warmup", "1", "60000.000", "42", "true"}, records[1][1:])
	assert.Equal(t, []string{"run-1", "fake", "Q_test", "timed", "3", "100000.000", "42", "true"}, records[4][1:])
}

func TestRunStopsOnEngineError(t *testing.T) {
	clock := &fakeClock{}
	r, _ := newTestRunner(t, &BenchmarkRunConfig{Warmup: 0, Repeats: 3}, clock)
	boom := errors.New("boom")
	e := &fakeEngine{name: "broken", clock: clock, err: boom}

	err := r.Run(context.Background(), []engine.Engine{e}, []query.Query{{Name: "Q"}})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, r.GetResults())
}

func TestNewBenchmarkRunnerValidates(t *testing.T) {
	_, err := NewBenchmarkRunner(&BenchmarkRunConfig{Warmup: -1, Repeats: 5}, nil, nil)
	assert.Error(t, err)
	_, err = NewBenchmarkRunner(&BenchmarkRunConfig{Warmup: 1, Repeats: 0}, nil, nil)
	assert.Error(t, err)
}

func TestRunRead(t *testing.T) {
	clock := &fakeClock{}
	r, reportPath := newTestRunner(t, &BenchmarkRunConfig{Repeats: 1}, clock)
	e := &fakeEngine{name: "fake", clock: clock}

	require.NoError(t, r.RunRead(context.Background(), []engine.Engine{e}, 500))
	lines := readLines(t, reportPath)
	assert.Equal(t, []string{
		"meta | read_benchmark_start",
		"meta | batch_rows=500",
		"verify | rowcount | fake=1000",
		"read | start | engine=fake | query=select_star",
		"fake | read_select_star | seconds=3.0000 | rows=1000",
		"meta | read_benchmark_done",
		"meta | log_file=" + reportPath,
	}, lines)
}

func TestCompareResults(t *testing.T) {
	want := &engine.Result{
		Columns: []string{"company_name", "n", "avg_salary"},
		Rows: [][]any{
			{"Acme", int64(2), 1500.25},
			{"Bolt", int64(1), 99.5},
		},
	}
	testCases := []struct {
		name  string
		got   *engine.Result
		match bool
	}{
		{"Identical", want, true},
		{"Rows reordered and float noise", &engine.Result{
			Columns: []string{"company_name", "n", "avg_salary"},
			Rows:    [][]any{{"Bolt", int64(1), 99.5 + 1e-9}, {"Acme", int64(2), 1500.25}},
		}, true},
		{"Columns reordered and int as float", &engine.Result{
			Columns: []string{"avg_salary", "company_name", "n"},
			Rows:    [][]any{{1500.25, "Acme", 2.0}, {99.5, "Bolt", 1.0}},
		}, true},
		{"Different value", &engine.Result{
			Columns: want.Columns,
			Rows:    [][]any{{"Acme", int64(2), 1500.25}, {"Bolt", int64(1), 98.0}},
		}, false},
		{"Missing row", &engine.Result{Columns: want.Columns, Rows: want.Rows[:1]}, false},
		{"Renamed column", &engine.Result{Columns: []string{"company", "n", "avg_salary"}, Rows: want.Rows}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			reason := CompareResults(want, tc.got, 1e-6)
			assert.Equal(t, tc.match, reason == "", reason)
		})
	}
}

func TestVerifyReportsMismatch(t *testing.T) {
	clock := &fakeClock{}
	r, reportPath := newTestRunner(t, &BenchmarkRunConfig{Repeats: 1}, clock)
	res := func(v float64) *engine.Result {
		return &engine.Result{Columns: []string{"k", "v"}, Rows: [][]any{{"a", v}}}
	}
	engines := []engine.Engine{
		&fakeEngine{name: "one", clock: clock, result: res(1)},
		&fakeEngine{name: "two", clock: clock, result: res(1)},
		&fakeEngine{name: "three", clock: clock, result: res(2)},
	}

	mismatches, err := r.Verify(context.Background(), engines, []query.Query{{Name: "Q"}}, 1e-6)
	assert.ErrorIs(t, err, ErrResultMismatch)
	require.Len(t, mismatches, 1)
	assert.Equal(t, "three", mismatches[0].Engine)
	assert.Equal(t, "one", mismatches[0].Reference)
	lines := readLines(t, reportPath)
	assert.Contains(t, lines, "meta | tolerance=1e-06")
	assert.Contains(t, lines, "verify | Q | one=1 two=1 three=1 | mismatch")
}
