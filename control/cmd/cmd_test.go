package cmd

import (
	"testing"
	"time"

	benchCfg "csb/enginebench/control/config"
	constants "csb/enginebench/control/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetField(t *testing.T) {
	testCases := []struct {
		field string
		value string
		check func(t *testing.T, cfg *benchCfg.BenchctlConfig)
	}{
		{"seed", "7", func(t *testing.T, cfg *benchCfg.BenchctlConfig) { assert.Equal(t, int64(7), cfg.Seed) }},
		{"num_rows", "1000", func(t *testing.T, cfg *benchCfg.BenchctlConfig) { assert.Equal(t, 1000, cfg.NumRows) }},
		{"frame_batch_rows", "2048", func(t *testing.T, cfg *benchCfg.BenchctlConfig) { assert.Equal(t, 2048, cfg.FrameBatchRows) }},
		{"sqlite_path", "x/y.db", func(t *testing.T, cfg *benchCfg.BenchctlConfig) { assert.Equal(t, "x/y.db", cfg.SQLitePath) }},
		{"engines", "duckdb, frame", func(t *testing.T, cfg *benchCfg.BenchctlConfig) {
			assert.Equal(t, []string{"duckdb", "frame"}, cfg.Engines)
		}},
		{"slow_query_threshold", "2m", func(t *testing.T, cfg *benchCfg.BenchctlConfig) {
			assert.Equal(t, benchCfg.Duration(2*time.Minute), cfg.SlowQueryThreshold)
		}},
	}
	for _, tc := range testCases {
		t.Run(tc.field, func(t *testing.T) {
			cfg := benchCfg.GetDefaultConfig()
			fieldVal, _, err := lookupField(cfg, tc.field)
			require.NoError(t, err)
			require.NoError(t, setField(fieldVal, tc.field, tc.value))
			tc.check(t, cfg)
			assert.NoError(t, benchCfg.ValidateConfig(cfg))
		})
	}
}

func TestSetFieldErrors(t *testing.T) {
	cfg := benchCfg.GetDefaultConfig()

	_, _, err := lookupField(cfg, "SQLitePath")
	assert.Error(t, err, "fields are addressed by their json name")

	fieldVal, _, err := lookupField(cfg, "warmup")
	require.NoError(t, err)
	assert.Error(t, setField(fieldVal, "warmup", "many"))

	fieldVal, _, err = lookupField(cfg, "slow_query_threshold")
	require.NoError(t, err)
	assert.Error(t, setField(fieldVal, "slow_query_threshold", "soon"))
}

func TestFormatField(t *testing.T) {
	cfg := benchCfg.GetDefaultConfig()
	fieldVal, _, err := lookupField(cfg, "engines")
	require.NoError(t, err)
	assert.Equal(t, "sqlite,duckdb,frame", formatField(fieldVal))

	cfg.Engines = nil
	assert.Equal(t, "[]", formatField(fieldVal))
}

func TestLoadTargets(t *testing.T) {
	assert.Equal(t, []string{constants.ENGINE_SQLITE, constants.ENGINE_DUCKDB}, loadTargets(loadAll))
	assert.Equal(t, []string{constants.ENGINE_DUCKDB}, loadTargets(constants.ENGINE_DUCKDB))

	cfg := benchCfg.GetDefaultConfig()
	assert.Equal(t, cfg.SQLitePath, loadOptions(cfg, constants.ENGINE_SQLITE).Path)
	assert.Equal(t, cfg.DuckDBPath, loadOptions(cfg, constants.ENGINE_DUCKDB).Path)
}

func TestSelectQueries(t *testing.T) {
	all, err := selectQueries(nil)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	some, err := selectQueries([]string{"Q3_topN_per_group", "Q1_conditional_agg_rates"})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "Q1_conditional_agg_rates", some[1].Name)

	_, err = selectQueries([]string{"Q9"})
	assert.Error(t, err)
}

func TestPick(t *testing.T) {
	assert.Equal(t, []string{"a"}, pick(nil, []string{"a"}))
	assert.Equal(t, []string{"b"}, pick([]string{"b"}, []string{"a"}))
}

func TestEngineOptionsKeepsFrameBatchSeparate(t *testing.T) {
	cfg := benchCfg.GetDefaultConfig()
	cfg.ReadBatchRows = 1_000
	cfg.FrameBatchRows = 4_096

	opts := engineOptions(cfg)
	assert.Equal(t, 4_096, opts.FrameBatchRows)
	assert.Equal(t, cfg.DataDir, opts.DataDir)
	assert.Equal(t, cfg.DuckDBThreads, opts.DuckDBThreads)

	// changing the read benchmark batch leaves the frame engine alone
	cfg.ReadBatchRows = 7
	assert.Equal(t, 4_096, engineOptions(cfg).FrameBatchRows)
	assert.Equal(t, constants.DEFAULT_FRAME_BATCH_ROWS, benchCfg.GetDefaultConfig().FrameBatchRows)
}
