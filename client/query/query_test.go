package query

import (
	"strings"
	"testing"

	"csb/enginebench/client/frame"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapCount(t *testing.T) {
	testCases := []struct {
		name string
		sql  string
		want string
	}{
		{"Plain", "SELECT 1", "SELECT COUNT(*) FROM (SELECT 1) t"},
		{"Trailing semicolon", "SELECT 1;", "SELECT COUNT(*) FROM (SELECT 1) t"},
		{"Whitespace around", "\n  SELECT 1 ;  \n", "SELECT COUNT(*) FROM (SELECT 1) t"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, WrapCount(tc.sql))
		})
	}
}

func TestAllQueries(t *testing.T) {
	queries := All()
	require.Len(t, queries, 6)

	seen := make(map[string]bool)
	for _, q := range queries {
		assert.False(t, seen[q.Name], "duplicate query %s", q.Name)
		seen[q.Name] = true
		assert.NotNil(t, q.Plan, q.Name)
		for _, d := range []Dialect{SQLite, DuckDB} {
			assert.NotEmpty(t, strings.TrimSpace(q.SQLFor(d)), "%s on %s", q.Name, d)
		}
	}
	assert.Equal(t, "Q1_conditional_agg_rates", queries[0].Name)
	assert.Equal(t, "Q6_selective_like_filter", queries[5].Name)
}

func TestDialectOverrides(t *testing.T) {
	q6, ok := Find("Q6_selective_like_filter")
	require.True(t, ok)
	assert.Contains(t, q6.SQLFor(SQLite), "instr(function, 'Sales') > 0")
	assert.NotContains(t, q6.SQLFor(SQLite), "LIKE")
	assert.Contains(t, q6.SQLFor(DuckDB), "LIKE '%Sales%'")

	q5, ok := Find("Q5_join_vs_avg")
	require.True(t, ok)
	assert.Contains(t, q5.SQLFor(SQLite), "JOIN avg_by_grp")
	assert.Contains(t, q5.SQLFor(DuckDB), "OVER (PARTITION BY company_name")

	q3, _ := Find("Q3_topN_per_group")
	for _, d := range []Dialect{SQLite, DuckDB} {
		assert.Contains(t, q3.SQLFor(d), "DENSE_RANK()")
	}

	_, ok = Find("Q7_missing")
	assert.False(t, ok)
}

func TestPlansExplain(t *testing.T) {
	for _, q := range All() {
		t.Run(q.Name, func(t *testing.T) {
			explain := q.Plan(frame.ScanParquet("data/part_*.parquet")).Explain()
			assert.Contains(t, explain, "PARQUET SCAN")
			assert.NotContains(t, explain, "PROJECT *", "every query reads a subset of columns")
		})
	}
}
