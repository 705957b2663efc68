// Package query holds the benchmark query set. Every query is written once per
// engine family: SQL for the row store, SQL for the column store and a lazy
// frame plan, all producing the same logical result.
package query

import (
	"strings"

	"csb/enginebench/client/frame"
)

type Dialect string

const (
	SQLite Dialect = "sqlite"
	DuckDB Dialect = "duckdb"
)

type Query struct {
	Name string
	// SQL is used by every dialect without an override
	SQL       string
	Overrides map[Dialect]string
	Plan      func(frame.LazyFrame) frame.LazyFrame
}

// SQLFor returns the text to run on dialect d
func (q Query) SQLFor(d Dialect) string {
	if s, ok := q.Overrides[d]; ok {
		return s
	}
	return q.SQL
}

// WrapCount turns a query into one returning only its row count, so timing
// covers execution and not result transfer.
func WrapCount(sql string) string {
	inner := strings.TrimSpace(sql)
	inner = strings.TrimSpace(strings.TrimSuffix(inner, ";"))
	return "SELECT COUNT(*) FROM (" + inner + ") t"
}

// Find looks a query up by name
func Find(name string) (Query, bool) {
	for _, q := range All() {
		if q.Name == name {
			return q, true
		}
	}
	return Query{}, false
}

// All returns the six queries in benchmark order
func All() []Query {
	return []Query{
		conditionalAggRates(),
		distinctCounts(),
		topNPerGroup(),
		runningTotal(),
		joinVsAvg(),
		selectiveLikeFilter(),
	}
}

func conditionalAggRates() Query {
	return Query{
		Name: "Q1_conditional_agg_rates",
		SQL: `
WITH base AS (
  SELECT
    company_name,
    function,
    "year-month" AS ym,
    state_of_residence AS state,
    gender,
    segmentation,
    salary_usd,
    performance_score,
    flag_leave,
    flag_turnover,
    is_promoted
  FROM data
  WHERE year IN ('2022Y', '2023Y', '2024Y')
)
SELECT
  company_name,
  function,
  ym,
  state,
  gender,
  segmentation,
  COUNT(*) AS n,
  AVG(salary_usd) AS avg_salary,
  AVG(performance_score) AS avg_perf,
  CAST(SUM(CASE WHEN performance_score >= 4 THEN 1 ELSE 0 END) AS DOUBLE) / COUNT(*) AS pct_perf4,
  CAST(SUM(CASE WHEN is_promoted = 1 THEN 1 ELSE 0 END) AS DOUBLE) / COUNT(*) AS promo_rate,
  CAST(SUM(flag_leave) AS DOUBLE) / COUNT(*) AS leave_rate,
  CAST(SUM(flag_turnover) AS DOUBLE) / COUNT(*) AS turnover_rate
FROM base
GROUP BY company_name, function, ym, state, gender, segmentation`,
		Plan: func(lf frame.LazyFrame) frame.LazyFrame {
			return lf.
				Filter(frame.Col("year").IsIn("2022Y", "2023Y", "2024Y")).
				Select(
					frame.Col("company_name"),
					frame.Col("function"),
					frame.Col("year-month").Alias("ym"),
					frame.Col("state_of_residence").Alias("state"),
					frame.Col("gender"),
					frame.Col("segmentation"),
					frame.Col("salary_usd"),
					frame.Col("performance_score"),
					frame.Col("flag_leave"),
					frame.Col("flag_turnover"),
					frame.Col("is_promoted"),
				).
				GroupBy(frame.Cols("company_name", "function", "ym", "state", "gender", "segmentation")...).
				Agg(
					frame.Len().Alias("n"),
					frame.Col("salary_usd").Mean().Alias("avg_salary"),
					frame.Col("performance_score").Mean().Alias("avg_perf"),
					frame.Col("performance_score").Ge(4).Cast(frame.Int64).Sum().Alias("cnt_perf4"),
					frame.Col("is_promoted").Eq(1).Cast(frame.Int64).Sum().Alias("cnt_promoted"),
					frame.Col("flag_leave").Sum().Alias("sum_leave"),
					frame.Col("flag_turnover").Sum().Alias("sum_turnover"),
				).
				WithColumns(
					frame.Col("cnt_perf4").Div(frame.Col("n")).Alias("pct_perf4"),
					frame.Col("cnt_promoted").Div(frame.Col("n")).Alias("promo_rate"),
					frame.Col("sum_leave").Div(frame.Col("n")).Alias("leave_rate"),
					frame.Col("sum_turnover").Div(frame.Col("n")).Alias("turnover_rate"),
				).
				Drop("cnt_perf4", "cnt_promoted", "sum_leave", "sum_turnover")
		},
	}
}

func distinctCounts() Query {
	return Query{
		Name: "Q2_distinct_counts",
		SQL: `
SELECT
  "year-month" AS ym,
  company_name,
  COUNT(*) AS rows,
  COUNT(DISTINCT employee_id) AS distinct_employees,
  COUNT(DISTINCT fullname) AS distinct_names
FROM data
WHERE state_of_residence IN ('California', 'New York', 'Florida')
GROUP BY ym, company_name`,
		Plan: func(lf frame.LazyFrame) frame.LazyFrame {
			return lf.
				Filter(frame.Col("state_of_residence").IsIn("California", "New York", "Florida")).
				GroupBy(frame.Col("year-month").Alias("ym"), frame.Col("company_name")).
				Agg(
					frame.Len().Alias("rows"),
					frame.Col("employee_id").NUnique().Alias("distinct_employees"),
					frame.Col("fullname").NUnique().Alias("distinct_names"),
				)
		},
	}
}

// Ties share a rank, so a partition can return more than ten rows.
func topNPerGroup() Query {
	return Query{
		Name: "Q3_topN_per_group",
		SQL: `
SELECT *
FROM (
  SELECT
    company_name,
    "year-month" AS ym,
    employee_id,
    salary_usd,
    performance_score,
    DENSE_RANK() OVER (
      PARTITION BY company_name, "year-month"
      ORDER BY salary_usd DESC
    ) AS rn
  FROM data
  WHERE year = '2024Y'
) ranked
WHERE rn <= 10`,
		Plan: func(lf frame.LazyFrame) frame.LazyFrame {
			return lf.
				Filter(frame.Col("year").Eq("2024Y")).
				Select(
					frame.Col("company_name"),
					frame.Col("year-month").Alias("ym"),
					frame.Col("employee_id"),
					frame.Col("salary_usd"),
					frame.Col("performance_score"),
				).
				WithColumns(frame.Col("salary_usd").RankDense(true).Over("company_name", "ym").Alias("rn")).
				Filter(frame.Col("rn").Le(10))
		},
	}
}

func runningTotal() Query {
	return Query{
		Name: "Q4_running_total",
		SQL: `
WITH m AS (
  SELECT
    company_name,
    "year-month" AS ym,
    SUM(salary_usd) AS monthly_salary
  FROM data
  GROUP BY company_name, "year-month"
)
SELECT
  company_name,
  ym,
  monthly_salary,
  SUM(monthly_salary) OVER (
    PARTITION BY company_name
    ORDER BY ym
    ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW
  ) AS cumulative_salary
FROM m`,
		Plan: func(lf frame.LazyFrame) frame.LazyFrame {
			return lf.
				GroupBy(frame.Col("company_name"), frame.Col("year-month").Alias("ym")).
				Agg(frame.Col("salary_usd").Sum().Alias("monthly_salary")).
				Sort(frame.Asc("company_name"), frame.Asc("ym")).
				WithColumns(frame.Col("monthly_salary").CumSum().Over("company_name").Alias("cumulative_salary"))
		},
	}
}

// The row store joins back to a grouped average; the column store computes the
// same average as a window over the partition.
func joinVsAvg() Query {
	return Query{
		Name: "Q5_join_vs_avg",
		SQL: `
WITH avg_by_grp AS (
  SELECT
    company_name,
    "year-month" AS ym,
    AVG(salary_usd) AS avg_salary
  FROM data
  GROUP BY company_name, "year-month"
)
SELECT
  d.company_name,
  d."year-month" AS ym,
  COUNT(*) AS above_avg_count
FROM data d
JOIN avg_by_grp a
  ON d.company_name = a.company_name
 AND d."year-month" = a.ym
WHERE d.salary_usd > a.avg_salary
GROUP BY d.company_name, d."year-month"`,
		Overrides: map[Dialect]string{
			DuckDB: `
WITH w AS (
  SELECT
    company_name,
    "year-month" AS ym,
    salary_usd,
    AVG(salary_usd) OVER (PARTITION BY company_name, "year-month") AS avg_salary
  FROM data
)
SELECT
  company_name,
  ym,
  COUNT(*) AS above_avg_count
FROM w
WHERE salary_usd > avg_salary
GROUP BY company_name, ym`,
		},
		Plan: func(lf frame.LazyFrame) frame.LazyFrame {
			avgByGroup := lf.
				GroupBy(frame.Col("company_name"), frame.Col("year-month").Alias("ym")).
				Agg(frame.Col("salary_usd").Mean().Alias("avg_salary"))
			return lf.
				Select(frame.Col("company_name"), frame.Col("year-month").Alias("ym"), frame.Col("salary_usd")).
				Join(avgByGroup, "company_name", "ym").
				Filter(frame.Col("salary_usd").Gt(frame.Col("avg_salary"))).
				GroupBy(frame.Cols("company_name", "ym")...).
				Agg(frame.Len().Alias("above_avg_count"))
		},
	}
}

// SQLite's LIKE ignores ASCII case, so the row store matches with instr to
// stay case-sensitive like the other engines.
func selectiveLikeFilter() Query {
	const tmpl = `
SELECT
  company_name,
  function,
  "year-month" AS ym,
  COUNT(*) AS n,
  AVG(salary_usd) AS avg_salary
FROM data
WHERE year = '2023Y'
  AND state_of_residence = 'California'
  AND {match}
  AND employee_type = 'White-Collar'
GROUP BY company_name, function, ym`
	return Query{
		Name: "Q6_selective_like_filter",
		SQL:  strings.Replace(tmpl, "{match}", "function LIKE '%Sales%'", 1),
		Overrides: map[Dialect]string{
			SQLite: strings.Replace(tmpl, "{match}", "instr(function, 'Sales') > 0", 1),
		},
		Plan: func(lf frame.LazyFrame) frame.LazyFrame {
			return lf.
				Filter(frame.Col("year").Eq("2023Y").
					And(frame.Col("state_of_residence").Eq("California")).
					And(frame.Col("function").StrContains("Sales")).
					And(frame.Col("employee_type").Eq("White-Collar"))).
				GroupBy(frame.Col("company_name"), frame.Col("function"), frame.Col("year-month").Alias("ym")).
				Agg(frame.Len().Alias("n"), frame.Col("salary_usd").Mean().Alias("avg_salary"))
		},
	}
}
