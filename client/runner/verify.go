package runner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"csb/enginebench/client/engine"
	"csb/enginebench/client/query"

	"go.uber.org/zap"
)

var ErrResultMismatch = errors.New("query results differ between engines")

// Mismatch describes one engine disagreeing with the reference engine
type Mismatch struct {
	Query     string
	Engine    string
	Reference string
	Reason    string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: %s vs %s: %s", m.Query, m.Engine, m.Reference, m.Reason)
}

// Verify collects every query on every engine and compares each result with
// the first engine's as a multiset of rows. Numbers match within tolerance,
// relative to their magnitude. Row order is ignored.
func (r *BenchmarkRunner) Verify(ctx context.Context, engines []engine.Engine, queries []query.Query, tolerance float64) ([]Mismatch, error) {
	if len(engines) < 2 {
		return nil, errors.New("at least two engines are needed to compare results")
	}
	r.writeHeader("verify_start")
	r.report.Linef("meta", "tolerance=%g", tolerance)

	var mismatches []Mismatch
	for _, q := range queries {
		results := make([]*engine.Result, len(engines))
		counts := make([]string, len(engines))
		for i, e := range engines {
			res, err := e.Collect(ctx, q)
			if err != nil {
				return nil, err
			}
			results[i] = res
			counts[i] = fmt.Sprintf("%s=%d", e.Name(), len(res.Rows))
		}

		status := "ok"
		for i := 1; i < len(engines); i++ {
			reason := CompareResults(results[0], results[i], tolerance)
			if reason == "" {
				continue
			}
			status = "mismatch"
			m := Mismatch{Query: q.Name, Engine: engines[i].Name(), Reference: engines[0].Name(), Reason: reason}
			mismatches = append(mismatches, m)
			r.log.Warn("result mismatch", zap.String("query", q.Name), zap.String("engine", m.Engine),
				zap.String("reference", m.Reference), zap.String("reason", reason))
		}
		r.report.Line("verify", q.Name, strings.Join(counts, " "), status)
	}

	r.report.Line("meta", "verify_done")
	if err := r.report.Flush(); err != nil {
		return nil, err
	}
	if len(mismatches) > 0 {
		return mismatches, fmt.Errorf("%w: %d mismatches", ErrResultMismatch, len(mismatches))
	}
	return nil, nil
}

// CompareResults returns why got differs from want, or "" when they match
func CompareResults(want, got *engine.Result, tolerance float64) string {
	if len(want.Columns) != len(got.Columns) {
		return fmt.Sprintf("columns %v vs %v", got.Columns, want.Columns)
	}
	// align got's columns with want's by name
	pos := make(map[string]int, len(got.Columns))
	for i, c := range got.Columns {
		pos[c] = i
	}
	order := make([]int, len(want.Columns))
	for i, c := range want.Columns {
		j, ok := pos[c]
		if !ok {
			return fmt.Sprintf("column %q missing", c)
		}
		order[i] = j
	}
	if len(want.Rows) != len(got.Rows) {
		return fmt.Sprintf("%d rows vs %d", len(got.Rows), len(want.Rows))
	}

	aligned := make([][]any, len(got.Rows))
	for i, row := range got.Rows {
		out := make([]any, len(order))
		for k, j := range order {
			out[k] = row[j]
		}
		aligned[i] = out
	}
	a, b := sortedRows(want.Rows), sortedRows(aligned)
	for i := range a {
		for k := range a[i] {
			if !valuesEqual(a[i][k], b[i][k], tolerance) {
				return fmt.Sprintf("row %d column %q: %v vs %v", i, want.Columns[k], b[i][k], a[i][k])
			}
		}
	}
	return ""
}

func sortedRows(rows [][]any) [][]any {
	out := append([][]any(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		for k := range out[i] {
			if c := compareValues(out[i][k], out[j][k]); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return out
}

func asNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// compareValues orders nil first, then numbers, then strings
func compareValues(a, b any) int {
	rank := func(v any) int {
		if v == nil {
			return 0
		}
		if _, ok := asNumber(v); ok {
			return 1
		}
		return 2
	}
	if ra, rb := rank(a), rank(b); ra != rb {
		return ra - rb
	}
	if fa, ok := asNumber(a); ok {
		fb, _ := asNumber(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	if a == nil {
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func valuesEqual(a, b any, tolerance float64) bool {
	fa, okA := asNumber(a)
	fb, okB := asNumber(b)
	if okA && okB {
		scale := math.Max(1, math.Max(math.Abs(fa), math.Abs(fb)))
		return math.Abs(fa-fb) <= tolerance*scale
	}
	return a == b
}
