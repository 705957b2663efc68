package frame

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

type exprKind int

const (
	kindCol exprKind = iota
	kindLit
	kindAlias
	kindEq
	kindLt
	kindLe
	kindGt
	kindGe
	kindAnd
	kindDiv
	kindIsIn
	kindContains
	kindCast
	kindLen
	kindSum
	kindMean
	kindNUnique
	kindRankDense
	kindCumSum
	kindOver
)

var kindNames = map[exprKind]string{
	kindEq: "==", kindLt: "<", kindLe: "<=", kindGt: ">", kindGe: ">=",
	kindAnd: "&", kindDiv: "/",
}

// Expr is a column expression. Build it with Col, Lit and Len, then chain methods.
type Expr struct {
	kind       exprKind
	name       string // column name or alias
	value      any    // literal value
	inner      []*Expr
	set        []any
	dtype      DataType
	descending bool
	partition  []string
}

// Col references an input column
func Col(name string) *Expr { return &Expr{kind: kindCol, name: name} }

// Cols references several input columns
func Cols(names ...string) []*Expr {
	out := make([]*Expr, len(names))
	for i, n := range names {
		out[i] = Col(n)
	}
	return out
}

// Lit is a scalar literal: string, int, int64, float64 or bool
func Lit(v any) *Expr {
	if n, ok := v.(int); ok {
		v = int64(n)
	}
	return &Expr{kind: kindLit, value: v}
}

// Len counts the rows of the group (or the frame)
func Len() *Expr { return &Expr{kind: kindLen} }

func asExpr(v any) *Expr {
	if e, ok := v.(*Expr); ok {
		return e
	}
	return Lit(v)
}

func (e *Expr) binary(kind exprKind, other any) *Expr {
	return &Expr{kind: kind, inner: []*Expr{e, asExpr(other)}}
}

func (e *Expr) Alias(name string) *Expr {
	return &Expr{kind: kindAlias, name: name, inner: []*Expr{e}}
}

func (e *Expr) Eq(other any) *Expr  { return e.binary(kindEq, other) }
func (e *Expr) Lt(other any) *Expr  { return e.binary(kindLt, other) }
func (e *Expr) Le(other any) *Expr  { return e.binary(kindLe, other) }
func (e *Expr) Gt(other any) *Expr  { return e.binary(kindGt, other) }
func (e *Expr) Ge(other any) *Expr  { return e.binary(kindGe, other) }
func (e *Expr) And(other any) *Expr { return e.binary(kindAnd, other) }
func (e *Expr) Div(other any) *Expr { return e.binary(kindDiv, other) }

// IsIn is true where the value equals one of values
func (e *Expr) IsIn(values ...any) *Expr {
	set := make([]any, len(values))
	for i, v := range values {
		set[i] = Lit(v).value
	}
	return &Expr{kind: kindIsIn, inner: []*Expr{e}, set: set}
}

// StrContains is a case-sensitive substring match
func (e *Expr) StrContains(substr string) *Expr {
	return &Expr{kind: kindContains, inner: []*Expr{e}, value: substr}
}

func (e *Expr) Cast(dtype DataType) *Expr {
	return &Expr{kind: kindCast, inner: []*Expr{e}, dtype: dtype}
}

func (e *Expr) Sum() *Expr     { return &Expr{kind: kindSum, inner: []*Expr{e}} }
func (e *Expr) Mean() *Expr    { return &Expr{kind: kindMean, inner: []*Expr{e}} }
func (e *Expr) NUnique() *Expr { return &Expr{kind: kindNUnique, inner: []*Expr{e}} }

// RankDense ranks values so that ties share a rank and ranks have no gaps
func (e *Expr) RankDense(descending bool) *Expr {
	return &Expr{kind: kindRankDense, inner: []*Expr{e}, descending: descending}
}

// CumSum is a running total in row order
func (e *Expr) CumSum() *Expr { return &Expr{kind: kindCumSum, inner: []*Expr{e}} }

// Over evaluates a window expression separately within each partition
func (e *Expr) Over(partition ...string) *Expr {
	return &Expr{kind: kindOver, inner: []*Expr{e}, partition: partition}
}

// OutputName is the column name the expression produces
func (e *Expr) OutputName() string {
	switch e.kind {
	case kindCol, kindAlias:
		return e.name
	case kindLit:
		return "literal"
	case kindLen:
		return "len"
	default:
		return e.inner[0].OutputName()
	}
}

// collectColumns adds every input column e depends on to acc
func (e *Expr) collectColumns(acc map[string]bool) {
	if e.kind == kindCol {
		acc[e.name] = true
	}
	for _, p := range e.partition {
		acc[p] = true
	}
	for _, in := range e.inner {
		in.collectColumns(acc)
	}
}

func (e *Expr) isAgg() bool {
	switch e.kind {
	case kindLen, kindSum, kindMean, kindNUnique:
		return true
	case kindAlias:
		return e.inner[0].isAgg()
	}
	return false
}

func (e *Expr) String() string {
	switch e.kind {
	case kindCol:
		return fmt.Sprintf("col(%q)", e.name)
	case kindLit:
		return fmt.Sprintf("lit(%v)", e.value)
	case kindAlias:
		return fmt.Sprintf("%s.alias(%q)", e.inner[0], e.name)
	case kindIsIn:
		return fmt.Sprintf("%s.is_in(%v)", e.inner[0], e.set)
	case kindContains:
		return fmt.Sprintf("%s.str.contains(%q)", e.inner[0], e.value)
	case kindCast:
		return fmt.Sprintf("%s.cast(%s)", e.inner[0], e.dtype)
	case kindLen:
		return "len()"
	case kindSum:
		return fmt.Sprintf("%s.sum()", e.inner[0])
	case kindMean:
		return fmt.Sprintf("%s.mean()", e.inner[0])
	case kindNUnique:
		return fmt.Sprintf("%s.n_unique()", e.inner[0])
	case kindRankDense:
		return fmt.Sprintf("%s.rank(dense, descending=%v)", e.inner[0], e.descending)
	case kindCumSum:
		return fmt.Sprintf("%s.cum_sum()", e.inner[0])
	case kindOver:
		return fmt.Sprintf("%s.over(%s)", e.inner[0], strings.Join(e.partition, ", "))
	default:
		return fmt.Sprintf("(%s %s %s)", e.inner[0], kindNames[e.kind], e.inner[1])
	}
}

// eval computes an element-wise expression over every row of df
func (e *Expr) eval(ctx context.Context, df *DataFrame) (*Series, error) {
	switch e.kind {
	case kindCol:
		return df.Column(e.name)
	case kindLit:
		return broadcast(e.value, df.Height())
	case kindAlias:
		s, err := e.inner[0].eval(ctx, df)
		if err != nil {
			return nil, err
		}
		return s.rename(e.name), nil
	case kindEq, kindLt, kindLe, kindGt, kindGe:
		l, err := e.inner[0].eval(ctx, df)
		if err != nil {
			return nil, err
		}
		// a literal on the right is compared as a scalar, not broadcast
		var out *Series
		if rhs := e.inner[1]; rhs.kind == kindLit {
			out, err = compareScalar(ctx, e.kind, l, rhs.value)
		} else {
			var r *Series
			if r, err = e.inner[1].eval(ctx, df); err != nil {
				return nil, err
			}
			out, err = compareSeries(ctx, e.kind, l, r)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e, err)
		}
		return out, nil
	case kindAnd, kindDiv:
		l, err := e.inner[0].eval(ctx, df)
		if err != nil {
			return nil, err
		}
		r, err := e.inner[1].eval(ctx, df)
		if err != nil {
			return nil, err
		}
		var out *Series
		if e.kind == kindAnd {
			out, err = andSeries(ctx, l, r)
		} else {
			out, err = divideSeries(ctx, l, r)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e, err)
		}
		return out, nil
	case kindIsIn:
		s, err := e.inner[0].eval(ctx, df)
		if err != nil {
			return nil, err
		}
		out, err := isInSeries(ctx, s, e.set)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e, err)
		}
		return out, nil
	case kindContains:
		// arrow-go has no string kernels
		s, err := e.inner[0].eval(ctx, df)
		if err != nil {
			return nil, err
		}
		if s.dtype != String {
			return nil, fmt.Errorf("%s: column is not a string", e)
		}
		substr := e.value.(string)
		out := make([]bool, len(s.str))
		for i, v := range s.str {
			out[i] = strings.Contains(v, substr)
		}
		return NewBoolSeries(s.name, out), nil
	case kindCast:
		s, err := e.inner[0].eval(ctx, df)
		if err != nil {
			return nil, err
		}
		return castSeries(ctx, s, e.dtype)
	case kindRankDense, kindCumSum:
		return e.evalWindow(ctx, df, nil)
	case kindOver:
		inner := e.inner[0]
		alias := ""
		if inner.kind == kindAlias {
			alias, inner = inner.name, inner.inner[0]
		}
		if inner.kind != kindRankDense && inner.kind != kindCumSum {
			return nil, fmt.Errorf("%s: only rank and cum_sum can be used over a window", e)
		}
		s, err := inner.evalWindow(ctx, df, e.partition)
		if err != nil || alias == "" {
			return s, err
		}
		return s.rename(alias), nil
	default:
		return nil, fmt.Errorf("%s: aggregation outside of group_by", e)
	}
}

func broadcast(v any, n int) (*Series, error) {
	switch x := v.(type) {
	case string:
		out := make([]string, n)
		for i := range out {
			out[i] = x
		}
		return NewStringSeries("literal", out), nil
	case int64:
		out := make([]int64, n)
		for i := range out {
			out[i] = x
		}
		return NewInt64Series("literal", out), nil
	case float64:
		out := make([]float64, n)
		for i := range out {
			out[i] = x
		}
		return NewFloat64Series("literal", out), nil
	case bool:
		out := make([]bool, n)
		for i := range out {
			out[i] = x
		}
		return NewBoolSeries("literal", out), nil
	default:
		return nil, fmt.Errorf("unsupported literal %v (%T)", v, v)
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// evalWindow evaluates rank or cum_sum within each partition; nil partitions
// means the whole frame is one partition.
func (e *Expr) evalWindow(ctx context.Context, df *DataFrame, partition []string) (*Series, error) {
	s, err := e.inner[0].eval(ctx, df)
	if err != nil {
		return nil, err
	}
	groups := [][]int{identity(df.Height())}
	if len(partition) > 0 {
		g, err := groupRows(ctx, df, Cols(partition...))
		if err != nil {
			return nil, err
		}
		groups = g.rows
	}

	switch e.kind {
	case kindRankDense:
		if !s.dtype.numeric() && s.dtype != String {
			return nil, fmt.Errorf("%s: cannot rank %s", e, s.dtype)
		}
		out := make([]int64, s.Len())
		for _, rows := range groups {
			denseRank(s, rows, e.descending, out)
		}
		return NewInt64Series(s.name, out), nil
	case kindCumSum:
		switch s.dtype {
		case Int64:
			out := make([]int64, s.Len())
			for _, rows := range groups {
				var acc int64
				for _, r := range rows {
					acc += s.i64[r]
					out[r] = acc
				}
			}
			return NewInt64Series(s.name, out), nil
		case Float64:
			out := make([]float64, s.Len())
			for _, rows := range groups {
				var acc float64
				for _, r := range rows {
					acc += s.f64[r]
					out[r] = acc
				}
			}
			return NewFloat64Series(s.name, out), nil
		default:
			return nil, fmt.Errorf("%s: cannot sum %s", e, s.dtype)
		}
	}
	return nil, fmt.Errorf("%s: not a window function", e)
}

// denseRank writes 1-based dense ranks of s[rows] into out
func denseRank(s *Series, rows []int, descending bool, out []int64) {
	order := append([]int(nil), rows...)
	less := func(a, b int) bool {
		if s.dtype == String {
			return s.str[a] < s.str[b]
		}
		return s.float(a) < s.float(b)
	}
	sort.SliceStable(order, func(i, j int) bool {
		if descending {
			return less(order[j], order[i])
		}
		return less(order[i], order[j])
	})
	var rank int64
	for i, r := range order {
		if i == 0 || less(order[i-1], r) || less(r, order[i-1]) {
			rank++
		}
		out[r] = rank
	}
}

func identity(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
