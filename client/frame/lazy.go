package frame

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// LazyFrame is a deferred query plan. Every method returns a new LazyFrame and
// leaves the receiver untouched, so a plan can be reused as a building block.
type LazyFrame struct {
	root node
}

type node interface {
	execute(ctx context.Context) (*DataFrame, error)
	// prune returns a copy of the node that only produces what is needed for
	// the required columns. A nil set means every column is required.
	prune(required map[string]bool) node
	describe(sb *strings.Builder, depth int)
}

func (lf LazyFrame) Filter(predicate *Expr) LazyFrame {
	return LazyFrame{root: &filterNode{input: lf.root, predicate: predicate}}
}

func (lf LazyFrame) Select(exprs ...*Expr) LazyFrame {
	return LazyFrame{root: &selectNode{input: lf.root, exprs: exprs}}
}

func (lf LazyFrame) WithColumns(exprs ...*Expr) LazyFrame {
	return LazyFrame{root: &withColumnsNode{input: lf.root, exprs: exprs}}
}

func (lf LazyFrame) Sort(by ...SortKey) LazyFrame {
	return LazyFrame{root: &sortNode{input: lf.root, by: by}}
}

func (lf LazyFrame) Drop(names ...string) LazyFrame {
	return LazyFrame{root: &dropNode{input: lf.root, names: names}}
}

// Join is an inner equi-join on columns present in both frames
func (lf LazyFrame) Join(other LazyFrame, on ...string) LazyFrame {
	return LazyFrame{root: &joinNode{left: lf.root, right: other.root, on: on}}
}

// GroupBy starts an aggregation; finish it with Agg
func (lf LazyFrame) GroupBy(keys ...*Expr) GroupBy {
	return GroupBy{input: lf.root, keys: keys}
}

type GroupBy struct {
	input node
	keys  []*Expr
}

func (g GroupBy) Agg(aggs ...*Expr) LazyFrame {
	return LazyFrame{root: &groupByNode{input: g.input, keys: g.keys, aggs: aggs}}
}

// Collect optimizes and runs the plan
func (lf LazyFrame) Collect(ctx context.Context) (*DataFrame, error) {
	return lf.root.prune(nil).execute(ctx)
}

// Count runs the plan and returns only the number of result rows. No result
// column is required, so scans decode as little as the plan allows.
func (lf LazyFrame) Count(ctx context.Context) (int64, error) {
	df, err := lf.root.prune(map[string]bool{}).execute(ctx)
	if err != nil {
		return 0, err
	}
	return int64(df.Height()), nil
}

// Explain renders the optimized plan, root first
func (lf LazyFrame) Explain() string {
	var sb strings.Builder
	lf.root.prune(nil).describe(&sb, 0)
	return sb.String()
}

func line(sb *strings.Builder, depth int, format string, args ...any) {
	sb.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(sb, format, args...)
	sb.WriteByte('\n')
}

func exprList(exprs []*Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

func exprColumns(acc map[string]bool, exprs ...*Expr) map[string]bool {
	if acc == nil {
		acc = make(map[string]bool)
	}
	for _, e := range exprs {
		e.collectColumns(acc)
	}
	return acc
}

// union returns required plus names; nil stays nil
func union(required map[string]bool, names ...string) map[string]bool {
	if required == nil {
		return nil
	}
	out := make(map[string]bool, len(required)+len(names))
	for n := range required {
		out[n] = true
	}
	for _, n := range names {
		out[n] = true
	}
	return out
}

func sortedNames(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

type memNode struct {
	df *DataFrame
}

func (n *memNode) execute(context.Context) (*DataFrame, error) { return n.df, nil }
func (n *memNode) prune(map[string]bool) node                  { return n }
func (n *memNode) describe(sb *strings.Builder, depth int) {
	line(sb, depth, "DF %v", n.df.Columns())
}

type filterNode struct {
	input     node
	predicate *Expr
}

func (n *filterNode) execute(ctx context.Context) (*DataFrame, error) {
	df, err := n.input.execute(ctx)
	if err != nil {
		return nil, err
	}
	return applyFilter(ctx, df, n.predicate)
}

func (n *filterNode) prune(required map[string]bool) node {
	need := required
	if need != nil {
		need = exprColumns(union(required), n.predicate)
	}
	input := n.input.prune(need)
	// fold into the scan so rows are dropped batch by batch
	if scan, ok := input.(*scanNode); ok {
		out := *scan
		if out.predicate == nil {
			out.predicate = n.predicate
		} else {
			out.predicate = out.predicate.And(n.predicate)
		}
		if out.projection != nil {
			out.projection = exprColumns(union(out.projection), n.predicate)
		}
		return &out
	}
	return &filterNode{input: input, predicate: n.predicate}
}

func (n *filterNode) describe(sb *strings.Builder, depth int) {
	line(sb, depth, "FILTER %s", n.predicate)
	n.input.describe(sb, depth+1)
}

func applyFilter(ctx context.Context, df *DataFrame, predicate *Expr) (*DataFrame, error) {
	mask, err := predicate.eval(ctx, df)
	if err != nil {
		return nil, err
	}
	rec := df.toRecord()
	defer rec.Release()
	filtered, err := filterRecord(ctx, rec, mask)
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", predicate, err)
	}
	defer filtered.Release()
	return FromRecord(filtered)
}

type selectNode struct {
	input node
	exprs []*Expr
}

func (n *selectNode) execute(ctx context.Context) (*DataFrame, error) {
	df, err := n.input.execute(ctx)
	if err != nil {
		return nil, err
	}
	cols := make([]*Series, len(n.exprs))
	for i, e := range n.exprs {
		if cols[i], err = e.eval(ctx, df); err != nil {
			return nil, err
		}
	}
	return NewDataFrame(cols...)
}

func (n *selectNode) prune(map[string]bool) node {
	return &selectNode{input: n.input.prune(exprColumns(nil, n.exprs...)), exprs: n.exprs}
}

func (n *selectNode) describe(sb *strings.Builder, depth int) {
	line(sb, depth, "SELECT [%s]", exprList(n.exprs))
	n.input.describe(sb, depth+1)
}

type withColumnsNode struct {
	input node
	exprs []*Expr
}

func (n *withColumnsNode) execute(ctx context.Context) (*DataFrame, error) {
	df, err := n.input.execute(ctx)
	if err != nil {
		return nil, err
	}
	// every expression sees the input frame, not the columns added beside it
	added := make([]*Series, len(n.exprs))
	for i, e := range n.exprs {
		if added[i], err = e.eval(ctx, df); err != nil {
			return nil, err
		}
	}
	for _, s := range added {
		df = df.withColumn(s)
	}
	return df, nil
}

func (n *withColumnsNode) prune(required map[string]bool) node {
	need := required
	if need != nil {
		need = union(required)
		for _, e := range n.exprs {
			delete(need, e.OutputName())
		}
		need = exprColumns(need, n.exprs...)
	}
	return &withColumnsNode{input: n.input.prune(need), exprs: n.exprs}
}

func (n *withColumnsNode) describe(sb *strings.Builder, depth int) {
	line(sb, depth, "WITH_COLUMNS [%s]", exprList(n.exprs))
	n.input.describe(sb, depth+1)
}

type groupByNode struct {
	input node
	keys  []*Expr
	aggs  []*Expr
}

func (n *groupByNode) execute(ctx context.Context) (*DataFrame, error) {
	df, err := n.input.execute(ctx)
	if err != nil {
		return nil, err
	}
	return aggregate(ctx, df, n.keys, n.aggs)
}

func (n *groupByNode) prune(map[string]bool) node {
	need := exprColumns(nil, n.keys...)
	need = exprColumns(need, n.aggs...)
	return &groupByNode{input: n.input.prune(need), keys: n.keys, aggs: n.aggs}
}

func (n *groupByNode) describe(sb *strings.Builder, depth int) {
	line(sb, depth, "AGGREGATE [%s] BY [%s]", exprList(n.aggs), exprList(n.keys))
	n.input.describe(sb, depth+1)
}

type joinNode struct {
	left, right node
	on          []string
}

func (n *joinNode) execute(ctx context.Context) (*DataFrame, error) {
	left, err := n.left.execute(ctx)
	if err != nil {
		return nil, err
	}
	right, err := n.right.execute(ctx)
	if err != nil {
		return nil, err
	}
	return innerJoin(ctx, left, right, n.on)
}

func (n *joinNode) prune(required map[string]bool) node {
	need := union(required, n.on...)
	for name := range required {
		if base, ok := strings.CutSuffix(name, "_right"); ok {
			need[base] = true
		}
	}
	return &joinNode{left: n.left.prune(need), right: n.right.prune(need), on: n.on}
}

func (n *joinNode) describe(sb *strings.Builder, depth int) {
	line(sb, depth, "INNER JOIN ON %v", n.on)
	n.left.describe(sb, depth+1)
	n.right.describe(sb, depth+1)
}

type sortNode struct {
	input node
	by    []SortKey
}

func (n *sortNode) execute(ctx context.Context) (*DataFrame, error) {
	df, err := n.input.execute(ctx)
	if err != nil {
		return nil, err
	}
	return sortFrame(ctx, df, n.by)
}

func (n *sortNode) prune(required map[string]bool) node {
	names := make([]string, len(n.by))
	for i, k := range n.by {
		names[i] = k.Column
	}
	return &sortNode{input: n.input.prune(union(required, names...)), by: n.by}
}

func (n *sortNode) describe(sb *strings.Builder, depth int) {
	line(sb, depth, "SORT BY %v", n.by)
	n.input.describe(sb, depth+1)
}

type dropNode struct {
	input node
	names []string
}

func (n *dropNode) execute(ctx context.Context) (*DataFrame, error) {
	df, err := n.input.execute(ctx)
	if err != nil {
		return nil, err
	}
	return df.drop(n.names), nil
}

func (n *dropNode) prune(required map[string]bool) node {
	return &dropNode{input: n.input.prune(required), names: n.names}
}

func (n *dropNode) describe(sb *strings.Builder, depth int) {
	line(sb, depth, "DROP %v", n.names)
	n.input.describe(sb, depth+1)
}
