package frame

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// maxKeys bounds the number of group/join keys; the composite key is a fixed
// array so it can be used directly as a map key.
const maxKeys = 8

type groupKey [maxKeys]int32

// grouping assigns every row of a frame to a group. Groups are numbered in
// order of first appearance.
type grouping struct {
	keys []*Series // one value per group, per key column
	rows [][]int
}

// dictionary maps the distinct values of one key column to dense codes. A
// dictionary can be shared by two frames so equal values get equal codes.
type dictionary struct {
	str map[string]int32
	i64 map[int64]int32
	f64 map[float64]int32
	b   map[bool]int32
}

func newDictionary() *dictionary {
	return &dictionary{
		str: make(map[string]int32),
		i64: make(map[int64]int32),
		f64: make(map[float64]int32),
		b:   make(map[bool]int32),
	}
}

// code returns the code of s[i], assigning one when add is true. ok is false
// when the value is unknown and add is false.
func (d *dictionary) code(s *Series, i int, add bool) (int32, bool) {
	switch s.dtype {
	case String:
		return lookupOrAdd(d.str, s.str[i], add)
	case Int64:
		return lookupOrAdd(d.i64, s.i64[i], add)
	case Float64:
		return lookupOrAdd(d.f64, s.f64[i], add)
	default:
		return lookupOrAdd(d.b, s.b[i], add)
	}
}

func lookupOrAdd[K comparable](m map[K]int32, v K, add bool) (int32, bool) {
	if c, ok := m[v]; ok {
		return c, true
	}
	if !add {
		return 0, false
	}
	c := int32(len(m))
	m[v] = c
	return c, true
}

func evalKeys(ctx context.Context, df *DataFrame, keys []*Expr) ([]*Series, error) {
	if len(keys) == 0 || len(keys) > maxKeys {
		return nil, fmt.Errorf("between 1 and %d keys are supported, got %d", maxKeys, len(keys))
	}
	out := make([]*Series, len(keys))
	for i, k := range keys {
		s, err := k.eval(ctx, df)
		if err != nil {
			return nil, err
		}
		out[i] = s.rename(k.OutputName())
	}
	return out, nil
}

func groupRows(ctx context.Context, df *DataFrame, keys []*Expr) (*grouping, error) {
	cols, err := evalKeys(ctx, df, keys)
	if err != nil {
		return nil, err
	}
	dicts := make([]*dictionary, len(cols))
	for i := range dicts {
		dicts[i] = newDictionary()
	}

	index := make(map[groupKey]int)
	var first []int
	g := &grouping{}
	for r := 0; r < df.Height(); r++ {
		var k groupKey
		for i, c := range cols {
			k[i], _ = dicts[i].code(c, r, true)
		}
		gi, ok := index[k]
		if !ok {
			gi = len(g.rows)
			index[k] = gi
			g.rows = append(g.rows, nil)
			first = append(first, r)
		}
		g.rows[gi] = append(g.rows[gi], r)
	}

	g.keys = make([]*Series, len(cols))
	for i, c := range cols {
		if g.keys[i], err = c.take(ctx, first); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// evalAgg reduces an aggregate expression to one value per group
func (e *Expr) evalAgg(ctx context.Context, df *DataFrame, groups [][]int) (*Series, error) {
	switch e.kind {
	case kindAlias:
		s, err := e.inner[0].evalAgg(ctx, df, groups)
		if err != nil {
			return nil, err
		}
		return s.rename(e.name), nil
	case kindLen:
		out := make([]int64, len(groups))
		for i, rows := range groups {
			out[i] = int64(len(rows))
		}
		return NewInt64Series("len", out), nil
	case kindSum, kindMean, kindNUnique:
	default:
		return nil, fmt.Errorf("%s is not an aggregation", e)
	}

	s, err := e.inner[0].eval(ctx, df)
	if err != nil {
		return nil, err
	}
	switch e.kind {
	case kindSum:
		if s.dtype == Bool {
			if s, err = castSeries(ctx, s, Int64); err != nil {
				return nil, err
			}
		}
		switch s.dtype {
		case Int64:
			out := make([]int64, len(groups))
			for i, rows := range groups {
				for _, r := range rows {
					out[i] += s.i64[r]
				}
			}
			return NewInt64Series(s.name, out), nil
		case Float64:
			out := make([]float64, len(groups))
			for i, rows := range groups {
				for _, r := range rows {
					out[i] += s.f64[r]
				}
			}
			return NewFloat64Series(s.name, out), nil
		}
		return nil, fmt.Errorf("%s: cannot sum %s", e, s.dtype)
	case kindMean:
		if !s.dtype.numeric() {
			return nil, fmt.Errorf("%s: cannot average %s", e, s.dtype)
		}
		out := make([]float64, len(groups))
		for i, rows := range groups {
			var acc float64
			for _, r := range rows {
				acc += s.float(r)
			}
			out[i] = acc / float64(len(rows))
		}
		return NewFloat64Series(s.name, out), nil
	default:
		out := make([]int64, len(groups))
		for i, rows := range groups {
			d := newDictionary()
			for _, r := range rows {
				d.code(s, r, true)
			}
			out[i] = int64(len(d.str) + len(d.i64) + len(d.f64) + len(d.b))
		}
		return NewInt64Series(s.name, out), nil
	}
}

func aggregate(ctx context.Context, df *DataFrame, keys, aggs []*Expr) (*DataFrame, error) {
	g, err := groupRows(ctx, df, keys)
	if err != nil {
		return nil, err
	}
	cols := append([]*Series(nil), g.keys...)
	for _, a := range aggs {
		s, err := a.evalAgg(ctx, df, g.rows)
		if err != nil {
			return nil, err
		}
		cols = append(cols, s)
	}
	return NewDataFrame(cols...)
}

// innerJoin matches rows of left and right with equal values in every on
// column. Output rows follow left order, then right order within a match.
// Right columns whose names clash with a left column get a _right suffix.
func innerJoin(ctx context.Context, left, right *DataFrame, on []string) (*DataFrame, error) {
	keys := Cols(on...)
	lcols, err := evalKeys(ctx, left, keys)
	if err != nil {
		return nil, err
	}
	rcols, err := evalKeys(ctx, right, keys)
	if err != nil {
		return nil, err
	}

	dicts := make([]*dictionary, len(on))
	for i := range dicts {
		if lcols[i].dtype != rcols[i].dtype {
			return nil, fmt.Errorf("join key %q: %s vs %s", on[i], lcols[i].dtype, rcols[i].dtype)
		}
		dicts[i] = newDictionary()
	}

	buckets := make(map[groupKey][]int)
	for r := 0; r < right.Height(); r++ {
		var k groupKey
		for i, c := range rcols {
			k[i], _ = dicts[i].code(c, r, true)
		}
		buckets[k] = append(buckets[k], r)
	}

	var lidx, ridx []int
outer:
	for r := 0; r < left.Height(); r++ {
		var k groupKey
		for i, c := range lcols {
			code, ok := dicts[i].code(c, r, false)
			if !ok {
				continue outer
			}
			k[i] = code
		}
		for _, m := range buckets[k] {
			lidx = append(lidx, r)
			ridx = append(ridx, m)
		}
	}

	isKey := make(map[string]bool, len(on))
	for _, n := range on {
		isKey[n] = true
	}
	taken := make(map[string]bool)
	cols := make([]*Series, 0, left.Width()+right.Width())
	for _, c := range left.columns {
		s, err := c.take(ctx, lidx)
		if err != nil {
			return nil, err
		}
		cols = append(cols, s)
		taken[c.name] = true
	}
	for _, c := range right.columns {
		if isKey[c.name] {
			continue
		}
		s, err := c.take(ctx, ridx)
		if err != nil {
			return nil, err
		}
		if taken[s.name] {
			s = s.rename(s.name + "_right")
		}
		cols = append(cols, s)
	}
	return NewDataFrame(cols...)
}

// SortKey orders by one column
type SortKey struct {
	Column     string
	Descending bool
}

// Asc and Desc build sort keys
func Asc(column string) SortKey  { return SortKey{Column: column} }
func Desc(column string) SortKey { return SortKey{Column: column, Descending: true} }

func sortFrame(ctx context.Context, df *DataFrame, by []SortKey) (*DataFrame, error) {
	cols := make([]*Series, len(by))
	for i, k := range by {
		s, err := df.Column(k.Column)
		if err != nil {
			return nil, err
		}
		if s.dtype == Bool {
			return nil, fmt.Errorf("cannot sort by boolean column %q", k.Column)
		}
		cols[i] = s
	}
	idx := identity(df.Height())
	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := idx[a], idx[b]
		for i, s := range cols {
			var c int
			if s.dtype == String {
				c = strings.Compare(s.str[ra], s.str[rb])
			} else {
				c = cmpFloat(s.float(ra), s.float(rb))
			}
			if c == 0 {
				continue
			}
			if by[i].Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return df.take(ctx, idx)
}
