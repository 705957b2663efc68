// Package frame is a small lazy dataframe layer over Arrow record batches.
//
// A LazyFrame is a plan of tabular operations (scan, filter, select,
// with_columns, group_by/agg, join, sort, drop) that is only evaluated when
// Collect or Count is called. Before evaluation the plan is optimized: filters
// sitting directly on a parquet scan are applied while batches are read, and
// scans only decode the columns the rest of the plan references.
package frame

import (
	"fmt"
	"strings"
)

type DataType int

const (
	String DataType = iota
	Int64
	Float64
	Bool
)

func (t DataType) String() string {
	switch t {
	case String:
		return "str"
	case Int64:
		return "i64"
	case Float64:
		return "f64"
	case Bool:
		return "bool"
	default:
		return fmt.Sprintf("DataType(%d)", int(t))
	}
}

func (t DataType) numeric() bool {
	return t == Int64 || t == Float64
}

// Series is a named, typed column. Only the slice matching the type is set.
type Series struct {
	name  string
	dtype DataType
	str   []string
	i64   []int64
	f64   []float64
	b     []bool
}

func NewStringSeries(name string, values []string) *Series {
	return &Series{name: name, dtype: String, str: values}
}

func NewInt64Series(name string, values []int64) *Series {
	return &Series{name: name, dtype: Int64, i64: values}
}

func NewFloat64Series(name string, values []float64) *Series {
	return &Series{name: name, dtype: Float64, f64: values}
}

func NewBoolSeries(name string, values []bool) *Series {
	return &Series{name: name, dtype: Bool, b: values}
}

func (s *Series) Name() string       { return s.name }
func (s *Series) DataType() DataType { return s.dtype }

func (s *Series) Len() int {
	switch s.dtype {
	case String:
		return len(s.str)
	case Int64:
		return len(s.i64)
	case Float64:
		return len(s.f64)
	default:
		return len(s.b)
	}
}

// Value returns the i-th element as string, int64, float64 or bool
func (s *Series) Value(i int) any {
	switch s.dtype {
	case String:
		return s.str[i]
	case Int64:
		return s.i64[i]
	case Float64:
		return s.f64[i]
	default:
		return s.b[i]
	}
}

func (s *Series) Strings() []string   { return s.str }
func (s *Series) Int64s() []int64     { return s.i64 }
func (s *Series) Float64s() []float64 { return s.f64 }
func (s *Series) Bools() []bool       { return s.b }

func (s *Series) float(i int) float64 {
	if s.dtype == Int64 {
		return float64(s.i64[i])
	}
	return s.f64[i]
}

func (s *Series) rename(name string) *Series {
	out := *s
	out.name = name
	return &out
}

// appendSeries concatenates o onto s; both must share the type
func (s *Series) appendSeries(o *Series) error {
	if s.dtype != o.dtype {
		return fmt.Errorf("column %q: cannot append %s to %s", s.name, o.dtype, s.dtype)
	}
	s.str = append(s.str, o.str...)
	s.i64 = append(s.i64, o.i64...)
	s.f64 = append(s.f64, o.f64...)
	s.b = append(s.b, o.b...)
	return nil
}

func (s *Series) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s[%s; %d]", s.name, s.dtype, s.Len())
	return sb.String()
}
