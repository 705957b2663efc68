package frame

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// DataFrame is a materialized set of equally long columns
type DataFrame struct {
	columns []*Series
}

func NewDataFrame(columns ...*Series) (*DataFrame, error) {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c.name] {
			return nil, fmt.Errorf("duplicate column %q", c.name)
		}
		seen[c.name] = true
		if c.Len() != columns[0].Len() {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.name, c.Len(), columns[0].Len())
		}
	}
	return &DataFrame{columns: columns}, nil
}

// FromRecord copies an Arrow record into a DataFrame
func FromRecord(rec arrow.Record) (*DataFrame, error) {
	cols := make([]*Series, rec.NumCols())
	for i := range cols {
		s, err := seriesFromArrow(rec.ColumnName(i), rec.Column(i), nil)
		if err != nil {
			return nil, err
		}
		cols[i] = s
	}
	return NewDataFrame(cols...)
}

func (df *DataFrame) Height() int {
	if len(df.columns) == 0 {
		return 0
	}
	return df.columns[0].Len()
}

func (df *DataFrame) Width() int { return len(df.columns) }

func (df *DataFrame) Columns() []string {
	names := make([]string, len(df.columns))
	for i, c := range df.columns {
		names[i] = c.name
	}
	return names
}

func (df *DataFrame) Column(name string) (*Series, error) {
	for _, c := range df.columns {
		if c.name == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("column %q not found", name)
}

// Rows returns the frame row by row
func (df *DataFrame) Rows() [][]any {
	rows := make([][]any, df.Height())
	for i := range rows {
		row := make([]any, len(df.columns))
		for j, c := range df.columns {
			row[j] = c.Value(i)
		}
		rows[i] = row
	}
	return rows
}

// Lazy starts a plan on top of this frame
func (df *DataFrame) Lazy() LazyFrame {
	return LazyFrame{root: &memNode{df: df}}
}

// withColumn replaces the column of the same name or appends s
func (df *DataFrame) withColumn(s *Series) *DataFrame {
	cols := make([]*Series, 0, len(df.columns)+1)
	replaced := false
	for _, c := range df.columns {
		if c.name == s.name {
			cols = append(cols, s)
			replaced = true
			continue
		}
		cols = append(cols, c)
	}
	if !replaced {
		cols = append(cols, s)
	}
	return &DataFrame{columns: cols}
}

func (df *DataFrame) drop(names []string) *DataFrame {
	dropped := make(map[string]bool, len(names))
	for _, n := range names {
		dropped[n] = true
	}
	cols := make([]*Series, 0, len(df.columns))
	for _, c := range df.columns {
		if !dropped[c.name] {
			cols = append(cols, c)
		}
	}
	return &DataFrame{columns: cols}
}

func (df *DataFrame) String() string {
	parts := make([]string, len(df.columns))
	for i, c := range df.columns {
		parts[i] = c.String()
	}
	return fmt.Sprintf("DataFrame(%d rows: %s)", df.Height(), strings.Join(parts, ", "))
}

// seriesFromArrow copies arr into a Series. Strings go through intern when it
// is not nil, which keeps low-cardinality columns cheap across batches.
func seriesFromArrow(name string, arr arrow.Array, intern map[string]string) (*Series, error) {
	n := arr.Len()
	switch a := arr.(type) {
	case *array.String:
		out := make([]string, n)
		for i := range out {
			out[i] = internString(intern, a.Value(i))
		}
		return NewStringSeries(name, out), nil
	case *array.LargeString:
		out := make([]string, n)
		for i := range out {
			out[i] = internString(intern, a.Value(i))
		}
		return NewStringSeries(name, out), nil
	case *array.Int64:
		return NewInt64Series(name, append([]int64(nil), a.Int64Values()...)), nil
	case *array.Int32:
		out := make([]int64, n)
		for i, v := range a.Int32Values() {
			out[i] = int64(v)
		}
		return NewInt64Series(name, out), nil
	case *array.Float64:
		return NewFloat64Series(name, append([]float64(nil), a.Float64Values()...)), nil
	case *array.Float32:
		out := make([]float64, n)
		for i, v := range a.Float32Values() {
			out[i] = float64(v)
		}
		return NewFloat64Series(name, out), nil
	case *array.Boolean:
		out := make([]bool, n)
		for i := range out {
			out[i] = a.Value(i)
		}
		return NewBoolSeries(name, out), nil
	default:
		return nil, fmt.Errorf("column %q: unsupported arrow type %s", name, arr.DataType())
	}
}

func internString(intern map[string]string, v string) string {
	if intern == nil {
		return strings.Clone(v)
	}
	if s, ok := intern[v]; ok {
		return s
	}
	s := strings.Clone(v)
	intern[s] = s
	return s
}
