package frame

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/arrow/scalar"
)

// Element-wise work runs through arrow/compute: comparisons, boolean and,
// division, is_in, cast, filter and take. Hash grouping, window functions and
// joins have no compute counterpart and index the Series slices directly.

var compareFuncs = map[exprKind]string{
	kindEq: "equal",
	kindLt: "less",
	kindLe: "less_equal",
	kindGt: "greater",
	kindGe: "greater_equal",
}

func arrowType(t DataType) arrow.DataType {
	switch t {
	case String:
		return arrow.BinaryTypes.String
	case Int64:
		return arrow.PrimitiveTypes.Int64
	case Float64:
		return arrow.PrimitiveTypes.Float64
	default:
		return arrow.FixedWidthTypes.Boolean
	}
}

// toArrow exposes s as an arrow array. Numeric values are wrapped without a
// copy, so the array must be released before s is appended to.
func (s *Series) toArrow() arrow.Array {
	switch s.dtype {
	case Int64:
		return wrapFixed(arrow.PrimitiveTypes.Int64, len(s.i64), arrow.Int64Traits.CastToBytes(s.i64))
	case Float64:
		return wrapFixed(arrow.PrimitiveTypes.Float64, len(s.f64), arrow.Float64Traits.CastToBytes(s.f64))
	case String:
		b := array.NewStringBuilder(memory.DefaultAllocator)
		defer b.Release()
		b.AppendValues(s.str, nil)
		return b.NewArray()
	default:
		b := array.NewBooleanBuilder(memory.DefaultAllocator)
		defer b.Release()
		b.AppendValues(s.b, nil)
		return b.NewArray()
	}
}

func wrapFixed(dt arrow.DataType, n int, values []byte) arrow.Array {
	data := array.NewData(dt, n, []*memory.Buffer{nil, memory.NewBufferBytes(values)}, nil, 0, 0)
	defer data.Release()
	return array.MakeFromData(data)
}

// toRecord exposes the frame as an arrow record; release it when done
func (df *DataFrame) toRecord() arrow.Record {
	fields := make([]arrow.Field, len(df.columns))
	cols := make([]arrow.Array, len(df.columns))
	for i, c := range df.columns {
		fields[i] = arrow.Field{Name: c.name, Type: arrowType(c.dtype)}
		cols[i] = c.toArrow()
	}
	rec := array.NewRecord(arrow.NewSchema(fields, nil), cols, int64(df.Height()))
	for _, c := range cols {
		c.Release()
	}
	return rec
}

// literalScalar converts v to a scalar of the column type. Numbers follow the
// column so int and float literals both compare against either numeric type.
func literalScalar(v any, dtype DataType) (scalar.Scalar, error) {
	switch x := v.(type) {
	case string:
		if dtype == String {
			return scalar.NewStringScalar(x), nil
		}
	case int64:
		switch dtype {
		case Int64:
			return scalar.NewInt64Scalar(x), nil
		case Float64:
			return scalar.NewFloat64Scalar(float64(x)), nil
		}
	case float64:
		if dtype.numeric() {
			return scalar.NewFloat64Scalar(x), nil
		}
	case bool:
		if dtype == Bool {
			return scalar.NewBooleanScalar(x), nil
		}
	}
	return nil, fmt.Errorf("cannot use literal %v (%T) with %s", v, v, dtype)
}

// callFunction runs a compute function whose result is an array of the same
// length as the array arguments and copies it into a Series called name.
func callFunction(ctx context.Context, fn, name string, opts compute.FunctionOptions, args ...compute.Datum) (*Series, error) {
	out, err := compute.CallFunction(ctx, fn, opts, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	defer out.Release()
	res, ok := out.(*compute.ArrayDatum)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected %s result", fn, out.Kind())
	}
	arr := res.MakeArray()
	defer arr.Release()
	return seriesFromArrow(name, arr, nil)
}

// compareScalar compares every element of s with a literal
func compareScalar(ctx context.Context, kind exprKind, s *Series, lit any) (*Series, error) {
	sc, err := literalScalar(lit, s.dtype)
	if err != nil {
		return nil, err
	}
	arr := s.toArrow()
	defer arr.Release()
	return callFunction(ctx, compareFuncs[kind], s.name, nil,
		compute.NewDatumWithoutOwning(arr), compute.NewDatumWithoutOwning(sc))
}

// compareSeries compares l and r element by element
func compareSeries(ctx context.Context, kind exprKind, l, r *Series) (*Series, error) {
	if l.dtype != r.dtype && !(l.dtype.numeric() && r.dtype.numeric()) {
		return nil, fmt.Errorf("cannot compare %s with %s", l.dtype, r.dtype)
	}
	la, ra := l.toArrow(), r.toArrow()
	defer la.Release()
	defer ra.Release()
	return callFunction(ctx, compareFuncs[kind], l.name, nil,
		compute.NewDatumWithoutOwning(la), compute.NewDatumWithoutOwning(ra))
}

func andSeries(ctx context.Context, l, r *Series) (*Series, error) {
	if l.dtype != Bool || r.dtype != Bool {
		return nil, fmt.Errorf("operands must be boolean, got %s and %s", l.dtype, r.dtype)
	}
	la, ra := l.toArrow(), r.toArrow()
	defer la.Release()
	defer ra.Release()
	return callFunction(ctx, "and", l.name, nil,
		compute.NewDatumWithoutOwning(la), compute.NewDatumWithoutOwning(ra))
}

// divideSeries is a true division; integer operands are cast to float first
func divideSeries(ctx context.Context, l, r *Series) (*Series, error) {
	if !l.dtype.numeric() || !r.dtype.numeric() {
		return nil, fmt.Errorf("operands must be numeric, got %s and %s", l.dtype, r.dtype)
	}
	lf, err := castSeries(ctx, l, Float64)
	if err != nil {
		return nil, err
	}
	rf, err := castSeries(ctx, r, Float64)
	if err != nil {
		return nil, err
	}
	la, ra := lf.toArrow(), rf.toArrow()
	defer la.Release()
	defer ra.Release()
	return callFunction(ctx, "divide_unchecked", l.name, nil,
		compute.NewDatumWithoutOwning(la), compute.NewDatumWithoutOwning(ra))
}

// isInSeries tests membership in values; values that cannot be represented
// in the column type never match.
func isInSeries(ctx context.Context, s *Series, values []any) (*Series, error) {
	if s.dtype == Bool {
		return nil, fmt.Errorf("unsupported column type %s", s.dtype)
	}
	set := &Series{name: s.name, dtype: s.dtype}
	for _, v := range values {
		sc, err := literalScalar(v, s.dtype)
		if err != nil {
			continue
		}
		switch x := sc.(type) {
		case *scalar.String:
			set.str = append(set.str, string(x.Data()))
		case *scalar.Int64:
			set.i64 = append(set.i64, x.Value)
		case *scalar.Float64:
			set.f64 = append(set.f64, x.Value)
		}
	}
	arr, setArr := s.toArrow(), set.toArrow()
	defer arr.Release()
	defer setArr.Release()
	out, err := compute.IsIn(ctx, compute.SetOptions{ValueSet: compute.NewDatumWithoutOwning(setArr)},
		compute.NewDatumWithoutOwning(arr))
	if err != nil {
		return nil, fmt.Errorf("is_in: %w", err)
	}
	defer out.Release()
	res := out.(*compute.ArrayDatum).MakeArray()
	defer res.Release()
	return seriesFromArrow(s.name, res, nil)
}

// castSeries converts s to dtype. Floats are truncated towards zero when cast
// to integers.
func castSeries(ctx context.Context, s *Series, dtype DataType) (*Series, error) {
	if s.dtype == dtype {
		return s, nil
	}
	if dtype == String || s.dtype == String {
		return nil, fmt.Errorf("cannot cast %s from %s to %s", s.name, s.dtype, dtype)
	}
	arr := s.toArrow()
	defer arr.Release()
	opts := compute.SafeCastOptions(arrowType(dtype))
	opts.AllowFloatTruncate = true
	out, err := compute.CastArray(ctx, arr, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot cast %s from %s to %s: %w", s.name, s.dtype, dtype, err)
	}
	defer out.Release()
	return seriesFromArrow(s.name, out, nil)
}

func indexArray(idx []int) arrow.Array {
	values := make([]int64, len(idx))
	for i, v := range idx {
		values[i] = int64(v)
	}
	return wrapFixed(arrow.PrimitiveTypes.Int64, len(values), arrow.Int64Traits.CastToBytes(values))
}

// take gathers the rows at idx
func (s *Series) take(ctx context.Context, idx []int) (*Series, error) {
	arr := s.toArrow()
	defer arr.Release()
	indices := indexArray(idx)
	defer indices.Release()
	out, err := compute.TakeArray(ctx, arr, indices)
	if err != nil {
		return nil, fmt.Errorf("take %s: %w", s.name, err)
	}
	defer out.Release()
	return seriesFromArrow(s.name, out, nil)
}

func (df *DataFrame) take(ctx context.Context, idx []int) (*DataFrame, error) {
	cols := make([]*Series, len(df.columns))
	for i, c := range df.columns {
		s, err := c.take(ctx, idx)
		if err != nil {
			return nil, err
		}
		cols[i] = s
	}
	return &DataFrame{columns: cols}, nil
}

// filterRecord keeps the rows of rec where mask is true. The caller releases
// the returned record.
func filterRecord(ctx context.Context, rec arrow.Record, mask *Series) (arrow.Record, error) {
	if mask.dtype != Bool {
		return nil, fmt.Errorf("predicate is %s, want bool", mask.dtype)
	}
	maskArr := mask.toArrow()
	defer maskArr.Release()
	return compute.FilterRecordBatch(ctx, rec, maskArr, compute.DefaultFilterOptions())
}
