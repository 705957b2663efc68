package frame

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

const defaultBatchRows = 64 * 1024

// ErrNoFiles is returned when a scan glob matches nothing
var ErrNoFiles = errors.New("no parquet files match")

type ScanOption func(*scanNode)

// WithBatchRows sets how many rows are decoded per record batch
func WithBatchRows(n int) ScanOption {
	return func(s *scanNode) {
		if n > 0 {
			s.batchRows = n
		}
	}
}

// ScanParquet starts a plan reading every parquet file matching glob, in
// lexical file order. Nothing is read until the plan is collected.
func ScanParquet(glob string, opts ...ScanOption) LazyFrame {
	s := &scanNode{glob: glob, batchRows: defaultBatchRows}
	for _, o := range opts {
		o(s)
	}
	return LazyFrame{root: s}
}

type scanNode struct {
	glob      string
	batchRows int
	// nil reads every column
	projection map[string]bool
	predicate  *Expr
}

func (n *scanNode) prune(required map[string]bool) node {
	out := *n
	if required != nil {
		out.projection = union(required)
	}
	return &out
}

func (n *scanNode) describe(sb *strings.Builder, depth int) {
	proj := "*"
	if n.projection != nil {
		proj = fmt.Sprintf("%v", sortedNames(n.projection))
	}
	sel := "none"
	if n.predicate != nil {
		sel = n.predicate.String()
	}
	line(sb, depth, "PARQUET SCAN %s PROJECT %s SELECTION %s", n.glob, proj, sel)
}

func (n *scanNode) execute(ctx context.Context) (*DataFrame, error) {
	var (
		out    *DataFrame
		intern = make(map[string]map[string]string)
	)
	err := readBatches(ctx, n.glob, n.projection, n.predicate, n.batchRows, intern, func(df *DataFrame) error {
		if out == nil {
			out = df
			return nil
		}
		for i, c := range out.columns {
			if err := c.appendSeries(df.columns[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = &DataFrame{}
	}
	return out, nil
}

// ReadBatches streams the files matching glob as frames of at most batchRows
// rows. columns limits what is decoded; nil decodes everything.
func ReadBatches(ctx context.Context, glob string, columns []string, batchRows int, fn func(*DataFrame) error) error {
	var projection map[string]bool
	if columns != nil {
		projection = union(map[string]bool{}, columns...)
	}
	if batchRows <= 0 {
		batchRows = defaultBatchRows
	}
	return readBatches(ctx, glob, projection, nil, batchRows, nil, fn)
}

func readBatches(ctx context.Context, glob string, projection map[string]bool, predicate *Expr, batchRows int,
	intern map[string]map[string]string, fn func(*DataFrame) error) error {
	paths, err := filepath.Glob(glob)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("%w %s", ErrNoFiles, glob)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := readFile(ctx, path, projection, predicate, batchRows, intern, fn); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

// readFile decodes one parquet file batch by batch. The predicate is evaluated
// on its own columns first and the record is filtered in arrow, so rejected
// rows are never copied into a frame.
func readFile(ctx context.Context, path string, projection map[string]bool, predicate *Expr, batchRows int,
	intern map[string]map[string]string, fn func(*DataFrame) error) error {
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return err
	}
	defer rdr.Close()

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{
		BatchSize: int64(batchRows),
		Parallel:  true,
	}, memory.DefaultAllocator)
	if err != nil {
		return err
	}

	// the schema is flat, so leaf column indices match field positions
	var indices []int
	if projection != nil {
		pschema := rdr.MetaData().Schema
		for i := 0; i < pschema.NumColumns(); i++ {
			if projection[pschema.Column(i).Name()] {
				indices = append(indices, i)
			}
		}
		if len(indices) == 0 {
			// nothing referenced, but row counts still have to come from somewhere
			indices = []int{0}
		}
	}

	rr, err := fr.GetRecordReader(ctx, indices, nil)
	if err != nil {
		return err
	}
	defer rr.Release()

	for rr.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		df, err := batchFrame(ctx, rr.Record(), predicate, intern)
		if err != nil {
			return err
		}
		if err := fn(df); err != nil {
			return err
		}
	}
	return rr.Err()
}

func batchFrame(ctx context.Context, rec arrow.Record, predicate *Expr, intern map[string]map[string]string) (*DataFrame, error) {
	if predicate != nil {
		need := exprColumns(nil, predicate)
		var cols []*Series
		for i := 0; i < int(rec.NumCols()); i++ {
			if name := rec.ColumnName(i); need[name] {
				s, err := seriesFromArrow(name, rec.Column(i), nil)
				if err != nil {
					return nil, err
				}
				cols = append(cols, s)
			}
		}
		if len(cols) == 0 && rec.NumCols() > 0 {
			// constant predicate, still needs the batch length
			s, err := seriesFromArrow(rec.ColumnName(0), rec.Column(0), nil)
			if err != nil {
				return nil, err
			}
			cols = append(cols, s)
		}
		mask, err := predicate.eval(ctx, &DataFrame{columns: cols})
		if err != nil {
			return nil, err
		}
		filtered, err := filterRecord(ctx, rec, mask)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", predicate, err)
		}
		defer filtered.Release()
		rec = filtered
	}

	cols := make([]*Series, rec.NumCols())
	for i := range cols {
		name := rec.ColumnName(i)
		var dict map[string]string
		if intern != nil {
			if dict = intern[name]; dict == nil {
				dict = make(map[string]string)
				intern[name] = dict
			}
		}
		var err error
		if cols[i], err = seriesFromArrow(name, rec.Column(i), dict); err != nil {
			return nil, err
		}
	}
	return NewDataFrame(cols...)
}
