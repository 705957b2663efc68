// Package engine wraps the three benchmarked backends behind one interface:
// SQLite (row store), DuckDB (column store) and the lazy frame over parquet.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"

	"csb/enginebench/client/query"
	"csb/enginebench/control/constants"

	"go.uber.org/zap"
)

var (
	ErrMissingDatabase = errors.New("database file not found")
	ErrMissingDataset  = errors.New("parquet dataset not found")
	ErrUnknownEngine   = errors.New("unknown engine")
)

// Engine is one benchmarked backend
type Engine interface {
	Name() string
	// RowCount is the number of rows in the benchmark table
	RowCount(ctx context.Context) (int64, error)
	// Count runs q and returns only its result row count
	Count(ctx context.Context, q query.Query) (int64, error)
	// Collect runs q and returns the full result
	Collect(ctx context.Context, q query.Query) (*Result, error)
	// Stream reads every row of the table in batches of batchRows
	Stream(ctx context.Context, batchRows int) (StreamStats, error)
	Close() error
}

// Result is a fully materialized query result. Values are normalized to
// string, int64, float64, bool or nil so results compare across engines.
type Result struct {
	Columns []string
	Rows    [][]any
}

type StreamStats struct {
	Rows    int64
	Batches int
}

type Options struct {
	SQLitePath     string
	DuckDBPath     string
	DataDir        string
	DuckDBThreads  int
	// rows per parquet record batch for the frame engine
	FrameBatchRows int
	Logger         *zap.Logger
}

// Open connects to the named engine. Database files must already exist.
func Open(ctx context.Context, name string, opts Options) (Engine, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	switch name {
	case constants.ENGINE_SQLITE:
		return OpenSQLite(ctx, opts.SQLitePath, opts.Logger)
	case constants.ENGINE_DUCKDB:
		return OpenDuckDB(ctx, opts.DuckDBPath, opts.DuckDBThreads, opts.Logger)
	case constants.ENGINE_FRAME:
		return OpenFrame(opts.DataDir, opts.FrameBatchRows, opts.Logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrMissingDatabase, path)
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrMissingDatabase, path)
	}
	return nil
}

// normalize maps driver values onto the small set of types Result promises
func normalize(v any) any {
	switch x := v.(type) {
	case nil, string, int64, float64, bool:
		return x
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case float32:
		return float64(x)
	case *big.Int:
		// HUGEINT sums
		if x.IsInt64() {
			return x.Int64()
		}
		f, _ := new(big.Float).SetInt(x).Float64()
		return f
	case interface{ Float64() float64 }:
		// DECIMAL
		return x.Float64()
	default:
		return fmt.Sprint(x)
	}
}
