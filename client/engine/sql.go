package engine

import (
	"context"
	"database/sql"
	"fmt"

	"csb/enginebench/client/query"
	"csb/enginebench/control/constants"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// sqlEngine runs the SQL text of a query over database/sql
type sqlEngine struct {
	name    string
	dialect query.Dialect
	path    string
	db      *sql.DB
	logger  *zap.Logger
}

// SQLitePragmas tune SQLite for bulk load and analytical reads
var SQLitePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	fmt.Sprintf("PRAGMA cache_size=%d", constants.SQLITE_CACHE_SIZE_KIB),
}

// ApplySQLitePragmas runs SQLitePragmas on db. It relies on db holding a
// single connection, since pragmas are per connection.
func ApplySQLitePragmas(ctx context.Context, db *sql.DB) error {
	for _, p := range SQLitePragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// OpenSQLite opens an existing SQLite database with the benchmark pragmas
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (Engine, error) {
	if err := requireFile(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := ApplySQLitePragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug("opened database", zap.String("engine", constants.ENGINE_SQLITE), zap.String("path", path))
	return &sqlEngine{name: constants.ENGINE_SQLITE, dialect: query.SQLite, path: path, db: db, logger: logger}, nil
}

// OpenDuckDB opens an existing DuckDB database limited to threads workers
func OpenDuckDB(ctx context.Context, path string, threads int, logger *zap.Logger) (Engine, error) {
	if err := requireFile(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}
	if err := SetDuckDBThreads(ctx, db, threads); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug("opened database", zap.String("engine", constants.ENGINE_DUCKDB), zap.String("path", path),
		zap.Int("threads", threads))
	return &sqlEngine{name: constants.ENGINE_DUCKDB, dialect: query.DuckDB, path: path, db: db, logger: logger}, nil
}

// SetDuckDBThreads bounds DuckDB's worker pool; zero keeps the default
func SetDuckDBThreads(ctx context.Context, db *sql.DB, threads int) error {
	if threads <= 0 {
		return nil
	}
	_, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA threads=%d", threads))
	return err
}

func (e *sqlEngine) Name() string { return e.name }

func (e *sqlEngine) RowCount(ctx context.Context) (int64, error) {
	var n int64
	err := e.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+constants.DEFAULT_TABLE_NAME).Scan(&n)
	return n, err
}

func (e *sqlEngine) Count(ctx context.Context, q query.Query) (int64, error) {
	var n int64
	if err := e.db.QueryRowContext(ctx, query.WrapCount(q.SQLFor(e.dialect))).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s %s: %w", e.name, q.Name, err)
	}
	return n, nil
}

func (e *sqlEngine) Collect(ctx context.Context, q query.Query) (*Result, error) {
	rows, err := e.db.QueryContext(ctx, q.SQLFor(e.dialect))
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", e.name, q.Name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	res := &Result{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			values[i] = normalize(v)
		}
		res.Rows = append(res.Rows, values)
	}
	return res, rows.Err()
}

// Stream walks SELECT * without keeping rows. database/sql has no batched
// fetch, so batches only group rows for progress reporting.
func (e *sqlEngine) Stream(ctx context.Context, batchRows int) (StreamStats, error) {
	var stats StreamStats
	if batchRows <= 0 {
		batchRows = constants.DEFAULT_READ_BATCH_ROWS
	}
	rows, err := e.db.QueryContext(ctx, "SELECT * FROM "+constants.DEFAULT_TABLE_NAME)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return stats, err
	}
	raw := make([]sql.RawBytes, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	inBatch := 0
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return stats, err
		}
		stats.Rows++
		if inBatch++; inBatch == batchRows {
			stats.Batches++
			inBatch = 0
			e.logger.Debug("read batch", zap.String("engine", e.name), zap.Int64("rows", stats.Rows))
		}
	}
	if inBatch > 0 {
		stats.Batches++
	}
	return stats, rows.Err()
}

func (e *sqlEngine) Close() error {
	return e.db.Close()
}
