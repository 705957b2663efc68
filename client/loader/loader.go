// Package loader builds the benchmark databases from the parquet dataset.
// Every load is destructive: the target database is deleted and rebuilt.
package loader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"csb/enginebench/client/engine"
	"csb/enginebench/control/constants"
	generator "csb/enginebench/data-generator"
	"csb/enginebench/data-generator/schema"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

type Options struct {
	DataDir string
	// Path of the database file to (re)create
	Path string
	// Rows per multi-row INSERT into SQLite, capped by the bound parameter limit
	BatchSize     int
	DuckDBThreads int
	Logger        *zap.Logger
}

type LoadResult struct {
	Engine  string
	Path    string
	Rows    int64
	Elapsed time.Duration
}

func (o *Options) prepare() (glob string, err error) {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.BatchSize <= 0 {
		o.BatchSize = constants.DEFAULT_LOAD_BATCH_SIZE
	}
	parts, err := generator.ListParts(o.DataDir)
	if err != nil {
		return "", err
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: no %s in %s", engine.ErrMissingDataset, constants.PART_FILE_GLOB, o.DataDir)
	}
	if err := removeDatabase(o.Path); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(o.Path), 0755); err != nil {
		return "", err
	}
	return filepath.Join(o.DataDir, constants.PART_FILE_GLOB), nil
}

// removeDatabase deletes path and the journal files either engine leaves beside it
func removeDatabase(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm", path + ".wal"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}

// sqliteMaxVariables is the bound parameter limit of the bundled SQLite
const sqliteMaxVariables = 32766

// rowsPerInsert caps batchSize so one statement stays within the parameter limit
func rowsPerInsert(batchSize, columns int) int {
	limit := sqliteMaxVariables / columns
	if batchSize > limit {
		batchSize = limit
	}
	return max(batchSize, 1)
}

func insertSQL(table string, quoted []string, rows int) string {
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?,", len(quoted)), ",") + ")"
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, strings.Join(quoted, ","),
		strings.TrimSuffix(strings.Repeat(tuple+",", rows), ","))
}

// batchInserter buffers rows and writes them with one multi-row INSERT per
// batch. The statement for a full batch is prepared once; the final partial
// batch gets its own.
type batchInserter struct {
	tx       *sql.Tx
	table    string
	quoted   []string
	size     int
	stmt     *sql.Stmt
	args     []any
	pending  int
	inserted int64
}

func newBatchInserter(ctx context.Context, tx *sql.Tx, table string, cols []string, batchSize int) (*batchInserter, error) {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = schema.QuoteIdent(c)
	}
	size := rowsPerInsert(batchSize, len(cols))
	stmt, err := tx.PrepareContext(ctx, insertSQL(table, quoted, size))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	return &batchInserter{
		tx:     tx,
		table:  table,
		quoted: quoted,
		size:   size,
		stmt:   stmt,
		args:   make([]any, 0, size*len(cols)),
	}, nil
}

// add buffers one row and reports whether it completed a batch
func (b *batchInserter) add(ctx context.Context, row []any) (bool, error) {
	b.args = append(b.args, row...)
	b.pending++
	if b.pending < b.size {
		return false, nil
	}
	return true, b.flush(ctx)
}

func (b *batchInserter) flush(ctx context.Context) error {
	if b.pending == 0 {
		return nil
	}
	var err error
	if b.pending == b.size {
		_, err = b.stmt.ExecContext(ctx, b.args...)
	} else {
		_, err = b.tx.ExecContext(ctx, insertSQL(b.table, b.quoted, b.pending), b.args...)
	}
	if err != nil {
		return fmt.Errorf("insert rows %d-%d: %w", b.inserted, b.inserted+int64(b.pending)-1, err)
	}
	b.inserted += int64(b.pending)
	b.pending = 0
	b.args = b.args[:0]
	return nil
}

func (b *batchInserter) close() error {
	return b.stmt.Close()
}

func readParquetSQL(glob string) string {
	return fmt.Sprintf("SELECT * FROM read_parquet('%s')", strings.ReplaceAll(glob, "'", "''"))
}

// LoadSQLite creates the SQLite table and inserts every row of the dataset in
// one transaction. Parquet is decoded by an in-memory DuckDB, which SQLite
// cannot do on its own.
func LoadSQLite(ctx context.Context, opts Options) (*LoadResult, error) {
	glob, err := opts.prepare()
	if err != nil {
		return nil, err
	}
	log := opts.Logger.With(zap.String("engine", constants.ENGINE_SQLITE))
	log.Info("create db", zap.String("path", opts.Path))

	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	db.SetMaxOpenConns(1)
	if err := engine.ApplySQLitePragmas(ctx, db); err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema.CreateTableSQL(constants.DEFAULT_TABLE_NAME)); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	src, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, err
	}
	defer src.Close()
	if err := engine.SetDuckDBThreads(ctx, src, opts.DuckDBThreads); err != nil {
		return nil, err
	}

	log.Info("load start", zap.String("source", glob), zap.String("batch", humanize.Comma(int64(opts.BatchSize))))
	start := time.Now()

	rows, err := src.QueryContext(ctx, readParquetSQL(glob))
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", glob, err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	ins, err := newBatchInserter(ctx, tx, constants.DEFAULT_TABLE_NAME, cols, opts.BatchSize)
	if err != nil {
		return nil, err
	}
	defer ins.close()

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		flushed, err := ins.add(ctx, values)
		if err != nil {
			return nil, err
		}
		if flushed {
			log.Debug("progress", zap.String("rows_inserted", humanize.Comma(ins.inserted)))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := ins.flush(ctx); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	res := &LoadResult{Engine: constants.ENGINE_SQLITE, Path: opts.Path, Elapsed: time.Since(start)}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+constants.DEFAULT_TABLE_NAME).Scan(&res.Rows); err != nil {
		return nil, err
	}
	log.Info("load done", zap.Duration("elapsed", res.Elapsed), zap.String("rows", humanize.Comma(res.Rows)))
	return res, nil
}

// LoadDuckDB creates the DuckDB table straight from the parquet parts
func LoadDuckDB(ctx context.Context, opts Options) (*LoadResult, error) {
	glob, err := opts.prepare()
	if err != nil {
		return nil, err
	}
	log := opts.Logger.With(zap.String("engine", constants.ENGINE_DUCKDB))
	log.Info("create db", zap.String("path", opts.Path))

	db, err := sql.Open("duckdb", opts.Path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if err := engine.SetDuckDBThreads(ctx, db, opts.DuckDBThreads); err != nil {
		return nil, err
	}

	log.Info("load start", zap.String("source", glob))
	start := time.Now()
	ctas := fmt.Sprintf("CREATE TABLE %s AS %s", constants.DEFAULT_TABLE_NAME, readParquetSQL(glob))
	if _, err := db.ExecContext(ctx, ctas); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	res := &LoadResult{Engine: constants.ENGINE_DUCKDB, Path: opts.Path, Elapsed: time.Since(start)}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+constants.DEFAULT_TABLE_NAME).Scan(&res.Rows); err != nil {
		return nil, err
	}
	log.Info("load done", zap.Duration("elapsed", res.Elapsed), zap.String("rows", humanize.Comma(res.Rows)))
	return res, nil
}

// Load dispatches on the engine name
func Load(ctx context.Context, engineName string, opts Options) (*LoadResult, error) {
	switch engineName {
	case constants.ENGINE_SQLITE:
		return LoadSQLite(ctx, opts)
	case constants.ENGINE_DUCKDB:
		return LoadDuckDB(ctx, opts)
	default:
		return nil, fmt.Errorf("%w: %q cannot be loaded", engine.ErrUnknownEngine, engineName)
	}
}
