package loader

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"csb/enginebench/client/engine"
	"csb/enginebench/control/constants"
	generator "csb/enginebench/data-generator"
	"csb/enginebench/data-generator/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dataset(t *testing.T, rows int) string {
	t.Helper()
	dir := t.TempDir()
	g := generator.NewGenerator(rand.New(rand.NewSource(5)))
	_, err := g.GenerateDataset(context.Background(), generator.Options{
		Dir: dir, NumRows: rows, ChunkSize: 700, Compression: constants.COMPRESSION_ZSTD,
	})
	require.NoError(t, err)
	return dir
}

func columnNames(t *testing.T, driver, path, query string) []string {
	t.Helper()
	db, err := sql.Open(driver, path)
	require.NoError(t, err)
	defer db.Close()
	rows, err := db.Query(query)
	require.NoError(t, err)
	defer rows.Close()
	cols, err := rows.Columns()
	require.NoError(t, err)
	return cols
}

func TestLoadPreservesRowsAndColumns(t *testing.T) {
	ctx := context.Background()
	data := dataset(t, 2_000)
	dbDir := filepath.Join(t.TempDir(), "db")

	testCases := []struct {
		engine string
		driver string
	}{
		{constants.ENGINE_SQLITE, "sqlite3"},
		{constants.ENGINE_DUCKDB, "duckdb"},
	}
	for _, tc := range testCases {
		t.Run(tc.engine, func(t *testing.T) {
			path := filepath.Join(dbDir, tc.engine+".db")
			res, err := Load(ctx, tc.engine, Options{DataDir: data, Path: path, BatchSize: 300, DuckDBThreads: 1})
			require.NoError(t, err)
			assert.Equal(t, tc.engine, res.Engine)
			assert.Equal(t, int64(2_000), res.Rows)
			assert.Equal(t, path, res.Path)

			cols := columnNames(t, tc.driver, path, "SELECT * FROM "+constants.DEFAULT_TABLE_NAME+" LIMIT 1")
			assert.Equal(t, schema.ColumnNames(), cols)
		})
	}
}

func TestReloadReplacesDatabase(t *testing.T) {
	ctx := context.Background()
	data := dataset(t, 900)
	dir := t.TempDir()

	for _, name := range []string{constants.ENGINE_SQLITE, constants.ENGINE_DUCKDB} {
		path := filepath.Join(dir, name+".db")
		for i := 0; i < 2; i++ {
			res, err := Load(ctx, name, Options{DataDir: data, Path: path})
			require.NoError(t, err)
			assert.Equal(t, int64(900), res.Rows, "%s load #%d", name, i+1)
		}
	}
}

func TestRemoveDatabaseDeletesJournals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sqlite.db")
	for _, p := range []string{path, path + "-wal", path + "-shm", path + ".wal"} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
	}
	require.NoError(t, removeDatabase(path))
	for _, p := range []string{path, path + "-wal", path + "-shm", path + ".wal"} {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), p)
	}
	// nothing left to remove is not an error
	assert.NoError(t, removeDatabase(path))
}

func TestLoadWithoutDataset(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sqlite.db")
	require.NoError(t, os.WriteFile(path, []byte("keep"), 0644))

	_, err := LoadSQLite(ctx, Options{DataDir: t.TempDir(), Path: path})
	assert.ErrorIs(t, err, engine.ErrMissingDataset)
	_, err = LoadDuckDB(ctx, Options{DataDir: filepath.Join(t.TempDir(), "missing"), Path: path})
	assert.ErrorIs(t, err, engine.ErrMissingDataset)

	// the precondition is checked before anything is deleted
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(content))

	_, err = Load(ctx, constants.ENGINE_FRAME, Options{})
	assert.ErrorIs(t, err, engine.ErrUnknownEngine)
}

func TestRowsPerInsert(t *testing.T) {
	testCases := []struct {
		name      string
		batchSize int
		columns   int
		want      int
	}{
		{"Below limit", 300, 49, 300},
		{"Capped by parameter limit", 10_000, 49, sqliteMaxVariables / 49},
		{"Single row", 1, 49, 1},
		{"Wider than limit", 10, sqliteMaxVariables + 1, 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := rowsPerInsert(tc.batchSize, tc.columns)
			assert.Equal(t, tc.want, got)
			assert.LessOrEqual(t, got*min(tc.columns, sqliteMaxVariables), sqliteMaxVariables)
		})
	}
}

func TestInsertSQL(t *testing.T) {
	assert.Equal(t, `INSERT INTO t ("a","b") VALUES (?,?),(?,?),(?,?)`, insertSQL("t", []string{`"a"`, `"b"`}, 3))
	assert.Equal(t, `INSERT INTO t ("a") VALUES (?)`, insertSQL("t", []string{`"a"`}, 1))
}

func TestSQLiteBatchSizes(t *testing.T) {
	ctx := context.Background()
	data := dataset(t, 1_500)
	dir := t.TempDir()

	fingerprint := func(path string) string {
		db, err := sql.Open("sqlite3", path)
		require.NoError(t, err)
		defer db.Close()
		var n, days int64
		var salary float64
		var last string
		require.NoError(t, db.QueryRow(`SELECT COUNT(*), SUM(days_worked), SUM(salary_usd) FROM `+constants.DEFAULT_TABLE_NAME).
			Scan(&n, &days, &salary))
		require.NoError(t, db.QueryRow(`SELECT employee_id FROM `+constants.DEFAULT_TABLE_NAME+` ORDER BY rowid DESC LIMIT 1`).
			Scan(&last))
		return fmt.Sprintf("%d/%d/%.4f/%s", n, days, salary, last)
	}

	// 1_500 rows leave a partial final batch for every size but 1
	var want string
	for _, size := range []int{1, 7, 1_000, 1_000_000} {
		path := filepath.Join(dir, fmt.Sprintf("sqlite-%d.db", size))
		res, err := LoadSQLite(ctx, Options{DataDir: data, Path: path, BatchSize: size, DuckDBThreads: 1})
		require.NoError(t, err, "batch size %d", size)
		assert.Equal(t, int64(1_500), res.Rows, "batch size %d", size)

		got := fingerprint(path)
		if want == "" {
			want = got
			continue
		}
		assert.Equal(t, want, got, "batch size %d", size)
	}
}
