package constants

const (
	// config
	DEFAULT_CONFIG_DIR        = ".benchctl"
	DEFAULT_CONFIG_FILE       = "config.json"
	DEFAULT_SEED        int64 = 42
	DEFAULT_NUM_ROWS    int   = 10_000_000 // 10 million employee-month rows
	DEFAULT_CHUNK_SIZE  int   = 500_000
	MIN_CHUNK_SIZE      int   = 1_000

	// dataset
	DEFAULT_DATA_DIR     = "data/data_10m"
	PART_FILE_PREFIX     = "part_"
	PART_FILE_EXT        = ".parquet"
	PART_FILE_GLOB       = PART_FILE_PREFIX + "*" + PART_FILE_EXT
	DEFAULT_COMPRESSION  = COMPRESSION_SNAPPY
	COMPRESSION_SNAPPY   = "snappy"
	COMPRESSION_ZSTD     = "zstd"
	COMPRESSION_NONE     = "none"
	DEFAULT_REFERENCE_YR = 2025 // age = DEFAULT_REFERENCE_YR - birth_year

	// databases
	DEFAULT_SQLITE_PATH     = "db/sqlite.db"
	DEFAULT_DUCKDB_PATH     = "db/duckdb.db"
	DEFAULT_TABLE_NAME      = "data"
	DEFAULT_LOAD_BATCH_SIZE = 500
	DEFAULT_DUCKDB_THREADS  = 4
	SQLITE_CACHE_SIZE_KIB   = -200_000 // negative means KiB for PRAGMA cache_size

	// Engines that can be benchmarked
	ENGINE_SQLITE = "sqlite" // row store, SQL
	ENGINE_DUCKDB = "duckdb" // column store, SQL
	ENGINE_FRAME  = "frame"  // column store, lazy dataframe over the parquet parts

	// parquet rows decoded per record batch by the frame engine
	DEFAULT_FRAME_BATCH_ROWS = 64 * 1024

	// benchmark
	DEFAULT_WARMUP          = 1
	DEFAULT_REPEATS         = 5
	DEFAULT_READ_BATCH_ROWS = 50_000
	DEFAULT_LOG_DIR         = "logs"
	DEFAULT_BENCH_LOG_FILE  = "benchmark.log"
	DEFAULT_READ_LOG_FILE   = "read_benchmark.log"
	DEFAULT_VERIFY_LOG_FILE = "verify.log"
	DEFAULT_LOG_LEVEL       = "info"

	// metrics
	DEFAULT_METRICS_FILE       = "metrics.csv"
	DEFAULT_METRICS_BATCH_SIZE = 100

	// verify
	DEFAULT_FLOAT_TOLERANCE = 1e-6
)
