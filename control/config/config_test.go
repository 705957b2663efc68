package config

import (
	"os"
	"testing"
	"time"

	"csb/enginebench/control/constants"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		config *BenchctlConfig
		isErr  bool
	}{
		{
			name:   "valid default config",
			config: GetDefaultConfig(),
			isErr:  false,
		},
		{
			name: "valid config with a subset of engines and no warmup",
			config: &BenchctlConfig{
				Seed:               constants.DEFAULT_SEED,
				NumRows:            100_000,
				ChunkSize:          10_000,
				DataDir:            "data/small",
				Compression:        constants.COMPRESSION_ZSTD,
				SQLitePath:         "db/small_sqlite.db",
				DuckDBPath:         "db/small_duckdb.db",
				LoadBatchSize:      5_000,
				DuckDBThreads:      2,
				Engines:            []string{constants.ENGINE_DUCKDB, constants.ENGINE_FRAME},
				Warmup:             0,
				Repeats:            3,
				ReadBatchRows:      1_000,
				FrameBatchRows:     2_048,
				SlowQueryThreshold: Duration(5 * time.Second),
				LogDir:             "logs/small",
				LogLevel:           "debug",
				MetricsFile:        "small_metrics.csv",
			},
			isErr: false,
		},
		{
			name: "invalid seed (zero)",
			config: func() *BenchctlConfig {
				cfg := GetDefaultConfig()
				cfg.Seed = 0
				return cfg
			}(),
			isErr: true,
		},
		{
			name: "frame batch rows unset",
			config: func() *BenchctlConfig {
				cfg := GetDefaultConfig()
				cfg.FrameBatchRows = 0
				return cfg
			}(),
			isErr: true,
		},
		{
			name: "invalid engines",
			config: func() *BenchctlConfig {
				cfg := GetDefaultConfig()
				cfg.Engines = []string{constants.ENGINE_SQLITE, "polars"}
				return cfg
			}(),
			isErr: true,
		},
		{
			name: "no engines",
			config: func() *BenchctlConfig {
				cfg := GetDefaultConfig()
				cfg.Engines = []string{}
				return cfg
			}(),
			isErr: true,
		},
		{
			name: "invalid repeat numbers",
			config: func() *BenchctlConfig {
				cfg := GetDefaultConfig()
				cfg.Warmup = -1 // should be >= 0
				cfg.Repeats = 0 // should be > 0
				return cfg
			}(),
			isErr: true,
		},
		{
			name: "invalid compression",
			config: func() *BenchctlConfig {
				cfg := GetDefaultConfig()
				cfg.Compression = "lz4"
				return cfg
			}(),
			isErr: true,
		},
		{
			name: "chunk size below minimum",
			config: func() *BenchctlConfig {
				cfg := GetDefaultConfig()
				cfg.ChunkSize = constants.MIN_CHUNK_SIZE - 1
				return cfg
			}(),
			isErr: true,
		},
		{
			name: "invalid log level",
			config: func() *BenchctlConfig {
				cfg := GetDefaultConfig()
				cfg.LogLevel = "trace"
				return cfg
			}(),
			isErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(tt.config)
			if (err != nil) != tt.isErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.isErr)
			}
		})
	}
}

func TestReadConfig(t *testing.T) {
	// Test reading valid config
	validConfig := GetDefaultConfig()
	validConfig.Repeats = 7

	tempFile := t.TempDir() + "/valid_config.json"
	err := validConfig.WriteConfig(tempFile)
	if err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := ReadConfig(tempFile)
	if err != nil {
		t.Errorf("ReadConfig() error = %v", err)
	} else if cfg.Repeats != 7 || cfg.SlowQueryThreshold != validConfig.SlowQueryThreshold {
		t.Errorf("ReadConfig() round trip mismatch: got repeats=%d threshold=%v", cfg.Repeats, cfg.SlowQueryThreshold)
	}

	// Test reading non-existent file
	_, err = ReadConfig("non_existent_file.json")
	if err == nil {
		t.Error("ReadConfig() expected error for non-existent file")
	}

	// Test reading invalid JSON
	invalidJSONFile := t.TempDir() + "/invalid.json"
	err = os.WriteFile(invalidJSONFile, []byte("{invalid json}"), 0644)
	if err != nil {
		t.Fatalf("Failed to write invalid JSON file: %v", err)
	}

	_, err = ReadConfig(invalidJSONFile)
	if err == nil {
		t.Error("ReadConfig() expected error for invalid JSON")
	}
}

func TestReadConfigYAML(t *testing.T) {
	content := `seed: 7
num_rows: 20000
chunk_size: 5000
data_dir: data/yaml
compression: none
sqlite_path: db/y_sqlite.db
duckdb_path: db/y_duckdb.db
load_batch_size: 1000
duckdb_threads: 1
engines: [sqlite, frame]
warmup: 0
repeats: 3
read_batch_rows: 500
frame_batch_rows: 4096
slow_query_threshold: 1m30s
log_dir: logs/yaml
log_level: warn
metrics_file: y_metrics.csv
`
	yamlFile := t.TempDir() + "/config.yaml"
	if err := os.WriteFile(yamlFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write YAML file: %v", err)
	}

	cfg, err := ReadConfig(yamlFile)
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}
	if cfg.Seed != 7 || cfg.ChunkSize != 5000 || len(cfg.Engines) != 2 || cfg.FrameBatchRows != 4096 {
		t.Errorf("unexpected YAML config: %+v", cfg)
	}
	if time.Duration(cfg.SlowQueryThreshold) != 90*time.Second {
		t.Errorf("slow_query_threshold = %v, want 1m30s", cfg.SlowQueryThreshold)
	}

	// An invalid duration string must fail
	if err := os.WriteFile(yamlFile, []byte("slow_query_threshold: soon\n"), 0644); err != nil {
		t.Fatalf("Failed to write YAML file: %v", err)
	}
	if _, err := ReadConfig(yamlFile); err == nil {
		t.Error("ReadConfig() expected error for invalid duration")
	}
}
