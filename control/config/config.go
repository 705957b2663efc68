package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"csb/enginebench/control/constants"

	validator "github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type BenchctlConfig struct {
	Seed      int64  `json:"seed" yaml:"seed" validate:"required,gt=0"`
	NumRows   int    `json:"num_rows" yaml:"num_rows" validate:"required,gt=0"`
	ChunkSize int    `json:"chunk_size" yaml:"chunk_size" validate:"required,gt=0,valid_chunk_size"`
	DataDir   string `json:"data_dir" yaml:"data_dir" validate:"required"`
	// Parquet codec for the generated parts
	Compression string `json:"compression" yaml:"compression" validate:"required,valid_compression"`
	// Database parameters
	SQLitePath    string `json:"sqlite_path" yaml:"sqlite_path" validate:"required,filepath"`
	DuckDBPath    string `json:"duckdb_path" yaml:"duckdb_path" validate:"required,filepath"`
	LoadBatchSize int    `json:"load_batch_size" yaml:"load_batch_size" validate:"required,gt=0"`
	DuckDBThreads int    `json:"duckdb_threads" yaml:"duckdb_threads" validate:"required,gt=0"`
	// Benchmark parameters
	Engines            []string `json:"engines" yaml:"engines" validate:"required,min=1,dive,valid_engine"`
	Warmup             int      `json:"warmup" yaml:"warmup" validate:"gte=0"`
	Repeats            int      `json:"repeats" yaml:"repeats" validate:"required,gt=0"`
	ReadBatchRows      int      `json:"read_batch_rows" yaml:"read_batch_rows" validate:"required,gt=0"`
	FrameBatchRows     int      `json:"frame_batch_rows" yaml:"frame_batch_rows" validate:"required,gt=0"`
	SlowQueryThreshold Duration `json:"slow_query_threshold" yaml:"slow_query_threshold" validate:"gte=0"`
	// Output parameters
	LogDir      string `json:"log_dir" yaml:"log_dir" validate:"required"`
	LogLevel    string `json:"log_level" yaml:"log_level" validate:"required,oneof=debug info warn error"`
	MetricsFile string `json:"metrics_file" yaml:"metrics_file" validate:"required,filepath"`
}

// Custom validation tags
const (
	engineTag      = "valid_engine"
	compressionTag = "valid_compression"
	chunkSizeTag   = "valid_chunk_size"
)

// RegisterCustomValidators registers all custom validators for BenchctlConfig
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation(engineTag, validateEngine); err != nil {
		return fmt.Errorf("failed to register engine validator: %w", err)
	}

	if err := v.RegisterValidation(compressionTag, validateCompression); err != nil {
		return fmt.Errorf("failed to register compression validator: %w", err)
	}

	if err := v.RegisterValidation(chunkSizeTag, validateChunkSize); err != nil {
		return fmt.Errorf("failed to register chunk size validator: %w", err)
	}

	return nil
}

func validateChunkSize(fl validator.FieldLevel) bool {
	return fl.Field().Int() >= int64(constants.MIN_CHUNK_SIZE)
}

// validateEngine ensures the engine name is one of the supported backends
func validateEngine(fl validator.FieldLevel) bool {
	validEngines := map[string]bool{
		constants.ENGINE_SQLITE: true,
		constants.ENGINE_DUCKDB: true,
		constants.ENGINE_FRAME:  true,
	}
	return validEngines[fl.Field().String()]
}

func validateCompression(fl validator.FieldLevel) bool {
	validCodecs := map[string]bool{
		constants.COMPRESSION_SNAPPY: true,
		constants.COMPRESSION_ZSTD:   true,
		constants.COMPRESSION_NONE:   true,
	}
	return validCodecs[fl.Field().String()]
}

func GetDefaultConfig() *BenchctlConfig {
	return &BenchctlConfig{
		Seed:               constants.DEFAULT_SEED,
		NumRows:            constants.DEFAULT_NUM_ROWS,
		ChunkSize:          constants.DEFAULT_CHUNK_SIZE,
		DataDir:            constants.DEFAULT_DATA_DIR,
		Compression:        constants.DEFAULT_COMPRESSION,
		SQLitePath:         constants.DEFAULT_SQLITE_PATH,
		DuckDBPath:         constants.DEFAULT_DUCKDB_PATH,
		LoadBatchSize:      constants.DEFAULT_LOAD_BATCH_SIZE,
		DuckDBThreads:      constants.DEFAULT_DUCKDB_THREADS,
		Engines:            []string{constants.ENGINE_SQLITE, constants.ENGINE_DUCKDB, constants.ENGINE_FRAME},
		Warmup:             constants.DEFAULT_WARMUP,
		Repeats:            constants.DEFAULT_REPEATS,
		ReadBatchRows:      constants.DEFAULT_READ_BATCH_ROWS,
		FrameBatchRows:     constants.DEFAULT_FRAME_BATCH_ROWS,
		SlowQueryThreshold: Duration(30 * time.Second),
		LogDir:             constants.DEFAULT_LOG_DIR,
		LogLevel:           constants.DEFAULT_LOG_LEVEL,
		MetricsFile:        constants.DEFAULT_METRICS_FILE,
	}
}

func ValidateConfig(config *BenchctlConfig) error {
	v := validator.New()
	if err := RegisterCustomValidators(v); err != nil {
		return fmt.Errorf("failed to register custom validators: %w", err)
	}

	return v.Struct(config)
}

// ReadConfig loads a config file. Files ending in .yaml or .yml are decoded as
// YAML, everything else as JSON.
func ReadConfig(path string) (*BenchctlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	benchctlConfig := &BenchctlConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, benchctlConfig)
	default:
		err = json.Unmarshal(data, benchctlConfig)
	}
	if err != nil {
		return nil, err
	}
	err = ValidateConfig(benchctlConfig)
	if err != nil {
		return nil, err
	}
	return benchctlConfig, nil
}

func (cfg *BenchctlConfig) WriteConfig(path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	err = os.WriteFile(path, data, 0644)
	if err != nil {
		return err
	}
	return nil
}

// LogPath returns the path of a log file inside the configured log directory.
func (cfg *BenchctlConfig) LogPath(name string) string {
	return filepath.Join(cfg.LogDir, name)
}
