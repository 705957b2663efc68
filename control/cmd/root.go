package cmd

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path"

	"csb/enginebench/client/logger"
	benchCfg "csb/enginebench/control/config"
	constants "csb/enginebench/control/constants"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// GlobalConfig is the state shared by every command
type GlobalConfig struct {
	ctlConfig     *benchCfg.BenchctlConfig
	ctlConfigPath string
	rg            *rand.Rand
	log           *zap.Logger
}

var GConfig = &GlobalConfig{ctlConfigPath: constants.DEFAULT_CONFIG_DIR, log: zap.NewNop()}

func (g *GlobalConfig) GetConfigFilePath() string {
	return path.Join(g.ctlConfigPath, constants.DEFAULT_CONFIG_FILE)
}

// UpdateRg reseeds the generator random source
func (g *GlobalConfig) UpdateRg(seed int64) {
	g.rg = rand.New(rand.NewSource(seed))
}

// config returns the loaded configuration or tells the user how to create one
func (g *GlobalConfig) config() (*benchCfg.BenchctlConfig, error) {
	if g.ctlConfig == nil {
		return nil, errors.New("config not found, please run 'benchctl config init' first")
	}
	return g.ctlConfig, nil
}

var rootCmd = &cobra.Command{
	Use:   "benchctl",
	Short: "Benchctl is a CLI tool for benchmarking analytical queries on embedded engines",
	Long:  "A CLI tool that generates a synthetic HR dataset, loads it into SQLite and DuckDB, and benchmarks a fixed query set on SQLite, DuckDB and a lazy dataframe engine",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			cmd.Help()
			os.Exit(0)
		}
	},
}

// loadConfig reads the config file when present. Commands that need one fail
// later through GlobalConfig.config.
func loadConfig() error {
	cfg, err := benchCfg.ReadConfig(GConfig.GetConfigFilePath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", GConfig.GetConfigFilePath(), err)
	}
	GConfig.ctlConfig = cfg
	GConfig.UpdateRg(cfg.Seed)

	zl, err := logger.NewDiagnostic(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	GConfig.log = zl
	return nil
}

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.PersistentFlags().StringVar(&GConfig.ctlConfigPath, "config-dir", constants.DEFAULT_CONFIG_DIR, "directory holding config.json")
	rootCmd.AddCommand(ConfigCmd)
	rootCmd.AddCommand(GenerateCmd)
	rootCmd.AddCommand(LoadCmd)
	rootCmd.AddCommand(RunCmd)
	rootCmd.AddCommand(ReadCmd)
	rootCmd.AddCommand(VerifyCmd)
}

func Execute() error {
	defer func() { _ = GConfig.log.Sync() }()
	return rootCmd.Execute()
}
