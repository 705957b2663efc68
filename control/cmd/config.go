package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	benchCfg "csb/enginebench/control/config"

	"github.com/spf13/cobra"
)

var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage benchctl configuration",
	Long:  "View and modify benchctl configuration settings",
	// an unreadable config must not block init, reset or load-file
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			fmt.Println("Ignoring current config: ", err)
		}
		return nil
	},
}

var durationType = reflect.TypeOf(benchCfg.Duration(0))

// lookupField finds a config field by its json name (seed, sqlite_path, ...)
func lookupField(cfg *benchCfg.BenchctlConfig, name string) (reflect.Value, reflect.StructField, error) {
	configVal := reflect.ValueOf(cfg).Elem()
	configType := configVal.Type()
	for i := 0; i < configType.NumField(); i++ {
		field := configType.Field(i)
		if jsonName(field) == name {
			return configVal.Field(i), field, nil
		}
	}
	return reflect.Value{}, reflect.StructField{}, fmt.Errorf("field %s not found", name)
}

func jsonName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" {
		return field.Name
	}
	return name
}

// setField parses value according to the kind of fieldVal
func setField(fieldVal reflect.Value, name, value string) error {
	// Handle Duration fields specially
	if fieldVal.Type() == durationType {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %w", name, err)
		}
		fieldVal.Set(reflect.ValueOf(benchCfg.Duration(duration)))
		return nil
	}

	switch fieldVal.Kind() {
	case reflect.Int, reflect.Int64:
		var v int64
		_, err := fmt.Sscanf(value, "%d", &v)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", name, err)
		}
		fieldVal.SetInt(v)
	case reflect.Float64:
		var v float64
		_, err := fmt.Sscanf(value, "%f", &v)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", name, err)
		}
		fieldVal.SetFloat(v)
	case reflect.String:
		fieldVal.SetString(value)
	case reflect.Slice:
		if fieldVal.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type for field %s", name)
		}
		values := strings.Split(value, ",")
		slice := reflect.MakeSlice(fieldVal.Type(), len(values), len(values))
		for i, v := range values {
			slice.Index(i).SetString(strings.TrimSpace(v))
		}
		fieldVal.Set(slice)
	default:
		return fmt.Errorf("unsupported type for field %s", name)
	}
	return nil
}

// formatField renders a field the way `config set` accepts it
func formatField(fieldVal reflect.Value) string {
	if fieldVal.Kind() == reflect.Slice {
		sliceVals := make([]string, fieldVal.Len())
		for j := 0; j < fieldVal.Len(); j++ {
			sliceVals[j] = fmt.Sprint(fieldVal.Index(j).Interface())
		}
		if len(sliceVals) == 0 {
			return "[]"
		}
		return strings.Join(sliceVals, ",")
	}
	return fmt.Sprint(fieldVal.Interface())
}

var configSetCmd = &cobra.Command{
	Use:   "set field=value",
	Short: "Set a configuration field",
	Long:  "Set the value of a specific configuration field (e.g., config set seed=12345, config set engines=sqlite,duckdb)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GConfig.config()
		if err != nil {
			return err
		}
		field, value, ok := strings.Cut(args[0], "=")
		if !ok {
			return fmt.Errorf("invalid format. Use: field=value")
		}

		// work on a copy so a rejected value leaves the loaded config intact
		updated := *cfg
		updated.Engines = append([]string(nil), cfg.Engines...)
		fieldVal, _, err := lookupField(&updated, field)
		if err != nil {
			return err
		}
		if err := setField(fieldVal, field, value); err != nil {
			return err
		}

		// Validate the new configuration
		if err := benchCfg.ValidateConfig(&updated); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		GConfig.ctlConfig = &updated
		GConfig.UpdateRg(updated.Seed)

		// Save the updated configuration
		return updated.WriteConfig(GConfig.GetConfigFilePath())
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get field",
	Short: "Get a configuration field value",
	Long:  "Get the current value of a specific configuration field",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GConfig.config()
		if err != nil {
			return err
		}
		fieldVal, _, err := lookupField(cfg, args[0])
		if err != nil {
			return err
		}
		fmt.Println(formatField(fieldVal))
		return nil
	},
}

var configLoadFileCmd = &cobra.Command{
	Use:   "load-file path/to/config.{json,yaml}",
	Short: "Load configuration from file",
	Long:  "Load and replace current configuration with contents from specified JSON or YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		newConfig, err := benchCfg.ReadConfig(args[0])
		if err != nil {
			return fmt.Errorf("failed to load config file: %w", err)
		}

		// Update global config
		GConfig.ctlConfig = newConfig
		GConfig.UpdateRg(newConfig.Seed)

		err = initConfigDir()
		if err != nil {
			return err
		}

		// Save the new configuration
		return GConfig.ctlConfig.WriteConfig(GConfig.GetConfigFilePath())
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "View current configuration",
	Long:  "View the current configuration in JSON format",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GConfig.config()
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Println(string(data))
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration fields",
	Long:  "List all available configuration fields with their types and current values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GConfig.config()
		if err != nil {
			return err
		}
		configVal := reflect.ValueOf(cfg).Elem()
		configType := configVal.Type()

		fmt.Printf("%-22s %-15s %-10s %s\n", "FIELD", "TYPE", "REQUIRED", "CURRENT VALUE")
		fmt.Println(strings.Repeat("-", 80))

		for i := 0; i < configVal.NumField(); i++ {
			fieldType := configType.Field(i)
			required := strings.Contains(fieldType.Tag.Get("validate"), "required")
			fmt.Printf("%-22s %-15s %-10v %s\n",
				jsonName(fieldType),
				fieldType.Type.String(),
				required,
				formatField(configVal.Field(i)))
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration",
	Long:  "Initialize the configuration with default values and save it in JSON format in the config directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(GConfig.GetConfigFilePath()); err == nil {
			fmt.Println("Config already exists at ", GConfig.GetConfigFilePath(), ", use 'benchctl config reset' to overwrite it")
			return nil
		}
		err := initConfigDir()
		if err != nil {
			return err
		}
		return initConfigFile()
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset to default configuration",
	Long:  "Reset the configuration with default values and save it in JSON format in the config directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		err := initConfigDir()
		if err != nil {
			return err
		}
		return initConfigFile()
	},
}

func init() {
	ConfigCmd.AddCommand(configInitCmd)
	ConfigCmd.AddCommand(configResetCmd)
	ConfigCmd.AddCommand(configSetCmd)
	ConfigCmd.AddCommand(configGetCmd)
	ConfigCmd.AddCommand(configLoadFileCmd)
	ConfigCmd.AddCommand(configViewCmd)
	ConfigCmd.AddCommand(configListCmd)
}

func initConfigDir() error {
	if err := os.MkdirAll(GConfig.ctlConfigPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

func initConfigFile() error {
	configFilePath := GConfig.GetConfigFilePath()
	defaultConfig := benchCfg.GetDefaultConfig()

	GConfig.UpdateRg(defaultConfig.Seed)
	GConfig.ctlConfig = defaultConfig
	err := defaultConfig.WriteConfig(configFilePath)
	if err != nil {
		return fmt.Errorf("failed to write default config file: %w", err)
	}
	fmt.Println("Default configuration initialized and saved in ", configFilePath)
	return nil
}
