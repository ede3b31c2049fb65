package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/xvierd/branchbar/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the configuration after defaults and BRANCHBAR_* environment overrides.
Use "branchbar config set <key> <value>" to change the file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOutput {
			jsonData, err := json.MarshalIndent(configValues(app.config), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
			return nil
		}
		printConfig(cmd.OutOrStdout(), app.config)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:       "set <key> <value>",
	Short:     "Change a configuration value",
	Args:      cobra.ExactArgs(2),
	ValidArgs: config.Keys(),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := effectiveConfigPath()
		if err != nil {
			return err
		}
		if err := config.SetValue(path, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved: %s = %s\n", args[0], args[1])
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := effectiveConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
}

func effectiveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

// configValues flattens cfg into its file keys.
func configValues(cfg *config.Config) map[string]interface{} {
	return map[string]interface{}{
		"refresh.interval":               cfg.Refresh.Interval.String(),
		"refresh.command_timeout":        cfg.Refresh.CommandTimeout.String(),
		"display.max_width":              cfg.Display.MaxWidth,
		"git.binary":                     cfg.Git.Binary,
		"watch.enabled":                  cfg.Watch.Enabled,
		"notifications.enabled":          cfg.Notifications.Enabled,
		"notifications.on_branch_change": cfg.Notifications.OnBranchChange,
		"logging.level":                  cfg.Logging.Level,
		"logging.max_size_mb":            cfg.Logging.MaxSizeMB,
		"storage.data_dir":               cfg.Storage.DataDir,
	}
}

func printConfig(w io.Writer, cfg *config.Config) {
	values := configValues(cfg)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Current configuration:")
	fmt.Fprintln(w)
	for _, key := range config.Keys() {
		fmt.Fprintf(w, "    %-32s %v\n", key, values[key])
	}
	fmt.Fprintln(w)
}
