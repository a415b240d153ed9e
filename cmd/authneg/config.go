package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omarluq/authneg/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the configuration file without sending requests.
Checks syntax, cache settings, scheme names and credential entries.`,
	RunE: runConfigValidate,
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

var errNoConfig = errors.New("no config file found")

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	path := resolveConfigPath()
	if path == "" {
		fmt.Fprintf(out, "✗ Config validation failed: %s\n", errNoConfig)
		return errNoConfig
	}

	cfg, err := config.Load(path)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(out, "✗ Config validation failed: %s\n", err)
		return err
	}

	fmt.Fprintf(out, "✓ %s is valid (%d credential entries)\n", path, len(cfg.Credentials))
	return nil
}
