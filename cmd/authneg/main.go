// Package main is the entry point for authneg.
package main

import (
	"context"
	"os"
	"path/filepath"

	"charm.land/fang/v2"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "authneg.yaml"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "authneg",
	Short: "HTTP client that negotiates server and proxy authentication",
	Long: `authneg sends HTTP requests and answers 401 and 407 challenges with
Basic, Digest, NTLM or Bearer credentials taken from its configuration file
or the AUTHNEG_* environment variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file path (default: ./"+defaultConfigFile+" or ~/.config/authneg/"+defaultConfigFile+")")
}

func main() {
	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the --config value, else the first default
// location that exists, else "".
func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	home, _ := os.UserHomeDir() //nolint:errcheck // home is optional
	return findConfigIn(".", home)
}

func findConfigIn(dir, home string) string {
	candidates := []string{filepath.Join(dir, defaultConfigFile)}
	if home != "" {
		candidates = append(candidates, filepath.Join(home, ".config", "authneg", defaultConfigFile))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
