package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"expirito-hq/expirito/pkg/cli"
	"expirito-hq/expirito/pkg/config"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "expirito",
	Short: "Expirito - configuration-driven file retention",
	Long: `Expirito keeps watched directories tidy by age.

Every run has two phases per watched directory:
  - move: children older than the directory's age limit are moved into the
    holding directory, under a path that mirrors their original location
  - expire: entries that have sat in holding for longer than the holding
    age limit are deleted

A directory is only moved once everything inside it is old enough.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	ctx := cli.SetupSignalHandler()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: $EXPIRITO_CONFIG or ~/.config/expirito/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")

	// --config-file is accepted for compatibility with earlier releases
	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)
}

func normalizeFlagName(f *pflag.FlagSet, name string) pflag.NormalizedName {
	if name == "config-file" {
		name = "config"
	}
	return pflag.NormalizedName(name)
}

// loadConfig resolves the configuration path and loads the file with
// environment overrides applied. It returns the resolved path alongside the
// configuration.
func loadConfig() (*config.Config, string, error) {
	path, err := config.ResolveConfigPath(cfgFile)
	if err != nil {
		return nil, "", cli.NewConfigError("", fmt.Sprintf("cannot resolve config path: %v", err))
	}

	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, path, cli.NewConfigError("", fmt.Sprintf("config file not found: %s", path))
		}
		return nil, path, cli.NewConfigError("", err.Error())
	}

	return cfg, path, nil
}

// commandOutput returns where a command writes its results.
func commandOutput(cmd *cobra.Command) io.Writer {
	if cmd == nil {
		return os.Stdout
	}
	return cmd.OutOrStdout()
}
