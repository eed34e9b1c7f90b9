package main

import (
	"fmt"
	"io"

	"expirito-hq/expirito/pkg/cli"
	"expirito-hq/expirito/pkg/config"
	"expirito-hq/expirito/pkg/retention"
	"expirito-hq/expirito/pkg/telemetry/health"

	"github.com/spf13/cobra"
)

var validateFlags struct {
	check bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load and validate the configuration file without running retention.

The file is checked against the configuration schema, then every watched
directory is checked to exist and to stay clear of the holding directory
and of the other watched directories. Environment overrides are applied
as they would be for a run.

With --check, preflight checks also probe the filesystem: watched
directories must be listable, the holding, lock, journal and metrics
locations writable. A watched directory on a different filesystem than
holding is reported as a warning, since moves out of it copy data.

Examples:
  # Validate the default config
  expirito validate

  # Validate a specific file
  expirito validate --config /etc/expirito/config.yaml

  # Also check permissions and filesystems
  expirito validate --check`,
	Args: cobra.NoArgs,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateFlags.check, "check", false, "run filesystem preflight checks")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	out := commandOutput(cmd)
	printConfigSummary(out, cfg, path)

	if !validateFlags.check {
		return nil
	}

	report := health.Preflight(cfg).Run(commandContext(cmd))
	printPreflight(out, report)
	if !report.Ready() {
		return cli.NewCommandError("validate", fmt.Errorf("preflight checks failed"))
	}
	return nil
}

func printPreflight(w io.Writer, report health.Report) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Preflight: %s\n", report.Status)
	for _, c := range report.Checks {
		mark := "✓"
		switch c.Status {
		case health.StatusWarning:
			mark = "!"
		case health.StatusFailed:
			mark = "✗"
		}
		if c.Message == "" {
			fmt.Fprintf(w, "  %s %s\n", mark, c.Name)
		} else {
			fmt.Fprintf(w, "  %s %s: %s\n", mark, c.Name, c.Message)
		}
	}
}

func printConfigSummary(w io.Writer, cfg *config.Config, path string) {
	fmt.Fprintf(w, "✓ Configuration valid: %s\n", path)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Holding: %s (expire after %d days)\n", cfg.HoldingDirectory, cfg.HoldingAgeLimit)

	if len(cfg.Directories) == 0 {
		fmt.Fprintln(w, "Watched directories: none")
	} else {
		fmt.Fprintln(w, "Watched directories:")
		for _, d := range cfg.Directories {
			fmt.Fprintf(w, "  %s (move after %d days, mirror %s)\n",
				d.Path, d.AgeLimit, retention.MirrorPath(cfg.HoldingDirectory, d.Path))
		}
	}

	if verbose {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Lock file: %s\n", orNone(cfg.LockFile))
		fmt.Fprintf(w, "Log file: %s\n", orNone(cfg.LogFile))
		fmt.Fprintf(w, "Logging: level=%s format=%s\n", cfg.Logging.Level, cfg.Logging.Format)
		if cfg.Journal.Enabled {
			fmt.Fprintf(w, "Journal: %s\n", cfg.Journal.Path)
		} else {
			fmt.Fprintln(w, "Journal: disabled")
		}
		if cfg.Metrics.Enabled {
			fmt.Fprintf(w, "Metrics: %s (namespace %s)\n", cfg.Metrics.TextfilePath, cfg.Metrics.Namespace)
		} else {
			fmt.Fprintln(w, "Metrics: disabled")
		}
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
