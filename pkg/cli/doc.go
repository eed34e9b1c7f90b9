/*
Package cli provides command-line interface utilities for expirito.

The cli package includes output formatters, typed command errors, and signal
handling used by the expirito command.

Output Formatting:

Command results can be printed as text or JSON:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, summary); err != nil {
		return err
	}

The text formatter prints values with %v, so result types implement
fmt.Stringer to control their text rendering.

Errors:

ConfigError, LockError and CommandError let the caller tell a bad
configuration from a concurrent run and from a failure inside a command.

Signal Handling:

A retention run stops between entries on SIGINT/SIGTERM:

	ctx := cli.SetupSignalHandler()
	actions, err := engine.RunAll(ctx, cfg, now, dryRun)
*/
package cli
