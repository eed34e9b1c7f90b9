// Expirito moves aged files out of watched directories into a holding area
// and deletes them from holding once they have sat there long enough.
//
// Each invocation performs one retention run and exits; schedule it with
// cron or a systemd timer.
//
// Usage:
//
//	# Run with the default configuration (~/.config/expirito/config.yaml)
//	expirito run
//
//	# Show what would happen without touching the filesystem
//	expirito run --dry-run
//
//	# Run with a custom configuration file
//	expirito run --config /etc/expirito/config.yaml
//
//	# Check a configuration file
//	expirito validate --config /etc/expirito/config.yaml
//
//	# Review journaled actions of the last run
//	expirito journal list --run <run-id>
package main

func main() {
	Execute()
}
