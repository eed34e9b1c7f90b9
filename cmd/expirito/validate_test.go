package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"expirito-hq/expirito/pkg/cli"
	"expirito-hq/expirito/pkg/retention"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfig_Valid(t *testing.T) {
	env := newTestEnv(t, "")

	cmd, buf := testCommand()
	require.NoError(t, validateConfig(cmd, nil))

	out := buf.String()
	assert.Contains(t, out, "✓ Configuration valid: "+env.configPath)
	assert.Contains(t, out, "Holding: "+env.hold+" (expire after 90 days)")
	assert.Contains(t, out, env.data+" (move after 5 days, mirror "+retention.MirrorPath(env.hold, env.data)+")")
	assert.NotContains(t, out, "Lock file:")
}

func TestValidateConfig_Verbose(t *testing.T) {
	env := newTestEnv(t, "")
	verbose = true

	cmd, buf := testCommand()
	require.NoError(t, validateConfig(cmd, nil))

	out := buf.String()
	assert.Contains(t, out, "Lock file: "+env.lockFile)
	assert.Contains(t, out, "Log file: none")
	assert.Contains(t, out, "Journal: "+env.journal)
	assert.Contains(t, out, "Metrics: "+env.metrics+" (namespace expirito)")
}

func TestValidateConfig_EnvOverridesApplied(t *testing.T) {
	env := newTestEnv(t, "")
	t.Setenv("EXPIRITO_HOLDING_AGE_LIMIT", "30")

	cmd, buf := testCommand()
	require.NoError(t, validateConfig(cmd, nil))
	assert.Contains(t, buf.String(), "Holding: "+env.hold+" (expire after 30 days)")
}

func TestValidateConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content func(env *testEnv) string
		want    string
	}{
		{
			name: "watched directory missing",
			content: func(env *testEnv) string {
				return "holding_directory: " + env.hold + "\nholding_age_limit: 90\ndirectories:\n  - path: " + filepath.Join(env.root, "nope") + "\n    age_limit: 5\n"
			},
			want: "directories[0].path",
		},
		{
			name: "holding inside watched directory",
			content: func(env *testEnv) string {
				return "holding_directory: " + filepath.Join(env.data, "hold") + "\nholding_age_limit: 90\ndirectories:\n  - path: " + env.data + "\n    age_limit: 5\n"
			},
			want: "holding_directory",
		},
		{
			name: "unknown key",
			content: func(env *testEnv) string {
				return "holding_directory: " + env.hold + "\nholding_age_limit: 90\ndirectories: []\nretention_days: 4\n"
			},
			want: "retention_days",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, "")
			require.NoError(t, os.WriteFile(env.configPath, []byte(tt.content(env)), 0o644))

			err := validateConfig(nil, nil)
			require.Error(t, err)

			var configErr *cli.ConfigError
			require.True(t, errors.As(err, &configErr), "got %T: %v", err, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateConfig_DefaultPathFromEnv(t *testing.T) {
	env := newTestEnv(t, "")
	cfgFile = ""
	t.Setenv("EXPIRITO_CONFIG", env.configPath)

	cmd, buf := testCommand()
	require.NoError(t, validateConfig(cmd, nil))
	assert.Contains(t, buf.String(), env.configPath)
}

func TestValidateConfig_Check(t *testing.T) {
	env := newTestEnv(t, "")
	validateFlags.check = true

	cmd, buf := testCommand()
	require.NoError(t, validateConfig(cmd, nil))

	out := buf.String()
	assert.Contains(t, out, "Preflight: ready")
	assert.Contains(t, out, "✓ watched:"+env.data)
	assert.Contains(t, out, "✓ holding")
	assert.Contains(t, out, "✓ journal")
	assert.Contains(t, out, "✓ metrics")
}

func TestValidateConfig_CheckFails(t *testing.T) {
	env := newTestEnv(t, "")
	validateFlags.check = true
	// Make the holding root an existing file
	require.NoError(t, os.WriteFile(env.hold, []byte("x"), 0o644))

	cmd, buf := testCommand()
	err := validateConfig(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preflight checks failed")
	assert.Contains(t, buf.String(), "✗ holding")
}

func TestNormalizeFlagName(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	assert.Equal(t, pflag.NormalizedName("config"), normalizeFlagName(fs, "config-file"))
	assert.Equal(t, pflag.NormalizedName("config"), normalizeFlagName(fs, "config"))
	assert.Equal(t, pflag.NormalizedName("dry-run"), normalizeFlagName(fs, "dry-run"))
}
