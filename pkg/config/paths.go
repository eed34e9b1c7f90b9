package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Application directory name under the platform config and data roots.
const appDirName = "expirito"

// EnvConfigPath overrides the default configuration file location.
const EnvConfigPath = "EXPIRITO_CONFIG"

// DefaultConfigFileName is the configuration file looked up in the config
// directory.
const DefaultConfigFileName = "config.yaml"

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/expirito (fallback ~/.config/expirito)
// macOS:   ~/Library/Application Support/expirito
// Windows: %APPDATA%/expirito
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appDirName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", appDirName), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appDirName), nil
	}
}

// DefaultDataDir returns the platform-specific data directory, home of the
// journal and the lock file.
//
// Linux:   $XDG_DATA_HOME/expirito (fallback ~/.local/share/expirito)
// macOS:   ~/Library/Application Support/expirito
// Windows: %APPDATA%/expirito
func DefaultDataDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, appDirName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", appDirName), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appDirName), nil
	}
}

// ResolveConfigPath returns the configuration file to load following the
// precedence chain: flag > EXPIRITO_CONFIG env > DefaultConfigDir()/config.yaml.
func ResolveConfigPath(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return filepath.Abs(env)
	}
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFileName), nil
}
