package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// GetConfigDir returns the OS-appropriate config directory.
// Exits if the home directory cannot be determined and no override is set,
// since all downstream callers depend on a valid path.
func GetConfigDir() string {
	// Allow override for testing
	if dir := os.Getenv("AXIOMGUARD_CONFIG_DIR"); dir != "" {
		return dir
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "axiomguard")
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot determine home directory: %v\n", err)
			fmt.Fprintf(os.Stderr, "Set AXIOMGUARD_CONFIG_DIR to override.\n")
			os.Exit(1)
		}
		return filepath.Join(home, ".axiomguard")
	}
}

// GetDataDir returns the data directory (same as config for now).
func GetDataDir() string {
	return GetConfigDir()
}

// GetStorePath returns the default weight store path.
func GetStorePath() string {
	return filepath.Join(GetDataDir(), "axiomguard.db")
}

// EnsureDirectories creates all required directories.
func EnsureDirectories() error {
	dirs := []string{
		GetConfigDir(),
		GetDataDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}
	return nil
}
