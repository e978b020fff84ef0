package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"git.netflux.io/rob/backdrop/internal/domain"
)

func createAppConfigDir(configDir string) (string, error) {
	path := filepath.Join(configDir, domain.AppName)
	if err := os.MkdirAll(path, 0744); err != nil {
		return "", fmt.Errorf("mkdir all: %w", err)
	}

	return path, nil
}

// appStateDir returns the directory for the default log file, or an empty
// string if it cannot be determined.
func appStateDir() string {
	userHomeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(userHomeDir, "Library", "Caches", domain.AppName)
	case "windows":
		if dir, err := os.UserCacheDir(); err == nil {
			return filepath.Join(dir, domain.AppName)
		}
		return ""
	default: // Unix-like
		return filepath.Join(userHomeDir, ".local", "state", domain.AppName)
	}
}
