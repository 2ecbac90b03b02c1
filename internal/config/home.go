package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// HomeEnv overrides the benchmaker home directory.
const HomeEnv = "BENCHMAKER_HOME"

const (
	dbFileName     = "benchmaker.sqlite"
	configFileName = "config.yaml"
)

// GetBenchmakerHome returns the benchmaker home directory
// Priority order:
//  1. BENCHMAKER_HOME environment variable (if set)
//  2. ~/.benchmaker
//
// The directory is created if it doesn't exist
func GetBenchmakerHome() (string, error) {
	home := os.Getenv(HomeEnv)
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve user home directory: %w", err)
		}
		home = filepath.Join(userHome, ".benchmaker")
	}

	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create benchmaker home directory: %w", err)
	}
	return home, nil
}

// GetDBPath returns the default database path:
// $BENCHMAKER_HOME/benchmaker.sqlite
func GetDBPath() (string, error) {
	home, err := GetBenchmakerHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, dbFileName), nil
}

// GetConfigPath returns $BENCHMAKER_HOME/config.yaml
func GetConfigPath() (string, error) {
	home, err := GetBenchmakerHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(userHome, strings.TrimPrefix(path, "~"))
}
