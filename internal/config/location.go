package config

import (
	"os"
	"path/filepath"
)

// EnvConfigPath names the environment variable overriding the config path.
const EnvConfigPath = "RTBRIDGE_CONFIG"

// GetConfigPath returns the configuration file path using kubectl-style behavior.
// It first checks the RTBRIDGE_CONFIG environment variable, then falls back
// to the default location (~/.runtime-bridge/config).
func GetConfigPath() (string, error) {
	if configPath := os.Getenv(EnvConfigPath); configPath != "" {
		return configPath, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".runtime-bridge", "config"), nil
}
