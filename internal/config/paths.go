package config

import (
	"os"
	"path/filepath"
)

const appDirName = ".monitor"

// DataDir returns the base data directory for the monitor.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

// Path returns the location of the TOML config file.
func Path() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "config.toml"), nil
}

// DBPath returns the location of the persisted key/value store.
func DBPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "monitor.db"), nil
}

// LogPath returns the location of the log file.
func LogPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "monitor.log"), nil
}
