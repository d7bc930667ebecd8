package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// StoragePaths contains paths for application storage
type StoragePaths struct {
	DatabasePath string
	ExportPath   string
}

// GetDefaultStoragePaths returns default storage paths using XDG base directories
func GetDefaultStoragePaths() StoragePaths {
	// XDG_STATE_HOME holds runtime state data per the XDG Base Directory
	// specification.
	dbPath := filepath.Join(xdg.StateHome, "parley", "conversations.db")
	exportPath := filepath.Join(xdg.DataHome, "parley", "exports")

	return StoragePaths{
		DatabasePath: dbPath,
		ExportPath:   exportPath,
	}
}

// GetDefaultStatePath returns the default state directory path
func GetDefaultStatePath() string {
	return filepath.Join(xdg.StateHome, "parley")
}

// GetDefaultLogPath returns the default log file path
func GetDefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "parley", "parley.log")
}
