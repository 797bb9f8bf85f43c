package config

import (
	"os"
	"path/filepath"
)

const (
	AppName    = "savemanager"
	EnvPrefix  = "SAVEMANAGER_"
	ConfigFile = "config.yaml"
	LogFile    = "programmLog.txt"
)

// Paths is the on-disk layout under one data root.
type Paths struct {
	Root        string
	SavesDir    string
	MetadataDir string
	LogFile     string
	ConfigFile  string
}

func Layout(root string) Paths {
	return Paths{
		Root:        root,
		SavesDir:    filepath.Join(root, "saves"),
		MetadataDir: filepath.Join(root, "metadata"),
		LogFile:     filepath.Join(root, LogFile),
		ConfigFile:  filepath.Join(root, ConfigFile),
	}
}

// DefaultRoot resolves the data root: $SAVEMANAGER_ROOT, then the per-user
// config directory, then the working directory.
func DefaultRoot() string {
	if root := os.Getenv(EnvPrefix + "ROOT"); root != "" {
		return root
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, AppName)
	}
	return filepath.Join(".", AppName)
}

// Defaults are written to a fresh config file.
func Defaults() map[string]any {
	return map[string]any{
		"lang":                "en",
		"version":             "1.0",
		"hide_log_by_default": true,
		"log_level":           "INFO",
		"saves_dir":           "",
		"source_dir":          "",
		"target_dir":          "",
		"make_backup":         true,
	}
}
