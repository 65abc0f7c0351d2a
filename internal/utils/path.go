package utils

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

// AppName names the config and data directories.
const AppName = "stationcode"

// UserConfigDir returns the platform config directory for stationcode
// without creating it.
func UserConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return configDirFor(runtime.GOOS, homeDir, os.Getenv), nil
}

func configDirFor(goos, homeDir string, getenv func(string) string) string {
	switch goos {
	case "windows":
		if appData := getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, AppName)
		}
		return filepath.Join(homeDir, "AppData", "Roaming", AppName)
	default:
		if configHome := getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, AppName)
		}
		return filepath.Join(homeDir, ".config", AppName)
	}
}

// ResolveDir returns the first writable directory among candidates,
// creating it when needed. It returns "" when none can be used.
func ResolveDir(candidates ...string) string {
	for _, dir := range candidates {
		if dir == "" {
			continue
		}
		if result := CheckDirStatus(dir); result.Writable {
			return dir
		}
		log.Debugf("Directory candidate not writable: %s", dir)
	}
	return ""
}
