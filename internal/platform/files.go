package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Operating system constants
const (
	OSDarwin  = "darwin"
	OSWindows = "windows"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// App directory name inside the per-user data location
const appDirName = "dlqueue"

// Characters not allowed in output file names
const invalidFilenameChars = `/\:*?"<>|`

// CreateDirectoryIfNotExists creates directory if it doesn't exist
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// GetHomeDownloadsDir returns the standard Downloads directory for the user
func GetHomeDownloadsDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, "Downloads"), nil
}

// GetDataDir returns the process-local data directory where queue state
// lives, following the platform convention
func GetDataDir() (string, error) {
	switch runtime.GOOS {
	case OSDarwin:
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		return filepath.Join(homeDir, "Library", "Application Support", appDirName), nil
	case OSWindows:
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appDirName), nil
		}
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, appDirName), nil
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", appDirName), nil
}

// SanitizeFilename strips characters that are unsafe in file names and
// trims surrounding whitespace and dots
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(invalidFilenameChars, r) || r < 0x20 {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(r)
	}

	cleaned := strings.Trim(b.String(), " .")
	if cleaned == "" {
		cleaned = "download"
	}
	return cleaned
}
