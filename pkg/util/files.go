package util

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
)

// VideoExtensions are the containers offered by the load dialogs
var VideoExtensions = []string{".mp4", ".mkv", ".avi", ".mov"}

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsVideoFile reports whether path has one of VideoExtensions
func IsVideoFile(path string) bool {
	return slices.Contains(VideoExtensions, strings.ToLower(filepath.Ext(path)))
}

// FindBinary resolves an external tool. A copy bundled in an assets
// directory next to the running executable wins over PATH. Names containing
// a path separator are looked up as given.
func FindBinary(name string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) {
		return exec.LookPath(name)
	}
	if exe, err := os.Executable(); err == nil {
		bundled := filepath.Join(filepath.Dir(exe), "assets", name)
		if runtime.GOOS == "windows" && filepath.Ext(bundled) != ".exe" {
			bundled += ".exe"
		}
		if info, err := os.Stat(bundled); err == nil && !info.IsDir() {
			return bundled, nil
		}
	}
	return exec.LookPath(name)
}
