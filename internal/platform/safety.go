package platform

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultStoreFile is the store file used when no path is given.
const DefaultStoreFile = "db.json"

// IsDevRun checks if the current process is running via `go run` or `go test`.
// It relies on the fact that these commands build binaries in temporary directories.
func IsDevRun() bool {
	exe, err := os.Executable()
	if err != nil {
		return false
	}

	tempDir := os.TempDir()
	if strings.HasPrefix(strings.ToLower(exe), strings.ToLower(tempDir)) {
		return true
	}

	if strings.HasSuffix(exe, ".test") || strings.HasSuffix(exe, ".test.exe") {
		return true
	}

	return false
}

// ResolveStorePath determines the actual store file path based on safety rules.
// With forceTemp, paths outside the system temp directory are re-rooted into
// a namespaced temp directory so dev runs never touch real data.
func ResolveStorePath(userPath string, forceTemp bool) string {
	if userPath == "" {
		userPath = DefaultStoreFile
	}
	if !forceTemp {
		return userPath
	}

	// Paths already inside the temp dir (e.g. t.TempDir()) are trusted.
	cleanUserPath := filepath.Clean(userPath)
	rel, err := filepath.Rel(os.TempDir(), cleanUserPath)
	if err == nil && filepath.IsAbs(cleanUserPath) && !strings.HasPrefix(rel, "..") {
		return cleanUserPath
	}

	name := filepath.Base(cleanUserPath)
	if name == "." || name == string(os.PathSeparator) {
		name = DefaultStoreFile
	}
	return filepath.Join(os.TempDir(), "notesd-dev", name)
}
