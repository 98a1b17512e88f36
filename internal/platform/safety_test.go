package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveStorePath(t *testing.T) {
	t.Parallel()

	tempRoot := os.TempDir()
	devBase := filepath.Join(tempRoot, "notesd-dev")

	tests := []struct {
		name      string
		userPath  string
		forceTemp bool
		expected  string
	}{
		{name: "Normal Mode - Empty Path", userPath: "", forceTemp: false, expected: DefaultStoreFile},
		{name: "Normal Mode - Specific Path", userPath: "/some/path/db.json", forceTemp: false, expected: "/some/path/db.json"},
		{name: "Dev Mode - Empty Path", userPath: "", forceTemp: true, expected: filepath.Join(devBase, DefaultStoreFile)},
		{name: "Dev Mode - Current Dir", userPath: ".", forceTemp: true, expected: filepath.Join(devBase, DefaultStoreFile)},
		{name: "Dev Mode - Relative Name", userPath: "notes.json", forceTemp: true, expected: filepath.Join(devBase, "notes.json")},
		{name: "Dev Mode - Clean Name", userPath: "../bad/db.json", forceTemp: true, expected: filepath.Join(devBase, "db.json")},
		{name: "Dev Mode - Exception for Temp Dir", userPath: filepath.Join(tempRoot, "t", "db.json"), forceTemp: true, expected: filepath.Join(tempRoot, "t", "db.json")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveStorePath(tt.userPath, tt.forceTemp)
			if got != tt.expected {
				t.Errorf("ResolveStorePath(%q, %v) = %q; want %q", tt.userPath, tt.forceTemp, got, tt.expected)
			}
		})
	}
}

func TestIsDevRun(t *testing.T) {
	// This test runs inside "go test", so IsDevRun() MUST return true.
	if !IsDevRun() {
		t.Errorf("IsDevRun() = false; want true inside go test")
	}
}
