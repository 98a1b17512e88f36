package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigFile is the name of the optional configuration file.
const ConfigFile = "notesd.yaml"

// FindConfig looks upwards from startDir for a notesd.yaml file and returns
// its absolute path.
func FindConfig(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if hasFile(dir, ConfigFile) {
			return filepath.Join(dir, ConfigFile), nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%s not found", ConfigFile)
}

func hasFile(dir, name string) bool {
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && !info.IsDir()
}
