package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

// DataDirName marks a project-local data directory.
const DataDirName = ".tabnotes"

// FindRoot looks upwards from startDir for a directory containing a
// .tabnotes directory and returns its absolute path.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if isDir(filepath.Join(dir, DataDirName)) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("no %s directory above %s", DataDirName, abs)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
