package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ProjectRoot returns the absolute path to the project root directory
func ProjectRoot() string {
	_, b, _, _ := runtime.Caller(0)
	return filepath.Dir(filepath.Dir(b))
}

// SQLPath returns the absolute path to a SQL file in the sql directory
func SQLPath(filename string) string {
	return filepath.Join(ProjectRoot(), "sql", filename)
}

// FindSQLDir looks for the sql directory in the working directory, then its
// parent, then the project root.
func FindSQLDir() (string, error) {
	candidates := []string{"sql", filepath.Join("..", "sql"), filepath.Join(ProjectRoot(), "sql")}
	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", fmt.Errorf("cannot find SQL directory in %v", candidates)
}
