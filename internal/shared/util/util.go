package util

import (
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
)

// SortedStringKeys returns the keys of m in ascending order.
func SortedStringKeys[T any](m map[string]T) []string {
	return slices.Sorted(maps.Keys(m))
}

// WriteFileWithDirs writes data to path, creating missing parent
// directories with mode 0755.
func WriteFileWithDirs(path string, data []byte, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, perm)
}
