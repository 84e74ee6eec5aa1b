package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// RemoveMatching deletes the files directly inside dir whose names end in
// one of suffixes and returns how many were removed. A missing dir is not
// an error.
func RemoveMatching(fsys FileSystem, dir string, suffixes ...string) (int, error) {
	names, err := fsys.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	removed := 0
	var errs []error
	for _, name := range names {
		if !hasAnySuffix(name, suffixes) {
			continue
		}
		if err := fsys.Remove(filepath.Join(dir, name)); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", name, err))
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func hasAnySuffix(name string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}
