// Package security keeps report artifacts inside their output directory.
package security

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// maxStemLen bounds a sanitised file stem.
const maxStemLen = 128

// ValidatePathWithinDirectory rejects filePath when, after cleaning and
// symlink resolution, it does not lie inside dir. When dir does not exist
// on disk (not yet created, or backed by an in-memory filesystem) the
// check is purely lexical.
func ValidatePathWithinDirectory(filePath, dir string) error {
	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve directory: %w", err)
	}

	root, err := filepath.EvalSymlinks(absDir)
	target := absPath
	switch {
	case errors.Is(err, fs.ErrNotExist):
		root = absDir
	case err != nil:
		return fmt.Errorf("resolve directory symlinks: %w", err)
	default:
		target = resolveExisting(absPath)
	}

	rel, err := filepath.Rel(root, target)
	if err != nil {
		return fmt.Errorf("path is outside %s: %w", dir, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s escapes %s", filePath, dir)
	}
	return nil
}

// resolveExisting resolves symlinks in the longest existing prefix of p,
// so a link planted in the output directory cannot redirect a new file.
func resolveExisting(p string) string {
	for dir := p; ; {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rest, _ := filepath.Rel(dir, p)
			return filepath.Join(resolved, rest)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return p
		}
		dir = parent
	}
}

// ArtifactPath joins dir, stem and suffix and checks the result stays
// inside dir.
func ArtifactPath(dir, stem, suffix string) (string, error) {
	p := filepath.Join(dir, stem+suffix)
	if err := ValidatePathWithinDirectory(p, dir); err != nil {
		return "", err
	}
	return p, nil
}

// SanitizeFilename turns a trial name into a file stem. Runs of anything
// other than ASCII letters, digits, dot, underscore or dash collapse to a
// single underscore; leading and trailing dots and underscores are
// trimmed. An empty result becomes "unknown".
func SanitizeFilename(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxStemLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
			lastUnderscore = r == '_'
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
