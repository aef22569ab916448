// Package security guards the file paths a capture dataset hands to the loader.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ResolveWithinDirectory joins a dataset-relative path onto baseDir and rejects
// results that escape baseDir. The check is lexical so it works against any
// fsutil.FileSystem, including the in-memory one used in tests.
func ResolveWithinDirectory(baseDir, relPath string) (string, error) {
	if relPath == "" {
		return "", fmt.Errorf("empty path")
	}
	if filepath.IsAbs(relPath) {
		return "", fmt.Errorf("path %q must be relative to %s", relPath, baseDir)
	}

	cleanBase := filepath.Clean(baseDir)
	joined := filepath.Join(cleanBase, relPath)

	rel, err := filepath.Rel(cleanBase, joined)
	if err != nil {
		return "", fmt.Errorf("path is outside dataset directory: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: %s attempts to escape %s", relPath, baseDir)
	}
	return joined, nil
}

// ValidateOutputPath checks that filePath lies within one of allowedDirs once
// both are made absolute. Used before writing plots and reports.
func ValidateOutputPath(filePath string, allowedDirs []string) error {
	if len(allowedDirs) == 0 {
		return fmt.Errorf("no allowed directories specified")
	}

	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	for _, dir := range allowedDirs {
		absDir, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(absDir, absPath)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("path must be within one of the allowed directories: %v", allowedDirs)
}
