// Package storage is a path-sandboxed filesystem store for one book's
// artifacts: rewritten chapters, intermediate stage outputs, reports, and
// checkpoints. Every path is relative to the book directory; escapes are
// rejected.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type Store struct {
	baseDir string
}

func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// BaseDir returns the sandbox root.
func (s *Store) BaseDir() string { return s.baseDir }

// sanitizePath cleans a relative path and rejects anything that could leave
// the base directory.
func (s *Store) sanitizePath(path string) (string, error) {
	cleaned := filepath.Clean(path)

	if strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid path %q: contains parent directory reference", path)
	}
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid path %q: absolute paths not allowed", path)
	}

	fullPath := filepath.Join(s.baseDir, cleaned)
	if !strings.HasPrefix(fullPath, s.baseDir+string(filepath.Separator)) && fullPath != s.baseDir {
		return "", fmt.Errorf("invalid path %q: outside base directory", path)
	}
	return fullPath, nil
}

func (s *Store) Save(_ context.Context, path string, data []byte) error {
	fullPath, err := s.sanitizePath(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

func (s *Store) Load(_ context.Context, path string) ([]byte, error) {
	fullPath, err := s.sanitizePath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

func (s *Store) Exists(_ context.Context, path string) bool {
	fullPath, err := s.sanitizePath(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(fullPath)
	return err == nil
}

func (s *Store) Delete(_ context.Context, path string) error {
	fullPath, err := s.sanitizePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

// List globs within the sandbox and returns base-relative matches.
func (s *Store) List(_ context.Context, pattern string) ([]string, error) {
	cleaned := filepath.Clean(pattern)
	if strings.Contains(cleaned, "..") {
		return nil, fmt.Errorf("invalid pattern %q: contains parent directory reference", pattern)
	}
	if filepath.IsAbs(cleaned) {
		return nil, fmt.Errorf("invalid pattern %q: absolute paths not allowed", pattern)
	}

	matches, err := filepath.Glob(filepath.Join(s.baseDir, cleaned))
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	var results []string
	for _, match := range matches {
		rel, err := filepath.Rel(s.baseDir, match)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		results = append(results, rel)
	}
	return results, nil
}
