package runtime

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalFileStorage implements Storage on a local directory. Slide sources and
// compiled artifacts both live in one of these during CLI builds.
type LocalFileStorage struct {
	baseDir string
}

// NewLocalFileStorage creates storage rooted at baseDir, creating it if needed.
func NewLocalFileStorage(baseDir string) (*LocalFileStorage, error) {
	absPath, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, err
	}

	return &LocalFileStorage{
		baseDir: absPath,
	}, nil
}

// BaseDir returns the absolute root of the storage.
func (s *LocalFileStorage) BaseDir() string {
	return s.baseDir
}

// fullPath returns the absolute path for a key, ensuring it's within baseDir
func (s *LocalFileStorage) fullPath(key string) (string, error) {
	cleanKey := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(key, "/")))
	if cleanKey == ".." || strings.HasPrefix(cleanKey, ".."+string(filepath.Separator)) {
		return "", fs.ErrInvalid
	}

	absPath, err := filepath.Abs(filepath.Join(s.baseDir, cleanKey))
	if err != nil {
		return "", err
	}

	if absPath != s.baseDir && !strings.HasPrefix(absPath, s.baseDir+string(filepath.Separator)) {
		return "", fs.ErrInvalid
	}

	return absPath, nil
}

// FullPath returns the absolute file system path for a storage key
func (s *LocalFileStorage) FullPath(key string) (string, error) {
	return s.fullPath(key)
}

func (s *LocalFileStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := s.fullPath(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", key, fs.ErrNotExist)
		}
		return nil, err
	}

	return file, nil
}

func (s *LocalFileStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	path, err := s.fullPath(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// List returns keys under prefix. With a delimiter only the immediate children
// of the prefix directory are listed and subdirectories are reported as
// delimited prefixes; without one the tree is walked recursively.
func (s *LocalFileStorage) List(ctx context.Context, prefix string, delimiter string) (*ListResult, error) {
	result := &ListResult{
		Keys:              make([]string, 0),
		DelimitedPrefixes: make([]string, 0),
	}

	searchDir := s.baseDir
	if prefix != "" {
		prefixPath, err := s.fullPath(prefix)
		if err != nil {
			return result, nil
		}

		if info, err := os.Stat(prefixPath); err == nil && info.IsDir() {
			searchDir = prefixPath
		} else {
			searchDir = filepath.Dir(prefixPath)
		}
	}

	if delimiter != "" {
		entries, err := os.ReadDir(searchDir)
		if err != nil {
			if os.IsNotExist(err) {
				return result, nil
			}
			return nil, err
		}

		for _, entry := range entries {
			relPath, err := filepath.Rel(s.baseDir, filepath.Join(searchDir, entry.Name()))
			if err != nil {
				continue
			}
			relPath = filepath.ToSlash(relPath)

			if prefix != "" && !strings.HasPrefix(relPath, strings.TrimPrefix(prefix, "/")) {
				continue
			}

			if entry.IsDir() {
				result.DelimitedPrefixes = append(result.DelimitedPrefixes, relPath+"/")
			} else {
				result.Keys = append(result.Keys, relPath)
			}
		}

		return result, nil
	}

	err := filepath.WalkDir(searchDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if prefix != "" && !strings.HasPrefix(relPath, strings.TrimPrefix(prefix, "/")) {
			return nil
		}

		result.Keys = append(result.Keys, relPath)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(result.Keys)
	return result, nil
}

func (s *LocalFileStorage) Delete(ctx context.Context, key string) error {
	path, err := s.fullPath(key)
	if err != nil {
		return err
	}

	err = os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}

	return err
}
