package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var imageExts = []string{".jpg", ".jpeg", ".png", ".webp"}

// LocalStorage is the work directory generated images are written to.
type LocalStorage struct {
	workDir string
}

func NewLocalStorage(workDir string) *LocalStorage {
	return &LocalStorage{workDir: workDir}
}

func (s *LocalStorage) Dir() string {
	return s.workDir
}

func (s *LocalStorage) EnsureDir() error {
	if err := os.MkdirAll(s.workDir, 0755); err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}
	return nil
}

// ImagePath joins name onto the work directory. Only the base of name is
// used, so a name can never escape the directory.
func (s *LocalStorage) ImagePath(name string) string {
	return filepath.Join(s.workDir, filepath.Base(name))
}

func (s *LocalStorage) ListImages() ([]string, error) {
	entries, err := os.ReadDir(s.workDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read work directory: %w", err)
	}

	var images []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if isImage(entry.Name()) {
			images = append(images, filepath.Join(s.workDir, entry.Name()))
		}
	}

	return images, nil
}

// Clear removes generated images and returns how many were deleted. Other
// files in the work directory are left alone.
func (s *LocalStorage) Clear() (int, error) {
	images, err := s.ListImages()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, path := range images {
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", filepath.Base(path), err)
		}
		removed++
	}

	return removed, nil
}

func isImage(name string) bool {
	return slices.Contains(imageExts, strings.ToLower(filepath.Ext(name)))
}
