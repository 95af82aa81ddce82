// Package storage keeps the original uploaded spreadsheets on local disk
// so reviewers can inspect what was actually submitted. A submission with
// no stored path simply has no original file retained.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

type LocalStore struct {
	basePath string
}

func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{basePath: basePath}, nil
}

// Save writes the file under a unique name and returns its path. The
// original extension is kept so stored files stay openable.
func (s *LocalStore) Save(filename string, r io.Reader) (string, error) {
	name := fmt.Sprintf("%s%s", uuid.New().String(), filepath.Ext(filename))
	path := filepath.Join(s.basePath, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}

	return path, nil
}

func (s *LocalStore) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func (s *LocalStore) Delete(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
