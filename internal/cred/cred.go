// Package cred stores the estimation API key in a permission-restricted
// file under the user's config directory.
package cred

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by Read when no key has been saved.
var ErrNotFound = errors.New("cred: no api key stored")

// Store is the credential collaborator the ledger talks to.
type Store interface {
	Save(key string) error
	Read() (string, error)
	DeleteAll() error
}

// FileStore keeps the key in a single 0600 file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath returns ~/.config/kalori/apikey
func DefaultPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "kalori", "apikey"), nil
}

func (f *FileStore) Save(key string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}
	if err := os.WriteFile(f.path, []byte(key), 0o600); err != nil {
		return fmt.Errorf("write credential: %w", err)
	}
	return nil
}

func (f *FileStore) Read() (string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read credential: %w", err)
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", ErrNotFound
	}
	return key, nil
}

func (f *FileStore) DeleteAll() error {
	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}
