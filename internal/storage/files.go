package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalFileStore persists payment-proof uploads on the local filesystem.
// Files are named payment_<nanosecond timestamp><original extension>; the
// name is recorded on the reservation row and served under the public
// uploads path.
type LocalFileStore struct {
	dir string
}

func NewLocalFileStore(dir string) (*LocalFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &LocalFileStore{dir: dir}, nil
}

func (s *LocalFileStore) Save(originalName string, content io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	filename := fmt.Sprintf("payment_%d%s", time.Now().UnixNano(), ext)

	path := filepath.Join(s.dir, filename)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}

	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close upload file: %w", err)
	}

	return filename, nil
}

func (s *LocalFileStore) Remove(filename string) error {
	// Reject anything that could escape the uploads directory.
	if filename == "" || filename != filepath.Base(filename) {
		return fmt.Errorf("invalid upload filename: %q", filename)
	}
	return os.Remove(filepath.Join(s.dir, filename))
}

func (s *LocalFileStore) Dir() string {
	return s.dir
}
