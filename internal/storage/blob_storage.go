package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	errpkg "github.com/studiahub/studiahub/internal/errors"
)

// BlobStorage manages raw document bytes in a directory on local disk.
type BlobStorage struct {
	dir string
}

// NewBlobStorage creates a new BlobStorage rooted at the given directory.
func NewBlobStorage(dir string) *BlobStorage {
	return &BlobStorage{dir: dir}
}

// Save streams the reader into a blob named by key, refusing to store more
// than maxSize bytes. Returns the number of bytes written. A blob that
// exceeds the limit is removed before the error is returned.
func (s *BlobStorage) Save(key string, src io.Reader, maxSize int64) (int64, error) {
	path := s.path(key)

	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create blob: %w", err)
	}
	defer file.Close()

	limited := &io.LimitedReader{R: src, N: maxSize + 1}
	written, err := io.Copy(file, limited)
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("write blob: %w", err)
	}
	if written > maxSize {
		os.Remove(path)
		return 0, errpkg.ErrFileTooLarge
	}

	return written, nil
}

// Read returns the full contents of the blob named by key.
func (s *BlobStorage) Read(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, errpkg.ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

// Write stores the given data as the blob named by key.
func (s *BlobStorage) Write(key string, data []byte) error {
	if err := os.WriteFile(s.path(key), data, 0644); err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	return nil
}

// Delete removes the blob named by key. Deleting a missing blob is not an error.
func (s *BlobStorage) Delete(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// Exists checks whether a blob with the given key is stored.
func (s *BlobStorage) Exists(key string) bool {
	_, err := os.Stat(s.path(key))
	return err == nil
}

// Size returns the size of the blob in bytes.
func (s *BlobStorage) Size(key string) (int64, error) {
	info, err := os.Stat(s.path(key))
	if os.IsNotExist(err) {
		return 0, errpkg.ErrFileNotFound
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Path returns the on-disk path of the blob named by key.
func (s *BlobStorage) Path(key string) string {
	return s.path(key)
}

func (s *BlobStorage) path(key string) string {
	// Keys are generated server-side, but flatten anyway so a crafted key
	// cannot escape the storage directory.
	return filepath.Join(s.dir, filepath.Base(key))
}
