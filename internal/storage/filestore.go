// Package storage keeps attachment bytes on disk. The root is explicit
// configuration handed to the store at construction; the core only ever
// sees storage keys.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
)

// Store abstracts blob storage for attachments.
type Store interface {
	Save(defectID, key string, content io.Reader) (int64, error)
	Open(defectID, key string) (io.ReadCloser, error)
	Remove(defectID, key string) error
}

type fileStore struct {
	root string
}

// NewFileStore builds a filesystem-backed store under the given root.
func NewFileStore(root string) Store {
	return &fileStore{root: root}
}

var unsafeChars = regexp.MustCompile(`[^\w\-.]+`)

// SanitizeFileName strips path components and replaces unsafe characters.
func SanitizeFileName(name string) string {
	return unsafeChars.ReplaceAllString(filepath.Base(name), "_")
}

func (s *fileStore) Save(defectID, key string, content io.Reader) (int64, error) {
	dir := filepath.Join(s.root, "attachments", defectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create attachment dir: %w", err)
	}

	file, err := os.OpenFile(filepath.Join(dir, key), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create attachment file: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, content)
	if err != nil {
		return 0, fmt.Errorf("write attachment: %w", err)
	}
	return written, nil
}

func (s *fileStore) Open(defectID, key string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.root, "attachments", defectID, key))
}

func (s *fileStore) Remove(defectID, key string) error {
	err := os.Remove(filepath.Join(s.root, "attachments", defectID, key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
