package receipt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore writes receipts under a single directory.
type FileStore struct {
	Dir string
}

func (s FileStore) Save(_ context.Context, name string, doc []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create receipt dir: %w", err)
	}
	path := filepath.Join(s.Dir, filepath.Base(name))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, doc, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return path, nil
}
