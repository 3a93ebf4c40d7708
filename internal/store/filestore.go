package store

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// FileStore persists uploaded blobs under a base directory and hands
// back the path it wrote them to. It implements action.FileStore; the
// httpapi upload endpoint is the only caller, since file_storage's
// handler only ever suspends and asks the caller to resolve storage.
type FileStore struct {
	fs      afero.Fs
	baseDir string
}

func NewFileStore(fs afero.Fs, baseDir string) *FileStore {
	return &FileStore{fs: fs, baseDir: baseDir}
}

// Save writes data under baseDir/storagePath/<unix-nano>-<filename> and
// returns that path, avoiding collisions between uploads sharing a name.
func (s *FileStore) Save(_ context.Context, storagePath, filename string, data []byte) (string, error) {
	dir := filepath.Join(s.baseDir, storagePath)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create storage directory %s: %w", dir, err)
	}

	name := fmt.Sprintf("%d-%s", time.Now().UnixNano(), filename)
	path := filepath.Join(dir, name)
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("write file %s: %w", path, err)
	}
	return path, nil
}
